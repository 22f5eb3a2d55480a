// Package dto holds the request bodies of the HTTP API and their mapping
// onto application commands.
package dto

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/mets-platform/mets/internal/application"
	"github.com/mets-platform/mets/internal/planning"
)

// Date accepts a calendar day (YYYY-MM-DD) or an RFC 3339 timestamp
type Date struct {
	time.Time
}

// UnmarshalJSON implements json.Unmarshaler
func (d *Date) UnmarshalJSON(data []byte) error {
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("date must be a string: %w", err)
	}
	raw = strings.TrimSpace(raw)
	if raw == "" {
		d.Time = time.Time{}
		return nil
	}
	for _, layout := range []string{"2006-01-02", time.RFC3339} {
		if t, err := time.Parse(layout, raw); err == nil {
			d.Time = t
			return nil
		}
	}
	return fmt.Errorf("invalid date %q: expected YYYY-MM-DD or RFC 3339", raw)
}

// MarshalJSON implements json.Marshaler
func (d Date) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.Time.Format(time.RFC3339))
}

// ptr returns nil for a missing or zero date
func (d *Date) ptr() *time.Time {
	if d == nil || d.IsZero() {
		return nil
	}
	t := d.Time
	return &t
}

// CreateOrderRequest represents the request to create an order
type CreateOrderRequest struct {
	CustomerInfo  CustomerRequest  `json:"customerInfo"`
	TechnicalInfo TechnicalRequest `json:"technicalInfo"`
	Cells         []CellRequest    `json:"cells" binding:"required,min=1,dive"`
	Priority      string           `json:"priority" binding:"omitempty,priority"`
	OrderDate     *Date            `json:"orderDate,omitempty"`
	DeliveryDate  Date             `json:"deliveryDate"`
	Notes         string           `json:"notes" binding:"max=2000"`
}

// CustomerRequest represents the customer block of an order
type CustomerRequest struct {
	Name          string `json:"name" binding:"required"`
	DocumentNo    string `json:"documentNo" binding:"required"`
	ProjectName   string `json:"projectName"`
	ContractNo    string `json:"contractNo"`
	ContactPerson string `json:"contactPerson"`
	ContactEmail  string `json:"contactEmail" binding:"omitempty,email"`
	ContactPhone  string `json:"contactPhone"`
}

// TechnicalRequest represents the electrical ratings. Empty fields take
// the RM 36 defaults.
type TechnicalRequest struct {
	OperatingVoltage    string `json:"operatingVoltage"`
	RatedCurrent        string `json:"ratedCurrent"`
	ShortCircuitCurrent string `json:"shortCircuitCurrent"`
	ControlVoltage      string `json:"controlVoltage"`
}

// CellRequest represents one ordered cell type
type CellRequest struct {
	ProductTypeCode string `json:"productTypeCode" binding:"required"`
	Quantity        int    `json:"quantity" binding:"required,min=1,max=1000"`
}

// ToCommand maps the request onto a CreateOrderCommand
func (r CreateOrderRequest) ToCommand() application.CreateOrderCommand {
	cells := make([]application.CellInput, 0, len(r.Cells))
	for _, cell := range r.Cells {
		cells = append(cells, application.CellInput{
			ProductTypeCode: cell.ProductTypeCode,
			Quantity:        cell.Quantity,
		})
	}

	return application.CreateOrderCommand{
		Customer: application.CustomerInput{
			Name:          r.CustomerInfo.Name,
			DocumentNo:    r.CustomerInfo.DocumentNo,
			ProjectName:   r.CustomerInfo.ProjectName,
			ContractNo:    r.CustomerInfo.ContractNo,
			ContactPerson: r.CustomerInfo.ContactPerson,
			ContactEmail:  r.CustomerInfo.ContactEmail,
			ContactPhone:  r.CustomerInfo.ContactPhone,
		},
		Technical: application.TechnicalInput{
			OperatingVoltage:    r.TechnicalInfo.OperatingVoltage,
			RatedCurrent:        r.TechnicalInfo.RatedCurrent,
			ShortCircuitCurrent: r.TechnicalInfo.ShortCircuitCurrent,
			ControlVoltage:      r.TechnicalInfo.ControlVoltage,
		},
		Cells:        cells,
		Priority:     r.Priority,
		OrderDate:    r.OrderDate.ptr(),
		DeliveryDate: r.DeliveryDate.Time,
		Notes:        r.Notes,
	}
}

// UpdateOrderStatusRequest represents the request to change an order status
type UpdateOrderStatusRequest struct {
	Status string `json:"status" binding:"required"`
	Reason string `json:"reason" binding:"max=500"`
}

// CancelOrderRequest represents the request to cancel an order
type CancelOrderRequest struct {
	Reason string `json:"reason" binding:"max=500"`
}

// GeneratePlanRequest is the optional body of a plan generation request
type GeneratePlanRequest struct {
	StartOfDay *time.Time `json:"startOfDay,omitempty"`
	Now        *time.Time `json:"now,omitempty"`
}

// ToCommand maps the request onto a GeneratePlanCommand
func (r GeneratePlanRequest) ToCommand() application.GeneratePlanCommand {
	return application.GeneratePlanCommand{
		StartOfDay: r.StartOfDay,
		Now:        r.Now,
		Trigger:    "manual",
	}
}

// PreviewOrderRequest is one order of a preview request
type PreviewOrderRequest struct {
	ID       string `json:"id" binding:"required"`
	CellType string `json:"cellType"`
	Quantity int    `json:"quantity" binding:"max=1000"`
}

// PreviewPlanRequest runs the engine over the given orders
type PreviewPlanRequest struct {
	Orders     []PreviewOrderRequest `json:"orders" binding:"dive"`
	StartOfDay *time.Time            `json:"startOfDay,omitempty"`
	Now        *time.Time            `json:"now,omitempty"`
}

// ToCommand maps the request onto a PreviewPlanCommand
func (r PreviewPlanRequest) ToCommand() application.PreviewPlanCommand {
	orders := make([]planning.Order, 0, len(r.Orders))
	for _, o := range r.Orders {
		orders = append(orders, planning.Order{ID: o.ID, CellType: o.CellType, Quantity: o.Quantity})
	}
	return application.PreviewPlanCommand{
		Orders:     orders,
		StartOfDay: r.StartOfDay,
		Now:        r.Now,
	}
}

// UpsertProductionUnitRequest represents the request to create or update a unit
type UpsertProductionUnitRequest struct {
	Name     string  `json:"name" binding:"required"`
	Capacity float64 `json:"capacity" binding:"gte=0"`
}

// AskRequest is a question to the assistant
type AskRequest struct {
	Question string `json:"question" binding:"required,max=1000"`
}
