package application

import (
	"strings"
	"time"

	"github.com/mets-platform/mets/internal/domain"
	"github.com/mets-platform/mets/internal/planning"
)

// CreateOrderCommand represents the command to create a new order
type CreateOrderCommand struct {
	Customer     CustomerInput
	Technical    TechnicalInput
	Cells        []CellInput
	Priority     string
	OrderDate    *time.Time
	DeliveryDate time.Time
	Notes        string
}

// CustomerInput represents the customer block of a command
type CustomerInput struct {
	Name          string
	DocumentNo    string
	ProjectName   string
	ContractNo    string
	ContactPerson string
	ContactEmail  string
	ContactPhone  string
}

// TechnicalInput represents the technical block of a command.
// Empty fields take the RM 36 defaults.
type TechnicalInput struct {
	OperatingVoltage    string
	RatedCurrent        string
	ShortCircuitCurrent string
	ControlVoltage      string
}

// CellInput represents one ordered cell type
type CellInput struct {
	ProductTypeCode string
	Quantity        int
}

// UpdateOrderStatusCommand represents the command to move an order along its lifecycle
type UpdateOrderStatusCommand struct {
	OrderID string
	Status  string
	Reason  string
}

// CancelOrderCommand represents the command to cancel an order
type CancelOrderCommand struct {
	OrderID string
	Reason  string
}

// ListOrdersQuery represents the query to list orders with filters and pagination
type ListOrdersQuery struct {
	Search       string
	CellType     string
	Status       string
	Priority     string
	CustomerName string
	DateFrom     *time.Time
	DateTo       *time.Time

	SortBy   string
	SortDesc bool

	Page     int64
	PageSize int64
}

// GeneratePlanCommand represents the command to run the planning engine
// over the active orders
type GeneratePlanCommand struct {
	StartOfDay *time.Time
	Now        *time.Time
	Trigger    string
	TriggerID  string
}

// PreviewPlanCommand runs the engine over caller-supplied orders without
// storing anything
type PreviewPlanCommand struct {
	Orders     []planning.Order
	StartOfDay *time.Time
	Now        *time.Time
}

// UpsertProductionUnitCommand represents the command to create or update a unit
type UpsertProductionUnitCommand struct {
	UnitID   string
	Name     string
	Capacity float64
}

// UpdatePlanningParametersCommand replaces the planning parameters
type UpdatePlanningParametersCommand struct {
	Parameters planning.Parameters
}

// AskCommand represents a question to the assistant
type AskCommand struct {
	Question string
}

// ToDomainCustomer converts the customer block
func (c *CreateOrderCommand) ToDomainCustomer() domain.CustomerInfo {
	return domain.CustomerInfo{
		Name:          strings.TrimSpace(c.Customer.Name),
		DocumentNo:    strings.TrimSpace(c.Customer.DocumentNo),
		ProjectName:   c.Customer.ProjectName,
		ContractNo:    c.Customer.ContractNo,
		ContactPerson: c.Customer.ContactPerson,
		ContactEmail:  c.Customer.ContactEmail,
		ContactPhone:  c.Customer.ContactPhone,
	}
}

// ToDomainTechnical converts the technical block
func (c *CreateOrderCommand) ToDomainTechnical() domain.TechnicalInfo {
	return domain.TechnicalInfo{
		OperatingVoltage:    c.Technical.OperatingVoltage,
		RatedCurrent:        c.Technical.RatedCurrent,
		ShortCircuitCurrent: c.Technical.ShortCircuitCurrent,
		ControlVoltage:      c.Technical.ControlVoltage,
	}
}

// ToDomainCells converts the cell list
func (c *CreateOrderCommand) ToDomainCells() []domain.Cell {
	cells := make([]domain.Cell, 0, len(c.Cells))
	for _, cell := range c.Cells {
		cells = append(cells, domain.Cell{
			ProductTypeCode: cell.ProductTypeCode,
			Quantity:        cell.Quantity,
		})
	}
	return cells
}

// ToDomainPriority converts the priority, defaulting to medium
func (c *CreateOrderCommand) ToDomainPriority() domain.Priority {
	if c.Priority == "" {
		return domain.PriorityMedium
	}
	return domain.Priority(strings.ToLower(c.Priority))
}
