package domain

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/mets-platform/mets/internal/planning"
)

// MaxCellQuantity bounds the units of one cell line; every unit gets a serial.
const MaxCellQuantity = 1000

// Errors for Order aggregate
var (
	ErrNoCells                 = errors.New("order must have at least one cell")
	ErrInvalidCell             = errors.New("cell must have a product type code and a quantity between 1 and 1000")
	ErrMissingCustomerName     = errors.New("customer name is required")
	ErrMissingDocumentNo       = errors.New("customer document number is required")
	ErrInvalidPriority         = errors.New("invalid order priority")
	ErrInvalidStatus           = errors.New("invalid order status")
	ErrInvalidStatusTransition = errors.New("invalid status transition")
	ErrOrderCanceled           = errors.New("order has been canceled")
	ErrOrderCompleted          = errors.New("order has been completed")
	ErrOrderNotFound           = errors.New("order not found")
	ErrDuplicateOrderNo        = errors.New("order number already exists")
)

// Priority represents order priority levels
type Priority string

const (
	PriorityHigh   Priority = "high"
	PriorityMedium Priority = "medium"
	PriorityLow    Priority = "low"
)

// IsValid checks if the priority is valid
func (p Priority) IsValid() bool {
	switch p {
	case PriorityHigh, PriorityMedium, PriorityLow:
		return true
	default:
		return false
	}
}

// Rank orders priorities from high (0) to low (2). Orders store it next to
// the priority so an ascending sort puts high priority first.
func (p Priority) Rank() int {
	switch p {
	case PriorityHigh:
		return 0
	case PriorityMedium:
		return 1
	default:
		return 2
	}
}

// Status represents order status
type Status string

const (
	StatusPlanned    Status = "planned"
	StatusInProgress Status = "in_progress"
	StatusDelayed    Status = "delayed"
	StatusCompleted  Status = "completed"
	StatusCanceled   Status = "canceled"
)

// AllStatuses lists the statuses in lifecycle order.
var AllStatuses = []Status{StatusPlanned, StatusInProgress, StatusDelayed, StatusCompleted, StatusCanceled}

var statusAliases = map[string]Status{
	"pending":    StatusPlanned,
	"approved":   StatusPlanned,
	"production": StatusInProgress,
}

var statusText = map[Status]string{
	StatusPlanned:    "Planlandı",
	StatusInProgress: "Üretimde",
	StatusDelayed:    "Gecikti",
	StatusCompleted:  "Tamamlandı",
	StatusCanceled:   "İptal Edildi",
}

var statusTransitions = map[Status][]Status{
	StatusPlanned:    {StatusInProgress, StatusDelayed, StatusCanceled},
	StatusInProgress: {StatusCompleted, StatusDelayed, StatusCanceled},
	StatusDelayed:    {StatusInProgress, StatusCompleted, StatusCanceled},
}

// ParseStatus accepts a canonical status or one of the planning aliases
// (pending, approved, production).
func ParseStatus(s string) (Status, error) {
	value := strings.ToLower(strings.TrimSpace(s))
	if alias, ok := statusAliases[value]; ok {
		return alias, nil
	}
	status := Status(value)
	if !status.IsValid() {
		return "", fmt.Errorf("%w: %q", ErrInvalidStatus, s)
	}
	return status, nil
}

// IsValid checks if the status is one of the canonical statuses
func (s Status) IsValid() bool {
	_, ok := statusText[s]
	return ok
}

// IsTerminal reports whether no further transitions are allowed
func (s Status) IsTerminal() bool {
	return s == StatusCompleted || s == StatusCanceled
}

// IsActive reports whether the order still takes production capacity
func (s Status) IsActive() bool {
	return s.IsValid() && !s.IsTerminal()
}

// DisplayText returns the label shown to shop-floor users
func (s Status) DisplayText() string {
	if text, ok := statusText[s]; ok {
		return text
	}
	return string(s)
}

// CanTransitionTo checks the order lifecycle
func (s Status) CanTransitionTo(next Status) bool {
	for _, allowed := range statusTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// Technical defaults for RM 36 switchgear
const (
	DefaultOperatingVoltage    = "36kV"
	DefaultRatedCurrent        = "630A"
	DefaultShortCircuitCurrent = "16kA"
	DefaultControlVoltage      = "24 VDC"
)

// CustomerInfo identifies the customer and the contract behind an order
type CustomerInfo struct {
	Name          string `bson:"name" json:"name"`
	DocumentNo    string `bson:"documentNo" json:"documentNo"`
	ProjectName   string `bson:"projectName,omitempty" json:"projectName,omitempty"`
	ContractNo    string `bson:"contractNo,omitempty" json:"contractNo,omitempty"`
	ContactPerson string `bson:"contactPerson,omitempty" json:"contactPerson,omitempty"`
	ContactEmail  string `bson:"contactEmail,omitempty" json:"contactEmail,omitempty"`
	ContactPhone  string `bson:"contactPhone,omitempty" json:"contactPhone,omitempty"`
}

// TechnicalInfo holds the electrical ratings of the ordered switchgear
type TechnicalInfo struct {
	OperatingVoltage    string `bson:"operatingVoltage" json:"operatingVoltage"`
	RatedCurrent        string `bson:"ratedCurrent" json:"ratedCurrent"`
	ShortCircuitCurrent string `bson:"shortCircuitCurrent" json:"shortCircuitCurrent"`
	ControlVoltage      string `bson:"controlVoltage" json:"controlVoltage"`
}

// WithDefaults fills empty ratings with the RM 36 defaults
func (t TechnicalInfo) WithDefaults() TechnicalInfo {
	if t.OperatingVoltage == "" {
		t.OperatingVoltage = DefaultOperatingVoltage
	}
	if t.RatedCurrent == "" {
		t.RatedCurrent = DefaultRatedCurrent
	}
	if t.ShortCircuitCurrent == "" {
		t.ShortCircuitCurrent = DefaultShortCircuitCurrent
	}
	if t.ControlVoltage == "" {
		t.ControlVoltage = DefaultControlVoltage
	}
	return t
}

// Cell is one ordered cell type with the serial numbers of its units
type Cell struct {
	ProductTypeCode string   `bson:"productTypeCode" json:"productTypeCode"`
	Quantity        int      `bson:"quantity" json:"quantity"`
	SerialNumbers   []string `bson:"serialNumbers" json:"serialNumbers"`
}

// StatusChange is one entry of the order's status history
type StatusChange struct {
	From      Status    `bson:"from" json:"from"`
	To        Status    `bson:"to" json:"to"`
	Reason    string    `bson:"reason,omitempty" json:"reason,omitempty"`
	ChangedAt time.Time `bson:"changedAt" json:"changedAt"`
}

// Order is the aggregate root of the orders module
type Order struct {
	ID                primitive.ObjectID `bson:"_id,omitempty" json:"-"`
	OrderID           string             `bson:"orderId" json:"orderId"`
	OrderNo           string             `bson:"orderNo" json:"orderNo"`
	OrderDate         time.Time          `bson:"orderDate" json:"orderDate"`
	DeliveryDate      time.Time          `bson:"deliveryDate" json:"deliveryDate"`
	EstimatedDelivery *time.Time         `bson:"estimatedDelivery,omitempty" json:"estimatedDelivery,omitempty"`
	Status            Status             `bson:"status" json:"status"`
	Priority          Priority           `bson:"priority" json:"priority"`
	PriorityRank      int                `bson:"priorityRank" json:"-"`
	CustomerInfo      CustomerInfo       `bson:"customerInfo" json:"customerInfo"`
	TechnicalInfo     TechnicalInfo      `bson:"technicalInfo" json:"technicalInfo"`
	Cells             []Cell             `bson:"cells" json:"cells"`
	Notes             string             `bson:"notes,omitempty" json:"notes,omitempty"`
	StatusHistory     []StatusChange     `bson:"statusHistory,omitempty" json:"statusHistory,omitempty"`
	CreatedAt         time.Time          `bson:"createdAt" json:"createdAt"`
	UpdatedAt         time.Time          `bson:"updatedAt" json:"updatedAt"`

	// Domain events - transient, not persisted
	domainEvents []DomainEvent `bson:"-" json:"-"`
}

// NewOrderID returns a fresh ORD-xxxxxxxx identifier
func NewOrderID() string {
	return "ORD-" + strings.ToUpper(strings.ReplaceAll(uuid.New().String(), "-", "")[:8])
}

// FormatOrderNo renders an order number as #YYMM-NNNN
func FormatOrderNo(date time.Time, seq int) string {
	return fmt.Sprintf("#%s-%04d", date.Format("0601"), seq%10000)
}

// FormatSerialNumber renders a cell serial number as SN-YYMM-NNN
func FormatSerialNumber(date time.Time, seq int) string {
	return fmt.Sprintf("SN-%s-%03d", date.Format("0601"), seq%1000)
}

// NewOrder creates a new Order aggregate in the planned state. Serial
// numbers are assigned sequentially across all cells, one per unit.
func NewOrder(
	orderID string,
	orderNo string,
	customer CustomerInfo,
	technical TechnicalInfo,
	cells []Cell,
	priority Priority,
	orderDate time.Time,
	deliveryDate time.Time,
) (*Order, error) {
	if strings.TrimSpace(customer.Name) == "" {
		return nil, ErrMissingCustomerName
	}
	if strings.TrimSpace(customer.DocumentNo) == "" {
		return nil, ErrMissingDocumentNo
	}
	if len(cells) == 0 {
		return nil, ErrNoCells
	}
	if !priority.IsValid() {
		return nil, ErrInvalidPriority
	}

	now := time.Now().UTC()
	if orderDate.IsZero() {
		orderDate = now
	}

	assigned := make([]Cell, 0, len(cells))
	seq := 0
	for _, cell := range cells {
		code := strings.TrimSpace(cell.ProductTypeCode)
		if code == "" || cell.Quantity < 1 || cell.Quantity > MaxCellQuantity {
			return nil, ErrInvalidCell
		}
		serials := make([]string, 0, cell.Quantity)
		for i := 0; i < cell.Quantity; i++ {
			seq++
			serials = append(serials, FormatSerialNumber(orderDate, seq))
		}
		assigned = append(assigned, Cell{ProductTypeCode: code, Quantity: cell.Quantity, SerialNumbers: serials})
	}

	order := &Order{
		ID:            primitive.NewObjectID(),
		OrderID:       orderID,
		OrderNo:       orderNo,
		OrderDate:     orderDate,
		DeliveryDate:  deliveryDate,
		Status:        StatusPlanned,
		Priority:      priority,
		PriorityRank:  priority.Rank(),
		CustomerInfo:  customer,
		TechnicalInfo: technical.WithDefaults(),
		Cells:         assigned,
		CreatedAt:     now,
		UpdatedAt:     now,
		domainEvents:  make([]DomainEvent, 0),
	}

	order.addDomainEvent(NewOrderCreatedEvent(order))

	return order, nil
}

// ChangeStatus moves the order along its lifecycle. A change to canceled
// is routed through Cancel.
func (o *Order) ChangeStatus(next Status, reason string) error {
	if !next.IsValid() {
		return ErrInvalidStatus
	}
	if next == StatusCanceled {
		return o.Cancel(reason)
	}

	switch o.Status {
	case StatusCanceled:
		return ErrOrderCanceled
	case StatusCompleted:
		return ErrOrderCompleted
	}

	if !o.Status.CanTransitionTo(next) {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidStatusTransition, o.Status, next)
	}

	previous := o.Status
	o.recordStatus(next, reason)
	o.addDomainEvent(NewOrderStatusChangedEvent(o, previous, reason))

	return nil
}

// Cancel cancels the order. Canceling a canceled order is a no-op.
func (o *Order) Cancel(reason string) error {
	if o.Status == StatusCanceled {
		return nil
	}
	if o.Status == StatusCompleted {
		return ErrOrderCompleted
	}

	o.recordStatus(StatusCanceled, reason)
	o.addDomainEvent(NewOrderCanceledEvent(o, reason))

	return nil
}

func (o *Order) recordStatus(next Status, reason string) {
	now := time.Now().UTC()
	o.StatusHistory = append(o.StatusHistory, StatusChange{
		From:      o.Status,
		To:        next,
		Reason:    reason,
		ChangedAt: now,
	})
	o.Status = next
	o.UpdatedAt = now
}

// SetEstimatedDelivery records the end of the order's task in the latest plan
func (o *Order) SetEstimatedDelivery(at time.Time) {
	o.EstimatedDelivery = &at
}

// CellType returns the product type code of the first cell
func (o *Order) CellType() string {
	if len(o.Cells) == 0 {
		return ""
	}
	return o.Cells[0].ProductTypeCode
}

// Quantity returns the number of units across all cells
func (o *Order) Quantity() int {
	total := 0
	for _, cell := range o.Cells {
		total += cell.Quantity
	}
	return total
}

// SerialNumbers returns every serial number of the order in cell order
func (o *Order) SerialNumbers() []string {
	var out []string
	for _, cell := range o.Cells {
		out = append(out, cell.SerialNumbers...)
	}
	return out
}

// PlanningOrder returns the view of the order the planning engine consumes
func (o *Order) PlanningOrder() planning.Order {
	return planning.Order{
		ID:       o.OrderID,
		CellType: o.CellType(),
		Quantity: o.Quantity(),
	}
}

// IsLate reports whether an active order is past its requested delivery date
func (o *Order) IsLate(now time.Time) bool {
	return o.Status.IsActive() && !o.DeliveryDate.IsZero() && o.DeliveryDate.Before(now)
}

// LastChange returns the most recent status change, if any
func (o *Order) LastChange() (StatusChange, bool) {
	if len(o.StatusHistory) == 0 {
		return StatusChange{}, false
	}
	return o.StatusHistory[len(o.StatusHistory)-1], true
}

// addDomainEvent adds a domain event to the order
func (o *Order) addDomainEvent(event DomainEvent) {
	o.domainEvents = append(o.domainEvents, event)
}

// DomainEvents returns all pending domain events
func (o *Order) DomainEvents() []DomainEvent {
	return o.domainEvents
}

// ClearDomainEvents clears all pending domain events
func (o *Order) ClearDomainEvents() {
	o.domainEvents = make([]DomainEvent, 0)
}
