package domain

import (
	"time"

	"github.com/google/uuid"

	"github.com/mets-platform/mets/internal/planning"
)

// Event type names, matching the CloudEvents published for them
const (
	EventOrderCreated       = "mets.order.created"
	EventOrderStatusChanged = "mets.order.status-changed"
	EventOrderCanceled      = "mets.order.canceled"
	EventPlanGenerated      = "mets.planning.plan-generated"
	EventCapacityOverloaded = "mets.planning.capacity-overloaded"
)

// DomainEvent represents a domain event
type DomainEvent interface {
	EventType() string
	OccurredAt() time.Time
	AggregateID() string
}

// BaseDomainEvent contains common event fields
type BaseDomainEvent struct {
	ID          string    `json:"id"`
	Type        string    `json:"type"`
	AggregateId string    `json:"aggregateId"`
	Timestamp   time.Time `json:"timestamp"`
}

func (e BaseDomainEvent) EventType() string     { return e.Type }
func (e BaseDomainEvent) OccurredAt() time.Time { return e.Timestamp }
func (e BaseDomainEvent) AggregateID() string   { return e.AggregateId }

func newBaseEvent(eventType, aggregateID string) BaseDomainEvent {
	return BaseDomainEvent{
		ID:          uuid.New().String(),
		Type:        eventType,
		AggregateId: aggregateID,
		Timestamp:   time.Now().UTC(),
	}
}

// OrderCreatedEvent is raised when a new order is created
type OrderCreatedEvent struct {
	BaseDomainEvent
	OrderID      string    `json:"orderId"`
	OrderNo      string    `json:"orderNo"`
	CustomerName string    `json:"customerName"`
	CellType     string    `json:"cellType"`
	Quantity     int       `json:"quantity"`
	Priority     Priority  `json:"priority"`
	OrderDate    time.Time `json:"orderDate"`
	DeliveryDate time.Time `json:"deliveryDate"`
}

// NewOrderCreatedEvent creates a new OrderCreatedEvent
func NewOrderCreatedEvent(order *Order) *OrderCreatedEvent {
	return &OrderCreatedEvent{
		BaseDomainEvent: newBaseEvent(EventOrderCreated, order.OrderID),
		OrderID:         order.OrderID,
		OrderNo:         order.OrderNo,
		CustomerName:    order.CustomerInfo.Name,
		CellType:        order.CellType(),
		Quantity:        order.Quantity(),
		Priority:        order.Priority,
		OrderDate:       order.OrderDate,
		DeliveryDate:    order.DeliveryDate,
	}
}

// OrderStatusChangedEvent is raised when an order moves along its lifecycle
type OrderStatusChangedEvent struct {
	BaseDomainEvent
	OrderID        string `json:"orderId"`
	OrderNo        string `json:"orderNo"`
	PreviousStatus Status `json:"previousStatus"`
	NewStatus      Status `json:"newStatus"`
	Reason         string `json:"reason,omitempty"`
}

// NewOrderStatusChangedEvent creates a new OrderStatusChangedEvent
func NewOrderStatusChangedEvent(order *Order, previous Status, reason string) *OrderStatusChangedEvent {
	return &OrderStatusChangedEvent{
		BaseDomainEvent: newBaseEvent(EventOrderStatusChanged, order.OrderID),
		OrderID:         order.OrderID,
		OrderNo:         order.OrderNo,
		PreviousStatus:  previous,
		NewStatus:       order.Status,
		Reason:          reason,
	}
}

// OrderCanceledEvent is raised when an order is canceled
type OrderCanceledEvent struct {
	BaseDomainEvent
	OrderID string `json:"orderId"`
	OrderNo string `json:"orderNo"`
	Reason  string `json:"reason"`
}

// NewOrderCanceledEvent creates a new OrderCanceledEvent
func NewOrderCanceledEvent(order *Order, reason string) *OrderCanceledEvent {
	return &OrderCanceledEvent{
		BaseDomainEvent: newBaseEvent(EventOrderCanceled, order.OrderID),
		OrderID:         order.OrderID,
		OrderNo:         order.OrderNo,
		Reason:          reason,
	}
}

// PlanGeneratedEvent is raised when a plan snapshot is created
type PlanGeneratedEvent struct {
	BaseDomainEvent
	PlanID          string                 `json:"planId"`
	OrderCount      int                    `json:"orderCount"`
	TaskCount       int                    `json:"taskCount"`
	StartOfDay      time.Time              `json:"startOfDay"`
	GeneratedAt     time.Time              `json:"generatedAt"`
	Mode            planning.Mode          `json:"mode"`
	WeekendPolicy   planning.WeekendPolicy `json:"weekendPolicy"`
	OverloadedUnits []string               `json:"overloadedUnits"`
}

// NewPlanGeneratedEvent creates a new PlanGeneratedEvent
func NewPlanGeneratedEvent(snapshot *PlanSnapshot) *PlanGeneratedEvent {
	return &PlanGeneratedEvent{
		BaseDomainEvent: newBaseEvent(EventPlanGenerated, snapshot.PlanID),
		PlanID:          snapshot.PlanID,
		OrderCount:      snapshot.OrderCount,
		TaskCount:       len(snapshot.Plan.Schedule),
		StartOfDay:      snapshot.Plan.StartOfDay,
		GeneratedAt:     snapshot.Plan.GeneratedAt,
		Mode:            snapshot.Plan.Mode,
		WeekendPolicy:   snapshot.Plan.WeekendPolicy,
		OverloadedUnits: snapshot.OverloadedUnits,
	}
}

// CapacityOverloadedEvent is raised for every unit booked beyond its capacity
type CapacityOverloadedEvent struct {
	BaseDomainEvent
	PlanID      string            `json:"planId"`
	Unit        planning.UnitLoad `json:"unit"`
	WindowStart time.Time         `json:"windowStart"`
	WindowEnd   time.Time         `json:"windowEnd"`
}

// NewCapacityOverloadedEvent creates a new CapacityOverloadedEvent
func NewCapacityOverloadedEvent(snapshot *PlanSnapshot, unit planning.UnitLoad) *CapacityOverloadedEvent {
	return &CapacityOverloadedEvent{
		BaseDomainEvent: newBaseEvent(EventCapacityOverloaded, snapshot.PlanID),
		PlanID:          snapshot.PlanID,
		Unit:            unit,
		WindowStart:     snapshot.Plan.CapacityLoad.WindowStart,
		WindowEnd:       snapshot.Plan.CapacityLoad.WindowEnd,
	}
}
