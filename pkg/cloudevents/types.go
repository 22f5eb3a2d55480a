package cloudevents

import (
	"encoding/json"
	"fmt"
	"time"
)

// EventType constants for METS domain events
const (
	// Order events
	OrderCreated       = "mets.order.created"
	OrderStatusChanged = "mets.order.status-changed"
	OrderCanceled      = "mets.order.canceled"

	// Planning events
	PlanGenerated      = "mets.planning.plan-generated"
	CapacityOverloaded = "mets.planning.capacity-overloaded"
)

// Source constants for event sources
const (
	SourceOrders   = "/mets/orders"
	SourcePlanning = "/mets/planning"
)

// METSCloudEvent represents a CloudEvents v1.0 compliant event for METS
type METSCloudEvent struct {
	SpecVersion     string    `json:"specversion"`
	Type            string    `json:"type"`
	Source          string    `json:"source"`
	Subject         string    `json:"subject,omitempty"`
	ID              string    `json:"id"`
	Time            time.Time `json:"time"`
	DataContentType string    `json:"datacontenttype"`
	Data            any       `json:"data"`

	// METS extensions
	CorrelationID string `json:"metscorrelationid,omitempty"`
	WorkflowID    string `json:"metsworkflowid,omitempty"`
	OrderID       string `json:"metsorderid,omitempty"`
	PlanID        string `json:"metsplanid,omitempty"`

	// W3C trace context
	TraceParent string `json:"traceparent,omitempty"`
	TraceState  string `json:"tracestate,omitempty"`
}

// DecodeData decodes the event payload into out. Events read back from
// Kafka or the outbox carry Data as a generic map, so the payload is
// re-encoded before decoding.
func (e *METSCloudEvent) DecodeData(out any) error {
	raw, err := json.Marshal(e.Data)
	if err != nil {
		return fmt.Errorf("failed to encode event data: %w", err)
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("failed to decode %s data: %w", e.Type, err)
	}
	return nil
}

// OrderCreatedData is the payload of mets.order.created
type OrderCreatedData struct {
	OrderID      string    `json:"orderId"`
	OrderNo      string    `json:"orderNo"`
	CustomerName string    `json:"customerName"`
	CellType     string    `json:"cellType"`
	Quantity     int       `json:"quantity"`
	Priority     string    `json:"priority"`
	OrderDate    time.Time `json:"orderDate"`
	DeliveryDate time.Time `json:"deliveryDate"`
}

// OrderStatusChangedData is the payload of mets.order.status-changed
type OrderStatusChangedData struct {
	OrderID        string    `json:"orderId"`
	OrderNo        string    `json:"orderNo"`
	PreviousStatus string    `json:"previousStatus"`
	NewStatus      string    `json:"newStatus"`
	Reason         string    `json:"reason,omitempty"`
	ChangedAt      time.Time `json:"changedAt"`
}

// OrderCanceledData is the payload of mets.order.canceled
type OrderCanceledData struct {
	OrderID    string    `json:"orderId"`
	OrderNo    string    `json:"orderNo"`
	Reason     string    `json:"reason"`
	CanceledAt time.Time `json:"canceledAt"`
}

// PlanGeneratedData is the payload of mets.planning.plan-generated
type PlanGeneratedData struct {
	PlanID          string    `json:"planId"`
	OrderCount      int       `json:"orderCount"`
	TaskCount       int       `json:"taskCount"`
	StartOfDay      time.Time `json:"startOfDay"`
	GeneratedAt     time.Time `json:"generatedAt"`
	Mode            string    `json:"mode"`
	WeekendPolicy   string    `json:"weekendPolicy"`
	OverloadedUnits []string  `json:"overloadedUnits"`
}

// CapacityOverloadedData is the payload of mets.planning.capacity-overloaded
type CapacityOverloadedData struct {
	PlanID      string    `json:"planId"`
	UnitID      string    `json:"unitId"`
	UnitName    string    `json:"unitName"`
	Capacity    float64   `json:"capacity"`
	LoadHours   float64   `json:"loadHours"`
	Utilization float64   `json:"utilization"`
	WindowStart time.Time `json:"windowStart"`
	WindowEnd   time.Time `json:"windowEnd"`
}
