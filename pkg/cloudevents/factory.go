package cloudevents

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/propagation"
)

// EventFactory creates CloudEvents for METS domain events
type EventFactory struct {
	source string
	now    func() time.Time
}

// NewEventFactory creates a new EventFactory for a specific source
func NewEventFactory(source string) *EventFactory {
	return &EventFactory{
		source: source,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// Source returns the source the factory stamps on events
func (f *EventFactory) Source() string {
	return f.source
}

// CreateEvent creates a new METSCloudEvent. Correlation id and trace
// context are copied from ctx when present.
func (f *EventFactory) CreateEvent(ctx context.Context, eventType, subject string, data any) *METSCloudEvent {
	event := &METSCloudEvent{
		SpecVersion:     "1.0",
		Type:            eventType,
		Source:          f.source,
		Subject:         subject,
		ID:              uuid.New().String(),
		Time:            f.now(),
		DataContentType: "application/json",
		Data:            data,
		CorrelationID:   CorrelationIDFromContext(ctx),
	}

	carrier := propagation.MapCarrier{}
	propagation.TraceContext{}.Inject(ctx, carrier)
	event.TraceParent = carrier.Get("traceparent")
	event.TraceState = carrier.Get("tracestate")

	return event
}

// CreateOrderCreatedEvent creates a mets.order.created event
func (f *EventFactory) CreateOrderCreatedEvent(ctx context.Context, data OrderCreatedData) *METSCloudEvent {
	event := f.CreateEvent(ctx, OrderCreated, "order/"+data.OrderID, data)
	event.OrderID = data.OrderID
	return event
}

// CreateOrderStatusChangedEvent creates a mets.order.status-changed event
func (f *EventFactory) CreateOrderStatusChangedEvent(ctx context.Context, data OrderStatusChangedData) *METSCloudEvent {
	event := f.CreateEvent(ctx, OrderStatusChanged, "order/"+data.OrderID, data)
	event.OrderID = data.OrderID
	return event
}

// CreateOrderCanceledEvent creates a mets.order.canceled event
func (f *EventFactory) CreateOrderCanceledEvent(ctx context.Context, data OrderCanceledData) *METSCloudEvent {
	event := f.CreateEvent(ctx, OrderCanceled, "order/"+data.OrderID, data)
	event.OrderID = data.OrderID
	return event
}

// CreatePlanGeneratedEvent creates a mets.planning.plan-generated event
func (f *EventFactory) CreatePlanGeneratedEvent(ctx context.Context, data PlanGeneratedData) *METSCloudEvent {
	if data.OverloadedUnits == nil {
		data.OverloadedUnits = []string{}
	}
	event := f.CreateEvent(ctx, PlanGenerated, "plan/"+data.PlanID, data)
	event.PlanID = data.PlanID
	return event
}

// CreateCapacityOverloadedEvent creates a mets.planning.capacity-overloaded event
func (f *EventFactory) CreateCapacityOverloadedEvent(ctx context.Context, data CapacityOverloadedData) *METSCloudEvent {
	event := f.CreateEvent(ctx, CapacityOverloaded, "unit/"+data.UnitID, data)
	event.PlanID = data.PlanID
	return event
}
