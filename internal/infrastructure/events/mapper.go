// Package events turns domain events into CloudEvents and outbox records.
// Both repository implementations write through it so the demo and the
// MongoDB deployments publish identical payloads.
package events

import (
	"context"
	"fmt"

	"github.com/mets-platform/mets/internal/domain"
	"github.com/mets-platform/mets/pkg/cloudevents"
	"github.com/mets-platform/mets/pkg/kafka"
	"github.com/mets-platform/mets/pkg/outbox"
)

// Aggregate types stored on outbox records
const (
	AggregateOrder = "Order"
	AggregatePlan  = "Plan"
)

// Mapper converts domain events into CloudEvents
type Mapper struct {
	orders   *cloudevents.EventFactory
	planning *cloudevents.EventFactory
}

// NewMapper creates a mapper with one event factory per source
func NewMapper() *Mapper {
	return &Mapper{
		orders:   cloudevents.NewEventFactory(cloudevents.SourceOrders),
		planning: cloudevents.NewEventFactory(cloudevents.SourcePlanning),
	}
}

// ToCloudEvent converts one domain event. ok is false for event types
// that are not published.
func (m *Mapper) ToCloudEvent(ctx context.Context, event domain.DomainEvent) (ce *cloudevents.METSCloudEvent, topic string, ok bool) {
	switch e := event.(type) {
	case *domain.OrderCreatedEvent:
		return m.orders.CreateOrderCreatedEvent(ctx, cloudevents.OrderCreatedData{
			OrderID:      e.OrderID,
			OrderNo:      e.OrderNo,
			CustomerName: e.CustomerName,
			CellType:     e.CellType,
			Quantity:     e.Quantity,
			Priority:     string(e.Priority),
			OrderDate:    e.OrderDate,
			DeliveryDate: e.DeliveryDate,
		}), kafka.Topics.OrdersEvents, true
	case *domain.OrderStatusChangedEvent:
		return m.orders.CreateOrderStatusChangedEvent(ctx, cloudevents.OrderStatusChangedData{
			OrderID:        e.OrderID,
			OrderNo:        e.OrderNo,
			PreviousStatus: string(e.PreviousStatus),
			NewStatus:      string(e.NewStatus),
			Reason:         e.Reason,
			ChangedAt:      e.OccurredAt(),
		}), kafka.Topics.OrdersEvents, true
	case *domain.OrderCanceledEvent:
		return m.orders.CreateOrderCanceledEvent(ctx, cloudevents.OrderCanceledData{
			OrderID:    e.OrderID,
			OrderNo:    e.OrderNo,
			Reason:     e.Reason,
			CanceledAt: e.OccurredAt(),
		}), kafka.Topics.OrdersEvents, true
	case *domain.PlanGeneratedEvent:
		return m.planning.CreatePlanGeneratedEvent(ctx, cloudevents.PlanGeneratedData{
			PlanID:          e.PlanID,
			OrderCount:      e.OrderCount,
			TaskCount:       e.TaskCount,
			StartOfDay:      e.StartOfDay,
			GeneratedAt:     e.GeneratedAt,
			Mode:            string(e.Mode),
			WeekendPolicy:   string(e.WeekendPolicy),
			OverloadedUnits: e.OverloadedUnits,
		}), kafka.Topics.PlanningEvents, true
	case *domain.CapacityOverloadedEvent:
		return m.planning.CreateCapacityOverloadedEvent(ctx, cloudevents.CapacityOverloadedData{
			PlanID:      e.PlanID,
			UnitID:      e.Unit.UnitID,
			UnitName:    e.Unit.Name,
			Capacity:    e.Unit.Capacity,
			LoadHours:   e.Unit.LoadHours,
			Utilization: e.Unit.Utilization,
			WindowStart: e.WindowStart,
			WindowEnd:   e.WindowEnd,
		}), kafka.Topics.PlanningEvents, true
	default:
		return nil, "", false
	}
}

// ToOutboxEvents converts the pending events of one aggregate
func (m *Mapper) ToOutboxEvents(ctx context.Context, aggregateID, aggregateType string, pending []domain.DomainEvent) ([]*outbox.OutboxEvent, error) {
	out := make([]*outbox.OutboxEvent, 0, len(pending))
	for _, event := range pending {
		ce, topic, ok := m.ToCloudEvent(ctx, event)
		if !ok {
			continue
		}

		outboxEvent, err := outbox.NewOutboxEventFromCloudEvent(aggregateID, aggregateType, topic, ce)
		if err != nil {
			return nil, fmt.Errorf("failed to create outbox event: %w", err)
		}
		out = append(out, outboxEvent)
	}
	return out, nil
}
