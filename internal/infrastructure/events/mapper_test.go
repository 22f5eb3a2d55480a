package events

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	metsapi "github.com/mets-platform/mets/api"
	"github.com/mets-platform/mets/internal/domain"
	"github.com/mets-platform/mets/internal/planning"
	"github.com/mets-platform/mets/pkg/cloudevents"
	"github.com/mets-platform/mets/pkg/contracts/asyncapi"
	"github.com/mets-platform/mets/pkg/kafka"
)

func newOrder(t *testing.T) *domain.Order {
	t.Helper()
	order, err := domain.NewOrder(
		"ORD-TEST0001",
		"#0125-0100",
		domain.CustomerInfo{Name: "BEDAŞ", DocumentNo: "PO-2025-B100"},
		domain.TechnicalInfo{},
		[]domain.Cell{{ProductTypeCode: "RM 36 CB", Quantity: 2}},
		domain.PriorityHigh,
		time.Date(2025, time.January, 6, 0, 0, 0, 0, time.UTC),
		time.Date(2025, time.March, 14, 0, 0, 0, 0, time.UTC),
	)
	require.NoError(t, err)
	return order
}

func overloadedPlan() *planning.Plan {
	start := time.Date(2025, time.January, 6, 8, 0, 0, 0, time.UTC)
	return &planning.Plan{
		Schedule: []planning.ScheduledTask{},
		CapacityLoad: planning.CapacityLoad{
			WindowStart: start,
			WindowEnd:   start.AddDate(0, 0, 7),
			Units: []planning.UnitLoad{
				{UnitID: "kablaj", Name: "Kablaj", Capacity: 10, LoadHours: 25, Utilization: 2.5, Overloaded: true},
				{UnitID: "test", Name: "Test", Capacity: 160},
			},
		},
		DeliveryEstimates: map[string]time.Time{},
		StartOfDay:        start,
		GeneratedAt:       start,
		Mode:              planning.ModeSingleTrack,
		WeekendPolicy:     planning.WeekendDiscard,
	}
}

func TestMapperPayloadsMatchAsyncAPI(t *testing.T) {
	ctx := context.Background()
	validator, err := asyncapi.NewEventValidatorFromBytes(metsapi.AsyncAPI)
	require.NoError(t, err)

	order := newOrder(t)
	require.NoError(t, order.ChangeStatus(domain.StatusInProgress, "malzeme geldi"))
	require.NoError(t, order.Cancel(""))
	snapshot := domain.NewPlanSnapshot(overloadedPlan(), 1, domain.TriggerOrderChange)

	mapper := NewMapper()
	pending := append(order.DomainEvents(), snapshot.DomainEvents()...)
	require.Len(t, pending, 5)

	seen := make(map[string]string)
	for _, event := range pending {
		ce, topic, ok := mapper.ToCloudEvent(ctx, event)
		require.True(t, ok, "event %s not mapped", event.EventType())
		assert.NoError(t, validator.ValidateEvent(ce), "event %s", ce.Type)
		seen[ce.Type] = topic
	}

	assert.Equal(t, map[string]string{
		cloudevents.OrderCreated:       kafka.Topics.OrdersEvents,
		cloudevents.OrderStatusChanged: kafka.Topics.OrdersEvents,
		cloudevents.OrderCanceled:      kafka.Topics.OrdersEvents,
		cloudevents.PlanGenerated:      kafka.Topics.PlanningEvents,
		cloudevents.CapacityOverloaded: kafka.Topics.PlanningEvents,
	}, seen)
}

func TestToOutboxEvents(t *testing.T) {
	order := newOrder(t)

	records, err := NewMapper().ToOutboxEvents(context.Background(), order.OrderID, AggregateOrder, order.DomainEvents())
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, order.OrderID, records[0].AggregateID)
	assert.Equal(t, AggregateOrder, records[0].AggregateType)
	assert.Equal(t, kafka.Topics.OrdersEvents, records[0].Topic)
	assert.Equal(t, cloudevents.OrderCreated, records[0].EventType)
}
