package memory

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mets-platform/mets/internal/domain"
	"github.com/mets-platform/mets/internal/planning"
	"github.com/mets-platform/mets/pkg/cloudevents"
	"github.com/mets-platform/mets/pkg/logging"
)

func newOrder(t *testing.T, id, no, customer, cellType string, orderDate time.Time, priority domain.Priority) *domain.Order {
	t.Helper()
	o, err := domain.NewOrder(id, no,
		domain.CustomerInfo{Name: customer, DocumentNo: "PO-" + id},
		domain.TechnicalInfo{},
		[]domain.Cell{{ProductTypeCode: cellType, Quantity: 1}},
		priority, orderDate, orderDate.AddDate(0, 2, 0))
	require.NoError(t, err)
	return o
}

func seededStore(t *testing.T) *Store {
	t.Helper()
	ctx := context.Background()
	store := NewStore()
	base := time.Date(2024, time.April, 1, 9, 0, 0, 0, time.UTC)
	orders := []*domain.Order{
		newOrder(t, "ORD-1", "#0424-1251", "AYEDAŞ", "RM 36 CB", base, domain.PriorityHigh),
		newOrder(t, "ORD-2", "#0424-1245", "BEDAŞ", "RM 36 LB", base.AddDate(0, 0, 4), domain.PriorityMedium),
		newOrder(t, "ORD-3", "#0424-1239", "TOROSLAR EDAŞ", "RM 36 FL", base.AddDate(0, 0, 7), domain.PriorityLow),
		newOrder(t, "ORD-4", "#0524-1300", "BEDAŞ", "RM 36 CB", base.AddDate(0, 1, 0), domain.PriorityLow),
	}
	for _, o := range orders {
		require.NoError(t, store.Orders.Save(ctx, o))
	}
	return store
}

func TestOrderSaveMovesEventsToOutbox(t *testing.T) {
	store := NewStore()
	o := newOrder(t, "ORD-1", "#0424-1251", "AYEDAŞ", "RM 36 CB", time.Now(), domain.PriorityHigh)

	require.NoError(t, store.Orders.Save(context.Background(), o))

	assert.Empty(t, o.DomainEvents())
	events, err := store.Outbox.FindByAggregateID(context.Background(), "ORD-1")
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, cloudevents.OrderCreated, events[0].EventType)
	assert.Equal(t, "mets.orders.events", events[0].Topic)

	ce, err := events[0].ToCloudEvent()
	require.NoError(t, err)
	var data cloudevents.OrderCreatedData
	require.NoError(t, ce.DecodeData(&data))
	assert.Equal(t, "#0424-1251", data.OrderNo)
	assert.Equal(t, "RM 36 CB", data.CellType)
}

func TestOrderRepositoryReturnsCopies(t *testing.T) {
	store := seededStore(t)
	ctx := context.Background()

	o, err := store.Orders.FindByID(ctx, "ORD-1")
	require.NoError(t, err)
	o.CustomerInfo.Name = "changed"
	o.Cells[0].SerialNumbers[0] = "changed"

	again, err := store.Orders.FindByID(ctx, "ORD-1")
	require.NoError(t, err)
	assert.Equal(t, "AYEDAŞ", again.CustomerInfo.Name)
	assert.NotEqual(t, "changed", again.Cells[0].SerialNumbers[0])

	missing, err := store.Orders.FindByID(ctx, "ORD-404")
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestOrderRepositoryFindAll(t *testing.T) {
	store := seededStore(t)
	ctx := context.Background()

	t.Run("default sort is newest first", func(t *testing.T) {
		orders, err := store.Orders.FindAll(ctx, domain.OrderFilter{}, domain.DefaultOrderSort(), domain.DefaultPagination())
		require.NoError(t, err)
		require.Len(t, orders, 4)
		assert.Equal(t, "ORD-4", orders[0].OrderID)
		assert.Equal(t, "ORD-1", orders[3].OrderID)
	})

	t.Run("filters by customer search", func(t *testing.T) {
		search := "bedaş"
		filter := domain.OrderFilter{Search: &search}
		orders, err := store.Orders.FindAll(ctx, filter, domain.DefaultOrderSort(), domain.DefaultPagination())
		require.NoError(t, err)
		assert.Len(t, orders, 2)

		total, err := store.Orders.Count(ctx, filter)
		require.NoError(t, err)
		assert.Equal(t, int64(2), total)
	})

	t.Run("priority sorts by rank", func(t *testing.T) {
		orders, err := store.Orders.FindAll(ctx, domain.OrderFilter{},
			domain.OrderSort{Field: domain.SortByPriority}, domain.Pagination{})
		require.NoError(t, err)
		require.Len(t, orders, 4)
		assert.Equal(t, domain.PriorityHigh, orders[0].Priority)
		assert.Equal(t, domain.PriorityMedium, orders[1].Priority)
		// equal ranks fall back to FIFO
		assert.Equal(t, "ORD-3", orders[2].OrderID)
		assert.Equal(t, "ORD-4", orders[3].OrderID)
	})

	t.Run("paginates", func(t *testing.T) {
		page2, err := store.Orders.FindAll(ctx, domain.OrderFilter{},
			domain.OrderSort{Field: domain.SortByOrderDate}, domain.Pagination{Page: 2, PageSize: 3})
		require.NoError(t, err)
		require.Len(t, page2, 1)
		assert.Equal(t, "ORD-4", page2[0].OrderID)

		beyond, err := store.Orders.FindAll(ctx, domain.OrderFilter{},
			domain.DefaultOrderSort(), domain.Pagination{Page: 5, PageSize: 3})
		require.NoError(t, err)
		assert.Empty(t, beyond)
	})
}

func TestOrderRepositoryActiveAndCounts(t *testing.T) {
	store := seededStore(t)
	ctx := context.Background()

	o, err := store.Orders.FindByID(ctx, "ORD-2")
	require.NoError(t, err)
	require.NoError(t, o.ChangeStatus(domain.StatusInProgress, ""))
	require.NoError(t, o.ChangeStatus(domain.StatusCompleted, ""))
	require.NoError(t, store.Orders.Save(ctx, o))

	active, err := store.Orders.FindActive(ctx)
	require.NoError(t, err)
	ids := make([]string, 0, len(active))
	for _, a := range active {
		ids = append(ids, a.OrderID)
	}
	assert.Equal(t, []string{"ORD-1", "ORD-3", "ORD-4"}, ids)

	counts, err := store.Orders.CountByStatus(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(3), counts[domain.StatusPlanned])
	assert.Equal(t, int64(1), counts[domain.StatusCompleted])

	recent, err := store.Orders.FindRecentlyUpdated(ctx, 1)
	require.NoError(t, err)
	require.Len(t, recent, 1)
	assert.Equal(t, "ORD-2", recent[0].OrderID)

	customers, err := store.Orders.DistinctCustomers(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"AYEDAŞ", "BEDAŞ", "TOROSLAR EDAŞ"}, customers)

	cellTypes, err := store.Orders.DistinctCellTypes(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"RM 36 CB", "RM 36 FL", "RM 36 LB"}, cellTypes)

	exists, err := store.Orders.ExistsByOrderNo(ctx, "#0424-1239")
	require.NoError(t, err)
	assert.True(t, exists)
}

func TestUpdateEstimatedDeliveries(t *testing.T) {
	store := seededStore(t)
	ctx := context.Background()
	at := time.Date(2024, time.May, 2, 18, 0, 0, 0, time.UTC)

	require.NoError(t, store.Orders.UpdateEstimatedDeliveries(ctx, map[string]time.Time{
		"ORD-3":   at,
		"ORD-404": at,
	}))

	o, err := store.Orders.FindByID(ctx, "ORD-3")
	require.NoError(t, err)
	require.NotNil(t, o.EstimatedDelivery)
	assert.True(t, at.Equal(*o.EstimatedDelivery))
}

func TestProductionUnitRepositoryKeepsOrder(t *testing.T) {
	repo := NewProductionUnitRepository()
	ctx := context.Background()
	for _, u := range planning.DefaultProductionUnits() {
		require.NoError(t, repo.Save(ctx, domain.ProductionUnitFromPlanning(u)))
	}

	updated, err := domain.NewProductionUnit("kablaj", "Kablaj", 400)
	require.NoError(t, err)
	require.NoError(t, repo.Save(ctx, updated))

	units, err := repo.FindAll(ctx)
	require.NoError(t, err)
	require.Len(t, units, 8)
	assert.Equal(t, "kablaj", units[5].UnitID)
	assert.Equal(t, 400.0, units[5].Capacity)

	found, err := repo.FindByID(ctx, "test")
	require.NoError(t, err)
	require.NotNil(t, found)
	assert.Equal(t, "Test", found.Name)
}

func TestPlanRepositoryLatest(t *testing.T) {
	store := NewStore()
	ctx := context.Background()

	latest, err := store.Plans.FindLatest(ctx)
	require.NoError(t, err)
	assert.Nil(t, latest)

	plan := &planning.Plan{
		CapacityLoad: planning.CapacityLoad{Units: []planning.UnitLoad{
			{UnitID: "kablaj", Name: "Kablaj", Capacity: 10, LoadHours: 12, Utilization: 1.2, Overloaded: true},
		}},
	}
	first := domain.NewPlanSnapshot(plan, 1, domain.TriggerManual)
	second := domain.NewPlanSnapshot(plan, 2, domain.TriggerOrderChange)
	require.NoError(t, store.Plans.Save(ctx, first))
	require.NoError(t, store.Plans.Save(ctx, second))

	latest, err = store.Plans.FindLatest(ctx)
	require.NoError(t, err)
	require.NotNil(t, latest)
	assert.Equal(t, second.PlanID, latest.PlanID)

	events, err := store.Outbox.FindByAggregateID(ctx, second.PlanID)
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, cloudevents.PlanGenerated, events[0].EventType)
	assert.Equal(t, cloudevents.CapacityOverloaded, events[1].EventType)
	assert.Equal(t, "mets.planning.events", events[1].Topic)
}

func TestParametersRepository(t *testing.T) {
	repo := NewParametersRepository()
	ctx := context.Background()

	got, err := repo.Get(ctx)
	require.NoError(t, err)
	assert.Nil(t, got)

	params := planning.DefaultParameters()
	params.Units = planning.DefaultProductionUnits()
	require.NoError(t, repo.Save(ctx, params))
	params.DurationTable["rm 36 cb"] = 99

	got, err = repo.Get(ctx)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, 10.0, got.DurationTable["rm 36 cb"])
	assert.Empty(t, got.Units)
}

func TestOutboxLifecycle(t *testing.T) {
	store := seededStore(t)
	ctx := context.Background()

	pending, err := store.Outbox.FindUnpublished(ctx, 10)
	require.NoError(t, err)
	require.Len(t, pending, 4)

	require.NoError(t, store.Outbox.MarkPublished(ctx, pending[0].ID))
	require.NoError(t, store.Outbox.IncrementRetry(ctx, pending[1].ID, "broker down"))
	assert.Error(t, store.Outbox.MarkPublished(ctx, "missing"))

	pending, err = store.Outbox.FindUnpublished(ctx, 10)
	require.NoError(t, err)
	assert.Len(t, pending, 3)
	assert.Equal(t, 1, pending[0].RetryCount)

	deleted, err := store.Outbox.DeletePublished(ctx, -time.Minute)
	require.NoError(t, err)
	assert.Equal(t, int64(1), deleted)
	assert.Equal(t, 3, store.Outbox.Len())
}

func TestEventSinkKeepsLatest(t *testing.T) {
	sink := NewEventSink(2, logging.NewNop())
	factory := cloudevents.NewEventFactory(cloudevents.SourceOrders)
	ctx := context.Background()

	for _, id := range []string{"ORD-1", "ORD-2", "ORD-3"} {
		ce := factory.CreateOrderCanceledEvent(ctx, cloudevents.OrderCanceledData{OrderID: id})
		require.NoError(t, sink.PublishEvent(ctx, "mets.orders.events", ce))
	}

	entries := sink.Events()
	require.Len(t, entries, 2)
	assert.Equal(t, "ORD-2", entries[0].Event.OrderID)
	assert.Equal(t, "ORD-3", entries[1].Event.OrderID)
	assert.NoError(t, sink.Close())
}
