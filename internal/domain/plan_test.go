package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mets-platform/mets/internal/planning"
)

func testPlan() *planning.Plan {
	start := time.Date(2025, time.January, 6, 8, 0, 0, 0, time.UTC)
	return &planning.Plan{
		Schedule: []planning.ScheduledTask{
			{ID: "task-A", OrderID: "A", ResourceID: "genel_montaj", Start: start, End: start.Add(200 * time.Hour)},
		},
		CapacityLoad: planning.CapacityLoad{
			WindowStart: start,
			WindowEnd:   start.AddDate(0, 0, 7),
			Units: []planning.UnitLoad{
				{UnitID: "genel_montaj", Name: "Genel Montaj", Capacity: 100, LoadHours: 200, Utilization: 2, Overloaded: true},
				{UnitID: "test", Name: "Test", Capacity: 160},
			},
		},
		DeliveryEstimates: map[string]time.Time{"A": start.Add(200 * time.Hour)},
		StartOfDay:        start,
		GeneratedAt:       start,
		Mode:              planning.ModeSingleTrack,
		WeekendPolicy:     planning.WeekendDiscard,
	}
}

func TestNewPlanSnapshotRecordsEvents(t *testing.T) {
	snapshot := NewPlanSnapshot(testPlan(), 1, "")

	assert.Regexp(t, `^PLN-[0-9A-F]{8}$`, snapshot.PlanID)
	assert.Equal(t, TriggerManual, snapshot.Trigger)
	assert.Equal(t, []string{"genel_montaj"}, snapshot.OverloadedUnits)
	assert.True(t, snapshot.HasOverload())

	events := snapshot.DomainEvents()
	require.Len(t, events, 2)

	generated, ok := events[0].(*PlanGeneratedEvent)
	require.True(t, ok)
	assert.Equal(t, 1, generated.TaskCount)
	assert.Equal(t, snapshot.PlanID, generated.AggregateID())

	overloaded, ok := events[1].(*CapacityOverloadedEvent)
	require.True(t, ok)
	assert.Equal(t, "genel_montaj", overloaded.Unit.UnitID)

	snapshot.ClearDomainEvents()
	assert.Empty(t, snapshot.DomainEvents())
}

func TestPlanSnapshotLookups(t *testing.T) {
	snapshot := NewPlanSnapshot(testPlan(), 1, TriggerOrderChange)

	at, ok := snapshot.DeliveryEstimate("A")
	require.True(t, ok)
	assert.Equal(t, snapshot.Plan.Schedule[0].End, at)

	_, ok = snapshot.DeliveryEstimate("B")
	assert.False(t, ok)

	task, ok := snapshot.Task("A")
	require.True(t, ok)
	assert.Equal(t, "genel_montaj", task.ResourceID)
}

func TestTechnicalDocumentScore(t *testing.T) {
	doc := &TechnicalDocument{
		Title:    "Akım Trafosu Seçim Kılavuzu",
		Version:  "Rev.1.3",
		Keywords: []string{"akım trafo", "ct", "toroidal"},
	}

	assert.Equal(t, 2, doc.Score("rm 36 cb akım trafosu toroidal mi?"))
	assert.Equal(t, 0, doc.Score("bara kesiti nedir"))
	assert.Equal(t, "Akım Trafosu Seçim Kılavuzu Rev.1.3", doc.Reference())
}

func TestNewProductionUnit(t *testing.T) {
	unit, err := NewProductionUnit("kablaj", " Kablaj ", 320)
	require.NoError(t, err)
	assert.Equal(t, "Kablaj", unit.Name)
	assert.Equal(t, planning.ProductionUnit{ID: "kablaj", Name: "Kablaj", Capacity: 320}, unit.ToPlanning())

	_, err = NewProductionUnit("kablaj", "", 320)
	assert.ErrorIs(t, err, ErrInvalidUnitName)

	_, err = NewProductionUnit("kablaj", "Kablaj", -1)
	assert.ErrorIs(t, err, ErrInvalidCapacity)
}
