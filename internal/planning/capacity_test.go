package planning

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCapacityAggregator_Completeness(t *testing.T) {
	units := DefaultProductionUnits()
	aggregator, err := NewCapacityAggregator(units, UnitGeneralAssembly, 7)
	require.NoError(t, err)

	load := aggregator.Aggregate(nil, at(monday, 8))

	require.Len(t, load.Units, len(units))
	for i, u := range units {
		assert.Equal(t, u.ID, load.Units[i].UnitID)
		assert.Equal(t, u.Name, load.Units[i].Name)
		assert.Equal(t, u.Capacity, load.Units[i].Capacity)
		assert.Zero(t, load.Units[i].LoadHours)
		assert.False(t, load.Units[i].Overloaded)
	}
	assert.Equal(t, at(monday, 8), load.WindowStart)
	assert.Equal(t, at(monday, 8).Add(7*24*time.Hour), load.WindowEnd)
}

func TestCapacityAggregator_OverlapCountsFullDuration(t *testing.T) {
	aggregator, err := NewCapacityAggregator(DefaultProductionUnits(), UnitGeneralAssembly, 7)
	require.NoError(t, err)
	now := at(monday, 8)

	tasks := []ScheduledTask{
		// Fully inside
		{OrderID: "in", ResourceID: UnitElectricalDesign, Start: at(monday, 8), End: at(monday, 18)},
		// Started before the window, still running
		{OrderID: "before", ResourceID: UnitElectricalDesign, Start: at(monday, -4), End: at(monday, 10)},
		// Runs past the window end
		{OrderID: "after", ResourceID: UnitMechanicalDesign, Start: at(monday, 8+7*24-2), End: at(monday, 8+7*24+10)},
		// Ends exactly at now: half-open window excludes it
		{OrderID: "ended", ResourceID: "kablaj", Start: at(monday, 0), End: at(monday, 8)},
		// Starts exactly at window end: excluded
		{OrderID: "later", ResourceID: "kablaj", Start: at(monday, 8+7*24), End: at(monday, 8+7*24+5)},
	}

	load := aggregator.Aggregate(tasks, now)

	assert.Equal(t, 24.0, load.Hours(UnitElectricalDesign))
	assert.Equal(t, 12.0, load.Hours(UnitMechanicalDesign))
	assert.Zero(t, load.Hours("kablaj"))
}

func TestCapacityAggregator_UnknownResourceGoesToDefault(t *testing.T) {
	aggregator, err := NewCapacityAggregator(DefaultProductionUnits(), UnitGeneralAssembly, 7)
	require.NoError(t, err)

	load := aggregator.Aggregate([]ScheduledTask{
		{OrderID: "x", ResourceID: "paint_shop", Start: at(monday, 8), End: at(monday, 11)},
	}, at(monday, 8))

	assert.Equal(t, 3.0, load.Hours(UnitGeneralAssembly))
	assert.Len(t, load.Units, len(DefaultProductionUnits()))
}

func TestCapacityAggregator_OverloadFlag(t *testing.T) {
	units := []ProductionUnit{
		{ID: "a", Name: "A", Capacity: 10},
		{ID: "b", Name: "B", Capacity: 0},
		{ID: "c", Name: "C", Capacity: 40},
	}
	aggregator, err := NewCapacityAggregator(units, "c", 7)
	require.NoError(t, err)

	load := aggregator.Aggregate([]ScheduledTask{
		{ResourceID: "a", Start: at(monday, 8), End: at(monday, 20)},
		{ResourceID: "b", Start: at(monday, 8), End: at(monday, 9)},
		{ResourceID: "c", Start: at(monday, 8), End: at(monday, 18)},
	}, at(monday, 8))

	assert.True(t, load.Units[0].Overloaded)
	assert.InDelta(t, 1.2, load.Units[0].Utilization, 1e-9)
	assert.True(t, load.Units[1].Overloaded)
	assert.Zero(t, load.Units[1].Utilization)
	assert.False(t, load.Units[2].Overloaded)
	assert.InDelta(t, 0.25, load.Units[2].Utilization, 1e-9)

	overloaded := load.Overloaded()
	require.Len(t, overloaded, 2)
	assert.Equal(t, "a", overloaded[0].UnitID)
	assert.Equal(t, map[string]float64{"a": 12, "b": 1, "c": 10}, load.ByUnit())
}

func TestNewCapacityAggregator_Errors(t *testing.T) {
	_, err := NewCapacityAggregator(nil, UnitGeneralAssembly, 7)
	assert.ErrorIs(t, err, ErrNoProductionUnits)

	_, err = NewCapacityAggregator(DefaultProductionUnits(), "missing", 7)
	assert.ErrorIs(t, err, ErrUnknownDefaultResource)
}

func TestEstimateDeliveries(t *testing.T) {
	tasks := []ScheduledTask{
		{OrderID: "A", End: at(monday, 28)},
		{OrderID: "B", End: at(monday, 40)},
	}

	deliveries := EstimateDeliveries(tasks)

	require.Len(t, deliveries, 2)
	for _, task := range tasks {
		assert.Equal(t, task.End, deliveries[task.OrderID])
	}
	assert.Empty(t, EstimateDeliveries(nil))
}
