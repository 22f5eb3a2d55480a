package planning

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// 2025-01-06 is a Monday.
var (
	monday  = time.Date(2025, time.January, 6, 0, 0, 0, 0, time.UTC)
	friday  = time.Date(2025, time.January, 10, 0, 0, 0, 0, time.UTC)
	nextMon = time.Date(2025, time.January, 13, 8, 0, 0, 0, time.UTC)
)

func at(day time.Time, hour int) time.Time {
	return day.Add(time.Duration(hour) * time.Hour)
}

func newTestScheduler(table map[string]float64, config SchedulerConfig) *Scheduler {
	params := DefaultParameters()
	if table == nil {
		table = params.DurationTable
	}
	if config.WorkdayStartHour == 0 {
		config.WorkdayStartHour = params.WorkdayStartHour
	}
	return NewScheduler(
		NewDurationEstimator(table, params.DefaultDurationHours),
		NewResourceClassifier(params.ResourceRules, params.DefaultResourceID),
		config,
	)
}

func TestScheduler_Scenario(t *testing.T) {
	scheduler := newTestScheduler(nil, SchedulerConfig{})

	tasks := scheduler.Schedule([]Order{
		{ID: "A", CellType: "RM 36 CB", Quantity: 2},
		{ID: "B", CellType: "RM 36 LB", Quantity: 1},
	}, monday)

	require.Len(t, tasks, 2)

	assert.Equal(t, "task-A", tasks[0].ID)
	assert.Equal(t, "A", tasks[0].OrderID)
	assert.Equal(t, "Sipariş: A (RM 36 CB)", tasks[0].Name)
	assert.Equal(t, UnitElectricalDesign, tasks[0].ResourceID)
	assert.Equal(t, at(monday, 8), tasks[0].Start)
	assert.Equal(t, at(monday, 28), tasks[0].End) // Tuesday 04:00
	assert.Equal(t, 20.0, tasks[0].DurationHours)

	assert.Equal(t, "task-B", tasks[1].ID)
	assert.Equal(t, UnitMechanicalDesign, tasks[1].ResourceID)
	assert.Equal(t, at(monday, 28), tasks[1].Start)
	assert.Equal(t, at(monday, 40), tasks[1].End) // Tuesday 16:00
}

func TestScheduler_StartsAtWorkdayStartHour(t *testing.T) {
	scheduler := newTestScheduler(nil, SchedulerConfig{})

	// Time of day of the anchor is ignored.
	tasks := scheduler.Schedule([]Order{{ID: "A", CellType: "XYZ"}}, at(monday, 15))

	require.Len(t, tasks, 1)
	assert.Equal(t, at(monday, 8), tasks[0].Start)
	assert.Equal(t, at(monday, 16), tasks[0].End)
	assert.Equal(t, UnitGeneralAssembly, tasks[0].ResourceID)
}

func TestScheduler_UsesAnchorLocation(t *testing.T) {
	istanbul := time.FixedZone("TRT", 3*60*60)
	scheduler := newTestScheduler(nil, SchedulerConfig{})

	tasks := scheduler.Schedule([]Order{{ID: "A", CellType: "RM 36 CB", Quantity: 1}},
		time.Date(2025, time.January, 6, 23, 0, 0, 0, istanbul))

	require.Len(t, tasks, 1)
	assert.True(t, tasks[0].Start.Equal(time.Date(2025, time.January, 6, 8, 0, 0, 0, istanbul)))
}

func TestScheduler_WeekendSkip(t *testing.T) {
	table := map[string]float64{"sat": 26, "sun": 50, "fri": 9}

	tests := []struct {
		name     string
		policy   WeekendPolicy
		cellType string
		expected time.Time
	}{
		{"saturday end discards hours", WeekendDiscard, "sat", nextMon},
		{"sunday end discards hours", WeekendDiscard, "sun", nextMon},
		{"weekday end untouched", WeekendDiscard, "fri", at(friday, 17)},
		{"saturday end carries hours", WeekendCarryForward, "sat", nextMon.Add(10 * time.Hour)},
		{"sunday end carries hours", WeekendCarryForward, "sun", nextMon.Add(34 * time.Hour)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			scheduler := newTestScheduler(table, SchedulerConfig{WeekendPolicy: tt.policy})

			tasks := scheduler.Schedule([]Order{{ID: "W", CellType: tt.cellType, Quantity: 1}}, friday)

			require.Len(t, tasks, 1)
			assert.Equal(t, at(friday, 8), tasks[0].Start)
			assert.Equal(t, tt.expected, tasks[0].End)
		})
	}
}

func TestScheduler_NextTaskStartsAfterWeekendAdjustment(t *testing.T) {
	scheduler := newTestScheduler(map[string]float64{"sat": 26}, SchedulerConfig{})

	tasks := scheduler.Schedule([]Order{
		{ID: "1", CellType: "sat", Quantity: 1},
		{ID: "2", CellType: "RM 36 CB", Quantity: 1},
	}, friday)

	require.Len(t, tasks, 2)
	assert.Equal(t, nextMon, tasks[1].Start)
	assert.Equal(t, nextMon.Add(10*time.Hour), tasks[1].End)
}

func TestScheduler_EmptyInput(t *testing.T) {
	scheduler := newTestScheduler(nil, SchedulerConfig{})

	assert.Empty(t, scheduler.Schedule(nil, monday))
	assert.NotNil(t, scheduler.Schedule(nil, monday))
}

func testOrders() []Order {
	types := []string{"RM 36 CB", "RM 36 LB", "RM 36 FL", "RM 36 MB", "XYZ", ""}
	orders := make([]Order, 0, 40)
	for i := 0; i < 40; i++ {
		orders = append(orders, Order{
			ID:       "O-" + string(rune('A'+i%26)) + string(rune('a'+i/26)),
			CellType: types[i%len(types)],
			Quantity: i % 4,
		})
	}
	return orders
}

func TestScheduler_Properties(t *testing.T) {
	for _, policy := range []WeekendPolicy{WeekendDiscard, WeekendCarryForward} {
		t.Run(string(policy), func(t *testing.T) {
			scheduler := newTestScheduler(nil, SchedulerConfig{WeekendPolicy: policy})
			orders := testOrders()

			tasks := scheduler.Schedule(orders, friday)
			again := scheduler.Schedule(orders, friday)

			// Deterministic
			assert.Equal(t, tasks, again)

			require.Len(t, tasks, len(orders))
			for i, task := range tasks {
				// Order preserved
				assert.Equal(t, orders[i].ID, task.OrderID)
				// Minimum duration
				assert.GreaterOrEqual(t, task.End.Sub(task.Start), time.Hour)
				// Never ends on a weekend
				assert.NotEqual(t, time.Saturday, task.End.Weekday())
				assert.NotEqual(t, time.Sunday, task.End.Weekday())
				// Serial chain
				if i > 0 {
					assert.Equal(t, tasks[i-1].End, task.Start)
				}
			}
		})
	}
}

func TestScheduler_MultiTrack(t *testing.T) {
	scheduler := newTestScheduler(nil, SchedulerConfig{Mode: ModeMultiTrack})

	tasks := scheduler.Schedule([]Order{
		{ID: "A", CellType: "RM 36 CB", Quantity: 1},
		{ID: "B", CellType: "RM 36 LB", Quantity: 1},
		{ID: "C", CellType: "RM 36 CB", Quantity: 1},
	}, monday)

	require.Len(t, tasks, 3)
	assert.Equal(t, []string{"A", "B", "C"}, []string{tasks[0].OrderID, tasks[1].OrderID, tasks[2].OrderID})

	assert.Equal(t, at(monday, 8), tasks[0].Start)
	assert.Equal(t, at(monday, 18), tasks[0].End)

	// Different unit, own clock
	assert.Equal(t, at(monday, 8), tasks[1].Start)
	assert.Equal(t, at(monday, 20), tasks[1].End)

	// Same unit as A, queued behind it
	assert.Equal(t, at(monday, 18), tasks[2].Start)
	assert.Equal(t, at(monday, 28), tasks[2].End)
}

func TestScheduler_InvalidConfigFallsBackToDefaults(t *testing.T) {
	scheduler := newTestScheduler(nil, SchedulerConfig{WeekendPolicy: "bogus", Mode: "bogus"})

	assert.Equal(t, WeekendDiscard, scheduler.config.WeekendPolicy)
	assert.Equal(t, ModeSingleTrack, scheduler.config.Mode)
}

func TestTaskName_MissingCellType(t *testing.T) {
	assert.Equal(t, "Sipariş: D (N/A)", taskName(Order{ID: "D"}))
}
