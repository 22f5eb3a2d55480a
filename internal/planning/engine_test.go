package planning

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newDefaultEngine(t *testing.T) *Engine {
	t.Helper()
	engine, err := NewEngine(DefaultParameters(), DefaultProductionUnits())
	require.NoError(t, err)
	return engine
}

func TestEngine_Plan_Scenario(t *testing.T) {
	engine := newDefaultEngine(t)
	now := at(monday, 8)

	plan := engine.Plan([]Order{
		{ID: "A", CellType: "RM 36 CB", Quantity: 2},
		{ID: "B", CellType: "RM 36 LB", Quantity: 1},
	}, monday, now)

	require.Len(t, plan.Schedule, 2)
	assert.Equal(t, at(monday, 28), plan.Schedule[0].End)
	assert.Equal(t, at(monday, 40), plan.Schedule[1].End)

	assert.Equal(t, 20.0, plan.CapacityLoad.Hours(UnitElectricalDesign))
	assert.Equal(t, 12.0, plan.CapacityLoad.Hours(UnitMechanicalDesign))
	for _, u := range plan.CapacityLoad.Units {
		if u.UnitID != UnitElectricalDesign && u.UnitID != UnitMechanicalDesign {
			assert.Zero(t, u.LoadHours, u.UnitID)
		}
	}

	assert.Equal(t, at(monday, 28), plan.DeliveryEstimates["A"])
	assert.Equal(t, at(monday, 40), plan.DeliveryEstimates["B"])
	assert.Equal(t, at(monday, 8), plan.StartOfDay)
	assert.Equal(t, now, plan.GeneratedAt)
	assert.Equal(t, ModeSingleTrack, plan.Mode)
	assert.Equal(t, WeekendDiscard, plan.WeekendPolicy)
}

func TestEngine_Plan_UnknownType(t *testing.T) {
	engine := newDefaultEngine(t)

	plan := engine.Plan([]Order{{ID: "C", CellType: "XYZ", Quantity: 1}}, monday, at(monday, 8))

	require.Len(t, plan.Schedule, 1)
	assert.Equal(t, 8.0, plan.Schedule[0].Hours())
	assert.Equal(t, UnitGeneralAssembly, plan.Schedule[0].ResourceID)
	assert.Equal(t, 8.0, plan.CapacityLoad.Hours(UnitGeneralAssembly))
}

func TestEngine_Plan_ZeroQuantity(t *testing.T) {
	engine := newDefaultEngine(t)

	plan := engine.Plan([]Order{{ID: "D", CellType: "RM 36 FL", Quantity: 0}}, monday, at(monday, 8))

	require.Len(t, plan.Schedule, 1)
	// Quantity is clamped to 1 before the multiplication.
	assert.Equal(t, 15.0, plan.Schedule[0].DurationHours)
	assert.Equal(t, at(monday, 23), plan.Schedule[0].End)
}

func TestEngine_Plan_DeliveryConsistency(t *testing.T) {
	engine := newDefaultEngine(t)
	orders := testOrders()

	plan := engine.Plan(orders, friday, at(friday, 8))

	require.Len(t, plan.DeliveryEstimates, len(orders))
	for _, task := range plan.Schedule {
		assert.Equal(t, task.End, plan.DeliveryEstimates[task.OrderID])
	}
	require.Len(t, plan.CapacityLoad.Units, len(DefaultProductionUnits()))
}

func TestEngine_Plan_Empty(t *testing.T) {
	engine := newDefaultEngine(t)

	plan := engine.Plan(nil, monday, at(monday, 8))

	assert.Empty(t, plan.Schedule)
	assert.Empty(t, plan.DeliveryEstimates)
	assert.Len(t, plan.CapacityLoad.Units, len(DefaultProductionUnits()))
}

func TestEngine_Plan_WindowFollowsNow(t *testing.T) {
	engine := newDefaultEngine(t)
	orders := []Order{{ID: "A", CellType: "RM 36 CB", Quantity: 1}}

	plan := engine.Plan(orders, monday, at(monday, 8).Add(8*24*time.Hour))

	assert.Zero(t, plan.CapacityLoad.Hours(UnitElectricalDesign))
}

func TestNewEngine_Validation(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(p *Parameters, units *[]ProductionUnit)
		err    error
	}{
		{"no units", func(p *Parameters, u *[]ProductionUnit) { *u = nil }, ErrNoProductionUnits},
		{"unknown default", func(p *Parameters, u *[]ProductionUnit) { p.DefaultResourceID = "nope" }, ErrUnknownDefaultResource},
		{"rule to unknown unit", func(p *Parameters, u *[]ProductionUnit) {
			p.ResourceRules = append(p.ResourceRules, ResourceRule{Marker: "FL", ResourceID: "nope"})
		}, ErrInvalidParameters},
		{"empty marker", func(p *Parameters, u *[]ProductionUnit) {
			p.ResourceRules = []ResourceRule{{ResourceID: UnitGeneralAssembly}}
		}, ErrInvalidParameters},
		{"duplicate unit", func(p *Parameters, u *[]ProductionUnit) { *u = append(*u, (*u)[0]) }, ErrInvalidParameters},
		{"start hour", func(p *Parameters, u *[]ProductionUnit) { p.WorkdayStartHour = 24 }, ErrInvalidParameters},
		{"policy", func(p *Parameters, u *[]ProductionUnit) { p.WeekendPolicy = "skip" }, ErrInvalidParameters},
		{"mode", func(p *Parameters, u *[]ProductionUnit) { p.Mode = "parallel" }, ErrInvalidParameters},
		{"window", func(p *Parameters, u *[]ProductionUnit) { p.CapacityWindowDays = 0 }, ErrInvalidParameters},
		{"zero default duration", func(p *Parameters, u *[]ProductionUnit) { p.DefaultDurationHours = 0 }, ErrInvalidParameters},
		{"negative default duration", func(p *Parameters, u *[]ProductionUnit) { p.DefaultDurationHours = -8 }, ErrInvalidParameters},
		{"NaN default duration", func(p *Parameters, u *[]ProductionUnit) { p.DefaultDurationHours = math.NaN() }, ErrInvalidParameters},
		{"negative table duration", func(p *Parameters, u *[]ProductionUnit) { p.DurationTable["rm 36 cb"] = -10 }, ErrInvalidParameters},
		{"NaN table duration", func(p *Parameters, u *[]ProductionUnit) { p.DurationTable["rm 36 lb"] = math.NaN() }, ErrInvalidParameters},
		{"infinite table duration", func(p *Parameters, u *[]ProductionUnit) { p.DurationTable["rm 36 fl"] = math.Inf(1) }, ErrInvalidParameters},
		{"table duration above cap", func(p *Parameters, u *[]ProductionUnit) { p.DurationTable["rm 36 mb"] = MaxDurationHours + 1 }, ErrInvalidParameters},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			params := DefaultParameters()
			units := DefaultProductionUnits()
			tt.mutate(&params, &units)

			engine, err := NewEngine(params, units)

			assert.Nil(t, engine)
			assert.ErrorIs(t, err, tt.err)
		})
	}
}

func TestParseParameters(t *testing.T) {
	params, err := ParseParameters([]byte(`
durationTable:
  "RM 24 CB": 6
weekendPolicy: carry_forward
mode: multi_track
units:
  - id: kaynak
    name: Kaynak
    capacity: 90
`))
	require.NoError(t, err)

	// Defaults survive, new keys are merged in
	assert.Equal(t, 10.0, params.DurationTable["rm 36 cb"])
	assert.Equal(t, 6.0, params.DurationTable["RM 24 CB"])
	assert.Equal(t, 8.0, params.DefaultDurationHours)
	assert.Equal(t, WeekendCarryForward, params.WeekendPolicy)
	assert.Equal(t, ModeMultiTrack, params.Mode)
	assert.Equal(t, 8, params.WorkdayStartHour)
	require.Len(t, params.Units, 1)
	assert.Equal(t, ProductionUnit{ID: "kaynak", Name: "Kaynak", Capacity: 90}, params.Units[0])

	_, err = ParseParameters([]byte("durationTable: [1, 2"))
	assert.Error(t, err)
}

func TestLoadParameters_MissingFile(t *testing.T) {
	_, err := LoadParameters("/nonexistent/planning.yaml")
	assert.Error(t, err)
}

func TestParseParameters_NonFiniteDurationRejectedByEngine(t *testing.T) {
	params, err := ParseParameters([]byte("durationTable:\n  \"RM 36 CB\": .nan\ndefaultDurationHours: .inf\n"))
	require.NoError(t, err)

	_, err = NewEngine(params, DefaultProductionUnits())
	assert.ErrorIs(t, err, ErrInvalidParameters)
}

func TestEngine_Plan_LargeQuantityStaysOrdered(t *testing.T) {
	engine := newDefaultEngine(t)
	mon := at(monday, 8)

	plan := engine.Plan([]Order{
		{ID: "A", CellType: "RM 36 CB", Quantity: 300000},
		{ID: "B", CellType: "RM 36 LB", Quantity: 1},
	}, mon, mon)

	require.Len(t, plan.Schedule, 2)
	first, second := plan.Schedule[0], plan.Schedule[1]
	assert.Equal(t, MaxDurationHours, first.DurationHours)
	assert.True(t, first.End.After(first.Start), "end %s not after start %s", first.End, first.Start)
	assert.True(t, first.End.Sub(first.Start) >= time.Duration(MaxDurationHours)*time.Hour)
	assert.True(t, second.Start.Equal(first.End))
	assert.True(t, second.End.After(second.Start))
	assert.True(t, plan.DeliveryEstimates["A"].Equal(first.End))
}

func TestEngine_Plan_DuplicateOrderIDKeepsLastDelivery(t *testing.T) {
	engine := newDefaultEngine(t)
	mon := at(monday, 8)

	plan := engine.Plan([]Order{
		{ID: "A", CellType: "RM 36 CB", Quantity: 1},
		{ID: "A", CellType: "RM 36 LB", Quantity: 1},
	}, mon, mon)

	require.Len(t, plan.Schedule, 2)
	require.Len(t, plan.DeliveryEstimates, 1)
	assert.True(t, plan.DeliveryEstimates["A"].Equal(plan.Schedule[1].End))
}
