package planning

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestDurationEstimator_Estimate(t *testing.T) {
	params := DefaultParameters()
	estimator := NewDurationEstimator(params.DurationTable, params.DefaultDurationHours)

	tests := []struct {
		name     string
		order    Order
		expected float64
	}{
		{"CB single", Order{ID: "1", CellType: "RM 36 CB", Quantity: 1}, 10},
		{"CB double", Order{ID: "2", CellType: "RM 36 CB", Quantity: 2}, 20},
		{"LB lower case", Order{ID: "3", CellType: "rm 36 lb", Quantity: 5}, 60},
		{"FL mixed case", Order{ID: "4", CellType: "Rm 36 Fl", Quantity: 3}, 45},
		{"MB", Order{ID: "5", CellType: "RM 36 MB", Quantity: 1}, 18},
		{"unknown type uses default", Order{ID: "6", CellType: "XYZ", Quantity: 1}, 8},
		{"empty type uses default", Order{ID: "7", Quantity: 2}, 16},
		{"zero quantity counts as one", Order{ID: "8", CellType: "RM 36 FL", Quantity: 0}, 15},
		{"negative quantity counts as one", Order{ID: "9", CellType: "RM 36 MB", Quantity: -4}, 18},
		{"surrounding spaces ignored", Order{ID: "10", CellType: "  RM 36 CB ", Quantity: 1}, 10},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, estimator.Estimate(tt.order))
		})
	}
}

func TestDurationEstimator_Floor(t *testing.T) {
	estimator := NewDurationEstimator(map[string]float64{"free": 0, "broken": -3}, 0)

	assert.Equal(t, MinimumDurationHours, estimator.Estimate(Order{CellType: "free", Quantity: 4}))
	assert.Equal(t, MinimumDurationHours, estimator.Estimate(Order{CellType: "broken", Quantity: 1}))
	assert.Equal(t, MinimumDurationHours, estimator.Estimate(Order{CellType: "missing"}))
}

func TestDurationEstimator_TableKeysAreCaseInsensitive(t *testing.T) {
	estimator := NewDurationEstimator(map[string]float64{"RM 24 CB": 7}, 8)

	assert.Equal(t, 7.0, estimator.Estimate(Order{CellType: "rm 24 cb", Quantity: 1}))
}

func TestResourceClassifier_Classify(t *testing.T) {
	params := DefaultParameters()
	classifier := NewResourceClassifier(params.ResourceRules, params.DefaultResourceID)

	tests := []struct {
		name     string
		cellType string
		expected string
	}{
		{"CB goes to electrical design", "RM 36 CB", UnitElectricalDesign},
		{"LB goes to mechanical design", "RM 36 LB", UnitMechanicalDesign},
		{"FL goes to general assembly", "RM 36 FL", UnitGeneralAssembly},
		{"unknown goes to general assembly", "XYZ", UnitGeneralAssembly},
		{"empty goes to general assembly", "", UnitGeneralAssembly},
		{"match is case sensitive", "rm 36 cb", UnitGeneralAssembly},
		{"CB wins over LB", "RM 36 LB/CB", UnitElectricalDesign},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, classifier.Classify(Order{ID: "X", CellType: tt.cellType}))
		})
	}
}

func TestResourceClassifier_RuleOrder(t *testing.T) {
	classifier := NewResourceClassifier([]ResourceRule{
		{Marker: "LB", ResourceID: "b"},
		{Marker: "CB", ResourceID: "a"},
	}, "z")

	assert.Equal(t, "b", classifier.Classify(Order{CellType: "CB+LB"}))
	assert.Equal(t, "z", classifier.DefaultResource())
}

func TestDurationEstimator_Cap(t *testing.T) {
	estimator := NewDurationEstimator(map[string]float64{"rm 36 cb": 10, "nan": math.NaN(), "inf": math.Inf(1)}, 8)

	assert.Equal(t, MaxDurationHours, estimator.Estimate(Order{CellType: "RM 36 CB", Quantity: 300000}))
	assert.Equal(t, MaxDurationHours, estimator.Estimate(Order{CellType: "RM 36 CB", Quantity: math.MaxInt32}))
	assert.Equal(t, MaxDurationHours, estimator.Estimate(Order{CellType: "inf", Quantity: 1}))
	assert.Equal(t, MinimumDurationHours, estimator.Estimate(Order{CellType: "nan", Quantity: 1}))
	assert.Equal(t, 10_000.0, estimator.Estimate(Order{CellType: "RM 36 CB", Quantity: 1000}))
}

func TestHoursToDuration_Clamped(t *testing.T) {
	assert.Equal(t, time.Duration(MaxDurationHours)*time.Hour, hoursToDuration(3e6))
	assert.Equal(t, time.Hour, hoursToDuration(math.NaN()))
	assert.Equal(t, 90*time.Minute, hoursToDuration(1.5))
}
