package planning

import (
	"math"
	"strings"
)

const (
	// MinimumDurationHours is the floor of every duration estimate.
	MinimumDurationHours = 1.0
	// MaxDurationHours caps a single estimate so it always converts to a
	// time.Duration (which tops out near 2.56 million hours).
	MaxDurationHours = 100_000.0
)

// DurationEstimator maps an order to its processing time in hours.
type DurationEstimator struct {
	table        map[string]float64
	defaultHours float64
}

// NewDurationEstimator creates an estimator over a cell type table. Keys are
// matched case-insensitively.
func NewDurationEstimator(table map[string]float64, defaultHours float64) *DurationEstimator {
	normalized := make(map[string]float64, len(table))
	for cellType, hours := range table {
		normalized[normalizeCellType(cellType)] = hours
	}
	return &DurationEstimator{
		table:        normalized,
		defaultHours: defaultHours,
	}
}

// Estimate returns base hours for the cell type times the quantity, clamped
// to [MinimumDurationHours, MaxDurationHours]. Unknown or empty cell types
// use the default base hours and quantities below 1 count as 1.
func (e *DurationEstimator) Estimate(order Order) float64 {
	base, ok := e.table[normalizeCellType(order.CellType)]
	if !ok {
		base = e.defaultHours
	}

	quantity := order.Quantity
	if quantity < 1 {
		quantity = 1
	}

	hours := base * float64(quantity)
	switch {
	case math.IsNaN(hours) || hours < MinimumDurationHours:
		return MinimumDurationHours
	case hours > MaxDurationHours:
		return MaxDurationHours
	}
	return hours
}

func normalizeCellType(cellType string) string {
	return strings.ToLower(strings.TrimSpace(cellType))
}
