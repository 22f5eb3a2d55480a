package planning

import (
	"fmt"
	"time"
)

// CapacityAggregator sums scheduled hours per production unit over a
// rolling window starting at the caller supplied time.
type CapacityAggregator struct {
	units           []ProductionUnit
	defaultResource string
	window          time.Duration
}

// NewCapacityAggregator creates an aggregator. The default resource must be
// one of the units.
func NewCapacityAggregator(units []ProductionUnit, defaultResource string, windowDays int) (*CapacityAggregator, error) {
	if len(units) == 0 {
		return nil, ErrNoProductionUnits
	}

	found := false
	for _, u := range units {
		if u.ID == defaultResource {
			found = true
			break
		}
	}
	if !found {
		return nil, fmt.Errorf("%w: %q", ErrUnknownDefaultResource, defaultResource)
	}

	if windowDays < 1 {
		windowDays = 7
	}

	return &CapacityAggregator{
		units:           append([]ProductionUnit(nil), units...),
		defaultResource: defaultResource,
		window:          time.Duration(windowDays) * 24 * time.Hour,
	}, nil
}

// Aggregate books every task overlapping [now, now+window) with its full
// length on its unit. Tasks on unknown units go to the default unit.
func (a *CapacityAggregator) Aggregate(tasks []ScheduledTask, now time.Time) CapacityLoad {
	windowStart := now
	windowEnd := now.Add(a.window)

	index := make(map[string]int, len(a.units))
	loads := make([]UnitLoad, len(a.units))
	for i, u := range a.units {
		index[u.ID] = i
		loads[i] = UnitLoad{UnitID: u.ID, Name: u.Name, Capacity: u.Capacity}
	}

	for _, task := range tasks {
		if !task.Start.Before(windowEnd) || !task.End.After(windowStart) {
			continue
		}
		i, ok := index[task.ResourceID]
		if !ok {
			i = index[a.defaultResource]
		}
		loads[i].LoadHours += task.Hours()
	}

	for i := range loads {
		if loads[i].Capacity > 0 {
			loads[i].Utilization = loads[i].LoadHours / loads[i].Capacity
		}
		loads[i].Overloaded = loads[i].LoadHours > loads[i].Capacity
	}

	return CapacityLoad{
		WindowStart: windowStart,
		WindowEnd:   windowEnd,
		Units:       loads,
	}
}
