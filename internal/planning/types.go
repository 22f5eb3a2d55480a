package planning

import "time"

// Order is the unit of work handed to the scheduler.
// CellType drives both the duration lookup and the resource classification.
// A Quantity below 1 is treated as 1.
type Order struct {
	ID       string `json:"id" bson:"id"`
	CellType string `json:"cellType" bson:"cellType"`
	Quantity int    `json:"quantity" bson:"quantity"`
}

// ProductionUnit is a named capacity pool (a department or station).
// Capacity is the nominal hour budget per capacity window; the scheduler
// never enforces it.
type ProductionUnit struct {
	ID       string  `json:"id" bson:"unitId" yaml:"id"`
	Name     string  `json:"name" bson:"name" yaml:"name"`
	Capacity float64 `json:"capacity" bson:"capacity" yaml:"capacity"`
}

// ScheduledTask is the time window assigned to one order.
type ScheduledTask struct {
	ID            string    `json:"id" bson:"id"`
	OrderID       string    `json:"orderId" bson:"orderId"`
	Name          string    `json:"name" bson:"name"`
	ResourceID    string    `json:"resourceId" bson:"resourceId"`
	Start         time.Time `json:"start" bson:"start"`
	End           time.Time `json:"end" bson:"end"`
	DurationHours float64   `json:"durationHours" bson:"durationHours"`
}

// Hours returns the wall-clock length of the task window in hours.
func (t ScheduledTask) Hours() float64 {
	return t.End.Sub(t.Start).Hours()
}

// UnitLoad is the scheduled load of one production unit inside the
// capacity window, reported next to its capacity.
type UnitLoad struct {
	UnitID      string  `json:"unitId" bson:"unitId"`
	Name        string  `json:"name" bson:"name"`
	Capacity    float64 `json:"capacity" bson:"capacity"`
	LoadHours   float64 `json:"loadHours" bson:"loadHours"`
	Utilization float64 `json:"utilization" bson:"utilization"`
	Overloaded  bool    `json:"overloaded" bson:"overloaded"`
}

// CapacityLoad holds one entry per configured production unit, in
// configuration order.
type CapacityLoad struct {
	WindowStart time.Time  `json:"windowStart" bson:"windowStart"`
	WindowEnd   time.Time  `json:"windowEnd" bson:"windowEnd"`
	Units       []UnitLoad `json:"units" bson:"units"`
}

// Hours returns the load booked on a unit, 0 for unknown units.
func (c CapacityLoad) Hours(unitID string) float64 {
	for _, u := range c.Units {
		if u.UnitID == unitID {
			return u.LoadHours
		}
	}
	return 0
}

// ByUnit returns the load as a unit id to hours mapping.
func (c CapacityLoad) ByUnit() map[string]float64 {
	out := make(map[string]float64, len(c.Units))
	for _, u := range c.Units {
		out[u.UnitID] = u.LoadHours
	}
	return out
}

// Overloaded returns the units whose load exceeds their capacity.
func (c CapacityLoad) Overloaded() []UnitLoad {
	var out []UnitLoad
	for _, u := range c.Units {
		if u.Overloaded {
			out = append(out, u)
		}
	}
	return out
}

// Plan is the full output of one planning run.
type Plan struct {
	Schedule          []ScheduledTask      `json:"schedule" bson:"schedule"`
	CapacityLoad      CapacityLoad         `json:"capacityLoad" bson:"capacityLoad"`
	DeliveryEstimates map[string]time.Time `json:"deliveryEstimates" bson:"deliveryEstimates"`
	StartOfDay        time.Time            `json:"startOfDay" bson:"startOfDay"`
	GeneratedAt       time.Time            `json:"generatedAt" bson:"generatedAt"`
	Mode              Mode                 `json:"mode" bson:"mode"`
	WeekendPolicy     WeekendPolicy        `json:"weekendPolicy" bson:"weekendPolicy"`
}
