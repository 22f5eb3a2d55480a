package planning

import (
	"fmt"
	"math"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// WeekendPolicy decides what happens to the hours of a task whose end
// falls on a weekend.
type WeekendPolicy string

const (
	// WeekendDiscard moves the end to Monday at the workday start hour and
	// drops the hours that fell on the weekend.
	WeekendDiscard WeekendPolicy = "discard"
	// WeekendCarryForward moves the end to Monday at the workday start hour
	// plus the hours that fell on the weekend.
	WeekendCarryForward WeekendPolicy = "carry_forward"
)

// IsValid checks if the policy is known
func (p WeekendPolicy) IsValid() bool {
	return p == WeekendDiscard || p == WeekendCarryForward
}

// Mode selects how many simulated clocks the scheduler runs.
type Mode string

const (
	// ModeSingleTrack runs every order on one shared clock.
	ModeSingleTrack Mode = "single_track"
	// ModeMultiTrack runs one clock per production unit.
	ModeMultiTrack Mode = "multi_track"
)

// IsValid checks if the mode is known
func (m Mode) IsValid() bool {
	return m == ModeSingleTrack || m == ModeMultiTrack
}

// ResourceRule maps a cell type marker to a production unit.
type ResourceRule struct {
	Marker     string `json:"marker" bson:"marker" yaml:"marker"`
	ResourceID string `json:"resourceId" bson:"resourceId" yaml:"resourceId"`
}

// Parameters are the lookup tables and policies of the planning engine.
type Parameters struct {
	DurationTable        map[string]float64 `json:"durationTable" bson:"durationTable" yaml:"durationTable"`
	DefaultDurationHours float64            `json:"defaultDurationHours" bson:"defaultDurationHours" yaml:"defaultDurationHours"`
	ResourceRules        []ResourceRule     `json:"resourceRules" bson:"resourceRules" yaml:"resourceRules"`
	DefaultResourceID    string             `json:"defaultResourceId" bson:"defaultResourceId" yaml:"defaultResourceId"`
	WorkdayStartHour     int                `json:"workdayStartHour" bson:"workdayStartHour" yaml:"workdayStartHour"`
	WeekendPolicy        WeekendPolicy      `json:"weekendPolicy" bson:"weekendPolicy" yaml:"weekendPolicy"`
	Mode                 Mode               `json:"mode" bson:"mode" yaml:"mode"`
	CapacityWindowDays   int                `json:"capacityWindowDays" bson:"capacityWindowDays" yaml:"capacityWindowDays"`
	Units                []ProductionUnit   `json:"units,omitempty" bson:"-" yaml:"units,omitempty"`
	UpdatedAt            time.Time          `json:"updatedAt" bson:"updatedAt" yaml:"-"`
}

// Default unit ids referenced by the default parameters.
const (
	UnitElectricalDesign = "elektrik_tasarim"
	UnitMechanicalDesign = "mekanik_tasarim"
	UnitGeneralAssembly  = "genel_montaj"
)

// DefaultParameters returns the RM 36 tables used by the shop floor.
func DefaultParameters() Parameters {
	return Parameters{
		DurationTable: map[string]float64{
			"rm 36 cb": 10,
			"rm 36 lb": 12,
			"rm 36 fl": 15,
			"rm 36 mb": 18,
		},
		DefaultDurationHours: 8,
		ResourceRules: []ResourceRule{
			{Marker: "CB", ResourceID: UnitElectricalDesign},
			{Marker: "LB", ResourceID: UnitMechanicalDesign},
		},
		DefaultResourceID:  UnitGeneralAssembly,
		WorkdayStartHour:   8,
		WeekendPolicy:      WeekendDiscard,
		Mode:               ModeSingleTrack,
		CapacityWindowDays: 7,
	}
}

// DefaultProductionUnits returns the departments of the plant.
func DefaultProductionUnits() []ProductionUnit {
	return []ProductionUnit{
		{ID: UnitElectricalDesign, Name: "Elektrik Tasarım", Capacity: 160},
		{ID: UnitMechanicalDesign, Name: "Mekanik Tasarım", Capacity: 120},
		{ID: "satin_alma", Name: "Satın Alma", Capacity: 80},
		{ID: "mekanik_uretim", Name: "Mekanik Üretim", Capacity: 200},
		{ID: "ic_montaj", Name: "İç Montaj", Capacity: 240},
		{ID: "kablaj", Name: "Kablaj", Capacity: 320},
		{ID: UnitGeneralAssembly, Name: "Genel Montaj", Capacity: 280},
		{ID: "test", Name: "Test", Capacity: 160},
	}
}

// LoadParameters reads parameters from a YAML file. Fields missing from the
// file keep their default values.
func LoadParameters(path string) (Parameters, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Parameters{}, fmt.Errorf("failed to read planning parameters: %w", err)
	}
	return ParseParameters(data)
}

// ParseParameters decodes YAML parameters on top of the defaults.
func ParseParameters(data []byte) (Parameters, error) {
	params := DefaultParameters()
	if err := yaml.Unmarshal(data, &params); err != nil {
		return Parameters{}, fmt.Errorf("failed to parse planning parameters: %w", err)
	}
	return params, nil
}

// Validate checks the parameters against the configured units.
func (p Parameters) Validate(units []ProductionUnit) error {
	if len(units) == 0 {
		return ErrNoProductionUnits
	}

	known := make(map[string]bool, len(units))
	for _, u := range units {
		if u.ID == "" {
			return fmt.Errorf("%w: production unit without id", ErrInvalidParameters)
		}
		if known[u.ID] {
			return fmt.Errorf("%w: duplicate production unit %q", ErrInvalidParameters, u.ID)
		}
		known[u.ID] = true
	}

	if !known[p.DefaultResourceID] {
		return fmt.Errorf("%w: %q", ErrUnknownDefaultResource, p.DefaultResourceID)
	}
	for _, r := range p.ResourceRules {
		if r.Marker == "" {
			return fmt.Errorf("%w: resource rule without marker", ErrInvalidParameters)
		}
		if !known[r.ResourceID] {
			return fmt.Errorf("%w: rule %q targets unknown unit %q", ErrInvalidParameters, r.Marker, r.ResourceID)
		}
	}

	if !validHours(p.DefaultDurationHours) {
		return fmt.Errorf("%w: default duration of %v hours", ErrInvalidParameters, p.DefaultDurationHours)
	}
	for cellType, hours := range p.DurationTable {
		if !validHours(hours) {
			return fmt.Errorf("%w: duration of %v hours for %q", ErrInvalidParameters, hours, cellType)
		}
	}

	if p.WorkdayStartHour < 0 || p.WorkdayStartHour > 23 {
		return fmt.Errorf("%w: workday start hour %d", ErrInvalidParameters, p.WorkdayStartHour)
	}
	if !p.WeekendPolicy.IsValid() {
		return fmt.Errorf("%w: weekend policy %q", ErrInvalidParameters, p.WeekendPolicy)
	}
	if !p.Mode.IsValid() {
		return fmt.Errorf("%w: mode %q", ErrInvalidParameters, p.Mode)
	}
	if p.CapacityWindowDays < 1 {
		return fmt.Errorf("%w: capacity window of %d days", ErrInvalidParameters, p.CapacityWindowDays)
	}

	return nil
}

// validHours accepts finite, positive base durations up to MaxDurationHours.
func validHours(hours float64) bool {
	return !math.IsNaN(hours) && !math.IsInf(hours, 0) && hours > 0 && hours <= MaxDurationHours
}
