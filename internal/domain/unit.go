package domain

import (
	"errors"
	"strings"
	"time"

	"github.com/mets-platform/mets/internal/planning"
)

var (
	ErrUnitNotFound       = errors.New("production unit not found")
	ErrInvalidUnitName    = errors.New("production unit name is required")
	ErrInvalidCapacity    = errors.New("production unit capacity must not be negative")
	ErrParametersNotFound = errors.New("planning parameters not found")
)

// ProductionUnit is a department or station with a nominal hour budget
type ProductionUnit struct {
	UnitID    string    `bson:"unitId" json:"id"`
	Name      string    `bson:"name" json:"name"`
	Capacity  float64   `bson:"capacity" json:"capacity"`
	UpdatedAt time.Time `bson:"updatedAt" json:"updatedAt"`
}

// NewProductionUnit validates and creates a production unit
func NewProductionUnit(unitID, name string, capacity float64) (*ProductionUnit, error) {
	if strings.TrimSpace(name) == "" {
		return nil, ErrInvalidUnitName
	}
	if capacity < 0 {
		return nil, ErrInvalidCapacity
	}
	return &ProductionUnit{
		UnitID:    unitID,
		Name:      strings.TrimSpace(name),
		Capacity:  capacity,
		UpdatedAt: time.Now().UTC(),
	}, nil
}

// ProductionUnitFromPlanning converts an engine unit
func ProductionUnitFromPlanning(u planning.ProductionUnit) *ProductionUnit {
	return &ProductionUnit{UnitID: u.ID, Name: u.Name, Capacity: u.Capacity}
}

// ToPlanning returns the engine view of the unit
func (u *ProductionUnit) ToPlanning() planning.ProductionUnit {
	return planning.ProductionUnit{ID: u.UnitID, Name: u.Name, Capacity: u.Capacity}
}

// ToPlanningUnits converts a unit list, keeping its order
func ToPlanningUnits(units []*ProductionUnit) []planning.ProductionUnit {
	out := make([]planning.ProductionUnit, 0, len(units))
	for _, u := range units {
		out = append(out, u.ToPlanning())
	}
	return out
}
