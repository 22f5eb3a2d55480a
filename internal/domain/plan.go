package domain

import (
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/mets-platform/mets/internal/planning"
)

var (
	ErrPlanNotFound     = errors.New("no plan has been generated yet")
	ErrDeliveryNotFound = errors.New("order is not part of the latest plan")
)

// Plan triggers
const (
	TriggerManual      = "manual"
	TriggerOrderChange = "order_change"
	TriggerScheduled   = "scheduled"
)

// PlanSnapshot is a persisted planning run
type PlanSnapshot struct {
	ID              primitive.ObjectID `bson:"_id,omitempty" json:"-"`
	PlanID          string             `bson:"planId" json:"planId"`
	Plan            planning.Plan      `bson:"plan" json:"plan"`
	OrderCount      int                `bson:"orderCount" json:"orderCount"`
	OverloadedUnits []string           `bson:"overloadedUnits" json:"overloadedUnits"`
	Trigger         string             `bson:"trigger" json:"trigger"`
	CreatedAt       time.Time          `bson:"createdAt" json:"createdAt"`

	domainEvents []DomainEvent `bson:"-" json:"-"`
}

// NewPlanID returns a fresh PLN-xxxxxxxx identifier
func NewPlanID() string {
	return "PLN-" + strings.ToUpper(strings.ReplaceAll(uuid.New().String(), "-", "")[:8])
}

// NewPlanSnapshot wraps an engine plan. It records one plan-generated event
// and one capacity-overloaded event per overloaded unit.
func NewPlanSnapshot(plan *planning.Plan, orderCount int, trigger string) *PlanSnapshot {
	if trigger == "" {
		trigger = TriggerManual
	}

	overloaded := plan.CapacityLoad.Overloaded()
	unitIDs := make([]string, 0, len(overloaded))
	for _, u := range overloaded {
		unitIDs = append(unitIDs, u.UnitID)
	}

	snapshot := &PlanSnapshot{
		ID:              primitive.NewObjectID(),
		PlanID:          NewPlanID(),
		Plan:            *plan,
		OrderCount:      orderCount,
		OverloadedUnits: unitIDs,
		Trigger:         trigger,
		CreatedAt:       time.Now().UTC(),
	}

	snapshot.addDomainEvent(NewPlanGeneratedEvent(snapshot))
	for _, u := range overloaded {
		snapshot.addDomainEvent(NewCapacityOverloadedEvent(snapshot, u))
	}

	return snapshot
}

// DeliveryEstimate returns the planned completion of an order
func (p *PlanSnapshot) DeliveryEstimate(orderID string) (time.Time, bool) {
	at, ok := p.Plan.DeliveryEstimates[orderID]
	return at, ok
}

// Task returns the scheduled task of an order
func (p *PlanSnapshot) Task(orderID string) (planning.ScheduledTask, bool) {
	for _, t := range p.Plan.Schedule {
		if t.OrderID == orderID {
			return t, true
		}
	}
	return planning.ScheduledTask{}, false
}

// HasOverload reports whether any unit is booked beyond its capacity
func (p *PlanSnapshot) HasOverload() bool {
	return len(p.OverloadedUnits) > 0
}

func (p *PlanSnapshot) addDomainEvent(event DomainEvent) {
	p.domainEvents = append(p.domainEvents, event)
}

// DomainEvents returns all pending domain events
func (p *PlanSnapshot) DomainEvents() []DomainEvent {
	return p.domainEvents
}

// ClearDomainEvents clears all pending domain events
func (p *PlanSnapshot) ClearDomainEvents() {
	p.domainEvents = nil
}
