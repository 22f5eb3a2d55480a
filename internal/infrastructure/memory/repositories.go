package memory

import (
	"context"
	"fmt"
	"maps"
	"sync"

	"github.com/mets-platform/mets/internal/domain"
	"github.com/mets-platform/mets/internal/infrastructure/events"
	"github.com/mets-platform/mets/internal/planning"
	"github.com/mets-platform/mets/pkg/outbox"
)

// ProductionUnitRepository keeps units in configuration order
type ProductionUnitRepository struct {
	mu    sync.RWMutex
	units []*domain.ProductionUnit
}

// NewProductionUnitRepository creates an empty unit store
func NewProductionUnitRepository() *ProductionUnitRepository {
	return &ProductionUnitRepository{}
}

// FindAll returns every unit in configuration order
func (r *ProductionUnitRepository) FindAll(_ context.Context) ([]*domain.ProductionUnit, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*domain.ProductionUnit, 0, len(r.units))
	for _, u := range r.units {
		copied := *u
		out = append(out, &copied)
	}
	return out, nil
}

// FindByID retrieves a unit, nil when missing
func (r *ProductionUnitRepository) FindByID(_ context.Context, unitID string) (*domain.ProductionUnit, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, u := range r.units {
		if u.UnitID == unitID {
			copied := *u
			return &copied, nil
		}
	}
	return nil, nil
}

// Save replaces a unit in place or appends a new one
func (r *ProductionUnitRepository) Save(_ context.Context, unit *domain.ProductionUnit) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	copied := *unit
	for i, u := range r.units {
		if u.UnitID == unit.UnitID {
			r.units[i] = &copied
			return nil
		}
	}
	r.units = append(r.units, &copied)
	return nil
}

// PlanRepository keeps the most recent plan snapshots
type PlanRepository struct {
	mu      sync.RWMutex
	plans   []*domain.PlanSnapshot
	history int
	outbox  outbox.Repository
	mapper  *events.Mapper
}

// NewPlanRepository creates a plan store keeping at most history snapshots
func NewPlanRepository(outboxRepo outbox.Repository, mapper *events.Mapper, history int) *PlanRepository {
	if history <= 0 {
		history = 20
	}
	return &PlanRepository{history: history, outbox: outboxRepo, mapper: mapper}
}

// Save stores the snapshot and moves its pending events to the outbox
func (r *PlanRepository) Save(ctx context.Context, plan *domain.PlanSnapshot) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if pending := plan.DomainEvents(); len(pending) > 0 {
		outboxEvents, err := r.mapper.ToOutboxEvents(ctx, plan.PlanID, events.AggregatePlan, pending)
		if err != nil {
			return err
		}
		if err := r.outbox.SaveAll(ctx, outboxEvents); err != nil {
			return fmt.Errorf("failed to save outbox events: %w", err)
		}
	}
	plan.ClearDomainEvents()

	copied := *plan
	r.plans = append(r.plans, &copied)
	if len(r.plans) > r.history {
		r.plans = r.plans[len(r.plans)-r.history:]
	}
	return nil
}

// FindLatest returns the newest snapshot, nil when none exists
func (r *PlanRepository) FindLatest(_ context.Context) (*domain.PlanSnapshot, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if len(r.plans) == 0 {
		return nil, nil
	}
	latest := *r.plans[len(r.plans)-1]
	return &latest, nil
}

// ParametersRepository holds the single parameter document
type ParametersRepository struct {
	mu     sync.RWMutex
	params *planning.Parameters
}

// NewParametersRepository creates an empty parameter store
func NewParametersRepository() *ParametersRepository {
	return &ParametersRepository{}
}

// Get returns a copy of the stored parameters, nil when none were saved
func (r *ParametersRepository) Get(_ context.Context) (*planning.Parameters, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.params == nil {
		return nil, nil
	}
	copied := cloneParameters(*r.params)
	return &copied, nil
}

// Save replaces the stored parameters. Units are not part of the document.
func (r *ParametersRepository) Save(_ context.Context, params planning.Parameters) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	copied := cloneParameters(params)
	copied.Units = nil
	r.params = &copied
	return nil
}

func cloneParameters(p planning.Parameters) planning.Parameters {
	p.DurationTable = maps.Clone(p.DurationTable)
	p.ResourceRules = append([]planning.ResourceRule(nil), p.ResourceRules...)
	p.Units = append([]planning.ProductionUnit(nil), p.Units...)
	return p
}

// TechnicalDocumentRepository keeps documents in insertion order
type TechnicalDocumentRepository struct {
	mu   sync.RWMutex
	docs []*domain.TechnicalDocument
}

// NewTechnicalDocumentRepository creates an empty document store
func NewTechnicalDocumentRepository() *TechnicalDocumentRepository {
	return &TechnicalDocumentRepository{}
}

// FindAll returns every document in insertion order
func (r *TechnicalDocumentRepository) FindAll(_ context.Context) ([]*domain.TechnicalDocument, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*domain.TechnicalDocument, 0, len(r.docs))
	for _, d := range r.docs {
		copied := *d
		out = append(out, &copied)
	}
	return out, nil
}

// Save replaces a document with the same id or appends it
func (r *TechnicalDocumentRepository) Save(_ context.Context, doc *domain.TechnicalDocument) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	copied := *doc
	copied.Keywords = append([]string(nil), doc.Keywords...)
	for i, d := range r.docs {
		if d.DocID == doc.DocID {
			r.docs[i] = &copied
			return nil
		}
	}
	r.docs = append(r.docs, &copied)
	return nil
}

// Store bundles the in-memory repositories sharing one outbox
type Store struct {
	Outbox     *OutboxRepository
	Orders     *OrderRepository
	Units      *ProductionUnitRepository
	Plans      *PlanRepository
	Parameters *ParametersRepository
	Documents  *TechnicalDocumentRepository
}

// NewStore creates empty repositories
func NewStore() *Store {
	ob := NewOutboxRepository()
	mapper := events.NewMapper()
	return &Store{
		Outbox:     ob,
		Orders:     NewOrderRepository(ob, mapper),
		Units:      NewProductionUnitRepository(),
		Plans:      NewPlanRepository(ob, mapper, 0),
		Parameters: NewParametersRepository(),
		Documents:  NewTechnicalDocumentRepository(),
	}
}
