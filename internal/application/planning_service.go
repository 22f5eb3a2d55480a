package application

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"github.com/mets-platform/mets/internal/domain"
	"github.com/mets-platform/mets/internal/planning"
	"github.com/mets-platform/mets/pkg/errors"
	"github.com/mets-platform/mets/pkg/logging"
	"github.com/mets-platform/mets/pkg/metrics"
	"github.com/mets-platform/mets/pkg/tracing"
)

// PlanningApplicationService runs the planning engine over the stored
// orders and manages production units and planning parameters.
// Plan generation is serialized; reads are not.
type PlanningApplicationService struct {
	mu sync.Mutex

	orderRepo  domain.OrderRepository
	unitRepo   domain.ProductionUnitRepository
	planRepo   domain.PlanRepository
	paramsRepo domain.ParametersRepository
	defaults   planning.Parameters

	logger  *logging.Logger
	metrics *metrics.Metrics
	tracer  trace.Tracer
	clock   func() time.Time
}

// NewPlanningApplicationService creates a new PlanningApplicationService.
// defaults are used until parameters are saved through the service.
func NewPlanningApplicationService(
	orderRepo domain.OrderRepository,
	unitRepo domain.ProductionUnitRepository,
	planRepo domain.PlanRepository,
	paramsRepo domain.ParametersRepository,
	defaults planning.Parameters,
	logger *logging.Logger,
	m *metrics.Metrics,
) *PlanningApplicationService {
	return &PlanningApplicationService{
		orderRepo:  orderRepo,
		unitRepo:   unitRepo,
		planRepo:   planRepo,
		paramsRepo: paramsRepo,
		defaults:   defaults,
		logger:     logger,
		metrics:    m,
		tracer:     otel.Tracer("mets/planning"),
		clock:      func() time.Time { return time.Now().UTC() },
	}
}

// GeneratePlan plans every active order in FIFO order, stores the plan
// and writes the delivery estimates back to the orders.
func (s *PlanningApplicationService) GeneratePlan(ctx context.Context, cmd GeneratePlanCommand) (result *PlanDTO, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ctx, span := s.tracer.Start(ctx, "planning.GeneratePlan")
	defer func() { tracing.EndWithResult(span, err) }()

	started := time.Now()
	now := s.clock()
	if cmd.Now != nil {
		now = *cmd.Now
	}
	startOfDay := now
	if cmd.StartOfDay != nil {
		startOfDay = *cmd.StartOfDay
	}

	engine, err := s.buildEngine(ctx)
	if err != nil {
		return nil, err
	}

	orders, err := s.orderRepo.FindActive(ctx)
	if err != nil {
		s.logger.WithError(err).Error("Failed to load active orders")
		return nil, fmt.Errorf("failed to load active orders: %w", err)
	}

	planOrders := make([]planning.Order, 0, len(orders))
	for _, o := range orders {
		planOrders = append(planOrders, o.PlanningOrder())
	}

	plan := engine.Plan(planOrders, startOfDay, now)
	snapshot := domain.NewPlanSnapshot(plan, len(planOrders), cmd.Trigger)

	span.SetAttributes(tracing.PlanSpanAttributes(snapshot.PlanID, snapshot.OrderCount,
		string(plan.Mode), string(plan.WeekendPolicy))...)

	// Estimates are written before the plan becomes latest. A failed run
	// stores no plan; the next run recomputes and rewrites every estimate.
	if err := s.orderRepo.UpdateEstimatedDeliveries(ctx, plan.DeliveryEstimates); err != nil {
		s.logger.WithError(err).Error("Failed to update delivery estimates", "planId", snapshot.PlanID)
		return nil, fmt.Errorf("failed to update delivery estimates: %w", err)
	}

	if err := s.planRepo.Save(ctx, snapshot); err != nil {
		s.logger.WithError(err).Error("Failed to save plan", "planId", snapshot.PlanID)
		return nil, fmt.Errorf("failed to save plan: %w", err)
	}

	elapsed := time.Since(started)
	s.metrics.RecordPlanGenerated(string(plan.Mode), string(plan.WeekendPolicy), len(plan.Schedule),
		planHorizon(plan), elapsed, unitSamples(plan.CapacityLoad))
	s.logger.PlanGenerated(ctx, snapshot.PlanID, snapshot.OrderCount, snapshot.OverloadedUnits, elapsed)

	return ToPlanDTO(snapshot), nil
}

// RequestReplan generates a plan inline. It lets the service stand in for
// the replanning workflow when no workflow engine is configured.
func (s *PlanningApplicationService) RequestReplan(ctx context.Context, trigger, triggerID string) error {
	_, err := s.GeneratePlan(ctx, GeneratePlanCommand{Trigger: trigger, TriggerID: triggerID})
	return err
}

// GetLatestPlan returns the most recent plan
func (s *PlanningApplicationService) GetLatestPlan(ctx context.Context) (*PlanDTO, error) {
	snapshot, err := s.latest(ctx)
	if err != nil {
		return nil, err
	}
	return ToPlanDTO(snapshot), nil
}

// GetCapacityLoad returns the capacity load of the most recent plan
func (s *PlanningApplicationService) GetCapacityLoad(ctx context.Context) (*CapacityDTO, error) {
	snapshot, err := s.latest(ctx)
	if err != nil {
		return nil, err
	}
	return ToCapacityDTO(snapshot), nil
}

// GetDeliveryEstimate returns the planned completion of one order
func (s *PlanningApplicationService) GetDeliveryEstimate(ctx context.Context, orderID string) (*DeliveryEstimateDTO, error) {
	snapshot, err := s.latest(ctx)
	if err != nil {
		return nil, err
	}

	at, ok := snapshot.DeliveryEstimate(orderID)
	if !ok {
		return nil, toAppError(domain.ErrDeliveryNotFound).WithDetail("orderId", orderID)
	}

	dto := &DeliveryEstimateDTO{
		OrderID:           orderID,
		PlanID:            snapshot.PlanID,
		EstimatedDelivery: at,
	}
	if task, ok := snapshot.Task(orderID); ok {
		dto.Task = &task
	}
	return dto, nil
}

// PreviewPlan runs the engine over caller-supplied orders with the current
// parameters and units. Nothing is stored. Order ids must be unique so every
// task has its own delivery estimate.
func (s *PlanningApplicationService) PreviewPlan(ctx context.Context, cmd PreviewPlanCommand) (*planning.Plan, error) {
	seen := make(map[string]bool, len(cmd.Orders))
	for _, o := range cmd.Orders {
		if seen[o.ID] {
			return nil, errors.ErrValidation(fmt.Sprintf("duplicate order id %q", o.ID))
		}
		seen[o.ID] = true
	}

	engine, err := s.buildEngine(ctx)
	if err != nil {
		return nil, err
	}

	now := s.clock()
	if cmd.Now != nil {
		now = *cmd.Now
	}
	startOfDay := now
	if cmd.StartOfDay != nil {
		startOfDay = *cmd.StartOfDay
	}

	plan := normalizePlan(*engine.Plan(cmd.Orders, startOfDay, now))
	return &plan, nil
}

// ListProductionUnits returns the configured units
func (s *PlanningApplicationService) ListProductionUnits(ctx context.Context) ([]ProductionUnitDTO, error) {
	units, err := s.unitRepo.FindAll(ctx)
	if err != nil {
		s.logger.WithError(err).Error("Failed to list production units")
		return nil, fmt.Errorf("failed to list production units: %w", err)
	}

	out := make([]ProductionUnitDTO, 0, len(units))
	for _, u := range units {
		out = append(out, ToProductionUnitDTO(u))
	}
	return out, nil
}

// UpsertProductionUnit creates or updates a unit
func (s *PlanningApplicationService) UpsertProductionUnit(ctx context.Context, cmd UpsertProductionUnitCommand) (*ProductionUnitDTO, error) {
	unit, err := domain.NewProductionUnit(cmd.UnitID, cmd.Name, cmd.Capacity)
	if err != nil {
		return nil, toAppError(err)
	}

	if err := s.unitRepo.Save(ctx, unit); err != nil {
		s.logger.WithError(err).Error("Failed to save production unit", "unitId", cmd.UnitID)
		return nil, fmt.Errorf("failed to save production unit: %w", err)
	}

	s.logger.Audit(ctx, "upserted", "production_unit", unit.UnitID, map[string]any{
		"name":     unit.Name,
		"capacity": unit.Capacity,
	})

	dto := ToProductionUnitDTO(unit)
	return &dto, nil
}

// GetPlanningParameters returns the parameters in effect
func (s *PlanningApplicationService) GetPlanningParameters(ctx context.Context) (*planning.Parameters, error) {
	params, err := s.parameters(ctx)
	if err != nil {
		return nil, err
	}
	return &params, nil
}

// UpdatePlanningParameters validates the parameters against the current
// units by building a throw-away engine, then stores them.
func (s *PlanningApplicationService) UpdatePlanningParameters(ctx context.Context, cmd UpdatePlanningParametersCommand) (*planning.Parameters, error) {
	units, err := s.units(ctx)
	if err != nil {
		return nil, err
	}

	params := cmd.Parameters
	params.Units = nil
	if _, err := planning.NewEngine(params, units); err != nil {
		return nil, errors.ErrUnprocessable(err.Error()).Wrap(err)
	}

	params.UpdatedAt = s.clock()
	if err := s.paramsRepo.Save(ctx, params); err != nil {
		s.logger.WithError(err).Error("Failed to save planning parameters")
		return nil, fmt.Errorf("failed to save planning parameters: %w", err)
	}

	s.metrics.RecordParameterUpdate()
	s.logger.Audit(ctx, "updated", "planning_parameters", "default", map[string]any{
		"mode":          string(params.Mode),
		"weekendPolicy": string(params.WeekendPolicy),
	})

	return &params, nil
}

func (s *PlanningApplicationService) latest(ctx context.Context) (*domain.PlanSnapshot, error) {
	snapshot, err := s.planRepo.FindLatest(ctx)
	if err != nil {
		s.logger.WithError(err).Error("Failed to load latest plan")
		return nil, fmt.Errorf("failed to load latest plan: %w", err)
	}
	if snapshot == nil {
		return nil, toAppError(domain.ErrPlanNotFound)
	}
	return snapshot, nil
}

func (s *PlanningApplicationService) parameters(ctx context.Context) (planning.Parameters, error) {
	stored, err := s.paramsRepo.Get(ctx)
	if err != nil {
		s.logger.WithError(err).Error("Failed to load planning parameters")
		return planning.Parameters{}, fmt.Errorf("failed to load planning parameters: %w", err)
	}
	if stored == nil {
		return s.defaults, nil
	}
	return *stored, nil
}

func (s *PlanningApplicationService) units(ctx context.Context) ([]planning.ProductionUnit, error) {
	units, err := s.unitRepo.FindAll(ctx)
	if err != nil {
		s.logger.WithError(err).Error("Failed to load production units")
		return nil, fmt.Errorf("failed to load production units: %w", err)
	}
	return domain.ToPlanningUnits(units), nil
}

func (s *PlanningApplicationService) buildEngine(ctx context.Context) (*planning.Engine, error) {
	params, err := s.parameters(ctx)
	if err != nil {
		return nil, err
	}
	units, err := s.units(ctx)
	if err != nil {
		return nil, err
	}

	engine, err := planning.NewEngine(params, units)
	if err != nil {
		s.logger.WithError(err).Error("Planning configuration is invalid")
		return nil, toAppError(err)
	}
	return engine, nil
}

// planHorizon is the span from the first task start to the last task end
func planHorizon(plan *planning.Plan) time.Duration {
	if len(plan.Schedule) == 0 {
		return 0
	}
	first, last := plan.Schedule[0].Start, plan.Schedule[0].End
	for _, t := range plan.Schedule[1:] {
		if t.Start.Before(first) {
			first = t.Start
		}
		if t.End.After(last) {
			last = t.End
		}
	}
	return last.Sub(first)
}

func unitSamples(load planning.CapacityLoad) []metrics.UnitSample {
	samples := make([]metrics.UnitSample, 0, len(load.Units))
	for _, u := range load.Units {
		samples = append(samples, metrics.UnitSample{
			UnitID:      u.UnitID,
			LoadHours:   u.LoadHours,
			Utilization: u.Utilization,
			Overloaded:  u.Overloaded,
		})
	}
	return samples
}
