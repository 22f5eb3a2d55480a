// Package activities holds the Temporal activities of the planning worker
package activities

import (
	"context"
	"time"

	"go.temporal.io/sdk/activity"
	"go.temporal.io/sdk/temporal"

	"github.com/mets-platform/mets/internal/application"
	"github.com/mets-platform/mets/internal/workflows"
	"github.com/mets-platform/mets/pkg/errors"
	"github.com/mets-platform/mets/pkg/logging"
	"github.com/mets-platform/mets/pkg/metrics"
	metstemporal "github.com/mets-platform/mets/pkg/temporal"
)

// PlanGenerator runs the planning engine and stores the plan
type PlanGenerator interface {
	GeneratePlan(ctx context.Context, cmd application.GeneratePlanCommand) (*application.PlanDTO, error)
}

// PlanningActivities contains the activities of ReplanningWorkflow
type PlanningActivities struct {
	planner PlanGenerator
	logger  *logging.Logger
	metrics *metrics.Metrics
}

// NewPlanningActivities creates a new PlanningActivities instance
func NewPlanningActivities(planner PlanGenerator, logger *logging.Logger, m *metrics.Metrics) *PlanningActivities {
	return &PlanningActivities{
		planner: planner,
		logger:  logger.WithComponent("activities"),
		metrics: m,
	}
}

// GeneratePlan plans the active orders. An invalid planning configuration
// fails without retries.
func (a *PlanningActivities) GeneratePlan(ctx context.Context, input workflows.GeneratePlanInput) (*workflows.PlanSummary, error) {
	logger := activity.GetLogger(ctx)
	logger.Info("Generating plan", "trigger", input.Trigger, "triggerId", input.TriggerID)

	started := time.Now()
	plan, err := a.planner.GeneratePlan(ctx, application.GeneratePlanCommand{
		Trigger:   input.Trigger,
		TriggerID: input.TriggerID,
	})
	a.metrics.RecordActivityCompleted(metstemporal.ActivityNames.GeneratePlan, err == nil, time.Since(started))
	if err != nil {
		logger.Error("Failed to generate plan", "trigger", input.Trigger, "error", err)

		if appErr, ok := errors.AsAppError(err); ok && appErr.Code == errors.CodeUnprocessable {
			return nil, temporal.NewNonRetryableApplicationError(appErr.Message, metstemporal.NonRetryableConfigError, err)
		}
		return nil, err
	}

	summary := &workflows.PlanSummary{
		PlanID:          plan.PlanID,
		OrderCount:      plan.OrderCount,
		TaskCount:       len(plan.Plan.Schedule),
		OverloadedUnits: plan.OverloadedUnits,
	}
	logger.Info("Plan generated", "planId", summary.PlanID, "orderCount", summary.OrderCount, "taskCount", summary.TaskCount)
	return summary, nil
}

// NotifyCapacityOverload raises an audit record for each overloaded unit.
// The capacity-overloaded events themselves are published from the outbox
// when the plan is stored.
func (a *PlanningActivities) NotifyCapacityOverload(ctx context.Context, input workflows.CapacityOverloadInput) error {
	logger := activity.GetLogger(ctx)
	logger.Warn("Production units over capacity", "planId", input.PlanID, "units", input.OverloadedUnits)

	started := time.Now()
	for _, unitID := range input.OverloadedUnits {
		a.logger.Audit(ctx, "capacity_overloaded", "production_unit", unitID, map[string]any{
			"planId":  input.PlanID,
			"trigger": input.Trigger,
		})
	}
	a.metrics.RecordActivityCompleted(metstemporal.ActivityNames.NotifyCapacityOverload, true, time.Since(started))
	return nil
}
