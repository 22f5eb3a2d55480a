// Package workflows holds the Temporal workflows of the planning service
// and the helpers that start them.
package workflows

import (
	"fmt"

	"go.temporal.io/sdk/workflow"

	metstemporal "github.com/mets-platform/mets/pkg/temporal"
)

// ReplanningInput is the input of ReplanningWorkflow
type ReplanningInput struct {
	Trigger   string `json:"trigger"`
	TriggerID string `json:"triggerId,omitempty"`
	OrderID   string `json:"orderId,omitempty"`
}

// ReplanningResult is the outcome of one replanning run
type ReplanningResult struct {
	PlanID          string   `json:"planId"`
	OrderCount      int      `json:"orderCount"`
	OverloadedUnits []string `json:"overloadedUnits"`
	Notified        bool     `json:"notified"`
}

// GeneratePlanInput is the input of the GeneratePlan activity
type GeneratePlanInput struct {
	Trigger   string `json:"trigger"`
	TriggerID string `json:"triggerId,omitempty"`
}

// PlanSummary is what the GeneratePlan activity hands back to the workflow
type PlanSummary struct {
	PlanID          string   `json:"planId"`
	OrderCount      int      `json:"orderCount"`
	TaskCount       int      `json:"taskCount"`
	OverloadedUnits []string `json:"overloadedUnits"`
}

// CapacityOverloadInput is the input of the NotifyCapacityOverload activity
type CapacityOverloadInput struct {
	PlanID          string   `json:"planId"`
	Trigger         string   `json:"trigger"`
	OverloadedUnits []string `json:"overloadedUnits"`
}

// ReplanningWorkflow rebuilds the production plan over the active orders.
// A failed overload notification is logged and does not fail the run.
func ReplanningWorkflow(ctx workflow.Context, input ReplanningInput) (*ReplanningResult, error) {
	logger := workflow.GetLogger(ctx)
	logger.Info("Starting replanning workflow", "trigger", input.Trigger, "triggerId", input.TriggerID)

	ctx = workflow.WithActivityOptions(ctx, metstemporal.DefaultActivityOptions())

	var summary PlanSummary
	err := workflow.ExecuteActivity(ctx, metstemporal.ActivityNames.GeneratePlan, GeneratePlanInput{
		Trigger:   input.Trigger,
		TriggerID: input.TriggerID,
	}).Get(ctx, &summary)
	if err != nil {
		logger.Error("Plan generation failed", "trigger", input.Trigger, "error", err)
		return nil, fmt.Errorf("plan generation failed: %w", err)
	}

	result := &ReplanningResult{
		PlanID:          summary.PlanID,
		OrderCount:      summary.OrderCount,
		OverloadedUnits: summary.OverloadedUnits,
	}
	if result.OverloadedUnits == nil {
		result.OverloadedUnits = []string{}
	}

	if len(summary.OverloadedUnits) > 0 {
		err = workflow.ExecuteActivity(ctx, metstemporal.ActivityNames.NotifyCapacityOverload, CapacityOverloadInput{
			PlanID:          summary.PlanID,
			Trigger:         input.Trigger,
			OverloadedUnits: summary.OverloadedUnits,
		}).Get(ctx, nil)
		if err != nil {
			logger.Warn("Capacity overload notification failed", "planId", summary.PlanID, "error", err)
		} else {
			result.Notified = true
		}
	}

	logger.Info("Replanning workflow completed",
		"planId", result.PlanID,
		"orderCount", result.OrderCount,
		"overloadedUnits", result.OverloadedUnits,
	)
	return result, nil
}
