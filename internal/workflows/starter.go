package workflows

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.temporal.io/sdk/client"

	"github.com/mets-platform/mets/internal/domain"
	"github.com/mets-platform/mets/pkg/cloudevents"
	"github.com/mets-platform/mets/pkg/kafka"
	"github.com/mets-platform/mets/pkg/logging"
	"github.com/mets-platform/mets/pkg/metrics"
	metstemporal "github.com/mets-platform/mets/pkg/temporal"
)

// WorkflowStarter starts workflow executions; *temporal.Client implements it
type WorkflowStarter interface {
	StartWorkflow(ctx context.Context, workflowID, taskQueue, workflowName string, args ...interface{}) (client.WorkflowRun, error)
}

// ReplanStarter hands replan requests to ReplanningWorkflow
type ReplanStarter struct {
	starter WorkflowStarter
	logger  *logging.Logger
	metrics *metrics.Metrics
}

// NewReplanStarter creates a new ReplanStarter
func NewReplanStarter(starter WorkflowStarter, logger *logging.Logger, m *metrics.Metrics) *ReplanStarter {
	return &ReplanStarter{
		starter: starter,
		logger:  logger,
		metrics: m,
	}
}

// ReplanWorkflowID returns the workflow id for a trigger. Requests with the
// same trigger id share one running execution.
func ReplanWorkflowID(triggerID string) string {
	if triggerID == "" {
		triggerID = uuid.New().String()
	}
	return "replan-" + triggerID
}

// RequestReplan starts ReplanningWorkflow for the trigger
func (s *ReplanStarter) RequestReplan(ctx context.Context, trigger, triggerID string) error {
	input := ReplanningInput{Trigger: trigger, TriggerID: triggerID}
	if trigger == domain.TriggerOrderChange {
		input.OrderID = triggerID
	}

	run, err := s.starter.StartWorkflow(ctx,
		ReplanWorkflowID(triggerID),
		metstemporal.TaskQueues.Planning,
		metstemporal.WorkflowNames.Replanning,
		input,
	)
	s.metrics.RecordWorkflowStarted(metstemporal.WorkflowNames.Replanning, err == nil)
	if err != nil {
		s.logger.WithError(err).Error("Failed to start replanning workflow", "trigger", trigger, "triggerId", triggerID)
		return fmt.Errorf("failed to start replanning workflow: %w", err)
	}

	s.logger.WorkflowStart(ctx, metstemporal.WorkflowNames.Replanning, run.GetID())
	return nil
}

// Replanner is satisfied by ReplanStarter and by the planning service
type Replanner interface {
	RequestReplan(ctx context.Context, trigger, triggerID string) error
}

// OrderEventHandler requests a replan for every order event. Events that
// carry no order id are skipped.
func OrderEventHandler(replanner Replanner, logger *logging.Logger) kafka.EventHandler {
	return func(ctx context.Context, event *cloudevents.METSCloudEvent) error {
		orderID := event.OrderID
		if orderID == "" {
			var data struct {
				OrderID string `json:"orderId"`
			}
			if err := event.DecodeData(&data); err == nil {
				orderID = data.OrderID
			}
		}
		if orderID == "" {
			logger.Warn("Skipping order event without order id", "eventType", event.Type, "eventId", event.ID)
			return nil
		}

		if err := replanner.RequestReplan(ctx, domain.TriggerOrderChange, orderID); err != nil {
			return fmt.Errorf("failed to request replan for order %s: %w", orderID, err)
		}
		return nil
	}
}
