package workflows_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.temporal.io/sdk/temporal"
	"go.temporal.io/sdk/testsuite"

	"github.com/mets-platform/mets/internal/workflows"
	metstemporal "github.com/mets-platform/mets/pkg/temporal"
)

// GeneratePlan is a mock activity for plan generation
func GeneratePlan(input workflows.GeneratePlanInput) (*workflows.PlanSummary, error) {
	return &workflows.PlanSummary{}, nil
}

// NotifyCapacityOverload is a mock activity for overload notification
func NotifyCapacityOverload(input workflows.CapacityOverloadInput) error {
	return nil
}

func newReplanningEnv(t *testing.T) *testsuite.TestWorkflowEnvironment {
	t.Helper()
	testSuite := &testsuite.WorkflowTestSuite{}
	env := testSuite.NewTestWorkflowEnvironment()
	env.RegisterWorkflow(workflows.ReplanningWorkflow)
	env.RegisterActivity(GeneratePlan)
	env.RegisterActivity(NotifyCapacityOverload)
	return env
}

func TestReplanningWorkflow_NoOverload(t *testing.T) {
	env := newReplanningEnv(t)

	env.OnActivity(GeneratePlan, mock.MatchedBy(func(in workflows.GeneratePlanInput) bool {
		return in.Trigger == "order_change" && in.TriggerID == "ORD-1"
	})).Return(&workflows.PlanSummary{PlanID: "PLN-0001", OrderCount: 4, TaskCount: 4}, nil).Once()

	env.ExecuteWorkflow(workflows.ReplanningWorkflow, workflows.ReplanningInput{
		Trigger:   "order_change",
		TriggerID: "ORD-1",
		OrderID:   "ORD-1",
	})

	require.True(t, env.IsWorkflowCompleted())
	require.NoError(t, env.GetWorkflowError())

	var result workflows.ReplanningResult
	require.NoError(t, env.GetWorkflowResult(&result))
	assert.Equal(t, "PLN-0001", result.PlanID)
	assert.Equal(t, 4, result.OrderCount)
	assert.Empty(t, result.OverloadedUnits)
	assert.False(t, result.Notified)

	env.AssertExpectations(t)
	env.AssertNotCalled(t, "NotifyCapacityOverload", mock.Anything)
}

func TestReplanningWorkflow_NotifiesOverload(t *testing.T) {
	env := newReplanningEnv(t)

	env.OnActivity(GeneratePlan, mock.Anything).Return(&workflows.PlanSummary{
		PlanID:          "PLN-0002",
		OrderCount:      12,
		OverloadedUnits: []string{"genel_montaj"},
	}, nil)
	env.OnActivity(NotifyCapacityOverload, mock.MatchedBy(func(in workflows.CapacityOverloadInput) bool {
		return in.PlanID == "PLN-0002" && len(in.OverloadedUnits) == 1 && in.OverloadedUnits[0] == "genel_montaj"
	})).Return(nil).Once()

	env.ExecuteWorkflow(workflows.ReplanningWorkflow, workflows.ReplanningInput{Trigger: "manual"})

	require.True(t, env.IsWorkflowCompleted())
	require.NoError(t, env.GetWorkflowError())

	var result workflows.ReplanningResult
	require.NoError(t, env.GetWorkflowResult(&result))
	assert.True(t, result.Notified)
	assert.Equal(t, []string{"genel_montaj"}, result.OverloadedUnits)
	env.AssertExpectations(t)
}

func TestReplanningWorkflow_NotificationFailureDoesNotFailRun(t *testing.T) {
	env := newReplanningEnv(t)

	env.OnActivity(GeneratePlan, mock.Anything).Return(&workflows.PlanSummary{
		PlanID:          "PLN-0003",
		OverloadedUnits: []string{"test"},
	}, nil)
	env.OnActivity(NotifyCapacityOverload, mock.Anything).Return(errors.New("audit sink unavailable"))

	env.ExecuteWorkflow(workflows.ReplanningWorkflow, workflows.ReplanningInput{Trigger: "manual"})

	require.True(t, env.IsWorkflowCompleted())
	require.NoError(t, env.GetWorkflowError())

	var result workflows.ReplanningResult
	require.NoError(t, env.GetWorkflowResult(&result))
	assert.Equal(t, "PLN-0003", result.PlanID)
	assert.False(t, result.Notified)
}

func TestReplanningWorkflow_GenerationFailed(t *testing.T) {
	env := newReplanningEnv(t)

	env.OnActivity(GeneratePlan, mock.Anything).Return(
		(*workflows.PlanSummary)(nil),
		temporal.NewNonRetryableApplicationError("no production units configured", metstemporal.NonRetryableConfigError, nil),
	).Once()

	env.ExecuteWorkflow(workflows.ReplanningWorkflow, workflows.ReplanningInput{Trigger: "manual"})

	require.True(t, env.IsWorkflowCompleted())
	workflowErr := env.GetWorkflowError()
	require.Error(t, workflowErr)
	assert.Contains(t, workflowErr.Error(), "no production units configured")
	env.AssertExpectations(t)
}
