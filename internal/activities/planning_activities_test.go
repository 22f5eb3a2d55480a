package activities

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.temporal.io/sdk/temporal"
	"go.temporal.io/sdk/testsuite"

	"github.com/mets-platform/mets/internal/application"
	"github.com/mets-platform/mets/internal/infrastructure/memory"
	"github.com/mets-platform/mets/internal/infrastructure/seed"
	"github.com/mets-platform/mets/internal/planning"
	"github.com/mets-platform/mets/internal/workflows"
	"github.com/mets-platform/mets/pkg/logging"
	"github.com/mets-platform/mets/pkg/metrics"
	metstemporal "github.com/mets-platform/mets/pkg/temporal"
)

func newPlanningActivities(t *testing.T, withReferenceData bool) (*PlanningActivities, *memory.Store) {
	t.Helper()
	ctx := context.Background()
	store := memory.NewStore()

	if withReferenceData {
		loader := seed.NewLoader(store.Orders, store.Units, store.Documents, logging.NewNop())
		require.NoError(t, loader.EnsureReferenceData(ctx))
		require.NoError(t, loader.LoadDemoOrders(ctx))
	}

	m := metrics.New(metrics.DefaultConfig("test"))
	service := application.NewPlanningApplicationService(
		store.Orders, store.Units, store.Plans, store.Parameters,
		planning.DefaultParameters(), logging.NewNop(), m,
	)
	return NewPlanningActivities(service, logging.NewNop(), m), store
}

func TestGeneratePlan_Success(t *testing.T) {
	testSuite := &testsuite.WorkflowTestSuite{}
	env := testSuite.NewTestActivityEnvironment()

	acts, store := newPlanningActivities(t, true)
	env.RegisterActivity(acts)

	val, err := env.ExecuteActivity(acts.GeneratePlan, workflows.GeneratePlanInput{Trigger: "order_change", TriggerID: "ORD-0424A003"})
	require.NoError(t, err)

	var summary workflows.PlanSummary
	require.NoError(t, val.Get(&summary))
	assert.NotEmpty(t, summary.PlanID)
	assert.Equal(t, 9, summary.OrderCount)
	assert.Equal(t, 9, summary.TaskCount)

	latest, err := store.Plans.FindLatest(context.Background())
	require.NoError(t, err)
	require.NotNil(t, latest)
	assert.Equal(t, summary.PlanID, latest.PlanID)
	assert.Equal(t, "order_change", latest.Trigger)
}

func TestGeneratePlan_ConfigurationErrorIsNotRetried(t *testing.T) {
	testSuite := &testsuite.WorkflowTestSuite{}
	env := testSuite.NewTestActivityEnvironment()

	acts, _ := newPlanningActivities(t, false)
	env.RegisterActivity(acts)

	_, err := env.ExecuteActivity(acts.GeneratePlan, workflows.GeneratePlanInput{Trigger: "manual"})
	require.Error(t, err)

	var appErr *temporal.ApplicationError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, metstemporal.NonRetryableConfigError, appErr.Type())
	assert.True(t, appErr.NonRetryable())
}

func TestNotifyCapacityOverload(t *testing.T) {
	testSuite := &testsuite.WorkflowTestSuite{}
	env := testSuite.NewTestActivityEnvironment()

	acts, _ := newPlanningActivities(t, false)
	env.RegisterActivity(acts)

	_, err := env.ExecuteActivity(acts.NotifyCapacityOverload, workflows.CapacityOverloadInput{
		PlanID:          "PLN-0001",
		Trigger:         "manual",
		OverloadedUnits: []string{"genel_montaj", "test"},
	})
	require.NoError(t, err)
}
