package analyticsrun

import (
	"time"

	"go.temporal.io/sdk/temporal"
	"go.temporal.io/sdk/workflow"

	"github.com/yungbote/tenantsearch-backend/internal/domain"
)

// Workflow runs one scope rebuild. The activity holds the scope lock, so a
// lock held by a synchronous rebuild surfaces as a retryable failure here.
func Workflow(ctx workflow.Context, in Input) (Result, error) {
	ctx = workflow.WithActivityOptions(ctx, workflow.ActivityOptions{
		StartToCloseTimeout: 30 * time.Minute,
		HeartbeatTimeout:    time.Minute,
		RetryPolicy: &temporal.RetryPolicy{
			InitialInterval:    5 * time.Second,
			BackoffCoefficient: 2,
			MaximumInterval:    2 * time.Minute,
			MaximumAttempts:    5,
			NonRetryableErrorTypes: []string{
				string(domain.CodeValidation),
				string(domain.CodeIsolationViolation),
				string(domain.CodeDimensionMismatch),
			},
		},
	})

	var out Result
	if err := workflow.ExecuteActivity(ctx, ActivityRebuild, in).Get(ctx, &out); err != nil {
		workflow.GetLogger(ctx).Warn("analytics rebuild failed", "scope_key", in.Scope.Key(), "error", err)
		return out, err
	}
	return out, nil
}
