package analyticsrun

import (
	"context"
	"errors"

	enumspb "go.temporal.io/api/enums/v1"
	"go.temporal.io/api/serviceerror"
	temporalsdkclient "go.temporal.io/sdk/client"

	"github.com/yungbote/tenantsearch-backend/internal/domain"
	"github.com/yungbote/tenantsearch-backend/internal/services"
)

// WorkflowClient is the slice of the Temporal client the starter needs.
type WorkflowClient interface {
	ExecuteWorkflow(ctx context.Context, options temporalsdkclient.StartWorkflowOptions, workflow interface{}, args ...interface{}) (temporalsdkclient.WorkflowRun, error)
}

type Starter struct {
	client    WorkflowClient
	taskQueue string
}

var _ services.RebuildStarter = (*Starter)(nil)

func NewStarter(client WorkflowClient, taskQueue string) *Starter {
	return &Starter{client: client, taskQueue: taskQueue}
}

// StartRebuild starts the scope workflow. A run already open for the scope
// maps to CodeRebuildInProgress.
func (s *Starter) StartRebuild(ctx context.Context, in services.RebuildInput) (string, string, error) {
	const op = "analyticsrun.StartRebuild"
	scope := in.Scope.Normalize()
	id := WorkflowID(scope)
	run, err := s.client.ExecuteWorkflow(ctx, temporalsdkclient.StartWorkflowOptions{
		ID:                                       id,
		TaskQueue:                                s.taskQueue,
		WorkflowIDConflictPolicy:                 enumspb.WORKFLOW_ID_CONFLICT_POLICY_FAIL,
		WorkflowIDReusePolicy:                    enumspb.WORKFLOW_ID_REUSE_POLICY_ALLOW_DUPLICATE,
		WorkflowExecutionErrorWhenAlreadyStarted: true,
	}, WorkflowName, Input{Scope: scope, TopK: in.TopK})
	if err != nil {
		var started *serviceerror.WorkflowExecutionAlreadyStarted
		if errors.As(err, &started) {
			return id, "", domain.RebuildInProgress(op, scope.Key())
		}
		return id, "", domain.NewError(domain.CodeRetryable, op, "start workflow", err)
	}
	return run.GetID(), run.GetRunID(), nil
}
