package analyticsrun

import (
	"context"
	"fmt"
	"time"

	"go.temporal.io/sdk/activity"
	"go.temporal.io/sdk/temporal"

	"github.com/yungbote/tenantsearch-backend/internal/domain"
	"github.com/yungbote/tenantsearch-backend/internal/observability"
	"github.com/yungbote/tenantsearch-backend/internal/platform/logger"
	"github.com/yungbote/tenantsearch-backend/internal/services"
)

type Activities struct {
	Log       *logger.Logger
	Analytics services.AnalyticsService
	Metrics   *observability.Metrics
}

// Rebuild runs the synchronous rebuild path inside the activity. Errors carry
// the domain code as their Temporal error type so the retry policy can skip
// the permanent ones.
func (a *Activities) Rebuild(ctx context.Context, in Input) (Result, error) {
	var out Result
	if a == nil || a.Analytics == nil {
		return out, temporal.NewNonRetryableApplicationError("analyticsrun: activity not configured", string(domain.CodeInternal), nil)
	}
	started := time.Now()
	stopHB := startHeartbeat(ctx)
	defer stopHB()

	res, err := a.Analytics.Rebuild(ctx, services.RebuildInput{Scope: in.Scope, TopK: in.TopK})
	status := "ok"
	if err != nil {
		status = "error"
	}
	a.Metrics.ObserveActivity(ActivityRebuild, status, time.Since(started))
	if err != nil {
		code := domain.CodeOf(err)
		if code == "" {
			code = domain.CodeInternal
		}
		a.Log.Warn("rebuild activity failed", "scope_key", in.Scope.Key(), "attempt", activity.GetInfo(ctx).Attempt, "error", err)
		return out, temporal.NewApplicationError(fmt.Sprintf("rebuild %s: %v", in.Scope.Key(), err), string(code))
	}
	out.Records = res.Records
	out.Distinct = res.Distinct
	out.Clusters = res.Clusters
	out.TopQueries = res.TopQueries
	out.EmbeddingKind = res.EmbeddingKind
	out.FinishedAt = time.Now().UTC()
	return out, nil
}

func startHeartbeat(ctx context.Context) func() {
	done := make(chan struct{})
	go func() {
		t := time.NewTicker(10 * time.Second)
		defer t.Stop()
		for {
			select {
			case <-done:
				return
			case <-ctx.Done():
				return
			case <-t.C:
				activity.RecordHeartbeat(ctx)
			}
		}
	}()
	return func() { close(done) }
}
