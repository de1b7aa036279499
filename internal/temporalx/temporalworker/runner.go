package temporalworker

import (
	"context"
	"errors"
	"fmt"

	"go.temporal.io/api/serviceerror"
	"go.temporal.io/sdk/activity"
	temporalsdkclient "go.temporal.io/sdk/client"
	"go.temporal.io/sdk/worker"
	"go.temporal.io/sdk/workflow"

	"github.com/yungbote/tenantsearch-backend/internal/observability"
	"github.com/yungbote/tenantsearch-backend/internal/platform/logger"
	"github.com/yungbote/tenantsearch-backend/internal/services"
	"github.com/yungbote/tenantsearch-backend/internal/temporalx"
	"github.com/yungbote/tenantsearch-backend/internal/temporalx/analyticsrun"
)

// Runner polls the analytics task queue and runs scope rebuilds.
type Runner struct {
	log       *logger.Logger
	tc        temporalsdkclient.Client
	cfg       temporalx.Config
	analytics services.AnalyticsService
	metrics   *observability.Metrics
}

func NewRunner(
	log *logger.Logger,
	tc temporalsdkclient.Client,
	cfg temporalx.Config,
	analytics services.AnalyticsService,
	metrics *observability.Metrics,
) (*Runner, error) {
	if tc == nil {
		return nil, fmt.Errorf("temporal client is not configured")
	}
	if analytics == nil {
		return nil, fmt.Errorf("temporal worker missing analytics service")
	}
	return &Runner{
		log:       log.With("component", "TemporalWorker"),
		tc:        tc,
		cfg:       cfg,
		analytics: analytics,
		metrics:   metrics,
	}, nil
}

// Start retries worker startup under temporalx.Retry. The worker stops
// when ctx is done.
func (r *Runner) Start(ctx context.Context) error {
	if r == nil || r.tc == nil {
		return fmt.Errorf("temporal worker not initialized")
	}
	cfg := r.cfg
	r.log.Info("starting temporal worker", "address", cfg.Address, "namespace", cfg.Namespace, "task_queue", cfg.TaskQueue)

	return temporalx.Retry(ctx, r.log, cfg, "start worker", func(ctx context.Context, attempt int) error {
		w := r.newWorker()
		err := w.Start()
		if err == nil {
			go func() {
				<-ctx.Done()
				w.Stop()
			}()
			r.log.Info("temporal worker started", "task_queue", cfg.TaskQueue, "attempts", attempt)
			return nil
		}
		w.Stop()
		var notFound *serviceerror.NamespaceNotFound
		if errors.As(err, &notFound) && cfg.AutoRegisterNamespace {
			if nsErr := temporalx.EnsureNamespace(ctx, r.log, cfg); nsErr != nil {
				r.log.Warn("namespace ensure failed", "namespace", cfg.Namespace, "error", nsErr)
			}
		}
		return err
	})
}

func (r *Runner) newWorker() worker.Worker {
	w := worker.New(r.tc, r.cfg.TaskQueue, worker.Options{
		MaxConcurrentActivityExecutionSize:     r.cfg.WorkerConcurrency,
		MaxConcurrentWorkflowTaskExecutionSize: r.cfg.WorkerConcurrency,
	})
	acts := &analyticsrun.Activities{Log: r.log, Analytics: r.analytics, Metrics: r.metrics}
	w.RegisterWorkflowWithOptions(analyticsrun.Workflow, workflow.RegisterOptions{Name: analyticsrun.WorkflowName})
	w.RegisterActivityWithOptions(acts.Rebuild, activity.RegisterOptions{Name: analyticsrun.ActivityRebuild})
	return w
}
