package services

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/yungbote/tenantsearch-backend/internal/data/repos"
	"github.com/yungbote/tenantsearch-backend/internal/data/tenantdb"
	"github.com/yungbote/tenantsearch-backend/internal/domain"
	"github.com/yungbote/tenantsearch-backend/internal/modules/analytics"
	"github.com/yungbote/tenantsearch-backend/internal/observability"
	"github.com/yungbote/tenantsearch-backend/internal/platform/logger"
)

type RebuildInput struct {
	Scope domain.AnalyticsScope `json:"scope"`
	TopK  int                   `json:"top_k"`
	// Async hands the rebuild to the workflow engine when one is configured.
	Async bool `json:"async"`
}

type RebuildResult struct {
	Scope         domain.AnalyticsScope `json:"scope"`
	Async         bool                  `json:"async"`
	WorkflowID    string                `json:"workflow_id,omitempty"`
	RunID         string                `json:"run_id,omitempty"`
	Records       int                   `json:"records"`
	Distinct      int                   `json:"distinct_queries"`
	Clusters      int                   `json:"clusters"`
	TopQueries    int                   `json:"top_queries"`
	EmbeddingKind domain.EmbeddingKind  `json:"embedding_kind,omitempty"`
}

// ClusterView is one cluster with its member queries, as read back from
// the per-query assignment rows.
type ClusterView struct {
	ClusterID     int                  `json:"cluster_id"`
	Label         string               `json:"label"`
	Confidence    float64              `json:"confidence"`
	MemberCount   int                  `json:"member_count"`
	Samples       []string             `json:"samples"`
	Queries       []string             `json:"queries"`
	EmbeddingKind domain.EmbeddingKind `json:"embedding_kind,omitempty"`
}

// RebuildStarter starts a rebuild out of process. A duplicate start for a
// running scope returns CodeRebuildInProgress.
type RebuildStarter interface {
	StartRebuild(ctx context.Context, in RebuildInput) (workflowID, runID string, err error)
}

type AnalyticsService interface {
	Rebuild(ctx context.Context, in RebuildInput) (RebuildResult, error)
	TopQueries(ctx context.Context, scope domain.AnalyticsScope) ([]*domain.TopQueryRow, error)
	Clusters(ctx context.Context, scope domain.AnalyticsScope) ([]ClusterView, error)
}

type AnalyticsServiceConfig struct {
	LockTTL time.Duration
}

type analyticsService struct {
	log     *logger.Logger
	binder  *tenantdb.Binder
	repos   repos.Set
	uc      analytics.Usecases
	locker  ScopeLocker
	starter RebuildStarter
	metrics *observability.Metrics
	cfg     AnalyticsServiceConfig
}

func NewAnalyticsService(
	baseLog *logger.Logger,
	binder *tenantdb.Binder,
	repoSet repos.Set,
	uc analytics.Usecases,
	locker ScopeLocker,
	starter RebuildStarter,
	metrics *observability.Metrics,
	cfg AnalyticsServiceConfig,
) AnalyticsService {
	if locker == nil {
		locker = NewMemoryScopeLocker()
	}
	if cfg.LockTTL <= 0 {
		cfg.LockTTL = DefaultScopeLockTTL
	}
	return &analyticsService{
		log:     baseLog.With("service", "AnalyticsService"),
		binder:  binder,
		repos:   repoSet,
		uc:      uc,
		locker:  locker,
		starter: starter,
		metrics: metrics,
		cfg:     cfg,
	}
}

func (s *analyticsService) Rebuild(ctx context.Context, in RebuildInput) (RebuildResult, error) {
	const op = "AnalyticsService.Rebuild"
	scope := in.Scope.Normalize()
	res := RebuildResult{Scope: scope}
	if err := scope.Validate(op); err != nil {
		return res, err
	}
	in.Scope = scope

	if in.Async && s.starter != nil {
		wfID, runID, err := s.starter.StartRebuild(ctx, in)
		if err != nil {
			s.metrics.ObserveRebuild(string(statusOf(err)), 0)
			return res, err
		}
		res.Async, res.WorkflowID, res.RunID = true, wfID, runID
		return res, nil
	}

	started := time.Now()
	work, release, err := holdScope(ctx, s.log, s.locker, scope.Key(), s.cfg.LockTTL)
	if err != nil {
		s.metrics.ObserveRebuild(string(statusOf(err)), 0)
		return res, err
	}
	defer release()

	out, err := s.uc.Rebuild(work, analytics.RebuildInput{Scope: scope, TopK: in.TopK})
	if err != nil && ctx.Err() == nil {
		// A lost lease cancels work; report why instead of context.Canceled.
		if cause := context.Cause(work); cause != nil && cause != context.Canceled {
			err = cause
		}
	}
	if err != nil {
		s.metrics.ObserveRebuild(string(statusOf(err)), time.Since(started))
		s.log.Warn("analytics rebuild failed", "scope_key", scope.Key(), "error", err)
		return res, err
	}
	s.metrics.ObserveRebuild("ok", time.Since(started))
	res.Records = out.Records
	res.Distinct = out.Distinct
	res.Clusters = out.Clusters
	res.TopQueries = out.TopQueries
	res.EmbeddingKind = out.EmbeddingKind
	return res, nil
}

func (s *analyticsService) TopQueries(ctx context.Context, scope domain.AnalyticsScope) ([]*domain.TopQueryRow, error) {
	const op = "AnalyticsService.TopQueries"
	scope = scope.Normalize()
	if err := scope.Validate(op); err != nil {
		return nil, err
	}
	var rows []*domain.TopQueryRow
	err := s.binder.Acquire(ctx, scope.TenantID, func(sc *tenantdb.Scope) error {
		var err error
		rows, err = s.repos.TopQueries.ListByScope(sc, scope)
		return err
	})
	if err != nil {
		return nil, domain.Wrap(domain.CodeStorage, op, err)
	}
	if rows == nil {
		rows = []*domain.TopQueryRow{}
	}
	return rows, nil
}

func (s *analyticsService) Clusters(ctx context.Context, scope domain.AnalyticsScope) ([]ClusterView, error) {
	const op = "AnalyticsService.Clusters"
	scope = scope.Normalize()
	if err := scope.Validate(op); err != nil {
		return nil, err
	}
	var rows []*domain.QueryClusterAssignment
	err := s.binder.Acquire(ctx, scope.TenantID, func(sc *tenantdb.Scope) error {
		var err error
		rows, err = s.repos.Clusters.ListByScope(sc, scope)
		return err
	})
	if err != nil {
		return nil, domain.Wrap(domain.CodeStorage, op, err)
	}
	return groupClusters(op, rows)
}

// groupClusters folds per-query rows into clusters ordered by cluster id.
// Rows arrive ordered by cluster id then insertion.
func groupClusters(op string, rows []*domain.QueryClusterAssignment) ([]ClusterView, error) {
	out := []ClusterView{}
	index := map[int]int{}
	for _, r := range rows {
		i, ok := index[r.ClusterID]
		if !ok {
			v := ClusterView{
				ClusterID:     r.ClusterID,
				Label:         r.Label,
				Confidence:    r.Confidence,
				MemberCount:   r.MemberCount,
				Samples:       []string{},
				Queries:       []string{},
				EmbeddingKind: r.EmbeddingKind,
			}
			if len(r.Samples) > 0 {
				if err := json.Unmarshal(r.Samples, &v.Samples); err != nil {
					return nil, domain.NewError(domain.CodeStorage, op, fmt.Sprintf("cluster %d has corrupt samples", r.ClusterID), err)
				}
			}
			i = len(out)
			index[r.ClusterID] = i
			out = append(out, v)
		}
		out[i].Queries = append(out[i].Queries, r.QueryText)
	}
	return out, nil
}
