package analytics

import (
	"context"

	analyticsrepo "github.com/yungbote/tenantsearch-backend/internal/data/repos/analytics"
	domainagg "github.com/yungbote/tenantsearch-backend/internal/domain/aggregates"
	"github.com/yungbote/tenantsearch-backend/internal/modules/analytics/steps"
	"github.com/yungbote/tenantsearch-backend/internal/platform/logger"
)

type UsecasesDeps struct {
	Log       *logger.Logger
	Scopes    steps.ScopeRunner
	Records   analyticsrepo.QueryRecordRepo
	Embedder  steps.Embedder
	Store     domainagg.AnalyticsScopeAggregate
	Threshold float64
}

type Usecases struct {
	deps UsecasesDeps
}

func New(deps UsecasesDeps) Usecases { return Usecases{deps: deps} }

func (u Usecases) WithLog(log *logger.Logger) Usecases {
	u.deps.Log = log
	return u
}

type (
	RebuildInput  = steps.RebuildInput
	RebuildOutput = steps.RebuildOutput
	ExtractInput  = steps.ExtractInput
	ExtractOutput = steps.ExtractOutput
)

func (u Usecases) Rebuild(ctx context.Context, in RebuildInput) (RebuildOutput, error) {
	return steps.Rebuild(ctx, steps.RebuildDeps{
		Log:       u.deps.Log,
		Scopes:    u.deps.Scopes,
		Records:   u.deps.Records,
		Embedder:  u.deps.Embedder,
		Store:     u.deps.Store,
		Threshold: u.deps.Threshold,
	}, in)
}

func (u Usecases) Extract(ctx context.Context, in ExtractInput) (ExtractOutput, error) {
	return steps.Extract(ctx, steps.ExtractDeps{Log: u.deps.Log, Scopes: u.deps.Scopes, Records: u.deps.Records}, in)
}
