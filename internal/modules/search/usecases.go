package search

import (
	"context"

	"github.com/yungbote/tenantsearch-backend/internal/modules/search/index"
	"github.com/yungbote/tenantsearch-backend/internal/modules/search/steps"
	"github.com/yungbote/tenantsearch-backend/internal/platform/logger"
)

type UsecasesDeps struct {
	Log     *logger.Logger
	Lexical index.LexicalIndex
	Vector  index.VectorIndex
	Weights steps.BlendWeights
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
	HybridSearchInput  = steps.HybridSearchInput
	HybridSearchOutput = steps.HybridSearchOutput
)

func (u Usecases) VectorDim() int {
	if u.deps.Vector == nil {
		return 0
	}
	return u.deps.Vector.Dim()
}

func (u Usecases) HybridSearch(ctx context.Context, in HybridSearchInput) (HybridSearchOutput, error) {
	return steps.HybridSearch(ctx, steps.HybridSearchDeps{
		Log:     u.deps.Log,
		Lexical: u.deps.Lexical,
		Vector:  u.deps.Vector,
		Weights: u.deps.Weights,
	}, in)
}
