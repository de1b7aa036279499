package steps

import (
	"context"
	"math"
	"sort"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/yungbote/tenantsearch-backend/internal/domain"
	"github.com/yungbote/tenantsearch-backend/internal/modules/search/index"
	"github.com/yungbote/tenantsearch-backend/internal/observability"
	"github.com/yungbote/tenantsearch-backend/internal/platform/logger"
)

// FetchMultiplier widens each index fetch so re-ranking has room to reorder.
const FetchMultiplier = 3

// BlendWeights are fixed for the process; they are never derived per query.
type BlendWeights struct {
	Lexical float64
	Vector  float64
}

func DefaultBlendWeights() BlendWeights { return BlendWeights{Lexical: 0.4, Vector: 0.6} }

type HybridSearchDeps struct {
	Log     *logger.Logger
	Lexical index.LexicalIndex
	Vector  index.VectorIndex
	Weights BlendWeights
}

type HybridSearchInput struct {
	TenantID  uuid.UUID
	QueryText string
	// QueryVector nil skips the vector leg.
	QueryVector []float32
	Limit       int
}

type HybridSearchOutput struct {
	Candidates []domain.SearchCandidate
	// Mode is "hybrid" or "lexical_only".
	Mode        string
	LexicalHits int
	VectorHits  int
	UnionedHits int
}

// HybridSearch queries both indexes concurrently and blends their scores.
// Any index failure fails the whole call.
func HybridSearch(ctx context.Context, deps HybridSearchDeps, in HybridSearchInput) (HybridSearchOutput, error) {
	const op = "search.HybridSearch"
	out := HybridSearchOutput{Candidates: []domain.SearchCandidate{}, Mode: "hybrid"}
	if deps.Lexical == nil || deps.Vector == nil {
		return out, domain.NewError(domain.CodeInternal, op, "search indexes not configured", nil)
	}
	if in.Limit <= 0 {
		return out, nil
	}
	if in.QueryVector == nil {
		out.Mode = "lexical_only"
	}
	weights := deps.Weights
	if weights == (BlendWeights{}) {
		weights = DefaultBlendWeights()
	}

	ctx, span := observability.StartSpan(ctx, op)
	var spanErr error
	defer func() { observability.EndSpan(span, spanErr) }()

	fetch := in.Limit * FetchMultiplier
	var lex []index.LexicalHit
	var vec []index.VectorHit
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		lex, err = deps.Lexical.FuzzyMatch(gctx, in.TenantID, in.QueryText, fetch)
		return err
	})
	if in.QueryVector != nil {
		g.Go(func() error {
			var err error
			vec, err = deps.Vector.Nearest(gctx, in.TenantID, in.QueryVector, fetch)
			return err
		})
	}
	if err := g.Wait(); err != nil {
		spanErr = err
		if deps.Log != nil {
			deps.Log.Warn("hybrid search index call failed", "tenant_id", in.TenantID, "error", err)
		}
		return out, err
	}

	out.LexicalHits = len(lex)
	out.VectorHits = len(vec)
	merged := MergeCandidates(lex, vec)
	out.UnionedHits = len(merged)
	out.Candidates = Blend(merged, weights, in.Limit)
	return out, nil
}

// MergeCandidates unions both hit lists by passage id. Missing scores stay nil.
func MergeCandidates(lex []index.LexicalHit, vec []index.VectorHit) []domain.SearchCandidate {
	byID := make(map[uuid.UUID]int, len(lex)+len(vec))
	out := make([]domain.SearchCandidate, 0, len(lex)+len(vec))
	for _, h := range lex {
		score := h.Score
		if i, ok := byID[h.PassageID]; ok {
			if out[i].LexicalScore == nil || *out[i].LexicalScore < score {
				out[i].LexicalScore = &score
			}
			continue
		}
		byID[h.PassageID] = len(out)
		out = append(out, domain.SearchCandidate{PassageID: h.PassageID, LexicalScore: &score})
	}
	for _, h := range vec {
		dist := h.Distance
		if i, ok := byID[h.PassageID]; ok {
			if out[i].VectorDistance == nil || *out[i].VectorDistance > dist {
				out[i].VectorDistance = &dist
			}
			continue
		}
		byID[h.PassageID] = len(out)
		out = append(out, domain.SearchCandidate{PassageID: h.PassageID, VectorDistance: &dist})
	}
	return out
}

// Blend ranks candidates by weighted lexical and vector scores, breaking ties
// by passage id, and truncates to limit. A missing lexical score counts as 0
// and a missing distance as +Inf.
func Blend(cands []domain.SearchCandidate, w BlendWeights, limit int) []domain.SearchCandidate {
	out := make([]domain.SearchCandidate, len(cands))
	copy(out, cands)
	for i := range out {
		lex := 0.0
		if out[i].LexicalScore != nil {
			lex = clamp01(*out[i].LexicalScore)
		}
		dist := math.Inf(1)
		if out[i].VectorDistance != nil {
			dist = *out[i].VectorDistance
		}
		out[i].Rank = w.Lexical*lex + w.Vector*invertDistance(dist)
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Rank != out[j].Rank {
			return out[i].Rank > out[j].Rank
		}
		return out[i].PassageID.String() < out[j].PassageID.String()
	})
	if limit >= 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}

func invertDistance(d float64) float64 {
	if math.IsInf(d, 1) || math.IsNaN(d) || d < 0 {
		return 0
	}
	return 1 / (1 + d)
}

func clamp01(v float64) float64 {
	switch {
	case math.IsNaN(v), v < 0:
		return 0
	case v > 1:
		return 1
	default:
		return v
	}
}
