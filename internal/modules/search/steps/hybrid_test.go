package steps

import (
	"context"
	"errors"
	"math"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yungbote/tenantsearch-backend/internal/domain"
	"github.com/yungbote/tenantsearch-backend/internal/modules/search/index"
	"github.com/yungbote/tenantsearch-backend/internal/platform/logger"
)

type stubLexical struct {
	hits     []index.LexicalHit
	err      error
	gotLimit int
}

func (s *stubLexical) FuzzyMatch(_ context.Context, _ uuid.UUID, _ string, limit int) ([]index.LexicalHit, error) {
	s.gotLimit = limit
	return s.hits, s.err
}

type stubVector struct {
	hits   []index.VectorHit
	err    error
	called bool
}

func (s *stubVector) Dim() int { return 3 }

func (s *stubVector) Nearest(ctx context.Context, _ uuid.UUID, _ []float32, _ int) ([]index.VectorHit, error) {
	s.called = true
	if s.err != nil {
		return nil, s.err
	}
	return s.hits, ctx.Err()
}

var (
	p1 = uuid.MustParse("00000000-0000-0000-0000-000000000001")
	p2 = uuid.MustParse("00000000-0000-0000-0000-000000000002")
	p3 = uuid.MustParse("00000000-0000-0000-0000-000000000003")
)

func deps(lex *stubLexical, vec *stubVector) HybridSearchDeps {
	return HybridSearchDeps{Log: logger.Nop(), Lexical: lex, Vector: vec, Weights: DefaultBlendWeights()}
}

func TestHybridSearchBlendsBothLegs(t *testing.T) {
	lex := &stubLexical{hits: []index.LexicalHit{{PassageID: p1, Score: 0.9}, {PassageID: p2, Score: 0.4}}}
	vec := &stubVector{hits: []index.VectorHit{{PassageID: p2, Distance: 0.1}, {PassageID: p3, Distance: 0.3}}}

	out, err := HybridSearch(context.Background(), deps(lex, vec), HybridSearchInput{
		TenantID: uuid.New(), QueryText: "q", QueryVector: []float32{1, 0, 0}, Limit: 2,
	})
	require.NoError(t, err)
	assert.Equal(t, 6, lex.gotLimit)
	require.Len(t, out.Candidates, 2)
	assert.Equal(t, p2, out.Candidates[0].PassageID)
	assert.Equal(t, p3, out.Candidates[1].PassageID)
	assert.InDelta(t, 0.4*0.4+0.6/1.1, out.Candidates[0].Rank, 1e-9)
	assert.InDelta(t, 0.6/1.3, out.Candidates[1].Rank, 1e-9)
	assert.Equal(t, 3, out.UnionedHits)
	assert.Equal(t, "hybrid", out.Mode)
}

func TestHybridSearchBothEmpty(t *testing.T) {
	out, err := HybridSearch(context.Background(), deps(&stubLexical{}, &stubVector{}), HybridSearchInput{
		TenantID: uuid.New(), QueryText: "q", QueryVector: []float32{1, 0, 0}, Limit: 5,
	})
	require.NoError(t, err)
	assert.Empty(t, out.Candidates)
}

func TestHybridSearchFailsWhenAnyIndexFails(t *testing.T) {
	boom := errors.New("index down")
	_, err := HybridSearch(context.Background(), deps(&stubLexical{}, &stubVector{err: boom}), HybridSearchInput{
		TenantID: uuid.New(), QueryText: "q", QueryVector: []float32{1, 0, 0}, Limit: 5,
	})
	assert.ErrorIs(t, err, boom)

	_, err = HybridSearch(context.Background(), deps(&stubLexical{err: boom}, &stubVector{}), HybridSearchInput{
		TenantID: uuid.New(), QueryText: "q", QueryVector: []float32{1, 0, 0}, Limit: 5,
	})
	assert.ErrorIs(t, err, boom)
}

func TestHybridSearchSkipsVectorLegWithoutVector(t *testing.T) {
	vec := &stubVector{}
	lex := &stubLexical{hits: []index.LexicalHit{{PassageID: p1, Score: 0.5}}}
	out, err := HybridSearch(context.Background(), deps(lex, vec), HybridSearchInput{TenantID: uuid.New(), QueryText: "q", Limit: 5})
	require.NoError(t, err)
	assert.False(t, vec.called)
	assert.Equal(t, "lexical_only", out.Mode)
	require.Len(t, out.Candidates, 1)
	assert.InDelta(t, 0.2, out.Candidates[0].Rank, 1e-9)
}

func TestBlendTieBreaksByIDAndClamps(t *testing.T) {
	hi, lo := 1.7, 0.5
	cands := []domain.SearchCandidate{
		{PassageID: p3, LexicalScore: &lo},
		{PassageID: p1, LexicalScore: &lo},
		{PassageID: p2, LexicalScore: &hi},
	}
	out := Blend(cands, DefaultBlendWeights(), 10)
	require.Len(t, out, 3)
	assert.Equal(t, []uuid.UUID{p2, p1, p3}, []uuid.UUID{out[0].PassageID, out[1].PassageID, out[2].PassageID})
	assert.InDelta(t, 0.4, out[0].Rank, 1e-9)
}

func TestMergeCandidatesKeepsSentinelsNil(t *testing.T) {
	merged := MergeCandidates(
		[]index.LexicalHit{{PassageID: p1, Score: 0.9}},
		[]index.VectorHit{{PassageID: p2, Distance: 0.2}},
	)
	require.Len(t, merged, 2)
	assert.Nil(t, merged[0].VectorDistance)
	assert.Nil(t, merged[1].LexicalScore)
	assert.Equal(t, 0.0, invertDistance(math.Inf(1)))
}
