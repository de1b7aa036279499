package services_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yungbote/tenantsearch-backend/internal/data/tenantdb"
	"github.com/yungbote/tenantsearch-backend/internal/domain"
	"github.com/yungbote/tenantsearch-backend/internal/modules/embedding"
	"github.com/yungbote/tenantsearch-backend/internal/services"
)

func TestSearchRanksLexicalMatchFirstAndLogsQuery(t *testing.T) {
	h := newHarness(t)
	tenant := uuid.New()
	returns := h.ingest(t, tenant, "Returns", "Returns are accepted within thirty days.")
	h.ingest(t, tenant, "Shipping", "Shipping is free on large orders.")

	res, err := h.search.Search(context.Background(), tenant, "returns accepted", 5, services.WithLocale("en"))
	require.NoError(t, err)
	assert.False(t, res.Degraded)
	assert.Equal(t, "hybrid", res.Mode)
	require.Len(t, res.Results, 2)
	top := res.Results[0]
	assert.Equal(t, returns.Document.ID, top.Passage.DocumentID)
	require.NotNil(t, top.LexicalScore)
	require.NotNil(t, top.VectorDistance)
	assert.GreaterOrEqual(t, top.Rank, res.Results[1].Rank)
	assert.Nil(t, res.Results[1].LexicalScore, "below-threshold passage only comes from the vector leg")

	require.NotEqual(t, uuid.Nil, res.QueryID)
	var recs []*domain.QueryRecord
	require.NoError(t, h.binder.Acquire(context.Background(), tenant, func(s *tenantdb.Scope) error {
		var err error
		recs, err = h.repos.QueryRecords.ListInRange(s, time.Now().Add(-time.Hour), time.Now().Add(time.Hour))
		return err
	}))
	require.Len(t, recs, 1)
	assert.Equal(t, "returns accepted", recs[0].QueryText)
	assert.Equal(t, "en", recs[0].Locale)
}

func TestSearchIsTenantIsolated(t *testing.T) {
	h := newHarness(t)
	h.ingest(t, uuid.New(), "Returns", "Returns are accepted within thirty days.")

	res, err := h.search.Search(context.Background(), uuid.New(), "returns accepted", 5)
	require.NoError(t, err)
	assert.Empty(t, res.Results)
}

func TestSearchDegradesToLexicalWhenProviderFails(t *testing.T) {
	h := newHarness(t)
	tenant := uuid.New()
	h.ingest(t, tenant, "Returns", "Returns are accepted within thirty days.")
	h.ingest(t, tenant, "Shipping", "Shipping is free on large orders.")

	degraded := h.searchWith(embedding.NewAdapter(h.log, failingProvider(), embedding.Config{Dim: testDim}, nil))
	res, err := degraded.Search(context.Background(), tenant, "returns accepted", 5)
	require.NoError(t, err)
	assert.True(t, res.Degraded)
	assert.Equal(t, "lexical_only", res.Mode)
	require.Len(t, res.Results, 1)
	assert.Nil(t, res.Results[0].VectorDistance)
}

func TestSearchValidatesInput(t *testing.T) {
	h := newHarness(t)
	_, err := h.search.Search(context.Background(), uuid.Nil, "q", 5)
	assert.True(t, domain.IsCode(err, domain.CodeIsolationViolation))

	_, err = h.search.Search(context.Background(), uuid.New(), "   ", 5)
	assert.True(t, domain.IsCode(err, domain.CodeValidation))
}

func TestSearchClampsLimit(t *testing.T) {
	h := newHarness(t)
	tenant := uuid.New()
	for i := 0; i < 3; i++ {
		h.ingest(t, tenant, "doc", "Returns are accepted within thirty days.")
	}
	res, err := h.search.Search(context.Background(), tenant, "returns", 1)
	require.NoError(t, err)
	assert.Len(t, res.Results, 1)
}

func TestRecordFeedback(t *testing.T) {
	h := newHarness(t)
	tenant := uuid.New()
	res, err := h.search.Search(context.Background(), tenant, "anything", 5)
	require.NoError(t, err)

	require.NoError(t, h.search.RecordFeedback(context.Background(), tenant, res.QueryID, domain.FeedbackPositive))

	err = h.search.RecordFeedback(context.Background(), uuid.New(), res.QueryID, domain.FeedbackPositive)
	assert.True(t, domain.IsCode(err, domain.CodeNotFound), "other tenant must not see the record")

	err = h.search.RecordFeedback(context.Background(), tenant, uuid.Nil, domain.FeedbackPositive)
	assert.True(t, domain.IsCode(err, domain.CodeValidation))
}
