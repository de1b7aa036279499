package services_test

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yungbote/tenantsearch-backend/internal/domain"
	"github.com/yungbote/tenantsearch-backend/internal/modules/embedding"
	"github.com/yungbote/tenantsearch-backend/internal/services"
)

func TestIngestChunksAndIndexesPassages(t *testing.T) {
	h := newHarness(t)
	tenant := uuid.New()
	res := h.ingest(t, tenant, " Returns policy ", "Returns are accepted within thirty days. Keep the receipt. Refunds go to the original card.")

	assert.Equal(t, "Returns policy", res.Document.Title)
	assert.Equal(t, 2, res.Passages)
	assert.Equal(t, 2, res.Indexed)
	assert.Equal(t, domain.EmbeddingKindProvider, res.EmbeddingKind)

	docs, err := h.docs.List(context.Background(), tenant, 10, 0)
	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.Equal(t, res.Document.ID, docs[0].ID)

	other, err := h.docs.List(context.Background(), uuid.New(), 10, 0)
	require.NoError(t, err)
	assert.Empty(t, other)
}

func TestIngestValidates(t *testing.T) {
	h := newHarness(t)
	_, err := h.docs.Ingest(context.Background(), uuid.Nil, services.IngestInput{Title: "t", Content: "x."})
	assert.True(t, domain.IsCode(err, domain.CodeIsolationViolation))

	_, err = h.docs.Ingest(context.Background(), uuid.New(), services.IngestInput{Title: "  ", Content: "x."})
	assert.True(t, domain.IsCode(err, domain.CodeValidation))

	_, err = h.docs.Ingest(context.Background(), uuid.New(), services.IngestInput{Title: "t", Content: " \n "})
	assert.True(t, domain.IsCode(err, domain.CodeValidation))
}

func TestIngestWithFallbackEmbeddingsSkipsVectorIndex(t *testing.T) {
	h := newHarness(t)
	adapter := embedding.NewAdapter(h.log, failingProvider(), embedding.Config{Dim: testDim}, nil)
	docs := services.NewDocumentService(h.log, h.binder, h.repos, nil, adapter, h.index, services.DocumentServiceConfig{StoreEmbeddings: true})
	tenant := uuid.New()

	res, err := docs.Ingest(context.Background(), tenant, services.IngestInput{Title: "t", Content: "Shipping is free."})
	require.NoError(t, err)
	assert.Equal(t, domain.EmbeddingKindFallback, res.EmbeddingKind)
	assert.Zero(t, res.Indexed)

	hits, err := h.index.Nearest(context.Background(), tenant, embedding.FallbackVector("x", testDim), 10)
	require.NoError(t, err)
	assert.Empty(t, hits)
}

func TestDeleteDocumentRemovesRowsAndVectors(t *testing.T) {
	h := newHarness(t)
	tenant := uuid.New()
	res := h.ingest(t, tenant, "Shipping", "Shipping is free on large orders.")

	require.NoError(t, h.docs.Delete(context.Background(), tenant, res.Document.ID))
	hits, err := h.index.Nearest(context.Background(), tenant, embedding.FallbackVector("x", testDim), 10)
	require.NoError(t, err)
	assert.Empty(t, hits)

	err = h.docs.Delete(context.Background(), tenant, res.Document.ID)
	assert.True(t, domain.IsCode(err, domain.CodeNotFound))
}

func TestDeleteDocumentFromOtherTenantIsNotFound(t *testing.T) {
	h := newHarness(t)
	owner := uuid.New()
	res := h.ingest(t, owner, "Shipping", "Shipping is free on large orders.")

	err := h.docs.Delete(context.Background(), uuid.New(), res.Document.ID)
	assert.True(t, domain.IsCode(err, domain.CodeNotFound))

	docs, err := h.docs.List(context.Background(), owner, 10, 0)
	require.NoError(t, err)
	assert.Len(t, docs, 1)
}

func TestPurgeTenantLeavesOtherTenants(t *testing.T) {
	h := newHarness(t)
	a, b := uuid.New(), uuid.New()
	h.ingest(t, a, "A", "Returns are accepted within thirty days.")
	h.ingest(t, b, "B", "Returns are accepted within thirty days.")

	require.NoError(t, h.docs.PurgeTenant(context.Background(), a))

	docsA, err := h.docs.List(context.Background(), a, 10, 0)
	require.NoError(t, err)
	assert.Empty(t, docsA)
	docsB, err := h.docs.List(context.Background(), b, 10, 0)
	require.NoError(t, err)
	assert.Len(t, docsB, 1)

	res, err := h.search.Search(context.Background(), b, "returns accepted", 5)
	require.NoError(t, err)
	assert.Len(t, res.Results, 1)

	err = h.docs.PurgeTenant(context.Background(), uuid.Nil)
	assert.True(t, domain.IsCode(err, domain.CodeIsolationViolation))
}
