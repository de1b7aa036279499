package services_test

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/yungbote/tenantsearch-backend/internal/data/aggregates"
	"github.com/yungbote/tenantsearch-backend/internal/data/repos"
	"github.com/yungbote/tenantsearch-backend/internal/data/repos/testutil"
	"github.com/yungbote/tenantsearch-backend/internal/data/tenantdb"
	"github.com/yungbote/tenantsearch-backend/internal/modules/analytics"
	"github.com/yungbote/tenantsearch-backend/internal/modules/embedding"
	"github.com/yungbote/tenantsearch-backend/internal/modules/ingest"
	"github.com/yungbote/tenantsearch-backend/internal/modules/search"
	"github.com/yungbote/tenantsearch-backend/internal/modules/search/index"
	"github.com/yungbote/tenantsearch-backend/internal/observability"
	"github.com/yungbote/tenantsearch-backend/internal/platform/logger"
	"github.com/yungbote/tenantsearch-backend/internal/services"
)

const testDim = 8

type harness struct {
	log       *logger.Logger
	binder    *tenantdb.Binder
	repos     repos.Set
	index     *index.Memory
	adapter   *embedding.Adapter
	metrics   *observability.Metrics
	locker    services.ScopeLocker
	docs      services.DocumentService
	search    services.SearchService
	analytics services.AnalyticsService
	tenants   services.TenantService
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	db := testutil.SQLite(t)
	log := testutil.Logger(t)
	h := &harness{
		log:     log,
		binder:  tenantdb.NewBinder(db, log),
		repos:   repos.NewSet(db, log),
		index:   index.NewMemory(testDim, index.DefaultMinSimilarity),
		metrics: observability.NewMetrics(),
		locker:  services.NewMemoryScopeLocker(),
	}
	h.adapter = embedding.NewAdapter(log, embedding.HashProvider{Dim: testDim}, embedding.Config{Dim: testDim}, h.metrics)
	h.docs = services.NewDocumentService(log, h.binder, h.repos, ingest.NewSentenceChunker(2, 0, 0), h.adapter, h.index, services.DocumentServiceConfig{})
	h.search = h.searchWith(h.adapter)
	h.analytics = services.NewAnalyticsService(log, h.binder, h.repos, h.analyticsUsecases(h.adapter), h.locker, nil, h.metrics, services.AnalyticsServiceConfig{})
	h.tenants = services.NewTenantService(log, h.binder, h.repos)
	return h
}

func (h *harness) analyticsUsecases(embedder *embedding.Adapter) analytics.Usecases {
	return analytics.New(analytics.UsecasesDeps{
		Log:      h.log,
		Scopes:   h.binder,
		Records:  h.repos.QueryRecords,
		Embedder: embedder,
		Store: aggregates.NewAnalyticsScopeAggregate(aggregates.AnalyticsScopeAggregateDeps{
			Base:       aggregates.BaseDeps{Log: h.log, Runner: h.binder},
			Clusters:   h.repos.Clusters,
			TopQueries: h.repos.TopQueries,
		}),
	})
}

func (h *harness) searchWith(adapter *embedding.Adapter) services.SearchService {
	uc := search.New(search.UsecasesDeps{Log: h.log, Lexical: h.index, Vector: h.index})
	return services.NewSearchService(h.log, h.binder, h.repos, adapter, uc, h.metrics, services.SearchServiceConfig{})
}

func (h *harness) ingest(t *testing.T, tenant uuid.UUID, title, content string) services.IngestResult {
	t.Helper()
	res, err := h.docs.Ingest(context.Background(), tenant, services.IngestInput{Title: title, Content: content})
	require.NoError(t, err)
	return res
}

func failingProvider() embedding.ProviderFunc {
	return func(context.Context, string) ([]float32, error) {
		return nil, errors.New("provider down")
	}
}
