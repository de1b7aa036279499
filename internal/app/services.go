package app

import (
	"os"

	"gorm.io/gorm"

	redisclient "github.com/yungbote/tenantsearch-backend/internal/clients/redis"
	"github.com/yungbote/tenantsearch-backend/internal/data/aggregates"
	"github.com/yungbote/tenantsearch-backend/internal/data/repos"
	"github.com/yungbote/tenantsearch-backend/internal/data/tenantdb"
	"github.com/yungbote/tenantsearch-backend/internal/modules/analytics"
	"github.com/yungbote/tenantsearch-backend/internal/modules/embedding"
	"github.com/yungbote/tenantsearch-backend/internal/modules/ingest"
	"github.com/yungbote/tenantsearch-backend/internal/modules/search"
	"github.com/yungbote/tenantsearch-backend/internal/modules/search/index"
	"github.com/yungbote/tenantsearch-backend/internal/modules/search/steps"
	"github.com/yungbote/tenantsearch-backend/internal/observability"
	"github.com/yungbote/tenantsearch-backend/internal/platform/logger"
	"github.com/yungbote/tenantsearch-backend/internal/services"
	"github.com/yungbote/tenantsearch-backend/internal/temporalx/analyticsrun"
)

type Services struct {
	Binder    *tenantdb.Binder
	Repos     repos.Set
	Embedder  *embedding.Adapter
	Search    services.SearchService
	Documents services.DocumentService
	Analytics services.AnalyticsService
	Tenants   services.TenantService
}

func wireServices(db *gorm.DB, log *logger.Logger, cfg Config, clients *Clients, metrics *observability.Metrics) Services {
	log.Info("Wiring services...")
	binder := tenantdb.NewBinder(db, log)
	set := repos.NewSet(db, log)

	embedder := embedding.NewAdapter(log, clients.Embedder, embedding.Config{
		Dim:         cfg.EmbeddingDim,
		Concurrency: cfg.EmbeddingConcurrency,
		RPS:         cfg.EmbeddingRPS,
		Burst:       cfg.EmbeddingBurst,
	}, metrics)

	lexical := index.NewPostgresLexical(log, binder, set.Passages, cfg.LexicalMinSimilarity)
	var (
		vectors     index.VectorIndex
		writer      index.VectorWriter
		storeInline = true
	)
	if clients.Qdrant != nil {
		q := index.NewQdrantVector(clients.Qdrant)
		vectors, writer, storeInline = q, q, false
	} else {
		vectors = index.NewPostgresVector(log, binder, set.Passages, cfg.EmbeddingDim)
	}

	searchUC := search.New(search.UsecasesDeps{
		Log:     log,
		Lexical: lexical,
		Vector:  vectors,
		Weights: steps.BlendWeights{Lexical: cfg.SearchLexicalWeight, Vector: cfg.SearchVectorWeight},
	})
	analyticsUC := analytics.New(analytics.UsecasesDeps{
		Log:      log,
		Scopes:   binder,
		Records:  set.QueryRecords,
		Embedder: embedder,
		Store: aggregates.NewAnalyticsScopeAggregate(aggregates.AnalyticsScopeAggregateDeps{
			Base:       aggregates.BaseDeps{Log: log, Runner: binder, Hooks: aggregates.NewObservabilityHooks(metrics)},
			Clusters:   set.Clusters,
			TopQueries: set.TopQueries,
		}),
		Threshold: cfg.ClusterThreshold,
	})

	var starter services.RebuildStarter
	if clients.Temporal != nil {
		starter = analyticsrun.NewStarter(clients.Temporal, cfg.Temporal.TaskQueue)
	}

	return Services{
		Binder:   binder,
		Repos:    set,
		Embedder: embedder,
		Search: services.NewSearchService(log, binder, set, embedder, searchUC, metrics, services.SearchServiceConfig{
			DefaultLimit: cfg.SearchDefaultLimit,
			MaxLimit:     cfg.SearchMaxLimit,
		}),
		Documents: services.NewDocumentService(log, binder, set,
			ingest.NewSentenceChunker(cfg.ChunkSentences, cfg.ChunkOverlap, cfg.ChunkMaxRunes),
			embedder, writer, services.DocumentServiceConfig{StoreEmbeddings: storeInline}),
		Analytics: services.NewAnalyticsService(log, binder, set, analyticsUC, wireScopeLocker(db, log, cfg, clients), starter, metrics,
			services.AnalyticsServiceConfig{LockTTL: cfg.ScopeLockTTL}),
		Tenants: services.NewTenantService(log, binder, set),
	}
}

func wireScopeLocker(db *gorm.DB, log *logger.Logger, cfg Config, clients *Clients) services.ScopeLocker {
	switch {
	case cfg.ScopeLockBackend == ScopeLockRedis && clients.Redis != nil:
		return redisclient.NewScopeLocker(clients.Redis, log)
	case cfg.ScopeLockBackend == ScopeLockPostgres:
		host, _ := os.Hostname()
		return services.NewLeaseScopeLocker(aggregates.NewLeaseGuard(db), host)
	default:
		return services.NewMemoryScopeLocker()
	}
}
