package app

import (
	"context"
	"fmt"

	goredis "github.com/redis/go-redis/v9"
	temporalsdkclient "go.temporal.io/sdk/client"

	redisclient "github.com/yungbote/tenantsearch-backend/internal/clients/redis"
	dbpkg "github.com/yungbote/tenantsearch-backend/internal/data/db"
	"github.com/yungbote/tenantsearch-backend/internal/modules/embedding"
	"github.com/yungbote/tenantsearch-backend/internal/platform/logger"
	"github.com/yungbote/tenantsearch-backend/internal/platform/openai"
	"github.com/yungbote/tenantsearch-backend/internal/platform/qdrant"
	"github.com/yungbote/tenantsearch-backend/internal/temporalx"
)

// Clients holds every external connection. Optional ones stay nil when their
// backend is not selected.
type Clients struct {
	Postgres *dbpkg.PostgresService
	Redis    *goredis.Client
	Qdrant   *qdrant.Store
	Temporal temporalsdkclient.Client
	Embedder embedding.Provider
}

func wireClients(ctx context.Context, log *logger.Logger, cfg Config) (*Clients, error) {
	log.Info("Wiring clients...")
	c := &Clients{}

	pg, err := dbpkg.NewPostgresService(log, dbpkg.PostgresConfig{
		DSN:             cfg.PostgresDSN,
		MaxOpenConns:    cfg.PostgresMaxOpenConns,
		MaxIdleConns:    cfg.PostgresMaxIdleConns,
		ConnMaxLifetime: cfg.PostgresConnMaxLife,
		SlowThreshold:   cfg.PostgresSlowQuery,
	})
	if err != nil {
		return nil, fmt.Errorf("init postgres: %w", err)
	}
	c.Postgres = pg

	switch cfg.EmbeddingProvider {
	case EmbeddingProviderOpenAI:
		oc, err := openai.NewClient(log, openai.Config{
			BaseURL:    cfg.OpenAIBaseURL,
			APIKey:     cfg.OpenAIAPIKey,
			EmbedModel: cfg.OpenAIEmbedModel,
			Dimensions: cfg.EmbeddingDim,
			Timeout:    cfg.OpenAITimeout,
			MaxRetries: cfg.OpenAIMaxRetries,
		})
		if err != nil {
			c.Close()
			return nil, fmt.Errorf("init openai client: %w", err)
		}
		c.Embedder = oc
	default:
		c.Embedder = embedding.HashProvider{Dim: cfg.EmbeddingDim}
	}

	if cfg.ScopeLockBackend == ScopeLockRedis {
		rdb, err := redisclient.NewClient(ctx, log, redisclient.Config{Addr: cfg.RedisAddr, Password: cfg.RedisPassword, DB: cfg.RedisDB})
		if err != nil {
			c.Close()
			return nil, fmt.Errorf("init redis: %w", err)
		}
		c.Redis = rdb
	}

	if cfg.VectorBackend == VectorBackendQdrant {
		store, err := qdrant.New(ctx, log, qdrant.Config{
			Host:       cfg.QdrantHost,
			Port:       cfg.QdrantPort,
			UseTLS:     cfg.QdrantUseTLS,
			APIKey:     cfg.QdrantAPIKey,
			Collection: cfg.QdrantCollection,
			VectorDim:  cfg.EmbeddingDim,
		})
		if err != nil {
			c.Close()
			return nil, fmt.Errorf("init qdrant: %w", err)
		}
		if err := store.EnsureCollection(ctx); err != nil {
			_ = store.Close()
			c.Close()
			return nil, fmt.Errorf("ensure qdrant collection: %w", err)
		}
		c.Qdrant = store
	}

	if cfg.TemporalEnabled {
		tc, err := temporalx.NewClient(ctx, log, cfg.Temporal)
		if err != nil {
			c.Close()
			return nil, fmt.Errorf("init temporal client: %w", err)
		}
		c.Temporal = tc
	}
	return c, nil
}

func (c *Clients) Close() {
	if c == nil {
		return
	}
	if c.Temporal != nil {
		c.Temporal.Close()
	}
	if c.Qdrant != nil {
		_ = c.Qdrant.Close()
	}
	if c.Redis != nil {
		_ = c.Redis.Close()
	}
	if c.Postgres != nil {
		_ = c.Postgres.Close()
	}
}
