package app

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/yungbote/tenantsearch-backend/internal/domain"
	"github.com/yungbote/tenantsearch-backend/internal/modules/search/index"
	"github.com/yungbote/tenantsearch-backend/internal/platform/envutil"
	"github.com/yungbote/tenantsearch-backend/internal/platform/logger"
	"github.com/yungbote/tenantsearch-backend/internal/services"
	"github.com/yungbote/tenantsearch-backend/internal/temporalx"
)

const (
	EmbeddingProviderOpenAI = "openai"
	EmbeddingProviderHash   = "hash"

	VectorBackendPGVector = "pgvector"
	VectorBackendQdrant   = "qdrant"

	ScopeLockMemory   = "memory"
	ScopeLockRedis    = "redis"
	ScopeLockPostgres = "postgres"
)

type Config struct {
	Mode        string   `yaml:"mode"`
	Port        string   `yaml:"port"`
	ServiceName string   `yaml:"service_name"`
	Version     string   `yaml:"version"`
	JWTSecret   string   `yaml:"jwt_secret"`
	CORSOrigins []string `yaml:"cors_origins"`
	AutoMigrate bool     `yaml:"auto_migrate"`

	PostgresDSN          string        `yaml:"postgres_dsn"`
	PostgresMaxOpenConns int           `yaml:"postgres_max_open_conns"`
	PostgresMaxIdleConns int           `yaml:"postgres_max_idle_conns"`
	PostgresConnMaxLife  time.Duration `yaml:"postgres_conn_max_lifetime"`
	PostgresSlowQuery    time.Duration `yaml:"postgres_slow_query"`

	EmbeddingProvider    string  `yaml:"embedding_provider"`
	EmbeddingDim         int     `yaml:"embedding_dim"`
	EmbeddingConcurrency int     `yaml:"embedding_concurrency"`
	EmbeddingRPS         float64 `yaml:"embedding_rps"`
	EmbeddingBurst       int     `yaml:"embedding_burst"`

	OpenAIBaseURL    string        `yaml:"openai_base_url"`
	OpenAIAPIKey     string        `yaml:"openai_api_key"`
	OpenAIEmbedModel string        `yaml:"openai_embed_model"`
	OpenAITimeout    time.Duration `yaml:"openai_timeout"`
	OpenAIMaxRetries int           `yaml:"openai_max_retries"`

	VectorBackend    string `yaml:"vector_backend"`
	QdrantHost       string `yaml:"qdrant_host"`
	QdrantPort       int    `yaml:"qdrant_port"`
	QdrantAPIKey     string `yaml:"qdrant_api_key"`
	QdrantCollection string `yaml:"qdrant_collection"`
	QdrantUseTLS     bool   `yaml:"qdrant_use_tls"`

	LexicalMinSimilarity float64 `yaml:"lexical_min_similarity"`
	SearchLexicalWeight  float64 `yaml:"search_lexical_weight"`
	SearchVectorWeight   float64 `yaml:"search_vector_weight"`
	SearchDefaultLimit   int     `yaml:"search_default_limit"`
	SearchMaxLimit       int     `yaml:"search_max_limit"`

	ChunkSentences int `yaml:"chunk_sentences"`
	ChunkOverlap   int `yaml:"chunk_overlap"`
	ChunkMaxRunes  int `yaml:"chunk_max_runes"`

	ClusterThreshold float64       `yaml:"cluster_threshold"`
	ScopeLockBackend string        `yaml:"scope_lock_backend"`
	ScopeLockTTL     time.Duration `yaml:"scope_lock_ttl"`
	RedisAddr        string        `yaml:"redis_addr"`
	RedisPassword    string        `yaml:"redis_password"`
	RedisDB          int           `yaml:"redis_db"`

	TemporalEnabled bool             `yaml:"temporal_enabled"`
	Temporal        temporalx.Config `yaml:"temporal"`

	MetricsEnabled   bool          `yaml:"metrics_enabled"`
	OTELEnabled      bool          `yaml:"otel_enabled"`
	OTELEndpoint     string        `yaml:"otel_endpoint"`
	OTELHeaders      string        `yaml:"otel_headers"`
	OTELInsecure     bool          `yaml:"otel_insecure"`
	OTELSampleRatio  float64       `yaml:"otel_sample_ratio"`
	CollectorsPeriod time.Duration `yaml:"collectors_period"`
}

func DefaultConfig() Config {
	return Config{
		Mode:                 "development",
		Port:                 "8080",
		ServiceName:          "tenantsearch",
		Version:              "dev",
		AutoMigrate:          true,
		PostgresMaxOpenConns: 20,
		PostgresMaxIdleConns: 10,
		PostgresConnMaxLife:  30 * time.Minute,
		PostgresSlowQuery:    time.Second,
		EmbeddingProvider:    EmbeddingProviderHash,
		EmbeddingDim:         domain.EmbeddingDim,
		EmbeddingConcurrency: 4,
		OpenAITimeout:        30 * time.Second,
		OpenAIMaxRetries:     2,
		VectorBackend:        VectorBackendPGVector,
		QdrantPort:           6334,
		QdrantCollection:     "passages",
		LexicalMinSimilarity: index.DefaultMinSimilarity,
		SearchLexicalWeight:  0.4,
		SearchVectorWeight:   0.6,
		SearchDefaultLimit:   services.DefaultSearchLimit,
		SearchMaxLimit:       services.MaxSearchLimit,
		ClusterThreshold:     0.85,
		ScopeLockBackend:     ScopeLockMemory,
		ScopeLockTTL:         services.DefaultScopeLockTTL,
		Temporal:             temporalx.DefaultConfig(),
		MetricsEnabled:       true,
		OTELSampleRatio:      1,
		CollectorsPeriod:     15 * time.Second,
	}
}

// LoadConfig reads .env if present, then the CONFIG_FILE YAML overlay, then
// the process environment. Later layers win.
func LoadConfig(log *logger.Logger) (Config, error) {
	_ = godotenv.Load()

	cfg := DefaultConfig()
	if path := strings.TrimSpace(os.Getenv("CONFIG_FILE")); path != "" {
		if err := loadYAML(path, &cfg); err != nil {
			return Config{}, err
		}
		log.Info("Loaded config file", "path", path)
	}
	cfg = overlayEnv(cfg, log)
	return cfg, cfg.Validate()
}

func loadYAML(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("config file %s not found", path)
		}
		return fmt.Errorf("read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parse config file: %w", err)
	}
	return nil
}

func overlayEnv(cfg Config, log *logger.Logger) Config {
	cfg.Mode = envutil.String("LOG_MODE", cfg.Mode, log)
	cfg.Port = envutil.String("PORT", cfg.Port, log)
	cfg.ServiceName = envutil.String("SERVICE_NAME", cfg.ServiceName, log)
	cfg.Version = envutil.String("SERVICE_VERSION", cfg.Version, log)
	cfg.JWTSecret = envutil.String("JWT_SECRET_KEY", cfg.JWTSecret, log)
	cfg.CORSOrigins = envutil.CSV("CORS_ORIGINS", cfg.CORSOrigins)
	cfg.AutoMigrate = envutil.Bool("AUTO_MIGRATE", cfg.AutoMigrate)

	cfg.PostgresDSN = envutil.String("POSTGRES_DSN", cfg.PostgresDSN, log)
	cfg.PostgresMaxOpenConns = envutil.Int("POSTGRES_MAX_OPEN_CONNS", cfg.PostgresMaxOpenConns)
	cfg.PostgresMaxIdleConns = envutil.Int("POSTGRES_MAX_IDLE_CONNS", cfg.PostgresMaxIdleConns)
	cfg.PostgresConnMaxLife = envutil.Duration("POSTGRES_CONN_MAX_LIFETIME", cfg.PostgresConnMaxLife)
	cfg.PostgresSlowQuery = envutil.Duration("POSTGRES_SLOW_QUERY", cfg.PostgresSlowQuery)

	cfg.EmbeddingProvider = strings.ToLower(envutil.String("EMBEDDING_PROVIDER", cfg.EmbeddingProvider, log))
	cfg.EmbeddingDim = envutil.Int("EMBEDDING_DIM", cfg.EmbeddingDim)
	cfg.EmbeddingConcurrency = envutil.Int("EMBEDDING_CONCURRENCY", cfg.EmbeddingConcurrency)
	cfg.EmbeddingRPS = envutil.Float("EMBEDDING_RPS", cfg.EmbeddingRPS)
	cfg.EmbeddingBurst = envutil.Int("EMBEDDING_BURST", cfg.EmbeddingBurst)

	cfg.OpenAIBaseURL = envutil.String("OPENAI_BASE_URL", cfg.OpenAIBaseURL, log)
	cfg.OpenAIAPIKey = envutil.String("OPENAI_API_KEY", cfg.OpenAIAPIKey, log)
	cfg.OpenAIEmbedModel = envutil.String("OPENAI_EMBED_MODEL", cfg.OpenAIEmbedModel, log)
	cfg.OpenAITimeout = envutil.Duration("OPENAI_TIMEOUT", cfg.OpenAITimeout)
	cfg.OpenAIMaxRetries = envutil.Int("OPENAI_MAX_RETRIES", cfg.OpenAIMaxRetries)

	cfg.VectorBackend = strings.ToLower(envutil.String("VECTOR_BACKEND", cfg.VectorBackend, log))
	cfg.QdrantHost = envutil.String("QDRANT_HOST", cfg.QdrantHost, log)
	cfg.QdrantPort = envutil.Int("QDRANT_PORT", cfg.QdrantPort)
	cfg.QdrantAPIKey = envutil.String("QDRANT_API_KEY", cfg.QdrantAPIKey, log)
	cfg.QdrantCollection = envutil.String("QDRANT_COLLECTION", cfg.QdrantCollection, log)
	cfg.QdrantUseTLS = envutil.Bool("QDRANT_USE_TLS", cfg.QdrantUseTLS)

	cfg.LexicalMinSimilarity = envutil.Float("LEXICAL_MIN_SIMILARITY", cfg.LexicalMinSimilarity)
	cfg.SearchLexicalWeight = envutil.Float("SEARCH_LEXICAL_WEIGHT", cfg.SearchLexicalWeight)
	cfg.SearchVectorWeight = envutil.Float("SEARCH_VECTOR_WEIGHT", cfg.SearchVectorWeight)
	cfg.SearchDefaultLimit = envutil.Int("SEARCH_DEFAULT_LIMIT", cfg.SearchDefaultLimit)
	cfg.SearchMaxLimit = envutil.Int("SEARCH_MAX_LIMIT", cfg.SearchMaxLimit)

	cfg.ChunkSentences = envutil.Int("CHUNK_SENTENCES", cfg.ChunkSentences)
	cfg.ChunkOverlap = envutil.Int("CHUNK_OVERLAP", cfg.ChunkOverlap)
	cfg.ChunkMaxRunes = envutil.Int("CHUNK_MAX_RUNES", cfg.ChunkMaxRunes)

	cfg.ClusterThreshold = envutil.Float("CLUSTER_THRESHOLD", cfg.ClusterThreshold)
	cfg.ScopeLockBackend = strings.ToLower(envutil.String("SCOPE_LOCK_BACKEND", cfg.ScopeLockBackend, log))
	cfg.ScopeLockTTL = envutil.Duration("SCOPE_LOCK_TTL", cfg.ScopeLockTTL)
	cfg.RedisAddr = envutil.String("REDIS_ADDR", cfg.RedisAddr, log)
	cfg.RedisPassword = envutil.String("REDIS_PASSWORD", cfg.RedisPassword, log)
	cfg.RedisDB = envutil.Int("REDIS_DB", cfg.RedisDB)

	cfg.TemporalEnabled = envutil.Bool("TEMPORAL_ENABLED", cfg.TemporalEnabled)
	cfg.Temporal = temporalx.LoadConfig(cfg.Temporal, log)

	cfg.MetricsEnabled = envutil.Bool("METRICS_ENABLED", cfg.MetricsEnabled)
	cfg.OTELEnabled = envutil.Bool("OTEL_ENABLED", cfg.OTELEnabled)
	cfg.OTELEndpoint = envutil.String("OTEL_EXPORTER_OTLP_ENDPOINT", cfg.OTELEndpoint, log)
	cfg.OTELHeaders = envutil.String("OTEL_EXPORTER_OTLP_HEADERS", cfg.OTELHeaders, log)
	cfg.OTELInsecure = envutil.Bool("OTEL_EXPORTER_OTLP_INSECURE", cfg.OTELInsecure)
	cfg.OTELSampleRatio = envutil.Float("OTEL_SAMPLE_RATIO", cfg.OTELSampleRatio)
	cfg.CollectorsPeriod = envutil.Duration("METRICS_COLLECTORS_PERIOD", cfg.CollectorsPeriod)
	return cfg
}

// Validate rejects combinations that cannot be wired.
func (c Config) Validate() error {
	if strings.TrimSpace(c.JWTSecret) == "" {
		return fmt.Errorf("JWT_SECRET_KEY is required")
	}
	switch c.EmbeddingProvider {
	case EmbeddingProviderHash:
	case EmbeddingProviderOpenAI:
		if strings.TrimSpace(c.OpenAIAPIKey) == "" {
			return fmt.Errorf("EMBEDDING_PROVIDER=openai requires OPENAI_API_KEY")
		}
	default:
		return fmt.Errorf("unknown EMBEDDING_PROVIDER %q", c.EmbeddingProvider)
	}
	switch c.VectorBackend {
	case VectorBackendPGVector:
		if c.EmbeddingDim != domain.EmbeddingDim {
			return fmt.Errorf("VECTOR_BACKEND=pgvector stores vector(%d); EMBEDDING_DIM=%d", domain.EmbeddingDim, c.EmbeddingDim)
		}
	case VectorBackendQdrant:
		if strings.TrimSpace(c.QdrantHost) == "" {
			return fmt.Errorf("VECTOR_BACKEND=qdrant requires QDRANT_HOST")
		}
	default:
		return fmt.Errorf("unknown VECTOR_BACKEND %q", c.VectorBackend)
	}
	switch c.ScopeLockBackend {
	case ScopeLockMemory, ScopeLockPostgres:
	case ScopeLockRedis:
		if strings.TrimSpace(c.RedisAddr) == "" {
			return fmt.Errorf("SCOPE_LOCK_BACKEND=redis requires REDIS_ADDR")
		}
	default:
		return fmt.Errorf("unknown SCOPE_LOCK_BACKEND %q", c.ScopeLockBackend)
	}
	if c.TemporalEnabled && strings.TrimSpace(c.Temporal.Address) == "" {
		return fmt.Errorf("TEMPORAL_ENABLED requires TEMPORAL_ADDRESS")
	}
	if c.EmbeddingDim <= 0 {
		return fmt.Errorf("EMBEDDING_DIM must be positive")
	}
	return nil
}
