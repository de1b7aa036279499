package temporalx

import (
	"strings"
	"time"

	"github.com/yungbote/tenantsearch-backend/internal/platform/envutil"
	"github.com/yungbote/tenantsearch-backend/internal/platform/logger"
)

type Config struct {
	Address   string `yaml:"address"`
	Namespace string `yaml:"namespace"`
	TaskQueue string `yaml:"task_queue"`

	ClientCertPath string `yaml:"client_cert_path"`
	ClientKeyPath  string `yaml:"client_key_path"`
	ClientCAPath   string `yaml:"client_ca_path"`

	AutoRegisterNamespace  bool          `yaml:"auto_register_namespace"`
	NamespaceRetentionDays int           `yaml:"namespace_retention_days"`
	DialTimeout            time.Duration `yaml:"dial_timeout"`
	DialMaxWait            time.Duration `yaml:"dial_max_wait"`
	DialBackoff            time.Duration `yaml:"dial_backoff"`
	DialBackoffMax         time.Duration `yaml:"dial_backoff_max"`
	WorkerConcurrency      int           `yaml:"worker_concurrency"`
}

func DefaultConfig() Config {
	return Config{
		Namespace:              "tenantsearch",
		TaskQueue:              "tenantsearch-analytics",
		NamespaceRetentionDays: 7,
		DialTimeout:            5 * time.Second,
		DialMaxWait:            60 * time.Second,
		DialBackoff:            250 * time.Millisecond,
		DialBackoffMax:         5 * time.Second,
		WorkerConcurrency:      4,
	}
}

// LoadConfig overlays TEMPORAL_* env vars on base.
func LoadConfig(base Config, log *logger.Logger) Config {
	cfg := base
	cfg.Address = envutil.String("TEMPORAL_ADDRESS", cfg.Address, log)
	cfg.Namespace = stringsOr(envutil.String("TEMPORAL_NAMESPACE", cfg.Namespace, log), "tenantsearch")
	cfg.TaskQueue = stringsOr(envutil.String("TEMPORAL_TASK_QUEUE", cfg.TaskQueue, log), "tenantsearch-analytics")
	cfg.ClientCertPath = envutil.String("TEMPORAL_CLIENT_CERT_PATH", cfg.ClientCertPath, log)
	cfg.ClientKeyPath = envutil.String("TEMPORAL_CLIENT_KEY_PATH", cfg.ClientKeyPath, log)
	cfg.ClientCAPath = envutil.String("TEMPORAL_CLIENT_CA_PATH", cfg.ClientCAPath, log)
	cfg.AutoRegisterNamespace = envutil.Bool("TEMPORAL_AUTO_REGISTER_NAMESPACE", cfg.AutoRegisterNamespace)
	cfg.NamespaceRetentionDays = envutil.Int("TEMPORAL_NAMESPACE_RETENTION_DAYS", cfg.NamespaceRetentionDays)
	cfg.DialTimeout = envutil.Duration("TEMPORAL_DIAL_TIMEOUT", cfg.DialTimeout)
	cfg.DialMaxWait = envutil.Duration("TEMPORAL_DIAL_MAX_WAIT", cfg.DialMaxWait)
	cfg.DialBackoff = envutil.Duration("TEMPORAL_DIAL_BACKOFF", cfg.DialBackoff)
	cfg.DialBackoffMax = envutil.Duration("TEMPORAL_DIAL_BACKOFF_MAX", cfg.DialBackoffMax)
	cfg.WorkerConcurrency = envutil.Int("TEMPORAL_WORKER_CONCURRENCY", cfg.WorkerConcurrency)
	if cfg.WorkerConcurrency < 1 {
		cfg.WorkerConcurrency = 1
	}
	if cfg.NamespaceRetentionDays < 1 || cfg.NamespaceRetentionDays > 365 {
		cfg.NamespaceRetentionDays = 7
	}
	return cfg
}

func stringsOr(v, def string) string {
	if strings.TrimSpace(v) == "" {
		return def
	}
	return v
}
