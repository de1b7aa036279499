package qdrant

import (
	"fmt"
	"strconv"
	"strings"
)

type Config struct {
	Host       string
	Port       int
	UseTLS     bool
	APIKey     string
	Collection string
	VectorDim  int
	// MaxMessageSize bounds gRPC send and receive sizes in bytes.
	MaxMessageSize int
}

type ConfigErrorCode string

const (
	ConfigErrorMissingHost       ConfigErrorCode = "missing_host"
	ConfigErrorInvalidPort       ConfigErrorCode = "invalid_port"
	ConfigErrorMissingCollection ConfigErrorCode = "missing_collection"
	ConfigErrorInvalidVectorDim  ConfigErrorCode = "invalid_vector_dim"
)

type ConfigError struct {
	Code  ConfigErrorCode
	Value string
}

func (e *ConfigError) Error() string {
	if e == nil {
		return "invalid qdrant config"
	}
	switch e.Code {
	case ConfigErrorMissingHost:
		return "QDRANT_HOST is required"
	case ConfigErrorInvalidPort:
		return fmt.Sprintf("invalid QDRANT_PORT=%q; expected the gRPC port, e.g. 6334", e.Value)
	case ConfigErrorMissingCollection:
		return "QDRANT_COLLECTION is required"
	case ConfigErrorInvalidVectorDim:
		return fmt.Sprintf("invalid vector dimension %q; expected positive integer", e.Value)
	default:
		return "invalid qdrant config"
	}
}

func (c Config) withDefaults() Config {
	if c.Port == 0 {
		c.Port = 6334
	}
	if c.MaxMessageSize <= 0 {
		c.MaxMessageSize = 64 << 20
	}
	c.Host = strings.TrimSpace(c.Host)
	c.Collection = strings.TrimSpace(c.Collection)
	return c
}

func ValidateConfig(cfg Config) error {
	cfg = cfg.withDefaults()
	if cfg.Host == "" {
		return &ConfigError{Code: ConfigErrorMissingHost}
	}
	if cfg.Port <= 0 || cfg.Port > 65535 {
		return &ConfigError{Code: ConfigErrorInvalidPort, Value: strconv.Itoa(cfg.Port)}
	}
	if cfg.Collection == "" {
		return &ConfigError{Code: ConfigErrorMissingCollection}
	}
	if cfg.VectorDim <= 0 {
		return &ConfigError{Code: ConfigErrorInvalidVectorDim, Value: strconv.Itoa(cfg.VectorDim)}
	}
	return nil
}
