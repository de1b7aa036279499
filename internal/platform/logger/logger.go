package logger

import (
	"os"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Logger wraps a sugared zap logger. Every key/value pair passes through the
// process redaction policy before it reaches the encoder.
type Logger struct {
	SugaredLogger *zap.SugaredLogger
	policy        *policy
}

// New builds a logger for mode. "prod" and "production" select the JSON
// encoder at info level; anything else selects the console encoder at debug.
// LOG_LEVEL overrides the level when it parses.
func New(mode string) (*Logger, error) {
	cfg := configFor(mode)
	if lvl, ok := envLevel(); ok {
		cfg.Level = zap.NewAtomicLevelAt(lvl)
	}
	z, err := cfg.Build()
	if err != nil {
		return nil, err
	}
	return &Logger{SugaredLogger: z.Sugar(), policy: policyFromEnv()}, nil
}

func configFor(mode string) zap.Config {
	switch strings.ToLower(strings.TrimSpace(mode)) {
	case "prod", "production":
		cfg := zap.NewProductionConfig()
		cfg.Level = zap.NewAtomicLevelAt(zap.InfoLevel)
		return cfg
	default:
		cfg := zap.NewDevelopmentConfig()
		cfg.Level = zap.NewAtomicLevelAt(zap.DebugLevel)
		return cfg
	}
}

func envLevel() (zapcore.Level, bool) {
	raw := strings.ToLower(strings.TrimSpace(os.Getenv("LOG_LEVEL")))
	if raw == "" {
		return zapcore.InfoLevel, false
	}
	var lvl zapcore.Level
	if err := lvl.UnmarshalText([]byte(raw)); err != nil {
		return zapcore.InfoLevel, false
	}
	return lvl, true
}

// Nop discards everything.
func Nop() *Logger {
	return &Logger{SugaredLogger: zap.NewNop().Sugar()}
}

// Sync flushes buffered entries; errors are dropped since stderr sync
// commonly fails on terminals.
func (l *Logger) Sync() {
	if l == nil || l.SugaredLogger == nil {
		return
	}
	_ = l.SugaredLogger.Sync()
}

func (l *Logger) Debug(msg string, kv ...any) { l.log(zapcore.DebugLevel, msg, kv) }
func (l *Logger) Info(msg string, kv ...any)  { l.log(zapcore.InfoLevel, msg, kv) }
func (l *Logger) Warn(msg string, kv ...any)  { l.log(zapcore.WarnLevel, msg, kv) }
func (l *Logger) Error(msg string, kv ...any) { l.log(zapcore.ErrorLevel, msg, kv) }
func (l *Logger) Fatal(msg string, kv ...any) { l.log(zapcore.FatalLevel, msg, kv) }

func (l *Logger) log(lvl zapcore.Level, msg string, kv []any) {
	if l == nil || l.SugaredLogger == nil {
		return
	}
	l.SugaredLogger.Logw(lvl, msg, l.policy.apply(kv)...)
}

// With returns a child logger carrying kv on every entry.
func (l *Logger) With(kv ...any) *Logger {
	if l == nil || l.SugaredLogger == nil {
		return Nop()
	}
	return &Logger{SugaredLogger: l.SugaredLogger.With(l.policy.apply(kv)...), policy: l.policy}
}
