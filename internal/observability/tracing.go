package observability

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.27.0"
	"go.opentelemetry.io/otel/trace"

	"github.com/yungbote/tenantsearch-backend/internal/platform/logger"
)

const (
	tracerName         = "github.com/yungbote/tenantsearch-backend"
	defaultSampleRatio = 0.1
)

type TracingConfig struct {
	Enabled     bool
	ServiceName string
	Environment string
	Version     string
	// Endpoint is an OTLP/HTTP host:port. Empty selects the stdout exporter.
	Endpoint    string
	Headers     map[string]string
	Insecure    bool
	SampleRatio float64
}

type shutdownFunc = func(context.Context) error

var (
	tracingOnce     sync.Once
	tracingShutdown shutdownFunc = func(context.Context) error { return nil }
)

// InitTracing installs the global tracer provider and W3C propagators on
// first call. Exporter failures degrade to spans that are sampled but never
// exported. The returned shutdown is never nil.
func InitTracing(ctx context.Context, log *logger.Logger, cfg TracingConfig) shutdownFunc {
	tracingOnce.Do(func() {
		if !cfg.Enabled {
			return
		}
		tp := sdktrace.NewTracerProvider(tracerOptions(ctx, log, cfg)...)
		otel.SetTracerProvider(tp)
		otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(propagation.TraceContext{}, propagation.Baggage{}))
		tracingShutdown = tp.Shutdown
		log.Info("tracing enabled", "service", serviceName(cfg), "endpoint", cfg.Endpoint, "sample_ratio", sampleRatio(cfg.SampleRatio))
	})
	return tracingShutdown
}

func tracerOptions(ctx context.Context, log *logger.Logger, cfg TracingConfig) []sdktrace.TracerProviderOption {
	opts := []sdktrace.TracerProviderOption{
		sdktrace.WithSampler(sdktrace.ParentBased(sdktrace.TraceIDRatioBased(sampleRatio(cfg.SampleRatio)))),
	}
	res, err := resource.New(ctx, resource.WithAttributes(
		semconv.ServiceNameKey.String(serviceName(cfg)),
		semconv.ServiceVersionKey.String(strings.TrimSpace(cfg.Version)),
		attribute.String("deployment.environment", strings.TrimSpace(cfg.Environment)),
	))
	if err != nil {
		log.Warn("tracing resource incomplete", "error", err)
	}
	opts = append(opts, sdktrace.WithResource(res))

	exp, err := newExporter(ctx, cfg)
	if err != nil {
		log.Warn("trace exporter unavailable", "error", err)
		return opts
	}
	if cfg.Endpoint == "" {
		log.Warn("no OTLP endpoint; spans go to stdout")
	}
	return append(opts, sdktrace.WithBatcher(exp, sdktrace.WithBatchTimeout(5*time.Second)))
}

func newExporter(ctx context.Context, cfg TracingConfig) (sdktrace.SpanExporter, error) {
	endpoint := strings.TrimSpace(cfg.Endpoint)
	if endpoint == "" {
		return stdouttrace.New(stdouttrace.WithPrettyPrint())
	}
	opts := []otlptracehttp.Option{otlptracehttp.WithEndpoint(endpoint)}
	if cfg.Insecure {
		opts = append(opts, otlptracehttp.WithInsecure())
	}
	if len(cfg.Headers) > 0 {
		opts = append(opts, otlptracehttp.WithHeaders(cfg.Headers))
	}
	return otlptracehttp.New(ctx, opts...)
}

func serviceName(cfg TracingConfig) string {
	if s := strings.TrimSpace(cfg.ServiceName); s != "" {
		return s
	}
	return "tenantsearch"
}

func sampleRatio(v float64) float64 {
	switch {
	case v <= 0:
		return defaultSampleRatio
	case v > 1:
		return 1
	}
	return v
}

// StartSpan opens a span on the package tracer; a no-op span until
// InitTracing installs a provider.
func StartSpan(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	return otel.Tracer(tracerName).Start(ctx, name, trace.WithAttributes(attrs...))
}

// TenantAttr tags a span with the tenant it serves.
func TenantAttr(id uuid.UUID) attribute.KeyValue {
	return attribute.String("tenant.id", id.String())
}

// EndSpan records err on span, if any, and ends it.
func EndSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}

// ParseHeaders reads the OTEL_EXPORTER_OTLP_HEADERS "k1=v1,k2=v2" form.
// Malformed or empty pairs are skipped.
func ParseHeaders(raw string) map[string]string {
	var out map[string]string
	for _, part := range strings.Split(raw, ",") {
		k, v, ok := strings.Cut(part, "=")
		k, v = strings.TrimSpace(k), strings.TrimSpace(v)
		if !ok || k == "" || v == "" {
			continue
		}
		if out == nil {
			out = make(map[string]string)
		}
		out[k] = v
	}
	return out
}
