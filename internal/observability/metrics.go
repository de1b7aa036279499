package observability

import (
	"context"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"github.com/yungbote/tenantsearch-backend/internal/platform/logger"
)

const namespace = "tenantsearch"

// Metrics owns a private registry so tests can build isolated instances.
// All methods are nil-safe; a nil *Metrics records nothing.
type Metrics struct {
	registry *prometheus.Registry

	apiRequests *prometheus.CounterVec
	apiLatency  *prometheus.HistogramVec
	apiInflight prometheus.Gauge

	searchDuration    *prometheus.HistogramVec
	searchResults     prometheus.Histogram
	rebuildTotal      *prometheus.CounterVec
	rebuildDuration   prometheus.Histogram
	embeddingRequests *prometheus.CounterVec
	embeddingFallback prometheus.Counter

	aggregateDuration *prometheus.HistogramVec
	aggregateConflict *prometheus.CounterVec
	aggregateRetry    *prometheus.CounterVec

	activityTime *prometheus.HistogramVec
	pgStats      *prometheus.GaugeVec
	redisUp      prometheus.Gauge
	redisPing    prometheus.Gauge
}

var (
	initOnce sync.Once
	instance *Metrics
)

func Current() *Metrics {
	return instance
}

// Init builds the process-wide Metrics once.
func Init(log *logger.Logger) *Metrics {
	initOnce.Do(func() {
		instance = NewMetrics()
		log.Info("metrics initialized")
	})
	return instance
}

func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		apiRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Name: "api_requests_total",
			Help: "HTTP requests by method, route and status.",
		}, []string{"method", "route", "status"}),
		apiLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace, Name: "api_request_duration_seconds",
			Help:    "HTTP request latency.",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "route", "status"}),
		apiInflight: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace, Name: "api_inflight_requests",
			Help: "HTTP requests currently being served.",
		}),
		searchDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace, Name: "search_duration_seconds",
			Help:    "Hybrid search latency by mode and outcome.",
			Buckets: []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5},
		}, []string{"mode", "status"}),
		searchResults: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace, Name: "search_results",
			Help:    "Number of results returned per search.",
			Buckets: prometheus.LinearBuckets(0, 5, 11),
		}),
		rebuildTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Name: "analytics_rebuild_total",
			Help: "Analytics rebuilds by outcome.",
		}, []string{"status"}),
		rebuildDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace, Name: "analytics_rebuild_duration_seconds",
			Help:    "Analytics rebuild latency.",
			Buckets: prometheus.ExponentialBuckets(0.05, 2, 12),
		}),
		embeddingRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Name: "embedding_requests_total",
			Help: "Embedding batches by kind (provider or fallback).",
		}, []string{"kind"}),
		embeddingFallback: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Name: "embedding_fallback_total",
			Help: "Batches that fell back to hash embeddings.",
		}),
		aggregateDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace, Name: "aggregate_operation_duration_seconds",
			Help:    "Aggregate write latency.",
			Buckets: prometheus.DefBuckets,
		}, []string{"aggregate", "operation", "status"}),
		aggregateConflict: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Name: "aggregate_conflict_total",
			Help: "Aggregate writes rejected by a conflict.",
		}, []string{"aggregate", "operation", "code"}),
		aggregateRetry: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Name: "aggregate_retry_total",
			Help: "Aggregate writes failing with a retryable error.",
		}, []string{"aggregate", "operation", "code"}),
		activityTime: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace, Name: "temporal_activity_duration_seconds",
			Help:    "Temporal activity latency.",
			Buckets: prometheus.ExponentialBuckets(0.05, 2, 12),
		}, []string{"activity", "status"}),
		pgStats: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace, Name: "postgres_pool",
			Help: "database/sql pool statistics.",
		}, []string{"stat"}),
		redisUp: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace, Name: "redis_up",
			Help: "1 when the last redis ping succeeded.",
		}),
		redisPing: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace, Name: "redis_ping_seconds",
			Help: "Latency of the last redis ping.",
		}),
	}
	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.apiRequests, m.apiLatency, m.apiInflight,
		m.searchDuration, m.searchResults, m.rebuildTotal, m.rebuildDuration,
		m.embeddingRequests, m.embeddingFallback,
		m.aggregateDuration, m.aggregateConflict, m.aggregateRetry,
		m.activityTime, m.pgStats, m.redisUp, m.redisPing,
	)
	return m
}

func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusServiceUnavailable)
		})
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// StartServer exposes /metrics on a dedicated listener until ctx is done.
func (m *Metrics) StartServer(ctx context.Context, log *logger.Logger, addr string) {
	if m == nil {
		return
	}
	addr = strings.TrimSpace(addr)
	if addr == "" {
		return
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", m.Handler())
	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		_ = srv.Shutdown(shutdownCtx)
		cancel()
	}()
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("metrics server failed", "error", err, "addr", addr)
		}
	}()
}

func (m *Metrics) ObserveAPI(method, route string, status int, dur time.Duration) {
	if m == nil {
		return
	}
	if method == "" {
		method = "UNKNOWN"
	}
	if route == "" {
		route = "unknown"
	}
	code := strconv.Itoa(status)
	m.apiRequests.WithLabelValues(method, route, code).Inc()
	m.apiLatency.WithLabelValues(method, route, code).Observe(dur.Seconds())
}

func (m *Metrics) ApiInflightInc() {
	if m == nil {
		return
	}
	m.apiInflight.Inc()
}

func (m *Metrics) ApiInflightDec() {
	if m == nil {
		return
	}
	m.apiInflight.Dec()
}

// ObserveSearch records one search. mode is "hybrid" or "degraded".
func (m *Metrics) ObserveSearch(mode, status string, results int, dur time.Duration) {
	if m == nil {
		return
	}
	m.searchDuration.WithLabelValues(mode, status).Observe(dur.Seconds())
	if status == "ok" {
		m.searchResults.Observe(float64(results))
	}
}

func (m *Metrics) ObserveRebuild(status string, dur time.Duration) {
	if m == nil {
		return
	}
	m.rebuildTotal.WithLabelValues(status).Inc()
	if status == "ok" {
		m.rebuildDuration.Observe(dur.Seconds())
	}
}

func (m *Metrics) ObserveEmbeddingBatch(kind string) {
	if m == nil {
		return
	}
	m.embeddingRequests.WithLabelValues(kind).Inc()
	if kind == "fallback" {
		m.embeddingFallback.Inc()
	}
}

func (m *Metrics) ObserveAggregateOperation(aggregate, operation, status string, dur time.Duration) {
	if m == nil {
		return
	}
	m.aggregateDuration.WithLabelValues(aggregate, operation, status).Observe(dur.Seconds())
}

func (m *Metrics) IncAggregateConflict(aggregate, operation, code string) {
	if m == nil {
		return
	}
	m.aggregateConflict.WithLabelValues(aggregate, operation, code).Inc()
}

func (m *Metrics) IncAggregateRetry(aggregate, operation, code string) {
	if m == nil {
		return
	}
	m.aggregateRetry.WithLabelValues(aggregate, operation, code).Inc()
}

func (m *Metrics) ObserveActivity(activity, status string, dur time.Duration) {
	if m == nil {
		return
	}
	if activity == "" {
		activity = "unknown"
	}
	m.activityTime.WithLabelValues(activity, status).Observe(dur.Seconds())
}

func (m *Metrics) StartPostgresCollector(ctx context.Context, log *logger.Logger, db *gorm.DB, interval time.Duration) {
	if m == nil || db == nil {
		return
	}
	if interval <= 0 {
		interval = 15 * time.Second
	}
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				sqlDB, err := db.DB()
				if err != nil {
					log.Warn("metrics: postgres stats unavailable", "error", err)
					continue
				}
				stats := sqlDB.Stats()
				m.pgStats.WithLabelValues("open_connections").Set(float64(stats.OpenConnections))
				m.pgStats.WithLabelValues("in_use").Set(float64(stats.InUse))
				m.pgStats.WithLabelValues("idle").Set(float64(stats.Idle))
				m.pgStats.WithLabelValues("wait_count").Set(float64(stats.WaitCount))
				m.pgStats.WithLabelValues("wait_duration_seconds").Set(stats.WaitDuration.Seconds())
				m.pgStats.WithLabelValues("max_open_connections").Set(float64(stats.MaxOpenConnections))
			}
		}
	}()
}

func (m *Metrics) StartRedisCollector(ctx context.Context, log *logger.Logger, rdb redis.UniversalClient, interval time.Duration) {
	if m == nil || rdb == nil {
		return
	}
	if interval <= 0 {
		interval = 15 * time.Second
	}
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				start := time.Now()
				if err := rdb.Ping(ctx).Err(); err != nil {
					m.redisUp.Set(0)
					log.Warn("metrics: redis ping failed", "error", err)
					continue
				}
				m.redisUp.Set(1)
				m.redisPing.Set(time.Since(start).Seconds())
			}
		}
	}()
}
