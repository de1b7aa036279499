package observability

import (
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	promtest "github.com/prometheus/client_golang/prometheus/testutil"
)

func TestNilMetricsIsSafe(t *testing.T) {
	var m *Metrics
	m.ObserveAPI("GET", "/x", 200, time.Millisecond)
	m.ObserveSearch("hybrid", "ok", 3, time.Millisecond)
	m.ObserveRebuild("ok", time.Second)
	m.ObserveEmbeddingBatch("fallback")
	m.IncAggregateConflict("a", "op", "conflict")
	if m.Registry() != nil {
		t.Fatalf("expected nil registry")
	}
}

func TestEmbeddingFallbackCounted(t *testing.T) {
	m := NewMetrics()
	m.ObserveEmbeddingBatch("provider")
	m.ObserveEmbeddingBatch("fallback")
	m.ObserveEmbeddingBatch("fallback")
	if got := promtest.ToFloat64(m.embeddingFallback); got != 2 {
		t.Fatalf("fallback total: want 2 got %v", got)
	}
	if got := promtest.ToFloat64(m.embeddingRequests.WithLabelValues("provider")); got != 1 {
		t.Fatalf("provider total: want 1 got %v", got)
	}
}

func TestRebuildCountedByStatus(t *testing.T) {
	m := NewMetrics()
	m.ObserveRebuild("ok", time.Second)
	m.ObserveRebuild("rebuild_in_progress", 0)
	if got := promtest.ToFloat64(m.rebuildTotal.WithLabelValues("rebuild_in_progress")); got != 1 {
		t.Fatalf("want 1 got %v", got)
	}
}

func TestHandlerServesRegistry(t *testing.T) {
	m := NewMetrics()
	m.ObserveSearch("degraded", "ok", 4, 10*time.Millisecond)
	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	if rec.Code != 200 {
		t.Fatalf("status: %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "tenantsearch_search_duration_seconds") {
		t.Fatalf("search histogram missing from exposition")
	}
}

func TestParseHeaders(t *testing.T) {
	got := ParseHeaders(" a=1, b = 2 ,bad,=x")
	if len(got) != 2 || got["a"] != "1" || got["b"] != "2" {
		t.Fatalf("unexpected headers: %#v", got)
	}
	if ParseHeaders("") != nil {
		t.Fatalf("empty should be nil")
	}
}
