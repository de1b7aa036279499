package aggregates

import (
	"strings"
	"time"

	"github.com/yungbote/tenantsearch-backend/internal/observability"
)

// Hooks captures aggregate-level observability events.
type Hooks interface {
	ObserveOperation(name, status string, dur time.Duration)
	IncConflict(name, code string)
	IncRetry(name, code string)
}

type noopHooks struct{}

func (noopHooks) ObserveOperation(string, string, time.Duration) {}
func (noopHooks) IncConflict(string, string)                     {}
func (noopHooks) IncRetry(string, string)                        {}

type observabilityHooks struct {
	metrics *observability.Metrics
}

// NewObservabilityHooks creates aggregate hooks backed by prometheus metrics.
func NewObservabilityHooks(metrics *observability.Metrics) Hooks {
	if metrics == nil {
		return noopHooks{}
	}
	return &observabilityHooks{metrics: metrics}
}

func (h *observabilityHooks) ObserveOperation(name, status string, dur time.Duration) {
	agg, op := splitOp(name)
	h.metrics.ObserveAggregateOperation(agg, op, strings.TrimSpace(status), dur)
}

func (h *observabilityHooks) IncConflict(name, code string) {
	agg, op := splitOp(name)
	h.metrics.IncAggregateConflict(agg, op, code)
}

func (h *observabilityHooks) IncRetry(name, code string) {
	agg, op := splitOp(name)
	h.metrics.IncAggregateRetry(agg, op, code)
}

// splitOp turns "Analytics.Scope.Replace" into ("Analytics.Scope", "Replace").
func splitOp(name string) (string, string) {
	name = strings.TrimSpace(name)
	i := strings.LastIndex(name, ".")
	if i <= 0 || i == len(name)-1 {
		return name, name
	}
	return name[:i], name[i+1:]
}
