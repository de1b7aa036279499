package aggregates

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/yungbote/tenantsearch-backend/internal/data/tenantdb"
	"github.com/yungbote/tenantsearch-backend/internal/domain"
	"github.com/yungbote/tenantsearch-backend/internal/platform/logger"
)

type BaseDeps struct {
	Log    *logger.Logger
	Runner TxRunner
	Hooks  Hooks
}

func (d BaseDeps) withDefaults() BaseDeps {
	if d.Hooks == nil {
		d.Hooks = noopHooks{}
	}
	if d.Log == nil {
		d.Log = logger.Nop()
	}
	return d
}

func executeWrite(ctx context.Context, deps BaseDeps, op string, tenantID uuid.UUID, fn func(*tenantdb.Scope) error) error {
	start := time.Now()
	deps = deps.withDefaults()
	op = strings.TrimSpace(op)
	if op == "" {
		op = "aggregate.write"
	}
	var err error
	if deps.Runner == nil {
		err = domain.NewError(domain.CodeInternal, op, "aggregate tx runner not configured", nil)
	} else {
		err = deps.Runner.InTx(ctx, tenantID, fn)
	}
	mapped := MapError(op, err)

	status := "success"
	if mapped != nil {
		code := domain.CodeOf(mapped)
		status = string(code)
		switch {
		case code == domain.CodeConflict:
			deps.Hooks.IncConflict(op, status)
		case domain.IsRetryable(mapped):
			deps.Hooks.IncRetry(op, status)
		}
		deps.Log.Warn("Aggregate write failed", "op", op, "tenant_id", tenantID, "code", status, "error", mapped)
	}
	deps.Hooks.ObserveOperation(op, status, time.Since(start))
	return mapped
}
