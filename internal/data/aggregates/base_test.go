package aggregates

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/yungbote/tenantsearch-backend/internal/data/tenantdb"
	"github.com/yungbote/tenantsearch-backend/internal/domain"
)

func TestExecuteWriteObservesSuccessStatus(t *testing.T) {
	hooks := &spyHooks{}
	runner := &spyTxRunner{}

	err := executeWrite(context.Background(), BaseDeps{
		Runner: runner,
		Hooks:  hooks,
	}, "aggregate.test.success", uuid.New(), func(*tenantdb.Scope) error { return nil })
	if err != nil {
		t.Fatalf("executeWrite success: %v", err)
	}
	if len(hooks.Operations) != 1 {
		t.Fatalf("operations count: want=1 got=%d", len(hooks.Operations))
	}
	if hooks.Operations[0].Status != "success" {
		t.Fatalf("operation status: want=success got=%s", hooks.Operations[0].Status)
	}
}

func TestExecuteWritePassesTenantToRunner(t *testing.T) {
	runner := &spyTxRunner{}
	tenant := uuid.New()
	_ = executeWrite(context.Background(), BaseDeps{Runner: runner}, "aggregate.test.tenant", tenant, func(*tenantdb.Scope) error { return nil })
	if len(runner.Tenants) != 1 || runner.Tenants[0] != tenant {
		t.Fatalf("runner tenants: %v", runner.Tenants)
	}
}

func TestExecuteWriteObservesStorageStatus(t *testing.T) {
	hooks := &spyHooks{}
	err := executeWrite(context.Background(), BaseDeps{
		Runner: &spyTxRunner{},
		Hooks:  hooks,
	}, "aggregate.test.storage", uuid.New(), func(*tenantdb.Scope) error {
		return errString("connection reset by peer")
	})
	if !domain.IsCode(err, domain.CodeStorage) {
		t.Fatalf("expected storage code, got=%v", err)
	}
	if len(hooks.Operations) != 1 || hooks.Operations[0].Status != string(domain.CodeStorage) {
		t.Fatalf("unexpected op status: %+v", hooks.Operations)
	}
}

func TestExecuteWriteWithoutRunnerIsInternal(t *testing.T) {
	err := executeWrite(context.Background(), BaseDeps{}, "aggregate.test.norunner", uuid.New(), func(*tenantdb.Scope) error {
		t.Fatalf("body must not run")
		return nil
	})
	if !domain.IsCode(err, domain.CodeInternal) {
		t.Fatalf("expected internal code, got=%v", err)
	}
}

func TestExecuteWriteTracksConflictAndRetryCounters(t *testing.T) {
	t.Run("conflict", func(t *testing.T) {
		hooks := &spyHooks{}
		err := executeWrite(context.Background(), BaseDeps{
			Runner: &spyTxRunner{},
			Hooks:  hooks,
		}, "aggregate.test.conflict", uuid.New(), func(*tenantdb.Scope) error {
			return ConflictError("stale lease")
		})
		if !domain.IsCode(err, domain.CodeConflict) {
			t.Fatalf("expected conflict code, got=%v", err)
		}
		if len(hooks.Conflicts) != 1 || hooks.Conflicts[0] != "aggregate.test.conflict" {
			t.Fatalf("conflict hooks: %+v", hooks.Conflicts)
		}
		if len(hooks.Retries) != 0 {
			t.Fatalf("retry hooks should be empty, got=%+v", hooks.Retries)
		}
	})

	t.Run("retryable", func(t *testing.T) {
		hooks := &spyHooks{}
		err := executeWrite(context.Background(), BaseDeps{
			Runner: &spyTxRunner{},
			Hooks:  hooks,
		}, "aggregate.test.retry", uuid.New(), func(*tenantdb.Scope) error {
			return RetryableError("deadlock")
		})
		if !domain.IsCode(err, domain.CodeRetryable) {
			t.Fatalf("expected retryable code, got=%v", err)
		}
		if len(hooks.Retries) != 1 || hooks.Retries[0] != "aggregate.test.retry" {
			t.Fatalf("retry hooks: %+v", hooks.Retries)
		}
		if len(hooks.Conflicts) != 0 {
			t.Fatalf("conflict hooks should be empty, got=%+v", hooks.Conflicts)
		}
	})
}

func TestSplitOp(t *testing.T) {
	agg, op := splitOp("Analytics.Scope.Replace")
	if agg != "Analytics.Scope" || op != "Replace" {
		t.Fatalf("splitOp: got (%q, %q)", agg, op)
	}
	agg, op = splitOp("flat")
	if agg != "flat" || op != "flat" {
		t.Fatalf("splitOp flat: got (%q, %q)", agg, op)
	}
}

type errString string

func (e errString) Error() string { return string(e) }

type spyTxRunner struct {
	Tenants []uuid.UUID
}

func (r *spyTxRunner) InTx(_ context.Context, tenantID uuid.UUID, fn func(*tenantdb.Scope) error) error {
	r.Tenants = append(r.Tenants, tenantID)
	if fn == nil {
		return nil
	}
	return fn(nil)
}

type spyHooks struct {
	Operations []spyOperation
	Conflicts  []string
	Retries    []string
}

type spyOperation struct {
	Name   string
	Status string
}

func (h *spyHooks) ObserveOperation(name, status string, _ time.Duration) {
	h.Operations = append(h.Operations, spyOperation{Name: name, Status: status})
}

func (h *spyHooks) IncConflict(name, _ string) {
	h.Conflicts = append(h.Conflicts, name)
}

func (h *spyHooks) IncRetry(name, _ string) {
	h.Retries = append(h.Retries, name)
}
