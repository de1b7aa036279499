package aggregates

import (
	"context"
	"testing"
	"time"

	"github.com/yungbote/tenantsearch-backend/internal/data/repos/testutil"
	"github.com/yungbote/tenantsearch-backend/internal/domain"
)

func TestRequireCASSuccess(t *testing.T) {
	if err := RequireCASSuccess(true, "ok"); err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if err := RequireCASSuccess(false, "stale"); !domain.IsCode(MapError("op", err), domain.CodeConflict) {
		t.Fatalf("expected conflict error, got %v", err)
	}
}

func TestLeaseGuardExcludesSecondHolder(t *testing.T) {
	db := testutil.SQLite(t)
	ctx := context.Background()
	g := NewLeaseGuard(db)

	ok, err := g.TryAcquire(ctx, "scope-a", "worker-1", time.Minute)
	if err != nil || !ok {
		t.Fatalf("first acquire: ok=%v err=%v", ok, err)
	}
	ok, err = g.TryAcquire(ctx, "scope-a", "worker-2", time.Minute)
	if err != nil {
		t.Fatalf("second acquire: %v", err)
	}
	if ok {
		t.Fatalf("second holder acquired a held lease")
	}
	ok, err = g.TryAcquire(ctx, "scope-b", "worker-2", time.Minute)
	if err != nil || !ok {
		t.Fatalf("other scope: ok=%v err=%v", ok, err)
	}
}

func TestLeaseGuardReleaseRequiresHolder(t *testing.T) {
	db := testutil.SQLite(t)
	ctx := context.Background()
	g := NewLeaseGuard(db)

	if ok, err := g.TryAcquire(ctx, "scope-a", "worker-1", time.Minute); err != nil || !ok {
		t.Fatalf("acquire: ok=%v err=%v", ok, err)
	}
	if ok, err := g.Release(ctx, "scope-a", "worker-2"); err != nil || ok {
		t.Fatalf("foreign release: ok=%v err=%v", ok, err)
	}
	if ok, err := g.Release(ctx, "scope-a", "worker-1"); err != nil || !ok {
		t.Fatalf("owner release: ok=%v err=%v", ok, err)
	}
	if ok, err := g.TryAcquire(ctx, "scope-a", "worker-2", time.Minute); err != nil || !ok {
		t.Fatalf("reacquire after release: ok=%v err=%v", ok, err)
	}
}

func TestLeaseGuardTakesOverExpiredLease(t *testing.T) {
	db := testutil.SQLite(t)
	ctx := context.Background()
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	g := NewLeaseGuard(db)
	g.now = func() time.Time { return now }

	if ok, err := g.TryAcquire(ctx, "scope-a", "worker-1", time.Minute); err != nil || !ok {
		t.Fatalf("acquire: ok=%v err=%v", ok, err)
	}
	now = now.Add(2 * time.Minute)
	if ok, err := g.TryAcquire(ctx, "scope-a", "worker-2", time.Minute); err != nil || !ok {
		t.Fatalf("takeover of expired lease: ok=%v err=%v", ok, err)
	}
}

func TestLeaseGuardValidatesInput(t *testing.T) {
	g := NewLeaseGuard(testutil.SQLite(t))
	if _, err := g.TryAcquire(context.Background(), "", "w", time.Minute); err == nil {
		t.Fatalf("expected validation error for empty key")
	}
	if _, err := g.TryAcquire(context.Background(), "k", "w", 0); err == nil {
		t.Fatalf("expected validation error for zero ttl")
	}
}

func TestLeaseGuardExtendKeepsOwnerAhead(t *testing.T) {
	db := testutil.SQLite(t)
	ctx := context.Background()
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	g := NewLeaseGuard(db)
	g.now = func() time.Time { return now }

	if ok, err := g.TryAcquire(ctx, "scope-a", "worker-1", time.Minute); err != nil || !ok {
		t.Fatalf("acquire: ok=%v err=%v", ok, err)
	}
	now = now.Add(50 * time.Second)
	if ok, err := g.Extend(ctx, "scope-a", "worker-1", time.Minute); err != nil || !ok {
		t.Fatalf("owner extend: ok=%v err=%v", ok, err)
	}
	now = now.Add(50 * time.Second)
	if ok, err := g.TryAcquire(ctx, "scope-a", "worker-2", time.Minute); err != nil || ok {
		t.Fatalf("extended lease was taken over: ok=%v err=%v", ok, err)
	}
	ok, err := g.Extend(ctx, "scope-a", "worker-2", time.Minute)
	if err != nil {
		t.Fatalf("foreign extend: %v", err)
	}
	if err := RequireCASSuccess(ok, "lease lost"); !domain.IsCode(MapError("op", err), domain.CodeConflict) {
		t.Fatalf("foreign extend should map to conflict, got %v", err)
	}
}
