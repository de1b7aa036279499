package services_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yungbote/tenantsearch-backend/internal/domain"
	"github.com/yungbote/tenantsearch-backend/internal/modules/embedding"
	"github.com/yungbote/tenantsearch-backend/internal/services"
)

// slowAdapter embeds like the harness adapter but takes delay per text.
func (h *harness) slowAdapter(delay time.Duration) *embedding.Adapter {
	provider := embedding.ProviderFunc(func(ctx context.Context, text string) ([]float32, error) {
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
		return embedding.HashProvider{Dim: testDim}.Embed(ctx, text)
	})
	return embedding.NewAdapter(h.log, provider, embedding.Config{Dim: testDim}, h.metrics)
}

func (h *harness) analyticsWith(adapter *embedding.Adapter, locker services.ScopeLocker, ttl time.Duration) services.AnalyticsService {
	return services.NewAnalyticsService(h.log, h.binder, h.repos, h.analyticsUsecases(adapter), locker, nil, h.metrics, services.AnalyticsServiceConfig{LockTTL: ttl})
}

func TestRebuildKeepsScopeLockPastTTL(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	tenant := uuid.New()
	for _, q := range []string{"refund order", "shipping time", "gift card balance", "cancel subscription"} {
		_, err := h.search.Search(ctx, tenant, q, 5)
		require.NoError(t, err)
	}
	scope := currentScope(tenant)

	const ttl = 60 * time.Millisecond
	svc := h.analyticsWith(h.slowAdapter(75*time.Millisecond), h.locker, ttl)

	done := make(chan error, 1)
	go func() {
		_, err := svc.Rebuild(ctx, services.RebuildInput{Scope: scope})
		done <- err
	}()

	// The rebuild embeds four texts at 75ms each, so it is still running
	// well after the original TTL would have expired.
	time.Sleep(3 * ttl)
	_, err := h.locker.TryLock(ctx, scope.Key(), time.Minute)
	assert.True(t, domain.IsCode(err, domain.CodeRebuildInProgress), "renewed lock must still exclude, got %v", err)
	_, err = svc.Rebuild(ctx, services.RebuildInput{Scope: scope})
	assert.True(t, domain.IsCode(err, domain.CodeRebuildInProgress), "second rebuild must be refused, got %v", err)

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("rebuild did not finish")
	}

	held, err := h.locker.TryLock(ctx, scope.Key(), time.Minute)
	require.NoError(t, err, "lock is released once the rebuild finishes")
	require.NoError(t, held.Unlock(ctx))
}

type lostLease struct{ key string }

func (l lostLease) Extend(context.Context, time.Duration) error {
	return services.LeaseLost("lostLease.Extend", l.key)
}

func (lostLease) Unlock(context.Context) error { return nil }

type losingLocker struct{}

func (losingLocker) TryLock(_ context.Context, key string, _ time.Duration) (services.ScopeLease, error) {
	return lostLease{key: key}, nil
}

func TestRebuildAbortsWhenLeaseIsLost(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	tenant := uuid.New()
	for _, q := range []string{"refund order", "shipping time", "gift card balance"} {
		_, err := h.search.Search(ctx, tenant, q, 5)
		require.NoError(t, err)
	}
	scope := currentScope(tenant)

	svc := h.analyticsWith(h.slowAdapter(time.Second), losingLocker{}, 30*time.Millisecond)
	start := time.Now()
	_, err := svc.Rebuild(ctx, services.RebuildInput{Scope: scope})
	assert.True(t, domain.IsCode(err, domain.CodeConflict), "got %v", err)
	assert.Less(t, time.Since(start), time.Second, "rebuild must stop once renewal fails")

	top, err := h.analytics.TopQueries(ctx, scope)
	require.NoError(t, err)
	assert.Empty(t, top, "an aborted rebuild writes nothing")
}
