package redis

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yungbote/tenantsearch-backend/internal/domain"
	"github.com/yungbote/tenantsearch-backend/internal/platform/logger"
)

func TestScopeLockerExcludesSecondHolder(t *testing.T) {
	addr := os.Getenv("REDIS_TEST_ADDR")
	if addr == "" {
		t.Skip("REDIS_TEST_ADDR not set")
	}
	ctx := context.Background()
	rdb, err := NewClient(ctx, logger.Nop(), Config{Addr: addr})
	require.NoError(t, err)
	t.Cleanup(func() { _ = rdb.Close() })

	locker := NewScopeLocker(rdb, logger.Nop())
	key := "test:" + uuid.NewString()

	held, err := locker.TryLock(ctx, key, time.Minute)
	require.NoError(t, err)
	require.NoError(t, held.Extend(ctx, 2*time.Minute))

	_, err = locker.TryLock(ctx, key, time.Minute)
	assert.True(t, domain.IsCode(err, domain.CodeRebuildInProgress))
	assert.True(t, domain.IsRetryable(err))

	require.NoError(t, held.Unlock(ctx))
	require.NoError(t, held.Unlock(ctx))
	assert.True(t, domain.IsCode(held.Extend(ctx, time.Minute), domain.CodeConflict), "released lease cannot be extended")

	again, err := locker.TryLock(ctx, key, time.Minute)
	require.NoError(t, err)
	require.NoError(t, again.Unlock(ctx))
}
