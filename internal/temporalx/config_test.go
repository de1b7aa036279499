package temporalx

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yungbote/tenantsearch-backend/internal/platform/logger"
)

func TestLoadConfigOverlaysEnv(t *testing.T) {
	t.Setenv("TEMPORAL_ADDRESS", "temporal:7233")
	t.Setenv("TEMPORAL_TASK_QUEUE", "")
	t.Setenv("TEMPORAL_WORKER_CONCURRENCY", "0")
	t.Setenv("TEMPORAL_NAMESPACE_RETENTION_DAYS", "900")

	cfg := LoadConfig(DefaultConfig(), logger.Nop())
	assert.Equal(t, "temporal:7233", cfg.Address)
	assert.Equal(t, "tenantsearch-analytics", cfg.TaskQueue)
	assert.Equal(t, 1, cfg.WorkerConcurrency)
	assert.Equal(t, 7, cfg.NamespaceRetentionDays)
}

func TestBackoffDoublesUpToMax(t *testing.T) {
	assert.Equal(t, 100*time.Millisecond, Backoff(100*time.Millisecond, time.Second, 1))
	assert.Equal(t, 400*time.Millisecond, Backoff(100*time.Millisecond, time.Second, 3))
	assert.Equal(t, time.Second, Backoff(100*time.Millisecond, time.Second, 10))
	assert.Equal(t, 250*time.Millisecond, Backoff(0, 0, 1))
}

func TestRetryStopsOnSuccess(t *testing.T) {
	cfg := Config{DialMaxWait: time.Second, DialBackoff: time.Millisecond, DialBackoffMax: time.Millisecond}
	calls := 0
	err := Retry(context.Background(), logger.Nop(), cfg, "op", func(context.Context, int) error {
		calls++
		if calls < 3 {
			return errors.New("unavailable")
		}
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 3, calls)
}

func TestRetryStopsOnPermanent(t *testing.T) {
	cfg := Config{DialMaxWait: time.Minute, DialBackoff: time.Millisecond}
	calls := 0
	err := Retry(context.Background(), logger.Nop(), cfg, "op", func(context.Context, int) error {
		calls++
		return fmt.Errorf("%w: denied", ErrPermanent)
	})
	require.ErrorIs(t, err, ErrPermanent)
	assert.Equal(t, 1, calls)
}

func TestRetryWithoutWaitBudgetTriesOnce(t *testing.T) {
	calls := 0
	err := Retry(context.Background(), logger.Nop(), Config{}, "op", func(context.Context, int) error {
		calls++
		return errors.New("down")
	})
	require.Error(t, err)
	assert.Equal(t, 1, calls)
}

func TestRetryHonoursCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cfg := Config{DialMaxWait: time.Minute, DialBackoff: time.Hour, DialBackoffMax: time.Hour}
	err := Retry(ctx, logger.Nop(), cfg, "op", func(context.Context, int) error {
		cancel()
		return errors.New("down")
	})
	require.ErrorIs(t, err, context.Canceled)
}

func TestNewClientWithoutAddressIsDisabled(t *testing.T) {
	c, err := NewClient(context.Background(), logger.Nop(), Config{})
	require.NoError(t, err)
	assert.Nil(t, c)
}
