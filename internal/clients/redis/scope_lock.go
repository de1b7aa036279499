package redis

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"

	"github.com/yungbote/tenantsearch-backend/internal/domain"
	"github.com/yungbote/tenantsearch-backend/internal/platform/logger"
	"github.com/yungbote/tenantsearch-backend/internal/services"
)

const keyPrefix = "tenantsearch:rebuild:"

// releaseScript deletes the key only while it still holds our token.
var releaseScript = goredis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// extendScript resets the TTL only while the key still holds our token.
var extendScript = goredis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("PEXPIRE", KEYS[1], ARGV[2])
end
return 0
`)

type scopeLocker struct {
	rdb goredis.UniversalClient
	log *logger.Logger
}

// NewScopeLocker serializes rebuilds across processes with SET NX PX.
func NewScopeLocker(rdb goredis.UniversalClient, log *logger.Logger) services.ScopeLocker {
	return &scopeLocker{rdb: rdb, log: log.With("component", "RedisScopeLocker")}
}

func (l *scopeLocker) TryLock(ctx context.Context, key string, ttl time.Duration) (services.ScopeLease, error) {
	const op = "RedisScopeLocker.TryLock"
	key = strings.TrimSpace(key)
	if key == "" {
		return nil, domain.Validation(op, "scope key is required")
	}
	if ttl <= 0 {
		ttl = services.DefaultScopeLockTTL
	}
	token := uuid.NewString()
	ok, err := l.rdb.SetNX(ctx, keyPrefix+key, token, ttl).Result()
	if err != nil {
		return nil, domain.NewError(domain.CodeRetryable, op, "redis unavailable", err)
	}
	if !ok {
		return nil, domain.RebuildInProgress(op, key)
	}
	return &lease{locker: l, key: key, token: token}, nil
}

type lease struct {
	locker *scopeLocker
	key    string
	token  string
	once   sync.Once
}

func (x *lease) Extend(ctx context.Context, ttl time.Duration) error {
	const op = "RedisScopeLease.Extend"
	n, err := extendScript.Run(ctx, x.locker.rdb, []string{keyPrefix + x.key}, x.token, ttl.Milliseconds()).Int64()
	if err != nil {
		return domain.NewError(domain.CodeRetryable, op, "redis unavailable", err)
	}
	if n == 0 {
		return services.LeaseLost(op, x.key)
	}
	return nil
}

func (x *lease) Unlock(ctx context.Context) error {
	var relErr error
	x.once.Do(func() {
		if err := releaseScript.Run(ctx, x.locker.rdb, []string{keyPrefix + x.key}, x.token).Err(); err != nil {
			x.locker.log.Warn("scope lock release failed", "scope_key", x.key, "error", err)
			relErr = err
		}
	})
	return relErr
}
