package services

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/yungbote/tenantsearch-backend/internal/data/aggregates"
	"github.com/yungbote/tenantsearch-backend/internal/domain"
	"github.com/yungbote/tenantsearch-backend/internal/platform/logger"
)

const DefaultScopeLockTTL = 15 * time.Minute

// ScopeLease is a held scope lock.
type ScopeLease interface {
	// Extend pushes expiry to now+ttl. It fails once the lease was lost to
	// expiry and another holder.
	Extend(ctx context.Context, ttl time.Duration) error
	// Unlock releases the lease. It is safe to call more than once.
	Unlock(ctx context.Context) error
}

// ScopeLocker serializes rebuilds per analytics scope. TryLock never waits:
// a held key returns CodeRebuildInProgress.
type ScopeLocker interface {
	TryLock(ctx context.Context, key string, ttl time.Duration) (ScopeLease, error)
}

// LeaseLost reports that a scope lock is no longer held by its caller.
func LeaseLost(op, key string) error {
	return domain.NewError(domain.CodeConflict, op, "scope lock lost: "+key, nil)
}

// holdScope takes the scope lock and renews it every ttl/3 until release is
// called. The returned ctx is cancelled with the renewal error if the lease
// is lost, so the work stops before a second holder can start.
func holdScope(ctx context.Context, log *logger.Logger, locker ScopeLocker, key string, ttl time.Duration) (context.Context, func(), error) {
	if ttl <= 0 {
		ttl = DefaultScopeLockTTL
	}
	lease, err := locker.TryLock(ctx, key, ttl)
	if err != nil {
		return nil, nil, err
	}
	work, cancel := context.WithCancelCause(ctx)
	stop := make(chan struct{})
	done := make(chan struct{})
	go func() {
		defer close(done)
		every := max(ttl/3, time.Millisecond)
		t := time.NewTicker(every)
		defer t.Stop()
		for {
			select {
			case <-stop:
				return
			case <-work.Done():
				return
			case <-t.C:
				ectx, ecancel := context.WithTimeout(work, every)
				err := lease.Extend(ectx, ttl)
				ecancel()
				if err != nil {
					log.Warn("scope lock renewal failed; aborting", "scope_key", key, "error", err)
					cancel(err)
					return
				}
			}
		}
	}()

	var once sync.Once
	release := func() {
		once.Do(func() {
			close(stop)
			<-done
			cancel(nil)
			// Release even when ctx was cancelled mid-rebuild.
			if err := lease.Unlock(context.WithoutCancel(ctx)); err != nil {
				log.Warn("scope unlock failed", "scope_key", key, "error", err)
			}
		})
	}
	return work, release, nil
}

type memoryLock struct {
	token   uuid.UUID
	expires time.Time
}

type memoryScopeLocker struct {
	mu    sync.Mutex
	held  map[string]memoryLock
	clock func() time.Time
}

// NewMemoryScopeLocker serializes rebuilds within one process.
func NewMemoryScopeLocker() ScopeLocker {
	return &memoryScopeLocker{held: map[string]memoryLock{}, clock: time.Now}
}

func (l *memoryScopeLocker) TryLock(ctx context.Context, key string, ttl time.Duration) (ScopeLease, error) {
	const op = "ScopeLocker.TryLock"
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	key = strings.TrimSpace(key)
	if key == "" {
		return nil, domain.Validation(op, "scope key is required")
	}
	if ttl <= 0 {
		ttl = DefaultScopeLockTTL
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	now := l.clock()
	if cur, ok := l.held[key]; ok && now.Before(cur.expires) {
		return nil, domain.RebuildInProgress(op, key)
	}
	token := uuid.New()
	l.held[key] = memoryLock{token: token, expires: now.Add(ttl)}
	return &memoryLease{locker: l, key: key, token: token}, nil
}

type memoryLease struct {
	locker *memoryScopeLocker
	key    string
	token  uuid.UUID
	once   sync.Once
}

func (m *memoryLease) Extend(_ context.Context, ttl time.Duration) error {
	l := m.locker
	l.mu.Lock()
	defer l.mu.Unlock()
	cur, ok := l.held[m.key]
	if !ok || cur.token != m.token {
		return LeaseLost("ScopeLease.Extend", m.key)
	}
	cur.expires = l.clock().Add(ttl)
	l.held[m.key] = cur
	return nil
}

func (m *memoryLease) Unlock(context.Context) error {
	m.once.Do(func() {
		l := m.locker
		l.mu.Lock()
		if cur, ok := l.held[m.key]; ok && cur.token == m.token {
			delete(l.held, m.key)
		}
		l.mu.Unlock()
	})
	return nil
}

type leaseScopeLocker struct {
	guard  aggregates.LeaseGuard
	holder string
}

// NewLeaseScopeLocker serializes rebuilds across processes sharing one
// Postgres database. holder identifies this process in the lease row.
func NewLeaseScopeLocker(guard aggregates.LeaseGuard, holder string) ScopeLocker {
	holder = strings.TrimSpace(holder)
	if holder == "" {
		holder = "tenantsearch"
	}
	return &leaseScopeLocker{guard: guard, holder: holder}
}

func (l *leaseScopeLocker) TryLock(ctx context.Context, key string, ttl time.Duration) (ScopeLease, error) {
	const op = "ScopeLocker.TryLock"
	if ttl <= 0 {
		ttl = DefaultScopeLockTTL
	}
	holder := l.holder + ":" + uuid.NewString()
	ok, err := l.guard.TryAcquire(ctx, key, holder, ttl)
	if err != nil {
		return nil, aggregates.MapError(op, err)
	}
	if !ok {
		return nil, domain.RebuildInProgress(op, key)
	}
	return &pgLease{guard: l.guard, key: key, holder: holder}, nil
}

type pgLease struct {
	guard  aggregates.LeaseGuard
	key    string
	holder string
	once   sync.Once
}

func (p *pgLease) Extend(ctx context.Context, ttl time.Duration) error {
	const op = "ScopeLease.Extend"
	ok, err := p.guard.Extend(ctx, p.key, p.holder, ttl)
	if err == nil {
		err = aggregates.RequireCASSuccess(ok, "scope lease lost: "+p.key)
	}
	if err != nil {
		return aggregates.MapError(op, err)
	}
	return nil
}

func (p *pgLease) Unlock(ctx context.Context) error {
	var relErr error
	p.once.Do(func() {
		_, relErr = p.guard.Release(ctx, p.key, p.holder)
	})
	return relErr
}
