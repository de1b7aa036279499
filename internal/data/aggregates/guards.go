package aggregates

import (
	"context"
	"strings"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/yungbote/tenantsearch-backend/internal/domain"
)

// LeaseGuard is a compare-and-set lease over analytics_scope_lease. The lease
// table holds no tenant data, so it runs on the unbound pool.
type LeaseGuard struct {
	db  *gorm.DB
	now func() time.Time
}

func NewLeaseGuard(db *gorm.DB) LeaseGuard {
	return LeaseGuard{db: db, now: time.Now}
}

// TryAcquire takes the lease for key when it is idle or expired.
func (g LeaseGuard) TryAcquire(ctx context.Context, key, holder string, ttl time.Duration) (bool, error) {
	key, holder = strings.TrimSpace(key), strings.TrimSpace(holder)
	if g.db == nil {
		return false, ValidationError("lease guard has nil db")
	}
	if key == "" || holder == "" {
		return false, ValidationError("scope key and holder are required")
	}
	if ttl <= 0 {
		return false, ValidationError("lease ttl must be positive")
	}
	now := g.now().UTC()
	db := g.db.WithContext(ctx)
	seed := domain.AnalyticsScopeLease{ScopeKey: key, Status: domain.LeaseStatusIdle, ExpiresAt: now}
	if err := db.Clauses(clause.OnConflict{DoNothing: true}).Create(&seed).Error; err != nil {
		return false, err
	}
	res := db.Model(&domain.AnalyticsScopeLease{}).
		Where("scope_key = ? AND (status = ? OR expires_at <= ?)", key, domain.LeaseStatusIdle, now).
		Updates(map[string]any{
			"holder":     holder,
			"status":     domain.LeaseStatusHeld,
			"expires_at": now.Add(ttl),
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

// Extend pushes the lease expiry to now+ttl while holder still owns it.
func (g LeaseGuard) Extend(ctx context.Context, key, holder string, ttl time.Duration) (bool, error) {
	if g.db == nil {
		return false, ValidationError("lease guard has nil db")
	}
	if ttl <= 0 {
		return false, ValidationError("lease ttl must be positive")
	}
	res := g.db.WithContext(ctx).Model(&domain.AnalyticsScopeLease{}).
		Where("scope_key = ? AND holder = ? AND status = ?", strings.TrimSpace(key), strings.TrimSpace(holder), domain.LeaseStatusHeld).
		Update("expires_at", g.now().UTC().Add(ttl))
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

// Release gives the lease back only if holder still owns it.
func (g LeaseGuard) Release(ctx context.Context, key, holder string) (bool, error) {
	if g.db == nil {
		return false, ValidationError("lease guard has nil db")
	}
	res := g.db.WithContext(ctx).Model(&domain.AnalyticsScopeLease{}).
		Where("scope_key = ? AND holder = ? AND status = ?", strings.TrimSpace(key), strings.TrimSpace(holder), domain.LeaseStatusHeld).
		Updates(map[string]any{
			"holder":     "",
			"status":     domain.LeaseStatusIdle,
			"expires_at": g.now().UTC(),
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

// RequireCASSuccess turns a compare-and-set miss into a conflict error.
func RequireCASSuccess(ok bool, message string) error {
	if ok {
		return nil
	}
	return ConflictError(strings.TrimSpace(message))
}
