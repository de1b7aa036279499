package analytics

import (
	"gorm.io/gorm"

	"github.com/yungbote/tenantsearch-backend/internal/data/tenantdb"
	"github.com/yungbote/tenantsearch-backend/internal/domain"
	"github.com/yungbote/tenantsearch-backend/internal/platform/logger"
)

const insertBatchSize = 500

func scopeWhere(db *gorm.DB, scope domain.AnalyticsScope) *gorm.DB {
	n := scope.Normalize()
	return db.Where(
		"tenant_id = ? AND locale = ? AND period_start = ? AND period_end = ?",
		n.TenantID, n.Locale, n.PeriodStart, n.PeriodEnd,
	)
}

// checkScope rejects a scope whose tenant is not the bound tenant.
func checkScope(s *tenantdb.Scope, op string, scope domain.AnalyticsScope) error {
	if err := scope.Validate(op); err != nil {
		return err
	}
	return s.Check(op, scope.TenantID)
}

type QueryClusterRepo interface {
	CreateBatch(s *tenantdb.Scope, scope domain.AnalyticsScope, rows []*domain.QueryClusterAssignment) error
	ListByScope(s *tenantdb.Scope, scope domain.AnalyticsScope) ([]*domain.QueryClusterAssignment, error)
	FullDeleteByScope(s *tenantdb.Scope, scope domain.AnalyticsScope) (int64, error)
}

type queryClusterRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewQueryClusterRepo(db *gorm.DB, baseLog *logger.Logger) QueryClusterRepo {
	return &queryClusterRepo{db: db, log: baseLog.With("repo", "QueryClusterRepo")}
}

func (r *queryClusterRepo) CreateBatch(s *tenantdb.Scope, scope domain.AnalyticsScope, rows []*domain.QueryClusterAssignment) error {
	const op = "QueryClusterRepo.CreateBatch"
	if err := checkScope(s, op, scope); err != nil {
		return err
	}
	if len(rows) == 0 {
		return nil
	}
	n := scope.Normalize()
	for _, row := range rows {
		if row == nil {
			return domain.Validation(op, "nil cluster assignment")
		}
		if err := s.Stamp(op, &row.TenantID); err != nil {
			return err
		}
		row.Locale, row.PeriodStart, row.PeriodEnd = n.Locale, n.PeriodStart, n.PeriodEnd
	}
	return s.DB().CreateInBatches(rows, insertBatchSize).Error
}

func (r *queryClusterRepo) ListByScope(s *tenantdb.Scope, scope domain.AnalyticsScope) ([]*domain.QueryClusterAssignment, error) {
	const op = "QueryClusterRepo.ListByScope"
	if err := checkScope(s, op, scope); err != nil {
		return nil, err
	}
	var out []*domain.QueryClusterAssignment
	if err := scopeWhere(s.DB(), scope).
		Order("cluster_id ASC, created_at ASC, id ASC").
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *queryClusterRepo) FullDeleteByScope(s *tenantdb.Scope, scope domain.AnalyticsScope) (int64, error) {
	const op = "QueryClusterRepo.FullDeleteByScope"
	if err := checkScope(s, op, scope); err != nil {
		return 0, err
	}
	res := scopeWhere(s.DB(), scope).Delete(&domain.QueryClusterAssignment{})
	return res.RowsAffected, res.Error
}

type TopQueryRepo interface {
	CreateBatch(s *tenantdb.Scope, scope domain.AnalyticsScope, rows []*domain.TopQueryRow) error
	ListByScope(s *tenantdb.Scope, scope domain.AnalyticsScope) ([]*domain.TopQueryRow, error)
	FullDeleteByScope(s *tenantdb.Scope, scope domain.AnalyticsScope) (int64, error)
}

type topQueryRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewTopQueryRepo(db *gorm.DB, baseLog *logger.Logger) TopQueryRepo {
	return &topQueryRepo{db: db, log: baseLog.With("repo", "TopQueryRepo")}
}

func (r *topQueryRepo) CreateBatch(s *tenantdb.Scope, scope domain.AnalyticsScope, rows []*domain.TopQueryRow) error {
	const op = "TopQueryRepo.CreateBatch"
	if err := checkScope(s, op, scope); err != nil {
		return err
	}
	if len(rows) == 0 {
		return nil
	}
	n := scope.Normalize()
	for _, row := range rows {
		if row == nil {
			return domain.Validation(op, "nil top query row")
		}
		if err := s.Stamp(op, &row.TenantID); err != nil {
			return err
		}
		row.Locale, row.PeriodStart, row.PeriodEnd = n.Locale, n.PeriodStart, n.PeriodEnd
	}
	return s.DB().CreateInBatches(rows, insertBatchSize).Error
}

func (r *topQueryRepo) ListByScope(s *tenantdb.Scope, scope domain.AnalyticsScope) ([]*domain.TopQueryRow, error) {
	const op = "TopQueryRepo.ListByScope"
	if err := checkScope(s, op, scope); err != nil {
		return nil, err
	}
	var out []*domain.TopQueryRow
	if err := scopeWhere(s.DB(), scope).Order("rank ASC").Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *topQueryRepo) FullDeleteByScope(s *tenantdb.Scope, scope domain.AnalyticsScope) (int64, error) {
	const op = "TopQueryRepo.FullDeleteByScope"
	if err := checkScope(s, op, scope); err != nil {
		return 0, err
	}
	res := scopeWhere(s.DB(), scope).Delete(&domain.TopQueryRow{})
	return res.RowsAffected, res.Error
}
