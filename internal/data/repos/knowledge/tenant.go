package knowledge

import (
	"gorm.io/gorm"

	"github.com/yungbote/tenantsearch-backend/internal/data/tenantdb"
	"github.com/yungbote/tenantsearch-backend/internal/domain"
	"github.com/yungbote/tenantsearch-backend/internal/platform/logger"
)

// TenantStats is a per-tenant row count used by admin listings.
type TenantStats struct {
	Tenant       domain.Tenant `json:"tenant"`
	Documents    int64         `json:"documents"`
	Passages     int64         `json:"passages"`
	QueryRecords int64         `json:"query_records"`
}

// TenantRepo reads across tenants and therefore requires a privileged scope.
type TenantRepo interface {
	Create(s *tenantdb.Scope, t *domain.Tenant) (*domain.Tenant, error)
	ListWithStats(s *tenantdb.Scope) ([]TenantStats, error)
}

type tenantRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewTenantRepo(db *gorm.DB, baseLog *logger.Logger) TenantRepo {
	return &tenantRepo{db: db, log: baseLog.With("repo", "TenantRepo")}
}

func (r *tenantRepo) Create(s *tenantdb.Scope, t *domain.Tenant) (*domain.Tenant, error) {
	const op = "TenantRepo.Create"
	if !s.Privileged() {
		return nil, domain.IsolationViolation(op, "creating tenants requires a privileged scope")
	}
	if t == nil || t.Slug == "" {
		return nil, domain.Validation(op, "tenant slug is required")
	}
	if err := s.DB().Create(t).Error; err != nil {
		return nil, err
	}
	return t, nil
}

func (r *tenantRepo) ListWithStats(s *tenantdb.Scope) ([]TenantStats, error) {
	const op = "TenantRepo.ListWithStats"
	if !s.Privileged() {
		return nil, domain.IsolationViolation(op, "listing tenants requires a privileged scope")
	}
	var tenants []domain.Tenant
	if err := s.DB().Order("slug ASC").Find(&tenants).Error; err != nil {
		return nil, err
	}
	counts := func(model interface{}) (map[string]int64, error) {
		var rows []struct {
			TenantID string
			N        int64
		}
		if err := s.DB().Model(model).Select("tenant_id, count(*) AS n").Group("tenant_id").Scan(&rows).Error; err != nil {
			return nil, err
		}
		out := make(map[string]int64, len(rows))
		for _, row := range rows {
			out[row.TenantID] = row.N
		}
		return out, nil
	}
	docs, err := counts(&domain.Document{})
	if err != nil {
		return nil, err
	}
	passages, err := counts(&domain.Passage{})
	if err != nil {
		return nil, err
	}
	queries, err := counts(&domain.QueryRecord{})
	if err != nil {
		return nil, err
	}
	out := make([]TenantStats, 0, len(tenants))
	for _, t := range tenants {
		key := t.ID.String()
		out = append(out, TenantStats{Tenant: t, Documents: docs[key], Passages: passages[key], QueryRecords: queries[key]})
	}
	return out, nil
}
