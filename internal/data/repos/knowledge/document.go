package knowledge

import (
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/yungbote/tenantsearch-backend/internal/data/tenantdb"
	"github.com/yungbote/tenantsearch-backend/internal/domain"
	"github.com/yungbote/tenantsearch-backend/internal/platform/logger"
)

type DocumentRepo interface {
	Create(s *tenantdb.Scope, doc *domain.Document) (*domain.Document, error)
	GetByID(s *tenantdb.Scope, id uuid.UUID) (*domain.Document, error)
	List(s *tenantdb.Scope, limit, offset int) ([]*domain.Document, error)
	FullDeleteByID(s *tenantdb.Scope, id uuid.UUID) (bool, error)
	FullDeleteByTenant(s *tenantdb.Scope) error
}

type documentRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewDocumentRepo(db *gorm.DB, baseLog *logger.Logger) DocumentRepo {
	return &documentRepo{db: db, log: baseLog.With("repo", "DocumentRepo")}
}

func (r *documentRepo) Create(s *tenantdb.Scope, doc *domain.Document) (*domain.Document, error) {
	const op = "DocumentRepo.Create"
	if doc == nil {
		return nil, domain.Validation(op, "nil document")
	}
	if err := s.Stamp(op, &doc.TenantID); err != nil {
		return nil, err
	}
	// Passages go through PassageRepo so each row is tenant-checked.
	if err := s.DB().Omit("Passages").Create(doc).Error; err != nil {
		return nil, err
	}
	return doc, nil
}

func (r *documentRepo) GetByID(s *tenantdb.Scope, id uuid.UUID) (*domain.Document, error) {
	const op = "DocumentRepo.GetByID"
	if id == uuid.Nil {
		return nil, nil
	}
	var out []*domain.Document
	if err := s.DB().Where("tenant_id = ? AND id = ?", s.TenantID(), id).Limit(1).Find(&out).Error; err != nil {
		return nil, err
	}
	if len(out) == 0 {
		return nil, nil
	}
	if err := s.Check(op, out[0].TenantID); err != nil {
		return nil, err
	}
	return out[0], nil
}

func (r *documentRepo) List(s *tenantdb.Scope, limit, offset int) ([]*domain.Document, error) {
	if limit <= 0 {
		limit = 50
	}
	var out []*domain.Document
	if err := s.DB().
		Where("tenant_id = ?", s.TenantID()).
		Order("created_at DESC, id ASC").
		Limit(limit).Offset(offset).
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *documentRepo) FullDeleteByID(s *tenantdb.Scope, id uuid.UUID) (bool, error) {
	if id == uuid.Nil {
		return false, nil
	}
	res := s.DB().Where("tenant_id = ? AND id = ?", s.TenantID(), id).Delete(&domain.Document{})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *documentRepo) FullDeleteByTenant(s *tenantdb.Scope) error {
	const op = "DocumentRepo.FullDeleteByTenant"
	if s.TenantID() == uuid.Nil {
		return domain.IsolationViolation(op, "purge requires a bound tenant")
	}
	return s.DB().Where("tenant_id = ?", s.TenantID()).Delete(&domain.Document{}).Error
}
