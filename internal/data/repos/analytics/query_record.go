package analytics

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/yungbote/tenantsearch-backend/internal/data/tenantdb"
	"github.com/yungbote/tenantsearch-backend/internal/domain"
	"github.com/yungbote/tenantsearch-backend/internal/platform/logger"
)

type QueryRecordRepo interface {
	Create(s *tenantdb.Scope, rec *domain.QueryRecord) (*domain.QueryRecord, error)
	// ListInRange returns records with created_at in [start, end), oldest first.
	ListInRange(s *tenantdb.Scope, start, end time.Time) ([]*domain.QueryRecord, error)
	SetFeedback(s *tenantdb.Scope, id uuid.UUID, feedback int16) (bool, error)
}

type queryRecordRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewQueryRecordRepo(db *gorm.DB, baseLog *logger.Logger) QueryRecordRepo {
	return &queryRecordRepo{db: db, log: baseLog.With("repo", "QueryRecordRepo")}
}

func (r *queryRecordRepo) Create(s *tenantdb.Scope, rec *domain.QueryRecord) (*domain.QueryRecord, error) {
	const op = "QueryRecordRepo.Create"
	if rec == nil {
		return nil, domain.Validation(op, "nil query record")
	}
	if err := s.Stamp(op, &rec.TenantID); err != nil {
		return nil, err
	}
	if err := s.DB().Create(rec).Error; err != nil {
		return nil, err
	}
	return rec, nil
}

func (r *queryRecordRepo) ListInRange(s *tenantdb.Scope, start, end time.Time) ([]*domain.QueryRecord, error) {
	const op = "QueryRecordRepo.ListInRange"
	var out []*domain.QueryRecord
	if !end.After(start) {
		return out, nil
	}
	if err := s.DB().
		Where("tenant_id = ? AND created_at >= ? AND created_at < ?", s.TenantID(), start.UTC(), end.UTC()).
		Order("created_at ASC, id ASC").
		Find(&out).Error; err != nil {
		return nil, err
	}
	for _, rec := range out {
		if err := s.Check(op, rec.TenantID); err != nil {
			return nil, err
		}
	}
	return out, nil
}

func (r *queryRecordRepo) SetFeedback(s *tenantdb.Scope, id uuid.UUID, feedback int16) (bool, error) {
	const op = "QueryRecordRepo.SetFeedback"
	if id == uuid.Nil {
		return false, nil
	}
	if feedback < domain.FeedbackNegative || feedback > domain.FeedbackPositive {
		return false, domain.Validation(op, "feedback must be -1, 0 or 1")
	}
	res := s.DB().
		Model(&domain.QueryRecord{}).
		Where("tenant_id = ? AND id = ?", s.TenantID(), id).
		Update("feedback", feedback)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}
