package knowledge

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/pgvector/pgvector-go"
	"gorm.io/gorm"

	"github.com/yungbote/tenantsearch-backend/internal/data/tenantdb"
	"github.com/yungbote/tenantsearch-backend/internal/domain"
	"github.com/yungbote/tenantsearch-backend/internal/platform/logger"
)

// LexicalRow is one trigram match.
type LexicalRow struct {
	ID    uuid.UUID `gorm:"column:id"`
	Score float64   `gorm:"column:score"`
}

// VectorRow is one L2 neighbor.
type VectorRow struct {
	ID       uuid.UUID `gorm:"column:id"`
	Distance float64   `gorm:"column:distance"`
}

type PassageRepo interface {
	Create(s *tenantdb.Scope, rows []*domain.Passage) ([]*domain.Passage, error)

	GetByIDs(s *tenantdb.Scope, ids []uuid.UUID) ([]*domain.Passage, error)
	ListByDocument(s *tenantdb.Scope, documentID uuid.UUID) ([]*domain.Passage, error)

	SetExternalRef(s *tenantdb.Scope, id uuid.UUID, ref string) error

	// FuzzyMatch runs a pg_trgm word-similarity lookup. Postgres only; the
	// scope must be transactional because the threshold is set tx-locally.
	FuzzyMatch(s *tenantdb.Scope, text string, minSimilarity float64, limit int) ([]LexicalRow, error)
	// NearestL2 runs a pgvector L2 lookup. Postgres only.
	NearestL2(s *tenantdb.Scope, vector []float32, limit int) ([]VectorRow, error)

	FullDeleteByDocument(s *tenantdb.Scope, documentID uuid.UUID) error
	FullDeleteByTenant(s *tenantdb.Scope) error
}

type passageRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewPassageRepo(db *gorm.DB, baseLog *logger.Logger) PassageRepo {
	return &passageRepo{db: db, log: baseLog.With("repo", "PassageRepo")}
}

func (r *passageRepo) Create(s *tenantdb.Scope, rows []*domain.Passage) ([]*domain.Passage, error) {
	const op = "PassageRepo.Create"
	if len(rows) == 0 {
		return []*domain.Passage{}, nil
	}
	for _, row := range rows {
		if row == nil {
			return nil, domain.Validation(op, "nil passage")
		}
		if err := s.Stamp(op, &row.TenantID); err != nil {
			return nil, err
		}
	}
	if err := s.DB().Create(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *passageRepo) GetByIDs(s *tenantdb.Scope, ids []uuid.UUID) ([]*domain.Passage, error) {
	const op = "PassageRepo.GetByIDs"
	var out []*domain.Passage
	if len(ids) == 0 {
		return out, nil
	}
	q := s.DB().Where("id IN ?", ids)
	if !s.Privileged() {
		q = q.Where("tenant_id = ?", s.TenantID())
	}
	if err := q.Find(&out).Error; err != nil {
		return nil, err
	}
	for _, p := range out {
		if err := s.Check(op, p.TenantID); err != nil {
			return nil, err
		}
	}
	return out, nil
}

func (r *passageRepo) ListByDocument(s *tenantdb.Scope, documentID uuid.UUID) ([]*domain.Passage, error) {
	var out []*domain.Passage
	if documentID == uuid.Nil {
		return out, nil
	}
	if err := s.DB().
		Where("tenant_id = ? AND document_id = ?", s.TenantID(), documentID).
		Order("ordinal ASC").
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *passageRepo) SetExternalRef(s *tenantdb.Scope, id uuid.UUID, ref string) error {
	if id == uuid.Nil {
		return nil
	}
	return s.DB().
		Model(&domain.Passage{}).
		Where("tenant_id = ? AND id = ?", s.TenantID(), id).
		Updates(map[string]interface{}{"external_ref": ref, "updated_at": time.Now().UTC()}).Error
}

func (r *passageRepo) FuzzyMatch(s *tenantdb.Scope, text string, minSimilarity float64, limit int) ([]LexicalRow, error) {
	var out []LexicalRow
	if text == "" || limit <= 0 || s.TenantID() == uuid.Nil {
		return out, nil
	}
	db := s.DB()
	// <% consults pg_trgm.word_similarity_threshold.
	if err := db.Exec("SELECT set_config('pg_trgm.word_similarity_threshold', ?, true)", fmt.Sprintf("%g", minSimilarity)).Error; err != nil {
		return nil, err
	}
	err := db.Raw(`
		SELECT id, word_similarity(?, content) AS score
		FROM passage
		WHERE tenant_id = ? AND ? <% content
		ORDER BY score DESC, id ASC
		LIMIT ?`,
		text, s.TenantID(), text, limit,
	).Scan(&out).Error
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (r *passageRepo) NearestL2(s *tenantdb.Scope, vector []float32, limit int) ([]VectorRow, error) {
	var out []VectorRow
	if len(vector) == 0 || limit <= 0 || s.TenantID() == uuid.Nil {
		return out, nil
	}
	q := pgvector.NewVector(vector)
	err := s.DB().Raw(`
		SELECT id, embedding <-> ? AS distance
		FROM passage
		WHERE tenant_id = ? AND embedding IS NOT NULL
		ORDER BY distance ASC, id ASC
		LIMIT ?`,
		q, s.TenantID(), limit,
	).Scan(&out).Error
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (r *passageRepo) FullDeleteByDocument(s *tenantdb.Scope, documentID uuid.UUID) error {
	if documentID == uuid.Nil {
		return nil
	}
	return s.DB().
		Where("tenant_id = ? AND document_id = ?", s.TenantID(), documentID).
		Delete(&domain.Passage{}).Error
}

func (r *passageRepo) FullDeleteByTenant(s *tenantdb.Scope) error {
	const op = "PassageRepo.FullDeleteByTenant"
	if s.TenantID() == uuid.Nil {
		return domain.IsolationViolation(op, "purge requires a bound tenant")
	}
	return s.DB().Where("tenant_id = ?", s.TenantID()).Delete(&domain.Passage{}).Error
}
