package index

import (
	"context"

	"github.com/google/uuid"

	"github.com/yungbote/tenantsearch-backend/internal/data/repos/knowledge"
	"github.com/yungbote/tenantsearch-backend/internal/data/tenantdb"
	"github.com/yungbote/tenantsearch-backend/internal/platform/logger"
)

// PostgresLexical runs pg_trgm word similarity against passage.content.
type PostgresLexical struct {
	binder        *tenantdb.Binder
	passages      knowledge.PassageRepo
	log           *logger.Logger
	minSimilarity float64
}

func NewPostgresLexical(log *logger.Logger, binder *tenantdb.Binder, passages knowledge.PassageRepo, minSimilarity float64) *PostgresLexical {
	if minSimilarity <= 0 {
		minSimilarity = DefaultMinSimilarity
	}
	return &PostgresLexical{
		binder:        binder,
		passages:      passages,
		log:           log.With("component", "PostgresLexicalIndex"),
		minSimilarity: minSimilarity,
	}
}

func (p *PostgresLexical) FuzzyMatch(ctx context.Context, tenantID uuid.UUID, text string, limit int) ([]LexicalHit, error) {
	const op = "index.PostgresLexical.FuzzyMatch"
	if tenantID == uuid.Nil || text == "" || limit <= 0 {
		return []LexicalHit{}, nil
	}
	var rows []knowledge.LexicalRow
	// The similarity threshold is transaction-local, hence InTx.
	err := p.binder.InTx(ctx, tenantID, func(s *tenantdb.Scope) error {
		var err error
		rows, err = p.passages.FuzzyMatch(s, text, p.minSimilarity, limit)
		return err
	})
	if err != nil {
		return nil, storageErr(op, err)
	}
	out := make([]LexicalHit, 0, len(rows))
	for _, r := range rows {
		out = append(out, LexicalHit{PassageID: r.ID, Score: r.Score})
	}
	return out, nil
}

// PostgresVector runs pgvector L2 distance against passage.embedding.
type PostgresVector struct {
	binder   *tenantdb.Binder
	passages knowledge.PassageRepo
	log      *logger.Logger
	dim      int
}

func NewPostgresVector(log *logger.Logger, binder *tenantdb.Binder, passages knowledge.PassageRepo, dim int) *PostgresVector {
	return &PostgresVector{
		binder:   binder,
		passages: passages,
		log:      log.With("component", "PostgresVectorIndex"),
		dim:      dim,
	}
}

func (p *PostgresVector) Dim() int { return p.dim }

func (p *PostgresVector) Nearest(ctx context.Context, tenantID uuid.UUID, vector []float32, limit int) ([]VectorHit, error) {
	const op = "index.PostgresVector.Nearest"
	if err := checkDim(op, p.dim, vector); err != nil {
		return nil, err
	}
	if tenantID == uuid.Nil || limit <= 0 {
		return []VectorHit{}, nil
	}
	var rows []knowledge.VectorRow
	err := p.binder.Acquire(ctx, tenantID, func(s *tenantdb.Scope) error {
		var err error
		rows, err = p.passages.NearestL2(s, vector, limit)
		return err
	})
	if err != nil {
		return nil, storageErr(op, err)
	}
	out := make([]VectorHit, 0, len(rows))
	for _, r := range rows {
		out = append(out, VectorHit{PassageID: r.ID, Distance: r.Distance})
	}
	return out, nil
}
