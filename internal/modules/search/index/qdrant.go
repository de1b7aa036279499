package index

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"github.com/yungbote/tenantsearch-backend/internal/domain"
	"github.com/yungbote/tenantsearch-backend/internal/platform/qdrant"
)

// QdrantVector serves nearest-neighbour lookups from a Qdrant collection.
// Passage rows stay in Postgres; only vectors live in Qdrant.
type QdrantVector struct {
	store *qdrant.Store
}

func NewQdrantVector(store *qdrant.Store) *QdrantVector {
	return &QdrantVector{store: store}
}

func (q *QdrantVector) Dim() int { return q.store.Dim() }

func (q *QdrantVector) Nearest(ctx context.Context, tenantID uuid.UUID, vector []float32, limit int) ([]VectorHit, error) {
	const op = "index.QdrantVector.Nearest"
	if err := checkDim(op, q.store.Dim(), vector); err != nil {
		return nil, err
	}
	hits, err := q.store.Search(ctx, tenantID, vector, limit)
	if err != nil {
		return nil, qdrantErr(op, err)
	}
	out := make([]VectorHit, 0, len(hits))
	for _, h := range hits {
		out = append(out, VectorHit{PassageID: h.PassageID, Distance: h.Distance})
	}
	return out, nil
}

func (q *QdrantVector) UpsertVectors(ctx context.Context, tenantID uuid.UUID, docs []VectorDoc) error {
	const op = "index.QdrantVector.UpsertVectors"
	if tenantID == uuid.Nil {
		return domain.IsolationViolation(op, "tenant id is required")
	}
	points := make([]qdrant.Point, 0, len(docs))
	for _, d := range docs {
		if err := checkDim(op, q.store.Dim(), d.Vector); err != nil {
			return err
		}
		points = append(points, qdrant.Point{PassageID: d.PassageID, Vector: d.Vector})
	}
	return qdrantErr(op, q.store.Upsert(ctx, tenantID, points))
}

func (q *QdrantVector) DeleteVectors(ctx context.Context, tenantID uuid.UUID, passageIDs []uuid.UUID) error {
	const op = "index.QdrantVector.DeleteVectors"
	if tenantID == uuid.Nil {
		return domain.IsolationViolation(op, "tenant id is required")
	}
	return qdrantErr(op, q.store.DeletePassages(ctx, tenantID, passageIDs))
}

func (q *QdrantVector) DeleteTenant(ctx context.Context, tenantID uuid.UUID) error {
	const op = "index.QdrantVector.DeleteTenant"
	if tenantID == uuid.Nil {
		return domain.IsolationViolation(op, "tenant id is required")
	}
	return qdrantErr(op, q.store.DeleteTenant(ctx, tenantID))
}

func qdrantErr(op string, err error) error {
	if err == nil {
		return nil
	}
	var opErr *qdrant.OperationError
	if errors.As(err, &opErr) {
		switch opErr.Code {
		case qdrant.OperationErrorTransportFailed, qdrant.OperationErrorTimeout:
			return domain.NewError(domain.CodeRetryable, op, opErr.Message, err)
		}
	}
	return storageErr(op, err)
}
