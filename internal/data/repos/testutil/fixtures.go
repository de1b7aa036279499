package testutil

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/pgvector/pgvector-go"
	"gorm.io/gorm"

	"github.com/yungbote/tenantsearch-backend/internal/domain"
)

func SeedTenant(tb testing.TB, ctx context.Context, tx *gorm.DB, slug string) *domain.Tenant {
	tb.Helper()
	t := &domain.Tenant{
		ID:   uuid.New(),
		Slug: slug + "-" + uuid.NewString()[:8],
		Name: slug,
	}
	if err := tx.WithContext(ctx).Create(t).Error; err != nil {
		tb.Fatalf("seed tenant: %v", err)
	}
	return t
}

func SeedDocument(tb testing.TB, ctx context.Context, tx *gorm.DB, tenantID uuid.UUID, title string) *domain.Document {
	tb.Helper()
	d := &domain.Document{
		ID:       uuid.New(),
		TenantID: tenantID,
		Title:    title,
	}
	if err := tx.WithContext(ctx).Create(d).Error; err != nil {
		tb.Fatalf("seed document: %v", err)
	}
	return d
}

// SeedPassage writes a passage; a nil embedding leaves the column NULL.
func SeedPassage(tb testing.TB, ctx context.Context, tx *gorm.DB, doc *domain.Document, ordinal int, content string, embedding []float32) *domain.Passage {
	tb.Helper()
	p := &domain.Passage{
		ID:         uuid.New(),
		TenantID:   doc.TenantID,
		DocumentID: doc.ID,
		Ordinal:    ordinal,
		Content:    content,
	}
	if embedding != nil {
		v := pgvector.NewVector(embedding)
		p.Embedding = &v
		p.EmbeddingKind = domain.EmbeddingKindProvider
	}
	if err := tx.WithContext(ctx).Create(p).Error; err != nil {
		tb.Fatalf("seed passage: %v", err)
	}
	return p
}

func SeedQueryRecord(tb testing.TB, ctx context.Context, tx *gorm.DB, tenantID uuid.UUID, text string, at time.Time, latencyMs *int64, feedback *int16) *domain.QueryRecord {
	tb.Helper()
	q := &domain.QueryRecord{
		ID:        uuid.New(),
		TenantID:  tenantID,
		QueryText: text,
		LatencyMs: latencyMs,
		Feedback:  feedback,
		CreatedAt: at.UTC(),
	}
	if err := tx.WithContext(ctx).Create(q).Error; err != nil {
		tb.Fatalf("seed query record: %v", err)
	}
	return q
}

// Vec pads or truncates values to domain.EmbeddingDim.
func Vec(values ...float32) []float32 {
	out := make([]float32, domain.EmbeddingDim)
	copy(out, values)
	return out
}

func Int64(v int64) *int64 { return &v }
func Int16(v int16) *int16 { return &v }
