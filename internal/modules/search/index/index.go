// Package index holds the lexical and vector candidate sources behind hybrid
// search. Every implementation filters by tenant and fails closed on a nil
// tenant by returning no hits.
package index

import (
	"context"
	"sort"

	"github.com/google/uuid"
)

// DefaultMinSimilarity is the pg_trgm word-similarity floor for lexical hits.
const DefaultMinSimilarity = 0.3

type LexicalHit struct {
	PassageID uuid.UUID
	Score     float64
}

type VectorHit struct {
	PassageID uuid.UUID
	Distance  float64
}

type LexicalIndex interface {
	// FuzzyMatch returns up to limit hits by descending score, ties by id.
	FuzzyMatch(ctx context.Context, tenantID uuid.UUID, text string, limit int) ([]LexicalHit, error)
}

type VectorIndex interface {
	Dim() int
	// Nearest returns up to limit hits by ascending L2 distance, ties by id.
	Nearest(ctx context.Context, tenantID uuid.UUID, vector []float32, limit int) ([]VectorHit, error)
}

// VectorDoc is one passage vector for indexes that keep their own copy.
// Content is optional; indexes that also serve lexical lookups keep it.
type VectorDoc struct {
	PassageID uuid.UUID
	Vector    []float32
	Content   string
}

// VectorWriter is implemented by vector indexes that are not backed by the
// passage table itself.
type VectorWriter interface {
	UpsertVectors(ctx context.Context, tenantID uuid.UUID, docs []VectorDoc) error
	DeleteVectors(ctx context.Context, tenantID uuid.UUID, passageIDs []uuid.UUID) error
	DeleteTenant(ctx context.Context, tenantID uuid.UUID) error
}

func sortLexical(hits []LexicalHit) {
	sort.SliceStable(hits, func(i, j int) bool {
		if hits[i].Score != hits[j].Score {
			return hits[i].Score > hits[j].Score
		}
		return hits[i].PassageID.String() < hits[j].PassageID.String()
	})
}

func sortVector(hits []VectorHit) {
	sort.SliceStable(hits, func(i, j int) bool {
		if hits[i].Distance != hits[j].Distance {
			return hits[i].Distance < hits[j].Distance
		}
		return hits[i].PassageID.String() < hits[j].PassageID.String()
	})
}
