// Package embedding turns text into fixed-dimension vectors. Provider failures
// never surface to callers; the whole batch degrades to deterministic hash
// vectors and every result is tagged with where it came from.
package embedding

import (
	"context"

	"github.com/yungbote/tenantsearch-backend/internal/domain"
)

type Kind = domain.EmbeddingKind

const (
	KindProvider = domain.EmbeddingKindProvider
	KindFallback = domain.EmbeddingKindFallback
)

// Embedding is a vector tagged with its origin.
type Embedding struct {
	Kind   Kind
	Vector []float32
}

func (e Embedding) IsFallback() bool { return e.Kind == KindFallback }

// Provider embeds one text. Implementations must honor ctx.
type Provider interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// ProviderFunc adapts a function to Provider.
type ProviderFunc func(ctx context.Context, text string) ([]float32, error)

func (f ProviderFunc) Embed(ctx context.Context, text string) ([]float32, error) { return f(ctx, text) }
