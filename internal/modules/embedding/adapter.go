package embedding

import (
	"context"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/yungbote/tenantsearch-backend/internal/domain"
	"github.com/yungbote/tenantsearch-backend/internal/observability"
	"github.com/yungbote/tenantsearch-backend/internal/platform/logger"
)

type Config struct {
	Dim int
	// Concurrency > 1 embeds a batch with that many in-flight provider calls.
	Concurrency int
	// RPS <= 0 disables pacing.
	RPS   float64
	Burst int
}

type Adapter struct {
	log         *logger.Logger
	provider    Provider
	dim         int
	concurrency int
	limiter     *rate.Limiter
	metrics     *observability.Metrics
}

func NewAdapter(log *logger.Logger, provider Provider, cfg Config, metrics *observability.Metrics) *Adapter {
	dim := cfg.Dim
	if dim <= 0 {
		dim = domain.EmbeddingDim
	}
	limiter := rate.NewLimiter(rate.Inf, 0)
	if cfg.RPS > 0 {
		burst := cfg.Burst
		if burst <= 0 {
			burst = 1
		}
		limiter = rate.NewLimiter(rate.Limit(cfg.RPS), burst)
	}
	return &Adapter{
		log:         log.With("service", "EmbeddingAdapter"),
		provider:    provider,
		dim:         dim,
		concurrency: cfg.Concurrency,
		limiter:     limiter,
		metrics:     metrics,
	}
}

func (a *Adapter) Dim() int { return a.dim }

// EmbedBatch returns one Embedding per text, in order, all of the same Kind.
// The only error is ctx cancellation.
func (a *Adapter) EmbedBatch(ctx context.Context, texts []string) ([]Embedding, error) {
	const op = "embedding.EmbedBatch"
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if len(texts) == 0 {
		return []Embedding{}, nil
	}

	start := time.Now()
	vectors, err := a.callProvider(ctx, texts)
	if err == nil {
		out := make([]Embedding, len(texts))
		for i := range vectors {
			out[i] = Embedding{Kind: KindProvider, Vector: vectors[i]}
		}
		a.metrics.ObserveEmbeddingBatch(string(KindProvider))
		return out, nil
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		return nil, ctxErr
	}

	unavailable := domain.NewError(domain.CodeProviderUnavailable, op, "falling back to hash embeddings", err)
	a.log.Warn("Embedding provider unavailable",
		"batch_size", len(texts),
		"elapsed", time.Since(start).String(),
		"error", unavailable,
	)
	a.metrics.ObserveEmbeddingBatch(string(KindFallback))
	return a.fallbackAll(texts), nil
}

// Embed is EmbedBatch for a single text.
func (a *Adapter) Embed(ctx context.Context, text string) (Embedding, error) {
	out, err := a.EmbedBatch(ctx, []string{text})
	if err != nil {
		return Embedding{}, err
	}
	return out[0], nil
}

func (a *Adapter) fallbackAll(texts []string) []Embedding {
	out := make([]Embedding, len(texts))
	for i, t := range texts {
		out[i] = Embedding{Kind: KindFallback, Vector: FallbackVector(t, a.dim)}
	}
	return out
}

func (a *Adapter) callProvider(ctx context.Context, texts []string) ([][]float32, error) {
	const op = "embedding.callProvider"
	if a.provider == nil {
		return nil, domain.NewError(domain.CodeProviderUnavailable, op, "no embedding provider configured", nil)
	}
	out := make([][]float32, len(texts))
	embedOne := func(ctx context.Context, i int) error {
		if err := a.limiter.Wait(ctx); err != nil {
			return err
		}
		v, err := a.provider.Embed(ctx, texts[i])
		if err != nil {
			return err
		}
		if len(v) != a.dim {
			return domain.DimensionMismatch(op, a.dim, len(v))
		}
		out[i] = v
		return nil
	}

	if a.concurrency <= 1 {
		for i := range texts {
			if err := embedOne(ctx, i); err != nil {
				return nil, err
			}
		}
		return out, nil
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(a.concurrency)
	for i := range texts {
		i := i
		g.Go(func() error { return embedOne(gctx, i) })
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}
