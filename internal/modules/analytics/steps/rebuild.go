package steps

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/pgvector/pgvector-go"
	"go.opentelemetry.io/otel/attribute"
	"gorm.io/datatypes"

	analyticsrepo "github.com/yungbote/tenantsearch-backend/internal/data/repos/analytics"
	"github.com/yungbote/tenantsearch-backend/internal/domain"
	domainagg "github.com/yungbote/tenantsearch-backend/internal/domain/aggregates"
	"github.com/yungbote/tenantsearch-backend/internal/modules/embedding"
	"github.com/yungbote/tenantsearch-backend/internal/observability"
	"github.com/yungbote/tenantsearch-backend/internal/platform/logger"
)

const (
	DefaultTopK = 20
	MaxSamples  = 5
)

type Embedder interface {
	EmbedBatch(ctx context.Context, texts []string) ([]embedding.Embedding, error)
}

type RebuildDeps struct {
	Log       *logger.Logger
	Scopes    ScopeRunner
	Records   analyticsrepo.QueryRecordRepo
	Embedder  Embedder
	Store     domainagg.AnalyticsScopeAggregate
	Threshold float64
}

type RebuildInput struct {
	Scope domain.AnalyticsScope
	TopK  int
}

type RebuildOutput struct {
	Scope         domain.AnalyticsScope
	Records       int
	Distinct      int
	Clusters      int
	TopQueries    int
	EmbeddingKind domain.EmbeddingKind
	Replaced      domainagg.ReplaceAnalyticsScopeResult
}

// Rebuild recomputes a scope's clusters and top queries and swaps them in
// atomically. Extraction and embedding degrade rather than fail; only the
// final persist can fail the rebuild. It does not lock the scope.
func Rebuild(ctx context.Context, deps RebuildDeps, in RebuildInput) (RebuildOutput, error) {
	const op = "analytics.Rebuild"
	scope := in.Scope.Normalize()
	out := RebuildOutput{Scope: scope}
	if err := scope.Validate(op); err != nil {
		return out, err
	}
	if deps.Embedder == nil || deps.Store == nil {
		return out, domain.NewError(domain.CodeInternal, op, "rebuild dependencies missing", nil)
	}
	topK := in.TopK
	if topK <= 0 {
		topK = DefaultTopK
	}
	threshold := deps.Threshold
	if threshold <= 0 {
		threshold = DefaultClusterThreshold
	}

	ctx, span := observability.StartSpan(ctx, op,
		observability.TenantAttr(scope.TenantID),
		attribute.String("locale", scope.Locale),
	)
	var spanErr error
	defer func() { observability.EndSpan(span, spanErr) }()

	ext, err := Extract(ctx, ExtractDeps{Log: deps.Log, Scopes: deps.Scopes, Records: deps.Records}, ExtractInput{
		TenantID:    scope.TenantID,
		PeriodStart: scope.PeriodStart,
		PeriodEnd:   scope.PeriodEnd,
	})
	if err != nil {
		spanErr = err
		return out, err
	}
	table := ext.Table
	out.Records = ext.Records
	out.Distinct = table.Len()

	var clusters []*domain.QueryClusterAssignment
	if table.Len() > 0 {
		embs, err := deps.Embedder.EmbedBatch(ctx, table.Texts)
		if err != nil {
			spanErr = err
			return out, err
		}
		vectors := make([][]float32, len(embs))
		out.EmbeddingKind = domain.EmbeddingKindProvider
		for i, e := range embs {
			vectors[i] = e.Vector
			if e.IsFallback() {
				out.EmbeddingKind = domain.EmbeddingKindFallback
			}
		}
		res := Cluster(vectors, threshold)
		clusters = buildClusterRows(table.Texts, res, out.EmbeddingKind)
		out.Clusters = len(res.Centroids)
	}
	top := TopK(table, topK)
	out.TopQueries = len(top)

	replaced, err := deps.Store.Replace(ctx, domainagg.ReplaceAnalyticsScopeInput{
		Scope:      scope,
		Clusters:   clusters,
		TopQueries: top,
	})
	if err != nil {
		spanErr = err
		return out, err
	}
	out.Replaced = replaced
	if deps.Log != nil {
		deps.Log.Info("analytics scope rebuilt",
			"tenant_id", scope.TenantID,
			"locale", scope.Locale,
			"records", out.Records,
			"distinct", out.Distinct,
			"clusters", out.Clusters,
			"top_queries", out.TopQueries,
			"embedding_kind", string(out.EmbeddingKind),
		)
	}
	return out, nil
}

func buildClusterRows(texts []string, res ClusterResult, kind domain.EmbeddingKind) []*domain.QueryClusterAssignment {
	members := make([][]string, len(res.Centroids))
	for i, c := range res.Assignments {
		members[c] = append(members[c], texts[i])
	}
	labels := make([]LabelResult, len(members))
	samples := make([]datatypes.JSON, len(members))
	for c, m := range members {
		labels[c] = Label(m)
		n := len(m)
		if n > MaxSamples {
			n = MaxSamples
		}
		raw, _ := json.Marshal(m[:n])
		samples[c] = datatypes.JSON(raw)
	}
	rows := make([]*domain.QueryClusterAssignment, 0, len(texts))
	for i, c := range res.Assignments {
		rows = append(rows, &domain.QueryClusterAssignment{
			ClusterID:     c,
			QueryText:     texts[i],
			Label:         labels[c].Label,
			Confidence:    labels[c].Confidence,
			Centroid:      pgvector.NewVector(res.Centroids[c]),
			Samples:       samples[c],
			MemberCount:   res.Sizes[c],
			EmbeddingKind: kind,
		})
	}
	return rows
}

// ScopeFromTimes is a convenience for callers holding raw bounds.
func ScopeFromTimes(tenantID uuid.UUID, locale string, start, end time.Time) domain.AnalyticsScope {
	return domain.AnalyticsScope{TenantID: tenantID, Locale: locale, PeriodStart: start, PeriodEnd: end}.Normalize()
}
