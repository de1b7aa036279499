package services

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"

	"github.com/yungbote/tenantsearch-backend/internal/data/repos"
	"github.com/yungbote/tenantsearch-backend/internal/data/tenantdb"
	"github.com/yungbote/tenantsearch-backend/internal/domain"
	"github.com/yungbote/tenantsearch-backend/internal/modules/embedding"
	"github.com/yungbote/tenantsearch-backend/internal/modules/search"
	"github.com/yungbote/tenantsearch-backend/internal/observability"
	"github.com/yungbote/tenantsearch-backend/internal/platform/logger"
)

const (
	DefaultSearchLimit = 10
	MaxSearchLimit     = 100
)

type SearchHit struct {
	domain.SearchCandidate
	Passage *domain.Passage `json:"passage,omitempty"`
}

type SearchResult struct {
	QueryID uuid.UUID `json:"query_id"`
	// Degraded is set when the query embedding fell back and only the
	// lexical leg ran.
	Degraded bool        `json:"degraded"`
	Mode     string      `json:"mode"`
	Results  []SearchHit `json:"results"`
}

type SearchOption func(*searchOptions)

type searchOptions struct {
	locale string
}

// WithLocale tags the logged query record with a locale.
func WithLocale(locale string) SearchOption {
	return func(o *searchOptions) { o.locale = strings.TrimSpace(locale) }
}

type SearchService interface {
	Search(ctx context.Context, tenantID uuid.UUID, text string, limit int, opts ...SearchOption) (SearchResult, error)
	RecordFeedback(ctx context.Context, tenantID, queryID uuid.UUID, feedback int16) error
}

type SearchServiceConfig struct {
	DefaultLimit int
	MaxLimit     int
}

type searchService struct {
	log      *logger.Logger
	binder   *tenantdb.Binder
	repos    repos.Set
	embedder *embedding.Adapter
	search   search.Usecases
	metrics  *observability.Metrics
	cfg      SearchServiceConfig
}

func NewSearchService(
	baseLog *logger.Logger,
	binder *tenantdb.Binder,
	repoSet repos.Set,
	embedder *embedding.Adapter,
	uc search.Usecases,
	metrics *observability.Metrics,
	cfg SearchServiceConfig,
) SearchService {
	if cfg.DefaultLimit <= 0 {
		cfg.DefaultLimit = DefaultSearchLimit
	}
	if cfg.MaxLimit <= 0 {
		cfg.MaxLimit = MaxSearchLimit
	}
	return &searchService{
		log:      baseLog.With("service", "SearchService"),
		binder:   binder,
		repos:    repoSet,
		embedder: embedder,
		search:   uc,
		metrics:  metrics,
		cfg:      cfg,
	}
}

func (s *searchService) Search(ctx context.Context, tenantID uuid.UUID, text string, limit int, opts ...SearchOption) (SearchResult, error) {
	const op = "SearchService.Search"
	started := time.Now()
	out := SearchResult{Results: []SearchHit{}}
	if tenantID == uuid.Nil {
		return out, domain.IsolationViolation(op, "tenant id is required")
	}
	raw := text
	text = strings.TrimSpace(text)
	if text == "" {
		return out, domain.Validation(op, "query text is required")
	}
	if limit <= 0 {
		limit = s.cfg.DefaultLimit
	}
	if limit > s.cfg.MaxLimit {
		limit = s.cfg.MaxLimit
	}
	var o searchOptions
	for _, fn := range opts {
		fn(&o)
	}

	ctx, span := observability.StartSpan(ctx, op, observability.TenantAttr(tenantID), attribute.Int("limit", limit))
	var spanErr error
	defer func() { observability.EndSpan(span, spanErr) }()

	emb, err := s.embedder.Embed(ctx, text)
	if err != nil {
		s.observe(false, "error", started, 0)
		return out, err
	}
	var vector []float32
	if emb.IsFallback() {
		out.Degraded = true
	} else {
		vector = emb.Vector
	}

	res, err := s.search.HybridSearch(ctx, search.HybridSearchInput{
		TenantID:    tenantID,
		QueryText:   text,
		QueryVector: vector,
		Limit:       limit,
	})
	if err != nil {
		spanErr = err
		s.observe(out.Degraded, string(statusOf(err)), started, 0)
		return out, err
	}
	out.Mode = res.Mode

	if len(res.Candidates) > 0 {
		ids := make([]uuid.UUID, 0, len(res.Candidates))
		for _, c := range res.Candidates {
			ids = append(ids, c.PassageID)
		}
		var passages []*domain.Passage
		err := s.binder.Acquire(ctx, tenantID, func(sc *tenantdb.Scope) error {
			var err error
			passages, err = s.repos.Passages.GetByIDs(sc, ids)
			return err
		})
		if err != nil {
			s.observe(out.Degraded, "error", started, 0)
			return out, domain.Wrap(domain.CodeStorage, op, err)
		}
		byID := make(map[uuid.UUID]*domain.Passage, len(passages))
		for _, p := range passages {
			byID[p.ID] = p
		}
		for _, c := range res.Candidates {
			// A passage deleted between index read and hydration is dropped.
			if p, ok := byID[c.PassageID]; ok {
				out.Results = append(out.Results, SearchHit{SearchCandidate: c, Passage: p})
			}
		}
	}

	out.QueryID = s.logQuery(ctx, tenantID, raw, o.locale, time.Since(started))
	s.observe(out.Degraded, "ok", started, len(out.Results))
	return out, nil
}

// logQuery writes the query record. Failures are logged, not returned.
func (s *searchService) logQuery(ctx context.Context, tenantID uuid.UUID, text, locale string, latency time.Duration) uuid.UUID {
	ms := latency.Milliseconds()
	rec := &domain.QueryRecord{
		ID:        uuid.New(),
		TenantID:  tenantID,
		QueryText: text,
		Locale:    locale,
		LatencyMs: &ms,
		CreatedAt: time.Now().UTC(),
	}
	err := s.binder.InTx(ctx, tenantID, func(sc *tenantdb.Scope) error {
		_, err := s.repos.QueryRecords.Create(sc, rec)
		return err
	})
	if err != nil {
		s.log.Warn("query record write failed", "tenant_id", tenantID, "error", err)
		return uuid.Nil
	}
	return rec.ID
}

func (s *searchService) RecordFeedback(ctx context.Context, tenantID, queryID uuid.UUID, feedback int16) error {
	const op = "SearchService.RecordFeedback"
	if tenantID == uuid.Nil {
		return domain.IsolationViolation(op, "tenant id is required")
	}
	if queryID == uuid.Nil {
		return domain.Validation(op, "query id is required")
	}
	var found bool
	err := s.binder.InTx(ctx, tenantID, func(sc *tenantdb.Scope) error {
		var err error
		found, err = s.repos.QueryRecords.SetFeedback(sc, queryID, feedback)
		return err
	})
	if err != nil {
		return domain.Wrap(domain.CodeStorage, op, err)
	}
	if !found {
		return domain.NewError(domain.CodeNotFound, op, "query record not found", nil)
	}
	return nil
}

func (s *searchService) observe(degraded bool, status string, started time.Time, results int) {
	mode := "hybrid"
	if degraded {
		mode = "degraded"
	}
	s.metrics.ObserveSearch(mode, status, results, time.Since(started))
}

func statusOf(err error) domain.ErrorCode {
	if code := domain.CodeOf(err); code != "" {
		return code
	}
	return "error"
}
