package steps

import (
	"context"
	"time"

	"github.com/google/uuid"

	analyticsrepo "github.com/yungbote/tenantsearch-backend/internal/data/repos/analytics"
	"github.com/yungbote/tenantsearch-backend/internal/data/tenantdb"
	"github.com/yungbote/tenantsearch-backend/internal/domain"
	"github.com/yungbote/tenantsearch-backend/internal/platform/logger"
)

// QueryStats accumulates one normalized text's records within a window.
type QueryStats struct {
	Count                int
	AvgLatencyMs         float64
	PositiveFeedbackRate float64

	latencySum float64
	latencyN   int
	feedbackN  int
	positiveN  int
}

func (s *QueryStats) add(rec *domain.QueryRecord) {
	s.Count++
	if rec.LatencyMs != nil {
		s.latencySum += float64(*rec.LatencyMs)
		s.latencyN++
		s.AvgLatencyMs = s.latencySum / float64(s.latencyN)
	}
	if rec.Feedback != nil {
		s.feedbackN++
		if *rec.Feedback == domain.FeedbackPositive {
			s.positiveN++
		}
		s.PositiveFeedbackRate = float64(s.positiveN) / float64(s.feedbackN)
	}
}

// StatsTable keeps normalized texts in order of first occurrence.
type StatsTable struct {
	Texts []string
	Stats map[string]*QueryStats
}

func NewStatsTable() StatsTable {
	return StatsTable{Texts: []string{}, Stats: map[string]*QueryStats{}}
}

func (t StatsTable) Len() int { return len(t.Texts) }

// Add normalizes rec's text and folds it in. Records that normalize to an
// empty string are skipped.
func (t *StatsTable) Add(rec *domain.QueryRecord) {
	if rec == nil {
		return
	}
	text := NormalizeQuery(rec.QueryText)
	if text == "" {
		return
	}
	st, ok := t.Stats[text]
	if !ok {
		st = &QueryStats{}
		t.Stats[text] = st
		t.Texts = append(t.Texts, text)
	}
	st.add(rec)
}

func BuildStats(records []*domain.QueryRecord) StatsTable {
	t := NewStatsTable()
	for _, rec := range records {
		t.Add(rec)
	}
	return t
}

// ScopeRunner opens a tenant-bound scope. *tenantdb.Binder satisfies it.
type ScopeRunner interface {
	Acquire(ctx context.Context, tenantID uuid.UUID, fn func(*tenantdb.Scope) error) error
}

type ExtractDeps struct {
	Log     *logger.Logger
	Scopes  ScopeRunner
	Records analyticsrepo.QueryRecordRepo
}

type ExtractInput struct {
	TenantID    uuid.UUID
	PeriodStart time.Time
	PeriodEnd   time.Time
}

type ExtractOutput struct {
	Table   StatsTable
	Records int
}

// Extract reads the tenant's query records in [PeriodStart, PeriodEnd) and
// builds the normalized stats table. An empty window yields an empty table.
func Extract(ctx context.Context, deps ExtractDeps, in ExtractInput) (ExtractOutput, error) {
	const op = "analytics.Extract"
	out := ExtractOutput{Table: NewStatsTable()}
	if deps.Scopes == nil || deps.Records == nil {
		return out, domain.NewError(domain.CodeInternal, op, "extract dependencies missing", nil)
	}
	if in.TenantID == uuid.Nil {
		return out, domain.IsolationViolation(op, "tenant id is required")
	}
	var records []*domain.QueryRecord
	err := deps.Scopes.Acquire(ctx, in.TenantID, func(s *tenantdb.Scope) error {
		var err error
		records, err = deps.Records.ListInRange(s, in.PeriodStart, in.PeriodEnd)
		return err
	})
	if err != nil {
		return out, domain.Wrap(domain.CodeStorage, op, err)
	}
	out.Records = len(records)
	out.Table = BuildStats(records)
	if deps.Log != nil {
		deps.Log.Debug("query log extracted", "tenant_id", in.TenantID, "records", out.Records, "distinct", out.Table.Len())
	}
	return out, nil
}
