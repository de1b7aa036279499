package steps

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"

	analyticsrepo "github.com/yungbote/tenantsearch-backend/internal/data/repos/analytics"
	"github.com/yungbote/tenantsearch-backend/internal/data/repos/testutil"
	"github.com/yungbote/tenantsearch-backend/internal/data/tenantdb"
	"github.com/yungbote/tenantsearch-backend/internal/domain"
)

func TestBuildStatsExample(t *testing.T) {
	recs := []*domain.QueryRecord{
		{QueryText: "返品したい"},
		{QueryText: "返品したい"},
		{QueryText: "配送について"},
	}
	table := BuildStats(recs)
	if table.Len() != 2 || table.Texts[0] != "返品したい" || table.Texts[1] != "配送について" {
		t.Fatalf("unexpected texts: %v", table.Texts)
	}
	if table.Stats["返品したい"].Count != 2 || table.Stats["配送について"].Count != 1 {
		t.Fatalf("unexpected counts: %+v", table.Stats)
	}
}

func TestBuildStatsAveragesOnlyPresentValues(t *testing.T) {
	recs := []*domain.QueryRecord{
		{QueryText: "order 123", LatencyMs: testutil.Int64(100), Feedback: testutil.Int16(domain.FeedbackPositive)},
		{QueryText: "order  456", LatencyMs: testutil.Int64(300), Feedback: testutil.Int16(domain.FeedbackNegative)},
		{QueryText: "order 789"},
		{QueryText: "   "},
	}
	table := BuildStats(recs)
	if table.Len() != 1 {
		t.Fatalf("want one normalized text, got %v", table.Texts)
	}
	st := table.Stats["order <NUM>"]
	if st.Count != 3 || st.AvgLatencyMs != 200 || st.PositiveFeedbackRate != 0.5 {
		t.Fatalf("unexpected stats: %+v", st)
	}
}

func TestExtractReadsOnlyTenantWindow(t *testing.T) {
	db := testutil.SQLite(t)
	log := testutil.Logger(t)
	ctx := context.Background()
	binder := tenantdb.NewBinder(db, log)
	records := analyticsrepo.NewQueryRecordRepo(db, log)

	tenant, other := uuid.New(), uuid.New()
	start := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	end := start.AddDate(0, 1, 0)
	testutil.SeedQueryRecord(t, ctx, db, tenant, "返品したい", start, nil, nil)
	testutil.SeedQueryRecord(t, ctx, db, tenant, "返品したい", start.Add(time.Hour), nil, nil)
	testutil.SeedQueryRecord(t, ctx, db, tenant, "配送について", start.Add(2*time.Hour), nil, nil)
	testutil.SeedQueryRecord(t, ctx, db, tenant, "outside", end, nil, nil)
	testutil.SeedQueryRecord(t, ctx, db, other, "foreign", start.Add(time.Hour), nil, nil)

	out, err := Extract(ctx, ExtractDeps{Log: log, Scopes: binder, Records: records}, ExtractInput{
		TenantID: tenant, PeriodStart: start, PeriodEnd: end,
	})
	if err != nil {
		t.Fatalf("extract: %v", err)
	}
	if out.Records != 3 || out.Table.Len() != 2 {
		t.Fatalf("unexpected extraction: records=%d texts=%v", out.Records, out.Table.Texts)
	}
	if _, ok := out.Table.Stats["foreign"]; ok {
		t.Fatalf("foreign tenant record leaked into extraction")
	}

	empty, err := Extract(ctx, ExtractDeps{Log: log, Scopes: binder, Records: records}, ExtractInput{
		TenantID: tenant, PeriodStart: end.AddDate(1, 0, 0), PeriodEnd: end.AddDate(1, 1, 0),
	})
	if err != nil || empty.Table.Len() != 0 {
		t.Fatalf("empty window: %v %v", empty.Table.Texts, err)
	}

	if _, err := Extract(ctx, ExtractDeps{Log: log, Scopes: binder, Records: records}, ExtractInput{PeriodStart: start, PeriodEnd: end}); !domain.IsCode(err, domain.CodeIsolationViolation) {
		t.Fatalf("expected isolation violation for nil tenant, got %v", err)
	}
}
