package analytics

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/yungbote/tenantsearch-backend/internal/data/repos/testutil"
	"github.com/yungbote/tenantsearch-backend/internal/data/tenantdb"
	"github.com/yungbote/tenantsearch-backend/internal/domain"
)

func TestQueryRecordRepoListInRangeIsHalfOpen(t *testing.T) {
	db := testutil.SQLite(t)
	ctx := context.Background()
	binder := tenantdb.NewBinder(db, testutil.Logger(t))
	repo := NewQueryRecordRepo(db, testutil.Logger(t))

	tenant, other := uuid.New(), uuid.New()
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	end := start.Add(24 * time.Hour)
	testutil.SeedQueryRecord(t, ctx, db, tenant, "before", start.Add(-time.Second), nil, nil)
	first := testutil.SeedQueryRecord(t, ctx, db, tenant, "at start", start, nil, nil)
	second := testutil.SeedQueryRecord(t, ctx, db, tenant, "middle", start.Add(time.Hour), nil, nil)
	testutil.SeedQueryRecord(t, ctx, db, tenant, "at end", end, nil, nil)
	testutil.SeedQueryRecord(t, ctx, db, other, "foreign", start.Add(time.Hour), nil, nil)

	var got []*domain.QueryRecord
	if err := binder.InTx(ctx, tenant, func(s *tenantdb.Scope) error {
		var err error
		got, err = repo.ListInRange(s, start, end)
		return err
	}); err != nil {
		t.Fatalf("ListInRange: %v", err)
	}
	if len(got) != 2 || got[0].ID != first.ID || got[1].ID != second.ID {
		t.Fatalf("want [at start, middle], got %+v", got)
	}
}

func TestQueryRecordRepoSetFeedback(t *testing.T) {
	db := testutil.SQLite(t)
	ctx := context.Background()
	binder := tenantdb.NewBinder(db, testutil.Logger(t))
	repo := NewQueryRecordRepo(db, testutil.Logger(t))

	tenant, other := uuid.New(), uuid.New()
	rec := testutil.SeedQueryRecord(t, ctx, db, tenant, "q", time.Now(), nil, nil)

	if err := binder.InTx(ctx, other, func(s *tenantdb.Scope) error {
		ok, err := repo.SetFeedback(s, rec.ID, domain.FeedbackPositive)
		if ok {
			t.Fatalf("foreign tenant updated feedback")
		}
		return err
	}); err != nil {
		t.Fatalf("SetFeedback foreign: %v", err)
	}

	if err := binder.InTx(ctx, tenant, func(s *tenantdb.Scope) error {
		if _, err := repo.SetFeedback(s, rec.ID, 5); !domain.IsCode(err, domain.CodeValidation) {
			t.Fatalf("want validation error, got %v", err)
		}
		ok, err := repo.SetFeedback(s, rec.ID, domain.FeedbackPositive)
		if !ok {
			t.Fatalf("own feedback update not applied")
		}
		return err
	}); err != nil {
		t.Fatalf("SetFeedback: %v", err)
	}

	var stored domain.QueryRecord
	if err := db.First(&stored, "id = ?", rec.ID).Error; err != nil {
		t.Fatalf("load: %v", err)
	}
	if stored.Feedback == nil || *stored.Feedback != domain.FeedbackPositive {
		t.Fatalf("feedback not stored: %+v", stored.Feedback)
	}
}
