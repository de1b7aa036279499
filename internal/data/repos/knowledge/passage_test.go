package knowledge

import (
	"context"
	"testing"

	"github.com/google/uuid"

	"github.com/yungbote/tenantsearch-backend/internal/data/repos/testutil"
	"github.com/yungbote/tenantsearch-backend/internal/data/tenantdb"
	"github.com/yungbote/tenantsearch-backend/internal/domain"
)

func TestPassageRepoTenantScoping(t *testing.T) {
	db := testutil.SQLite(t)
	ctx := context.Background()
	binder := tenantdb.NewBinder(db, testutil.Logger(t))
	repo := NewPassageRepo(db, testutil.Logger(t))

	tenantA, tenantB := uuid.New(), uuid.New()
	docA := testutil.SeedDocument(t, ctx, db, tenantA, "a")
	docB := testutil.SeedDocument(t, ctx, db, tenantB, "b")
	p0 := testutil.SeedPassage(t, ctx, db, docA, 1, "second", nil)
	p1 := testutil.SeedPassage(t, ctx, db, docA, 0, "first", nil)
	pb := testutil.SeedPassage(t, ctx, db, docB, 0, "other tenant", nil)

	err := binder.InTx(ctx, tenantA, func(s *tenantdb.Scope) error {
		rows, err := repo.GetByIDs(s, []uuid.UUID{p0.ID, p1.ID, pb.ID})
		if err != nil {
			return err
		}
		if len(rows) != 2 {
			t.Fatalf("GetByIDs: want 2 own passages, got %d", len(rows))
		}
		for _, r := range rows {
			if r.ID == pb.ID {
				t.Fatalf("GetByIDs returned a foreign passage")
			}
		}

		listed, err := repo.ListByDocument(s, docA.ID)
		if err != nil {
			return err
		}
		if len(listed) != 2 || listed[0].ID != p1.ID || listed[1].ID != p0.ID {
			t.Fatalf("ListByDocument: want ordinal order, got %+v", listed)
		}

		if foreign, err := repo.ListByDocument(s, docB.ID); err != nil || len(foreign) != 0 {
			t.Fatalf("ListByDocument foreign doc: err=%v len=%d", err, len(foreign))
		}
		return nil
	})
	if err != nil {
		t.Fatalf("InTx: %v", err)
	}
}

func TestPassageRepoCreateRejectsForeignTenant(t *testing.T) {
	db := testutil.SQLite(t)
	ctx := context.Background()
	binder := tenantdb.NewBinder(db, testutil.Logger(t))
	repo := NewPassageRepo(db, testutil.Logger(t))

	tenantA, tenantB := uuid.New(), uuid.New()
	doc := testutil.SeedDocument(t, ctx, db, tenantA, "a")

	err := binder.InTx(ctx, tenantA, func(s *tenantdb.Scope) error {
		_, err := repo.Create(s, []*domain.Passage{
			{DocumentID: doc.ID, Ordinal: 0, Content: "ok"},
			{TenantID: tenantB, DocumentID: doc.ID, Ordinal: 1, Content: "smuggled"},
		})
		return err
	})
	if !domain.IsCode(err, domain.CodeIsolationViolation) {
		t.Fatalf("want isolation_violation, got %v", err)
	}
	var n int64
	if err := db.Model(&domain.Passage{}).Count(&n).Error; err != nil {
		t.Fatalf("count: %v", err)
	}
	if n != 0 {
		t.Fatalf("nothing may be written on isolation violation, got %d rows", n)
	}
}

func TestPassageRepoDeletes(t *testing.T) {
	db := testutil.SQLite(t)
	ctx := context.Background()
	binder := tenantdb.NewBinder(db, testutil.Logger(t))
	repo := NewPassageRepo(db, testutil.Logger(t))

	tenantA, tenantB := uuid.New(), uuid.New()
	docA := testutil.SeedDocument(t, ctx, db, tenantA, "a")
	docB := testutil.SeedDocument(t, ctx, db, tenantB, "b")
	testutil.SeedPassage(t, ctx, db, docA, 0, "a0", nil)
	testutil.SeedPassage(t, ctx, db, docB, 0, "b0", nil)

	if err := binder.InTx(ctx, tenantA, func(s *tenantdb.Scope) error {
		// Deleting B's document id from A's scope must be a no-op.
		if err := repo.FullDeleteByDocument(s, docB.ID); err != nil {
			return err
		}
		return repo.FullDeleteByTenant(s)
	}); err != nil {
		t.Fatalf("delete: %v", err)
	}

	var remaining []domain.Passage
	if err := db.Find(&remaining).Error; err != nil {
		t.Fatalf("find: %v", err)
	}
	if len(remaining) != 1 || remaining[0].TenantID != tenantB {
		t.Fatalf("want only tenant B's passage left, got %+v", remaining)
	}
}
