package tenantdb

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	dbpkg "github.com/yungbote/tenantsearch-backend/internal/data/db"
	"github.com/yungbote/tenantsearch-backend/internal/domain"
	"github.com/yungbote/tenantsearch-backend/internal/platform/logger"
)

// Binder hands out tenant-bound scopes. Every checkout binds the tenant before
// the callback runs and resets it on every exit path.
type Binder struct {
	db    *gorm.DB
	log   *logger.Logger
	stmts sessionStatements
}

func NewBinder(db *gorm.DB, baseLog *logger.Logger) *Binder {
	return &Binder{
		db:    db,
		log:   baseLog.With("component", "TenantBinder"),
		stmts: statementsFor(db),
	}
}

func (b *Binder) DB() *gorm.DB { return b.db }

// Acquire pins one pooled connection, binds tenantID at session level and runs fn.
// The binding is reset before the connection goes back to the pool, including
// when fn panics; a connection whose reset fails is discarded instead.
func (b *Binder) Acquire(ctx context.Context, tenantID uuid.UUID, fn func(*Scope) error) error {
	const op = "tenantdb.Acquire"
	if tenantID == uuid.Nil {
		return domain.IsolationViolation(op, "tenant id is required")
	}
	return b.pinned(ctx, op, tenantID, false, "", fn)
}

// InTx binds tenantID for the lifetime of one transaction. The setting is
// transaction-local, so commit and rollback both clear it.
func (b *Binder) InTx(ctx context.Context, tenantID uuid.UUID, fn func(*Scope) error) error {
	const op = "tenantdb.InTx"
	if tenantID == uuid.Nil {
		return domain.IsolationViolation(op, "tenant id is required")
	}
	return b.tx(ctx, op, tenantID, false, "", fn)
}

// Privileged runs fn in a cross-tenant transaction. Every call is audit-logged.
func (b *Binder) Privileged(ctx context.Context, actor string, fn func(*Scope) error) error {
	const op = "tenantdb.Privileged"
	if actor == "" {
		return domain.IsolationViolation(op, "privileged access requires an actor")
	}
	b.log.Warn("Cross-tenant access granted", "actor", actor)
	return b.tx(ctx, op, uuid.Nil, true, actor, fn)
}

func (b *Binder) tx(ctx context.Context, op string, tenantID uuid.UUID, privileged bool, actor string, fn func(*Scope) error) error {
	if ctx == nil {
		ctx = context.Background()
	}
	return b.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := b.stmts.bind(tx, tenantID, privileged, true); err != nil {
			return domain.NewError(domain.CodeStorage, op, "bind tenant", err)
		}
		scope := newScope(ctx, tx, tenantID, privileged, actor)
		defer scope.release()
		return fn(scope)
	})
}

func (b *Binder) pinned(ctx context.Context, op string, tenantID uuid.UUID, privileged bool, actor string, fn func(*Scope) error) error {
	if ctx == nil {
		ctx = context.Background()
	}
	ran := false
	err := b.db.WithContext(ctx).Connection(func(conn *gorm.DB) error {
		ran = true
		if bindErr := b.stmts.bind(conn, tenantID, privileged, false); bindErr != nil {
			b.resetOrDiscard(ctx, conn, tenantID)
			return domain.NewError(domain.CodeStorage, op, "bind tenant", bindErr)
		}
		scope := newScope(ctx, conn, tenantID, privileged, actor)
		defer func() {
			scope.release()
			b.resetOrDiscard(ctx, conn, tenantID)
		}()
		return fn(scope)
	})
	if err != nil && !ran && ctx.Err() == nil {
		return domain.NewError(domain.CodeStorage, op, "connection checkout", err)
	}
	return err
}

// resetOrDiscard runs even after ctx is cancelled so the binding never
// survives on a pooled connection.
func (b *Binder) resetOrDiscard(ctx context.Context, conn *gorm.DB, tenantID uuid.UUID) {
	resetCtx := context.WithoutCancel(ctx)
	if err := b.stmts.reset(conn.WithContext(resetCtx)); err != nil {
		b.log.Error("Tenant binding reset failed; discarding connection", "tenant_id", tenantID, "error", err)
		discard(conn)
	}
}

func discard(conn *gorm.DB) {
	c, ok := conn.Statement.ConnPool.(*sql.Conn)
	if !ok {
		return
	}
	// Returning ErrBadConn from Raw makes database/sql close the connection
	// instead of returning it to the pool.
	_ = c.Raw(func(any) error { return driver.ErrBadConn })
}

// sessionStatements sets and clears the tenant binding on a connection.
type sessionStatements interface {
	bind(db *gorm.DB, tenantID uuid.UUID, privileged, local bool) error
	reset(db *gorm.DB) error
}

func statementsFor(db *gorm.DB) sessionStatements {
	if dbpkg.IsPostgres(db) {
		return pgStatements{}
	}
	return noopStatements{}
}

type pgStatements struct{}

func (pgStatements) bind(db *gorm.DB, tenantID uuid.UUID, privileged, local bool) error {
	tenant := ""
	if tenantID != uuid.Nil {
		tenant = tenantID.String()
	}
	cross := "off"
	if privileged {
		cross = "on"
	}
	q := fmt.Sprintf("SELECT set_config('%s', ?, ?), set_config('%s', ?, ?)", dbpkg.SettingCurrentTenant, dbpkg.SettingCrossTenant)
	return db.Exec(q, tenant, local, cross, local).Error
}

func (pgStatements) reset(db *gorm.DB) error {
	q := fmt.Sprintf("SELECT set_config('%s', '', false), set_config('%s', 'off', false)", dbpkg.SettingCurrentTenant, dbpkg.SettingCrossTenant)
	return db.Exec(q).Error
}

// noopStatements is used on dialects without session settings (sqlite in
// tests); explicit tenant filters and Scope.Check still apply.
type noopStatements struct{}

func (noopStatements) bind(*gorm.DB, uuid.UUID, bool, bool) error { return nil }
func (noopStatements) reset(*gorm.DB) error                       { return nil }
