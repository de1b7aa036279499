package tenantdb

import (
	"context"
	"errors"
	"sync/atomic"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/yungbote/tenantsearch-backend/internal/domain"
)

var errScopeClosed = errors.New("tenantdb: scope used after its binding was released")

// Scope is a tenant-bound handle on one database connection or transaction.
// It is only valid inside the callback that received it.
type Scope struct {
	ctx        context.Context
	tenantID   uuid.UUID
	privileged bool
	actor      string
	db         *gorm.DB
	closed     atomic.Bool
}

func newScope(ctx context.Context, db *gorm.DB, tenantID uuid.UUID, privileged bool, actor string) *Scope {
	return &Scope{ctx: ctx, db: db, tenantID: tenantID, privileged: privileged, actor: actor}
}

// TenantID is the tenant bound to this scope. It is uuid.Nil for privileged scopes.
func (s *Scope) TenantID() uuid.UUID { return s.tenantID }

// Privileged reports whether the scope may touch rows of any tenant.
func (s *Scope) Privileged() bool { return s.privileged }

func (s *Scope) Actor() string { return s.actor }

func (s *Scope) Context() context.Context { return s.ctx }

// DB returns the bound connection. After release it returns a handle whose
// every statement fails.
func (s *Scope) DB() *gorm.DB {
	if s.closed.Load() {
		failed := s.db.Session(&gorm.Session{NewDB: true})
		_ = failed.AddError(errScopeClosed)
		return failed
	}
	return s.db.WithContext(s.ctx)
}

// Check fails with an isolation violation when rowTenant is not the bound tenant.
func (s *Scope) Check(op string, rowTenant uuid.UUID) error {
	if s.closed.Load() {
		return domain.NewError(domain.CodeIsolationViolation, op, errScopeClosed.Error(), errScopeClosed)
	}
	if s.privileged {
		return nil
	}
	if rowTenant == uuid.Nil || rowTenant != s.tenantID {
		return domain.IsolationViolation(op, "row belongs to a different tenant")
	}
	return nil
}

// Stamp assigns the bound tenant to an unset row tenant, then checks it.
func (s *Scope) Stamp(op string, rowTenant *uuid.UUID) error {
	if rowTenant == nil {
		return domain.IsolationViolation(op, "row tenant pointer is nil")
	}
	if *rowTenant == uuid.Nil && !s.privileged {
		*rowTenant = s.tenantID
	}
	return s.Check(op, *rowTenant)
}

func (s *Scope) release() { s.closed.Store(true) }
