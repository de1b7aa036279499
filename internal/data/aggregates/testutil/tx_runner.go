package testutil

import (
	"context"
	"errors"
	"sync"

	"github.com/google/uuid"

	"github.com/yungbote/tenantsearch-backend/internal/data/aggregates"
	"github.com/yungbote/tenantsearch-backend/internal/data/tenantdb"
)

var errNoInner = errors.New("injected tx runner has no inner runner")

// InjectedTxRunner wraps a real runner and injects failures around the body.
// A FailCommit error is returned from inside the inner transaction so the
// inner runner rolls back exactly as it would on a failed commit.
type InjectedTxRunner struct {
	Inner aggregates.TxRunner

	mu sync.Mutex

	FailBegin      error
	FailBeforeBody error
	FailCommit     error

	BeginCalls    int
	CommitCalls   int
	RollbackCalls int
	Tenants       []uuid.UUID
}

var _ aggregates.TxRunner = (*InjectedTxRunner)(nil)

func (r *InjectedTxRunner) InTx(ctx context.Context, tenantID uuid.UUID, fn func(*tenantdb.Scope) error) error {
	r.mu.Lock()
	r.BeginCalls++
	r.Tenants = append(r.Tenants, tenantID)
	failBegin := r.FailBegin
	failBeforeBody := r.FailBeforeBody
	failCommit := r.FailCommit
	r.mu.Unlock()

	if failBegin != nil {
		return failBegin
	}
	if r.Inner == nil {
		return errNoInner
	}
	err := r.Inner.InTx(ctx, tenantID, func(s *tenantdb.Scope) error {
		if failBeforeBody != nil {
			return failBeforeBody
		}
		if fn != nil {
			if err := fn(s); err != nil {
				return err
			}
		}
		return failCommit
	})
	if err != nil {
		r.bump(&r.RollbackCalls)
		return err
	}
	r.bump(&r.CommitCalls)
	return nil
}

func (r *InjectedTxRunner) bump(n *int) {
	r.mu.Lock()
	*n++
	r.mu.Unlock()
}
