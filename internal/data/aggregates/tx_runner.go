package aggregates

import (
	"context"

	"github.com/google/uuid"

	"github.com/yungbote/tenantsearch-backend/internal/data/tenantdb"
)

// TxRunner provides the tenant-bound transaction boundary for aggregate writes.
// *tenantdb.Binder is the production implementation.
type TxRunner interface {
	InTx(ctx context.Context, tenantID uuid.UUID, fn func(*tenantdb.Scope) error) error
}

var _ TxRunner = (*tenantdb.Binder)(nil)
