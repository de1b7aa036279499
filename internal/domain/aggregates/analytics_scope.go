package aggregates

import (
	"context"

	"github.com/yungbote/tenantsearch-backend/internal/domain"
)

var AnalyticsScopeAggregateContract = Contract{
	Name:             "Analytics.ScopeAggregate",
	WriteTxOwnership: WriteTxOwnedByAggregate,
	ReadPolicy:       ReadPolicyTableRepoQueries,
	Notes:            "Owns the full replace of cluster assignments and top queries for one (tenant, locale, period) scope.",
}

// AnalyticsScopeAggregate owns the never-partially-empty invariant of a scope's results.
//
// Write failures return *domain.Error with codes:
// CodeValidation, CodeIsolationViolation, CodeStorage, CodeRetryable, CodeConflict.
type AnalyticsScopeAggregate interface {
	Aggregate

	// Replace deletes every prior row of the exact scope and inserts the new
	// sets in one transaction. On any failure the scope is left untouched.
	Replace(ctx context.Context, in ReplaceAnalyticsScopeInput) (ReplaceAnalyticsScopeResult, error)
}

type ReplaceAnalyticsScopeInput struct {
	Scope      domain.AnalyticsScope
	Clusters   []*domain.QueryClusterAssignment
	TopQueries []*domain.TopQueryRow
}

type ReplaceAnalyticsScopeResult struct {
	DeletedClusters   int64
	DeletedTopQueries int64
	InsertedClusters  int
	InsertedTopRows   int
}
