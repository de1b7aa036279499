package analyticsrun

import (
	"time"

	"github.com/yungbote/tenantsearch-backend/internal/domain"
)

const (
	WorkflowName    = "analytics_rebuild"
	ActivityRebuild = "analytics_rebuild_scope"

	// WorkflowIDPrefix plus the scope key is the workflow id, so Temporal
	// itself refuses a second run for a scope that is still rebuilding.
	WorkflowIDPrefix = "analytics-rebuild:"
)

type Input struct {
	Scope domain.AnalyticsScope `json:"scope"`
	TopK  int                   `json:"top_k"`
}

type Result struct {
	Records       int                  `json:"records"`
	Distinct      int                  `json:"distinct_queries"`
	Clusters      int                  `json:"clusters"`
	TopQueries    int                  `json:"top_queries"`
	EmbeddingKind domain.EmbeddingKind `json:"embedding_kind,omitempty"`
	FinishedAt    time.Time            `json:"finished_at"`
}

func WorkflowID(scope domain.AnalyticsScope) string {
	return WorkflowIDPrefix + scope.Normalize().Key()
}
