package domain

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/pgvector/pgvector-go"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// AnalyticsScope identifies one rebuild's result set. Rows are keyed by the
// exact tuple, so callers must pass identical period bounds to rebuild and read.
type AnalyticsScope struct {
	TenantID    uuid.UUID `json:"tenant_id"`
	Locale      string    `json:"locale"`
	PeriodStart time.Time `json:"period_start"`
	PeriodEnd   time.Time `json:"period_end"`
}

// Normalize trims the locale and truncates bounds to UTC microseconds, the
// precision Postgres timestamptz keeps.
func (s AnalyticsScope) Normalize() AnalyticsScope {
	s.Locale = strings.TrimSpace(s.Locale)
	s.PeriodStart = s.PeriodStart.UTC().Truncate(time.Microsecond)
	s.PeriodEnd = s.PeriodEnd.UTC().Truncate(time.Microsecond)
	return s
}

func (s AnalyticsScope) Validate(op string) error {
	if s.TenantID == uuid.Nil {
		return IsolationViolation(op, "scope tenant is required")
	}
	if s.PeriodStart.IsZero() || s.PeriodEnd.IsZero() {
		return Validation(op, "period_start and period_end are required")
	}
	if !s.PeriodEnd.After(s.PeriodStart) {
		return Validation(op, "period_end must be after period_start")
	}
	return nil
}

// Key is stable across processes and used for locks and workflow ids.
func (s AnalyticsScope) Key() string {
	n := s.Normalize()
	return fmt.Sprintf("%s:%s:%d:%d", n.TenantID, n.Locale, n.PeriodStart.UnixMicro(), n.PeriodEnd.UnixMicro())
}

// QueryClusterAssignment maps one normalized query to a cluster within a scope.
// Cluster-level fields repeat on every member row.
type QueryClusterAssignment struct {
	ID          uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	TenantID    uuid.UUID `gorm:"type:uuid;not null;index:idx_query_cluster_scope,priority:1" json:"tenant_id"`
	Locale      string    `gorm:"column:locale;not null;index:idx_query_cluster_scope,priority:2" json:"locale"`
	PeriodStart time.Time `gorm:"column:period_start;not null;index:idx_query_cluster_scope,priority:3" json:"period_start"`
	PeriodEnd   time.Time `gorm:"column:period_end;not null;index:idx_query_cluster_scope,priority:4" json:"period_end"`

	ClusterID     int             `gorm:"column:cluster_id;not null" json:"cluster_id"`
	QueryText     string          `gorm:"column:query_text;type:text;not null" json:"query_text"`
	Label         string          `gorm:"column:label;not null" json:"label"`
	Confidence    float64         `gorm:"column:confidence;not null" json:"confidence"`
	// Unsized: the centroid is never searched and follows EMBEDDING_DIM.
	Centroid      pgvector.Vector `gorm:"type:vector;column:centroid" json:"-"`
	Samples       datatypes.JSON  `gorm:"type:jsonb;column:samples" json:"samples"`
	MemberCount   int             `gorm:"column:member_count;not null" json:"member_count"`
	EmbeddingKind EmbeddingKind   `gorm:"column:embedding_kind" json:"embedding_kind"`

	CreatedAt time.Time `gorm:"not null;autoCreateTime" json:"created_at"`
}

func (QueryClusterAssignment) TableName() string { return "analytics_query_cluster" }

func (a *QueryClusterAssignment) BeforeCreate(*gorm.DB) error {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	return nil
}

type TopQueryRow struct {
	ID          uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	TenantID    uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_top_query_scope_rank,priority:1" json:"tenant_id"`
	Locale      string    `gorm:"column:locale;not null;uniqueIndex:idx_top_query_scope_rank,priority:2" json:"locale"`
	PeriodStart time.Time `gorm:"column:period_start;not null;uniqueIndex:idx_top_query_scope_rank,priority:3" json:"period_start"`
	PeriodEnd   time.Time `gorm:"column:period_end;not null;uniqueIndex:idx_top_query_scope_rank,priority:4" json:"period_end"`
	Rank        int       `gorm:"column:rank;not null;uniqueIndex:idx_top_query_scope_rank,priority:5" json:"rank"`

	QueryText            string  `gorm:"column:query_text;type:text;not null" json:"query"`
	Count                int     `gorm:"column:count;not null" json:"count"`
	PositiveFeedbackRate float64 `gorm:"column:positive_feedback_rate;not null" json:"positive_feedback_rate"`
	AvgLatencyMs         float64 `gorm:"column:avg_latency_ms;not null" json:"avg_latency_ms"`

	CreatedAt time.Time `gorm:"not null;autoCreateTime" json:"created_at"`
}

func (TopQueryRow) TableName() string { return "analytics_top_query" }

func (r *TopQueryRow) BeforeCreate(*gorm.DB) error {
	if r.ID == uuid.Nil {
		r.ID = uuid.New()
	}
	return nil
}

const (
	LeaseStatusIdle = "idle"
	LeaseStatusHeld = "held"
)

// AnalyticsScopeLease backs the database implementation of the per-scope rebuild lock.
type AnalyticsScopeLease struct {
	ScopeKey  string    `gorm:"column:scope_key;primaryKey" json:"scope_key"`
	Holder    string    `gorm:"column:holder" json:"holder"`
	Status    string    `gorm:"column:status;not null" json:"status"`
	ExpiresAt time.Time `gorm:"column:expires_at;not null" json:"expires_at"`
	UpdatedAt time.Time `gorm:"not null;autoUpdateTime" json:"updated_at"`
}

func (AnalyticsScopeLease) TableName() string { return "analytics_scope_lease" }
