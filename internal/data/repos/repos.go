package repos

import (
	"gorm.io/gorm"

	"github.com/yungbote/tenantsearch-backend/internal/data/repos/analytics"
	"github.com/yungbote/tenantsearch-backend/internal/data/repos/knowledge"
	"github.com/yungbote/tenantsearch-backend/internal/platform/logger"
)

type TenantRepo = knowledge.TenantRepo
type DocumentRepo = knowledge.DocumentRepo
type PassageRepo = knowledge.PassageRepo

type QueryRecordRepo = analytics.QueryRecordRepo
type QueryClusterRepo = analytics.QueryClusterRepo
type TopQueryRepo = analytics.TopQueryRepo

type TenantStats = knowledge.TenantStats

// Set bundles every table repo for wiring.
type Set struct {
	Tenants      TenantRepo
	Documents    DocumentRepo
	Passages     PassageRepo
	QueryRecords QueryRecordRepo
	Clusters     QueryClusterRepo
	TopQueries   TopQueryRepo
}

func NewSet(db *gorm.DB, log *logger.Logger) Set {
	return Set{
		Tenants:      knowledge.NewTenantRepo(db, log),
		Documents:    knowledge.NewDocumentRepo(db, log),
		Passages:     knowledge.NewPassageRepo(db, log),
		QueryRecords: analytics.NewQueryRecordRepo(db, log),
		Clusters:     analytics.NewQueryClusterRepo(db, log),
		TopQueries:   analytics.NewTopQueryRepo(db, log),
	}
}
