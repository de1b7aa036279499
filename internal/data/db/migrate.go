package db

import (
	"fmt"

	"gorm.io/gorm"

	"github.com/yungbote/tenantsearch-backend/internal/domain"
)

// Session settings read by the row-level security policies.
const (
	SettingCurrentTenant = "app.current_tenant"
	SettingCrossTenant   = "app.cross_tenant"
)

func IsPostgres(db *gorm.DB) bool {
	return db != nil && db.Dialector != nil && db.Dialector.Name() == "postgres"
}

// AutoMigrateAll creates tables for every model. On Postgres it also installs
// the trigram/vector extensions, search indexes and row-level security.
func AutoMigrateAll(db *gorm.DB) error {
	if IsPostgres(db) {
		if err := EnsureExtensions(db); err != nil {
			return err
		}
	}
	if err := db.AutoMigrate(domain.Models()...); err != nil {
		return fmt.Errorf("auto migrate: %w", err)
	}
	if !IsPostgres(db) {
		return nil
	}
	if err := EnsureSearchIndexes(db); err != nil {
		return err
	}
	return EnsureRowLevelSecurity(db)
}

func EnsureExtensions(db *gorm.DB) error {
	for _, ext := range []string{"pg_trgm", "vector"} {
		if err := db.Exec(fmt.Sprintf(`CREATE EXTENSION IF NOT EXISTS %q;`, ext)).Error; err != nil {
			return fmt.Errorf("enable %s: %w", ext, err)
		}
	}
	return nil
}

func EnsureSearchIndexes(db *gorm.DB) error {
	// Serves word_similarity / <% lookups.
	if err := db.Exec(`
		CREATE INDEX IF NOT EXISTS idx_passage_content_trgm
		ON passage
		USING GIN (content gin_trgm_ops);
	`).Error; err != nil {
		return fmt.Errorf("create idx_passage_content_trgm: %w", err)
	}

	if err := db.Exec(`
		CREATE INDEX IF NOT EXISTS idx_passage_embedding_l2
		ON passage
		USING hnsw (embedding vector_l2_ops);
	`).Error; err != nil {
		return fmt.Errorf("create idx_passage_embedding_l2: %w", err)
	}

	if err := db.Exec(`
		CREATE INDEX IF NOT EXISTS idx_passage_tenant_document
		ON passage (tenant_id, document_id, ordinal);
	`).Error; err != nil {
		return fmt.Errorf("create idx_passage_tenant_document: %w", err)
	}
	return nil
}

// EnsureRowLevelSecurity forces per-tenant row filtering on every tenant-scoped
// table. Superusers still bypass RLS, so the application role must not be one.
func EnsureRowLevelSecurity(db *gorm.DB) error {
	for _, table := range domain.TenantScopedTables() {
		stmts := []string{
			fmt.Sprintf(`ALTER TABLE %q ENABLE ROW LEVEL SECURITY;`, table),
			fmt.Sprintf(`ALTER TABLE %q FORCE ROW LEVEL SECURITY;`, table),
			fmt.Sprintf(`DROP POLICY IF EXISTS tenant_isolation ON %q;`, table),
			fmt.Sprintf(`
				CREATE POLICY tenant_isolation ON %q
				USING (
					tenant_id::text = current_setting('%s', true)
					OR current_setting('%s', true) = 'on'
				)
				WITH CHECK (
					tenant_id::text = current_setting('%s', true)
					OR current_setting('%s', true) = 'on'
				);`,
				table,
				SettingCurrentTenant, SettingCrossTenant,
				SettingCurrentTenant, SettingCrossTenant,
			),
		}
		for _, stmt := range stmts {
			if err := db.Exec(stmt).Error; err != nil {
				return fmt.Errorf("row level security on %s: %w", table, err)
			}
		}
	}
	return nil
}

func (s *PostgresService) AutoMigrateAll() error {
	s.log.Info("Auto migrating postgres tables...")
	if err := AutoMigrateAll(s.db); err != nil {
		s.log.Error("Auto migration failed", "error", err)
		return err
	}
	s.log.Info("Postgres migration complete")
	return nil
}
