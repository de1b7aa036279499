package main

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/yungbote/tenantsearch-backend/internal/app"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create tables, extensions, search indexes and row-level security",
	Long: `Run schema migrations against POSTGRES_DSN.

On Postgres this also enables pg_trgm and vector, builds the trigram and
vector indexes and installs the tenant row-level security policies.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		return withApp(cmd, true, func(_ context.Context, a *app.App) error {
			a.Log.Info("Migrations complete")
			return printJSON(cmd, map[string]string{"status": "migrated"})
		})
	},
}

func init() {
	rootCmd.AddCommand(migrateCmd)
}
