package main

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/yungbote/tenantsearch-backend/internal/app"
	"github.com/yungbote/tenantsearch-backend/internal/services"
)

var (
	rebuildScope scopeFlags
	rebuildTopK  int
	rebuildAsync bool

	topScope     scopeFlags
	clusterScope scopeFlags
)

var rebuildCmd = &cobra.Command{
	Use:   "rebuild",
	Short: "Recompute clusters and top queries for one analytics scope",
	Long: `Rebuild replaces the stored clusters and top-query rows of one
(tenant, locale, period) scope. A second rebuild of the same scope while one
is running fails with rebuild_in_progress.

Examples:
  kbctl rebuild --tenant 7c1e... --locale ja --from 2026-03-01 --to 2026-04-01
  kbctl rebuild --tenant 7c1e... --from 2026-03-01 --to 2026-04-01 --async`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		scope, err := rebuildScope.scope()
		if err != nil {
			return err
		}
		return withApp(cmd, false, func(ctx context.Context, a *app.App) error {
			res, err := a.Services.Analytics.Rebuild(ctx, services.RebuildInput{Scope: scope, TopK: rebuildTopK, Async: rebuildAsync})
			if err != nil {
				return err
			}
			return printJSON(cmd, res)
		})
	},
}

var topQueriesCmd = &cobra.Command{
	Use:   "top-queries",
	Short: "Print the stored top-query ranking for a scope",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		scope, err := topScope.scope()
		if err != nil {
			return err
		}
		return withApp(cmd, false, func(ctx context.Context, a *app.App) error {
			rows, err := a.Services.Analytics.TopQueries(ctx, scope)
			if err != nil {
				return err
			}
			return printJSON(cmd, rows)
		})
	},
}

var clustersCmd = &cobra.Command{
	Use:   "clusters",
	Short: "Print the stored query clusters for a scope",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		scope, err := clusterScope.scope()
		if err != nil {
			return err
		}
		return withApp(cmd, false, func(ctx context.Context, a *app.App) error {
			views, err := a.Services.Analytics.Clusters(ctx, scope)
			if err != nil {
				return err
			}
			return printJSON(cmd, views)
		})
	},
}

func init() {
	rebuildScope.bind(rebuildCmd)
	rebuildCmd.Flags().IntVar(&rebuildTopK, "top-k", 0, "number of ranked queries to keep (default 20)")
	rebuildCmd.Flags().BoolVar(&rebuildAsync, "async", false, "hand the rebuild to the Temporal worker")
	topScope.bind(topQueriesCmd)
	clusterScope.bind(clustersCmd)
	rootCmd.AddCommand(rebuildCmd, topQueriesCmd, clustersCmd)
}
