package main

import (
	"context"
	"strings"

	"github.com/spf13/cobra"

	"github.com/yungbote/tenantsearch-backend/internal/app"
	"github.com/yungbote/tenantsearch-backend/internal/services"
)

var (
	searchTenant string
	searchLimit  int
	searchLocale string
)

var searchCmd = &cobra.Command{
	Use:   "search <text>",
	Short: "Run a hybrid search as the given tenant",
	Long: `Search blends trigram and vector results for one tenant. The query is
logged like an API search, so it feeds later analytics rebuilds.

Examples:
  kbctl search --tenant 7c1e... "返品したい"
  kbctl search --tenant 7c1e... --limit 5 --locale en refund policy`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		tenantID, err := parseTenant(searchTenant)
		if err != nil {
			return err
		}
		text := strings.Join(args, " ")
		return withApp(cmd, false, func(ctx context.Context, a *app.App) error {
			res, err := a.Services.Search.Search(ctx, tenantID, text, searchLimit, services.WithLocale(searchLocale))
			if err != nil {
				return err
			}
			return printJSON(cmd, res)
		})
	},
}

func init() {
	searchCmd.Flags().StringVar(&searchTenant, "tenant", "", "tenant id (required)")
	searchCmd.Flags().IntVar(&searchLimit, "limit", 0, "maximum results (default 10)")
	searchCmd.Flags().StringVar(&searchLocale, "locale", "", "locale recorded with the query log entry")
	_ = searchCmd.MarkFlagRequired("tenant")
	rootCmd.AddCommand(searchCmd)
}
