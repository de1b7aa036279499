package main

import (
	"context"
	"fmt"
	"os"
	"os/user"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/yungbote/tenantsearch-backend/internal/app"
	httpMW "github.com/yungbote/tenantsearch-backend/internal/http/middleware"
	"github.com/yungbote/tenantsearch-backend/internal/platform/logger"
)

var (
	tenantActor string

	createSlug string
	createName string

	tokenTenant  string
	tokenSubject string
	tokenAdmin   bool
	tokenTTL     time.Duration
)

var tenantsCmd = &cobra.Command{
	Use:   "tenants",
	Short: "Privileged tenant administration",
	Long: `Tenant commands read across tenants. Each call is audit-logged with the
--actor value, which defaults to the local user name.`,
}

var tenantsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List tenants with document, passage and query counts",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		return withApp(cmd, false, func(ctx context.Context, a *app.App) error {
			stats, err := a.Services.Tenants.ListWithStats(ctx, actorName())
			if err != nil {
				return err
			}
			return printJSON(cmd, stats)
		})
	},
}

var tenantsCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Create a tenant",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		return withApp(cmd, false, func(ctx context.Context, a *app.App) error {
			t, err := a.Services.Tenants.Create(ctx, actorName(), createSlug, createName)
			if err != nil {
				return err
			}
			return printJSON(cmd, t)
		})
	},
}

var tenantsPurgeCmd = &cobra.Command{
	Use:   "purge <tenant-id>",
	Short: "Delete every document and passage of a tenant",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		tenantID, err := parseTenant(args[0])
		if err != nil {
			return err
		}
		return withApp(cmd, false, func(ctx context.Context, a *app.App) error {
			a.Log.Warn("Purging tenant documents", "tenant_id", tenantID, "actor", actorName())
			if err := a.Services.Documents.PurgeTenant(ctx, tenantID); err != nil {
				return err
			}
			return printJSON(cmd, map[string]string{"status": "purged", "tenant_id": tenantID.String()})
		})
	},
}

var tenantsTokenCmd = &cobra.Command{
	Use:   "token",
	Short: "Issue an API bearer token signed with JWT_SECRET_KEY",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		var tenantID uuid.UUID
		if tokenTenant != "" {
			id, err := parseTenant(tokenTenant)
			if err != nil {
				return err
			}
			tenantID = id
		}
		if tenantID == uuid.Nil && !tokenAdmin {
			return fmt.Errorf("--tenant is required unless --admin is set")
		}
		cfg, err := app.LoadConfig(logger.Nop())
		if err != nil {
			return err
		}
		subject := tokenSubject
		if subject == "" {
			subject = actorName()
		}
		tok, err := httpMW.IssueToken(cfg.JWTSecret, subject, tenantID, tokenAdmin, tokenTTL)
		if err != nil {
			return err
		}
		_, err = fmt.Fprintln(cmd.OutOrStdout(), tok)
		return err
	},
}

func actorName() string {
	if tenantActor != "" {
		return tenantActor
	}
	if u, err := user.Current(); err == nil && u.Username != "" {
		return "kbctl:" + u.Username
	}
	if h, err := os.Hostname(); err == nil {
		return "kbctl@" + h
	}
	return "kbctl"
}

func init() {
	tenantsCmd.PersistentFlags().StringVar(&tenantActor, "actor", "", "actor recorded in the audit log")

	tenantsCreateCmd.Flags().StringVar(&createSlug, "slug", "", "tenant slug (required)")
	tenantsCreateCmd.Flags().StringVar(&createName, "name", "", "display name (defaults to slug)")
	_ = tenantsCreateCmd.MarkFlagRequired("slug")

	tenantsTokenCmd.Flags().StringVar(&tokenTenant, "tenant", "", "tenant id claim")
	tenantsTokenCmd.Flags().StringVar(&tokenSubject, "subject", "", "subject claim (defaults to --actor)")
	tenantsTokenCmd.Flags().BoolVar(&tokenAdmin, "admin", false, "grant the admin claim")
	tenantsTokenCmd.Flags().DurationVar(&tokenTTL, "ttl", time.Hour, "token lifetime; 0 means no expiry")

	tenantsCmd.AddCommand(tenantsListCmd, tenantsCreateCmd, tenantsPurgeCmd, tenantsTokenCmd)
	rootCmd.AddCommand(tenantsCmd)
}
