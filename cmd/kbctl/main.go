// Command kbctl runs search, analytics and tenant operations directly against
// the configured backends, without going through the HTTP API.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/yungbote/tenantsearch-backend/internal/app"
	"github.com/yungbote/tenantsearch-backend/internal/platform/logger"
)

var (
	version = "dev"

	logMode string
	pretty  bool
)

var rootCmd = &cobra.Command{
	Use:           "kbctl",
	Short:         "Operate the tenant search engine from the command line",
	Version:       version,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&logMode, "log-mode", "production", "logger mode (development|production)")
	rootCmd.PersistentFlags().BoolVar(&pretty, "pretty", false, "indent JSON output")
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

// withApp loads configuration, wires the app and runs fn. Migrations only run
// when migrate is true.
func withApp(cmd *cobra.Command, migrate bool, fn func(ctx context.Context, a *app.App) error) error {
	log, err := logger.New(logMode)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer log.Sync()

	cfg, err := app.LoadConfig(log)
	if err != nil {
		return err
	}
	cfg.AutoMigrate = migrate

	ctx := cmd.Context()
	a, err := app.New(ctx, log, cfg)
	if err != nil {
		return err
	}
	defer a.Close(context.WithoutCancel(ctx))
	return fn(ctx, a)
}

func printJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	if pretty {
		enc.SetIndent("", "  ")
	}
	return enc.Encode(v)
}
