package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"github.com/yardline/internal/app"
	"github.com/yardline/internal/config"
	"github.com/yardline/internal/logging"
)

var (
	timeout  time.Duration
	logLevel string
)

// rootCmd is the operator entry point.
var rootCmd = &cobra.Command{
	Use:           "yardctl",
	Short:         "Operator tasks for the Yardline backend",
	SilenceUsage:  true,
	SilenceErrors: true,
}

var migrateGalleryCmd = &cobra.Command{
	Use:   "migrate-gallery",
	Short: "Catalog every image in the gallery folder",
	Long: `Adds a gallery_photos row for every image object in the configured gallery
bucket folder that is not cataloged yet. Rows are matched on filename; existing
rows, including admin edits, are never modified.`,
	RunE: runMigrateGallery,
}

var crmColumnsCmd = &cobra.Command{
	Use:   "crm-columns",
	Short: "Print the columns of the configured CRM board",
	RunE:  runCRMColumns,
}

func init() {
	rootCmd.PersistentFlags().DurationVar(&timeout, "timeout", 2*time.Minute, "Operation timeout")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Override LOG_LEVEL")

	rootCmd.AddCommand(migrateGalleryCmd)
	rootCmd.AddCommand(crmColumnsCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func setup(cmd *cobra.Command) (*app.App, context.Context, context.CancelFunc, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, nil, err
	}
	if logLevel != "" {
		cfg.LogLevel = logLevel
	}
	logger, err := logging.New(cfg.LogLevel)
	if err != nil {
		return nil, nil, nil, err
	}

	ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
	application, err := app.New(ctx, cfg, logger)
	if err != nil {
		cancel()
		return nil, nil, nil, err
	}
	return application, ctx, cancel, nil
}

func runMigrateGallery(cmd *cobra.Command, _ []string) error {
	application, ctx, cancel, err := setup(cmd)
	if err != nil {
		return err
	}
	defer cancel()
	defer application.Close()

	count, err := application.Gallery.MigrateBucketToCatalog(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "cataloged %d new photos\n", count)
	return nil
}

func runCRMColumns(cmd *cobra.Command, _ []string) error {
	application, ctx, cancel, err := setup(cmd)
	if err != nil {
		return err
	}
	defer cancel()
	defer application.Close()

	columns, err := application.Leads.Columns(ctx)
	if err != nil {
		return err
	}
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	if err := enc.Encode(columns); err != nil {
		return fmt.Errorf("encode columns: %w", err)
	}
	return nil
}
