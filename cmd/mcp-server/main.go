// Package main runs the TrialIQ MCP server over stdio. It needs no external
// services by default: submissions go to SQLite under the data directory.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/trialiq-server/internal/config"
	"github.com/trialiq-server/internal/domain"
	"github.com/trialiq-server/internal/i18n"
	"github.com/trialiq-server/internal/locale"
	"github.com/trialiq-server/internal/mcp"
	"github.com/trialiq-server/internal/service"
	"github.com/trialiq-server/internal/session"
	"github.com/trialiq-server/internal/setup"
	"github.com/trialiq-server/internal/submission"
	"github.com/trialiq-server/internal/trials"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "trialiq-mcp",
		Short: "Clinical trial matching tools over the Model Context Protocol",
		Long: `trialiq-mcp serves trial listing, screening questions, matching and
submission analytics as MCP tools on stdin/stdout.

Configuration comes from TRIALIQ_* environment variables.`,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return serve(ctx, config.LoadLiteConfig())
		},
	}
	rootCmd.AddCommand(setup.NewCommand())

	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func serve(ctx context.Context, cfg *config.LiteConfig) error {
	logger, err := config.NewLogger(cfg.Logging())
	if err != nil {
		return err
	}
	if err := cfg.EnsureDataDir(); err != nil {
		return fmt.Errorf("failed to create data directory: %w", err)
	}

	resolver, err := locale.NewResolver(cfg.Locale())
	if err != nil {
		return err
	}
	translator, err := i18n.LoadEmbedded(cfg.DefaultLocale)
	if err != nil {
		return err
	}

	store, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer store.Close()

	catalog := trials.Default()
	sessions := session.NewMemoryStore(domain.SessionConfig{MaxSessions: 100}, logger)
	intake := service.NewIntakeService(logger, catalog, resolver, sessions, store, cfg.Matching())

	server, err := mcp.NewServer(mcp.Dependencies{
		Logger:     logger,
		Intake:     intake,
		Dashboard:  service.NewDashboardService(logger, store, catalog),
		Translator: translator,
		ExportDir:  cfg.ExportDir(),
	})
	if err != nil {
		return fmt.Errorf("failed to create MCP server: %w", err)
	}

	logger.WithFields(logrus.Fields{
		"data_dir": cfg.DataDir,
		"store":    cfg.Store,
	}).Info("TrialIQ MCP server configured")

	if err := server.Start(ctx); err != nil {
		return err
	}
	logger.Info("TrialIQ MCP server stopped")
	return nil
}

func openStore(cfg *config.LiteConfig) (domain.SubmissionStore, error) {
	switch cfg.Store {
	case domain.StoreMemory:
		return submission.NewMemoryStore(), nil
	case domain.StorePostgres:
		if cfg.DatabaseURL == "" {
			return nil, fmt.Errorf("TRIALIQ_DATABASE_URL is required for the postgres store")
		}
		store, err := submission.NewPostgresStoreFromURL(cfg.DatabaseURL)
		if err != nil {
			return nil, err
		}
		return store, nil
	case domain.StoreSQLite, "":
		store, err := submission.NewSQLiteStore(cfg.SubmissionsDBPath())
		if err != nil {
			return nil, err
		}
		return store, nil
	}
	return nil, fmt.Errorf("unsupported store %q", cfg.Store)
}
