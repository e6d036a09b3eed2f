package main

import (
	"context"
	"log"
	"os/signal"
	"syscall"

	"github.com/sirupsen/logrus"

	"github.com/trialiq-server/internal/api"
	"github.com/trialiq-server/internal/auth"
	"github.com/trialiq-server/internal/config"
	"github.com/trialiq-server/internal/i18n"
	"github.com/trialiq-server/internal/locale"
	"github.com/trialiq-server/internal/service"
	"github.com/trialiq-server/internal/trials"
)

func main() {
	// Load configuration
	configManager, err := config.NewManager()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Validate configuration
	if err := configManager.Validate(); err != nil {
		log.Fatalf("Configuration validation failed: %v", err)
	}

	cfg := configManager.GetConfig()
	logger, err := config.NewLogger(cfg.Logging)
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, configManager, logger); err != nil {
		logger.WithError(err).Fatal("Server failed")
	}
	logger.Info("Server stopped")
}

func run(ctx context.Context, configManager *config.Manager, logger *logrus.Logger) error {
	cfg := configManager.GetConfig()

	catalog := trials.Default()
	resolver, err := locale.NewResolver(cfg.Locale)
	if err != nil {
		return err
	}
	translator, err := i18n.LoadEmbedded(cfg.Locale.Default)
	if err != nil {
		return err
	}
	gate, err := auth.NewGate(cfg.Admin, logger)
	if err != nil {
		return err
	}

	submissions, err := openSubmissionStore(ctx, configManager, logger)
	if err != nil {
		return err
	}
	defer submissions.Close()

	sessions, closeSessions, err := openSessionStore(ctx, cfg.Session, logger)
	if err != nil {
		return err
	}
	defer closeSessions()

	intake := service.NewIntakeService(logger, catalog, resolver, sessions, submissions, cfg.Matching)
	dashboard := service.NewDashboardService(logger, submissions, catalog)

	if cfg.Admin.SeedDemoData {
		if err := seedDemoData(ctx, logger, submissions, catalog, cfg.Admin.SeedDemoCount); err != nil {
			logger.WithError(err).Warn("Demo data seeding failed")
		}
	}

	logger.WithFields(logrus.Fields{
		"host":    cfg.Server.Host,
		"port":    cfg.Server.Port,
		"store":   cfg.Database.Driver,
		"session": cfg.Session.Backend,
		"trials":  len(catalog.All()),
	}).Info("Starting TrialIQ server")

	server := api.NewServer(cfg, api.Dependencies{
		Logger:     logger,
		Intake:     intake,
		Dashboard:  dashboard,
		Gate:       gate,
		Translator: translator,
		Locales:    resolver,
	})
	return server.Start(ctx)
}
