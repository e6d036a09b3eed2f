package main

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/trialiq-server/internal/config"
	"github.com/trialiq-server/internal/database"
	"github.com/trialiq-server/internal/domain"
	"github.com/trialiq-server/internal/repository"
	"github.com/trialiq-server/internal/service"
	"github.com/trialiq-server/internal/session"
	"github.com/trialiq-server/internal/submission"
	"github.com/trialiq-server/internal/trials"
)

// openSubmissionStore opens the configured driver behind the circuit breaker.
func openSubmissionStore(ctx context.Context, configManager *config.Manager, logger *logrus.Logger) (domain.SubmissionStore, error) {
	cfg := configManager.GetConfig()

	var store domain.SubmissionStore
	switch cfg.Database.Driver {
	case domain.StoreMemory:
		store = submission.NewMemoryStore()
	case domain.StoreSQLite:
		s, err := submission.NewSQLiteStore(cfg.Database.SQLitePath)
		if err != nil {
			return nil, fmt.Errorf("opening sqlite store: %w", err)
		}
		store = s
	case domain.StorePostgres:
		dbCfg := database.ConfigFrom(cfg.Database)
		if err := database.Migrate(ctx, configManager.GetDatabaseURL(), cfg.Database.MigrationsPath, logger); err != nil {
			return nil, err
		}
		db, err := database.NewConnection(ctx, dbCfg, logger)
		if err != nil {
			return nil, err
		}
		store = &pooledStore{SubmissionRepository: repository.NewSubmissionRepository(db.Pool, logger), db: db}
	default:
		return nil, fmt.Errorf("unsupported database driver %q", cfg.Database.Driver)
	}

	logger.WithField("driver", cfg.Database.Driver).Info("Submission store opened")
	return submission.NewBreakerStore(store, cfg.StoreBreaker, logger), nil
}

// pooledStore closes the connection pool along with the repository.
type pooledStore struct {
	*repository.SubmissionRepository
	db *database.DB
}

func (p *pooledStore) Close() error {
	p.db.Close()
	return nil
}

func openSessionStore(ctx context.Context, cfg domain.SessionConfig, logger *logrus.Logger) (domain.SessionStore, func(), error) {
	if cfg.Backend == domain.SessionRedis {
		store, err := session.NewRedisStore(ctx, cfg, logger)
		if err != nil {
			return nil, nil, fmt.Errorf("opening redis session store: %w", err)
		}
		return store, func() { _ = store.Close() }, nil
	}
	return session.NewMemoryStore(cfg, logger), func() {}, nil
}

// seedDemoData fills an empty store with synthetic submissions.
func seedDemoData(ctx context.Context, logger *logrus.Logger, store domain.SubmissionStore, catalog *trials.Catalog, n int) error {
	seeded, err := service.NewDemoSeeder(logger, store, catalog, uint64(time.Now().UnixNano())).Seed(ctx, n)
	if err != nil {
		return err
	}
	if seeded > 0 {
		logger.WithField("count", seeded).Info("Seeded demo submissions")
	}
	return nil
}
