package app

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/Proton-105/worktime-bot/internal/database"
	"github.com/Proton-105/worktime-bot/internal/repository"
	"github.com/Proton-105/worktime-bot/internal/repository/memory"
	"github.com/Proton-105/worktime-bot/internal/repository/mongo"
	"github.com/Proton-105/worktime-bot/internal/repository/sqlstore"
	"github.com/Proton-105/worktime-bot/pkg/config"
)

// OpenStore connects the configured storage driver and brings its schema up to date:
// indexes for MongoDB, bundled migrations for the SQL dialects.
func OpenStore(ctx context.Context, cfg config.StorageConfig, log *slog.Logger) (repository.Store, error) {
	switch cfg.Driver {
	case "mongo":
		_, db, err := mongo.Connect(ctx, mongo.Config{
			URI:      cfg.Mongo.URI,
			Database: cfg.Mongo.Database,
			Timeout:  cfg.Timeout,
		})
		if err != nil {
			return nil, err
		}

		store := mongo.New(db, cfg.Timeout)
		if err := store.EnsureIndexes(ctx); err != nil {
			_ = store.Close(context.WithoutCancel(ctx))
			return nil, fmt.Errorf("ensure mongo indexes: %w", err)
		}
		log.Info("mongo store ready", slog.String("database", cfg.Mongo.Database))
		return store, nil

	case "postgres", "sqlite":
		dialect, err := database.ParseDialect(cfg.Driver)
		if err != nil {
			return nil, err
		}

		db, err := database.Open(ctx, dialect, dsnFor(cfg, dialect), database.Options{
			MaxOpenConns:    cfg.Postgres.MaxOpenConns,
			MaxIdleConns:    cfg.Postgres.MaxIdleConns,
			ConnMaxLifetime: cfg.Postgres.ConnMaxLifetime,
		})
		if err != nil {
			return nil, err
		}

		applied, err := database.NewMigrator(db, dialect, log).Apply(ctx)
		if err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply migrations: %w", err)
		}
		log.Info("sql store ready", slog.String("dialect", string(dialect)), slog.Int("migrations_applied", applied))
		return sqlstore.New(db, dialect, cfg.Timeout), nil

	case "memory":
		log.Warn("using in-memory store, records are lost on restart")
		return memory.New(), nil

	default:
		return nil, fmt.Errorf("unsupported storage driver %q", cfg.Driver)
	}
}

// Migrate applies pending schema changes without starting the bot and returns the number
// of SQL migrations applied.
func Migrate(ctx context.Context, cfg config.StorageConfig, log *slog.Logger) (int, error) {
	switch cfg.Driver {
	case "postgres", "sqlite":
		dialect, err := database.ParseDialect(cfg.Driver)
		if err != nil {
			return 0, err
		}

		db, err := database.Open(ctx, dialect, dsnFor(cfg, dialect), database.Options{})
		if err != nil {
			return 0, err
		}
		defer db.Close()

		return database.NewMigrator(db, dialect, log).Apply(ctx)

	case "mongo":
		store, err := OpenStore(ctx, cfg, log)
		if err != nil {
			return 0, err
		}
		return 0, store.Close(ctx)

	default:
		return 0, nil
	}
}

func dsnFor(cfg config.StorageConfig, dialect database.Dialect) string {
	if dialect == database.SQLite {
		return cfg.SQLite.Path
	}
	return cfg.Postgres.DSN
}
