package app

import (
	"context"
	"fmt"

	mongomigration "roombook/internal/migrations/mongo"
	"roombook/internal/storage"
	"roombook/internal/storage/memstore"
	"roombook/internal/storage/mongostore"
	"roombook/internal/storage/pgstore"
	"roombook/pkg/config"
)

// OpenStore returns the configured backend. cfg.Connect must already have run
// for the mongo and postgres backends.
func OpenStore(cfg *config.Config) (storage.Store, error) {
	switch cfg.StorageBackend {
	case config.BackendMongo:
		return mongostore.New(cfg), nil
	case config.BackendPostgres:
		return pgstore.New(cfg), nil
	case config.BackendMemory:
		return memstore.New(), nil
	default:
		return nil, fmt.Errorf("unknown storage backend %q", cfg.StorageBackend)
	}
}

// Migrate brings the configured backend's schema up to date. The in-memory
// backend has none.
func Migrate(ctx context.Context, cfg *config.Config) error {
	switch cfg.StorageBackend {
	case config.BackendMongo:
		return mongomigration.RunMigration(ctx, cfg.Client.Mongo, cfg.MongoDatabaseName, cfg.Log)
	case config.BackendPostgres:
		return pgstore.Migrate(ctx, cfg.Client.Postgres, cfg.Log)
	case config.BackendMemory:
		cfg.Log.Info("In-memory backend needs no migration")
		return nil
	default:
		return fmt.Errorf("unknown storage backend %q", cfg.StorageBackend)
	}
}
