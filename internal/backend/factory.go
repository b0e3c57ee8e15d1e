package backend

import (
	"context"
	"fmt"
	"log/slog"

	"financas/internal/storage"
	"financas/internal/storage/memory"
	"financas/internal/storage/mongostore"
	"financas/internal/storage/sqlstore"
)

// DefaultFactory implements the Factory interface
type DefaultFactory struct {
	logger *slog.Logger
}

// NewFactory creates a new backend factory
func NewFactory(logger *slog.Logger) Factory {
	if logger == nil {
		logger = slog.Default()
	}
	return &DefaultFactory{
		logger: logger,
	}
}

// Open implements Factory.Open
func (f *DefaultFactory) Open(ctx context.Context, config Config) (*Result, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	var (
		store storage.Store
		err   error
	)
	switch config.Type {
	case MemoryBackend:
		store, err = f.openMemory(ctx, config)
	case SQLiteBackend:
		store, err = sqlstore.NewSQLiteRepository(config.SQLiteDBPath)
	case PostgresBackend:
		store, err = sqlstore.NewPostgresRepository(config.PostgresDSN)
	case MongoBackend:
		store, err = mongostore.New(ctx, config.MongoURI, config.MongoDatabase)
	default:
		return nil, fmt.Errorf("unsupported backend type: %s", config.Type)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to initialize %s backend: %w", config.Type, err)
	}

	if config.Seed && config.Type != MemoryBackend {
		if err := f.seedIfEmpty(ctx, store, config.DataDirectory); err != nil {
			store.Close()
			return nil, err
		}
	}

	f.logger.Info("Initialized storage backend",
		"backend", config.Type.String(),
		"seeded", config.Seed)

	return &Result{Store: store, Cleanup: store.Close}, nil
}

func (f *DefaultFactory) openMemory(ctx context.Context, config Config) (storage.Store, error) {
	if !config.Seed {
		return memory.New(), nil
	}
	return memory.NewSeeded(ctx, config.DataDirectory)
}

// seedIfEmpty applies the demo data to a store that holds no transactions.
func (f *DefaultFactory) seedIfEmpty(ctx context.Context, store storage.Store, dir string) error {
	txs, err := store.ListTransactions(ctx)
	if err != nil {
		return fmt.Errorf("check existing data: %w", err)
	}
	if len(txs) > 0 {
		f.logger.Debug("Store already holds data, skipping seed", "transactions", len(txs))
		return nil
	}
	ds, err := storage.LoadSeed(dir)
	if err != nil {
		return err
	}
	if err := ds.Apply(ctx, store); err != nil {
		return fmt.Errorf("seed store: %w", err)
	}
	return nil
}
