package backend

import (
	"context"
	"fmt"

	"fxledger/internal/cache"
	"fxledger/internal/log"
	"fxledger/internal/storage"
	"fxledger/internal/store/memory"
)

// DefaultFactory implements the Factory interface
type DefaultFactory struct {
	logger *log.Logger
}

// NewFactory creates a new backend factory
func NewFactory(logger *log.Logger) Factory {
	if logger == nil {
		logger = log.Discard()
	}
	return &DefaultFactory{
		logger: logger.WithComponent(log.ComponentStorage),
	}
}

// CreateBackend implements Factory.CreateBackend
func (f *DefaultFactory) CreateBackend(ctx context.Context, config Config) (*BackendResult, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	switch config.Type {
	case SQLiteBackend:
		return f.createSQLiteBackend(ctx, config)
	case MemoryBackend:
		return f.createMemoryBackend(ctx, config)
	default:
		return nil, fmt.Errorf("unsupported backend type: %s", config.Type)
	}
}

func (f *DefaultFactory) createSQLiteBackend(ctx context.Context, config Config) (*BackendResult, error) {
	sqliteRepo, err := storage.NewSQLiteRepository(config.SQLiteDBPath)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize SQLite repository: %w", err)
	}

	f.logger.InfoContext(ctx, "Initialized SQLite backend",
		"db_path", config.SQLiteDBPath,
		"snapshot_cache_size", config.SnapshotCacheSize,
		"snapshot_cache_ttl", config.SnapshotCacheTTL)

	return &BackendResult{
		Entities:  sqliteRepo,
		Snapshots: cache.NewLayered(sqliteRepo, config.SnapshotCacheSize, config.SnapshotCacheTTL),
		Cleanup:   sqliteRepo.Close,
	}, nil
}

func (f *DefaultFactory) createMemoryBackend(ctx context.Context, config Config) (*BackendResult, error) {
	dataDir := config.DataDirectory
	if dataDir == "" {
		dataDir = "data"
	}

	store, err := memory.NewFromFiles(dataDir)
	if err != nil {
		return nil, fmt.Errorf("failed to seed memory store: %w", err)
	}

	f.logger.InfoContext(ctx, "Initialized memory backend", "data_dir", dataDir)

	return &BackendResult{
		Entities:  store,
		Snapshots: cache.NewMemoryStore(),
		Cleanup:   func() error { return nil },
	}, nil
}
