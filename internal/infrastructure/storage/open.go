package storage

import (
	"context"
	"fmt"

	"github.com/vitos/market_snapshot/internal/config"
	"github.com/vitos/market_snapshot/internal/domain"
)

// Store is what every backend provides on top of domain.SnapshotStore.
type Store interface {
	domain.SnapshotStore
	Keys(ctx context.Context) ([]string, error)
	Close() error
}

var (
	_ Store = (*FileStore)(nil)
	_ Store = (*SQLiteStore)(nil)
	_ Store = (*S3Store)(nil)
)

// Open builds the backend named by cfg.Backend.
func Open(ctx context.Context, cfg config.StorageConfig) (Store, error) {
	switch cfg.Backend {
	case config.BackendFile, "":
		return NewFileStore(cfg.Dir)
	case config.BackendSQLite:
		return NewSQLiteStore(cfg.SQLite.Path)
	case config.BackendS3:
		return NewS3Store(ctx, S3Options{
			Bucket:          cfg.S3.Bucket,
			Prefix:          cfg.S3.Prefix,
			Region:          cfg.S3.Region,
			Endpoint:        cfg.S3.Endpoint,
			PathStyle:       cfg.S3.PathStyle,
			AccessKeyID:     cfg.S3.AccessKeyID,
			SecretAccessKey: cfg.S3.SecretAccessKey,
		})
	default:
		return nil, fmt.Errorf("unknown storage backend %q", cfg.Backend)
	}
}
