package storage

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vitos/market_snapshot/internal/config"
)

func TestOpen(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()

	fileStore, err := Open(ctx, config.StorageConfig{Backend: config.BackendFile, Dir: filepath.Join(dir, "snapshots")})
	require.NoError(t, err)
	assert.IsType(t, &FileStore{}, fileStore)
	require.NoError(t, fileStore.Close())

	sqliteStore, err := Open(ctx, config.StorageConfig{Backend: config.BackendSQLite, SQLite: config.SQLiteConfig{Path: filepath.Join(dir, "snapshots.db")}})
	require.NoError(t, err)
	assert.IsType(t, &SQLiteStore{}, sqliteStore)
	require.NoError(t, sqliteStore.Close())

	_, err = Open(ctx, config.StorageConfig{Backend: "redis"})
	assert.Error(t, err)

	_, err = Open(ctx, config.StorageConfig{Backend: config.BackendS3})
	assert.Error(t, err)
}
