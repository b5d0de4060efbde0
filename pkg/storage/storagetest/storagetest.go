// Package storagetest opens throwaway SQLite databases for tests.
package storagetest

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/ha1tch/meditactive/pkg/storage"
)

// NewSQLite opens a migrated database in t.TempDir() with the default
// catalog seeded. It is closed when the test ends.
func NewSQLite(t testing.TB) *storage.DB {
	t.Helper()
	db := NewEmptySQLite(t)
	require.NoError(t, storage.SeedCatalog(context.Background(), db,
		storage.DefaultGoals, storage.DefaultSessionTypes))
	return db
}

// NewEmptySQLite opens a migrated database with empty catalog tables
func NewEmptySQLite(t testing.TB) *storage.DB {
	t.Helper()

	cfg := storage.DefaultConfig()
	cfg.Path = filepath.Join(t.TempDir(), "test.db")
	cfg.MaxOpenConns = 4

	db, err := storage.Open(cfg)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	require.NoError(t, storage.Migrate(context.Background(), db))
	return db
}
