package storage_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ha1tch/meditactive/pkg/models"
	"github.com/ha1tch/meditactive/pkg/storage"
	"github.com/ha1tch/meditactive/pkg/storage/storagetest"
)

func countRows(t *testing.T, db *storage.DB, table string) int {
	t.Helper()
	var n int
	require.NoError(t, db.QueryRowContext(context.Background(), "SELECT COUNT(*) FROM "+table).Scan(&n))
	return n
}

func TestSQLite_MigrateIsIdempotent(t *testing.T) {
	db := storagetest.NewEmptySQLite(t)
	ctx := context.Background()

	require.NoError(t, storage.Migrate(ctx, db))
	require.NoError(t, storage.Migrate(ctx, db))

	v, err := storage.Version(ctx, db)
	require.NoError(t, err)
	assert.Equal(t, storage.SchemaVersion, v)
}

func TestSQLite_SeedCatalog(t *testing.T) {
	db := storagetest.NewEmptySQLite(t)
	ctx := context.Background()

	require.NoError(t, storage.SeedCatalog(ctx, db, storage.DefaultGoals, storage.DefaultSessionTypes))
	require.NoError(t, storage.SeedCatalog(ctx, db, storage.DefaultGoals, storage.DefaultSessionTypes))

	assert.Equal(t, len(storage.DefaultGoals), countRows(t, db, "goals"))
	assert.Equal(t, len(storage.DefaultSessionTypes), countRows(t, db, "session_types"))

	require.NoError(t, storage.SeedCatalog(ctx, db, []string{"Focus"},
		[]models.SessionType{{Name: "15 minutes", DurationMinutes: 15}}))
	assert.Equal(t, len(storage.DefaultGoals)+1, countRows(t, db, "goals"))
	assert.Equal(t, len(storage.DefaultSessionTypes)+1, countRows(t, db, "session_types"))
}

func TestSQLite_UniqueViolation(t *testing.T) {
	db := storagetest.NewEmptySQLite(t)
	ctx := context.Background()

	_, err := db.ExecContext(ctx, "INSERT INTO members (first_name, last_name, email) VALUES (?, ?, ?)",
		"A", "B", "dup@example.com")
	require.NoError(t, err)

	_, err = db.ExecContext(ctx, "INSERT INTO members (first_name, last_name, email) VALUES (?, ?, ?)",
		"C", "D", "dup@example.com")
	require.Error(t, err)
	assert.True(t, storage.IsUniqueViolation(err))

	assert.False(t, storage.IsUniqueViolation(errors.New("other")))
}

func TestSQLite_ForeignKeysEnforced(t *testing.T) {
	db := storagetest.NewEmptySQLite(t)

	_, err := db.ExecContext(context.Background(),
		"INSERT INTO member_goals (member_id, goal_id) VALUES (?, ?)", 404, 404)
	assert.Error(t, err)
}

func TestSQLite_InsertID(t *testing.T) {
	db := storagetest.NewEmptySQLite(t)
	ctx := context.Background()

	first, err := storage.InsertID(ctx, db, "INSERT INTO goals (title) VALUES (?)", "One")
	require.NoError(t, err)
	second, err := storage.InsertID(ctx, db, "INSERT INTO goals (title) VALUES (?)", "Two")
	require.NoError(t, err)

	assert.Positive(t, first)
	assert.Greater(t, second, first)
}

func TestSQLite_RollbackDiscardsWrites(t *testing.T) {
	db := storagetest.NewEmptySQLite(t)
	ctx := context.Background()

	err := storage.RunInTransaction(ctx, db, func(tx *storage.Tx) error {
		if _, err := tx.ExecContext(ctx, "INSERT INTO goals (title) VALUES (?)", "Temp"); err != nil {
			return err
		}
		return errors.New("abort")
	})
	require.Error(t, err)
	assert.Equal(t, 0, countRows(t, db, "goals"))
}

func TestSQLite_ConcurrentTransactions(t *testing.T) {
	db := storagetest.NewEmptySQLite(t)
	ctx := context.Background()

	count := 20
	var wg sync.WaitGroup
	errs := make(chan error, count)

	for i := 0; i < count; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			err := storage.RunInTransaction(ctx, db, func(tx *storage.Tx) error {
				_, err := storage.InsertID(ctx, tx, "INSERT INTO goals (title) VALUES (?)", fmt.Sprintf("Goal %d", n))
				return err
			})
			if err != nil {
				errs <- err
			}
		}(i)
	}

	wg.Wait()
	close(errs)
	for err := range errs {
		t.Errorf("Concurrent transaction error: %v", err)
	}
	assert.Equal(t, count, countRows(t, db, "goals"))
}

func TestSQLite_Info(t *testing.T) {
	db := storagetest.NewEmptySQLite(t)

	info := db.Info()
	assert.Equal(t, "sqlite", info.Driver)
	assert.Equal(t, "sqlite", info.Dialect)
	assert.Equal(t, 4, info.MaxOpenConns)
	assert.NoError(t, db.Ping(context.Background()))
}
