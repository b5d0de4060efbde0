package storage

import (
	"context"
	"fmt"

	"github.com/ha1tch/meditactive/pkg/models"
)

// SchemaVersion is the version recorded by Migrate
const SchemaVersion = 1

// Migrate creates the tables for the pool's dialect
func Migrate(ctx context.Context, db *DB) error {
	schema := sqliteSchema
	if db.Dialect() == DialectPostgres {
		schema = postgresSchema
	}

	for _, stmt := range schema {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to create schema: %w", err)
		}
	}

	if _, err := db.ExecContext(ctx,
		"INSERT INTO schema_version (version) VALUES (?) ON CONFLICT (version) DO NOTHING",
		SchemaVersion); err != nil {
		return fmt.Errorf("failed to set schema version: %w", err)
	}
	return nil
}

// Version returns the highest applied schema version
func Version(ctx context.Context, db *DB) (int, error) {
	var v int
	err := db.QueryRowContext(ctx, "SELECT COALESCE(MAX(version), 0) FROM schema_version").Scan(&v)
	if err != nil {
		return 0, fmt.Errorf("failed to read schema version: %w", err)
	}
	return v, nil
}

// DefaultGoals is the catalog the original deployment shipped with
var DefaultGoals = []string{"Weight Loss", "Muscle Gain", "Maintenance", "Endurance", "Flexibility"}

// DefaultSessionTypes is the session template catalog the original deployment shipped with
var DefaultSessionTypes = []models.SessionType{
	{Name: "1 hour", DurationMinutes: 60, Description: "One hour session"},
	{Name: "1 day", DurationMinutes: 1440, Description: "Full day session"},
	{Name: "1 week", DurationMinutes: 10080, Description: "One week session"},
}

// SeedCatalog inserts catalog rows that are not there yet. It belongs to
// deployment tooling; the aggregate engine never writes catalog tables.
func SeedCatalog(ctx context.Context, db *DB, goals []string, types []models.SessionType) error {
	return RunInTransaction(ctx, db, func(tx *Tx) error {
		for _, title := range goals {
			if _, err := tx.ExecContext(ctx,
				"INSERT INTO goals (title) VALUES (?) ON CONFLICT (title) DO NOTHING", title); err != nil {
				return fmt.Errorf("failed to seed goal %q: %w", title, err)
			}
		}
		for _, st := range types {
			if _, err := tx.ExecContext(ctx, `
				INSERT INTO session_types (name, duration_minutes, description)
				VALUES (?, ?, ?) ON CONFLICT (name) DO NOTHING
			`, st.Name, st.DurationMinutes, st.Description); err != nil {
				return fmt.Errorf("failed to seed session type %q: %w", st.Name, err)
			}
		}
		return nil
	})
}

// IsUniqueViolation reports whether err is a unique constraint failure from
// either supported driver
func IsUniqueViolation(err error) bool {
	return isSQLiteUniqueViolation(err) || isPostgresUniqueViolation(err)
}
