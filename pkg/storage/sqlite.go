package storage

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"modernc.org/sqlite" // Pure Go SQLite driver
	sqlite3 "modernc.org/sqlite/lib"
)

// openSQLite opens a file-backed SQLite pool. Pragmas go in the DSN so every
// pooled connection gets them, not just the first one.
func openSQLite(cfg Config) (*DB, error) {
	path := cfg.Path
	if path == "" {
		path = "meditactive.db"
	}

	db, err := sql.Open("sqlite", sqliteDSN(path, cfg))
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	return &DB{db: db, dialect: DialectSQLite, driver: "sqlite"}, nil
}

func sqliteDSN(path string, cfg Config) string {
	busy := cfg.BusyTimeout
	if busy <= 0 {
		busy = 5000
	}

	params := []string{
		"_pragma=foreign_keys(1)",
		fmt.Sprintf("_pragma=busy_timeout(%d)", busy),
		"_pragma=synchronous(NORMAL)",
	}
	if cfg.EnableWAL {
		params = append(params, "_pragma=journal_mode(WAL)")
	}
	// Writers take the lock at BEGIN so two racing mutations queue on
	// busy_timeout instead of failing on lock upgrade.
	params = append(params, "_txlock=immediate", "_time_format=sqlite")

	return "file:" + path + "?" + strings.Join(params, "&")
}

var sqliteSchema = []string{
	`CREATE TABLE IF NOT EXISTS members (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		first_name TEXT NOT NULL,
		last_name TEXT NOT NULL,
		email TEXT NOT NULL UNIQUE,
		goal TEXT,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
		updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	)`,
	`CREATE TABLE IF NOT EXISTS goals (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		title TEXT NOT NULL UNIQUE
	)`,
	`CREATE TABLE IF NOT EXISTS session_types (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		name TEXT NOT NULL UNIQUE,
		duration_minutes INTEGER NOT NULL,
		description TEXT NOT NULL DEFAULT ''
	)`,
	`CREATE TABLE IF NOT EXISTS sessions (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		start_date TIMESTAMP NOT NULL,
		end_date TIMESTAMP NOT NULL,
		session_type_id INTEGER NOT NULL REFERENCES session_types(id)
	)`,
	`CREATE TABLE IF NOT EXISTS member_goals (
		member_id INTEGER NOT NULL REFERENCES members(id),
		goal_id INTEGER NOT NULL REFERENCES goals(id),
		PRIMARY KEY (member_id, goal_id)
	)`,
	`CREATE TABLE IF NOT EXISTS member_sessions (
		member_id INTEGER NOT NULL REFERENCES members(id),
		session_id INTEGER NOT NULL REFERENCES sessions(id),
		PRIMARY KEY (member_id, session_id)
	)`,
	`CREATE INDEX IF NOT EXISTS idx_member_goals_goal ON member_goals(goal_id)`,
	`CREATE INDEX IF NOT EXISTS idx_member_sessions_session ON member_sessions(session_id)`,
	`CREATE TABLE IF NOT EXISTS schema_version (
		version INTEGER PRIMARY KEY,
		applied_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	)`,
}

func isSQLiteUniqueViolation(err error) bool {
	var se *sqlite.Error
	if errors.As(err, &se) {
		return se.Code() == sqlite3.SQLITE_CONSTRAINT_UNIQUE
	}
	return false
}
