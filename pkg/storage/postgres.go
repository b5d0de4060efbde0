package storage

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib" // register pgx as a database/sql driver
)

const defaultPostgresDSN = "postgres://localhost/meditactive?sslmode=disable"

func openPostgres(cfg Config) (*DB, error) {
	dsn := cfg.DSN
	if dsn == "" {
		dsn = defaultPostgresDSN
	}

	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}

	return &DB{db: db, dialect: DialectPostgres, driver: "postgres"}, nil
}

var postgresSchema = []string{
	`CREATE TABLE IF NOT EXISTS members (
		id BIGSERIAL PRIMARY KEY,
		first_name TEXT NOT NULL,
		last_name TEXT NOT NULL,
		email TEXT NOT NULL UNIQUE,
		goal TEXT,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE TABLE IF NOT EXISTS goals (
		id BIGSERIAL PRIMARY KEY,
		title TEXT NOT NULL UNIQUE
	)`,
	`CREATE TABLE IF NOT EXISTS session_types (
		id BIGSERIAL PRIMARY KEY,
		name TEXT NOT NULL UNIQUE,
		duration_minutes INTEGER NOT NULL,
		description TEXT NOT NULL DEFAULT ''
	)`,
	`CREATE TABLE IF NOT EXISTS sessions (
		id BIGSERIAL PRIMARY KEY,
		start_date TIMESTAMPTZ NOT NULL,
		end_date TIMESTAMPTZ NOT NULL,
		session_type_id BIGINT NOT NULL REFERENCES session_types(id),
		CHECK (end_date > start_date)
	)`,
	`CREATE TABLE IF NOT EXISTS member_goals (
		member_id BIGINT NOT NULL REFERENCES members(id),
		goal_id BIGINT NOT NULL REFERENCES goals(id),
		PRIMARY KEY (member_id, goal_id)
	)`,
	`CREATE TABLE IF NOT EXISTS member_sessions (
		member_id BIGINT NOT NULL REFERENCES members(id),
		session_id BIGINT NOT NULL REFERENCES sessions(id),
		PRIMARY KEY (member_id, session_id)
	)`,
	`CREATE INDEX IF NOT EXISTS idx_member_goals_goal ON member_goals(goal_id)`,
	`CREATE INDEX IF NOT EXISTS idx_member_sessions_session ON member_sessions(session_id)`,
	`CREATE TABLE IF NOT EXISTS schema_version (
		version INTEGER PRIMARY KEY,
		applied_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
}

func isPostgresUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	return false
}
