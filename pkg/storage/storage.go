package storage

import (
	"context"
	"database/sql"
	"errors"
	"strconv"
	"strings"
)

var (
	// ErrNotFound is returned when a member does not exist
	ErrNotFound = errors.New("member not found")
	// ErrDuplicateIdentity is returned when the email is already taken by another member
	ErrDuplicateIdentity = errors.New("email already exists")
	// ErrUnknownDriver is returned by Open for an unregistered driver name
	ErrUnknownDriver = errors.New("unknown database driver")
)

// Dialect selects placeholder style and schema flavour
type Dialect int

const (
	DialectSQLite Dialect = iota
	DialectPostgres
)

func (d Dialect) String() string {
	switch d {
	case DialectPostgres:
		return "postgres"
	default:
		return "sqlite"
	}
}

// Handle is the statement surface shared by *DB and *Tx. Queries are written
// with '?' placeholders and rebound for the dialect.
type Handle interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
}

// StoreInfo provides metadata about the open database
type StoreInfo struct {
	Driver       string
	Dialect      string
	MaxOpenConns int
}

// DB wraps a pooled *sql.DB with its dialect
type DB struct {
	db      *sql.DB
	dialect Dialect
	driver  string
}

// Wrap adapts an existing *sql.DB. Used by tests with sqlmock.
func Wrap(db *sql.DB, dialect Dialect) *DB {
	return &DB{db: db, dialect: dialect, driver: dialect.String()}
}

// SQL returns the underlying pool
func (d *DB) SQL() *sql.DB { return d.db }

// Dialect returns the SQL dialect of the pool
func (d *DB) Dialect() Dialect { return d.dialect }

// Info returns store information
func (d *DB) Info() StoreInfo {
	return StoreInfo{
		Driver:       d.driver,
		Dialect:      d.dialect.String(),
		MaxOpenConns: d.db.Stats().MaxOpenConnections,
	}
}

// Ping verifies the connection
func (d *DB) Ping(ctx context.Context) error {
	return d.db.PingContext(ctx)
}

// Close closes the pool
func (d *DB) Close() error {
	return d.db.Close()
}

func (d *DB) ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error) {
	return d.db.ExecContext(ctx, rebind(d.dialect, query), args...)
}

func (d *DB) QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error) {
	return d.db.QueryContext(ctx, rebind(d.dialect, query), args...)
}

func (d *DB) QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row {
	return d.db.QueryRowContext(ctx, rebind(d.dialect, query), args...)
}

// Tx is a transactional Handle
type Tx struct {
	tx      *sql.Tx
	dialect Dialect
}

func (t *Tx) ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error) {
	return t.tx.ExecContext(ctx, rebind(t.dialect, query), args...)
}

func (t *Tx) QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error) {
	return t.tx.QueryContext(ctx, rebind(t.dialect, query), args...)
}

func (t *Tx) QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row {
	return t.tx.QueryRowContext(ctx, rebind(t.dialect, query), args...)
}

// Commit commits the transaction
func (t *Tx) Commit() error { return t.tx.Commit() }

// Rollback aborts the transaction
func (t *Tx) Rollback() error { return t.tx.Rollback() }

// InsertID runs an INSERT and returns the generated id. Both SQLite and
// Postgres support RETURNING, so one statement shape serves both.
func InsertID(ctx context.Context, h Handle, query string, args ...interface{}) (int64, error) {
	var id int64
	if err := h.QueryRowContext(ctx, query+" RETURNING id", args...).Scan(&id); err != nil {
		return 0, err
	}
	return id, nil
}

// rebind turns '?' placeholders into $n for Postgres
func rebind(dialect Dialect, query string) string {
	if dialect != DialectPostgres || !strings.Contains(query, "?") {
		return query
	}

	var b strings.Builder
	b.Grow(len(query) + 8)
	n := 0
	for i := 0; i < len(query); i++ {
		if query[i] == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteByte(query[i])
	}
	return b.String()
}
