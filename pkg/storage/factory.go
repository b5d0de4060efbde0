package storage

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"
)

// Config holds connection and pool settings
type Config struct {
	Driver          string // "sqlite" or "postgres"
	Path            string // SQLite database file
	DSN             string // Postgres connection string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	BusyTimeout     int // SQLite, milliseconds
	EnableWAL       bool
}

// DefaultConfig mirrors the original service's pool of ten connections
func DefaultConfig() Config {
	return Config{
		Driver:          "sqlite",
		Path:            "meditactive.db",
		MaxOpenConns:    10,
		MaxIdleConns:    5,
		ConnMaxLifetime: 30 * time.Minute,
		BusyTimeout:     5000,
		EnableWAL:       true,
	}
}

// OpenFunc opens a database for a registered driver
type OpenFunc func(cfg Config) (*DB, error)

var (
	driverMu       sync.RWMutex
	driverRegistry = make(map[string]OpenFunc)
)

// RegisterDriver registers a new database driver
func RegisterDriver(name string, open OpenFunc) {
	driverMu.Lock()
	defer driverMu.Unlock()
	driverRegistry[name] = open
}

// Open opens a pooled database by driver name and applies pool limits.
// Callers beyond MaxOpenConns wait for a free connection.
func Open(cfg Config) (*DB, error) {
	driverMu.RLock()
	open, exists := driverRegistry[cfg.Driver]
	driverMu.RUnlock()

	if !exists {
		return nil, fmt.Errorf("%w: %s", ErrUnknownDriver, cfg.Driver)
	}

	db, err := open(cfg)
	if err != nil {
		return nil, err
	}

	if cfg.MaxOpenConns > 0 {
		db.db.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns > 0 {
		db.db.SetMaxIdleConns(cfg.MaxIdleConns)
	}
	if cfg.ConnMaxLifetime > 0 {
		db.db.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := db.Ping(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping %s: %w", cfg.Driver, err)
	}

	return db, nil
}

// ListDrivers returns all registered driver names
func ListDrivers() []string {
	driverMu.RLock()
	defer driverMu.RUnlock()

	names := make([]string, 0, len(driverRegistry))
	for name := range driverRegistry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func init() {
	RegisterDriver("sqlite", openSQLite)
	RegisterDriver("postgres", openPostgres)
}
