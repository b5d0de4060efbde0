package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/ha1tch/meditactive/pkg/storage"
)

const Version = "0.3.0"

// Config holds application configuration
type Config struct {
	// Server configuration
	Host string
	Port int

	// Database configuration
	DBDriver          string // "sqlite" or "postgres"
	DBPath            string // SQLite database path
	DBDSN             string // Postgres connection string
	DBMaxOpenConns    int
	DBMaxIdleConns    int
	DBConnMaxLifetime int // seconds
	DBBusyTimeout     int // milliseconds

	// Read cache configuration
	CacheType string // "memory" or "redis"
	CacheTTL  int    // seconds
	CacheSize int
	RedisHost string
	RedisPort int

	// Catalog resolver cache
	CatalogCacheSize int
	CatalogCacheTTL  int // seconds

	MetricsEnabled bool

	// Input validation on the HTTP surface
	ValidationEnabled bool

	// Debug
	Debug bool
}

// Default returns the default configuration
func Default() *Config {
	return &Config{
		Host:              "0.0.0.0",
		Port:              9090,
		DBDriver:          "sqlite",
		DBPath:            "meditactive.db",
		DBMaxOpenConns:    10,
		DBMaxIdleConns:    5,
		DBConnMaxLifetime: 1800,
		DBBusyTimeout:     5000,
		CacheType:         "memory",
		CacheTTL:          300,
		CacheSize:         1024,
		RedisHost:         "localhost",
		RedisPort:         6379,
		CatalogCacheSize:  256,
		CatalogCacheTTL:   600,
		MetricsEnabled:    true,
		ValidationEnabled: true,
		Debug:             false,
	}
}

// LoadDotEnv reads KEY=value pairs from the given files into the process
// environment without overriding variables that are already set. Missing
// files are ignored.
func LoadDotEnv(files ...string) error {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, f := range files {
		if _, err := os.Stat(f); os.IsNotExist(err) {
			continue
		}
		if err := godotenv.Load(f); err != nil {
			return fmt.Errorf("failed to load %s: %w", f, err)
		}
	}
	return nil
}

// LoadFromEnv loads configuration from environment variables
func LoadFromEnv(cfg *Config) {
	if val := os.Getenv("HOST"); val != "" {
		cfg.Host = val
	}
	setInt("PORT", &cfg.Port)
	if val := os.Getenv("DB_DRIVER"); val != "" {
		cfg.DBDriver = strings.ToLower(val)
	}
	if val := os.Getenv("DB_PATH"); val != "" {
		cfg.DBPath = val
	}
	if val := os.Getenv("DB_DSN"); val != "" {
		cfg.DBDSN = val
	}
	setInt("DB_MAX_OPEN_CONNS", &cfg.DBMaxOpenConns)
	setInt("DB_MAX_IDLE_CONNS", &cfg.DBMaxIdleConns)
	setInt("DB_CONN_MAX_LIFETIME", &cfg.DBConnMaxLifetime)
	setInt("DB_BUSY_TIMEOUT", &cfg.DBBusyTimeout)
	if val := os.Getenv("CACHE_TYPE"); val != "" {
		cfg.CacheType = strings.ToLower(val)
	}
	setInt("CACHE_TTL", &cfg.CacheTTL)
	setInt("CACHE_SIZE", &cfg.CacheSize)
	if val := os.Getenv("REDIS_HOST"); val != "" {
		cfg.RedisHost = val
	}
	setInt("REDIS_PORT", &cfg.RedisPort)
	setInt("CATALOG_CACHE_SIZE", &cfg.CatalogCacheSize)
	setInt("CATALOG_CACHE_TTL", &cfg.CatalogCacheTTL)
	if val := os.Getenv("METRICS_ENABLED"); val != "" {
		cfg.MetricsEnabled = parseBool(val)
	}
	if val := os.Getenv("VALIDATION_ENABLED"); val != "" {
		cfg.ValidationEnabled = parseBool(val)
	}
	if val := os.Getenv("DEBUG"); val != "" {
		cfg.Debug = parseBool(val)
	}
}

// Validate checks values that would otherwise fail late at startup
func (c *Config) Validate() error {
	switch c.DBDriver {
	case "sqlite", "postgres":
	default:
		return fmt.Errorf("unsupported DB_DRIVER %q", c.DBDriver)
	}
	switch c.CacheType {
	case "memory", "redis":
	default:
		return fmt.Errorf("unsupported CACHE_TYPE %q", c.CacheType)
	}
	if c.DBMaxOpenConns <= 0 {
		return fmt.Errorf("DB_MAX_OPEN_CONNS must be positive, got %d", c.DBMaxOpenConns)
	}
	if c.CacheType == "memory" && c.CacheSize <= 0 {
		return fmt.Errorf("CACHE_SIZE must be positive, got %d", c.CacheSize)
	}
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("invalid PORT %d", c.Port)
	}
	return nil
}

// StorageConfig maps the database settings onto storage.Config
func (c *Config) StorageConfig() storage.Config {
	sc := storage.DefaultConfig()
	sc.Driver = c.DBDriver
	sc.Path = c.DBPath
	sc.DSN = c.DBDSN
	sc.MaxOpenConns = c.DBMaxOpenConns
	sc.MaxIdleConns = c.DBMaxIdleConns
	sc.ConnMaxLifetime = time.Duration(c.DBConnMaxLifetime) * time.Second
	sc.BusyTimeout = c.DBBusyTimeout
	return sc
}

func setInt(key string, dst *int) {
	if val := os.Getenv(key); val != "" {
		if n, err := strconv.Atoi(val); err == nil {
			*dst = n
		}
	}
}

func parseBool(val string) bool {
	val = strings.ToLower(val)
	return val == "true" || val == "1" || val == "yes"
}
