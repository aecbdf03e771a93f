// Package sqlite provides a SQLite-backed implementation of the task and
// thought persistence facade.
package sqlite

import (
	"database/sql"
	"fmt"
	"time"

	// Registers the sqlite3 driver.
	_ "github.com/mattn/go-sqlite3"
)

// Config configures the SQLite store.
type Config struct {
	// Path is the database file path. Use ":memory:" for an in-process
	// database.
	Path string

	// AutoMigrate creates the schema on open.
	AutoMigrate bool

	// BusyTimeout is how long a locked database blocks a statement.
	BusyTimeout time.Duration
}

// DefaultConfig returns a configuration with sensible defaults.
func DefaultConfig(path string) Config {
	return Config{
		Path:        path,
		AutoMigrate: true,
		BusyTimeout: 5 * time.Second,
	}
}

// Option customizes the configuration.
type Option func(*Config)

// WithAutoMigrate enables or disables schema creation on open.
func WithAutoMigrate(enabled bool) Option {
	return func(c *Config) {
		c.AutoMigrate = enabled
	}
}

// WithBusyTimeout sets the busy timeout.
func WithBusyTimeout(d time.Duration) Option {
	return func(c *Config) {
		c.BusyTimeout = d
	}
}

// openDB opens the database with WAL and foreign keys enabled.
func openDB(cfg Config) (*sql.DB, error) {
	dsn := fmt.Sprintf("file:%s?_busy_timeout=%d&_journal_mode=WAL&_foreign_keys=on",
		cfg.Path, cfg.BusyTimeout.Milliseconds())
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	return db, nil
}
