// Package dbopen opens SQLite databases with the pragmas the ingestion
// pipeline relies on (WAL, foreign keys, busy timeout) and provides
// busy-aware execution helpers built on the retry executor.
package dbopen

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	_ "modernc.org/sqlite"
)

type config struct {
	driver      string
	busyTimeout time.Duration
	synchronous string
	foreignKeys bool
	mkdirAll    bool
	schema      string
	ping        bool
}

func (c *config) defaults() {
	if c.driver == "" {
		c.driver = "sqlite"
	}
	if c.busyTimeout == 0 {
		c.busyTimeout = 10 * time.Second
	}
	if c.synchronous == "" {
		c.synchronous = "NORMAL"
	}
}

// Option customises Open.
type Option func(*config)

// WithDriver overrides the sql driver name. The default is modernc's
// pure-Go "sqlite".
func WithDriver(name string) Option {
	return func(c *config) { c.driver = name }
}

// WithBusyTimeout sets PRAGMA busy_timeout.
func WithBusyTimeout(d time.Duration) Option {
	return func(c *config) { c.busyTimeout = d }
}

// WithSynchronous sets PRAGMA synchronous (OFF, NORMAL, FULL).
func WithSynchronous(mode string) Option {
	return func(c *config) { c.synchronous = mode }
}

// WithoutForeignKeys disables PRAGMA foreign_keys.
func WithoutForeignKeys() Option {
	return func(c *config) { c.foreignKeys = false }
}

// WithMkdirAll creates the parent directory of the database file before
// opening it.
func WithMkdirAll() Option {
	return func(c *config) { c.mkdirAll = true }
}

// WithSchema executes the given SQL after the pragmas are applied.
// Schemas should be idempotent (CREATE TABLE IF NOT EXISTS).
func WithSchema(ddl string) Option {
	return func(c *config) { c.schema = ddl }
}

// WithoutPing skips the connectivity check after opening.
func WithoutPing() Option {
	return func(c *config) { c.ping = false }
}

// Open opens the SQLite database at path, applies the standard pragmas
// and optionally executes a schema. The caller owns the returned handle.
func Open(ctx context.Context, path string, opts ...Option) (*sql.DB, error) {
	cfg := config{foreignKeys: true, ping: true}
	for _, opt := range opts {
		opt(&cfg)
	}
	cfg.defaults()

	if cfg.mkdirAll {
		if dir := filepath.Dir(path); dir != "" && dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, fmt.Errorf("dbopen: mkdir %s: %w", dir, err)
			}
		}
	}

	db, err := sql.Open(cfg.driver, path)
	if err != nil {
		return nil, fmt.Errorf("dbopen: open %s: %w", path, err)
	}

	if err := applyPragmas(ctx, db, &cfg); err != nil {
		db.Close()
		return nil, err
	}

	if cfg.schema != "" {
		if _, err := db.ExecContext(ctx, cfg.schema); err != nil {
			db.Close()
			return nil, fmt.Errorf("dbopen: apply schema: %w", err)
		}
	}

	if cfg.ping {
		if err := db.PingContext(ctx); err != nil {
			db.Close()
			return nil, fmt.Errorf("dbopen: ping %s: %w", path, err)
		}
	}

	return db, nil
}

// OpenMemory opens an in-memory database for tests. The connection pool
// is pinned to one connection so every statement sees the same memory
// database, and the handle is closed when the test ends.
func OpenMemory(t testing.TB, opts ...Option) *sql.DB {
	t.Helper()
	db, err := Open(context.Background(), ":memory:", opts...)
	if err != nil {
		t.Fatalf("dbopen: open memory database: %v", err)
	}
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { db.Close() })
	return db
}

func applyPragmas(ctx context.Context, db *sql.DB, cfg *config) error {
	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		fmt.Sprintf("PRAGMA busy_timeout=%d", cfg.busyTimeout.Milliseconds()),
		fmt.Sprintf("PRAGMA synchronous=%s", cfg.synchronous),
	}
	if cfg.foreignKeys {
		pragmas = append(pragmas, "PRAGMA foreign_keys=ON")
	}
	for _, p := range pragmas {
		if _, err := db.ExecContext(ctx, p); err != nil {
			return fmt.Errorf("dbopen: %s: %w", p, err)
		}
	}
	return nil
}
