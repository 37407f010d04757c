package db

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"planforge/core"
)

// Database is the persistence organism for the pipeline. It composes the
// WAL-mode SQLite connection, the migration runner, and graceful shutdown.
// Repositories take the underlying connection via DB().
//
// Usage:
//
//	database, err := db.New(cfg)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer database.Close()
//
//	repo := db.NewRepository(database.DB(), nil, logger)
type Database struct {
	db             *sql.DB
	path           string
	migrationsPath string
	mu             sync.RWMutex
}

// New opens the database at cfg.DatabasePath with default settings and the
// default migrations path. Failures are reported as configuration errors so
// startup validation can surface the actionable message.
func New(cfg *core.Config) (*Database, error) {
	database, err := NewDatabase(cfg.DatabasePath, DefaultMigrationsPath)
	if err != nil {
		return nil, core.ErrDatabaseUnwritable(cfg.DatabasePath, err.Error())
	}
	return database, nil
}

// NewDatabase opens (creating if necessary) the database file at path.
// The parent directory is created if it does not exist. Migrations are not
// applied automatically; call Migrate.
func NewDatabase(path, migrationsPath string) (*Database, error) {
	if path == "" {
		return nil, fmt.Errorf("database path is required")
	}

	dir := filepath.Dir(path)
	if dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create database directory %s: %w", dir, err)
		}
	}

	conn, err := NewConnectionWithDefaults(path)
	if err != nil {
		return nil, fmt.Errorf("failed to create database connection: %w", err)
	}

	if migrationsPath == "" {
		migrationsPath = DefaultMigrationsPath
	}

	return &Database{
		db:             conn,
		path:           path,
		migrationsPath: migrationsPath,
	}, nil
}

// Migrate applies all pending schema migrations. Safe to call repeatedly.
//
// golang-migrate takes ownership of whatever connection it is handed, so
// migrations run over a separate short-lived connection rather than the
// pooled one.
func (d *Database) Migrate() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if err := MigrateUpFromPath(d.path, d.migrationsPath); err != nil {
		return fmt.Errorf("migration failed: %w", err)
	}
	return nil
}

// DB returns the underlying sql.DB for use by repositories. Do not close it
// directly; use Database.Close.
func (d *Database) DB() *sql.DB {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.db
}

// Path returns the database file path.
func (d *Database) Path() string {
	return d.path
}

// Ping verifies the connection is alive. Useful for health checks.
func (d *Database) Ping() error {
	d.mu.RLock()
	defer d.mu.RUnlock()

	if d.db == nil {
		return fmt.Errorf("database connection is closed")
	}
	return d.db.Ping()
}

// Close closes the database connection. The Database must not be used
// afterwards.
func (d *Database) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.db == nil {
		return nil
	}
	if err := d.db.Close(); err != nil {
		return fmt.Errorf("failed to close database: %w", err)
	}
	d.db = nil
	return nil
}
