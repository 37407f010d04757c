package db

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/sqlite"
	_ "github.com/golang-migrate/migrate/v4/source/file" // file:// source driver
)

// DefaultMigrationsPath is where the schema migrations live relative to the
// working directory, in golang-migrate's file:// URL format.
const DefaultMigrationsPath = "file://db/migrations"

// MigrateUp applies all pending up migrations.
// A database that is already current is not an error.
//
// The migrator takes ownership of the connection and closes it when done;
// do not use db after this call. Prefer MigrateUpFromPath, which manages
// its own connection.
func MigrateUp(db *sql.DB, migrationsPath string) error {
	m, err := newMigrator(db, migrationsPath)
	if err != nil {
		return fmt.Errorf("failed to create migrator: %w", err)
	}
	defer m.Close()

	if err := m.Up(); err != nil {
		if errors.Is(err, migrate.ErrNoChange) {
			return nil
		}
		return fmt.Errorf("failed to apply migrations: %w", err)
	}
	return nil
}

// MigrateUpFromPath applies all pending migrations against the database at
// dbPath using a dedicated connection.
func MigrateUpFromPath(dbPath, migrationsPath string) error {
	db, err := NewConnectionWithDefaults(dbPath)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	// MigrateUp closes the connection via the migrator.
	return MigrateUp(db, migrationsPath)
}

// MigrateDownFromPath rolls back migrations by the given number of steps.
// Pass -1 to roll back everything. A database with nothing to roll back is
// not an error.
func MigrateDownFromPath(dbPath, migrationsPath string, steps int) error {
	db, err := NewConnectionWithDefaults(dbPath)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}

	m, err := newMigrator(db, migrationsPath)
	if err != nil {
		return fmt.Errorf("failed to create migrator: %w", err)
	}
	defer m.Close()

	var migrateErr error
	if steps == -1 {
		migrateErr = m.Down()
	} else {
		migrateErr = m.Steps(-steps)
	}
	if migrateErr != nil {
		if errors.Is(migrateErr, migrate.ErrNoChange) {
			return nil
		}
		return fmt.Errorf("failed to roll back migrations: %w", migrateErr)
	}
	return nil
}

// MigrationVersionFromPath returns the current migration version and dirty
// state. Version 0 with dirty=false means no migrations have been applied.
// A dirty database means a migration failed partway and needs manual repair.
func MigrationVersionFromPath(dbPath, migrationsPath string) (uint, bool, error) {
	db, err := NewConnectionWithDefaults(dbPath)
	if err != nil {
		return 0, false, fmt.Errorf("failed to open database: %w", err)
	}

	m, err := newMigrator(db, migrationsPath)
	if err != nil {
		return 0, false, fmt.Errorf("failed to create migrator: %w", err)
	}
	defer m.Close()

	version, dirty, err := m.Version()
	if err != nil {
		if errors.Is(err, migrate.ErrNilVersion) {
			return 0, false, nil
		}
		return 0, false, fmt.Errorf("failed to get migration version: %w", err)
	}
	return version, dirty, nil
}

// newMigrator builds a migrate.Migrate over the given connection.
// The migrator owns the connection; migrator.Close() closes it too.
func newMigrator(db *sql.DB, migrationsPath string) (*migrate.Migrate, error) {
	if db == nil {
		return nil, errors.New("database connection is required")
	}
	if migrationsPath == "" {
		return nil, errors.New("migrations path is required")
	}

	driver, err := sqlite.WithInstance(db, &sqlite.Config{DatabaseName: "main"})
	if err != nil {
		return nil, fmt.Errorf("failed to create sqlite driver: %w", err)
	}

	m, err := migrate.NewWithDatabaseInstance(migrationsPath, "sqlite", driver)
	if err != nil {
		return nil, fmt.Errorf("failed to create migrate instance: %w", err)
	}
	return m, nil
}
