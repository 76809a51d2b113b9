package postgres

import (
	"errors"
	"fmt"
	"io/fs"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
)

// newMigrate reads files laid out as NNN_name.up.sql / NNN_name.down.sql
func newMigrate(databaseURL string, files fs.FS) (*migrate.Migrate, error) {
	src, err := iofs.New(files, ".")
	if err != nil {
		return nil, fmt.Errorf("open migration source: %w", err)
	}
	m, err := migrate.NewWithSourceInstance("iofs", src, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to create migrate instance: %w", err)
	}
	return m, nil
}

// MigrateUp applies every pending migration and returns the resulting version
func MigrateUp(databaseURL string, files fs.FS) (uint, error) {
	m, err := newMigrate(databaseURL, files)
	if err != nil {
		return 0, err
	}
	defer m.Close()

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return 0, fmt.Errorf("failed to run migrations: %w", err)
	}
	return version(m)
}

// MigrateDown rolls back steps migrations
func MigrateDown(databaseURL string, files fs.FS, steps int) (uint, error) {
	if steps <= 0 {
		return 0, fmt.Errorf("steps must be greater than 0, got %d", steps)
	}
	m, err := newMigrate(databaseURL, files)
	if err != nil {
		return 0, err
	}
	defer m.Close()

	if err := m.Steps(-steps); err != nil {
		return 0, fmt.Errorf("failed to roll back %d step(s): %w", steps, err)
	}
	return version(m)
}

// MigrationVersion reports the applied version and whether a previous run
// left the schema dirty
func MigrationVersion(databaseURL string, files fs.FS) (uint, bool, error) {
	m, err := newMigrate(databaseURL, files)
	if err != nil {
		return 0, false, err
	}
	defer m.Close()

	v, dirty, err := m.Version()
	if errors.Is(err, migrate.ErrNilVersion) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("failed to get migration version: %w", err)
	}
	return v, dirty, nil
}

func version(m *migrate.Migrate) (uint, error) {
	v, _, err := m.Version()
	if errors.Is(err, migrate.ErrNilVersion) {
		return 0, nil
	}
	return v, err
}
