package database

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// Migrator applies the embedded Postgres schema migrations.
type Migrator struct {
	m *migrate.Migrate
}

// MigrationStatus is the schema version currently recorded in the database.
type MigrationStatus struct {
	Version uint
	Dirty   bool
}

func NewMigrator(db *sql.DB) (*Migrator, error) {
	driver, err := postgres.WithInstance(db, &postgres.Config{})
	if err != nil {
		return nil, fmt.Errorf("create postgres driver: %w", err)
	}

	source, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return nil, fmt.Errorf("create migration source: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", source, "postgres", driver)
	if err != nil {
		return nil, fmt.Errorf("create migrator: %w", err)
	}

	return &Migrator{m: m}, nil
}

// Up runs all pending migrations. Being already up to date is not an error.
func (m *Migrator) Up() error {
	err := m.m.Up()
	if errors.Is(err, migrate.ErrNoChange) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("run migrations: %w", err)
	}
	return nil
}

// Down rolls back the last migration
func (m *Migrator) Down() error {
	if err := m.m.Steps(-1); err != nil {
		return fmt.Errorf("rollback migration: %w", err)
	}
	return nil
}

func (m *Migrator) Status() (MigrationStatus, error) {
	version, dirty, err := m.m.Version()
	if errors.Is(err, migrate.ErrNilVersion) {
		return MigrationStatus{}, nil
	}
	if err != nil {
		return MigrationStatus{}, fmt.Errorf("get version: %w", err)
	}
	return MigrationStatus{Version: version, Dirty: dirty}, nil
}

// Force sets the migration version without running migrations. Used to clear
// a dirty state after a failed migration was fixed by hand.
func (m *Migrator) Force(version int) error {
	if err := m.m.Force(version); err != nil {
		return fmt.Errorf("force version: %w", err)
	}
	return nil
}

func (m *Migrator) Close() error {
	srcErr, dbErr := m.m.Close()
	return errors.Join(srcErr, dbErr)
}

// MigrateUp opens a short-lived connection to dsn, applies pending migrations
// and reports the resulting version.
func MigrateUp(ctx context.Context, dsn string) (MigrationStatus, error) {
	db, err := OpenSQL(ctx, dsn)
	if err != nil {
		return MigrationStatus{}, err
	}
	defer func() { _ = db.Close() }()

	m, err := NewMigrator(db)
	if err != nil {
		return MigrationStatus{}, err
	}
	defer func() { _ = m.Close() }()

	if err := m.Up(); err != nil {
		return MigrationStatus{}, err
	}
	return m.Status()
}
