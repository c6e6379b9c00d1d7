// Package migrate applies the embedded schema migrations using golang-migrate.
package migrate

import (
	"embed"
	"errors"
	"fmt"
	"strings"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source"
	"github.com/golang-migrate/migrate/v4/source/iofs"
)

//go:embed migrations/*.sql
var files embed.FS

// ErrNoChange is returned when there is nothing to apply or roll back.
var ErrNoChange = migrate.ErrNoChange

// Source returns the embedded migration source.
func Source() (source.Driver, error) {
	d, err := iofs.New(files, "migrations")
	if err != nil {
		return nil, fmt.Errorf("migrate source: %w", err)
	}
	return d, nil
}

// Runner applies migrations to one database.
type Runner struct {
	m *migrate.Migrate
}

// New opens a Runner for dsn. golang-migrate selects the driver from the URL
// scheme, so postgres:// and postgresql:// both work.
func New(dsn string) (*Runner, error) {
	dsn = strings.TrimSpace(dsn)
	if dsn == "" {
		return nil, errors.New("migrate: DATABASE_URL is not set")
	}
	src, err := Source()
	if err != nil {
		return nil, err
	}
	m, err := migrate.NewWithSourceInstance("iofs", src, dsn)
	if err != nil {
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return &Runner{m: m}, nil
}

// Up applies all pending migrations. Already being current is not an error.
func (r *Runner) Up() error {
	if err := r.m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return err
	}
	return nil
}

// Down rolls back the most recent migration.
func (r *Runner) Down() error {
	return r.m.Steps(-1)
}

// Version reports the applied version and whether the last run left it dirty.
// A database with no migrations applied reports version 0.
func (r *Runner) Version() (uint, bool, error) {
	v, dirty, err := r.m.Version()
	if errors.Is(err, migrate.ErrNilVersion) {
		return 0, false, nil
	}
	return v, dirty, err
}

// Close releases the source and database handles.
func (r *Runner) Close() error {
	srcErr, dbErr := r.m.Close()
	return errors.Join(srcErr, dbErr)
}
