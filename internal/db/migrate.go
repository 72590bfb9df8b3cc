package db

import (
	"embed"
	"errors"
	"fmt"
	"log"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// RunMigrations brings the schema up to the latest embedded migration.
func RunMigrations(dsn string, logger *log.Logger) error {
	return withMigrator(dsn, logger, func(m *migrate.Migrate) error {
		return m.Up()
	})
}

// RollbackMigrations reverts the given number of applied migrations.
func RollbackMigrations(dsn string, steps int, logger *log.Logger) error {
	if steps < 1 {
		return fmt.Errorf("rollback steps must be positive, got %d", steps)
	}
	return withMigrator(dsn, logger, func(m *migrate.Migrate) error {
		return m.Steps(-steps)
	})
}

func withMigrator(dsn string, logger *log.Logger, apply func(*migrate.Migrate) error) error {
	conn, err := openDB(dsn)
	if err != nil {
		return fmt.Errorf("open db for migrations: %w", err)
	}
	defer conn.Close()

	src, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("load embedded migrations: %w", err)
	}
	driver, err := postgres.WithInstance(conn, &postgres.Config{})
	if err != nil {
		return fmt.Errorf("postgres migration driver: %w", err)
	}
	m, err := migrate.NewWithInstance("iofs", src, "postgres", driver)
	if err != nil {
		return fmt.Errorf("init migrator: %w", err)
	}

	if err := apply(m); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("apply migrations: %w", err)
	}

	switch version, dirty, err := m.Version(); {
	case errors.Is(err, migrate.ErrNilVersion):
		logger.Printf("migrations: schema empty")
	case err != nil:
		logger.Printf("migrations: read version: %v", err)
	case dirty:
		logger.Printf("migrations: version %d is dirty, fix it by hand before the next run", version)
	default:
		logger.Printf("migrations: schema at version %d", version)
	}
	return nil
}
