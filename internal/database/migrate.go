package database

import (
	"embed"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/pgx/v5"
	"github.com/golang-migrate/migrate/v4/source/iofs"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// RunMigrations applies any pending schema migrations.
func RunMigrations(connString string) error {
	d, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("create iofs source: %w", err)
	}

	m, err := migrate.NewWithSourceInstance("iofs", d, "pgx5://"+trimScheme(connString))
	if err != nil {
		return fmt.Errorf("create migrate instance: %w", err)
	}
	defer m.Close()

	if err := m.Up(); err != nil && err != migrate.ErrNoChange {
		return fmt.Errorf("run migrations: %w", err)
	}

	return nil
}

// trimScheme strips the postgres:// or postgresql:// prefix so the URL can
// be re-addressed to the migrate pgx5 driver.
func trimScheme(connString string) string {
	for _, prefix := range []string{"postgres://", "postgresql://"} {
		if len(connString) > len(prefix) && connString[:len(prefix)] == prefix {
			return connString[len(prefix):]
		}
	}
	return connString
}
