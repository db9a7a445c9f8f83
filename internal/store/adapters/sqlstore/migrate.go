package sqlstore

import (
	"embed"
	"errors"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database"
	migratemysql "github.com/golang-migrate/migrate/v4/database/mysql"
	migratesqlite "github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"
)

//go:embed migrations
var migrationsFS embed.FS

// MigrateUp applies every pending migration. Running it on an up-to-date
// database is a no-op.
func (s *Store) MigrateUp() error {
	return s.migrate(func(m *migrate.Migrate) error { return m.Up() })
}

// MigrateDown reverts every applied migration.
func (s *Store) MigrateDown() error {
	return s.migrate(func(m *migrate.Migrate) error { return m.Down() })
}

// MigrationVersion reports the applied version and whether it is dirty.
func (s *Store) MigrationVersion() (uint, bool, error) {
	var (
		version uint
		dirty   bool
	)
	err := s.migrate(func(m *migrate.Migrate) error {
		var err error
		version, dirty, err = m.Version()
		if errors.Is(err, migrate.ErrNilVersion) {
			return nil
		}
		return err
	})
	return version, dirty, err
}

func (s *Store) migrate(run func(m *migrate.Migrate) error) error {
	src, err := iofs.New(migrationsFS, "migrations/"+s.driver)
	if err != nil {
		return fmt.Errorf("sqlstore: load migrations: %w", err)
	}
	defer src.Close()

	var drv database.Driver
	switch s.driver {
	case DriverSQLite:
		drv, err = migratesqlite.WithInstance(s.db.DB, &migratesqlite.Config{})
	case DriverMySQL:
		drv, err = migratemysql.WithInstance(s.db.DB, &migratemysql.Config{})
	}
	if err != nil {
		return fmt.Errorf("sqlstore: migrate driver: %w", err)
	}

	// m is not closed: closing it would close s.db as well.
	m, err := migrate.NewWithInstance("iofs", src, s.driver, drv)
	if err != nil {
		return fmt.Errorf("sqlstore: migrate: %w", err)
	}
	if err := run(m); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("sqlstore: migrate: %w", err)
	}
	return nil
}
