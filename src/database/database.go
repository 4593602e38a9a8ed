// src/database/database.go
package database

import (
	"database/sql"
	"errors"
	"fmt"
	"io/fs"
	stdlog "log"
	"path/filepath"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/kaibayosung/ohsung-system/src/logger"
	_ "modernc.org/sqlite"
)

var DB *sql.DB

func InitDB(databasePath string) {
	db, err := OpenSQLite(databasePath)
	if err != nil {
		stdlog.Fatalf("%v", err)
	}
	DB = db
	logger.L.Info("Database connection established with WAL mode, busy_timeout, and foreign_keys enabled.")
}

// OpenSQLite opens and pings a SQLite database with the pragmas the app relies on.
func OpenSQLite(databasePath string) (*sql.DB, error) {
	dsn := fmt.Sprintf("%s?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=foreign_keys(on)", databasePath)

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database at %s: %w", databasePath, err)
	}

	// Limit open connections to 1 for SQLite to avoid locking issues
	db.SetMaxOpenConns(1)

	if err = db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	return db, nil
}

// RunMigrations applies the migrations in migrationsFS, or the ones under
// migrationsPath when it is set.
func RunMigrations(db *sql.DB, databasePath string, migrationsFS fs.FS, migrationsPath string) error {
	if db == nil {
		return errors.New("database connection is not initialized before running migrations")
	}

	driver, err := sqlite.WithInstance(db, &sqlite.Config{})
	if err != nil {
		return fmt.Errorf("could not create sqlite migration driver: %w", err)
	}

	var m *migrate.Migrate
	if migrationsPath != "" {
		abs, absErr := filepath.Abs(migrationsPath)
		if absErr != nil {
			return fmt.Errorf("resolving migrations path: %w", absErr)
		}
		sourceURL := "file://" + filepath.ToSlash(abs)
		logger.L.Info("Applying database migrations...", "source", sourceURL)
		m, err = migrate.NewWithDatabaseInstance(sourceURL, databasePath, driver)
	} else {
		var src source.Driver
		src, err = iofs.New(migrationsFS, "migrations")
		if err != nil {
			return fmt.Errorf("opening embedded migrations: %w", err)
		}
		logger.L.Info("Applying database migrations...", "source", "embedded")
		m, err = migrate.NewWithInstance("iofs", src, databasePath, driver)
	}
	if err != nil {
		return fmt.Errorf("migration instance creation failed: %w", err)
	}

	if err := m.Up(); err != nil {
		if errors.Is(err, migrate.ErrNoChange) {
			logger.L.Info("No new database migrations to apply.")
			return nil
		}
		return fmt.Errorf("failed to apply migrations: %w", err)
	}
	logger.L.Info("Database migrations applied successfully.")
	return nil
}
