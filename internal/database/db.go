// Package database provides the SQLite fingerprint registry: connection
// setup, embedded migrations and the data access layer (Store).
package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/jmoiron/sqlx"

	"github.com/edgard/dukhota/migrations"

	_ "modernc.org/sqlite" //revive:disable:blank-imports
)

const (
	// busyTimeout is how long a writer waits for the lock held by another
	// connection (channel post handler vs. scheduled prune) before failing.
	busyTimeout = 5 * time.Second

	// poolSize allows WAL readers alongside the single writer.
	poolSize = 4

	memoryPath = ":memory:"
)

// ErrEmptyPath is returned by NewDB when no database path is configured.
var ErrEmptyPath = errors.New("database path cannot be empty")

// NewDB opens the registry at path, applies the embedded migrations and
// returns the connection pool. File databases run in WAL mode with a busy
// timeout, and write transactions take the lock when they begin.
func NewDB(path string, logger *slog.Logger) (*sqlx.DB, error) {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	log := logger.With("component", "database")

	file := fileName(path)
	if file == "" {
		return nil, ErrEmptyPath
	}

	db, err := sqlx.Open("sqlite", dsn(file))
	if err != nil {
		return nil, fmt.Errorf("failed to open registry database: %w", err)
	}

	// Every in-memory connection is a separate database.
	conns := poolSize
	if file == memoryPath {
		conns = 1
	}
	db.SetMaxOpenConns(conns)
	db.SetMaxIdleConns(conns)

	ctx, cancel := context.WithTimeout(context.Background(), busyTimeout)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		closeQuietly(db, log)
		return nil, fmt.Errorf("failed to connect to registry database: %w", err)
	}

	if err := ApplyMigrations(db.DB, file, log); err != nil {
		closeQuietly(db, log)
		return nil, fmt.Errorf("failed to apply migrations: %w", err)
	}

	mode, timeoutMS, err := journalSettings(ctx, db)
	if err != nil {
		closeQuietly(db, log)
		return nil, err
	}

	log.Info("Registry database ready",
		"path", file,
		"journal_mode", mode,
		"busy_timeout_ms", timeoutMS,
		"max_open_conns", conns)
	return db, nil
}

// CloseDB closes the connection pool. A nil db is ignored.
func CloseDB(db *sqlx.DB, logger *slog.Logger) {
	if db == nil {
		return
	}
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	log := logger.With("component", "database")

	if err := db.Close(); err != nil {
		log.Error("Error closing registry database", "error", err)
		return
	}
	log.Debug("Registry database closed")
}

// ApplyMigrations brings the registry schema up to date from the embedded
// migration files. dbName identifies the database to the migrate driver.
func ApplyMigrations(db *sql.DB, dbName string, logger *slog.Logger) error {
	if db == nil {
		return errors.New("database connection is nil, cannot apply migrations")
	}
	if dbName == "" {
		return errors.New("database name for migration driver is empty")
	}
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	source, err := iofs.New(migrations.FS, ".")
	if err != nil {
		return fmt.Errorf("failed to read embedded migrations: %w", err)
	}

	driver, err := sqlite.WithInstance(db, &sqlite.Config{DatabaseName: dbName})
	if err != nil {
		return fmt.Errorf("failed to create sqlite migration driver: %w", err)
	}

	migrator, err := migrate.NewWithInstance("iofs", source, "sqlite", driver)
	if err != nil {
		return fmt.Errorf("failed to create migrator: %w", err)
	}

	err = migrator.Up()
	switch {
	case errors.Is(err, migrate.ErrNoChange):
		logger.Debug("Registry schema is up to date")
	case err != nil:
		return fmt.Errorf("failed to migrate registry schema: %w", err)
	default:
		version, _, _ := migrator.Version()
		logger.Info("Registry schema migrated", "version", version)
	}
	return nil
}

// dsn appends the connection pragmas understood by modernc.org/sqlite.
func dsn(file string) string {
	params := url.Values{}
	params.Add("_pragma", fmt.Sprintf("busy_timeout(%d)", busyTimeout.Milliseconds()))
	if file != memoryPath {
		params.Add("_pragma", "journal_mode(WAL)")
		params.Add("_pragma", "synchronous(NORMAL)")
	}
	params.Set("_txlock", "immediate")
	return file + "?" + params.Encode()
}

// fileName reduces a configured path, possibly written as a "file:" URI
// with its own query, to the database file name.
func fileName(path string) string {
	path = strings.TrimSpace(strings.TrimPrefix(path, "file:"))
	path, _, _ = strings.Cut(path, "?")

	if decoded, err := url.PathUnescape(path); err == nil {
		return decoded
	}
	return path
}

// journalSettings reads back the pragmas the pool connections run with.
func journalSettings(ctx context.Context, db *sqlx.DB) (string, int, error) {
	var mode string
	if err := db.GetContext(ctx, &mode, "PRAGMA journal_mode;"); err != nil {
		return "", 0, fmt.Errorf("failed to read journal mode: %w", err)
	}
	var timeoutMS int
	if err := db.GetContext(ctx, &timeoutMS, "PRAGMA busy_timeout;"); err != nil {
		return "", 0, fmt.Errorf("failed to read busy timeout: %w", err)
	}
	return strings.ToLower(mode), timeoutMS, nil
}

func closeQuietly(db *sqlx.DB, log *slog.Logger) {
	if err := db.Close(); err != nil {
		log.Error("Error closing registry database after setup failure", "error", err)
	}
}
