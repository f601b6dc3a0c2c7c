// Package sqlite opens the process-wide SQLite database shared by the
// account, session and item repositories.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"time"

	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"github.com/mkrupp/wardrobe/internal/domain"
	"github.com/mkrupp/wardrobe/internal/infra/logging"
)

// Config holds configuration for the SQLite database.
type Config struct {
	// Path is the filesystem path to the SQLite database file
	Path string `env:"PATH" default:"var/storage/wardrobe.db"`

	// BusyTimeout is how long a statement waits for a locked database
	BusyTimeout time.Duration `env:"BUSY_TIMEOUT" default:"5s"`
}

// DSN returns the data source name for cfg. Pragmas are part of the DSN so
// the driver applies them to every connection it opens, not just the first.
func DSN(cfg Config) string {
	query := url.Values{"_pragma": {
		fmt.Sprintf("busy_timeout(%d)", cfg.BusyTimeout.Milliseconds()),
		"journal_mode(WAL)",
		"foreign_keys(1)",
	}}

	return cfg.Path + "?" + query.Encode()
}

// Open opens the database and verifies the connection.
// The pool is limited to a single connection, so transactions never interleave.
func Open(ctx context.Context, cfg Config) (db *sql.DB, err error) {
	log := logging.GetLogger("infra.sqlite").With(logging.Group("db", "path", cfg.Path))

	defer func() {
		if err != nil {
			log.ErrorContext(ctx, "open db failed", "error", err)
		} else {
			log.DebugContext(ctx, "db opened")
		}
	}()

	if dir := filepath.Dir(cfg.Path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("mkdir all: %w", err)
		}
	}

	db, err = sql.Open("sqlite", DSN(cfg))
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}

	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()

		return nil, fmt.Errorf("ping db: %w", err)
	}

	return db, nil
}

// IsConstraintViolation reports whether err is a SQLite unique or primary key violation.
func IsConstraintViolation(err error) bool {
	var liteErr *sqlite.Error
	if !errors.As(err, &liteErr) {
		return false
	}

	switch liteErr.Code() {
	case sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY, sqlite3.SQLITE_CONSTRAINT_UNIQUE:
		return true
	default:
		return false
	}
}

// StorageError tags a driver error as a retryable storage failure,
// keeping the original error in the chain for logs.
func StorageError(err error) error {
	if err == nil {
		return nil
	}

	return errors.Join(domain.ErrStorageFailure, err)
}
