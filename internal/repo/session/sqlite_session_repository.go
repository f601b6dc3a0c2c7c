package session

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/mkrupp/wardrobe/internal/domain"
	"github.com/mkrupp/wardrobe/internal/infra/logging"
	"github.com/mkrupp/wardrobe/internal/infra/sqlite"
)

// SQLiteSessionRepository implements Repository using SQLite as the storage backend.
// It expects the accounts table to exist.
type SQLiteSessionRepository struct {
	db  *sql.DB
	log logging.Logger
}

var _ Repository = (*SQLiteSessionRepository)(nil)

// SQLiteSessionRepositoryFactory creates a factory function that returns a new SQLiteSessionRepository.
func SQLiteSessionRepositoryFactory(db *sql.DB) RepositoryFactory {
	return func(ctx context.Context) (Repository, error) {
		return NewSQLiteSessionRepository(ctx, db)
	}
}

// NewSQLiteSessionRepository creates a new SQLiteSessionRepository and its schema.
func NewSQLiteSessionRepository(ctx context.Context, db *sql.DB) (*SQLiteSessionRepository, error) {
	if _, err := db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS sessions (
			id         TEXT    PRIMARY KEY NOT NULL,
			username   TEXT    NOT NULL REFERENCES accounts (username) ON DELETE CASCADE,
			created_at INTEGER NOT NULL,
			expires_at INTEGER NOT NULL
		)
	`); err != nil {
		return nil, fmt.Errorf("create sessions: %w", err)
	}

	if _, err := db.ExecContext(ctx,
		"CREATE INDEX IF NOT EXISTS sessions_expires_at ON sessions (expires_at)",
	); err != nil {
		return nil, fmt.Errorf("create sessions index: %w", err)
	}

	return &SQLiteSessionRepository{
		db:  db,
		log: logging.GetLogger("repo.session.sqlite_session_repository"),
	}, nil
}

// CreateSession implements Repository.CreateSession using SQLite.
func (r *SQLiteSessionRepository) CreateSession(ctx context.Context, session *domain.Session) (err error) {
	log := r.log.With(logging.Group("session", "username", session.Username))

	defer func() {
		if err != nil {
			log.ErrorContext(ctx, "create session failed", "error", err)
		} else {
			log.DebugContext(ctx, "session created", "expires_at", session.ExpiresAt)
		}
	}()

	if _, err := r.db.ExecContext(ctx,
		"INSERT INTO sessions (id, username, created_at, expires_at) VALUES (?, ?, ?, ?)",
		session.ID,
		session.Username,
		session.CreatedAt,
		session.ExpiresAt,
	); err != nil {
		if sqlite.IsConstraintViolation(err) {
			return fmt.Errorf("insert session: %w", errors.Join(domain.ErrAlreadyExists, err))
		}

		return fmt.Errorf("insert session: %w", sqlite.StorageError(err))
	}

	return nil
}

// GetSession implements Repository.GetSession using SQLite.
func (r *SQLiteSessionRepository) GetSession(
	ctx context.Context,
	id string,
	now time.Time,
) (session *domain.Session, err error) {
	defer func() {
		if err != nil && !errors.Is(err, domain.ErrNotFound) {
			r.log.ErrorContext(ctx, "get session failed", "error", err)
		}
	}()

	session = &domain.Session{ID: id} //nolint:exhaustruct

	err = r.db.QueryRowContext(ctx,
		"SELECT username, created_at, expires_at FROM sessions WHERE id = ?",
		id,
	).Scan(&session.Username, &session.CreatedAt, &session.ExpiresAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("query session: %w", errors.Join(domain.ErrNotFound, err))
		}

		return nil, fmt.Errorf("query session: %w", sqlite.StorageError(err))
	}

	if session.Expired(now) {
		if err := r.DeleteSession(ctx, id); err != nil {
			return nil, err
		}

		return nil, fmt.Errorf("session expired: %w", domain.ErrNotFound)
	}

	return session, nil
}

// DeleteSession implements Repository.DeleteSession using SQLite.
func (r *SQLiteSessionRepository) DeleteSession(ctx context.Context, id string) (err error) {
	defer func() {
		if err != nil {
			r.log.ErrorContext(ctx, "delete session failed", "error", err)
		} else {
			r.log.DebugContext(ctx, "session deleted")
		}
	}()

	if _, err := r.db.ExecContext(ctx, "DELETE FROM sessions WHERE id = ?", id); err != nil {
		return fmt.Errorf("delete session: %w", sqlite.StorageError(err))
	}

	return nil
}

// DeleteExpired implements Repository.DeleteExpired using SQLite.
func (r *SQLiteSessionRepository) DeleteExpired(ctx context.Context, now time.Time) (n int64, err error) {
	defer func() {
		if err != nil {
			r.log.ErrorContext(ctx, "delete expired sessions failed", "error", err)
		} else if n > 0 {
			r.log.InfoContext(ctx, "expired sessions deleted", "count", n)
		}
	}()

	res, err := r.db.ExecContext(ctx, "DELETE FROM sessions WHERE expires_at <= ?", now.Unix())
	if err != nil {
		return 0, fmt.Errorf("delete expired: %w", sqlite.StorageError(err))
	}

	n, err = res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("rows affected: %w", sqlite.StorageError(err))
	}

	return n, nil
}
