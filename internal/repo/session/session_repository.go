package session

import (
	"context"
	"time"

	"github.com/mkrupp/wardrobe/internal/domain"
)

// Repository defines the interface for server-side session persistence.
type Repository interface {
	// CreateSession stores a new session. The session's account must exist.
	CreateSession(ctx context.Context, session *domain.Session) error

	// GetSession retrieves a live session by ID.
	// Expired sessions are removed on lookup and reported as ErrNotFound.
	GetSession(ctx context.Context, id string, now time.Time) (*domain.Session, error)

	// DeleteSession removes a session. Deleting an unknown session is not an error.
	DeleteSession(ctx context.Context, id string) error

	// DeleteExpired removes all sessions expired at now and returns how many were removed.
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
}

// RepositoryFactory is a function that creates a new Repository instance.
type RepositoryFactory func(ctx context.Context) (Repository, error)
