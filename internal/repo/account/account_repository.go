package account

import (
	"context"

	"github.com/mkrupp/wardrobe/internal/domain"
)

// Repository defines the interface for account persistence.
type Repository interface {
	// CreateAccount atomically adds a new account together with its categories.
	// Returns ErrAlreadyExists if the username is already taken.
	CreateAccount(ctx context.Context, username string, passwordHash []byte, categories []string) error

	// GetAccount retrieves an account and its categories in index order.
	// Returns ErrNotFound if no such account exists.
	GetAccount(ctx context.Context, username string) (*domain.Account, error)
}

// RepositoryFactory is a function that creates a new Repository instance.
// Returns an error if initialization fails.
type RepositoryFactory func(ctx context.Context) (Repository, error)
