package content

import (
	"context"

	"github.com/mkrupp/wardrobe/internal/domain"
)

// Repository defines the interface for uploaded image storage, namespaced per owner.
type Repository interface {
	// Save writes body under a fresh, collision-free filename in the owner's namespace.
	// originalName only contributes a sanitized suffix to the generated name.
	Save(ctx context.Context, owner string, originalName string, body []byte) (*domain.StoredFile, error)

	// Read returns a stored file. Names that are malformed or would resolve
	// outside the owner's namespace are reported as ErrNotFound.
	Read(ctx context.Context, owner string, filename string) (*domain.StoredFile, error)

	// Delete removes a stored file.
	Delete(ctx context.Context, owner string, filename string) error
}

// RepositoryFactory is a function that creates a new Repository instance.
type RepositoryFactory func(ctx context.Context) (Repository, error)
