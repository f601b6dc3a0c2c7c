package item

import (
	"context"

	"github.com/mkrupp/wardrobe/internal/domain"
)

// Repository defines the interface for item metadata persistence.
type Repository interface {
	// CreateItem records a new item. The item's ID must be unique.
	CreateItem(ctx context.Context, item *domain.Item) error

	// ListItems returns the owner's items in one category, in insertion order.
	ListItems(ctx context.Context, owner string, categoryIndex int) ([]domain.Item, error)

	// ListAllItems returns all of the owner's items, in insertion order.
	ListAllItems(ctx context.Context, owner string) ([]domain.Item, error)
}

// RepositoryFactory is a function that creates a new Repository instance.
type RepositoryFactory func(ctx context.Context) (Repository, error)
