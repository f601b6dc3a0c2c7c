package item

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/mkrupp/wardrobe/internal/domain"
	"github.com/mkrupp/wardrobe/internal/infra/logging"
	"github.com/mkrupp/wardrobe/internal/infra/sqlite"
)

// SQLiteItemRepository implements Repository using SQLite as the storage backend.
// It expects the accounts table to exist.
type SQLiteItemRepository struct {
	db  *sql.DB
	log logging.Logger
}

var _ Repository = (*SQLiteItemRepository)(nil)

// SQLiteItemRepositoryFactory creates a factory function that returns a new SQLiteItemRepository.
func SQLiteItemRepositoryFactory(db *sql.DB) RepositoryFactory {
	return func(ctx context.Context) (Repository, error) {
		return NewSQLiteItemRepository(ctx, db)
	}
}

// NewSQLiteItemRepository creates a new SQLiteItemRepository and its schema.
func NewSQLiteItemRepository(ctx context.Context, db *sql.DB) (*SQLiteItemRepository, error) {
	if _, err := db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS items (
			seq             INTEGER PRIMARY KEY AUTOINCREMENT,
			item_id         TEXT    UNIQUE NOT NULL,
			username        TEXT    NOT NULL REFERENCES accounts (username) ON DELETE CASCADE,
			category_index  INTEGER NOT NULL,
			stored_filename TEXT    NOT NULL,
			created_at      INTEGER NOT NULL
		)
	`); err != nil {
		return nil, fmt.Errorf("create items: %w", err)
	}

	if _, err := db.ExecContext(ctx,
		"CREATE INDEX IF NOT EXISTS items_owner_category ON items (username, category_index, seq)",
	); err != nil {
		return nil, fmt.Errorf("create items index: %w", err)
	}

	return &SQLiteItemRepository{
		db:  db,
		log: logging.GetLogger("repo.item.sqlite_item_repository"),
	}, nil
}

// CreateItem implements Repository.CreateItem using SQLite.
func (r *SQLiteItemRepository) CreateItem(ctx context.Context, item *domain.Item) (err error) {
	log := r.log.With(logging.Group("item",
		"id", item.ID,
		"owner", item.Owner,
		"category", item.CategoryIndex,
	))

	defer func() {
		if err != nil {
			log.ErrorContext(ctx, "create item failed", "error", err)
		} else {
			log.DebugContext(ctx, "item created")
		}
	}()

	if _, err := r.db.ExecContext(ctx,
		`INSERT INTO items (item_id, username, category_index, stored_filename, created_at)
		 VALUES (?, ?, ?, ?, ?)`,
		item.ID,
		item.Owner,
		item.CategoryIndex,
		item.StoredFilename,
		item.CreatedAt,
	); err != nil {
		if sqlite.IsConstraintViolation(err) {
			return fmt.Errorf("insert item: %w", errors.Join(domain.ErrAlreadyExists, err))
		}

		return fmt.Errorf("insert item: %w", sqlite.StorageError(err))
	}

	return nil
}

// ListItems implements Repository.ListItems using SQLite.
func (r *SQLiteItemRepository) ListItems(
	ctx context.Context,
	owner string,
	categoryIndex int,
) ([]domain.Item, error) {
	return r.query(ctx,
		`SELECT item_id, username, category_index, stored_filename, created_at
		 FROM items WHERE username = ? AND category_index = ? ORDER BY seq`,
		owner, categoryIndex,
	)
}

// ListAllItems implements Repository.ListAllItems using SQLite.
func (r *SQLiteItemRepository) ListAllItems(ctx context.Context, owner string) ([]domain.Item, error) {
	return r.query(ctx,
		`SELECT item_id, username, category_index, stored_filename, created_at
		 FROM items WHERE username = ? ORDER BY seq`,
		owner,
	)
}

func (r *SQLiteItemRepository) query(ctx context.Context, query string, args ...any) (items []domain.Item, err error) {
	defer func() {
		if err != nil {
			r.log.ErrorContext(ctx, "list items failed", "error", err)
		}
	}()

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query items: %w", sqlite.StorageError(err))
	}
	defer rows.Close()

	items = []domain.Item{}

	for rows.Next() {
		var item domain.Item
		if err := rows.Scan(
			&item.ID,
			&item.Owner,
			&item.CategoryIndex,
			&item.StoredFilename,
			&item.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan item: %w", sqlite.StorageError(err))
		}

		items = append(items, item)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate items: %w", sqlite.StorageError(err))
	}

	return items, nil
}
