package account

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

// SQLiteAccountRepository implements Repository using SQLite as the storage backend.
type SQLiteAccountRepository struct {
	db  *sql.DB
	log logging.Logger
	now func() time.Time
}

var _ Repository = (*SQLiteAccountRepository)(nil)

// SQLiteAccountRepositoryFactory creates a factory function that returns a new SQLiteAccountRepository.
// The factory function implements the RepositoryFactory type.
func SQLiteAccountRepositoryFactory(db *sql.DB) RepositoryFactory {
	return func(ctx context.Context) (Repository, error) {
		return NewSQLiteAccountRepository(ctx, db)
	}
}

// NewSQLiteAccountRepository creates a new SQLiteAccountRepository on top of db
// and creates the schema if needed.
func NewSQLiteAccountRepository(ctx context.Context, db *sql.DB) (*SQLiteAccountRepository, error) {
	if err := initializeDB(ctx, db); err != nil {
		return nil, fmt.Errorf("initialize db: %w", err)
	}

	return &SQLiteAccountRepository{
		db:  db,
		log: logging.GetLogger("repo.account.sqlite_account_repository"),
		now: time.Now,
	}, nil
}

func initializeDB(ctx context.Context, db *sql.DB) error {
	if _, err := db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS accounts (
			username      TEXT    PRIMARY KEY NOT NULL,
			password_hash BLOB    NOT NULL,
			created_at    INTEGER NOT NULL
		)
	`); err != nil {
		return fmt.Errorf("create accounts: %w", err)
	}

	if _, err := db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS categories (
			username TEXT    NOT NULL REFERENCES accounts (username) ON DELETE CASCADE,
			idx      INTEGER NOT NULL,
			name     TEXT    NOT NULL,
			PRIMARY KEY (username, idx)
		)
	`); err != nil {
		return fmt.Errorf("create categories: %w", err)
	}

	return nil
}

// CreateAccount implements Repository.CreateAccount using SQLite.
// The account row and its category rows are written in one transaction;
// the primary key on username makes concurrent registrations race safely.
func (r *SQLiteAccountRepository) CreateAccount(
	ctx context.Context,
	username string,
	passwordHash []byte,
	categories []string,
) (err error) {
	log := r.log.With(logging.Group("account", "username", username))

	defer func() {
		switch {
		case err == nil:
			log.DebugContext(ctx, "account created", "categories", len(categories))
		case errors.Is(err, domain.ErrAlreadyExists):
			log.DebugContext(ctx, "account already exists")
		default:
			log.ErrorContext(ctx, "create account failed", "error", err)
		}
	}()

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", sqlite.StorageError(err))
	}
	defer tx.Rollback() //nolint:errcheck

	if _, err := tx.ExecContext(ctx,
		"INSERT INTO accounts (username, password_hash, created_at) VALUES (?, ?, ?)",
		username,
		passwordHash,
		r.now().Unix(),
	); err != nil {
		if sqlite.IsConstraintViolation(err) {
			return fmt.Errorf("insert account: %w", errors.Join(domain.ErrAlreadyExists, err))
		}

		return fmt.Errorf("insert account: %w", sqlite.StorageError(err))
	}

	for idx, name := range categories {
		if _, err := tx.ExecContext(ctx,
			"INSERT INTO categories (username, idx, name) VALUES (?, ?, ?)",
			username,
			idx,
			name,
		); err != nil {
			return fmt.Errorf("insert category: %w", sqlite.StorageError(err))
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", sqlite.StorageError(err))
	}

	return nil
}

// GetAccount implements Repository.GetAccount using SQLite.
func (r *SQLiteAccountRepository) GetAccount(ctx context.Context, username string) (account *domain.Account, err error) {
	log := r.log.With(logging.Group("account", "username", username))

	defer func() {
		if err != nil && !errors.Is(err, domain.ErrNotFound) {
			log.ErrorContext(ctx, "get account failed", "error", err)
		}
	}()

	account = &domain.Account{Username: username} //nolint:exhaustruct

	err = r.db.QueryRowContext(ctx,
		"SELECT password_hash, created_at FROM accounts WHERE username = ?",
		username,
	).Scan(&account.PasswordHash, &account.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("query account: %w", errors.Join(domain.ErrNotFound, err))
		}

		return nil, fmt.Errorf("query account: %w", sqlite.StorageError(err))
	}

	rows, err := r.db.QueryContext(ctx,
		"SELECT idx, name FROM categories WHERE username = ? ORDER BY idx",
		username,
	)
	if err != nil {
		return nil, fmt.Errorf("query categories: %w", sqlite.StorageError(err))
	}
	defer rows.Close()

	for rows.Next() {
		var category domain.Category
		if err := rows.Scan(&category.Index, &category.Name); err != nil {
			return nil, fmt.Errorf("scan category: %w", sqlite.StorageError(err))
		}

		account.Categories = append(account.Categories, category)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate categories: %w", sqlite.StorageError(err))
	}

	return account, nil
}
