package account_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mkrupp/wardrobe/internal/domain"
	"github.com/mkrupp/wardrobe/internal/infra/sqlite"

	. "github.com/mkrupp/wardrobe/internal/repo/account"
)

func setupAccountTestRepo(t *testing.T) *SQLiteAccountRepository {
	t.Helper()

	ctx := context.Background()

	db, err := sqlite.Open(ctx, sqlite.Config{
		Path:        filepath.Join(t.TempDir(), "test.db"),
		BusyTimeout: 5 * time.Second,
	})
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	repo, err := NewSQLiteAccountRepository(ctx, db)
	require.NoError(t, err)

	return repo
}

func TestSQLiteAccountRepository_CreateAndGet(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	repo := setupAccountTestRepo(t)

	err := repo.CreateAccount(ctx, "alice", []byte("hash"), domain.DefaultCategoryNames)
	require.NoError(t, err)

	account, err := repo.GetAccount(ctx, "alice")
	require.NoError(t, err)

	assert.Equal(t, "alice", account.Username)
	assert.Equal(t, []byte("hash"), account.PasswordHash)
	assert.NotZero(t, account.CreatedAt)
	assert.Equal(t, domain.DefaultCategoryNames, account.CategoryNames())

	for i, category := range account.Categories {
		assert.Equal(t, i, category.Index)
	}
}

func TestSQLiteAccountRepository_CreateDuplicate(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	repo := setupAccountTestRepo(t)

	require.NoError(t, repo.CreateAccount(ctx, "alice", []byte("first"), []string{"tops"}))

	err := repo.CreateAccount(ctx, "alice", []byte("second"), []string{"shoes", "hats"})
	require.ErrorIs(t, err, domain.ErrAlreadyExists)

	account, err := repo.GetAccount(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, []byte("first"), account.PasswordHash)
	assert.Equal(t, []string{"tops"}, account.CategoryNames())

	// usernames are case-sensitive
	require.NoError(t, repo.CreateAccount(ctx, "Alice", []byte("third"), nil))
}

func TestSQLiteAccountRepository_DuplicateIsNotLoggedAsError(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	repo := setupAccountTestRepo(t)

	var buf bytes.Buffer

	repo.SetLogger(slog.New(slog.NewJSONHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))) //nolint:exhaustruct

	require.NoError(t, repo.CreateAccount(ctx, "alice", []byte("hash"), nil))
	require.ErrorIs(t, repo.CreateAccount(ctx, "alice", []byte("hash"), nil), domain.ErrAlreadyExists)

	dec := json.NewDecoder(&buf)
	records := 0

	for dec.More() {
		var record struct {
			Level string `json:"level"`
			Msg   string `json:"msg"`
		}

		require.NoError(t, dec.Decode(&record))
		assert.NotEqual(t, slog.LevelError.String(), record.Level, record.Msg)

		records++
	}

	assert.Equal(t, 2, records)
}

func TestSQLiteAccountRepository_ConcurrentCreate(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	repo := setupAccountTestRepo(t)

	const attempts = 16

	var (
		wg        sync.WaitGroup
		succeeded atomic.Int32
		conflicts atomic.Int32
	)

	for range attempts {
		wg.Add(1)

		go func() {
			defer wg.Done()

			err := repo.CreateAccount(ctx, "bob", []byte("hash"), domain.DefaultCategoryNames)

			switch {
			case err == nil:
				succeeded.Add(1)
			case errors.Is(err, domain.ErrAlreadyExists):
				conflicts.Add(1)
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}

	wg.Wait()

	assert.Equal(t, int32(1), succeeded.Load())
	assert.Equal(t, int32(attempts-1), conflicts.Load())

	account, err := repo.GetAccount(ctx, "bob")
	require.NoError(t, err)
	assert.Len(t, account.Categories, len(domain.DefaultCategoryNames))
}

func TestSQLiteAccountRepository_GetMissing(t *testing.T) {
	t.Parallel()

	repo := setupAccountTestRepo(t)

	_, err := repo.GetAccount(context.Background(), "nobody")
	require.ErrorIs(t, err, domain.ErrNotFound)
	assert.NotErrorIs(t, err, domain.ErrStorageFailure)
}

func TestSQLiteAccountRepository_StorageFailure(t *testing.T) {
	t.Parallel()

	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	mock.ExpectExec("CREATE TABLE IF NOT EXISTS accounts").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec("CREATE TABLE IF NOT EXISTS categories").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery("SELECT password_hash, created_at FROM accounts").
		WithArgs("alice").
		WillReturnError(errors.New("disk I/O error"))
	mock.ExpectBegin().WillReturnError(errors.New("database is locked"))

	repo, err := NewSQLiteAccountRepository(context.Background(), db)
	require.NoError(t, err)

	_, err = repo.GetAccount(context.Background(), "alice")
	require.ErrorIs(t, err, domain.ErrStorageFailure)
	assert.NotErrorIs(t, err, domain.ErrNotFound)

	err = repo.CreateAccount(context.Background(), "alice", []byte("hash"), nil)
	require.ErrorIs(t, err, domain.ErrStorageFailure)

	require.NoError(t, mock.ExpectationsWereMet())
}
