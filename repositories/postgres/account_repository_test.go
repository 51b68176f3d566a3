package postgres

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/subnido/subgate/models"
	"github.com/subnido/subgate/repositories"
)

func newTestDB(t *testing.T) (*DB, sqlmock.Sqlmock) {
	t.Helper()

	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { sqlDB.Close() })

	return &DB{DB: sqlDB, logger: zap.NewNop()}, mock
}

func TestAccountRepositoryGetFlags(t *testing.T) {
	subjectID := uuid.New()

	t.Run("returns flags for existing account", func(t *testing.T) {
		db, mock := newTestDB(t)
		repo := NewAccountRepository(db, zap.NewNop())

		rows := sqlmock.NewRows([]string{"id", "email", "role", "is_banned"}).
			AddRow(subjectID.String(), "user@example.com", "user", false)
		mock.ExpectQuery("SELECT id, email, role, is_banned").
			WithArgs(subjectID).
			WillReturnRows(rows)

		flags, err := repo.GetFlags(context.Background(), subjectID)
		require.NoError(t, err)

		assert.Equal(t, subjectID, flags.SubjectID)
		assert.Equal(t, "user@example.com", flags.Email)
		assert.Equal(t, models.RoleUser, flags.Role)
		assert.False(t, flags.IsBanned)

		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("returns ErrNotFound for missing account", func(t *testing.T) {
		db, mock := newTestDB(t)
		repo := NewAccountRepository(db, zap.NewNop())

		mock.ExpectQuery("SELECT id, email, role, is_banned").
			WithArgs(subjectID).
			WillReturnError(sql.ErrNoRows)

		_, err := repo.GetFlags(context.Background(), subjectID)
		assert.ErrorIs(t, err, repositories.ErrNotFound)
	})

	t.Run("wraps backend failures distinctly from not found", func(t *testing.T) {
		db, mock := newTestDB(t)
		repo := NewAccountRepository(db, zap.NewNop())

		mock.ExpectQuery("SELECT id, email, role, is_banned").
			WithArgs(subjectID).
			WillReturnError(sql.ErrConnDone)

		_, err := repo.GetFlags(context.Background(), subjectID)
		require.Error(t, err)
		assert.NotErrorIs(t, err, repositories.ErrNotFound)
	})
}

func TestAccountRepositoryUpsertProfile(t *testing.T) {
	db, mock := newTestDB(t)
	repo := NewAccountRepository(db, zap.NewNop())

	account := &models.Account{
		ID:        uuid.New(),
		Email:     "new@example.com",
		FullName:  "New User",
		AvatarURL: "https://cdn.example.com/a.png",
		Provider:  "google",
	}

	mock.ExpectExec("INSERT INTO accounts").
		WithArgs(account.ID, account.Email, account.FullName, account.AvatarURL,
			account.Provider, models.RoleUser, sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := repo.UpsertProfile(context.Background(), account)
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAccountRepositoryTouchLastSeen(t *testing.T) {
	db, mock := newTestDB(t)
	repo := NewAccountRepository(db, zap.NewNop())

	subjectID := uuid.New()
	at := time.Now()

	mock.ExpectExec("UPDATE accounts").
		WithArgs(subjectID, at).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := repo.TouchLastSeen(context.Background(), subjectID, at)
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAccountRepositorySetBanned(t *testing.T) {
	t.Run("bans existing account", func(t *testing.T) {
		db, mock := newTestDB(t)
		repo := NewAccountRepository(db, zap.NewNop())

		id := uuid.New()
		reason := "spam"

		mock.ExpectExec("UPDATE accounts").
			WithArgs(id, true, &reason, sqlmock.AnyArg()).
			WillReturnResult(sqlmock.NewResult(0, 1))

		err := repo.SetBanned(context.Background(), id, true, &reason)
		require.NoError(t, err)
	})

	t.Run("returns ErrNotFound when no row matched", func(t *testing.T) {
		db, mock := newTestDB(t)
		repo := NewAccountRepository(db, zap.NewNop())

		id := uuid.New()

		mock.ExpectExec("UPDATE accounts").
			WithArgs(id, false, nil, sqlmock.AnyArg()).
			WillReturnResult(sqlmock.NewResult(0, 0))

		err := repo.SetBanned(context.Background(), id, false, nil)
		assert.ErrorIs(t, err, repositories.ErrNotFound)
	})
}

func TestAccountRepositoryWithTx(t *testing.T) {
	db, _ := newTestDB(t)
	repo := NewAccountRepository(db, zap.NewNop())

	txRepo := repo.WithTx(nil)
	assert.NotNil(t, txRepo)
	assert.NotSame(t, repo, txRepo)
}
