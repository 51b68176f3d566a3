package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/subnido/subgate/models"
	"github.com/subnido/subgate/repositories"
)

// AccountRepository implements the repositories.AccountRepository interface
type AccountRepository struct {
	db     *DB
	logger *zap.Logger
}

// NewAccountRepository creates a new account repository
func NewAccountRepository(db *DB, logger *zap.Logger) repositories.AccountRepository {
	return &AccountRepository{
		db:     db,
		logger: logger,
	}
}

// GetFlags retrieves the minimal per-request account slice.
// sql.ErrNoRows maps to repositories.ErrNotFound so callers can tell
// a missing account apart from a backend failure.
func (r *AccountRepository) GetFlags(ctx context.Context, subjectID uuid.UUID) (*models.AccountFlags, error) {
	query := `
		SELECT id, email, role, is_banned
		FROM accounts
		WHERE id = $1
	`

	executor := GetExecutor(ctx, r.db)
	flags := &models.AccountFlags{}

	err := executor.QueryRowContext(ctx, query, subjectID).Scan(
		&flags.SubjectID,
		&flags.Email,
		&flags.Role,
		&flags.IsBanned,
	)

	if err != nil {
		if err == sql.ErrNoRows {
			return nil, repositories.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get account flags: %w", err)
	}

	return flags, nil
}

// GetByID retrieves a full account record
func (r *AccountRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Account, error) {
	query := `
		SELECT id, email, full_name, avatar_url, provider, role, is_banned, ban_reason,
		       last_seen_at, created_at, updated_at
		FROM accounts
		WHERE id = $1
	`

	executor := GetExecutor(ctx, r.db)
	account := &models.Account{}

	err := executor.QueryRowContext(ctx, query, id).Scan(
		&account.ID,
		&account.Email,
		&account.FullName,
		&account.AvatarURL,
		&account.Provider,
		&account.Role,
		&account.IsBanned,
		&account.BanReason,
		&account.LastSeenAt,
		&account.CreatedAt,
		&account.UpdatedAt,
	)

	if err != nil {
		if err == sql.ErrNoRows {
			return nil, repositories.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get account: %w", err)
	}

	return account, nil
}

// UpsertProfile creates or updates an account from identity-provider claims.
// Role and ban state are never touched by the upsert; they belong to operators.
func (r *AccountRepository) UpsertProfile(ctx context.Context, account *models.Account) error {
	query := `
		INSERT INTO accounts (id, email, full_name, avatar_url, provider, role, is_banned, last_seen_at, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, false, $7, $8, $8)
		ON CONFLICT (id) DO UPDATE SET
			email = EXCLUDED.email,
			full_name = EXCLUDED.full_name,
			avatar_url = EXCLUDED.avatar_url,
			provider = EXCLUDED.provider,
			last_seen_at = EXCLUDED.last_seen_at,
			updated_at = EXCLUDED.updated_at
	`

	now := time.Now()
	executor := GetExecutor(ctx, r.db)
	_, err := executor.ExecContext(ctx, query,
		account.ID,
		account.Email,
		account.FullName,
		account.AvatarURL,
		account.Provider,
		models.RoleUser,
		now,
		now,
	)

	if err != nil {
		return fmt.Errorf("failed to upsert account: %w", err)
	}

	r.logger.Debug("account profile upserted",
		zap.String("id", account.ID.String()),
		zap.String("email", account.Email))
	return nil
}

// TouchLastSeen updates the account's last-seen timestamp
func (r *AccountRepository) TouchLastSeen(ctx context.Context, subjectID uuid.UUID, at time.Time) error {
	query := `
		UPDATE accounts
		SET last_seen_at = $2
		WHERE id = $1
	`

	executor := GetExecutor(ctx, r.db)
	if _, err := executor.ExecContext(ctx, query, subjectID, at); err != nil {
		return fmt.Errorf("failed to touch last seen: %w", err)
	}

	return nil
}

// SetBanned flips the ban flag on an account
func (r *AccountRepository) SetBanned(ctx context.Context, id uuid.UUID, banned bool, reason *string) error {
	query := `
		UPDATE accounts
		SET is_banned = $2, ban_reason = $3, updated_at = $4
		WHERE id = $1
	`

	executor := GetExecutor(ctx, r.db)
	result, err := executor.ExecContext(ctx, query, id, banned, reason, time.Now())
	if err != nil {
		return fmt.Errorf("failed to set ban flag: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return repositories.ErrNotFound
	}

	return nil
}

// WithTx returns a new repository instance bound to the transaction
func (r *AccountRepository) WithTx(tx repositories.Transaction) repositories.AccountRepository {
	return &AccountRepository{
		db:     r.db,
		logger: r.logger,
	}
}
