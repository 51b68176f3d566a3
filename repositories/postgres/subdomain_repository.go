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

// SubdomainRepository implements the repositories.SubdomainRepository interface
type SubdomainRepository struct {
	db     *DB
	logger *zap.Logger
}

// NewSubdomainRepository creates a new subdomain repository
func NewSubdomainRepository(db *DB, logger *zap.Logger) repositories.SubdomainRepository {
	return &SubdomainRepository{
		db:     db,
		logger: logger,
	}
}

// Create creates a new subdomain request
func (r *SubdomainRepository) Create(ctx context.Context, s *models.Subdomain) error {
	query := `
		INSERT INTO subdomains (
			id, owner_id, name, target_url, description, status,
			reviewed_by, review_note, created_at, updated_at
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9, $10
		)
	`

	executor := GetExecutor(ctx, r.db)
	_, err := executor.ExecContext(ctx, query,
		s.ID,
		s.OwnerID,
		s.Name,
		s.TargetURL,
		s.Description,
		s.Status,
		s.ReviewedBy,
		s.ReviewNote,
		s.CreatedAt,
		s.UpdatedAt,
	)

	if err != nil {
		return fmt.Errorf("failed to create subdomain request: %w", err)
	}

	r.logger.Debug("subdomain request created",
		zap.String("id", s.ID.String()),
		zap.String("name", s.Name),
	)
	return nil
}

// GetByID retrieves a subdomain request by ID
func (r *SubdomainRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Subdomain, error) {
	query := `
		SELECT id, owner_id, name, target_url, description, status,
		       reviewed_by, review_note, created_at, updated_at
		FROM subdomains
		WHERE id = $1
	`

	return r.queryOne(ctx, query, id)
}

// GetByName retrieves a subdomain request by its label
func (r *SubdomainRepository) GetByName(ctx context.Context, name string) (*models.Subdomain, error) {
	query := `
		SELECT id, owner_id, name, target_url, description, status,
		       reviewed_by, review_note, created_at, updated_at
		FROM subdomains
		WHERE name = $1
	`

	return r.queryOne(ctx, query, name)
}

// ListByOwner retrieves an account's subdomain requests with pagination
func (r *SubdomainRepository) ListByOwner(ctx context.Context, ownerID uuid.UUID, limit, offset int) ([]*models.Subdomain, error) {
	query := `
		SELECT id, owner_id, name, target_url, description, status,
		       reviewed_by, review_note, created_at, updated_at
		FROM subdomains
		WHERE owner_id = $1
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3
	`

	return r.queryMany(ctx, query, ownerID, limit, offset)
}

// ListPending retrieves pending requests for admin review, oldest first
func (r *SubdomainRepository) ListPending(ctx context.Context, limit, offset int) ([]*models.Subdomain, error) {
	query := `
		SELECT id, owner_id, name, target_url, description, status,
		       reviewed_by, review_note, created_at, updated_at
		FROM subdomains
		WHERE status = $1
		ORDER BY created_at ASC
		LIMIT $2 OFFSET $3
	`

	return r.queryMany(ctx, query, models.SubdomainPending, limit, offset)
}

// UpdateStatus records a review decision.
// Only pending requests can be reviewed; reviewing an already-decided
// request returns ErrNotFound so the caller can report a conflict.
func (r *SubdomainRepository) UpdateStatus(ctx context.Context, id uuid.UUID, status models.SubdomainStatus, reviewerID uuid.UUID, note *string) error {
	query := `
		UPDATE subdomains
		SET status = $2, reviewed_by = $3, review_note = $4, updated_at = $5
		WHERE id = $1 AND status = $6
	`

	executor := GetExecutor(ctx, r.db)
	result, err := executor.ExecContext(ctx, query, id, status, reviewerID, note, time.Now(), models.SubdomainPending)
	if err != nil {
		return fmt.Errorf("failed to update subdomain status: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return repositories.ErrNotFound
	}

	r.logger.Debug("subdomain reviewed",
		zap.String("id", id.String()),
		zap.String("status", string(status)),
		zap.String("reviewer_id", reviewerID.String()),
	)
	return nil
}

// WithTx returns a new repository instance bound to the transaction
func (r *SubdomainRepository) WithTx(tx repositories.Transaction) repositories.SubdomainRepository {
	return &SubdomainRepository{
		db:     r.db,
		logger: r.logger,
	}
}

func (r *SubdomainRepository) queryOne(ctx context.Context, query string, arg interface{}) (*models.Subdomain, error) {
	executor := GetExecutor(ctx, r.db)
	s := &models.Subdomain{}

	err := executor.QueryRowContext(ctx, query, arg).Scan(
		&s.ID,
		&s.OwnerID,
		&s.Name,
		&s.TargetURL,
		&s.Description,
		&s.Status,
		&s.ReviewedBy,
		&s.ReviewNote,
		&s.CreatedAt,
		&s.UpdatedAt,
	)

	if err != nil {
		if err == sql.ErrNoRows {
			return nil, repositories.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get subdomain request: %w", err)
	}

	return s, nil
}

func (r *SubdomainRepository) queryMany(ctx context.Context, query string, args ...interface{}) ([]*models.Subdomain, error) {
	executor := GetExecutor(ctx, r.db)
	rows, err := executor.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query subdomain requests: %w", err)
	}
	defer rows.Close()

	var subdomains []*models.Subdomain
	for rows.Next() {
		s := &models.Subdomain{}
		err := rows.Scan(
			&s.ID,
			&s.OwnerID,
			&s.Name,
			&s.TargetURL,
			&s.Description,
			&s.Status,
			&s.ReviewedBy,
			&s.ReviewNote,
			&s.CreatedAt,
			&s.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan subdomain request: %w", err)
		}
		subdomains = append(subdomains, s)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating subdomain rows: %w", err)
	}

	return subdomains, nil
}
