package postgres

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/subnido/subgate/models"
	"github.com/subnido/subgate/repositories"
)

// AuditRepository implements the repositories.AuditRepository interface
type AuditRepository struct {
	db     *DB
	logger *zap.Logger
}

// NewAuditRepository creates a new audit repository
func NewAuditRepository(db *DB, logger *zap.Logger) repositories.AuditRepository {
	return &AuditRepository{
		db:     db,
		logger: logger,
	}
}

// Insert appends a new audit entry.
// The recorder calls this from its worker pool, so the method itself is blocking.
func (r *AuditRepository) Insert(ctx context.Context, entry *models.AuditEntry) error {
	query := `
		INSERT INTO audit_entries (
			id, actor_id, action, target_type, target_id,
			details, ip_address, user_agent, timestamp
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9
		)
	`

	executor := GetExecutor(ctx, r.db)
	_, err := executor.ExecContext(ctx, query,
		entry.ID,
		entry.ActorID,
		entry.Action,
		entry.TargetType,
		entry.TargetID,
		entry.Details,
		entry.IPAddress,
		entry.UserAgent,
		entry.Timestamp,
	)

	if err != nil {
		return fmt.Errorf("failed to insert audit entry: %w", err)
	}

	r.logger.Debug("audit entry inserted",
		zap.String("id", entry.ID.String()),
		zap.String("action", string(entry.Action)),
	)
	return nil
}

// GetByActor retrieves audit entries for an actor with pagination
func (r *AuditRepository) GetByActor(ctx context.Context, actorID uuid.UUID, limit, offset int) ([]*models.AuditEntry, error) {
	query := `
		SELECT id, actor_id, action, target_type, target_id,
		       details, ip_address, user_agent, timestamp
		FROM audit_entries
		WHERE actor_id = $1
		ORDER BY timestamp DESC
		LIMIT $2 OFFSET $3
	`

	return r.queryEntries(ctx, query, actorID, limit, offset)
}

// GetByAction retrieves audit entries by action type with pagination
func (r *AuditRepository) GetByAction(ctx context.Context, action models.AuditAction, limit, offset int) ([]*models.AuditEntry, error) {
	query := `
		SELECT id, actor_id, action, target_type, target_id,
		       details, ip_address, user_agent, timestamp
		FROM audit_entries
		WHERE action = $1
		ORDER BY timestamp DESC
		LIMIT $2 OFFSET $3
	`

	return r.queryEntries(ctx, query, action, limit, offset)
}

// WithTx returns a new repository instance bound to the transaction
func (r *AuditRepository) WithTx(tx repositories.Transaction) repositories.AuditRepository {
	return &AuditRepository{
		db:     r.db,
		logger: r.logger,
	}
}

// queryEntries is a helper method to query multiple audit entries
func (r *AuditRepository) queryEntries(ctx context.Context, query string, args ...interface{}) ([]*models.AuditEntry, error) {
	executor := GetExecutor(ctx, r.db)
	rows, err := executor.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query audit entries: %w", err)
	}
	defer rows.Close()

	var entries []*models.AuditEntry
	for rows.Next() {
		entry := &models.AuditEntry{}
		err := rows.Scan(
			&entry.ID,
			&entry.ActorID,
			&entry.Action,
			&entry.TargetType,
			&entry.TargetID,
			&entry.Details,
			&entry.IPAddress,
			&entry.UserAgent,
			&entry.Timestamp,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan audit entry: %w", err)
		}
		entries = append(entries, entry)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating audit entry rows: %w", err)
	}

	return entries, nil
}
