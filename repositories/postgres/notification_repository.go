package postgres

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/subnido/subgate/models"
	"github.com/subnido/subgate/repositories"
)

// NotificationRepository implements the repositories.NotificationRepository interface
type NotificationRepository struct {
	db     *DB
	logger *zap.Logger
}

// NewNotificationRepository creates a new notification repository
func NewNotificationRepository(db *DB, logger *zap.Logger) repositories.NotificationRepository {
	return &NotificationRepository{
		db:     db,
		logger: logger,
	}
}

// InsertWelcome inserts the welcome notification for an account.
// A partial unique index on (user_id) WHERE kind = 'welcome' makes the
// insert a no-op when the account already received one, so repeated
// OAuth callbacks cannot produce duplicates.
func (r *NotificationRepository) InsertWelcome(ctx context.Context, n *models.Notification) (bool, error) {
	query := `
		INSERT INTO notifications (
			id, user_id, kind, title, message, action_url, action_label, read, created_at
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9
		)
		ON CONFLICT (user_id) WHERE kind = 'welcome' DO NOTHING
	`

	executor := GetExecutor(ctx, r.db)
	result, err := executor.ExecContext(ctx, query,
		n.ID,
		n.UserID,
		n.Kind,
		n.Title,
		n.Message,
		n.ActionURL,
		n.ActionLabel,
		n.Read,
		n.CreatedAt,
	)
	if err != nil {
		return false, fmt.Errorf("failed to insert welcome notification: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	}

	created := rows > 0
	if created {
		r.logger.Debug("welcome notification created", zap.String("user_id", n.UserID.String()))
	}
	return created, nil
}

// ListByUser retrieves notifications for an account, newest first
func (r *NotificationRepository) ListByUser(ctx context.Context, userID uuid.UUID, limit, offset int) ([]*models.Notification, error) {
	query := `
		SELECT id, user_id, kind, title, message, action_url, action_label, read, created_at
		FROM notifications
		WHERE user_id = $1
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3
	`

	executor := GetExecutor(ctx, r.db)
	rows, err := executor.QueryContext(ctx, query, userID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to query notifications: %w", err)
	}
	defer rows.Close()

	var notifications []*models.Notification
	for rows.Next() {
		n := &models.Notification{}
		err := rows.Scan(
			&n.ID,
			&n.UserID,
			&n.Kind,
			&n.Title,
			&n.Message,
			&n.ActionURL,
			&n.ActionLabel,
			&n.Read,
			&n.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan notification: %w", err)
		}
		notifications = append(notifications, n)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating notification rows: %w", err)
	}

	return notifications, nil
}

// MarkRead marks a notification as read.
// The user ID is part of the predicate so accounts cannot touch
// each other's notifications.
func (r *NotificationRepository) MarkRead(ctx context.Context, id, userID uuid.UUID) error {
	query := `
		UPDATE notifications
		SET read = TRUE
		WHERE id = $1 AND user_id = $2
	`

	executor := GetExecutor(ctx, r.db)
	result, err := executor.ExecContext(ctx, query, id, userID)
	if err != nil {
		return fmt.Errorf("failed to mark notification read: %w", err)
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
func (r *NotificationRepository) WithTx(tx repositories.Transaction) repositories.NotificationRepository {
	return &NotificationRepository{
		db:     r.db,
		logger: r.logger,
	}
}
