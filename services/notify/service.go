package notify

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/subnido/subgate/models"
	"github.com/subnido/subgate/repositories"
	"github.com/subnido/subgate/services"
)

// Service handles in-app notifications
type Service struct {
	notifications repositories.NotificationRepository
	logger        *zap.Logger
}

// NewService creates a new notification service
func NewService(notifications repositories.NotificationRepository, logger *zap.Logger) *Service {
	return &Service{
		notifications: notifications,
		logger:        logger,
	}
}

// WelcomeIfNew delivers the one-time welcome notification.
// Safe to call on every OAuth callback: the store guarantees at most
// one welcome per account, and repeat calls report created=false.
func (s *Service) WelcomeIfNew(ctx context.Context, userID uuid.UUID) (bool, error) {
	created, err := s.notifications.InsertWelcome(ctx, models.NewWelcomeNotification(userID))
	if err != nil {
		return false, services.WrapUpstream("welcome notification insert failed", err)
	}

	if created {
		s.logger.Info("welcome notification delivered", zap.String("user_id", userID.String()))
	}
	return created, nil
}

// List retrieves an account's notifications, newest first
func (s *Service) List(ctx context.Context, userID uuid.UUID, limit, offset int) ([]*models.Notification, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}

	notifications, err := s.notifications.ListByUser(ctx, userID, limit, offset)
	if err != nil {
		return nil, services.WrapUpstream("notification list failed", err)
	}
	return notifications, nil
}

// MarkRead marks one of the account's notifications as read
func (s *Service) MarkRead(ctx context.Context, id, userID uuid.UUID) error {
	if err := s.notifications.MarkRead(ctx, id, userID); err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return services.ErrNotificationNotFound
		}
		return services.WrapUpstream("notification update failed", err)
	}
	return nil
}
