package notify

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/subnido/subgate/models"
	"github.com/subnido/subgate/repositories"
	"github.com/subnido/subgate/services"
)

// MockNotificationRepository is a mock implementation of NotificationRepository
type MockNotificationRepository struct {
	mock.Mock
}

func (m *MockNotificationRepository) InsertWelcome(ctx context.Context, n *models.Notification) (bool, error) {
	args := m.Called(ctx, n)
	return args.Bool(0), args.Error(1)
}

func (m *MockNotificationRepository) ListByUser(ctx context.Context, userID uuid.UUID, limit, offset int) ([]*models.Notification, error) {
	args := m.Called(ctx, userID, limit, offset)
	if ns := args.Get(0); ns != nil {
		return ns.([]*models.Notification), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockNotificationRepository) MarkRead(ctx context.Context, id, userID uuid.UUID) error {
	args := m.Called(ctx, id, userID)
	return args.Error(0)
}

func (m *MockNotificationRepository) WithTx(tx repositories.Transaction) repositories.NotificationRepository {
	m.Called(tx)
	return m
}

func TestServiceWelcomeIfNew(t *testing.T) {
	userID := uuid.New()

	t.Run("delivers once for a new account", func(t *testing.T) {
		repo := new(MockNotificationRepository)
		repo.On("InsertWelcome", mock.Anything, mock.MatchedBy(func(n *models.Notification) bool {
			return n.UserID == userID && n.Kind == models.NotificationWelcome
		})).Return(true, nil)

		svc := NewService(repo, zap.NewNop())

		created, err := svc.WelcomeIfNew(context.Background(), userID)
		require.NoError(t, err)
		assert.True(t, created)
	})

	t.Run("repeat callback is a no-op", func(t *testing.T) {
		repo := new(MockNotificationRepository)
		repo.On("InsertWelcome", mock.Anything, mock.Anything).Return(false, nil)

		svc := NewService(repo, zap.NewNop())

		created, err := svc.WelcomeIfNew(context.Background(), userID)
		require.NoError(t, err)
		assert.False(t, created)
	})

	t.Run("store failure surfaces as upstream error", func(t *testing.T) {
		repo := new(MockNotificationRepository)
		repo.On("InsertWelcome", mock.Anything, mock.Anything).Return(false, errors.New("db down"))

		svc := NewService(repo, zap.NewNop())

		_, err := svc.WelcomeIfNew(context.Background(), userID)
		assert.True(t, services.IsUpstreamError(err))
	})
}

func TestServiceList(t *testing.T) {
	userID := uuid.New()

	t.Run("clamps limit to default", func(t *testing.T) {
		repo := new(MockNotificationRepository)
		repo.On("ListByUser", mock.Anything, userID, 20, 0).
			Return([]*models.Notification{models.NewWelcomeNotification(userID)}, nil)

		svc := NewService(repo, zap.NewNop())

		notifications, err := svc.List(context.Background(), userID, 0, 0)
		require.NoError(t, err)
		assert.Len(t, notifications, 1)
		repo.AssertExpectations(t)
	})
}

func TestServiceMarkRead(t *testing.T) {
	userID := uuid.New()

	t.Run("marks read", func(t *testing.T) {
		repo := new(MockNotificationRepository)
		id := uuid.New()
		repo.On("MarkRead", mock.Anything, id, userID).Return(nil)

		svc := NewService(repo, zap.NewNop())
		assert.NoError(t, svc.MarkRead(context.Background(), id, userID))
	})

	t.Run("foreign notification maps to not found", func(t *testing.T) {
		repo := new(MockNotificationRepository)
		repo.On("MarkRead", mock.Anything, mock.Anything, userID).Return(repositories.ErrNotFound)

		svc := NewService(repo, zap.NewNop())
		err := svc.MarkRead(context.Background(), uuid.New(), userID)
		assert.True(t, services.IsNotFoundError(err))
	})
}
