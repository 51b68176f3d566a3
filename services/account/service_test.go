package account

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/subnido/subgate/identity"
	"github.com/subnido/subgate/models"
	"github.com/subnido/subgate/repositories"
	"github.com/subnido/subgate/services"
	"github.com/subnido/subgate/services/audit"
)

// MockAccountRepository is a mock implementation of AccountRepository
type MockAccountRepository struct {
	mock.Mock
}

func (m *MockAccountRepository) GetFlags(ctx context.Context, subjectID uuid.UUID) (*models.AccountFlags, error) {
	args := m.Called(ctx, subjectID)
	if flags := args.Get(0); flags != nil {
		return flags.(*models.AccountFlags), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockAccountRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Account, error) {
	args := m.Called(ctx, id)
	if acct := args.Get(0); acct != nil {
		return acct.(*models.Account), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockAccountRepository) UpsertProfile(ctx context.Context, account *models.Account) error {
	args := m.Called(ctx, account)
	return args.Error(0)
}

func (m *MockAccountRepository) TouchLastSeen(ctx context.Context, subjectID uuid.UUID, at time.Time) error {
	args := m.Called(ctx, subjectID, at)
	return args.Error(0)
}

func (m *MockAccountRepository) SetBanned(ctx context.Context, id uuid.UUID, banned bool, reason *string) error {
	args := m.Called(ctx, id, banned, reason)
	return args.Error(0)
}

func (m *MockAccountRepository) WithTx(tx repositories.Transaction) repositories.AccountRepository {
	m.Called(tx)
	return m
}

// MockTransactionManager runs the callback without a real transaction
type MockTransactionManager struct {
	mock.Mock
}

func (m *MockTransactionManager) Begin(ctx context.Context) (repositories.Transaction, error) {
	args := m.Called(ctx)
	if tx := args.Get(0); tx != nil {
		return tx.(repositories.Transaction), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockTransactionManager) InTransaction(ctx context.Context, fn func(ctx context.Context, tx repositories.Transaction) error) error {
	m.Called(ctx, mock.Anything)
	return fn(ctx, nil)
}

// MockAuditRepository backs the audit service in tests
type MockAuditRepository struct {
	mock.Mock
}

func (m *MockAuditRepository) Insert(ctx context.Context, entry *models.AuditEntry) error {
	args := m.Called(ctx, entry)
	return args.Error(0)
}

func (m *MockAuditRepository) GetByActor(ctx context.Context, actorID uuid.UUID, limit, offset int) ([]*models.AuditEntry, error) {
	args := m.Called(ctx, actorID, limit, offset)
	return nil, args.Error(1)
}

func (m *MockAuditRepository) GetByAction(ctx context.Context, action models.AuditAction, limit, offset int) ([]*models.AuditEntry, error) {
	args := m.Called(ctx, action, limit, offset)
	return nil, args.Error(1)
}

func (m *MockAuditRepository) WithTx(tx repositories.Transaction) repositories.AuditRepository {
	m.Called(tx)
	return m
}

func newAuditService(t *testing.T) *audit.Service {
	t.Helper()

	auditRepo := new(MockAuditRepository)
	auditRepo.On("Insert", mock.Anything, mock.Anything).Return(nil)

	svc := audit.NewService(auditRepo, zap.NewNop(), audit.Config{BufferSize: 10, WorkerCount: 1})
	require.NoError(t, svc.Start())
	t.Cleanup(func() { _ = svc.Stop(time.Second) })

	return svc
}

func TestServiceFlags(t *testing.T) {
	subjectID := uuid.New()

	t.Run("returns flags", func(t *testing.T) {
		repo := new(MockAccountRepository)
		repo.On("GetFlags", mock.Anything, subjectID).Return(&models.AccountFlags{
			SubjectID: subjectID,
			Email:     "user@example.com",
			Role:      models.RoleAdmin,
			IsBanned:  false,
		}, nil)

		svc := NewService(repo, nil, nil, zap.NewNop())

		flags, err := svc.Flags(context.Background(), subjectID)
		require.NoError(t, err)
		assert.Equal(t, models.RoleAdmin, flags.Role)
	})

	t.Run("missing account maps to not found", func(t *testing.T) {
		repo := new(MockAccountRepository)
		repo.On("GetFlags", mock.Anything, subjectID).Return(nil, repositories.ErrNotFound)

		svc := NewService(repo, nil, nil, zap.NewNop())

		_, err := svc.Flags(context.Background(), subjectID)
		assert.True(t, services.IsNotFoundError(err))
		assert.False(t, services.IsUpstreamError(err))
	})

	t.Run("backend failure maps to upstream error", func(t *testing.T) {
		repo := new(MockAccountRepository)
		repo.On("GetFlags", mock.Anything, subjectID).Return(nil, errors.New("connection refused"))

		svc := NewService(repo, nil, nil, zap.NewNop())

		_, err := svc.Flags(context.Background(), subjectID)
		assert.True(t, services.IsUpstreamError(err))
		assert.False(t, services.IsNotFoundError(err))
	})
}

func TestServiceSyncProfile(t *testing.T) {
	repo := new(MockAccountRepository)
	repo.On("UpsertProfile", mock.Anything, mock.MatchedBy(func(a *models.Account) bool {
		return a.Email == "user@example.com" && a.Provider == "google"
	})).Return(nil)

	svc := NewService(repo, nil, nil, zap.NewNop())

	session := &identity.Session{
		SubjectID: uuid.New(),
		Email:     "user@example.com",
		FullName:  "Test User",
		Provider:  "google",
	}

	acct, err := svc.SyncProfile(context.Background(), session)
	require.NoError(t, err)
	assert.Equal(t, session.SubjectID, acct.ID)
	repo.AssertExpectations(t)
}

func TestServiceSetBanned(t *testing.T) {
	actorID, accountID := uuid.New(), uuid.New()

	t.Run("bans in a transaction and audits", func(t *testing.T) {
		repo := new(MockAccountRepository)
		repo.On("WithTx", mock.Anything).Return(repo)
		repo.On("SetBanned", mock.Anything, accountID, true, mock.Anything).Return(nil)

		txm := new(MockTransactionManager)
		txm.On("InTransaction", mock.Anything, mock.Anything).Return(nil)

		svc := NewService(repo, txm, newAuditService(t), zap.NewNop())

		err := svc.SetBanned(context.Background(), actorID, accountID, true, "spam")
		require.NoError(t, err)
		repo.AssertExpectations(t)
	})

	t.Run("unknown account maps to not found", func(t *testing.T) {
		repo := new(MockAccountRepository)
		repo.On("WithTx", mock.Anything).Return(repo)
		repo.On("SetBanned", mock.Anything, accountID, false, mock.Anything).Return(repositories.ErrNotFound)

		txm := new(MockTransactionManager)
		txm.On("InTransaction", mock.Anything, mock.Anything).Return(nil)

		svc := NewService(repo, txm, newAuditService(t), zap.NewNop())

		err := svc.SetBanned(context.Background(), actorID, accountID, false, "")
		assert.True(t, services.IsNotFoundError(err))
	})
}
