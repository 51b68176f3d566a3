package handlers

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/subnido/subgate/identity"
	"github.com/subnido/subgate/middleware"
	"github.com/subnido/subgate/models"
	"github.com/subnido/subgate/repositories"
	"github.com/subnido/subgate/services/audit"
)

// MockSubdomainRepository is a mock implementation of SubdomainRepository
type MockSubdomainRepository struct {
	mock.Mock
}

func (m *MockSubdomainRepository) Create(ctx context.Context, s *models.Subdomain) error {
	args := m.Called(ctx, s)
	return args.Error(0)
}

func (m *MockSubdomainRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Subdomain, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Subdomain), args.Error(1)
}

func (m *MockSubdomainRepository) GetByName(ctx context.Context, name string) (*models.Subdomain, error) {
	args := m.Called(ctx, name)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Subdomain), args.Error(1)
}

func (m *MockSubdomainRepository) ListByOwner(ctx context.Context, ownerID uuid.UUID, limit, offset int) ([]*models.Subdomain, error) {
	args := m.Called(ctx, ownerID, limit, offset)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.Subdomain), args.Error(1)
}

func (m *MockSubdomainRepository) ListPending(ctx context.Context, limit, offset int) ([]*models.Subdomain, error) {
	args := m.Called(ctx, limit, offset)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.Subdomain), args.Error(1)
}

func (m *MockSubdomainRepository) UpdateStatus(ctx context.Context, id uuid.UUID, status models.SubdomainStatus, reviewerID uuid.UUID, note *string) error {
	args := m.Called(ctx, id, status, reviewerID, note)
	return args.Error(0)
}

func (m *MockSubdomainRepository) WithTx(tx repositories.Transaction) repositories.SubdomainRepository {
	return m
}

// MockAccountRepository is a mock implementation of AccountRepository
type MockAccountRepository struct {
	mock.Mock
}

func (m *MockAccountRepository) GetFlags(ctx context.Context, subjectID uuid.UUID) (*models.AccountFlags, error) {
	args := m.Called(ctx, subjectID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.AccountFlags), args.Error(1)
}

func (m *MockAccountRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Account, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Account), args.Error(1)
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
	return m
}

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
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.Notification), args.Error(1)
}

func (m *MockNotificationRepository) MarkRead(ctx context.Context, id, userID uuid.UUID) error {
	args := m.Called(ctx, id, userID)
	return args.Error(0)
}

func (m *MockNotificationRepository) WithTx(tx repositories.Transaction) repositories.NotificationRepository {
	return m
}

// MockAuditRepository accepts every insert; the async recorder needs a sink
type MockAuditRepository struct {
	mock.Mock
}

func (m *MockAuditRepository) Insert(ctx context.Context, entry *models.AuditEntry) error {
	return nil
}

func (m *MockAuditRepository) GetByActor(ctx context.Context, actorID uuid.UUID, limit, offset int) ([]*models.AuditEntry, error) {
	args := m.Called(ctx, actorID, limit, offset)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.AuditEntry), args.Error(1)
}

func (m *MockAuditRepository) GetByAction(ctx context.Context, action models.AuditAction, limit, offset int) ([]*models.AuditEntry, error) {
	args := m.Called(ctx, action, limit, offset)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.AuditEntry), args.Error(1)
}

func (m *MockAuditRepository) WithTx(tx repositories.Transaction) repositories.AuditRepository {
	return m
}

type stubTxManager struct{}

func (stubTxManager) Begin(_ context.Context) (repositories.Transaction, error) {
	return nil, errors.New("not supported")
}

func (stubTxManager) InTransaction(ctx context.Context, fn func(ctx context.Context, tx repositories.Transaction) error) error {
	return fn(ctx, nil)
}

// newAuditService builds a started audit recorder over a throwaway sink
func newAuditService(t *testing.T) *audit.Service {
	t.Helper()
	svc := audit.NewService(&MockAuditRepository{}, zap.NewNop(), audit.Config{BufferSize: 16, WorkerCount: 1})
	require.NoError(t, svc.Start())
	t.Cleanup(func() { _ = svc.Stop(time.Second) })
	return svc
}

// testSession creates a session for a fresh subject
func testSession() *identity.Session {
	id := uuid.New()
	return &identity.Session{
		SubjectID: id,
		Email:     "user@subnido.io",
		FullName:  "Test User",
		Provider:  "google",
		IssuedAt:  time.Now(),
		ExpiresAt: time.Now().Add(time.Hour),
		Token:     "test-token",
	}
}

// withSession attaches a pipeline-resolved session to the request
func withSession(r *http.Request, session *identity.Session) *http.Request {
	return r.WithContext(middleware.WithSession(r.Context(), session))
}

// withOperator marks the request's caller as an operator
func withOperator(r *http.Request) *http.Request {
	return r.WithContext(middleware.WithOperator(r.Context(), true))
}

// withURLParam injects a chi route parameter
func withURLParam(r *http.Request, key, value string) *http.Request {
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add(key, value)
	return r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, rctx))
}
