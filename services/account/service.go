package account

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/subnido/subgate/identity"
	"github.com/subnido/subgate/models"
	"github.com/subnido/subgate/repositories"
	"github.com/subnido/subgate/services"
	"github.com/subnido/subgate/services/audit"
)

// Service handles account operations: the per-request flags lookup the
// pipeline depends on, profile sync after OAuth, and operator ban actions.
type Service struct {
	accounts  repositories.AccountRepository
	txManager repositories.TransactionManager
	audit     *audit.Service
	logger    *zap.Logger
}

// NewService creates a new account service
func NewService(accounts repositories.AccountRepository, txManager repositories.TransactionManager, auditSvc *audit.Service, logger *zap.Logger) *Service {
	return &Service{
		accounts:  accounts,
		txManager: txManager,
		audit:     auditSvc,
		logger:    logger,
	}
}

// Flags retrieves the minimal account slice for a request.
// A missing account and an unreachable backend are distinct outcomes:
// the pipeline treats the former as "no special flags" and the latter
// as an upstream failure subject to fail-open/fail-closed rules.
func (s *Service) Flags(ctx context.Context, subjectID uuid.UUID) (*models.AccountFlags, error) {
	flags, err := s.accounts.GetFlags(ctx, subjectID)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, services.ErrAccountNotFound
		}
		return nil, services.WrapUpstream("account flags lookup failed", err)
	}

	return flags, nil
}

// SyncProfile creates or refreshes an account from identity-provider
// claims after a successful OAuth code exchange.
func (s *Service) SyncProfile(ctx context.Context, session *identity.Session) (*models.Account, error) {
	acct := &models.Account{
		ID:        session.SubjectID,
		Email:     session.Email,
		FullName:  session.FullName,
		AvatarURL: session.AvatarURL,
		Provider:  session.Provider,
	}

	if err := s.accounts.UpsertProfile(ctx, acct); err != nil {
		return nil, services.WrapUpstream("profile upsert failed", err)
	}

	s.logger.Info("account profile synced",
		zap.String("subject_id", session.SubjectID.String()),
		zap.String("provider", session.Provider))

	return acct, nil
}

// Get retrieves a full account record
func (s *Service) Get(ctx context.Context, id uuid.UUID) (*models.Account, error) {
	acct, err := s.accounts.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, services.ErrAccountNotFound
		}
		return nil, services.WrapUpstream("account lookup failed", err)
	}
	return acct, nil
}

// TouchLastSeen updates the last-seen timestamp in the background.
// Redirecting an authenticated visitor must not wait on this write.
func (s *Service) TouchLastSeen(subjectID uuid.UUID) {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()

		if err := s.accounts.TouchLastSeen(ctx, subjectID, time.Now()); err != nil {
			s.logger.Warn("failed to touch last seen",
				zap.Error(err),
				zap.String("subject_id", subjectID.String()))
		}
	}()
}

// SetBanned flips an account's ban flag inside a transaction and records
// the decision in the audit trail.
func (s *Service) SetBanned(ctx context.Context, actorID, accountID uuid.UUID, banned bool, reason string) error {
	var reasonPtr *string
	if reason != "" {
		reasonPtr = &reason
	}

	err := s.txManager.InTransaction(ctx, func(txCtx context.Context, tx repositories.Transaction) error {
		return s.accounts.WithTx(tx).SetBanned(txCtx, accountID, banned, reasonPtr)
	})
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return services.ErrAccountNotFound
		}
		return services.WrapInternal("ban state update failed", err)
	}

	if err := s.audit.RecordBanStateChanged(ctx, actorID, accountID, banned, reason); err != nil {
		s.logger.Warn("failed to record ban audit entry",
			zap.Error(err),
			zap.String("account_id", accountID.String()))
	}

	s.logger.Info("account ban state changed",
		zap.String("account_id", accountID.String()),
		zap.String("actor_id", actorID.String()),
		zap.Bool("banned", banned))

	return nil
}
