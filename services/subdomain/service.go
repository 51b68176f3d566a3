package subdomain

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/subnido/subgate/models"
	"github.com/subnido/subgate/repositories"
	"github.com/subnido/subgate/services"
	"github.com/subnido/subgate/services/audit"
	"github.com/subnido/subgate/utils"
)

// Service handles subdomain requests and their admin review lifecycle
type Service struct {
	subdomains repositories.SubdomainRepository
	txManager  repositories.TransactionManager
	audit      *audit.Service
	logger     *zap.Logger
}

// NewService creates a new subdomain service
func NewService(subdomains repositories.SubdomainRepository, txManager repositories.TransactionManager, auditSvc *audit.Service, logger *zap.Logger) *Service {
	return &Service{
		subdomains: subdomains,
		txManager:  txManager,
		audit:      auditSvc,
		logger:     logger,
	}
}

// Request creates a new pending subdomain request for an account.
// The label is validated and checked for duplicates before insert.
func (s *Service) Request(ctx context.Context, ownerID uuid.UUID, name, targetURL, description string) (*models.Subdomain, error) {
	if err := utils.ValidateSubdomainName(name); err != nil {
		return nil, services.NewDomainError(services.ErrorTypeValidation, "invalid subdomain name", err).WithDetail("name", name)
	}

	_, err := s.subdomains.GetByName(ctx, name)
	if err == nil {
		return nil, services.NewDomainError(services.ErrorTypeConflict, "subdomain name already requested", nil).WithDetail("name", name)
	}
	if !errors.Is(err, repositories.ErrNotFound) {
		return nil, services.WrapUpstream("subdomain lookup failed", err)
	}

	sub := models.NewSubdomain(ownerID, name, targetURL, description)
	if err := s.subdomains.Create(ctx, sub); err != nil {
		return nil, services.WrapUpstream("subdomain create failed", err)
	}

	s.logger.Info("subdomain requested",
		zap.String("id", sub.ID.String()),
		zap.String("name", name),
		zap.String("owner_id", ownerID.String()))

	return sub, nil
}

// Get retrieves a single subdomain request
func (s *Service) Get(ctx context.Context, id uuid.UUID) (*models.Subdomain, error) {
	sub, err := s.subdomains.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, services.ErrSubdomainNotFound
		}
		return nil, services.WrapUpstream("subdomain lookup failed", err)
	}
	return sub, nil
}

// ListMine retrieves an account's own requests
func (s *Service) ListMine(ctx context.Context, ownerID uuid.UUID, limit, offset int) ([]*models.Subdomain, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}

	subs, err := s.subdomains.ListByOwner(ctx, ownerID, limit, offset)
	if err != nil {
		return nil, services.WrapUpstream("subdomain list failed", err)
	}
	return subs, nil
}

// ListPending retrieves the admin review queue, oldest first
func (s *Service) ListPending(ctx context.Context, limit, offset int) ([]*models.Subdomain, error) {
	if limit <= 0 || limit > 100 {
		limit = 50
	}

	subs, err := s.subdomains.ListPending(ctx, limit, offset)
	if err != nil {
		return nil, services.WrapUpstream("pending list failed", err)
	}
	return subs, nil
}

// Review records an admin decision on a pending request.
// The status flip runs in a transaction; an entry lands in the audit
// trail once the decision commits. Reviewing an already-decided
// request is a conflict, not a silent overwrite.
func (s *Service) Review(ctx context.Context, reviewerID, id uuid.UUID, approve bool, note string) (*models.Subdomain, error) {
	sub, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	status := models.SubdomainDenied
	if approve {
		status = models.SubdomainApproved
	}

	var notePtr *string
	if note != "" {
		notePtr = &note
	}

	err = s.txManager.InTransaction(ctx, func(txCtx context.Context, tx repositories.Transaction) error {
		return s.subdomains.WithTx(tx).UpdateStatus(txCtx, id, status, reviewerID, notePtr)
	})
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, services.NewDomainError(services.ErrorTypeConflict, "subdomain request already reviewed", nil).WithDetail("id", id.String())
		}
		return nil, services.WrapInternal("review update failed", err)
	}

	if err := s.audit.RecordSubdomainReviewed(ctx, reviewerID, sub, approve); err != nil {
		s.logger.Warn("failed to record review audit entry",
			zap.Error(err),
			zap.String("subdomain_id", id.String()))
	}

	sub.Status = status
	sub.ReviewedBy = &reviewerID
	sub.ReviewNote = notePtr

	s.logger.Info("subdomain reviewed",
		zap.String("id", id.String()),
		zap.String("status", string(status)),
		zap.String("reviewer_id", reviewerID.String()))

	return sub, nil
}
