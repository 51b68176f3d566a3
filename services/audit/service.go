package audit

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/subnido/subgate/models"
	"github.com/subnido/subgate/repositories"
)

// Event wraps an audit entry queued for background persistence
type Event struct {
	Entry *models.AuditEntry
}

// Service handles asynchronous audit logging.
// Record never blocks the request path: entries go into a buffered
// channel drained by a worker pool, and the channel being full means
// the entry is dropped with a warning rather than stalling a request.
type Service struct {
	auditRepo   repositories.AuditRepository
	logger      *zap.Logger
	eventChan   chan *Event
	workerCount int
	bufferSize  int
	wg          sync.WaitGroup
	ctx         context.Context
	cancel      context.CancelFunc
	started     bool
	mu          sync.Mutex
}

// Config holds configuration for the audit service
type Config struct {
	BufferSize  int // Size of the event buffer channel
	WorkerCount int // Number of concurrent workers
}

// DefaultConfig returns the default configuration
func DefaultConfig() Config {
	return Config{
		BufferSize:  10000,
		WorkerCount: 5,
	}
}

// NewService creates a new audit service instance
func NewService(auditRepo repositories.AuditRepository, logger *zap.Logger, config Config) *Service {
	ctx, cancel := context.WithCancel(context.Background())

	return &Service{
		auditRepo:   auditRepo,
		logger:      logger,
		eventChan:   make(chan *Event, config.BufferSize),
		workerCount: config.WorkerCount,
		bufferSize:  config.BufferSize,
		ctx:         ctx,
		cancel:      cancel,
		started:     false,
	}
}

// Start starts the background workers
func (s *Service) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return fmt.Errorf("audit service already started")
	}

	for i := 0; i < s.workerCount; i++ {
		s.wg.Add(1)
		go s.worker(i)
	}

	s.started = true
	s.logger.Info("started audit service",
		zap.Int("worker_count", s.workerCount),
		zap.Int("buffer_size", s.bufferSize))

	return nil
}

// Stop gracefully stops the audit service.
// Waits for all pending entries to be persisted, up to the timeout.
func (s *Service) Stop(timeout time.Duration) error {
	s.mu.Lock()
	if !s.started {
		s.mu.Unlock()
		return fmt.Errorf("audit service not started")
	}
	s.mu.Unlock()

	s.logger.Info("stopping audit service", zap.Int("pending_events", len(s.eventChan)))

	// Close the event channel (no more events will be accepted)
	close(s.eventChan)

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		s.logger.Info("audit service stopped gracefully")
		s.cancel()
		return nil
	case <-time.After(timeout):
		s.cancel()
		return fmt.Errorf("audit service stop timeout after %v", timeout)
	}
}

// Record queues an entry without blocking. When the buffer is full the
// entry is dropped; governance decisions never wait on the audit trail.
func (s *Service) Record(entry *models.AuditEntry) error {
	s.mu.Lock()
	if !s.started {
		s.mu.Unlock()
		return fmt.Errorf("audit service not started")
	}
	s.mu.Unlock()

	select {
	case s.eventChan <- &Event{Entry: entry}:
		return nil
	default:
		s.logger.Warn("audit event channel full, dropping entry",
			zap.String("action", string(entry.Action)),
			zap.String("actor_id", entry.ActorID.String()))
		return fmt.Errorf("audit event buffer full")
	}
}

// RecordBlocking queues an entry, waiting until there is room or the
// context is cancelled. Used by admin write paths that must not lose
// their trail.
func (s *Service) RecordBlocking(ctx context.Context, entry *models.AuditEntry) error {
	s.mu.Lock()
	if !s.started {
		s.mu.Unlock()
		return fmt.Errorf("audit service not started")
	}
	s.mu.Unlock()

	select {
	case s.eventChan <- &Event{Entry: entry}:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-s.ctx.Done():
		return fmt.Errorf("audit service stopped")
	}
}

// worker processes events from the channel
func (s *Service) worker(id int) {
	defer s.wg.Done()

	s.logger.Debug("audit worker started", zap.Int("worker_id", id))

	for event := range s.eventChan {
		if err := s.processEvent(event); err != nil {
			s.logger.Error("failed to process audit event",
				zap.Int("worker_id", id),
				zap.Error(err),
				zap.String("action", string(event.Entry.Action)),
				zap.String("actor_id", event.Entry.ActorID.String()))
		}
	}

	s.logger.Debug("audit worker stopped", zap.Int("worker_id", id))
}

// processEvent persists a single audit entry
func (s *Service) processEvent(event *Event) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := s.auditRepo.Insert(ctx, event.Entry); err != nil {
		return fmt.Errorf("failed to insert audit entry: %w", err)
	}

	return nil
}

// GetStats returns statistics about the audit service
func (s *Service) GetStats() Stats {
	s.mu.Lock()
	defer s.mu.Unlock()

	return Stats{
		BufferSize:    s.bufferSize,
		PendingEvents: len(s.eventChan),
		WorkerCount:   s.workerCount,
		Started:       s.started,
	}
}

// Stats represents audit service statistics
type Stats struct {
	BufferSize    int
	PendingEvents int
	WorkerCount   int
	Started       bool
}

// Convenience methods for recording the pipeline's events

// RecordAdminPageAccess records a successful admin page visit
func (s *Service) RecordAdminPageAccess(actorID uuid.UUID, path, ipAddress, userAgent string) error {
	entry := models.NewAuditEntry(actorID, models.AuditActionAdminPageAccess, "system").
		WithDetails(map[string]string{"path": path}).
		WithClient(ipAddress, userAgent)

	return s.Record(entry)
}

// RecordUnauthorizedAdminAccess records a non-admin account probing an admin route
func (s *Service) RecordUnauthorizedAdminAccess(actorID uuid.UUID, path, ipAddress, userAgent string) error {
	entry := models.NewAuditEntry(actorID, models.AuditActionUnauthorizedAdminAccess, "system").
		WithDetails(map[string]string{"path": path}).
		WithClient(ipAddress, userAgent)

	return s.Record(entry)
}

// RecordSubdomainReviewed records an admin review decision
func (s *Service) RecordSubdomainReviewed(ctx context.Context, reviewerID uuid.UUID, subdomain *models.Subdomain, approved bool) error {
	action := models.AuditActionSubdomainDenied
	if approved {
		action = models.AuditActionSubdomainApproved
	}

	entry := models.NewAuditEntry(reviewerID, action, "subdomain").
		WithTarget(subdomain.ID).
		WithDetails(map[string]string{
			"name":     subdomain.Name,
			"owner_id": subdomain.OwnerID.String(),
		})

	return s.RecordBlocking(ctx, entry)
}

// RecordBanStateChanged records an operator flipping an account's ban flag
func (s *Service) RecordBanStateChanged(ctx context.Context, actorID, accountID uuid.UUID, banned bool, reason string) error {
	action := models.AuditActionAccountUnbanned
	if banned {
		action = models.AuditActionAccountBanned
	}

	details := map[string]string{}
	if reason != "" {
		details["reason"] = reason
	}

	entry := models.NewAuditEntry(actorID, action, "account").
		WithTarget(accountID).
		WithDetails(details)

	return s.RecordBlocking(ctx, entry)
}
