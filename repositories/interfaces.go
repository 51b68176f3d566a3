package repositories

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/subnido/subgate/models"
)

// ErrNotFound is returned when a requested record does not exist.
// Callers must be able to tell this apart from a backend failure.
var ErrNotFound = errors.New("record not found")

// TransactionManager manages database transactions
type TransactionManager interface {
	// Begin starts a new transaction
	Begin(ctx context.Context) (Transaction, error)

	// InTransaction executes a function within a transaction.
	// Automatically commits if the function succeeds, rolls back on error.
	InTransaction(ctx context.Context, fn func(ctx context.Context, tx Transaction) error) error
}

// Transaction represents a database transaction
type Transaction interface {
	// Commit commits the transaction
	Commit() error

	// Rollback rolls back the transaction
	Rollback() error

	// Context returns the transaction context
	Context() context.Context
}

// AccountRepository handles account data operations.
// The pipeline reads flags and writes only the last-seen timestamp;
// the OAuth callback upserts profile fields.
type AccountRepository interface {
	// GetFlags retrieves the minimal per-request account slice.
	// Returns ErrNotFound when no account exists for the subject;
	// any other error indicates the backend is unavailable.
	GetFlags(ctx context.Context, subjectID uuid.UUID) (*models.AccountFlags, error)

	// GetByID retrieves a full account record
	GetByID(ctx context.Context, id uuid.UUID) (*models.Account, error)

	// UpsertProfile creates or updates an account from identity-provider claims
	UpsertProfile(ctx context.Context, account *models.Account) error

	// TouchLastSeen updates the account's last-seen timestamp
	TouchLastSeen(ctx context.Context, subjectID uuid.UUID, at time.Time) error

	// SetBanned flips the ban flag on an account
	SetBanned(ctx context.Context, id uuid.UUID, banned bool, reason *string) error

	// WithTx returns a new repository instance bound to the transaction
	WithTx(tx Transaction) AccountRepository
}

// AuditRepository handles append-only audit trail operations
type AuditRepository interface {
	// Insert appends a new audit entry
	Insert(ctx context.Context, entry *models.AuditEntry) error

	// GetByActor retrieves audit entries for an actor with pagination
	GetByActor(ctx context.Context, actorID uuid.UUID, limit, offset int) ([]*models.AuditEntry, error)

	// GetByAction retrieves audit entries by action type with pagination
	GetByAction(ctx context.Context, action models.AuditAction, limit, offset int) ([]*models.AuditEntry, error)

	// WithTx returns a new repository instance bound to the transaction
	WithTx(tx Transaction) AuditRepository
}

// NotificationRepository handles in-app notification operations
type NotificationRepository interface {
	// InsertWelcome inserts the welcome notification for an account.
	// Returns true if the notification was created, false if the account
	// already received one (exactly-once per subject).
	InsertWelcome(ctx context.Context, n *models.Notification) (bool, error)

	// ListByUser retrieves notifications for an account, newest first
	ListByUser(ctx context.Context, userID uuid.UUID, limit, offset int) ([]*models.Notification, error)

	// MarkRead marks a notification as read
	MarkRead(ctx context.Context, id, userID uuid.UUID) error

	// WithTx returns a new repository instance bound to the transaction
	WithTx(tx Transaction) NotificationRepository
}

// SubdomainRepository handles subdomain request operations
type SubdomainRepository interface {
	// Create creates a new subdomain request
	Create(ctx context.Context, s *models.Subdomain) error

	// GetByID retrieves a subdomain request by ID
	GetByID(ctx context.Context, id uuid.UUID) (*models.Subdomain, error)

	// GetByName retrieves a subdomain request by its label
	GetByName(ctx context.Context, name string) (*models.Subdomain, error)

	// ListByOwner retrieves an account's subdomain requests with pagination
	ListByOwner(ctx context.Context, ownerID uuid.UUID, limit, offset int) ([]*models.Subdomain, error)

	// ListPending retrieves pending requests for admin review
	ListPending(ctx context.Context, limit, offset int) ([]*models.Subdomain, error)

	// UpdateStatus records a review decision
	UpdateStatus(ctx context.Context, id uuid.UUID, status models.SubdomainStatus, reviewerID uuid.UUID, note *string) error

	// WithTx returns a new repository instance bound to the transaction
	WithTx(tx Transaction) SubdomainRepository
}

// Repositories bundles all repository instances
type Repositories struct {
	Accounts      AccountRepository
	AuditEntries  AuditRepository
	Notifications NotificationRepository
	Subdomains    SubdomainRepository
}
