package models

import (
	"time"

	"github.com/google/uuid"
)

// AccountRole represents the role of an account on the platform
type AccountRole string

const (
	RoleUser  AccountRole = "user"
	RoleAdmin AccountRole = "admin"
)

// Account represents a platform account sourced from the external identity provider.
// The pipeline reads the ban flag and role; the only field it writes is LastSeenAt.
type Account struct {
	ID        uuid.UUID   `json:"id" db:"id"`
	Email     string      `json:"email" db:"email"`
	FullName  string      `json:"full_name" db:"full_name"`
	AvatarURL string      `json:"avatar_url" db:"avatar_url"`
	Provider  string      `json:"provider" db:"provider"` // OAuth provider the account signed up with
	Role      AccountRole `json:"role" db:"role"`
	IsBanned  bool        `json:"is_banned" db:"is_banned"`
	BanReason *string     `json:"ban_reason,omitempty" db:"ban_reason"`
	LastSeenAt *time.Time `json:"last_seen_at,omitempty" db:"last_seen_at"`
	CreatedAt time.Time   `json:"created_at" db:"created_at"`
	UpdatedAt time.Time   `json:"updated_at" db:"updated_at"`
}

// TableName returns the table name for the Account model
func (Account) TableName() string {
	return "accounts"
}

// NewAccount creates a new Account instance
func NewAccount(id uuid.UUID, email string) *Account {
	now := time.Now()
	return &Account{
		ID:        id,
		Email:     email,
		Role:      RoleUser,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// IsAdmin returns true if the account has the admin role
func (a *Account) IsAdmin() bool {
	return a.Role == RoleAdmin
}

// AccountFlags is the minimal slice of an account the pipeline needs per request.
type AccountFlags struct {
	SubjectID uuid.UUID   `json:"subject_id"`
	Email     string      `json:"email"`
	Role      AccountRole `json:"role"`
	IsBanned  bool        `json:"is_banned"`
}
