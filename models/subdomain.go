package models

import (
	"time"

	"github.com/google/uuid"
)

// SubdomainStatus represents the review state of a subdomain request
type SubdomainStatus string

const (
	SubdomainPending  SubdomainStatus = "pending"
	SubdomainApproved SubdomainStatus = "approved"
	SubdomainDenied   SubdomainStatus = "denied"
)

// Subdomain represents a free-subdomain request and its review state
type Subdomain struct {
	ID          uuid.UUID       `json:"id" db:"id"`
	OwnerID     uuid.UUID       `json:"owner_id" db:"owner_id"`
	Name        string          `json:"name" db:"name"` // the requested label, e.g. "myblog"
	TargetURL   string          `json:"target_url" db:"target_url"`
	Description string          `json:"description" db:"description"`
	Status      SubdomainStatus `json:"status" db:"status"`
	ReviewedBy  *uuid.UUID      `json:"reviewed_by,omitempty" db:"reviewed_by"`
	ReviewNote  *string         `json:"review_note,omitempty" db:"review_note"`
	CreatedAt   time.Time       `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at" db:"updated_at"`
}

// TableName returns the table name for the Subdomain model
func (Subdomain) TableName() string {
	return "subdomains"
}

// NewSubdomain creates a new pending subdomain request
func NewSubdomain(ownerID uuid.UUID, name, targetURL, description string) *Subdomain {
	now := time.Now()
	return &Subdomain{
		ID:          uuid.New(),
		OwnerID:     ownerID,
		Name:        name,
		TargetURL:   targetURL,
		Description: description,
		Status:      SubdomainPending,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

// IsPending returns true if the request has not been reviewed yet
func (s *Subdomain) IsPending() bool {
	return s.Status == SubdomainPending
}
