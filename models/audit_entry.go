package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// AuditAction represents the type of action being audited
type AuditAction string

const (
	AuditActionAdminPageAccess         AuditAction = "admin_page_access"
	AuditActionUnauthorizedAdminAccess AuditAction = "unauthorized_admin_access_attempt"
	AuditActionSubdomainApproved       AuditAction = "subdomain_approved"
	AuditActionSubdomainDenied         AuditAction = "subdomain_denied"
	AuditActionAccountBanned           AuditAction = "account_banned"
	AuditActionAccountUnbanned         AuditAction = "account_unbanned"
)

// AuditEntry represents an append-only audit trail record.
// Entries are created by the audit recorder and never mutated or deleted.
type AuditEntry struct {
	ID         uuid.UUID       `json:"id" db:"id"`
	ActorID    uuid.UUID       `json:"actor_id" db:"actor_id"`
	Action     AuditAction     `json:"action" db:"action"`
	TargetType string          `json:"target_type" db:"target_type"` // system, subdomain, account
	TargetID   *uuid.UUID      `json:"target_id,omitempty" db:"target_id"`
	Details    json.RawMessage `json:"details" db:"details"` // JSONB for flexible metadata
	IPAddress  string          `json:"ip_address" db:"ip_address"`
	UserAgent  string          `json:"user_agent" db:"user_agent"`
	Timestamp  time.Time       `json:"timestamp" db:"timestamp"`
}

// TableName returns the table name for the AuditEntry model
func (AuditEntry) TableName() string {
	return "audit_entries"
}

// NewAuditEntry creates a new AuditEntry instance
func NewAuditEntry(actorID uuid.UUID, action AuditAction, targetType string) *AuditEntry {
	return &AuditEntry{
		ID:         uuid.New(),
		ActorID:    actorID,
		Action:     action,
		TargetType: targetType,
		Timestamp:  time.Now(),
	}
}

// WithTarget sets the target resource ID
func (e *AuditEntry) WithTarget(targetID uuid.UUID) *AuditEntry {
	e.TargetID = &targetID
	return e
}

// WithDetails sets the details map
func (e *AuditEntry) WithDetails(details map[string]string) *AuditEntry {
	if data, err := json.Marshal(details); err == nil {
		e.Details = data
	}
	return e
}

// WithClient sets client request metadata
func (e *AuditEntry) WithClient(ipAddress, userAgent string) *AuditEntry {
	e.IPAddress = ipAddress
	e.UserAgent = userAgent
	return e
}
