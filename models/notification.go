package models

import (
	"time"

	"github.com/google/uuid"
)

// NotificationKind represents the category of a notification
type NotificationKind string

const (
	NotificationWelcome NotificationKind = "welcome"
	NotificationSuccess NotificationKind = "success"
	NotificationInfo    NotificationKind = "info"
	NotificationWarning NotificationKind = "warning"
)

// Notification represents an in-app notification for an account
type Notification struct {
	ID          uuid.UUID        `json:"id" db:"id"`
	UserID      uuid.UUID        `json:"user_id" db:"user_id"`
	Kind        NotificationKind `json:"kind" db:"kind"`
	Title       string           `json:"title" db:"title"`
	Message     string           `json:"message" db:"message"`
	ActionURL   string           `json:"action_url,omitempty" db:"action_url"`
	ActionLabel string           `json:"action_label,omitempty" db:"action_label"`
	Read        bool             `json:"read" db:"read"`
	CreatedAt   time.Time        `json:"created_at" db:"created_at"`
}

// TableName returns the table name for the Notification model
func (Notification) TableName() string {
	return "notifications"
}

// NewWelcomeNotification creates the one-time welcome notification for a new account
func NewWelcomeNotification(userID uuid.UUID) *Notification {
	return &Notification{
		ID:          uuid.New(),
		UserID:      userID,
		Kind:        NotificationWelcome,
		Title:       "Welcome to Subnido!",
		Message:     "Thanks for joining the free subdomain platform. Request your first subdomain to get started.",
		ActionURL:   "/dashboard/create",
		ActionLabel: "Create Subdomain",
		CreatedAt:   time.Now(),
	}
}
