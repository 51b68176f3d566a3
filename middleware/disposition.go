package middleware

import "time"

// DispositionKind is the category of outcome a gate can terminate with
type DispositionKind int

const (
	// DispositionRedirect sends the caller to another location
	DispositionRedirect DispositionKind = iota

	// DispositionReject refuses the request with a status code
	DispositionReject
)

// Disposition is a terminal pipeline outcome. A gate returning nil lets
// the request continue to the next gate; a non-nil Disposition ends
// evaluation immediately.
type Disposition struct {
	Kind     DispositionKind
	Location string // redirect target
	Status   int

	// RetryAfter and ResetAt carry throttling metadata on rejects
	RetryAfter time.Duration
	ResetAt    time.Time

	// ClearSession removes the session cookie before responding
	ClearSession bool

	// SessionToken, when set, becomes the new session cookie
	SessionToken  string
	SessionExpiry time.Time
}

// Redirect builds a redirect disposition
func Redirect(location string) *Disposition {
	return &Disposition{
		Kind:     DispositionRedirect,
		Location: location,
	}
}

// RejectTooManyRequests builds a throttling disposition
func RejectTooManyRequests(retryAfter time.Duration, resetAt time.Time) *Disposition {
	return &Disposition{
		Kind:       DispositionReject,
		Status:     429,
		RetryAfter: retryAfter,
		ResetAt:    resetAt,
	}
}

// WithSessionCleared marks the session cookie for removal
func (d *Disposition) WithSessionCleared() *Disposition {
	d.ClearSession = true
	return d
}

// WithSession attaches a new session credential to the response
func (d *Disposition) WithSession(token string, expiry time.Time) *Disposition {
	d.SessionToken = token
	d.SessionExpiry = expiry
	return d
}
