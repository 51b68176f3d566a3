package middleware

import (
	"context"
	"net"
	"net/http"
	"strings"

	"github.com/subnido/subgate/identity"
	"github.com/subnido/subgate/models"
)

// Context key type to avoid collisions
type contextKey string

const (
	// SessionKey is the context key for the resolved session
	SessionKey contextKey = "session"

	// FlagsKey is the context key for the account flags
	FlagsKey contextKey = "account_flags"

	// ClientIPKey is the context key for the client address
	ClientIPKey contextKey = "client_ip"

	// OperatorKey is the context key for the pipeline's operator decision
	OperatorKey contextKey = "operator"
)

// WithSession adds the resolved session to the context
func WithSession(ctx context.Context, session *identity.Session) context.Context {
	return context.WithValue(ctx, SessionKey, session)
}

// GetSessionFromContext retrieves the resolved session from context.
// Returns nil for anonymous requests.
func GetSessionFromContext(ctx context.Context) *identity.Session {
	if val := ctx.Value(SessionKey); val != nil {
		if session, ok := val.(*identity.Session); ok {
			return session
		}
	}
	return nil
}

// WithFlags adds account flags to the context
func WithFlags(ctx context.Context, flags *models.AccountFlags) context.Context {
	return context.WithValue(ctx, FlagsKey, flags)
}

// GetFlagsFromContext retrieves account flags from context
func GetFlagsFromContext(ctx context.Context) *models.AccountFlags {
	if val := ctx.Value(FlagsKey); val != nil {
		if flags, ok := val.(*models.AccountFlags); ok {
			return flags
		}
	}
	return nil
}

// WithClientIP adds the client address to the context
func WithClientIP(ctx context.Context, ip string) context.Context {
	return context.WithValue(ctx, ClientIPKey, ip)
}

// GetClientIPFromContext retrieves the client address from context
func GetClientIPFromContext(ctx context.Context) string {
	if val := ctx.Value(ClientIPKey); val != nil {
		if ip, ok := val.(string); ok {
			return ip
		}
	}
	return ""
}

// WithOperator records whether the caller qualified as an operator.
// The admin email list makes this strictly wider than the stored role,
// so handlers consult this mark rather than re-deriving it.
func WithOperator(ctx context.Context, operator bool) context.Context {
	return context.WithValue(ctx, OperatorKey, operator)
}

// IsOperatorFromContext reports the pipeline's operator decision
func IsOperatorFromContext(ctx context.Context) bool {
	if val := ctx.Value(OperatorKey); val != nil {
		if operator, ok := val.(bool); ok {
			return operator
		}
	}
	return false
}

// ClientIP derives the client address from forwarding headers, falling
// back to the connection's remote address.
func ClientIP(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		if idx := strings.Index(fwd, ","); idx >= 0 {
			fwd = fwd[:idx]
		}
		if ip := strings.TrimSpace(fwd); ip != "" {
			return ip
		}
	}
	if ip := r.Header.Get("X-Real-IP"); ip != "" {
		return ip
	}
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	if r.RemoteAddr != "" {
		return r.RemoteAddr
	}
	return "anonymous"
}
