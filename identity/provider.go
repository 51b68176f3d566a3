package identity

import (
	"context"
	"net/url"
	"strings"
)

// Provider is the identity-provider surface the pipeline consumes:
// session validation, OAuth code exchange, and session invalidation.
type Provider interface {
	ValidateSession(ctx context.Context, token string) (*Session, error)
	ExchangeCode(ctx context.Context, code string) (string, error)
	InvalidateSession(ctx context.Context, token string) error
}

// HostedProvider combines the JWKS validator and the hosted-UI exchanger
// into the Provider interface.
type HostedProvider struct {
	validator *Validator
	exchanger *Exchanger
	domain    string
	clientID  string
	redirect  string
}

// NewHostedProvider creates a Provider backed by the hosted identity service
func NewHostedProvider(validator *Validator, exchanger *Exchanger, domain, clientID, redirectURI string) *HostedProvider {
	return &HostedProvider{
		validator: validator,
		exchanger: exchanger,
		domain:    domain,
		clientID:  clientID,
		redirect:  redirectURI,
	}
}

// ValidateSession validates a session token
func (p *HostedProvider) ValidateSession(ctx context.Context, token string) (*Session, error) {
	return p.validator.ValidateSession(ctx, token)
}

// ExchangeCode exchanges an authorization code for a session token
func (p *HostedProvider) ExchangeCode(ctx context.Context, code string) (string, error) {
	return p.exchanger.ExchangeCode(ctx, code)
}

// InvalidateSession revokes a session token at the provider
func (p *HostedProvider) InvalidateSession(ctx context.Context, token string) error {
	return p.exchanger.Revoke(ctx, token)
}

// AuthorizeURL builds the hosted-UI authorization URL for login redirects
func (p *HostedProvider) AuthorizeURL(state string) string {
	base := strings.TrimSuffix(p.domain, "/") + "/oauth2/authorize"
	params := url.Values{
		"response_type": {"code"},
		"client_id":     {p.clientID},
		"redirect_uri":  {p.redirect},
		"state":         {state},
		"scope":         {"openid email profile"},
	}
	return base + "?" + params.Encode()
}
