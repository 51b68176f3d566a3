package identity

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// ErrExchangeFailed is returned when the authorization code exchange is
// rejected by the provider (invalid, expired, or already-consumed code).
var ErrExchangeFailed = errors.New("code exchange failed")

// TokenResponse represents the OAuth2 token endpoint response
type TokenResponse struct {
	IDToken      string `json:"id_token"`
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresIn    int    `json:"expires_in"`
	TokenType    string `json:"token_type"`
}

// ExchangerConfig holds configuration for the code exchanger
type ExchangerConfig struct {
	Domain       string // Hosted auth domain
	ClientID     string
	ClientSecret string
	RedirectURI  string
	HTTPTimeout  time.Duration
}

// Exchanger exchanges one-time OAuth2 authorization codes for session tokens
// via the provider's token endpoint.
type Exchanger struct {
	cfg        ExchangerConfig
	httpClient *http.Client
}

// NewExchanger creates a new code exchanger
func NewExchanger(cfg ExchangerConfig) *Exchanger {
	timeout := cfg.HTTPTimeout
	if timeout == 0 {
		timeout = 5 * time.Second
	}
	return &Exchanger{
		cfg: cfg,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// ExchangeCode exchanges an authorization code for the session (ID) token.
// A provider rejection (expired or already-consumed code) is reported as
// ErrExchangeFailed; transport errors are returned as-is.
func (e *Exchanger) ExchangeCode(ctx context.Context, code string) (string, error) {
	if e.cfg.Domain == "" || e.cfg.ClientID == "" {
		return "", fmt.Errorf("identity provider not configured")
	}

	tokenURL := strings.TrimSuffix(e.cfg.Domain, "/") + "/oauth2/token"
	data := url.Values{
		"grant_type":   {"authorization_code"},
		"client_id":    {e.cfg.ClientID},
		"code":         {code},
		"redirect_uri": {e.cfg.RedirectURI},
	}

	if e.cfg.ClientSecret != "" {
		data.Set("client_secret", e.cfg.ClientSecret)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, tokenURL, strings.NewReader(data.Encode()))
	if err != nil {
		return "", fmt.Errorf("create token request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := e.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("token request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read token response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("%w: status %d", ErrExchangeFailed, resp.StatusCode)
	}

	var tokenResp TokenResponse
	if err := json.Unmarshal(body, &tokenResp); err != nil {
		return "", fmt.Errorf("parse token response: %w", err)
	}

	if tokenResp.IDToken == "" {
		return "", fmt.Errorf("%w: no id_token in response", ErrExchangeFailed)
	}

	return tokenResp.IDToken, nil
}

// Revoke invalidates a session token at the provider. Revocation failure is
// reported to the caller but logout must treat it as best-effort.
func (e *Exchanger) Revoke(ctx context.Context, token string) error {
	if e.cfg.Domain == "" {
		return nil
	}

	revokeURL := strings.TrimSuffix(e.cfg.Domain, "/") + "/oauth2/revoke"
	data := url.Values{
		"token":     {token},
		"client_id": {e.cfg.ClientID},
	}
	if e.cfg.ClientSecret != "" {
		data.Set("client_secret", e.cfg.ClientSecret)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, revokeURL, strings.NewReader(data.Encode()))
	if err != nil {
		return fmt.Errorf("create revoke request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := e.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("revoke request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("revoke failed: status %d", resp.StatusCode)
	}

	return nil
}
