package middleware

import (
	"context"
	"net/http"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/subnido/subgate/config"
	"github.com/subnido/subgate/identity"
	"github.com/subnido/subgate/models"
	"github.com/subnido/subgate/services/account"
	"github.com/subnido/subgate/services/audit"
	"github.com/subnido/subgate/services/notify"
	"github.com/subnido/subgate/services/ratelimit"
	"github.com/subnido/subgate/utils"
)

// sessionCookieName carries the session credential between requests.
// The Authorization header takes precedence when both are present.
const sessionCookieName = "session"

// stateCookieName holds the CSRF state set when login is initiated
const stateCookieName = "auth_state"

// apiVersion is stamped on every API response
const apiVersion = "1"

// Pipeline is the request-governance engine. Every inbound request runs
// through its ordered gate chain; the first gate returning a disposition
// ends evaluation, otherwise the request passes through to the router
// with session and flags attached to its context.
type Pipeline struct {
	limiter  *ratelimit.Service
	provider identity.Provider
	accounts *account.Service
	audit    *audit.Service
	notify   *notify.Service
	settings config.SettingsProvider
	logger   *zap.Logger

	// bound on each identity-provider / account-store call so a hung
	// upstream cannot stall the whole pipeline
	upstreamTimeout time.Duration

	secureCookies bool

	gates []gate
}

// gate is one named authorization check. Returning nil continues the
// chain; a Disposition terminates it. Ordering is a contract: rate
// first to bound cost under abuse, maintenance and ban before the
// route-tier checks so a blocked admin never reaches privileged logic.
type gate struct {
	name string
	fn   func(*requestState) *Disposition
}

// Options configures optional pipeline behavior
type Options struct {
	// UpstreamTimeout bounds identity and account-store calls (default 3s)
	UpstreamTimeout time.Duration

	// SecureCookies marks session cookies Secure (on behind TLS)
	SecureCookies bool
}

// NewPipeline creates the governance pipeline with its fixed gate order
func NewPipeline(
	limiter *ratelimit.Service,
	provider identity.Provider,
	accounts *account.Service,
	auditSvc *audit.Service,
	notifySvc *notify.Service,
	settings config.SettingsProvider,
	logger *zap.Logger,
	opts Options,
) *Pipeline {
	if opts.UpstreamTimeout <= 0 {
		opts.UpstreamTimeout = 3 * time.Second
	}

	p := &Pipeline{
		limiter:         limiter,
		provider:        provider,
		accounts:        accounts,
		audit:           auditSvc,
		notify:          notifySvc,
		settings:        settings,
		logger:          logger,
		upstreamTimeout: opts.UpstreamTimeout,
		secureCookies:   opts.SecureCookies,
	}

	p.gates = []gate{
		{"rate", p.rateGate},
		{"session", p.sessionGate},
		{"maintenance", p.maintenanceGate},
		{"ban", p.banGate},
		{"route-tier", p.routeTierGate},
		{"auth-route", p.authRouteGate},
		{"oauth-callback", p.callbackGate},
		{"logout", p.logoutGate},
	}

	return p
}

// requestState accumulates what the gates learn about one request
type requestState struct {
	w        http.ResponseWriter
	r        *http.Request
	settings config.Settings
	path     string
	clientIP string

	session *identity.Session
	flags   *models.AccountFlags

	// flagsErr is set when the account store could not answer; the
	// route-tier gate decides fail-open or fail-closed from it
	flagsErr error
}

// Handler mounts the pipeline as http middleware
func (p *Pipeline) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		st := &requestState{
			w:        w,
			r:        r,
			settings: p.settings.Current(),
			path:     r.URL.Path,
			clientIP: ClientIP(r),
		}

		p.setBaselineHeaders(st)

		for _, g := range p.gates {
			if d := g.fn(st); d != nil {
				p.logger.Debug("request terminated by gate",
					zap.String("gate", g.name),
					zap.String("path", st.path),
					zap.String("client_ip", st.clientIP))
				p.apply(st, d)
				return
			}
		}

		ctx := r.Context()
		ctx = WithClientIP(ctx, st.clientIP)
		if st.session != nil {
			ctx = WithSession(ctx, st.session)
		}
		if st.flags != nil {
			ctx = WithFlags(ctx, st.flags)
			ctx = WithOperator(ctx, st.flagsErr == nil && isAdmin(st.settings, st.flags))
		}

		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// setBaselineHeaders attaches the security headers every response carries
func (p *Pipeline) setBaselineHeaders(st *requestState) {
	h := st.w.Header()
	h.Set("X-Frame-Options", "DENY")
	h.Set("X-Content-Type-Options", "nosniff")
	h.Set("Referrer-Policy", "origin-when-cross-origin")

	if isAPIPath(st.path) {
		h.Set("X-API-Version", apiVersion)
	}
}

// apply writes a terminal disposition to the response
func (p *Pipeline) apply(st *requestState, d *Disposition) {
	if d.ClearSession {
		p.clearSessionCookie(st.w)
	}
	if d.SessionToken != "" {
		p.setSessionCookie(st.w, d.SessionToken, d.SessionExpiry)
	}

	switch d.Kind {
	case DispositionRedirect:
		http.Redirect(st.w, st.r, d.Location, http.StatusTemporaryRedirect)
	case DispositionReject:
		retryAfter := int(d.RetryAfter.Seconds())
		if retryAfter < 1 {
			retryAfter = 1
		}
		st.w.Header().Set("X-RateLimit-Reset", strconv.FormatInt(d.ResetAt.Unix(), 10))
		_ = utils.WriteTooManyRequests(st.w, "Too many requests", retryAfter, map[string]interface{}{
			"reset_at": d.ResetAt.UTC().Format(time.RFC3339),
		})
	}
}

func (p *Pipeline) setSessionCookie(w http.ResponseWriter, token string, expiry time.Time) {
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookieName,
		Value:    token,
		Path:     "/",
		Expires:  expiry,
		HttpOnly: true,
		Secure:   p.secureCookies,
		SameSite: http.SameSiteLaxMode,
	})
}

func (p *Pipeline) clearSessionCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   p.secureCookies,
		SameSite: http.SameSiteLaxMode,
	})
}

func (p *Pipeline) clearStateCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     stateCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   p.secureCookies,
		SameSite: http.SameSiteLaxMode,
	})
}

// upstreamContext bounds a call to the identity provider or account store
func (p *Pipeline) upstreamContext(r *http.Request) (context.Context, context.CancelFunc) {
	return context.WithTimeout(r.Context(), p.upstreamTimeout)
}

// extractToken pulls the session credential from the Authorization
// header or the session cookie. Header takes precedence.
func extractToken(r *http.Request) string {
	if auth := r.Header.Get("Authorization"); auth != "" {
		parts := strings.SplitN(auth, " ", 2)
		if len(parts) == 2 && strings.EqualFold(parts[0], "bearer") {
			return strings.TrimSpace(parts[1])
		}
	}
	if cookie, err := r.Cookie(sessionCookieName); err == nil && cookie.Value != "" {
		return cookie.Value
	}
	return ""
}

func isAPIPath(path string) bool {
	return strings.HasPrefix(path, "/api/")
}

// isAdmin reports whether the account qualifies as an operator: either
// the stored role or membership in the dynamic admin email list.
func isAdmin(settings config.Settings, flags *models.AccountFlags) bool {
	if flags == nil {
		return false
	}
	if flags.Role == models.RoleAdmin {
		return true
	}
	return settings.IsAdminEmail(flags.Email)
}

// safeReturnTarget accepts only same-site paths as post-login redirect
// targets, so the callback cannot be used as an open redirector.
func safeReturnTarget(target string) string {
	if target == "" || !strings.HasPrefix(target, "/") || strings.HasPrefix(target, "//") {
		return "/dashboard"
	}
	return target
}
