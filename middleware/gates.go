package middleware

import (
	"net/url"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/subnido/subgate/models"
	"github.com/subnido/subgate/services"
)

// rateGate throttles API traffic per client address. It runs before any
// other work so an abusive client costs one map operation, not an
// identity-provider round trip.
func (p *Pipeline) rateGate(st *requestState) *Disposition {
	if !isAPIPath(st.path) {
		return nil
	}

	result, err := p.limiter.Check(st.r.Context(), "rate:"+st.clientIP, st.settings.RateLimit, st.settings.RateWindow)
	if err != nil {
		// counting is best-effort: a broken counter store must not
		// take the API down with it
		p.logger.Warn("rate limit check failed, allowing request",
			zap.Error(err),
			zap.String("client_ip", st.clientIP))
		return nil
	}

	h := st.w.Header()
	h.Set("X-RateLimit-Limit", strconv.Itoa(result.Limit))
	h.Set("X-RateLimit-Remaining", strconv.Itoa(result.Remaining))

	if !result.Allowed {
		return RejectTooManyRequests(time.Until(result.ResetAt), result.ResetAt)
	}

	return nil
}

// sessionGate resolves the caller's session and account flags. It never
// terminates the request: absent or invalid credentials simply leave the
// request anonymous, and a failed flags fetch is recorded for the gates
// that must decide fail-open versus fail-closed.
func (p *Pipeline) sessionGate(st *requestState) *Disposition {
	token := extractToken(st.r)
	if token == "" {
		return nil
	}

	ctx, cancel := p.upstreamContext(st.r)
	defer cancel()

	session, err := p.provider.ValidateSession(ctx, token)
	if err != nil {
		p.logger.Debug("session validation failed, treating as anonymous",
			zap.Error(err),
			zap.String("path", st.path))
		return nil
	}
	st.session = session

	flags, err := p.accounts.Flags(ctx, session.SubjectID)
	switch {
	case err == nil:
		st.flags = flags
	case services.IsNotFoundError(err):
		// authenticated but not yet provisioned: ordinary user whose
		// admin standing can still come from the email list
		st.flags = &models.AccountFlags{
			SubjectID: session.SubjectID,
			Email:     session.Email,
			Role:      models.RoleUser,
		}
	default:
		st.flagsErr = err
		p.logger.Warn("account flags fetch failed",
			zap.Error(err),
			zap.String("subject_id", session.SubjectID.String()))
	}

	return nil
}

// maintenanceGate redirects everything except operators to the
// maintenance page while the flag is up. A failed flags fetch does not
// grant bypass: the caller goes to the maintenance page like everyone
// else rather than being trusted as an admin.
func (p *Pipeline) maintenanceGate(st *requestState) *Disposition {
	if !st.settings.MaintenanceMode {
		return nil
	}
	if st.path == "/maintenance" {
		return nil
	}
	if st.session != nil && st.flagsErr == nil && isAdmin(st.settings, st.flags) {
		return nil
	}

	return Redirect("/maintenance")
}

// banGate forces banned accounts out before any route-tier logic runs,
// so a banned admin never reaches privileged routes.
func (p *Pipeline) banGate(st *requestState) *Disposition {
	if st.session == nil || st.flags == nil || !st.flags.IsBanned {
		return nil
	}

	ctx, cancel := p.upstreamContext(st.r)
	defer cancel()

	if err := p.provider.InvalidateSession(ctx, st.session.Token); err != nil {
		p.logger.Warn("failed to invalidate banned session",
			zap.Error(err),
			zap.String("subject_id", st.session.SubjectID.String()))
	}

	p.logger.Info("banned account turned away",
		zap.String("subject_id", st.session.SubjectID.String()),
		zap.String("path", st.path))

	return Redirect("/banned").WithSessionCleared()
}

// isAdminPath covers both the admin pages and the admin API
func isAdminPath(path string) bool {
	return strings.HasPrefix(path, "/admin") || strings.HasPrefix(path, "/api/v1/admin")
}

// routeTierGate enforces the per-prefix authorization tiers.
func (p *Pipeline) routeTierGate(st *requestState) *Disposition {
	if isAdminPath(st.path) {
		return p.adminTier(st)
	}

	if strings.HasPrefix(st.path, "/dashboard") {
		if st.session == nil {
			return Redirect("/login?redirectTo=" + url.QueryEscape(st.path))
		}
		// best-effort, never blocks the redirect-free pass-through
		p.accounts.TouchLastSeen(st.session.SubjectID)
		return nil
	}

	return nil
}

// adminTier requires a session, operator standing, and no upstream doubt.
// Anonymous probes are redirected without an audit entry: there is no
// actor to attribute them to.
func (p *Pipeline) adminTier(st *requestState) *Disposition {
	if st.session == nil {
		return Redirect("/unauthorized")
	}

	userAgent := st.r.UserAgent()

	// fail closed on upstream doubt: privileged routes need a definite answer
	if st.flagsErr != nil || !isAdmin(st.settings, st.flags) {
		_ = p.audit.RecordUnauthorizedAdminAccess(st.session.SubjectID, st.path, st.clientIP, userAgent)
		return Redirect("/unauthorized")
	}

	// API calls under the admin tier are not double-logged
	if !isAPIPath(st.path) {
		_ = p.audit.RecordAdminPageAccess(st.session.SubjectID, st.path, st.clientIP, userAgent)
	}

	return nil
}

// authRouteGate keeps already-authenticated callers off the login and
// registration pages.
func (p *Pipeline) authRouteGate(st *requestState) *Disposition {
	if st.path != "/login" && st.path != "/register" {
		return nil
	}
	if st.session == nil {
		return nil
	}

	return Redirect("/dashboard")
}

// callbackGate exchanges the one-time authorization code for a session,
// syncs the account profile, and delivers the one-time welcome
// notification. Every failure mode collapses to the same login redirect
// with a distinguishing error code and no side effects.
func (p *Pipeline) callbackGate(st *requestState) *Disposition {
	if st.path != "/auth/callback" {
		return nil
	}

	fail := Redirect("/login?error=auth_callback_error")

	query := st.r.URL.Query()
	code := query.Get("code")
	if code == "" {
		return fail
	}

	if cookie, err := st.r.Cookie(stateCookieName); err == nil && cookie.Value != "" {
		p.clearStateCookie(st.w)
		if query.Get("state") != cookie.Value {
			p.logger.Warn("oauth state mismatch", zap.String("client_ip", st.clientIP))
			return fail
		}
	}

	ctx, cancel := p.upstreamContext(st.r)
	defer cancel()

	token, err := p.provider.ExchangeCode(ctx, code)
	if err != nil {
		p.logger.Warn("oauth code exchange failed",
			zap.Error(err),
			zap.String("client_ip", st.clientIP))
		return fail
	}

	session, err := p.provider.ValidateSession(ctx, token)
	if err != nil {
		p.logger.Warn("exchanged token failed validation", zap.Error(err))
		return fail
	}

	if _, err := p.accounts.SyncProfile(ctx, session); err != nil {
		// the session itself is good; the profile sync retries on the
		// next login, and the welcome must wait for the account row
		p.logger.Warn("profile sync failed after code exchange",
			zap.Error(err),
			zap.String("subject_id", session.SubjectID.String()))
	} else if _, err := p.notify.WelcomeIfNew(ctx, session.SubjectID); err != nil {
		p.logger.Warn("welcome notification failed",
			zap.Error(err),
			zap.String("subject_id", session.SubjectID.String()))
	}

	target := safeReturnTarget(query.Get("redirectTo"))
	return Redirect(target).WithSession(session.Token, session.ExpiresAt)
}

// logoutGate ends the session and sends the caller home. Idempotent:
// the outcome is identical whether or not a session existed.
func (p *Pipeline) logoutGate(st *requestState) *Disposition {
	if st.path != "/logout" {
		return nil
	}

	if token := extractToken(st.r); token != "" {
		ctx, cancel := p.upstreamContext(st.r)
		defer cancel()

		if err := p.provider.InvalidateSession(ctx, token); err != nil {
			p.logger.Warn("session revoke failed during logout", zap.Error(err))
		}
	}

	return Redirect("/").WithSessionCleared()
}
