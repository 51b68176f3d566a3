package config

import (
	"os"
	"strings"
	"sync"
	"time"
)

// Settings is the dynamic configuration slice the pipeline reads at decision time:
// maintenance flag, admin identities, and rate-limit parameters. Unlike Config it
// must be observable as changing between requests without a restart.
type Settings struct {
	MaintenanceMode bool
	AdminEmails     []string
	RateLimit       int
	RateWindow      time.Duration
}

// IsAdminEmail reports whether the email is on the configured admin list.
// Comparison is case-insensitive.
func (s Settings) IsAdminEmail(email string) bool {
	if email == "" {
		return false
	}
	for _, admin := range s.AdminEmails {
		if strings.EqualFold(admin, email) {
			return true
		}
	}
	return false
}

// SettingsProvider returns the current dynamic settings.
type SettingsProvider interface {
	Current() Settings
}

// RuntimeSettings re-reads the dynamic environment surface on a short TTL,
// so operators can flip maintenance mode or edit the admin list without a
// restart. Reads between refreshes return the cached snapshot.
type RuntimeSettings struct {
	refreshEvery time.Duration

	mu        sync.RWMutex
	snapshot  Settings
	refreshed time.Time
}

// NewRuntimeSettings creates a RuntimeSettings provider with the given refresh interval.
// The first snapshot is taken immediately.
func NewRuntimeSettings(refreshEvery time.Duration) *RuntimeSettings {
	if refreshEvery <= 0 {
		refreshEvery = 10 * time.Second
	}
	r := &RuntimeSettings{refreshEvery: refreshEvery}
	r.snapshot = readSettings()
	r.refreshed = time.Now()
	return r
}

// Current returns the current settings snapshot, refreshing it when stale.
func (r *RuntimeSettings) Current() Settings {
	r.mu.RLock()
	if time.Since(r.refreshed) < r.refreshEvery {
		s := r.snapshot
		r.mu.RUnlock()
		return s
	}
	r.mu.RUnlock()

	r.mu.Lock()
	defer r.mu.Unlock()
	// Another request may have refreshed while we waited for the lock
	if time.Since(r.refreshed) >= r.refreshEvery {
		r.snapshot = readSettings()
		r.refreshed = time.Now()
	}
	return r.snapshot
}

// Invalidate forces the next Current call to re-read the environment.
func (r *RuntimeSettings) Invalidate() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.refreshed = time.Time{}
}

func readSettings() Settings {
	return Settings{
		MaintenanceMode: getEnvAsBool("MAINTENANCE_MODE", false),
		AdminEmails:     splitList(os.Getenv("ADMIN_EMAILS")),
		RateLimit:       getEnvAsInt("RATE_LIMIT", 100),
		RateWindow:      getEnvAsDuration("RATE_WINDOW", 15*time.Minute),
	}
}

func splitList(raw string) []string {
	if raw == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
