package handlers

import (
	"context"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/subnido/subgate/app"
	"github.com/subnido/subgate/utils"
)

// HealthCheck returns a simple liveness handler
func HealthCheck(deps *app.Dependencies) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	}
}

// ReadinessCheck verifies the gateway can actually serve: the database
// answers and the audit recorder is running.
func ReadinessCheck(deps *app.Dependencies) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		checks := map[string]string{}
		healthy := true

		if err := deps.DB.PingContext(ctx); err != nil {
			checks["database"] = "unavailable"
			healthy = false
			deps.Logger.Warn("readiness check failed", zap.Error(err))
		} else {
			checks["database"] = "ok"
		}

		stats := deps.AuditService.GetStats()
		if stats.Started {
			checks["audit"] = "ok"
		} else {
			checks["audit"] = "stopped"
			healthy = false
		}

		status := "ready"
		code := http.StatusOK
		if !healthy {
			status = "degraded"
			code = http.StatusServiceUnavailable
		}

		_ = utils.WriteJSON(w, code, map[string]interface{}{
			"status": status,
			"checks": checks,
		})
	}
}
