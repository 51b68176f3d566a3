package routes

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/subnido/subgate/app"
	"github.com/subnido/subgate/handlers"
)

// SetupRoutes configures the router behind the governance pipeline.
// The pipeline wraps everything: it settles rate limits, sessions,
// maintenance, bans, and route-tier access before any handler runs, so
// /auth/callback and /logout never reach the router at all.
func SetupRoutes(deps *app.Dependencies) http.Handler {
	r := chi.NewRouter()

	// Core middleware
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Logger)
	r.Use(chimiddleware.Recoverer)
	r.Use(chimiddleware.Timeout(60 * time.Second))

	// CORS middleware
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"http://localhost:*", "https://*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Link", "X-Request-ID", "X-RateLimit-Limit", "X-RateLimit-Remaining"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Use(deps.Pipeline.Handler)

	// Health check endpoints
	r.Get("/healthz", handlers.HealthCheck(deps))
	r.Get("/readyz", handlers.ReadinessCheck(deps))

	// OAuth2 login entry point; callback and logout terminate in the pipeline
	r.Get("/auth/login", handlers.AuthLoginHandler(deps))

	// Page shells
	r.Get("/", handlers.PageHandler(deps, "home"))
	r.Get("/login", handlers.PageHandler(deps, "login"))
	r.Get("/register", handlers.PageHandler(deps, "register"))
	r.Get("/maintenance", handlers.PageHandler(deps, "maintenance"))
	r.Get("/banned", handlers.PageHandler(deps, "banned"))
	r.Get("/unauthorized", handlers.PageHandler(deps, "unauthorized"))
	r.Get("/dashboard", handlers.PageHandler(deps, "dashboard"))
	r.Get("/dashboard/*", handlers.PageHandler(deps, "dashboard"))
	r.Get("/admin", handlers.PageHandler(deps, "admin"))
	r.Get("/admin/*", handlers.PageHandler(deps, "admin"))

	subdomainHandler := handlers.NewSubdomainHandler(deps.SubdomainService, deps.Logger)
	notificationHandler := handlers.NewNotificationHandler(deps.NotifyService, deps.Logger)
	userHandler := handlers.NewUserHandler(deps.AccountService, deps.Logger)
	adminHandler := handlers.NewAdminHandler(deps.SubdomainService, deps.AccountService, deps.AuditEntries, deps.Logger)

	// API v1 routes
	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/me", userHandler.HandleMe)

		r.Route("/subdomains", func(r chi.Router) {
			r.Post("/", subdomainHandler.HandleCreate)
			r.Get("/", subdomainHandler.HandleListMine)
			r.Get("/{id}", subdomainHandler.HandleGet)
		})

		r.Route("/notifications", func(r chi.Router) {
			r.Get("/", notificationHandler.HandleList)
			r.Post("/{id}/read", notificationHandler.HandleMarkRead)
		})

		// Operator routes; the pipeline's route-tier gate guards the prefix
		r.Route("/admin", func(r chi.Router) {
			r.Get("/subdomains/pending", adminHandler.HandleListPending)
			r.Post("/subdomains/{id}/review", adminHandler.HandleReview)
			r.Post("/accounts/{id}/ban", adminHandler.HandleSetBan)
			r.Get("/audit", adminHandler.HandleListAudit)
		})
	})

	// 404 handler
	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"error":"endpoint not found"}`))
	})

	return r
}
