package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/upb/tenant-notes/app"
	"github.com/upb/tenant-notes/middleware"
	"github.com/upb/tenant-notes/utils"
)

// SetupRoutes configures all application routes and middleware
func SetupRoutes(deps *app.Dependencies) http.Handler {
	r := chi.NewRouter()

	// Core middleware
	r.Use(chimw.RequestID)
	r.Use(middleware.ExposeRequestID)
	if deps.Config.Server.TrustProxyHeaders {
		r.Use(chimw.RealIP)
	}
	r.Use(middleware.RequestLogger(deps.Logger))
	if deps.Config.Observability.MetricsEnabled {
		r.Use(middleware.Instrument(deps.Metrics))
	}
	r.Use(chimw.Recoverer)
	r.Use(chimw.Timeout(deps.Config.Server.RequestTimeout))

	// CORS middleware
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   deps.Config.CORS.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"X-Request-ID"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	// Health check endpoints
	r.Get("/healthz", deps.HealthHandler.HandleHealth)
	r.Get("/readyz", deps.HealthHandler.HandleReadiness)
	if deps.Config.Observability.MetricsEnabled {
		r.Method(http.MethodGet, "/metrics", deps.Metrics.Handler())
	}

	r.Post("/auth/login", deps.AuthHandler.HandleLogin)

	auth := deps.AuthMiddleware

	r.Group(func(r chi.Router) {
		r.Use(auth.RequireAuth)

		r.Get("/me", deps.AuthHandler.HandleMe)

		r.Route("/notes", func(r chi.Router) {
			r.Get("/", deps.NotesHandler.HandleList)
			r.Post("/", deps.NotesHandler.HandleCreate)
			r.Get("/{id}", deps.NotesHandler.HandleGet)
			r.Put("/{id}", deps.NotesHandler.HandleUpdate)
			r.Delete("/{id}", deps.NotesHandler.HandleDelete)
		})

		// Tenant administration (admin of the tenant in the path)
		r.Route("/tenants/{slug}", func(r chi.Router) {
			r.Use(auth.RequireTenantAdmin("slug"))
			r.Post("/invite", deps.TenantHandler.HandleInvite)
			r.Post("/upgrade", deps.TenantHandler.HandleUpgrade)
			r.Get("/audit-logs", deps.TenantHandler.HandleAuditLogs)
		})
	})

	// 404 handler
	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		_ = utils.WriteNotFound(w, "Endpoint not found")
	})

	return r
}
