package routes

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/upb/llm-router/app"
	"github.com/upb/llm-router/handlers"
)

// SetupRoutes configures all application routes and middleware
func SetupRoutes(deps *app.Dependencies) http.Handler {
	r := chi.NewRouter()

	// Core middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(30 * time.Second))

	// CORS middleware
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"http://localhost:*", "https://*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// Health check endpoints
	r.Get("/healthz", handlers.HealthCheck(deps))
	r.Get("/readyz", handlers.ReadinessCheck(deps))

	// API v1 routes
	r.Route("/api/v1", func(r chi.Router) {
		// Gateway-facing routing surface
		r.Post("/route", handlers.RouteHandler(deps))
		r.Post("/decisions/{id}/outcome", handlers.RecordOutcomeHandler(deps))

		// Decision query surface for the retraining pipeline
		r.Route("/decisions", func(r chi.Router) {
			r.Use(deps.AuthMiddleware.RequireAuth)
			r.Get("/", handlers.ListDecisionsHandler(deps))
		})

		// Executor management (operator tooling)
		r.Route("/executors", func(r chi.Router) {
			r.Use(deps.AuthMiddleware.RequireAuth)
			r.Get("/", handlers.ListExecutorsHandler(deps))
			r.Post("/", handlers.RegisterExecutorHandler(deps))
			r.Delete("/{id}", handlers.DeregisterExecutorHandler(deps))
		})

		// Policy management (operator tooling)
		r.Route("/policies", func(r chi.Router) {
			r.Use(deps.AuthMiddleware.RequireAuth)
			r.Get("/", handlers.ListPoliciesHandler(deps))
			r.Post("/", handlers.CreatePolicyHandler(deps))
			r.Get("/{id}", handlers.GetPolicyHandler(deps))
			r.Put("/{id}", handlers.UpdatePolicyHandler(deps))
			r.Delete("/{id}", handlers.DeletePolicyHandler(deps))
		})

		// Ability checkpoint management (operator tooling)
		r.Route("/scoring", func(r chi.Router) {
			r.Use(deps.AuthMiddleware.RequireAuth)
			r.Put("/checkpoint", handlers.ReloadCheckpointHandler(deps))
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
