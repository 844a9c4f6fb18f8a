package routes

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/routeworks/llm-router/app"
	"github.com/routeworks/llm-router/handlers"
)

// SetupRoutes configures all application routes and middleware
func SetupRoutes(deps *app.Dependencies) http.Handler {
	r := chi.NewRouter()

	// Core middleware
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Logger)
	r.Use(chimiddleware.Recoverer)

	// CORS middleware
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"http://localhost:*", "https://*"},
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	routerHandler := handlers.NewRouterHandler(deps.Dispatch, deps.Logger)
	comparisonHandler := handlers.NewComparisonHandler(deps.Comparison, deps.Logger)
	analyticsHandler := handlers.NewAnalyticsHandler(deps.Analytics, deps.Logger)
	modeHandler := handlers.NewModeHandler(deps.Admission, deps.Logger)
	healthHandler := handlers.NewHealthHandler(deps.DB.DB, deps.Admission, deps.Logger)

	// Health check endpoints
	r.Get("/health", healthHandler.HandleHealth)
	r.Get("/health/ready", healthHandler.HandleReadiness)

	r.Route("/api", func(r chi.Router) {
		r.Use(deps.RateLimiter.Limit)

		r.Get("/mode", modeHandler.HandleMode)
		r.Post("/classify", routerHandler.HandleClassify)

		// Streaming endpoints; no per-request timeout middleware here, the
		// server's write timeout bounds them.
		r.Post("/complete", routerHandler.HandleComplete)
		r.Post("/compare/stream", comparisonHandler.HandleCompareStream)

		r.Post("/compare", comparisonHandler.HandleCompare)
		r.Post("/compare/{sessionID}/vote", comparisonHandler.HandleVote)
		r.Get("/compare/history", analyticsHandler.HandleComparisonHistory)

		r.Route("/analytics", func(r chi.Router) {
			r.Use(chimiddleware.Timeout(30 * time.Second))
			r.Get("/summary", analyticsHandler.HandleSummary)
			r.Get("/timeseries", analyticsHandler.HandleTimeseries)
			r.Get("/model-distribution", analyticsHandler.HandleModelDistribution)
			r.Get("/cost-comparison", analyticsHandler.HandleCostComparison)
			r.Get("/recent", analyticsHandler.HandleRecent)
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
