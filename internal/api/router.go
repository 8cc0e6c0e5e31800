package api

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/rosterlab/rosterlab/internal/api/handlers"
	"github.com/rosterlab/rosterlab/internal/api/middleware"
	"github.com/rosterlab/rosterlab/internal/config"
	"github.com/rosterlab/rosterlab/internal/metrics"
	"github.com/rosterlab/rosterlab/pkg/contracts"
)

// Deps are the collaborators the router wires into routes.
type Deps struct {
	Config         *config.Config
	Handlers       *handlers.Handlers
	Auth           contracts.AuthProviderChain
	SuggestLimiter contracts.RateLimiter
	ReviewLimiter  contracts.RateLimiter
	Metrics        *metrics.Recorder
}

// NewRouter creates the HTTP router with all API routes.
func NewRouter(d Deps) http.Handler {
	cfg := d.Config
	r := chi.NewRouter()

	// Global middleware
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(chimw.Recoverer)
	r.Use(middleware.Logger)
	r.Use(middleware.Telemetry)
	r.Use(cors.Handler(corsOptions(cfg.Server)))

	// Health, info & metrics (public)
	r.Get("/health", healthHandler(cfg, d.Handlers.Store))
	r.Get("/version", versionHandler(cfg))
	r.Method(http.MethodGet, "/metrics", d.Metrics.Handler())

	// API v1
	r.Route("/api/v1", func(r chi.Router) {
		if cfg.Server.Production() {
			r.Use(middleware.SameOrigin(cfg.Server.ExpectedOrigin))
		}
		r.Use(middleware.NewAuthMiddleware(d.Auth, cfg.Auth.RequireAuth).Handler)

		r.With(middleware.RateLimit("suggest", d.SuggestLimiter, d.Metrics)).
			Post("/suggest", d.Handlers.Suggest)
		r.With(middleware.RateLimit("review", d.ReviewLimiter, d.Metrics)).
			Post("/review", d.Handlers.Review)

		r.Route("/candidates", func(r chi.Router) {
			r.Get("/", d.Handlers.ListCandidates)
			r.Get("/{id}", d.Handlers.GetCandidate)
		})
	})

	return r
}

func corsOptions(s config.ServerConfig) cors.Options {
	origins := []string{"*"}
	if s.ExpectedOrigin != "" {
		origins = []string{s.ExpectedOrigin}
	}
	return cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-API-Key", "X-Request-Id"},
		ExposedHeaders:   []string{"X-Request-Id", "X-Trace-Id", "Retry-After"},
		AllowCredentials: s.ExpectedOrigin != "",
		MaxAge:           300,
	}
}

func healthHandler(cfg *config.Config, cs contracts.CandidateStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		status, code := "healthy", http.StatusOK
		storeStatus := "ok"
		if err := cs.HealthCheck(ctx); err != nil {
			status, code, storeStatus = "degraded", http.StatusServiceUnavailable, err.Error()
		}
		respondJSON(w, code, map[string]string{
			"status":      status,
			"service":     cfg.Telemetry.ServiceName,
			"store":       cs.Kind(),
			"storeStatus": storeStatus,
		})
	}
}

func versionHandler(cfg *config.Config) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		respondJSON(w, http.StatusOK, map[string]string{
			"version": cfg.Server.Version,
			"service": cfg.Telemetry.ServiceName,
		})
	}
}

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}
