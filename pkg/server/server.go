// Package server provides the public entry point for initializing the
// RosterLab API server.
//
// Usage:
//
//	cfg, _ := config.Load()
//	srv, err := server.New(ctx, cfg)
//	defer srv.Close(ctx)
//	http.ListenAndServe(":8080", srv.Handler)
package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/rosterlab/rosterlab/internal/api"
	"github.com/rosterlab/rosterlab/internal/api/handlers"
	"github.com/rosterlab/rosterlab/internal/auth"
	"github.com/rosterlab/rosterlab/internal/config"
	"github.com/rosterlab/rosterlab/internal/eligibility"
	"github.com/rosterlab/rosterlab/internal/generation"
	"github.com/rosterlab/rosterlab/internal/metrics"
	"github.com/rosterlab/rosterlab/internal/movepool"
	"github.com/rosterlab/rosterlab/internal/ratelimit"
	"github.com/rosterlab/rosterlab/internal/review"
	"github.com/rosterlab/rosterlab/internal/store"
	"github.com/rosterlab/rosterlab/internal/suggest"
	"github.com/rosterlab/rosterlab/internal/telemetry"
	"github.com/rosterlab/rosterlab/pkg/contracts"
)

// Server holds the initialized RosterLab server.
type Server struct {
	// Handler is the HTTP handler with all routes and middleware.
	Handler http.Handler

	// Store is the candidate store selected by configuration.
	Store contracts.CandidateStore

	Config *config.Config

	// Port is the port the server should listen on.
	Port int

	// WriteTimeout covers the longest request: every generation attempt
	// timing out in turn.
	WriteTimeout time.Duration

	stop     context.CancelFunc
	shutdown func(context.Context) error
}

// initTelemetry is swapped in tests.
var initTelemetry = telemetry.Init

// New initializes every component and returns a ready Server. Background
// workers (rate-limit sweepers) run until Close.
func New(ctx context.Context, cfg *config.Config) (*Server, error) {
	shutdown, err := initTelemetry(ctx, cfg.Telemetry, cfg.Server.Version)
	if err != nil {
		return nil, fmt.Errorf("init telemetry: %w", err)
	}
	// fail flushes the tracer provider before a partial start returns.
	fail := func(err error) (*Server, error) {
		if serr := shutdown(ctx); serr != nil {
			log.Warn().Err(serr).Msg("Telemetry shutdown failed")
		}
		return nil, err
	}

	m := metrics.New()

	cs, err := openStore(ctx, cfg)
	if err != nil {
		return fail(err)
	}

	filter, err := eligibility.NewFilter(cfg.Catalog.FormatRules)
	if err != nil {
		cs.Close()
		return fail(fmt.Errorf("format rules: %w", err))
	}
	log.Info().Int("formats", len(cfg.Catalog.FormatRules)).Msg("✅ Eligibility filter initialized")

	providers, err := buildProviders(ctx, cfg.Generation)
	if err != nil {
		cs.Close()
		return fail(err)
	}
	gen := generation.NewClient(providers,
		generation.WithAttemptTimeout(cfg.Generation.AttemptTimeout),
		generation.WithMetrics(m),
	)
	log.Info().Strs("models", gen.Models()).Msg("✅ Generation client initialized")

	suggestOpts := []suggest.Option{suggest.WithMetrics(m)}
	if cfg.Movepool.Enabled {
		suggestOpts = append(suggestOpts, suggest.WithMovepool(movepool.New(cfg.Movepool.BaseURL,
			movepool.WithConcurrency(cfg.Movepool.Concurrency),
			movepool.WithCacheTTL(cfg.Movepool.CacheTTL),
			movepool.WithMetrics(m),
		)))
		log.Info().Str("base_url", cfg.Movepool.BaseURL).Msg("✅ Movepool resolver initialized")
	}

	chain := auth.NewProviderChain(
		auth.NewSessionProvider(cfg.Auth.SessionSecret),
		auth.NewAPIKeyProvider(cfg.Auth.APIKeys),
	)

	suggestLimiter := ratelimit.New(cfg.RateLimit.SuggestLimit, cfg.RateLimit.SuggestWindow)
	reviewLimiter := ratelimit.New(cfg.RateLimit.ReviewLimit, cfg.RateLimit.ReviewWindow)
	workerCtx, stop := context.WithCancel(context.Background())
	go suggestLimiter.Run(workerCtx, cfg.RateLimit.SweepInterval)
	go reviewLimiter.Run(workerCtx, cfg.RateLimit.SweepInterval)
	log.Info().
		Int("suggest_limit", cfg.RateLimit.SuggestLimit).
		Dur("suggest_window", cfg.RateLimit.SuggestWindow).
		Int("review_limit", cfg.RateLimit.ReviewLimit).
		Dur("review_window", cfg.RateLimit.ReviewWindow).
		Msg("✅ Rate limiters initialized")

	router := api.NewRouter(api.Deps{
		Config: cfg,
		Handlers: &handlers.Handlers{
			Suggester: suggest.New(cs, filter, gen, suggestOpts...),
			Reviewer:  review.New(cs, gen, m),
			Store:     cs,
			Filter:    filter,
		},
		Auth:           chain,
		SuggestLimiter: suggestLimiter,
		ReviewLimiter:  reviewLimiter,
		Metrics:        m,
	})

	attempts := len(providers)
	srv := &Server{
		Handler:      router,
		Store:        cs,
		Config:       cfg,
		Port:         cfg.Server.Port,
		WriteTimeout: time.Duration(attempts)*cfg.Generation.AttemptTimeout + 30*time.Second,
		stop:         stop,
		shutdown:     shutdown,
	}
	return srv, nil
}

// Close stops background workers, releases the store and flushes traces.
func (s *Server) Close(ctx context.Context) error {
	s.stop()
	s.Store.Close()
	return s.shutdown(ctx)
}

func openStore(ctx context.Context, cfg *config.Config) (contracts.CandidateStore, error) {
	if cfg.Database.URL != "" {
		cs, err := store.NewPgvectorStore(ctx, cfg.Database.URL, int32(cfg.Database.MaxConnections))
		if err != nil {
			return nil, fmt.Errorf("open pgvector store: %w", err)
		}
		return cs, nil
	}
	cands, err := store.LoadCatalog(cfg.Catalog.Path)
	if err != nil {
		return nil, fmt.Errorf("load catalog: %w", err)
	}
	return store.NewMemoryStore(cands), nil
}

func buildProviders(ctx context.Context, g config.GenerationConfig) ([]contracts.Provider, error) {
	var providers []contracts.Provider
	if len(g.Models) > 0 {
		if g.APIKey == "" {
			return nil, errors.New("generation: GEMINI_API_KEY or GOOGLE_API_KEY is required")
		}
		client, err := generation.NewGeminiClient(ctx, g.APIKey)
		if err != nil {
			return nil, fmt.Errorf("generation client: %w", err)
		}
		for _, model := range g.Models {
			providers = append(providers, generation.NewGeminiProvider(client, model, g.Temperature))
		}
	}
	if g.OpenAIEndpoint != "" && g.OpenAIModel != "" {
		providers = append(providers, generation.NewOpenAIProvider(g.OpenAIEndpoint, g.OpenAIKey, g.OpenAIModel, g.Temperature))
	}
	if len(providers) == 0 {
		return nil, errors.New("generation: no models configured")
	}
	return providers, nil
}
