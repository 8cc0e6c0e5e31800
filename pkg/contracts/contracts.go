// Package contracts defines the service interfaces for the RosterLab server.
//
// Handlers and pipelines depend on these interfaces so storage, generation
// providers and rate limiting can be swapped in the wiring code (pkg/server)
// without touching the pipeline.
package contracts

import (
	"context"
	"time"

	"github.com/rosterlab/rosterlab/pkg/models"
)

// ── Candidate Store ──────────────────────────────────────────

// CandidateStore is the query contract of the relational+vector storage.
// OSS ships: in-memory (brute-force cosine) and PostgreSQL with pgvector.
type CandidateStore interface {
	// Kind returns the driver identifier (e.g. "memory", "pgvector").
	Kind() string

	// GetCandidate returns one candidate including its embedding, if any.
	GetCandidate(ctx context.Context, id int) (*models.Candidate, error)

	// GetCandidates returns the candidates that exist among ids, in ids order.
	// Unknown ids are skipped.
	GetCandidates(ctx context.Context, ids []int) ([]models.Candidate, error)

	// RankByPopularity orders by usage (absent as zero) descending with a
	// randomized tie-break.
	RankByPopularity(ctx context.Context, q models.RankQuery) ([]models.Candidate, error)

	// RankBySimilarity orders by cosine distance to anchor, re-weighted by
	// usage popularity, ascending. Candidates without embeddings are skipped.
	RankBySimilarity(ctx context.Context, anchor []float32, q models.RankQuery) ([]models.Candidate, error)

	// Search matches names case-insensitively, most popular first.
	Search(ctx context.Context, term string, limit int) ([]models.Candidate, error)

	// HealthCheck verifies the backing store is reachable.
	HealthCheck(ctx context.Context) error

	Close()
}

// ── Generation Provider ──────────────────────────────────────

// Provider is one entry of the ordered generation fallback list.
// OSS ships: Gemini (google genai SDK) and any OpenAI-compatible endpoint.
type Provider interface {
	// Name returns the model identifier used for logging and metrics.
	Name() string

	// Generate sends the prompt and returns the raw response text.
	Generate(ctx context.Context, prompt string) (string, error)
}

// Generator produces raw text for a prompt, hiding the provider fallback.
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// ── Rate Limiter ─────────────────────────────────────────────

// RateLimiter decides whether a request identified by key may proceed.
// When it may not, retryAfter is how long until the oldest counted request
// leaves the window.
type RateLimiter interface {
	Allow(key string) (allowed bool, retryAfter time.Duration)
}

// ── Movepool Resolver ────────────────────────────────────────

// MovepoolResolver returns the legal move names of a candidate.
type MovepoolResolver interface {
	LegalMoves(ctx context.Context, name string) ([]string, error)
}
