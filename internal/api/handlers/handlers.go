// Package handlers implements the RosterLab HTTP API.
package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/rosterlab/rosterlab/internal/api/middleware"
	"github.com/rosterlab/rosterlab/internal/eligibility"
	"github.com/rosterlab/rosterlab/internal/generation"
	"github.com/rosterlab/rosterlab/internal/suggest"
	"github.com/rosterlab/rosterlab/pkg/contracts"
	"github.com/rosterlab/rosterlab/pkg/models"
	pkgmw "github.com/rosterlab/rosterlab/pkg/middleware"
)

// maxBodyBytes caps request bodies; a full roster request is a few KB.
const maxBodyBytes = 1 << 20

// quotaRetryAfter is the wait suggested to clients when every generation
// model is out of quota.
const quotaRetryAfter = 60 * time.Second

// Suggester runs the suggestion pipeline.
type Suggester interface {
	Suggest(ctx context.Context, req models.SuggestRequest) (*models.SuggestResponse, error)
}

// Reviewer runs the review-scoring pipeline.
type Reviewer interface {
	Review(ctx context.Context, req models.ReviewRequest) (*models.ReviewResult, error)
}

// Handlers holds dependencies for the API handlers.
type Handlers struct {
	Suggester Suggester
	Reviewer  Reviewer
	Store     contracts.CandidateStore
	Filter    *eligibility.Filter
}

// Suggest handles POST /api/v1/suggest
func (h *Handlers) Suggest(w http.ResponseWriter, r *http.Request) {
	var req models.SuggestRequest
	if !decodeBody(w, r, &req) {
		return
	}

	resp, err := h.Suggester.Suggest(r.Context(), req)
	if err != nil {
		respondPipelineError(w, r, "suggest", err)
		return
	}
	respondJSON(w, http.StatusOK, resp)
}

// Review handles POST /api/v1/review
func (h *Handlers) Review(w http.ResponseWriter, r *http.Request) {
	var req models.ReviewRequest
	if !decodeBody(w, r, &req) {
		return
	}

	result, err := h.Reviewer.Review(r.Context(), req)
	if err != nil {
		respondPipelineError(w, r, "review", err)
		return
	}
	respondJSON(w, http.StatusOK, result)
}

// ── Helpers ─────────────────────────────────────────────────

func decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		respondError(w, http.StatusBadRequest, models.CodeInvalidRequest, "invalid request body")
		return false
	}
	return true
}

// respondPipelineError maps pipeline errors onto status codes. Upstream
// details stay in the log; clients get a generic message.
func respondPipelineError(w http.ResponseWriter, r *http.Request, endpoint string, err error) {
	user := pkgmw.Subject(r.Context())

	var ve *suggest.ValidationError
	switch {
	case errors.As(err, &ve):
		respondError(w, http.StatusBadRequest, models.CodeInvalidRoster, ve.Error())
	case generation.IsUpstreamQuota(err):
		log.Warn().Err(err).Str("endpoint", endpoint).Str("user", user).Msg("Generation quota exhausted")
		middleware.WriteError(w, http.StatusTooManyRequests, models.CodeUpstreamQuota,
			"the generation service is out of quota, wait before trying again", quotaRetryAfter)
	case generation.IsSchemaError(err):
		log.Error().Err(err).Str("endpoint", endpoint).Str("user", user).Msg("Generation returned malformed output")
		respondError(w, http.StatusInternalServerError, models.CodeSchemaError, "the generation service returned an unreadable answer, try again")
	case errors.Is(err, context.Canceled) && r.Context().Err() != nil:
		log.Debug().Str("endpoint", endpoint).Str("user", user).Msg("Client went away")
		respondError(w, http.StatusServiceUnavailable, models.CodeInternal, "request cancelled")
	default:
		log.Error().Err(err).Str("endpoint", endpoint).Str("user", user).Msg("Pipeline failed")
		respondError(w, http.StatusInternalServerError, models.CodeInternal, "something went wrong, try again")
	}
}

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func respondError(w http.ResponseWriter, status int, code, message string) {
	middleware.WriteError(w, status, code, message, 0)
}
