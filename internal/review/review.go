// Package review scores a finished team with the same generation fold
// and schema-validating decode the suggestion pipeline uses.
package review

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/rosterlab/rosterlab/internal/generation"
	"github.com/rosterlab/rosterlab/internal/metrics"
	"github.com/rosterlab/rosterlab/internal/prompt"
	"github.com/rosterlab/rosterlab/internal/suggest"
	"github.com/rosterlab/rosterlab/pkg/contracts"
	pkgmw "github.com/rosterlab/rosterlab/pkg/middleware"
	"github.com/rosterlab/rosterlab/pkg/models"
)

var tracer = otel.Tracer("rosterlab/review")

// Service scores teams.
type Service struct {
	store   contracts.CandidateStore
	gen     contracts.Generator
	metrics *metrics.Recorder
}

// New creates a review service. m may be nil.
func New(cs contracts.CandidateStore, gen contracts.Generator, m *metrics.Recorder) *Service {
	return &Service{store: cs, gen: gen, metrics: m}
}

// Review validates the team (1..6 unique ids, all in the catalog) and
// returns the decoded score.
func (s *Service) Review(ctx context.Context, req models.ReviewRequest) (result *models.ReviewResult, err error) {
	start := time.Now()
	ctx, span := tracer.Start(ctx, "review.Review", trace.WithAttributes(
		attribute.Int("rosterlab.team", len(req.Team)),
	))
	defer func() {
		outcome := "ok"
		if err != nil {
			outcome = "error"
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
		s.metrics.ObservePipeline("review", outcome, time.Since(start))
	}()

	if n := len(req.Team); n == 0 || n > models.RosterSize {
		return nil, &suggest.ValidationError{Reason: fmt.Sprintf("a team has 1 to %d members, got %d", models.RosterSize, n)}
	}
	ids := make([]int, len(req.Team))
	seen := make(map[int]struct{}, len(req.Team))
	for i, m := range req.Team {
		if _, dup := seen[m.ID]; dup {
			return nil, &suggest.ValidationError{Reason: fmt.Sprintf("member %d is duplicated", m.ID)}
		}
		seen[m.ID] = struct{}{}
		ids[i] = m.ID
	}

	cands, err := s.store.GetCandidates(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("load team: %w", err)
	}
	if len(cands) != len(ids) {
		return nil, &suggest.ValidationError{Reason: "team references unknown candidates"}
	}
	for i := range cands {
		if b := req.Team[i].Build; b != nil {
			cands[i] = cands[i].WithBuild(b)
		}
	}

	raw, err := s.gen.Generate(ctx, prompt.BuildReview(req.Config, cands))
	if err != nil {
		return nil, err
	}
	result, err = generation.DecodeReview(raw)
	if err != nil {
		s.metrics.SchemaError("review")
		return nil, err
	}

	log.Info().Str("user", pkgmw.Subject(ctx)).Int("team", len(cands)).Int("score", result.Score).Str("grade", result.Grade).Msg("Team reviewed")
	return result, nil
}
