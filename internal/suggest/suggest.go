// Package suggest runs one server-side suggestion round:
// validate → retrieve → prompt → generate → decode → assemble.
package suggest

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/rosterlab/rosterlab/internal/assembler"
	"github.com/rosterlab/rosterlab/internal/eligibility"
	"github.com/rosterlab/rosterlab/internal/generation"
	"github.com/rosterlab/rosterlab/internal/metrics"
	"github.com/rosterlab/rosterlab/internal/prompt"
	"github.com/rosterlab/rosterlab/internal/retrieval"
	"github.com/rosterlab/rosterlab/internal/store"
	"github.com/rosterlab/rosterlab/pkg/contracts"
	pkgmw "github.com/rosterlab/rosterlab/pkg/middleware"
	"github.com/rosterlab/rosterlab/pkg/models"
)

var tracer = otel.Tracer("rosterlab/suggest")

// ValidationError is a malformed roster or leader input. Never retried.
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string { return "invalid roster: " + e.Reason }

// Service runs suggestion rounds.
type Service struct {
	store     contracts.CandidateStore
	filter    *eligibility.Filter
	retriever *retrieval.Retriever
	gen       contracts.Generator
	moves     contracts.MovepoolResolver
	metrics   *metrics.Recorder
}

// Option configures a Service.
type Option func(*Service)

// WithMovepool enables the leader movepool constraint.
func WithMovepool(r contracts.MovepoolResolver) Option {
	return func(s *Service) { s.moves = r }
}

func WithMetrics(m *metrics.Recorder) Option {
	return func(s *Service) { s.metrics = m }
}

// New creates a suggestion service.
func New(cs contracts.CandidateStore, filter *eligibility.Filter, gen contracts.Generator, opts ...Option) *Service {
	s := &Service{
		store:     cs,
		filter:    filter,
		retriever: retrieval.New(cs, filter),
		gen:       gen,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Suggest runs one round. The returned team holds only new candidates;
// locked candidates are reported through ValidLockedIDs.
func (s *Service) Suggest(ctx context.Context, req models.SuggestRequest) (resp *models.SuggestResponse, err error) {
	start := time.Now()
	mode := string(models.ModeLeader)
	if req.Scratch() {
		mode = string(models.ModeScratch)
	}

	ctx, span := tracer.Start(ctx, "suggest.Suggest", trace.WithAttributes(
		attribute.String("rosterlab.mode", mode),
		attribute.Int("rosterlab.locked", len(req.LockedIDs)),
		attribute.Int("rosterlab.ignored", len(req.IgnoredIDs)),
	))
	defer func() {
		outcome := "ok"
		if err != nil {
			outcome = outcomeOf(err)
			span.RecordError(err)
			span.SetStatus(codes.Error, outcome)
		}
		span.End()
		s.metrics.ObservePipeline("suggest", outcome, time.Since(start))
	}()

	if err := validateIDs(req); err != nil {
		return nil, err
	}

	var leader *models.Candidate
	locked := req.LockedIDs
	if !req.Scratch() {
		leader, err = s.resolveLeader(ctx, *req.LeaderID, req.Config)
		if err != nil {
			return nil, err
		}
		locked = withLeader(leader.ID, locked)
		if len(locked) > models.RosterSize {
			return nil, &ValidationError{Reason: fmt.Sprintf("at most %d locked ids including the leader", models.RosterSize)}
		}
	}

	lockedCands, err := s.validLocked(ctx, locked, req.Config)
	if err != nil {
		return nil, err
	}
	validIDs := make([]int, len(lockedCands))
	for i, c := range lockedCands {
		validIDs[i] = c.ID
	}

	resp = &models.SuggestResponse{
		Team:           []models.Candidate{},
		ValidLockedIDs: validIDs,
		Builds:         map[int]models.Build{},
	}
	slotsNeeded := models.RosterSize - len(validIDs)
	if slotsNeeded <= 0 {
		return resp, nil
	}

	var res retrieval.Result
	if leader != nil {
		res, err = s.retriever.LeaderAnchored(ctx, *leader, req.Config, locked, req.IgnoredIDs)
	} else {
		res, err = s.retriever.Scratch(ctx, req.Config, locked, req.IgnoredIDs)
	}
	if err != nil {
		return nil, fmt.Errorf("retrieve candidates: %w", err)
	}
	resp.IsDynamicMode = res.Dynamic
	s.metrics.ObservePool(mode, len(res.Pool), res.Dynamic)
	span.SetAttributes(attribute.Int("rosterlab.pool", len(res.Pool)), attribute.Bool("rosterlab.dynamic", res.Dynamic))

	if len(res.Pool) == 0 {
		log.Warn().Str("user", pkgmw.Subject(ctx)).Str("mode", mode).Int("slots", slotsNeeded).Msg("Candidate pool is empty, skipping generation")
		return resp, nil
	}

	in := prompt.Input{
		Config:      req.Config,
		Pool:        res.Pool,
		Locked:      lockedCands,
		Leader:      leader,
		SlotsNeeded: slotsNeeded,
	}
	if leader != nil {
		in.LeaderMoves = s.leaderMoves(ctx, leader.Name)
	}
	text := prompt.Build(in)
	log.Debug().Int("prompt_bytes", len(text)).Msg("Prompt built")

	raw, err := s.gen.Generate(ctx, text)
	if err != nil {
		return nil, err
	}
	suggestion, err := generation.DecodeSuggestion(raw)
	if err != nil {
		s.metrics.SchemaError("suggest")
		log.Debug().Str("raw", truncate(raw, 512)).Msg("Undecodable suggestion response")
		return nil, err
	}

	team, backfilled := assembler.Assemble(suggestion.SelectedIDs, res.Pool, suggestion.Builds, slotsNeeded)
	s.metrics.Backfilled(backfilled)

	resp.Team = team
	resp.AIReport = suggestion.Report
	for _, c := range team {
		if c.Build != nil {
			resp.Builds[c.ID] = *c.Build
		}
	}
	for _, id := range validIDs {
		if b, ok := suggestion.Builds[id]; ok {
			resp.Builds[id] = b
		}
	}

	log.Info().
		Str("user", pkgmw.Subject(ctx)).
		Str("mode", mode).
		Int("pool", len(res.Pool)).
		Int("slots", slotsNeeded).
		Int("team", len(team)).
		Int("backfilled", backfilled).
		Bool("dynamic", res.Dynamic).
		Msg("Suggestion round complete")
	return resp, nil
}

func validateIDs(req models.SuggestRequest) error {
	if !req.Scratch() && *req.LeaderID < 0 {
		return &ValidationError{Reason: "leader id must be non-negative"}
	}
	if len(req.LockedIDs) > models.RosterSize {
		return &ValidationError{Reason: fmt.Sprintf("at most %d locked ids", models.RosterSize)}
	}
	seen := make(map[int]struct{}, len(req.LockedIDs))
	for _, id := range req.LockedIDs {
		if id < 0 {
			return &ValidationError{Reason: fmt.Sprintf("locked id %d is negative", id)}
		}
		if _, dup := seen[id]; dup {
			return &ValidationError{Reason: fmt.Sprintf("locked id %d is duplicated", id)}
		}
		seen[id] = struct{}{}
	}
	return nil
}

func (s *Service) resolveLeader(ctx context.Context, id int, cfg models.Configuration) (*models.Candidate, error) {
	leader, err := s.store.GetCandidate(ctx, id)
	var nf *store.ErrNotFound
	if errors.As(err, &nf) {
		return nil, &ValidationError{Reason: fmt.Sprintf("leader %d not found", id)}
	}
	if err != nil {
		return nil, fmt.Errorf("load leader: %w", err)
	}
	if !s.filter.Eligible(*leader, cfg) {
		return nil, &ValidationError{Reason: fmt.Sprintf("leader %s is not allowed by the current configuration", leader.Name)}
	}
	return leader, nil
}

// validLocked loads the locked candidates and keeps the eligible ones in
// request order. Unknown or ineligible ids are dropped, not rejected.
func (s *Service) validLocked(ctx context.Context, ids []int, cfg models.Configuration) ([]models.Candidate, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	cands, err := s.store.GetCandidates(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("load locked candidates: %w", err)
	}
	out := cands[:0]
	for _, c := range cands {
		if s.filter.Eligible(c, cfg) {
			out = append(out, c)
		} else {
			log.Debug().Int("id", c.ID).Str("name", c.Name).Msg("Locked candidate no longer eligible")
		}
	}
	return out, nil
}

func (s *Service) leaderMoves(ctx context.Context, name string) []string {
	if s.moves == nil {
		return nil
	}
	moves, err := s.moves.LegalMoves(ctx, name)
	if err != nil {
		log.Warn().Err(err).Str("leader", name).Msg("Movepool lookup failed, continuing without constraint")
		return nil
	}
	return moves
}

// withLeader puts the leader first, removing any other occurrence.
func withLeader(leader int, locked []int) []int {
	out := make([]int, 0, len(locked)+1)
	out = append(out, leader)
	for _, id := range locked {
		if id != leader {
			out = append(out, id)
		}
	}
	return out
}

func outcomeOf(err error) string {
	var ve *ValidationError
	switch {
	case errors.As(err, &ve):
		return "invalid"
	case generation.IsSchemaError(err):
		return "schema_error"
	case generation.IsUpstreamQuota(err):
		return "quota"
	default:
		return "error"
	}
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "…"
}
