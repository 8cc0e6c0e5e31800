// Package retrieval builds the bounded candidate pool a generation round
// chooses from.
package retrieval

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"

	"github.com/rosterlab/rosterlab/internal/eligibility"
	"github.com/rosterlab/rosterlab/pkg/contracts"
	"github.com/rosterlab/rosterlab/pkg/models"
)

// Result is one retrieved pool.
type Result struct {
	Pool []models.Candidate

	// Dynamic is set when a leader-anchored retrieval had no embedding to
	// rank against and fell back to popularity.
	Dynamic bool
}

// Retriever ranks candidates in storage and samples them into a pool.
type Retriever struct {
	store  contracts.CandidateStore
	filter *eligibility.Filter
}

// New creates a retriever over store. filter may be nil, in which case only
// the restricted-category check applies.
func New(store contracts.CandidateStore, filter *eligibility.Filter) *Retriever {
	if filter == nil {
		filter, _ = eligibility.NewFilter(nil)
	}
	return &Retriever{store: store, filter: filter}
}

// Scratch ranks every candidate by popularity and samples with ScratchTiers.
// Locked and ignored ids never enter the pool.
func (r *Retriever) Scratch(ctx context.Context, cfg models.Configuration, locked, ignored []int) (Result, error) {
	exclude := eligibility.IDSet(locked, ignored)
	ranked, err := r.store.RankByPopularity(ctx, models.RankQuery{
		ExcludeIDs: keys(exclude),
		Limit:      ScratchTiers.FetchLimit,
	})
	if err != nil {
		return Result{}, fmt.Errorf("rank by popularity: %w", err)
	}

	pool := ScratchTiers.Sample(r.filter.Apply(ranked, cfg, exclude))
	log.Debug().Int("fetched", len(ranked)).Int("pool", len(pool)).Msg("Scratch pool sampled")
	return Result{Pool: pool}, nil
}

// LeaderAnchored ranks candidates by popularity-weighted similarity to the
// leader's embedding and samples with LeaderTiers. A leader without an
// embedding falls back to popularity ranking and marks the result Dynamic.
func (r *Retriever) LeaderAnchored(ctx context.Context, leader models.Candidate, cfg models.Configuration, locked, ignored []int) (Result, error) {
	exclude := eligibility.IDSet(locked, ignored, []int{leader.ID})
	q := models.RankQuery{ExcludeIDs: keys(exclude), Limit: LeaderTiers.FetchLimit}

	var (
		ranked  []models.Candidate
		dynamic bool
		err     error
	)
	if len(leader.Embedding) > 0 {
		ranked, err = r.store.RankBySimilarity(ctx, leader.Embedding, q)
		if err != nil {
			return Result{}, fmt.Errorf("rank by similarity: %w", err)
		}
	} else {
		log.Info().Int("leader", leader.ID).Str("name", leader.Name).Msg("Leader has no embedding, falling back to popularity ranking")
		dynamic = true
		ranked, err = r.store.RankByPopularity(ctx, q)
		if err != nil {
			return Result{}, fmt.Errorf("rank by popularity: %w", err)
		}
	}

	pool := LeaderTiers.Sample(r.filter.Apply(ranked, cfg, exclude))
	log.Debug().Int("fetched", len(ranked)).Int("pool", len(pool)).Bool("dynamic", dynamic).Msg("Leader pool sampled")
	return Result{Pool: pool, Dynamic: dynamic}, nil
}

func keys(set map[int]struct{}) []int {
	out := make([]int, 0, len(set))
	for id := range set {
		out = append(out, id)
	}
	return out
}
