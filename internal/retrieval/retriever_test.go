package retrieval_test

import (
	"context"
	"fmt"
	"math/rand/v2"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rosterlab/rosterlab/internal/retrieval"
	"github.com/rosterlab/rosterlab/internal/store"
	"github.com/rosterlab/rosterlab/pkg/models"
)

func ids(cands []models.Candidate) []int {
	out := make([]int, len(cands))
	for i, c := range cands {
		out[i] = c.ID
	}
	return out
}

// catalog returns n candidates with strictly decreasing usage starting at top.
func catalog(n int, top float64) []models.Candidate {
	out := make([]models.Candidate, n)
	for i := range out {
		out[i] = models.Candidate{
			ID:    i + 1,
			Name:  fmt.Sprintf("Mon %d", i+1),
			Types: []string{"Normal"},
			Tier:  "OU",
			Usage: top - float64(i)*0.5,
		}
	}
	return out
}

func TestTierPlan_Sample(t *testing.T) {
	plan := retrieval.TierPlan{High: 15, Low: 3, Caps: [3]int{2, 2, 1}}
	ranked := []models.Candidate{
		{ID: 1, Usage: 2},  // niche
		{ID: 2, Usage: 30}, // high
		{ID: 3, Usage: 15}, // viable (boundary)
		{ID: 4, Usage: 20}, // high
		{ID: 5, Usage: 16}, // high, over cap
		{ID: 6, Usage: 3},  // niche (boundary), over cap
		{ID: 7, Usage: 4},  // viable
	}
	got := ids(plan.Sample(ranked))
	want := []int{2, 4, 3, 7, 1}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Sample() mismatch (-want +got):\n%s", diff)
	}
}

func TestTierPlans(t *testing.T) {
	assert.Equal(t, 40, retrieval.ScratchTiers.MaxPool())
	assert.Equal(t, 150, retrieval.ScratchTiers.FetchLimit)
	assert.Equal(t, 30, retrieval.LeaderTiers.MaxPool())
	assert.Equal(t, 80, retrieval.LeaderTiers.FetchLimit)
}

func TestScratch_ExcludesLockedIgnoredAndRestricted(t *testing.T) {
	cands := catalog(60, 40)
	cands[0].Name = "Koraidon" // legendary, disallowed by default
	s := store.NewMemoryStore(cands, store.WithRand(rand.New(rand.NewPCG(7, 7))))
	r := retrieval.New(s, nil)

	res, err := r.Scratch(context.Background(), models.Configuration{}, []int{2}, []int{3, 4})
	require.NoError(t, err)
	assert.False(t, res.Dynamic)
	assert.LessOrEqual(t, len(res.Pool), 40)

	got := ids(res.Pool)
	for _, banned := range []int{1, 2, 3, 4} {
		assert.NotContains(t, got, banned)
	}

	// High tier (usage > 15) comes first and is capped at 20.
	high := 0
	for _, c := range res.Pool {
		if c.Usage > 15 {
			high++
		}
	}
	assert.Equal(t, 20, high)
	assert.Equal(t, 5, got[0])
}

func TestLeaderAnchored_RanksBySimilarity(t *testing.T) {
	cands := []models.Candidate{
		{ID: 1, Name: "Leader", Types: []string{"Steel"}, Usage: 10, Embedding: []float32{1, 0}},
		{ID: 2, Name: "Near", Types: []string{"Steel"}, Usage: 1, Embedding: []float32{0.95, 0.05}},
		{ID: 3, Name: "Far", Types: []string{"Fire"}, Usage: 1, Embedding: []float32{0, 1}},
		{ID: 4, Name: "Popular Far", Types: []string{"Water"}, Usage: 40, Embedding: []float32{0.1, 1}},
		{ID: 5, Name: "No Vector", Types: []string{"Grass"}, Usage: 50},
	}
	s := store.NewMemoryStore(cands)
	r := retrieval.New(s, nil)

	res, err := r.LeaderAnchored(context.Background(), cands[0], models.Configuration{}, nil, nil)
	require.NoError(t, err)
	assert.False(t, res.Dynamic)
	// Popular Far lands in the high tier (> 20); the rest are niche in distance order.
	assert.Equal(t, []int{4, 2, 3}, ids(res.Pool))
}

func TestLeaderAnchored_NoEmbeddingFallsBackToPopularity(t *testing.T) {
	cands := catalog(10, 30)
	s := store.NewMemoryStore(cands)
	r := retrieval.New(s, nil)

	leader := cands[0]
	res, err := r.LeaderAnchored(context.Background(), leader, models.Configuration{}, nil, []int{2})
	require.NoError(t, err)
	assert.True(t, res.Dynamic)
	assert.Equal(t, []int{3, 4, 5, 6, 7, 8, 9, 10}, ids(res.Pool))
}
