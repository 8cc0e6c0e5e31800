package store

import (
	"context"
	"math/rand/v2"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/rosterlab/rosterlab/pkg/models"
)

// MemoryStore is an in-memory candidate store using brute-force cosine
// distance. Suitable for development and catalogs of a few thousand entries.
type MemoryStore struct {
	mu    sync.RWMutex
	cands []models.Candidate
	byID  map[int]int // id → index into cands

	rngMu sync.Mutex
	rng   *rand.Rand
}

// MemoryOption configures the memory store.
type MemoryOption func(*MemoryStore)

// WithRand sets the tie-break source (tests use a fixed seed).
func WithRand(r *rand.Rand) MemoryOption {
	return func(s *MemoryStore) { s.rng = r }
}

// NewMemoryStore creates an in-memory store holding cands.
func NewMemoryStore(cands []models.Candidate, opts ...MemoryOption) *MemoryStore {
	now := uint64(time.Now().UnixNano())
	s := &MemoryStore{
		cands: make([]models.Candidate, len(cands)),
		byID:  make(map[int]int, len(cands)),
		rng:   rand.New(rand.NewPCG(now, now>>1)),
	}
	copy(s.cands, cands)
	for i, c := range s.cands {
		s.byID[c.ID] = i
	}
	for _, opt := range opts {
		opt(s)
	}
	log.Info().Int("candidates", len(s.cands)).Msg("Memory candidate store initialized")
	return s
}

func (s *MemoryStore) Kind() string { return "memory" }

func (s *MemoryStore) GetCandidate(_ context.Context, id int) (*models.Candidate, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	i, ok := s.byID[id]
	if !ok {
		return nil, &ErrNotFound{ID: id}
	}
	c := s.cands[i]
	return &c, nil
}

func (s *MemoryStore) GetCandidates(_ context.Context, ids []int) ([]models.Candidate, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]models.Candidate, 0, len(ids))
	for _, id := range ids {
		if i, ok := s.byID[id]; ok {
			out = append(out, s.cands[i])
		}
	}
	return out, nil
}

func (s *MemoryStore) RankByPopularity(_ context.Context, q models.RankQuery) ([]models.Candidate, error) {
	excluded := idSet(q.ExcludeIDs)

	s.mu.RLock()
	ranked := make([]models.Candidate, 0, len(s.cands))
	for _, c := range s.cands {
		if _, skip := excluded[c.ID]; !skip {
			ranked = append(ranked, c)
		}
	}
	s.mu.RUnlock()

	// Shuffle first so the stable sort leaves ties in random order.
	s.rngMu.Lock()
	s.rng.Shuffle(len(ranked), func(i, j int) { ranked[i], ranked[j] = ranked[j], ranked[i] })
	s.rngMu.Unlock()

	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].Usage > ranked[j].Usage
	})
	return limit(ranked, q.Limit), nil
}

func (s *MemoryStore) RankBySimilarity(_ context.Context, anchor []float32, q models.RankQuery) ([]models.Candidate, error) {
	excluded := idSet(q.ExcludeIDs)

	type scored struct {
		cand  models.Candidate
		score float64
	}

	s.mu.RLock()
	ranked := make([]scored, 0, len(s.cands))
	for _, c := range s.cands {
		if _, skip := excluded[c.ID]; skip {
			continue
		}
		if len(c.Embedding) == 0 || len(c.Embedding) != len(anchor) {
			continue
		}
		d := CosineDistance(anchor, c.Embedding)
		ranked = append(ranked, scored{cand: c, score: WeightedDistance(d, c.Usage)})
	}
	s.mu.RUnlock()

	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].score < ranked[j].score
	})

	out := make([]models.Candidate, len(ranked))
	for i, r := range ranked {
		out[i] = r.cand
	}
	return limit(out, q.Limit), nil
}

func (s *MemoryStore) Search(_ context.Context, term string, n int) ([]models.Candidate, error) {
	term = strings.ToLower(strings.TrimSpace(term))

	s.mu.RLock()
	var out []models.Candidate
	for _, c := range s.cands {
		if term == "" || strings.Contains(strings.ToLower(c.Name), term) {
			out = append(out, c)
		}
	}
	s.mu.RUnlock()

	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Usage != out[j].Usage {
			return out[i].Usage > out[j].Usage
		}
		return out[i].Name < out[j].Name
	})
	return limit(out, n), nil
}

func (s *MemoryStore) HealthCheck(_ context.Context) error {
	return nil
}

func (s *MemoryStore) Close() {}

// ── Helpers ─────────────────────────────────────────────────

func idSet(ids []int) map[int]struct{} {
	m := make(map[int]struct{}, len(ids))
	for _, id := range ids {
		m[id] = struct{}{}
	}
	return m
}

func limit(cands []models.Candidate, n int) []models.Candidate {
	if n > 0 && len(cands) > n {
		return cands[:n]
	}
	return cands
}
