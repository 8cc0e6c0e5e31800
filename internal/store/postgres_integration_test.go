//go:build integration

package store_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/rosterlab/rosterlab/internal/store"
	"github.com/rosterlab/rosterlab/pkg/models"
)

// setupPgvector starts a pgvector container, applies the migrations and
// seeds a small catalog with three-dimensional embeddings padded to 768.
func setupPgvector(t *testing.T) string {
	t.Helper()
	ctx := context.Background()

	req := testcontainers.ContainerRequest{
		Image:        "pgvector/pgvector:pg16",
		ExposedPorts: []string{"5432/tcp"},
		Env: map[string]string{
			"POSTGRES_USER":     "test",
			"POSTGRES_PASSWORD": "test",
			"POSTGRES_DB":       "rosterlab_test",
		},
		WaitingFor: wait.ForLog("database system is ready to accept connections").
			WithOccurrence(2).
			WithStartupTimeout(90 * time.Second),
	}
	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	require.NoError(t, err, "start postgres container")
	t.Cleanup(func() { _ = container.Terminate(ctx) })

	host, err := container.Host(ctx)
	require.NoError(t, err)
	port, err := container.MappedPort(ctx, "5432")
	require.NoError(t, err)

	url := fmt.Sprintf("postgres://test:test@%s:%s/rosterlab_test?sslmode=disable", host, port.Port())
	require.NoError(t, store.MigrateUp(url))

	pool, err := pgxpool.New(ctx, url)
	require.NoError(t, err)
	defer pool.Close()

	seed := []struct {
		id        int
		name      string
		types     []string
		tier      string
		usage     *float64
		embedding []float32
	}{
		{1, "Great Tusk", []string{"Ground", "Fighting"}, "OU", ptr(30), []float32{1, 0, 0}},
		{2, "Kingambit", []string{"Dark", "Steel"}, "OU", ptr(25), []float32{0.9, 0.1, 0}},
		{3, "Gholdengo", []string{"Steel", "Ghost"}, "OU", ptr(10), []float32{0, 1, 0}},
		{4, "Corviknight", []string{"Flying", "Steel"}, "OU", nil, nil},
	}
	for _, s := range seed {
		_, err := pool.Exec(ctx, `INSERT INTO candidates (id, name, types, tier) VALUES ($1, $2, $3, $4)`,
			s.id, s.name, s.types, s.tier)
		require.NoError(t, err)
		if s.embedding == nil {
			continue
		}
		_, err = pool.Exec(ctx, `INSERT INTO candidate_meta (candidate_id, usage_score, strategy_profile, embedding)
			VALUES ($1, $2, $3, $4::vector)`, s.id, s.usage, "", pad(s.embedding))
		require.NoError(t, err)
	}
	return url
}

func ptr(f float64) *float64 { return &f }

func pad(v []float32) string {
	full := make([]float32, 768)
	copy(full, v)
	out := "["
	for i, x := range full {
		if i > 0 {
			out += ","
		}
		out += fmt.Sprintf("%g", x)
	}
	return out + "]"
}

func TestPgvectorStore(t *testing.T) {
	url := setupPgvector(t)
	ctx := context.Background()

	s, err := store.NewPgvectorStore(ctx, url, 4)
	require.NoError(t, err)
	t.Cleanup(s.Close)

	require.NoError(t, s.HealthCheck(ctx))

	t.Run("GetCandidate", func(t *testing.T) {
		got, err := s.GetCandidate(ctx, 2)
		require.NoError(t, err)
		assert.Equal(t, "Kingambit", got.Name)
		assert.Equal(t, []string{"Dark", "Steel"}, got.Types)
		assert.Len(t, got.Embedding, 768)

		noMeta, err := s.GetCandidate(ctx, 4)
		require.NoError(t, err)
		assert.Empty(t, noMeta.Embedding)
		assert.Equal(t, 0.0, noMeta.Usage)

		_, err = s.GetCandidate(ctx, 99)
		var nf *store.ErrNotFound
		assert.ErrorAs(t, err, &nf)
	})

	t.Run("GetCandidates keeps input order", func(t *testing.T) {
		got, err := s.GetCandidates(ctx, []int{3, 1})
		require.NoError(t, err)
		assert.Equal(t, []int{3, 1}, ids(got))
	})

	t.Run("RankByPopularity", func(t *testing.T) {
		got, err := s.RankByPopularity(ctx, models.RankQuery{Limit: 10})
		require.NoError(t, err)
		assert.Equal(t, []int{1, 2, 3, 4}, ids(got))

		got, err = s.RankByPopularity(ctx, models.RankQuery{ExcludeIDs: []int{1, 2}, Limit: 1})
		require.NoError(t, err)
		assert.Equal(t, []int{3}, ids(got))
	})

	t.Run("RankBySimilarity", func(t *testing.T) {
		anchor := make([]float32, 768)
		anchor[0] = 1
		got, err := s.RankBySimilarity(ctx, anchor, models.RankQuery{ExcludeIDs: []int{1}, Limit: 10})
		require.NoError(t, err)
		assert.Equal(t, []int{2, 3}, ids(got))
	})

	t.Run("Search", func(t *testing.T) {
		got, err := s.Search(ctx, "gh", 10)
		require.NoError(t, err)
		assert.Equal(t, []int{3, 4}, ids(got))
	})
}
