package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog/log"

	"github.com/rosterlab/rosterlab/pkg/models"
)

// PgvectorStore implements contracts.CandidateStore using PostgreSQL with the
// pgvector extension. Schema is managed by the embedded migrations.
type PgvectorStore struct {
	pool *pgxpool.Pool
}

// NewPgvectorStore connects to connURL and verifies the connection.
func NewPgvectorStore(ctx context.Context, connURL string, maxConns int32) (*PgvectorStore, error) {
	cfg, err := pgxpool.ParseConfig(connURL)
	if err != nil {
		return nil, fmt.Errorf("pgvector config: %w", err)
	}
	if maxConns > 0 {
		cfg.MaxConns = maxConns
	}

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("pgvector connect: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("pgvector ping: %w", err)
	}

	log.Info().Str("host", cfg.ConnConfig.Host).Int32("max_conns", cfg.MaxConns).Msg("pgvector candidate store initialized")
	return &PgvectorStore{pool: pool}, nil
}

func (s *PgvectorStore) Kind() string { return "pgvector" }

const candidateColumns = `c.id, c.name, c.types, c.tier,
		COALESCE(m.usage_score, 0), COALESCE(m.strategy_profile, '')`

func (s *PgvectorStore) GetCandidate(ctx context.Context, id int) (*models.Candidate, error) {
	row := s.pool.QueryRow(ctx, `SELECT `+candidateColumns+`, m.embedding::text
		FROM candidates c
		LEFT JOIN candidate_meta m ON m.candidate_id = c.id
		WHERE c.id = $1`, id)

	var c models.Candidate
	var embedding *string
	err := row.Scan(&c.ID, &c.Name, &c.Types, &c.Tier, &c.Usage, &c.StrategyProfile, &embedding)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, &ErrNotFound{ID: id}
	}
	if err != nil {
		return nil, fmt.Errorf("pgvector get candidate: %w", err)
	}
	if embedding != nil {
		if c.Embedding, err = parseVector(*embedding); err != nil {
			return nil, fmt.Errorf("pgvector get candidate %d: %w", id, err)
		}
	}
	return &c, nil
}

func (s *PgvectorStore) GetCandidates(ctx context.Context, ids []int) ([]models.Candidate, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	rows, err := s.pool.Query(ctx, `SELECT `+candidateColumns+`
		FROM candidates c
		LEFT JOIN candidate_meta m ON m.candidate_id = c.id
		WHERE c.id = ANY($1)`, ids)
	if err != nil {
		return nil, fmt.Errorf("pgvector get candidates: %w", err)
	}
	found, err := scanCandidates(rows)
	if err != nil {
		return nil, err
	}

	byID := make(map[int]models.Candidate, len(found))
	for _, c := range found {
		byID[c.ID] = c
	}
	out := make([]models.Candidate, 0, len(found))
	for _, id := range ids {
		if c, ok := byID[id]; ok {
			out = append(out, c)
		}
	}
	return out, nil
}

func (s *PgvectorStore) RankByPopularity(ctx context.Context, q models.RankQuery) ([]models.Candidate, error) {
	rows, err := s.pool.Query(ctx, `SELECT `+candidateColumns+`
		FROM candidates c
		LEFT JOIN candidate_meta m ON m.candidate_id = c.id
		WHERE NOT (c.id = ANY($1))
		ORDER BY COALESCE(m.usage_score, 0) DESC, random()
		LIMIT $2`, excludeArg(q.ExcludeIDs), q.Limit)
	if err != nil {
		return nil, fmt.Errorf("pgvector rank by popularity: %w", err)
	}
	return scanCandidates(rows)
}

func (s *PgvectorStore) RankBySimilarity(ctx context.Context, anchor []float32, q models.RankQuery) ([]models.Candidate, error) {
	rows, err := s.pool.Query(ctx, `SELECT `+candidateColumns+`
		FROM candidates c
		JOIN candidate_meta m ON m.candidate_id = c.id
		WHERE m.embedding IS NOT NULL
		  AND NOT (c.id = ANY($2))
		ORDER BY (m.embedding <=> $1::vector)
		         * (1 - LEAST(COALESCE(m.usage_score, 0) / 50.0, 0.4)) ASC
		LIMIT $3`, vectorLiteral(anchor), excludeArg(q.ExcludeIDs), q.Limit)
	if err != nil {
		return nil, fmt.Errorf("pgvector rank by similarity: %w", err)
	}
	return scanCandidates(rows)
}

func (s *PgvectorStore) Search(ctx context.Context, term string, limit int) ([]models.Candidate, error) {
	rows, err := s.pool.Query(ctx, `SELECT `+candidateColumns+`
		FROM candidates c
		LEFT JOIN candidate_meta m ON m.candidate_id = c.id
		WHERE lower(c.name) LIKE '%' || lower($1) || '%'
		ORDER BY COALESCE(m.usage_score, 0) DESC, c.name
		LIMIT $2`, term, limit)
	if err != nil {
		return nil, fmt.Errorf("pgvector search: %w", err)
	}
	return scanCandidates(rows)
}

func (s *PgvectorStore) HealthCheck(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// Close releases the connection pool.
func (s *PgvectorStore) Close() {
	s.pool.Close()
}

func scanCandidates(rows pgx.Rows) ([]models.Candidate, error) {
	defer rows.Close()
	var out []models.Candidate
	for rows.Next() {
		var c models.Candidate
		if err := rows.Scan(&c.ID, &c.Name, &c.Types, &c.Tier, &c.Usage, &c.StrategyProfile); err != nil {
			return nil, fmt.Errorf("pgvector scan: %w", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// excludeArg never passes a nil slice: NOT (id = ANY(NULL)) filters every row.
func excludeArg(ids []int) []int {
	if ids == nil {
		return []int{}
	}
	return ids
}
