// Package store provides the candidate storage drivers.
// OSS ships: memory (brute-force cosine, loaded from a JSON catalog) and
// pgvector (PostgreSQL with the pgvector extension).
package store

import (
	"encoding/json"
	"fmt"
	"math"
	"os"
	"strconv"
	"strings"

	"github.com/rosterlab/rosterlab/pkg/models"
)

// ErrNotFound is returned when a candidate id does not exist.
type ErrNotFound struct {
	ID int
}

func (e *ErrNotFound) Error() string {
	return fmt.Sprintf("candidate %d not found", e.ID)
}

// Popularity re-weighting: very popular candidates are pulled closer to the
// anchor by up to 40%, saturating at usage 50.
const (
	usageDecayScale = 50.0
	usageDecayCap   = 0.4
)

// WeightedDistance applies the popularity decay to a similarity distance:
// distance * (1 - min(usage/50, 0.4)).
func WeightedDistance(distance, usage float64) float64 {
	if usage < 0 {
		usage = 0
	}
	return distance * (1 - math.Min(usage/usageDecayScale, usageDecayCap))
}

// CosineDistance returns 1 - cosine similarity. Zero vectors are maximally distant.
func CosineDistance(a, b []float32) float64 {
	var dot, normA, normB float64
	for i := range a {
		x, y := float64(a[i]), float64(b[i])
		dot += x * y
		normA += x * x
		normB += y * y
	}
	if normA == 0 || normB == 0 {
		return 1
	}
	return 1 - dot/(math.Sqrt(normA)*math.Sqrt(normB))
}

// ── Catalog file ────────────────────────────────────────────

// catalogRecord is the on-disk shape of one catalog entry. Usage is a
// pointer because the field may be absent.
type catalogRecord struct {
	ID              int       `json:"id"`
	Name            string    `json:"name"`
	Types           []string  `json:"types"`
	Tier            string    `json:"tier"`
	Usage           *float64  `json:"usage,omitempty"`
	StrategyProfile string    `json:"strategy_profile,omitempty"`
	Embedding       []float32 `json:"embedding,omitempty"`
}

// LoadCatalog reads a JSON array of candidates from path.
func LoadCatalog(path string) ([]models.Candidate, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read catalog: %w", err)
	}
	return ParseCatalog(raw)
}

// ParseCatalog decodes a JSON array of candidates. Absent usage is zero.
func ParseCatalog(raw []byte) ([]models.Candidate, error) {
	var records []catalogRecord
	if err := json.Unmarshal(raw, &records); err != nil {
		return nil, fmt.Errorf("decode catalog: %w", err)
	}
	out := make([]models.Candidate, 0, len(records))
	seen := make(map[int]bool, len(records))
	for _, r := range records {
		if seen[r.ID] {
			return nil, fmt.Errorf("decode catalog: duplicate candidate id %d", r.ID)
		}
		seen[r.ID] = true
		c := models.Candidate{
			ID:              r.ID,
			Name:            r.Name,
			Types:           r.Types,
			Tier:            r.Tier,
			StrategyProfile: r.StrategyProfile,
			Embedding:       r.Embedding,
		}
		if r.Usage != nil {
			c.Usage = *r.Usage
		}
		out = append(out, c)
	}
	return out, nil
}

// ── pgvector text format ────────────────────────────────────

// vectorLiteral converts a float32 slice to pgvector's text format: [1,2,3]
func vectorLiteral(v []float32) string {
	var sb strings.Builder
	sb.WriteByte('[')
	for i, f := range v {
		if i > 0 {
			sb.WriteByte(',')
		}
		sb.WriteString(strconv.FormatFloat(float64(f), 'g', -1, 32))
	}
	sb.WriteByte(']')
	return sb.String()
}

// parseVector parses pgvector's text format back into a float32 slice.
func parseVector(s string) ([]float32, error) {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "[") || !strings.HasSuffix(s, "]") {
		return nil, fmt.Errorf("malformed vector %q", s)
	}
	body := strings.TrimSpace(s[1 : len(s)-1])
	if body == "" {
		return nil, nil
	}
	parts := strings.Split(body, ",")
	out := make([]float32, len(parts))
	for i, p := range parts {
		f, err := strconv.ParseFloat(strings.TrimSpace(p), 32)
		if err != nil {
			return nil, fmt.Errorf("malformed vector component %q: %w", p, err)
		}
		out[i] = float32(f)
	}
	return out, nil
}
