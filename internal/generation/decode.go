package generation

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"html"
	"sort"
	"strconv"
	"strings"

	"github.com/microcosm-cc/bluemonday"

	"github.com/rosterlab/rosterlab/pkg/models"
)

// ExtractObject returns the first complete top-level JSON object in raw.
// Text before the first '{' and after the object is ignored, so fenced or
// chatty responses still decode.
func ExtractObject(raw string) (json.RawMessage, error) {
	start := strings.IndexByte(raw, '{')
	if start < 0 {
		return nil, &SchemaError{Reason: "no JSON object in response"}
	}
	dec := json.NewDecoder(strings.NewReader(raw[start:]))
	var obj json.RawMessage
	if err := dec.Decode(&obj); err != nil {
		return nil, &SchemaError{Reason: "malformed JSON object", Err: err}
	}
	return obj, nil
}

// FlexibleID accepts an id written as a JSON number or a numeric string.
type FlexibleID int

func (f *FlexibleID) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		b = []byte(strings.TrimSpace(s))
	}
	n, err := strconv.ParseFloat(string(b), 64)
	if err != nil {
		return fmt.Errorf("id %s is not numeric", b)
	}
	if n != float64(int(n)) {
		return fmt.Errorf("id %s is not an integer", b)
	}
	*f = FlexibleID(int(n))
	return nil
}

// Suggestion is a decoded suggestion response.
type Suggestion struct {
	Report      models.AIReport
	SelectedIDs []int
	Builds      map[int]models.Build
}

type wireSuggestion struct {
	Report      *models.AIReport        `json:"report"`
	SelectedIDs []json.RawMessage       `json:"selected_ids"`
	Builds      map[string]models.Build `json:"builds"`
}

// DecodeSuggestion extracts and validates a suggestion object. A missing
// report or selected_ids list is a schema error; individual ids that are
// not integers are dropped.
func DecodeSuggestion(raw string) (*Suggestion, error) {
	obj, err := ExtractObject(raw)
	if err != nil {
		return nil, err
	}
	var w wireSuggestion
	if err := json.Unmarshal(obj, &w); err != nil {
		return nil, &SchemaError{Reason: "unexpected suggestion shape", Err: err}
	}
	if w.Report == nil {
		return nil, &SchemaError{Reason: "missing report"}
	}
	if w.SelectedIDs == nil {
		return nil, &SchemaError{Reason: "missing selected_ids"}
	}

	s := &Suggestion{
		Report:      sanitizeReport(*w.Report),
		SelectedIDs: make([]int, 0, len(w.SelectedIDs)),
		Builds:      make(map[int]models.Build, len(w.Builds)),
	}
	for _, rawID := range w.SelectedIDs {
		var id FlexibleID
		if err := json.Unmarshal(rawID, &id); err != nil {
			continue
		}
		s.SelectedIDs = append(s.SelectedIDs, int(id))
	}

	keys := make([]string, 0, len(w.Builds))
	for k := range w.Builds {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		var id FlexibleID
		if err := id.UnmarshalJSON([]byte(strconv.Quote(k))); err != nil {
			continue
		}
		s.Builds[int(id)] = sanitizeBuild(w.Builds[k])
	}
	return s, nil
}

type wireReview struct {
	Score       *float64 `json:"score"`
	Summary     string   `json:"summary"`
	Strengths   []string `json:"strengths"`
	Weaknesses  []string `json:"weaknesses"`
	Suggestions []string `json:"suggestions"`
}

// DecodeReview extracts and validates a review object. The score is
// required and clamped to 0..100; the grade is derived from it.
func DecodeReview(raw string) (*models.ReviewResult, error) {
	obj, err := ExtractObject(raw)
	if err != nil {
		return nil, err
	}
	var w wireReview
	if err := json.Unmarshal(obj, &w); err != nil {
		return nil, &SchemaError{Reason: "unexpected review shape", Err: err}
	}
	if w.Score == nil {
		return nil, &SchemaError{Reason: "missing score"}
	}
	score := int(*w.Score + 0.5)
	score = max(0, min(100, score))

	return &models.ReviewResult{
		Score:       score,
		Grade:       models.GradeFor(score),
		Summary:     sanitize(w.Summary),
		Strengths:   sanitizeAll(w.Strengths),
		Weaknesses:  sanitizeAll(w.Weaknesses),
		Suggestions: sanitizeAll(w.Suggestions),
	}, nil
}

// IsSchemaError reports whether err is a *SchemaError.
func IsSchemaError(err error) bool {
	var se *SchemaError
	return errors.As(err, &se)
}

// ── Sanitising ──────────────────────────────────────────────

var strict = bluemonday.StrictPolicy()

// sanitize strips all markup. Entities the policy escapes are decoded again
// because the text is served as JSON, not HTML.
func sanitize(s string) string {
	return strings.TrimSpace(html.UnescapeString(strict.Sanitize(s)))
}

func sanitizeAll(in []string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		if s = sanitize(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}

func sanitizeReport(r models.AIReport) models.AIReport {
	out := models.AIReport{
		Strategy:   sanitize(r.Strategy),
		Strengths:  sanitizeAll(r.Strengths),
		Weaknesses: sanitizeAll(r.Weaknesses),
		Leads:      make([]models.LeadRecommendation, 0, len(r.Leads)),
	}
	for _, l := range r.Leads {
		out.Leads = append(out.Leads, models.LeadRecommendation{
			Candidate: sanitize(l.Candidate),
			Condition: sanitize(l.Condition),
		})
	}
	return out
}

func sanitizeBuild(b models.Build) models.Build {
	moves := sanitizeAll(b.Moves)
	if len(moves) > models.MaxMoves {
		moves = moves[:models.MaxMoves]
	}
	return models.Build{
		Item:     sanitize(b.Item),
		Ability:  sanitize(b.Ability),
		Nature:   sanitize(b.Nature),
		EVs:      sanitize(b.EVs),
		IVs:      sanitize(b.IVs),
		Moves:    moves,
		TeraType: sanitize(b.TeraType),
	}
}
