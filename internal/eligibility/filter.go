// Package eligibility decides whether a candidate may appear in a pool,
// a prompt, or a locked slot.
//
// Checks, in order:
//   - restricted categories: legendary, mythical, paradox, ultra beast,
//     each applied only when the matching allow flag is false
//   - monotype: the candidate must carry the selected type
//   - format rules: CEL expressions over the candidate, per format
package eligibility

import (
	"fmt"
	"strings"
	"unicode"

	"github.com/google/cel-go/cel"
	"github.com/rs/zerolog/log"
	"golang.org/x/text/cases"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"github.com/rosterlab/rosterlab/pkg/models"
)

// Normalize folds case, strips diacritics and collapses whitespace, so
// "Flabébé " and "flabebe" compare equal.
func Normalize(name string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	stripped, _, err := transform.String(t, name)
	if err != nil {
		stripped = name
	}
	return strings.Join(strings.Fields(cases.Fold().String(stripped)), " ")
}

// IsExcluded reports whether the candidate name belongs to a restricted
// category that the configuration does not allow. Pure; flag order is
// irrelevant.
func IsExcluded(candidateName string, cfg models.Configuration) bool {
	name := Normalize(candidateName)
	if !cfg.AllowParadox && paradoxNames.contains(name) {
		return true
	}
	if !cfg.AllowUltraBeast && ultraBeastNames.contains(name) {
		return true
	}
	if !cfg.AllowMythical && mythicalNames.contains(name) {
		return true
	}
	if !cfg.AllowLegendary && legendaryNames.contains(name) {
		return true
	}
	return false
}

// Filter combines the category check with monotype and per-format rules.
// A Filter is immutable after construction and safe for concurrent use.
type Filter struct {
	rules map[string][]rule
}

type rule struct {
	expr string
	prg  cel.Program
}

// NewFilter compiles the per-format CEL rules. Each expression sees a
// `candidate` map with keys name, types, tier and usage and must return bool.
func NewFilter(formatRules map[string][]string) (*Filter, error) {
	env, err := cel.NewEnv(
		cel.Variable("candidate", cel.MapType(cel.StringType, cel.DynType)),
	)
	if err != nil {
		return nil, fmt.Errorf("cel env: %w", err)
	}

	f := &Filter{rules: make(map[string][]rule, len(formatRules))}
	for format, exprs := range formatRules {
		key := Normalize(format)
		for _, expr := range exprs {
			ast, iss := env.Compile(expr)
			if iss != nil && iss.Err() != nil {
				return nil, fmt.Errorf("format %q rule %q: %w", format, expr, iss.Err())
			}
			if out := ast.OutputType(); !out.IsExactType(cel.BoolType) && !out.IsExactType(cel.DynType) {
				return nil, fmt.Errorf("format %q rule %q: must evaluate to bool, got %s", format, expr, ast.OutputType())
			}
			prg, err := env.Program(ast)
			if err != nil {
				return nil, fmt.Errorf("format %q rule %q: %w", format, expr, err)
			}
			f.rules[key] = append(f.rules[key], rule{expr: expr, prg: prg})
		}
	}
	return f, nil
}

// Eligible reports whether c passes every check for cfg.
func (f *Filter) Eligible(c models.Candidate, cfg models.Configuration) bool {
	if IsExcluded(c.Name, cfg) {
		return false
	}
	if cfg.Monotype && cfg.MonotypeType != "" && !c.HasType(cfg.MonotypeType) {
		return false
	}
	return f.passesFormat(c, cfg.Format)
}

// Apply keeps the eligible candidates whose ids are not in skip, preserving order.
func (f *Filter) Apply(cands []models.Candidate, cfg models.Configuration, skip map[int]struct{}) []models.Candidate {
	out := make([]models.Candidate, 0, len(cands))
	for _, c := range cands {
		if _, ok := skip[c.ID]; ok {
			continue
		}
		if !f.Eligible(c, cfg) {
			continue
		}
		out = append(out, c)
	}
	return out
}

func (f *Filter) passesFormat(c models.Candidate, format string) bool {
	if f == nil || format == "" {
		return true
	}
	rules := f.rules[Normalize(format)]
	if len(rules) == 0 {
		return true
	}

	types := make([]any, len(c.Types))
	for i, t := range c.Types {
		types[i] = t
	}
	vars := map[string]any{
		"candidate": map[string]any{
			"name":  c.Name,
			"types": types,
			"tier":  c.Tier,
			"usage": c.Usage,
		},
	}
	for _, r := range rules {
		out, _, err := r.prg.Eval(vars)
		if err != nil {
			log.Warn().Err(err).Str("format", format).Str("rule", r.expr).Int("candidate", c.ID).Msg("Format rule evaluation failed")
			return false
		}
		if ok, _ := out.Value().(bool); !ok {
			return false
		}
	}
	return true
}

// IDSet builds a lookup set from id lists.
func IDSet(lists ...[]int) map[int]struct{} {
	n := 0
	for _, l := range lists {
		n += len(l)
	}
	s := make(map[int]struct{}, n)
	for _, l := range lists {
		for _, id := range l {
			s[id] = struct{}{}
		}
	}
	return s
}
