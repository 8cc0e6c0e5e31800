package prompt

import (
	"fmt"
	"strings"

	"github.com/rosterlab/rosterlab/pkg/models"
)

// BuildReview renders the review-scoring prompt for a finished team. Each
// member may carry its build.
func BuildReview(cfg models.Configuration, team []models.Candidate) string {
	var b strings.Builder
	b.WriteString("You are a strict competitive team reviewer.\n")
	fmt.Fprintf(&b, "Format: %s\n", orDefault(cfg.Format, "Standard singles"))
	for _, r := range cfg.Rules {
		fmt.Fprintf(&b, "Rule: %s\n", r)
	}
	if mods := Modifiers(cfg); len(mods) > 0 {
		b.WriteString("Intended modifiers:\n")
		for _, m := range mods {
			fmt.Fprintf(&b, "- %s\n", m)
		}
	}
	b.WriteString("\n")
	b.WriteString(experienceBlock(cfg.Experience))

	b.WriteString("\nTeam:\n")
	for _, c := range team {
		b.WriteString(candidateLine(c))
		if c.Build == nil {
			continue
		}
		bd := c.Build
		fmt.Fprintf(&b, "    %s @ %s | %s | EVs %s | IVs %s",
			orDefault(bd.Ability, "any ability"), orDefault(bd.Item, "no item"), orDefault(bd.Nature, "any nature"),
			orDefault(bd.EVs, "unspecified"), orDefault(bd.IVs, "31/31/31/31/31/31"))
		if bd.TeraType != "" {
			fmt.Fprintf(&b, " | Tera %s", bd.TeraType)
		}
		if len(bd.Moves) > 0 {
			fmt.Fprintf(&b, "\n    Moves: %s", strings.Join(bd.Moves, ", "))
		}
		b.WriteString("\n")
	}

	b.WriteString(`
Score the team from 0 to 100 on coverage, synergy, speed control and matchup spread.
Return ONLY a single JSON object, no markdown, matching:
{
  "score": number,
  "summary": "string",
  "strengths": ["string"],
  "weaknesses": ["string"],
  "suggestions": ["string"]
}
`)
	return b.String()
}
