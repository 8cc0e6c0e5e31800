// Package prompt renders generation instructions. Every function here is
// pure: the same inputs always produce the same text.
package prompt

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/rosterlab/rosterlab/pkg/models"
)

// Input is everything one suggestion prompt is rendered from.
type Input struct {
	Config models.Configuration

	// Pool is the retrieved candidate pool, in pool order.
	Pool []models.Candidate

	// Locked are the validated locked candidates, leader included.
	Locked []models.Candidate

	// Leader is set in leader-anchored mode.
	Leader *models.Candidate

	// LeaderMoves is the leader's legal movepool, when known.
	LeaderMoves []string

	SlotsNeeded int
}

// Build renders the suggestion prompt. Only ids from Pool and Locked appear
// in the text.
func Build(in Input) string {
	var b strings.Builder
	cfg := in.Config

	b.WriteString("You are an expert competitive team builder.\n")
	fmt.Fprintf(&b, "Format: %s\n", orDefault(cfg.Format, "Standard singles"))
	if len(cfg.Rules) > 0 {
		b.WriteString("Rule clauses:\n")
		for _, r := range cfg.Rules {
			fmt.Fprintf(&b, "- %s\n", r)
		}
	}
	if d := strings.TrimSpace(cfg.Directive); d != "" {
		fmt.Fprintf(&b, "User directive: %s\n", d)
	}

	if mods := Modifiers(cfg); len(mods) > 0 {
		b.WriteString("\nTeam modifiers:\n")
		for _, m := range mods {
			fmt.Fprintf(&b, "- %s\n", m)
		}
	}

	b.WriteString("\n")
	b.WriteString(experienceBlock(cfg.Experience))

	if len(in.Locked) > 0 {
		b.WriteString("\nAlready on the team (keep them, build around them):\n")
		for _, c := range in.Locked {
			b.WriteString(candidateLine(c))
		}
	}
	if in.Leader != nil {
		fmt.Fprintf(&b, "\nThe team is anchored on %s [%d]. Every pick must support it.\n", in.Leader.Name, in.Leader.ID)
	}

	fmt.Fprintf(&b, "\nCandidate pool (choose exactly %d, only from this list):\n", in.SlotsNeeded)
	for _, c := range in.Pool {
		b.WriteString(candidateLine(c))
	}

	b.WriteString("\n")
	b.WriteString(legalityRules(cfg.Mechanics))

	if in.Leader != nil && len(in.LeaderMoves) > 0 {
		fmt.Fprintf(&b, "\nHARD CONSTRAINT: %s may only use these moves: %s. Any other move for %s is invalid.\n",
			in.Leader.Name, strings.Join(in.LeaderMoves, ", "), in.Leader.Name)
	}

	b.WriteString("\n")
	b.WriteString(suggestSchema)
	return b.String()
}

// CandidateLine renders one pool entry as "[ID] Name (T1/T2) | Tier | Usage%".
func CandidateLine(c models.Candidate) string {
	return strings.TrimSuffix(candidateLine(c), "\n")
}

func candidateLine(c models.Candidate) string {
	return fmt.Sprintf("[%d] %s (%s) | %s | %s%%\n",
		c.ID, c.Name, c.TypeLabel(), orDefault(c.Tier, "Untiered"), strconv.FormatFloat(c.Usage, 'f', 2, 64))
}

// Modifiers returns one line per active boolean or enum toggle.
func Modifiers(cfg models.Configuration) []string {
	var out []string
	if cfg.Monotype && cfg.MonotypeType != "" {
		out = append(out, fmt.Sprintf("Monotype: every member must be %s type.", cfg.MonotypeType))
	}
	if cfg.Weather != "" {
		out = append(out, fmt.Sprintf("Weather: build around %s.", cfg.Weather))
	}
	if cfg.Terrain != "" {
		out = append(out, fmt.Sprintf("Terrain: build around %s.", cfg.Terrain))
	}
	if cfg.PreferTrickRoom {
		out = append(out, "Speed control: include a Trick Room setter and slow abusers.")
	}
	if cfg.PreferTailwind {
		out = append(out, "Speed control: include a Tailwind setter.")
	}
	if cfg.Archetype != "" {
		out = append(out, fmt.Sprintf("Archetype: %s.", cfg.Archetype))
	}
	m := cfg.Mechanics
	if m.Tera {
		out = append(out, "Terastallization is allowed: give every build a tera type.")
	}
	if m.Mega {
		out = append(out, "Mega Evolution is allowed: at most one member holds a mega stone.")
	}
	if m.ZMoves {
		out = append(out, "Z-Moves are allowed: at most one member holds a Z-crystal.")
	}
	if m.Dynamax {
		out = append(out, "Dynamax is allowed: name the intended Dynamax user in the strategy.")
	}
	return out
}

const noviceBlock = `Audience: a newer player.
Prefer straightforward, forgiving sets. Explain the game plan in plain words
and give each lead a simple condition for when to switch out.
`

const expertBlock = `Audience: an experienced player.
Optimise for the current metagame. Precise EV spreads, tech moves and
matchup-specific lead conditions are welcome. Keep the prose dense.
`

func experienceBlock(level models.ExperienceLevel) string {
	if level == models.ExperienceExpert {
		return expertBlock
	}
	return noviceBlock
}

func legalityRules(m models.Mechanics) string {
	var b strings.Builder
	b.WriteString("Legality rules:\n")
	b.WriteString("- Only use moves and abilities the candidate can legally have. Never invent moves, abilities or items.\n")
	b.WriteString("- Each build has at most 4 moves, a valid nature, an EV spread totalling at most 510 and IVs.\n")
	if m.ItemClause {
		b.WriteString("- Item clause: no two members may hold the same item.\n")
	} else {
		b.WriteString("- Duplicate items are allowed but avoid them unless they clearly help.\n")
	}
	b.WriteString("- Match items and abilities: no Choice item on setup sweepers, no Assault Vest with status moves.\n")
	if !m.Tera {
		b.WriteString("- Terastallization is not allowed: leave teraType empty.\n")
	}
	return b.String()
}

const suggestSchema = `Return ONLY a single JSON object, no markdown, no commentary, matching:
{
  "report": {
    "strategy": "string",
    "strengths": ["string"],
    "weaknesses": ["string"],
    "leads": [{"candidate": "name", "condition": "when to lead or retreat"}]
  },
  "selected_ids": [number],
  "builds": {
    "<id>": {
      "item": "string",
      "ability": "string",
      "nature": "string",
      "evs": "252 Atk / 4 SpD / 252 Spe",
      "ivs": "31/31/31/31/31/31",
      "moves": ["string"],
      "teraType": "string"
    }
  }
}
selected_ids must contain only ids from the candidate pool. builds should cover
every selected id and every team member listed as already on the team.
`

func orDefault(s, def string) string {
	if strings.TrimSpace(s) == "" {
		return def
	}
	return s
}
