package models

import (
	"strings"
)

// RosterSize is the number of slots in a team.
const RosterSize = 6

// ── Candidate ────────────────────────────────────────────────

// Candidate is a catalog entry eligible for roster placement.
// Candidates are read from storage and never mutated by the pipeline.
type Candidate struct {
	ID              int      `json:"id"`
	Name            string   `json:"name"`
	Types           []string `json:"types"`
	Tier            string   `json:"tier"`
	Usage           float64  `json:"usage"`
	StrategyProfile string   `json:"strategyProfile,omitempty"`
	Build           *Build   `json:"build,omitempty"`

	// Embedding is the strategic-profile vector. Never serialised to clients.
	Embedding []float32 `json:"-"`
}

// TypeLabel renders the elemental types as "Type1/Type2".
func (c Candidate) TypeLabel() string {
	return strings.Join(c.Types, "/")
}

// HasType reports whether the candidate carries the given type (case-insensitive).
func (c Candidate) HasType(t string) bool {
	for _, ct := range c.Types {
		if strings.EqualFold(ct, t) {
			return true
		}
	}
	return false
}

// WithBuild returns a copy of the candidate carrying the given build.
func (c Candidate) WithBuild(b *Build) Candidate {
	c.Build = b
	return c
}

// Build is a concrete competitive set for one candidate.
type Build struct {
	Item     string   `json:"item"`
	Ability  string   `json:"ability"`
	Nature   string   `json:"nature"`
	EVs      string   `json:"evs"`
	IVs      string   `json:"ivs"`
	Moves    []string `json:"moves"`
	TeraType string   `json:"teraType,omitempty"`
}

// MaxMoves is the move cap of a build.
const MaxMoves = 4

// ── Configuration ────────────────────────────────────────────

type ExperienceLevel string

const (
	ExperienceNovice ExperienceLevel = "novice"
	ExperienceExpert ExperienceLevel = "expert"
)

type GenerationMode string

const (
	ModeLeader  GenerationMode = "leader"
	ModeScratch GenerationMode = "scratch"
)

type Archetype string

const (
	ArchetypeBalance      Archetype = "balance"
	ArchetypeHyperOffense Archetype = "hyper-offense"
	ArchetypeBulkyOffense Archetype = "bulky-offense"
	ArchetypeStall        Archetype = "stall"
	ArchetypeTrickRoom    Archetype = "trick-room"
	ArchetypeWeather      Archetype = "weather"
)

// Configuration enumerates the toggles that shape one generation.
// It is pure data and always passed by value.
type Configuration struct {
	Format     string          `json:"format"`
	Directive  string          `json:"directive"`
	Experience ExperienceLevel `json:"experience"`
	Rules      []string        `json:"rules"`

	AllowLegendary  bool `json:"allowLegendary"`
	AllowMythical   bool `json:"allowMythical"`
	AllowParadox    bool `json:"allowParadox"`
	AllowUltraBeast bool `json:"allowUltraBeast"`

	// Monotype restricts every slot to MonotypeType.
	Monotype     bool   `json:"monotype"`
	MonotypeType string `json:"monotypeType,omitempty"`

	Weather string `json:"weather,omitempty"`
	Terrain string `json:"terrain,omitempty"`

	// Speed-control preferences.
	PreferTrickRoom bool `json:"preferTrickRoom"`
	PreferTailwind  bool `json:"preferTailwind"`

	Archetype Archetype `json:"archetype,omitempty"`

	Mechanics Mechanics `json:"mechanics"`

	Mode GenerationMode `json:"mode,omitempty"`
}

// Mechanics are the optional battle mechanics the generation may use.
type Mechanics struct {
	Tera       bool `json:"tera"`
	Mega       bool `json:"mega"`
	ZMoves     bool `json:"zMoves"`
	Dynamax    bool `json:"dynamax"`
	ItemClause bool `json:"itemClause"`
}

// ── AI report ────────────────────────────────────────────────

// AIReport is the narrative produced by one generation round.
type AIReport struct {
	Strategy   string               `json:"strategy"`
	Strengths  []string             `json:"strengths"`
	Weaknesses []string             `json:"weaknesses"`
	Leads      []LeadRecommendation `json:"leads"`
}

// LeadRecommendation names a candidate and when to bring it in or pull it out.
type LeadRecommendation struct {
	Candidate string `json:"candidate"`
	Condition string `json:"condition"`
}

// ── Suggest endpoint ─────────────────────────────────────────

type SuggestRequest struct {
	LeaderID    *int          `json:"leaderId"`
	Config      Configuration `json:"config"`
	LockedIDs   []int         `json:"lockedIds"`
	IgnoredIDs  []int         `json:"ignoredIds"`
	ScratchMode bool          `json:"scratchMode"`
}

// Scratch reports whether the request runs without a pinned leader.
func (r SuggestRequest) Scratch() bool {
	return r.ScratchMode || r.LeaderID == nil || r.Config.Mode == ModeScratch
}

type SuggestResponse struct {
	Team           []Candidate   `json:"team"`
	ValidLockedIDs []int         `json:"validLockedIds"`
	AIReport       AIReport      `json:"aiReport"`
	Builds         map[int]Build `json:"builds"`
	IsDynamicMode  bool          `json:"isDynamicMode"`
}

// RankQuery bounds a storage ranking query.
type RankQuery struct {
	ExcludeIDs []int
	Limit      int
}

// ── Review endpoint ──────────────────────────────────────────

type ReviewMember struct {
	ID    int    `json:"id"`
	Build *Build `json:"build,omitempty"`
}

type ReviewRequest struct {
	Team   []ReviewMember `json:"team"`
	Config Configuration  `json:"config"`
}

type ReviewResult struct {
	Score       int      `json:"score"`
	Grade       string   `json:"grade"`
	Summary     string   `json:"summary"`
	Strengths   []string `json:"strengths"`
	Weaknesses  []string `json:"weaknesses"`
	Suggestions []string `json:"suggestions"`
}

// GradeFor maps a 0..100 score onto a letter grade.
func GradeFor(score int) string {
	switch {
	case score >= 90:
		return "S"
	case score >= 80:
		return "A"
	case score >= 65:
		return "B"
	case score >= 50:
		return "C"
	default:
		return "D"
	}
}

// ── Errors on the wire ───────────────────────────────────────

// Machine-readable error codes carried in every JSON error body.
const (
	CodeInvalidRoster   = "INVALID_ROSTER"
	CodeInvalidRequest  = "INVALID_REQUEST"
	CodeNotFound        = "NOT_FOUND"
	CodeUnauthorized    = "UNAUTHORIZED"
	CodeForbiddenOrigin = "FORBIDDEN_ORIGIN"
	CodeRateLimited     = "RATE_LIMITED"
	CodeUpstreamQuota   = "UPSTREAM_QUOTA"
	CodeSchemaError     = "SCHEMA_ERROR"
	CodeInternal        = "INTERNAL"
)

// ErrorResponse is the JSON body of every non-2xx response.
type ErrorResponse struct {
	Error             string `json:"error"`
	Code              string `json:"code"`
	RetryAfterSeconds int    `json:"retryAfterSeconds,omitempty"`
}
