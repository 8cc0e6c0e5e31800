// Package orchestrator drives roster generation from the client side: it
// owns the roster, its locks and the blacklist, and runs fill rounds
// against the suggestion API.
//
// Rounds are strictly sequential. Roster state changes only between
// rounds; a failed round leaves the roster as of the last good one.
package orchestrator

import (
	"context"
	"fmt"
	"slices"

	"github.com/rs/zerolog/log"

	"github.com/rosterlab/rosterlab/pkg/models"
)

// MaxFillRetries bounds the rounds of one fill.
const MaxFillRetries = 2

// Suggester is the suggestion API.
type Suggester interface {
	Suggest(ctx context.Context, req models.SuggestRequest) (*models.SuggestResponse, error)
}

// Blacklist is the user's persisted set of banned candidates.
type Blacklist interface {
	Blacklist(ctx context.Context) ([]int, error)
	Ban(ctx context.Context, id int) error
}

// Status is the fill state machine position.
type Status int

const (
	StatusIdle Status = iota
	StatusFilling
	StatusSucceeded
	StatusFailed
)

func (s Status) String() string {
	switch s {
	case StatusFilling:
		return "filling"
	case StatusSucceeded:
		return "succeeded"
	case StatusFailed:
		return "failed"
	default:
		return "idle"
	}
}

// State is everything the orchestrator persists between invocations.
type State struct {
	Roster  Roster               `json:"roster"`
	Config  models.Configuration `json:"config"`
	Report  *models.AIReport     `json:"report,omitempty"`
	Dynamic bool                 `json:"dynamic"`
}

// Orchestrator is not safe for concurrent use.
type Orchestrator struct {
	api       Suggester
	blacklist Blacklist
	state     State
	status    Status
}

// New resumes from state.
func New(api Suggester, blacklist Blacklist, state State) *Orchestrator {
	o := &Orchestrator{api: api, blacklist: blacklist, state: state}
	o.syncLeaderLock()
	return o
}

func (o *Orchestrator) State() State { return o.state }
func (o *Orchestrator) Status() Status { return o.status }

// SetConfig replaces the configuration used by later rounds.
func (o *Orchestrator) SetConfig(cfg models.Configuration) {
	o.state.Config = cfg
	o.syncLeaderLock()
}

// Fill runs up to MaxFillRetries rounds until no slot is empty. Filled
// slots that are not locked are cleared first and their ids ignored.
// In leader mode the leader slot must be filled before any round runs.
func (o *Orchestrator) Fill(ctx context.Context) error {
	if o.leaderMode() && !o.state.Roster[0].Filled() {
		return ErrNoLeader
	}
	o.status = StatusFilling

	banned, err := o.blacklist.Blacklist(ctx)
	if err != nil {
		o.status = StatusFailed
		return fmt.Errorf("load blacklist: %w", err)
	}
	ignored := idSet(banned)

	working := o.state.Roster
	for i, s := range working {
		if s.Filled() && !s.Locked {
			ignored[s.Candidate.ID] = struct{}{}
			working[i] = Slot{}
		}
	}

	for round := 1; round <= MaxFillRetries && working.Empty() > 0; round++ {
		if o.leaderMode() && !working[0].Filled() {
			o.status = StatusFailed
			return ErrNoLeader
		}
		resp, err := o.api.Suggest(ctx, o.request(working, ignored))
		if err != nil {
			o.status = StatusFailed
			log.Warn().Err(err).Int("round", round).Msg("Fill round failed")
			return classify(err)
		}

		var placed []int
		working, placed = Reduce(working, *resp, ignored)
		for _, id := range placed {
			ignored[id] = struct{}{}
		}
		o.commit(working, resp)

		log.Info().
			Int("round", round).
			Ints("placed", placed).
			Int("empty", working.Empty()).
			Bool("dynamic", resp.IsDynamicMode).
			Msg("Fill round complete")
	}

	o.status = StatusSucceeded
	return nil
}

// BanAndRegenerate removes the candidate in slot, bans it, and runs one
// round that refills only that slot. Slots that were filled but not
// explicitly locked are released for the round and then restored with
// their original lock flags. On failure the roster is rolled back; the
// ban stays.
func (o *Orchestrator) BanAndRegenerate(ctx context.Context, slot int) error {
	if err := checkSlot(slot); err != nil {
		return err
	}
	if o.isLeaderSlot(slot) {
		return ErrLeaderSlot
	}
	before := o.state.Roster
	if !before[slot].Filled() {
		return ErrEmptySlot
	}
	bannedID := before[slot].Candidate.ID

	if err := o.blacklist.Ban(ctx, bannedID); err != nil {
		return fmt.Errorf("ban %d: %w", bannedID, err)
	}
	banned, err := o.blacklist.Blacklist(ctx)
	if err != nil {
		return fmt.Errorf("load blacklist: %w", err)
	}
	ignored := idSet(banned)
	ignored[bannedID] = struct{}{}

	o.status = StatusFilling
	working := before
	working[slot] = Slot{}
	for i, s := range working {
		if !s.Filled() || s.Explicit || o.isLeaderSlot(i) {
			continue
		}
		working[i].Locked = false
		ignored[s.Candidate.ID] = struct{}{}
	}

	resp, err := o.api.Suggest(ctx, o.request(working, ignored))
	if err != nil {
		o.state.Roster = before
		o.status = StatusFailed
		log.Warn().Err(err).Int("slot", slot).Int("banned", bannedID).Msg("Repair round failed, roster rolled back")
		return classify(err)
	}

	working, placed := ReduceSlot(working, *resp, ignored, slot)
	for i := range working {
		if i == slot || !working[i].Filled() || !before[i].Filled() {
			continue
		}
		if working[i].Candidate.ID == before[i].Candidate.ID {
			working[i].Locked = before[i].Locked
			working[i].Explicit = before[i].Explicit
		}
	}
	o.commit(working, resp)
	o.status = StatusSucceeded

	log.Info().Int("slot", slot).Int("banned", bannedID).Ints("placed", placed).Msg("Slot repaired")
	return nil
}

// Lock marks a filled slot as explicitly locked.
func (o *Orchestrator) Lock(slot int) error {
	if err := o.userSlot(slot); err != nil {
		return err
	}
	if !o.state.Roster[slot].Filled() {
		return ErrEmptySlot
	}
	o.state.Roster[slot].Locked = true
	o.state.Roster[slot].Explicit = true
	return nil
}

// Unlock releases a slot so the next fill replaces it.
func (o *Orchestrator) Unlock(slot int) error {
	if err := o.userSlot(slot); err != nil {
		return err
	}
	o.state.Roster[slot].Locked = false
	o.state.Roster[slot].Explicit = false
	return nil
}

// Set places c in slot as an explicit choice.
func (o *Orchestrator) Set(slot int, c models.Candidate) error {
	if err := checkSlot(slot); err != nil {
		return err
	}
	for i, s := range o.state.Roster {
		if i != slot && s.Filled() && s.Candidate.ID == c.ID {
			return fmt.Errorf("%w: %s is in slot %d", ErrDuplicate, c.Name, i)
		}
	}
	o.state.Roster[slot] = Slot{Candidate: &c, Locked: true, Explicit: !o.isLeaderSlot(slot)}
	return nil
}

// Clear empties a slot.
func (o *Orchestrator) Clear(slot int) error {
	if err := checkSlot(slot); err != nil {
		return err
	}
	o.state.Roster[slot] = Slot{}
	return nil
}

// ── Helpers ─────────────────────────────────────────────────

func (o *Orchestrator) leaderMode() bool {
	return o.state.Config.Mode == models.ModeLeader
}

func (o *Orchestrator) isLeaderSlot(i int) bool {
	return i == 0 && o.leaderMode()
}

// syncLeaderLock keeps the leader slot's lock equal to "is occupied".
func (o *Orchestrator) syncLeaderLock() {
	if !o.leaderMode() {
		return
	}
	s := &o.state.Roster[0]
	s.Locked = s.Filled()
	s.Explicit = false
}

func (o *Orchestrator) userSlot(slot int) error {
	if err := checkSlot(slot); err != nil {
		return err
	}
	if o.isLeaderSlot(slot) {
		return ErrLeaderSlot
	}
	return nil
}

func (o *Orchestrator) commit(r Roster, resp *models.SuggestResponse) {
	o.state.Roster = r
	report := resp.AIReport
	o.state.Report = &report
	o.state.Dynamic = resp.IsDynamicMode
	o.syncLeaderLock()
}

// request builds the round request from the working roster.
func (o *Orchestrator) request(r Roster, ignored map[int]struct{}) models.SuggestRequest {
	req := models.SuggestRequest{
		Config:      o.state.Config,
		LockedIDs:   r.LockedIDs(),
		IgnoredIDs:  sortedIDs(ignored),
		ScratchMode: true,
	}
	if o.leaderMode() && r[0].Filled() {
		id := r[0].Candidate.ID
		req.LeaderID = &id
		req.ScratchMode = false
	}
	return req
}

func checkSlot(slot int) error {
	if slot < 0 || slot >= models.RosterSize {
		return fmt.Errorf("%w: %d", ErrSlotRange, slot)
	}
	return nil
}

func idSet(ids []int) map[int]struct{} {
	s := make(map[int]struct{}, len(ids))
	for _, id := range ids {
		s[id] = struct{}{}
	}
	return s
}

func sortedIDs(s map[int]struct{}) []int {
	ids := make([]int, 0, len(s))
	for id := range s {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids
}
