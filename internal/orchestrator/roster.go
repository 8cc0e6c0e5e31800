package orchestrator

import (
	"github.com/rosterlab/rosterlab/pkg/models"
)

// Slot holds one roster position. Locked slots are sent to the server as
// locked ids; Explicit marks a lock the user set, as opposed to the
// automatic lock every placement gets.
type Slot struct {
	Candidate *models.Candidate `json:"candidate,omitempty"`
	Locked    bool              `json:"locked"`
	Explicit  bool              `json:"explicit,omitempty"`
}

// Filled reports whether the slot holds a candidate.
func (s Slot) Filled() bool { return s.Candidate != nil }

// Roster is the six-slot team. Slot 0 is the leader slot in leader mode.
type Roster [models.RosterSize]Slot

// Empty counts the unfilled slots.
func (r Roster) Empty() int {
	n := 0
	for _, s := range r {
		if !s.Filled() {
			n++
		}
	}
	return n
}

// IDs returns the ids of the filled slots in slot order.
func (r Roster) IDs() []int {
	ids := make([]int, 0, len(r))
	for _, s := range r {
		if s.Filled() {
			ids = append(ids, s.Candidate.ID)
		}
	}
	return ids
}

// LockedIDs returns the ids of the locked, filled slots in slot order.
func (r Roster) LockedIDs() []int {
	ids := make([]int, 0, len(r))
	for _, s := range r {
		if s.Filled() && s.Locked {
			ids = append(ids, s.Candidate.ID)
		}
	}
	return ids
}

// Reduce merges one round's result into r and returns the new roster and
// the ids it placed, in slot order.
//
// Locked slots whose id is missing from ValidLockedIDs are cleared and
// unlocked, and stay empty for the next round. Every other unlocked slot
// takes the next suggestion that is not already on the roster and not in
// exclude. Placements are locked but not explicit.
func Reduce(r Roster, res models.SuggestResponse, exclude map[int]struct{}) (Roster, []int) {
	return reduce(r, res, exclude, -1)
}

// ReduceSlot is Reduce restricted to a single target slot.
func ReduceSlot(r Roster, res models.SuggestResponse, exclude map[int]struct{}, target int) (Roster, []int) {
	return reduce(r, res, exclude, target)
}

func reduce(r Roster, res models.SuggestResponse, exclude map[int]struct{}, target int) (Roster, []int) {
	valid := make(map[int]struct{}, len(res.ValidLockedIDs))
	for _, id := range res.ValidLockedIDs {
		valid[id] = struct{}{}
	}

	var invalidated [models.RosterSize]bool
	for i, s := range r {
		if !s.Filled() || !s.Locked {
			continue
		}
		id := s.Candidate.ID
		if _, ok := valid[id]; !ok {
			r[i] = Slot{}
			invalidated[i] = true
			continue
		}
		if b, ok := res.Builds[id]; ok {
			c := s.Candidate.WithBuild(&b)
			r[i].Candidate = &c
		}
	}

	present := make(map[int]struct{}, len(r))
	for _, id := range r.IDs() {
		present[id] = struct{}{}
	}

	var placed []int
	next := 0
	for i := range r {
		if invalidated[i] || r[i].Locked {
			continue
		}
		if target >= 0 && i != target {
			continue
		}
		c, ok := nextSuggestion(res, &next, present, exclude)
		if !ok {
			break
		}
		if r[i].Filled() {
			delete(present, r[i].Candidate.ID)
		}
		r[i] = Slot{Candidate: c, Locked: true}
		present[c.ID] = struct{}{}
		placed = append(placed, c.ID)
	}
	return r, placed
}

func nextSuggestion(res models.SuggestResponse, next *int, present, exclude map[int]struct{}) (*models.Candidate, bool) {
	for *next < len(res.Team) {
		c := res.Team[*next]
		*next++
		if _, dup := present[c.ID]; dup {
			continue
		}
		if _, skip := exclude[c.ID]; skip {
			continue
		}
		if c.Build == nil {
			if b, ok := res.Builds[c.ID]; ok {
				c = c.WithBuild(&b)
			}
		}
		return &c, true
	}
	return nil, false
}
