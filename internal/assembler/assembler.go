// Package assembler maps a model's selection back onto the retrieved pool.
package assembler

import "github.com/rosterlab/rosterlab/pkg/models"

// Assemble returns up to slotsNeeded candidates from pool. Selected ids are
// taken in order, skipping duplicates and ids outside the pool; any
// shortfall is filled from the rest of the pool in pool order. Builds are
// attached where present. backfilled counts the pool-order fills.
func Assemble(selected []int, pool []models.Candidate, builds map[int]models.Build, slotsNeeded int) (team []models.Candidate, backfilled int) {
	if slotsNeeded <= 0 || len(pool) == 0 {
		return nil, 0
	}

	byID := make(map[int]models.Candidate, len(pool))
	for _, c := range pool {
		byID[c.ID] = c
	}

	used := make(map[int]struct{}, slotsNeeded)
	team = make([]models.Candidate, 0, min(slotsNeeded, len(pool)))
	add := func(c models.Candidate) {
		used[c.ID] = struct{}{}
		if b, ok := builds[c.ID]; ok {
			c = c.WithBuild(&b)
		} else {
			c = c.WithBuild(nil)
		}
		team = append(team, c)
	}

	for _, id := range selected {
		if len(team) == slotsNeeded {
			break
		}
		c, ok := byID[id]
		if !ok {
			continue
		}
		if _, dup := used[id]; dup {
			continue
		}
		add(c)
	}

	for _, c := range pool {
		if len(team) == slotsNeeded {
			break
		}
		if _, dup := used[c.ID]; dup {
			continue
		}
		add(c)
		backfilled++
	}
	return team, backfilled
}
