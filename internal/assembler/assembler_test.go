package assembler_test

import (
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/rosterlab/rosterlab/internal/assembler"
	"github.com/rosterlab/rosterlab/pkg/models"
)

func pool(n int) []models.Candidate {
	out := make([]models.Candidate, n)
	for i := range out {
		out[i] = models.Candidate{ID: 100 + i, Name: "c"}
	}
	return out
}

func teamIDs(team []models.Candidate) []int {
	out := make([]int, len(team))
	for i, c := range team {
		out[i] = c.ID
	}
	return out
}

func TestAssemble_AllValidNoBackfill(t *testing.T) {
	p := pool(40)
	selected := []int{139, 101, 120, 105, 110, 133}
	team, backfilled := assembler.Assemble(selected, p, nil, 6)

	if diff := cmp.Diff(selected, teamIDs(team)); diff != "" {
		t.Errorf("Assemble() mismatch (-want +got):\n%s", diff)
	}
	if backfilled != 0 {
		t.Errorf("Assemble() backfilled = %d, want 0", backfilled)
	}
}

func TestAssemble_BackfillsInPoolOrder(t *testing.T) {
	p := pool(30)
	// Three valid ids; the rest are duplicates or outside the pool.
	selected := []int{103, 103, 999, 101, -5, 110}
	team, backfilled := assembler.Assemble(selected, p, nil, 5)

	want := []int{103, 101, 110, 100, 102}
	if diff := cmp.Diff(want, teamIDs(team)); diff != "" {
		t.Errorf("Assemble() mismatch (-want +got):\n%s", diff)
	}
	if backfilled != 2 {
		t.Errorf("Assemble() backfilled = %d, want 2", backfilled)
	}
}

func TestAssemble_NeverLeavesThePool(t *testing.T) {
	p := pool(3)
	team, _ := assembler.Assemble([]int{1, 2, 3, 4, 5, 6}, p, nil, 6)
	if diff := cmp.Diff([]int{100, 101, 102}, teamIDs(team)); diff != "" {
		t.Errorf("Assemble() mismatch (-want +got):\n%s", diff)
	}
}

func TestAssemble_AttachesBuilds(t *testing.T) {
	p := pool(3)
	p[1].Build = &models.Build{Item: "stale"}
	builds := map[int]models.Build{100: {Item: "Leftovers", Moves: []string{"Protect"}}}

	team, _ := assembler.Assemble([]int{100, 101}, p, builds, 2)
	if team[0].Build == nil || team[0].Build.Item != "Leftovers" {
		t.Errorf("team[0].Build = %+v, want Leftovers", team[0].Build)
	}
	if team[1].Build != nil {
		t.Errorf("team[1].Build = %+v, want nil", team[1].Build)
	}
	if p[1].Build == nil {
		t.Error("Assemble() mutated the pool")
	}
}

func TestAssemble_Truncates(t *testing.T) {
	team, _ := assembler.Assemble([]int{100, 101, 102}, pool(5), nil, 2)
	if diff := cmp.Diff([]int{100, 101}, teamIDs(team)); diff != "" {
		t.Errorf("Assemble() mismatch (-want +got):\n%s", diff)
	}
	if team, _ := assembler.Assemble([]int{100}, pool(5), nil, 0); team != nil {
		t.Errorf("Assemble(slotsNeeded=0) = %v, want nil", team)
	}
}
