package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/rosterlab/rosterlab/internal/orchestrator"
	"github.com/rosterlab/rosterlab/pkg/models"
)

func printRoster(w io.Writer, st orchestrator.State) {
	fmt.Fprintln(w, strings.Repeat("─", 60))
	for i, s := range st.Roster {
		mark := " "
		switch {
		case s.Explicit:
			mark = "🔒"
		case s.Locked && s.Filled():
			mark = "·"
		}
		if !s.Filled() {
			fmt.Fprintf(w, "%d %s  (empty)\n", i+1, mark)
			continue
		}
		c := s.Candidate
		fmt.Fprintf(w, "%d %s  %-22s %-18s [%d]\n", i+1, mark, c.Name, c.TypeLabel(), c.ID)
		if b := c.Build; b != nil {
			fmt.Fprintf(w, "       %s @ %s | %s | %s\n", b.Ability, b.Item, b.Nature, b.EVs)
			if len(b.Moves) > 0 {
				fmt.Fprintf(w, "       - %s\n", strings.Join(b.Moves, " / "))
			}
		}
	}
	fmt.Fprintln(w, strings.Repeat("─", 60))
	if st.Dynamic {
		fmt.Fprintln(w, "Note: the leader has no strategy profile; picks are popularity-based.")
	}
	if r := st.Report; r != nil && r.Strategy != "" {
		fmt.Fprintf(w, "Strategy: %s\n", r.Strategy)
		printList(w, "Strengths", r.Strengths)
		printList(w, "Weaknesses", r.Weaknesses)
		for _, l := range r.Leads {
			fmt.Fprintf(w, "Lead: %s (%s)\n", l.Candidate, l.Condition)
		}
	}
}

func printReview(w io.Writer, r *models.ReviewResult) {
	fmt.Fprintf(w, "Score: %d/100 (%s)\n", r.Score, r.Grade)
	if r.Summary != "" {
		fmt.Fprintln(w, r.Summary)
	}
	printList(w, "Strengths", r.Strengths)
	printList(w, "Weaknesses", r.Weaknesses)
	printList(w, "Suggestions", r.Suggestions)
}

func printList(w io.Writer, title string, items []string) {
	if len(items) == 0 {
		return
	}
	fmt.Fprintf(w, "%s:\n", title)
	for _, it := range items {
		fmt.Fprintf(w, "  • %s\n", it)
	}
}
