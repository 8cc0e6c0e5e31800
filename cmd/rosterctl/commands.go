package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/rosterlab/rosterlab/internal/localstore"
	"github.com/rosterlab/rosterlab/pkg/models"
)

var fillCmd = &cobra.Command{
	Use:   "fill",
	Short: "Fill every empty or unlocked slot",
	Args:  cobra.NoArgs,
	RunE: withSession(func(s *session, _ []string) error {
		return s.orch.Fill(s.ctx)
	}),
}

var banCmd = &cobra.Command{
	Use:   "ban <slot>",
	Short: "Blacklist the candidate in a slot and regenerate that slot",
	Args:  cobra.ExactArgs(1),
	RunE: withSession(func(s *session, args []string) error {
		slot, err := parseSlot(args[0])
		if err != nil {
			return err
		}
		return s.orch.BanAndRegenerate(s.ctx, slot)
	}),
}

var lockCmd = &cobra.Command{
	Use:   "lock <slot>",
	Short: "Keep a slot through fills and bans",
	Args:  cobra.ExactArgs(1),
	RunE: withSession(func(s *session, args []string) error {
		slot, err := parseSlot(args[0])
		if err != nil {
			return err
		}
		return s.orch.Lock(slot)
	}),
}

var unlockCmd = &cobra.Command{
	Use:   "unlock <slot>",
	Short: "Let the next fill replace a slot",
	Args:  cobra.ExactArgs(1),
	RunE: withSession(func(s *session, args []string) error {
		slot, err := parseSlot(args[0])
		if err != nil {
			return err
		}
		return s.orch.Unlock(slot)
	}),
}

var setCmd = &cobra.Command{
	Use:   "set <slot> <candidate-id>",
	Short: "Put a catalog candidate in a slot",
	Args:  cobra.ExactArgs(2),
	RunE: withSession(func(s *session, args []string) error {
		slot, err := parseSlot(args[0])
		if err != nil {
			return err
		}
		id, err := strconv.Atoi(args[1])
		if err != nil {
			return fmt.Errorf("candidate id %q is not a number", args[1])
		}
		c, err := s.api.Candidate(s.ctx, id)
		if err != nil {
			return err
		}
		return s.orch.Set(slot, *c)
	}),
}

var clearCmd = &cobra.Command{
	Use:   "clear <slot>",
	Short: "Empty a slot",
	Args:  cobra.ExactArgs(1),
	RunE: withSession(func(s *session, args []string) error {
		slot, err := parseSlot(args[0])
		if err != nil {
			return err
		}
		return s.orch.Clear(slot)
	}),
}

var showCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the roster",
	Args:  cobra.NoArgs,
	RunE: withSession(func(*session, []string) error {
		return nil
	}),
}

var configCmd = &cobra.Command{
	Use:   "config [file.json]",
	Short: "Print the configuration, or replace it from a JSON file",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := openSession(cmd)
		if err != nil {
			return err
		}
		defer s.close()

		if len(args) == 1 {
			raw, err := os.ReadFile(args[0])
			if err != nil {
				return err
			}
			var cfg models.Configuration
			if err := json.Unmarshal(raw, &cfg); err != nil {
				return fmt.Errorf("parse %s: %w", args[0], err)
			}
			s.orch.SetConfig(cfg)
			if err := s.save(); err != nil {
				return fmt.Errorf("save config: %w", err)
			}
		}
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(s.orch.State().Config)
	},
}

var reviewCmd = &cobra.Command{
	Use:   "review",
	Short: "Score the current roster",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		s, err := openSession(cmd)
		if err != nil {
			return err
		}
		defer s.close()

		state := s.orch.State()
		req := models.ReviewRequest{Config: state.Config}
		for _, slot := range state.Roster {
			if slot.Filled() {
				req.Team = append(req.Team, models.ReviewMember{ID: slot.Candidate.ID, Build: slot.Candidate.Build})
			}
		}
		if len(req.Team) == 0 {
			return fmt.Errorf("the roster is empty, run fill first")
		}
		res, err := s.api.Review(s.ctx, req)
		if err != nil {
			return err
		}
		printReview(cmd.OutOrStdout(), res)
		return nil
	},
}

var searchLimit int

var searchCmd = &cobra.Command{
	Use:   "search <name>",
	Short: "Search the catalog by name",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := openSession(cmd)
		if err != nil {
			return err
		}
		defer s.close()

		found, err := s.api.Search(s.ctx, args[0], searchLimit)
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		if len(found) == 0 {
			fmt.Fprintln(out, "No candidates found.")
			return nil
		}
		for _, c := range found {
			fmt.Fprintf(out, "  %5d  %-24s %-18s %-6s %5.2f%%\n", c.ID, c.Name, c.TypeLabel(), c.Tier, c.Usage)
		}
		return nil
	},
}

func init() {
	searchCmd.Flags().IntVarP(&searchLimit, "limit", "n", 20, "Maximum results")
}

var blacklistCmd = &cobra.Command{
	Use:   "blacklist",
	Short: "Manage banned candidates",
	RunE:  runBlacklistList,
}

var blacklistListCmd = &cobra.Command{
	Use:   "list",
	Short: "List banned candidate ids",
	Args:  cobra.NoArgs,
	RunE:  runBlacklistList,
}

var blacklistRemoveCmd = &cobra.Command{
	Use:   "remove <candidate-id>",
	Short: "Allow a banned candidate again",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := strconv.Atoi(args[0])
		if err != nil {
			return fmt.Errorf("candidate id %q is not a number", args[0])
		}
		return withStore(cmd, func(st *localstore.Store) error {
			removed, err := st.Unban(cmd.Context(), id)
			if err != nil {
				return err
			}
			if !removed {
				fmt.Fprintf(cmd.OutOrStdout(), "%d was not blacklisted.\n", id)
				return nil
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Removed %d from the blacklist.\n", id)
			return nil
		})
	},
}

var blacklistClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Remove every ban",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		return withStore(cmd, func(st *localstore.Store) error {
			n, err := st.ClearBlacklist(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Cleared %d bans.\n", n)
			return nil
		})
	},
}

func runBlacklistList(cmd *cobra.Command, _ []string) error {
	return withStore(cmd, func(st *localstore.Store) error {
		ids, err := st.Blacklist(cmd.Context())
		if err != nil {
			return err
		}
		if len(ids) == 0 {
			fmt.Fprintln(cmd.OutOrStdout(), "The blacklist is empty.")
			return nil
		}
		for _, id := range ids {
			fmt.Fprintf(cmd.OutOrStdout(), "  %d\n", id)
		}
		return nil
	})
}

func withStore(cmd *cobra.Command, fn func(*localstore.Store) error) error {
	st, err := localstore.Open(statePath, user)
	if err != nil {
		return err
	}
	defer st.Close()
	return fn(st)
}

// parseSlot turns a 1-based slot argument into an index.
func parseSlot(arg string) (int, error) {
	n, err := strconv.Atoi(arg)
	if err != nil || n < 1 || n > models.RosterSize {
		return 0, fmt.Errorf("slot must be 1 to %d, got %q", models.RosterSize, arg)
	}
	return n - 1, nil
}
