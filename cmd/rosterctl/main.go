// Command rosterctl builds a team from the terminal. The roster, its locks
// and the blacklist live in a local SQLite file so invocations compose:
//
//	rosterctl config team.json
//	rosterctl fill
//	rosterctl ban 3
//	rosterctl lock 2
//	rosterctl review
package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/rosterlab/rosterlab/internal/client"
	"github.com/rosterlab/rosterlab/internal/localstore"
	"github.com/rosterlab/rosterlab/internal/orchestrator"
)

var (
	serverURL string
	apiKey    string
	token     string
	statePath string
	user      string
	timeout   time.Duration
	verbose   bool
)

var rootCmd = &cobra.Command{
	Use:   "rosterctl",
	Short: "Build six-slot teams with the RosterLab API",
	Long: `rosterctl drives the RosterLab suggestion API from the terminal.

Slots are numbered 1 to 6. Filled slots are locked automatically; unlock a
slot to let the next fill replace it, or lock it to keep it through a ban.`,
	SilenceUsage: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		level := zerolog.WarnLevel
		if verbose {
			level = zerolog.DebugLevel
		}
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen}).Level(level)
	},
}

func init() {
	home, _ := os.UserHomeDir()

	rootCmd.PersistentFlags().StringVar(&serverURL, "server", envOr("ROSTERLAB_SERVER", "http://localhost:8080"), "RosterLab server URL (or set ROSTERLAB_SERVER)")
	rootCmd.PersistentFlags().StringVar(&apiKey, "api-key", os.Getenv("ROSTERLAB_API_KEY"), "API key (or set ROSTERLAB_API_KEY)")
	rootCmd.PersistentFlags().StringVar(&token, "token", os.Getenv("ROSTERLAB_TOKEN"), "Session token (or set ROSTERLAB_TOKEN)")
	rootCmd.PersistentFlags().StringVar(&statePath, "state", filepath.Join(home, ".rosterlab", "state.db"), "Local state file")
	rootCmd.PersistentFlags().StringVarP(&user, "user", "u", envOr("ROSTERLAB_USER", "default"), "Local profile name")
	rootCmd.PersistentFlags().DurationVar(&timeout, "timeout", 5*time.Minute, "Operation timeout")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose logging")

	rootCmd.AddCommand(fillCmd, banCmd, lockCmd, unlockCmd, setCmd, clearCmd, showCmd, configCmd, reviewCmd, searchCmd, blacklistCmd)
	blacklistCmd.AddCommand(blacklistListCmd, blacklistRemoveCmd, blacklistClearCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// session is one invocation's view of the local state.
type session struct {
	store  *localstore.Store
	api    *client.Client
	orch   *orchestrator.Orchestrator
	ctx    context.Context
	cancel context.CancelFunc
}

func openSession(cmd *cobra.Command) (*session, error) {
	st, err := localstore.Open(statePath, user)
	if err != nil {
		return nil, err
	}
	ctx, cancel := context.WithTimeout(cmd.Context(), timeout)

	var state orchestrator.State
	if _, err := st.LoadSnapshot(ctx, &state); err != nil {
		cancel()
		st.Close()
		return nil, err
	}

	api := client.New(serverURL, client.WithAPIKey(apiKey), client.WithSessionToken(token))
	return &session{
		store:  st,
		api:    api,
		orch:   orchestrator.New(api, st, state),
		ctx:    ctx,
		cancel: cancel,
	}, nil
}

// save persists the roster. It runs even after a failed round so a
// partial fill is kept.
func (s *session) save() error {
	return s.store.SaveSnapshot(s.ctx, s.orch.State())
}

func (s *session) close() {
	s.cancel()
	if err := s.store.Close(); err != nil {
		log.Warn().Err(err).Msg("Closing local state failed")
	}
}

// withSession opens the state, runs fn, saves and prints the roster.
func withSession(fn func(*session, []string) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		s, err := openSession(cmd)
		if err != nil {
			return err
		}
		defer s.close()

		runErr := fn(s, args)
		if err := s.save(); err != nil {
			return fmt.Errorf("save roster: %w", err)
		}
		printRoster(cmd.OutOrStdout(), s.orch.State())
		return runErr
	}
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
