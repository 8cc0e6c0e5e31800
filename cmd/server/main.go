// RosterLab API server.
//
// Serves team suggestions, team reviews and catalog search over HTTP.
// Candidates come from PostgreSQL/pgvector when DATABASE_URL is set and
// from the JSON catalog otherwise.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/rosterlab/rosterlab/internal/config"
	"github.com/rosterlab/rosterlab/pkg/server"
)

func main() {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}
	setupLogging(cfg.Server)

	log.Info().Str("version", cfg.Server.Version).Str("environment", cfg.Server.Environment).Msg("🎲 RosterLab starting...")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	srv, err := server.New(ctx, cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize server")
	}

	httpServer := &http.Server{
		Addr:         fmt.Sprintf(":%d", srv.Port),
		Handler:      srv.Handler,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: srv.WriteTimeout,
		IdleTimeout:  120 * time.Second,
	}

	closed := make(chan struct{})
	go func() {
		defer close(closed)
		<-ctx.Done()
		log.Info().Msg("🛑 Shutting down gracefully...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			log.Error().Err(err).Msg("HTTP shutdown failed")
		}
		if err := srv.Close(shutdownCtx); err != nil {
			log.Error().Err(err).Msg("Telemetry shutdown failed")
		}
	}()

	log.Info().
		Int("port", srv.Port).
		Str("store", srv.Store.Kind()).
		Msg("🔥 RosterLab is ready!")

	if err := httpServer.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
		log.Fatal().Err(err).Msg("Server failed")
	}
	<-closed
}

// setupLogging writes human-readable output in development and JSON lines
// in production.
func setupLogging(s config.ServerConfig) {
	if !s.Production() {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})
	}
	level, err := zerolog.ParseLevel(s.LogLevel)
	if err != nil || s.LogLevel == "" {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)
}
