package main

import (
	"context"
	"database/sql"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/mcdev12/chessclock/go/internal/dbconfig"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

func main() {
	// Load .env file if it exists
	if err := godotenv.Load(); err != nil {
		log.Warn().Err(err).Msg("could not load .env file")
	}

	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	level, err := zerolog.ParseLevel(getEnv("LOG_LEVEL", "info"))
	if err != nil {
		log.Warn().Err(err).Msg("invalid LOG_LEVEL, using info")
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)

	config, err := loadConfig(os.Getenv("CLOCK_CONFIG"))
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}

	var database *sql.DB
	if dbconfig.Enabled() {
		database, err = setupDatabase()
		if err != nil {
			log.Fatal().Err(err).Msg("failed to setup database")
		}
		defer database.Close()
	}

	services, err := setupServices(config, database)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to setup services")
	}
	defer services.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go services.Gateway.Start(ctx)
	flagsDone := make(chan struct{})
	go func() {
		defer close(flagsDone)
		services.Flags.Run(ctx, services.Games)
	}()

	server := setupServer(services)
	go func() {
		log.Info().Str("addr", server.Addr).Msg("chess clock server starting")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("HTTP server failed")
		}
	}()

	// Wait for interrupt signal
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	sig := <-sigChan

	log.Info().Str("signal", sig.String()).Msg("received shutdown signal")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("HTTP server shutdown failed")
	}

	// Stop the flag workers and the broadcaster
	cancel()
	select {
	case <-flagsDone:
	case <-shutdownCtx.Done():
		log.Warn().Msg("flag scheduler did not stop in time")
	}

	log.Info().Msg("chess clock server shutdown complete")
}
