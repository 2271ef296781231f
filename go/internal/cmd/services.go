package main

import (
	"database/sql"
	"fmt"

	"github.com/jonboulle/clockwork"
	"github.com/mcdev12/chessclock/go/internal/chessclock"
	"github.com/mcdev12/chessclock/go/internal/game"
	"github.com/mcdev12/chessclock/go/internal/gateway"
	"github.com/mcdev12/chessclock/go/internal/publisher"
	"github.com/rs/zerolog/log"
)

type Services struct {
	Games     *game.App
	Flags     *game.FlagScheduler
	Gateway   *gateway.ConnectionManager
	JetStream *publisher.JetStreamPublisher
	Controls  []chessclock.Config
}

// setupServices wires the dependency chain:
// Database layer → Repository layer → App layer → Service layer.
// A nil database keeps games in memory.
func setupServices(config *Config, database *sql.DB) (*Services, error) {
	controls, err := config.timeControls()
	if err != nil {
		return nil, err
	}

	var repo game.Repository
	if database != nil {
		repo = game.NewPostgresRepository(database)
	} else {
		log.Warn().Msg("no database configured, games are kept in memory")
		repo = game.NewMemoryRepository()
	}

	services := &Services{
		Gateway:  gateway.NewConnectionManager(gateway.DefaultConnectionConfig()),
		Controls: controls,
	}

	publishers := publisher.Fanout{services.Gateway}
	switch config.Publisher.Mode {
	case publisherJetStream:
		jsConfig := publisher.DefaultJetStreamConfig()
		jsConfig.URL = getEnv("NATS_URL", jsConfig.URL)
		js, err := publisher.NewJetStreamPublisher(jsConfig)
		if err != nil {
			return nil, fmt.Errorf("failed to create JetStream publisher: %w", err)
		}
		services.JetStream = js
		publishers = append(publishers, js)
	default:
		publishers = append(publishers, publisher.NewLogPublisher(log.Logger))
	}

	wall := clockwork.NewRealClock()
	services.Flags = game.NewFlagScheduler(wall, config.Clock.FlagWorkers)
	services.Games = game.NewApp(repo, publishers, wall, chessclock.NewMonotonicSource(wall), services.Flags)

	log.Info().
		Str("publisher", config.Publisher.Mode).
		Int("flag_workers", config.Clock.FlagWorkers).
		Int("time_controls", len(controls)).
		Dur("max_lag_compensation", chessclock.MaxLagToCompensate.Duration()).
		Msg("services configured")
	return services, nil
}

func (s *Services) Close() {
	if s.JetStream != nil {
		if err := s.JetStream.Close(); err != nil {
			log.Error().Err(err).Msg("failed to close JetStream publisher")
		}
	}
}

