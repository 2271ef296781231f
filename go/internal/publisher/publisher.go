// Package publisher delivers clock events to the outside world.
package publisher

import (
	"context"
	"errors"
	"fmt"

	"github.com/mcdev12/chessclock/go/internal/events"
	"github.com/rs/zerolog"
)

// Publisher delivers one event
type Publisher interface {
	Publish(ctx context.Context, event events.Event) error
}

// LogPublisher writes events to a zerolog logger. Used in development.
type LogPublisher struct {
	logger zerolog.Logger
}

func NewLogPublisher(logger zerolog.Logger) *LogPublisher {
	return &LogPublisher{logger: logger}
}

func (p *LogPublisher) Publish(ctx context.Context, event events.Event) error {
	p.logger.Info().
		Str("event_id", event.ID.String()).
		Str("event_type", string(event.Type)).
		Str("game_id", event.GameID.String()).
		RawJSON("payload", event.Payload).
		Msg("publishing event")
	return nil
}

// Fanout publishes every event to all of its publishers, joining their errors.
type Fanout []Publisher

func (f Fanout) Publish(ctx context.Context, event events.Event) error {
	var errs []error
	for i, p := range f {
		if err := p.Publish(ctx, event); err != nil {
			errs = append(errs, fmt.Errorf("publisher %d: %w", i, err))
		}
	}
	return errors.Join(errs...)
}
