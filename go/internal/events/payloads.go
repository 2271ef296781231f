package events

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/mcdev12/chessclock/go/internal/chessclock"
)

// EventType represents the type of clock event
type EventType string

const (
	EventTypeClockStarted     EventType = "ClockStarted"
	EventTypeClockStepped     EventType = "ClockStepped"
	EventTypeClockSwitched    EventType = "ClockSwitched"
	EventTypeTakebackApplied  EventType = "TakebackApplied"
	EventTypeTimeGiven        EventType = "TimeGiven"
	EventTypeRemainingTimeSet EventType = "RemainingTimeSet"
	EventTypeBerserked        EventType = "Berserked"
	EventTypeClockStopped     EventType = "ClockStopped"
	EventTypePlayerFlagged    EventType = "PlayerFlagged"

	// Sent only to a websocket client when it connects
	EventTypeClockSync EventType = "ClockSync"
)

// Event is the envelope shared by the publishers and the websocket gateway
type Event struct {
	ID        uuid.UUID       `json:"id"`
	GameID    uuid.UUID       `json:"game_id"`
	Type      EventType       `json:"type"`
	CreatedAt time.Time       `json:"created_at"`
	Payload   json.RawMessage `json:"payload"`
}

// ClockPayload describes the clock right after a transition.
// Remaining times are in centiseconds.
type ClockPayload struct {
	Active     chessclock.Color  `json:"active"`
	Running    bool              `json:"running"`
	White      chessclock.Centis `json:"white"`
	Black      chessclock.Centis `json:"black"`
	Emergency  bool              `json:"emergency"`
	Color      *chessclock.Color `json:"color,omitempty"` // player an arbiter or berserk action applied to
	Amount     chessclock.Centis `json:"amount,omitempty"`
	WhiteMoves int               `json:"white_moves"`
	BlackMoves int               `json:"black_moves"`
}

// PlayerFlaggedPayload is the payload for a PlayerFlagged event
type PlayerFlaggedPayload struct {
	Loser     chessclock.Color  `json:"loser"`
	Overtime  chessclock.Centis `json:"overtime"`
	Grace     chessclock.Centis `json:"grace"`
	FlaggedAt time.Time         `json:"flagged_at"`
}

// NewEvent marshals payload into a fresh event envelope
func NewEvent(gameID uuid.UUID, eventType EventType, createdAt time.Time, payload any) (Event, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return Event{}, fmt.Errorf("failed to marshal %s payload: %w", eventType, err)
	}
	return Event{
		ID:        uuid.New(),
		GameID:    gameID,
		Type:      eventType,
		CreatedAt: createdAt,
		Payload:   data,
	}, nil
}

// ParsePayload decodes the event payload into the struct matching its type
func ParsePayload(event Event) (any, error) {
	switch event.Type {
	case EventTypePlayerFlagged:
		var payload PlayerFlaggedPayload
		if err := json.Unmarshal(event.Payload, &payload); err != nil {
			return nil, err
		}
		return payload, nil
	case EventTypeClockStarted, EventTypeClockStepped, EventTypeClockSwitched,
		EventTypeTakebackApplied, EventTypeTimeGiven, EventTypeRemainingTimeSet,
		EventTypeBerserked, EventTypeClockStopped:
		var payload ClockPayload
		if err := json.Unmarshal(event.Payload, &payload); err != nil {
			return nil, err
		}
		return payload, nil
	default:
		return nil, fmt.Errorf("unknown event type: %s", event.Type)
	}
}
