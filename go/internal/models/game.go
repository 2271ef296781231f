package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/mcdev12/chessclock/go/internal/chessclock"
)

// GameStatus defines the lifecycle status of a clocked game.
type GameStatus string

const (
	GameStatusCreated GameStatus = "CREATED"
	GameStatusPlaying GameStatus = "PLAYING"
	GameStatusStopped GameStatus = "STOPPED"
	GameStatusFlagged GameStatus = "FLAGGED"
)

// IsOver reports whether the game accepts no further clock transitions
func (s GameStatus) IsOver() bool {
	return s == GameStatusFlagged
}

// GameResult records how a game was decided on the clock.
type GameResult struct {
	Loser     chessclock.Color `json:"loser"`
	Reason    string           `json:"reason"`
	DecidedAt time.Time        `json:"decided_at"`
}

// Game is a clocked game as stored by the repository.
type Game struct {
	ID          uuid.UUID           `json:"id"`
	TimeControl string              `json:"time_control"`
	Status      GameStatus          `json:"status"`
	Clock       chessclock.Snapshot `json:"clock"`
	Moves       [2]int              `json:"moves"` // plies played per color
	Result      *GameResult         `json:"result,omitempty"`
	CreatedAt   time.Time           `json:"created_at"`
	UpdatedAt   time.Time           `json:"updated_at"`
}
