package game

import (
	"time"

	"github.com/google/uuid"
	"github.com/mcdev12/chessclock/go/internal/chessclock"
	"github.com/mcdev12/chessclock/go/internal/models"
)

// PlayerClock is the live view of one side of the clock
type PlayerClock struct {
	Remaining    chessclock.Centis `json:"remaining"`
	Berserk      bool              `json:"berserk"`
	Emergency    bool              `json:"emergency"`
	OutOfTime    bool              `json:"out_of_time"`
	Moretimeable bool              `json:"moretimeable"`
	Moves        int               `json:"moves"`
}

// ClockState is the read-only surface used for adjudication and display.
type ClockState struct {
	GameID  uuid.UUID          `json:"game_id"`
	Status  models.GameStatus  `json:"status"`
	Label   string             `json:"label"`
	Active  chessclock.Color   `json:"active"`
	Running bool               `json:"running"`
	IsInit  bool               `json:"is_init"`
	White   PlayerClock        `json:"white"`
	Black   PlayerClock        `json:"black"`
	Result  *models.GameResult `json:"result,omitempty"`
}

// Player returns the view of color
func (s ClockState) Player(color chessclock.Color) PlayerClock {
	if color == chessclock.Black {
		return s.Black
	}
	return s.White
}

// MoveRequest is a move reported by color with optional client timing
type MoveRequest struct {
	Color   chessclock.Color
	Metrics chessclock.MoveMetrics
}

// FlagTimer schedules flag checks for running games
type FlagTimer interface {
	Schedule(gameID uuid.UUID, after time.Duration)
	Cancel(gameID uuid.UUID)
}
