package game

import "errors"

var (
	// ErrGameNotFound is returned when no game exists for an ID
	ErrGameNotFound = errors.New("game not found")

	// ErrInvalidTimeControl is returned when a descriptor is not "<limit>+<increment>"
	ErrInvalidTimeControl = errors.New("invalid time control")

	// ErrGameOver is returned for transitions on a flagged game
	ErrGameOver = errors.New("game is over")

	// ErrNotMoretimeable is returned when a player is already at the time ceiling
	ErrNotMoretimeable = errors.New("player cannot receive more time")

	ErrNotYourTurn       = errors.New("not this player's turn")
	ErrClockNotRunning   = errors.New("clock is not running")
	ErrNotBerserkable    = errors.New("player cannot berserk")
	ErrNothingToTakeBack = errors.New("no move to take back")
	ErrInvalidDuration   = errors.New("invalid duration")
)
