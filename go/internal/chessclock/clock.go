// Package chessclock implements the authoritative two-player chess clock.
//
// A Clock is an immutable value: every transition returns a new Clock and leaves the
// receiver untouched, so older snapshots stay valid for display or undo. Time never comes
// from ambient state; each time-dependent method takes the current monotonic Timestamp.
//
// A Clock is either idle or running. While running, the time spent by the active color
// since the last transition is pending: it counts against that player's remaining time in
// every query but is only committed to the player record by Step or Stop.
//
// Clock does no locking. Callers that own a live game must serialize transitions so that
// two transitions never start from the same prior value.
package chessclock

import "time"

const (
	// MinInitLimit is the smallest starting budget for pure increment controls
	MinInitLimit Centis = 300
	// MaxLagToCompensate caps both per-move lag compensation and the flag grace window
	MaxLagToCompensate Centis = 100
	// MaxMoretimeable is the remaining time at or above which no more time may be given
	MaxMoretimeable = Centis(2 * time.Hour / centi)
)

// Timestamp is a monotonic instant expressed in Centis since an arbitrary origin.
type Timestamp int64

// Sub returns the Centis elapsed from since to t
func (t Timestamp) Sub(since Timestamp) Centis {
	return Centis(t - since)
}

// MoveMetrics carries the optional timing reported by the client with a move.
// ClientMoveTime takes precedence over ClientLag.
type MoveMetrics struct {
	ClientMoveTime *Centis `json:"client_move_time,omitempty"`
	ClientLag      *Centis `json:"client_lag,omitempty"`
}

func (m MoveMetrics) reportedLag(elapsed Centis) Centis {
	switch {
	case m.ClientMoveTime != nil:
		return elapsed - *m.ClientMoveTime
	case m.ClientLag != nil:
		return *m.ClientLag
	default:
		return 0
	}
}

type runState struct {
	running bool
	since   Timestamp
}

// Clock is the game clock state machine.
type Clock struct {
	config  Config
	color   Color
	players [2]PlayerState
	run     runState
}

// NewClock returns an idle clock with White to move and both players at the initial budget.
func NewClock(config Config) Clock {
	budget := config.InitialBudget()
	return Clock{
		config:  config,
		color:   White,
		players: [2]PlayerState{newPlayerState(budget), newPlayerState(budget)},
	}
}

func (c Clock) Config() Config { return c.config }

// Color is the side whose time is ticking (or would tick once started)
func (c Clock) Color() Color { return c.color }

func (c Clock) Player(color Color) PlayerState { return c.players[color] }

func (c Clock) IsRunning() bool { return c.run.running }

// RunningSince returns the instant the active color's time started ticking
func (c Clock) RunningSince() (Timestamp, bool) {
	return c.run.since, c.run.running
}

// IsInit reports whether neither player has been charged any time yet
func (c Clock) IsInit() bool {
	return c.players[White].Elapsed == 0 && c.players[Black].Elapsed == 0
}

// PendingElapsed is the uncommitted time of the active color
func (c Clock) PendingElapsed(now Timestamp) Centis {
	if !c.run.running {
		return 0
	}
	return now.Sub(c.run.since)
}

// RawRemaining is the remaining time of color including pending time; it may be negative.
func (c Clock) RawRemaining(color Color, now Timestamp) Centis {
	remaining := c.players[color].Remaining()
	if color == c.color {
		remaining -= c.PendingElapsed(now)
	}
	return remaining
}

// RemainingTime is the remaining time of color, never negative
func (c Clock) RemainingTime(color Color, now Timestamp) Centis {
	return c.RawRemaining(color, now).NonNeg()
}

func (c Clock) timeSinceFlag(color Color, now Timestamp) (Centis, bool) {
	raw := c.RawRemaining(color, now)
	if raw > 0 {
		return 0, false
	}
	return -raw, true
}

// Grace is how far past zero color may go before being flagged: twice the measured lag,
// capped at MaxLagToCompensate.
func (c Clock) Grace(color Color) Centis {
	return (c.players[color].Lag.AtMost(MaxLagToCompensate) * 2).AtMost(MaxLagToCompensate)
}

// OutOfTimeWithGrace reports whether color has run out of time beyond the lag grace window.
// Being exactly at the end of the window is not yet out of time.
func (c Clock) OutOfTimeWithGrace(color Color, now Timestamp) bool {
	over, flagged := c.timeSinceFlag(color, now)
	return flagged && over > c.Grace(color)
}

// Moretimeable reports whether an arbiter may still add time for color
func (c Clock) Moretimeable(color Color, now Timestamp) bool {
	return c.RawRemaining(color, now) < MaxMoretimeable
}

// Emergency reports whether color is below the control's emergency threshold
func (c Clock) Emergency(color Color, now Timestamp) bool {
	return c.RemainingTime(color, now) < CentisFromSeconds(c.config.EmergencySeconds())
}

// IncrementOf is the increment color would receive for its next move; berserked players get none.
func (c Clock) IncrementOf(color Color) Centis {
	if c.players[color].Berserk {
		return 0
	}
	return c.config.Increment()
}

// Start sets the clock running from now. A running clock is returned unchanged.
func (c Clock) Start(now Timestamp) Clock {
	if c.run.running {
		return c
	}
	c.run = runState{running: true, since: now}
	return c
}

// Stop commits the pending time of the active color and idles the clock.
func (c Clock) Stop(now Timestamp) Clock {
	if !c.run.running {
		return c
	}
	c.players[c.color] = c.players[c.color].AddElapsed(c.PendingElapsed(now))
	c.run = runState{}
	return c
}

// Step charges the active color for the move just played, credits the increment when
// withIncrement is set and hands the clock to the opponent. An idle clock is returned unchanged.
//
// Up to MaxLagToCompensate of the measured lag is refunded from the charged time.
func (c Clock) Step(now Timestamp, metrics MoveMetrics, withIncrement bool) Clock {
	if !c.run.running {
		return c
	}

	elapsed := c.PendingElapsed(now)
	lag := metrics.reportedLag(elapsed)
	lagCompensation := lag.AtMost(MaxLagToCompensate).NonNeg()
	moveTime := (elapsed - lagCompensation).NonNeg()

	var increment Centis
	if withIncrement {
		increment = c.IncrementOf(c.color)
	}

	c.players[c.color] = c.players[c.color].
		AddElapsed(moveTime).
		GiveTime(increment).
		WithLag(lag.NonNeg())
	c.run.since = now
	c.color = c.color.Opposite()
	return c
}

// Switch hands the clock to the other color without charging the one who was active.
func (c Clock) Switch(now Timestamp) Clock {
	c.color = c.color.Opposite()
	if c.run.running {
		c.run.since = now
	}
	return c
}

// Deincrement removes from the active color the increment it would currently receive.
func (c Clock) Deincrement() Clock {
	c.players[c.color] = c.players[c.color].GiveTime(-c.IncrementOf(c.color))
	return c
}

// Takeback returns the clock to the player who just moved and reverses that move's
// increment. Time already charged for the move stays spent.
func (c Clock) Takeback(now Timestamp) Clock {
	return c.Switch(now).Deincrement()
}

// GiveTime adds t to color's limit; t may be negative.
func (c Clock) GiveTime(color Color, t Centis) Clock {
	c.players[color] = c.players[color].GiveTime(t)
	return c
}

// SetRemainingTime pins color's committed remaining time to target by rewriting elapsed.
func (c Clock) SetRemainingTime(color Color, target Centis) Clock {
	p := c.players[color]
	p.Elapsed = p.Limit - target
	c.players[color] = p
	return c
}

// GoBerserk marks color as berserk and applies the penalty. Repeated calls have no effect.
func (c Clock) GoBerserk(color Color) Clock {
	if c.players[color].Berserk {
		return c
	}
	p := c.players[color].GiveTime(-c.config.BerserkPenalty())
	p.Berserk = true
	c.players[color] = p
	return c
}
