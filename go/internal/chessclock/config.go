package chessclock

import (
	"fmt"
	"strconv"
	"strings"
)

const (
	// EstimatedMoves is the game length assumed when budgeting increment time
	EstimatedMoves = 40

	minEmergencySeconds = 10
	maxEmergencySeconds = 60
)

// Config is a single-stage time control: a base limit plus a per-move increment, both in seconds.
type Config struct {
	LimitSeconds     int `json:"limit_seconds" yaml:"limit_seconds"`
	IncrementSeconds int `json:"increment_seconds" yaml:"increment_seconds"`
}

// NewConfig builds a time control from its base limit and increment
func NewConfig(limitSeconds, incrementSeconds int) Config {
	return Config{LimitSeconds: limitSeconds, IncrementSeconds: incrementSeconds}
}

// ParseConfig reads a "<limit>+<increment>" descriptor such as "600+2".
// The second return value is false when the descriptor is malformed.
func ParseConfig(descriptor string) (Config, bool) {
	fields := strings.Split(strings.TrimSpace(descriptor), "+")
	if len(fields) != 2 {
		return Config{}, false
	}

	limit, err := strconv.Atoi(fields[0])
	if err != nil || limit < 0 {
		return Config{}, false
	}
	increment, err := strconv.Atoi(fields[1])
	if err != nil || increment < 0 {
		return Config{}, false
	}

	return NewConfig(limit, increment), true
}

// Limit returns the base limit as Centis
func (c Config) Limit() Centis {
	return CentisFromSeconds(c.LimitSeconds)
}

// Increment returns the per-move increment as Centis
func (c Config) Increment() Centis {
	return CentisFromSeconds(c.IncrementSeconds)
}

// EmergencySeconds is the remaining time below which a player is considered to be running low.
func (c Config) EmergencySeconds() int {
	s := c.LimitSeconds / 8
	if s < minEmergencySeconds {
		return minEmergencySeconds
	}
	if s > maxEmergencySeconds {
		return maxEmergencySeconds
	}
	return s
}

func (c Config) EstimatedIncrementSeconds() int {
	return EstimatedMoves * c.IncrementSeconds
}

func (c Config) EstimatedTotalSeconds() int {
	return c.LimitSeconds + c.EstimatedIncrementSeconds()
}

// Berserkable reports whether players may berserk under this control; a bare 0+0 never is.
func (c Config) Berserkable() bool {
	return c.IncrementSeconds == 0 || c.LimitSeconds > 0
}

// InitialBudget is the limit each player starts with. Pure increment controls start at the
// increment or MinInitLimit, whichever is larger, so the first tick cannot flag the mover.
func (c Config) InitialBudget() Centis {
	if c.LimitSeconds == 0 {
		return c.Increment().AtLeast(MinInitLimit)
	}
	return c.Limit()
}

// BerserkPenalty is the time removed from a player's limit when they berserk
func (c Config) BerserkPenalty() Centis {
	if c.LimitSeconds < c.EstimatedIncrementSeconds() {
		return 0
	}
	return Centis(c.LimitSeconds * 50)
}

// LimitString renders the base limit in minutes, e.g. "10", "½" or "1.25".
func (c Config) LimitString() string {
	switch c.LimitSeconds {
	case 15:
		return "¼"
	case 30:
		return "½"
	case 45:
		return "¾"
	case 90:
		return "1.5"
	}
	if c.LimitSeconds%60 == 0 {
		return strconv.Itoa(c.LimitSeconds / 60)
	}

	// hundredths of a minute, rounded half up
	h := (c.LimitSeconds*200 + 60) / 120
	whole, frac := h/100, h%100
	switch {
	case frac == 0:
		return strconv.Itoa(whole)
	case frac%10 == 0:
		return fmt.Sprintf("%d.%d", whole, frac/10)
	default:
		return fmt.Sprintf("%d.%02d", whole, frac)
	}
}

// Label is the canonical display form, e.g. "10+2" or "¼+0"
func (c Config) Label() string {
	return fmt.Sprintf("%s+%d", c.LimitString(), c.IncrementSeconds)
}

// String returns the descriptor accepted by ParseConfig
func (c Config) String() string {
	return fmt.Sprintf("%d+%d", c.LimitSeconds, c.IncrementSeconds)
}

// ToClock builds an idle clock for this control
func (c Config) ToClock() Clock {
	return NewClock(c)
}
