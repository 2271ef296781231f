package chessclock

import "fmt"

// Color identifies one side of the board.
type Color int

const (
	White Color = iota
	Black
)

// Colors lists both sides in move order
var Colors = [2]Color{White, Black}

// Opposite returns the other side
func (c Color) Opposite() Color {
	if c == White {
		return Black
	}
	return White
}

func (c Color) String() string {
	if c == Black {
		return "black"
	}
	return "white"
}

// ParseColor accepts "white" or "black"
func ParseColor(s string) (Color, bool) {
	switch s {
	case "white":
		return White, true
	case "black":
		return Black, true
	default:
		return White, false
	}
}

func (c Color) MarshalText() ([]byte, error) {
	return []byte(c.String()), nil
}

func (c *Color) UnmarshalText(text []byte) error {
	parsed, ok := ParseColor(string(text))
	if !ok {
		return fmt.Errorf("invalid color %q", text)
	}
	*c = parsed
	return nil
}
