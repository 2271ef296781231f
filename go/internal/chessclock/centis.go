package chessclock

import (
	"fmt"
	"math"
	"time"
)

// Centis is a duration in hundredths of a second.
// All clock arithmetic is done on this integer type so there is no floating point drift.
type Centis int64

const centi = 10 * time.Millisecond

// CentisFromSeconds converts whole seconds to Centis
func CentisFromSeconds(s int) Centis {
	return Centis(s) * 100
}

// CentisFromDuration converts d to Centis, truncating anything below one centisecond
func CentisFromDuration(d time.Duration) Centis {
	return Centis(d / centi)
}

// Seconds returns the whole seconds in c, truncated toward zero
func (c Centis) Seconds() int {
	return int(c / 100)
}

// Duration converts c back to a time.Duration
func (c Centis) Duration() time.Duration {
	return time.Duration(c) * centi
}

// Add returns c+d, saturating at the int64 bounds instead of wrapping around
func (c Centis) Add(d Centis) Centis {
	sum := c + d
	switch {
	case d > 0 && sum < c:
		return math.MaxInt64
	case d < 0 && sum > c:
		return math.MinInt64
	}
	return sum
}

// NonNeg clamps c at zero
func (c Centis) NonNeg() Centis {
	return c.AtLeast(0)
}

// AtMost returns the smaller of c and bound
func (c Centis) AtMost(bound Centis) Centis {
	if c > bound {
		return bound
	}
	return c
}

// AtLeast returns the larger of c and bound
func (c Centis) AtLeast(bound Centis) Centis {
	if c < bound {
		return bound
	}
	return c
}

func (c Centis) String() string {
	sign := ""
	v := int64(c)
	if v < 0 {
		sign = "-"
		v = -v
	}
	return fmt.Sprintf("%s%d.%02ds", sign, v/100, v%100)
}
