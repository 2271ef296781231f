package chessclock

import (
	"time"

	"github.com/jonboulle/clockwork"
)

// TimeSource yields monotonic Timestamps.
type TimeSource interface {
	Now() Timestamp
}

// MonotonicSource measures Timestamps as the time elapsed since its creation.
// In production, wrap clockwork.NewRealClock(); in tests, a FakeClock.
type MonotonicSource struct {
	clock  clockwork.Clock
	origin time.Time
}

func NewMonotonicSource(clock clockwork.Clock) *MonotonicSource {
	return &MonotonicSource{clock: clock, origin: clock.Now()}
}

// Now returns the Centis elapsed since the source was created.
// time.Time values from the real clock carry a monotonic reading, so wall clock
// adjustments do not move the result.
func (s *MonotonicSource) Now() Timestamp {
	return Timestamp(CentisFromDuration(s.clock.Since(s.origin)))
}

// Clock exposes the underlying clockwork clock for timer scheduling
func (s *MonotonicSource) Clock() clockwork.Clock {
	return s.clock
}
