package chessclock

import (
	"math"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func centisPtr(c Centis) *Centis { return &c }

func TestNewClock(t *testing.T) {
	tests := []struct {
		name   string
		config Config
		budget Centis
	}{
		{name: "regular control", config: NewConfig(600, 2), budget: 60000},
		{name: "pure increment above the floor", config: NewConfig(0, 5), budget: 500},
		{name: "pure increment below the floor", config: NewConfig(0, 1), budget: 300},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clock := tt.config.ToClock()

			for _, color := range Colors {
				p := clock.Player(color)
				assert.Equal(t, tt.budget, p.Limit)
				assert.Equal(t, Centis(0), p.Elapsed)
				assert.Equal(t, Centis(0), p.Lag)
				assert.False(t, p.Berserk)
			}
			assert.Equal(t, White, clock.Color())
			assert.False(t, clock.IsRunning())
			assert.True(t, clock.IsInit())
		})
	}
}

func TestClock_StartStop(t *testing.T) {
	clock := NewConfig(600, 0).ToClock()

	t.Run("stop on an idle clock is a no-op", func(t *testing.T) {
		assert.Equal(t, clock, clock.Stop(500))
	})

	running := clock.Start(100)
	require.True(t, running.IsRunning())

	t.Run("start on a running clock is a no-op", func(t *testing.T) {
		assert.Equal(t, running, running.Start(900))
	})

	t.Run("pending time counts against the active color only", func(t *testing.T) {
		assert.Equal(t, Centis(400), running.PendingElapsed(500))
		assert.Equal(t, Centis(59600), running.RemainingTime(White, 500))
		assert.Equal(t, Centis(60000), running.RemainingTime(Black, 500))
		// not committed yet
		assert.Equal(t, Centis(0), running.Player(White).Elapsed)
	})

	t.Run("stop commits pending time", func(t *testing.T) {
		stopped := running.Stop(700)
		assert.False(t, stopped.IsRunning())
		assert.Equal(t, Centis(600), stopped.Player(White).Elapsed)
		assert.Equal(t, Centis(0), stopped.PendingElapsed(5000))
		assert.Equal(t, Centis(59400), stopped.RemainingTime(White, 5000))
	})

	t.Run("transitions leave the receiver untouched", func(t *testing.T) {
		_ = running.Stop(700)
		assert.True(t, running.IsRunning())
		assert.Equal(t, Centis(0), running.Player(White).Elapsed)
	})
}

func TestClock_StepScenario(t *testing.T) {
	clock := NewConfig(600, 2).ToClock().Start(1000)

	stepped := clock.Step(2234, MoveMetrics{}, true)

	white := stepped.Player(White)
	assert.Equal(t, Centis(1234), white.Elapsed)
	assert.Equal(t, Centis(60200), white.Limit)
	assert.Equal(t, Black, stepped.Color())
	assert.True(t, stepped.IsRunning())
	since, running := stepped.RunningSince()
	assert.True(t, running)
	assert.Equal(t, Timestamp(2234), since)
	assert.False(t, stepped.IsInit())
	assert.Equal(t, Centis(60000), stepped.Player(Black).Limit)
}

func TestClock_StepIdleIsNoop(t *testing.T) {
	clock := NewConfig(600, 2).ToClock()
	assert.Equal(t, clock, clock.Step(5000, MoveMetrics{}, true))
}

func TestClock_StepWithoutIncrement(t *testing.T) {
	clock := NewConfig(600, 2).ToClock().Start(0).Step(300, MoveMetrics{}, false)
	assert.Equal(t, Centis(60000), clock.Player(White).Limit)
	assert.Equal(t, Centis(300), clock.Player(White).Elapsed)
}

func TestClock_StepLagCompensation(t *testing.T) {
	tests := []struct {
		name        string
		metrics     MoveMetrics
		elapsed     Centis
		storedLag   Centis
		chargedTime Centis
	}{
		{
			name:        "no metrics",
			metrics:     MoveMetrics{},
			elapsed:     1000,
			storedLag:   0,
			chargedTime: 1000,
		},
		{
			name:        "lag inferred from client move time",
			metrics:     MoveMetrics{ClientMoveTime: centisPtr(950)},
			elapsed:     1000,
			storedLag:   50,
			chargedTime: 950,
		},
		{
			name:        "client move time wins over client lag",
			metrics:     MoveMetrics{ClientMoveTime: centisPtr(980), ClientLag: centisPtr(90)},
			elapsed:     1000,
			storedLag:   20,
			chargedTime: 980,
		},
		{
			name:        "client move time longer than measured",
			metrics:     MoveMetrics{ClientMoveTime: centisPtr(1200)},
			elapsed:     1000,
			storedLag:   0,
			chargedTime: 1000,
		},
		{
			name:        "reported lag is capped at one second",
			metrics:     MoveMetrics{ClientLag: centisPtr(300)},
			elapsed:     1000,
			storedLag:   300,
			chargedTime: 900,
		},
		{
			name:        "compensation never makes the move free below zero",
			metrics:     MoveMetrics{ClientLag: centisPtr(80)},
			elapsed:     30,
			storedLag:   80,
			chargedTime: 0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clock := NewConfig(600, 0).ToClock().Start(0)
			stepped := clock.Step(Timestamp(tt.elapsed), tt.metrics, true)

			assert.Equal(t, tt.chargedTime, stepped.Player(White).Elapsed)
			assert.Equal(t, tt.storedLag, stepped.Player(White).Lag)
		})
	}
}

func TestClock_SwitchDoesNotCharge(t *testing.T) {
	clock := NewConfig(600, 2).ToClock().Start(0)

	switched := clock.Switch(700)

	assert.Equal(t, Black, switched.Color())
	assert.Equal(t, Centis(0), switched.Player(White).Elapsed)
	assert.Equal(t, Centis(60000), switched.Player(White).Limit)
	assert.Equal(t, Centis(100), switched.PendingElapsed(800))

	idle := NewConfig(600, 2).ToClock().Switch(700)
	assert.Equal(t, Black, idle.Color())
	assert.False(t, idle.IsRunning())
}

func TestClock_Takeback(t *testing.T) {
	before := NewConfig(600, 2).ToClock().Start(0)
	stepped := before.Step(500, MoveMetrics{}, true)
	require.Equal(t, Centis(60200), stepped.Player(White).Limit)

	undone := stepped.Takeback(600)

	assert.Equal(t, before.Color(), undone.Color())
	assert.Equal(t, before.Player(White).Limit, undone.Player(White).Limit)
	// time spent on the taken back move stays spent
	assert.Equal(t, Centis(500), undone.Player(White).Elapsed)
	assert.NotEqual(t, before.Player(White).Elapsed, undone.Player(White).Elapsed)
	since, _ := undone.RunningSince()
	assert.Equal(t, Timestamp(600), since)
}

func TestClock_DeincrementBerserked(t *testing.T) {
	clock := NewConfig(600, 2).ToClock().GoBerserk(White)
	assert.Equal(t, clock.Player(White).Limit, clock.Deincrement().Player(White).Limit)
}

func TestClock_GiveTime(t *testing.T) {
	clock := NewConfig(600, 0).ToClock()

	assert.Equal(t, Centis(61500), clock.GiveTime(Black, 1500).Player(Black).Limit)
	assert.Equal(t, Centis(59000), clock.GiveTime(Black, -1000).Player(Black).Limit)
	assert.Equal(t, Centis(60000), clock.GiveTime(Black, 1500).Player(White).Limit)

	huge := clock.GiveTime(White, math.MaxInt64)
	assert.Equal(t, Centis(math.MaxInt64), huge.Player(White).Limit)
	assert.False(t, huge.OutOfTimeWithGrace(White, 0))
}

func TestClock_SetRemainingTime(t *testing.T) {
	clock := NewConfig(600, 0).ToClock().Start(0).Step(2000, MoveMetrics{}, true)

	pinned := clock.SetRemainingTime(White, 1000)

	assert.Equal(t, Centis(60000), pinned.Player(White).Limit)
	assert.Equal(t, Centis(59000), pinned.Player(White).Elapsed)
	assert.Equal(t, Centis(1000), pinned.RemainingTime(White, 9999))
}

func TestClock_GoBerserk(t *testing.T) {
	clock := NewConfig(600, 2).ToClock()

	once := clock.GoBerserk(White)
	twice := once.GoBerserk(White)

	assert.Equal(t, once, twice)
	assert.True(t, once.Player(White).Berserk)
	assert.Equal(t, Centis(30000), once.Player(White).Limit)
	assert.False(t, once.Player(Black).Berserk)
	assert.Equal(t, Centis(0), once.IncrementOf(White))
	assert.Equal(t, Centis(200), once.IncrementOf(Black))

	t.Run("berserked players receive no increment", func(t *testing.T) {
		stepped := once.Start(0).Step(100, MoveMetrics{}, true)
		assert.Equal(t, Centis(30000), stepped.Player(White).Limit)
	})
}

func TestClock_RemainingNeverNegative(t *testing.T) {
	clock := NewConfig(60, 0).ToClock().Start(0)

	for _, now := range []Timestamp{0, 5999, 6000, 6001, 100000, 1 << 40} {
		for _, color := range Colors {
			assert.GreaterOrEqual(t, clock.RemainingTime(color, now), Centis(0))
		}
	}
	assert.Equal(t, Centis(-4000), clock.RawRemaining(White, 10000))
}

func TestClock_OutOfTimeWithGrace(t *testing.T) {
	t.Run("one second over with no lag is flagged", func(t *testing.T) {
		clock := NewConfig(600, 0).ToClock().SetRemainingTime(White, -100)
		require.Equal(t, Centis(60100), clock.Player(White).Elapsed)
		assert.True(t, clock.OutOfTimeWithGrace(White, 0))
	})

	t.Run("exactly zero with no lag is not flagged", func(t *testing.T) {
		clock := NewConfig(600, 0).ToClock().SetRemainingTime(White, 0)
		assert.False(t, clock.OutOfTimeWithGrace(White, 0))
	})

	t.Run("time left is never flagged", func(t *testing.T) {
		clock := NewConfig(600, 0).ToClock()
		assert.False(t, clock.OutOfTimeWithGrace(White, 0))
	})

	t.Run("grace scales with measured lag", func(t *testing.T) {
		clock := NewConfig(600, 0).ToClock().Start(0).
			Step(100, MoveMetrics{ClientLag: centisPtr(30)}, true).
			SetRemainingTime(White, -60)
		require.Equal(t, Centis(60), clock.Grace(White))

		assert.False(t, clock.OutOfTimeWithGrace(White, 0))
		assert.True(t, clock.SetRemainingTime(White, -61).OutOfTimeWithGrace(White, 0))
	})

	t.Run("grace never exceeds one second", func(t *testing.T) {
		for _, lag := range []Centis{100, 150, 500, 100000} {
			clock := NewConfig(600, 0).ToClock().Start(0).
				Step(100, MoveMetrics{ClientLag: centisPtr(lag)}, true)
			assert.Equal(t, MaxLagToCompensate, clock.Grace(White))

			assert.False(t, clock.SetRemainingTime(White, -100).OutOfTimeWithGrace(White, 0))
			assert.True(t, clock.SetRemainingTime(White, -101).OutOfTimeWithGrace(White, 0))
		}
	})

	t.Run("huge measured lag keeps the one second window", func(t *testing.T) {
		clock := NewConfig(600, 0).ToClock().Start(0).
			Step(100, MoveMetrics{ClientLag: centisPtr(math.MaxInt64/2 + 1)}, true).
			SetRemainingTime(White, 0)
		assert.Equal(t, MaxLagToCompensate, clock.Grace(White))
		assert.False(t, clock.OutOfTimeWithGrace(White, 0))
		assert.True(t, clock.SetRemainingTime(White, -101).OutOfTimeWithGrace(White, 0))
	})

	t.Run("pending time of the active color counts", func(t *testing.T) {
		clock := NewConfig(60, 0).ToClock().Start(0)
		assert.False(t, clock.OutOfTimeWithGrace(White, 6000))
		assert.True(t, clock.OutOfTimeWithGrace(White, 6001))
		assert.False(t, clock.OutOfTimeWithGrace(Black, 6001))
	})
}

func TestClock_Moretimeable(t *testing.T) {
	clock := NewConfig(600, 0).ToClock()

	assert.True(t, clock.Moretimeable(White, 0))
	assert.True(t, clock.SetRemainingTime(White, MaxMoretimeable-1).Moretimeable(White, 0))
	assert.False(t, clock.SetRemainingTime(White, MaxMoretimeable).Moretimeable(White, 0))
	assert.Equal(t, Centis(720000), MaxMoretimeable)
}

func TestClock_Emergency(t *testing.T) {
	clock := NewConfig(180, 0).ToClock().Start(0)

	assert.False(t, clock.Emergency(White, 0))
	// emergency threshold for 3 minutes is 22 seconds
	assert.False(t, clock.Emergency(White, 18000-2200))
	assert.True(t, clock.Emergency(White, 18000-2199))
}

func TestClock_IsInit(t *testing.T) {
	clock := NewConfig(600, 2).ToClock()
	assert.True(t, clock.IsInit())
	assert.True(t, clock.Start(0).IsInit())
	assert.True(t, clock.Start(0).Step(0, MoveMetrics{}, true).IsInit())
	assert.False(t, clock.Start(0).Step(1, MoveMetrics{}, true).IsInit())
}

func TestSnapshot_RoundTrip(t *testing.T) {
	clock := NewConfig(600, 2).ToClock().Start(0).Step(1000, MoveMetrics{}, true)

	s := clock.Snapshot(1500)

	assert.True(t, s.Running)
	assert.Equal(t, Black, s.Color)
	assert.Equal(t, Centis(1000), s.Players[White].Elapsed)
	assert.Equal(t, Centis(500), s.Players[Black].Elapsed)

	restored := FromSnapshot(s, 10000)
	assert.True(t, restored.IsRunning())
	assert.Equal(t, Centis(59500), restored.RemainingTime(Black, 10000))
	assert.Equal(t, Centis(59200), restored.RemainingTime(White, 10000))

	idle := FromSnapshot(NewConfig(60, 0).ToClock().Snapshot(0), 10)
	assert.False(t, idle.IsRunning())
}

func TestMonotonicSource(t *testing.T) {
	fake := clockwork.NewFakeClock()
	source := NewMonotonicSource(fake)

	assert.Equal(t, Timestamp(0), source.Now())

	fake.Advance(12345 * time.Millisecond)
	assert.Equal(t, Timestamp(1234), source.Now())

	clock := NewConfig(600, 2).ToClock().Start(source.Now())
	fake.Advance(1500 * time.Millisecond)
	assert.Equal(t, Centis(150), clock.PendingElapsed(source.Now()))
}
