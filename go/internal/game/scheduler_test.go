package game

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/mcdev12/chessclock/go/internal/chessclock"
	"github.com/mcdev12/chessclock/go/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type channelChecker struct {
	checked chan uuid.UUID
}

func (c *channelChecker) CheckFlag(ctx context.Context, id uuid.UUID) (bool, error) {
	c.checked <- id
	return false, nil
}

func startScheduler(t *testing.T, scheduler *FlagScheduler, checker FlagChecker) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		scheduler.Run(ctx, checker)
		close(done)
	}()
	t.Cleanup(func() {
		cancel()
		<-done
	})
}

func TestFlagScheduler_FiresAtDeadline(t *testing.T) {
	fake := clockwork.NewFakeClock()
	scheduler := NewFlagScheduler(fake, 2)
	checker := &channelChecker{checked: make(chan uuid.UUID, 1)}
	startScheduler(t, scheduler, checker)

	id := uuid.New()
	scheduler.Schedule(id, 5*time.Second)
	assert.Equal(t, 1, scheduler.Pending())

	fake.Advance(4 * time.Second)
	select {
	case <-checker.checked:
		t.Fatal("flag check fired before the deadline")
	case <-time.After(50 * time.Millisecond):
	}

	fake.Advance(time.Second)
	select {
	case got := <-checker.checked:
		assert.Equal(t, id, got)
	case <-time.After(time.Second):
		t.Fatal("flag check did not fire")
	}
	assert.Eventually(t, func() bool { return scheduler.Pending() == 0 }, time.Second, 10*time.Millisecond)
}

func TestFlagScheduler_ReplaceAndCancel(t *testing.T) {
	fake := clockwork.NewFakeClock()
	scheduler := NewFlagScheduler(fake, 1)
	checker := &channelChecker{checked: make(chan uuid.UUID, 2)}
	startScheduler(t, scheduler, checker)

	replaced := uuid.New()
	scheduler.Schedule(replaced, time.Second)
	scheduler.Schedule(replaced, 10*time.Second)

	cancelled := uuid.New()
	scheduler.Schedule(cancelled, time.Second)
	scheduler.Cancel(cancelled)
	assert.Equal(t, 1, scheduler.Pending())

	fake.Advance(2 * time.Second)
	select {
	case got := <-checker.checked:
		t.Fatalf("unexpected flag check for %s", got)
	case <-time.After(50 * time.Millisecond):
	}

	fake.Advance(8 * time.Second)
	select {
	case got := <-checker.checked:
		assert.Equal(t, replaced, got)
	case <-time.After(time.Second):
		t.Fatal("replaced flag check did not fire")
	}
}

func TestFlagScheduler_FlagsRunningGame(t *testing.T) {
	fake := clockwork.NewFakeClock()
	scheduler := NewFlagScheduler(fake, 1)
	app := NewApp(NewMemoryRepository(), &recordingPublisher{}, fake, chessclock.NewMonotonicSource(fake), scheduler)
	startScheduler(t, scheduler, app)
	ctx := context.Background()

	game, err := app.CreateGame(ctx, "60+0")
	require.NoError(t, err)
	_, err = app.StartClock(ctx, game.ID)
	require.NoError(t, err)

	fake.Advance(60010 * time.Millisecond)

	require.Eventually(t, func() bool {
		state, err := app.ClockState(ctx, game.ID)
		return err == nil && state.Status == models.GameStatusFlagged
	}, time.Second, 10*time.Millisecond)

	state, err := app.ClockState(ctx, game.ID)
	require.NoError(t, err)
	require.NotNil(t, state.Result)
	assert.Equal(t, chessclock.White, state.Result.Loser)
	assert.Equal(t, 0, scheduler.Pending())
}
