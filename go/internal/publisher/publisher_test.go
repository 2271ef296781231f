package publisher

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/mcdev12/chessclock/go/internal/events"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubPublisher struct {
	err   error
	calls int
}

func (p *stubPublisher) Publish(ctx context.Context, event events.Event) error {
	p.calls++
	return p.err
}

func testEvent(t *testing.T) events.Event {
	t.Helper()
	event, err := events.NewEvent(uuid.New(), events.EventTypeClockStarted, time.Now(), events.ClockPayload{Running: true})
	require.NoError(t, err)
	return event
}

func TestLogPublisher(t *testing.T) {
	var buf bytes.Buffer
	p := NewLogPublisher(zerolog.New(&buf))
	event := testEvent(t)

	require.NoError(t, p.Publish(context.Background(), event))

	assert.Contains(t, buf.String(), `"event_type":"ClockStarted"`)
	assert.Contains(t, buf.String(), event.GameID.String())
	assert.Contains(t, buf.String(), `"running":true`)
}

func TestFanout(t *testing.T) {
	ok := &stubPublisher{}
	failing := &stubPublisher{err: errors.New("nats: timeout")}
	event := testEvent(t)

	err := Fanout{ok, failing, ok}.Publish(context.Background(), event)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "publisher 1")
	assert.Equal(t, 2, ok.calls)
	assert.Equal(t, 1, failing.calls)

	assert.NoError(t, Fanout{ok}.Publish(context.Background(), event))
}

func TestSubjectFor(t *testing.T) {
	assert.Equal(t, "clock.events.PlayerFlagged", subjectFor("clock.events", events.EventTypePlayerFlagged))
	assert.Equal(t, "CLOCK_EVENTS", DefaultJetStreamConfig().StreamName)
}
