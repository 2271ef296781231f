package events

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/mcdev12/chessclock/go/internal/chessclock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewEvent_ParsePayload(t *testing.T) {
	gameID := uuid.New()
	createdAt := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

	t.Run("clock payload", func(t *testing.T) {
		event, err := NewEvent(gameID, EventTypeClockStepped, createdAt, ClockPayload{
			Active:  chessclock.Black,
			Running: true,
			White:   58766,
			Black:   60000,
		})
		require.NoError(t, err)
		assert.Equal(t, gameID, event.GameID)
		assert.NotEqual(t, uuid.Nil, event.ID)
		assert.JSONEq(t,
			`{"active":"black","running":true,"white":58766,"black":60000,"emergency":false,"white_moves":0,"black_moves":0}`,
			string(event.Payload))

		parsed, err := ParsePayload(event)
		require.NoError(t, err)
		payload, ok := parsed.(ClockPayload)
		require.True(t, ok)
		assert.Equal(t, chessclock.Black, payload.Active)
		assert.Equal(t, chessclock.Centis(58766), payload.White)
	})

	t.Run("flag payload", func(t *testing.T) {
		event, err := NewEvent(gameID, EventTypePlayerFlagged, createdAt, PlayerFlaggedPayload{
			Loser:     chessclock.White,
			Overtime:  12,
			FlaggedAt: createdAt,
		})
		require.NoError(t, err)

		parsed, err := ParsePayload(event)
		require.NoError(t, err)
		assert.Equal(t, chessclock.White, parsed.(PlayerFlaggedPayload).Loser)
	})

	t.Run("unknown type", func(t *testing.T) {
		_, err := ParsePayload(Event{Type: "Nope", Payload: []byte(`{}`)})
		assert.Error(t, err)
	})
}
