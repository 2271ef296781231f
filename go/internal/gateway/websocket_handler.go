package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/mcdev12/chessclock/go/internal/events"
	"github.com/mcdev12/chessclock/go/internal/game"
	"github.com/rs/zerolog/log"
)

// StateProvider returns the current clock of a game
type StateProvider interface {
	ClockState(ctx context.Context, id uuid.UUID) (game.ClockState, error)
}

// WebSocketHandler handles WebSocket upgrade requests for clock watchers
type WebSocketHandler struct {
	connectionManager *ConnectionManager
	states            StateProvider
}

// NewWebSocketHandler creates a new WebSocket handler
func NewWebSocketHandler(cm *ConnectionManager, states StateProvider) *WebSocketHandler {
	return &WebSocketHandler{
		connectionManager: cm,
		states:            states,
	}
}

// HandleGameConnection handles WebSocket connections for a specific game.
// The first message on the socket is a ClockSync event carrying the current clock.
func (h *WebSocketHandler) HandleGameConnection(w http.ResponseWriter, r *http.Request) {
	gameIDStr := r.URL.Query().Get("game_id")
	if gameIDStr == "" {
		http.Error(w, "game_id is required", http.StatusBadRequest)
		return
	}

	gameID, err := uuid.Parse(gameIDStr)
	if err != nil {
		http.Error(w, "invalid game_id format", http.StatusBadRequest)
		return
	}

	userID := r.URL.Query().Get("user_id")
	if userID == "" {
		userID = "anonymous"
	}

	state, err := h.states.ClockState(r.Context(), gameID)
	if err != nil {
		if errors.Is(err, game.ErrGameNotFound) {
			http.Error(w, "game not found", http.StatusNotFound)
			return
		}
		log.Error().Err(err).Str("game_id", gameID.String()).Msg("failed to load clock state")
		http.Error(w, "failed to load clock", http.StatusInternalServerError)
		return
	}

	initial, err := syncMessage(gameID, state)
	if err != nil {
		log.Error().Err(err).Str("game_id", gameID.String()).Msg("failed to build sync message")
		http.Error(w, "failed to load clock", http.StatusInternalServerError)
		return
	}

	// Upgrade writes its own HTTP error on failure
	if err := h.connectionManager.UpgradeConnection(w, r, userID, gameID, initial); err != nil {
		log.Error().
			Err(err).
			Str("game_id", gameID.String()).
			Str("user_id", userID).
			Msg("failed to upgrade WebSocket connection")
	}
}

// HandleConnectionStats returns statistics about active connections
func (h *WebSocketHandler) HandleConnectionStats(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(h.connectionManager.Stats()); err != nil {
		log.Error().Err(err).Msg("failed to write connection stats")
	}
}

// RegisterRoutes registers WebSocket routes with an HTTP mux
func (h *WebSocketHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /ws/game", h.HandleGameConnection)
	mux.HandleFunc("GET /ws/stats", h.HandleConnectionStats)
}

func syncMessage(gameID uuid.UUID, state game.ClockState) ([]byte, error) {
	event, err := events.NewEvent(gameID, events.EventTypeClockSync, time.Now(), state)
	if err != nil {
		return nil, err
	}
	return json.Marshal(event)
}
