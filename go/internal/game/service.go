package game

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/google/uuid"
	"github.com/mcdev12/chessclock/go/internal/chessclock"
	"github.com/mcdev12/chessclock/go/internal/models"
	"github.com/rs/zerolog/log"
)

// GameApp defines what the service layer needs from the game application
type GameApp interface {
	CreateGame(ctx context.Context, descriptor string) (*models.Game, error)
	GetGame(ctx context.Context, id uuid.UUID) (*models.Game, error)
	ClockState(ctx context.Context, id uuid.UUID) (ClockState, error)
	StartClock(ctx context.Context, id uuid.UUID) (ClockState, error)
	StopClock(ctx context.Context, id uuid.UUID) (ClockState, error)
	PlayMove(ctx context.Context, id uuid.UUID, req MoveRequest) (ClockState, error)
	Takeback(ctx context.Context, id uuid.UUID) (ClockState, error)
	SwitchTurn(ctx context.Context, id uuid.UUID) (ClockState, error)
	GiveTime(ctx context.Context, id uuid.UUID, color chessclock.Color, t chessclock.Centis) (ClockState, error)
	SetRemainingTime(ctx context.Context, id uuid.UUID, color chessclock.Color, target chessclock.Centis) (ClockState, error)
	GoBerserk(ctx context.Context, id uuid.UUID, color chessclock.Color) (ClockState, error)
}

// Service exposes the game clock over HTTP/JSON
type Service struct {
	app GameApp
}

// NewService creates a new game HTTP service
func NewService(app GameApp) *Service {
	return &Service{app: app}
}

type createGameRequest struct {
	TimeControl string `json:"time_control"`
}

// Color is a pointer in every request so a missing field is not read as white.
type moveRequest struct {
	Color          *chessclock.Color  `json:"color"`
	ClientMoveTime *chessclock.Centis `json:"client_move_time,omitempty"`
	ClientLag      *chessclock.Centis `json:"client_lag,omitempty"`
}

type timeRequest struct {
	Color  *chessclock.Color `json:"color"`
	Centis chessclock.Centis `json:"centis"`
}

type colorRequest struct {
	Color *chessclock.Color `json:"color"`
}

type errorResponse struct {
	Error string `json:"error"`
}

// RegisterRoutes registers the game routes with an HTTP mux
func (s *Service) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("POST /games", s.handleCreateGame)
	mux.HandleFunc("GET /games/{id}", s.handleGetGame)
	mux.HandleFunc("GET /games/{id}/clock", s.handleClockState)
	mux.HandleFunc("POST /games/{id}/start", s.handleStart)
	mux.HandleFunc("POST /games/{id}/stop", s.handleStop)
	mux.HandleFunc("POST /games/{id}/move", s.handleMove)
	mux.HandleFunc("POST /games/{id}/takeback", s.handleTakeback)
	mux.HandleFunc("POST /games/{id}/switch", s.handleSwitch)
	mux.HandleFunc("POST /games/{id}/give-time", s.handleGiveTime)
	mux.HandleFunc("POST /games/{id}/remaining", s.handleSetRemaining)
	mux.HandleFunc("POST /games/{id}/berserk", s.handleBerserk)
}

func (s *Service) handleCreateGame(w http.ResponseWriter, r *http.Request) {
	var req createGameRequest
	if !decode(w, r, &req) {
		return
	}

	game, err := s.app.CreateGame(r.Context(), req.TimeControl)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, game)
}

func (s *Service) handleGetGame(w http.ResponseWriter, r *http.Request) {
	id, ok := gameID(w, r)
	if !ok {
		return
	}

	game, err := s.app.GetGame(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, game)
}

func (s *Service) handleClockState(w http.ResponseWriter, r *http.Request) {
	s.respond(w, r, s.app.ClockState)
}

func (s *Service) handleStart(w http.ResponseWriter, r *http.Request) {
	s.respond(w, r, s.app.StartClock)
}

func (s *Service) handleStop(w http.ResponseWriter, r *http.Request) {
	s.respond(w, r, s.app.StopClock)
}

func (s *Service) handleTakeback(w http.ResponseWriter, r *http.Request) {
	s.respond(w, r, s.app.Takeback)
}

func (s *Service) handleSwitch(w http.ResponseWriter, r *http.Request) {
	s.respond(w, r, s.app.SwitchTurn)
}

func (s *Service) handleMove(w http.ResponseWriter, r *http.Request) {
	var req moveRequest
	if !decode(w, r, &req) || !requireColor(w, req.Color) {
		return
	}
	s.respond(w, r, func(ctx context.Context, id uuid.UUID) (ClockState, error) {
		return s.app.PlayMove(ctx, id, MoveRequest{
			Color: *req.Color,
			Metrics: chessclock.MoveMetrics{
				ClientMoveTime: req.ClientMoveTime,
				ClientLag:      req.ClientLag,
			},
		})
	})
}

func (s *Service) handleGiveTime(w http.ResponseWriter, r *http.Request) {
	var req timeRequest
	if !decode(w, r, &req) || !requireColor(w, req.Color) {
		return
	}
	s.respond(w, r, func(ctx context.Context, id uuid.UUID) (ClockState, error) {
		return s.app.GiveTime(ctx, id, *req.Color, req.Centis)
	})
}

func (s *Service) handleSetRemaining(w http.ResponseWriter, r *http.Request) {
	var req timeRequest
	if !decode(w, r, &req) || !requireColor(w, req.Color) {
		return
	}
	s.respond(w, r, func(ctx context.Context, id uuid.UUID) (ClockState, error) {
		return s.app.SetRemainingTime(ctx, id, *req.Color, req.Centis)
	})
}

func (s *Service) handleBerserk(w http.ResponseWriter, r *http.Request) {
	var req colorRequest
	if !decode(w, r, &req) || !requireColor(w, req.Color) {
		return
	}
	s.respond(w, r, func(ctx context.Context, id uuid.UUID) (ClockState, error) {
		return s.app.GoBerserk(ctx, id, *req.Color)
	})
}

func (s *Service) respond(w http.ResponseWriter, r *http.Request, fn func(ctx context.Context, id uuid.UUID) (ClockState, error)) {
	id, ok := gameID(w, r)
	if !ok {
		return
	}

	state, err := fn(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, state)
}

func gameID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid game id"})
		return uuid.Nil, false
	}
	return id, true
}

func decode(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request body: " + err.Error()})
		return false
	}
	return true
}

func requireColor(w http.ResponseWriter, color *chessclock.Color) bool {
	if color == nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "color is required"})
		return false
	}
	return true
}

func writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, ErrGameNotFound):
		status = http.StatusNotFound
	case errors.Is(err, ErrInvalidTimeControl), errors.Is(err, ErrInvalidDuration):
		status = http.StatusBadRequest
	case errors.Is(err, ErrGameOver), errors.Is(err, ErrNotYourTurn), errors.Is(err, ErrClockNotRunning),
		errors.Is(err, ErrNotMoretimeable), errors.Is(err, ErrNotBerserkable), errors.Is(err, ErrNothingToTakeBack):
		status = http.StatusConflict
	default:
		log.Error().Err(err).Msg("game request failed")
	}
	writeJSON(w, status, errorResponse{Error: err.Error()})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Error().Err(err).Msg("failed to write response")
	}
}
