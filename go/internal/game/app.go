package game

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/mcdev12/chessclock/go/internal/chessclock"
	"github.com/mcdev12/chessclock/go/internal/events"
	"github.com/mcdev12/chessclock/go/internal/models"
	"github.com/rs/zerolog/log"
)

// Repository defines what the game app layer needs from storage
type Repository interface {
	CreateGame(ctx context.Context, game *models.Game) error
	GetGame(ctx context.Context, id uuid.UUID) (*models.Game, error)
	UpdateGame(ctx context.Context, game *models.Game) error
}

// Publisher delivers clock events to subscribers
type Publisher interface {
	Publish(ctx context.Context, event events.Event) error
}

// session is the single writer for one game's clock.
type session struct {
	mu    sync.Mutex
	game  models.Game
	clock chessclock.Clock
}

// change is the outcome of one clock transition
type change struct {
	clock  chessclock.Clock
	color  *chessclock.Color
	amount chessclock.Centis
}

// errFlagged aborts a transition because the acting player is already out of time
var errFlagged = errors.New("flagged")

// App owns the live clock of every game and serializes transitions per game.
type App struct {
	repo      Repository
	publisher Publisher
	source    chessclock.TimeSource
	wall      clockwork.Clock
	flags     FlagTimer

	mu       sync.Mutex
	sessions map[uuid.UUID]*session
}

// NewApp creates a new game App. flags may be nil when no flag scheduling is wanted.
func NewApp(repo Repository, publisher Publisher, wall clockwork.Clock, source chessclock.TimeSource, flags FlagTimer) *App {
	return &App{
		repo:      repo,
		publisher: publisher,
		source:    source,
		wall:      wall,
		flags:     flags,
		sessions:  make(map[uuid.UUID]*session),
	}
}

// CreateGame creates a game with an idle clock for the given "<limit>+<increment>" descriptor
func (a *App) CreateGame(ctx context.Context, descriptor string) (*models.Game, error) {
	config, ok := chessclock.ParseConfig(descriptor)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrInvalidTimeControl, descriptor)
	}

	now := a.wall.Now()
	clock := config.ToClock()
	game := models.Game{
		ID:          uuid.New(),
		TimeControl: config.String(),
		Status:      models.GameStatusCreated,
		Clock:       clock.Snapshot(a.source.Now()),
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if err := a.repo.CreateGame(ctx, &game); err != nil {
		return nil, fmt.Errorf("failed to create game: %w", err)
	}

	a.mu.Lock()
	a.sessions[game.ID] = &session{game: game, clock: clock}
	a.mu.Unlock()

	log.Info().
		Str("game_id", game.ID.String()).
		Str("time_control", game.TimeControl).
		Str("label", config.Label()).
		Msg("created game")

	return &game, nil
}

// GetGame returns the game with pending clock time committed as of now
func (a *App) GetGame(ctx context.Context, id uuid.UUID) (*models.Game, error) {
	s, err := a.session(ctx, id)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	game := s.game
	game.Clock = s.clock.Snapshot(a.source.Now())
	return &game, nil
}

// ClockState returns the live clock view of a game
func (a *App) ClockState(ctx context.Context, id uuid.UUID) (ClockState, error) {
	s, err := a.session(ctx, id)
	if err != nil {
		return ClockState{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	return stateOf(s, a.source.Now()), nil
}

// StartClock starts the active player's clock
func (a *App) StartClock(ctx context.Context, id uuid.UUID) (ClockState, error) {
	return a.apply(ctx, id, events.EventTypeClockStarted, func(s *session, now chessclock.Timestamp) (change, error) {
		return change{clock: s.clock.Start(now)}, nil
	})
}

// StopClock commits the active player's pending time and idles the clock
func (a *App) StopClock(ctx context.Context, id uuid.UUID) (ClockState, error) {
	return a.apply(ctx, id, events.EventTypeClockStopped, func(s *session, now chessclock.Timestamp) (change, error) {
		return change{clock: s.clock.Stop(now)}, nil
	})
}

// PlayMove charges the mover for the move and hands the clock to the opponent.
// A mover already out of time beyond the grace window is flagged instead.
func (a *App) PlayMove(ctx context.Context, id uuid.UUID, req MoveRequest) (ClockState, error) {
	for _, reported := range []*chessclock.Centis{req.Metrics.ClientMoveTime, req.Metrics.ClientLag} {
		if reported != nil && !withinBounds(*reported) {
			return ClockState{}, fmt.Errorf("%w: reported move timing %s", ErrInvalidDuration, *reported)
		}
	}
	return a.apply(ctx, id, events.EventTypeClockStepped, func(s *session, now chessclock.Timestamp) (change, error) {
		if !s.clock.IsRunning() {
			return change{}, ErrClockNotRunning
		}
		if s.clock.Color() != req.Color {
			return change{}, fmt.Errorf("%w: %s to move", ErrNotYourTurn, s.clock.Color())
		}
		if s.clock.OutOfTimeWithGrace(req.Color, now) {
			return change{}, errFlagged
		}

		s.game.Moves[req.Color]++
		return change{clock: s.clock.Step(now, req.Metrics, true)}, nil
	})
}

// Takeback returns the clock to the player who moved last and reverses that move's increment
func (a *App) Takeback(ctx context.Context, id uuid.UUID) (ClockState, error) {
	return a.apply(ctx, id, events.EventTypeTakebackApplied, func(s *session, now chessclock.Timestamp) (change, error) {
		mover := s.clock.Color().Opposite()
		if s.game.Moves[mover] == 0 {
			return change{}, ErrNothingToTakeBack
		}

		s.game.Moves[mover]--
		return change{clock: s.clock.Takeback(now), color: &mover}, nil
	})
}

// SwitchTurn reassigns whose time is ticking without charging anyone
func (a *App) SwitchTurn(ctx context.Context, id uuid.UUID) (ClockState, error) {
	return a.apply(ctx, id, events.EventTypeClockSwitched, func(s *session, now chessclock.Timestamp) (change, error) {
		return change{clock: s.clock.Switch(now)}, nil
	})
}

// GiveTime adds t (possibly negative) to color's limit. |t| must stay below the moretime
// ceiling, and positive adjustments are refused once the player is at that ceiling.
func (a *App) GiveTime(ctx context.Context, id uuid.UUID, color chessclock.Color, t chessclock.Centis) (ClockState, error) {
	if !withinBounds(t) && !withinBounds(-t) {
		return ClockState{}, fmt.Errorf("%w: time adjustment %s", ErrInvalidDuration, t)
	}
	return a.apply(ctx, id, events.EventTypeTimeGiven, func(s *session, now chessclock.Timestamp) (change, error) {
		if t > 0 && !s.clock.Moretimeable(color, now) {
			return change{}, ErrNotMoretimeable
		}
		return change{clock: s.clock.GiveTime(color, t), color: &color, amount: t}, nil
	})
}

// SetRemainingTime pins color's remaining time to target
func (a *App) SetRemainingTime(ctx context.Context, id uuid.UUID, color chessclock.Color, target chessclock.Centis) (ClockState, error) {
	if !withinBounds(target) {
		return ClockState{}, fmt.Errorf("%w: remaining time %s", ErrInvalidDuration, target)
	}
	return a.apply(ctx, id, events.EventTypeRemainingTimeSet, func(s *session, now chessclock.Timestamp) (change, error) {
		return change{clock: s.clock.SetRemainingTime(color, target), color: &color, amount: target}, nil
	})
}

// GoBerserk berserks color. Only allowed under a berserkable control before color's first move.
func (a *App) GoBerserk(ctx context.Context, id uuid.UUID, color chessclock.Color) (ClockState, error) {
	return a.apply(ctx, id, events.EventTypeBerserked, func(s *session, now chessclock.Timestamp) (change, error) {
		if !s.clock.Config().Berserkable() {
			return change{}, fmt.Errorf("%w: %s is not berserkable", ErrNotBerserkable, s.clock.Config().Label())
		}
		if s.game.Moves[color] > 0 {
			return change{}, fmt.Errorf("%w: %s already moved", ErrNotBerserkable, color)
		}
		return change{
			clock:  s.clock.GoBerserk(color),
			color:  &color,
			amount: s.clock.Config().BerserkPenalty(),
		}, nil
	})
}

// CheckFlag flags the active player if their time ran out beyond the grace window.
// It reports whether the game was flagged by this call.
func (a *App) CheckFlag(ctx context.Context, id uuid.UUID) (bool, error) {
	s, err := a.session(ctx, id)
	if err != nil {
		return false, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.game.Status.IsOver() || !s.clock.IsRunning() {
		return false, nil
	}

	now := a.source.Now()
	if !s.clock.OutOfTimeWithGrace(s.clock.Color(), now) {
		// the deadline moved since the check was scheduled
		a.schedule(s, now)
		return false, nil
	}

	if err := a.flag(ctx, s, now); err != nil {
		return false, err
	}
	return true, nil
}

// apply runs one transition under the session lock, then persists, publishes and reschedules.
func (a *App) apply(ctx context.Context, id uuid.UUID, eventType events.EventType, fn func(s *session, now chessclock.Timestamp) (change, error)) (ClockState, error) {
	s, err := a.session(ctx, id)
	if err != nil {
		return ClockState{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.game.Status.IsOver() {
		return ClockState{}, ErrGameOver
	}

	now := a.source.Now()
	prevGame, prevClock := s.game, s.clock

	ch, err := fn(s, now)
	if errors.Is(err, errFlagged) {
		s.game = prevGame
		if err := a.flag(ctx, s, now); err != nil {
			return ClockState{}, err
		}
		return ClockState{}, ErrGameOver
	}
	if err != nil {
		s.game = prevGame
		return ClockState{}, err
	}

	s.clock = ch.clock
	s.game.Clock = ch.clock.Snapshot(now)
	s.game.UpdatedAt = a.wall.Now()
	switch {
	case ch.clock.IsRunning():
		s.game.Status = models.GameStatusPlaying
	case s.game.Status == models.GameStatusPlaying:
		s.game.Status = models.GameStatusStopped
	}

	if err := a.repo.UpdateGame(ctx, &s.game); err != nil {
		s.game, s.clock = prevGame, prevClock
		return ClockState{}, fmt.Errorf("failed to save game: %w", err)
	}

	state := stateOf(s, now)
	payload := events.ClockPayload{
		Active:     state.Active,
		Running:    state.Running,
		White:      state.White.Remaining,
		Black:      state.Black.Remaining,
		Emergency:  state.Player(state.Active).Emergency,
		Color:      ch.color,
		Amount:     ch.amount,
		WhiteMoves: state.White.Moves,
		BlackMoves: state.Black.Moves,
	}
	a.emit(ctx, s.game.ID, eventType, payload)
	a.schedule(s, now)

	log.Debug().
		Str("game_id", id.String()).
		Str("event_type", string(eventType)).
		Str("active", state.Active.String()).
		Stringer("white", state.White.Remaining).
		Stringer("black", state.Black.Remaining).
		Msg("clock transition applied")

	return state, nil
}

// flag stops the clock and records a time forfeit for the active color. Caller holds s.mu.
func (a *App) flag(ctx context.Context, s *session, now chessclock.Timestamp) error {
	loser := s.clock.Color()
	overtime := -s.clock.RawRemaining(loser, now)
	grace := s.clock.Grace(loser)
	decidedAt := a.wall.Now()

	prevGame, prevClock := s.game, s.clock
	s.clock = s.clock.Stop(now)
	s.game.Clock = s.clock.Snapshot(now)
	s.game.Status = models.GameStatusFlagged
	s.game.Result = &models.GameResult{Loser: loser, Reason: "time forfeit", DecidedAt: decidedAt}
	s.game.UpdatedAt = decidedAt

	if err := a.repo.UpdateGame(ctx, &s.game); err != nil {
		s.game, s.clock = prevGame, prevClock
		return fmt.Errorf("failed to save flagged game: %w", err)
	}

	if a.flags != nil {
		a.flags.Cancel(s.game.ID)
	}

	log.Info().
		Str("game_id", s.game.ID.String()).
		Str("loser", loser.String()).
		Stringer("overtime", overtime).
		Stringer("grace", grace).
		Msg("player flagged")

	a.emit(ctx, s.game.ID, events.EventTypePlayerFlagged, events.PlayerFlaggedPayload{
		Loser:     loser,
		Overtime:  overtime,
		Grace:     grace,
		FlaggedAt: decidedAt,
	})
	return nil
}

// schedule arms the flag check for the running clock, or cancels it. Caller holds s.mu.
func (a *App) schedule(s *session, now chessclock.Timestamp) {
	if a.flags == nil {
		return
	}
	if !s.clock.IsRunning() || s.game.Status.IsOver() {
		a.flags.Cancel(s.game.ID)
		return
	}

	active := s.clock.Color()
	// one centisecond past the grace window, since being exactly at its end is not a flag
	deadline := (s.clock.RawRemaining(active, now) + s.clock.Grace(active) + 1).NonNeg()
	a.flags.Schedule(s.game.ID, deadline.Duration())
}

// emit publishes an event; delivery failures are logged but never fail the transition
func (a *App) emit(ctx context.Context, gameID uuid.UUID, eventType events.EventType, payload any) {
	if a.publisher == nil {
		return
	}

	event, err := events.NewEvent(gameID, eventType, a.wall.Now(), payload)
	if err != nil {
		log.Error().Err(err).Str("game_id", gameID.String()).Msg("failed to build clock event")
		return
	}
	if err := a.publisher.Publish(ctx, event); err != nil {
		log.Error().
			Err(err).
			Str("game_id", gameID.String()).
			Str("event_type", string(eventType)).
			Msg("failed to publish clock event")
	}
}

// session returns the live session of a game, loading it from the repository when needed.
// The load runs without a.mu so a slow repository only delays callers of that game.
func (a *App) session(ctx context.Context, id uuid.UUID) (*session, error) {
	a.mu.Lock()
	s, ok := a.sessions[id]
	a.mu.Unlock()
	if ok {
		return s, nil
	}

	game, err := a.repo.GetGame(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to load game %s: %w", id, err)
	}
	loaded := &session{game: *game, clock: chessclock.FromSnapshot(game.Clock, a.source.Now())}

	a.mu.Lock()
	if s, ok := a.sessions[id]; ok {
		// another caller restored it first
		a.mu.Unlock()
		return s, nil
	}
	a.sessions[id] = loaded
	a.mu.Unlock()

	log.Info().
		Str("game_id", id.String()).
		Str("status", string(game.Status)).
		Bool("running", loaded.clock.IsRunning()).
		Msg("restored game session")

	loaded.mu.Lock()
	if loaded.clock.IsRunning() && !loaded.game.Status.IsOver() {
		a.schedule(loaded, a.source.Now())
	}
	loaded.mu.Unlock()
	return loaded, nil
}

// withinBounds reports whether d is a usable duration: not negative and below the moretime ceiling
func withinBounds(d chessclock.Centis) bool {
	return d >= 0 && d < chessclock.MaxMoretimeable
}

func stateOf(s *session, now chessclock.Timestamp) ClockState {
	player := func(color chessclock.Color) PlayerClock {
		return PlayerClock{
			Remaining:    s.clock.RemainingTime(color, now),
			Berserk:      s.clock.Player(color).Berserk,
			Emergency:    s.clock.Emergency(color, now),
			OutOfTime:    s.clock.OutOfTimeWithGrace(color, now),
			Moretimeable: s.clock.Moretimeable(color, now),
			Moves:        s.game.Moves[color],
		}
	}

	return ClockState{
		GameID:  s.game.ID,
		Status:  s.game.Status,
		Label:   s.clock.Config().Label(),
		Active:  s.clock.Color(),
		Running: s.clock.IsRunning(),
		IsInit:  s.clock.IsInit(),
		White:   player(chessclock.White),
		Black:   player(chessclock.Black),
		Result:  s.game.Result,
	}
}
