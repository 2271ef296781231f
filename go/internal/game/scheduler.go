package game

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"
)

// FlagChecker is what the scheduler calls when a game's flag deadline passes
type FlagChecker interface {
	CheckFlag(ctx context.Context, id uuid.UUID) (bool, error)
}

type scheduledTimer struct {
	timer  clockwork.Timer
	cancel chan struct{}
}

// FlagScheduler keeps one one-shot timer per running game and hands expired games to a
// worker pool that checks them for a flag.
type FlagScheduler struct {
	clock      clockwork.Clock
	instanceID string

	numWorkers int
	workCh     chan uuid.UUID
	done       chan struct{}
	closeOnce  sync.Once

	activeTimers   map[uuid.UUID]scheduledTimer
	activeTimersMu sync.Mutex
}

// NewFlagScheduler creates a scheduler driven by clock. Call Run to start processing.
func NewFlagScheduler(clock clockwork.Clock, numWorkers int) *FlagScheduler {
	if numWorkers < 1 {
		numWorkers = 1
	}
	return &FlagScheduler{
		clock:        clock,
		instanceID:   uuid.New().String()[:8],
		numWorkers:   numWorkers,
		workCh:       make(chan uuid.UUID, numWorkers*2),
		done:         make(chan struct{}),
		activeTimers: make(map[uuid.UUID]scheduledTimer),
	}
}

// Schedule arms a flag check for gameID after the given delay, replacing any pending one.
func (s *FlagScheduler) Schedule(gameID uuid.UUID, after time.Duration) {
	st := scheduledTimer{
		timer:  s.clock.NewTimer(after),
		cancel: make(chan struct{}),
	}
	s.replaceTimer(gameID, st)

	go func(id uuid.UUID, st scheduledTimer) {
		select {
		case <-st.timer.Chan():
			if !s.removeTimer(id, st) {
				return
			}
			select {
			case s.workCh <- id:
				log.Debug().Str("game_id", id.String()).Msg("flag deadline reached - enqueued for check")
			case <-s.done:
			}
		case <-st.cancel:
		case <-s.done:
			stopAndDrainTimer(st.timer)
		}
	}(gameID, st)

	log.Debug().
		Str("game_id", gameID.String()).
		Dur("after", after).
		Str("instance", s.instanceID).
		Msg("scheduled flag check")
}

// Cancel drops the pending flag check of gameID, if any
func (s *FlagScheduler) Cancel(gameID uuid.UUID) {
	s.activeTimersMu.Lock()
	defer s.activeTimersMu.Unlock()

	if st, exists := s.activeTimers[gameID]; exists {
		stopAndDrainTimer(st.timer)
		close(st.cancel)
		delete(s.activeTimers, gameID)
		log.Debug().Str("game_id", gameID.String()).Msg("cancelled flag check")
	}
}

// Pending reports how many games currently have an armed flag check
func (s *FlagScheduler) Pending() int {
	s.activeTimersMu.Lock()
	defer s.activeTimersMu.Unlock()
	return len(s.activeTimers)
}

// Run starts the worker pool and blocks until ctx is cancelled.
func (s *FlagScheduler) Run(ctx context.Context, checker FlagChecker) {
	log.Info().Str("instance", s.instanceID).Int("workers", s.numWorkers).Msg("flag scheduler started")

	var wg sync.WaitGroup
	for i := 0; i < s.numWorkers; i++ {
		wg.Add(1)
		go s.worker(ctx, &wg, i, checker)
	}

	<-ctx.Done()
	s.closeOnce.Do(func() { close(s.done) })
	wg.Wait()

	log.Info().Str("instance", s.instanceID).Msg("flag scheduler stopped")
}

func (s *FlagScheduler) worker(ctx context.Context, wg *sync.WaitGroup, workerID int, checker FlagChecker) {
	defer wg.Done()

	for {
		select {
		case <-ctx.Done():
			return
		case gameID := <-s.workCh:
			flagged, err := checker.CheckFlag(ctx, gameID)
			if err != nil {
				log.Error().
					Err(err).
					Str("game_id", gameID.String()).
					Str("instance", s.instanceID).
					Int("worker_id", workerID).
					Msg("flag check failed")
				continue
			}
			log.Debug().
				Str("game_id", gameID.String()).
				Bool("flagged", flagged).
				Int("worker_id", workerID).
				Msg("flag check done")
		}
	}
}

// replaceTimer atomically replaces the timer of a game, cancelling the previous one.
func (s *FlagScheduler) replaceTimer(gameID uuid.UUID, st scheduledTimer) {
	s.activeTimersMu.Lock()
	defer s.activeTimersMu.Unlock()

	if existing, exists := s.activeTimers[gameID]; exists {
		stopAndDrainTimer(existing.timer)
		close(existing.cancel)
	}
	s.activeTimers[gameID] = st
}

// removeTimer forgets a fired timer. It returns false when st was already replaced or cancelled.
func (s *FlagScheduler) removeTimer(gameID uuid.UUID, st scheduledTimer) bool {
	s.activeTimersMu.Lock()
	defer s.activeTimersMu.Unlock()

	current, exists := s.activeTimers[gameID]
	if !exists || current.cancel != st.cancel {
		return false
	}
	delete(s.activeTimers, gameID)
	return true
}

// stopAndDrainTimer stops a timer and drains its channel if it already fired.
func stopAndDrainTimer(timer clockwork.Timer) {
	if !timer.Stop() {
		select {
		case <-timer.Chan():
		default:
		}
	}
}
