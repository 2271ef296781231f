package game

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/mcdev12/chessclock/go/internal/models"
)

// MemoryRepository keeps games in process memory. Used in development and tests.
type MemoryRepository struct {
	mu    sync.RWMutex
	games map[uuid.UUID]models.Game
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{games: make(map[uuid.UUID]models.Game)}
}

func (r *MemoryRepository) CreateGame(ctx context.Context, game *models.Game) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.games[game.ID]; exists {
		return fmt.Errorf("game %s already exists", game.ID)
	}
	r.games[game.ID] = copyGame(*game)
	return nil
}

func (r *MemoryRepository) GetGame(ctx context.Context, id uuid.UUID) (*models.Game, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	game, exists := r.games[id]
	if !exists {
		return nil, ErrGameNotFound
	}
	game = copyGame(game)
	return &game, nil
}

func (r *MemoryRepository) UpdateGame(ctx context.Context, game *models.Game) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.games[game.ID]; !exists {
		return ErrGameNotFound
	}
	r.games[game.ID] = copyGame(*game)
	return nil
}

func copyGame(game models.Game) models.Game {
	if game.Result != nil {
		result := *game.Result
		game.Result = &result
	}
	return game
}
