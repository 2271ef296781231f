package game

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/mcdev12/chessclock/go/internal/chessclock"
	"github.com/mcdev12/chessclock/go/internal/models"
	"github.com/sqlc-dev/pqtype"
)

// uniqueViolation is the Postgres error code for a duplicate key
const uniqueViolation = "23505"

// PostgresRepository stores games in the clock_games table.
type PostgresRepository struct {
	db *sql.DB
}

func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) CreateGame(ctx context.Context, game *models.Game) error {
	clockBytes, result, err := marshalGame(game)
	if err != nil {
		return err
	}

	_, err = r.db.ExecContext(ctx, `
		INSERT INTO clock_games (
		  id, time_control, status, clock, white_moves, black_moves, result, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		game.ID, game.TimeControl, string(game.Status), clockBytes,
		game.Moves[chessclock.White], game.Moves[chessclock.Black], result,
		game.CreatedAt, game.UpdatedAt,
	)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
			return fmt.Errorf("game %s already exists: %w", game.ID, err)
		}
		return fmt.Errorf("failed to insert game: %w", err)
	}
	return nil
}

func (r *PostgresRepository) GetGame(ctx context.Context, id uuid.UUID) (*models.Game, error) {
	var (
		game       models.Game
		status     string
		clockBytes []byte
		result     pqtype.NullRawMessage
		createdAt  time.Time
		updatedAt  time.Time
	)

	err := r.db.QueryRowContext(ctx, `
		SELECT id, time_control, status, clock, white_moves, black_moves, result, created_at, updated_at
		FROM clock_games
		WHERE id = $1`, id,
	).Scan(
		&game.ID, &game.TimeControl, &status, &clockBytes,
		&game.Moves[chessclock.White], &game.Moves[chessclock.Black], &result,
		&createdAt, &updatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrGameNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get game: %w", err)
	}

	game.Status = models.GameStatus(status)
	game.CreatedAt = createdAt
	game.UpdatedAt = updatedAt
	if err := json.Unmarshal(clockBytes, &game.Clock); err != nil {
		return nil, fmt.Errorf("failed to unmarshal clock: %w", err)
	}
	if result.Valid {
		game.Result = &models.GameResult{}
		if err := json.Unmarshal(result.RawMessage, game.Result); err != nil {
			return nil, fmt.Errorf("failed to unmarshal result: %w", err)
		}
	}
	return &game, nil
}

func (r *PostgresRepository) UpdateGame(ctx context.Context, game *models.Game) error {
	clockBytes, result, err := marshalGame(game)
	if err != nil {
		return err
	}

	res, err := r.db.ExecContext(ctx, `
		UPDATE clock_games
		SET status = $2, clock = $3, white_moves = $4, black_moves = $5, result = $6, updated_at = $7
		WHERE id = $1`,
		game.ID, string(game.Status), clockBytes,
		game.Moves[chessclock.White], game.Moves[chessclock.Black], result, game.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to update game: %w", err)
	}

	rows, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read affected rows: %w", err)
	}
	if rows == 0 {
		return ErrGameNotFound
	}
	return nil
}

func marshalGame(game *models.Game) ([]byte, pqtype.NullRawMessage, error) {
	clockBytes, err := json.Marshal(game.Clock)
	if err != nil {
		return nil, pqtype.NullRawMessage{}, fmt.Errorf("failed to marshal clock: %w", err)
	}

	var result pqtype.NullRawMessage
	if game.Result != nil {
		resultBytes, err := json.Marshal(game.Result)
		if err != nil {
			return nil, pqtype.NullRawMessage{}, fmt.Errorf("failed to marshal result: %w", err)
		}
		result = pqtype.NullRawMessage{RawMessage: resultBytes, Valid: true}
	}
	return clockBytes, result, nil
}
