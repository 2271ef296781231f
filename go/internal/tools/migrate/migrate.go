package main

import (
	"context"
	"fmt"
	"os"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/mcdev12/chessclock/go/internal/dbconfig"
)

var statements = []string{
	`CREATE TABLE IF NOT EXISTS clock_games (
	   id           UUID PRIMARY KEY,
	   time_control TEXT NOT NULL,
	   status       TEXT NOT NULL,
	   clock        JSONB NOT NULL,
	   white_moves  INTEGER NOT NULL DEFAULT 0,
	   black_moves  INTEGER NOT NULL DEFAULT 0,
	   result       JSONB,
	   created_at   TIMESTAMPTZ NOT NULL,
	   updated_at   TIMESTAMPTZ NOT NULL
	 )`,
	`CREATE INDEX IF NOT EXISTS clock_games_status_idx ON clock_games (status)`,
}

func main() {
	// Connect using shared dbconfig
	cfg := dbconfig.NewConfigFromEnv()
	ctx := context.Background()

	pool, err := pgxpool.New(ctx, cfg.DSN())
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to connect: %v\n", err)
		os.Exit(1)
	}
	defer pool.Close()

	for i, stmt := range statements {
		if _, err := pool.Exec(ctx, stmt); err != nil {
			fmt.Fprintf(os.Stderr, "statement %d failed: %v\n", i+1, err)
			pool.Close()
			os.Exit(1)
		}
	}

	fmt.Printf("Migration complete: %d statements applied to %s\n", len(statements), cfg.Database)
}
