// Package database archives finished-match summaries to Postgres. The archive
// is write-only from the bot's perspective; live game state is never persisted
// or restored from it.
package database

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/sirupsen/logrus"
)

const schema = `
CREATE TABLE IF NOT EXISTS match_results (
	id BIGSERIAL PRIMARY KEY,
	room_id TEXT NOT NULL,
	game_id UUID NOT NULL,
	imposter_name TEXT NOT NULL,
	imposter_caught BOOLEAN NOT NULL,
	ejected_name TEXT NOT NULL,
	word TEXT NOT NULL,
	clue_count INT NOT NULL,
	finished_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);`

// MatchResult is the archived summary of one finished game.
type MatchResult struct {
	RoomID         string
	GameID         string
	ImposterName   string
	ImposterCaught bool
	EjectedName    string
	Word           string
	ClueCount      int
}

// Store holds the connection pool for the match archive.
type Store struct {
	pool *pgxpool.Pool
}

// Connect opens a pool against url and ensures the schema exists.
func Connect(ctx context.Context, url string) (*Store, error) {
	pool, err := pgxpool.New(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	if _, err := pool.Exec(ctx, schema); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ensure schema: %w", err)
	}
	return &Store{pool: pool}, nil
}

// SaveMatch inserts one finished-game summary. Runs on its own goroutine with
// a short timeout; failures are logged, never propagated into the game.
func (s *Store) SaveMatch(res MatchResult) {
	if s == nil || s.pool == nil {
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_, err := s.pool.Exec(ctx,
			`INSERT INTO match_results
			 (room_id, game_id, imposter_name, imposter_caught, ejected_name, word, clue_count)
			 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
			res.RoomID, res.GameID, res.ImposterName, res.ImposterCaught,
			res.EjectedName, res.Word, res.ClueCount,
		)
		if err != nil {
			logrus.WithError(err).WithField("room", res.RoomID).Warn("archive match result")
		}
	}()
}

// Close releases the pool.
func (s *Store) Close() {
	if s != nil && s.pool != nil {
		s.pool.Close()
	}
}
