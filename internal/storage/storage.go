// Package storage persists match history and Elo ratings to Postgres.
package storage

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

const (
	// EloK is the ladder's K-factor.
	EloK = 32
	// InitialElo seeds a player's first rating row.
	InitialElo = 1000
)

const createTableSQL = `
CREATE TABLE IF NOT EXISTS match_history (
	match_id    TEXT PRIMARY KEY,
	player_a    TEXT NOT NULL,
	player_b    TEXT NOT NULL,
	winner_id   TEXT NOT NULL,
	reason      TEXT NOT NULL,
	turns       INT NOT NULL,
	duration_ms BIGINT NOT NULL,
	finished_at TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE INDEX IF NOT EXISTS idx_match_history_player_a ON match_history(player_a);
CREATE INDEX IF NOT EXISTS idx_match_history_player_b ON match_history(player_b);
CREATE TABLE IF NOT EXISTS player_ratings (
	player_id  TEXT PRIMARY KEY,
	elo        INT NOT NULL DEFAULT 1000,
	wins       INT NOT NULL DEFAULT 0,
	losses     INT NOT NULL DEFAULT 0,
	draws      INT NOT NULL DEFAULT 0,
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE INDEX IF NOT EXISTS idx_player_ratings_elo ON player_ratings(elo DESC);
`

// Store is the Postgres-backed HistoryStore.
type Store struct {
	pool *pgxpool.Pool
	log  *zap.Logger
}

// Open connects to Postgres, verifies the connection, and ensures the
// schema exists.
func Open(ctx context.Context, databaseURL string, log *zap.Logger) (*Store, error) {
	if log == nil {
		log = zap.NewNop()
	}
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("storage: connect: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("storage: ping: %w", err)
	}
	if _, err := pool.Exec(ctx, createTableSQL); err != nil {
		pool.Close()
		return nil, fmt.Errorf("storage: ensure schema: %w", err)
	}
	log.Info("storage connected")
	return &Store{pool: pool, log: log}, nil
}

// Close releases the connection pool.
func (s *Store) Close() {
	if s != nil && s.pool != nil {
		s.pool.Close()
	}
}

// RecordResult writes the history row and applies the Elo update in one
// transaction. A replayed match id leaves the ratings untouched.
func (s *Store) RecordResult(ctx context.Context, rec MatchRecord) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("storage: begin: %w", err)
	}
	defer tx.Rollback(ctx)

	tag, err := tx.Exec(ctx, `
		INSERT INTO match_history (match_id, player_a, player_b, winner_id, reason, turns, duration_ms, finished_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (match_id) DO NOTHING`,
		rec.MatchID, rec.PlayerA, rec.PlayerB, rec.WinnerID, rec.Reason,
		rec.Turns, rec.Duration.Milliseconds(), rec.FinishedAt)
	if err != nil {
		return fmt.Errorf("storage: insert history: %w", err)
	}
	if tag.RowsAffected() == 0 {
		s.log.Debug("duplicate match result ignored", zap.String("matchId", rec.MatchID))
		return nil
	}

	if err := s.applyRatings(ctx, tx, rec); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("storage: commit: %w", err)
	}
	s.log.Info("match result recorded",
		zap.String("matchId", rec.MatchID),
		zap.String("winnerId", rec.WinnerID),
		zap.String("reason", rec.Reason))
	return nil
}

func (s *Store) applyRatings(ctx context.Context, tx pgx.Tx, rec MatchRecord) error {
	for _, id := range []string{rec.PlayerA, rec.PlayerB} {
		if _, err := tx.Exec(ctx, `
			INSERT INTO player_ratings (player_id, elo) VALUES ($1, $2)
			ON CONFLICT (player_id) DO NOTHING`, id, InitialElo); err != nil {
			return fmt.Errorf("storage: seed rating %s: %w", id, err)
		}
	}

	var ratingA, ratingB int
	if err := tx.QueryRow(ctx,
		`SELECT elo FROM player_ratings WHERE player_id = $1`, rec.PlayerA).Scan(&ratingA); err != nil {
		return fmt.Errorf("storage: read rating %s: %w", rec.PlayerA, err)
	}
	if err := tx.QueryRow(ctx,
		`SELECT elo FROM player_ratings WHERE player_id = $1`, rec.PlayerB).Scan(&ratingB); err != nil {
		return fmt.Errorf("storage: read rating %s: %w", rec.PlayerB, err)
	}

	winnerIdx := -1
	switch rec.WinnerID {
	case rec.PlayerA:
		winnerIdx = 0
	case rec.PlayerB:
		winnerIdx = 1
	}
	newA, newB := updatedRatings(ratingA, ratingB, winnerIdx)

	const updateSQL = `
		UPDATE player_ratings
		SET elo = $2, wins = wins + $3, losses = losses + $4, draws = draws + $5, updated_at = now()
		WHERE player_id = $1`
	if _, err := tx.Exec(ctx, updateSQL, rec.PlayerA, newA,
		boolToInt(winnerIdx == 0), boolToInt(winnerIdx == 1), boolToInt(winnerIdx < 0)); err != nil {
		return fmt.Errorf("storage: update rating %s: %w", rec.PlayerA, err)
	}
	if _, err := tx.Exec(ctx, updateSQL, rec.PlayerB, newB,
		boolToInt(winnerIdx == 1), boolToInt(winnerIdx == 0), boolToInt(winnerIdx < 0)); err != nil {
		return fmt.Errorf("storage: update rating %s: %w", rec.PlayerB, err)
	}
	return nil
}

// PlayerRating returns the ladder row for one player. Unknown players
// get the initial rating with zero tallies.
func (s *Store) PlayerRating(ctx context.Context, playerID string) (Rating, error) {
	r := Rating{PlayerID: playerID}
	err := s.pool.QueryRow(ctx, `
		SELECT elo, wins, losses, draws FROM player_ratings WHERE player_id = $1`,
		playerID).Scan(&r.Elo, &r.Wins, &r.Losses, &r.Draws)
	if errors.Is(err, pgx.ErrNoRows) {
		return Rating{PlayerID: playerID, Elo: InitialElo}, nil
	}
	if err != nil {
		return Rating{}, fmt.Errorf("storage: read rating %s: %w", playerID, err)
	}
	return r, nil
}

// RecentMatches lists a player's history, newest first.
func (s *Store) RecentMatches(ctx context.Context, playerID string, limit int) ([]MatchRecord, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.pool.Query(ctx, `
		SELECT match_id, player_a, player_b, winner_id, reason, turns, duration_ms, finished_at
		FROM match_history
		WHERE player_a = $1 OR player_b = $1
		ORDER BY finished_at DESC
		LIMIT $2`, playerID, limit)
	if err != nil {
		return nil, fmt.Errorf("storage: list matches: %w", err)
	}
	defer rows.Close()

	var out []MatchRecord
	for rows.Next() {
		var rec MatchRecord
		var durationMS int64
		if err := rows.Scan(&rec.MatchID, &rec.PlayerA, &rec.PlayerB, &rec.WinnerID,
			&rec.Reason, &rec.Turns, &durationMS, &rec.FinishedAt); err != nil {
			return nil, fmt.Errorf("storage: scan match: %w", err)
		}
		rec.Duration = time.Duration(durationMS) * time.Millisecond
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("storage: list matches: %w", err)
	}
	return out, nil
}

// updatedRatings computes both players' new Elo for a result. winnerIdx
// is 0 for the first player, 1 for the second, -1 for a draw. Ratings
// never drop below zero.
func updatedRatings(ratingA, ratingB, winnerIdx int) (int, int) {
	var scoreA, scoreB float64
	switch winnerIdx {
	case 0:
		scoreA, scoreB = 1, 0
	case 1:
		scoreA, scoreB = 0, 1
	default:
		scoreA, scoreB = 0.5, 0.5
	}

	expectA := 1 / (1 + math.Pow(10, float64(ratingB-ratingA)/400))
	expectB := 1 - expectA

	newA := ratingA + int(math.Round(EloK*(scoreA-expectA)))
	newB := ratingB + int(math.Round(EloK*(scoreB-expectB)))
	if newA < 0 {
		newA = 0
	}
	if newB < 0 {
		newB = 0
	}
	return newA, newB
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
