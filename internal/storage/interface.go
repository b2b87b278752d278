package storage

import (
	"context"
	"time"
)

// MatchRecord is one finished match as persisted to history. PlayerA
// and PlayerB follow the match's seat order, not the outcome.
type MatchRecord struct {
	MatchID    string
	PlayerA    string
	PlayerB    string
	WinnerID   string
	Reason     string
	Turns      int
	Duration   time.Duration
	FinishedAt time.Time
}

// Rating is one player's ladder standing.
type Rating struct {
	PlayerID string
	Elo      int
	Wins     int
	Losses   int
	Draws    int
}

// HistoryStore persists finished matches and the rating ladder.
// Implementations must tolerate concurrent calls.
type HistoryStore interface {
	RecordResult(ctx context.Context, rec MatchRecord) error
	PlayerRating(ctx context.Context, playerID string) (Rating, error)
	RecentMatches(ctx context.Context, playerID string, limit int) ([]MatchRecord, error)
	Close()
}

var (
	_ HistoryStore = (*Store)(nil)
	_ HistoryStore = NoopStore{}
)

// NoopStore keeps the server runnable without Postgres. Writes vanish
// and reads come back empty.
type NoopStore struct{}

func (NoopStore) RecordResult(context.Context, MatchRecord) error { return nil }

func (NoopStore) PlayerRating(_ context.Context, playerID string) (Rating, error) {
	return Rating{PlayerID: playerID, Elo: InitialElo}, nil
}

func (NoopStore) RecentMatches(context.Context, string, int) ([]MatchRecord, error) {
	return nil, nil
}

func (NoopStore) Close() {}
