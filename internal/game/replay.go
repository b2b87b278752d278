package game

import (
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/optcgsim/duel-server-go/internal/catalog"
)

// ReplaySeat captures what a replay needs to rebuild one side.
type ReplaySeat struct {
	PlayerID string           `json:"player_id"`
	Name     string           `json:"name"`
	Decklist catalog.Decklist `json:"decklist"`
}

// ReplayLog records every accepted action in submission order. Together
// with the seed it reproduces the match move for move; rejected actions
// never enter the log.
type ReplayLog struct {
	mu sync.Mutex

	MatchID   string        `json:"match_id"`
	Seed      int64         `json:"seed"`
	Seats     [2]ReplaySeat `json:"seats"`
	StartedAt time.Time     `json:"started_at"`
	Actions   []*Action     `json:"actions"`
}

// NewReplayLog starts an empty log for a match.
func NewReplayLog(matchID string, seats [2]Seat, seed int64) *ReplayLog {
	rl := &ReplayLog{
		MatchID:   matchID,
		Seed:      seed,
		StartedAt: time.Now().UTC(),
	}
	for i, seat := range seats {
		rl.Seats[i] = ReplaySeat{PlayerID: seat.PlayerID, Name: seat.Name, Decklist: seat.Decklist}
	}
	return rl
}

// Record appends one accepted action.
func (rl *ReplayLog) Record(a *Action) {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	rl.Actions = append(rl.Actions, a)
}

// Len returns the number of recorded actions.
func (rl *ReplayLog) Len() int {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	return len(rl.Actions)
}

// Export serializes the log for storage or download.
func (rl *ReplayLog) Export() ([]byte, error) {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	return json.MarshalIndent(rl, "", "  ")
}

// ParseReplayLog loads an exported log.
func ParseReplayLog(data []byte) (*ReplayLog, error) {
	var rl ReplayLog
	if err := json.Unmarshal(data, &rl); err != nil {
		return nil, fmt.Errorf("parse replay: %w", err)
	}
	return &rl, nil
}

// Rebuild replays the log against a fresh match and returns the final
// state. The seed restores every shuffle, so each recorded action must
// apply cleanly; a rejection means the log and engine versions diverged.
func (rl *ReplayLog) Rebuild(cat *catalog.Catalog) (*MatchState, error) {
	seats := [2]Seat{}
	for i, seat := range rl.Seats {
		seats[i] = Seat{PlayerID: seat.PlayerID, Name: seat.Name, Decklist: seat.Decklist}
	}
	m, err := NewMatchState(rl.MatchID, cat, seats, WithSeed(rl.Seed))
	if err != nil {
		return nil, fmt.Errorf("rebuild match: %w", err)
	}
	for i, action := range rl.Actions {
		if err := m.Apply(action); err != nil {
			return nil, fmt.Errorf("replay action %d (%s): %w", i, action.Type, err)
		}
	}
	return m, nil
}
