package storage

import (
	"context"
	"testing"
)

func TestUpdatedRatingsEqualPlayers(t *testing.T) {
	newA, newB := updatedRatings(1000, 1000, 0)
	if newA != 1016 {
		t.Errorf("winner rating = %d, want 1016", newA)
	}
	if newB != 984 {
		t.Errorf("loser rating = %d, want 984", newB)
	}
}

func TestUpdatedRatingsDraw(t *testing.T) {
	newA, newB := updatedRatings(1000, 1000, -1)
	if newA != 1000 || newB != 1000 {
		t.Errorf("equal draw moved ratings: %d, %d", newA, newB)
	}

	newA, newB = updatedRatings(900, 1100, -1)
	if newA <= 900 {
		t.Errorf("weaker player's draw rating = %d, want a gain over 900", newA)
	}
	if newB >= 1100 {
		t.Errorf("stronger player's draw rating = %d, want a loss under 1100", newB)
	}
}

func TestUpdatedRatingsUpsetPaysMore(t *testing.T) {
	upset, _ := updatedRatings(800, 1200, 0)
	expected, _ := updatedRatings(1200, 800, 0)

	upsetGain := upset - 800
	expectedGain := expected - 1200
	if upsetGain <= expectedGain {
		t.Errorf("upset gain %d not larger than expected-win gain %d", upsetGain, expectedGain)
	}
	if upsetGain != 29 {
		t.Errorf("upset gain = %d, want 29", upsetGain)
	}
}

func TestUpdatedRatingsNeverNegative(t *testing.T) {
	_, newB := updatedRatings(10, 10, 0)
	if newB != 0 {
		t.Errorf("loser rating = %d, want clamp at 0", newB)
	}
}

func TestNoopStoreAnswersEmpty(t *testing.T) {
	var s HistoryStore = NoopStore{}
	ctx := context.Background()

	if err := s.RecordResult(ctx, MatchRecord{MatchID: "m"}); err != nil {
		t.Fatalf("noop record: %v", err)
	}
	r, err := s.PlayerRating(ctx, "p")
	if err != nil {
		t.Fatalf("noop rating: %v", err)
	}
	if r.Elo != InitialElo {
		t.Errorf("noop rating = %d, want %d", r.Elo, InitialElo)
	}
	recs, err := s.RecentMatches(ctx, "p", 5)
	if err != nil || recs != nil {
		t.Errorf("noop matches = %v, %v, want empty", recs, err)
	}
}
