package game

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/optcgsim/duel-server-go/internal/game/rules"
)

// playScriptedGame runs a short deterministic game on a fresh match,
// recording every accepted action the way the engine does.
func playScriptedGame(t *testing.T) (*MatchState, *ReplayLog) {
	t.Helper()
	m := newPendingDuel(t)
	log := NewReplayLog(m.ID, testSeats(), m.Seed())

	record := func(a *Action) {
		t.Helper()
		if err := m.Apply(a); err != nil {
			t.Fatalf("action %s by %s rejected: %v", a.Type, a.PlayerID, err)
		}
		log.Record(a)
	}

	record(NewAction(ActionChooseTurnOrder, m.Chooser, map[string]string{"first_player_id": testPlayerA}))
	record(NewAction(ActionSkipPreGame, testPlayerA, nil))
	record(NewAction(ActionSkipPreGame, testPlayerB, nil))
	record(NewAction(ActionKeepHand, testPlayerA, nil))
	record(NewAction(ActionKeepHand, testPlayerB, nil))
	record(NewAction(ActionEndTurn, testPlayerA, nil))

	// One leader swing with the defense declined. The taken life card may
	// open a trigger window; decline that too.
	record(NewAction(ActionDeclareAttack, testPlayerB, map[string]string{
		"card_id":     m.Players[testPlayerB].LeaderID.String(),
		"target_id":   m.Players[testPlayerA].LeaderID.String(),
		"target_kind": string(TargetLeader),
	}))
	record(NewAction(ActionPassPriority, testPlayerA, nil))
	record(NewAction(ActionPassCounter, testPlayerA, nil))
	if m.Phase() == rules.PhaseTrigger {
		record(NewAction(ActionPassPriority, testPlayerA, nil))
	}
	record(NewAction(ActionEndTurn, testPlayerB, nil))
	return m, log
}

func TestReplayRebuildsIdenticalState(t *testing.T) {
	m, log := playScriptedGame(t)

	data, err := log.Export()
	require.NoError(t, err)
	parsed, err := ParseReplayLog(data)
	require.NoError(t, err)
	require.Equal(t, log.Len(), parsed.Len())

	rebuilt, err := parsed.Rebuild(testCatalog(t))
	require.NoError(t, err)

	want, err := TakeSnapshot(m)
	require.NoError(t, err)
	got, err := TakeSnapshot(rebuilt)
	require.NoError(t, err)
	wantSum, err := want.ComputeChecksum()
	require.NoError(t, err)
	gotSum, err := got.ComputeChecksum()
	require.NoError(t, err)
	assert.Equal(t, wantSum.Hash, gotSum.Hash, "a replay must land on the original checksum")

	assert.Equal(t, m.Turn, rebuilt.Turn)
	assert.Equal(t, m.Active, rebuilt.Active)
	assert.Equal(t, m.Phase(), rebuilt.Phase())
}

func TestReplayLogSurvivesExport(t *testing.T) {
	_, log := playScriptedGame(t)

	data, err := log.Export()
	require.NoError(t, err)
	parsed, err := ParseReplayLog(data)
	require.NoError(t, err)

	assert.Equal(t, log.MatchID, parsed.MatchID)
	assert.Equal(t, log.Seed, parsed.Seed)
	require.Len(t, parsed.Actions, log.Len())
	for i := range log.Seats {
		assert.Equal(t, log.Seats[i].PlayerID, parsed.Seats[i].PlayerID)
		assert.Equal(t, log.Seats[i].Decklist, parsed.Seats[i].Decklist)
	}
	assert.True(t, log.StartedAt.Equal(parsed.StartedAt))
	for i, action := range log.Actions {
		assert.Equal(t, action.ID, parsed.Actions[i].ID)
		assert.Equal(t, action.Type, parsed.Actions[i].Type)
		assert.Equal(t, action.Data, parsed.Actions[i].Data)
	}

	_, err = ParseReplayLog([]byte("not a replay"))
	require.Error(t, err)
}

func TestReplayRejectsDivergentLog(t *testing.T) {
	_, log := playScriptedGame(t)

	// An action the live match never accepted cannot replay cleanly.
	log.Record(NewAction(ActionEndTurn, testPlayerB, nil))

	_, err := log.Rebuild(testCatalog(t))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "replay action")
}
