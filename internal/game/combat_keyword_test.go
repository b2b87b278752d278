package game

import (
	"testing"

	"github.com/optcgsim/duel-server-go/internal/game/rules"
)

func TestRushAttacksTheTurnPlayed(t *testing.T) {
	m := newDuel(t)
	a, b := playerPair(m)
	endTurnOf(t, m, a.ID)
	endTurnOf(t, m, b.ID)

	readyDon(t, m, a, 4)
	rush := giveHand(t, m, a, "STC-007")
	apply(t, m, NewAction(ActionPlayCard, a.ID, map[string]string{
		"card_id": rush.ID.String(),
	}))
	if rush.PlayedTurn != m.Turn {
		t.Fatalf("played turn should be %d, got %d", m.Turn, rush.PlayedTurn)
	}

	apply(t, m, NewAction(ActionDeclareAttack, a.ID, map[string]string{
		"card_id":     rush.ID.String(),
		"target_id":   b.LeaderID.String(),
		"target_kind": string(TargetLeader),
	}))
	if m.Combat == nil || m.Combat.AttackerID != rush.ID {
		t.Fatalf("rush should attack the turn it lands, combat=%+v", m.Combat)
	}
}

func TestSummoningSicknessBlocksAttack(t *testing.T) {
	m := newDuel(t)
	a, b := playerPair(m)
	endTurnOf(t, m, a.ID)
	endTurnOf(t, m, b.ID)

	readyDon(t, m, a, 2)
	fresh := giveHand(t, m, a, "STC-003")
	apply(t, m, NewAction(ActionPlayCard, a.ID, map[string]string{
		"card_id": fresh.ID.String(),
	}))

	err := m.Apply(NewAction(ActionDeclareAttack, a.ID, map[string]string{
		"card_id":     fresh.ID.String(),
		"target_id":   b.LeaderID.String(),
		"target_kind": string(TargetLeader),
	}))
	if err == nil {
		t.Fatal("a character without rush cannot attack the turn it was played")
	}
}

func TestDoubleAttackerStaysStanding(t *testing.T) {
	m := newDuel(t)
	a, b := playerPair(m)
	endTurnOf(t, m, a.ID)

	stackLifeTop(t, m, a, "STC-001")
	leviathan := deployFromDeck(t, m, b, "STC-010")
	lifeBefore := len(a.Life)

	apply(t, m, NewAction(ActionDeclareAttack, b.ID, map[string]string{
		"card_id":     leviathan.ID.String(),
		"target_id":   a.LeaderID.String(),
		"target_kind": string(TargetLeader),
	}))
	passDefense(t, m, a)

	if len(a.Life) != lifeBefore-1 {
		t.Fatalf("the hit should land, life=%d", len(a.Life))
	}
	if leviathan.Rested {
		t.Fatal("a double-attacker stands after the battle")
	}

	// Standing or not, one attack per turn.
	err := m.Apply(NewAction(ActionDeclareAttack, b.ID, map[string]string{
		"card_id":     leviathan.ID.String(),
		"target_id":   a.LeaderID.String(),
		"target_kind": string(TargetLeader),
	}))
	if err == nil {
		t.Fatal("a second declaration in the same turn must be rejected")
	}
}

func TestUnblockableSkipsBlockerWindow(t *testing.T) {
	m := newDuel(t)
	a, b := playerPair(m)
	endTurnOf(t, m, a.ID)

	blocker := deployFromDeck(t, m, a, "STC-002")
	stackLifeTop(t, m, a, "STC-001")
	herald := deployFromDeck(t, m, b, "STC-109")
	lifeBefore := len(a.Life)

	apply(t, m, NewAction(ActionDeclareAttack, b.ID, map[string]string{
		"card_id":     herald.ID.String(),
		"target_id":   a.LeaderID.String(),
		"target_kind": string(TargetLeader),
	}))
	if m.Phase() != rules.PhaseCounter {
		t.Fatalf("an unblockable attack passes straight through the blocker step, got %s", m.Phase())
	}

	err := m.Apply(NewAction(ActionSelectBlocker, a.ID, map[string]string{
		"card_id": blocker.ID.String(),
	}))
	if err == nil {
		t.Fatal("blocking an unblockable attack must be rejected")
	}

	apply(t, m, NewAction(ActionPassCounter, a.ID, nil))
	if len(a.Life) != lifeBefore-1 {
		t.Fatalf("7000 into 5000 lands, life=%d", len(a.Life))
	}
}
