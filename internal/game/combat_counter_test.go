package game

import (
	"testing"

	"github.com/optcgsim/duel-server-go/internal/game/rules"
)

func TestCharacterCounterTurnsTheHit(t *testing.T) {
	m := newDuel(t)
	a, b := playerPair(m)
	endTurnOf(t, m, a.ID)

	counter := giveHand(t, m, a, "STC-002")
	declareLeaderAttack(t, m, b, a)
	apply(t, m, NewAction(ActionPassPriority, a.ID, nil))

	apply(t, m, NewAction(ActionUseCounter, a.ID, map[string]string{
		"card_id": counter.ID.String(),
	}))
	if m.Combat.CounterPower != 2000 {
		t.Fatalf("printed counter value should add 2000, got %d", m.Combat.CounterPower)
	}
	if counter.Zone != ZoneTrash {
		t.Fatalf("the counter card is discarded, zone=%s", counter.Zone)
	}

	apply(t, m, NewAction(ActionPassCounter, a.ID, nil))

	// 5000 into 5000+2000 falls short.
	if len(a.Life) != 5 {
		t.Fatalf("countered attack must not take life, got %d", len(a.Life))
	}
	if !b.Leader().Rested {
		t.Fatal("the attacker rests even when countered")
	}
	if m.Phase() != rules.PhaseMain {
		t.Fatalf("expected main phase, got %s", m.Phase())
	}
}

func TestEventCounterBuffsTheDefense(t *testing.T) {
	m := newDuel(t)
	a, b := playerPair(m)
	endTurnOf(t, m, a.ID)

	freeCounter := giveHand(t, m, a, "STC-001")
	eventCounter := giveHand(t, m, a, "STE-001")

	// Attach a DON to push the attack to 6000 before declaring.
	apply(t, m, NewAction(ActionAttachDon, b.ID, map[string]string{
		"don_id":  b.DonField[0].String(),
		"host_id": b.LeaderID.String(),
	}))
	declareLeaderAttack(t, m, b, a)
	if m.Combat.AttackPower != 6000 {
		t.Fatalf("attached DON counts in the snapshot, got %d", m.Combat.AttackPower)
	}
	apply(t, m, NewAction(ActionPassPriority, a.ID, nil))

	apply(t, m, NewAction(ActionUseCounter, a.ID, map[string]string{
		"card_id": freeCounter.ID.String(),
	}))
	apply(t, m, NewAction(ActionUseCounter, a.ID, map[string]string{
		"card_id": eventCounter.ID.String(),
	}))
	if eventCounter.Zone != ZoneTrash {
		t.Fatalf("the counter event is discarded on play, zone=%s", eventCounter.Zone)
	}

	apply(t, m, NewAction(ActionPassCounter, a.ID, nil))
	if m.Phase() != rules.PhaseCounterEffect {
		t.Fatalf("queued counter events hold the chain, got %s", m.Phase())
	}

	apply(t, m, NewAction(ActionSelectEffectTarget, a.ID, map[string]string{
		"target_id": a.LeaderID.String(),
	}))
	apply(t, m, NewAction(ActionResolveEffect, a.ID, nil))

	// 6000 into 5000+1000+2000: the defense holds.
	if len(a.Life) != 5 {
		t.Fatalf("defense of 8000 should hold, life=%d", len(a.Life))
	}
	if len(a.Leader().Buffs) != 0 {
		t.Fatalf("a buff on the combat target accumulates on the combat record, not the instance: %+v", a.Leader().Buffs)
	}
	if !a.Cards[a.DonField[0]].Rested {
		t.Fatal("the event counter's cost should rest a DON")
	}
	if m.Phase() != rules.PhaseMain {
		t.Fatalf("expected main phase, got %s", m.Phase())
	}
}

func TestCounterRequiresPrintedValue(t *testing.T) {
	m := newDuel(t)
	a, b := playerPair(m)
	endTurnOf(t, m, a.ID)

	blank := giveHand(t, m, a, "STC-008")
	declareLeaderAttack(t, m, b, a)
	passBlockerWindow(t, m, a)

	err := m.Apply(NewAction(ActionUseCounter, a.ID, map[string]string{
		"card_id": blank.ID.String(),
	}))
	if err == nil {
		t.Fatal("a character without a counter value cannot be used as one")
	}
}

func TestEventCounterNeedsActiveDon(t *testing.T) {
	m := newDuel(t)
	a, b := playerPair(m)
	endTurnOf(t, m, a.ID)

	eventCounter := giveHand(t, m, a, "STE-001")
	for _, id := range a.DonField {
		a.Cards[id].Rested = true
	}
	declareLeaderAttack(t, m, b, a)
	passBlockerWindow(t, m, a)

	err := m.Apply(NewAction(ActionUseCounter, a.ID, map[string]string{
		"card_id": eventCounter.ID.String(),
	}))
	if err == nil {
		t.Fatal("a counter event must be affordable")
	}
	if eventCounter.Zone != ZoneHand {
		t.Fatalf("a rejected counter stays in hand, zone=%s", eventCounter.Zone)
	}
}
