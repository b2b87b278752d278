package game

import (
	"testing"

	"github.com/google/uuid"

	"github.com/optcgsim/duel-server-go/internal/game/rules"
)

func TestTriggerOpensOnLifeHit(t *testing.T) {
	m := newDuel(t)
	a, b := playerPair(m)
	endTurnOf(t, m, a.ID)

	stacked := stackLifeTop(t, m, a, "STC-006")
	handBefore := len(a.Hand)

	declareLeaderAttack(t, m, b, a)
	passDefense(t, m, a)

	if m.Phase() != rules.PhaseTrigger {
		t.Fatalf("a life card with a trigger opens the trigger step, got %s", m.Phase())
	}
	if m.TriggerCardID != stacked.ID {
		t.Fatalf("trigger card should be %s, got %s", stacked.ID, m.TriggerCardID)
	}
	if stacked.Zone != ZoneHand || !stacked.Revealed {
		t.Fatalf("the life card is already face up in hand, zone=%s revealed=%t", stacked.Zone, stacked.Revealed)
	}

	err := m.Apply(NewAction(ActionTriggerLife, b.ID, nil))
	if err == nil {
		t.Fatal("the attacker must not fire the defender's trigger")
	}

	apply(t, m, NewAction(ActionTriggerLife, a.ID, nil))

	// Taken life card plus the trigger's draw.
	if len(a.Hand) != handBefore+2 {
		t.Fatalf("trigger draw should land in hand, want %d got %d", handBefore+2, len(a.Hand))
	}
	if m.TriggerCardID != uuid.Nil {
		t.Fatal("trigger card reference should clear")
	}
	if m.Combat != nil || m.Phase() != rules.PhaseMain {
		t.Fatalf("combat should close after the trigger, phase=%s", m.Phase())
	}
	if !b.Leader().Rested {
		t.Fatal("the attacker rests once the battle finishes")
	}
}

func TestTriggerDeclined(t *testing.T) {
	m := newDuel(t)
	a, b := playerPair(m)
	endTurnOf(t, m, a.ID)

	stackLifeTop(t, m, a, "STC-006")
	handBefore := len(a.Hand)

	declareLeaderAttack(t, m, b, a)
	passDefense(t, m, a)
	if m.Phase() != rules.PhaseTrigger {
		t.Fatalf("expected the trigger step, got %s", m.Phase())
	}

	apply(t, m, NewAction(ActionPassPriority, a.ID, nil))

	if len(a.Hand) != handBefore+1 {
		t.Fatalf("declining keeps the card without the draw, want %d got %d", handBefore+1, len(a.Hand))
	}
	if m.Phase() != rules.PhaseMain {
		t.Fatalf("expected main phase, got %s", m.Phase())
	}
}
