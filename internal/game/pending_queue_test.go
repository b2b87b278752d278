package game

import (
	"testing"

	"github.com/google/uuid"

	"github.com/optcgsim/duel-server-go/internal/game/rules"
)

func TestAdditionalCostChainsIntoHandSelect(t *testing.T) {
	m := newDuel(t)
	a, b := playerPair(m)
	endTurnOf(t, m, a.ID)

	handBefore := len(b.Hand)
	apply(t, m, NewAction(ActionActivateAbility, b.ID, map[string]string{
		"card_id": b.LeaderID.String(),
	}))
	if m.Phase() != rules.PhaseAdditionalCost {
		t.Fatalf("an optional cost interrupts into its own phase, got %s", m.Phase())
	}

	// Confirming the cost queues the actual hand selection.
	apply(t, m, NewAction(ActionResolveEffect, b.ID, nil))
	if m.Phase() != rules.PhaseHandSelect {
		t.Fatalf("confirming the cost opens the hand selection, got %s", m.Phase())
	}
	head, ok := m.Pending.Head(KindHandSelect)
	if !ok || head.Min != 1 || head.Max != 1 {
		t.Fatalf("hand selection should demand exactly one card, got %+v", head)
	}

	if err := m.Apply(NewAction(ActionResolveEffect, b.ID, nil)); err == nil {
		t.Fatal("resolving below the selection minimum must be rejected")
	}
	if err := m.Apply(NewAction(ActionSkipEffect, b.ID, nil)); err == nil {
		t.Fatal("a mandatory selection must not be skippable")
	}

	discard := b.Hand[0]
	apply(t, m, NewAction(ActionSelectEffectTarget, b.ID, map[string]string{
		"target_id": discard.String(),
	}))
	apply(t, m, NewAction(ActionResolveEffect, b.ID, nil))

	if m.Phase() != rules.PhaseMain {
		t.Fatalf("both interrupts should unwind back to main, got %s", m.Phase())
	}
	if b.Cards[discard].Zone != ZoneTrash {
		t.Fatalf("the discarded card belongs in the trash, zone=%s", b.Cards[discard].Zone)
	}
	if len(b.Hand) != handBefore+1 {
		t.Fatalf("discard 1 draw 2 nets one card, want %d got %d", handBefore+1, len(b.Hand))
	}
	if !b.Leader().ActivatedThisTurn {
		t.Fatal("the activation should be spent for the turn")
	}
	err := m.Apply(NewAction(ActionActivateAbility, b.ID, map[string]string{
		"card_id": b.LeaderID.String(),
	}))
	if err == nil {
		t.Fatal("once per turn means once")
	}
}

func TestAdditionalCostDeclined(t *testing.T) {
	m := newDuel(t)
	a, b := playerPair(m)
	endTurnOf(t, m, a.ID)

	handBefore := len(b.Hand)
	apply(t, m, NewAction(ActionActivateAbility, b.ID, map[string]string{
		"card_id": b.LeaderID.String(),
	}))
	apply(t, m, NewAction(ActionSkipEffect, b.ID, nil))

	if m.Phase() != rules.PhaseMain {
		t.Fatalf("declining the cost should unwind to main, got %s", m.Phase())
	}
	if len(b.Hand) != handBefore {
		t.Fatalf("a declined cost draws nothing, want %d got %d", handBefore, len(b.Hand))
	}
	if len(b.Trash) != 0 {
		t.Fatalf("a declined cost discards nothing, trash=%d", len(b.Trash))
	}
}

func TestDiscardDrawFizzlesOnEmptyHand(t *testing.T) {
	m := newDuel(t)
	a, b := playerPair(m)
	endTurnOf(t, m, a.ID)

	for _, id := range append([]uuid.UUID(nil), b.Hand...) {
		if err := m.moveCard(b, id, ZoneDeck); err != nil {
			t.Fatalf("failed to empty hand: %v", err)
		}
	}

	fizzled := 0
	m.Events().SubscribeTyped(rules.EventEffectFizzled, func(rules.Event) { fizzled++ })

	apply(t, m, NewAction(ActionActivateAbility, b.ID, map[string]string{
		"card_id": b.LeaderID.String(),
	}))

	if fizzled != 1 {
		t.Fatalf("unmet conditions should fizzle exactly once, got %d", fizzled)
	}
	if m.Phase() != rules.PhaseMain {
		t.Fatalf("a fizzle never interrupts, got %s", m.Phase())
	}
	if !m.Pending.Empty(KindAdditionalCost) {
		t.Fatal("a fizzled effect must not be queued")
	}
	// The once-per-turn window is still spent by the attempt.
	if !b.Leader().ActivatedThisTurn {
		t.Fatal("a fizzled activation still counts for the turn")
	}
}

func TestWeakenWithEmptyBoardAppliesInline(t *testing.T) {
	m := newDuel(t)
	a, b := playerPair(m)
	endTurnOf(t, m, a.ID)
	endTurnOf(t, m, b.ID)

	readyDon(t, m, a, 2)
	gunner := giveHand(t, m, a, "STC-004")
	apply(t, m, NewAction(ActionPlayCard, a.ID, map[string]string{
		"card_id": gunner.ID.String(),
	}))

	// No opposing characters: an optional selection with no candidates
	// applies inline instead of opening an interrupt.
	if m.Phase() != rules.PhaseMain {
		t.Fatalf("a decisionless effect must not interrupt, got %s", m.Phase())
	}
	if !m.Pending.Empty(KindOnPlay) {
		t.Fatal("nothing should stay queued")
	}
	if gunner.Zone != ZoneField {
		t.Fatalf("the character still resolves to the field, zone=%s", gunner.Zone)
	}
}

func TestPendingQueueIsStrictlyFIFO(t *testing.T) {
	set := NewPendingSet()
	first := &PendingEffect{ID: uuid.New(), Kind: KindOnPlay, OwnerID: testPlayerA, ConditionsMet: true}
	second := &PendingEffect{ID: uuid.New(), Kind: KindOnPlay, OwnerID: testPlayerA, ConditionsMet: true}
	set.push(first)
	set.push(second)

	head, ok := set.Head(KindOnPlay)
	if !ok || head.ID != first.ID {
		t.Fatalf("head should be the earliest enqueued effect")
	}
	set.pop(KindOnPlay)
	head, ok = set.Head(KindOnPlay)
	if !ok || head.ID != second.ID {
		t.Fatalf("popping exposes the next effect in order")
	}
	set.pop(KindOnPlay)
	if !set.Empty(KindOnPlay) {
		t.Fatal("queue should drain")
	}
}

func TestSelectionToggleAndCap(t *testing.T) {
	one, two, outsider := uuid.New(), uuid.New(), uuid.New()
	eff := &PendingEffect{
		Kind:       KindEventMain,
		Candidates: []uuid.UUID{one, two},
		Max:        1,
	}

	if err := eff.Toggle(outsider); err == nil {
		t.Fatal("a non-candidate must be rejected")
	}
	if err := eff.Toggle(one); err != nil {
		t.Fatalf("selecting a candidate: %v", err)
	}
	if err := eff.Toggle(two); err == nil {
		t.Fatal("selections beyond max must be rejected")
	}
	if err := eff.Toggle(one); err != nil {
		t.Fatalf("deselecting: %v", err)
	}
	if err := eff.Toggle(two); err != nil {
		t.Fatalf("selecting after freeing the slot: %v", err)
	}
}
