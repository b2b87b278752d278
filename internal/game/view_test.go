package game

import (
	"reflect"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/optcgsim/duel-server-go/internal/game/rules"
)

func TestOpponentHandStaysHidden(t *testing.T) {
	m := newDuel(t)
	a, b := playerPair(m)

	view := Project(m, a.ID)
	if view.You == nil || view.You.ID != a.ID {
		t.Fatalf("the viewer's own side should project as You, got %+v", view.You)
	}
	if view.Opponent == nil || view.Opponent.ID != b.ID {
		t.Fatalf("the other side should project as Opponent, got %+v", view.Opponent)
	}

	if len(view.Opponent.Hand) != len(b.Hand) {
		t.Fatalf("hidden hands still project one entry per card, want %d got %d", len(b.Hand), len(view.Opponent.Hand))
	}
	for _, card := range view.Opponent.Hand {
		if !card.Hidden || card.DefID != "" {
			t.Fatalf("opponent hand cards project face down, got %+v", card)
		}
		if card.ID == uuid.Nil {
			t.Fatal("hidden cards keep their instance id")
		}
	}
	for _, card := range view.You.Hand {
		if card.Hidden || card.DefID == "" {
			t.Fatalf("a player's own hand projects face up, got %+v", card)
		}
	}

	if view.Opponent.HandCount != len(b.Hand) {
		t.Fatalf("hand count should be %d, got %d", len(b.Hand), view.Opponent.HandCount)
	}
	if view.Opponent.DeckCount != len(b.Deck) {
		t.Fatalf("deck count should be %d, got %d", len(b.Deck), view.Opponent.DeckCount)
	}
	if view.Opponent.LifeCount != len(b.Life) {
		t.Fatalf("life count should be %d, got %d", len(b.Life), view.Opponent.LifeCount)
	}
	if view.Opponent.Leader.DefID == "" || view.Opponent.Leader.Power == 0 {
		t.Fatalf("leaders are public, got %+v", view.Opponent.Leader)
	}
}

func TestTakenLifeCardStaysVisible(t *testing.T) {
	m := newDuel(t)
	a, b := playerPair(m)
	endTurnOf(t, m, a.ID)

	stacked := stackLifeTop(t, m, a, "STC-001")
	declareLeaderAttack(t, m, b, a)
	passDefense(t, m, a)

	view := Project(m, b.ID)
	var shown []CardView
	for _, card := range view.Opponent.Hand {
		if !card.Hidden {
			shown = append(shown, card)
		}
	}
	if len(shown) != 1 {
		t.Fatalf("exactly the taken life card should show through, got %d face-up cards", len(shown))
	}
	if shown[0].ID != stacked.ID || shown[0].DefID != "STC-001" || !shown[0].Revealed {
		t.Fatalf("the taken life card projects face up, got %+v", shown[0])
	}
}

func TestCombatProjectsToBothSides(t *testing.T) {
	m := newDuel(t)
	a, b := playerPair(m)
	endTurnOf(t, m, a.ID)

	declareLeaderAttack(t, m, b, a)

	for _, viewer := range []string{a.ID, b.ID} {
		view := Project(m, viewer)
		if view.Combat == nil {
			t.Fatalf("an open attack is public, %s sees none", viewer)
		}
		if view.Combat.AttackerID != b.LeaderID || view.Combat.TargetID != a.LeaderID {
			t.Fatalf("combat should name attacker and target, got %+v", view.Combat)
		}
		if view.Combat.AttackPower != 5000 {
			t.Fatalf("both sides see the snapshot power, got %d", view.Combat.AttackPower)
		}
	}
}

func TestProjectionIsPureAndStable(t *testing.T) {
	m := newDuel(t)
	a, _ := playerPair(m)

	before, err := TakeSnapshot(m)
	if err != nil {
		t.Fatalf("snapshot failed: %v", err)
	}
	sumBefore, err := before.ComputeChecksum()
	if err != nil {
		t.Fatalf("checksum failed: %v", err)
	}

	first := Project(m, a.ID)
	second := Project(m, a.ID)
	first.At, second.At = time.Time{}, time.Time{}
	if !reflect.DeepEqual(first, second) {
		t.Fatal("projecting the same state twice must yield the same view")
	}
	_ = ProjectFull(m)

	after, err := TakeSnapshot(m)
	if err != nil {
		t.Fatalf("snapshot failed: %v", err)
	}
	sumAfter, err := after.ComputeChecksum()
	if err != nil {
		t.Fatalf("checksum failed: %v", err)
	}
	if sumBefore.Hash != sumAfter.Hash {
		t.Fatalf("projection must not mutate the match: %s != %s", sumBefore.Hash, sumAfter.Hash)
	}
}

func TestFullViewShowsEveryFace(t *testing.T) {
	m := newDuel(t)
	a, b := playerPair(m)

	view := ProjectFull(m)
	if view.You != nil || view.Opponent != nil {
		t.Fatal("the omniscient view carries no perspective")
	}
	if len(view.Players) != 2 || view.Players[0].ID != a.ID || view.Players[1].ID != b.ID {
		t.Fatalf("players should appear in seat order, got %d entries", len(view.Players))
	}
	for _, p := range view.Players {
		for _, card := range p.Hand {
			if card.Hidden || card.DefID == "" {
				t.Fatalf("the full view hides nothing, got %+v", card)
			}
		}
	}
}

func TestEffectDecisionSpaceIsOwnerOnly(t *testing.T) {
	m := newDuel(t)
	a, b := playerPair(m)
	endTurnOf(t, m, a.ID)

	apply(t, m, NewAction(ActionActivateAbility, b.ID, map[string]string{
		"card_id": b.LeaderID.String(),
	}))
	apply(t, m, NewAction(ActionResolveEffect, b.ID, nil))
	if m.Phase() != rules.PhaseHandSelect {
		t.Fatalf("expected the hand selection, got %s", m.Phase())
	}

	owner := Project(m, b.ID).Effect
	if owner == nil || len(owner.Candidates) != len(b.Hand) {
		t.Fatalf("the owner sees the full candidate list, got %+v", owner)
	}

	other := Project(m, a.ID).Effect
	if other == nil {
		t.Fatal("the opponent still sees that an effect is pending")
	}
	if other.Kind != owner.Kind || other.OwnerID != b.ID || other.Min != 1 || other.Max != 1 {
		t.Fatalf("the opponent sees the effect metadata, got %+v", other)
	}
	if other.Candidates != nil || other.Selected != nil || other.Revealed != nil {
		t.Fatalf("the decision space belongs to the owner alone, got %+v", other)
	}

	full := ProjectFull(m).Effect
	if full == nil || len(full.Candidates) != len(owner.Candidates) {
		t.Fatal("the omniscient view includes the candidates")
	}
}

func TestDeckRevealIsOwnerOnly(t *testing.T) {
	m := newDuel(t)
	a, b := playerPair(m)
	endTurnOf(t, m, a.ID)
	endTurnOf(t, m, b.ID)

	readyDon(t, m, a, 1)
	event := giveHand(t, m, a, "STE-003")
	stackDeckTop(t, m, a, "STC-003", "STC-008", "STE-001", "STS-001")
	apply(t, m, NewAction(ActionPlayCard, a.ID, map[string]string{
		"card_id": event.ID.String(),
	}))
	if m.Phase() != rules.PhaseDeckReveal {
		t.Fatalf("expected the reveal interrupt, got %s", m.Phase())
	}

	owner := Project(m, a.ID).Effect
	if owner == nil || len(owner.Revealed) != 4 {
		t.Fatalf("the owner sees the revealed cards, got %+v", owner)
	}
	for _, card := range owner.Revealed {
		if card.DefID == "" {
			t.Fatalf("revealed cards project face up, got %+v", card)
		}
	}

	opp := Project(m, b.ID).Effect
	if opp == nil {
		t.Fatal("the opponent sees the pending reveal exists")
	}
	if len(opp.Revealed) != 0 || len(opp.Candidates) != 0 {
		t.Fatalf("a deck reveal shows the opponent nothing, got %+v", opp)
	}
}
