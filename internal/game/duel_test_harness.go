package game

import (
	"testing"

	"github.com/google/uuid"

	"github.com/optcgsim/duel-server-go/internal/catalog"
	"github.com/optcgsim/duel-server-go/internal/game/rules"
)

// Test harness for duel scenarios. Builds matches from the starter set,
// walks them through setup, and rigs boards for specific situations.

const (
	testPlayerA = "p1"
	testPlayerB = "p2"
	testSeed    = 42
)

func testCatalog(t *testing.T) *catalog.Catalog {
	t.Helper()
	return catalog.NewWithStarterSet()
}

func testSeats() [2]Seat {
	return [2]Seat{
		{PlayerID: testPlayerA, Name: "Alice", Decklist: catalog.StarterDecklist(catalog.StarterLeaderCrimson)},
		{PlayerID: testPlayerB, Name: "Bob", Decklist: catalog.StarterDecklist(catalog.StarterLeaderAzure)},
	}
}

// newPendingDuel builds a match still waiting on turn-order choice.
func newPendingDuel(t *testing.T) *MatchState {
	t.Helper()
	m, err := NewMatchState("duel-1", testCatalog(t), testSeats(), WithSeed(testSeed))
	if err != nil {
		t.Fatalf("failed to create match: %v", err)
	}
	return m
}

// newDuel walks a fresh match through setup: p1 goes first, both players
// keep their hands. It returns at turn 1, main phase, p1 active.
func newDuel(t *testing.T) *MatchState {
	t.Helper()
	m := newPendingDuel(t)
	apply(t, m, NewAction(ActionChooseTurnOrder, m.Chooser, map[string]string{"first_player_id": testPlayerA}))
	apply(t, m, NewAction(ActionSkipPreGame, testPlayerA, nil))
	apply(t, m, NewAction(ActionSkipPreGame, testPlayerB, nil))
	apply(t, m, NewAction(ActionKeepHand, testPlayerA, nil))
	apply(t, m, NewAction(ActionKeepHand, testPlayerB, nil))
	if m.Phase() != rules.PhaseMain {
		t.Fatalf("setup should end at %s, got %s", rules.PhaseMain, m.Phase())
	}
	return m
}

// apply submits an action that must succeed.
func apply(t *testing.T, m *MatchState, a *Action) {
	t.Helper()
	if err := m.Apply(a); err != nil {
		t.Fatalf("action %s by %s rejected: %v", a.Type, a.PlayerID, err)
	}
}

// reject submits an action that must fail, returning the error.
func reject(t *testing.T, m *MatchState, a *Action) error {
	t.Helper()
	err := m.Apply(a)
	if err == nil {
		t.Fatalf("action %s by %s should have been rejected", a.Type, a.PlayerID)
	}
	return err
}

// endTurnOf closes the active player's main phase.
func endTurnOf(t *testing.T, m *MatchState, playerID string) {
	t.Helper()
	apply(t, m, NewAction(ActionEndTurn, playerID, nil))
}

// deployFromDeck places a copy of a card straight onto the field, past
// its summoning sickness, without paying costs. Scenario setup only.
func deployFromDeck(t *testing.T, m *MatchState, p *PlayerState, defID string) *CardInstance {
	t.Helper()
	card := pullFromDeck(t, m, p, defID)
	if err := m.moveCard(p, card.ID, ZoneField); err != nil {
		t.Fatalf("failed to deploy %s: %v", defID, err)
	}
	card.PlayedTurn = 0
	return card
}

// giveHand moves a copy of a card from the deck into the player's hand.
func giveHand(t *testing.T, m *MatchState, p *PlayerState, defID string) *CardInstance {
	t.Helper()
	card := pullFromDeck(t, m, p, defID)
	if err := m.moveCard(p, card.ID, ZoneHand); err != nil {
		t.Fatalf("failed to give %s to hand: %v", defID, err)
	}
	return card
}

// pullFromDeck finds an unused copy of a card for scenario setup. The deck
// is searched first; the hand covers a shuffle that put every copy into the
// opening draw. Life is left alone so life-count assertions stay honest.
func pullFromDeck(t *testing.T, m *MatchState, p *PlayerState, defID string) *CardInstance {
	t.Helper()
	for _, pile := range [][]uuid.UUID{p.Deck, p.Hand} {
		for _, id := range pile {
			if p.Cards[id].DefID == defID {
				return p.Cards[id]
			}
		}
	}
	t.Fatalf("no free copy of %s in %s's deck or hand", defID, p.ID)
	return nil
}

// stackLifeTop forces a specific card to be the next life card taken. A
// copy already dealt into life is reordered in place.
func stackLifeTop(t *testing.T, m *MatchState, p *PlayerState, defID string) *CardInstance {
	t.Helper()
	var card *CardInstance
	for _, id := range p.Life {
		if p.Cards[id].DefID == defID {
			card = p.Cards[id]
			break
		}
	}
	if card == nil {
		card = pullFromDeck(t, m, p, defID)
		if err := m.moveCard(p, card.ID, ZoneLife); err != nil {
			t.Fatalf("failed to stack life: %v", err)
		}
	}
	p.Life = removeID(p.Life, card.ID)
	p.Life = append([]uuid.UUID{card.ID}, p.Life...)
	return card
}

// stackDeckTop reorders the deck so the named cards sit on top in the
// given order. Copies outside the deck are moved back in first.
func stackDeckTop(t *testing.T, m *MatchState, p *PlayerState, defIDs ...string) []*CardInstance {
	t.Helper()
	used := make(map[uuid.UUID]bool, len(defIDs))
	cards := make([]*CardInstance, 0, len(defIDs))
	for _, defID := range defIDs {
		var card *CardInstance
		for _, pile := range [][]uuid.UUID{p.Deck, p.Hand} {
			for _, id := range pile {
				if !used[id] && p.Cards[id].DefID == defID {
					card = p.Cards[id]
					break
				}
			}
			if card != nil {
				break
			}
		}
		if card == nil {
			t.Fatalf("no free copy of %s for deck stacking", defID)
		}
		used[card.ID] = true
		if card.Zone != ZoneDeck {
			if err := m.moveCard(p, card.ID, ZoneDeck); err != nil {
				t.Fatalf("failed to return %s to the deck: %v", defID, err)
			}
		}
		cards = append(cards, card)
	}
	rest := make([]uuid.UUID, 0, len(p.Deck))
	for _, id := range p.Deck {
		if !used[id] {
			rest = append(rest, id)
		}
	}
	top := make([]uuid.UUID, 0, len(cards))
	for _, card := range cards {
		top = append(top, card.ID)
	}
	p.Deck = append(top, rest...)
	return cards
}

// readyDon fills the player's cost area with n active DON.
func readyDon(t *testing.T, m *MatchState, p *PlayerState, n int) {
	t.Helper()
	have := len(p.DonField)
	if have < n {
		m.gainDon(p, n-have)
	}
	for _, id := range p.DonField {
		p.Cards[id].Rested = false
	}
	if len(p.DonField) < n {
		t.Fatalf("wanted %d DON, cost area holds %d", n, len(p.DonField))
	}
}

// declareLeaderAttack opens an attack from one leader on the other.
func declareLeaderAttack(t *testing.T, m *MatchState, attacker, defender *PlayerState) {
	t.Helper()
	apply(t, m, NewAction(ActionDeclareAttack, attacker.ID, map[string]string{
		"card_id":     attacker.LeaderID.String(),
		"target_id":   defender.LeaderID.String(),
		"target_kind": string(TargetLeader),
	}))
}

// passBlockerWindow declines the block, leaving the counter window open.
func passBlockerWindow(t *testing.T, m *MatchState, defender *PlayerState) {
	t.Helper()
	apply(t, m, NewAction(ActionPassPriority, defender.ID, nil))
}

// passDefense declines blocker and counter, letting the attack resolve.
func passDefense(t *testing.T, m *MatchState, defender *PlayerState) {
	t.Helper()
	if m.Phase() == rules.PhaseBlocker {
		apply(t, m, NewAction(ActionPassPriority, defender.ID, nil))
	}
	if m.Phase() == rules.PhaseCounter {
		apply(t, m, NewAction(ActionPassCounter, defender.ID, nil))
	}
}

func playerPair(m *MatchState) (*PlayerState, *PlayerState) {
	return m.Players[testPlayerA], m.Players[testPlayerB]
}

func cardIDString(id uuid.UUID) string {
	return id.String()
}
