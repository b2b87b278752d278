package game

import (
	"fmt"
	"math/rand"
	"time"

	"github.com/google/uuid"

	"github.com/optcgsim/duel-server-go/internal/catalog"
	"github.com/optcgsim/duel-server-go/internal/game/rules"
)

const (
	openingHandSize = 5
	donPerPlayer    = 10

	// donDefID marks DON instances, which have no catalog entry.
	donDefID = "DON"
)

// Seat pairs a player identity with the decklist they brought.
type Seat struct {
	PlayerID string
	Name     string
	Decklist catalog.Decklist
}

// MatchOption adjusts match construction.
type MatchOption func(*MatchState)

// WithSeed fixes the match RNG, making shuffles and the turn-order
// chooser deterministic.
func WithSeed(seed int64) MatchOption {
	return func(m *MatchState) {
		m.seed = seed
	}
}

// NewMatchState validates both decklists, builds each player's arena, and
// positions the match at turn-order determination.
func NewMatchState(id string, cat *catalog.Catalog, seats [2]Seat, opts ...MatchOption) (*MatchState, error) {
	if seats[0].PlayerID == seats[1].PlayerID {
		return nil, fmt.Errorf("both seats belong to %s", seats[0].PlayerID)
	}
	m := &MatchState{
		ID:        id,
		Machine:   rules.NewMachine(),
		Players:   make(map[string]*PlayerState, 2),
		Pending:   NewPendingSet(),
		CreatedAt: time.Now().UTC(),
		catalog:   cat,
		bus:       rules.NewEventBus(),
		seed:      time.Now().UnixNano(),
	}
	for _, opt := range opts {
		opt(m)
	}
	m.rng = rand.New(rand.NewSource(m.seed))

	for i, seat := range seats {
		if err := cat.ValidateDecklist(seat.Decklist); err != nil {
			return nil, fmt.Errorf("seat %s: %w", seat.PlayerID, err)
		}
		if err := validateDeckEffects(cat, seat.Decklist); err != nil {
			return nil, fmt.Errorf("seat %s: %w", seat.PlayerID, err)
		}
		p := m.buildPlayer(seat)
		m.Players[seat.PlayerID] = p
		m.Seats[i] = seat.PlayerID
		m.shuffleDeck(p)
	}
	m.Chooser = m.Seats[m.rng.Intn(2)]
	return m, nil
}

// newInstanceID mints a card instance id from the match RNG, so a replay
// with the same seed rebuilds the same arena ids.
func (m *MatchState) newInstanceID() uuid.UUID {
	id, err := uuid.NewRandomFromReader(m.rng)
	if err != nil {
		return uuid.New()
	}
	return id
}

// validateDeckEffects rejects decklists whose cards reference effect keys
// this engine does not implement.
func validateDeckEffects(cat *catalog.Catalog, list catalog.Decklist) error {
	check := func(defID string) error {
		def, ok := cat.Lookup(defID)
		if !ok {
			return fmt.Errorf("unknown card %s", defID)
		}
		for _, ab := range def.Abilities {
			if !HasEffectKey(ab.EffectKey) {
				return fmt.Errorf("card %s uses unimplemented effect %q", defID, ab.EffectKey)
			}
		}
		return nil
	}
	if err := check(list.Leader); err != nil {
		return err
	}
	for _, defID := range list.Cards {
		if err := check(defID); err != nil {
			return err
		}
	}
	return nil
}

func (m *MatchState) buildPlayer(seat Seat) *PlayerState {
	p := &PlayerState{
		ID:    seat.PlayerID,
		Name:  seat.Name,
		Cards: make(map[uuid.UUID]*CardInstance),
	}
	leader := &CardInstance{ID: m.newInstanceID(), DefID: seat.Decklist.Leader, OwnerID: seat.PlayerID, Zone: ZoneLeader, Revealed: true}
	p.Cards[leader.ID] = leader
	p.LeaderID = leader.ID
	for _, defID := range seat.Decklist.Cards {
		card := &CardInstance{ID: m.newInstanceID(), DefID: defID, OwnerID: seat.PlayerID, Zone: ZoneDeck}
		p.Cards[card.ID] = card
		p.Deck = append(p.Deck, card.ID)
	}
	for i := 0; i < donPerPlayer; i++ {
		don := &CardInstance{ID: m.newInstanceID(), DefID: donDefID, OwnerID: seat.PlayerID, Zone: ZoneDonDeck, IsDon: true}
		p.Cards[don.ID] = don
		p.DonDeck = append(p.DonDeck, don.ID)
	}
	return p
}

// chooseTurnOrder records the designated chooser's decision and opens
// pre-game setup.
func (m *MatchState) chooseTurnOrder(chooserID, firstID string) error {
	if chooserID != m.Chooser {
		return fmt.Errorf("turn order is not yours to choose")
	}
	if _, ok := m.Players[firstID]; !ok {
		return fmt.Errorf("unknown player %s", firstID)
	}
	m.First = firstID
	m.Active = firstID
	m.publish(rules.NewEvent(rules.EventTurnOrderChosen, firstID, "", chooserID))
	return m.Machine.Advance(rules.PhasePreGameSetup)
}

// confirmPreGame marks a player ready. Once both confirm, opening hands
// are drawn and the mulligan window opens.
func (m *MatchState) confirmPreGame(p *PlayerState) error {
	if p.PreGameDone {
		return fmt.Errorf("already confirmed")
	}
	p.PreGameDone = true
	for _, seat := range m.Seats {
		if !m.Players[seat].PreGameDone {
			return nil
		}
	}
	for _, seat := range m.Seats {
		if err := m.drawN(m.Players[seat], openingHandSize); err != nil {
			return err
		}
	}
	return m.Machine.Advance(rules.PhaseMulligan)
}

// mulligan takes or declines the one-time redraw. Once both players have
// decided, life is dealt and the first turn begins.
func (m *MatchState) mulligan(p *PlayerState, redraw bool) error {
	if p.MulliganDone {
		return fmt.Errorf("mulligan already decided")
	}
	if redraw {
		for _, id := range append([]uuid.UUID(nil), p.Hand...) {
			if err := m.moveCard(p, id, ZoneDeck); err != nil {
				return err
			}
		}
		m.shuffleDeck(p)
		if err := m.drawN(p, openingHandSize); err != nil {
			return err
		}
		m.publish(rules.NewEvent(rules.EventMulliganTaken, "", "", p.ID))
	} else {
		m.publish(rules.NewEvent(rules.EventHandKept, "", "", p.ID))
	}
	p.MulliganDone = true

	for _, seat := range m.Seats {
		if !m.Players[seat].MulliganDone {
			return nil
		}
	}
	for _, seat := range m.Seats {
		if err := m.dealLife(m.Players[seat]); err != nil {
			return err
		}
	}
	m.Turn = 1
	m.publish(rules.NewEvent(rules.EventMatchStarted, "", "", m.First))
	return m.beginTurn(m.First)
}

func (m *MatchState) drawN(p *PlayerState, n int) error {
	for i := 0; i < n; i++ {
		if _, ok := m.draw(p); !ok {
			m.publish(rules.NewEvent(rules.EventDeckOut, "", "", p.ID))
			m.declareWinner(m.Opponent(p.ID).ID, WinDeckOut)
			return nil
		}
	}
	return nil
}

// dealLife stacks the leader's life total face-down from the top of the
// deck. Life[0] is the next card taken on a leader hit.
func (m *MatchState) dealLife(p *PlayerState) error {
	def, ok := m.catalog.Lookup(p.Cards[p.LeaderID].DefID)
	if !ok {
		return fmt.Errorf("unknown leader %s", p.Cards[p.LeaderID].DefID)
	}
	for i := 0; i < def.Life; i++ {
		if len(p.Deck) == 0 {
			return fmt.Errorf("deck too small to deal life")
		}
		if err := m.moveCard(p, p.Deck[0], ZoneLife); err != nil {
			return err
		}
	}
	m.publish(rules.NewEventWithAmount(rules.EventLifeDealt, "", "", p.ID, def.Life))
	return nil
}

// beginTurn hands the turn to a player and auto-steps through refresh,
// draw, and DON gain until the main phase needs input.
func (m *MatchState) beginTurn(playerID string) error {
	m.Active = playerID
	m.publish(rules.NewEventWithAmount(rules.EventTurnBegan, "", "", playerID, m.Turn))
	if err := m.Machine.Advance(rules.PhaseRefresh); err != nil {
		return err
	}
	return m.runAutoPhases()
}

// runAutoPhases executes the decision-free phases. It stops at the first
// phase requiring player input, or when the match ends.
func (m *MatchState) runAutoPhases() error {
	for !m.Finished() {
		switch m.Phase() {
		case rules.PhaseRefresh:
			m.refreshSweep(m.Players[m.Active])
			if err := m.Machine.Advance(rules.PhaseDraw); err != nil {
				return err
			}
		case rules.PhaseDraw:
			// The first player skips the game's very first draw.
			if m.Turn > 1 {
				if _, ok := m.draw(m.Players[m.Active]); !ok {
					m.publish(rules.NewEvent(rules.EventDeckOut, "", "", m.Active))
					m.declareWinner(m.Opponent(m.Active).ID, WinDeckOut)
					return nil
				}
			}
			if err := m.Machine.Advance(rules.PhaseDonGain); err != nil {
				return err
			}
		case rules.PhaseDonGain:
			n := 2
			if m.Turn == 1 {
				n = 1
			}
			m.gainDon(m.Players[m.Active], n)
			if err := m.Machine.Advance(rules.PhaseMain); err != nil {
				return err
			}
		default:
			return nil
		}
	}
	return nil
}

// endTurn closes the active player's turn and begins the opponent's.
func (m *MatchState) endTurn() error {
	if err := m.Machine.Advance(rules.PhaseEnd); err != nil {
		return err
	}
	m.endTurnCleanup()
	m.publish(rules.NewEventWithAmount(rules.EventTurnEnded, "", "", m.Active, m.Turn))
	m.Turn++
	return m.beginTurn(m.Opponent(m.Active).ID)
}

// declareWinner ends the match. Later declarations are ignored; the first
// result stands.
func (m *MatchState) declareWinner(winnerID string, reason WinReason) {
	if m.Finished() {
		return
	}
	m.WinnerID = winnerID
	m.Reason = reason
	m.Machine.Terminate()
	evt := rules.NewEvent(rules.EventMatchEnded, "", "", winnerID)
	evt.Data = string(reason)
	m.publish(evt)
}

// surrender concedes the match to the opponent.
func (m *MatchState) surrender(p *PlayerState) error {
	if m.Finished() {
		return fmt.Errorf("match already over")
	}
	m.publish(rules.NewEvent(rules.EventSurrender, "", "", p.ID))
	m.declareWinner(m.Opponent(p.ID).ID, WinSurrender)
	return nil
}

// handleDisconnect forfeits the match for a player who dropped.
func (m *MatchState) handleDisconnect(playerID string) {
	if m.Finished() {
		return
	}
	if _, ok := m.Players[playerID]; !ok {
		return
	}
	m.publish(rules.NewEvent(rules.EventDisconnect, "", "", playerID))
	m.declareWinner(m.Opponent(playerID).ID, WinDisconnect)
}
