package game

import (
	"fmt"

	"github.com/google/uuid"

	"github.com/optcgsim/duel-server-go/internal/catalog"
	"github.com/optcgsim/duel-server-go/internal/game/rules"
)

// donPowerBonus is the power every attached DON grants its host.
const donPowerBonus = 1000

// maxFieldSize is the number of character slots on one side.
const maxFieldSize = 5

// maxDonField is the DON cap per player.
const maxDonField = 10

func removeID(ids []uuid.UUID, id uuid.UUID) []uuid.UUID {
	for i, candidate := range ids {
		if candidate == id {
			return append(ids[:i], ids[i+1:]...)
		}
	}
	return ids
}

func containsID(ids []uuid.UUID, id uuid.UUID) bool {
	for _, candidate := range ids {
		if candidate == id {
			return true
		}
	}
	return false
}

// zoneSlice returns a pointer to the ordered id slice backing a zone.
// Leader and stage are single-slot zones handled by the caller.
func (p *PlayerState) zoneSlice(z Zone) (*[]uuid.UUID, bool) {
	switch z {
	case ZoneDeck:
		return &p.Deck, true
	case ZoneHand:
		return &p.Hand, true
	case ZoneField:
		return &p.Field, true
	case ZoneLife:
		return &p.Life, true
	case ZoneTrash:
		return &p.Trash, true
	case ZoneDonDeck:
		return &p.DonDeck, true
	case ZoneDonField:
		return &p.DonField, true
	}
	return nil, false
}

// moveCard relocates an instance to the back of another zone. It is the
// single mutation point for zone membership: reveal state and attachment
// are normalized here so the conservation invariant cannot be broken by
// a caller forgetting a field.
func (m *MatchState) moveCard(p *PlayerState, id uuid.UUID, to Zone) error {
	card, ok := p.Cards[id]
	if !ok {
		return fmt.Errorf("card %s not in %s's arena", id, p.ID)
	}
	from := card.Zone
	if from == to {
		return nil
	}

	switch from {
	case ZoneLeader:
		return fmt.Errorf("leader %s cannot leave its zone", id)
	case ZoneStage:
		p.StageID = uuid.Nil
	default:
		slice, ok := p.zoneSlice(from)
		if !ok {
			return fmt.Errorf("card %s in unmovable zone %s", id, from)
		}
		*slice = removeID(*slice, id)
	}

	switch to {
	case ZoneStage:
		if p.StageID != uuid.Nil {
			return fmt.Errorf("stage slot occupied")
		}
		p.StageID = id
	case ZoneLeader:
		return fmt.Errorf("cannot move %s into the leader zone", id)
	default:
		slice, ok := p.zoneSlice(to)
		if !ok {
			return fmt.Errorf("unmovable destination zone %s", to)
		}
		*slice = append(*slice, id)
	}

	card.Zone = to
	card.AttachedTo = uuid.Nil
	if to == ZoneTrash || to == ZoneField || to == ZoneStage {
		card.Revealed = true
	}
	// Returning to a hidden ordered pile conceals the card again.
	if to == ZoneDeck || to == ZoneLife || to == ZoneDonDeck {
		card.Revealed = false
		card.Rested = false
	}
	if from == ZoneField {
		m.detachDonFrom(p, id)
		card.Buffs = nil
		card.TempKeywords = nil
		card.PlayedTurn = 0
		card.AttackedThisTurn = false
		card.ActivatedThisTurn = false
		card.Rested = false
	}

	m.publish(rules.NewEventWithAmount(rules.EventZoneChange, id.String(), "", p.ID, int(to)))
	return nil
}

// placeOnDeckBottom moves a card under the deck instead of on top.
func (m *MatchState) placeOnDeckBottom(p *PlayerState, id uuid.UUID) error {
	card, ok := p.Cards[id]
	if !ok {
		return fmt.Errorf("card %s not in %s's arena", id, p.ID)
	}
	// Revealed deck cards are still deck members; reorder in place.
	if card.Zone == ZoneDeck {
		p.Deck = removeID(p.Deck, id)
		p.Deck = append(p.Deck, id)
		card.Revealed = false
		return nil
	}
	return m.moveCard(p, id, ZoneDeck) // moveCard appends, and index 0 is the top
}

// draw moves the top deck card to hand. The false return is the deck-out
// signal; callers decide the loss, this function never ends the game.
func (m *MatchState) draw(p *PlayerState) (uuid.UUID, bool) {
	if len(p.Deck) == 0 {
		return uuid.Nil, false
	}
	top := p.Deck[0]
	p.Deck = p.Deck[1:]
	card := p.Cards[top]
	card.Zone = ZoneHand
	p.Hand = append(p.Hand, top)
	m.publish(rules.NewEvent(rules.EventCardDrawn, top.String(), "", p.ID))
	return top, true
}

// shuffleDeck randomizes deck order with the match RNG.
func (m *MatchState) shuffleDeck(p *PlayerState) {
	m.rng.Shuffle(len(p.Deck), func(i, j int) {
		p.Deck[i], p.Deck[j] = p.Deck[j], p.Deck[i]
	})
}

// hasKeyword checks printed, granted, and temporary keywords.
func (m *MatchState) hasKeyword(card *CardInstance, k catalog.Keyword) bool {
	for _, kw := range card.Keywords {
		if kw == k {
			return true
		}
	}
	for _, kw := range card.TempKeywords {
		if kw == k {
			return true
		}
	}
	if def, ok := m.Definition(card); ok {
		return def.HasKeyword(k)
	}
	return false
}

// grantTempKeyword adds a keyword until end of turn.
func grantTempKeyword(card *CardInstance, k catalog.Keyword) {
	card.TempKeywords = append(card.TempKeywords, k)
}

// addBuff appends a scoped power delta.
func addBuff(card *CardInstance, amount int, sourceID string, expiry BuffExpiry) {
	card.Buffs = append(card.Buffs, PowerBuff{Amount: amount, SourceID: sourceID, Expiry: expiry})
}

// expireBuffs drops buffs scoped at or tighter than the given expiry.
// Expiring the turn also expires battle-scoped buffs.
func expireBuffs(card *CardInstance, expiry BuffExpiry) {
	kept := card.Buffs[:0]
	for _, buff := range card.Buffs {
		if buff.Expiry < expiry {
			kept = append(kept, buff)
		}
	}
	if len(kept) == 0 {
		card.Buffs = nil
		return
	}
	card.Buffs = kept
}

// attachedDonCount counts DON attached to a host instance.
func (m *MatchState) attachedDonCount(p *PlayerState, hostID uuid.UUID) int {
	count := 0
	for _, id := range p.DonField {
		if p.Cards[id].AttachedTo == hostID {
			count++
		}
	}
	return count
}

// effectivePower is printed power plus buffs plus attached-DON bonus.
// Attached DON always count here; the sanitized view decides separately
// whether the bonus is displayed to a given viewer.
func (m *MatchState) effectivePower(p *PlayerState, id uuid.UUID) int {
	card, ok := p.Cards[id]
	if !ok {
		return 0
	}
	power := 0
	if def, ok := m.Definition(card); ok {
		power = def.Power
	}
	for _, buff := range card.Buffs {
		power += buff.Amount
	}
	if card.Zone == ZoneField || card.Zone == ZoneLeader {
		power += donPowerBonus * m.attachedDonCount(p, id)
	}
	return power
}

// activeDon returns ids of active unattached DON, the cost-paying pool.
func (p *PlayerState) activeDon() []uuid.UUID {
	var ids []uuid.UUID
	for _, id := range p.DonField {
		card := p.Cards[id]
		if !card.Rested && card.AttachedTo == uuid.Nil {
			ids = append(ids, id)
		}
	}
	return ids
}

// restedUnattachedDon returns ids of rested unattached DON.
func (p *PlayerState) restedUnattachedDon() []uuid.UUID {
	var ids []uuid.UUID
	for _, id := range p.DonField {
		card := p.Cards[id]
		if card.Rested && card.AttachedTo == uuid.Nil {
			ids = append(ids, id)
		}
	}
	return ids
}

// payCost rests n active unattached DON. Affordability must be checked by
// the caller; a short pool here is a programming error.
func (m *MatchState) payCost(p *PlayerState, n int) error {
	if n == 0 {
		return nil
	}
	pool := p.activeDon()
	if len(pool) < n {
		return fmt.Errorf("cost %d exceeds active DON %d", n, len(pool))
	}
	for _, id := range pool[:n] {
		p.Cards[id].Rested = true
	}
	m.publish(rules.NewEventWithAmount(rules.EventCostPaid, "", "", p.ID, n))
	return nil
}

// attachDon binds an unattached DON to a leader or fielded character.
func (m *MatchState) attachDon(p *PlayerState, donID, hostID uuid.UUID) error {
	don, ok := p.Cards[donID]
	if !ok || !don.IsDon || don.Zone != ZoneDonField {
		return fmt.Errorf("%s is not a DON in the cost area", donID)
	}
	if don.AttachedTo != uuid.Nil {
		return fmt.Errorf("DON %s is already attached", donID)
	}
	host, ok := p.Cards[hostID]
	if !ok || (host.Zone != ZoneLeader && host.Zone != ZoneField) {
		return fmt.Errorf("%s is not a leader or fielded character", hostID)
	}
	don.AttachedTo = hostID
	don.Revealed = true
	m.publish(rules.NewEvent(rules.EventDonAttached, hostID.String(), donID.String(), p.ID))
	return nil
}

// detachDonFrom releases every DON attached to a host back to the cost pool.
func (m *MatchState) detachDonFrom(p *PlayerState, hostID uuid.UUID) {
	for _, id := range p.DonField {
		card := p.Cards[id]
		if card.AttachedTo == hostID {
			card.AttachedTo = uuid.Nil
			m.publish(rules.NewEvent(rules.EventDonDetached, hostID.String(), id.String(), p.ID))
		}
	}
}

// gainDon moves up to n DON from the DON deck into the cost area, active.
func (m *MatchState) gainDon(p *PlayerState, n int) int {
	gained := 0
	for gained < n && len(p.DonDeck) > 0 && len(p.DonField) < maxDonField {
		id := p.DonDeck[0]
		p.DonDeck = p.DonDeck[1:]
		card := p.Cards[id]
		card.Zone = ZoneDonField
		card.Rested = false
		card.Revealed = true
		p.DonField = append(p.DonField, id)
		gained++
	}
	if gained > 0 {
		p.DonGainedThisTurn += gained
		m.publish(rules.NewEventWithAmount(rules.EventDonGained, "", "", p.ID, gained))
	}
	return gained
}

// refreshSweep sets all of the player's rested cards active and returns
// attached DON to the cost pool. Runs for the active player each Refresh.
func (m *MatchState) refreshSweep(p *PlayerState) {
	for _, id := range p.DonField {
		card := p.Cards[id]
		if card.AttachedTo != uuid.Nil {
			card.AttachedTo = uuid.Nil
			m.publish(rules.NewEvent(rules.EventDonDetached, "", id.String(), p.ID))
		}
		card.Rested = false
	}
	refresh := func(id uuid.UUID) {
		if id == uuid.Nil {
			return
		}
		card := p.Cards[id]
		if card.Rested {
			card.Rested = false
			m.publish(rules.NewEvent(rules.EventCardRefresh, id.String(), "", p.ID))
		}
	}
	refresh(p.LeaderID)
	refresh(p.StageID)
	for _, id := range p.Field {
		refresh(id)
	}
}

// endTurnCleanup expires turn-scoped modifiers and per-turn flags for both
// players.
func (m *MatchState) endTurnCleanup() {
	for _, seat := range m.Seats {
		p := m.Players[seat]
		for _, card := range p.Cards {
			expireBuffs(card, ExpiryTurn)
			card.TempKeywords = nil
			card.AttackedThisTurn = false
			card.ActivatedThisTurn = false
		}
		p.DonGainedThisTurn = 0
		p.CardsPlayedThisTurn = 0
	}
}

// knockout moves a fielded character to the trash.
func (m *MatchState) knockout(p *PlayerState, id uuid.UUID) error {
	card, ok := p.Cards[id]
	if !ok || card.Zone != ZoneField {
		return fmt.Errorf("%s is not a fielded character", id)
	}
	if err := m.moveCard(p, id, ZoneTrash); err != nil {
		return err
	}
	m.publish(rules.NewEvent(rules.EventKnockout, id.String(), "", p.ID))
	return nil
}

// zoneCount sums every zone of one player, attached DON included.
func (p *PlayerState) zoneCount() int {
	count := len(p.Deck) + len(p.Hand) + len(p.Field) + len(p.Life) +
		len(p.Trash) + len(p.DonDeck) + len(p.DonField)
	if p.LeaderID != uuid.Nil {
		count++
	}
	if p.StageID != uuid.Nil {
		count++
	}
	return count
}
