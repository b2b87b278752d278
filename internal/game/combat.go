package game

import (
	"fmt"

	"github.com/google/uuid"

	"github.com/optcgsim/duel-server-go/internal/catalog"
	"github.com/optcgsim/duel-server-go/internal/game/rules"
)

// combatDefender returns the player whose leader or character is targeted.
func (m *MatchState) combatDefender() *PlayerState {
	if m.Combat == nil {
		return nil
	}
	_, owner, ok := m.findInstance(m.Combat.TargetID)
	if !ok {
		return nil
	}
	return owner
}

// declareAttack validates an attack, snapshots the attacker's power, and
// opens the combat chain.
func (m *MatchState) declareAttack(attackerID, targetID uuid.UUID, kind TargetKind) error {
	if m.Combat != nil {
		return fmt.Errorf("an attack is already in progress")
	}
	if m.Turn == 1 {
		return fmt.Errorf("no attacks on the first turn of the game")
	}
	active := m.Players[m.Active]
	attacker, ok := active.Cards[attackerID]
	if !ok || (attacker.Zone != ZoneLeader && attacker.Zone != ZoneField) {
		return fmt.Errorf("attacker %s is not on your board", attackerID)
	}
	if attacker.Rested {
		return fmt.Errorf("attacker is rested")
	}
	if attacker.AttackedThisTurn {
		return fmt.Errorf("attacker already attacked this turn")
	}
	if attacker.Zone == ZoneField && attacker.PlayedTurn == m.Turn && !m.hasKeyword(attacker, catalog.KeywordRush) {
		return fmt.Errorf("character cannot attack the turn it was played")
	}

	opp := m.Opponent(m.Active)
	switch kind {
	case TargetLeader:
		if targetID != opp.LeaderID {
			return fmt.Errorf("%s is not the opposing leader", targetID)
		}
	case TargetCharacter:
		target, ok := opp.Cards[targetID]
		if !ok || target.Zone != ZoneField {
			return fmt.Errorf("%s is not an opposing character", targetID)
		}
		if !target.Rested {
			return fmt.Errorf("characters can only be attacked while rested")
		}
	default:
		return fmt.Errorf("unknown target kind %q", kind)
	}

	attacker.AttackedThisTurn = true
	m.Combat = &CurrentCombat{
		AttackerID:  attackerID,
		TargetID:    targetID,
		TargetKind:  kind,
		AttackPower: m.effectivePower(active, attackerID),
	}
	m.publish(rules.NewEventWithAmount(rules.EventAttackDeclared, targetID.String(), attackerID.String(), m.Active, m.Combat.AttackPower))

	if def, ok := m.Definition(attacker); ok {
		if ab, ok := def.AbilityAt(catalog.TimingOnAttack); ok {
			if err := m.fireAbility(active, attacker, ab); err != nil {
				return err
			}
		}
	}
	if !m.Pending.Empty(KindOnAttack) {
		return m.Machine.Advance(rules.PhaseAttackEffect)
	}
	return m.enterBlockerStep(rules.PhaseMain)
}

// enterBlockerStep advances into the blocker window, passing straight
// through it when the attacker is unblockable.
func (m *MatchState) enterBlockerStep(from rules.Phase) error {
	if err := m.Machine.Advance(rules.PhaseBlocker); err != nil {
		return err
	}
	attacker, _, ok := m.findInstance(m.Combat.AttackerID)
	if ok && m.hasKeyword(attacker, catalog.KeywordUnblockable) {
		return m.Machine.Advance(rules.PhaseCounter)
	}
	return nil
}

// onAttackEffectsDrained continues the chain once the attack-effect queue
// empties. Called by the action processor after each resolve/skip.
func (m *MatchState) onAttackEffectsDrained() error {
	return m.enterBlockerStep(rules.PhaseAttackEffect)
}

// selectBlocker redirects the attack to a blocker and rests it.
func (m *MatchState) selectBlocker(defender *PlayerState, blockerID uuid.UUID) error {
	if m.Combat == nil {
		return fmt.Errorf("no attack in progress")
	}
	blocker, ok := defender.Cards[blockerID]
	if !ok || blocker.Zone != ZoneField {
		return fmt.Errorf("%s is not one of your characters", blockerID)
	}
	if !m.hasKeyword(blocker, catalog.KeywordBlocker) {
		return fmt.Errorf("%s has no blocker keyword", blockerID)
	}
	if blocker.Rested {
		return fmt.Errorf("blocker is rested")
	}

	blocker.Rested = true
	m.Combat.TargetID = blockerID
	m.Combat.TargetKind = TargetCharacter
	m.Combat.Blocked = true
	m.publish(rules.NewEvent(rules.EventBlockerDeclared, blockerID.String(), m.Combat.AttackerID.String(), defender.ID))
	return m.Machine.Advance(rules.PhaseCounter)
}

// useCounter plays one counter card from the defender's hand: characters
// with a printed counter value add it for free, counter events pay their
// DON cost and queue their effect for the counter-effect step.
func (m *MatchState) useCounter(defender *PlayerState, cardID uuid.UUID) error {
	if m.Combat == nil {
		return fmt.Errorf("no attack in progress")
	}
	card, ok := defender.Cards[cardID]
	if !ok || card.Zone != ZoneHand {
		return fmt.Errorf("%s is not in your hand", cardID)
	}
	def, ok := m.Definition(card)
	if !ok {
		return fmt.Errorf("unknown card definition %s", card.DefID)
	}

	switch {
	case def.Category == catalog.CategoryCharacter && def.Counter > 0:
		if err := m.moveCard(defender, cardID, ZoneTrash); err != nil {
			return err
		}
		m.Combat.CounterPower += def.Counter
		m.publish(rules.NewEventWithAmount(rules.EventCounterPlayed, m.Combat.TargetID.String(), cardID.String(), defender.ID, def.Counter))
		return nil

	case def.Category == catalog.CategoryEvent:
		ab, ok := def.AbilityAt(catalog.TimingEventCounter)
		if !ok {
			return fmt.Errorf("%s is not a counter event", def.ID)
		}
		if len(defender.activeDon()) < def.Cost {
			return fmt.Errorf("cost %d exceeds your active DON", def.Cost)
		}
		if err := m.payCost(defender, def.Cost); err != nil {
			return err
		}
		if err := m.moveCard(defender, cardID, ZoneTrash); err != nil {
			return err
		}
		m.publish(rules.NewEventWithAmount(rules.EventCounterPlayed, m.Combat.TargetID.String(), cardID.String(), defender.ID, 0))
		return m.fireAbility(defender, card, ab)

	default:
		return fmt.Errorf("%s cannot be used as a counter", def.ID)
	}
}

// passCounter closes the counter window. When no counter-event effects
// queued, the chain proceeds straight to resolution.
func (m *MatchState) passCounter() error {
	if err := m.Machine.Advance(rules.PhaseCounterEffect); err != nil {
		return err
	}
	if m.Pending.Empty(KindEventCounter) {
		return m.resolveCombat()
	}
	return nil
}

// onCounterEffectsDrained resolves combat once queued counter events finish.
func (m *MatchState) onCounterEffectsDrained() error {
	return m.resolveCombat()
}

// resolveCombat compares the attack snapshot against the defender total
// and applies the outcome. The attacker wins ties.
func (m *MatchState) resolveCombat() error {
	combat := m.Combat
	if combat == nil {
		return fmt.Errorf("no attack in progress")
	}
	target, targetOwner, ok := m.findInstance(combat.TargetID)
	if !ok || (target.Zone != ZoneLeader && target.Zone != ZoneField) {
		// The target left the board mid-chain; the attack spends itself
		// with no outcome.
		m.finishCombat()
		return m.Machine.Advance(rules.PhaseMain)
	}

	defenderTotal := combat.DefenseTotal(m.effectivePower(targetOwner, combat.TargetID))
	hit := combat.AttackPower >= defenderTotal
	m.publish(rules.NewEventWithFlag(rules.EventAttackResolved, combat.TargetID.String(), combat.AttackerID.String(), m.Active, hit))

	if !hit {
		m.finishCombat()
		return m.Machine.Advance(rules.PhaseMain)
	}

	if combat.TargetKind == TargetCharacter {
		if err := m.knockout(targetOwner, combat.TargetID); err != nil {
			return err
		}
		// Knockouts deal no life damage, so the trigger step never opens.
		m.finishCombat()
		return m.Machine.Advance(rules.PhaseMain)
	}

	// Leader hit. Life depletion plus one more landed hit loses the match.
	if len(targetOwner.Life) == 0 {
		m.finishCombat()
		m.declareWinner(m.Active, WinNormal)
		return nil
	}
	lifeCard := targetOwner.Cards[targetOwner.Life[0]]
	if err := m.moveCard(targetOwner, lifeCard.ID, ZoneHand); err != nil {
		return err
	}
	lifeCard.Revealed = true
	m.publish(rules.NewEvent(rules.EventLeaderHit, targetOwner.LeaderID.String(), combat.AttackerID.String(), m.Active))

	if def, ok := m.Definition(lifeCard); ok && def.HasTrigger() {
		m.TriggerCardID = lifeCard.ID
		m.publish(rules.NewEvent(rules.EventTriggerRevealed, lifeCard.ID.String(), "", targetOwner.ID))
		return m.Machine.Advance(rules.PhaseTrigger)
	}
	m.finishCombat()
	return m.Machine.Advance(rules.PhaseMain)
}

// activateTrigger fires the revealed life card's trigger ability.
func (m *MatchState) activateTrigger(defender *PlayerState) error {
	if m.TriggerCardID == uuid.Nil {
		return fmt.Errorf("no trigger to activate")
	}
	card, ok := defender.Cards[m.TriggerCardID]
	if !ok {
		return fmt.Errorf("trigger card is not yours")
	}
	def, ok := m.Definition(card)
	if !ok {
		return fmt.Errorf("unknown card definition %s", card.DefID)
	}
	ab, ok := def.AbilityAt(catalog.TimingTrigger)
	if !ok {
		return fmt.Errorf("%s has no trigger ability", def.ID)
	}
	if err := m.fireAbility(defender, card, ab); err != nil {
		return err
	}
	return m.finishTrigger()
}

// declineTrigger keeps the life card in hand without firing its ability.
func (m *MatchState) declineTrigger() error {
	if m.TriggerCardID == uuid.Nil {
		return fmt.Errorf("no trigger to decline")
	}
	return m.finishTrigger()
}

func (m *MatchState) finishTrigger() error {
	m.TriggerCardID = uuid.Nil
	if m.Finished() {
		return nil
	}
	// A trigger may have opened an interrupt; the chain continues once it
	// unwinds back to the trigger phase.
	if m.Phase() != rules.PhaseTrigger {
		return nil
	}
	m.finishCombat()
	return m.Machine.Advance(rules.PhaseMain)
}

// finishCombat rests the attacker, expires battle-scoped modifiers, and
// clears the combat record. A double-attack keyword leaves the attacker
// standing after a landed hit.
func (m *MatchState) finishCombat() {
	combat := m.Combat
	if combat == nil {
		return
	}
	if attacker, owner, ok := m.findInstance(combat.AttackerID); ok {
		if (attacker.Zone == ZoneLeader || attacker.Zone == ZoneField) && !m.hasKeyword(attacker, catalog.KeywordDoubleAttack) {
			attacker.Rested = true
			m.publish(rules.NewEvent(rules.EventCardRested, attacker.ID.String(), "", owner.ID))
		}
	}
	for _, seat := range m.Seats {
		for _, card := range m.Players[seat].Cards {
			expireBuffs(card, ExpiryBattle)
		}
	}
	m.Combat = nil
}
