package game

import (
	"fmt"

	"github.com/google/uuid"

	"github.com/optcgsim/duel-server-go/internal/catalog"
)

// effectBuilder computes an ability's candidate set and binds its apply
// closure at the moment the ability fires. The pending-effect protocol
// stays generic; everything effect-specific lives behind this seam.
type effectBuilder func(m *MatchState, owner *PlayerState, source *CardInstance, ab catalog.Ability) (*PendingEffect, error)

var effectRegistry = map[string]effectBuilder{
	"rally":         buildRally,
	"weaken":        buildWeaken,
	"ko_under_cost": buildKnockoutUnderCost,
	"draw":          buildDraw,
	"refresh_don":   buildRefreshDon,
	"deck_recruit":  buildDeckRecruit,
	"discard_draw":  buildDiscardDraw,
}

// HasEffectKey reports whether an effect key is implemented. Deck
// validation at match creation rejects unknown keys up front.
func HasEffectKey(key string) bool {
	_, ok := effectRegistry[key]
	return ok
}

func kindForTiming(t catalog.AbilityTiming) EffectKind {
	switch t {
	case catalog.TimingOnAttack:
		return KindOnAttack
	case catalog.TimingOnPlay:
		return KindOnPlay
	case catalog.TimingActivateMain:
		return KindActivateMain
	case catalog.TimingEventCounter:
		return KindEventCounter
	default:
		return KindEventMain
	}
}

// fireAbility builds and enqueues the pending effect for one ability.
func (m *MatchState) fireAbility(owner *PlayerState, source *CardInstance, ab catalog.Ability) error {
	builder, ok := effectRegistry[ab.EffectKey]
	if !ok {
		return fmt.Errorf("unknown effect key %q on %s", ab.EffectKey, source.DefID)
	}
	eff, err := builder(m, owner, source, ab)
	if err != nil {
		return err
	}
	return m.enqueueEffect(eff)
}

func (m *MatchState) ownFieldAndLeader(p *PlayerState) []uuid.UUID {
	ids := []uuid.UUID{p.LeaderID}
	ids = append(ids, p.Field...)
	return ids
}

// rally: selected friendly units gain power. Battle-scoped from the
// counter window, turn-scoped elsewhere. A buff aimed at the combat
// target accumulates on the combat record instead of the instance so
// resolution never counts it twice; a buff landing on the attacker
// refreshes the declared snapshot.
func buildRally(m *MatchState, owner *PlayerState, source *CardInstance, ab catalog.Ability) (*PendingEffect, error) {
	amount := ab.Params["amount"]
	count := ab.Params["count"]
	if count == 0 {
		count = 1
	}
	expiry := ExpiryTurn
	if ab.Timing == catalog.TimingEventCounter {
		expiry = ExpiryBattle
	}
	return &PendingEffect{
		Kind:          kindForTiming(ab.Timing),
		OwnerID:       owner.ID,
		SourceID:      source.ID,
		Description:   ab.Description,
		Candidates:    m.ownFieldAndLeader(owner),
		Min:           0,
		Max:           count,
		ConditionsMet: true,
		apply: func(m *MatchState, eff *PendingEffect) error {
			for _, id := range eff.Selected {
				if m.Combat != nil && id == m.Combat.TargetID {
					m.Combat.EffectBuff += amount
					continue
				}
				card, holder, ok := m.findInstance(id)
				if !ok || (card.Zone != ZoneField && card.Zone != ZoneLeader) {
					continue
				}
				addBuff(card, amount, source.DefID, expiry)
				if m.Combat != nil && id == m.Combat.AttackerID {
					m.Combat.AttackPower = m.effectivePower(holder, id)
				}
			}
			return nil
		},
	}, nil
}

// weaken: selected enemy characters lose power this turn.
func buildWeaken(m *MatchState, owner *PlayerState, source *CardInstance, ab catalog.Ability) (*PendingEffect, error) {
	amount := ab.Params["amount"]
	count := ab.Params["count"]
	if count == 0 {
		count = 1
	}
	opp := m.Opponent(owner.ID)
	return &PendingEffect{
		Kind:          kindForTiming(ab.Timing),
		OwnerID:       owner.ID,
		SourceID:      source.ID,
		Description:   ab.Description,
		Candidates:    append([]uuid.UUID(nil), opp.Field...),
		Min:           0,
		Max:           count,
		ConditionsMet: true,
		apply: func(m *MatchState, eff *PendingEffect) error {
			for _, id := range eff.Selected {
				card, _, ok := m.findInstance(id)
				if !ok || card.Zone != ZoneField {
					continue
				}
				addBuff(card, -amount, source.DefID, ExpiryTurn)
			}
			return nil
		},
	}, nil
}

// ko_under_cost: knock out selected enemy characters under a cost ceiling.
func buildKnockoutUnderCost(m *MatchState, owner *PlayerState, source *CardInstance, ab catalog.Ability) (*PendingEffect, error) {
	maxCost := ab.Params["max_cost"]
	count := ab.Params["count"]
	if count == 0 {
		count = 1
	}
	opp := m.Opponent(owner.ID)
	var candidates []uuid.UUID
	for _, id := range opp.Field {
		if def, ok := m.Definition(opp.Cards[id]); ok && def.Cost <= maxCost {
			candidates = append(candidates, id)
		}
	}
	return &PendingEffect{
		Kind:          kindForTiming(ab.Timing),
		OwnerID:       owner.ID,
		SourceID:      source.ID,
		Description:   ab.Description,
		Candidates:    candidates,
		Min:           0,
		Max:           count,
		ConditionsMet: true,
		apply: func(m *MatchState, eff *PendingEffect) error {
			for _, id := range eff.Selected {
				card, holder, ok := m.findInstance(id)
				if !ok || card.Zone != ZoneField {
					continue
				}
				if err := m.knockout(holder, id); err != nil {
					return err
				}
			}
			return nil
		},
	}, nil
}

// draw: decisionless card draw; an empty deck mid-draw loses the match.
func buildDraw(m *MatchState, owner *PlayerState, source *CardInstance, ab catalog.Ability) (*PendingEffect, error) {
	count := ab.Params["count"]
	if count == 0 {
		count = 1
	}
	return &PendingEffect{
		Kind:          kindForTiming(ab.Timing),
		OwnerID:       owner.ID,
		SourceID:      source.ID,
		Description:   ab.Description,
		ConditionsMet: true,
		apply: func(m *MatchState, eff *PendingEffect) error {
			p := m.Players[eff.OwnerID]
			for i := 0; i < count; i++ {
				if _, ok := m.draw(p); !ok {
					m.declareWinner(m.Opponent(p.ID).ID, WinDeckOut)
					return nil
				}
			}
			return nil
		},
	}, nil
}

// refresh_don: set selected rested DON active again.
func buildRefreshDon(m *MatchState, owner *PlayerState, source *CardInstance, ab catalog.Ability) (*PendingEffect, error) {
	count := ab.Params["count"]
	if count == 0 {
		count = 1
	}
	return &PendingEffect{
		Kind:          kindForTiming(ab.Timing),
		OwnerID:       owner.ID,
		SourceID:      source.ID,
		Description:   ab.Description,
		Candidates:    owner.restedUnattachedDon(),
		Min:           0,
		Max:           count,
		ConditionsMet: true,
		apply: func(m *MatchState, eff *PendingEffect) error {
			p := m.Players[eff.OwnerID]
			for _, id := range eff.Selected {
				if card, ok := p.Cards[id]; ok && card.IsDon && card.Zone == ZoneDonField {
					card.Rested = false
				}
			}
			return nil
		},
	}, nil
}

// deck_recruit: reveal the top of the deck publicly, take up to count
// matching characters to hand, and dispose of the remainder by policy.
func buildDeckRecruit(m *MatchState, owner *PlayerState, source *CardInstance, ab catalog.Ability) (*PendingEffect, error) {
	reveal := ab.Params["reveal"]
	maxCost := ab.Params["max_cost"]
	count := ab.Params["count"]
	if count == 0 {
		count = 1
	}
	if reveal > len(owner.Deck) {
		reveal = len(owner.Deck)
	}
	revealed := append([]uuid.UUID(nil), owner.Deck[:reveal]...)
	var candidates []uuid.UUID
	for _, id := range revealed {
		card := owner.Cards[id]
		card.Revealed = true
		if def, ok := m.Definition(card); ok &&
			def.Category == catalog.CategoryCharacter && def.Cost <= maxCost {
			candidates = append(candidates, id)
		}
	}
	return &PendingEffect{
		Kind:          KindDeckReveal,
		OwnerID:       owner.ID,
		SourceID:      source.ID,
		Description:   ab.Description,
		Candidates:    candidates,
		Min:           0,
		Max:           count,
		ConditionsMet: len(revealed) > 0,
		Revealed:      revealed,
		Remainder:     RemainderDeckBottom,
		apply: func(m *MatchState, eff *PendingEffect) error {
			p := m.Players[eff.OwnerID]
			for _, id := range eff.Selected {
				if err := m.moveCard(p, id, ZoneHand); err != nil {
					return err
				}
			}
			for _, id := range eff.Revealed {
				if containsID(eff.Selected, id) {
					continue
				}
				switch eff.Remainder {
				case RemainderTrash:
					if err := m.moveCard(p, id, ZoneTrash); err != nil {
						return err
					}
				case RemainderShuffleIn:
					p.Cards[id].Revealed = false
				default:
					if err := m.placeOnDeckBottom(p, id); err != nil {
						return err
					}
				}
			}
			if eff.Remainder == RemainderShuffleIn {
				m.shuffleDeck(p)
			}
			return nil
		},
	}, nil
}

// discard_draw: an optional discard cost that pays into a draw. Confirming
// the cost queues the hand selection; declining skips the whole ability.
func buildDiscardDraw(m *MatchState, owner *PlayerState, source *CardInstance, ab catalog.Ability) (*PendingEffect, error) {
	discard := ab.Params["discard"]
	if discard == 0 {
		discard = 1
	}
	drawCount := ab.Params["draw"]
	if drawCount == 0 {
		drawCount = 1
	}
	return &PendingEffect{
		Kind:          KindAdditionalCost,
		OwnerID:       owner.ID,
		SourceID:      source.ID,
		Description:   ab.Description,
		Min:           0,
		Max:           0,
		Skippable:     true,
		ConditionsMet: len(owner.Hand) >= discard,
		CostNote:      fmt.Sprintf("Discard %d card(s)", discard),
		apply: func(m *MatchState, eff *PendingEffect) error {
			p := m.Players[eff.OwnerID]
			pick := &PendingEffect{
				Kind:          KindHandSelect,
				OwnerID:       eff.OwnerID,
				SourceID:      eff.SourceID,
				Description:   eff.CostNote,
				Candidates:    append([]uuid.UUID(nil), p.Hand...),
				Min:           discard,
				Max:           discard,
				ConditionsMet: true,
				apply: func(m *MatchState, pick *PendingEffect) error {
					pp := m.Players[pick.OwnerID]
					for _, id := range pick.Selected {
						if err := m.moveCard(pp, id, ZoneTrash); err != nil {
							return err
						}
					}
					for i := 0; i < drawCount; i++ {
						if _, ok := m.draw(pp); !ok {
							m.declareWinner(m.Opponent(pp.ID).ID, WinDeckOut)
							return nil
						}
					}
					return nil
				},
			}
			return m.enqueueEffect(pick)
		},
	}, nil
}
