package game

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/optcgsim/duel-server-go/internal/catalog"
	"github.com/optcgsim/duel-server-go/internal/game/rules"
)

// ActionType names every move a player can submit.
type ActionType string

const (
	ActionKeepHand        ActionType = "KEEP_HAND"
	ActionMulligan        ActionType = "MULLIGAN"
	ActionPreGameSelect   ActionType = "PRE_GAME_SELECT"
	ActionSkipPreGame     ActionType = "SKIP_PRE_GAME"
	ActionChooseTurnOrder ActionType = "CHOOSE_TURN_ORDER"

	ActionPlayCard        ActionType = "PLAY_CARD"
	ActionAttachDon       ActionType = "ATTACH_DON"
	ActionActivateAbility ActionType = "ACTIVATE_ABILITY"
	ActionDeclareAttack   ActionType = "DECLARE_ATTACK"

	ActionSelectBlocker ActionType = "SELECT_BLOCKER"
	ActionUseCounter    ActionType = "USE_COUNTER"
	ActionPassCounter   ActionType = "PASS_COUNTER"
	ActionPassPriority  ActionType = "PASS_PRIORITY"
	ActionTriggerLife   ActionType = "TRIGGER_LIFE"

	ActionSelectEffectTarget ActionType = "SELECT_EFFECT_TARGET"
	ActionResolveEffect      ActionType = "RESOLVE_EFFECT"
	ActionSkipEffect         ActionType = "SKIP_EFFECT"

	ActionEndTurn   ActionType = "END_TURN"
	ActionSurrender ActionType = "SURRENDER"
)

// Action is one player-submitted move. Data carries the per-type payload
// as string key/values so the transport stays schema-free.
type Action struct {
	ID        uuid.UUID         `json:"id"`
	Type      ActionType        `json:"type"`
	PlayerID  string            `json:"player_id"`
	Timestamp time.Time         `json:"timestamp"`
	Data      map[string]string `json:"data,omitempty"`
}

// NewAction builds an action with a fresh id and timestamp.
func NewAction(t ActionType, playerID string, data map[string]string) *Action {
	return &Action{
		ID:        uuid.New(),
		Type:      t,
		PlayerID:  playerID,
		Timestamp: time.Now().UTC(),
		Data:      data,
	}
}

func (a *Action) uuidField(key string) (uuid.UUID, error) {
	raw, ok := a.Data[key]
	if !ok {
		return uuid.Nil, fmt.Errorf("%s requires %q", a.Type, key)
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, fmt.Errorf("%s %q: %w", a.Type, key, err)
	}
	return id, nil
}

func (a *Action) strField(key string) (string, error) {
	raw, ok := a.Data[key]
	if !ok || raw == "" {
		return "", fmt.Errorf("%s requires %q", a.Type, key)
	}
	return raw, nil
}

// pendingContext returns the effect head governing the current phase.
func (m *MatchState) pendingContext() (EffectKind, *PendingEffect, bool) {
	kind, ok := kindForPhase(m.Phase())
	if !ok {
		return 0, nil, false
	}
	eff, ok := m.Pending.Head(kind)
	return kind, eff, ok
}

// Apply validates and executes one action against the match. Rejected
// actions leave the state untouched; the error says why.
func (m *MatchState) Apply(a *Action) error {
	if m.Finished() {
		return fmt.Errorf("match is over")
	}
	p, ok := m.Players[a.PlayerID]
	if !ok {
		return fmt.Errorf("unknown player %s", a.PlayerID)
	}
	if a.Type == ActionSurrender {
		return m.surrender(p)
	}

	phase := m.Phase()
	owner := ""
	if _, eff, ok := m.pendingContext(); ok {
		owner = eff.OwnerID
	}
	if !rules.MayAct(phase, a.PlayerID, m.Active, owner) {
		return fmt.Errorf("%s may not act during %s", a.PlayerID, phase)
	}
	if phase.IsDefensiveWindow() && a.PlayerID == m.Active && a.Type != ActionPassPriority {
		return fmt.Errorf("turn owner may only pass during %s", phase)
	}

	switch a.Type {
	case ActionChooseTurnOrder:
		if phase != rules.PhaseDetermineTurnOrder {
			return notNow(a.Type, phase)
		}
		firstID, err := a.strField("first_player_id")
		if err != nil {
			return err
		}
		return m.chooseTurnOrder(a.PlayerID, firstID)

	case ActionPreGameSelect, ActionSkipPreGame:
		if phase != rules.PhasePreGameSetup {
			return notNow(a.Type, phase)
		}
		return m.confirmPreGame(p)

	case ActionKeepHand:
		if phase != rules.PhaseMulligan {
			return notNow(a.Type, phase)
		}
		return m.mulligan(p, false)

	case ActionMulligan:
		if phase != rules.PhaseMulligan {
			return notNow(a.Type, phase)
		}
		return m.mulligan(p, true)

	case ActionPlayCard:
		if phase != rules.PhaseMain {
			return notNow(a.Type, phase)
		}
		cardID, err := a.uuidField("card_id")
		if err != nil {
			return err
		}
		return m.playCard(p, cardID)

	case ActionAttachDon:
		if phase != rules.PhaseMain {
			return notNow(a.Type, phase)
		}
		donID, err := a.uuidField("don_id")
		if err != nil {
			return err
		}
		hostID, err := a.uuidField("host_id")
		if err != nil {
			return err
		}
		return m.attachDon(p, donID, hostID)

	case ActionActivateAbility:
		if phase != rules.PhaseMain {
			return notNow(a.Type, phase)
		}
		cardID, err := a.uuidField("card_id")
		if err != nil {
			return err
		}
		return m.activateAbility(p, cardID)

	case ActionDeclareAttack:
		if phase != rules.PhaseMain {
			return notNow(a.Type, phase)
		}
		attackerID, err := a.uuidField("card_id")
		if err != nil {
			return err
		}
		targetID, err := a.uuidField("target_id")
		if err != nil {
			return err
		}
		kindRaw, err := a.strField("target_kind")
		if err != nil {
			return err
		}
		return m.declareAttack(attackerID, targetID, TargetKind(kindRaw))

	case ActionSelectBlocker:
		if phase != rules.PhaseBlocker {
			return notNow(a.Type, phase)
		}
		blockerID, err := a.uuidField("card_id")
		if err != nil {
			return err
		}
		return m.selectBlocker(p, blockerID)

	case ActionUseCounter:
		if phase != rules.PhaseCounter {
			return notNow(a.Type, phase)
		}
		cardID, err := a.uuidField("card_id")
		if err != nil {
			return err
		}
		return m.useCounter(p, cardID)

	case ActionPassCounter:
		if phase != rules.PhaseCounter {
			return notNow(a.Type, phase)
		}
		return m.passCounter()

	case ActionTriggerLife:
		if phase != rules.PhaseTrigger {
			return notNow(a.Type, phase)
		}
		return m.activateTrigger(p)

	case ActionSelectEffectTarget:
		eff, err := m.requireEffectHead(a.Type)
		if err != nil {
			return err
		}
		targetID, err := a.uuidField("target_id")
		if err != nil {
			return err
		}
		return eff.Toggle(targetID)

	case ActionResolveEffect:
		if _, err := m.requireEffectHead(a.Type); err != nil {
			return err
		}
		kind, _ := kindForPhase(phase)
		if err := m.resolveHead(kind); err != nil {
			return err
		}
		return m.continueAfterEffects()

	case ActionSkipEffect:
		if _, err := m.requireEffectHead(a.Type); err != nil {
			return err
		}
		kind, _ := kindForPhase(phase)
		if err := m.skipHead(kind); err != nil {
			return err
		}
		return m.continueAfterEffects()

	case ActionPassPriority:
		return m.passPriority(a.PlayerID, phase)

	case ActionEndTurn:
		if phase != rules.PhaseMain {
			return notNow(a.Type, phase)
		}
		return m.endTurn()

	default:
		return fmt.Errorf("unknown action type %q", a.Type)
	}
}

func notNow(t ActionType, phase rules.Phase) error {
	return fmt.Errorf("%s is not legal during %s", t, phase)
}

func (m *MatchState) requireEffectHead(t ActionType) (*PendingEffect, error) {
	_, eff, ok := m.pendingContext()
	if !ok {
		return nil, fmt.Errorf("%s: no effect awaiting a decision", t)
	}
	return eff, nil
}

// passPriority acknowledges or declines inside the defensive windows. The
// turn owner's pass never advances anything; the defender's pass closes
// the window.
func (m *MatchState) passPriority(playerID string, phase rules.Phase) error {
	switch phase {
	case rules.PhaseBlocker:
		if playerID == m.Active {
			return nil
		}
		return m.Machine.Advance(rules.PhaseCounter)
	case rules.PhaseCounter:
		if playerID == m.Active {
			return nil
		}
		return m.passCounter()
	case rules.PhaseCounterEffect:
		if playerID == m.Active {
			return nil
		}
		return fmt.Errorf("counter effects are pending; resolve or skip them")
	case rules.PhaseTrigger:
		if playerID == m.Active {
			return nil
		}
		return m.declineTrigger()
	default:
		return fmt.Errorf("nothing to pass during %s", phase)
	}
}

// continueAfterEffects resumes the combat chain when an effect queue that
// was gating it drains.
func (m *MatchState) continueAfterEffects() error {
	if m.Finished() {
		return nil
	}
	switch m.Phase() {
	case rules.PhaseAttackEffect:
		if m.Pending.Empty(KindOnAttack) {
			return m.onAttackEffectsDrained()
		}
	case rules.PhaseCounterEffect:
		if m.Pending.Empty(KindEventCounter) {
			return m.onCounterEffectsDrained()
		}
	case rules.PhaseTrigger:
		// An interrupt opened by the trigger has unwound; close combat.
		if m.TriggerCardID == uuid.Nil {
			m.finishCombat()
			return m.Machine.Advance(rules.PhaseMain)
		}
	}
	return nil
}

// playCard pays a card's DON cost and puts it in play. Characters land on
// the field, stages replace the stage slot, events resolve and land in
// the trash.
func (m *MatchState) playCard(p *PlayerState, cardID uuid.UUID) error {
	card, ok := p.Cards[cardID]
	if !ok || card.Zone != ZoneHand {
		return fmt.Errorf("%s is not in your hand", cardID)
	}
	def, ok := m.Definition(card)
	if !ok {
		return fmt.Errorf("unknown card definition %s", card.DefID)
	}

	switch def.Category {
	case catalog.CategoryLeader:
		return fmt.Errorf("leaders cannot be played from hand")
	case catalog.CategoryCharacter:
		if len(p.Field) >= maxFieldSize {
			return fmt.Errorf("character area is full")
		}
	case catalog.CategoryEvent:
		if _, ok := def.AbilityAt(catalog.TimingEventMain); !ok {
			return fmt.Errorf("%s has no main-phase effect", def.ID)
		}
	}
	if len(p.activeDon()) < def.Cost {
		return fmt.Errorf("cost %d exceeds your active DON", def.Cost)
	}
	if err := m.payCost(p, def.Cost); err != nil {
		return err
	}

	switch def.Category {
	case catalog.CategoryCharacter:
		if err := m.moveCard(p, cardID, ZoneField); err != nil {
			return err
		}
		card.PlayedTurn = m.Turn
	case catalog.CategoryStage:
		// A new stage pushes the old one out.
		if p.StageID != uuid.Nil {
			if err := m.moveCard(p, p.StageID, ZoneTrash); err != nil {
				return err
			}
		}
		if err := m.moveCard(p, cardID, ZoneStage); err != nil {
			return err
		}
	case catalog.CategoryEvent:
		if err := m.moveCard(p, cardID, ZoneTrash); err != nil {
			return err
		}
	}
	p.CardsPlayedThisTurn++
	m.publish(rules.NewEvent(rules.EventCardPlayed, cardID.String(), "", p.ID))

	switch def.Category {
	case catalog.CategoryCharacter, catalog.CategoryStage:
		if ab, ok := def.AbilityAt(catalog.TimingOnPlay); ok {
			return m.fireAbility(p, card, ab)
		}
	case catalog.CategoryEvent:
		if ab, ok := def.AbilityAt(catalog.TimingEventMain); ok {
			return m.fireAbility(p, card, ab)
		}
	}
	return nil
}

// DefaultAction picks the move submitted on a player's behalf when their
// decision clock runs out: keep, pass, decline, or the minimal legal
// progress for the current window. Nil means the player has nothing to
// answer right now.
func DefaultAction(m *MatchState, playerID string) *Action {
	if m.Finished() {
		return nil
	}
	p, ok := m.Players[playerID]
	if !ok {
		return nil
	}
	switch phase := m.Phase(); phase {
	case rules.PhaseDetermineTurnOrder:
		if playerID == m.Chooser {
			return NewAction(ActionChooseTurnOrder, playerID, map[string]string{"first_player_id": playerID})
		}
	case rules.PhasePreGameSetup:
		if !p.PreGameDone {
			return NewAction(ActionSkipPreGame, playerID, nil)
		}
	case rules.PhaseMulligan:
		if !p.MulliganDone {
			return NewAction(ActionKeepHand, playerID, nil)
		}
	case rules.PhaseMain:
		if playerID == m.Active {
			return NewAction(ActionEndTurn, playerID, nil)
		}
	case rules.PhaseBlocker, rules.PhaseTrigger:
		if playerID != m.Active {
			return NewAction(ActionPassPriority, playerID, nil)
		}
	case rules.PhaseCounter:
		if playerID != m.Active {
			return NewAction(ActionPassCounter, playerID, nil)
		}
	default:
		if _, eff, ok := m.pendingContext(); ok && eff.OwnerID == playerID {
			return defaultEffectAction(eff, playerID)
		}
	}
	return nil
}

// defaultEffectAction walks a pending decision to completion one step at
// a time: decline when allowed, otherwise fill the minimum selection and
// resolve.
func defaultEffectAction(eff *PendingEffect, playerID string) *Action {
	if eff.CanSkip() {
		return NewAction(ActionSkipEffect, playerID, nil)
	}
	if eff.CanResolve() {
		return NewAction(ActionResolveEffect, playerID, nil)
	}
	for _, candidate := range eff.Candidates {
		if !containsID(eff.Selected, candidate) {
			return NewAction(ActionSelectEffectTarget, playerID, map[string]string{"target_id": candidate.String()})
		}
	}
	return nil
}

// activateAbility fires a card's once-per-turn main-phase ability.
func (m *MatchState) activateAbility(p *PlayerState, cardID uuid.UUID) error {
	card, ok := p.Cards[cardID]
	if !ok || (card.Zone != ZoneLeader && card.Zone != ZoneField && card.Zone != ZoneStage) {
		return fmt.Errorf("%s is not on your board", cardID)
	}
	def, ok := m.Definition(card)
	if !ok {
		return fmt.Errorf("unknown card definition %s", card.DefID)
	}
	ab, ok := def.AbilityAt(catalog.TimingActivateMain)
	if !ok {
		return fmt.Errorf("%s has no activatable ability", def.ID)
	}
	if card.ActivatedThisTurn {
		return fmt.Errorf("%s already activated this turn", def.ID)
	}
	if err := m.fireAbility(p, card, ab); err != nil {
		return err
	}
	card.ActivatedThisTurn = true
	return nil
}
