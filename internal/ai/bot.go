// Package ai drives a scripted opponent through the same action
// submission path as a human seat. The bot holds no reference to match
// internals; everything it knows comes from the full view and the card
// catalog.
package ai

import (
	"context"
	"math/rand"
	"sort"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/optcgsim/duel-server-go/internal/catalog"
	"github.com/optcgsim/duel-server-go/internal/game"
	"github.com/optcgsim/duel-server-go/internal/game/rules"
)

const (
	// maxFieldCards mirrors the engine's character-area cap.
	maxFieldCards = 5

	// maxRepicks bounds how many rejected picks one wake retries before
	// yielding to the next notification.
	maxRepicks = 12

	// tickInterval re-checks the board even when no notification lands.
	tickInterval = 500 * time.Millisecond

	// expendableCost is the highest cost the bot will pitch as a counter.
	expendableCost = 3
)

// Option adjusts bot construction.
type Option func(*Bot)

// WithDelay makes the bot pause before each submission, pacing it
// against human opponents.
func WithDelay(d time.Duration) Option {
	return func(b *Bot) {
		b.delay = d
	}
}

// Bot picks actions for one seat. Decisions are deterministic for a
// fixed seed and view sequence.
type Bot struct {
	log      *zap.Logger
	playerID string
	catalog  *catalog.Catalog
	rng      *rand.Rand
	delay    time.Duration

	// Per-turn memory. The view does not say which of the bot's cards
	// already attacked or entered play this turn, so the bot tracks its
	// own commitments and clears them when the turn counter moves.
	turnSeen int
	spent    map[uuid.UUID]bool

	preGameDone bool
	mulliganed  bool
}

// NewBot builds a bot for one seat. The catalog supplies the cost and
// counter values the sanitized hand projection leaves out.
func NewBot(log *zap.Logger, playerID string, cat *catalog.Catalog, seed int64, opts ...Option) *Bot {
	if log == nil {
		log = zap.NewNop()
	}
	b := &Bot{
		log:      log.Named("ai").With(zap.String("botId", playerID)),
		playerID: playerID,
		catalog:  cat,
		rng:      rand.New(rand.NewSource(seed)),
		spent:    make(map[uuid.UUID]bool),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// PlayerID returns the seat this bot occupies.
func (b *Bot) PlayerID() string {
	return b.playerID
}

// Run subscribes the bot to its match and plays until the match ends.
// Each accepted action produces a fresh state notification, so one
// submission per wake keeps the loop self-sustaining. A slow tick
// covers dropped notifications.
func (b *Bot) Run(ctx context.Context, eng *game.Engine, matchID string) error {
	ch, cancel, err := eng.Subscribe(matchID, b.playerID, 64)
	if err != nil {
		return err
	}
	defer cancel()

	ticker := time.NewTicker(tickInterval)
	defer ticker.Stop()

	// Nothing has moved yet when the bot is first to decide; kick once.
	b.step(ctx, eng, matchID)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			b.step(ctx, eng, matchID)
		case n, ok := <-ch:
			if !ok {
				return nil
			}
			if n.Type == game.NotifyMatchOver {
				return nil
			}
			if n.Type != game.NotifyState {
				continue
			}
			b.step(ctx, eng, matchID)
		}
	}
}

// step computes and submits at most one action, repicking when the
// engine rejects a choice the view made look legal.
func (b *Bot) step(ctx context.Context, eng *game.Engine, matchID string) {
	if b.delay > 0 {
		select {
		case <-ctx.Done():
			return
		case <-time.After(b.delay):
		}
	}
	for attempt := 0; attempt < maxRepicks; attempt++ {
		view, err := eng.FullView(matchID)
		if err != nil {
			return
		}
		action := b.NextAction(view)
		if action == nil {
			action, err = eng.DefaultActionFor(matchID, b.playerID)
			if err != nil || action == nil {
				return
			}
		}
		err = eng.SubmitAction(ctx, matchID, action)
		if err == nil {
			return
		}
		b.log.Debug("action rejected, repicking",
			zap.String("actionType", string(action.Type)),
			zap.Error(err))
		b.poison(action)
	}
}

// poison remembers a rejected pick so the next attempt tries elsewhere.
func (b *Bot) poison(action *game.Action) {
	for _, key := range []string{"card_id", "don_id", "target_id"} {
		if raw, ok := action.Data[key]; ok {
			if id, err := uuid.Parse(raw); err == nil {
				b.spent[id] = true
			}
		}
	}
}

// NextAction picks the bot's move for the given view, or nil when the
// bot owes no decision.
func (b *Bot) NextAction(view *game.MatchView) *game.Action {
	if view == nil || view.WinnerID != "" {
		return nil
	}
	phase, ok := rules.ParsePhase(view.Phase)
	if !ok || phase.IsTerminal() {
		return nil
	}
	if view.Turn != b.turnSeen {
		b.turnSeen = view.Turn
		b.spent = make(map[uuid.UUID]bool)
	}

	me, opp := b.sides(view)
	if me == nil {
		return nil
	}

	// A pending decision owned by this seat outranks everything else.
	if view.Effect != nil && view.Effect.OwnerID == b.playerID {
		return b.resolveEffect(view.Effect)
	}

	switch phase {
	case rules.PhaseDetermineTurnOrder:
		if view.Chooser == b.playerID && view.First == "" {
			return game.NewAction(game.ActionChooseTurnOrder, b.playerID,
				map[string]string{"first_player_id": b.playerID})
		}
	case rules.PhasePreGameSetup:
		if !b.preGameDone {
			b.preGameDone = true
			return game.NewAction(game.ActionSkipPreGame, b.playerID, nil)
		}
	case rules.PhaseMulligan:
		if !b.mulliganed {
			b.mulliganed = true
			if b.keepsHand(me) {
				return game.NewAction(game.ActionKeepHand, b.playerID, nil)
			}
			b.log.Debug("mulligan: no early character in hand")
			return game.NewAction(game.ActionMulligan, b.playerID, nil)
		}
	case rules.PhaseMain:
		if view.Active == b.playerID {
			return b.mainAction(view, me, opp)
		}
	case rules.PhaseBlocker:
		if view.Active != b.playerID {
			return b.blockAction(view, me)
		}
	case rules.PhaseCounter:
		if view.Active != b.playerID {
			return b.counterAction(view, me)
		}
	case rules.PhaseTrigger:
		if view.Active != b.playerID {
			// Every starter trigger is pure upside; always fire it.
			return game.NewAction(game.ActionTriggerLife, b.playerID, nil)
		}
	}
	return nil
}

// sides splits the view into the bot's board and the opponent's. It
// accepts both the full and the sanitized projection.
func (b *Bot) sides(view *game.MatchView) (me, opp *game.PlayerView) {
	for _, p := range view.Players {
		if p.ID == b.playerID {
			me = p
		} else {
			opp = p
		}
	}
	if me == nil && view.You != nil && view.You.ID == b.playerID {
		me, opp = view.You, view.Opponent
	}
	return me, opp
}

// keepsHand keeps any hand with an early character play. Hands with
// nothing playable before turn three go back.
func (b *Bot) keepsHand(me *game.PlayerView) bool {
	for _, cv := range me.Hand {
		def, ok := b.catalog.Lookup(cv.DefID)
		if !ok {
			continue
		}
		if def.Category == catalog.CategoryCharacter && def.Cost <= 2 {
			return true
		}
	}
	return false
}

// mainAction develops the board in a fixed order: play the biggest
// affordable character, power up the leader with leftover DON, then
// swing every standing attacker at the opposing leader.
func (b *Bot) mainAction(view *game.MatchView, me, opp *game.PlayerView) *game.Action {
	spare := b.spareDon(me)

	if len(me.Field) < maxFieldCards {
		if cardID, rush := b.bestPlay(me, len(spare)); cardID != uuid.Nil {
			if !rush {
				b.spent[cardID] = true
			}
			return game.NewAction(game.ActionPlayCard, b.playerID,
				map[string]string{"card_id": cardID.String()})
		}
	}

	if len(spare) > 0 {
		donID := spare[0]
		b.spent[donID] = true
		return game.NewAction(game.ActionAttachDon, b.playerID, map[string]string{
			"don_id":  donID.String(),
			"host_id": me.Leader.ID.String(),
		})
	}

	if view.Turn >= 2 && opp != nil {
		if attacker := b.nextAttacker(me); attacker != uuid.Nil {
			b.spent[attacker] = true
			return game.NewAction(game.ActionDeclareAttack, b.playerID, map[string]string{
				"card_id":     attacker.String(),
				"target_id":   opp.Leader.ID.String(),
				"target_kind": string(game.TargetLeader),
			})
		}
	}

	return game.NewAction(game.ActionEndTurn, b.playerID, nil)
}

// spareDon lists active unattached DON not yet committed this turn.
func (b *Bot) spareDon(me *game.PlayerView) []uuid.UUID {
	var ids []uuid.UUID
	for _, don := range me.DonField {
		if don.Rested || don.AttachedTo != uuid.Nil || b.spent[don.ID] {
			continue
		}
		ids = append(ids, don.ID)
	}
	return ids
}

// bestPlay returns the highest-cost playable character in hand, ties
// broken at random, and whether it carries rush.
func (b *Bot) bestPlay(me *game.PlayerView, budget int) (uuid.UUID, bool) {
	bestCost := -1
	var ties []game.CardView
	for _, cv := range me.Hand {
		if b.spent[cv.ID] {
			continue
		}
		def, ok := b.catalog.Lookup(cv.DefID)
		if !ok || def.Category != catalog.CategoryCharacter || def.Cost > budget {
			continue
		}
		switch {
		case def.Cost > bestCost:
			bestCost = def.Cost
			ties = append(ties[:0], cv)
		case def.Cost == bestCost:
			ties = append(ties, cv)
		}
	}
	if len(ties) == 0 {
		return uuid.Nil, false
	}
	pick := ties[b.rng.Intn(len(ties))]
	def, _ := b.catalog.Lookup(pick.DefID)
	return pick.ID, def != nil && def.HasKeyword(catalog.KeywordRush)
}

// nextAttacker picks the strongest standing attacker not yet used this
// turn, falling back to the leader.
func (b *Bot) nextAttacker(me *game.PlayerView) uuid.UUID {
	best := uuid.Nil
	bestPower := -1
	for _, cv := range me.Field {
		if cv.Rested || b.spent[cv.ID] {
			continue
		}
		if cv.Power > bestPower {
			bestPower = cv.Power
			best = cv.ID
		}
	}
	if best != uuid.Nil {
		return best
	}
	if !me.Leader.Rested && !b.spent[me.Leader.ID] {
		return me.Leader.ID
	}
	return uuid.Nil
}

// blockAction throws the biggest blocker that survives the hit, else
// lets the attack through.
func (b *Bot) blockAction(view *game.MatchView, me *game.PlayerView) *game.Action {
	pass := game.NewAction(game.ActionPassPriority, b.playerID, nil)
	if view.Combat == nil {
		return pass
	}
	incoming := view.Combat.AttackPower
	best := uuid.Nil
	bestPower := -1
	for _, cv := range me.Field {
		if cv.Rested || b.spent[cv.ID] || !hasKeyword(cv, catalog.KeywordBlocker) {
			continue
		}
		if cv.Power > incoming && cv.Power > bestPower {
			bestPower = cv.Power
			best = cv.ID
		}
	}
	if best == uuid.Nil {
		return pass
	}
	b.spent[best] = true
	b.log.Debug("blocking", zap.Int("attackPower", incoming), zap.Int("blockerPower", bestPower))
	return game.NewAction(game.ActionSelectBlocker, b.playerID,
		map[string]string{"card_id": best.String()})
}

// counterAction pitches hand counters only when they flip a losing
// combat, and only from cheap cards. One card per wake; the refreshed
// totals decide whether another follows.
func (b *Bot) counterAction(view *game.MatchView, me *game.PlayerView) *game.Action {
	pass := game.NewAction(game.ActionPassCounter, b.playerID, nil)
	combat := view.Combat
	if combat == nil {
		return pass
	}
	target := b.findBoardCard(me, combat.TargetID)
	if target == nil {
		return pass
	}

	// The attacker wins ties, so the defense has to clear the attack by
	// one point.
	defense := target.Power + combat.CounterPower + combat.EffectBuff
	needed := combat.AttackPower + 1 - defense
	if needed <= 0 {
		return pass
	}

	type counterCard struct {
		id      uuid.UUID
		counter int
	}
	var candidates []counterCard
	total := 0
	for _, cv := range me.Hand {
		if b.spent[cv.ID] {
			continue
		}
		def, ok := b.catalog.Lookup(cv.DefID)
		if !ok || def.Category != catalog.CategoryCharacter || def.Counter <= 0 {
			continue
		}
		if def.Cost > expendableCost {
			continue
		}
		candidates = append(candidates, counterCard{id: cv.ID, counter: def.Counter})
		total += def.Counter
	}
	if total < needed {
		// The gap cannot be closed; keep the hand for later turns.
		return pass
	}

	sort.Slice(candidates, func(i, j int) bool {
		return candidates[i].counter < candidates[j].counter
	})
	pick := candidates[len(candidates)-1]
	for _, c := range candidates {
		if c.counter >= needed {
			pick = c
			break
		}
	}
	b.spent[pick.id] = true
	b.log.Debug("countering",
		zap.Int("needed", needed),
		zap.Int("counterValue", pick.counter))
	return game.NewAction(game.ActionUseCounter, b.playerID,
		map[string]string{"card_id": pick.id.String()})
}

func (b *Bot) findBoardCard(me *game.PlayerView, id uuid.UUID) *game.CardView {
	if me.Leader.ID == id {
		return &me.Leader
	}
	for i := range me.Field {
		if me.Field[i].ID == id {
			return &me.Field[i]
		}
	}
	return nil
}

// resolveEffect plays a pending decision greedily: fill the allowance,
// then fire; skip only what cannot be filled.
func (b *Bot) resolveEffect(eff *game.EffectView) *game.Action {
	if len(eff.Selected) < eff.Max {
		for _, cand := range eff.Candidates {
			if b.spent[cand] || containsID(eff.Selected, cand) {
				continue
			}
			return game.NewAction(game.ActionSelectEffectTarget, b.playerID,
				map[string]string{"target_id": cand.String()})
		}
	}
	if len(eff.Selected) >= eff.Min {
		return game.NewAction(game.ActionResolveEffect, b.playerID, nil)
	}
	if eff.Skippable {
		return game.NewAction(game.ActionSkipEffect, b.playerID, nil)
	}
	return game.NewAction(game.ActionResolveEffect, b.playerID, nil)
}

func hasKeyword(cv game.CardView, kw catalog.Keyword) bool {
	for _, k := range cv.Keywords {
		if k == string(kw) {
			return true
		}
	}
	return false
}

func containsID(ids []uuid.UUID, id uuid.UUID) bool {
	for _, have := range ids {
		if have == id {
			return true
		}
	}
	return false
}
