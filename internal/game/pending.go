package game

import (
	"fmt"

	"github.com/google/uuid"

	"github.com/optcgsim/duel-server-go/internal/game/rules"
)

// EffectKind discriminates the pending-effect union.
type EffectKind int

const (
	KindOnAttack EffectKind = iota
	KindOnPlay
	KindActivateMain
	KindEventMain
	KindEventCounter
	KindDeckReveal
	KindHandSelect
	KindAdditionalCost
)

var effectKindNames = map[EffectKind]string{
	KindOnAttack:       "ON_ATTACK",
	KindOnPlay:         "ON_PLAY",
	KindActivateMain:   "ACTIVATE_MAIN",
	KindEventMain:      "EVENT_MAIN",
	KindEventCounter:   "EVENT_COUNTER",
	KindDeckReveal:     "DECK_REVEAL",
	KindHandSelect:     "HAND_SELECT",
	KindAdditionalCost: "ADDITIONAL_COST",
}

func (k EffectKind) String() string {
	if name, ok := effectKindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("EFFECT_KIND_%d", int(k))
}

// ParseEffectKind resolves a kind name from action data.
func ParseEffectKind(name string) (EffectKind, bool) {
	for kind, label := range effectKindNames {
		if label == name {
			return kind, true
		}
	}
	return 0, false
}

// Phase returns the machine phase in which this kind resolves. OnAttack and
// EventCounter live on the combat chain; the rest are interrupts.
func (k EffectKind) Phase() rules.Phase {
	switch k {
	case KindOnAttack:
		return rules.PhaseAttackEffect
	case KindOnPlay:
		return rules.PhasePlayEffect
	case KindActivateMain:
		return rules.PhaseActivateEffectTargeting
	case KindEventMain:
		return rules.PhaseEventEffect
	case KindEventCounter:
		return rules.PhaseCounterEffect
	case KindDeckReveal:
		return rules.PhaseDeckReveal
	case KindHandSelect:
		return rules.PhaseHandSelect
	case KindAdditionalCost:
		return rules.PhaseAdditionalCost
	}
	return rules.PhaseGameOver
}

// RemainderPolicy disposes of unselected revealed cards after a deck reveal.
type RemainderPolicy string

const (
	RemainderTrash      RemainderPolicy = "trash"
	RemainderDeckBottom RemainderPolicy = "bottom-of-deck"
	RemainderShuffleIn  RemainderPolicy = "shuffle-in"
)

// EffectApply is the kind-specific payload application, bound by the effect
// registry at enqueue time. The queue protocol never inspects it.
type EffectApply func(m *MatchState, eff *PendingEffect) error

// PendingEffect is one ability waiting for a selection or skip.
type PendingEffect struct {
	ID          uuid.UUID   `json:"id"`
	Kind        EffectKind  `json:"kind"`
	OwnerID     string      `json:"owner_id"`
	SourceID    uuid.UUID   `json:"source_id"`
	Description string      `json:"description"`
	Candidates  []uuid.UUID `json:"candidates"`
	Selected    []uuid.UUID `json:"selected"`
	Min         int         `json:"min"`
	Max         int         `json:"max"`
	Skippable   bool        `json:"skippable"`

	ConditionsMet bool `json:"conditions_met"`

	// DeckReveal payload
	Revealed  []uuid.UUID     `json:"revealed,omitempty"`
	Remainder RemainderPolicy `json:"remainder,omitempty"`

	// AdditionalCost payload
	CostNote string `json:"cost_note,omitempty"`

	apply EffectApply
}

// Toggle flips a candidate in or out of the selection.
func (e *PendingEffect) Toggle(candidate uuid.UUID) error {
	if !containsID(e.Candidates, candidate) {
		return fmt.Errorf("%s is not a valid candidate for %s", candidate, e.Kind)
	}
	if containsID(e.Selected, candidate) {
		e.Selected = removeID(e.Selected, candidate)
		return nil
	}
	if len(e.Selected) >= e.Max {
		return fmt.Errorf("selection for %s is capped at %d", e.Kind, e.Max)
	}
	e.Selected = append(e.Selected, candidate)
	return nil
}

// CanResolve reports whether the selection satisfies the minimum.
func (e *PendingEffect) CanResolve() bool {
	return len(e.Selected) >= e.Min
}

// CanSkip reports whether skipping is permitted.
func (e *PendingEffect) CanSkip() bool {
	return e.Skippable || e.Min == 0
}

// shouldFizzle reports whether the effect must auto-resolve as a no-op:
// unmet conditions, or a mandatory selection with no valid candidates.
func (e *PendingEffect) shouldFizzle() bool {
	if !e.ConditionsMet {
		return true
	}
	return len(e.Candidates) == 0 && e.Min > 0
}

// decisionless reports whether the effect needs no player input and can
// apply inline at enqueue time. Covers effects that never select (a plain
// draw) and optional selections whose candidate set came up empty; the
// latter still apply so kind payloads like reveal disposal run.
func (e *PendingEffect) decisionless() bool {
	if e.Skippable {
		return false
	}
	if e.Max == 0 && e.Min == 0 {
		return true
	}
	return len(e.Candidates) == 0 && e.Min == 0
}

// PendingSet holds the per-kind FIFO queues.
type PendingSet struct {
	Queues map[EffectKind][]*PendingEffect `json:"queues"`
}

// NewPendingSet returns an empty set.
func NewPendingSet() *PendingSet {
	return &PendingSet{Queues: make(map[EffectKind][]*PendingEffect)}
}

// Head returns the next effect of a kind without removing it.
func (s *PendingSet) Head(kind EffectKind) (*PendingEffect, bool) {
	queue := s.Queues[kind]
	if len(queue) == 0 {
		return nil, false
	}
	return queue[0], true
}

// Find locates a queued effect by id within a kind.
func (s *PendingSet) Find(kind EffectKind, id uuid.UUID) (*PendingEffect, bool) {
	for _, eff := range s.Queues[kind] {
		if eff.ID == id {
			return eff, true
		}
	}
	return nil, false
}

func (s *PendingSet) push(eff *PendingEffect) {
	s.Queues[eff.Kind] = append(s.Queues[eff.Kind], eff)
}

func (s *PendingSet) pop(kind EffectKind) {
	queue := s.Queues[kind]
	if len(queue) == 0 {
		return
	}
	s.Queues[kind] = queue[1:]
	if len(s.Queues[kind]) == 0 {
		delete(s.Queues, kind)
	}
}

// Empty reports whether a kind's queue is drained.
func (s *PendingSet) Empty(kind EffectKind) bool {
	return len(s.Queues[kind]) == 0
}

// Count returns the queued effects of one kind.
func (s *PendingSet) Count(kind EffectKind) int {
	return len(s.Queues[kind])
}

// enqueueEffect runs the generic enqueue step of the protocol: fizzles
// resolve immediately as no-ops, decisionless effects apply inline, and
// everything else queues up and opens its interrupt phase if needed.
func (m *MatchState) enqueueEffect(eff *PendingEffect) error {
	if eff.ID == uuid.Nil {
		eff.ID = uuid.New()
	}
	if eff.shouldFizzle() {
		evt := rules.NewEvent(rules.EventEffectFizzled, eff.SourceID.String(), eff.ID.String(), eff.OwnerID)
		evt.Data = eff.Description
		m.publish(evt)
		return nil
	}
	if eff.decisionless() {
		if err := eff.apply(m, eff); err != nil {
			return fmt.Errorf("apply %s effect: %w", eff.Kind, err)
		}
		m.publish(rules.NewEvent(rules.EventEffectResolved, eff.SourceID.String(), eff.ID.String(), eff.OwnerID))
		return nil
	}

	m.Pending.push(eff)
	m.publish(rules.NewEvent(rules.EventEffectEnqueued, eff.SourceID.String(), eff.ID.String(), eff.OwnerID))

	phase := eff.Kind.Phase()
	if phase.IsInterrupt() && m.Phase() != phase {
		return m.Machine.EnterInterrupt(phase)
	}
	return nil
}

// resolveHead resolves the FIFO head of a kind and pops interrupt phases
// whose queues drained. Resolution may enqueue nested effects; those open
// their own interrupts and unwind in order.
func (m *MatchState) resolveHead(kind EffectKind) error {
	eff, ok := m.Pending.Head(kind)
	if !ok {
		return fmt.Errorf("no pending %s effect", kind)
	}
	if !eff.CanResolve() {
		return fmt.Errorf("%s needs at least %d selections, have %d", kind, eff.Min, len(eff.Selected))
	}
	m.Pending.pop(kind)
	if err := eff.apply(m, eff); err != nil {
		return fmt.Errorf("apply %s effect: %w", kind, err)
	}
	m.publish(rules.NewEvent(rules.EventEffectResolved, eff.SourceID.String(), eff.ID.String(), eff.OwnerID))
	m.exitDrainedInterrupts()
	return nil
}

// skipHead declines the FIFO head of a kind.
func (m *MatchState) skipHead(kind EffectKind) error {
	eff, ok := m.Pending.Head(kind)
	if !ok {
		return fmt.Errorf("no pending %s effect", kind)
	}
	if !eff.CanSkip() {
		return fmt.Errorf("%s is not skippable", kind)
	}
	m.Pending.pop(kind)
	m.publish(rules.NewEvent(rules.EventEffectSkipped, eff.SourceID.String(), eff.ID.String(), eff.OwnerID))
	m.exitDrainedInterrupts()
	return nil
}

// exitDrainedInterrupts pops interrupt phases until the current phase has
// work again. Nested resolutions leave empty covers behind; each pop
// returns to the phase the interrupt covered.
func (m *MatchState) exitDrainedInterrupts() {
	for m.Phase().IsInterrupt() {
		kind, ok := kindForPhase(m.Phase())
		if !ok || !m.Pending.Empty(kind) {
			return
		}
		if _, err := m.Machine.ExitInterrupt(); err != nil {
			return
		}
	}
}

func kindForPhase(phase rules.Phase) (EffectKind, bool) {
	for kind := range effectKindNames {
		if kind.Phase() == phase {
			return kind, true
		}
	}
	return 0, false
}
