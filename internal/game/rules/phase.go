package rules

import (
	"fmt"
	"strings"
)

// Phase represents a state of the duel state machine.
type Phase int

const (
	PhaseDetermineTurnOrder Phase = iota
	PhasePreGameSetup
	PhaseMulligan
	PhaseRefresh
	PhaseDraw
	PhaseDonGain
	PhaseMain
	PhaseAttackEffect
	PhaseBlocker
	PhaseCounter
	PhaseCounterEffect
	PhaseTrigger
	PhaseEnd
	PhaseGameOver
	PhasePlayEffect
	PhaseActivateEffectTargeting
	PhaseEventEffect
	PhaseAdditionalCost
	PhaseDeckReveal
	PhaseHandSelect
)

var phaseNames = map[Phase]string{
	PhaseDetermineTurnOrder:      "DETERMINE_TURN_ORDER",
	PhasePreGameSetup:            "PRE_GAME_SETUP",
	PhaseMulligan:                "MULLIGAN",
	PhaseRefresh:                 "REFRESH",
	PhaseDraw:                    "DRAW",
	PhaseDonGain:                 "DON_GAIN",
	PhaseMain:                    "MAIN",
	PhaseAttackEffect:            "ATTACK_EFFECT",
	PhaseBlocker:                 "BLOCKER",
	PhaseCounter:                 "COUNTER",
	PhaseCounterEffect:           "COUNTER_EFFECT",
	PhaseTrigger:                 "TRIGGER",
	PhaseEnd:                     "END",
	PhaseGameOver:                "GAME_OVER",
	PhasePlayEffect:              "PLAY_EFFECT",
	PhaseActivateEffectTargeting: "ACTIVATE_EFFECT_TARGETING",
	PhaseEventEffect:             "EVENT_EFFECT",
	PhaseAdditionalCost:          "ADDITIONAL_COST",
	PhaseDeckReveal:              "DECK_REVEAL",
	PhaseHandSelect:              "HAND_SELECT",
}

func (p Phase) String() string {
	if name, ok := phaseNames[p]; ok {
		return name
	}
	return fmt.Sprintf("PHASE_%d", int(p))
}

// ParsePhase resolves a phase name back to its value.
func ParsePhase(name string) (Phase, bool) {
	needle := strings.ToUpper(strings.TrimSpace(name))
	for phase, label := range phaseNames {
		if label == needle {
			return phase, true
		}
	}
	return PhaseGameOver, false
}

// IsDefensiveWindow reports whether the non-active player acts in this phase.
func (p Phase) IsDefensiveWindow() bool {
	switch p {
	case PhaseBlocker, PhaseCounter, PhaseCounterEffect, PhaseTrigger:
		return true
	}
	return false
}

// IsInterrupt reports whether the phase is entered by a pending effect and
// exited by draining that effect's queue.
func (p Phase) IsInterrupt() bool {
	switch p {
	case PhasePlayEffect, PhaseActivateEffectTargeting, PhaseEventEffect,
		PhaseAdditionalCost, PhaseDeckReveal, PhaseHandSelect:
		return true
	}
	return false
}

// IsCombat reports whether the phase belongs to the combat chain.
func (p Phase) IsCombat() bool {
	switch p {
	case PhaseAttackEffect, PhaseBlocker, PhaseCounter, PhaseCounterEffect, PhaseTrigger:
		return true
	}
	return false
}

// IsSetup reports whether the phase precedes the first turn.
func (p Phase) IsSetup() bool {
	switch p {
	case PhaseDetermineTurnOrder, PhasePreGameSetup, PhaseMulligan:
		return true
	}
	return false
}

// IsTerminal reports whether no further actions are accepted.
func (p Phase) IsTerminal() bool {
	return p == PhaseGameOver
}

// turnCycle is the fixed per-turn phase order outside combat and interrupts.
var turnCycle = []Phase{PhaseRefresh, PhaseDraw, PhaseDonGain, PhaseMain, PhaseEnd}

// legalTransitions enumerates every edge of the phase graph. Interrupt
// entry/exit is handled by the machine's return stack, not by this table.
var legalTransitions = map[Phase][]Phase{
	PhaseDetermineTurnOrder: {PhasePreGameSetup},
	PhasePreGameSetup:       {PhaseMulligan},
	PhaseMulligan:           {PhaseRefresh},
	PhaseRefresh:            {PhaseDraw},
	PhaseDraw:               {PhaseDonGain, PhaseGameOver},
	PhaseDonGain:            {PhaseMain},
	PhaseMain:               {PhaseAttackEffect, PhaseBlocker, PhaseEnd, PhaseGameOver},
	PhaseAttackEffect:       {PhaseBlocker},
	PhaseBlocker:            {PhaseCounter},
	PhaseCounter:            {PhaseCounterEffect},
	PhaseCounterEffect:      {PhaseTrigger, PhaseMain, PhaseGameOver},
	PhaseTrigger:            {PhaseMain, PhaseGameOver},
	PhaseEnd:                {PhaseRefresh, PhaseGameOver},
}

// Machine tracks the current phase and the interrupt return stack.
// It validates edges; deciding when a step's work is complete is the
// action processor's job.
type Machine struct {
	current     Phase
	returnStack []Phase
}

// NewMachine creates a machine positioned at turn-order determination.
func NewMachine() *Machine {
	return &Machine{current: PhaseDetermineTurnOrder}
}

// RestoreMachine rebuilds a machine from a persisted phase and return
// stack without revalidating the path that produced them.
func RestoreMachine(current Phase, returnStack []Phase) *Machine {
	return &Machine{
		current:     current,
		returnStack: append([]Phase(nil), returnStack...),
	}
}

// ReturnStack copies the pending interrupt return phases, innermost last.
func (m *Machine) ReturnStack() []Phase {
	return append([]Phase(nil), m.returnStack...)
}

// Current returns the phase in progress.
func (m *Machine) Current() Phase {
	return m.current
}

// Advance moves along a declared edge of the phase graph.
func (m *Machine) Advance(to Phase) error {
	if m.current.IsTerminal() {
		return fmt.Errorf("phase machine is terminal at %s", m.current)
	}
	if to.IsInterrupt() {
		return fmt.Errorf("interrupt phase %s requires EnterInterrupt", to)
	}
	for _, next := range legalTransitions[m.current] {
		if next == to {
			m.current = to
			return nil
		}
	}
	return fmt.Errorf("illegal phase transition %s -> %s", m.current, to)
}

// EnterInterrupt pushes the current phase and switches to an interrupt phase.
// Nested interrupts are allowed; each pops back to the phase it covered.
func (m *Machine) EnterInterrupt(p Phase) error {
	if !p.IsInterrupt() {
		return fmt.Errorf("%s is not an interrupt phase", p)
	}
	if m.current.IsTerminal() {
		return fmt.Errorf("phase machine is terminal at %s", m.current)
	}
	m.returnStack = append(m.returnStack, m.current)
	m.current = p
	return nil
}

// ExitInterrupt pops back to the phase active before the interrupt.
func (m *Machine) ExitInterrupt() (Phase, error) {
	if !m.current.IsInterrupt() {
		return m.current, fmt.Errorf("current phase %s is not an interrupt", m.current)
	}
	if len(m.returnStack) == 0 {
		return m.current, fmt.Errorf("interrupt return stack is empty at %s", m.current)
	}
	last := len(m.returnStack) - 1
	m.current = m.returnStack[last]
	m.returnStack = m.returnStack[:last]
	return m.current, nil
}

// InInterrupt reports whether an interrupt phase is active.
func (m *Machine) InInterrupt() bool {
	return m.current.IsInterrupt()
}

// InterruptDepth returns the number of stacked interrupts.
func (m *Machine) InterruptDepth() int {
	return len(m.returnStack)
}

// Terminate forces the machine into the terminal phase from anywhere.
// Surrender, deck-out, and disconnect all end the match mid-phase.
func (m *Machine) Terminate() {
	m.current = PhaseGameOver
	m.returnStack = nil
}

// NextInCycle returns the phase following p in the fixed turn cycle,
// wrapping End back to Refresh.
func NextInCycle(p Phase) (Phase, bool) {
	for i, candidate := range turnCycle {
		if candidate == p {
			return turnCycle[(i+1)%len(turnCycle)], true
		}
	}
	return p, false
}

// MayAct reports whether player may submit actions in the given phase.
// active is the turn owner. owner is the owning player of the pending
// effect head when the phase is an interrupt, empty otherwise. During
// the defensive window both players may submit; the action processor
// restricts the active player to pass/acknowledge actions there.
func MayAct(phase Phase, player, active, owner string) bool {
	player = strings.TrimSpace(player)
	if player == "" || phase.IsTerminal() {
		return false
	}
	switch {
	case phase.IsSetup():
		return true
	case phase.IsInterrupt():
		return player == owner
	case phase.IsDefensiveWindow():
		return true
	default:
		return player == active
	}
}
