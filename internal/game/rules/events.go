package rules

import (
	"sync"
	"time"
)

// EventType indicates the category of a rules event.
type EventType string

const (
	// Match lifecycle events
	EventMatchStarted EventType = "MATCH_STARTED"
	EventTurnBegan    EventType = "TURN_BEGAN"
	EventPhaseChanged EventType = "PHASE_CHANGED"
	EventTurnEnded    EventType = "TURN_ENDED"
	EventMatchEnded   EventType = "MATCH_ENDED"

	// Setup events
	EventTurnOrderChosen EventType = "TURN_ORDER_CHOSEN"
	EventMulliganTaken   EventType = "MULLIGAN_TAKEN"
	EventHandKept        EventType = "HAND_KEPT"
	EventLifeDealt       EventType = "LIFE_DEALT"

	// Zone events
	EventZoneChange  EventType = "ZONE_CHANGE"
	EventCardDrawn   EventType = "CARD_DRAWN"
	EventCardPlayed  EventType = "CARD_PLAYED"
	EventCardTrashed EventType = "CARD_TRASHED"
	EventCardRested  EventType = "CARD_RESTED"
	EventCardRefresh EventType = "CARD_REFRESHED"

	// Resource events
	EventDonGained   EventType = "DON_GAINED"
	EventDonAttached EventType = "DON_ATTACHED"
	EventDonDetached EventType = "DON_DETACHED"
	EventCostPaid    EventType = "COST_PAID"

	// Combat events
	EventAttackDeclared  EventType = "ATTACK_DECLARED"
	EventBlockerDeclared EventType = "BLOCKER_DECLARED"
	EventCounterPlayed   EventType = "COUNTER_PLAYED"
	EventAttackResolved  EventType = "ATTACK_RESOLVED"
	EventLeaderHit       EventType = "LEADER_HIT"
	EventKnockout        EventType = "KNOCKOUT"
	EventTriggerRevealed EventType = "TRIGGER_REVEALED"

	// Pending effect events
	EventEffectEnqueued EventType = "EFFECT_ENQUEUED"
	EventEffectResolved EventType = "EFFECT_RESOLVED"
	EventEffectSkipped  EventType = "EFFECT_SKIPPED"
	EventEffectFizzled  EventType = "EFFECT_FIZZLED"

	// Loss condition events
	EventDeckOut    EventType = "DECK_OUT"
	EventSurrender  EventType = "SURRENDER"
	EventDisconnect EventType = "DISCONNECT"
)

// Event is a single occurrence inside a match, delivered synchronously to
// subscribers while the acting goroutine still holds the match.
type Event struct {
	Type      EventType
	ID        string
	TargetID  string // instance or player the event happened to
	SourceID  string // instance or effect that caused it
	PlayerID  string // acting player
	Amount    int    // power, count, life index, depending on type
	Flag      bool   // type-specific boolean (hit landed, conditions met)
	Data      string
	Timestamp time.Time
	Metadata  map[string]string
}

// Listener reacts to every published event.
type Listener func(Event)

// TypedListener reacts to a single event type.
type TypedListener struct {
	Handle    int
	EventType EventType
	Callback  func(Event)
}

// EventBus provides a synchronous publish/subscribe implementation with
// type filtering.
type EventBus struct {
	mu             sync.RWMutex
	listeners      map[int]Listener
	typedListeners map[EventType][]TypedListener
	nextHandle     int
}

// NewEventBus constructs a fresh event bus instance.
func NewEventBus() *EventBus {
	return &EventBus{
		listeners:      make(map[int]Listener),
		typedListeners: make(map[EventType][]TypedListener),
	}
}

// Subscribe registers a listener for all events and returns a handle.
func (bus *EventBus) Subscribe(listener Listener) int {
	if listener == nil {
		return -1
	}
	bus.mu.Lock()
	defer bus.mu.Unlock()
	handle := bus.nextHandle
	bus.nextHandle++
	bus.listeners[handle] = listener
	return handle
}

// SubscribeTyped registers a listener for a specific event type.
func (bus *EventBus) SubscribeTyped(eventType EventType, callback func(Event)) int {
	if callback == nil {
		return -1
	}
	bus.mu.Lock()
	defer bus.mu.Unlock()
	handle := bus.nextHandle
	bus.nextHandle++
	bus.typedListeners[eventType] = append(bus.typedListeners[eventType], TypedListener{
		Handle:    handle,
		EventType: eventType,
		Callback:  callback,
	})
	return handle
}

// Unsubscribe removes the listener identified by the provided handle.
func (bus *EventBus) Unsubscribe(handle int) {
	bus.mu.Lock()
	defer bus.mu.Unlock()
	delete(bus.listeners, handle)
	for eventType, listeners := range bus.typedListeners {
		for i := len(listeners) - 1; i >= 0; i-- {
			if listeners[i].Handle == handle {
				bus.typedListeners[eventType] = append(listeners[:i], listeners[i+1:]...)
				break
			}
		}
	}
}

// Publish delivers the event to all registered listeners synchronously.
func (bus *EventBus) Publish(event Event) {
	bus.mu.RLock()
	defer bus.mu.RUnlock()

	for _, listener := range bus.listeners {
		listener(event)
	}
	if typed, ok := bus.typedListeners[event.Type]; ok {
		for _, listener := range typed {
			listener.Callback(event)
		}
	}
}

// NewEvent creates an event with common fields populated.
func NewEvent(eventType EventType, targetID, sourceID, playerID string) Event {
	return Event{
		Type:      eventType,
		TargetID:  targetID,
		SourceID:  sourceID,
		PlayerID:  playerID,
		Timestamp: time.Now(),
		Metadata:  make(map[string]string),
	}
}

// NewEventWithAmount creates an event carrying a numeric value.
func NewEventWithAmount(eventType EventType, targetID, sourceID, playerID string, amount int) Event {
	evt := NewEvent(eventType, targetID, sourceID, playerID)
	evt.Amount = amount
	return evt
}

// NewEventWithFlag creates an event carrying a boolean flag.
func NewEventWithFlag(eventType EventType, targetID, sourceID, playerID string, flag bool) Event {
	evt := NewEvent(eventType, targetID, sourceID, playerID)
	evt.Flag = flag
	return evt
}
