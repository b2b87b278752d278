package game

import (
	"fmt"
	"math/rand"
	"time"

	"github.com/google/uuid"

	"github.com/optcgsim/duel-server-go/internal/catalog"
	"github.com/optcgsim/duel-server-go/internal/game/rules"
)

// Zone locates a card instance inside its owner's arena.
type Zone int

const (
	ZoneDeck Zone = iota
	ZoneHand
	ZoneField
	ZoneLeader
	ZoneStage
	ZoneLife
	ZoneTrash
	ZoneDonDeck
	ZoneDonField
	ZoneRemoved
)

var zoneNames = map[Zone]string{
	ZoneDeck:     "DECK",
	ZoneHand:     "HAND",
	ZoneField:    "FIELD",
	ZoneLeader:   "LEADER",
	ZoneStage:    "STAGE",
	ZoneLife:     "LIFE",
	ZoneTrash:    "TRASH",
	ZoneDonDeck:  "DON_DECK",
	ZoneDonField: "DON_FIELD",
	ZoneRemoved:  "REMOVED",
}

func (z Zone) String() string {
	if name, ok := zoneNames[z]; ok {
		return name
	}
	return fmt.Sprintf("ZONE_%d", int(z))
}

// Hidden reports whether card identity in this zone is concealed from the
// opponent unless an instance is individually revealed.
func (z Zone) Hidden() bool {
	switch z {
	case ZoneDeck, ZoneHand, ZoneLife, ZoneDonDeck:
		return true
	}
	return false
}

// BuffExpiry scopes a power delta.
type BuffExpiry int

const (
	ExpiryPermanent BuffExpiry = iota
	ExpiryTurn
	ExpiryBattle
)

// PowerBuff is one signed power delta with its source.
type PowerBuff struct {
	Amount   int        `json:"amount"`
	SourceID string     `json:"source_id"`
	Expiry   BuffExpiry `json:"expiry"`
}

// CardInstance is one physical card in a match. Instances live in their
// owner's flat arena table for the whole match; movement and attachment
// are single field writes, never record surgery.
type CardInstance struct {
	ID         uuid.UUID `json:"id"`
	DefID      string    `json:"def_id"`
	OwnerID    string    `json:"owner_id"`
	Zone       Zone      `json:"zone"`
	Rested     bool      `json:"rested"`
	AttachedTo uuid.UUID `json:"attached_to"` // uuid.Nil when unattached; DON only
	IsDon      bool      `json:"is_don"`

	Buffs        []PowerBuff       `json:"buffs,omitempty"`
	Keywords     []catalog.Keyword `json:"keywords,omitempty"`      // granted for the match
	TempKeywords []catalog.Keyword `json:"temp_keywords,omitempty"` // cleared at end of turn

	PlayedTurn        int  `json:"played_turn"` // 0 while never fielded
	AttackedThisTurn  bool `json:"attacked_this_turn"`
	ActivatedThisTurn bool `json:"activated_this_turn"`
	Revealed          bool `json:"revealed"`
}

// TargetKind distinguishes what an attack is aimed at.
type TargetKind string

const (
	TargetLeader    TargetKind = "leader"
	TargetCharacter TargetKind = "character"
)

// CurrentCombat is the single in-flight attack. Created at declaration,
// destroyed when the combat chain completes.
type CurrentCombat struct {
	AttackerID  uuid.UUID  `json:"attacker_id"`
	TargetID    uuid.UUID  `json:"target_id"`
	TargetKind  TargetKind `json:"target_kind"`
	AttackPower int        `json:"attack_power"` // snapshot, refreshed by attacker-side buffs
	CounterPower int       `json:"counter_power"`
	EffectBuff  int        `json:"effect_buff"` // defender-side battle buffs
	Blocked     bool       `json:"blocked"`
}

// DefenseTotal is the full defender-side power at resolution.
func (c *CurrentCombat) DefenseTotal(targetBase int) int {
	return targetBase + c.CounterPower + c.EffectBuff
}

// WinReason is the closed set of game-end reasons.
type WinReason string

const (
	WinNormal     WinReason = "normal"
	WinDeckOut    WinReason = "deck-out"
	WinSurrender  WinReason = "surrender"
	WinDisconnect WinReason = "disconnect"
	// WinTimeout is reserved for deployments that adjudicate stalled
	// matches instead of auto-playing defaults; the engine itself never
	// mints it.
	WinTimeout WinReason = "timeout"
)

// PlayerState holds one player's arena and zone ordering. The arena owns
// every instance the player brought to the match; the slices hold ids only.
type PlayerState struct {
	ID   string `json:"id"`
	Name string `json:"name"`

	Cards map[uuid.UUID]*CardInstance `json:"cards"`

	Deck     []uuid.UUID `json:"deck"` // index 0 is the top
	Hand     []uuid.UUID `json:"hand"`
	Field    []uuid.UUID `json:"field"`
	LeaderID uuid.UUID   `json:"leader_id"`
	StageID  uuid.UUID   `json:"stage_id"` // uuid.Nil when no stage
	Life     []uuid.UUID `json:"life"` // index 0 is the top
	Trash    []uuid.UUID `json:"trash"`
	DonDeck  []uuid.UUID `json:"don_deck"`
	DonField []uuid.UUID `json:"don_field"`

	MulliganDone bool `json:"mulligan_done"`
	PreGameDone  bool `json:"pre_game_done"`

	DonGainedThisTurn   int `json:"don_gained_this_turn"`
	CardsPlayedThisTurn int `json:"cards_played_this_turn"`
}

// Card returns the instance for an id in this player's arena.
func (p *PlayerState) Card(id uuid.UUID) (*CardInstance, bool) {
	card, ok := p.Cards[id]
	return card, ok
}

// Leader returns the leader instance.
func (p *PlayerState) Leader() *CardInstance {
	return p.Cards[p.LeaderID]
}

// MatchState is the root aggregate for one duel. It is owned by exactly one
// action-processing goroutine; every other component receives it by
// reference for the duration of one action.
type MatchState struct {
	ID      string                  `json:"id"`
	Machine *rules.Machine          `json:"-"`
	Turn    int                     `json:"turn"`
	Active  string                  `json:"active_player_id"`
	First   string                  `json:"first_player_id"`
	Chooser string                  `json:"turn_order_chooser"`
	Players map[string]*PlayerState `json:"players"`
	Seats   [2]string               `json:"seats"` // deterministic iteration order

	Combat        *CurrentCombat `json:"combat,omitempty"`
	Pending       *PendingSet    `json:"pending"`
	TriggerCardID uuid.UUID      `json:"trigger_card_id,omitempty"`

	WinnerID string    `json:"winner_id,omitempty"`
	Reason   WinReason `json:"reason,omitempty"`

	CreatedAt time.Time `json:"created_at"`

	catalog *catalog.Catalog
	bus     *rules.EventBus
	rng     *rand.Rand
	seed    int64
}

// Seed returns the RNG seed the match was built with. Replays feed it
// back through WithSeed to reproduce every shuffle.
func (m *MatchState) Seed() int64 {
	return m.seed
}

// Phase returns the machine's current phase.
func (m *MatchState) Phase() rules.Phase {
	return m.Machine.Current()
}

// Player returns a player's state by id.
func (m *MatchState) Player(id string) (*PlayerState, bool) {
	p, ok := m.Players[id]
	return p, ok
}

// Opponent returns the other player's state.
func (m *MatchState) Opponent(id string) *PlayerState {
	if m.Seats[0] == id {
		return m.Players[m.Seats[1]]
	}
	return m.Players[m.Seats[0]]
}

// Finished reports whether the match reached the terminal phase.
func (m *MatchState) Finished() bool {
	return m.Phase().IsTerminal()
}

// Definition resolves a card instance's immutable definition.
func (m *MatchState) Definition(inst *CardInstance) (*catalog.Card, bool) {
	if inst == nil || inst.IsDon {
		return nil, false
	}
	return m.catalog.Lookup(inst.DefID)
}

// Events exposes the match event bus.
func (m *MatchState) Events() *rules.EventBus {
	return m.bus
}

// findInstance locates an instance across both arenas.
func (m *MatchState) findInstance(id uuid.UUID) (*CardInstance, *PlayerState, bool) {
	for _, seat := range m.Seats {
		p := m.Players[seat]
		if card, ok := p.Cards[id]; ok {
			return card, p, true
		}
	}
	return nil, nil, false
}

func (m *MatchState) publish(evt rules.Event) {
	if m.bus != nil {
		m.bus.Publish(evt)
	}
}
