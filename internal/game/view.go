package game

import (
	"time"

	"github.com/google/uuid"
)

// CardView is one card as a viewer is allowed to see it. Hidden cards
// keep their instance id so clients can track movement between zones
// without learning the face.
type CardView struct {
	ID         uuid.UUID `json:"id"`
	DefID      string    `json:"def_id,omitempty"`
	Zone       string    `json:"zone"`
	Rested     bool      `json:"rested,omitempty"`
	AttachedTo uuid.UUID `json:"attached_to,omitempty"`
	IsDon      bool      `json:"is_don,omitempty"`
	Power      int       `json:"power,omitempty"`
	Keywords   []string  `json:"keywords,omitempty"`
	Revealed   bool      `json:"revealed,omitempty"`
	Hidden     bool      `json:"hidden,omitempty"`
}

// PlayerView is one side of the board. Hidden piles are projected as
// counts; their contents only appear when a card's reveal flag is set.
type PlayerView struct {
	ID           string     `json:"id"`
	Name         string     `json:"name"`
	Leader       CardView   `json:"leader"`
	Field        []CardView `json:"field"`
	Stage        *CardView  `json:"stage,omitempty"`
	Hand         []CardView `json:"hand"`
	HandCount    int        `json:"hand_count"`
	DeckCount    int        `json:"deck_count"`
	LifeCount    int        `json:"life_count"`
	Trash        []CardView `json:"trash"`
	DonField     []CardView `json:"don_field"`
	DonDeckCount int        `json:"don_deck_count"`
}

// CombatView mirrors the open attack. Both sides see the running totals.
type CombatView struct {
	AttackerID   uuid.UUID  `json:"attacker_id"`
	TargetID     uuid.UUID  `json:"target_id"`
	TargetKind   TargetKind `json:"target_kind"`
	AttackPower  int        `json:"attack_power"`
	CounterPower int        `json:"counter_power"`
	EffectBuff   int        `json:"effect_buff"`
	Blocked      bool       `json:"blocked"`
}

// EffectView is the pending effect head. Candidates and selections are
// the owner's private decision space.
type EffectView struct {
	ID          uuid.UUID   `json:"id"`
	Kind        string      `json:"kind"`
	OwnerID     string      `json:"owner_id"`
	Description string      `json:"description"`
	Min         int         `json:"min"`
	Max         int         `json:"max"`
	Skippable   bool        `json:"skippable"`
	Candidates  []uuid.UUID `json:"candidates,omitempty"`
	Selected    []uuid.UUID `json:"selected,omitempty"`
	Revealed    []CardView  `json:"revealed,omitempty"`
}

// MatchView is the full per-viewer projection sent over the wire.
type MatchView struct {
	MatchID  string      `json:"match_id"`
	ViewerID string      `json:"viewer_id,omitempty"`
	Turn     int         `json:"turn"`
	Phase    string      `json:"phase"`
	Active   string      `json:"active_player_id"`
	First    string      `json:"first_player_id,omitempty"`
	Chooser  string      `json:"turn_order_chooser,omitempty"`
	You      *PlayerView `json:"you,omitempty"`
	Opponent *PlayerView `json:"opponent,omitempty"`
	Players  []*PlayerView `json:"players,omitempty"`
	Combat   *CombatView `json:"combat,omitempty"`
	Effect   *EffectView `json:"effect,omitempty"`
	WinnerID string      `json:"winner_id,omitempty"`
	Reason   WinReason   `json:"reason,omitempty"`
	At       time.Time   `json:"at"`
}

// Project builds the sanitized view for one player. It never mutates the
// match; projecting twice yields the same result.
func Project(m *MatchState, viewerID string) *MatchView {
	view := baseView(m)
	view.ViewerID = viewerID
	if you, ok := m.Players[viewerID]; ok {
		view.You = projectPlayer(m, you, viewerID, false)
		view.Opponent = projectPlayer(m, m.Opponent(viewerID), viewerID, false)
	}
	view.Effect = projectEffect(m, viewerID, false)
	return view
}

// ProjectFull builds the omniscient view: every hidden pile face-up, in
// order. It feeds the bot and match inspection, never the client wire.
func ProjectFull(m *MatchState) *MatchView {
	view := baseView(m)
	for _, seat := range m.Seats {
		view.Players = append(view.Players, projectPlayer(m, m.Players[seat], "", true))
	}
	view.Effect = projectEffect(m, "", true)
	return view
}

func baseView(m *MatchState) *MatchView {
	view := &MatchView{
		MatchID:  m.ID,
		Turn:     m.Turn,
		Phase:    m.Phase().String(),
		Active:   m.Active,
		First:    m.First,
		Chooser:  m.Chooser,
		WinnerID: m.WinnerID,
		Reason:   m.Reason,
		At:       time.Now().UTC(),
	}
	if m.Combat != nil {
		view.Combat = &CombatView{
			AttackerID:   m.Combat.AttackerID,
			TargetID:     m.Combat.TargetID,
			TargetKind:   m.Combat.TargetKind,
			AttackPower:  m.Combat.AttackPower,
			CounterPower: m.Combat.CounterPower,
			EffectBuff:   m.Combat.EffectBuff,
			Blocked:      m.Combat.Blocked,
		}
	}
	return view
}

func projectPlayer(m *MatchState, p *PlayerState, viewerID string, full bool) *PlayerView {
	own := full || p.ID == viewerID
	view := &PlayerView{
		ID:           p.ID,
		Name:         p.Name,
		Leader:       faceUpCard(m, p, p.LeaderID),
		HandCount:    len(p.Hand),
		DeckCount:    len(p.Deck),
		LifeCount:    len(p.Life),
		DonDeckCount: len(p.DonDeck),
		Field:        make([]CardView, 0, len(p.Field)),
		Hand:         make([]CardView, 0, len(p.Hand)),
		Trash:        make([]CardView, 0, len(p.Trash)),
		DonField:     make([]CardView, 0, len(p.DonField)),
	}
	for _, id := range p.Field {
		view.Field = append(view.Field, faceUpCard(m, p, id))
	}
	if p.StageID != uuid.Nil {
		stage := faceUpCard(m, p, p.StageID)
		view.Stage = &stage
	}
	for _, id := range p.Hand {
		card := p.Cards[id]
		if own || card.Revealed {
			view.Hand = append(view.Hand, faceUpCard(m, p, id))
		} else {
			view.Hand = append(view.Hand, hiddenCard(card))
		}
	}
	for _, id := range p.Trash {
		view.Trash = append(view.Trash, faceUpCard(m, p, id))
	}
	for _, id := range p.DonField {
		view.DonField = append(view.DonField, faceUpCard(m, p, id))
	}
	return view
}

// faceUpCard projects a public card with its computed board power and the
// keyword set in force.
func faceUpCard(m *MatchState, p *PlayerState, id uuid.UUID) CardView {
	card := p.Cards[id]
	view := CardView{
		ID:         card.ID,
		DefID:      card.DefID,
		Zone:       card.Zone.String(),
		Rested:     card.Rested,
		AttachedTo: card.AttachedTo,
		IsDon:      card.IsDon,
		Revealed:   card.Revealed,
	}
	if card.Zone == ZoneField || card.Zone == ZoneLeader {
		view.Power = m.effectivePower(p, id)
		view.Keywords = keywordsInForce(m, card)
	}
	return view
}

func hiddenCard(card *CardInstance) CardView {
	return CardView{ID: card.ID, Zone: card.Zone.String(), Hidden: true}
}

func keywordsInForce(m *MatchState, card *CardInstance) []string {
	var out []string
	if def, ok := m.Definition(card); ok {
		for _, k := range def.Keywords {
			out = append(out, string(k))
		}
	}
	for _, k := range card.Keywords {
		out = append(out, string(k))
	}
	for _, k := range card.TempKeywords {
		out = append(out, string(k))
	}
	return out
}

// projectEffect exposes the pending head. Only its owner sees candidates,
// selections, and cards revealed for the decision.
func projectEffect(m *MatchState, viewerID string, full bool) *EffectView {
	kind, eff, ok := m.pendingContext()
	if !ok {
		return nil
	}
	view := &EffectView{
		ID:          eff.ID,
		Kind:        kind.String(),
		OwnerID:     eff.OwnerID,
		Description: eff.Description,
		Min:         eff.Min,
		Max:         eff.Max,
		Skippable:   eff.Skippable,
	}
	if !full && viewerID != eff.OwnerID {
		return view
	}
	view.Candidates = append([]uuid.UUID(nil), eff.Candidates...)
	view.Selected = append([]uuid.UUID(nil), eff.Selected...)
	if owner, ok := m.Players[eff.OwnerID]; ok {
		for _, id := range eff.Revealed {
			if _, exists := owner.Cards[id]; exists {
				view.Revealed = append(view.Revealed, faceUpCard(m, owner, id))
			}
		}
	}
	return view
}
