package ai

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap/zaptest"

	"github.com/optcgsim/duel-server-go/internal/catalog"
	"github.com/optcgsim/duel-server-go/internal/game"
)

func testSeats() [2]game.Seat {
	return [2]game.Seat{
		{PlayerID: "bot-a", Name: "Pacifista A", Decklist: catalog.StarterDecklist(catalog.StarterLeaderCrimson)},
		{PlayerID: "bot-b", Name: "Pacifista B", Decklist: catalog.StarterDecklist(catalog.StarterLeaderAzure)},
	}
}

func TestBotChoosesItselfFirst(t *testing.T) {
	cat := catalog.NewWithStarterSet()
	m, err := game.NewMatchState("m1", cat, testSeats(), game.WithSeed(11))
	if err != nil {
		t.Fatalf("new match: %v", err)
	}
	view := game.ProjectFull(m)
	if view.Chooser == "" {
		t.Fatal("no turn-order chooser in fresh match")
	}

	bot := NewBot(zaptest.NewLogger(t), view.Chooser, cat, 1)
	action := bot.NextAction(view)
	if action == nil {
		t.Fatal("chooser bot returned no action")
	}
	if action.Type != game.ActionChooseTurnOrder {
		t.Fatalf("action = %s, want %s", action.Type, game.ActionChooseTurnOrder)
	}
	if action.Data["first_player_id"] != view.Chooser {
		t.Fatalf("bot picked %q to go first, want itself %q",
			action.Data["first_player_id"], view.Chooser)
	}
}

func TestBotWaitsWhenNotItsTurn(t *testing.T) {
	cat := catalog.NewWithStarterSet()
	bot := NewBot(zaptest.NewLogger(t), "bot", cat, 1)

	view := &game.MatchView{
		MatchID: "m", Turn: 2, Phase: "MAIN", Active: "opp",
		Players: []*game.PlayerView{
			{ID: "bot", Leader: game.CardView{ID: uuid.New(), Power: 5000}},
			{ID: "opp", Leader: game.CardView{ID: uuid.New(), Power: 5000}},
		},
	}
	if action := bot.NextAction(view); action != nil {
		t.Fatalf("bot acted on the opponent's main phase: %s", action.Type)
	}
}

func TestBotBlocksOnlyWhenSafe(t *testing.T) {
	cat := catalog.NewWithStarterSet()
	leaderID := uuid.New()
	blockerID := uuid.New()

	buildView := func(attackPower int) *game.MatchView {
		return &game.MatchView{
			MatchID: "m", Turn: 3, Phase: "BLOCKER", Active: "opp",
			Players: []*game.PlayerView{
				{
					ID:     "bot",
					Leader: game.CardView{ID: leaderID, Power: 5000},
					Field: []game.CardView{
						{ID: blockerID, Power: 6000, Keywords: []string{"blocker"}},
					},
				},
				{ID: "opp", Leader: game.CardView{ID: uuid.New(), Power: 5000}},
			},
			Combat: &game.CombatView{
				TargetID:    leaderID,
				TargetKind:  game.TargetLeader,
				AttackPower: attackPower,
			},
		}
	}

	bot := NewBot(zaptest.NewLogger(t), "bot", cat, 1)
	action := bot.NextAction(buildView(5000))
	if action == nil || action.Type != game.ActionSelectBlocker {
		t.Fatalf("surviving blocker not thrown: %+v", action)
	}
	if action.Data["card_id"] != blockerID.String() {
		t.Fatalf("blocked with %s, want %s", action.Data["card_id"], blockerID)
	}

	bot = NewBot(zaptest.NewLogger(t), "bot", cat, 1)
	action = bot.NextAction(buildView(7000))
	if action == nil || action.Type != game.ActionPassPriority {
		t.Fatalf("doomed blocker thrown anyway: %+v", action)
	}
}

func TestBotCountersOnlyWhenItFlipsTheOutcome(t *testing.T) {
	cat := catalog.NewWithStarterSet()
	leaderID := uuid.New()

	// STC-001 carries counter 1000 at cost 1.
	buildView := func(attackPower, handCounters int) *game.MatchView {
		hand := make([]game.CardView, handCounters)
		for i := range hand {
			hand[i] = game.CardView{ID: uuid.New(), DefID: "STC-001", Zone: "hand"}
		}
		return &game.MatchView{
			MatchID: "m", Turn: 4, Phase: "COUNTER", Active: "opp",
			Players: []*game.PlayerView{
				{
					ID:     "bot",
					Leader: game.CardView{ID: leaderID, Power: 5000},
					Hand:   hand,
				},
				{ID: "opp", Leader: game.CardView{ID: uuid.New(), Power: 5000}},
			},
			Combat: &game.CombatView{
				TargetID:    leaderID,
				TargetKind:  game.TargetLeader,
				AttackPower: attackPower,
			},
		}
	}

	// 7000 into 5000 needs 2001 more defense; two 1000 counters cannot
	// flip it, so the hand stays put.
	bot := NewBot(zaptest.NewLogger(t), "bot", cat, 1)
	action := bot.NextAction(buildView(7000, 2))
	if action == nil || action.Type != game.ActionPassCounter {
		t.Fatalf("unwinnable counter attempted: %+v", action)
	}

	// Three counters cover the gap; the bot starts chipping.
	bot = NewBot(zaptest.NewLogger(t), "bot", cat, 1)
	action = bot.NextAction(buildView(7000, 3))
	if action == nil || action.Type != game.ActionUseCounter {
		t.Fatalf("winnable counter not attempted: %+v", action)
	}

	// A losing attack needs no help.
	bot = NewBot(zaptest.NewLogger(t), "bot", cat, 1)
	action = bot.NextAction(buildView(4000, 3))
	if action == nil || action.Type != game.ActionPassCounter {
		t.Fatalf("countered a combat that was already won: %+v", action)
	}
}

func TestBotFillsEffectAllowance(t *testing.T) {
	cat := catalog.NewWithStarterSet()
	bot := NewBot(zaptest.NewLogger(t), "bot", cat, 1)

	c1, c2 := uuid.New(), uuid.New()
	eff := &game.EffectView{
		ID: uuid.New(), OwnerID: "bot",
		Min: 0, Max: 1, Skippable: true,
		Candidates: []uuid.UUID{c1, c2},
	}

	action := bot.resolveEffect(eff)
	if action.Type != game.ActionSelectEffectTarget || action.Data["target_id"] != c1.String() {
		t.Fatalf("first pick = %+v, want select %s", action, c1)
	}

	eff.Selected = []uuid.UUID{c1}
	action = bot.resolveEffect(eff)
	if action.Type != game.ActionResolveEffect {
		t.Fatalf("allowance full but action = %s, want %s", action.Type, game.ActionResolveEffect)
	}

	// A mandatory selection that cannot be filled resolves anyway and
	// lets the engine arbitrate.
	empty := &game.EffectView{ID: uuid.New(), OwnerID: "bot", Min: 1, Max: 1}
	action = bot.resolveEffect(empty)
	if action.Type != game.ActionResolveEffect {
		t.Fatalf("unfillable mandatory effect: %s", action.Type)
	}

	// The same shape with an opt-out takes it.
	empty.Skippable = true
	action = bot.resolveEffect(empty)
	if action.Type != game.ActionSkipEffect {
		t.Fatalf("skippable unfillable effect: %s", action.Type)
	}
}

func TestBotsPlayAFullMatch(t *testing.T) {
	if testing.Short() {
		t.Skip("full bot match in short mode")
	}
	cat := catalog.NewWithStarterSet()

	results := make(chan game.MatchResult, 1)
	eng := game.NewEngine(zaptest.NewLogger(t), cat, game.WithMatchEndHook(func(res game.MatchResult) {
		results <- res
	}))
	if _, err := eng.CreateMatch("bots", testSeats(), game.WithSeed(99)); err != nil {
		t.Fatalf("create match: %v", err)
	}
	t.Cleanup(func() { eng.CloseMatch("bots") })

	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()

	errs := make(chan error, 2)
	go func() { errs <- NewBot(zaptest.NewLogger(t), "bot-a", cat, 5).Run(ctx, eng, "bots") }()
	go func() { errs <- NewBot(zaptest.NewLogger(t), "bot-b", cat, 6).Run(ctx, eng, "bots") }()

	var res game.MatchResult
	select {
	case res = <-results:
	case <-ctx.Done():
		view, _ := eng.FullView("bots")
		t.Fatalf("match did not finish; stuck at %+v", view)
	}

	if res.WinnerID != "bot-a" && res.WinnerID != "bot-b" {
		t.Fatalf("winner = %q, want one of the seats", res.WinnerID)
	}
	if res.Reason != game.WinNormal && res.Reason != game.WinDeckOut {
		t.Fatalf("reason = %q, want a played-out finish", res.Reason)
	}
	if res.Turns < 2 {
		t.Fatalf("match ended on turn %d, want a real game", res.Turns)
	}
	if res.Players[0] != "bot-a" || res.Players[1] != "bot-b" {
		t.Fatalf("players = %v, want seat order", res.Players)
	}

	for i := 0; i < 2; i++ {
		select {
		case err := <-errs:
			if err != nil {
				t.Fatalf("bot run: %v", err)
			}
		case <-time.After(5 * time.Second):
			t.Fatal("bot did not stop after the match ended")
		}
	}
}
