package game

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/optcgsim/duel-server-go/internal/catalog"
	"github.com/optcgsim/duel-server-go/internal/game/rules"
)

// Notification types pushed to subscribers.
const (
	NotifyState     = "state"
	NotifyEvent     = "event"
	NotifyNote      = "note"
	NotifyMatchOver = "match_over"
)

// Notification is one message on a subscriber stream: a fresh sanitized
// view, a relayed game event, a targeted informational note, or the
// terminal match-over notice carrying the winner and reason.
type Notification struct {
	Type     string       `json:"type"`
	MatchID  string       `json:"match_id"`
	PlayerID string       `json:"player_id,omitempty"`
	View     *MatchView   `json:"view,omitempty"`
	Event    *rules.Event `json:"event,omitempty"`
	Note     string       `json:"note,omitempty"`
	WinnerID string       `json:"winner_id,omitempty"`
	Reason   WinReason    `json:"reason,omitempty"`
	At       time.Time    `json:"at"`
}

// MatchResult summarizes a finished match for persistence. Players
// holds both seats in seat order regardless of who won.
type MatchResult struct {
	MatchID   string    `json:"match_id"`
	Players   [2]string `json:"players"`
	WinnerID  string    `json:"winner_id"`
	LoserID   string    `json:"loser_id"`
	Reason    WinReason `json:"reason"`
	Turns     int       `json:"turns"`
	StartedAt time.Time `json:"started_at"`
	EndedAt   time.Time `json:"ended_at"`
}

// EngineOption adjusts engine construction.
type EngineOption func(*Engine)

// WithMatchEndHook registers a callback invoked once per finished match,
// after the final notifications go out.
func WithMatchEndHook(hook func(MatchResult)) EngineOption {
	return func(e *Engine) {
		e.onMatchEnd = hook
	}
}

// Engine hosts concurrent matches. Each match runs on its own worker
// goroutine; submissions are serialized through a channel so the rules
// code never sees two actions at once.
type Engine struct {
	log     *zap.Logger
	catalog *catalog.Catalog

	mu      sync.RWMutex
	matches map[string]*runningMatch

	onMatchEnd func(MatchResult)
}

type submission struct {
	run   func() error
	reply chan error
}

type runningMatch struct {
	id    string
	log   *zap.Logger
	state *MatchState

	mu     sync.RWMutex
	events []rules.Event

	actions chan submission
	done    chan struct{}
	closer  sync.Once

	subMu   sync.Mutex
	subs    map[int]subscriber
	nextSub int

	replay *ReplayLog
}

type subscriber struct {
	playerID string
	ch       chan Notification
}

// NewEngine creates an engine serving matches from the given catalog.
func NewEngine(log *zap.Logger, cat *catalog.Catalog, opts ...EngineOption) *Engine {
	if log == nil {
		log = zap.NewNop()
	}
	e := &Engine{
		log:     log,
		catalog: cat,
		matches: make(map[string]*runningMatch),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// CreateMatch builds a match, starts its worker, and returns the state
// handle. The handle is live; read it through View/FullView, not directly.
func (e *Engine) CreateMatch(id string, seats [2]Seat, opts ...MatchOption) (*MatchState, error) {
	state, err := NewMatchState(id, e.catalog, seats, opts...)
	if err != nil {
		return nil, err
	}

	rm := &runningMatch{
		id:      id,
		log:     e.log.With(zap.String("matchId", id)),
		state:   state,
		actions: make(chan submission),
		done:    make(chan struct{}),
		subs:    make(map[int]subscriber),
		replay:  NewReplayLog(id, seats, state.Seed()),
	}
	// Events published during Apply accumulate until the worker flushes
	// them to subscribers after the action commits.
	state.Events().Subscribe(func(evt rules.Event) {
		rm.events = append(rm.events, evt)
	})

	e.mu.Lock()
	if _, exists := e.matches[id]; exists {
		e.mu.Unlock()
		return nil, fmt.Errorf("match %s already exists", id)
	}
	e.matches[id] = rm
	e.mu.Unlock()

	rm.log.Info("match created",
		zap.String("playerA", seats[0].PlayerID),
		zap.String("playerB", seats[1].PlayerID))
	go e.runMatch(rm)
	return state, nil
}

func (e *Engine) match(id string) (*runningMatch, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	rm, ok := e.matches[id]
	if !ok {
		return nil, fmt.Errorf("match %s not found", id)
	}
	return rm, nil
}

// SubmitAction routes one action to the match worker and waits for the
// verdict. Rejections return the rules error unchanged.
func (e *Engine) SubmitAction(ctx context.Context, matchID string, action *Action) error {
	rm, err := e.match(matchID)
	if err != nil {
		return err
	}
	sub := submission{
		run: func() error {
			rm.mu.Lock()
			defer rm.mu.Unlock()
			if err := rm.state.Apply(action); err != nil {
				rm.log.Debug("action rejected",
					zap.String("actionType", string(action.Type)),
					zap.String("playerId", action.PlayerID),
					zap.Error(err))
				return err
			}
			rm.replay.Record(action)
			rm.log.Info("action applied",
				zap.String("actionType", string(action.Type)),
				zap.String("playerId", action.PlayerID),
				zap.String("phase", rm.state.Phase().String()))
			return nil
		},
		reply: make(chan error, 1),
	}
	select {
	case rm.actions <- sub:
	case <-rm.done:
		return fmt.Errorf("match %s is closed", matchID)
	case <-ctx.Done():
		return ctx.Err()
	}
	select {
	case err := <-sub.reply:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// HandleDisconnect forfeits the match for a dropped player.
func (e *Engine) HandleDisconnect(ctx context.Context, matchID, playerID string) error {
	rm, err := e.match(matchID)
	if err != nil {
		return err
	}
	sub := submission{
		run: func() error {
			rm.mu.Lock()
			defer rm.mu.Unlock()
			rm.state.handleDisconnect(playerID)
			return nil
		},
		reply: make(chan error, 1),
	}
	select {
	case rm.actions <- sub:
	case <-rm.done:
		return nil // already closed, nothing to forfeit
	case <-ctx.Done():
		return ctx.Err()
	}
	select {
	case err := <-sub.reply:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (e *Engine) runMatch(rm *runningMatch) {
	for {
		select {
		case sub := <-rm.actions:
			err := sub.run()
			sub.reply <- err
			if err != nil {
				continue
			}
			e.flush(rm)
			if rm.finished() {
				e.finish(rm)
				return
			}
		case <-rm.done:
			return
		}
	}
}

func (rm *runningMatch) finished() bool {
	rm.mu.RLock()
	defer rm.mu.RUnlock()
	return rm.state.Finished()
}

// flush delivers accumulated events and fresh per-player views to every
// subscriber. Fizzle notes go only to the effect's owner.
func (e *Engine) flush(rm *runningMatch) {
	rm.mu.Lock()
	events := rm.events
	rm.events = nil
	views := make(map[string]*MatchView, 2)
	for _, seat := range rm.state.Seats {
		views[seat] = Project(rm.state, seat)
	}
	rm.mu.Unlock()

	now := time.Now().UTC()
	rm.subMu.Lock()
	defer rm.subMu.Unlock()
	for _, sub := range rm.subs {
		for i := range events {
			evt := events[i]
			if evt.Type == rules.EventEffectFizzled {
				if sub.playerID != evt.PlayerID {
					continue
				}
				rm.deliver(sub, Notification{Type: NotifyNote, MatchID: rm.id, PlayerID: sub.playerID, Note: evt.Data, At: now})
				continue
			}
			rm.deliver(sub, Notification{Type: NotifyEvent, MatchID: rm.id, PlayerID: sub.playerID, Event: &evt, At: now})
		}
		if view, ok := views[sub.playerID]; ok {
			rm.deliver(sub, Notification{Type: NotifyState, MatchID: rm.id, PlayerID: sub.playerID, View: view, At: now})
		}
	}
}

// deliver pushes without blocking; a subscriber that cannot keep up
// loses the notification and catches up on the next state push.
func (rm *runningMatch) deliver(sub subscriber, n Notification) {
	select {
	case sub.ch <- n:
	default:
		rm.log.Warn("subscriber lagging, notification dropped",
			zap.String("playerId", sub.playerID),
			zap.String("notificationType", n.Type))
	}
}

func (e *Engine) finish(rm *runningMatch) {
	rm.mu.RLock()
	result := MatchResult{
		MatchID:   rm.id,
		Players:   rm.state.Seats,
		WinnerID:  rm.state.WinnerID,
		Reason:    rm.state.Reason,
		Turns:     rm.state.Turn,
		StartedAt: rm.state.CreatedAt,
		EndedAt:   time.Now().UTC(),
	}
	if winner, ok := rm.state.Player(result.WinnerID); ok {
		result.LoserID = rm.state.Opponent(winner.ID).ID
	}
	rm.mu.RUnlock()

	rm.subMu.Lock()
	for id, sub := range rm.subs {
		rm.deliver(sub, Notification{
			Type:     NotifyMatchOver,
			MatchID:  rm.id,
			PlayerID: sub.playerID,
			WinnerID: result.WinnerID,
			Reason:   result.Reason,
			At:       result.EndedAt,
		})
		close(sub.ch)
		delete(rm.subs, id)
	}
	rm.subMu.Unlock()

	rm.closer.Do(func() { close(rm.done) })
	rm.log.Info("match finished",
		zap.String("winnerId", result.WinnerID),
		zap.String("reason", string(result.Reason)),
		zap.Int("turns", result.Turns))
	if e.onMatchEnd != nil {
		e.onMatchEnd(result)
	}
}

// Subscribe attaches a notification stream for one player. The returned
// cancel is idempotent; the channel closes when the match ends.
func (e *Engine) Subscribe(matchID, playerID string, buffer int) (<-chan Notification, func(), error) {
	rm, err := e.match(matchID)
	if err != nil {
		return nil, nil, err
	}
	if buffer <= 0 {
		buffer = 64
	}
	ch := make(chan Notification, buffer)

	rm.subMu.Lock()
	id := rm.nextSub
	rm.nextSub++
	rm.subs[id] = subscriber{playerID: playerID, ch: ch}
	rm.subMu.Unlock()

	cancel := func() {
		rm.subMu.Lock()
		defer rm.subMu.Unlock()
		if sub, ok := rm.subs[id]; ok {
			delete(rm.subs, id)
			close(sub.ch)
		}
	}
	return ch, cancel, nil
}

// View returns the sanitized projection for one player.
func (e *Engine) View(matchID, viewerID string) (*MatchView, error) {
	rm, err := e.match(matchID)
	if err != nil {
		return nil, err
	}
	rm.mu.RLock()
	defer rm.mu.RUnlock()
	return Project(rm.state, viewerID), nil
}

// FullView returns the omniscient projection. Trusted callers only; it
// exposes hidden piles.
func (e *Engine) FullView(matchID string) (*MatchView, error) {
	rm, err := e.match(matchID)
	if err != nil {
		return nil, err
	}
	rm.mu.RLock()
	defer rm.mu.RUnlock()
	return ProjectFull(rm.state), nil
}

// DefaultActionFor computes the timeout move for a player, or nil when
// the player has no pending decision.
func (e *Engine) DefaultActionFor(matchID, playerID string) (*Action, error) {
	rm, err := e.match(matchID)
	if err != nil {
		return nil, err
	}
	rm.mu.RLock()
	defer rm.mu.RUnlock()
	return DefaultAction(rm.state, playerID), nil
}

// Replay returns the accepted-action log for a match.
func (e *Engine) Replay(matchID string) (*ReplayLog, error) {
	rm, err := e.match(matchID)
	if err != nil {
		return nil, err
	}
	return rm.replay, nil
}

// CloseMatch stops the worker and drops the match. Safe to call twice.
func (e *Engine) CloseMatch(matchID string) {
	e.mu.Lock()
	rm, ok := e.matches[matchID]
	if ok {
		delete(e.matches, matchID)
	}
	e.mu.Unlock()
	if !ok {
		return
	}
	rm.closer.Do(func() { close(rm.done) })
	rm.subMu.Lock()
	for id, sub := range rm.subs {
		close(sub.ch)
		delete(rm.subs, id)
	}
	rm.subMu.Unlock()
}

// MatchIDs lists the matches currently hosted.
func (e *Engine) MatchIDs() []string {
	e.mu.RLock()
	defer e.mu.RUnlock()
	ids := make([]string, 0, len(e.matches))
	for id := range e.matches {
		ids = append(ids, id)
	}
	return ids
}
