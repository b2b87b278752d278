// Package timers arms a decision clock per match and submits the phase
// default when one expires. Expiry goes through the same SubmitAction
// path as player input, so the rules code never sees a special case.
package timers

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/optcgsim/duel-server-go/internal/game"
	"github.com/optcgsim/duel-server-go/internal/game/rules"
)

// submitTimeout bounds how long an expiry waits on the match worker.
const submitTimeout = 5 * time.Second

// Limits carries one duration per decision window. A zero duration
// disables that window's clock.
type Limits struct {
	Turn      time.Duration
	Response  time.Duration
	Effect    time.Duration
	Mulligan  time.Duration
	TurnOrder time.Duration
}

// forPhase maps a phase name to the clock that governs it.
func (l Limits) forPhase(name string) time.Duration {
	phase, ok := rules.ParsePhase(name)
	if !ok || phase.IsTerminal() {
		return 0
	}
	switch phase {
	case rules.PhaseDetermineTurnOrder:
		return l.TurnOrder
	case rules.PhaseAttackEffect, rules.PhaseCounterEffect:
		return l.Effect
	}
	switch {
	case phase.IsSetup():
		return l.Mulligan
	case phase.IsInterrupt():
		return l.Effect
	case phase.IsDefensiveWindow():
		return l.Response
	default:
		return l.Turn
	}
}

// Service watches matches and fills stalled decision windows with the
// engine's defaults. One Watch goroutine per match.
type Service struct {
	log    *zap.Logger
	engine *game.Engine
	limits Limits

	mu    sync.Mutex
	armed map[string]*time.Timer
}

// NewService builds the clock service around an engine.
func NewService(log *zap.Logger, engine *game.Engine, limits Limits) *Service {
	if log == nil {
		log = zap.NewNop()
	}
	return &Service{
		log:    log.Named("timers"),
		engine: engine,
		limits: limits,
		armed:  make(map[string]*time.Timer),
	}
}

// Watch follows one match until it ends, arming a fresh clock each time
// the decision window changes. It returns when the match finishes, the
// context is cancelled, or the match is unknown.
func (s *Service) Watch(ctx context.Context, matchID string) error {
	seatID, err := s.firstSeat(matchID)
	if err != nil {
		return err
	}

	// State notifications fan out per seat; follow the first seat's
	// stream. Its sanitized view still carries phase, turn, and the
	// active player, which is all the clock needs.
	ch, cancel, err := s.engine.Subscribe(matchID, seatID, 16)
	if err != nil {
		return err
	}
	defer cancel()
	defer s.disarm(matchID)

	// Snapshot after subscribing so any change in between still shows
	// up on the channel.
	view, err := s.engine.FullView(matchID)
	if err != nil {
		return err
	}
	entry := entryKey(view)
	s.arm(matchID, view)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case n, ok := <-ch:
			if !ok {
				return nil
			}
			if n.Type == game.NotifyMatchOver {
				return nil
			}
			if n.Type != game.NotifyState || n.View == nil {
				continue
			}
			if key := entryKey(n.View); key != entry {
				entry = key
				s.arm(matchID, n.View)
			}
		}
	}
}

func (s *Service) firstSeat(matchID string) (string, error) {
	view, err := s.engine.FullView(matchID)
	if err != nil {
		return "", err
	}
	if len(view.Players) == 0 {
		return "", fmt.Errorf("match %s has no seats", matchID)
	}
	return view.Players[0].ID, nil
}

// entryKey identifies one decision window. A new phase, turn, or turn
// owner re-arms the clock; actions inside the same window do not.
func entryKey(v *game.MatchView) string {
	return fmt.Sprintf("%s|%s|%d", v.Phase, v.Active, v.Turn)
}

func (s *Service) arm(matchID string, v *game.MatchView) {
	limit := s.limits.forPhase(v.Phase)
	key := entryKey(v)

	s.mu.Lock()
	defer s.mu.Unlock()
	if t, ok := s.armed[matchID]; ok {
		t.Stop()
		delete(s.armed, matchID)
	}
	if limit <= 0 {
		return
	}
	s.armed[matchID] = time.AfterFunc(limit, func() {
		s.expire(matchID, key)
	})
}

func (s *Service) disarm(matchID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if t, ok := s.armed[matchID]; ok {
		t.Stop()
		delete(s.armed, matchID)
	}
}

// expire submits the default action for every player still owing a
// decision in the expired window. The key recheck before each player
// stops the sweep as soon as the window moves on, so a fresh window
// always gets its own full clock.
func (s *Service) expire(matchID, key string) {
	view, err := s.engine.FullView(matchID)
	if err != nil || entryKey(view) != key {
		return
	}
	s.log.Info("decision clock expired",
		zap.String("matchId", matchID),
		zap.String("phase", view.Phase))

	for _, p := range view.Players {
		current, err := s.engine.FullView(matchID)
		if err != nil || entryKey(current) != key {
			return
		}
		action, err := s.engine.DefaultActionFor(matchID, p.ID)
		if err != nil || action == nil {
			continue
		}
		subCtx, cancel := context.WithTimeout(context.Background(), submitTimeout)
		err = s.engine.SubmitAction(subCtx, matchID, action)
		cancel()
		if err != nil {
			s.log.Debug("default action rejected",
				zap.String("matchId", matchID),
				zap.String("playerId", p.ID),
				zap.String("actionType", string(action.Type)),
				zap.Error(err))
		}
	}
}
