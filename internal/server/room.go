package server

import (
	"context"
	"crypto/rand"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/optcgsim/duel-server-go/internal/ai"
	"github.com/optcgsim/duel-server-go/internal/auth"
	"github.com/optcgsim/duel-server-go/internal/catalog"
	"github.com/optcgsim/duel-server-go/internal/game"
)

// session tracks who sits where in a running match and which socket, if
// any, currently holds each seat.
type session struct {
	matchID string

	mu    sync.Mutex
	seats map[string]*seatLink
}

// seatLink binds one seat to at most one live client. cancelSub tears
// down the engine subscription feeding that client.
type seatLink struct {
	playerID  string
	name      string
	seat      int
	bot       bool
	client    *Client
	cancelSub func()
	rejoin    *time.Timer
}

// startMatch seats two clients into a fresh engine match and announces
// it to both.
func (h *Hub) startMatch(ctx context.Context, c1, c2 *Client) {
	matchID := uuid.NewString()
	p1 := uuid.NewString()
	p2 := uuid.NewString()

	seats := [2]game.Seat{
		{PlayerID: p1, Name: c1.Name, Decklist: starterDeck(c1.leader)},
		{PlayerID: p2, Name: c2.Name, Decklist: starterDeck(c2.leader)},
	}
	if _, err := h.engine.CreateMatch(matchID, seats); err != nil {
		h.log.Error("create match failed", zap.Error(err))
		h.sendError(c1, "could not start match")
		h.sendError(c2, "could not start match")
		return
	}

	sess := &session{
		matchID: matchID,
		seats: map[string]*seatLink{
			p1: {playerID: p1, name: c1.Name, seat: 0},
			p2: {playerID: p2, name: c2.Name, seat: 1},
		},
	}
	h.mu.Lock()
	h.sessions[matchID] = sess
	h.mu.Unlock()

	h.bindSeat(sess, p1, c1)
	h.bindSeat(sess, p2, c2)
	h.announceMatch(c1, matchID, p1, 0, c2.Name)
	h.announceMatch(c2, matchID, p2, 1, c1.Name)

	h.watchClocks(ctx, matchID)
	go h.awaitMatchEnd(matchID)

	h.pushState(c1, matchID, p1)
	h.pushState(c2, matchID, p2)

	h.log.Info("match started",
		zap.String("matchId", matchID),
		zap.String("playerA", c1.Name),
		zap.String("playerB", c2.Name))
}

// startBotMatch seats the client against the built-in opponent.
func (h *Hub) startBotMatch(ctx context.Context, c *Client) {
	matchID := uuid.NewString()
	humanID := uuid.NewString()
	botID := "bot-" + uuid.NewString()

	humanDeck := starterDeck(c.leader)
	botDeck := catalog.StarterDecklist(otherLeader(humanDeck.Leader))

	seats := [2]game.Seat{
		{PlayerID: humanID, Name: c.Name, Decklist: humanDeck},
		{PlayerID: botID, Name: h.opts.BotName, Decklist: botDeck},
	}
	if _, err := h.engine.CreateMatch(matchID, seats); err != nil {
		h.log.Error("create bot match failed", zap.Error(err))
		h.sendError(c, "could not start match")
		return
	}

	sess := &session{
		matchID: matchID,
		seats: map[string]*seatLink{
			humanID: {playerID: humanID, name: c.Name, seat: 0},
			botID:   {playerID: botID, name: h.opts.BotName, seat: 1, bot: true},
		},
	}
	h.mu.Lock()
	h.sessions[matchID] = sess
	h.mu.Unlock()

	h.bindSeat(sess, humanID, c)
	h.announceMatch(c, matchID, humanID, 0, h.opts.BotName)

	bot := ai.NewBot(h.log, botID, h.catalog, time.Now().UnixNano(), ai.WithDelay(h.opts.BotDelay))
	go func() {
		if err := bot.Run(ctx, h.engine, matchID); err != nil && !errors.Is(err, context.Canceled) {
			h.log.Warn("bot stopped", zap.String("matchId", matchID), zap.Error(err))
		}
	}()

	h.watchClocks(ctx, matchID)
	go h.awaitMatchEnd(matchID)

	h.pushState(c, matchID, humanID)

	h.log.Info("bot match started",
		zap.String("matchId", matchID),
		zap.String("player", c.Name))
}

// bindSeat attaches a client socket to a seat and starts streaming its
// notifications.
func (h *Hub) bindSeat(sess *session, playerID string, c *Client) error {
	ch, cancel, err := h.engine.Subscribe(sess.matchID, playerID, 64)
	if err != nil {
		h.log.Warn("subscribe failed",
			zap.String("matchId", sess.matchID),
			zap.Error(err))
		h.sendError(c, "match no longer active")
		return err
	}

	sess.mu.Lock()
	link := sess.seats[playerID]
	link.client = c
	link.cancelSub = cancel
	sess.mu.Unlock()

	c.setIdentity(sess.matchID, playerID)
	go pump(c, ch)
	return nil
}

func (h *Hub) watchClocks(ctx context.Context, matchID string) {
	if h.clocks == nil {
		return
	}
	go func() {
		if err := h.clocks.Watch(ctx, matchID); err != nil && !errors.Is(err, context.Canceled) {
			h.log.Warn("clock watcher stopped", zap.String("matchId", matchID), zap.Error(err))
		}
	}()
}

// pump copies engine notifications onto the client socket until the
// subscription closes.
func pump(c *Client, ch <-chan game.Notification) {
	for n := range ch {
		payload, err := json.Marshal(n)
		if err != nil {
			continue
		}
		safeSend(c, payload)
	}
}

func (h *Hub) announceMatch(c *Client, matchID, playerID string, seat int, opponent string) {
	token, err := h.tokens.IssueSeatToken(matchID, playerID, seat)
	if err != nil {
		h.log.Error("issue seat token failed", zap.Error(err))
	}
	safeSend(c, mustMarshal(MatchFoundMsg{
		Type:         MsgMatchFound,
		MatchID:      matchID,
		PlayerID:     playerID,
		Seat:         seat,
		RejoinToken:  token,
		OpponentName: opponent,
	}))
}

// awaitMatchEnd waits for the engine to close the match feed, then
// retires the session. The match itself stays in the engine so replays
// remain exportable.
func (h *Hub) awaitMatchEnd(matchID string) {
	ch, cancel, err := h.engine.Subscribe(matchID, "", 8)
	if err != nil {
		h.removeSession(matchID)
		return
	}
	defer cancel()
	for range ch {
	}
	h.removeSession(matchID)
}

func (h *Hub) removeSession(matchID string) {
	h.mu.Lock()
	sess, ok := h.sessions[matchID]
	if ok {
		delete(h.sessions, matchID)
	}
	h.mu.Unlock()
	if !ok {
		return
	}

	sess.mu.Lock()
	defer sess.mu.Unlock()
	for _, link := range sess.seats {
		if link.rejoin != nil {
			link.rejoin.Stop()
			link.rejoin = nil
		}
		if link.cancelSub != nil {
			link.cancelSub()
			link.cancelSub = nil
		}
		if link.client != nil {
			link.client.setIdentity("", "")
			link.client = nil
		}
	}
	h.log.Debug("session retired", zap.String("matchId", matchID))
}

// seatLost handles a socket dropping out of a live match. The seat is
// held for the rejoin window before the engine is told the player is
// gone for good.
func (h *Hub) seatLost(matchID, playerID string) {
	h.mu.Lock()
	sess := h.sessions[matchID]
	h.mu.Unlock()
	if sess == nil {
		return
	}

	sess.mu.Lock()
	link := sess.seats[playerID]
	if link == nil {
		sess.mu.Unlock()
		return
	}
	link.client = nil
	if link.cancelSub != nil {
		link.cancelSub()
		link.cancelSub = nil
	}
	var other *Client
	for _, l := range sess.seats {
		if l.playerID != playerID && l.client != nil {
			other = l.client
		}
	}
	window := h.opts.RejoinWindow
	if window > 0 {
		link.rejoin = time.AfterFunc(window, func() {
			h.forfeitSeat(matchID, playerID)
		})
	}
	sess.mu.Unlock()

	if other != nil {
		safeSend(other, mustMarshal(OpponentStatusMsg{Type: MsgOpponentDisconnected}))
	}
	h.log.Info("seat lost",
		zap.String("matchId", matchID),
		zap.String("playerId", playerID),
		zap.Duration("rejoinWindow", window))

	if window <= 0 {
		h.forfeitSeat(matchID, playerID)
	}
}

func (h *Hub) forfeitSeat(matchID, playerID string) {
	ctx, cancel := context.WithTimeout(context.Background(), submitTimeout)
	defer cancel()
	if err := h.engine.HandleDisconnect(ctx, matchID, playerID); err != nil {
		h.log.Warn("disconnect forfeit failed",
			zap.String("matchId", matchID),
			zap.Error(err))
	}
}

// rejoinSeat puts a returning client back into its seat.
func (h *Hub) rejoinSeat(c *Client, claims *auth.SeatClaims) {
	h.mu.Lock()
	sess := h.sessions[claims.MatchID]
	h.mu.Unlock()
	if sess == nil {
		h.sendError(c, "match no longer active")
		return
	}

	sess.mu.Lock()
	link := sess.seats[claims.PlayerID]
	if link == nil || link.bot {
		sess.mu.Unlock()
		h.sendError(c, "seat not available")
		return
	}
	if link.client != nil {
		sess.mu.Unlock()
		h.sendError(c, "seat already occupied")
		return
	}
	if link.rejoin != nil {
		link.rejoin.Stop()
		link.rejoin = nil
	}
	c.Name = link.name
	var other *Client
	for _, l := range sess.seats {
		if l.playerID != claims.PlayerID && l.client != nil {
			other = l.client
		}
	}
	sess.mu.Unlock()

	if err := h.bindSeat(sess, claims.PlayerID, c); err != nil {
		return
	}
	safeSend(c, mustMarshal(RejoinedMsg{
		Type:     MsgRejoined,
		MatchID:  claims.MatchID,
		PlayerID: claims.PlayerID,
	}))
	if other != nil {
		safeSend(other, mustMarshal(OpponentStatusMsg{Type: MsgOpponentRejoined}))
	}
	h.pushState(c, claims.MatchID, claims.PlayerID)

	h.log.Info("seat rejoined",
		zap.String("matchId", claims.MatchID),
		zap.String("playerId", claims.PlayerID))
}

// pushState sends the client a fresh snapshot of its match outside the
// normal notification stream, for joins and rejoins.
func (h *Hub) pushState(c *Client, matchID, playerID string) {
	view, err := h.engine.View(matchID, playerID)
	if err != nil {
		return
	}
	n := game.Notification{
		Type:     game.NotifyState,
		MatchID:  matchID,
		PlayerID: playerID,
		View:     view,
		At:       time.Now().UTC(),
	}
	payload, err := json.Marshal(n)
	if err != nil {
		return
	}
	safeSend(c, payload)
}

// starterDeck resolves a client's leader pick to a playable decklist.
// Anything unrecognized falls back to the crimson starter.
func starterDeck(leaderID string) catalog.Decklist {
	if leaderID != catalog.StarterLeaderAzure {
		leaderID = catalog.StarterLeaderCrimson
	}
	return catalog.StarterDecklist(leaderID)
}

func otherLeader(leaderID string) string {
	if leaderID == catalog.StarterLeaderCrimson {
		return catalog.StarterLeaderAzure
	}
	return catalog.StarterLeaderCrimson
}

// roomCodeAlphabet drops easily confused glyphs.
const roomCodeAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"

func roomCode() string {
	buf := make([]byte, 6)
	if _, err := rand.Read(buf); err != nil {
		panic(err)
	}
	for i, b := range buf {
		buf[i] = roomCodeAlphabet[int(b)%len(roomCodeAlphabet)]
	}
	return string(buf)
}
