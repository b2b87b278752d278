// Package server is the websocket gateway: it matches clients into
// engine matches, relays their actions, and streams notifications back.
package server

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/optcgsim/duel-server-go/internal/auth"
	"github.com/optcgsim/duel-server-go/internal/catalog"
	"github.com/optcgsim/duel-server-go/internal/game"
	"github.com/optcgsim/duel-server-go/internal/timers"
)

// submitTimeout bounds a relayed action's wait on the match worker.
const submitTimeout = 10 * time.Second

const queueCapacity = 128

// Options tunes gateway behavior.
type Options struct {
	// RejoinWindow is how long a dropped seat is held open. Zero or
	// negative forfeits immediately.
	RejoinWindow time.Duration

	BotEnabled bool
	BotName    string
	BotDelay   time.Duration
}

// Hub owns the client registry, the matchmaking queue, and the live
// match sessions.
type Hub struct {
	log     *zap.Logger
	engine  *game.Engine
	catalog *catalog.Catalog
	tokens  *auth.TokenIssuer
	clocks  *timers.Service
	opts    Options

	Register   chan *Client
	Unregister chan *Client
	queue      chan *Client

	mu       sync.Mutex
	clients  map[*Client]bool
	rooms    map[string]*Client
	sessions map[string]*session
	runCtx   context.Context
}

// NewHub wires the gateway around an engine. clocks may be nil to run
// without decision timers.
func NewHub(log *zap.Logger, engine *game.Engine, cat *catalog.Catalog, tokens *auth.TokenIssuer, clocks *timers.Service, opts Options) *Hub {
	if log == nil {
		log = zap.NewNop()
	}
	if opts.BotName == "" {
		opts.BotName = "Pacifista"
	}
	return &Hub{
		log:        log.Named("gateway"),
		engine:     engine,
		catalog:    cat,
		tokens:     tokens,
		clocks:     clocks,
		opts:       opts,
		Register:   make(chan *Client),
		Unregister: make(chan *Client),
		queue:      make(chan *Client, queueCapacity),
		clients:    make(map[*Client]bool),
		rooms:      make(map[string]*Client),
		sessions:   make(map[string]*session),
	}
}

// Run owns the client registry and the matchmaking loop until ctx ends.
func (h *Hub) Run(ctx context.Context) error {
	h.mu.Lock()
	h.runCtx = ctx
	h.mu.Unlock()

	go h.matchmake(ctx)

	for {
		select {
		case <-ctx.Done():
			return nil
		case c := <-h.Register:
			h.mu.Lock()
			h.clients[c] = true
			total := len(h.clients)
			h.mu.Unlock()
			h.log.Debug("client connected", zap.Int("clients", total))
		case c := <-h.Unregister:
			h.dropClient(c)
		}
	}
}

func (h *Hub) runContext() context.Context {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.runCtx != nil {
		return h.runCtx
	}
	return context.Background()
}

// ServeWS upgrades an HTTP request into a registered client socket.
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Warn("websocket upgrade failed", zap.Error(err))
		return
	}
	c := newClient(h, conn)
	h.Register <- c
	go c.writePump()
	go c.readPump()
}

func (h *Hub) dropClient(c *Client) {
	h.mu.Lock()
	if !h.clients[c] {
		h.mu.Unlock()
		return
	}
	delete(h.clients, c)
	for code, owner := range h.rooms {
		if owner == c {
			delete(h.rooms, code)
		}
	}
	h.mu.Unlock()

	c.markGone()
	close(c.Send)

	matchID, playerID := c.identity()
	if matchID != "" {
		h.seatLost(matchID, playerID)
	}
	h.log.Debug("client disconnected",
		zap.String("name", c.Name),
		zap.String("playerId", playerID))
}

// handleMessage dispatches one inbound frame. It runs on the client's
// read goroutine.
func (h *Hub) handleMessage(c *Client, data []byte) {
	var env InboundEnvelope
	if err := json.Unmarshal(data, &env); err != nil {
		h.sendError(c, "malformed message")
		return
	}

	switch env.Type {
	case MsgJoinQueue:
		var msg JoinQueueMsg
		if err := json.Unmarshal(env.Raw, &msg); err != nil {
			h.sendError(c, "malformed join_queue")
			return
		}
		if matchID, _ := c.identity(); matchID != "" {
			h.sendError(c, "already in a match")
			return
		}
		c.Name = displayName(msg.Name)
		c.leader = msg.Leader
		h.enqueue(c)

	case MsgLeaveQueue:
		c.leftQueue.Store(true)
		safeSend(c, mustMarshal(QueuedMsg{Type: MsgLeftQueue}))

	case MsgPlayBot:
		if !h.opts.BotEnabled {
			h.sendError(c, "bot opponent is disabled")
			return
		}
		var msg PlayBotMsg
		if err := json.Unmarshal(env.Raw, &msg); err != nil {
			h.sendError(c, "malformed play_bot")
			return
		}
		if matchID, _ := c.identity(); matchID != "" {
			h.sendError(c, "already in a match")
			return
		}
		c.Name = displayName(msg.Name)
		c.leader = msg.Leader
		h.startBotMatch(h.runContext(), c)

	case MsgCreateRoom:
		var msg CreateRoomMsg
		if err := json.Unmarshal(env.Raw, &msg); err != nil {
			h.sendError(c, "malformed create_room")
			return
		}
		if matchID, _ := c.identity(); matchID != "" {
			h.sendError(c, "already in a match")
			return
		}
		c.Name = displayName(msg.Name)
		c.leader = msg.Leader
		code := h.createRoom(c)
		safeSend(c, mustMarshal(RoomCreatedMsg{Type: MsgRoomCreated, Code: code}))

	case MsgJoinRoom:
		var msg JoinRoomMsg
		if err := json.Unmarshal(env.Raw, &msg); err != nil {
			h.sendError(c, "malformed join_room")
			return
		}
		if matchID, _ := c.identity(); matchID != "" {
			h.sendError(c, "already in a match")
			return
		}
		c.Name = displayName(msg.Name)
		c.leader = msg.Leader
		owner := h.takeRoom(strings.ToUpper(strings.TrimSpace(msg.Code)))
		if owner == nil || !owner.alive() {
			h.sendError(c, "room not found")
			return
		}
		if owner == c {
			h.sendError(c, "cannot join your own room")
			return
		}
		h.startMatch(h.runContext(), owner, c)

	case MsgRejoin:
		var msg RejoinMsg
		if err := json.Unmarshal(env.Raw, &msg); err != nil {
			h.sendError(c, "malformed rejoin")
			return
		}
		claims, err := h.tokens.VerifySeatToken(msg.Token)
		if err != nil {
			h.sendError(c, "invalid rejoin token")
			return
		}
		h.rejoinSeat(c, claims)

	case MsgAction:
		h.submitAction(c, env.Raw)

	default:
		h.sendError(c, "unknown message type")
	}
}

// submitAction relays a game action. The gateway stamps the sender's
// player id so a client can never act for the opponent; everything
// else is the engine's call.
func (h *Hub) submitAction(c *Client, raw []byte) {
	matchID, playerID := c.identity()
	if matchID == "" {
		h.sendError(c, "not in a match")
		return
	}
	var msg ActionMsg
	if err := json.Unmarshal(raw, &msg); err != nil {
		h.sendError(c, "malformed action")
		return
	}
	action := game.NewAction(game.ActionType(msg.Action.Type), playerID, msg.Action.Data)

	ctx, cancel := context.WithTimeout(context.Background(), submitTimeout)
	defer cancel()
	if err := h.engine.SubmitAction(ctx, matchID, action); err != nil {
		h.sendError(c, err.Error())
	}
}

func (h *Hub) enqueue(c *Client) {
	c.leftQueue.Store(false)
	select {
	case h.queue <- c:
		safeSend(c, mustMarshal(QueuedMsg{Type: MsgQueued}))
	default:
		h.sendError(c, "matchmaking queue is full")
	}
}

// requeue puts a client back in line without re-acking.
func (h *Hub) requeue(c *Client) {
	select {
	case h.queue <- c:
	default:
		h.sendError(c, "matchmaking queue is full")
	}
}

// matchmake pairs queued clients two at a time. A client that dropped
// or left the queue while waiting is skipped; its would-be opponent
// goes back in line.
func (h *Hub) matchmake(ctx context.Context) {
	for {
		c1 := h.nextQueued(ctx)
		if c1 == nil {
			return
		}
		c2 := h.nextQueued(ctx)
		if c2 == nil {
			return
		}
		if c1 == c2 {
			// A double join_queue leaves the same client in line twice.
			h.requeue(c1)
			continue
		}
		if !h.queueable(c1) {
			h.requeue(c2)
			continue
		}
		if !h.queueable(c2) {
			h.requeue(c1)
			continue
		}
		h.startMatch(ctx, c1, c2)
	}
}

func (h *Hub) nextQueued(ctx context.Context) *Client {
	for {
		select {
		case <-ctx.Done():
			return nil
		case c := <-h.queue:
			if h.queueable(c) {
				return c
			}
		}
	}
}

func (h *Hub) queueable(c *Client) bool {
	return c.alive() && !c.leftQueue.Load()
}

func (h *Hub) createRoom(c *Client) string {
	h.mu.Lock()
	defer h.mu.Unlock()
	for {
		code := roomCode()
		if _, taken := h.rooms[code]; taken {
			continue
		}
		h.rooms[code] = c
		return code
	}
}

func (h *Hub) takeRoom(code string) *Client {
	h.mu.Lock()
	defer h.mu.Unlock()
	owner, ok := h.rooms[code]
	if !ok {
		return nil
	}
	delete(h.rooms, code)
	return owner
}

func (h *Hub) sendError(c *Client, message string) {
	safeSend(c, mustMarshal(ErrorMsg{Type: MsgError, Message: message}))
}

func displayName(name string) string {
	name = strings.TrimSpace(name)
	if name == "" {
		return "Anonymous"
	}
	if len(name) > 32 {
		name = name[:32]
	}
	return name
}
