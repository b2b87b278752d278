package server

import (
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 4096
	sendBuffer     = 256
)

var newline = []byte{'\n'}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// Client is one websocket connection and the seat identity bound to it.
// Name and leader are set by the lobby messages before the client is
// queued; the identity fields are bound when a match seats it.
type Client struct {
	hub  *Hub
	conn *websocket.Conn

	Send chan []byte
	Name string

	leader    string
	leftQueue atomic.Bool

	mu       sync.Mutex
	matchID  string
	playerID string

	gone     chan struct{}
	goneOnce sync.Once
}

func newClient(hub *Hub, conn *websocket.Conn) *Client {
	return &Client{
		hub:  hub,
		conn: conn,
		Send: make(chan []byte, sendBuffer),
		gone: make(chan struct{}),
	}
}

// alive reports whether the socket is still registered.
func (c *Client) alive() bool {
	select {
	case <-c.gone:
		return false
	default:
		return true
	}
}

func (c *Client) markGone() {
	c.goneOnce.Do(func() { close(c.gone) })
}

func (c *Client) identity() (matchID, playerID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.matchID, c.playerID
}

func (c *Client) setIdentity(matchID, playerID string) {
	c.mu.Lock()
	c.matchID = matchID
	c.playerID = playerID
	c.mu.Unlock()
}

// readPump relays inbound frames to the hub until the socket drops.
func (c *Client) readPump() {
	defer func() {
		c.hub.Unregister <- c
		c.conn.Close()
	}()
	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})
	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.hub.log.Debug("websocket closed unexpectedly", zap.Error(err))
			}
			return
		}
		c.hub.handleMessage(c, data)
	}
}

// writePump drains the send queue onto the socket and keeps the
// connection alive with pings. Queued frames are batched into one
// write, newline separated.
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()
	for {
		select {
		case msg, ok := <-c.Send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			w, err := c.conn.NextWriter(websocket.TextMessage)
			if err != nil {
				return
			}
			w.Write(msg)
			n := len(c.Send)
			for i := 0; i < n; i++ {
				w.Write(newline)
				w.Write(<-c.Send)
			}
			if err := w.Close(); err != nil {
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// safeSend pushes without blocking. A slow client misses the frame and
// catches up on the next state push; a closing client's channel may be
// gone, which the recover absorbs.
func safeSend(c *Client, payload []byte) {
	if c == nil {
		return
	}
	defer func() { recover() }()
	select {
	case c.Send <- payload:
	default:
	}
}
