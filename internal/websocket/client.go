package websocket

import (
	"context"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 1 << 20 // 1 MB
)

// Client is one live connection. A user may hold several at once; the hub
// indexes them per user and per room.
type Client struct {
	ID          string
	UserID      string
	Username    string
	DisplayName string
	Role        string

	Conn *websocket.Conn
	Send chan []byte

	rooms   map[string]struct{}
	roomsMu sync.RWMutex

	ctx    context.Context
	cancel context.CancelFunc

	lastSeen   time.Time
	lastSeenMu sync.RWMutex

	active    bool
	activeMu  sync.RWMutex
	closeOnce sync.Once

	// onFrame receives every inbound frame; the event router owns it.
	onFrame func(c *Client, raw []byte)
	// onClose runs exactly once when the connection dies.
	onClose func(c *Client)
}

func NewClient(id string, identity Identity, conn *websocket.Conn) *Client {
	ctx, cancel := context.WithCancel(context.Background())
	return &Client{
		ID:          id,
		UserID:      identity.UserID,
		Username:    identity.Username,
		DisplayName: identity.DisplayName,
		Role:        identity.Role,
		Conn:        conn,
		Send:        make(chan []byte, 256),
		rooms:       make(map[string]struct{}),
		ctx:         ctx,
		cancel:      cancel,
		lastSeen:    time.Now(),
		active:      true,
	}
}

// Start launches the read and write pumps.
func (c *Client) Start() {
	go c.writePump()
	go c.readPump()
}

func (c *Client) IsClientActive() bool {
	c.activeMu.RLock()
	defer c.activeMu.RUnlock()
	return c.active
}

func (c *Client) GetLastSeen() time.Time {
	c.lastSeenMu.RLock()
	defer c.lastSeenMu.RUnlock()
	return c.lastSeen
}

func (c *Client) touch() {
	c.lastSeenMu.Lock()
	c.lastSeen = time.Now()
	c.lastSeenMu.Unlock()
}

func (c *Client) joinRoom(roomID string) {
	c.roomsMu.Lock()
	c.rooms[roomID] = struct{}{}
	c.roomsMu.Unlock()
}

func (c *Client) leaveRoom(roomID string) {
	c.roomsMu.Lock()
	delete(c.rooms, roomID)
	c.roomsMu.Unlock()
}

// Rooms returns a snapshot of the rooms this connection is subscribed to.
func (c *Client) Rooms() []string {
	c.roomsMu.RLock()
	defer c.roomsMu.RUnlock()
	rooms := make([]string, 0, len(c.rooms))
	for roomID := range c.rooms {
		rooms = append(rooms, roomID)
	}
	return rooms
}

// Close tears the connection down exactly once. Safe to call from any
// goroutine, including the hub's slow-consumer path. The send channel is
// never closed: hub goroutines may still be selecting on it, and a send on
// a closed channel panics even inside a select. Cancelling the context
// unblocks them and stops the pumps instead.
func (c *Client) Close() {
	c.closeOnce.Do(func() {
		c.activeMu.Lock()
		c.active = false
		c.activeMu.Unlock()

		c.cancel()
		if c.Conn != nil {
			_ = c.Conn.Close()
		}

		if c.onClose != nil {
			c.onClose(c)
		}
	})
}

// writePump drains c.Send onto the socket and keeps the connection alive
// with pings.
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.Conn.Close()
	}()

	for {
		select {
		case msg := <-c.Send:
			_ = c.Conn.SetWriteDeadline(time.Now().Add(writeWait))

			w, err := c.Conn.NextWriter(websocket.TextMessage)
			if err != nil {
				return
			}
			if _, err := w.Write(msg); err != nil {
				_ = w.Close()
				return
			}
			_ = w.Close()

		case <-ticker.C:
			_ = c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}

		case <-c.ctx.Done():
			_ = c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			_ = c.Conn.WriteMessage(websocket.CloseMessage, []byte{})
			return
		}
	}
}

// readPump feeds inbound frames to the event router and handles pong
// keep-alive. It is the single owner of the connection's read side.
func (c *Client) readPump() {
	defer c.Close()

	c.Conn.SetReadLimit(maxMessageSize)
	_ = c.Conn.SetReadDeadline(time.Now().Add(pongWait))
	c.Conn.SetPongHandler(func(string) error {
		c.touch()
		_ = c.Conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, raw, err := c.Conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Debug().Err(err).Str("clientID", c.ID).Str("userID", c.UserID).Msg("ws: unexpected close")
			}
			return
		}

		c.touch()
		if c.onFrame != nil {
			c.onFrame(c, raw)
		}
	}
}
