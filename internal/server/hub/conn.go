package hub

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/dmitrijs2005/pulse/internal/realtime"
	"github.com/gorilla/websocket"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 8 * 1024
	sendBuffer     = 256
)

// Conn is one authenticated websocket. Its topic and presence bookkeeping
// is owned by the hub and guarded by the hub mutex.
type Conn struct {
	userID string
	ws     *websocket.Conn
	send   chan []byte

	topics  map[string]struct{}
	tracked map[string]realtime.PresenceMeta

	closeOnce sync.Once
	dropped   bool
}

func newConn(userID string, ws *websocket.Conn) *Conn {
	return &Conn{
		userID:  userID,
		ws:      ws,
		send:    make(chan []byte, sendBuffer),
		topics:  make(map[string]struct{}),
		tracked: make(map[string]realtime.PresenceMeta),
	}
}

// enqueue hands b to the write pump without blocking. It reports false
// when the buffer is full.
func (c *Conn) enqueue(b []byte) bool {
	if c.dropped {
		return false
	}
	select {
	case c.send <- b:
		return true
	default:
		return false
	}
}

// kick closes the socket; the read pump then unregisters the conn.
func (c *Conn) kick() {
	c.closeOnce.Do(func() { _ = c.ws.Close() })
}

func (c *Conn) readPump(ctx context.Context, h *Hub) {
	defer func() {
		h.unregister(c)
		c.kick()
	}()

	c.ws.SetReadLimit(maxMessageSize)
	_ = c.ws.SetReadDeadline(time.Now().Add(pongWait))
	c.ws.SetPongHandler(func(string) error {
		return c.ws.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, data, err := c.ws.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseAbnormalClosure) {
				h.logger.Warn(ctx, "websocket read failed", "user_id", c.userID, "error", err)
			}
			return
		}

		var f realtime.Frame
		if err := json.Unmarshal(data, &f); err != nil {
			h.replyError(c, realtime.Frame{}, "malformed frame")
			continue
		}
		h.handle(ctx, c, f)
	}
}

func (c *Conn) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.kick()
	}()

	for {
		select {
		case msg, ok := <-c.send:
			_ = c.ws.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.ws.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.ws.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.ws.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.ws.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
