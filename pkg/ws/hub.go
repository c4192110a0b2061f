package ws

import (
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

var ErrQueueFull = errors.New("ws: client queue full")

const (
	sendBuffer = 64
	writeWait  = 5 * time.Second
	pingPeriod = 30 * time.Second
)

// Client is one connected viewer. Messages are queued and written by
// WritePump; a viewer that falls behind loses messages instead of stalling
// the broadcaster.
type Client struct {
	ID   string
	conn *websocket.Conn
	send chan []byte
}

type Hub struct {
	mu    sync.RWMutex
	conns map[string]*Client
}

func NewHub() *Hub {
	return &Hub{conns: map[string]*Client{}}
}

func (h *Hub) Add(id string, c *websocket.Conn) *Client {
	cl := &Client{ID: id, conn: c, send: make(chan []byte, sendBuffer)}
	h.mu.Lock()
	if old, ok := h.conns[id]; ok {
		close(old.send)
	}
	h.conns[id] = cl
	h.mu.Unlock()
	return cl
}

func (h *Hub) Get(id string) (*Client, bool) {
	h.mu.RLock()
	c, ok := h.conns[id]
	h.mu.RUnlock()
	return c, ok
}

// Remove unregisters c if it is still the client held under its id.
func (h *Hub) Remove(c *Client) {
	h.mu.Lock()
	if cur, ok := h.conns[c.ID]; ok && cur == c {
		close(c.send)
		delete(h.conns, c.ID)
	}
	h.mu.Unlock()
}

func (h *Hub) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.conns)
}

// Broadcast marshals v once and queues it for every viewer. It returns how
// many viewers dropped the message because their queue was full.
func (h *Hub) Broadcast(v any) (int, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return 0, err
	}
	dropped := 0
	h.mu.RLock()
	for _, c := range h.conns {
		select {
		case c.send <- b:
		default:
			dropped++
		}
	}
	h.mu.RUnlock()
	return dropped, nil
}

// Send queues v for this client only.
func (c *Client) Send(v any) error {
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	select {
	case c.send <- b:
		return nil
	default:
		return ErrQueueFull
	}
}

// WritePump writes queued messages and keepalive pings until the client is
// removed or a write fails.
func (c *Client) WritePump() error {
	ping := time.NewTicker(pingPeriod)
	defer ping.Stop()
	for {
		select {
		case msg, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, nil)
				return nil
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return err
			}
		case <-ping.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return err
			}
		}
	}
}
