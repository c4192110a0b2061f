package handlers

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/erikakettleson-openai/erika-webrtc/pkg/types"
	"github.com/erikakettleson-openai/erika-webrtc/pkg/ws"
)

const pongWait = 60 * time.Second

// EventSource is the display log as seen by viewers.
type EventSource interface {
	Entries() []types.LogEntry
}

// StreamHandler feeds display-log entries to websocket viewers. Each viewer
// gets a snapshot first, then live entries; duplicates are resolved by seq.
type StreamHandler struct {
	Hub      *ws.Hub
	Source   EventSource
	Log      *slog.Logger
	Upgrader websocket.Upgrader
}

func NewStreamHandler(h *ws.Hub, src EventSource, log *slog.Logger) *StreamHandler {
	return &StreamHandler{
		Hub:    h,
		Source: src,
		Log:    log,
		Upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}
}

// Publish fans one entry out to every viewer.
func (h *StreamHandler) Publish(e types.LogEntry) {
	dropped, err := h.Hub.Broadcast(gin.H{"type": "event", "entry": e})
	if err != nil {
		h.Log.Warn("encoding log entry", "err", err)
		return
	}
	if dropped > 0 {
		h.Log.Debug("slow viewers skipped entry", "seq", e.Seq, "viewers", dropped)
	}
}

func (h *StreamHandler) WS(c *gin.Context) {
	conn, err := h.Upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		return
	}
	cl := h.Hub.Add(uuid.NewString(), conn)
	defer func() {
		h.Hub.Remove(cl)
		conn.Close()
	}()

	_ = cl.Send(gin.H{
		"type":    "hello",
		"ts":      time.Now().UnixMilli(),
		"entries": h.Source.Entries(),
	})

	// Viewers only read; the read loop notices disconnects and pongs.
	conn.SetReadLimit(4 << 10)
	conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})
	go func() {
		defer h.Hub.Remove(cl)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	if err := cl.WritePump(); err != nil {
		h.Log.Debug("viewer disconnected", "viewer", cl.ID, "err", err)
	}
}

// Snapshot serves the current display log as JSON, newest first.
func (h *StreamHandler) Snapshot(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"entries": h.Source.Entries()})
}
