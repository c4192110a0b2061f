package realtime

import (
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/pion/webrtc/v4"
)

// DataChannelLabel is the label the vendor expects for the event channel.
const DataChannelLabel = "oai-events"

// Conn is the ordered, reliable message stream under a Channel.
type Conn interface {
	SendText(s string) error
	Open() bool
}

type dataChannelConn struct {
	dc *webrtc.DataChannel
}

func (c dataChannelConn) SendText(s string) error { return c.dc.SendText(s) }
func (c dataChannelConn) Open() bool              { return c.dc.ReadyState() == webrtc.DataChannelStateOpen }

// Handler sees each parsed server event in arrival order. Returning false
// stops the rest of the chain for that event.
type Handler func(ev ServerEvent) bool

// SuppressTranscriptDeltas ends the chain for streaming transcript fragments.
func SuppressTranscriptDeltas(ev ServerEvent) bool {
	return !IsTranscriptDelta(ev.Type)
}

func AppendTo(l *DisplayLog) Handler {
	return func(ev ServerEvent) bool {
		l.Append(ev)
		return true
	}
}

func logVendorErrors(log *slog.Logger) Handler {
	return func(ev ServerEvent) bool {
		if ev.Type == "error" {
			log.Warn("vendor reported error", "event_id", ev.EventID, "event", string(ev.Raw))
		}
		return true
	}
}

// Channel frames client and server events over a Conn. Inbound frames go
// through a single dispatch loop so handlers observe transport order.
type Channel struct {
	conn  Conn
	log   *slog.Logger
	chain []Handler

	frames chan []byte
	quit   chan struct{}
	done   chan struct{}
	closed atomic.Bool
	once   sync.Once
}

func NewChannel(conn Conn, log *slog.Logger, chain ...Handler) *Channel {
	c := &Channel{
		conn:   conn,
		log:    log,
		chain:  chain,
		frames: make(chan []byte),
		quit:   make(chan struct{}),
		done:   make(chan struct{}),
	}
	go c.run()
	return c
}

func (c *Channel) Ready() bool {
	return !c.closed.Load() && c.conn.Open()
}

// Send encodes ev and writes it as one text frame. Nothing is queued: an
// unready channel fails with ErrChannelNotReady and leaves ev untouched.
func (c *Channel) Send(ev ClientEvent) error {
	if !c.Ready() {
		return ErrChannelNotReady
	}
	b, err := encodeEvent(ev)
	if err != nil {
		return err
	}
	if err := c.conn.SendText(string(b)); err != nil {
		return wrap(ErrChannelNotReady, err)
	}
	h := ev.header()
	c.log.Debug("client event sent", "type", h.Type, "event_id", h.EventID)
	return nil
}

// Deliver hands a received frame to the dispatch loop. It blocks until the
// loop takes the frame and reports false once the channel is closed.
func (c *Channel) Deliver(frame []byte) bool {
	if c.closed.Load() {
		return false
	}
	select {
	case c.frames <- frame:
		return true
	case <-c.quit:
		return false
	}
}

func (c *Channel) run() {
	defer close(c.done)
	for {
		select {
		case f := <-c.frames:
			c.dispatch(f)
		case <-c.quit:
			return
		}
	}
}

func (c *Channel) dispatch(frame []byte) {
	ev, err := ParseServerEvent(frame)
	if err != nil {
		c.log.Warn("dropping server event", "err", err, "bytes", len(frame))
		return
	}
	for _, h := range c.chain {
		if !h(ev) {
			return
		}
	}
}

// Close invalidates the channel and waits for any frame already handed over
// to finish dispatching. Must not be called from a Handler.
func (c *Channel) Close() {
	c.once.Do(func() {
		c.closed.Store(true)
		close(c.quit)
		<-c.done
	})
}
