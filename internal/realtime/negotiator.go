// Package realtime negotiates a WebRTC session with the realtime voice
// service and carries structured events over its data channel.
package realtime

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/pion/webrtc/v4"

	"github.com/erikakettleson-openai/erika-webrtc/internal/core/credential"
	"github.com/erikakettleson-openai/erika-webrtc/internal/media"
)

var ErrConnectionLost = errors.New("peer connection lost")

// CredentialSource issues one ephemeral credential per call.
type CredentialSource interface {
	IssueSessionCredential(ctx context.Context) (*credential.Credential, error)
}

type State int32

const (
	StateIdle State = iota
	StateAcquiringCredential
	StateCapturingMedia
	StateNegotiating
	StateConnected
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateAcquiringCredential:
		return "acquiring_credential"
	case StateCapturingMedia:
		return "capturing_media"
	case StateNegotiating:
		return "negotiating"
	case StateConnected:
		return "connected"
	case StateClosed:
		return "closed"
	default:
		return "unknown"
	}
}

type Options struct {
	RealtimeURL string
	Model       string
	// NegotiationTimeout bounds Start. Zero leaves it to the caller's context.
	NegotiationTimeout time.Duration
	DisplayLogCap      int
	HTTPClient         *http.Client
	// API lets callers tune ICE and codecs; nil uses pion's defaults.
	API    *webrtc.API
	WebRTC webrtc.Configuration
	Logger *slog.Logger
}

// Client owns at most one live Session.
type Client struct {
	creds    CredentialSource
	capturer media.Capturer
	opts     Options
	log      *slog.Logger
	display  *DisplayLog

	mu     sync.Mutex
	active *Session
}

func NewClient(creds CredentialSource, capturer media.Capturer, opts Options) *Client {
	if opts.HTTPClient == nil {
		opts.HTTPClient = &http.Client{}
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.API == nil {
		opts.API = webrtc.NewAPI()
	}
	return &Client{
		creds:    creds,
		capturer: capturer,
		opts:     opts,
		log:      opts.Logger,
		display:  NewDisplayLog(opts.DisplayLogCap),
	}
}

// Log is the display log shared by every session this client starts.
func (c *Client) Log() *DisplayLog { return c.display }

// Start runs a fresh session up to Connected, which is reached only once the
// event channel is open. A live session must be stopped
// first; Start never closes one implicitly. On failure the returned session
// is Closed and its Err matches the failing step's kind.
func (c *Client) Start(ctx context.Context) (*Session, error) {
	c.mu.Lock()
	if c.active != nil && c.active.State() != StateClosed {
		c.mu.Unlock()
		return nil, ErrSessionActive
	}
	s := &Session{
		id:     "sess_" + uuid.NewString(),
		client: c,
		done:   make(chan struct{}),
	}
	s.log = c.log.With("session", s.id)
	c.active = s
	c.mu.Unlock()

	if err := s.start(ctx); err != nil {
		return s, err
	}
	return s, nil
}

// Stop closes the current session, if any.
func (c *Client) Stop() {
	if s := c.Session(); s != nil {
		s.Stop()
	}
}

func (c *Client) Session() *Session {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.active
}

// Send routes ev to the live session's event channel.
func (c *Client) Send(ev ClientEvent) error {
	s := c.Session()
	if s == nil {
		return ErrChannelNotReady
	}
	return s.Send(ev)
}

// UpdateInstructions replaces the assistant's instructions on the vendor side.
func (c *Client) UpdateInstructions(text string) error {
	return c.Send(NewSessionUpdate(text))
}

type Session struct {
	id     string
	client *Client
	log    *slog.Logger

	mu      sync.Mutex
	state   State
	err     error
	abort   context.CancelFunc
	capture media.Capture
	pc      *webrtc.PeerConnection
	channel *Channel
	done    chan struct{}
}

func (s *Session) ID() string { return s.id }

func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Err is the error that closed the session, nil after a plain Stop.
func (s *Session) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

// Done is closed once the session reaches Closed.
func (s *Session) Done() <-chan struct{} { return s.done }

// Ready reports whether Send can currently succeed.
func (s *Session) Ready() bool {
	s.mu.Lock()
	ch, st := s.channel, s.state
	s.mu.Unlock()
	return st == StateConnected && ch != nil && ch.Ready()
}

func (s *Session) Send(ev ClientEvent) error {
	s.mu.Lock()
	ch, st := s.channel, s.state
	s.mu.Unlock()
	if st != StateConnected || ch == nil {
		return ErrChannelNotReady
	}
	return ch.Send(ev)
}

// Stop releases the capture device and the peer connection. Calling it again,
// or on a session that already failed, does nothing.
func (s *Session) Stop() {
	s.shutdown(nil)
}

func (s *Session) start(parent context.Context) error {
	ctx, cancel := context.WithCancel(parent)
	defer cancel()
	if d := s.client.opts.NegotiationTimeout; d > 0 {
		var cancelTimeout context.CancelFunc
		ctx, cancelTimeout = context.WithTimeout(ctx, d)
		defer cancelTimeout()
	}
	s.mu.Lock()
	s.abort = cancel
	s.mu.Unlock()

	if err := s.transition(StateAcquiringCredential); err != nil {
		return err
	}
	cred, err := s.client.creds.IssueSessionCredential(ctx)
	if err != nil {
		return s.fail(wrap(ErrCredentialAcquisition, err))
	}
	secret := cred.Value
	if secret == "" {
		return s.fail(fmt.Errorf("%w: empty credential", ErrCredentialAcquisition))
	}

	if err := s.transition(StateCapturingMedia); err != nil {
		return err
	}
	capture, err := s.client.capturer.Open(ctx)
	if err != nil {
		return s.fail(wrap(ErrMediaCapture, err))
	}
	if !s.adopt(func() { s.capture = capture }) {
		_ = capture.Stop()
		return ErrSessionStopped
	}

	if err := s.transition(StateNegotiating); err != nil {
		return err
	}
	pc, ch, opened, err := s.newPeer(capture.Track())
	if err != nil {
		return s.fail(wrap(ErrNegotiation, err))
	}
	if !s.adopt(func() { s.pc, s.channel = pc, ch }) {
		ch.Close()
		_ = pc.Close()
		return ErrSessionStopped
	}

	offer, err := createOffer(ctx, pc)
	if err != nil {
		return s.fail(wrap(ErrNegotiation, err))
	}
	answer, err := s.exchange(ctx, offer, secret)
	if err != nil {
		return s.fail(err)
	}
	if s.State() == StateClosed {
		return ErrSessionStopped
	}
	if err := pc.SetRemoteDescription(webrtc.SessionDescription{Type: webrtc.SDPTypeAnswer, SDP: answer}); err != nil {
		return s.fail(wrap(ErrNegotiation, err))
	}

	// Connected requires an open event channel.
	select {
	case <-opened:
	case <-s.done:
		if err := s.Err(); err != nil {
			return wrap(ErrNegotiation, err)
		}
		return ErrSessionStopped
	case <-ctx.Done():
		return s.fail(wrap(ErrNegotiation, ctx.Err()))
	}
	return s.transition(StateConnected)
}

// newPeer builds the peer connection. The returned channel is closed once the
// event data channel opens.
func (s *Session) newPeer(track webrtc.TrackLocal) (*webrtc.PeerConnection, *Channel, <-chan struct{}, error) {
	pc, err := s.client.opts.API.NewPeerConnection(s.client.opts.WebRTC)
	if err != nil {
		return nil, nil, nil, err
	}
	if _, err := pc.AddTrack(track); err != nil {
		_ = pc.Close()
		return nil, nil, nil, err
	}
	dc, err := pc.CreateDataChannel(DataChannelLabel, nil)
	if err != nil {
		_ = pc.Close()
		return nil, nil, nil, err
	}

	display := s.client.display
	ch := NewChannel(dataChannelConn{dc: dc}, s.log,
		logVendorErrors(s.log),
		SuppressTranscriptDeltas,
		AppendTo(display),
	)
	opened := make(chan struct{})
	var openOnce sync.Once
	dc.OnOpen(func() {
		openOnce.Do(func() { close(opened) })
		s.log.Info("event channel open")
	})
	dc.OnMessage(func(msg webrtc.DataChannelMessage) { ch.Deliver(msg.Data) })

	pc.OnTrack(func(tr *webrtc.TrackRemote, _ *webrtc.RTPReceiver) {
		s.log.Info("remote track", "kind", tr.Kind().String(), "codec", tr.Codec().MimeType)
		drain(tr)
	})
	pc.OnConnectionStateChange(func(st webrtc.PeerConnectionState) {
		s.log.Debug("peer connection state", "state", st.String())
		switch st {
		case webrtc.PeerConnectionStateFailed, webrtc.PeerConnectionStateClosed:
			s.shutdown(ErrConnectionLost)
		}
	})
	return pc, ch, opened, nil
}

// drain consumes remote media until the track ends. Playback belongs to the
// host's media stack.
func drain(tr *webrtc.TrackRemote) {
	buf := make([]byte, 1500)
	for {
		if _, _, err := tr.Read(buf); err != nil {
			return
		}
	}
}

// createOffer sets the local description and waits for ICE gathering so the
// offer carries every candidate.
func createOffer(ctx context.Context, pc *webrtc.PeerConnection) (string, error) {
	offer, err := pc.CreateOffer(nil)
	if err != nil {
		return "", err
	}
	gathered := webrtc.GatheringCompletePromise(pc)
	if err := pc.SetLocalDescription(offer); err != nil {
		return "", err
	}
	select {
	case <-gathered:
	case <-ctx.Done():
		return "", ctx.Err()
	}
	return pc.LocalDescription().SDP, nil
}

// transition moves to next unless the session was closed meanwhile, in which
// case the caller must drop whatever it was about to apply.
func (s *Session) transition(next State) error {
	s.mu.Lock()
	if s.state == StateClosed {
		s.mu.Unlock()
		return ErrSessionStopped
	}
	prev := s.state
	s.state = next
	s.mu.Unlock()
	s.log.Info("session state", "from", prev.String(), "to", next.String())
	return nil
}

func (s *Session) adopt(apply func()) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == StateClosed {
		return false
	}
	apply()
	return true
}

func (s *Session) fail(err error) error {
	if !s.shutdown(err) {
		return ErrSessionStopped
	}
	return err
}

// shutdown closes the session once and reports whether this call did it.
func (s *Session) shutdown(cause error) bool {
	s.mu.Lock()
	if s.state == StateClosed {
		s.mu.Unlock()
		return false
	}
	prev := s.state
	s.state = StateClosed
	s.err = cause
	abort, ch, pc, capture := s.abort, s.channel, s.pc, s.capture
	s.channel, s.pc, s.capture = nil, nil, nil
	s.mu.Unlock()

	if abort != nil {
		abort()
	}
	if ch != nil {
		ch.Close()
	}
	if pc != nil {
		if err := pc.Close(); err != nil {
			s.log.Warn("closing peer connection", "err", err)
		}
	}
	if capture != nil {
		if err := capture.Stop(); err != nil {
			s.log.Warn("releasing capture device", "err", err)
		}
	}
	close(s.done)

	if cause != nil {
		s.log.Error("session closed", "from", prev.String(), "err", cause)
	} else {
		s.log.Info("session closed", "from", prev.String())
	}
	return true
}
