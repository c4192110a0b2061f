// Package media provides the local audio sources a realtime session sends to
// the vendor. Sources produce 8kHz G.711 mu-law frames, which every WebRTC
// stack negotiates without extra codecs.
package media

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/pion/webrtc/v4"
	pionmedia "github.com/pion/webrtc/v4/pkg/media"
)

const (
	SampleRate      = 8000
	FrameDuration   = 20 * time.Millisecond
	SamplesPerFrame = SampleRate / 50
)

var (
	ErrDeviceBusy        = errors.New("audio device already in use")
	ErrDeviceUnavailable = errors.New("audio device unavailable")
)

// Capturer grants exclusive access to an audio input.
type Capturer interface {
	Open(ctx context.Context) (Capture, error)
}

// Capture is a live, exclusively held input. Stop releases the device and is
// safe to call more than once.
type Capture interface {
	Track() webrtc.TrackLocal
	Stop() error
}

// FrameReader yields one 20ms frame of signed 16-bit PCM per call.
type FrameReader interface {
	ReadFrame(ctx context.Context, pcm []int16) error
	Close() error
}

// Device wraps a FrameReader factory and enforces single ownership.
type Device struct {
	name string
	open func() (FrameReader, error)

	mu   sync.Mutex
	held bool
}

func NewDevice(name string, open func() (FrameReader, error)) *Device {
	return &Device{name: name, open: open}
}

func (d *Device) Open(ctx context.Context) (Capture, error) {
	d.mu.Lock()
	if d.held {
		d.mu.Unlock()
		return nil, fmt.Errorf("%s: %w", d.name, ErrDeviceBusy)
	}
	d.held = true
	d.mu.Unlock()

	release := func() {
		d.mu.Lock()
		d.held = false
		d.mu.Unlock()
	}

	track, err := webrtc.NewTrackLocalStaticSample(
		webrtc.RTPCodecCapability{MimeType: webrtc.MimeTypePCMU, ClockRate: SampleRate},
		"audio", "voicechat")
	if err != nil {
		release()
		return nil, err
	}
	r, err := d.open()
	if err != nil {
		release()
		return nil, fmt.Errorf("%s: %w: %w", d.name, ErrDeviceUnavailable, err)
	}

	pumpCtx, cancel := context.WithCancel(context.Background())
	c := &capture{track: track, reader: r, cancel: cancel, done: make(chan struct{}), release: release}
	go c.pump(pumpCtx)
	return c, nil
}

type capture struct {
	track   *webrtc.TrackLocalStaticSample
	reader  FrameReader
	cancel  context.CancelFunc
	done    chan struct{}
	release func()

	once sync.Once
	err  error
}

func (c *capture) Track() webrtc.TrackLocal { return c.track }

func (c *capture) pump(ctx context.Context) {
	defer close(c.done)
	pcm := make([]int16, SamplesPerFrame)
	buf := make([]byte, SamplesPerFrame)
	for {
		if err := c.reader.ReadFrame(ctx, pcm); err != nil {
			return
		}
		EncodeMulaw(buf, pcm)
		// Writes before the track is bound are dropped by pion.
		if err := c.track.WriteSample(pionmedia.Sample{Data: buf, Duration: FrameDuration}); err != nil {
			return
		}
	}
}

func (c *capture) Stop() error {
	c.once.Do(func() {
		c.cancel()
		<-c.done
		c.err = c.reader.Close()
		c.release()
	})
	return c.err
}
