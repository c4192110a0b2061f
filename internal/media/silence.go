package media

import (
	"context"
	"time"
)

// NewSilence returns a device that emits paced silent frames. It stands in for
// a microphone on headless hosts.
func NewSilence() *Device {
	return NewDevice("silence", func() (FrameReader, error) {
		return &silence{tick: time.NewTicker(FrameDuration)}, nil
	})
}

type silence struct {
	tick *time.Ticker
}

func (s *silence) ReadFrame(ctx context.Context, pcm []int16) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-s.tick.C:
	}
	clear(pcm)
	return nil
}

func (s *silence) Close() error {
	s.tick.Stop()
	return nil
}
