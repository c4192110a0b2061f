//go:build portaudio

package media

import (
	"context"
	"fmt"

	"github.com/gordonklaus/portaudio"
)

// NewMicrophone opens the default PortAudio input at 8kHz mono.
func NewMicrophone() *Device {
	return NewDevice("microphone", openPortAudio)
}

type paReader struct {
	stream *portaudio.Stream
	buf    []int16
}

func openPortAudio() (FrameReader, error) {
	if err := portaudio.Initialize(); err != nil {
		return nil, fmt.Errorf("failed to initialize PortAudio: %w", err)
	}
	buf := make([]int16, SamplesPerFrame)
	stream, err := portaudio.OpenDefaultStream(1, 0, SampleRate, SamplesPerFrame, buf)
	if err != nil {
		portaudio.Terminate()
		return nil, fmt.Errorf("failed to open input stream: %w", err)
	}
	if err := stream.Start(); err != nil {
		stream.Close()
		portaudio.Terminate()
		return nil, fmt.Errorf("failed to start input stream: %w", err)
	}
	return &paReader{stream: stream, buf: buf}, nil
}

func (r *paReader) ReadFrame(ctx context.Context, pcm []int16) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := r.stream.Read(); err != nil {
		return err
	}
	copy(pcm, r.buf)
	return nil
}

func (r *paReader) Close() error {
	err := r.stream.Stop()
	if cerr := r.stream.Close(); err == nil {
		err = cerr
	}
	portaudio.Terminate()
	return err
}
