//go:build !portaudio

package media

import "errors"

// NewMicrophone reports the device as unavailable; build with -tags portaudio
// to capture from the default input.
func NewMicrophone() *Device {
	return NewDevice("microphone", func() (FrameReader, error) {
		return nil, errors.New("built without portaudio support")
	})
}
