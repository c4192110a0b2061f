package realtime

import (
	"errors"
	"fmt"
)

var (
	ErrCredentialAcquisition = errors.New("credential acquisition failed")
	ErrMediaCapture          = errors.New("media capture failed")
	ErrNegotiation           = errors.New("negotiation failed")
	ErrChannelNotReady       = errors.New("event channel not ready")
	ErrMalformedEvent        = errors.New("malformed server event")
	ErrRelay                 = errors.New("image relay failed")

	ErrSessionActive  = errors.New("a session is already active")
	ErrSessionStopped = errors.New("session stopped")
)

// NegotiationStatusError is a non-2xx answer from the SDP endpoint.
type NegotiationStatusError struct {
	StatusCode int
	Body       string
}

func (e *NegotiationStatusError) Error() string {
	return fmt.Sprintf("%v: status %d", ErrNegotiation, e.StatusCode)
}

func (e *NegotiationStatusError) Unwrap() error { return ErrNegotiation }

func wrap(kind, err error) error {
	if err == nil || errors.Is(err, kind) {
		return err
	}
	return fmt.Errorf("%w: %w", kind, err)
}
