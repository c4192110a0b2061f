// Package credential exchanges the long-lived vendor key for a short-lived
// realtime session credential.
package credential

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/erikakettleson-openai/erika-webrtc/internal/config"
	"github.com/erikakettleson-openai/erika-webrtc/pkg/types"
)

var (
	ErrAcquisition       = errors.New("credential acquisition failed")
	ErrNetwork           = fmt.Errorf("%w: network error", ErrAcquisition)
	ErrVendorStatus      = fmt.Errorf("%w: vendor rejected request", ErrAcquisition)
	ErrMalformedResponse = fmt.Errorf("%w: malformed vendor response", ErrAcquisition)
)

// StatusError reports a non-2xx answer from the session endpoint.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%v: status %d", ErrVendorStatus, e.StatusCode)
}

func (e *StatusError) Unwrap() error { return ErrVendorStatus }

// Credential is an ephemeral client secret. Raw holds the vendor body verbatim.
type Credential struct {
	SessionID string          `json:"session_id,omitempty"`
	Model     string          `json:"model,omitempty"`
	Value     string          `json:"-"`
	ExpiresAt int64           `json:"expires_at,omitempty"`
	Raw       json.RawMessage `json:"-"`
}

// String keeps the secret out of fmt output.
func (c Credential) String() string {
	return fmt.Sprintf("credential(expires_at=%d)", c.ExpiresAt)
}

// LogValue keeps the secret out of slog output.
func (c Credential) LogValue() slog.Value {
	return slog.GroupValue(
		slog.String("session_id", c.SessionID),
		slog.Int64("expires_at", c.ExpiresAt),
	)
}

type Broker struct {
	url     string
	apiKey  string
	profile types.SessionReq
	hc      *http.Client
	log     *slog.Logger
}

func NewBroker(cfg config.Config, hc *http.Client, log *slog.Logger) *Broker {
	if hc == nil {
		hc = &http.Client{Timeout: cfg.VendorTimeout}
	}
	return &Broker{
		url:    cfg.SessionsURL,
		apiKey: cfg.OpenAIKey,
		profile: types.SessionReq{
			Model:        cfg.Model,
			Voice:        cfg.Voice,
			Instructions: cfg.Instructions,
		},
		hc:  hc,
		log: log,
	}
}

// IssueSessionCredential makes exactly one call to the session endpoint.
func (b *Broker) IssueSessionCredential(ctx context.Context) (*Credential, error) {
	body, err := json.Marshal(b.profile)
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, b.url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrNetwork, err)
	}
	req.Header.Set("Authorization", "Bearer "+b.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := b.hc.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrNetwork, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrNetwork, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		b.log.Warn("session endpoint rejected request", "status", resp.StatusCode)
		return nil, &StatusError{StatusCode: resp.StatusCode, Body: string(raw)}
	}

	var parsed types.SessionResp
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMalformedResponse, err)
	}
	if parsed.ClientSecret.Value == "" {
		return nil, fmt.Errorf("%w: missing client_secret.value", ErrMalformedResponse)
	}

	b.log.Debug("session credential issued", "session_id", parsed.ID, "expires_at", parsed.ClientSecret.ExpiresAt)
	return &Credential{
		SessionID: parsed.ID,
		Model:     parsed.Model,
		Value:     parsed.ClientSecret.Value,
		ExpiresAt: parsed.ClientSecret.ExpiresAt,
		Raw:       raw,
	}, nil
}
