package realtime

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
)

const maxAnswerBytes = 1 << 20

// exchange posts the SDP offer to the vendor, authorized by the session's
// single credential, and returns the answer text.
func (s *Session) exchange(ctx context.Context, offer, secret string) (string, error) {
	u, err := url.Parse(s.client.opts.RealtimeURL)
	if err != nil {
		return "", wrap(ErrNegotiation, err)
	}
	q := u.Query()
	q.Set("model", s.client.opts.Model)
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u.String(), strings.NewReader(offer))
	if err != nil {
		return "", wrap(ErrNegotiation, err)
	}
	req.Header.Set("Authorization", "Bearer "+secret)
	req.Header.Set("Content-Type", "application/sdp")

	resp, err := s.client.opts.HTTPClient.Do(req)
	if err != nil {
		return "", wrap(ErrNegotiation, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxAnswerBytes))
	if err != nil {
		return "", wrap(ErrNegotiation, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", &NegotiationStatusError{StatusCode: resp.StatusCode, Body: string(body)}
	}
	answer := string(body)
	if !strings.HasPrefix(strings.TrimSpace(answer), "v=") {
		return "", fmt.Errorf("%w: response is not an SDP answer", ErrNegotiation)
	}
	return answer, nil
}
