package realtime

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/gabriel-vasile/mimetype"

	"github.com/erikakettleson-openai/erika-webrtc/internal/core/credential"
	"github.com/erikakettleson-openai/erika-webrtc/pkg/types"
)

// RelayClient talks to the relay server's /session and /upload-image routes.
type RelayClient struct {
	base string
	hc   *http.Client
}

func NewRelayClient(serverURL string, hc *http.Client) *RelayClient {
	if hc == nil {
		hc = &http.Client{}
	}
	return &RelayClient{base: strings.TrimRight(serverURL, "/"), hc: hc}
}

// IssueSessionCredential fetches a fresh ephemeral credential from the relay
// server.
func (r *RelayClient) IssueSessionCredential(ctx context.Context) (*credential.Credential, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, r.base+"/session", nil)
	if err != nil {
		return nil, err
	}
	resp, err := r.hc.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("session endpoint: status %d: %s", resp.StatusCode, strings.TrimSpace(string(raw)))
	}
	var parsed types.SessionResp
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return nil, fmt.Errorf("session endpoint: %w", err)
	}
	if parsed.ClientSecret.Value == "" {
		return nil, fmt.Errorf("session endpoint: missing client_secret.value")
	}
	return &credential.Credential{
		Value:     parsed.ClientSecret.Value,
		ExpiresAt: parsed.ClientSecret.ExpiresAt,
		Raw:       raw,
	}, nil
}

// Description is the text the relay extracted for one image.
type Description string

// DescribeImage uploads a data URI and returns the first description.
func (r *RelayClient) DescribeImage(ctx context.Context, dataURI string) (Description, error) {
	body, err := json.Marshal(types.UploadImageReq{Image: dataURI})
	if err != nil {
		return "", wrap(ErrRelay, err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.base+"/upload-image", bytes.NewReader(body))
	if err != nil {
		return "", wrap(ErrRelay, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := r.hc.Do(req)
	if err != nil {
		return "", wrap(ErrRelay, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", wrap(ErrRelay, err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("%w: status %d: %s", ErrRelay, resp.StatusCode, strings.TrimSpace(string(raw)))
	}
	var cc types.ChatCompletion
	if err := json.Unmarshal(raw, &cc); err != nil {
		return "", wrap(ErrRelay, err)
	}
	return Description(cc.Description()), nil
}

// EncodeDataURI builds a base64 data URI, sniffing the media type.
func EncodeDataURI(data []byte) string {
	mime := mimetype.Detect(data).String()
	if i := strings.IndexByte(mime, ';'); i >= 0 {
		mime = mime[:i]
	}
	return "data:" + mime + ";base64," + base64.StdEncoding.EncodeToString(data)
}
