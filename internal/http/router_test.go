package http

import (
	"context"
	"encoding/json"
	"errors"
	nethttp "net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/erikakettleson-openai/erika-webrtc/internal/config"
	"github.com/erikakettleson-openai/erika-webrtc/internal/core/credential"
	"github.com/erikakettleson-openai/erika-webrtc/internal/core/vision"
	"github.com/erikakettleson-openai/erika-webrtc/internal/logging"
	"github.com/erikakettleson-openai/erika-webrtc/internal/metrics"
	"github.com/erikakettleson-openai/erika-webrtc/internal/realtime"
	"github.com/erikakettleson-openai/erika-webrtc/pkg/types"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type fakeBroker struct {
	calls atomic.Int32
	err   error
	raw   string
}

func (f *fakeBroker) IssueSessionCredential(ctx context.Context) (*credential.Credential, error) {
	f.calls.Add(1)
	if f.err != nil {
		return nil, f.err
	}
	var parsed types.SessionResp
	if err := json.Unmarshal([]byte(f.raw), &parsed); err != nil {
		return nil, err
	}
	return &credential.Credential{
		SessionID: parsed.ID,
		Model:     parsed.Model,
		Value:     parsed.ClientSecret.Value,
		ExpiresAt: parsed.ClientSecret.ExpiresAt,
		Raw:       json.RawMessage(f.raw),
	}, nil
}

type fakeDescriber struct {
	calls atomic.Int32
	body  string
	err   error
}

func (f *fakeDescriber) Describe(ctx context.Context, img *vision.Image) (json.RawMessage, error) {
	f.calls.Add(1)
	if f.err != nil {
		return nil, f.err
	}
	return json.RawMessage(f.body), nil
}

type fixture struct {
	router    *gin.Engine
	broker    *fakeBroker
	describer *fakeDescriber
}

func newFixture(t *testing.T, cfg config.Config) *fixture {
	t.Helper()
	if cfg.MaxImageBytes == 0 {
		cfg.MaxImageBytes = 1 << 10
	}
	if cfg.StaticDir == "" {
		cfg.StaticDir = filepath.Join(t.TempDir(), "missing")
	}
	b := &fakeBroker{raw: `{"id":"sess_abc","model":"m","client_secret":{"value":"ek_1","expires_at":4102444800}}`}
	d := &fakeDescriber{body: `{"id":"chatcmpl-1","choices":[{"index":0,"message":{"role":"assistant","content":"A dog."}}]}`}
	log := logging.Discard()
	gw := vision.NewGateway(d, cfg.MaxImageBytes, log)
	return &fixture{
		router:    NewRouter(cfg, b, gw, metrics.New("test"), log),
		broker:    b,
		describer: d,
	}
}

func (f *fixture) do(method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)
	return rec
}

func uploadBody(image string) string {
	b, _ := json.Marshal(types.UploadImageReq{Image: image})
	return string(b)
}

func TestSessionPassesVendorBodyThrough(t *testing.T) {
	f := newFixture(t, config.Config{})
	rec := f.do(nethttp.MethodGet, "/session", "")
	require.Equal(t, nethttp.StatusOK, rec.Code)
	assert.JSONEq(t, f.broker.raw, rec.Body.String())
	assert.Contains(t, rec.Header().Get("Content-Type"), "application/json")

	rec = f.do(nethttp.MethodGet, "/session", "")
	require.Equal(t, nethttp.StatusOK, rec.Code)
	assert.EqualValues(t, 2, f.broker.calls.Load())
}

func TestSessionFailure(t *testing.T) {
	f := newFixture(t, config.Config{})
	f.broker.err = &credential.StatusError{StatusCode: 401, Body: "nope"}
	rec := f.do(nethttp.MethodGet, "/session", "")
	assert.Equal(t, nethttp.StatusInternalServerError, rec.Code)
	assert.Equal(t, "Failed to fetch ephemeral key", rec.Body.String())
}

func TestSessionSummaryHidesSecret(t *testing.T) {
	f := newFixture(t, config.Config{})
	require.Equal(t, nethttp.StatusOK, f.do(nethttp.MethodGet, "/session", "").Code)

	rec := f.do(nethttp.MethodGet, "/v1/sessions/sess_abc", "")
	require.Equal(t, nethttp.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"session_id":"sess_abc"`)
	assert.NotContains(t, rec.Body.String(), "ek_1")

	rec = f.do(nethttp.MethodGet, "/v1/sessions/unknown", "")
	assert.Equal(t, nethttp.StatusNotFound, rec.Code)
}

func TestUploadImage(t *testing.T) {
	f := newFixture(t, config.Config{})
	rec := f.do(nethttp.MethodPost, "/upload-image", uploadBody("data:image/png;base64,iVBORw0KGgo="))
	require.Equal(t, nethttp.StatusOK, rec.Code)
	assert.JSONEq(t, f.describer.body, rec.Body.String())
}

func TestUploadImageRejections(t *testing.T) {
	cases := []struct {
		name   string
		body   string
		status int
	}{
		{"not json", "{", nethttp.StatusBadRequest},
		{"missing image", `{}`, nethttp.StatusBadRequest},
		{"not a data uri", uploadBody("https://example.com/cat.png"), nethttp.StatusBadRequest},
		{"over gateway limit", uploadBody("data:image/png;base64," + strings.Repeat("A", 1100)), nethttp.StatusRequestEntityTooLarge},
		{"over body limit", uploadBody("data:image/png;base64," + strings.Repeat("A", 8<<10)), nethttp.StatusRequestEntityTooLarge},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			f := newFixture(t, config.Config{})
			rec := f.do(nethttp.MethodPost, "/upload-image", tc.body)
			assert.Equal(t, tc.status, rec.Code)
			assert.Zero(t, f.describer.calls.Load())
		})
	}
}

func TestUploadImageVendorFailure(t *testing.T) {
	f := newFixture(t, config.Config{})
	f.describer.err = errors.New("boom")
	rec := f.do(nethttp.MethodPost, "/upload-image", uploadBody("data:image/png;base64,AA=="))
	assert.Equal(t, nethttp.StatusInternalServerError, rec.Code)
	assert.Equal(t, "Failed to describe image", rec.Body.String())
}

func TestUploadImageRateLimited(t *testing.T) {
	f := newFixture(t, config.Config{RelayRate: 0.001, RelayBurst: 1})
	body := uploadBody("data:image/png;base64,AA==")
	assert.Equal(t, nethttp.StatusOK, f.do(nethttp.MethodPost, "/upload-image", body).Code)
	assert.Equal(t, nethttp.StatusTooManyRequests, f.do(nethttp.MethodPost, "/upload-image", body).Code)
	assert.EqualValues(t, 1, f.describer.calls.Load())

	rec := f.do(nethttp.MethodGet, "/metrics", "")
	require.Equal(t, nethttp.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "test_rate_limit_hits_total 1")
	assert.Contains(t, rec.Body.String(), `test_requests_total{route="/upload-image",status="429"} 1`)
}

func TestStaticFiles(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "index.html"), []byte("<h1>voice</h1>"), 0o644))
	f := newFixture(t, config.Config{StaticDir: dir})

	rec := f.do(nethttp.MethodGet, "/", "")
	require.Equal(t, nethttp.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "<h1>voice</h1>")
}

func TestEventsFeed(t *testing.T) {
	display := realtime.NewDisplayLog(10)
	display.Append(realtime.ServerEvent{EventID: "e1", Type: "session.created", Raw: []byte(`{"event_id":"e1","type":"session.created"}`)})

	srv := httptest.NewServer(NewEventsRouter(display, logging.Discard()))
	defer srv.Close()

	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http")+"/events", nil)
	require.NoError(t, err)
	defer conn.Close()
	conn.SetReadDeadline(time.Now().Add(5 * time.Second))

	var hello struct {
		Type    string           `json:"type"`
		Entries []types.LogEntry `json:"entries"`
	}
	require.NoError(t, conn.ReadJSON(&hello))
	assert.Equal(t, "hello", hello.Type)
	require.Len(t, hello.Entries, 1)
	assert.Equal(t, "e1", hello.Entries[0].EventID)

	display.Append(realtime.ServerEvent{EventID: "e2", Type: "response.done", Raw: []byte(`{"event_id":"e2","type":"response.done"}`)})
	var live struct {
		Type  string         `json:"type"`
		Entry types.LogEntry `json:"entry"`
	}
	require.NoError(t, conn.ReadJSON(&live))
	assert.Equal(t, "event", live.Type)
	assert.Equal(t, "e2", live.Entry.EventID)
	assert.Equal(t, uint64(2), live.Entry.Seq)

	resp, err := nethttp.Get(srv.URL + "/log")
	require.NoError(t, err)
	defer resp.Body.Close()
	var snap struct {
		Entries []types.LogEntry `json:"entries"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&snap))
	require.Len(t, snap.Entries, 2)
	assert.Equal(t, "e2", snap.Entries[0].EventID)
}
