package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecordRequest(t *testing.T) {
	m := New("")
	m.RecordRequest("/session", "200", 150*time.Millisecond)
	m.RecordRequest("/session", "200", time.Second)
	m.RecordRequest("/upload-image", "413", time.Millisecond)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.RequestsTotal.WithLabelValues("/session", "200")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.RequestsTotal.WithLabelValues("/upload-image", "413")))
}

func TestHandlerExposesMetrics(t *testing.T) {
	m := New("test")
	m.RecordRateLimited()
	m.RecordImage(2048)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, "test_rate_limit_hits_total 1")
	assert.Contains(t, body, "test_image_upload_bytes_count 1")
}
