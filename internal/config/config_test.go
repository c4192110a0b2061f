package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	for _, k := range []string{"PORT", "REALTIME_MODEL", "REALTIME_VOICE", "VISION_PROVIDER", "MAX_IMAGE_BYTES", "VENDOR_TIMEOUT"} {
		t.Setenv(k, "")
	}

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "3000", cfg.Port)
	assert.Equal(t, DefaultRealtimeModel, cfg.Model)
	assert.Equal(t, DefaultVoice, cfg.Voice)
	assert.Equal(t, "openai", cfg.VisionProvider)
	assert.EqualValues(t, 10<<20, cfg.MaxImageBytes)
	assert.Equal(t, time.Minute, cfg.VendorTimeout)
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("PORT", "9000")
	t.Setenv("VISION_PROVIDER", "Gemini")
	t.Setenv("MAX_IMAGE_BYTES", "1024")
	t.Setenv("VENDOR_TIMEOUT", "5s")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "9000", cfg.Port)
	assert.Equal(t, "gemini", cfg.VisionProvider)
	assert.EqualValues(t, 1024, cfg.MaxImageBytes)
	assert.Equal(t, 5*time.Second, cfg.VendorTimeout)
}

func TestLoadRejectsBadValues(t *testing.T) {
	t.Setenv("MAX_IMAGE_BYTES", "lots")
	_, err := Load()
	require.ErrorContains(t, err, "MAX_IMAGE_BYTES")

	t.Setenv("MAX_IMAGE_BYTES", "")
	t.Setenv("VISION_PROVIDER", "bing")
	_, err = Load()
	require.ErrorContains(t, err, "VISION_PROVIDER")
}

func TestLoadClient(t *testing.T) {
	t.Setenv("SERVER_URL", "http://relay.local:3000/")
	t.Setenv("DISPLAY_LOG_CAP", "-4")
	t.Setenv("NEGOTIATION_TIMEOUT", "15s")

	cfg, err := LoadClient()
	require.NoError(t, err)
	assert.Equal(t, "http://relay.local:3000", cfg.ServerURL)
	assert.Equal(t, 0, cfg.DisplayLogCap)
	assert.Equal(t, 15*time.Second, cfg.NegotiationTimeout)
	assert.Equal(t, "silence", cfg.AudioSource)
}
