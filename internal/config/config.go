package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

const (
	DefaultRealtimeModel = "gpt-4o-realtime-preview-2024-12-17"
	DefaultVoice         = "verse"
	DefaultInstructions  = "You are a friendly voice assistant. Keep answers short and conversational."
	DefaultMaxImageBytes = 10 << 20
)

// Config is the relay server configuration. It is read once at startup and
// never mutated afterwards.
type Config struct {
	Port string

	OpenAIKey     string
	OpenAIBaseURL string
	SessionsURL   string
	Model         string
	Voice         string
	Instructions  string

	VisionProvider string
	VisionModel    string
	GeminiKey      string
	GeminiModel    string
	MaxImageBytes  int64

	// VendorTimeout bounds each outbound vendor call. Zero means no deadline.
	VendorTimeout time.Duration
	RelayRate     float64
	RelayBurst    int

	StaticDir string
	Log       LogConfig
}

// ClientConfig configures the terminal voice client.
type ClientConfig struct {
	ServerURL   string
	RealtimeURL string
	Model       string
	AudioSource string

	DisplayLogCap      int
	EventsAddr         string
	NegotiationTimeout time.Duration

	Log LogConfig
}

type LogConfig struct {
	Level string
	File  string
}

func Load() (Config, error) {
	maxImage, err := parseInt("MAX_IMAGE_BYTES", DefaultMaxImageBytes)
	if err != nil {
		return Config{}, err
	}
	timeout, err := parseDuration("VENDOR_TIMEOUT", 60*time.Second)
	if err != nil {
		return Config{}, err
	}
	rate, err := parseFloat("RELAY_RATE_PER_SEC", 0)
	if err != nil {
		return Config{}, err
	}
	burst, err := parseInt("RELAY_BURST", 5)
	if err != nil {
		return Config{}, err
	}

	cfg := Config{
		Port:           getenv("PORT", "3000"),
		OpenAIKey:      getenv("OPENAI_API_KEY", ""),
		OpenAIBaseURL:  getenv("OPENAI_BASE_URL", "https://api.openai.com/v1/"),
		SessionsURL:    getenv("REALTIME_SESSIONS_URL", "https://api.openai.com/v1/realtime/sessions"),
		Model:          getenv("REALTIME_MODEL", DefaultRealtimeModel),
		Voice:          getenv("REALTIME_VOICE", DefaultVoice),
		Instructions:   getenv("REALTIME_INSTRUCTIONS", DefaultInstructions),
		VisionProvider: strings.ToLower(getenv("VISION_PROVIDER", "openai")),
		VisionModel:    getenv("VISION_MODEL", "gpt-4o"),
		GeminiKey:      getenv("GEMINI_API_KEY", ""),
		GeminiModel:    getenv("GEMINI_MODEL", "gemini-2.5-flash"),
		MaxImageBytes:  int64(maxImage),
		VendorTimeout:  timeout,
		RelayRate:      rate,
		RelayBurst:     burst,
		StaticDir:      getenv("STATIC_DIR", "public"),
		Log:            loadLog(),
	}

	switch cfg.VisionProvider {
	case "openai", "gemini":
	default:
		return Config{}, fmt.Errorf("invalid VISION_PROVIDER value %q", cfg.VisionProvider)
	}
	if cfg.MaxImageBytes <= 0 {
		return Config{}, fmt.Errorf("invalid MAX_IMAGE_BYTES value %d", cfg.MaxImageBytes)
	}
	return cfg, nil
}

func LoadClient() (ClientConfig, error) {
	logCap, err := parseInt("DISPLAY_LOG_CAP", 200)
	if err != nil {
		return ClientConfig{}, err
	}
	timeout, err := parseDuration("NEGOTIATION_TIMEOUT", 0)
	if err != nil {
		return ClientConfig{}, err
	}

	cfg := ClientConfig{
		ServerURL:          strings.TrimRight(getenv("SERVER_URL", "http://localhost:3000"), "/"),
		RealtimeURL:        getenv("REALTIME_URL", "https://api.openai.com/v1/realtime"),
		Model:              getenv("REALTIME_MODEL", DefaultRealtimeModel),
		AudioSource:        strings.ToLower(getenv("AUDIO_SOURCE", "silence")),
		DisplayLogCap:      logCap,
		EventsAddr:         getenv("EVENTS_ADDR", ""),
		NegotiationTimeout: timeout,
		Log:                loadLog(),
	}
	if cfg.DisplayLogCap < 0 {
		cfg.DisplayLogCap = 0
	}
	return cfg, nil
}

func loadLog() LogConfig {
	return LogConfig{
		Level: getenv("LOG_LEVEL", "info"),
		File:  getenv("LOG_FILE", ""),
	}
}

func getenv(k, d string) string {
	if v := strings.TrimSpace(os.Getenv(k)); v != "" {
		return v
	}
	return d
}

func parseInt(k string, d int) (int, error) {
	raw := strings.TrimSpace(os.Getenv(k))
	if raw == "" {
		return d, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s value %q: %w", k, raw, err)
	}
	return v, nil
}

func parseFloat(k string, d float64) (float64, error) {
	raw := strings.TrimSpace(os.Getenv(k))
	if raw == "" {
		return d, nil
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s value %q: %w", k, raw, err)
	}
	return v, nil
}

func parseDuration(k string, d time.Duration) (time.Duration, error) {
	raw := strings.TrimSpace(os.Getenv(k))
	if raw == "" {
		return d, nil
	}
	v, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s value %q: %w", k, raw, err)
	}
	return v, nil
}
