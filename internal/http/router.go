package http

import (
	"log/slog"
	nethttp "net/http"
	"os"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"

	"github.com/erikakettleson-openai/erika-webrtc/internal/config"
	"github.com/erikakettleson-openai/erika-webrtc/internal/http/handlers"
	"github.com/erikakettleson-openai/erika-webrtc/internal/metrics"
	"github.com/erikakettleson-openai/erika-webrtc/internal/realtime"
	"github.com/erikakettleson-openai/erika-webrtc/internal/repo/memory"
	"github.com/erikakettleson-openai/erika-webrtc/pkg/ws"
)

// NewRouter wires the relay server routes.
func NewRouter(cfg config.Config, broker handlers.CredentialIssuer, gateway handlers.ImageDescriber, m *metrics.Metrics, log *slog.Logger) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), requestLogger(log, m))

	var limiter *rate.Limiter
	if cfg.RelayRate > 0 {
		limiter = rate.NewLimiter(rate.Limit(cfg.RelayRate), max(cfg.RelayBurst, 1))
	}
	sh := handlers.NewSessionsHandler(broker, memory.NewIssuanceRepo(), log)
	ih := handlers.NewImageHandler(gateway, limiter, m, log)

	r.GET("/session", sh.Issue)
	r.POST("/upload-image", ih.Upload)
	r.GET("/v1/sessions/:id", sh.Summary)
	if m != nil {
		r.GET("/metrics", gin.WrapH(m.Handler()))
	}
	if fi, err := os.Stat(cfg.StaticDir); err == nil && fi.IsDir() {
		r.NoRoute(gin.WrapH(nethttp.FileServer(nethttp.Dir(cfg.StaticDir))))
	}
	return r
}

// NewEventsRouter serves the voice client's display log to local viewers.
func NewEventsRouter(display *realtime.DisplayLog, log *slog.Logger) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), requestLogger(log, nil))

	sh := handlers.NewStreamHandler(ws.NewHub(), display, log)
	display.Subscribe(sh.Publish)

	r.GET("/events", sh.WS)
	r.GET("/log", sh.Snapshot)
	return r
}

func requestLogger(log *slog.Logger, m *metrics.Metrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		d := time.Since(start)
		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		status := c.Writer.Status()
		if m != nil && route != "/metrics" {
			m.RecordRequest(route, strconv.Itoa(status), d)
		}
		log.Info("request",
			"method", c.Request.Method,
			"route", route,
			"status", status,
			"duration_ms", d.Milliseconds(),
		)
	}
}
