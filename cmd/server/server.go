package main

import (
	"context"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/erikakettleson-openai/erika-webrtc/internal/config"
	"github.com/erikakettleson-openai/erika-webrtc/internal/core/credential"
	"github.com/erikakettleson-openai/erika-webrtc/internal/core/vision"
	h "github.com/erikakettleson-openai/erika-webrtc/internal/http"
	"github.com/erikakettleson-openai/erika-webrtc/internal/logging"
	"github.com/erikakettleson-openai/erika-webrtc/internal/metrics"
)

func main() {
	_ = godotenv.Load()
	cfg, err := config.Load()
	if err != nil {
		log.Fatal(err)
	}
	logger := logging.New(cfg.Log)
	slog.SetDefault(logger)

	if cfg.OpenAIKey == "" {
		logger.Warn("OPENAI_API_KEY is not set; /session will fail")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	describer, err := newDescriber(ctx, cfg)
	if err != nil {
		logger.Error("vision backend", "provider", cfg.VisionProvider, "err", err)
		os.Exit(1)
	}

	vendorHTTP := &http.Client{Timeout: cfg.VendorTimeout}
	broker := credential.NewBroker(cfg, vendorHTTP, logger.With("component", "credential"))
	gateway := vision.NewGateway(describer, cfg.MaxImageBytes, logger.With("component", "vision"))

	r := h.NewRouter(cfg, broker, gateway, metrics.New("relay"), logger)
	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	logger.Info("relay listening", "port", cfg.Port, "vision", cfg.VisionProvider, "model", cfg.Model)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Error("server stopped", "err", err)
		os.Exit(1)
	}
}

func newDescriber(ctx context.Context, cfg config.Config) (vision.Describer, error) {
	if cfg.VisionProvider == "gemini" {
		return vision.NewGeminiDescriber(ctx, cfg.GeminiKey, cfg.GeminiModel, cfg.VendorTimeout)
	}
	hc := &http.Client{Timeout: cfg.VendorTimeout}
	return vision.NewOpenAIDescriber(cfg.OpenAIKey, cfg.OpenAIBaseURL, cfg.VisionModel, hc), nil
}
