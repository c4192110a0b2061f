package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"golang.org/x/sync/errgroup"

	"github.com/erikakettleson-openai/erika-webrtc/internal/config"
	h "github.com/erikakettleson-openai/erika-webrtc/internal/http"
	"github.com/erikakettleson-openai/erika-webrtc/internal/logging"
	"github.com/erikakettleson-openai/erika-webrtc/internal/media"
	"github.com/erikakettleson-openai/erika-webrtc/internal/realtime"
)

func main() {
	_ = godotenv.Load()
	cfg, err := config.LoadClient()
	if err != nil {
		log.Fatal(err)
	}
	logger := logging.NewTo(os.Stderr, cfg.Log)

	var capturer media.Capturer
	switch cfg.AudioSource {
	case "mic", "microphone":
		capturer = media.NewMicrophone()
	default:
		capturer = media.NewSilence()
	}

	relay := realtime.NewRelayClient(cfg.ServerURL, &http.Client{Timeout: 90 * time.Second})
	client := realtime.NewClient(relay, capturer, realtime.Options{
		RealtimeURL:        cfg.RealtimeURL,
		Model:              cfg.Model,
		NegotiationTimeout: cfg.NegotiationTimeout,
		DisplayLogCap:      cfg.DisplayLogCap,
		Logger:             logger,
	})
	defer client.Stop()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	g, ctx := errgroup.WithContext(ctx)

	if cfg.EventsAddr != "" {
		srv := &http.Server{
			Addr:              cfg.EventsAddr,
			Handler:           h.NewEventsRouter(client.Log(), logger),
			ReadHeaderTimeout: 10 * time.Second,
		}
		g.Go(func() error {
			logger.Info("event feed listening", "addr", cfg.EventsAddr)
			if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		})
		g.Go(func() error {
			<-ctx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		})
	}

	r := newREPL(client, relay, os.Stdout)
	g.Go(func() error {
		err := r.run(ctx, os.Stdin)
		stop()
		return err
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("voicechat stopped", "err", err)
		os.Exit(1)
	}
}
