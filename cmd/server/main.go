package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"

	"standup/keeper/internal/api"
	"standup/keeper/internal/config"
	"standup/keeper/internal/events"
	"standup/keeper/internal/ingest"
	"standup/keeper/internal/logging"
	"standup/keeper/internal/meeting"
	"standup/keeper/internal/monitor"
	"standup/keeper/internal/notify"
	"standup/keeper/internal/participant"
	"standup/keeper/internal/queue"
	"standup/keeper/internal/report"
	"standup/keeper/internal/scheduler"
)

func main() {
	// Load .env file if present (ignored if missing)
	_ = godotenv.Load()

	cfg := config.Load()
	logging.Init(cfg.Server.LogLevel, cfg.Server.LogFormat)

	pub := events.NewPublisher(events.PublisherConfig{
		Brokers: cfg.Kafka.Brokers,
		Topic:   cfg.Kafka.Topic,
		Enabled: cfg.Kafka.Enabled,
	})
	audit := events.NewLog(0, pub)

	roster := participant.NewStore()
	sched := scheduler.New(roster, audit)
	q := queue.New(cfg.Meeting.QueueCapacity)
	mon := monitor.New(sched, q, time.Duration(cfg.Meeting.PollIntervalMs)*time.Millisecond)

	var announcer notify.Announcer = notify.LogAnnouncer{}
	if cfg.Announce.WebhookURL != "" {
		announcer = notify.NewWebhook(cfg.Announce.WebhookURL)
	}

	m := meeting.New(sched, q, mon, announcer, audit, report.CoverageScorer{}, time.Duration(cfg.Meeting.JoinTimeoutSecs)*time.Second)
	ing := ingest.New(sched, q, cfg.Meeting.CompletionPhrases)

	h := api.NewHandlers(m, ing, audit)
	mux := http.NewServeMux()
	mux.Handle("/", api.NewRouter(h))
	mux.Handle("/metrics", promhttp.Handler())

	wss := ingest.NewWSServer(ing, cfg.Source.TokenSecret, cfg.Source.TokenSkewSecs)
	mux.HandleFunc("/ws/recognizer", wss.HandleRecognizerWS)

	addr := ":" + cfg.Server.Port
	srv := &http.Server{
		Addr:              addr,
		Handler:           logMiddleware(mux),
		ReadHeaderTimeout: 5 * time.Second,
	}

	// Graceful shutdown on SIGINT/SIGTERM
	sigc := make(chan os.Signal, 1)
	signal.Notify(sigc, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigc
		log.Info().Msg("shutdown signal received; stopping server")
		if m.Phase() == meeting.PhaseActive {
			if _, err := m.EndMeeting(); err != nil {
				log.Warn().Err(err).Msg("ending meeting on shutdown")
			}
		}
		if err := pub.Close(); err != nil {
			log.Warn().Err(err).Msg("closing kafka publisher")
		}
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctx)
	}()

	log.Info().Str("addr", addr).Msg("server starting")
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Error().Err(err).Msg("server error")
		os.Exit(1)
	}
}

func logMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		log.Debug().Str("method", r.Method).Str("path", r.URL.Path).
			Dur("took", time.Since(start)).Msg("http request")
	})
}
