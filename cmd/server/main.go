package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"bursary/internal/notification"
	"bursary/internal/platform/config"
	"bursary/internal/platform/httpserver"
	"bursary/internal/platform/logger"
	platformmetrics "bursary/internal/platform/metrics"
	"bursary/internal/platform/middleware"
	"bursary/internal/platform/ocr"
	"bursary/internal/platform/postgres"
	platformredis "bursary/internal/platform/redis"
	"bursary/internal/verification/extract"
	"bursary/internal/verification/handler"
	"bursary/internal/verification/metrics"
	"bursary/internal/verification/models"
	"bursary/internal/verification/ports"
	"bursary/internal/verification/service"
	"bursary/internal/verification/store"
)

// main wires high-level dependencies, exposes the HTTP router, and keeps the
// server lifecycle small. Business logic lives in internal services packages.
func main() {
	cfg := config.FromEnv()
	log := logger.New()
	ctx := context.Background()

	ocrClient, err := ocr.New(cfg.OCR)
	if err != nil {
		log.Error("ocr client init failed", "error", err)
		os.Exit(1)
	}
	engine, err := extract.New(ocrClient,
		extract.WithLogger(log),
		extract.WithLanguage(cfg.OCR.Language),
		extract.WithOCRTimeout(cfg.OCR.Timeout),
	)
	if err != nil {
		log.Error("extraction engine init failed", "error", err)
		os.Exit(1)
	}

	requestStore, historyStore, cleanup, err := buildStores(ctx, cfg, log)
	if err != nil {
		log.Error("store init failed", "error", err)
		os.Exit(1)
	}
	defer cleanup()

	opts := []service.Option{
		service.WithLogger(log),
		service.WithMetrics(metrics.New()),
		service.WithRequirements(models.Requirements{MinGrade: cfg.MinGrade, MaxIncome: cfg.MaxIncome}),
		service.WithRequiredDocuments(cfg.RequiredDocs),
	}
	if len(cfg.Kafka.Brokers) > 0 {
		publisher, err := notification.NewKafka(ctx, cfg.Kafka.Brokers, cfg.Kafka.Topic)
		if err != nil {
			log.Error("kafka publisher init failed", "error", err)
			os.Exit(1)
		}
		defer publisher.Close()
		opts = append(opts, service.WithPublisher(publisher))
	}

	svc, err := service.New(requestStore, historyStore, engine, opts...)
	if err != nil {
		log.Error("service init failed", "error", err)
		os.Exit(1)
	}

	router := chi.NewRouter()
	router.Use(middleware.RequestID)
	router.Use(middleware.Logging(log, platformmetrics.New()))
	router.Handle("/metrics", promhttp.Handler())
	router.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	handler.New(svc, log).Register(router)

	srv := httpserver.New(cfg.Addr, router)
	log.Info("starting bursary verification server", "addr", cfg.Addr)

	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt)
	<-quit

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("graceful shutdown failed", "error", err)
		os.Exit(1)
	}
}

// buildStores picks persistence based on config: PostgreSQL and Redis when
// configured, in-memory otherwise.
func buildStores(ctx context.Context, cfg config.Server, log *slog.Logger) (ports.RequestStore, ports.HistoryStore, func(), error) {
	cleanup := func() {}

	var requestStore ports.RequestStore
	if cfg.PostgresDSN != "" {
		db, err := postgres.Open(ctx, cfg.PostgresDSN)
		if err != nil {
			return nil, nil, cleanup, err
		}
		pg := store.NewPostgres(db, nil)
		if err := pg.Migrate(ctx); err != nil {
			db.Close()
			return nil, nil, cleanup, err
		}
		requestStore = pg
		cleanup = func() { db.Close() }
		log.Info("using postgres request store")
	} else {
		requestStore = store.NewInMemoryStore(nil)
		log.Info("using in-memory request store")
	}

	var historyStore ports.HistoryStore
	redisClient, err := platformredis.New(cfg.Redis)
	if err != nil {
		return nil, nil, cleanup, err
	}
	if redisClient != nil {
		historyStore = store.NewRedisHistory(redisClient.Client)
		prev := cleanup
		cleanup = func() {
			redisClient.Close()
			prev()
		}
		log.Info("using redis history store")
	} else {
		historyStore = store.NewInMemoryHistory()
		log.Info("using in-memory history store")
	}

	return requestStore, historyStore, cleanup, nil
}
