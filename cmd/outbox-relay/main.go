// Package main provides the outbox relay service entry point.
// Publishes audit entries committed to the outbox table to Kafka.
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/mamasafe/go-mamasafe/internal/app"
	"github.com/mamasafe/go-mamasafe/internal/config"
	"github.com/mamasafe/go-mamasafe/internal/infrastructure/postgres"
	"github.com/mamasafe/go-mamasafe/internal/infrastructure/redpanda"
	"github.com/mamasafe/go-mamasafe/internal/observability/logging"
	"github.com/mamasafe/go-mamasafe/internal/observability/metrics"
)

const (
	maintenanceInterval = 30 * time.Second
	processedRetention  = 72 * time.Hour
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	logger, err := logging.New(cfg.LogLevel, cfg.Env)
	if err != nil {
		panic(err)
	}
	defer logger.Sync()

	if cfg.DatabaseURL == "" {
		logger.Fatal("DATABASE_URL is required for the outbox relay")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pool, err := app.OpenPool(ctx, cfg.DatabaseURL)
	if err != nil {
		logger.Fatal("database connection failed", zap.Error(err))
	}
	defer pool.Close()
	logger.Info("connected to database")

	m := metrics.New(prometheus.DefaultRegisterer)

	admin, err := redpanda.NewAdmin(cfg.Brokers(), logger)
	if err != nil {
		logger.Fatal("kafka admin creation failed", zap.Error(err))
	}
	if err := admin.EnsureTopics(ctx); err != nil {
		logger.Warn("topic creation failed", zap.Error(err))
	}
	admin.Close()

	producerCfg := redpanda.DefaultProducerConfig()
	producerCfg.Brokers = cfg.Brokers()
	producerCfg.OnProduce = m.KafkaProduce

	producer, err := redpanda.NewProducer(producerCfg, logger)
	if err != nil {
		logger.Fatal("producer creation failed", zap.Error(err))
	}
	defer producer.Close()
	logger.Info("connected to kafka", zap.Strings("brokers", producerCfg.Brokers))

	relay := postgres.NewRelay(pool, producer, postgres.DefaultOutboxConfig(), logger)
	relay.Start(ctx)
	go maintain(ctx, relay, m, logger)

	r := chi.NewRouter()
	r.Handle("/metrics", m.Handler())
	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	server := &http.Server{Addr: cfg.Addr(), Handler: r, ReadTimeout: 5 * time.Second}
	go func() {
		if err := server.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			logger.Error("metrics server error", zap.Error(err))
		}
	}()

	logger.Info("outbox relay started", zap.String("metrics_addr", server.Addr))

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan

	logger.Info("shutting down")
	relay.Stop()
	shutdownCtx, stop := context.WithTimeout(context.Background(), 10*time.Second)
	defer stop()
	_ = server.Shutdown(shutdownCtx)
	logger.Info("outbox relay stopped")
}

// maintain dead-letters exhausted entries, purges old processed rows and
// reports the backlog.
func maintain(ctx context.Context, relay *postgres.Relay, m *metrics.Metrics, logger *zap.Logger) {
	ticker := time.NewTicker(maintenanceInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		if n, err := relay.MoveToDeadLetter(ctx); err != nil {
			logger.Error("dead letter sweep failed", zap.Error(err))
		} else if n > 0 {
			logger.Warn("outbox entries dead-lettered", zap.Int64("count", n))
		}
		if _, err := relay.CleanupProcessed(ctx, processedRetention); err != nil {
			logger.Error("outbox cleanup failed", zap.Error(err))
		}
		if n, err := relay.PendingCount(ctx); err == nil {
			m.SetOutboxPending(n)
		}
	}
}
