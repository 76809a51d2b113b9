// Package main provides the alert worker entry point.
// Consumes pharmacovigilance events and texts the on-call phone for serious ones.
// Serves /metrics, including consumer lag, on the configured address.
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
	"github.com/mamasafe/go-mamasafe/internal/infrastructure/redpanda"
	"github.com/mamasafe/go-mamasafe/internal/observability/logging"
	"github.com/mamasafe/go-mamasafe/internal/observability/metrics"
	"github.com/mamasafe/go-mamasafe/internal/observability/tracing"
	"github.com/mamasafe/go-mamasafe/internal/pharmacovigilance"
	"github.com/mamasafe/go-mamasafe/pkg/idempotency"
	"github.com/mamasafe/go-mamasafe/pkg/workerpool"
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

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	tcfg := tracing.DefaultConfig(cfg.ServiceName + "-alert-worker")
	tcfg.Enabled = cfg.TracingEnabled
	tcfg.Environment = cfg.Env
	tcfg.OTLPEndpoint = cfg.OTLPEndpoint
	tp, err := tracing.Init(ctx, tcfg)
	if err != nil {
		logger.Fatal("tracing init failed", zap.Error(err))
	}
	defer tp.Shutdown(context.Background())

	a, err := app.New(ctx, cfg, logger, prometheus.DefaultRegisterer)
	if err != nil {
		logger.Fatal("app init failed", zap.Error(err))
	}
	defer a.Close()

	if cfg.AlertPhone == "" {
		logger.Warn("ALERT_PHONE not set, alertable events will be dropped")
	}

	// Redelivered events are suppressed through the inbox when a database is configured
	var dedupe pharmacovigilance.Deduper
	if a.Pool != nil {
		inbox := idempotency.NewInbox(a.Pool, idempotency.DefaultConfig(), logger)
		inbox.StartCleanup(ctx)
		defer inbox.Stop()
		dedupe = inbox
	}

	alerter := pharmacovigilance.NewAlerter(a.SMS, dedupe, cfg.AlertPhone, a.Metrics, logger)

	workers, err := workerpool.New(workerpool.DefaultConfig(), func(ctx context.Context, task *workerpool.Task) error {
		payload, ok := task.Payload.([]byte)
		if !ok {
			return workerpool.Permanent(errors.New("unexpected payload type"))
		}
		return alerter.Handle(ctx, payload)
	}, logger)
	if err != nil {
		logger.Fatal("worker pool creation failed", zap.Error(err))
	}
	workers.Start()

	consumerCfg := redpanda.DefaultConsumerConfig()
	consumerCfg.Brokers = cfg.Brokers()

	consumer, err := redpanda.NewConsumer(consumerCfg, enqueue(workers, a.Metrics), logger)
	if err != nil {
		logger.Fatal("consumer creation failed", zap.Error(err))
	}

	if err := redpanda.HealthCheck(ctx, consumerCfg.Brokers); err != nil {
		logger.Warn("broker unreachable at startup, consumer will keep retrying", zap.Error(err))
	}

	admin, err := redpanda.NewAdmin(consumerCfg.Brokers, logger)
	if err != nil {
		logger.Warn("consumer lag reporting disabled", zap.Error(err))
	} else {
		defer admin.Close()
		go reportLag(ctx, admin, consumerCfg.GroupID, a.Metrics, logger)
	}

	consumer.Start(ctx)

	r := chi.NewRouter()
	r.Handle("/metrics", a.Metrics.Handler())
	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	server := &http.Server{Addr: cfg.Addr(), Handler: r, ReadTimeout: 5 * time.Second}
	go func() {
		if err := server.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			logger.Error("metrics server error", zap.Error(err))
		}
	}()

	logger.Info("alert worker started",
		zap.Strings("brokers", consumerCfg.Brokers),
		zap.String("group", consumerCfg.GroupID),
		zap.String("metrics_addr", server.Addr),
	)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan

	logger.Info("shutting down")
	// Stop polling first so nothing is submitted to a closed pool, then drain
	consumer.Stop()
	if err := workers.Stop(); err != nil {
		logger.Error("worker pool stop error", zap.Error(err))
	}
	shutdownCtx, stop := context.WithTimeout(context.Background(), 10*time.Second)
	defer stop()
	_ = server.Shutdown(shutdownCtx)
	logger.Info("alert worker stopped")
}

// enqueue hands each consumed record to the pool. Offsets are committed once
// Submit returns, so tasks run under a context that survives the consumer
// loop being cancelled at shutdown and the queue still drains.
func enqueue(workers *workerpool.Pool, m *metrics.Metrics) redpanda.MessageHandler {
	return func(ctx context.Context, msg *redpanda.ConsumedMessage) error {
		err := workers.Submit(&workerpool.Task{
			ID:      string(msg.Key),
			Payload: msg.Value,
			Context: context.WithoutCancel(ctx),
		})
		m.KafkaConsume(msg.Topic, err)
		return err
	}
}

func reportLag(ctx context.Context, admin *redpanda.Admin, group string, m *metrics.Metrics, logger *zap.Logger) {
	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			lag, err := admin.GroupLag(ctx, group)
			if err != nil {
				logger.Warn("consumer lag lookup failed", zap.Error(err))
				continue
			}
			m.SetConsumerLag(group, redpanda.SumLag(lag))
		}
	}
}
