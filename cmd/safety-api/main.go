// Package main provides the MamaSafe API service entry point.
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/mamasafe/go-mamasafe/internal/api/handlers"
	"github.com/mamasafe/go-mamasafe/internal/api/middleware"
	"github.com/mamasafe/go-mamasafe/internal/app"
	"github.com/mamasafe/go-mamasafe/internal/config"
	"github.com/mamasafe/go-mamasafe/internal/infrastructure/redpanda"
	"github.com/mamasafe/go-mamasafe/internal/observability/logging"
	"github.com/mamasafe/go-mamasafe/internal/observability/tracing"
	"github.com/mamasafe/go-mamasafe/internal/pharmacovigilance"
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

	ctx := context.Background()

	tcfg := tracing.DefaultConfig(cfg.ServiceName)
	tcfg.Enabled = cfg.TracingEnabled
	tcfg.Environment = cfg.Env
	tcfg.OTLPEndpoint = cfg.OTLPEndpoint
	tp, err := tracing.Init(ctx, tcfg)
	if err != nil {
		logger.Fatal("tracing init failed", zap.Error(err))
	}

	a, err := app.New(ctx, cfg, logger, prometheus.DefaultRegisterer)
	if err != nil {
		logger.Fatal("app init failed", zap.Error(err))
	}
	defer a.Close()

	// Webhook events go to Kafka when a broker answers; otherwise they stay in memory only
	var publisher handlers.Publisher
	var broker handlers.Pinger
	pcfg := redpanda.DefaultProducerConfig()
	pcfg.Brokers = cfg.Brokers()
	pcfg.OnProduce = a.Metrics.KafkaProduce
	producer, err := redpanda.NewProducer(pcfg, logger)
	if err != nil {
		logger.Warn("kafka producer disabled", zap.Error(err))
	} else {
		pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
		if err := producer.Ping(pingCtx); err != nil {
			logger.Warn("kafka unreachable, webhook events will not be published", zap.Error(err))
		}
		cancel()
		publisher = producer
		broker = producer
		defer producer.Close()
	}

	var db handlers.Pinger
	if a.Pool != nil {
		db = a.Pool
	}
	health := handlers.NewHealthHandler(a.Breakers, db, logger)
	if broker != nil {
		health.WithBroker(broker)
	}

	router := handlers.NewRouter(handlers.RouterConfig{
		Prefix:      cfg.APIV1Str,
		ServiceName: cfg.ServiceName,
		SecretKey:   cfg.SecretKey,
		DevMode:     cfg.IsDev(),
		WebhookKeys: middleware.ParseAPIKeys(cfg.WebhookAPIKeys),
		Medication:  handlers.NewMedicationHandler(a.Safety, logger),
		SMS:         handlers.NewSMSHandler(a.Safety, a.Metrics, logger),
		Audit:       handlers.NewAuditHandler(a.Audit, a.Metrics, logger),
		Webhook:     handlers.NewWebhookHandler(pharmacovigilance.NewBuffer(0), publisher, a.Metrics, logger),
		Encounters:  handlers.NewEncounterHandler(a.EMR, logger),
		Health:      health,
		Metrics:     a.Metrics.Handler(),
		Logger:      logger,
	})

	server := &http.Server{
		Addr:         cfg.Addr(),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		<-sigChan

		logger.Info("shutting down server")
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := server.Shutdown(ctx); err != nil {
			logger.Error("shutdown error", zap.Error(err))
		}
		if err := tp.Shutdown(ctx); err != nil {
			logger.Error("tracer shutdown error", zap.Error(err))
		}
	}()

	logger.Info("starting mamasafe api",
		zap.String("addr", server.Addr),
		zap.String("env", cfg.Env),
		zap.Bool("dev_mode", cfg.IsDev()),
	)
	if err := server.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
		logger.Fatal("server error", zap.Error(err))
	}

	logger.Info("server stopped")
}
