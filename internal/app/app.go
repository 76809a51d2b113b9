// Package app wires configuration into the clients and services shared by the binaries.
package app

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/mamasafe/go-mamasafe/internal/ai"
	"github.com/mamasafe/go-mamasafe/internal/audit"
	"github.com/mamasafe/go-mamasafe/internal/cache"
	"github.com/mamasafe/go-mamasafe/internal/config"
	"github.com/mamasafe/go-mamasafe/internal/emr"
	"github.com/mamasafe/go-mamasafe/internal/language"
	"github.com/mamasafe/go-mamasafe/internal/messaging"
	"github.com/mamasafe/go-mamasafe/internal/observability/metrics"
	"github.com/mamasafe/go-mamasafe/internal/riskscore"
	"github.com/mamasafe/go-mamasafe/internal/safety"
	"github.com/mamasafe/go-mamasafe/pkg/circuitbreaker"
)

// Breaker names, one per upstream
const (
	BreakerEMR    = "dorra-emr"
	BreakerGemini = "gemini"
	BreakerTermii = "termii"
)

const redisKeyPrefix = "mamasafe:"

// App holds the wired dependencies
type App struct {
	Config   *config.Config
	Logger   *zap.Logger
	Metrics  *metrics.Metrics
	Breakers *circuitbreaker.Manager

	// Pool is nil when DATABASE_URL is empty
	Pool  *pgxpool.Pool
	Cache *cache.Tiered

	EMR       *emr.Client
	Generator ai.Generator
	Language  *language.Service
	RiskScore *riskscore.Service
	Safety    *safety.Service
	SMS       *messaging.Termii
	Audit     audit.Store

	closers []func()
}

// New builds every shared dependency. Optional backends (database, redis,
// Gemini) are skipped with a warning when not configured.
func New(ctx context.Context, cfg *config.Config, logger *zap.Logger, reg prometheus.Registerer) (*App, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	a := &App{
		Config:   cfg,
		Logger:   logger,
		Metrics:  metrics.New(reg),
		Breakers: circuitbreaker.NewManager(logger),
	}
	a.Breakers.OnStateChange(a.Metrics.BreakerStateChanged)

	emrBreaker, err := a.Breakers.GetOrCreate(BreakerEMR, emr.BreakerConfig())
	if err != nil {
		return nil, fmt.Errorf("emr breaker: %w", err)
	}
	a.EMR = emr.NewClient(emr.Config{
		BaseURL:   cfg.DorraAPIURL,
		APIKey:    cfg.DorraAPIKey,
		Timeout:   cfg.EMRTimeout,
		AITimeout: cfg.EMRAITimeout,
	}, emrBreaker, logger.Named("emr"))

	if err := a.initGenerator(ctx); err != nil {
		a.Close()
		return nil, err
	}

	if err := a.initCache(ctx); err != nil {
		a.Close()
		return nil, err
	}

	termiiBreaker, err := a.Breakers.GetOrCreate(BreakerTermii, circuitbreaker.DefaultConfig(BreakerTermii))
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("termii breaker: %w", err)
	}
	a.SMS = messaging.NewTermii(messaging.TermiiConfig{
		BaseURL:  cfg.TermiiBaseURL,
		APIKey:   cfg.TermiiAPIKey,
		SenderID: cfg.TermiiSenderID,
	}, termiiBreaker, logger.Named("termii"))

	if err := a.initAudit(ctx); err != nil {
		a.Close()
		return nil, err
	}

	a.Language = language.New(a.Generator, logger.Named("language"))
	a.RiskScore = riskscore.NewService(a.EMR, a.Generator, logger.Named("riskscore"))
	a.Safety = safety.NewService(safety.Options{
		Translator: a.Language,
		EMR:        a.EMR,
		Generator:  a.Generator,
		Profiler:   a.RiskScore,
		Cache:      a.Cache,
		Recorder:   a.Metrics,
		Logger:     logger.Named("safety"),
	})
	return a, nil
}

func (a *App) initGenerator(ctx context.Context) error {
	breaker, err := a.Breakers.GetOrCreate(BreakerGemini, circuitbreaker.DefaultConfig(BreakerGemini))
	if err != nil {
		return fmt.Errorf("gemini breaker: %w", err)
	}
	gem, err := ai.NewGemini(ctx, ai.GeminiConfig{
		APIKey:  a.Config.GeminiAPIKey,
		Model:   a.Config.GeminiModel,
		Timeout: a.Config.AITimeout,
	}, breaker, a.Logger.Named("gemini"))
	switch {
	case errors.Is(err, ai.ErrNotConfigured):
		a.Logger.Warn("GEMINI_API_KEY not set, safety checks use the rule table only")
		return nil
	case err != nil:
		return err
	}
	a.Generator = gem
	return nil
}

func (a *App) initCache(ctx context.Context) error {
	var store cache.Store
	if a.Config.RedisURL != "" {
		rs, err := cache.NewRedisStore(ctx, a.Config.RedisURL, redisKeyPrefix, a.Logger.Named("cache"))
		if err != nil {
			return fmt.Errorf("redis: %w", err)
		}
		a.closers = append(a.closers, func() { _ = rs.Close() })
		store = rs
	}
	a.Cache = cache.New(store, a.Logger.Named("cache")).WithObserver(a.Metrics)
	return nil
}

func (a *App) initAudit(ctx context.Context) error {
	if a.Config.DatabaseURL == "" {
		a.Logger.Warn("DATABASE_URL not set, audit entries are kept in memory")
		a.Audit = audit.NewMemoryStore()
		return nil
	}
	pool, err := OpenPool(ctx, a.Config.DatabaseURL)
	if err != nil {
		return err
	}
	a.Pool = pool
	a.closers = append(a.closers, pool.Close)
	a.Audit = audit.NewPostgresStore(pool, a.Logger.Named("audit"))
	return nil
}

// OpenPool connects and pings the database
func OpenPool(ctx context.Context, url string) (*pgxpool.Pool, error) {
	pool, err := pgxpool.New(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("database ping failed: %w", err)
	}
	return pool, nil
}

// Close releases the database pool and redis client
func (a *App) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
}
