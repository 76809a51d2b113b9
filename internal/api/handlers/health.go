package handlers

import (
	"context"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/mamasafe/go-mamasafe/pkg/circuitbreaker"
)

// Pinger is anything the readiness probe can ping, such as a pgx pool
type Pinger interface {
	Ping(ctx context.Context) error
}

// HealthHandler serves liveness and readiness probes
type HealthHandler struct {
	breakers *circuitbreaker.Manager
	db       Pinger
	broker   Pinger
	logger   *zap.Logger
}

// NewHealthHandler creates the handler; db may be nil when no database is configured
func NewHealthHandler(breakers *circuitbreaker.Manager, db Pinger, logger *zap.Logger) *HealthHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &HealthHandler{breakers: breakers, db: db, logger: logger}
}

// WithBroker adds a broker ping to readiness
func (h *HealthHandler) WithBroker(broker Pinger) *HealthHandler {
	h.broker = broker
	return h
}

// Health handles GET /health
func (h *HealthHandler) Health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}

// Ready handles GET /ready. Open breakers and an unreachable broker are
// reported; only a failed database ping makes the service unready.
func (h *HealthHandler) Ready(w http.ResponseWriter, r *http.Request) {
	resp := map[string]any{"status": "ready"}
	status := http.StatusOK

	if h.breakers != nil {
		resp["circuit_breakers"] = h.breakers.GetHealthStatus()
	}
	if h.db != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := h.db.Ping(ctx); err != nil {
			h.logger.Warn("database ping failed", zap.Error(err))
			resp["database"] = "unavailable"
			resp["status"] = "not ready"
			status = http.StatusServiceUnavailable
		} else {
			resp["database"] = "ok"
		}
	}
	if h.broker != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := h.broker.Ping(ctx); err != nil {
			h.logger.Warn("broker ping failed", zap.Error(err))
			resp["broker"] = "unavailable"
		} else {
			resp["broker"] = "ok"
		}
	}
	writeJSON(w, status, resp)
}
