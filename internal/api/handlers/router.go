package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/mamasafe/go-mamasafe/internal/api/middleware"
)

// RouterConfig collects the handlers and auth settings of the API
type RouterConfig struct {
	Prefix      string
	ServiceName string
	SecretKey   string
	DevMode     bool
	WebhookKeys map[string]string

	Medication *MedicationHandler
	SMS        *SMSHandler
	Audit      *AuditHandler
	Webhook    *WebhookHandler
	Encounters *EncounterHandler
	Health     *HealthHandler
	Metrics    http.Handler
	Logger     *zap.Logger
}

// NewRouter builds the API router
func NewRouter(cfg RouterConfig) http.Handler {
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	r := chi.NewRouter()
	r.Use(chimw.RealIP)
	r.Use(middleware.RequestID)
	r.Use(middleware.CORS)
	r.Use(middleware.Recover(logger))
	r.Use(middleware.Logger(logger))
	r.Use(middleware.Tracing(cfg.ServiceName))

	if cfg.Health != nil {
		r.Get("/health", cfg.Health.Health)
		r.Get("/ready", cfg.Health.Ready)
	}
	if cfg.Metrics != nil {
		r.Handle("/metrics", cfg.Metrics)
	}

	bearer := middleware.BearerAuth(cfg.SecretKey, cfg.DevMode)
	r.Route(cfg.Prefix, func(r chi.Router) {
		// SMS gateways post unauthenticated form data
		if cfg.SMS != nil {
			r.Mount("/sms", cfg.SMS.Routes())
		}
		if cfg.Webhook != nil {
			r.Mount("/webhook", cfg.Webhook.Routes(middleware.APIKeyAuth(cfg.WebhookKeys)))
		}

		r.Group(func(r chi.Router) {
			r.Use(bearer)
			if cfg.Medication != nil {
				r.Mount("/medications", cfg.Medication.Routes())
			}
			if cfg.Audit != nil {
				r.Mount("/audit", cfg.Audit.Routes())
			}
			if cfg.Encounters != nil {
				r.Mount("/encounters", cfg.Encounters.EncounterRoutes())
				r.Mount("/visits", cfg.Encounters.VisitRoutes())
			}
		})
	})
	return r
}
