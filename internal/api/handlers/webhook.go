package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/mamasafe/go-mamasafe/internal/pharmacovigilance"
)

// recentEventLimit is how many events GET /webhook/events returns
const recentEventLimit = 10

// Publisher forwards accepted events to the broker
type Publisher interface {
	Publish(ctx context.Context, topic, key string, value []byte) error
}

// WebhookHandler receives pharmacovigilance events from the EMR
type WebhookHandler struct {
	events    *pharmacovigilance.Buffer
	publisher Publisher
	observer  Observer
	logger    *zap.Logger
	now       func() time.Time
}

// NewWebhookHandler creates the handler. A nil publisher keeps events in memory only.
func NewWebhookHandler(events *pharmacovigilance.Buffer, publisher Publisher, observer Observer, logger *zap.Logger) *WebhookHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &WebhookHandler{
		events:    events,
		publisher: publisher,
		observer:  observerOrNop(observer),
		logger:    logger,
		now:       time.Now,
	}
}

// Routes mounts the receiver behind auth and leaves the recent-events view open
func (h *WebhookHandler) Routes(auth func(http.Handler) http.Handler) chi.Router {
	r := chi.NewRouter()
	r.With(auth).Post("/pharmacovigilance", h.Receive)
	r.Get("/events", h.Recent)
	return r
}

// Receive handles POST /webhook/pharmacovigilance
func (h *WebhookHandler) Receive(w http.ResponseWriter, r *http.Request) {
	var ev pharmacovigilance.Event
	if err := decodeJSON(w, r, &ev); err != nil {
		jsonError(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if err := ev.Validate(); err != nil {
		jsonError(w, err.Error(), http.StatusBadRequest)
		return
	}
	ev.ReceivedAt = h.now().UTC()

	h.events.Add(ev)
	h.observer.WebhookReceived(ev.Event)

	fields := []zap.Field{
		zap.String("event", ev.Event),
		zap.String("severity", ev.Severity),
		zap.String("resource_id", ev.ResourceID),
	}
	if ev.Event == pharmacovigilance.EventDrugInteraction {
		h.logger.Warn("drug interaction reported", fields...)
	} else {
		h.logger.Info("pharmacovigilance event received", fields...)
	}

	if h.publisher != nil {
		payload, err := json.Marshal(ev)
		if err == nil {
			err = h.publisher.Publish(r.Context(), pharmacovigilance.Topic, ev.ResourceID, payload)
		}
		if err != nil {
			h.logger.Error("failed to forward pharmacovigilance event", append(fields, zap.Error(err))...)
		}
	}

	writeJSON(w, http.StatusOK, map[string]string{
		"status":  "received",
		"message": "Webhook processed successfully",
	})
}

// Recent handles GET /webhook/events
func (h *WebhookHandler) Recent(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"events": h.events.Recent(recentEventLimit)})
}
