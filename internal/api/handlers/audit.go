package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/mamasafe/go-mamasafe/internal/api/middleware"
	"github.com/mamasafe/go-mamasafe/internal/audit"
)

// AuditHandler records and lists clinician overrides
type AuditHandler struct {
	store    audit.Store
	observer Observer
	logger   *zap.Logger
	now      func() time.Time
}

// NewAuditHandler creates a new audit log handler; observer may be nil
func NewAuditHandler(store audit.Store, observer Observer, logger *zap.Logger) *AuditHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AuditHandler{store: store, observer: observerOrNop(observer), logger: logger, now: time.Now}
}

// Routes returns the handler routes
func (h *AuditHandler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Post("/log", h.Log)
	r.Get("/logs", h.List)
	return r
}

// Log handles POST /audit/log
func (h *AuditHandler) Log(w http.ResponseWriter, r *http.Request) {
	var in audit.Input
	if err := decodeJSON(w, r, &in); err != nil {
		jsonError(w, "invalid request body", http.StatusBadRequest)
		return
	}

	entry, err := audit.NewEntry(middleware.ProviderID(r.Context()), in, h.now())
	if err != nil {
		if errors.Is(err, audit.ErrInvalidAction) {
			jsonError(w, "action must be OVERRIDE, STOP or CONSULT", http.StatusBadRequest)
			return
		}
		jsonError(w, "patient_id, drug_name, risk_level and override_reason are required", http.StatusBadRequest)
		return
	}

	if err := h.store.Append(r.Context(), entry); err != nil {
		h.logger.Error("failed to record audit entry",
			zap.String("request_id", middleware.GetRequestID(r.Context())),
			zap.Error(err))
		jsonError(w, "audit store unavailable", http.StatusServiceUnavailable)
		return
	}
	h.observer.AuditRecorded(string(entry.Action))

	writeJSON(w, http.StatusCreated, map[string]string{
		"status":  "success",
		"message": "Audit log recorded",
		"id":      entry.ID.String(),
	})
}

// List handles GET /audit/logs?patient_id=&limit=
func (h *AuditHandler) List(w http.ResponseWriter, r *http.Request) {
	f := audit.Filter{PatientID: r.URL.Query().Get("patient_id")}
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			jsonError(w, "limit must be a positive integer", http.StatusBadRequest)
			return
		}
		f.Limit = n
	}

	entries, err := h.store.List(r.Context(), f)
	if err != nil {
		h.logger.Error("failed to list audit entries", zap.Error(err))
		jsonError(w, "audit store unavailable", http.StatusServiceUnavailable)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"entries": entries, "count": len(entries)})
}
