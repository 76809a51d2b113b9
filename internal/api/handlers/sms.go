package handlers

import (
	"encoding/xml"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/mamasafe/go-mamasafe/internal/messaging"
	"github.com/mamasafe/go-mamasafe/internal/safety"
)

// SMSHandler answers inbound SMS commands with TwiML
type SMSHandler struct {
	svc      *safety.Service
	observer Observer
	logger   *zap.Logger
}

// NewSMSHandler creates a new SMS webhook handler; observer may be nil
func NewSMSHandler(svc *safety.Service, observer Observer, logger *zap.Logger) *SMSHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SMSHandler{svc: svc, observer: observerOrNop(observer), logger: logger}
}

// Routes returns the handler routes
func (h *SMSHandler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Post("/webhook", h.Webhook)
	return r
}

type twimlResponse struct {
	XMLName xml.Name `xml:"Response"`
	Message string   `xml:"Message"`
}

// Webhook handles POST /sms/webhook with form fields Body and From
func (h *SMSHandler) Webhook(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		jsonError(w, "invalid form body", http.StatusBadRequest)
		return
	}
	body, from := r.PostFormValue("Body"), r.PostFormValue("From")
	if from == "" {
		jsonError(w, "From is required", http.StatusBadRequest)
		return
	}

	cmd, err := messaging.ParseCheck(body)
	if err != nil {
		h.observer.SMSCommand("rejected")
		writeTwiML(w, messaging.ErrorReply(err))
		return
	}

	ctx := r.Context()
	req := safety.MedicationCheckRequest{DrugName: cmd.DrugName}
	// a non-numeric patient id only loses the week lookup
	if id, err := safety.ParsePatientID(cmd.PatientID); err == nil {
		req.PatientID = id
	} else {
		h.logger.Info("sms patient id not numeric", zap.String("patient_id", cmd.PatientID))
	}

	week, err := h.svc.ResolveGestationalWeek(ctx, req)
	if err != nil {
		week = 0
	}
	result := h.svc.CheckMedication(ctx, safety.CheckInput{
		DrugName:        cmd.DrugName,
		GestationalWeek: week,
	})

	h.observer.SMSCommand("checked")
	writeTwiML(w, messaging.FormatReply(result))
}

func writeTwiML(w http.ResponseWriter, message string) {
	out, err := xml.Marshal(twimlResponse{Message: message})
	if err != nil {
		http.Error(w, "failed to encode reply", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/xml")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(xml.Header))
	_, _ = w.Write(out)
}
