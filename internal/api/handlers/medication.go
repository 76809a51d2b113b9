package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/mamasafe/go-mamasafe/internal/risk"
	"github.com/mamasafe/go-mamasafe/internal/safety"
)

// MedicationHandler serves medication safety checks
type MedicationHandler struct {
	svc    *safety.Service
	logger *zap.Logger
}

// NewMedicationHandler creates a new medication check handler
func NewMedicationHandler(svc *safety.Service, logger *zap.Logger) *MedicationHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &MedicationHandler{svc: svc, logger: logger}
}

// Routes returns the handler routes
func (h *MedicationHandler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Post("/check", h.Check)
	return r
}

// CheckResponse is the assessment plus the resolved request context
type CheckResponse struct {
	risk.Assessment
	AlternativeDrug string `json:"alternative_drug"`
	GestationalWeek int    `json:"gestational_week"`
	PatientID       string `json:"patient_id,omitempty"`
}

// Check handles POST /medications/check
func (h *MedicationHandler) Check(w http.ResponseWriter, r *http.Request) {
	ctx, span := otel.Tracer("medication-handler").Start(r.Context(), "check_medication")
	defer span.End()

	var req safety.MedicationCheckRequest
	if err := decodeJSON(w, r, &req); err != nil {
		if errors.Is(err, safety.ErrInvalidPatientID) {
			jsonError(w, err.Error(), http.StatusBadRequest)
			return
		}
		jsonError(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if err := req.Validate(); err != nil {
		jsonError(w, validationMessage(err), http.StatusBadRequest)
		return
	}

	week, err := h.svc.ResolveGestationalWeek(ctx, req)
	if err != nil {
		jsonError(w, validationMessage(err), http.StatusBadRequest)
		return
	}

	patientID := int(req.PatientID)
	span.SetAttributes(
		attribute.Int("gestational_week", week),
		attribute.Bool("has_patient", patientID > 0),
		attribute.Int("additional_drugs", len(req.AdditionalDrugs)),
	)

	result := h.svc.CheckMedication(ctx, safety.CheckInput{
		DrugName:        req.DrugName,
		GestationalWeek: week,
		Symptoms:        req.Symptoms,
		PatientID:       patientID,
		Language:        req.Language,
		AdditionalDrugs: req.AdditionalDrugs,
	})
	h.svc.RecordCheck(ctx, patientID, req.Symptoms, result)

	resp := CheckResponse{
		Assessment:      result,
		AlternativeDrug: strings.Join(result.Alternatives, ", "),
		GestationalWeek: week,
	}
	if patientID > 0 {
		resp.PatientID = strconv.Itoa(patientID)
	}
	writeJSON(w, http.StatusOK, resp)
}

func validationMessage(err error) string {
	switch {
	case errors.Is(err, safety.ErrInvalidLMP):
		return "invalid override_lmp format, use YYYY-MM-DD"
	case errors.Is(err, safety.ErrDrugNameRequired):
		return "drug_name is required"
	}
	return err.Error()
}
