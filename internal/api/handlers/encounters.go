package handlers

import (
	"context"
	"fmt"
	"net/http"
	"sort"
	"strings"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/mamasafe/go-mamasafe/internal/emr"
	"github.com/mamasafe/go-mamasafe/internal/safety"
)

// RecordWriter is the slice of the EMR client the encounter handlers need
type RecordWriter interface {
	CreateAIRecord(ctx context.Context, patientID int, prompt string) (*emr.AIRecord, error)
	LogVisit(ctx context.Context, v emr.Visit) (*emr.AIRecord, error)
}

// EncounterHandler writes encounter and visit summaries to the EMR
type EncounterHandler struct {
	emr    RecordWriter
	logger *zap.Logger
}

// NewEncounterHandler creates a new encounter handler
func NewEncounterHandler(records RecordWriter, logger *zap.Logger) *EncounterHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &EncounterHandler{emr: records, logger: logger}
}

// EncounterRoutes is mounted at /encounters
func (h *EncounterHandler) EncounterRoutes() chi.Router {
	r := chi.NewRouter()
	r.Post("/update", h.UpdateEncounter)
	return r
}

// VisitRoutes is mounted at /visits
func (h *EncounterHandler) VisitRoutes() chi.Router {
	r := chi.NewRouter()
	r.Post("/log", h.LogVisit)
	return r
}

// EncounterUpdateRequest carries the history the risk profiler reads back later
type EncounterUpdateRequest struct {
	PatientID             safety.PatientID  `json:"patient_id"`
	Diagnosis             string            `json:"diagnosis,omitempty"`
	Medications           []string          `json:"medications,omitempty"`
	Allergies             []string          `json:"allergies,omitempty"`
	ChronicConditions     []string          `json:"chronic_conditions,omitempty"`
	PreviousComplications []string          `json:"previous_complications,omitempty"`
	Notes                 string            `json:"notes,omitempty"`
	VitalSigns            map[string]string `json:"vital_signs,omitempty"`
}

// EncounterUpdateResponse reports the created EMR record
type EncounterUpdateResponse struct {
	Success     bool   `json:"success"`
	EncounterID int    `json:"encounter_id,omitempty"`
	Message     string `json:"message"`
}

// Prompt renders the request as an AI EMR instruction
func (req EncounterUpdateRequest) Prompt() string {
	parts := []string{fmt.Sprintf("Update medical record for patient %d.", req.PatientID)}
	if req.Diagnosis != "" {
		parts = append(parts, fmt.Sprintf("Diagnosis: %s.", req.Diagnosis))
	}
	lists := []struct {
		label string
		items []string
	}{
		{"Current medications", req.Medications},
		{"Known allergies", req.Allergies},
		{"Chronic conditions", req.ChronicConditions},
		{"Previous complications", req.PreviousComplications},
	}
	for _, l := range lists {
		if len(l.items) > 0 {
			parts = append(parts, fmt.Sprintf("%s: %s.", l.label, strings.Join(l.items, ", ")))
		}
	}
	if len(req.VitalSigns) > 0 {
		keys := make([]string, 0, len(req.VitalSigns))
		for k := range req.VitalSigns {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		vitals := make([]string, 0, len(keys))
		for _, k := range keys {
			vitals = append(vitals, k+": "+req.VitalSigns[k])
		}
		parts = append(parts, fmt.Sprintf("Vital signs: %s.", strings.Join(vitals, ", ")))
	}
	if req.Notes != "" {
		parts = append(parts, "Additional notes: "+req.Notes)
	}
	return strings.Join(parts, " ")
}

// UpdateEncounter handles POST /encounters/update
func (h *EncounterHandler) UpdateEncounter(w http.ResponseWriter, r *http.Request) {
	var req EncounterUpdateRequest
	if err := decodeJSON(w, r, &req); err != nil {
		jsonError(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if req.PatientID <= 0 {
		jsonError(w, "patient_id is required", http.StatusBadRequest)
		return
	}

	rec, err := h.emr.CreateAIRecord(r.Context(), int(req.PatientID), req.Prompt())
	if err != nil {
		h.logger.Warn("encounter update failed", zap.Int("patient_id", int(req.PatientID)), zap.Error(err))
		writeJSON(w, http.StatusBadGateway, EncounterUpdateResponse{
			Success: false,
			Message: "Failed to update encounter",
		})
		return
	}
	writeJSON(w, http.StatusOK, EncounterUpdateResponse{
		Success:     true,
		EncounterID: rec.ID,
		Message:     "Encounter updated successfully for AI risk scoring",
	})
}

// VisitLogRequest summarises a consultation
type VisitLogRequest struct {
	PatientID   safety.PatientID `json:"patient_id"`
	DrugChecked string           `json:"drug_checked"`
	RiskResult  string           `json:"risk_result,omitempty"`
	Notes       string           `json:"notes,omitempty"`
}

func (req VisitLogRequest) visit() emr.Visit {
	v := emr.Visit{PatientID: int(req.PatientID), Medication: req.DrugChecked}
	if req.RiskResult != "" || req.Notes != "" {
		medication := req.DrugChecked
		if medication == "" {
			medication = "N/A"
		}
		prompt := "Visit for medication check: " + medication + "."
		if req.RiskResult != "" {
			prompt += " Result: " + req.RiskResult + "."
		}
		if req.Notes != "" {
			prompt += " Notes: " + req.Notes
		}
		v.Prompt = prompt
	}
	return v
}

// LogVisit handles POST /visits/log
func (h *EncounterHandler) LogVisit(w http.ResponseWriter, r *http.Request) {
	var req VisitLogRequest
	if err := decodeJSON(w, r, &req); err != nil {
		jsonError(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if req.PatientID <= 0 {
		jsonError(w, "patient_id is required", http.StatusBadRequest)
		return
	}

	if _, err := h.emr.LogVisit(r.Context(), req.visit()); err != nil {
		h.logger.Warn("visit log failed", zap.Int("patient_id", int(req.PatientID)), zap.Error(err))
		jsonError(w, "failed to log visit to EMR", http.StatusBadGateway)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "success", "message": "Visit logged successfully"})
}
