package riskscore

import (
	"context"
	"fmt"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/mamasafe/go-mamasafe/internal/ai"
	"github.com/mamasafe/go-mamasafe/internal/emr"
)

// EncounterSource lists a patient's encounters
type EncounterSource interface {
	GetPatientEncounters(ctx context.Context, patientID int) ([]emr.Encounter, error)
}

// Service builds patient risk profiles
type Service struct {
	encounters EncounterSource
	gen        ai.Generator
	logger     *zap.Logger
}

// NewService creates a risk scoring service
func NewService(encounters EncounterSource, gen ai.Generator, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{encounters: encounters, gen: gen, logger: logger}
}

// PatientRiskProfile scores the patient's recent encounters. Every failure
// yields the zero Profile.
func (s *Service) PatientRiskProfile(ctx context.Context, patientID int) Profile {
	ctx, span := otel.Tracer("riskscore").Start(ctx, "PatientRiskProfile")
	defer span.End()
	span.SetAttributes(attribute.Int("patient_id", patientID))

	if s.encounters == nil || s.gen == nil {
		return Profile{}
	}

	encounters, err := s.encounters.GetPatientEncounters(ctx, patientID)
	if err != nil || len(encounters) == 0 {
		return Profile{}
	}
	if len(encounters) > MaxEncounters {
		encounters = encounters[len(encounters)-MaxEncounters:]
	}

	text, err := s.gen.Generate(ctx, historyPrompt(encounters))
	if err != nil {
		s.logger.Warn("risk profile generation failed", zap.Int("patient_id", patientID), zap.Error(err))
		return Profile{}
	}

	var p Profile
	if err := ai.DecodeJSON(text, &p); err != nil {
		s.logger.Warn("risk profile response unusable", zap.Int("patient_id", patientID), zap.Error(err))
		return Profile{}
	}
	p = p.clamped()
	span.SetAttributes(attribute.Int("risk_score", p.RiskScore))
	return p
}

func historyPrompt(encounters []emr.Encounter) string {
	lines := make([]string, 0, len(encounters))
	for _, e := range encounters {
		date := e.Date
		if strings.TrimSpace(date) == "" {
			date = "Unknown"
		}
		lines = append(lines, fmt.Sprintf("Date: %s, Diagnosis: %s, Medications: %s, Notes: %s",
			date, e.Diagnosis.Or("N/A"), e.Medications.Or("N/A"), e.Notes.Or("N/A")))
	}

	return fmt.Sprintf(`Analyze this patient's medical history for pregnancy risk factors:

%s

Return a JSON object with:
- "risk_factors": Array of identified risk factors (strings)
- "risk_score": Integer 0-100 (0=low risk, 100=extreme risk)
- "recommendations": Array of preventive recommendations (strings)

Focus on: previous complications, chronic conditions, medication allergies, high-risk pregnancies.`,
		strings.Join(lines, "\n"))
}
