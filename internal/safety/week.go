package safety

import (
	"context"

	"go.uber.org/zap"

	"github.com/mamasafe/go-mamasafe/internal/cache"
	"github.com/mamasafe/go-mamasafe/internal/risk"
)

// ResolveGestationalWeek picks the week for a check. An LMP override wins,
// then a manual week, then the patient's cached or EMR-recorded LMP. With
// none of these the week is 0.
func (s *Service) ResolveGestationalWeek(ctx context.Context, req MedicationCheckRequest) (int, error) {
	today := s.now()

	if req.OverrideLMP != "" {
		lmp, err := ParseLMP(req.OverrideLMP)
		if err != nil {
			return 0, err
		}
		return GestationalWeek(lmp, today), nil
	}

	if req.ManualGestationalWeek != nil {
		if w := *req.ManualGestationalWeek; w > 0 {
			return w, nil
		}
		return 0, nil
	}

	patientID := int(req.PatientID)
	if patientID <= 0 {
		return 0, nil
	}

	if status, ok := s.cache.PregnancyStatus(ctx, patientID); ok {
		if lmp, err := ParseLMP(status.LastMenstrualPeriod); err == nil {
			return GestationalWeek(lmp, today), nil
		}
		return status.GestationalWeek, nil
	}

	if s.emr == nil {
		return 0, nil
	}
	patient, err := s.emr.GetPatient(ctx, patientID)
	if err != nil {
		return 0, nil
	}
	lmp, ok := patient.LMPDate()
	if !ok {
		return 0, nil
	}

	week := GestationalWeek(lmp, today)
	s.cache.SetPregnancyStatus(ctx, patientID, cache.PregnancyStatus{
		LastMenstrualPeriod: lmp.Format(lmpLayout),
		GestationalWeek:     week,
	})
	return week, nil
}

// RecordCheck logs a finished check as an encounter for the patient.
// Failures are logged and otherwise ignored.
func (s *Service) RecordCheck(ctx context.Context, patientID int, symptoms []string, result risk.Assessment) {
	if patientID <= 0 || s.emr == nil {
		return
	}
	prompt := checkLogPrompt(patientID, symptoms, result)
	if _, err := s.emr.CreateAIRecord(ctx, patientID, prompt); err != nil {
		s.logger.Warn("failed to log check encounter", zap.Int("patient_id", patientID), zap.Error(err))
	}
}
