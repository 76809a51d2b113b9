package emr

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"go.uber.org/zap"
)

// GetPatient fetches a patient. A missing patient is ErrNotFound.
func (c *Client) GetPatient(ctx context.Context, id int) (*Patient, error) {
	var p Patient
	err := c.do(ctx, call{method: http.MethodGet, path: patientPath(id), want: http.StatusOK, timeout: c.cfg.Timeout}, &p)
	if err != nil {
		c.logFailure("get_patient", id, err)
		return nil, err
	}
	return &p, nil
}

// CreatePatient registers a patient
func (c *Client) CreatePatient(ctx context.Context, in PatientInput) (*Patient, error) {
	var p Patient
	err := c.do(ctx, call{method: http.MethodPost, path: "/v1/patients/create", body: in, want: http.StatusCreated, timeout: c.cfg.Timeout}, &p)
	if err != nil {
		c.logFailure("create_patient", 0, err)
		return nil, err
	}
	c.logger.Info("created EMR patient", zap.Int("patient_id", p.ID))
	return &p, nil
}

// CreatePatientFromPrompt lets the EMR build a patient from free text
func (c *Client) CreatePatientFromPrompt(ctx context.Context, prompt string) (*Patient, error) {
	var p Patient
	body := map[string]string{"prompt": prompt}
	err := c.do(ctx, call{method: http.MethodPost, path: "/v1/ai/patient", body: body, want: http.StatusCreated, timeout: c.cfg.AITimeout}, &p)
	if err != nil {
		c.logFailure("create_patient_ai", 0, err)
		return nil, err
	}
	return &p, nil
}

// UpdatePatient patches a patient record
func (c *Client) UpdatePatient(ctx context.Context, id int, in PatientInput) (*Patient, error) {
	var p Patient
	err := c.do(ctx, call{method: http.MethodPatch, path: patientPath(id), body: in, want: http.StatusCreated, timeout: c.cfg.Timeout}, &p)
	if err != nil {
		c.logFailure("update_patient", id, err)
		return nil, err
	}
	return &p, nil
}

// CreateAIRecord asks the EMR to build an encounter or appointment for
// patientID from a free-text prompt.
func (c *Client) CreateAIRecord(ctx context.Context, patientID int, prompt string) (*AIRecord, error) {
	var rec AIRecord
	body := map[string]any{"patient": patientID, "prompt": prompt}
	err := c.do(ctx, call{method: http.MethodPost, path: "/v1/ai/emr", body: body, want: http.StatusCreated, timeout: c.cfg.AITimeout}, &rec)
	if err != nil {
		c.logFailure("create_ai_emr", patientID, err)
		return nil, err
	}
	c.logger.Info("created AI EMR record", zap.Int("patient_id", patientID), zap.String("resource", rec.Resource))
	return &rec, nil
}

// GetPatientEncounters lists encounters matching patientID
func (c *Client) GetPatientEncounters(ctx context.Context, patientID int) ([]Encounter, error) {
	var resp listResponse[Encounter]
	q := url.Values{"search": {strconv.Itoa(patientID)}}
	err := c.do(ctx, call{method: http.MethodGet, path: "/v1/encounters", query: q, want: http.StatusOK, timeout: c.cfg.Timeout}, &resp)
	if err != nil {
		c.logFailure("get_encounters", patientID, err)
		return nil, err
	}
	return resp.Results, nil
}

// GetInteractions lists pharmacovigilance interaction records for patientID
func (c *Client) GetInteractions(ctx context.Context, patientID int) ([]Interaction, error) {
	var resp listResponse[Interaction]
	q := url.Values{"patient": {strconv.Itoa(patientID)}}
	err := c.do(ctx, call{method: http.MethodGet, path: "/v1/pharmavigilance/interactions", query: q, want: http.StatusOK, timeout: c.cfg.Timeout}, &resp)
	if err != nil {
		c.logFailure("get_interactions", patientID, err)
		return nil, err
	}
	return resp.Results, nil
}

// LogVisit records a visit through the AI EMR endpoint
func (c *Client) LogVisit(ctx context.Context, v Visit) (*AIRecord, error) {
	if v.PatientID <= 0 {
		return nil, fmt.Errorf("emr: patient id required to log a visit")
	}
	prompt := v.Prompt
	if prompt == "" {
		medication := v.Medication
		if medication == "" {
			medication = "N/A"
		}
		prompt = "Visit for medication check: " + medication
	}
	return c.CreateAIRecord(ctx, v.PatientID, prompt)
}
