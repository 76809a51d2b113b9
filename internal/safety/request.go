package safety

import (
	"bytes"
	"encoding/json"
	"errors"
	"strconv"
	"strings"
)

var (
	// ErrInvalidPatientID is returned for patient ids that are not positive integers
	ErrInvalidPatientID = errors.New("patient id must be a positive integer")
	// ErrInvalidLMP is returned for LMP dates not in YYYY-MM-DD form
	ErrInvalidLMP = errors.New("last menstrual period must be a YYYY-MM-DD date")
	// ErrDrugNameRequired is returned when the drug name is blank
	ErrDrugNameRequired = errors.New("drug_name is required")
)

// PatientID is the canonical integer patient identifier. It decodes from a
// JSON number or a numeric string; zero means no patient.
type PatientID int

// ParsePatientID parses a patient id from text. Blank text is no patient.
func ParsePatientID(s string) (PatientID, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil || n <= 0 {
		return 0, ErrInvalidPatientID
	}
	return PatientID(n), nil
}

// UnmarshalJSON implements json.Unmarshaler
func (p *PatientID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*p = 0
		return nil
	}
	var s string
	if len(data) > 0 && data[0] == '"' {
		if err := json.Unmarshal(data, &s); err != nil {
			return ErrInvalidPatientID
		}
	} else {
		s = string(data)
	}
	id, err := ParsePatientID(s)
	if err != nil {
		return err
	}
	*p = id
	return nil
}

// MedicationCheckRequest is the inbound check request
type MedicationCheckRequest struct {
	DrugName              string    `json:"drug_name"`
	AdditionalDrugs       []string  `json:"additional_drugs,omitempty"`
	PatientID             PatientID `json:"patient_id,omitempty"`
	ManualGestationalWeek *int      `json:"manual_gestational_week,omitempty"`
	OverrideLMP           string    `json:"override_lmp,omitempty"`
	Symptoms              []string  `json:"symptoms,omitempty"`
	Language              string    `json:"language,omitempty"`
}

// Validate checks the fields the pipeline cannot recover from
func (r MedicationCheckRequest) Validate() error {
	if strings.TrimSpace(r.DrugName) == "" {
		return ErrDrugNameRequired
	}
	if r.OverrideLMP != "" {
		if _, err := ParseLMP(r.OverrideLMP); err != nil {
			return err
		}
	}
	return nil
}

// CheckInput is what CheckMedication evaluates once the week is resolved
type CheckInput struct {
	DrugName        string
	GestationalWeek int
	Symptoms        []string
	PatientID       int
	Language        string
	AdditionalDrugs []string
}
