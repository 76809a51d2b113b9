package emr

import (
	"encoding/json"
	"strings"
	"time"
)

// Patient is the EMR patient record
type Patient struct {
	ID                  int      `json:"id"`
	FirstName           string   `json:"first_name"`
	LastName            string   `json:"last_name,omitempty"`
	DateOfBirth         string   `json:"date_of_birth,omitempty"`
	Gender              string   `json:"gender,omitempty"`
	Address             string   `json:"address,omitempty"`
	PhoneNumber         string   `json:"phone_number,omitempty"`
	Email               string   `json:"email,omitempty"`
	Allergies           []string `json:"allergies,omitempty"`
	LastMenstrualPeriod string   `json:"last_menstrual_period,omitempty"`
	LMP                 string   `json:"lmp,omitempty"`
}

// LMPDate returns the patient's last menstrual period, if recorded
func (p *Patient) LMPDate() (time.Time, bool) {
	for _, raw := range []string{p.LastMenstrualPeriod, p.LMP} {
		raw = strings.TrimSpace(raw)
		if raw == "" {
			continue
		}
		if len(raw) > len("2006-01-02") {
			raw = raw[:len("2006-01-02")]
		}
		if t, err := time.Parse("2006-01-02", raw); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// PatientInput is the payload for creating or updating a patient
type PatientInput struct {
	FirstName   string   `json:"first_name,omitempty"`
	LastName    string   `json:"last_name,omitempty"`
	DateOfBirth string   `json:"date_of_birth,omitempty"`
	Gender      string   `json:"gender,omitempty"`
	Address     string   `json:"address,omitempty"`
	PhoneNumber string   `json:"phone_number,omitempty"`
	Email       string   `json:"email,omitempty"`
	Allergies   []string `json:"allergies,omitempty"`
}

// AIRecord is the result of an AI-created EMR record
type AIRecord struct {
	ID       int    `json:"id"`
	Resource string `json:"resource"`
}

// Encounter is one clinical encounter
type Encounter struct {
	ID          int      `json:"id"`
	Date        string   `json:"date"`
	Diagnosis   FlexText `json:"diagnosis"`
	Medications FlexText `json:"medications"`
	Notes       FlexText `json:"notes"`
}

// Interaction is a pharmacovigilance interaction record for a patient
type Interaction struct {
	DrugA       string `json:"drug_a"`
	DrugB       string `json:"drug_b"`
	Severity    string `json:"severity"`
	Description string `json:"description"`
}

// Visit describes a visit to log as an AI EMR record
type Visit struct {
	PatientID  int    `json:"patient_id"`
	Medication string `json:"medication,omitempty"`
	Prompt     string `json:"prompt,omitempty"`
}

// FlexText decodes a JSON string, list of strings, or null into plain text.
// The EMR returns medications both ways depending on how records were created.
type FlexText string

// UnmarshalJSON implements json.Unmarshaler
func (f *FlexText) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*f = FlexText(s)
		return nil
	}
	var list []any
	if err := json.Unmarshal(data, &list); err == nil {
		parts := make([]string, 0, len(list))
		for _, item := range list {
			switch v := item.(type) {
			case string:
				parts = append(parts, v)
			case map[string]any:
				if name, ok := v["name"].(string); ok {
					parts = append(parts, name)
				}
			}
		}
		*f = FlexText(strings.Join(parts, ", "))
		return nil
	}
	*f = ""
	return nil
}

// Or returns f, or fallback when f is blank
func (f FlexText) Or(fallback string) string {
	if strings.TrimSpace(string(f)) == "" {
		return fallback
	}
	return string(f)
}

type listResponse[T any] struct {
	Results []T `json:"results"`
}
