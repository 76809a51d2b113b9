// Package audit records clinician actions taken on safety results.
// Entries are append-only.
package audit

import (
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
)

var (
	ErrInvalidAction = errors.New("invalid audit action")
	ErrMissingField  = errors.New("missing required field")
)

// Action is what the clinician did with a safety result
type Action string

const (
	ActionOverride Action = "OVERRIDE"
	ActionStop     Action = "STOP"
	ActionConsult  Action = "CONSULT"
)

// ParseAction defaults to OVERRIDE when s is empty
func ParseAction(s string) (Action, error) {
	s = strings.ToUpper(strings.TrimSpace(s))
	switch Action(s) {
	case "":
		return ActionOverride, nil
	case ActionOverride, ActionStop, ActionConsult:
		return Action(s), nil
	}
	return "", ErrInvalidAction
}

// Entry is one audit log row
type Entry struct {
	ID             uuid.UUID `json:"id"`
	Timestamp      time.Time `json:"timestamp"`
	ProviderID     string    `json:"provider_id"`
	PatientID      string    `json:"patient_id"`
	DrugName       string    `json:"drug_name"`
	RiskLevel      string    `json:"risk_level"`
	OverrideReason string    `json:"override_reason"`
	Action         Action    `json:"action"`
}

// Input is the client-supplied part of an entry
type Input struct {
	PatientID      string `json:"patient_id"`
	DrugName       string `json:"drug_name"`
	RiskLevel      string `json:"risk_level"`
	OverrideReason string `json:"override_reason"`
	Action         string `json:"action"`
}

// NewEntry validates in and stamps it with an id and time
func NewEntry(providerID string, in Input, now time.Time) (*Entry, error) {
	action, err := ParseAction(in.Action)
	if err != nil {
		return nil, err
	}
	for _, v := range []string{in.PatientID, in.DrugName, in.RiskLevel, in.OverrideReason} {
		if strings.TrimSpace(v) == "" {
			return nil, ErrMissingField
		}
	}
	return &Entry{
		ID:             uuid.New(),
		Timestamp:      now.UTC(),
		ProviderID:     providerID,
		PatientID:      strings.TrimSpace(in.PatientID),
		DrugName:       strings.TrimSpace(in.DrugName),
		RiskLevel:      strings.TrimSpace(in.RiskLevel),
		OverrideReason: strings.TrimSpace(in.OverrideReason),
		Action:         action,
	}, nil
}
