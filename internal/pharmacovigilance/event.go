// Package pharmacovigilance models drug-safety webhook events pushed by the
// EMR and the alerts raised from them.
package pharmacovigilance

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/mamasafe/go-mamasafe/internal/messaging"
)

// Topic carries accepted webhook events to the alert worker
const Topic = "pharmacovigilance.events"

// EventDrugInteraction is the event kind the EMR emits for interactions
const EventDrugInteraction = "DrugInteraction"

var ErrMissingEvent = errors.New("event type is required")

// Event is a pharmacovigilance webhook payload
type Event struct {
	Event      string    `json:"event"`
	Severity   string    `json:"severity,omitempty"`
	Details    string    `json:"details,omitempty"`
	ResourceID string    `json:"resource_id,omitempty"`
	ReceivedAt time.Time `json:"received_at"`
}

// Validate requires an event type
func (e *Event) Validate() error {
	if strings.TrimSpace(e.Event) == "" {
		return ErrMissingEvent
	}
	return nil
}

// Alertable reports whether the event warrants an SMS alert
func (e *Event) Alertable() bool {
	switch strings.ToLower(strings.TrimSpace(e.Severity)) {
	case "major", "critical", "severe", "high":
		return true
	}
	return false
}

// AlertMessage is the SMS body sent for an alertable event
func (e *Event) AlertMessage() string {
	msg := fmt.Sprintf("MamaSafe ALERT: %s (%s)", e.Event, strings.ToUpper(e.Severity))
	if e.ResourceID != "" {
		msg += " resource " + e.ResourceID
	}
	if e.Details != "" {
		msg += ". " + e.Details
	}
	return messaging.Truncate(msg, messaging.MaxSMSLength)
}
