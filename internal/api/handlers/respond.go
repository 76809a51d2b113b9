// Package handlers provides HTTP handlers for the safety API.
package handlers

import (
	"encoding/json"
	"net/http"
)

// maxBodyBytes caps JSON request bodies
const maxBodyBytes = 1 << 20

// Observer receives counters from the handlers; metrics.Metrics implements it
type Observer interface {
	SMSCommand(outcome string)
	AuditRecorded(action string)
	WebhookReceived(event string)
}

type nopObserver struct{}

func (nopObserver) SMSCommand(string)      {}
func (nopObserver) AuditRecorded(string)   {}
func (nopObserver) WebhookReceived(string) {}

func observerOrNop(o Observer) Observer {
	if o == nil {
		return nopObserver{}
	}
	return o
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func jsonError(w http.ResponseWriter, message string, code int) {
	writeJSON(w, code, map[string]string{"error": message})
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	return json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(v)
}
