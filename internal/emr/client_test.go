package emr

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mamasafe/go-mamasafe/pkg/circuitbreaker"
)

func newTestClient(t *testing.T, h http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return NewClient(Config{BaseURL: srv.URL, APIKey: "secret", Timeout: time.Second, AITimeout: time.Second}, nil, nil)
}

func TestGetPatient(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/patients/42", r.URL.Path)
		assert.Equal(t, "Token secret", r.Header.Get("Authorization"))
		_, _ = w.Write([]byte(`{"id": 42, "first_name": "Ada", "last_menstrual_period": "2025-01-10"}`))
	})

	p, err := c.GetPatient(context.Background(), 42)
	require.NoError(t, err)
	assert.Equal(t, 42, p.ID)

	lmp, ok := p.LMPDate()
	require.True(t, ok)
	assert.Equal(t, time.Date(2025, 1, 10, 0, 0, 0, 0, time.UTC), lmp)
}

func TestGetPatient_NotFound(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})

	p, err := c.GetPatient(context.Background(), 7)
	assert.Nil(t, p)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestCreateAIRecord_RequiresCreated(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, float64(9), body["patient"])
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"id": 1}`))
	})

	_, err := c.CreateAIRecord(context.Background(), 9, "encounter")
	assert.ErrorIs(t, err, ErrUnexpectedStatus)
}

func TestCreateAIRecord(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/v1/ai/emr", r.URL.Path)
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"id": 31, "resource": "Encounter"}`))
	})

	rec, err := c.CreateAIRecord(context.Background(), 9, "encounter")
	require.NoError(t, err)
	assert.Equal(t, 31, rec.ID)
	assert.Equal(t, "Encounter", rec.Resource)
}

func TestGetPatientEncounters_FlexibleMedications(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "12", r.URL.Query().Get("search"))
		_, _ = w.Write([]byte(`{"results": [
			{"date": "2025-01-01", "diagnosis": "Hypertension", "medications": ["Methyldopa", {"name": "Aspirin"}], "notes": null},
			{"date": "2025-02-01", "diagnosis": "", "medications": "Folic Acid"}
		]}`))
	})

	encounters, err := c.GetPatientEncounters(context.Background(), 12)
	require.NoError(t, err)
	require.Len(t, encounters, 2)
	assert.Equal(t, "Methyldopa, Aspirin", string(encounters[0].Medications))
	assert.Equal(t, "N/A", encounters[0].Notes.Or("N/A"))
	assert.Equal(t, "Folic Acid", string(encounters[1].Medications))
}

func TestGetInteractions(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/pharmavigilance/interactions", r.URL.Path)
		assert.Equal(t, "5", r.URL.Query().Get("patient"))
		_, _ = w.Write([]byte(`{"results": [{"drug_a": "Warfarin", "drug_b": "Aspirin", "severity": "Major", "description": "bleeding risk"}]}`))
	})

	got, err := c.GetInteractions(context.Background(), 5)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "Major", got[0].Severity)
}

func TestLogVisit_DefaultPrompt(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "Visit for medication check: Paracetamol", body["prompt"])
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"id": 3}`))
	})

	_, err := c.LogVisit(context.Background(), Visit{PatientID: 4, Medication: "Paracetamol"})
	require.NoError(t, err)

	_, err = c.LogVisit(context.Background(), Visit{Medication: "Paracetamol"})
	assert.Error(t, err)
}

func TestBreaker_IgnoresNotFound(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	t.Cleanup(srv.Close)

	cfg := BreakerConfig()
	cfg.FailureThreshold = 1
	cb, err := circuitbreaker.New(cfg, nil)
	require.NoError(t, err)
	c := NewClient(Config{BaseURL: srv.URL, Timeout: time.Second}, cb, nil)

	for i := 0; i < 3; i++ {
		_, err := c.GetPatient(context.Background(), i+1)
		assert.ErrorIs(t, err, ErrNotFound)
	}
	assert.Equal(t, circuitbreaker.StateClosed, cb.GetState())
}

func TestPatientWrites(t *testing.T) {
	in := PatientInput{FirstName: "Ada", PhoneNumber: "+2348012345678"}
	tests := []struct {
		name   string
		method string
		path   string
		call   func(c *Client) (*Patient, error)
		check  func(t *testing.T, body map[string]any)
	}{
		{
			name:   "create",
			method: http.MethodPost,
			path:   "/v1/patients/create",
			call:   func(c *Client) (*Patient, error) { return c.CreatePatient(context.Background(), in) },
			check: func(t *testing.T, body map[string]any) {
				assert.Equal(t, "Ada", body["first_name"])
				assert.Equal(t, "+2348012345678", body["phone_number"])
			},
		},
		{
			name:   "create from prompt",
			method: http.MethodPost,
			path:   "/v1/ai/patient",
			call: func(c *Client) (*Patient, error) {
				return c.CreatePatientFromPrompt(context.Background(), "Ada, 28, second pregnancy")
			},
			check: func(t *testing.T, body map[string]any) {
				assert.Equal(t, "Ada, 28, second pregnancy", body["prompt"])
			},
		},
		{
			name:   "update",
			method: http.MethodPatch,
			path:   "/v1/patients/42",
			call:   func(c *Client) (*Patient, error) { return c.UpdatePatient(context.Background(), 42, in) },
			check: func(t *testing.T, body map[string]any) {
				assert.Equal(t, "Ada", body["first_name"])
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name+" succeeds on 201", func(t *testing.T) {
			c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				assert.Equal(t, tt.method, r.Method)
				assert.Equal(t, tt.path, r.URL.Path)
				assert.Equal(t, "Token secret", r.Header.Get("Authorization"))
				var body map[string]any
				require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
				tt.check(t, body)
				w.WriteHeader(http.StatusCreated)
				_, _ = w.Write([]byte(`{"id": 42, "first_name": "Ada"}`))
			})

			p, err := tt.call(c)
			require.NoError(t, err)
			assert.Equal(t, 42, p.ID)
			assert.Equal(t, "Ada", p.FirstName)
		})

		for _, status := range []int{http.StatusOK, http.StatusBadRequest} {
			t.Run(tt.name+" rejects "+http.StatusText(status), func(t *testing.T) {
				c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
					assert.Equal(t, "Token secret", r.Header.Get("Authorization"))
					w.WriteHeader(status)
					_, _ = w.Write([]byte(`{"detail": "nope"}`))
				})

				p, err := tt.call(c)
				assert.Nil(t, p)
				assert.ErrorIs(t, err, ErrUnexpectedStatus)
				var statusErr *StatusError
				require.ErrorAs(t, err, &statusErr)
				assert.Equal(t, status, statusErr.StatusCode)
			})
		}
	}
}
