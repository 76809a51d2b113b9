package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mamasafe/go-mamasafe/internal/audit"
	"github.com/mamasafe/go-mamasafe/internal/emr"
	"github.com/mamasafe/go-mamasafe/internal/pharmacovigilance"
	"github.com/mamasafe/go-mamasafe/internal/safety"
	"github.com/mamasafe/go-mamasafe/pkg/circuitbreaker"
)

var fixedNow = time.Date(2026, 3, 12, 9, 0, 0, 0, time.UTC)

type fakeEMR struct {
	mu       sync.Mutex
	patients map[int]*emr.Patient
	prompts  []string
	visits   []emr.Visit
	fail     bool
}

func (f *fakeEMR) GetPatient(_ context.Context, id int) (*emr.Patient, error) {
	if p, ok := f.patients[id]; ok {
		return p, nil
	}
	return nil, emr.ErrNotFound
}

func (f *fakeEMR) CreateAIRecord(_ context.Context, _ int, prompt string) (*emr.AIRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail {
		return nil, errors.New("emr down")
	}
	f.prompts = append(f.prompts, prompt)
	return &emr.AIRecord{ID: len(f.prompts), Resource: "encounter"}, nil
}

func (f *fakeEMR) GetInteractions(context.Context, int) ([]emr.Interaction, error) {
	return nil, nil
}

func (f *fakeEMR) LogVisit(_ context.Context, v emr.Visit) (*emr.AIRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail {
		return nil, errors.New("emr down")
	}
	f.visits = append(f.visits, v)
	return &emr.AIRecord{ID: 1}, nil
}

type fakePublisher struct {
	topics []string
	keys   []string
}

func (p *fakePublisher) Publish(_ context.Context, topic, key string, _ []byte) error {
	p.topics = append(p.topics, topic)
	p.keys = append(p.keys, key)
	return nil
}

type failingPinger struct{}

func (failingPinger) Ping(context.Context) error { return errors.New("connection refused") }

type testAPI struct {
	handler   http.Handler
	emr       *fakeEMR
	publisher *fakePublisher
}

func newTestAPI(t *testing.T, secret string) *testAPI {
	t.Helper()
	fake := &fakeEMR{patients: map[int]*emr.Patient{
		7: {ID: 7, FirstName: "Amaka", LastMenstrualPeriod: "2026-01-01"},
	}}
	svc := safety.NewService(safety.Options{
		EMR: fake,
		Now: func() time.Time { return fixedNow },
	})
	pub := &fakePublisher{}
	webhook := NewWebhookHandler(pharmacovigilance.NewBuffer(20), pub, nil, nil)
	webhook.now = func() time.Time { return fixedNow }

	h := NewRouter(RouterConfig{
		Prefix:      "/api/v1",
		ServiceName: "test",
		SecretKey:   secret,
		DevMode:     true,
		WebhookKeys: map[string]string{"hook-key": "dorra"},
		Medication:  NewMedicationHandler(svc, nil),
		SMS:         NewSMSHandler(svc, nil, nil),
		Audit:       NewAuditHandler(audit.NewMemoryStore(), nil, nil),
		Webhook:     webhook,
		Encounters:  NewEncounterHandler(fake, nil),
		Health:      NewHealthHandler(circuitbreaker.NewManager(nil), nil, nil),
	})
	return &testAPI{handler: h, emr: fake, publisher: pub}
}

func (a *testAPI) do(method, path, body string, headers map[string]string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" && !strings.Contains(headers["Content-Type"], "form") {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	a.handler.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return out
}

func TestMedicationCheck_MisspelledSafeDrug(t *testing.T) {
	api := newTestAPI(t, "")
	rec := api.do(http.MethodPost, "/api/v1/medications/check",
		`{"drug_name":"Panado","manual_gestational_week":15}`, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	body := decode(t, rec)
	assert.Equal(t, "Paracetamol", body["drug_name"])
	assert.Equal(t, "Safe", body["risk_category"])
	assert.Equal(t, true, body["is_safe"])
	assert.Equal(t, 15.0, body["gestational_week"])
}

func TestMedicationCheck_FallbackContraindicated(t *testing.T) {
	api := newTestAPI(t, "")
	rec := api.do(http.MethodPost, "/api/v1/medications/check",
		`{"drug_name":"Ibuprofen","additional_drugs":[],"manual_gestational_week":32}`, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	body := decode(t, rec)
	assert.Equal(t, "Contraindicated", body["risk_category"])
	assert.Equal(t, false, body["is_safe"])
	assert.Equal(t, "Paracetamol", body["alternative_drug"])
	assert.Equal(t, "single-drug", body["analysis_type"])
}

func TestMedicationCheck_PatientWeekAndEncounterLog(t *testing.T) {
	api := newTestAPI(t, "")
	rec := api.do(http.MethodPost, "/api/v1/medications/check",
		`{"drug_name":"Paracetamol","patient_id":"7","symptoms":["fever"]}`, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	body := decode(t, rec)
	assert.Equal(t, 10.0, body["gestational_week"])
	assert.Equal(t, "7", body["patient_id"])
	require.Len(t, api.emr.prompts, 1)
	assert.Contains(t, api.emr.prompts[0], "Create an encounter for patient 7.")
	assert.Contains(t, api.emr.prompts[0], "Symptoms: fever.")
}

func TestMedicationCheck_BadInput(t *testing.T) {
	api := newTestAPI(t, "")
	cases := map[string]string{
		"bad lmp":        `{"drug_name":"Paracetamol","override_lmp":"12/01/2026"}`,
		"bad patient id": `{"drug_name":"Paracetamol","patient_id":"abc"}`,
		"no drug":        `{"drug_name":"  "}`,
		"not json":       `drug=paracetamol`,
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			rec := api.do(http.MethodPost, "/api/v1/medications/check", body, nil)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.Contains(t, decode(t, rec), "error")
		})
	}
}

func TestMedicationCheck_RequiresTokenWhenSecretSet(t *testing.T) {
	api := newTestAPI(t, "s3cret")
	rec := api.do(http.MethodPost, "/api/v1/medications/check", `{"drug_name":"Paracetamol"}`, nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func smsForm(body, from string) string {
	v := url.Values{}
	v.Set("Body", body)
	v.Set("From", from)
	return v.Encode()
}

func TestSMSWebhook(t *testing.T) {
	api := newTestAPI(t, "")
	form := map[string]string{"Content-Type": "application/x-www-form-urlencoded"}

	rec := api.do(http.MethodPost, "/api/v1/sms/webhook", smsForm("CHECK Ibuprofen 7", "+2348000000000"), form)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/xml", rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Body.String(), "<Response><Message>RISK: Contraindicated.")

	rec = api.do(http.MethodPost, "/api/v1/sms/webhook", smsForm("HELLO", "+2348000000000"), form)
	assert.Contains(t, rec.Body.String(), "Invalid command. Use CHECK &lt;DrugName&gt; &lt;PatientID&gt;")

	rec = api.do(http.MethodPost, "/api/v1/sms/webhook", smsForm("CHECK Folic", "+2348000000000"), form)
	assert.Contains(t, rec.Body.String(), "Missing arguments.")

	rec = api.do(http.MethodPost, "/api/v1/sms/webhook", smsForm("CHECK Ibuprofen 7", ""), form)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAuditLogAndList(t *testing.T) {
	api := newTestAPI(t, "")

	rec := api.do(http.MethodPost, "/api/v1/audit/log",
		`{"patient_id":"7","drug_name":"Ibuprofen","risk_level":"Contraindicated","override_reason":"specialist approved"}`, nil)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	rec = api.do(http.MethodPost, "/api/v1/audit/log",
		`{"patient_id":"7","drug_name":"Ibuprofen","risk_level":"Contraindicated","override_reason":"x","action":"DELETE"}`, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = api.do(http.MethodGet, "/api/v1/audit/logs?patient_id=7&limit=5", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	body := decode(t, rec)
	assert.Equal(t, 1.0, body["count"])
	entry := body["entries"].([]any)[0].(map[string]any)
	assert.Equal(t, "OVERRIDE", entry["action"])
	assert.Equal(t, "dev-provider", entry["provider_id"])

	rec = api.do(http.MethodGet, "/api/v1/audit/logs?limit=-1", "", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestPharmacovigilanceWebhook(t *testing.T) {
	api := newTestAPI(t, "")
	payload := `{"event":"DrugInteraction","severity":"Major","details":"warfarin + aspirin","resource_id":"42"}`

	rec := api.do(http.MethodPost, "/api/v1/webhook/pharmacovigilance", payload, nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = api.do(http.MethodPost, "/api/v1/webhook/pharmacovigilance", payload, map[string]string{"X-API-Key": "hook-key"})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "received", decode(t, rec)["status"])
	assert.Equal(t, []string{pharmacovigilance.Topic}, api.publisher.topics)
	assert.Equal(t, []string{"42"}, api.publisher.keys)

	rec = api.do(http.MethodPost, "/api/v1/webhook/pharmacovigilance", `{"severity":"Major"}`, map[string]string{"X-API-Key": "hook-key"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = api.do(http.MethodGet, "/api/v1/webhook/events", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	events := decode(t, rec)["events"].([]any)
	require.Len(t, events, 1)
	assert.Equal(t, "DrugInteraction", events[0].(map[string]any)["event"])
}

func TestEncounterUpdateAndVisitLog(t *testing.T) {
	api := newTestAPI(t, "")

	rec := api.do(http.MethodPost, "/api/v1/encounters/update",
		`{"patient_id":7,"diagnosis":"Gestational hypertension","medications":["Methyldopa"],"vital_signs":{"hr":"88","bp":"150/95"}}`, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, true, decode(t, rec)["success"])
	require.Len(t, api.emr.prompts, 1)
	assert.Equal(t, "Update medical record for patient 7. Diagnosis: Gestational hypertension. "+
		"Current medications: Methyldopa. Vital signs: bp: 150/95, hr: 88.", api.emr.prompts[0])

	rec = api.do(http.MethodPost, "/api/v1/visits/log",
		`{"patient_id":"7","drug_checked":"Ibuprofen","risk_result":"Contraindicated"}`, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Len(t, api.emr.visits, 1)
	assert.Equal(t, "Visit for medication check: Ibuprofen. Result: Contraindicated.", api.emr.visits[0].Prompt)

	api.emr.fail = true
	rec = api.do(http.MethodPost, "/api/v1/visits/log", `{"patient_id":7}`, nil)
	assert.Equal(t, http.StatusBadGateway, rec.Code)

	rec = api.do(http.MethodPost, "/api/v1/encounters/update", `{"diagnosis":"x"}`, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHealthAndReady(t *testing.T) {
	api := newTestAPI(t, "")
	rec := api.do(http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = api.do(http.MethodGet, "/ready", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	h := NewHealthHandler(nil, failingPinger{}, nil)
	rr := httptest.NewRecorder()
	h.Ready(rr, httptest.NewRequest(http.MethodGet, "/ready", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rr.Code)
	assert.Equal(t, "unavailable", decode(t, rr)["database"])
}

type okPinger struct{}

func (okPinger) Ping(context.Context) error { return nil }

func TestReady_BrokerReportedWithoutFailing(t *testing.T) {
	h := NewHealthHandler(nil, okPinger{}, nil).WithBroker(failingPinger{})
	rr := httptest.NewRecorder()
	h.Ready(rr, httptest.NewRequest(http.MethodGet, "/ready", nil))
	assert.Equal(t, http.StatusOK, rr.Code)
	body := decode(t, rr)
	assert.Equal(t, "ok", body["database"])
	assert.Equal(t, "unavailable", body["broker"])

	h = NewHealthHandler(nil, nil, nil).WithBroker(okPinger{})
	rr = httptest.NewRecorder()
	h.Ready(rr, httptest.NewRequest(http.MethodGet, "/ready", nil))
	assert.Equal(t, "ok", decode(t, rr)["broker"])
}
