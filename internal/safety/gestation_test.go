package safety

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGestationalWeek(t *testing.T) {
	today := time.Date(2025, 6, 15, 14, 30, 0, 0, time.UTC)

	assert.Equal(t, 10, GestationalWeek(today.AddDate(0, 0, -70), today))
	assert.Equal(t, 9, GestationalWeek(today.AddDate(0, 0, -69), today))
	assert.Equal(t, 0, GestationalWeek(today, today))
	assert.Equal(t, 0, GestationalWeek(today.AddDate(0, 0, 30), today))
}

func TestGestationalWeek_IgnoresTimeOfDay(t *testing.T) {
	lmp := time.Date(2025, 4, 6, 23, 59, 0, 0, time.UTC)
	today := time.Date(2025, 6, 15, 0, 1, 0, 0, time.UTC)
	assert.Equal(t, 10, GestationalWeek(lmp, today))
}

func TestParseLMP(t *testing.T) {
	got, err := ParseLMP("2025-01-31")
	require.NoError(t, err)
	assert.Equal(t, time.January, got.Month())

	_, err = ParseLMP("31/01/2025")
	assert.ErrorIs(t, err, ErrInvalidLMP)
}

func TestPatientID_UnmarshalJSON(t *testing.T) {
	var req MedicationCheckRequest

	require.NoError(t, json.Unmarshal([]byte(`{"drug_name": "x", "patient_id": "123"}`), &req))
	assert.Equal(t, PatientID(123), req.PatientID)

	require.NoError(t, json.Unmarshal([]byte(`{"drug_name": "x", "patient_id": 77}`), &req))
	assert.Equal(t, PatientID(77), req.PatientID)

	req = MedicationCheckRequest{}
	require.NoError(t, json.Unmarshal([]byte(`{"drug_name": "x", "patient_id": null}`), &req))
	assert.Equal(t, PatientID(0), req.PatientID)

	err := json.Unmarshal([]byte(`{"drug_name": "x", "patient_id": "abc"}`), &req)
	assert.ErrorIs(t, err, ErrInvalidPatientID)

	err = json.Unmarshal([]byte(`{"drug_name": "x", "patient_id": -4}`), &req)
	assert.ErrorIs(t, err, ErrInvalidPatientID)
}

func TestMedicationCheckRequest_Validate(t *testing.T) {
	assert.ErrorIs(t, MedicationCheckRequest{}.Validate(), ErrDrugNameRequired)
	assert.ErrorIs(t, MedicationCheckRequest{DrugName: "x", OverrideLMP: "soon"}.Validate(), ErrInvalidLMP)
	assert.NoError(t, MedicationCheckRequest{DrugName: "x", OverrideLMP: "2025-01-01"}.Validate())
}
