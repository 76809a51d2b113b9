package safety

import (
	"fmt"
	"strings"

	"github.com/mamasafe/go-mamasafe/internal/risk"
)

// maxEncounterPrompt bounds the encounter summary sent to the EMR
const maxEncounterPrompt = 500

func symptomsText(symptoms []string) string {
	if len(symptoms) == 0 {
		return "None"
	}
	return strings.Join(symptoms, ", ")
}

const verdictContract = `REQUIRED OUTPUT: Provide a JSON object with exactly these keys:
- "risk_category": Choose from: "Safe", "Caution", "High Risk", or "Contraindicated"
- "message": Specific clinical guidance (2-3 sentences). Include trimester-specific risks and the mechanism of harm if applicable.
- "alternatives": Safer alternative medications (array of strings). Empty array if the drug is safe.
- "is_safe": Boolean, true if generally safe for this trimester

Return ONLY the JSON object. No markdown formatting, no explanations outside the JSON.`

func singleDrugPrompt(drug string, week int, symptoms []string) string {
	return fmt.Sprintf(`You are a clinical decision support system used by midwives and healthcare workers in rural areas to assess medication safety during pregnancy.

TASK: Analyze the safety of '%s' for a pregnant patient at gestational week %d.
Patient symptoms: %s

%s

EXAMPLES:
For Ibuprofen at week 32: {"risk_category": "Contraindicated", "message": "NSAIDs in third trimester can cause premature closure of ductus arteriosus and oligohydramnios. Avoid use after 28 weeks.", "alternatives": ["Paracetamol"], "is_safe": false}
For Paracetamol at week 20: {"risk_category": "Safe", "message": "Paracetamol is considered safe throughout pregnancy at recommended doses for pain and fever relief.", "alternatives": [], "is_safe": true}`,
		drug, week, symptomsText(symptoms), verdictContract)
}

func multiDrugPrompt(drugs []string, week int, symptoms []string) string {
	return fmt.Sprintf(`You are a clinical decision support system used by midwives and healthcare workers in rural areas to assess medication safety during pregnancy.

TASK: Analyze the combined use of %s for a pregnant patient at gestational week %d.
Consider drug-drug interactions as well as the pregnancy safety of each drug.
Patient symptoms: %s

%s`,
		strings.Join(drugs, ", "), week, symptomsText(symptoms), verdictContract)
}

func encounterPrompt(drugs []string, week int, symptoms []string) string {
	p := fmt.Sprintf("Medication safety check at gestational week %d. Drugs: %s. Symptoms: %s.",
		week, strings.Join(drugs, ", "), symptomsText(symptoms))
	return truncate(p, maxEncounterPrompt)
}

func checkLogPrompt(patientID int, symptoms []string, result risk.Assessment) string {
	p := fmt.Sprintf("Create an encounter for patient %d. Diagnosis: Medication Safety Check - %s. "+
		"Symptoms: %s. Note: Risk Category %s. Result: %s. Alternatives: %s.",
		patientID, result.DrugName, joinOr(symptoms, "None"), result.Category,
		result.Message, joinOr(result.Alternatives, "None"))
	return truncate(p, maxEncounterPrompt)
}

func joinOr(items []string, fallback string) string {
	if len(items) == 0 {
		return fallback
	}
	return strings.Join(items, ", ")
}

func truncate(s string, limit int) string {
	r := []rune(s)
	if len(r) <= limit {
		return s
	}
	return string(r[:limit])
}
