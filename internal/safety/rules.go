package safety

import (
	"strings"

	"github.com/mamasafe/go-mamasafe/internal/risk"
)

type rule struct {
	match        []string
	category     risk.Category
	message      string
	alternatives []string
}

// defaultRules is the deterministic floor used when no interaction data or
// model verdict is available. Matching is a case-insensitive substring test
// on the normalized name; the first matching rule wins.
var defaultRules = []rule{
	{
		match:    []string{"paracetamol", "acetaminophen"},
		category: risk.Safe,
		message:  "Paracetamol is considered safe throughout pregnancy at recommended doses.",
	},
	{
		match:        []string{"ibuprofen"},
		category:     risk.Contraindicated,
		message:      "NSAIDs such as ibuprofen should be avoided in pregnancy, especially after 20 weeks.",
		alternatives: []string{"Paracetamol"},
	},
	{
		match:        []string{"aspirin", "acetylsalicylic"},
		category:     risk.Caution,
		message:      "Aspirin should only be used in pregnancy under medical supervision.",
		alternatives: []string{"Paracetamol"},
	},
}

const unknownDrugMessage = "No verified safety data is available for this medication. Consult your healthcare provider before use."

// DefaultAssessment classifies drugName with the built-in rule table
func DefaultAssessment(drugName string) risk.Assessment {
	a := risk.Assessment{
		DrugName:     drugName,
		Alternatives: []string{},
		AnalysisType: risk.SingleDrug,
	}
	a.AddSource(risk.SourceRules)

	name := strings.ToLower(drugName)
	for _, r := range defaultRules {
		for _, m := range r.match {
			if strings.Contains(name, m) {
				a.SetCategory(r.category)
				a.Message = r.message
				a.Alternatives = append(a.Alternatives, r.alternatives...)
				return a
			}
		}
	}

	a.SetCategory(risk.Caution)
	a.Message = unknownDrugMessage
	return a
}
