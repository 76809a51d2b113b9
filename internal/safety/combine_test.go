package safety

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/mamasafe/go-mamasafe/internal/emr"
	"github.com/mamasafe/go-mamasafe/internal/risk"
)

func verdictOf(c risk.Category, msg string, alts ...string) AIResult {
	return AIResult{Status: AIVerdict, Verdict: Verdict{Category: c, Message: msg, Alternatives: alts, IsSafe: c == risk.Safe}}
}

func TestCombine_BaseNeverDowngraded(t *testing.T) {
	base := DefaultAssessment("Aspirin")
	got := Combine(base, verdictOf(risk.Safe, "Low dose is fine."))

	assert.Equal(t, risk.Caution, got.Category)
	assert.False(t, got.IsSafe)
	assert.Equal(t, base.Message+" AI ANALYSIS: Low dose is fine.", got.Message)
	assert.Equal(t, []string{risk.SourceRules, risk.SourceAI}, got.Sources)
}

func TestCombine_MoreRestrictiveWins(t *testing.T) {
	base := DefaultAssessment("Paracetamol")
	got := Combine(base, verdictOf(risk.Contraindicated, "Do not use.", "Consult obstetrician"))

	assert.Equal(t, risk.Contraindicated, got.Category)
	assert.False(t, got.IsSafe)
	assert.Equal(t, []string{"Consult obstetrician"}, got.Alternatives)
}

func TestCombine_AlternativesDeduplicated(t *testing.T) {
	base := DefaultAssessment("Ibuprofen")
	got := Combine(base, verdictOf(risk.Contraindicated, "Avoid NSAIDs.", "paracetamol", "Physiotherapy", "Paracetamol "))

	assert.Equal(t, []string{"Paracetamol", "Physiotherapy"}, got.Alternatives)
}

func TestCombine_UnavailableKeepsBase(t *testing.T) {
	base := DefaultAssessment("Ibuprofen")
	got := Combine(base, Unavailable("timeout"))

	assert.Equal(t, base.Category, got.Category)
	assert.Equal(t, base.Message, got.Message)
	assert.Equal(t, []string{"Paracetamol"}, got.Alternatives)
	assert.NotContains(t, got.Sources, risk.SourceAI)
}

func TestCombine_IsSafeFollowsFinalCategory(t *testing.T) {
	bases := []risk.Assessment{
		DefaultAssessment("Paracetamol"),
		DefaultAssessment("Aspirin"),
		DefaultAssessment("Ibuprofen"),
		InteractionAssessment("Warfarin", []string{"Aspirin"}, []emr.Interaction{{Severity: "Minor"}}),
	}
	categories := []risk.Category{risk.Safe, risk.Caution, risk.HighRisk, risk.Contraindicated}

	for _, base := range bases {
		for _, c := range categories {
			for _, aiSaysSafe := range []bool{true, false} {
				v := verdictOf(c, "m")
				v.Verdict.IsSafe = aiSaysSafe
				got := Combine(base, v)
				assert.Equal(t, got.Category == risk.Safe, got.IsSafe)
			}
		}
		got := Combine(base, Unavailable("x"))
		assert.Equal(t, got.Category == risk.Safe, got.IsSafe)
	}
}

func TestDefaultAssessment(t *testing.T) {
	tests := []struct {
		drug string
		want risk.Category
		alts []string
	}{
		{"Paracetamol", risk.Safe, []string{}},
		{"acetaminophen extra", risk.Safe, []string{}},
		{"Ibuprofen", risk.Contraindicated, []string{"Paracetamol"}},
		{"Aspirin", risk.Caution, []string{"Paracetamol"}},
		{"Acetylsalicylic acid", risk.Caution, []string{"Paracetamol"}},
		{"Thalidomide", risk.Caution, []string{}},
	}
	for _, tt := range tests {
		t.Run(tt.drug, func(t *testing.T) {
			got := DefaultAssessment(tt.drug)
			assert.Equal(t, tt.want, got.Category)
			assert.Equal(t, tt.alts, got.Alternatives)
			assert.Equal(t, tt.want == risk.Safe, got.IsSafe)
			assert.NotEmpty(t, got.Message)
		})
	}
}

func TestInteractionAssessment(t *testing.T) {
	interactions := []emr.Interaction{
		{DrugA: "Warfarin", DrugB: "Paracetamol", Severity: "minor", Description: "Slight INR increase"},
		{DrugA: "Warfarin", DrugB: "Aspirin", Severity: "Major", Description: "Bleeding risk."},
	}
	got := InteractionAssessment("Warfarin", []string{"Aspirin", "Paracetamol"}, interactions)

	assert.Equal(t, risk.Contraindicated, got.Category)
	assert.False(t, got.IsSafe)
	assert.Equal(t, risk.MultiDrug, got.AnalysisType)
	assert.Contains(t, got.Message, "Major interaction between Warfarin and Aspirin: Bleeding risk.")
	assert.Contains(t, got.Message, "Minor interaction between Warfarin and Paracetamol: Slight INR increase.")
	assert.Equal(t, []string{"Consult specialist immediately", "Consider safer alternatives", "Use single-drug therapy"}, got.Alternatives)
}

func TestSeverityCategory(t *testing.T) {
	assert.Equal(t, risk.Contraindicated, ParseSeverity("Major").Category())
	assert.Equal(t, risk.HighRisk, ParseSeverity("moderate").Category())
	assert.Equal(t, risk.Caution, ParseSeverity("Minor").Category())
	assert.Equal(t, risk.Caution, ParseSeverity("???").Category())
	assert.Equal(t, SeverityUnknown, ParseSeverity(""))
}
