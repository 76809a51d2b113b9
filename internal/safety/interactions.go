package safety

import (
	"fmt"
	"strings"

	"github.com/mamasafe/go-mamasafe/internal/emr"
	"github.com/mamasafe/go-mamasafe/internal/risk"
)

// Severity is the clinical severity of a drug interaction
type Severity string

const (
	SeverityMajor    Severity = "Major"
	SeverityModerate Severity = "Moderate"
	SeverityMinor    Severity = "Minor"
	SeverityUnknown  Severity = "Unknown"
)

// ParseSeverity maps free text onto a Severity
func ParseSeverity(s string) Severity {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "major", "severe", "high":
		return SeverityMajor
	case "moderate", "medium":
		return SeverityModerate
	case "minor", "low", "mild":
		return SeverityMinor
	}
	return SeverityUnknown
}

// Category maps severity to a risk category
func (s Severity) Category() risk.Category {
	switch s {
	case SeverityMajor:
		return risk.Contraindicated
	case SeverityModerate:
		return risk.HighRisk
	default:
		return risk.Caution
	}
}

// Alternatives returns the guidance suggested for an interaction of severity s
func (s Severity) Alternatives() []string {
	switch s {
	case SeverityMajor:
		return []string{"Consult specialist immediately", "Consider safer alternatives", "Use single-drug therapy"}
	case SeverityModerate:
		return []string{"Monitor patient closely", "Consider dose adjustment or timing separation", "Consult pharmacist"}
	case SeverityMinor:
		return []string{"Monitor for side effects"}
	}
	return []string{"Consult healthcare provider"}
}

// InteractionAssessment builds the base verdict from interaction records.
// The most severe interaction sets the category and the guidance.
func InteractionAssessment(drugName string, additional []string, interactions []emr.Interaction) risk.Assessment {
	a := risk.Assessment{
		DrugName:        drugName,
		AdditionalDrugs: additional,
		Alternatives:    []string{},
		AnalysisType:    risk.MultiDrug,
	}
	a.AddSource(risk.SourceInteractions)

	worst := risk.Caution
	worstSeverity := SeverityUnknown
	messages := make([]string, 0, len(interactions))
	for _, in := range interactions {
		sev := ParseSeverity(in.Severity)
		if c := sev.Category(); c > worst || (c == worst && worstSeverity == SeverityUnknown) {
			worst, worstSeverity = c, sev
		}
		reason := strings.TrimSpace(in.Description)
		if reason == "" {
			reason = "clinical significance not documented"
		}
		messages = append(messages, fmt.Sprintf("%s interaction between %s and %s: %s.",
			sev, in.DrugA, in.DrugB, strings.TrimSuffix(reason, ".")))
	}

	a.SetCategory(worst)
	a.Message = strings.Join(messages, " ")
	a.Alternatives = append(a.Alternatives, worstSeverity.Alternatives()...)
	return a
}
