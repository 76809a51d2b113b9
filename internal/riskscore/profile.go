// Package riskscore derives a patient risk profile from EMR encounter history
// and applies it to a medication verdict.
package riskscore

import (
	"fmt"
	"strings"

	"github.com/mamasafe/go-mamasafe/internal/risk"
)

const (
	// HighRiskThreshold is the score a profile must exceed to escalate a verdict
	HighRiskThreshold = 70
	// MaxEncounters bounds the history sent for scoring
	MaxEncounters = 10
	// MaxPersonalizedFactors bounds the factors quoted back to the provider
	MaxPersonalizedFactors = 3
)

// Profile summarizes a patient's historical pregnancy risk
type Profile struct {
	RiskFactors     []string `json:"risk_factors"`
	RiskScore       int      `json:"risk_score"`
	Recommendations []string `json:"recommendations"`
}

// IsZero reports whether the profile carries no information
func (p Profile) IsZero() bool {
	return p.RiskScore == 0 && len(p.RiskFactors) == 0 && len(p.Recommendations) == 0
}

func (p Profile) clamped() Profile {
	switch {
	case p.RiskScore < 0:
		p.RiskScore = 0
	case p.RiskScore > 100:
		p.RiskScore = 100
	}
	return p
}

// CalculateMedicationRisk applies profile to base. A score above
// HighRiskThreshold raises the category one step, capped at Contraindicated,
// and notes the score in the message only when the category changed.
// Up to MaxPersonalizedFactors factors become personalized notes regardless
// of score.
func CalculateMedicationRisk(base risk.Assessment, profile Profile, gestationalWeek int) risk.Assessment {
	out := base
	out.Alternatives = append([]string(nil), base.Alternatives...)
	out.Sources = append([]string(nil), base.Sources...)

	if profile.IsZero() || !base.Category.Valid() {
		return out
	}
	profile = profile.clamped()

	score := profile.RiskScore
	out.RiskScore = &score
	out.AddSource(risk.SourcePatientHistory)

	if escalated := base.Category.Escalate(); score > HighRiskThreshold && escalated != base.Category {
		out.SetCategory(escalated)
		out.Message = strings.TrimSpace(out.Message) + fmt.Sprintf(" Patient has high-risk profile (score: %d).", score)
	}

	factors := nonEmpty(profile.RiskFactors)
	if len(factors) > MaxPersonalizedFactors {
		factors = factors[:MaxPersonalizedFactors]
	}
	if len(factors) > 0 {
		out.PersonalizedNotes = "Consider patient's history: " + strings.Join(factors, ", ")
	}
	return out
}

func nonEmpty(in []string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}
