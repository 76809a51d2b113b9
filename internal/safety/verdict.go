package safety

import (
	"fmt"
	"strings"

	"github.com/mamasafe/go-mamasafe/internal/ai"
	"github.com/mamasafe/go-mamasafe/internal/risk"
)

// AIStatus tags the outcome of a model analysis
type AIStatus int

const (
	AIUnavailable AIStatus = iota
	AIVerdict
)

// Verdict is a structured model verdict
type Verdict struct {
	Category     risk.Category `json:"risk_category"`
	Message      string        `json:"message"`
	Alternatives []string      `json:"alternatives"`
	IsSafe       bool          `json:"is_safe"`
}

// AIResult is either a Verdict or the reason none is available
type AIResult struct {
	Status  AIStatus
	Verdict Verdict
	Reason  string
}

// Unavailable builds an AIResult without a verdict
func Unavailable(reason string) AIResult {
	return AIResult{Status: AIUnavailable, Reason: reason}
}

// Available reports whether r carries a verdict
func (r AIResult) Available() bool { return r.Status == AIVerdict }

type rawVerdict struct {
	RiskCategory string   `json:"risk_category"`
	Message      string   `json:"message"`
	Alternatives []string `json:"alternatives"`
	IsSafe       bool     `json:"is_safe"`
}

// DecodeVerdict parses model text into an AIResult. Output that is not JSON,
// names a category outside the four ordered ones, or has no message is
// unavailable.
func DecodeVerdict(text string) AIResult {
	var raw rawVerdict
	if err := ai.DecodeJSON(text, &raw); err != nil {
		return Unavailable(err.Error())
	}
	category, err := risk.ParseCategory(raw.RiskCategory)
	if err != nil || !category.Valid() {
		return Unavailable(fmt.Sprintf("unrecognized risk category %q", raw.RiskCategory))
	}
	message := strings.TrimSpace(raw.Message)
	if message == "" {
		return Unavailable("verdict without message")
	}

	alternatives := make([]string, 0, len(raw.Alternatives))
	for _, alt := range raw.Alternatives {
		if alt = strings.TrimSpace(alt); alt != "" {
			alternatives = append(alternatives, alt)
		}
	}
	return AIResult{
		Status: AIVerdict,
		Verdict: Verdict{
			Category:     category,
			Message:      message,
			Alternatives: alternatives,
			IsSafe:       raw.IsSafe,
		},
	}
}
