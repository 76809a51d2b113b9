package safety

import (
	"strings"

	"github.com/mamasafe/go-mamasafe/internal/risk"
)

// Combine reconciles the rule or interaction verdict with the model result.
// The stricter category wins, messages are joined, and alternatives are
// merged without duplicates. is_safe follows the final category only.
func Combine(base risk.Assessment, result AIResult) risk.Assessment {
	out := base
	out.Alternatives = append([]string{}, base.Alternatives...)
	out.Sources = append([]string(nil), base.Sources...)
	out.SetCategory(base.Category)

	if !result.Available() {
		return out
	}

	v := result.Verdict
	out.SetCategory(risk.MoreRestrictive(base.Category, v.Category))
	out.Message = strings.TrimSpace(strings.TrimSpace(base.Message) + " AI ANALYSIS: " + v.Message)
	out.Alternatives = union(out.Alternatives, v.Alternatives)
	out.AddSource(risk.SourceAI)
	return out
}

func union(a, b []string) []string {
	seen := make(map[string]bool, len(a)+len(b))
	out := make([]string, 0, len(a)+len(b))
	for _, list := range [][]string{a, b} {
		for _, s := range list {
			key := strings.ToLower(strings.TrimSpace(s))
			if key == "" || seen[key] {
				continue
			}
			seen[key] = true
			out = append(out, strings.TrimSpace(s))
		}
	}
	return out
}
