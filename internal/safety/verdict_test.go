package safety

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/mamasafe/go-mamasafe/internal/risk"
)

func TestDecodeVerdict(t *testing.T) {
	got := DecodeVerdict("```json\n{\"risk_category\": \"High Risk\", \"message\": \"Avoid in first trimester.\", \"alternatives\": [\" Amoxicillin \", \"\"], \"is_safe\": false}\n```")

	assert.True(t, got.Available())
	assert.Equal(t, risk.HighRisk, got.Verdict.Category)
	assert.Equal(t, "Avoid in first trimester.", got.Verdict.Message)
	assert.Equal(t, []string{"Amoxicillin"}, got.Verdict.Alternatives)
}

func TestDecodeVerdict_Unavailable(t *testing.T) {
	for name, text := range map[string]string{
		"prose":            "I am unable to provide medical advice.",
		"broken json":      `{"risk_category": "Safe", "message": `,
		"unknown category": `{"risk_category": "Unknown", "message": "n/a"}`,
		"error category":   `{"risk_category": "Error", "message": "n/a"}`,
		"empty message":    `{"risk_category": "Safe", "message": "  "}`,
	} {
		t.Run(name, func(t *testing.T) {
			got := DecodeVerdict(text)
			assert.False(t, got.Available())
			assert.NotEmpty(t, got.Reason)
		})
	}
}
