// Package ai wraps the generative model used for clinical risk analysis,
// translation and history scoring.
package ai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrNotConfigured is returned when no model credentials are set
	ErrNotConfigured = errors.New("ai model not configured")
	// ErrMalformedResponse is returned when model output is not the expected JSON
	ErrMalformedResponse = errors.New("malformed ai response")
)

// Generator turns a prompt into model text
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// Disabled is a Generator that always reports ErrNotConfigured
type Disabled struct{}

// Generate implements Generator
func (Disabled) Generate(context.Context, string) (string, error) {
	return "", ErrNotConfigured
}

// DecodeJSON extracts the JSON object from model text into v. Markdown code
// fences and prose around the object are tolerated.
func DecodeJSON(text string, v any) error {
	body := strings.TrimSpace(text)
	body = strings.TrimPrefix(body, "```json")
	body = strings.TrimPrefix(body, "```JSON")
	body = strings.TrimPrefix(body, "```")
	body = strings.TrimSuffix(strings.TrimSpace(body), "```")

	start := strings.IndexByte(body, '{')
	end := strings.LastIndexByte(body, '}')
	if start < 0 || end < start {
		return fmt.Errorf("%w: no JSON object in response", ErrMalformedResponse)
	}
	if err := json.Unmarshal([]byte(body[start:end+1]), v); err != nil {
		return fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}
	return nil
}
