package ai

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
	"google.golang.org/genai"

	"github.com/mamasafe/go-mamasafe/pkg/circuitbreaker"
)

// GeminiConfig configures the Gemini client
type GeminiConfig struct {
	APIKey  string
	Model   string
	Timeout time.Duration
}

// Gemini is a Generator backed by the Gemini API
type Gemini struct {
	client  *genai.Client
	model   string
	timeout time.Duration
	breaker *circuitbreaker.CircuitBreaker
	logger  *zap.Logger
}

// NewGemini creates a Gemini generator. An empty API key is ErrNotConfigured.
func NewGemini(ctx context.Context, cfg GeminiConfig, breaker *circuitbreaker.CircuitBreaker, logger *zap.Logger) (*Gemini, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.APIKey == "" {
		return nil, ErrNotConfigured
	}
	if cfg.Model == "" {
		cfg.Model = "gemini-2.5-flash"
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create gemini client: %w", err)
	}

	return &Gemini{
		client:  client,
		model:   cfg.Model,
		timeout: cfg.Timeout,
		breaker: breaker,
		logger:  logger,
	}, nil
}

// Generate sends prompt to the model and returns its text
func (g *Gemini) Generate(ctx context.Context, prompt string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	text, err := circuitbreaker.Call(ctx, g.breaker, func() (string, error) {
		resp, err := g.client.Models.GenerateContent(ctx, g.model, genai.Text(prompt), nil)
		if err != nil {
			return "", err
		}
		out := strings.TrimSpace(resp.Text())
		if out == "" {
			return "", fmt.Errorf("%w: empty response", ErrMalformedResponse)
		}
		return out, nil
	})
	if err != nil {
		g.logger.Warn("gemini request failed", zap.String("model", g.model), zap.Error(err))
		return "", fmt.Errorf("gemini generate: %w", err)
	}
	return text, nil
}
