package messaging

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/mamasafe/go-mamasafe/pkg/circuitbreaker"
)

// ErrNotConfigured is returned when the gateway has no API key
var ErrNotConfigured = errors.New("sms gateway not configured")

// Sender delivers an SMS
type Sender interface {
	Send(ctx context.Context, to, message string) error
}

// TermiiConfig configures the Termii gateway
type TermiiConfig struct {
	BaseURL  string
	APIKey   string
	SenderID string
	Timeout  time.Duration
}

// DefaultTermiiConfig returns the public Termii endpoint
func DefaultTermiiConfig() TermiiConfig {
	return TermiiConfig{
		BaseURL:  "https://api.ng.termii.com",
		SenderID: "N-Alert",
		Timeout:  10 * time.Second,
	}
}

// Termii sends SMS through the Termii API
type Termii struct {
	cfg     TermiiConfig
	http    *http.Client
	breaker *circuitbreaker.CircuitBreaker
	logger  *zap.Logger
}

// NewTermii creates a Termii sender. breaker may be nil.
func NewTermii(cfg TermiiConfig, breaker *circuitbreaker.CircuitBreaker, logger *zap.Logger) *Termii {
	if logger == nil {
		logger = zap.NewNop()
	}
	defaults := DefaultTermiiConfig()
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaults.BaseURL
	}
	if cfg.SenderID == "" {
		cfg.SenderID = defaults.SenderID
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaults.Timeout
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	return &Termii{
		cfg:     cfg,
		http:    &http.Client{Timeout: cfg.Timeout},
		breaker: breaker,
		logger:  logger,
	}
}

type termiiRequest struct {
	To      string `json:"to"`
	From    string `json:"from"`
	SMS     string `json:"sms"`
	Type    string `json:"type"`
	APIKey  string `json:"api_key"`
	Channel string `json:"channel"`
}

type termiiResponse struct {
	MessageID string `json:"message_id"`
	Message   string `json:"message"`
}

const termiiSent = "Successfully Sent"

// Send delivers message to the given phone number, truncated to one SMS
func (t *Termii) Send(ctx context.Context, to, message string) error {
	if t.cfg.APIKey == "" {
		return ErrNotConfigured
	}
	payload, err := json.Marshal(termiiRequest{
		To:      to,
		From:    t.cfg.SenderID,
		SMS:     Truncate(message, MaxSMSLength),
		Type:    "plain",
		APIKey:  t.cfg.APIKey,
		Channel: "generic",
	})
	if err != nil {
		return fmt.Errorf("termii: marshal: %w", err)
	}

	_, err = circuitbreaker.Call(ctx, t.breaker, func() (struct{}, error) {
		return struct{}{}, t.post(ctx, payload)
	})
	if err != nil {
		t.logger.Warn("SMS send failed", zap.String("to", maskPhone(to)), zap.Error(err))
		return err
	}
	t.logger.Info("SMS sent", zap.String("to", maskPhone(to)))
	return nil
}

func (t *Termii) post(ctx context.Context, payload []byte) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.cfg.BaseURL+"/api/sms/send", bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("termii: new request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := t.http.Do(req)
	if err != nil {
		return fmt.Errorf("termii: send: %w", err)
	}
	defer resp.Body.Close()

	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	var out termiiResponse
	_ = json.Unmarshal(raw, &out)
	if resp.StatusCode != http.StatusOK || out.Message != termiiSent {
		return fmt.Errorf("termii: status=%d message=%q", resp.StatusCode, out.Message)
	}
	return nil
}

func maskPhone(p string) string {
	r := []rune(p)
	if len(r) <= 4 {
		return "****"
	}
	return strings.Repeat("*", len(r)-4) + string(r[len(r)-4:])
}
