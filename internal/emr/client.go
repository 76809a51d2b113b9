// Package emr is the HTTP client for the Dorra EMR.
package emr

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/mamasafe/go-mamasafe/pkg/circuitbreaker"
)

var (
	// ErrNotFound is returned when the EMR has no such record
	ErrNotFound = errors.New("emr: not found")
	// ErrUnexpectedStatus is returned for any other non-success status
	ErrUnexpectedStatus = errors.New("emr: unexpected status")
)

// StatusError carries the status and body of a failed EMR call
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("emr: status=%d body=%s", e.StatusCode, e.Body)
}

// Unwrap maps the status onto the package sentinels
func (e *StatusError) Unwrap() error {
	if e.StatusCode == http.StatusNotFound {
		return ErrNotFound
	}
	return ErrUnexpectedStatus
}

// Config holds EMR client configuration
type Config struct {
	BaseURL string
	APIKey  string
	// Timeout bounds plain record calls
	Timeout time.Duration
	// AITimeout bounds calls that run the EMR's AI record builder
	AITimeout time.Duration
}

// DefaultConfig returns the hackathon EMR endpoint with standard timeouts
func DefaultConfig() Config {
	return Config{
		BaseURL:   "https://hackathon-api.aheadafrica.org",
		Timeout:   10 * time.Second,
		AITimeout: 15 * time.Second,
	}
}

// BreakerConfig treats 404s as healthy responses
func BreakerConfig() circuitbreaker.Config {
	cfg := circuitbreaker.DefaultConfig("dorra-emr")
	cfg.IsSuccessful = func(err error) bool {
		return err == nil || errors.Is(err, ErrNotFound)
	}
	return cfg
}

// Client talks to the Dorra EMR over HTTP+JSON
type Client struct {
	cfg     Config
	http    *http.Client
	breaker *circuitbreaker.CircuitBreaker
	logger  *zap.Logger
}

// NewClient creates an EMR client. breaker may be nil.
func NewClient(cfg Config, breaker *circuitbreaker.CircuitBreaker, logger *zap.Logger) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}
	defaults := DefaultConfig()
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaults.BaseURL
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaults.Timeout
	}
	if cfg.AITimeout <= 0 {
		cfg.AITimeout = defaults.AITimeout
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")

	return &Client{
		cfg:     cfg,
		http:    &http.Client{},
		breaker: breaker,
		logger:  logger.With(zap.String("upstream", "dorra-emr")),
	}
}

type call struct {
	method  string
	path    string
	query   url.Values
	body    any
	want    int
	timeout time.Duration
}

func (c *Client) do(ctx context.Context, req call, out any) error {
	ctx, cancel := context.WithTimeout(ctx, req.timeout)
	defer cancel()

	_, err := circuitbreaker.Call(ctx, c.breaker, func() (struct{}, error) {
		return struct{}{}, c.roundTrip(ctx, req, out)
	})
	return err
}

func (c *Client) roundTrip(ctx context.Context, req call, out any) error {
	target := c.cfg.BaseURL + req.path
	if len(req.query) > 0 {
		target += "?" + req.query.Encode()
	}

	var body io.Reader
	if req.body != nil {
		raw, err := json.Marshal(req.body)
		if err != nil {
			return fmt.Errorf("emr: marshal request: %w", err)
		}
		body = bytes.NewReader(raw)
	}

	httpReq, err := http.NewRequestWithContext(ctx, req.method, target, body)
	if err != nil {
		return fmt.Errorf("emr: new request: %w", err)
	}
	httpReq.Header.Set("Accept", "application/json")
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Token "+c.cfg.APIKey)

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return fmt.Errorf("emr: %s %s: %w", req.method, req.path, err)
	}
	defer resp.Body.Close()

	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if resp.StatusCode != req.want {
		return &StatusError{StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(raw))}
	}
	if out == nil || len(raw) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("emr: decode %s: %w", req.path, err)
	}
	return nil
}

func (c *Client) logFailure(op string, patientID int, err error) {
	if errors.Is(err, ErrNotFound) {
		c.logger.Info("EMR record not found", zap.String("op", op), zap.Int("patient_id", patientID))
		return
	}
	c.logger.Warn("EMR call failed", zap.String("op", op), zap.Int("patient_id", patientID), zap.Error(err))
}

func patientPath(id int) string {
	return "/v1/patients/" + strconv.Itoa(id)
}
