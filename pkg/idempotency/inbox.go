// Package idempotency provides a Postgres inbox so redelivered events are
// handled at most once per idempotency key.
package idempotency

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

// Status represents the processing status of an inbox entry
type Status string

const (
	StatusStarted     Status = "STARTED"
	StatusFinished    Status = "FINISHED"
	StatusRecoverable Status = "RECOVERABLE"
	StatusFailed      Status = "FAILED"
)

// Config holds inbox timing
type Config struct {
	// TTL is how long processed keys are remembered
	TTL time.Duration
	// CleanupInterval is how often expired keys are purged
	CleanupInterval time.Duration
	// RecoveryTimeout is when a STARTED entry is considered abandoned
	RecoveryTimeout time.Duration
}

// DefaultConfig remembers keys for a week
func DefaultConfig() Config {
	return Config{
		TTL:             7 * 24 * time.Hour,
		CleanupInterval: time.Hour,
		RecoveryTimeout: 5 * time.Minute,
	}
}

var (
	// ErrDuplicate indicates the key was already handled
	ErrDuplicate = errors.New("duplicate message: already processed")
	// ErrInProgress indicates another consumer holds the key
	ErrInProgress = errors.New("message in progress by another handler")
	// ErrPreviouslyFailed indicates the key failed terminally before
	ErrPreviouslyFailed = errors.New("message previously failed permanently")
)

// Handler processes a payload and returns an optional JSON result
type Handler func(ctx context.Context, payload json.RawMessage) (json.RawMessage, error)

// Outcome describes how Process handled a key
type Outcome struct {
	Duplicate bool
	Recovered bool
	Result    json.RawMessage
}

// Inbox guards handlers with a Postgres table keyed by idempotency key
type Inbox struct {
	pool   *pgxpool.Pool
	config Config
	logger *zap.Logger
	tracer trace.Tracer

	cancel context.CancelFunc
	done   chan struct{}
}

// NewInbox creates a new inbox
func NewInbox(pool *pgxpool.Pool, cfg Config, logger *zap.Logger) *Inbox {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Inbox{
		pool:   pool,
		config: cfg,
		logger: logger,
		tracer: otel.Tracer("inbox"),
	}
}

// Process runs fn unless key was already handled. Duplicates return an
// Outcome with Duplicate set and the stored result.
func (i *Inbox) Process(ctx context.Context, key, handlerName string, payload json.RawMessage, fn Handler) (*Outcome, error) {
	ctx, span := i.tracer.Start(ctx, "inbox_process",
		trace.WithAttributes(
			attribute.String("idempotency_key", key),
			attribute.String("handler", handlerName),
		))
	defer span.End()

	status, result, updatedAt, err := i.lookup(ctx, key)
	found := err == nil
	if err != nil && !errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("failed to check inbox: %w", err)
	}

	recovered := false
	if found {
		switch status {
		case StatusFinished:
			span.SetAttributes(attribute.Bool("duplicate", true))
			return &Outcome{Duplicate: true, Result: result}, nil
		case StatusFailed:
			return nil, fmt.Errorf("%w: %s", ErrPreviouslyFailed, key)
		case StatusStarted:
			if time.Since(updatedAt) <= i.config.RecoveryTimeout {
				return nil, ErrInProgress
			}
			if err := i.setStatus(ctx, key, StatusRecoverable, nil); err != nil {
				return nil, fmt.Errorf("failed to mark recoverable: %w", err)
			}
			recovered = true
		case StatusRecoverable:
			recovered = true
		}
	}

	if err := i.claim(ctx, key, handlerName, payload); err != nil {
		return nil, err
	}

	out, handlerErr := fn(ctx, payload)
	if handlerErr != nil {
		next := StatusRecoverable
		if isTerminal(handlerErr) {
			next = StatusFailed
		}
		errBody, _ := json.Marshal(map[string]string{"error": handlerErr.Error()})
		if err := i.setStatus(ctx, key, next, errBody); err != nil {
			i.logger.Error("failed to record handler error", zap.String("key", key), zap.Error(err))
		}
		span.RecordError(handlerErr)
		return nil, handlerErr
	}

	if err := i.setStatus(ctx, key, StatusFinished, out); err != nil {
		i.logger.Error("failed to mark finished", zap.String("key", key), zap.Error(err))
	}
	return &Outcome{Recovered: recovered, Result: out}, nil
}

// GenerateKey derives a key from an event's identity. The timestamp is
// truncated to the minute to absorb clock drift between senders.
func GenerateKey(eventType, resourceID, severity string, at time.Time) string {
	data := strings.Join([]string{
		strings.ToLower(eventType),
		resourceID,
		strings.ToLower(severity),
		at.UTC().Truncate(time.Minute).Format(time.RFC3339),
	}, "|")
	sum := sha256.Sum256([]byte(data))
	return hex.EncodeToString(sum[:])
}

func (i *Inbox) lookup(ctx context.Context, key string) (Status, json.RawMessage, time.Time, error) {
	var (
		status    Status
		result    json.RawMessage
		updatedAt time.Time
	)
	err := i.pool.QueryRow(ctx, `
		SELECT status, result, updated_at
		FROM inbox
		WHERE idempotency_key = $1
	`, key).Scan(&status, &result, &updatedAt)
	return status, result, updatedAt, err
}

func (i *Inbox) claim(ctx context.Context, key, handlerName string, payload json.RawMessage) error {
	var returned string
	err := i.pool.QueryRow(ctx, `
		INSERT INTO inbox (idempotency_key, handler_name, status, payload, expires_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (idempotency_key) DO UPDATE
		SET status = $3, updated_at = NOW()
		WHERE inbox.status = 'RECOVERABLE'
		RETURNING idempotency_key
	`, key, handlerName, StatusStarted, payload, time.Now().Add(i.config.TTL)).Scan(&returned)
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrDuplicate
	}
	if err != nil {
		return fmt.Errorf("failed to claim inbox key: %w", err)
	}
	return nil
}

func (i *Inbox) setStatus(ctx context.Context, key string, status Status, result json.RawMessage) error {
	_, err := i.pool.Exec(ctx, `
		UPDATE inbox
		SET status = $1, result = $2, updated_at = NOW()
		WHERE idempotency_key = $3
	`, status, result, key)
	return err
}

// StartCleanup purges expired keys every CleanupInterval until Stop
func (i *Inbox) StartCleanup(ctx context.Context) {
	ctx, i.cancel = context.WithCancel(ctx)
	i.done = make(chan struct{})

	go func() {
		defer close(i.done)
		ticker := time.NewTicker(i.config.CleanupInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				tag, err := i.pool.Exec(ctx, `DELETE FROM inbox WHERE expires_at < NOW()`)
				if err != nil {
					i.logger.Error("inbox cleanup failed", zap.Error(err))
					continue
				}
				if tag.RowsAffected() > 0 {
					i.logger.Info("inbox cleanup completed", zap.Int64("deleted", tag.RowsAffected()))
				}
			}
		}
	}()
}

// Stop stops the cleanup loop
func (i *Inbox) Stop() {
	if i.cancel == nil {
		return
	}
	i.cancel()
	<-i.done
}

// isTerminal reports errors that retrying cannot fix
func isTerminal(err error) bool {
	msg := strings.ToLower(err.Error())
	for _, phrase := range []string{"invalid", "malformed", "permanent", "not found"} {
		if strings.Contains(msg, phrase) {
			return true
		}
	}
	return false
}
