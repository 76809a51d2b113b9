// Package postgres holds the transactional outbox that carries audit events
// from the database to Redpanda.
package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

// DeadLetterTopic receives entries that exhausted their retries
const DeadLetterTopic = "dead.letter"

// advisory lock id shared by every relay instance
const relayLockID int64 = 0x6d616d61

// OutboxEntry is an event waiting to be published
type OutboxEntry struct {
	ID            int64
	AggregateID   string
	AggregateType string
	EventType     string
	Payload       json.RawMessage
	Topic         string
	Key           string
	CreatedAt     time.Time
	RetryCount    int
	LastError     *string
}

// OutboxConfig holds relay configuration
type OutboxConfig struct {
	BatchSize    int
	PollInterval time.Duration
	MaxRetries   int
}

// DefaultOutboxConfig suits the audit trail's low write rate
func DefaultOutboxConfig() OutboxConfig {
	return OutboxConfig{
		BatchSize:    50,
		PollInterval: time.Second,
		MaxRetries:   5,
	}
}

// Publisher publishes one message
type Publisher interface {
	Publish(ctx context.Context, topic, key string, value []byte) error
}

// WriteEntry inserts entry inside tx, alongside the domain write it describes
func WriteEntry(ctx context.Context, tx pgx.Tx, entry *OutboxEntry) error {
	err := tx.QueryRow(ctx, `
		INSERT INTO outbox (aggregate_id, aggregate_type, event_type, payload, kafka_topic, kafka_key)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at
	`,
		entry.AggregateID,
		entry.AggregateType,
		entry.EventType,
		entry.Payload,
		entry.Topic,
		entry.Key,
	).Scan(&entry.ID, &entry.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to write outbox entry: %w", err)
	}
	return nil
}

// Relay polls the outbox and publishes pending entries
type Relay struct {
	pool      *pgxpool.Pool
	config    OutboxConfig
	publisher Publisher
	logger    *zap.Logger
	tracer    trace.Tracer

	cancel context.CancelFunc
	done   chan struct{}
}

// NewRelay creates an outbox relay
func NewRelay(pool *pgxpool.Pool, publisher Publisher, cfg OutboxConfig, logger *zap.Logger) *Relay {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Relay{
		pool:      pool,
		config:    cfg,
		publisher: publisher,
		logger:    logger,
		tracer:    otel.Tracer("outbox"),
	}
}

// Start polls until ctx is cancelled or Stop is called
func (r *Relay) Start(ctx context.Context) {
	ctx, r.cancel = context.WithCancel(ctx)
	r.done = make(chan struct{})

	go func() {
		defer close(r.done)
		ticker := time.NewTicker(r.config.PollInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if _, err := r.RelayBatch(ctx); err != nil {
					r.logger.Error("outbox batch failed", zap.Error(err))
				}
			}
		}
	}()
	r.logger.Info("outbox relay started",
		zap.Int("batch_size", r.config.BatchSize),
		zap.Duration("poll_interval", r.config.PollInterval))
}

// Stop stops polling and waits for the current batch
func (r *Relay) Stop() {
	if r.cancel == nil {
		return
	}
	r.cancel()
	<-r.done
	r.logger.Info("outbox relay stopped")
}

// RelayBatch publishes one batch and returns how many entries were sent.
// Only one relay instance works at a time, guarded by an advisory lock.
func (r *Relay) RelayBatch(ctx context.Context) (int, error) {
	ctx, span := r.tracer.Start(ctx, "outbox_relay_batch")
	defer span.End()

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("begin: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	var locked bool
	if err := tx.QueryRow(ctx, "SELECT pg_try_advisory_xact_lock($1)", relayLockID).Scan(&locked); err != nil {
		return 0, fmt.Errorf("advisory lock: %w", err)
	}
	if !locked {
		return 0, nil
	}

	entries, err := fetchPending(ctx, tx, r.config.MaxRetries, r.config.BatchSize)
	if err != nil {
		span.RecordError(err)
		return 0, err
	}
	span.SetAttributes(attribute.Int("batch_size", len(entries)))

	sent := 0
	for _, e := range entries {
		if err := r.publisher.Publish(ctx, e.Topic, e.Key, e.Payload); err != nil {
			r.logger.Warn("outbox publish failed",
				zap.Int64("id", e.ID),
				zap.String("event_type", e.EventType),
				zap.Error(err))
			if _, err := tx.Exec(ctx, `
				UPDATE outbox
				SET retry_count = retry_count + 1, last_error = $1, updated_at = NOW()
				WHERE id = $2
			`, err.Error(), e.ID); err != nil {
				return sent, fmt.Errorf("record retry: %w", err)
			}
			continue
		}
		if _, err := tx.Exec(ctx, `
			UPDATE outbox SET processed_at = NOW(), updated_at = NOW() WHERE id = $1
		`, e.ID); err != nil {
			return sent, fmt.Errorf("mark processed: %w", err)
		}
		sent++
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("commit: %w", err)
	}
	return sent, nil
}

func fetchPending(ctx context.Context, tx pgx.Tx, maxRetries, limit int) ([]*OutboxEntry, error) {
	rows, err := tx.Query(ctx, `
		SELECT id, aggregate_id, aggregate_type, event_type, payload,
		       kafka_topic, kafka_key, created_at, retry_count, last_error
		FROM outbox
		WHERE processed_at IS NULL
		  AND retry_count < $1
		ORDER BY created_at ASC
		LIMIT $2
		FOR UPDATE SKIP LOCKED
	`, maxRetries, limit)
	if err != nil {
		return nil, fmt.Errorf("query pending: %w", err)
	}
	defer rows.Close()

	var entries []*OutboxEntry
	for rows.Next() {
		e := &OutboxEntry{}
		if err := rows.Scan(
			&e.ID, &e.AggregateID, &e.AggregateType, &e.EventType, &e.Payload,
			&e.Topic, &e.Key, &e.CreatedAt, &e.RetryCount, &e.LastError,
		); err != nil {
			return nil, fmt.Errorf("scan: %w", err)
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// MoveToDeadLetter publishes exhausted entries to DeadLetterTopic and marks them processed
func (r *Relay) MoveToDeadLetter(ctx context.Context) (int64, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("begin: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	rows, err := tx.Query(ctx, `
		SELECT id, aggregate_id, aggregate_type, event_type, payload,
		       kafka_topic, kafka_key, created_at, retry_count, last_error
		FROM outbox
		WHERE processed_at IS NULL
		  AND retry_count >= $1
		FOR UPDATE SKIP LOCKED
	`, r.config.MaxRetries)
	if err != nil {
		return 0, fmt.Errorf("query exhausted: %w", err)
	}
	var exhausted []*OutboxEntry
	for rows.Next() {
		e := &OutboxEntry{}
		if err := rows.Scan(
			&e.ID, &e.AggregateID, &e.AggregateType, &e.EventType, &e.Payload,
			&e.Topic, &e.Key, &e.CreatedAt, &e.RetryCount, &e.LastError,
		); err != nil {
			rows.Close()
			return 0, fmt.Errorf("scan: %w", err)
		}
		exhausted = append(exhausted, e)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return 0, err
	}

	var moved int64
	for _, e := range exhausted {
		body, _ := json.Marshal(map[string]any{
			"original_topic": e.Topic,
			"event_type":     e.EventType,
			"aggregate_id":   e.AggregateID,
			"payload":        e.Payload,
			"retry_count":    e.RetryCount,
			"last_error":     e.LastError,
			"created_at":     e.CreatedAt,
		})
		if err := r.publisher.Publish(ctx, DeadLetterTopic, e.Key, body); err != nil {
			r.logger.Error("failed to publish to dead letter", zap.Int64("id", e.ID), zap.Error(err))
			continue
		}
		if _, err := tx.Exec(ctx, "UPDATE outbox SET processed_at = NOW() WHERE id = $1", e.ID); err != nil {
			return moved, fmt.Errorf("mark dead-lettered: %w", err)
		}
		moved++
	}
	return moved, tx.Commit(ctx)
}

// PendingCount returns entries still waiting to be published
func (r *Relay) PendingCount(ctx context.Context) (int64, error) {
	var n int64
	err := r.pool.QueryRow(ctx,
		"SELECT COUNT(*) FROM outbox WHERE processed_at IS NULL AND retry_count < $1",
		r.config.MaxRetries).Scan(&n)
	return n, err
}

// CleanupProcessed deletes processed entries older than olderThan
func (r *Relay) CleanupProcessed(ctx context.Context, olderThan time.Duration) (int64, error) {
	tag, err := r.pool.Exec(ctx, `
		DELETE FROM outbox
		WHERE processed_at IS NOT NULL
		  AND processed_at < $1
	`, time.Now().Add(-olderThan))
	if err != nil {
		return 0, fmt.Errorf("cleanup failed: %w", err)
	}
	return tag.RowsAffected(), nil
}
