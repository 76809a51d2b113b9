// Package redpanda wraps franz-go for the audit trail and pharmacovigilance topics.
package redpanda

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/twmb/franz-go/pkg/kgo"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

// ProducerConfig holds configuration for the Redpanda producer
type ProducerConfig struct {
	Brokers     []string
	Linger      time.Duration
	Compression string
	// RequiredAcks: -1 all replicas, 1 leader, 0 none
	RequiredAcks int16
	MaxRetries   int
	RetryBackoff time.Duration
	// OnProduce is called after every acknowledged or failed record
	OnProduce func(topic string, err error)
}

// DefaultProducerConfig favours durability over batching
func DefaultProducerConfig() ProducerConfig {
	return ProducerConfig{
		Brokers:      []string{"localhost:9092"},
		Linger:       5 * time.Millisecond,
		Compression:  "snappy",
		RequiredAcks: -1,
		MaxRetries:   5,
		RetryBackoff: 200 * time.Millisecond,
	}
}

// Producer publishes records and waits for acknowledgement
type Producer struct {
	client *kgo.Client
	config ProducerConfig
	logger *zap.Logger
	tracer trace.Tracer

	mu    sync.Mutex
	stats ProducerStats
}

// ProducerStats holds producer counters
type ProducerStats struct {
	MessagesSent int64     `json:"messages_sent"`
	BytesSent    int64     `json:"bytes_sent"`
	ErrorCount   int64     `json:"error_count"`
	LastSentAt   time.Time `json:"last_sent_at"`
}

// NewProducer creates a producer
func NewProducer(cfg ProducerConfig, logger *zap.Logger) (*Producer, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	opts := []kgo.Opt{
		kgo.SeedBrokers(cfg.Brokers...),
		kgo.ProducerLinger(cfg.Linger),
		kgo.RecordRetries(cfg.MaxRetries),
		kgo.RetryBackoffFn(func(attempt int) time.Duration {
			return cfg.RetryBackoff * time.Duration(attempt+1)
		}),
	}

	switch cfg.RequiredAcks {
	case 0:
		opts = append(opts, kgo.RequiredAcks(kgo.NoAck()), kgo.DisableIdempotentWrite())
	case 1:
		opts = append(opts, kgo.RequiredAcks(kgo.LeaderAck()), kgo.DisableIdempotentWrite())
	default:
		opts = append(opts, kgo.RequiredAcks(kgo.AllISRAcks()))
	}

	switch cfg.Compression {
	case "lz4":
		opts = append(opts, kgo.ProducerBatchCompression(kgo.Lz4Compression()))
	case "snappy":
		opts = append(opts, kgo.ProducerBatchCompression(kgo.SnappyCompression()))
	case "gzip":
		opts = append(opts, kgo.ProducerBatchCompression(kgo.GzipCompression()))
	case "zstd":
		opts = append(opts, kgo.ProducerBatchCompression(kgo.ZstdCompression()))
	}

	client, err := kgo.NewClient(opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create kafka client: %w", err)
	}

	return &Producer{
		client: client,
		config: cfg,
		logger: logger,
		tracer: otel.Tracer("redpanda-producer"),
	}, nil
}

// Publish sends one record and blocks until it is acknowledged
func (p *Producer) Publish(ctx context.Context, topic, key string, value []byte) error {
	ctx, span := p.tracer.Start(ctx, "publish",
		trace.WithSpanKind(trace.SpanKindProducer),
		trace.WithAttributes(
			attribute.String("messaging.destination", topic),
			attribute.Int("messaging.message_size", len(value)),
		))
	defer span.End()

	record := &kgo.Record{Topic: topic, Key: []byte(key), Value: value}
	injectTraceHeaders(ctx, record)

	err := p.client.ProduceSync(ctx, record).FirstErr()
	p.record(topic, len(value), err)
	if err != nil {
		span.RecordError(err)
		p.logger.Error("failed to publish",
			zap.String("topic", topic),
			zap.String("key", key),
			zap.Error(err))
		return fmt.Errorf("publish to %s: %w", topic, err)
	}
	p.logger.Debug("record published",
		zap.String("topic", record.Topic),
		zap.Int32("partition", record.Partition),
		zap.Int64("offset", record.Offset))
	return nil
}

// Ping checks broker connectivity
func (p *Producer) Ping(ctx context.Context) error {
	return p.client.Ping(ctx)
}

// Close flushes buffered records and closes the client
func (p *Producer) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := p.client.Flush(ctx); err != nil {
		p.logger.Warn("error flushing on close", zap.Error(err))
	}
	p.client.Close()
	return nil
}

// Stats returns a snapshot of the producer counters
func (p *Producer) Stats() ProducerStats {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.stats
}

func (p *Producer) record(topic string, size int, err error) {
	p.mu.Lock()
	if err != nil {
		p.stats.ErrorCount++
	} else {
		p.stats.MessagesSent++
		p.stats.BytesSent += int64(size)
		p.stats.LastSentAt = time.Now()
	}
	p.mu.Unlock()

	if p.config.OnProduce != nil {
		p.config.OnProduce(topic, err)
	}
}
