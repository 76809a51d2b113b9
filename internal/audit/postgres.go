package audit

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/mamasafe/go-mamasafe/internal/infrastructure/postgres"
)

const (
	// Topic carries audit events published by the outbox relay
	Topic     = "audit.trail"
	eventType = "audit.recorded"
)

// PostgresStore writes entries to audit_log and queues an outbox event
// in the same transaction
type PostgresStore struct {
	pool   *pgxpool.Pool
	logger *zap.Logger
}

// NewPostgresStore creates a store over the audit_log table
func NewPostgresStore(pool *pgxpool.Pool, logger *zap.Logger) *PostgresStore {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PostgresStore{pool: pool, logger: logger}
}

// Append inserts e and queues it on the outbox in the same transaction
func (s *PostgresStore) Append(ctx context.Context, e *Entry) error {
	payload, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("marshal audit entry: %w", err)
	}

	return pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `
			INSERT INTO audit_log (id, timestamp, provider_id, patient_id, drug_name, risk_level, override_reason, action)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		`, e.ID, e.Timestamp, e.ProviderID, e.PatientID, e.DrugName, e.RiskLevel, e.OverrideReason, string(e.Action)); err != nil {
			return fmt.Errorf("insert audit entry: %w", err)
		}
		return postgres.WriteEntry(ctx, tx, &postgres.OutboxEntry{
			AggregateID:   e.ID.String(),
			AggregateType: "audit",
			EventType:     eventType,
			Payload:       payload,
			Topic:         Topic,
			Key:           e.PatientID,
		})
	})
}

// List returns entries matching f, newest first
func (s *PostgresStore) List(ctx context.Context, f Filter) ([]Entry, error) {
	query := `
		SELECT id, timestamp, provider_id, patient_id, drug_name, risk_level, override_reason, action
		FROM audit_log`
	args := []any{}
	if f.PatientID != "" {
		query += " WHERE patient_id = $1"
		args = append(args, f.PatientID)
	}
	query += fmt.Sprintf(" ORDER BY timestamp DESC LIMIT %d", f.limit())

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query audit log: %w", err)
	}
	defer rows.Close()

	out := make([]Entry, 0)
	for rows.Next() {
		var e Entry
		var action string
		if err := rows.Scan(&e.ID, &e.Timestamp, &e.ProviderID, &e.PatientID,
			&e.DrugName, &e.RiskLevel, &e.OverrideReason, &action); err != nil {
			return nil, fmt.Errorf("scan audit entry: %w", err)
		}
		e.Action = Action(action)
		out = append(out, e)
	}
	return out, rows.Err()
}
