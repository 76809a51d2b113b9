package pharmacovigilance

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/mamasafe/go-mamasafe/internal/messaging"
	"github.com/mamasafe/go-mamasafe/pkg/idempotency"
	"github.com/mamasafe/go-mamasafe/pkg/workerpool"
)

const handlerName = "pharmacovigilance-alert"

// Deduper runs a handler at most once per key; idempotency.Inbox implements it
type Deduper interface {
	Process(ctx context.Context, key, handlerName string, payload json.RawMessage, fn idempotency.Handler) (*idempotency.Outcome, error)
}

// DeliveryObserver is told about every SMS attempt
type DeliveryObserver interface {
	SMSDelivery(err error)
}

// Alerter turns alertable events into SMS messages
type Alerter struct {
	sender   messaging.Sender
	dedupe   Deduper
	phone    string
	observer DeliveryObserver
	logger   *zap.Logger
}

// NewAlerter creates an alerter. dedupe and observer may be nil.
func NewAlerter(sender messaging.Sender, dedupe Deduper, phone string, observer DeliveryObserver, logger *zap.Logger) *Alerter {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Alerter{sender: sender, dedupe: dedupe, phone: phone, observer: observer, logger: logger}
}

// Handle processes one serialized Event. Malformed payloads are permanent failures.
func (a *Alerter) Handle(ctx context.Context, payload []byte) error {
	var ev Event
	if err := json.Unmarshal(payload, &ev); err != nil {
		return workerpool.Permanent(fmt.Errorf("malformed event: %w", err))
	}
	if err := ev.Validate(); err != nil {
		return workerpool.Permanent(err)
	}
	if !ev.Alertable() {
		a.logger.Debug("event below alert threshold",
			zap.String("event", ev.Event), zap.String("severity", ev.Severity))
		return nil
	}

	if a.dedupe == nil {
		return a.send(ctx, ev)
	}

	key := idempotency.GenerateKey(ev.Event, ev.ResourceID, ev.Severity, ev.ReceivedAt)
	out, err := a.dedupe.Process(ctx, key, handlerName, payload, func(ctx context.Context, _ json.RawMessage) (json.RawMessage, error) {
		if err := a.send(ctx, ev); err != nil {
			return nil, err
		}
		return json.RawMessage(`{"sent":true}`), nil
	})
	switch {
	case errors.Is(err, idempotency.ErrPreviouslyFailed):
		return workerpool.Permanent(err)
	case err != nil:
		return err
	}
	if out.Duplicate {
		a.logger.Info("duplicate alert suppressed", zap.String("key", key))
	}
	return nil
}

func (a *Alerter) send(ctx context.Context, ev Event) error {
	if a.phone == "" {
		return workerpool.Permanent(errors.New("alert phone not configured"))
	}
	err := a.sender.Send(ctx, a.phone, ev.AlertMessage())
	if a.observer != nil {
		a.observer.SMSDelivery(err)
	}
	if errors.Is(err, messaging.ErrNotConfigured) {
		return workerpool.Permanent(err)
	}
	return err
}
