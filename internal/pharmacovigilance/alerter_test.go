package pharmacovigilance

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mamasafe/go-mamasafe/internal/messaging"
	"github.com/mamasafe/go-mamasafe/pkg/idempotency"
	"github.com/mamasafe/go-mamasafe/pkg/workerpool"
)

type fakeSender struct {
	to   []string
	msgs []string
	err  error
}

func (s *fakeSender) Send(_ context.Context, to, msg string) error {
	if s.err != nil {
		return s.err
	}
	s.to = append(s.to, to)
	s.msgs = append(s.msgs, msg)
	return nil
}

// memoryDeduper mimics the inbox with a map of finished keys
type memoryDeduper struct {
	done map[string]bool
}

func (d *memoryDeduper) Process(ctx context.Context, key, _ string, payload json.RawMessage, fn idempotency.Handler) (*idempotency.Outcome, error) {
	if d.done[key] {
		return &idempotency.Outcome{Duplicate: true}, nil
	}
	out, err := fn(ctx, payload)
	if err != nil {
		return nil, err
	}
	d.done[key] = true
	return &idempotency.Outcome{Result: out}, nil
}

type deliveries struct{ ok, failed int }

func (d *deliveries) SMSDelivery(err error) {
	if err != nil {
		d.failed++
		return
	}
	d.ok++
}

func eventPayload(t *testing.T, severity string) []byte {
	t.Helper()
	b, err := json.Marshal(Event{
		Event:      EventDrugInteraction,
		Severity:   severity,
		ResourceID: "42",
		ReceivedAt: time.Date(2026, 3, 1, 8, 30, 0, 0, time.UTC),
	})
	require.NoError(t, err)
	return b
}

func TestAlerter_SendsOncePerEvent(t *testing.T) {
	sender := &fakeSender{}
	obs := &deliveries{}
	a := NewAlerter(sender, &memoryDeduper{done: map[string]bool{}}, "+2348011111111", obs, nil)

	require.NoError(t, a.Handle(context.Background(), eventPayload(t, "Major")))
	require.NoError(t, a.Handle(context.Background(), eventPayload(t, "Major")))

	require.Len(t, sender.msgs, 1)
	assert.Equal(t, "+2348011111111", sender.to[0])
	assert.Contains(t, sender.msgs[0], "DrugInteraction")
	assert.Equal(t, 1, obs.ok)
}

func TestAlerter_SkipsMinorEvents(t *testing.T) {
	sender := &fakeSender{}
	a := NewAlerter(sender, nil, "+2348011111111", nil, nil)
	require.NoError(t, a.Handle(context.Background(), eventPayload(t, "Minor")))
	assert.Empty(t, sender.msgs)
}

func TestAlerter_PermanentFailures(t *testing.T) {
	a := NewAlerter(&fakeSender{}, nil, "+2348011111111", nil, nil)
	err := a.Handle(context.Background(), []byte("{not json"))
	assert.ErrorIs(t, err, workerpool.ErrPermanent)

	a = NewAlerter(&fakeSender{}, nil, "", nil, nil)
	err = a.Handle(context.Background(), eventPayload(t, "Critical"))
	assert.ErrorIs(t, err, workerpool.ErrPermanent)

	a = NewAlerter(&fakeSender{err: messaging.ErrNotConfigured}, nil, "+2348011111111", nil, nil)
	err = a.Handle(context.Background(), eventPayload(t, "Critical"))
	assert.ErrorIs(t, err, workerpool.ErrPermanent)
}

func TestAlerter_TransientSendErrorIsRetryable(t *testing.T) {
	obs := &deliveries{}
	a := NewAlerter(&fakeSender{err: errors.New("timeout")}, nil, "+2348011111111", obs, nil)
	err := a.Handle(context.Background(), eventPayload(t, "Major"))
	require.Error(t, err)
	assert.NotErrorIs(t, err, workerpool.ErrPermanent)
	assert.Equal(t, 1, obs.failed)
}
