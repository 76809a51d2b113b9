package redpanda

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/twmb/franz-go/pkg/kgo"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
)

func TestTraceHeadersRoundTrip(t *testing.T) {
	prev := otel.GetTextMapPropagator()
	otel.SetTextMapPropagator(propagation.TraceContext{})
	t.Cleanup(func() { otel.SetTextMapPropagator(prev) })

	traceID, _ := trace.TraceIDFromHex("4bf92f3577b34da6a3ce929d0e0e4736")
	spanID, _ := trace.SpanIDFromHex("00f067aa0ba902b7")
	sc := trace.NewSpanContext(trace.SpanContextConfig{
		TraceID:    traceID,
		SpanID:     spanID,
		TraceFlags: trace.FlagsSampled,
	})
	ctx := trace.ContextWithSpanContext(context.Background(), sc)

	record := &kgo.Record{Topic: TopicAuditTrail}
	injectTraceHeaders(ctx, record)
	assert.Equal(t, "00-4bf92f3577b34da6a3ce929d0e0e4736-00f067aa0ba902b7-01",
		headerCarrier{record: record}.Get("traceparent"))

	got := trace.SpanContextFromContext(extractTraceContext(context.Background(), record))
	assert.Equal(t, traceID, got.TraceID())
	assert.True(t, got.IsRemote())
}

func TestHeaderCarrier_SetReplaces(t *testing.T) {
	record := &kgo.Record{}
	c := headerCarrier{record: record}
	c.Set("a", "1")
	c.Set("a", "2")
	assert.Len(t, record.Headers, 1)
	assert.Equal(t, "2", c.Get("a"))
	assert.Equal(t, []string{"a"}, c.Keys())
}

func TestDefaultTopicConfigs(t *testing.T) {
	names := map[string]bool{}
	for _, c := range DefaultTopicConfigs() {
		names[c.Name] = true
	}
	assert.True(t, names[TopicAuditTrail])
	assert.True(t, names[TopicPharmacovigilance])
	assert.True(t, names[TopicDeadLetter])
}
