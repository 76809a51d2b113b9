// Package metrics exposes Prometheus metrics for the safety services.
// Every recording method is safe on a nil *Metrics.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/mamasafe/go-mamasafe/pkg/circuitbreaker"
)

const namespace = "mamasafe"

// Metrics holds all application metrics
type Metrics struct {
	SafetyChecks        *prometheus.CounterVec
	CheckDuration       *prometheus.HistogramVec
	Fallbacks           *prometheus.CounterVec
	CacheLookups        *prometheus.CounterVec
	SMSCommands         *prometheus.CounterVec
	SMSSent             *prometheus.CounterVec
	AuditEntries        *prometheus.CounterVec
	WebhookEvents       *prometheus.CounterVec
	KafkaProduced       *prometheus.CounterVec
	KafkaConsumed       *prometheus.CounterVec
	OutboxPending       prometheus.Gauge
	ConsumerLag         *prometheus.GaugeVec
	CircuitBreakerState *prometheus.GaugeVec

	gatherer prometheus.Gatherer
}

// New creates the metrics and registers them on reg.
// A nil reg uses a fresh registry, which keeps tests independent.
func New(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.NewRegistry()
	}
	m := &Metrics{
		SafetyChecks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "safety_checks_total",
			Help:      "Medication safety checks by final category and analysis type",
		}, []string{"category", "analysis"}),
		CheckDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "safety_check_duration_seconds",
			Help:      "Safety check duration",
			Buckets:   []float64{.01, .05, .1, .25, .5, 1, 2.5, 5, 10, 30},
		}, []string{"analysis"}),
		Fallbacks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "safety_fallbacks_total",
			Help:      "Pipeline stages that fell back to a deterministic result",
		}, []string{"reason"}),
		CacheLookups: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cache_lookups_total",
			Help:      "Cache lookups by category and result",
		}, []string{"category", "result"}),
		SMSCommands: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sms_commands_total",
			Help:      "Inbound SMS commands by outcome",
		}, []string{"outcome"}),
		SMSSent: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sms_sent_total",
			Help:      "Outbound SMS by status",
		}, []string{"status"}),
		AuditEntries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "audit_entries_total",
			Help:      "Audit entries recorded by action",
		}, []string{"action"}),
		WebhookEvents: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "webhook_events_total",
			Help:      "Pharmacovigilance webhook events by type",
		}, []string{"event"}),
		KafkaProduced: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "kafka_messages_produced_total",
			Help:      "Kafka records produced by topic and status",
		}, []string{"topic", "status"}),
		KafkaConsumed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "kafka_messages_consumed_total",
			Help:      "Kafka records consumed by topic and status",
		}, []string{"topic", "status"}),
		OutboxPending: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "outbox_pending_entries",
			Help:      "Pending outbox entries",
		}),
		ConsumerLag: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "kafka_consumer_lag",
			Help:      "Records behind the log end per consumer group and topic",
		}, []string{"group", "topic"}),
		CircuitBreakerState: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "circuit_breaker_state",
			Help:      "Circuit breaker state (0=closed, 1=open, 2=half-open)",
		}, []string{"name"}),
	}

	reg.MustRegister(
		m.SafetyChecks,
		m.CheckDuration,
		m.Fallbacks,
		m.CacheLookups,
		m.SMSCommands,
		m.SMSSent,
		m.AuditEntries,
		m.WebhookEvents,
		m.KafkaProduced,
		m.KafkaConsumed,
		m.OutboxPending,
		m.ConsumerLag,
		m.CircuitBreakerState,
	)

	if g, ok := reg.(prometheus.Gatherer); ok {
		m.gatherer = g
	} else {
		m.gatherer = prometheus.DefaultGatherer
	}
	return m
}

// ObserveCheck records a finished safety check
func (m *Metrics) ObserveCheck(category, analysis string, d time.Duration) {
	if m == nil {
		return
	}
	m.SafetyChecks.WithLabelValues(category, analysis).Inc()
	m.CheckDuration.WithLabelValues(analysis).Observe(d.Seconds())
}

// ObserveFallback records a pipeline fallback
func (m *Metrics) ObserveFallback(reason string) {
	if m == nil {
		return
	}
	m.Fallbacks.WithLabelValues(reason).Inc()
}

// CacheLookup records a cache hit or miss
func (m *Metrics) CacheLookup(category string, hit bool) {
	if m == nil {
		return
	}
	result := "miss"
	if hit {
		result = "hit"
	}
	m.CacheLookups.WithLabelValues(category, result).Inc()
}

// SMSCommand counts an inbound SMS command by outcome
func (m *Metrics) SMSCommand(outcome string) {
	if m == nil {
		return
	}
	m.SMSCommands.WithLabelValues(outcome).Inc()
}

// SMSDelivery counts an outbound SMS by status
func (m *Metrics) SMSDelivery(err error) {
	if m == nil {
		return
	}
	m.SMSSent.WithLabelValues(status(err)).Inc()
}

// AuditRecorded counts an audit entry by action
func (m *Metrics) AuditRecorded(action string) {
	if m == nil {
		return
	}
	m.AuditEntries.WithLabelValues(action).Inc()
}

// WebhookReceived counts a pharmacovigilance webhook event
func (m *Metrics) WebhookReceived(event string) {
	if m == nil {
		return
	}
	m.WebhookEvents.WithLabelValues(event).Inc()
}

// KafkaProduce matches redpanda.ProducerConfig.OnProduce
func (m *Metrics) KafkaProduce(topic string, err error) {
	if m == nil {
		return
	}
	m.KafkaProduced.WithLabelValues(topic, status(err)).Inc()
}

// KafkaConsume counts a consumed record by topic and status
func (m *Metrics) KafkaConsume(topic string, err error) {
	if m == nil {
		return
	}
	m.KafkaConsumed.WithLabelValues(topic, status(err)).Inc()
}

// SetOutboxPending sets the outbox backlog gauge
func (m *Metrics) SetOutboxPending(n int64) {
	if m == nil {
		return
	}
	m.OutboxPending.Set(float64(n))
}

// SetConsumerLag records the summed lag of group on each topic
func (m *Metrics) SetConsumerLag(group string, lag map[string]int64) {
	if m == nil {
		return
	}
	for topic, n := range lag {
		m.ConsumerLag.WithLabelValues(group, topic).Set(float64(n))
	}
}

// BreakerStateChanged matches circuitbreaker.Manager.OnStateChange
func (m *Metrics) BreakerStateChanged(name string, _, to circuitbreaker.State) {
	if m == nil {
		return
	}
	var v float64
	switch to {
	case circuitbreaker.StateOpen:
		v = 1
	case circuitbreaker.StateHalfOpen:
		v = 2
	}
	m.CircuitBreakerState.WithLabelValues(name).Set(v)
}

// Handler serves the registry these metrics were registered on
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return promhttp.Handler()
	}
	return promhttp.HandlerFor(m.gatherer, promhttp.HandlerOpts{})
}

func status(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}
