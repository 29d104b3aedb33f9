package metrics

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/wolfman30/neumaticos-whatsapp/internal/assistant"
)

const namespace = "neumaticos"

// MessagingMetrics exposes counters/histograms for the WhatsApp webhook and outbound sends.
type MessagingMetrics struct {
	inboundTotal   *prometheus.CounterVec
	outboundTotal  *prometheus.CounterVec
	webhookLatency *prometheus.HistogramVec
}

func NewMessagingMetrics(reg prometheus.Registerer) *MessagingMetrics {
	m := &MessagingMetrics{
		inboundTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "messaging",
			Name:      "inbound_webhook_total",
			Help:      "Total inbound Twilio WhatsApp webhooks",
		}, []string{"status"}),
		outboundTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "messaging",
			Name:      "outbound_total",
			Help:      "Total outbound WhatsApp sends",
		}, []string{"status", "human"}),
		webhookLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "messaging",
			Name:      "webhook_latency_seconds",
			Help:      "Latency of Twilio webhook handling",
			Buckets:   prometheus.DefBuckets,
		}, []string{"status"}),
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(m.inboundTotal, m.outboundTotal, m.webhookLatency)
	return m
}

// ObserveInbound counts one webhook by outcome (queued, duplicate, invalid_signature, ...).
func (m *MessagingMetrics) ObserveInbound(status string) {
	if m == nil {
		return
	}
	m.inboundTotal.WithLabelValues(status).Inc()
}

func (m *MessagingMetrics) ObserveOutbound(status string, human bool) {
	if m == nil {
		return
	}
	label := "false"
	if human {
		label = "true"
	}
	m.outboundTotal.WithLabelValues(status, label).Inc()
}

func (m *MessagingMetrics) ObserveWebhookLatency(status string, seconds float64) {
	if m == nil {
		return
	}
	m.webhookLatency.WithLabelValues(status).Observe(seconds)
}

// TurnMetrics tracks conversation turns.
type TurnMetrics struct {
	turnsTotal       *prometheus.CounterVec
	intentsTotal     *prometheus.CounterVec
	turnLatency      *prometheus.HistogramVec
	classifierErrors *prometheus.CounterVec
}

func NewTurnMetrics(reg prometheus.Registerer) *TurnMetrics {
	m := &TurnMetrics{
		turnsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "conversation",
			Name:      "turns_total",
			Help:      "Conversation turns by outcome",
		}, []string{"outcome"}),
		intentsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "conversation",
			Name:      "intents_total",
			Help:      "Replies sent by intent",
		}, []string{"intent"}),
		turnLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "conversation",
			Name:      "turn_duration_seconds",
			Help:      "End-to-end duration of a conversation turn",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10, 30},
		}, []string{"outcome"}),
		classifierErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "assistant",
			Name:      "classifier_errors_total",
			Help:      "Failed classifier calls by provider",
		}, []string{"provider"}),
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(m.turnsTotal, m.intentsTotal, m.turnLatency, m.classifierErrors)
	return m
}

// ObserveTurn records one finished turn. intent is empty when no reply was sent.
func (m *TurnMetrics) ObserveTurn(outcome, intent string, d time.Duration) {
	if m == nil {
		return
	}
	m.turnsTotal.WithLabelValues(outcome).Inc()
	m.turnLatency.WithLabelValues(outcome).Observe(d.Seconds())
	if intent != "" {
		m.intentsTotal.WithLabelValues(intent).Inc()
	}
}

func (m *TurnMetrics) ObserveClassifierError(provider string) {
	if m == nil {
		return
	}
	m.classifierErrors.WithLabelValues(provider).Inc()
}

// InstrumentClassifier counts the failures of c under the provider label.
func InstrumentClassifier(provider string, c assistant.Classifier, m *TurnMetrics) assistant.Classifier {
	if c == nil || m == nil {
		return c
	}
	return &instrumentedClassifier{provider: provider, next: c, metrics: m}
}

type instrumentedClassifier struct {
	provider string
	next     assistant.Classifier
	metrics  *TurnMetrics
}

func (c *instrumentedClassifier) Classify(ctx context.Context, req assistant.Request) (assistant.Intent, error) {
	intent, err := c.next.Classify(ctx, req)
	if err != nil {
		c.metrics.ObserveClassifierError(c.provider)
	}
	return intent, err
}
