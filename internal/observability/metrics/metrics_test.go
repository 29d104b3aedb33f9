package metrics

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wolfman30/neumaticos-whatsapp/internal/assistant"
)

func TestMessagingMetricsObserve(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMessagingMetrics(reg)
	m.ObserveInbound("queued")
	m.ObserveInbound("queued")
	m.ObserveInbound("duplicate")
	m.ObserveOutbound("sent", true)
	m.ObserveWebhookLatency("queued", 0.5)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.inboundTotal.WithLabelValues("queued")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.outboundTotal.WithLabelValues("sent", "true")))
}

func TestMessagingMetricsNilSafe(t *testing.T) {
	var m *MessagingMetrics
	m.ObserveInbound("queued")
	m.ObserveOutbound("sent", false)
	m.ObserveWebhookLatency("queued", 0.1)
}

func TestTurnMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewTurnMetrics(reg)

	m.ObserveTurn("replied", "stock", 300*time.Millisecond)
	m.ObserveTurn("paused", "", time.Millisecond)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.turnsTotal.WithLabelValues("replied")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.intentsTotal.WithLabelValues("stock")))
	assert.Equal(t, 1, testutil.CollectAndCount(m.intentsTotal))

	families, err := reg.Gather()
	require.NoError(t, err)
	var hist *dto.Histogram
	for _, f := range families {
		if f.GetName() == "neumaticos_conversation_turn_duration_seconds" {
			for _, metric := range f.GetMetric() {
				if labelValue(metric, "outcome") == "replied" {
					hist = metric.GetHistogram()
				}
			}
		}
	}
	require.NotNil(t, hist)
	assert.Equal(t, uint64(1), hist.GetSampleCount())
	assert.InDelta(t, 0.3, hist.GetSampleSum(), 0.0001)
}

type failingClassifier struct{ err error }

func (f failingClassifier) Classify(context.Context, assistant.Request) (assistant.Intent, error) {
	if f.err != nil {
		return nil, f.err
	}
	return assistant.Reply{Text: "hola"}, nil
}

func TestInstrumentClassifierCountsErrors(t *testing.T) {
	m := NewTurnMetrics(prometheus.NewRegistry())

	c := InstrumentClassifier("bedrock", failingClassifier{err: errors.New("throttled")}, m)
	_, err := c.Classify(context.Background(), assistant.Request{})
	require.Error(t, err)

	ok := InstrumentClassifier("bedrock", failingClassifier{}, m)
	_, err = ok.Classify(context.Background(), assistant.Request{})
	require.NoError(t, err)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.classifierErrors.WithLabelValues("bedrock")))
}

func TestInstrumentClassifierWithoutMetrics(t *testing.T) {
	c := failingClassifier{}
	assert.Equal(t, assistant.Classifier(c), InstrumentClassifier("openai", c, nil))
}

func labelValue(m *dto.Metric, name string) string {
	for _, l := range m.GetLabel() {
		if l.GetName() == name {
			return l.GetValue()
		}
	}
	return ""
}
