package metrics

import "github.com/prometheus/client_golang/prometheus"

// ConversationMetrics exposes counters/histograms for the turn pipeline.
type ConversationMetrics struct {
	turnsTotal     *prometheus.CounterVec
	mutationsTotal *prometheus.CounterVec
	turnLatency    *prometheus.HistogramVec
}

func NewConversationMetrics(reg prometheus.Registerer) *ConversationMetrics {
	m := &ConversationMetrics{
		turnsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "riley",
			Subsystem: "conversation",
			Name:      "turns_total",
			Help:      "Total processed conversation turns",
		}, []string{"channel", "intent"}),
		mutationsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "riley",
			Subsystem: "appointments",
			Name:      "mutations_total",
			Help:      "Total appointment mutations attempted by the engine",
		}, []string{"action", "outcome"}),
		turnLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "riley",
			Subsystem: "conversation",
			Name:      "turn_latency_seconds",
			Help:      "Latency of one conversation turn end to end",
			Buckets:   prometheus.DefBuckets,
		}, []string{"channel"}),
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(m.turnsTotal, m.mutationsTotal, m.turnLatency)
	return m
}

func (m *ConversationMetrics) ObserveTurn(channel, intent string, seconds float64) {
	if m == nil {
		return
	}
	m.turnsTotal.WithLabelValues(channel, intent).Inc()
	m.turnLatency.WithLabelValues(channel).Observe(seconds)
}

func (m *ConversationMetrics) ObserveMutation(action, outcome string) {
	if m == nil {
		return
	}
	m.mutationsTotal.WithLabelValues(action, outcome).Inc()
}
