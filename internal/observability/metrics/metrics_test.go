package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
)

func TestConversationMetricsObserve(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewConversationMetrics(reg)
	m.ObserveTurn("sms", "appointment_booking", 0.2)
	m.ObserveMutation("book", "success")
}

func TestConversationMetricsNilSafe(t *testing.T) {
	var m *ConversationMetrics
	m.ObserveTurn("sms", "general_inquiry", 0.1)
	m.ObserveMutation("cancel", "rejected")
}
