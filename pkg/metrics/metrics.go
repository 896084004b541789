// Package metrics provides Prometheus metrics instrumentation.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// RequestDuration tracks HTTP request duration.
	RequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "api_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
		},
		[]string{"method", "path", "status"},
	)

	// RequestsTotal tracks total HTTP requests.
	RequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "api_requests_total",
			Help: "Total HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	// IntentRequestDuration tracks intent analysis latency per provider.
	IntentRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "intent_request_duration_seconds",
			Help:    "Intent analysis request duration in seconds",
			Buckets: []float64{.05, .1, .25, .5, 1, 2, 5, 10, 20},
		},
		[]string{"provider", "outcome"},
	)

	// IntentRequestsTotal tracks intent analysis calls per provider.
	IntentRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "intent_requests_total",
			Help: "Total intent analysis requests",
		},
		[]string{"provider", "outcome"},
	)

	// ChatTurnsTotal tracks processed chat turns by the dialogue node that
	// handled them.
	ChatTurnsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chat_turns_total",
			Help: "Total chat turns processed",
		},
		[]string{"node"},
	)

	// BookingsTotal tracks booking attempts by outcome.
	BookingsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bookings_total",
			Help: "Total booking attempts",
		},
		[]string{"outcome"},
	)

	// SessionsActive tracks conversation sessions held in the store.
	SessionsActive = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "chat_sessions_active",
			Help: "Number of conversation sessions in the store",
		},
	)

	// SlotsReturned tracks how many open slots availability lookups return.
	SlotsReturned = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "availability_slots_returned",
			Help:    "Open slots returned per availability lookup",
			Buckets: []float64{0, 1, 2, 5, 10, 20, 50},
		},
	)

	// NATSStreamMessages tracks messages in NATS stream.
	NATSStreamMessages = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "nats_stream_messages",
			Help: "Number of messages in NATS stream",
		},
		[]string{"stream"},
	)

	// NATSStreamBytes tracks bytes in NATS stream.
	NATSStreamBytes = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "nats_stream_bytes",
			Help: "Bytes in NATS stream",
		},
		[]string{"stream"},
	)

	// EventsPublishedTotal tracks booking events published to NATS.
	EventsPublishedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "booking_events_published_total",
			Help: "Total booking events published",
		},
		[]string{"subject", "status"},
	)
)

// RecordRequest records metrics for an HTTP request.
func RecordRequest(method, path, status string, duration float64) {
	RequestDuration.WithLabelValues(method, path, status).Observe(duration)
	RequestsTotal.WithLabelValues(method, path, status).Inc()
}

// RecordIntent records metrics for one intent analysis call.
func RecordIntent(provider, outcome string, duration float64) {
	IntentRequestDuration.WithLabelValues(provider, outcome).Observe(duration)
	IntentRequestsTotal.WithLabelValues(provider, outcome).Inc()
}

// RecordChatTurn records a processed chat turn.
func RecordChatTurn(node string) {
	ChatTurnsTotal.WithLabelValues(node).Inc()
}

// RecordBooking records a booking attempt outcome.
func RecordBooking(outcome string) {
	BookingsTotal.WithLabelValues(outcome).Inc()
}

// RecordEventPublish records a booking event publish attempt.
func RecordEventPublish(subject, status string) {
	EventsPublishedTotal.WithLabelValues(subject, status).Inc()
}
