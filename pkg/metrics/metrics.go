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

	// ConversationsResolved tracks resolver outcomes, split by whether the
	// call created a new conversation or returned an existing one.
	ConversationsResolved = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "conversations_resolved_total",
			Help: "Conversation resolutions by outcome",
		},
		[]string{"outcome"},
	)

	// MessagesAppended tracks messages persisted to the store.
	MessagesAppended = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "messages_appended_total",
			Help: "Total messages appended",
		},
	)

	// WSConnectionsActive tracks live websocket connections.
	WSConnectionsActive = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "ws_connections_active",
			Help: "Number of active websocket connections",
		},
	)

	// RoomsActive tracks rooms with at least one subscriber.
	RoomsActive = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "rooms_active",
			Help: "Number of rooms with at least one subscriber",
		},
	)

	// RealtimeDeliveries tracks per-subscriber fan-out results.
	RealtimeDeliveries = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "realtime_deliveries_total",
			Help: "Per-subscriber realtime deliveries by result",
		},
		[]string{"result"},
	)
)

// RecordRequest records metrics for an HTTP request.
func RecordRequest(method, path, status string, duration float64) {
	RequestDuration.WithLabelValues(method, path, status).Observe(duration)
	RequestsTotal.WithLabelValues(method, path, status).Inc()
}

// RecordResolution records a conversation resolver outcome.
func RecordResolution(created bool) {
	outcome := "existing"
	if created {
		outcome = "created"
	}
	ConversationsResolved.WithLabelValues(outcome).Inc()
}

// RecordDelivery records one per-subscriber delivery attempt.
func RecordDelivery(delivered bool) {
	result := "dropped"
	if delivered {
		result = "delivered"
	}
	RealtimeDeliveries.WithLabelValues(result).Inc()
}
