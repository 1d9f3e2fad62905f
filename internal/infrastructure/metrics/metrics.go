// Package metrics provides Prometheus metrics for the conversation-api
// service.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// ActiveConversations tracks the number of tracked conversations.
	ActiveConversations = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "conversation_active_total",
			Help: "Number of currently tracked conversations",
		},
	)

	// ConversationsCreated tracks conversations created, labeled by how
	// they came about.
	ConversationsCreated = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "conversation_created_total",
			Help: "Total number of conversations created",
		},
		[]string{"origin", "media_type"},
	)

	// ConversationsDeleted tracks conversations torn down.
	ConversationsDeleted = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "conversation_deleted_total",
			Help: "Total number of conversations deleted",
		},
	)

	// ReconcileDuration tracks how long a full reconcile pass takes.
	ReconcileDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "conversation_reconcile_duration_seconds",
			Help:    "Duration of conversation reconcile passes",
			Buckets: prometheus.DefBuckets,
		},
	)

	// ReconcileOutcomes tracks per-conversation reconcile results.
	ReconcileOutcomes = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "conversation_reconcile_outcomes_total",
			Help: "Per-conversation reconcile outcomes",
		},
		[]string{"outcome"},
	)

	// EventStreamReconnects tracks event stream connection drops.
	EventStreamReconnects = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "conversation_event_stream_reconnects_total",
			Help: "Total number of event stream reconnects",
		},
	)

	// HTTPRequests tracks requests served by the API.
	HTTPRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "conversation_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "endpoint", "status"},
	)

	// HTTPDuration tracks request latency.
	HTTPDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "conversation_http_request_duration_seconds",
			Help:    "Duration of HTTP requests",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "endpoint"},
	)

	// MuteTransitions tracks hold-driven room mute flips.
	MuteTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "conversation_mute_transitions_total",
			Help: "Total number of hold-driven room mute state changes",
		},
		[]string{"muted"},
	)
)

// RecordConversationCreated increments creation metrics.
func RecordConversationCreated(origin, mediaType string) {
	ConversationsCreated.WithLabelValues(origin, mediaType).Inc()
	ActiveConversations.Inc()
}

// RecordConversationDeleted increments deletion metrics.
func RecordConversationDeleted() {
	ConversationsDeleted.Inc()
	ActiveConversations.Dec()
}

// RecordHTTPRequest records one served request.
func RecordHTTPRequest(method, endpoint, status string, duration float64) {
	HTTPRequests.WithLabelValues(method, endpoint, status).Inc()
	HTTPDuration.WithLabelValues(method, endpoint).Observe(duration)
}
