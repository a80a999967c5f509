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

	// ReplyDuration tracks time from user message to assistant reply.
	ReplyDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "chat_reply_duration_seconds",
			Help:    "Time between a user message and its assistant reply",
			Buckets: []float64{.5, 1, 2, 2.5, 3, 5, 10, 20, 30, 60},
		},
		[]string{"responder", "status"},
	)

	// RepliesPending tracks workspaces waiting on an assistant reply.
	RepliesPending = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "chat_replies_pending",
			Help: "Number of assistant replies scheduled but not yet delivered",
		},
	)

	// SessionsTotal tracks total chat sessions created.
	SessionsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "chat_sessions_total",
			Help: "Total chat sessions created",
		},
	)

	// MessagesTotal tracks total messages appended.
	MessagesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chat_messages_total",
			Help: "Total messages appended to sessions",
		},
		[]string{"role"},
	)

	// DroppedMessagesTotal tracks appends that hit a missing session.
	DroppedMessagesTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "chat_messages_dropped_total",
			Help: "Messages dropped because their session no longer exists",
		},
	)

	// SSEConnectionsActive tracks active SSE connections.
	SSEConnectionsActive = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "sse_connections_active",
			Help: "Number of active SSE connections",
		},
	)

	// DirectoryMutationsTotal tracks admin directory changes.
	DirectoryMutationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "directory_mutations_total",
			Help: "Total admin directory mutations",
		},
		[]string{"kind", "op"},
	)

	// EventsPublishedTotal tracks events written to the event log.
	EventsPublishedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "events_published_total",
			Help: "Workspace events published to the event log",
		},
		[]string{"type", "status"},
	)
)

// RecordRequest records metrics for an HTTP request.
func RecordRequest(method, path, status string, duration float64) {
	RequestDuration.WithLabelValues(method, path, status).Observe(duration)
	RequestsTotal.WithLabelValues(method, path, status).Inc()
}

// RecordReply records metrics for a delivered assistant reply.
func RecordReply(responder, status string, duration float64) {
	ReplyDuration.WithLabelValues(responder, status).Observe(duration)
}

// RecordMessage counts an appended message.
func RecordMessage(role string) {
	MessagesTotal.WithLabelValues(role).Inc()
}

// RecordDirectoryMutation counts a directory change.
func RecordDirectoryMutation(kind, op string) {
	DirectoryMutationsTotal.WithLabelValues(kind, op).Inc()
}

// IncrementSSEConnections increments the active SSE connection count.
func IncrementSSEConnections() {
	SSEConnectionsActive.Inc()
}

// DecrementSSEConnections decrements the active SSE connection count.
func DecrementSSEConnections() {
	SSEConnectionsActive.Dec()
}
