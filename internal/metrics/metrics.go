// Rangerscope - Wildlife Tracking and Anti-Poaching Field Operations
// Copyright 2026 Rangerscope Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/rangerscope/rangerscope

package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Stream Connection Metrics
	StreamState = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "stream_connection_state",
			Help: "Stream connection state (0=disconnected, 1=connecting, 2=connected, 3=failed)",
		},
	)

	StreamConnects = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "stream_connects_total",
			Help: "Total number of stream connection attempts",
		},
	)

	StreamDisconnects = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "stream_disconnects_total",
			Help: "Total number of stream disconnections",
		},
		[]string{"reason"}, // "requested", "read_error", "dial_failed"
	)

	StreamMessages = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "stream_messages_total",
			Help: "Total number of stream messages received",
		},
		[]string{"type"}, // "initial_data", "position_update", "alert", "connection", "error", "unknown"
	)

	StreamMessageErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "stream_message_errors_total",
			Help: "Total number of stream messages that failed to decode",
		},
		[]string{"error_type"},
	)

	StreamSubscriptions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "stream_subscriptions_total",
			Help: "Total number of per-animal subscribe and unsubscribe requests sent",
		},
		[]string{"action"}, // "subscribe", "unsubscribe"
	)

	// State Store Metrics
	StateMerges = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "state_merges_total",
			Help: "Total number of animal updates merged into the state store",
		},
	)

	StateRecordsSkipped = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "state_records_skipped_total",
			Help: "Total number of animal records skipped during ingestion",
		},
		[]string{"reason"}, // "malformed", "no_identity"
	)

	StateSnapshotsApplied = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "state_snapshots_applied_total",
			Help: "Total number of initial snapshots applied",
		},
	)

	AnimalsTracked = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "animals_tracked",
			Help: "Current number of animals in the state store",
		},
	)

	LastUpdateAge = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "state_last_update_age_seconds",
			Help: "Seconds since the last successfully applied update",
		},
	)

	SeverityEscalations = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "state_severity_escalations_total",
			Help: "Total number of animal risk escalations driven by critical or high alerts",
		},
	)

	// Path Tracker Metrics
	PathPointsRecorded = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "path_points_recorded_total",
			Help: "Total number of path points recorded",
		},
	)

	PathPointsDropped = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "path_points_dropped_total",
			Help: "Total number of path points gated out before recording",
		},
		[]string{"reason"}, // "resting", "invalid_position"
	)

	// Alert Metrics
	AlertsIngested = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "alerts_ingested_total",
			Help: "Total number of alerts accepted into the deduplicator",
		},
	)

	AlertsReplaced = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "alerts_replaced_total",
			Help: "Total number of alerts that replaced an existing alert with the same identity",
		},
	)

	AlertsDiscarded = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "alerts_discarded_total",
			Help: "Total number of alerts discarded before ingestion",
		},
		[]string{"reason"}, // "not_actionable", "malformed"
	)

	AlertsActive = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "alerts_active",
			Help: "Current number of active alerts",
		},
	)

	AlertStatusChanges = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "alert_status_changes_total",
			Help: "Total number of alert status transitions",
		},
		[]string{"to", "result"}, // result: "applied", "rejected", "unknown_alert"
	)

	// REST Fallback Metrics
	FallbackRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fallback_requests_total",
			Help: "Total number of REST fallback requests",
		},
		[]string{"endpoint", "result"}, // result: "success", "error", "rejected"
	)

	FallbackRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "fallback_request_duration_seconds",
			Help:    "Duration of REST fallback requests in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"endpoint"},
	)

	// Circuit Breaker Metrics
	CircuitBreakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "circuit_breaker_state",
			Help: "Circuit breaker state (0=closed, 1=half-open, 2=open)",
		},
		[]string{"name"},
	)

	CircuitBreakerTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "circuit_breaker_state_transitions_total",
			Help: "Total number of circuit breaker state transitions",
		},
		[]string{"name", "from_state", "to_state"},
	)

	// Local API Metrics
	APIRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "api_requests_total",
			Help: "Total number of local API requests",
		},
		[]string{"method", "endpoint", "status_code"},
	)

	APIRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "api_request_duration_seconds",
			Help:    "Local API request duration in seconds",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
		},
		[]string{"method", "endpoint"},
	)

	// Local WebSocket Re-broadcast Metrics
	WSConnections = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "websocket_connections",
			Help: "Current number of connected local WebSocket clients",
		},
	)

	WSMessagesSent = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "websocket_messages_sent_total",
			Help: "Total number of WebSocket messages sent to local clients",
		},
	)

	WSMessagesDropped = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "websocket_messages_dropped_total",
			Help: "Total number of WebSocket messages dropped due to slow clients",
		},
	)
)

// RecordStreamMessage counts one received stream message by type.
func RecordStreamMessage(messageType string) {
	StreamMessages.WithLabelValues(messageType).Inc()
}

// RecordFallbackRequest records the outcome and duration of one REST
// fallback call.
func RecordFallbackRequest(endpoint, result string, duration time.Duration) {
	FallbackRequests.WithLabelValues(endpoint, result).Inc()
	FallbackRequestDuration.WithLabelValues(endpoint).Observe(duration.Seconds())
}

// RecordAPIRequest records one local API request.
func RecordAPIRequest(method, endpoint, statusCode string, duration time.Duration) {
	APIRequestsTotal.WithLabelValues(method, endpoint, statusCode).Inc()
	APIRequestDuration.WithLabelValues(method, endpoint).Observe(duration.Seconds())
}

// SetStreamState publishes the stream connection state as a gauge.
func SetStreamState(state int) {
	StreamState.Set(float64(state))
}
