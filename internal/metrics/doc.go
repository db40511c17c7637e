// Rangerscope - Wildlife Tracking and Anti-Poaching Field Operations
// Copyright 2026 Rangerscope Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/rangerscope/rangerscope

/*
Package metrics provides Prometheus metrics collection and export.

Metrics are registered at package load via promauto and exposed at the
/metrics endpoint in Prometheus text format:

	curl http://localhost:8420/metrics

# Available Metrics

Stream Metrics:
  - stream_connection_state: Connection state (gauge)
    Values: 0=disconnected, 1=connecting, 2=connected, 3=failed
  - stream_connects_total: Connection attempts (counter)
  - stream_disconnects_total: Disconnections (counter)
    Labels: reason (requested, read_error, dial_failed)
  - stream_messages_total: Messages received (counter)
    Labels: type (initial_data, position_update, alert, connection, error, unknown)
  - stream_message_errors_total: Undecodable messages (counter)
    Labels: error_type

State Store Metrics:
  - state_merges_total: Updates merged (counter)
  - state_records_skipped_total: Records skipped (counter)
    Labels: reason (malformed, no_identity)
  - animals_tracked: Animals in the store (gauge)
  - state_last_update_age_seconds: Staleness of the model (gauge)
  - state_severity_escalations_total: Alert-driven risk escalations (counter)

Path Tracker Metrics:
  - path_points_recorded_total: Points recorded (counter)
  - path_points_dropped_total: Points gated out (counter)
    Labels: reason (resting, invalid_position)

Alert Metrics:
  - alerts_ingested_total: Alerts accepted (counter)
  - alerts_replaced_total: Same-identity replacements (counter)
  - alerts_discarded_total: Alerts dropped before ingestion (counter)
    Labels: reason (not_actionable, malformed)
  - alerts_active: Active alerts (gauge)
  - alert_status_changes_total: Status transitions (counter)
    Labels: to, result (applied, rejected, unknown_alert)

Fallback Metrics:
  - fallback_requests_total: REST fallback calls (counter)
    Labels: endpoint, result (success, error, rejected)
  - fallback_request_duration_seconds: Call latency (histogram)
  - circuit_breaker_state: Breaker state (gauge)
    Values: 0=closed, 1=half-open, 2=open

Local API Metrics:
  - api_requests_total, api_request_duration_seconds
  - websocket_connections, websocket_messages_sent_total,
    websocket_messages_dropped_total

# Thread Safety

All metric recording functions are safe for concurrent use. The Prometheus
client library handles synchronization internally.

# Cardinality

Label values are drawn from small fixed sets. Animal IDs and alert IDs are
never used as labels.
*/
package metrics
