// Package metrics defines the Prometheus instruments exported by the broker.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Connection lifecycle metrics
var (
	// ActiveConnections tracks currently registered connections.
	ActiveConnections = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "broker_active_connections",
			Help: "Currently registered connections",
		},
	)

	// ConnectedUsers tracks distinct users with at least one connection.
	ConnectedUsers = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "broker_connected_users",
			Help: "Distinct users with at least one registered connection",
		},
	)

	// ConnectionsEvicted counts heartbeat-driven removals by cause.
	ConnectionsEvicted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "broker_connections_evicted_total",
			Help: "Connections evicted by the heartbeat monitor, by cause (dead/stale)",
		},
		[]string{"cause"},
	)
)

// Delivery metrics
var (
	// DeliveriesTotal counts delivery attempts by kind and outcome.
	// Outcomes: delivered, queued, dropped.
	DeliveriesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "broker_deliveries_total",
			Help: "Message deliveries by kind and outcome (delivered/queued/dropped)",
		},
		[]string{"kind", "outcome"},
	)

	// QueuedMessages tracks messages currently buffered across all offline queues.
	QueuedMessages = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "broker_queued_messages",
			Help: "Messages currently buffered in offline queues",
		},
	)

	// QueueEvictions counts envelopes dropped from full offline queues.
	QueueEvictions = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "broker_queue_evictions_total",
			Help: "Envelopes evicted from full offline queues",
		},
	)

	// SendFailures counts per-connection write failures.
	SendFailures = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "broker_send_failures_total",
			Help: "Per-connection write failures during delivery",
		},
	)
)

// Heartbeat metrics
var (
	// PingFailures counts liveness probes that failed to send.
	PingFailures = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "broker_ping_failures_total",
			Help: "Liveness probes that failed to send",
		},
	)
)

// Dependency resilience metrics
var (
	// CircuitBreakerState reports the current breaker state per component
	// (0=closed, 1=half-open, 2=open).
	CircuitBreakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "broker_circuit_breaker_state",
			Help: "Circuit breaker state per component (0=closed, 1=half-open, 2=open)",
		},
		[]string{"component"},
	)

	// CircuitBreakerStateChanges counts breaker transitions per component.
	CircuitBreakerStateChanges = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "broker_circuit_breaker_state_changes_total",
			Help: "Circuit breaker state transitions, by component and new state",
		},
		[]string{"component", "state"},
	)
)

// Ingest metrics
var (
	// IngestEventsTotal counts application events received, by source and status.
	IngestEventsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "broker_ingest_events_total",
			Help: "Application events received, by source (http/pubsub) and status (ok/malformed)",
		},
		[]string{"source", "status"},
	)
)
