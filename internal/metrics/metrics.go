// AutoMedia - Social Media Aggregation and AI Content Platform
// Copyright 2026 Jonas Qin (jonasqin)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/jonasqin/automedia

// Package metrics provides Prometheus instrumentation for:
//   - realtime connections, rooms, and event fan-out
//   - collector task executions and durations
//   - external content source calls, quota, and circuit breaker state
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Realtime metrics
	ConnectedClients = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "realtime_connected_clients",
			Help: "Current number of live websocket connections",
		},
	)

	RoomMembers = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "realtime_room_members",
			Help: "Current number of connections joined to each room kind",
		},
		[]string{"kind"}, // "user", "topic", "collection", "trends", "feed"
	)

	EventsPublished = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "realtime_events_published_total",
			Help: "Total number of events published, by type and scope",
		},
		[]string{"type", "scope"}, // scope: "user", "room", "all"
	)

	EventsDropped = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "realtime_events_dropped_total",
			Help: "Total number of events dropped (no audience or slow client)",
		},
		[]string{"reason"}, // "no_audience", "slow_client", "queue_full"
	)

	AuthFailures = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "realtime_auth_failures_total",
			Help: "Total number of rejected channel handshakes",
		},
	)

	// Collector task metrics
	TaskRuns = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "collector_task_runs_total",
			Help: "Total number of task ticks, by task and outcome",
		},
		[]string{"task", "outcome"}, // outcome: "success", "error", "skipped"
	)

	TaskDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "collector_task_duration_seconds",
			Help:    "Duration of collector task runs in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"task"},
	)

	ItemsCollected = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "collector_items_total",
			Help: "Total number of collected items, by disposition",
		},
		[]string{"disposition"}, // "new", "duplicate"
	)

	ItemsPurged = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "collector_items_purged_total",
			Help: "Total number of stale items removed by cleanup",
		},
	)

	// External source metrics
	SourceRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "source_requests_total",
			Help: "Total number of external content source calls, by operation and status",
		},
		[]string{"operation", "status"}, // operation: "search", "trending", "quota"
	)

	QuotaRemaining = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "source_quota_remaining",
			Help: "Last known remaining call budget per external endpoint",
		},
		[]string{"endpoint"},
	)

	// Circuit breaker metrics
	CircuitBreakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "circuit_breaker_state",
			Help: "Circuit breaker state (0=closed, 1=half-open, 2=open)",
		},
		[]string{"name"},
	)

	CircuitBreakerTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "circuit_breaker_transitions_total",
			Help: "Total number of circuit breaker state transitions",
		},
		[]string{"name", "from", "to"},
	)
)

// RoomKind buckets a room name into its metric label. Room names follow the
// "<kind>:<id>" convention except the shared feed room.
func RoomKind(room string) string {
	switch {
	case room == "tweets-updates":
		return "feed"
	case len(room) > 5 && room[:5] == "user:":
		return "user"
	case len(room) > 6 && room[:6] == "topic:":
		return "topic"
	case len(room) > 11 && room[:11] == "collection:":
		return "collection"
	case len(room) > 7 && room[:7] == "trends:":
		return "trends"
	default:
		return "other"
	}
}
