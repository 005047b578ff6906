// Mirrorgate - Broker-to-Broker Mirror Replication Target
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/mirrorgate

// Package metrics provides Prometheus metrics for the mirror target.
//
// Metrics are exposed at the /metrics endpoint in Prometheus text format.
//
// Available metrics:
//   - mirror_events_total: inbound events by kind
//   - mirror_replayed_total: messages replayed into the post office
//   - mirror_duplicates_total: retransmissions dropped by the dedup cache
//   - mirror_admin_operations_total: admin events by operation and outcome
//   - mirror_ack_stage_total: ack reconciliation attempts by stage and outcome
//   - mirror_acks_dropped_total: acks dropped (missing queue / missing reference)
//   - mirror_settled_total: deliveries settled
//   - mirror_credit_outstanding: credit consumed but not yet replenished
//   - mirror_settle_latency_seconds: delivery arrival to settle
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// EventsTotal counts inbound events by kind.
	EventsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mirror_events_total",
			Help: "Total inbound mirror events by kind",
		},
		[]string{"kind"},
	)

	// ReplayedTotal counts messages replayed into the post office.
	ReplayedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "mirror_replayed_total",
			Help: "Total messages replayed into the local post office",
		},
	)

	// DuplicatesTotal counts retransmissions suppressed by the per-origin cache.
	DuplicatesTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "mirror_duplicates_total",
			Help: "Total duplicate messages dropped",
		},
	)

	// AdminOperationsTotal counts administrative events.
	AdminOperationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mirror_admin_operations_total",
			Help: "Total administrative operations by operation and outcome",
		},
		[]string{"operation", "outcome"}, // outcome: applied, idempotent, error
	)

	// AckStageTotal counts reconciliation attempts by stage and outcome.
	AckStageTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mirror_ack_stage_total",
			Help: "Ack reconciliation attempts by stage and outcome",
		},
		[]string{"stage", "outcome"}, // outcome: hit, miss
	)

	// AcksDroppedTotal counts acks dropped after all stages or on missing queues.
	AcksDroppedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "mirror_acks_dropped_total",
			Help: "Total acks dropped without being applied",
		},
	)

	// SettledTotal counts settled deliveries.
	SettledTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "mirror_settled_total",
			Help: "Total deliveries settled",
		},
	)

	// CreditOutstanding tracks credit consumed but not yet replenished.
	CreditOutstanding = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "mirror_credit_outstanding",
			Help: "Credit units consumed and not yet replenished",
		},
	)

	// SettleLatency observes delivery arrival to settle.
	SettleLatency = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "mirror_settle_latency_seconds",
			Help:    "Latency from delivery arrival to settlement",
			Buckets: []float64{.0001, .0005, .001, .005, .01, .05, .1, .5, 1, 5},
		},
	)
)
