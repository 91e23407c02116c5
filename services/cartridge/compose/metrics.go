// Copyright (C) 2026 Lodestar AI (engineering@lodestar-ai.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package compose

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// ==== Prometheus Metrics ====

var (
	// compositionLatency tracks the wall-clock duration of compositions.
	//
	// Labels:
	//   - status: "ok", "conflict", or "primary_missing".
	compositionLatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "lodestar",
			Subsystem: "composition",
			Name:      "latency_seconds",
			Help:      "Duration of cartridge compositions in seconds.",
			Buckets:   []float64{0.0001, 0.00025, 0.0005, 0.001, 0.0025, 0.005, 0.01, 0.025, 0.05, 0.1},
		},
		[]string{"status"},
	)

	// compositionsTotal counts compositions by outcome.
	//
	// Labels:
	//   - status: "ok", "conflict", or "primary_missing".
	compositionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "lodestar",
			Subsystem: "composition",
			Name:      "total",
			Help:      "Total cartridge compositions by outcome.",
		},
		[]string{"status"},
	)

	// conflictsResolved counts merge audit records by reason.
	//
	// Labels:
	//   - reason: the audit reason attached to the resolution.
	conflictsResolved = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "lodestar",
			Subsystem: "composition",
			Name:      "conflicts_resolved_total",
			Help:      "Total merge precedence decisions recorded in audit trails.",
		},
		[]string{"reason"},
	)
)

// ==== Recording Helpers ====

// RecordComposition records one composition attempt and its duration.
func RecordComposition(status string, seconds float64) {
	compositionsTotal.WithLabelValues(status).Inc()
	compositionLatency.WithLabelValues(status).Observe(seconds)
}

// RecordConflictResolved counts one audit record by reason.
func RecordConflictResolved(reason string) {
	conflictsResolved.WithLabelValues(reason).Inc()
}
