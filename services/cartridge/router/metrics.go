// Copyright (C) 2026 Lodestar AI (engineering@lodestar-ai.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package router

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// ==== Prometheus Metrics ====

var (
	// routingLatency tracks the wall-clock duration of routing passes.
	//
	// Labels:
	//   - status: "primary" when a cartridge was selected, "fallback"
	//     when the request degraded to the fallback cartridge.
	routingLatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "lodestar",
			Subsystem: "routing",
			Name:      "latency_seconds",
			Help:      "Duration of routing passes in seconds.",
			Buckets:   []float64{0.0001, 0.00025, 0.0005, 0.001, 0.0025, 0.005, 0.01, 0.025, 0.05, 0.1},
		},
		[]string{"status"},
	)

	// routingConfidence tracks the confidence of the selected primary.
	//
	// Labels:
	//   - cartridge: the selected primary cartridge id.
	routingConfidence = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "lodestar",
			Subsystem: "routing",
			Name:      "confidence",
			Help:      "Confidence of the selected primary cartridge.",
			Buckets:   []float64{0.1, 0.2, 0.3, 0.4, 0.5, 0.6, 0.7, 0.8, 0.9, 1.0},
		},
		[]string{"cartridge"},
	)

	// routingSelections counts routing decisions by outcome.
	//
	// Labels:
	//   - cartridge: the selected primary cartridge id.
	//   - fallback: "true" when nothing matched and the fallback was
	//     used, "false" otherwise.
	routingSelections = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "lodestar",
			Subsystem: "routing",
			Name:      "selections_total",
			Help:      "Total routing decisions by primary cartridge.",
		},
		[]string{"cartridge", "fallback"},
	)

	// safetyInjections counts mandatory safety overlays attached to
	// routing results.
	//
	// Labels:
	//   - cartridge: the injected safety cartridge id.
	safetyInjections = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "lodestar",
			Subsystem: "routing",
			Name:      "safety_injections_total",
			Help:      "Total mandatory safety overlay injections.",
		},
		[]string{"cartridge"},
	)
)

// ==== Recording Helpers ====

// RecordRoutingLatency records the duration of one routing pass.
func RecordRoutingLatency(status string, seconds float64) {
	routingLatency.WithLabelValues(status).Observe(seconds)
}

// RecordRoutingConfidence records the confidence of a selected primary.
func RecordRoutingConfidence(cartridge string, confidence float64) {
	routingConfidence.WithLabelValues(cartridge).Observe(confidence)
}

// RecordRoutingSelection counts one routing decision.
func RecordRoutingSelection(cartridge string, fallback bool) {
	label := "false"
	if fallback {
		label = "true"
	}
	routingSelections.WithLabelValues(cartridge, label).Inc()
}

// RecordSafetyInjection counts one mandatory safety overlay injection.
func RecordSafetyInjection(cartridge string) {
	safetyInjections.WithLabelValues(cartridge).Inc()
}
