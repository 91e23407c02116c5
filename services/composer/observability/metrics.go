// Copyright (C) 2026 Lodestar AI (engineering@lodestar-ai.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package observability provides HTTP-level metrics for the composer service.
//
// # Description
//
// This package implements Prometheus metrics for the composer's HTTP surface.
// Metrics include:
//   - Request counters (by endpoint, status)
//   - Latency histograms (request duration)
//   - In-flight request gauges
//   - Error counters (by endpoint, error code)
//
// Engine-level metrics (routing confidence, composition conflicts) live with
// the engine packages and in telemetry; this package only covers the HTTP
// layer, so the two sets never overlap.
//
// # Integration
//
// Metrics are exposed via the /metrics endpoint. Use with Prometheus +
// Grafana for dashboards and alerting.
//
// # Thread Safety
//
// All metric operations are thread-safe via Prometheus's internal locking.
package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// =============================================================================
// Metric Definitions
// =============================================================================

// Namespace for all metrics
const metricsNamespace = "lodestar"

// Subsystem for HTTP metrics
const httpSubsystem = "http"

// HTTPMetrics holds all Prometheus metrics for the composer HTTP surface.
//
// # Description
//
// Provides counters, histograms, and gauges for monitoring request volume,
// latency, and failures. Initialize once at startup via InitMetrics().
//
// # Fields
//
//   - RequestsTotal: Counter of requests by endpoint and status
//   - RequestDurationSeconds: Histogram of request duration
//   - RequestsInFlight: Gauge of requests currently being served
//   - ErrorsTotal: Counter of errors by endpoint and error code
//
// # Thread Safety
//
// All operations are thread-safe.
type HTTPMetrics struct {
	// RequestsTotal counts requests by endpoint and status.
	// Labels: endpoint (route, compose, catalog, profiles), status (success, error)
	RequestsTotal *prometheus.CounterVec

	// RequestDurationSeconds measures request duration.
	// Labels: endpoint, status (success, error)
	RequestDurationSeconds *prometheus.HistogramVec

	// RequestsInFlight tracks requests currently being served.
	// Labels: endpoint
	RequestsInFlight *prometheus.GaugeVec

	// ErrorsTotal counts errors by endpoint and code.
	// Labels: endpoint, error_code (validation, not_found, conflict, storage, internal)
	ErrorsTotal *prometheus.CounterVec
}

// DefaultMetrics is the singleton instance of HTTPMetrics.
// Initialized by InitMetrics().
var DefaultMetrics *HTTPMetrics

// InitMetrics initializes the default metrics instance.
//
// # Description
//
// Creates and registers all Prometheus metrics. Should be called once
// at application startup.
//
// # Outputs
//
//   - *HTTPMetrics: The initialized metrics instance.
//
// # Limitations
//
//   - Panics if called twice (duplicate registration).
//
// # Assumptions
//
//   - Prometheus default registry is available.
func InitMetrics() *HTTPMetrics {
	DefaultMetrics = &HTTPMetrics{
		RequestsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Subsystem: httpSubsystem,
				Name:      "requests_total",
				Help:      "Total number of requests by endpoint and status",
			},
			[]string{"endpoint", "status"},
		),

		RequestDurationSeconds: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: metricsNamespace,
				Subsystem: httpSubsystem,
				Name:      "request_duration_seconds",
				Help:      "Request duration in seconds by endpoint and status",
				Buckets:   []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0, 2.5},
			},
			[]string{"endpoint", "status"},
		),

		RequestsInFlight: promauto.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: metricsNamespace,
				Subsystem: httpSubsystem,
				Name:      "requests_in_flight",
				Help:      "Number of requests currently being served",
			},
			[]string{"endpoint"},
		),

		ErrorsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Subsystem: httpSubsystem,
				Name:      "errors_total",
				Help:      "Total errors by endpoint and error code",
			},
			[]string{"endpoint", "error_code"},
		),
	}

	return DefaultMetrics
}

// =============================================================================
// Error Codes
// =============================================================================

// ErrorCode represents a categorized error type for metrics.
type ErrorCode string

const (
	// ErrorCodeValidation indicates request validation failure.
	ErrorCodeValidation ErrorCode = "validation"

	// ErrorCodeNotFound indicates a missing cartridge or profile.
	ErrorCodeNotFound ErrorCode = "not_found"

	// ErrorCodeConflict indicates a declared cartridge conflict.
	ErrorCodeConflict ErrorCode = "conflict"

	// ErrorCodeStorage indicates a profile store failure.
	ErrorCodeStorage ErrorCode = "storage"

	// ErrorCodeCompose indicates a composition failure.
	ErrorCodeCompose ErrorCode = "compose_error"

	// ErrorCodeInternal indicates internal server error.
	ErrorCodeInternal ErrorCode = "internal"
)

// =============================================================================
// Endpoint Names
// =============================================================================

// Endpoint represents a composer endpoint for metrics labeling.
type Endpoint string

const (
	// EndpointRoute is the routing endpoint.
	EndpointRoute Endpoint = "route"

	// EndpointCompose is the route-and-compose endpoint.
	EndpointCompose Endpoint = "compose"

	// EndpointCatalog covers the cartridge catalog endpoints.
	EndpointCatalog Endpoint = "catalog"

	// EndpointProfiles covers the user profile endpoints.
	EndpointProfiles Endpoint = "profiles"

	// EndpointHealth is the health check endpoint.
	EndpointHealth Endpoint = "health"
)

// =============================================================================
// Helper Methods
// =============================================================================

// RecordRequest records a completed request.
//
// # Inputs
//
//   - endpoint: The endpoint that handled the request.
//   - success: Whether the request completed successfully.
func (m *HTTPMetrics) RecordRequest(endpoint Endpoint, success bool) {
	m.RequestsTotal.WithLabelValues(string(endpoint), statusLabel(success)).Inc()
}

// RecordDuration records the request duration.
//
// # Inputs
//
//   - endpoint: The endpoint that handled the request.
//   - seconds: Request duration in seconds.
//   - success: Whether the request completed successfully.
func (m *HTTPMetrics) RecordDuration(endpoint Endpoint, seconds float64, success bool) {
	m.RequestDurationSeconds.WithLabelValues(string(endpoint), statusLabel(success)).Observe(seconds)
}

// RecordError records a request error.
//
// # Inputs
//
//   - endpoint: The endpoint where the error occurred.
//   - code: The error type code.
func (m *HTTPMetrics) RecordError(endpoint Endpoint, code ErrorCode) {
	m.ErrorsTotal.WithLabelValues(string(endpoint), string(code)).Inc()
}

// RequestStarted increments the in-flight gauge.
func (m *HTTPMetrics) RequestStarted(endpoint Endpoint) {
	m.RequestsInFlight.WithLabelValues(string(endpoint)).Inc()
}

// RequestEnded decrements the in-flight gauge.
func (m *HTTPMetrics) RequestEnded(endpoint Endpoint) {
	m.RequestsInFlight.WithLabelValues(string(endpoint)).Dec()
}

func statusLabel(success bool) string {
	if success {
		return "success"
	}
	return "error"
}
