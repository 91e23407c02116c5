// Copyright (C) 2026 Lodestar AI (engineering@lodestar-ai.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package telemetry

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel/metric"
)

// Metrics contains pre-defined instruments for the composer service.
//
// Description:
//
//	Provides counters and histograms for routing decisions, cartridge
//	composition, and profile storage. All instruments use the
//	"composer_" prefix for consistent naming. HTTP-level metrics live
//	in the observability package; these cover the engine.
//
// Thread Safety: Safe for concurrent use after creation.
type Metrics struct {
	// --- Routing Metrics ---

	// RoutingRequestsTotal counts routing decisions by domain and status.
	RoutingRequestsTotal metric.Int64Counter

	// RoutingDuration records routing decision duration in seconds.
	RoutingDuration metric.Float64Histogram

	// RoutingConfidence records the confidence of each routing decision.
	RoutingConfidence metric.Float64Histogram

	// RoutingFallbacksTotal counts decisions that fell back to the
	// general cartridge.
	RoutingFallbacksTotal metric.Int64Counter

	// --- Compose Metrics ---

	// ComposeTotal counts composition operations by status.
	ComposeTotal metric.Int64Counter

	// ComposeDuration records composition duration in seconds.
	ComposeDuration metric.Float64Histogram

	// ComposeConflictsTotal counts conflicts resolved during composition.
	ComposeConflictsTotal metric.Int64Counter

	// ComposeCartridges records how many cartridges each composition merged.
	ComposeCartridges metric.Int64Histogram

	// --- Profile Metrics ---

	// ProfileReadsTotal counts profile lookups by status.
	ProfileReadsTotal metric.Int64Counter

	// ProfileWritesTotal counts profile stores by status.
	ProfileWritesTotal metric.Int64Counter

	// ProfileReadDuration records profile lookup duration in seconds.
	ProfileReadDuration metric.Float64Histogram

	// --- Catalog Metrics ---

	// CatalogCartridges reports how many cartridges the registry
	// currently holds. Registered separately via RegisterCatalogSize.
	CatalogCartridges metric.Int64ObservableGauge

	// --- Error Metrics ---

	// ErrorsTotal counts errors by type and component.
	ErrorsTotal metric.Int64Counter
}

// NewMetrics creates a Metrics instance with all instruments registered.
//
// Description:
//
//	Registers all pre-defined instruments with the provided meter.
//	Returns an error if any registration fails.
//
// Example:
//
//	meter := otel.Meter("composer")
//	metrics, err := telemetry.NewMetrics(meter)
//	if err != nil {
//	    return fmt.Errorf("create metrics: %w", err)
//	}
//	metrics.RoutingRequestsTotal.Add(ctx, 1, ...)
//
// Thread Safety: Safe for concurrent use after creation.
func NewMetrics(meter metric.Meter) (*Metrics, error) {
	m := &Metrics{}
	var err error

	// --- Routing Metrics ---
	m.RoutingRequestsTotal, err = meter.Int64Counter(
		"composer_routing_requests_total",
		metric.WithDescription("Total routing decisions"),
		metric.WithUnit("{request}"),
	)
	if err != nil {
		return nil, fmt.Errorf("create routing_requests_total: %w", err)
	}

	m.RoutingDuration, err = meter.Float64Histogram(
		"composer_routing_duration_seconds",
		metric.WithDescription("Routing decision duration in seconds"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(0.0005, 0.001, 0.0025, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5),
	)
	if err != nil {
		return nil, fmt.Errorf("create routing_duration: %w", err)
	}

	m.RoutingConfidence, err = meter.Float64Histogram(
		"composer_routing_confidence",
		metric.WithDescription("Confidence of routing decisions"),
		metric.WithUnit("1"),
		metric.WithExplicitBucketBoundaries(0.05, 0.1, 0.2, 0.3, 0.4, 0.5, 0.6, 0.7, 0.8, 0.9),
	)
	if err != nil {
		return nil, fmt.Errorf("create routing_confidence: %w", err)
	}

	m.RoutingFallbacksTotal, err = meter.Int64Counter(
		"composer_routing_fallbacks_total",
		metric.WithDescription("Routing decisions that fell back to the general cartridge"),
		metric.WithUnit("{request}"),
	)
	if err != nil {
		return nil, fmt.Errorf("create routing_fallbacks_total: %w", err)
	}

	// --- Compose Metrics ---
	m.ComposeTotal, err = meter.Int64Counter(
		"composer_compose_total",
		metric.WithDescription("Total composition operations"),
		metric.WithUnit("{compose}"),
	)
	if err != nil {
		return nil, fmt.Errorf("create compose_total: %w", err)
	}

	m.ComposeDuration, err = meter.Float64Histogram(
		"composer_compose_duration_seconds",
		metric.WithDescription("Composition duration in seconds"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(0.0005, 0.001, 0.0025, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5),
	)
	if err != nil {
		return nil, fmt.Errorf("create compose_duration: %w", err)
	}

	m.ComposeConflictsTotal, err = meter.Int64Counter(
		"composer_compose_conflicts_total",
		metric.WithDescription("Conflicts resolved during composition"),
		metric.WithUnit("{conflict}"),
	)
	if err != nil {
		return nil, fmt.Errorf("create compose_conflicts_total: %w", err)
	}

	m.ComposeCartridges, err = meter.Int64Histogram(
		"composer_compose_cartridges",
		metric.WithDescription("Cartridges merged per composition"),
		metric.WithUnit("{cartridge}"),
		metric.WithExplicitBucketBoundaries(1, 2, 3, 4, 5, 6, 8, 10),
	)
	if err != nil {
		return nil, fmt.Errorf("create compose_cartridges: %w", err)
	}

	// --- Profile Metrics ---
	m.ProfileReadsTotal, err = meter.Int64Counter(
		"composer_profile_reads_total",
		metric.WithDescription("Total profile lookups"),
		metric.WithUnit("{read}"),
	)
	if err != nil {
		return nil, fmt.Errorf("create profile_reads_total: %w", err)
	}

	m.ProfileWritesTotal, err = meter.Int64Counter(
		"composer_profile_writes_total",
		metric.WithDescription("Total profile stores"),
		metric.WithUnit("{write}"),
	)
	if err != nil {
		return nil, fmt.Errorf("create profile_writes_total: %w", err)
	}

	m.ProfileReadDuration, err = meter.Float64Histogram(
		"composer_profile_read_duration_seconds",
		metric.WithDescription("Profile lookup duration in seconds"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(0.001, 0.0025, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1),
	)
	if err != nil {
		return nil, fmt.Errorf("create profile_read_duration: %w", err)
	}

	// Note: CatalogCartridges requires a callback registration, handled separately

	// --- Error Metrics ---
	m.ErrorsTotal, err = meter.Int64Counter(
		"composer_errors_total",
		metric.WithDescription("Total errors by type and component"),
		metric.WithUnit("{error}"),
	)
	if err != nil {
		return nil, fmt.Errorf("create errors_total: %w", err)
	}

	return m, nil
}

// RegisterCatalogSize registers a callback for the catalog size gauge.
//
// Description:
//
//	Sets up an observable gauge that reports how many cartridges the
//	registry currently holds. The callback is invoked on each scrape,
//	so hot reloads show up without extra bookkeeping.
//
// Example:
//
//	reg, err := metrics.RegisterCatalogSize(meter, func() int64 {
//	    return int64(registry.Len())
//	})
func (m *Metrics) RegisterCatalogSize(meter metric.Meter, sizeFunc func() int64) (metric.Registration, error) {
	var err error
	m.CatalogCartridges, err = meter.Int64ObservableGauge(
		"composer_catalog_cartridges",
		metric.WithDescription("Cartridges currently loaded in the catalog"),
		metric.WithUnit("{cartridge}"),
	)
	if err != nil {
		return nil, fmt.Errorf("create catalog_cartridges: %w", err)
	}

	return meter.RegisterCallback(func(_ context.Context, o metric.Observer) error {
		o.ObserveInt64(m.CatalogCartridges, sizeFunc())
		return nil
	}, m.CatalogCartridges)
}
