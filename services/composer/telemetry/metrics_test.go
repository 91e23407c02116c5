// Copyright (C) 2026 Lodestar AI (engineering@lodestar-ai.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package telemetry

import (
	"context"
	"testing"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

func newTestMetrics(t *testing.T) *Metrics {
	t.Helper()

	cfg := DefaultConfig()
	cfg.TraceExporter = "none"
	cfg.MetricExporter = "prometheus"

	shutdown, err := Init(context.Background(), cfg)
	if err != nil {
		t.Fatalf("Init() error = %v", err)
	}
	t.Cleanup(func() { _ = shutdown(context.Background()) })

	metrics, err := NewMetrics(otel.Meter("composer_test"))
	if err != nil {
		t.Fatalf("NewMetrics() error = %v", err)
	}
	return metrics
}

func TestNewMetrics(t *testing.T) {
	metrics := newTestMetrics(t)

	if metrics.RoutingRequestsTotal == nil {
		t.Error("RoutingRequestsTotal is nil")
	}
	if metrics.RoutingDuration == nil {
		t.Error("RoutingDuration is nil")
	}
	if metrics.RoutingConfidence == nil {
		t.Error("RoutingConfidence is nil")
	}
	if metrics.RoutingFallbacksTotal == nil {
		t.Error("RoutingFallbacksTotal is nil")
	}
	if metrics.ComposeTotal == nil {
		t.Error("ComposeTotal is nil")
	}
	if metrics.ComposeDuration == nil {
		t.Error("ComposeDuration is nil")
	}
	if metrics.ComposeConflictsTotal == nil {
		t.Error("ComposeConflictsTotal is nil")
	}
	if metrics.ComposeCartridges == nil {
		t.Error("ComposeCartridges is nil")
	}
	if metrics.ProfileReadsTotal == nil {
		t.Error("ProfileReadsTotal is nil")
	}
	if metrics.ProfileWritesTotal == nil {
		t.Error("ProfileWritesTotal is nil")
	}
	if metrics.ProfileReadDuration == nil {
		t.Error("ProfileReadDuration is nil")
	}
	if metrics.ErrorsTotal == nil {
		t.Error("ErrorsTotal is nil")
	}
}

func TestMetrics_RecordRoutingMetrics(t *testing.T) {
	metrics := newTestMetrics(t)

	ctx := context.Background()
	attrs := metric.WithAttributes(
		attribute.String("domain", "chemistry"),
		attribute.String("status", "ok"),
	)

	metrics.RoutingRequestsTotal.Add(ctx, 1, attrs)
	metrics.RoutingDuration.Record(ctx, 0.0012, attrs)
	metrics.RoutingConfidence.Record(ctx, 0.42, attrs)
	metrics.RoutingFallbacksTotal.Add(ctx, 1)
}

func TestMetrics_RecordComposeMetrics(t *testing.T) {
	metrics := newTestMetrics(t)

	ctx := context.Background()
	attrs := metric.WithAttributes(
		attribute.String("primary", "chemistry"),
		attribute.String("status", "ok"),
	)

	metrics.ComposeTotal.Add(ctx, 1, attrs)
	metrics.ComposeDuration.Record(ctx, 0.0031, attrs)
	metrics.ComposeConflictsTotal.Add(ctx, 3, attrs)
	metrics.ComposeCartridges.Record(ctx, 4, attrs)
}

func TestMetrics_RecordProfileMetrics(t *testing.T) {
	metrics := newTestMetrics(t)

	ctx := context.Background()
	attrs := metric.WithAttributes(attribute.String("status", "hit"))

	metrics.ProfileReadsTotal.Add(ctx, 1, attrs)
	metrics.ProfileWritesTotal.Add(ctx, 1)
	metrics.ProfileReadDuration.Record(ctx, 0.004, attrs)
	metrics.ErrorsTotal.Add(ctx, 1, metric.WithAttributes(
		attribute.String("component", "profile"),
		attribute.String("type", "storage"),
	))
}

func TestMetrics_RegisterCatalogSize(t *testing.T) {
	metrics := newTestMetrics(t)

	registration, err := metrics.RegisterCatalogSize(otel.Meter("composer_test"), func() int64 {
		return 19
	})
	if err != nil {
		t.Fatalf("RegisterCatalogSize() error = %v", err)
	}
	if metrics.CatalogCartridges == nil {
		t.Error("CatalogCartridges is nil after registration")
	}
	if err := registration.Unregister(); err != nil {
		t.Errorf("Unregister() error = %v", err)
	}
}
