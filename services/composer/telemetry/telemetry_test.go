// Copyright (C) 2026 Lodestar AI (engineering@lodestar-ai.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package telemetry

import (
	"context"
	"errors"
	"strings"
	"testing"

	"go.opentelemetry.io/otel"
)

func TestDefaultConfig(t *testing.T) {
	// Pin the environment so ambient OTEL_* variables cannot skew
	// the defaults under test.
	t.Setenv("LODESTAR_ENV", "")
	t.Setenv("OTEL_TRACES_EXPORTER", "")
	t.Setenv("OTEL_METRICS_EXPORTER", "")
	t.Setenv("OTEL_EXPORTER_OTLP_ENDPOINT", "")

	cfg := DefaultConfig()

	if cfg.ServiceName != "composer" {
		t.Errorf("ServiceName = %q, want %q", cfg.ServiceName, "composer")
	}
	if cfg.Environment != "development" {
		t.Errorf("Environment = %q, want %q", cfg.Environment, "development")
	}
	if cfg.TraceExporter != "otlp" {
		t.Errorf("TraceExporter = %q, want %q", cfg.TraceExporter, "otlp")
	}
	if cfg.MetricExporter != "prometheus" {
		t.Errorf("MetricExporter = %q, want %q", cfg.MetricExporter, "prometheus")
	}
	if cfg.OTLPEndpoint != "localhost:4317" {
		t.Errorf("OTLPEndpoint = %q, want %q", cfg.OTLPEndpoint, "localhost:4317")
	}
	if !cfg.OTLPInsecure {
		t.Error("OTLPInsecure should default to true")
	}
}

func TestDefaultConfig_EnvOverrides(t *testing.T) {
	t.Setenv("LODESTAR_ENV", "production")
	t.Setenv("OTEL_TRACES_EXPORTER", "stdout")
	t.Setenv("OTEL_METRICS_EXPORTER", "none")
	t.Setenv("OTEL_EXPORTER_OTLP_ENDPOINT", "collector:4317")

	cfg := DefaultConfig()

	if cfg.Environment != "production" {
		t.Errorf("Environment = %q, want %q", cfg.Environment, "production")
	}
	if cfg.TraceExporter != "stdout" {
		t.Errorf("TraceExporter = %q, want %q", cfg.TraceExporter, "stdout")
	}
	if cfg.MetricExporter != "none" {
		t.Errorf("MetricExporter = %q, want %q", cfg.MetricExporter, "none")
	}
	if cfg.OTLPEndpoint != "collector:4317" {
		t.Errorf("OTLPEndpoint = %q, want %q", cfg.OTLPEndpoint, "collector:4317")
	}
}

func TestInit_NilContext(t *testing.T) {
	cfg := DefaultConfig()
	cfg.TraceExporter = "none"
	cfg.MetricExporter = "none"

	_, err := Init(nil, cfg) //nolint:staticcheck // Intentionally testing nil context
	if !errors.Is(err, ErrNilContext) {
		t.Errorf("Init(nil, cfg) error = %v, want %v", err, ErrNilContext)
	}
}

func TestInit_NoopExporters(t *testing.T) {
	cfg := DefaultConfig()
	cfg.TraceExporter = "none"
	cfg.MetricExporter = "none"

	shutdown, err := Init(context.Background(), cfg)
	if err != nil {
		t.Fatalf("Init() error = %v", err)
	}
	if shutdown == nil {
		t.Fatal("shutdown function is nil")
	}

	if err := shutdown(context.Background()); err != nil {
		t.Errorf("shutdown() error = %v", err)
	}
}

func TestInit_StdoutTraceExporter(t *testing.T) {
	cfg := DefaultConfig()
	cfg.TraceExporter = "stdout"
	cfg.MetricExporter = "none"

	shutdown, err := Init(context.Background(), cfg)
	if err != nil {
		t.Fatalf("Init() error = %v", err)
	}
	defer shutdown(context.Background())

	if tracer := otel.Tracer("test"); tracer == nil {
		t.Error("tracer is nil")
	}
}

func TestInit_UnknownTraceExporter(t *testing.T) {
	cfg := DefaultConfig()
	cfg.TraceExporter = "carrier_pigeon"
	cfg.MetricExporter = "none"

	_, err := Init(context.Background(), cfg)
	if !errors.Is(err, ErrUnknownExporter) {
		t.Fatalf("Init() error = %v, want %v", err, ErrUnknownExporter)
	}
	if !strings.Contains(err.Error(), "carrier_pigeon") {
		t.Errorf("error should name the exporter: %v", err)
	}
}

func TestInit_UnknownMetricExporter(t *testing.T) {
	cfg := DefaultConfig()
	cfg.TraceExporter = "none"
	cfg.MetricExporter = "carrier_pigeon"

	_, err := Init(context.Background(), cfg)
	if !errors.Is(err, ErrUnknownExporter) {
		t.Fatalf("Init() error = %v, want %v", err, ErrUnknownExporter)
	}
}

func TestInit_PrometheusMetrics(t *testing.T) {
	cfg := DefaultConfig()
	cfg.TraceExporter = "none"
	cfg.MetricExporter = "prometheus"

	shutdown, err := Init(context.Background(), cfg)
	if err != nil {
		t.Fatalf("Init() error = %v", err)
	}
	defer shutdown(context.Background())

	if MetricsHandler() == nil {
		t.Error("MetricsHandler() is nil with the prometheus exporter enabled")
	}
}

func TestGetEnvOr(t *testing.T) {
	t.Setenv("TELEMETRY_TEST_KEY", "set")

	if got := getEnvOr("TELEMETRY_TEST_KEY", "fallback"); got != "set" {
		t.Errorf("getEnvOr() = %q, want %q", got, "set")
	}
	if got := getEnvOr("TELEMETRY_TEST_MISSING", "fallback"); got != "fallback" {
		t.Errorf("getEnvOr() = %q, want %q", got, "fallback")
	}
}
