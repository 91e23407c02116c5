// Copyright (C) 2026 Lodestar AI (engineering@lodestar-ai.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package telemetry provides OpenTelemetry-based observability for the
// composer service.
//
// The package initializes the OTel SDK with opinionated defaults for
// tracing and metrics, while allowing backend flexibility through
// exporter configuration.
//
// # Philosophy
//
// Be opinionated about the API, flexible about the backend.
// OpenTelemetry IS the abstraction layer. We use OTel APIs directly
// (no custom interfaces), and users swap backends by changing exporter
// configuration, not code.
//
// # Trace Backend (default: OTLP)
//
// Traces ship over OTLP/gRPC by default, which Jaeger accepts natively
// since 1.35. Swap to any OTLP-compatible backend via environment
// variables, or to "stdout" for local debugging.
//
// # Metrics Backend (default: Prometheus)
//
// Prometheus is the default metrics backend. The exporter registers
// with the default Prometheus registry, so MetricsHandler() serves
// both the OTel instruments and anything registered via promauto on
// the same /metrics endpoint.
//
// # Usage
//
//	cfg := telemetry.DefaultConfig()
//	shutdown, err := telemetry.Init(ctx, cfg)
//	if err != nil {
//	    return fmt.Errorf("init telemetry: %w", err)
//	}
//	defer shutdown(ctx)
//
//	// Now otel.Tracer() and otel.Meter() are configured
//	tracer := otel.Tracer("composer")
//	meter := otel.Meter("composer")
//
// # Environment Variables
//
// Standard OTel environment variables are supported:
//
//   - OTEL_EXPORTER_OTLP_ENDPOINT: OTLP endpoint (default: localhost:4317)
//   - OTEL_TRACES_EXPORTER: otlp, stdout, or none (default: otlp)
//   - OTEL_METRICS_EXPORTER: prometheus, stdout, or none (default: prometheus)
//   - LODESTAR_ENV: environment name (default: development)
//
// # Thread Safety
//
// All exported functions are safe for concurrent use after Init()
// returns.
package telemetry
