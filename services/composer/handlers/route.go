// Copyright (C) 2026 Lodestar AI (engineering@lodestar-ai.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package handlers implements the composer service HTTP handlers.
//
// Handlers are closures over their dependencies, returned as gin.HandlerFunc.
// Every handler traces its request, records HTTP metrics when the
// observability singleton is initialized, and records engine metrics when a
// telemetry.Metrics is supplied.
package handlers

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"

	"github.com/lodestar-ai/lodestar/services/cartridge/profile"
	"github.com/lodestar-ai/lodestar/services/cartridge/router"
	"github.com/lodestar-ai/lodestar/services/composer/datatypes"
	"github.com/lodestar-ai/lodestar/services/composer/observability"
	"github.com/lodestar-ai/lodestar/services/composer/telemetry"
)

var composerTracer = otel.Tracer("lodestar.composer.handlers")

// HandleRoute returns the handler for POST /v1/route.
//
// # Description
//
// Routes the request text and file descriptors to a primary cartridge plus
// overlays. Routing is infallible: unrecognizable input yields the general
// fallback, so the only error responses are for malformed or invalid bodies.
//
// # Inputs
//
//   - domainRouter: The routing engine.
//   - profiles: Profile store for the preference component. May be nil.
//   - metrics: Engine metrics. May be nil.
//
// # Responses
//
//   - 200: datatypes.RouteResponse with the routing decision
//   - 400: invalid JSON or failed validation
func HandleRoute(domainRouter router.Router, profiles profile.Store, metrics *telemetry.Metrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		startTime := time.Now()
		endpoint := observability.EndpointRoute

		ctx, span := composerTracer.Start(c.Request.Context(), "HandleRoute")
		defer span.End()

		if m := observability.DefaultMetrics; m != nil {
			m.RequestStarted(endpoint)
			defer m.RequestEnded(endpoint)
		}

		success := false
		defer func() {
			if m := observability.DefaultMetrics; m != nil {
				m.RecordRequest(endpoint, success)
				m.RecordDuration(endpoint, time.Since(startTime).Seconds(), success)
			}
		}()

		var req datatypes.RouteRequest
		if err := c.BindJSON(&req); err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "invalid request body")
			slog.Error("Failed to parse route request", "error", err)
			if m := observability.DefaultMetrics; m != nil {
				m.RecordError(endpoint, observability.ErrorCodeValidation)
			}
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
			return
		}

		req.EnsureDefaults()

		span.SetAttributes(
			attribute.String("request.id", req.RequestID),
			attribute.Int("request.text_length", len(req.Text)),
			attribute.Int("request.file_count", len(req.Files)),
		)

		if err := req.Validate(); err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "validation failed")
			slog.Error("Route request validation failed",
				"error", err,
				"requestId", req.RequestID,
			)
			if m := observability.DefaultMetrics; m != nil {
				m.RecordError(endpoint, observability.ErrorCodeValidation)
			}
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request: validation failed"})
			return
		}

		prof := loadProfile(ctx, profiles, req.UserID, metrics)
		result := domainRouter.Route(ctx, req.Text, req.ToFileInputs(), prof)

		recordRouting(ctx, metrics, &result, time.Since(startTime))

		slog.Info("Routed request",
			"requestId", req.RequestID,
			"primary", result.Primary,
			"confidence", result.Confidence,
			"overlays", len(result.Overlays),
		)

		success = true
		resp := datatypes.NewRouteResponse(req.RequestID, result)
		resp.ProcessingTimeMs = time.Since(startTime).Milliseconds()
		c.JSON(http.StatusOK, resp)
	}
}

// loadProfile fetches the user's routing profile when a user id is present.
// A missing profile is normal. Store failures are logged and treated the
// same way, so routing never blocks on the profile layer.
func loadProfile(ctx context.Context, store profile.Store, userID string, metrics *telemetry.Metrics) *profile.UserProfile {
	if store == nil || userID == "" {
		return nil
	}

	start := time.Now()
	prof, err := store.Get(ctx, userID)
	status := "hit"
	if err != nil {
		prof = nil
		if errors.Is(err, profile.ErrProfileNotFound) {
			status = "miss"
		} else {
			status = "error"
			slog.Warn("Profile lookup failed, routing without preferences",
				"error", err,
				"userId", userID,
			)
		}
	}

	if metrics != nil {
		attrs := metric.WithAttributes(attribute.String("status", status))
		metrics.ProfileReadsTotal.Add(ctx, 1, attrs)
		metrics.ProfileReadDuration.Record(ctx, time.Since(start).Seconds(), attrs)
	}
	return prof
}

// recordRouting emits the engine-level routing instruments.
func recordRouting(ctx context.Context, metrics *telemetry.Metrics, result *router.RoutingResult, elapsed time.Duration) {
	if metrics == nil {
		return
	}
	attrs := metric.WithAttributes(
		attribute.String("domain", result.Primary),
		attribute.String("status", "ok"),
	)
	metrics.RoutingRequestsTotal.Add(ctx, 1, attrs)
	metrics.RoutingDuration.Record(ctx, elapsed.Seconds(), attrs)
	metrics.RoutingConfidence.Record(ctx, result.Confidence, attrs)
	if len(result.Matches) == 0 {
		metrics.RoutingFallbacksTotal.Add(ctx, 1)
	}
}
