// Copyright (C) 2026 Lodestar AI (engineering@lodestar-ai.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package handlers

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"

	"github.com/lodestar-ai/lodestar/services/cartridge"
	"github.com/lodestar-ai/lodestar/services/cartridge/compose"
	"github.com/lodestar-ai/lodestar/services/cartridge/profile"
	"github.com/lodestar-ai/lodestar/services/cartridge/router"
	"github.com/lodestar-ai/lodestar/services/composer/datatypes"
	"github.com/lodestar-ai/lodestar/services/composer/observability"
	"github.com/lodestar-ai/lodestar/services/composer/telemetry"
)

// HandleCompose returns the handler for POST /v1/compose.
//
// # Description
//
// Routes the request and then merges the selected cartridges into a single
// composed cartridge. The request body is the same shape as /v1/route; the
// response carries both halves of the pipeline so callers can audit which
// cartridges contributed and how conflicts were resolved.
//
// # Inputs
//
//   - domainRouter: The routing engine.
//   - composer: The cartridge composer.
//   - profiles: Profile store for the preference component. May be nil.
//   - metrics: Engine metrics. May be nil.
//
// # Responses
//
//   - 200: datatypes.ComposeResponse with routing, composition, and explanation
//   - 400: invalid JSON or failed validation
//   - 409: irreconcilable cartridge conflict
//   - 500: composition failed for any other reason
func HandleCompose(domainRouter router.Router, composer compose.Composer, profiles profile.Store, metrics *telemetry.Metrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		startTime := time.Now()
		endpoint := observability.EndpointCompose

		ctx, span := composerTracer.Start(c.Request.Context(), "HandleCompose")
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
			slog.Error("Failed to parse compose request", "error", err)
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
			slog.Error("Compose request validation failed",
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

		composeStart := time.Now()
		composed, err := composer.Compose(ctx, result)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "composition failed")
			slog.Error("Composition failed",
				"error", err,
				"requestId", req.RequestID,
				"primary", result.Primary,
			)
			status := "error"
			code := observability.ErrorCodeCompose
			httpStatus := http.StatusInternalServerError
			if errors.Is(err, cartridge.ErrCartridgeConflict) {
				status = "conflict"
				code = observability.ErrorCodeConflict
				httpStatus = http.StatusConflict
			}
			recordCompose(ctx, metrics, result.Primary, status, nil, time.Since(composeStart))
			if m := observability.DefaultMetrics; m != nil {
				m.RecordError(endpoint, code)
			}
			c.JSON(httpStatus, gin.H{"error": err.Error()})
			return
		}

		recordCompose(ctx, metrics, result.Primary, "ok", composed, time.Since(composeStart))

		span.SetAttributes(
			attribute.String("composed.id", composed.ID),
			attribute.Int("composed.cartridge_count", len(composed.SourceCartridges)),
			attribute.Int("composed.conflicts_resolved", len(composed.ConflictsResolved)),
		)

		slog.Info("Composed cartridge",
			"requestId", req.RequestID,
			"primary", result.Primary,
			"cartridges", len(composed.SourceCartridges),
			"conflictsResolved", len(composed.ConflictsResolved),
		)

		success = true
		resp := datatypes.NewComposeResponse(req.RequestID, result, composed, composer.Explain(composed))
		resp.ProcessingTimeMs = time.Since(startTime).Milliseconds()
		c.JSON(http.StatusOK, resp)
	}
}

// recordCompose emits the engine-level composition instruments. composed is
// nil when composition failed.
func recordCompose(ctx context.Context, metrics *telemetry.Metrics, primary, status string, composed *compose.ComposedCartridge, elapsed time.Duration) {
	if metrics == nil {
		return
	}
	attrs := metric.WithAttributes(
		attribute.String("primary", primary),
		attribute.String("status", status),
	)
	metrics.ComposeTotal.Add(ctx, 1, attrs)
	metrics.ComposeDuration.Record(ctx, elapsed.Seconds(), attrs)
	if composed != nil {
		metrics.ComposeConflictsTotal.Add(ctx, int64(len(composed.ConflictsResolved)), attrs)
		metrics.ComposeCartridges.Record(ctx, int64(len(composed.SourceCartridges)), attrs)
	} else {
		metrics.ErrorsTotal.Add(ctx, 1, metric.WithAttributes(
			attribute.String("component", "composer"),
			attribute.String("type", status),
		))
	}
}
