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
	"log/slog"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// StartSpan creates a new span from the context using the global tracer.
//
// Description:
//
//	Convenience wrapper that uses otel.Tracer() to create spans without
//	explicitly managing tracer instances.
//
// Example:
//
//	func (c *Composer) Compose(ctx context.Context, routing router.Routing) (*ComposedCartridge, error) {
//	    ctx, span := telemetry.StartSpan(ctx, "composer.compose", "Composer.Compose",
//	        trace.WithAttributes(attribute.String("primary", routing.Primary)),
//	    )
//	    defer span.End()
//	    // ... merge cartridges
//	}
//
// Thread Safety: Safe for concurrent use.
func StartSpan(ctx context.Context, tracerName, spanName string, opts ...trace.SpanStartOption) (context.Context, trace.Span) {
	return otel.Tracer(tracerName).Start(ctx, spanName, opts...)
}

// SpanFromContext returns the current span from the context, or a
// no-op span if none is present.
//
// Thread Safety: Safe for concurrent use.
func SpanFromContext(ctx context.Context) trace.Span {
	return trace.SpanFromContext(ctx)
}

// RecordError records an error on the span and sets the span status
// to Error. A nil span or nil error makes this a no-op.
//
// Example:
//
//	composed, err := composer.Compose(ctx, routing)
//	if err != nil {
//	    telemetry.RecordError(span, err, attribute.String("primary", routing.Primary))
//	    return err
//	}
//
// Thread Safety: Safe for concurrent use.
func RecordError(span trace.Span, err error, attrs ...attribute.KeyValue) {
	if span == nil || err == nil {
		return
	}

	opts := make([]trace.EventOption, 0, 1)
	if len(attrs) > 0 {
		opts = append(opts, trace.WithAttributes(attrs...))
	}
	span.RecordError(err, opts...)

	span.SetStatus(codes.Error, err.Error())
}

// RecordErrorf records a formatted error message on the span. Useful
// when adding context to an error before recording it.
//
// Thread Safety: Safe for concurrent use.
func RecordErrorf(span trace.Span, format string, args ...interface{}) {
	if span == nil {
		return
	}
	err := fmt.Errorf(format, args...)
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
}

// SetSpanOK marks the span as successful. Safe with a nil span.
//
// Thread Safety: Safe for concurrent use.
func SetSpanOK(span trace.Span) {
	if span == nil {
		return
	}
	span.SetStatus(codes.Ok, "")
}

// AddSpanEvent records a timestamped event on the span. Safe with a
// nil span.
//
// Example:
//
//	telemetry.AddSpanEvent(span, "fallback_to_general",
//	    attribute.Float64("confidence", confidence))
//
// Thread Safety: Safe for concurrent use.
func AddSpanEvent(span trace.Span, name string, attrs ...attribute.KeyValue) {
	if span == nil {
		return
	}
	span.AddEvent(name, trace.WithAttributes(attrs...))
}

// SetSpanAttributes sets attributes on the span. Safe with a nil span.
//
// Example:
//
//	telemetry.SetSpanAttributes(span,
//	    attribute.Int("overlay_count", len(routing.Overlays)),
//	    attribute.String("domain", routing.Primary),
//	)
//
// Thread Safety: Safe for concurrent use.
func SetSpanAttributes(span trace.Span, attrs ...attribute.KeyValue) {
	if span == nil {
		return
	}
	span.SetAttributes(attrs...)
}

// TraceID returns the hex trace ID from the context, or "" if no
// valid span context is present.
//
// Example:
//
//	logger.Info("request routed", slog.String("trace_id", telemetry.TraceID(ctx)))
//
// Thread Safety: Safe for concurrent use.
func TraceID(ctx context.Context) string {
	spanCtx := trace.SpanContextFromContext(ctx)
	if !spanCtx.IsValid() {
		return ""
	}
	return spanCtx.TraceID().String()
}

// SpanID returns the hex span ID from the context, or "" if no valid
// span context is present.
//
// Thread Safety: Safe for concurrent use.
func SpanID(ctx context.Context) string {
	spanCtx := trace.SpanContextFromContext(ctx)
	if !spanCtx.IsValid() {
		return ""
	}
	return spanCtx.SpanID().String()
}

// HasActiveSpan reports whether the context carries a valid, recording
// span. Useful for conditional instrumentation.
//
// Thread Safety: Safe for concurrent use.
func HasActiveSpan(ctx context.Context) bool {
	span := trace.SpanFromContext(ctx)
	return span.SpanContext().IsValid() && span.IsRecording()
}

// LoggerWithTrace returns a logger carrying trace_id and span_id
// fields for correlation with distributed traces. With no valid span
// in the context the logger comes back unchanged. A nil logger yields
// slog.Default().
//
// Thread Safety: Safe for concurrent use.
func LoggerWithTrace(ctx context.Context, logger *slog.Logger) *slog.Logger {
	if logger == nil {
		logger = slog.Default()
	}
	if ctx == nil {
		return logger
	}
	spanCtx := trace.SpanContextFromContext(ctx)
	if !spanCtx.IsValid() {
		return logger
	}
	return logger.With(
		slog.String("trace_id", spanCtx.TraceID().String()),
		slog.String("span_id", spanCtx.SpanID().String()),
	)
}
