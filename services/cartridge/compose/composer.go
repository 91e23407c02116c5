// Copyright (C) 2026 Lodestar AI (engineering@lodestar-ai.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package compose

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/lodestar-ai/lodestar/services/cartridge"
	"github.com/lodestar-ai/lodestar/services/cartridge/router"
)

// Composer merges a routing result into a composed cartridge.
//
// Description:
//
//	Compose resolves every cartridge named by the routing result against
//	the registry, verifies that no two resolved cartridges declare each
//	other incompatible, and merges them under fixed precedence rules.
//	Explain renders a composed cartridge as a human-readable summary.
//
// Thread Safety:
//
//	Implementations must be safe for concurrent use.
type Composer interface {
	Compose(ctx context.Context, result router.RoutingResult) (*ComposedCartridge, error)
	Explain(composed *ComposedCartridge) string
}

// CartridgeComposer is the production Composer.
type CartridgeComposer struct {
	registry *cartridge.Registry
	logger   *slog.Logger
}

var _ Composer = (*CartridgeComposer)(nil)

// NewCartridgeComposer builds a composer over the given registry. A nil
// logger falls back to slog.Default.
func NewCartridgeComposer(registry *cartridge.Registry, logger *slog.Logger) *CartridgeComposer {
	if logger == nil {
		logger = slog.Default()
	}
	return &CartridgeComposer{registry: registry, logger: logger}
}

// Compose builds the effective configuration for one routing result.
//
// The merge only starts after two strict checks: the primary must resolve in
// the registry, and no unordered pair in the assembled set may declare a
// conflict. Either failure aborts before any partial merge exists. Overlay
// ids that do not resolve are skipped with a warning; only the primary is
// load-bearing.
func (c *CartridgeComposer) Compose(ctx context.Context, result router.RoutingResult) (*ComposedCartridge, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	start := time.Now()
	_, span := otel.Tracer("compose").Start(ctx, "compose.CartridgeComposer.Compose",
		trace.WithAttributes(
			attribute.String("primary", result.Primary),
			attribute.Int("overlay_count", len(result.Overlays)),
			attribute.Int("safety_overlay_count", len(result.SafetyOverlays)),
		))
	defer span.End()

	ordered, err := c.assemble(result)
	if err != nil {
		span.RecordError(err)
		RecordComposition("primary_missing", time.Since(start).Seconds())
		return nil, err
	}

	if err := checkConflicts(ordered); err != nil {
		span.RecordError(err)
		RecordComposition("conflict", time.Since(start).Seconds())
		return nil, err
	}

	composed := mergeCartridges(ordered)
	span.SetAttributes(
		attribute.String("composed_id", composed.ID),
		attribute.Int("source_count", len(composed.SourceCartridges)),
		attribute.Int("conflicts_resolved", len(composed.ConflictsResolved)),
	)
	RecordComposition("ok", time.Since(start).Seconds())
	for _, res := range composed.ConflictsResolved {
		RecordConflictResolved(res.Reason)
	}
	return composed, nil
}

// assemble resolves the routing result into the ordered application list:
// safety overlays, regular overlays, primary.
func (c *CartridgeComposer) assemble(result router.RoutingResult) ([]cartridge.Cartridge, error) {
	primary, ok := c.registry.Get(result.Primary)
	if !ok {
		return nil, fmt.Errorf("%w: %s", cartridge.ErrPrimaryNotFound, result.Primary)
	}

	seen := map[string]bool{result.Primary: true}
	ordered := make([]cartridge.Cartridge, 0, len(result.SafetyOverlays)+len(result.Overlays)+1)

	appendResolved := func(id string) {
		if seen[id] {
			return
		}
		seen[id] = true
		overlay, ok := c.registry.Get(id)
		if !ok {
			c.logger.Warn("overlay cartridge missing from registry, skipping",
				slog.String("cartridge_id", id),
				slog.String("primary", result.Primary))
			return
		}
		ordered = append(ordered, overlay)
	}

	for _, id := range result.SafetyOverlays {
		appendResolved(id)
	}
	for _, id := range result.Overlays {
		appendResolved(id)
	}
	ordered = append(ordered, primary)
	return ordered, nil
}

// checkConflicts fails when any unordered pair in the set declares a
// conflict, regardless of which side carries the declaration.
func checkConflicts(ordered []cartridge.Cartridge) error {
	for i := range ordered {
		for j := i + 1; j < len(ordered); j++ {
			if ordered[i].ConflictsWithID(ordered[j].ID) {
				return &cartridge.ConflictError{A: ordered[i].ID, B: ordered[j].ID}
			}
			if ordered[j].ConflictsWithID(ordered[i].ID) {
				return &cartridge.ConflictError{A: ordered[j].ID, B: ordered[i].ID}
			}
		}
	}
	return nil
}
