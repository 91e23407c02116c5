// Copyright (C) 2026 Lodestar AI (engineering@lodestar-ai.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package router scores free-form requests against the cartridge catalog and
// selects a primary domain plus overlay and safety cartridges.
//
// Routing is deliberately infallible: malformed, empty, or unrecognizable
// input degrades to the general fallback cartridge instead of an error, so a
// caller always receives a usable routing decision.
package router

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/lodestar-ai/lodestar/services/cartridge"
	"github.com/lodestar-ai/lodestar/services/cartridge/features"
	"github.com/lodestar-ai/lodestar/services/cartridge/profile"
)

// MatchSignals is the per-cartridge breakdown of which extracted features
// contributed to the score.
type MatchSignals struct {
	MatchedKeywords []string `json:"matched_keywords,omitempty"`
	MatchedUnits    []string `json:"matched_units,omitempty"`
	MatchedShape    string   `json:"matched_shape,omitempty"`
	MatchedFiles    []string `json:"matched_files,omitempty"`
}

// CartridgeMatch is one scored candidate from a routing pass.
type CartridgeMatch struct {
	CartridgeID string       `json:"cartridge_id"`
	Confidence  float64      `json:"confidence"`
	Signals     MatchSignals `json:"signals"`
	Rationale   string       `json:"rationale"`
}

// RoutingResult is the full outcome of a routing pass.
//
// Overlays holds every overlay to apply, safety overlays included.
// SafetyOverlays repeats the mandatory safety subset so callers can
// distinguish policy-injected overlays from detected ones.
type RoutingResult struct {
	Primary        string           `json:"primary"`
	Overlays       []string         `json:"overlays"`
	SafetyOverlays []string         `json:"safety_overlays"`
	Deliverable    string           `json:"deliverable"`
	Confidence     float64          `json:"confidence"`
	Matches        []CartridgeMatch `json:"matches"`
}

// Router selects cartridges for a request.
//
// Description:
//
//	Implementations score the request against every registered cartridge and
//	return a primary domain, overlays, and a deliverable guess. Route must
//	not fail; unrecognizable input routes to the fallback cartridge with
//	zero confidence.
//
// Thread Safety:
//
//	Implementations must be safe for concurrent use.
type Router interface {
	Route(ctx context.Context, text string, files []features.FileInput, prof *profile.UserProfile) RoutingResult
}

// DomainRouter is the production Router built on regex feature extraction
// and weighted keyword scoring.
type DomainRouter struct {
	registry  *cartridge.Registry
	extractor features.Extractor
	config    ScoringConfig
}

var _ Router = (*DomainRouter)(nil)

// NewDomainRouter builds a DomainRouter over the given registry and
// extractor. A nil config selects DefaultScoringConfig.
func NewDomainRouter(registry *cartridge.Registry, extractor features.Extractor, config *ScoringConfig) *DomainRouter {
	cfg := DefaultScoringConfig()
	if config != nil {
		cfg = *config
	}
	return &DomainRouter{
		registry:  registry,
		extractor: extractor,
		config:    cfg,
	}
}

// Route scores the request against the catalog and assembles the routing
// decision.
//
// The pass runs in fixed stages: extract features from text and files,
// score every registered cartridge, rank the survivors, pick the primary,
// detect overlays, inject mandatory safety overlays, and guess the
// deliverable. A nil profile disables the preference component.
func (r *DomainRouter) Route(ctx context.Context, text string, files []features.FileInput, prof *profile.UserProfile) RoutingResult {
	if ctx == nil {
		ctx = context.Background()
	}
	start := time.Now()
	ctx, span := otel.Tracer("router").Start(ctx, "router.DomainRouter.Route",
		trace.WithAttributes(
			attribute.Int("text_length", len(text)),
			attribute.Int("file_count", len(files)),
		))
	defer span.End()

	feat := features.Merge(
		r.extractor.ExtractFromText(ctx, text),
		r.extractor.ExtractFromFiles(files),
	)

	matches := r.scoreAll(&feat, prof)
	sortMatches(matches)

	result := RoutingResult{
		Primary:        r.config.FallbackID,
		Overlays:       []string{},
		SafetyOverlays: []string{},
		Matches:        matches,
	}
	fallback := true
	if len(matches) > 0 {
		// The list is sorted, so the first entry above the primary
		// threshold and the single highest survivor coincide.
		result.Primary = matches[0].CartridgeID
		result.Confidence = matches[0].Confidence
		fallback = false
		if result.Confidence <= r.config.PrimaryThreshold {
			span.AddEvent("primary_below_threshold", trace.WithAttributes(
				attribute.Float64("threshold", r.config.PrimaryThreshold),
			))
		}
	}

	r.attachOverlays(&result, &feat, prof)

	var primaryCartridge *cartridge.Cartridge
	if c, ok := r.registry.Get(result.Primary); ok {
		primaryCartridge = &c
	}
	result.Deliverable = guessDeliverable(feat.DocShape, primaryCartridge)

	span.SetAttributes(
		attribute.String("primary", result.Primary),
		attribute.Float64("confidence", result.Confidence),
		attribute.Int("overlay_count", len(result.Overlays)),
		attribute.Bool("fallback", fallback),
	)
	RecordRoutingSelection(result.Primary, fallback)
	RecordRoutingConfidence(result.Primary, result.Confidence)
	RecordRoutingLatency(routeStatus(fallback), time.Since(start).Seconds())
	return result
}

// scoreAll scores every registered cartridge and keeps survivors above the
// match floor.
func (r *DomainRouter) scoreAll(feat *features.DomainFeatures, prof *profile.UserProfile) []CartridgeMatch {
	all := r.registry.List()
	matches := make([]CartridgeMatch, 0, len(all))
	for _, c := range all {
		preference := 0.0
		if prof != nil {
			preference = prof.DomainScores[c.ID]
		}
		if m := scoreCartridge(&c, feat, preference, &r.config); m.Confidence > r.config.MatchFloor {
			matches = append(matches, m)
		}
	}
	return matches
}

// attachOverlays fills Overlays and SafetyOverlays on the result: detected
// overlays first, then the mandatory safety set for the primary, then
// profile-suggested overlays when confidence is high enough.
func (r *DomainRouter) attachOverlays(result *RoutingResult, feat *features.DomainFeatures, prof *profile.UserProfile) {
	seen := map[string]bool{result.Primary: true}

	appendOverlay := func(id string) {
		if seen[id] {
			return
		}
		// A registered cartridge that opted out of overlay use is
		// skipped unless it belongs to the safety set, which always
		// applies. Unregistered ids pass through; composition decides
		// their fate.
		if c, ok := r.registry.Get(id); ok {
			if !c.OverlayCompatible && !cartridge.IsSafetyCartridge(id) {
				return
			}
		}
		seen[id] = true
		result.Overlays = append(result.Overlays, id)
	}

	for _, id := range detectOverlays(feat) {
		appendOverlay(id)
	}

	for _, id := range r.registry.MandatorySafetyOverlays(result.Primary) {
		if id == result.Primary {
			continue
		}
		result.SafetyOverlays = append(result.SafetyOverlays, id)
		RecordSafetyInjection(id)
		appendOverlay(id)
	}

	if prof != nil && result.Confidence > r.config.ProfileOverlayThreshold {
		for _, id := range prof.CommonOverlays {
			appendOverlay(id)
		}
	}
}

// guessDeliverable maps the detected shape to a deliverable, falling back to
// the primary cartridge's default and finally to a plain answer.
func guessDeliverable(shape features.DocShape, primary *cartridge.Cartridge) string {
	switch shape {
	case features.ShapeOutline:
		return "outline"
	case features.ShapeMemo:
		return "memo"
	}
	if primary != nil && primary.Deliverables.Default != "" {
		return primary.Deliverables.Default
	}
	return "answer"
}

func routeStatus(fallback bool) string {
	if fallback {
		return "fallback"
	}
	return "primary"
}
