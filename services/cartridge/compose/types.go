// Copyright (C) 2026 Lodestar AI (engineering@lodestar-ai.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package compose merges a routed cartridge set into one effective
// configuration.
//
// The composed bundle is the sole contract handed to the downstream prompt
// layer: it carries the merged safety envelope, style, templates,
// deliverables, rubrics, and validators, plus an audit trail of every
// precedence decision taken during the merge. Composition is strict where
// routing is lenient: a missing primary or a declared cartridge conflict
// fails fast, before any partial merge is visible.
package compose

import (
	"github.com/lodestar-ai/lodestar/services/cartridge"
)

// ConflictResolution is one audit record from the merge: which property was
// contested, which cartridge won, and why.
type ConflictResolution struct {
	Property string `json:"property"`
	WinnerID string `json:"winner_id"`
	Reason   string `json:"reason"`
}

// Merge audit reasons.
const (
	// ReasonSafetyOverride marks a write that tightened the safety
	// envelope or was forced by a safety cartridge.
	ReasonSafetyOverride = "Safety override"

	// ReasonFirstValidator marks the single non-safety validator set
	// admitted into the composition.
	ReasonFirstValidator = "First validator"

	// ReasonStyleOverride marks a style field overwritten by a cartridge
	// with overwrite rights.
	ReasonStyleOverride = "Style override"

	// ReasonTemplateOverride marks a template overwritten by a cartridge
	// with overwrite rights.
	ReasonTemplateOverride = "Template override"
)

// ComposedCartridge is the merged configuration produced from one routing
// result. Built once, then treated as read-only.
type ComposedCartridge struct {
	// ID uniquely identifies this composition instance.
	ID string `json:"id"`

	// SourceCartridges lists the merged cartridge ids in application
	// order: safety overlays first, regular overlays next, primary last.
	SourceCartridges []string `json:"source_cartridges"`

	Safety       cartridge.SafetyPolicy `json:"safety"`
	Style        cartridge.Style        `json:"style"`
	Templates    map[string]string      `json:"templates,omitempty"`
	Deliverables cartridge.Deliverables `json:"deliverables"`
	Rubrics      []string               `json:"rubrics,omitempty"`
	Validators   []string               `json:"validators,omitempty"`

	// ConflictsResolved records every precedence decision, in merge order.
	ConflictsResolved []ConflictResolution `json:"conflicts_resolved"`

	// CreatedAt is the composition time in Unix milliseconds.
	CreatedAt int64 `json:"created_at"`
}
