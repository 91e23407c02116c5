// Copyright (C) 2026 Lodestar AI (engineering@lodestar-ai.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package cartridge defines the expertise bundle model served to the router
// and composer, plus the registry that answers catalog lookups.
//
// A cartridge packages everything the prompt pipeline needs to act like a
// domain expert: activation signals for routing, safety constraints, style
// guidance, deliverable definitions, rubrics, and validators. Cartridges are
// immutable once they enter a registry snapshot; every load path is expected
// to call Validate and CompileActivation before registration.
package cartridge

import (
	"fmt"
	"regexp"
	"sort"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// RiskLevel caps the risk appetite of generated guidance.
type RiskLevel string

const (
	RiskLow    RiskLevel = "low"
	RiskMedium RiskLevel = "medium"
	RiskHigh   RiskLevel = "high"
)

// riskRank orders risk levels from most to least restrictive.
var riskRank = map[RiskLevel]int{
	RiskLow:    0,
	RiskMedium: 1,
	RiskHigh:   2,
}

// MoreRestrictiveThan reports whether l caps risk tighter than other.
// Unknown levels are treated as most restrictive.
func (l RiskLevel) MoreRestrictiveThan(other RiskLevel) bool {
	lr, ok := riskRank[l]
	if !ok {
		lr = -1
	}
	or, ok := riskRank[other]
	if !ok {
		or = -1
	}
	return lr < or
}

// UnmarshalYAML rejects risk levels outside the known set.
func (l *RiskLevel) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return err
	}
	incoming := RiskLevel(s)
	switch incoming {
	case RiskLow, RiskMedium, RiskHigh:
		*l = incoming
		return nil
	default:
		return fmt.Errorf("invalid value for RiskLevel: %q", incoming)
	}
}

// Activation describes the signals that activate a cartridge during routing.
type Activation struct {
	// Keywords are lowercase activator terms matched against extracted
	// query keywords, substring in either direction.
	Keywords []string `yaml:"keywords,omitempty" json:"keywords,omitempty"`

	// UnitPattern is an optional regex matched against extracted measurement
	// units. Compiled once by CompileActivation.
	UnitPattern string `yaml:"unit_pattern,omitempty" json:"unit_pattern,omitempty"`

	// DocShapes lists the document shapes this cartridge responds to
	// (imrad, rfc, memo, outline, narrative).
	DocShapes []string `yaml:"doc_shapes,omitempty" json:"doc_shapes,omitempty"`

	// FileExtensions lists file extensions (with leading dot) that signal
	// this domain, e.g. ".cif" or ".ipynb".
	FileExtensions []string `yaml:"file_extensions,omitempty" json:"file_extensions,omitempty"`

	// ConfidenceThreshold is the minimum routing confidence at which this
	// cartridge considers itself a real match.
	ConfidenceThreshold float64 `yaml:"confidence_threshold,omitempty" json:"confidence_threshold,omitempty" validate:"gte=0,lte=1"`

	unitRegexp *regexp.Regexp `yaml:"-" json:"-"`
}

// MatchesUnit reports whether the compiled unit pattern matches the given
// unit string. Returns false when no pattern is configured or the pattern
// was never compiled.
func (a *Activation) MatchesUnit(unit string) bool {
	if a.unitRegexp == nil {
		return false
	}
	return a.unitRegexp.MatchString(unit)
}

// HasUnitPattern reports whether a compiled unit pattern is available.
func (a *Activation) HasUnitPattern() bool {
	return a.unitRegexp != nil
}

// SafetyPolicy is the safety envelope contributed by a cartridge. During
// composition boolean fields merge by OR and MaxRiskLevel merges toward the
// most restrictive level, so overlays can only tighten the envelope.
type SafetyPolicy struct {
	ForbidProcedures    bool      `yaml:"forbid_procedures,omitempty" json:"forbid_procedures,omitempty"`
	ForbidHarmful       bool      `yaml:"forbid_harmful,omitempty" json:"forbid_harmful,omitempty"`
	RedactPII           bool      `yaml:"redact_pii,omitempty" json:"redact_pii,omitempty"`
	TopicBlocks         []string  `yaml:"topic_blocks,omitempty" json:"topic_blocks,omitempty"`
	RequiredDisclaimers []string  `yaml:"required_disclaimers,omitempty" json:"required_disclaimers,omitempty"`
	MaxRiskLevel        RiskLevel `yaml:"max_risk_level,omitempty" json:"max_risk_level,omitempty" validate:"omitempty,oneof=low medium high"`
}

// Style is the presentation guidance a cartridge contributes.
type Style struct {
	Tone             string `yaml:"tone,omitempty" json:"tone,omitempty"`
	Units            string `yaml:"units,omitempty" json:"units,omitempty"`
	CitationStyle    string `yaml:"citation_style,omitempty" json:"citation_style,omitempty"`
	LengthPreference string `yaml:"length_preference,omitempty" json:"length_preference,omitempty"`
	Structure        string `yaml:"structure,omitempty" json:"structure,omitempty"`
}

// IsZero reports whether no style field is set.
func (s Style) IsZero() bool {
	return s == Style{}
}

// Deliverables describes the output artifacts a cartridge knows how to shape.
type Deliverables struct {
	// Default names the deliverable used when the query gives no signal.
	Default string `yaml:"default,omitempty" json:"default,omitempty"`

	// Options lists every deliverable this cartridge can produce.
	Options []string `yaml:"options,omitempty" json:"options,omitempty"`

	// Schemas maps deliverable names to their structural schema.
	Schemas map[string]string `yaml:"schemas,omitempty" json:"schemas,omitempty"`
}

// Cartridge is one expertise bundle in the catalog.
//
// Cartridges are treated as immutable once registered: the registry hands out
// shallow copies of snapshot entries and no component mutates them afterward.
type Cartridge struct {
	// ID is the unique catalog identifier, e.g. "chemistry".
	ID string `yaml:"id" json:"id" validate:"required"`

	// Name is the human-readable title shown in explanations.
	Name string `yaml:"name" json:"name" validate:"required"`

	// Priority weights routing scores; 100 means full weight, lower values
	// proportionally dampen the domain.
	Priority int `yaml:"priority" json:"priority" validate:"gte=0,lte=100"`

	Activation   Activation        `yaml:"activation" json:"activation"`
	Safety       SafetyPolicy      `yaml:"safety,omitempty" json:"safety,omitempty"`
	Style        Style             `yaml:"style,omitempty" json:"style,omitempty"`
	Templates    map[string]string `yaml:"templates,omitempty" json:"templates,omitempty"`
	Deliverables Deliverables      `yaml:"deliverables,omitempty" json:"deliverables,omitempty"`

	// Rubrics are quality criteria appended to the composed bundle.
	Rubrics []string `yaml:"rubrics,omitempty" json:"rubrics,omitempty"`

	// Validators name post-generation checks to run on the output.
	Validators []string `yaml:"validators,omitempty" json:"validators,omitempty"`

	// OverlayCompatible marks a cartridge usable as a non-safety overlay.
	OverlayCompatible bool `yaml:"overlay_compatible,omitempty" json:"overlay_compatible,omitempty"`

	// ConflictsWith lists cartridge ids that must never be composed with
	// this one. The check is applied symmetrically.
	ConflictsWith []string `yaml:"conflicts_with,omitempty" json:"conflicts_with,omitempty"`
}

// catalogValidate is the validator instance for catalog entries.
var catalogValidate = validator.New()

// Validate checks the structural invariants a cartridge must satisfy before
// it enters a registry snapshot: required identifiers, bounded priority and
// threshold, a known risk level, and a compilable unit pattern.
func (c *Cartridge) Validate() error {
	if err := catalogValidate.Struct(c); err != nil {
		return fmt.Errorf("cartridge %q failed validation: %w", c.ID, err)
	}
	if c.Activation.UnitPattern != "" {
		if _, err := regexp.Compile(c.Activation.UnitPattern); err != nil {
			return fmt.Errorf("cartridge %q has an invalid unit pattern: %w", c.ID, err)
		}
	}
	for _, other := range c.ConflictsWith {
		if other == c.ID {
			return fmt.Errorf("cartridge %q declares a conflict with itself", c.ID)
		}
	}
	return nil
}

// CompileActivation compiles the unit pattern for match-time use. Safe to
// call on cartridges without a pattern.
func (c *Cartridge) CompileActivation() error {
	if c.Activation.UnitPattern == "" {
		c.Activation.unitRegexp = nil
		return nil
	}
	re, err := regexp.Compile(c.Activation.UnitPattern)
	if err != nil {
		return fmt.Errorf("failed to compile the unit pattern %s: %w", c.Activation.UnitPattern, err)
	}
	c.Activation.unitRegexp = re
	return nil
}

// ConflictsWithID reports whether the cartridge declares a conflict with the
// given id. Composition treats the declaration as symmetric; this helper only
// checks one direction.
func (c *Cartridge) ConflictsWithID(id string) bool {
	for _, other := range c.ConflictsWith {
		if other == id {
			return true
		}
	}
	return false
}

// SortByPriority orders cartridges from highest to lowest priority, ties
// broken by id for deterministic iteration.
func SortByPriority(cartridges []Cartridge) {
	sort.Slice(cartridges, func(i, j int) bool {
		if cartridges[i].Priority != cartridges[j].Priority {
			return cartridges[i].Priority > cartridges[j].Priority
		}
		return cartridges[i].ID < cartridges[j].ID
	})
}
