// Copyright (C) 2026 Lodestar AI (engineering@lodestar-ai.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package compose

import (
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/lodestar-ai/lodestar/services/cartridge"
)

// mergeCartridges folds the ordered application list into one composed
// cartridge.
//
// The list arrives in application order (safety first, primary last) and is
// walked in reverse, so the primary contributes first and safety cartridges
// contribute last. Each field group has its own precedence rule; apart from
// the generated id and timestamp the result is fully determined by the
// input order.
func mergeCartridges(ordered []cartridge.Cartridge) *ComposedCartridge {
	out := &ComposedCartridge{
		ID:                uuid.NewString(),
		SourceCartridges:  make([]string, len(ordered)),
		Templates:         map[string]string{},
		ConflictsResolved: []ConflictResolution{},
		CreatedAt:         time.Now().UnixMilli(),
	}
	for i, c := range ordered {
		out.SourceCartridges[i] = c.ID
	}

	m := &merger{
		out: out,
		// The head of the application order is walked last; it is the
		// only non-safety cartridge with overwrite rights.
		outermostID:     ordered[0].ID,
		seenTopics:      map[string]bool{},
		seenDisclaimers: map[string]bool{},
		seenOptions:     map[string]bool{},
	}
	for i := len(ordered) - 1; i >= 0; i-- {
		m.apply(&ordered[i])
	}
	m.finish()
	return out
}

// merger accumulates the reverse walk. Validators and rubrics keep separate
// safety-front and regular segments until finish joins and deduplicates them.
type merger struct {
	out         *ComposedCartridge
	outermostID string

	riskSet          bool
	validatorsSeeded bool

	validatorFront []string
	validatorRest  []string
	rubricFront    []string
	rubricRest     []string

	seenTopics      map[string]bool
	seenDisclaimers map[string]bool
	seenOptions     map[string]bool
}

func (m *merger) apply(c *cartridge.Cartridge) {
	safety := cartridge.IsSafetyCartridge(c.ID)
	m.mergeSafety(c, safety)
	m.mergeValidators(c, safety)
	m.mergeRubrics(c, safety)
	m.mergeStyle(c, safety)
	m.mergeTemplates(c, safety)
	m.mergeDeliverables(c)
}

func (m *merger) finish() {
	m.out.Validators = dedupJoin(m.validatorFront, m.validatorRest)
	m.out.Rubrics = dedupJoin(m.rubricFront, m.rubricRest)
}

func (m *merger) audit(property, winnerID, reason string) {
	m.out.ConflictsResolved = append(m.out.ConflictsResolved, ConflictResolution{
		Property: property,
		WinnerID: winnerID,
		Reason:   reason,
	})
}

// mergeSafety tightens the safety envelope: booleans OR together, list
// fields union, and the risk cap only ever moves toward more restrictive.
func (m *merger) mergeSafety(c *cartridge.Cartridge, safety bool) {
	m.orFlag(&m.out.Safety.ForbidProcedures, c.Safety.ForbidProcedures, "safety.forbid_procedures", c.ID, safety)
	m.orFlag(&m.out.Safety.ForbidHarmful, c.Safety.ForbidHarmful, "safety.forbid_harmful", c.ID, safety)
	m.orFlag(&m.out.Safety.RedactPII, c.Safety.RedactPII, "safety.redact_pii", c.ID, safety)

	m.out.Safety.TopicBlocks = appendUnique(m.out.Safety.TopicBlocks, c.Safety.TopicBlocks, m.seenTopics)
	m.out.Safety.RequiredDisclaimers = appendUnique(m.out.Safety.RequiredDisclaimers, c.Safety.RequiredDisclaimers, m.seenDisclaimers)

	if c.Safety.MaxRiskLevel == "" {
		return
	}
	switch {
	case !m.riskSet:
		m.out.Safety.MaxRiskLevel = c.Safety.MaxRiskLevel
		m.riskSet = true
	case c.Safety.MaxRiskLevel.MoreRestrictiveThan(m.out.Safety.MaxRiskLevel):
		m.out.Safety.MaxRiskLevel = c.Safety.MaxRiskLevel
		m.audit("safety.max_risk_level", c.ID, ReasonSafetyOverride)
	}
}

// orFlag raises a boolean flag, never lowers it. Only the transition to
// true by a safety cartridge is worth an audit record.
func (m *merger) orFlag(dst *bool, val bool, property, id string, safety bool) {
	if !val || *dst {
		return
	}
	*dst = true
	if safety {
		m.audit(property, id, ReasonSafetyOverride)
	}
}

// mergeValidators admits safety validator sets at the front and exactly one
// non-safety set (the first walked, normally the primary's) at the back.
func (m *merger) mergeValidators(c *cartridge.Cartridge, safety bool) {
	if len(c.Validators) == 0 {
		return
	}
	switch {
	case safety:
		m.validatorFront = append(append([]string(nil), c.Validators...), m.validatorFront...)
		m.audit("validators", c.ID, ReasonSafetyOverride)
	case !m.validatorsSeeded:
		m.validatorRest = append(m.validatorRest, c.Validators...)
		m.validatorsSeeded = true
		m.audit("validators", c.ID, ReasonFirstValidator)
	}
}

// mergeRubrics unions every contribution, safety rubrics at the front.
func (m *merger) mergeRubrics(c *cartridge.Cartridge, safety bool) {
	if len(c.Rubrics) == 0 {
		return
	}
	if safety {
		m.rubricFront = append(append([]string(nil), c.Rubrics...), m.rubricFront...)
		return
	}
	m.rubricRest = append(m.rubricRest, c.Rubrics...)
}

// mergeStyle fills empty fields from any cartridge; overwriting a set field
// is reserved for safety cartridges and the outermost cartridge.
func (m *merger) mergeStyle(c *cartridge.Cartridge, safety bool) {
	if c.Style.IsZero() {
		return
	}
	canOverwrite := safety || c.ID == m.outermostID
	m.setField(&m.out.Style.Tone, c.Style.Tone, "style.tone", c.ID, canOverwrite)
	m.setField(&m.out.Style.Units, c.Style.Units, "style.units", c.ID, canOverwrite)
	m.setField(&m.out.Style.CitationStyle, c.Style.CitationStyle, "style.citation_style", c.ID, canOverwrite)
	m.setField(&m.out.Style.LengthPreference, c.Style.LengthPreference, "style.length_preference", c.ID, canOverwrite)
	m.setField(&m.out.Style.Structure, c.Style.Structure, "style.structure", c.ID, canOverwrite)
}

func (m *merger) setField(dst *string, val, property, id string, canOverwrite bool) {
	if val == "" {
		return
	}
	if *dst == "" {
		*dst = val
		return
	}
	if !canOverwrite || *dst == val {
		return
	}
	*dst = val
	m.audit(property, id, ReasonStyleOverride)
}

// mergeTemplates works like style, per template name. Names are visited in
// sorted order so the audit trail is deterministic.
func (m *merger) mergeTemplates(c *cartridge.Cartridge, safety bool) {
	if len(c.Templates) == 0 {
		return
	}
	canOverwrite := safety || c.ID == m.outermostID

	names := make([]string, 0, len(c.Templates))
	for name := range c.Templates {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		val := c.Templates[name]
		current, exists := m.out.Templates[name]
		if !exists || current == "" {
			m.out.Templates[name] = val
			continue
		}
		if !canOverwrite || current == val {
			continue
		}
		m.out.Templates[name] = val
		m.audit("templates."+name, c.ID, ReasonTemplateOverride)
	}
}

// mergeDeliverables keeps the first default seen (the primary walks first),
// unions options, and lets later walks overwrite schema references.
func (m *merger) mergeDeliverables(c *cartridge.Cartridge) {
	if m.out.Deliverables.Default == "" && c.Deliverables.Default != "" {
		m.out.Deliverables.Default = c.Deliverables.Default
	}
	m.out.Deliverables.Options = appendUnique(m.out.Deliverables.Options, c.Deliverables.Options, m.seenOptions)
	if len(c.Deliverables.Schemas) > 0 {
		if m.out.Deliverables.Schemas == nil {
			m.out.Deliverables.Schemas = make(map[string]string, len(c.Deliverables.Schemas))
		}
		for name, ref := range c.Deliverables.Schemas {
			m.out.Deliverables.Schemas[name] = ref
		}
	}
}

// appendUnique appends the values not yet seen, preserving encounter order.
func appendUnique(dst []string, values []string, seen map[string]bool) []string {
	for _, v := range values {
		if v == "" || seen[v] {
			continue
		}
		seen[v] = true
		dst = append(dst, v)
	}
	return dst
}

// dedupJoin concatenates front and rest, dropping later duplicates.
func dedupJoin(front, rest []string) []string {
	if len(front) == 0 && len(rest) == 0 {
		return nil
	}
	out := make([]string, 0, len(front)+len(rest))
	seen := make(map[string]bool, len(front)+len(rest))
	for _, list := range [][]string{front, rest} {
		for _, v := range list {
			if seen[v] {
				continue
			}
			seen[v] = true
			out = append(out, v)
		}
	}
	return out
}
