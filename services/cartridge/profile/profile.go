// Copyright (C) 2026 Lodestar AI (engineering@lodestar-ai.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package profile stores per-user routing preferences.
//
// A profile feeds the preference component of routing scores and suggests
// overlays the user has applied before. Profiles are advisory: routing works
// identically with a nil profile, just without the preference signal.
package profile

import (
	"strings"
	"time"
)

// maxOverrideHistory bounds the retained override records per profile.
const maxOverrideHistory = 50

// maxOverrideQueryLen bounds the stored query excerpt in an override record.
const maxOverrideQueryLen = 200

// scoreBoost is added to a domain's score when the user overrides toward it.
const scoreBoost = 0.1

// scoreDecay is subtracted from a domain's score when the user overrides
// away from it.
const scoreDecay = 0.05

// OverrideRecord captures one manual correction of a routing decision.
type OverrideRecord struct {
	// From is the primary cartridge the router selected.
	From string `json:"from"`

	// To is the primary cartridge the user chose instead.
	To string `json:"to"`

	// Query is a truncated excerpt of the routed text.
	Query string `json:"query,omitempty"`

	// OccurredAt is when the override happened.
	OccurredAt time.Time `json:"occurred_at"`
}

// UserProfile is the persisted preference state for one user.
type UserProfile struct {
	UserID string `json:"user_id"`

	// DomainScores maps cartridge ids to preference scores in [0,1].
	DomainScores map[string]float64 `json:"domain_scores,omitempty"`

	// CommonOverlays lists overlay cartridges the user habitually applies.
	CommonOverlays []string `json:"common_overlays,omitempty"`

	// PreferredDeliverables maps cartridge ids to the deliverable the user
	// prefers for that domain.
	PreferredDeliverables map[string]string `json:"preferred_deliverables,omitempty"`

	// StylePreferences maps cartridge ids to the style adjustment the user
	// prefers for that domain, such as a tone or length keyword.
	StylePreferences map[string]string `json:"style_preferences,omitempty"`

	// Overrides is the recent manual-correction history, newest last.
	Overrides []OverrideRecord `json:"overrides,omitempty"`

	UpdatedAt time.Time `json:"updated_at"`
}

// NewUserProfile returns an empty profile for the given user.
func NewUserProfile(userID string) *UserProfile {
	return &UserProfile{
		UserID:       userID,
		DomainScores: make(map[string]float64),
	}
}

// Normalize clamps domain scores to [0,1] and deduplicates overlays.
// Call before persisting externally supplied profiles.
func (p *UserProfile) Normalize() {
	for id, score := range p.DomainScores {
		if score < 0 {
			p.DomainScores[id] = 0
		} else if score > 1 {
			p.DomainScores[id] = 1
		}
	}

	if len(p.CommonOverlays) > 0 {
		seen := make(map[string]bool, len(p.CommonOverlays))
		deduped := p.CommonOverlays[:0]
		for _, id := range p.CommonOverlays {
			id = strings.TrimSpace(id)
			if id == "" || seen[id] {
				continue
			}
			seen[id] = true
			deduped = append(deduped, id)
		}
		p.CommonOverlays = deduped
	}
}

// ApplyOverride folds one manual correction into the profile: the chosen
// domain gains preference, the rejected one loses a little, and the record
// joins the bounded history.
func (p *UserProfile) ApplyOverride(rec OverrideRecord) {
	if p.DomainScores == nil {
		p.DomainScores = make(map[string]float64)
	}
	if rec.To != "" {
		score := p.DomainScores[rec.To] + scoreBoost
		if score > 1 {
			score = 1
		}
		p.DomainScores[rec.To] = score
	}
	if rec.From != "" && rec.From != rec.To {
		score := p.DomainScores[rec.From] - scoreDecay
		if score < 0 {
			score = 0
		}
		p.DomainScores[rec.From] = score
	}

	if len(rec.Query) > maxOverrideQueryLen {
		rec.Query = rec.Query[:maxOverrideQueryLen]
	}
	if rec.OccurredAt.IsZero() {
		rec.OccurredAt = time.Now().UTC()
	}
	p.Overrides = append(p.Overrides, rec)
	if len(p.Overrides) > maxOverrideHistory {
		p.Overrides = p.Overrides[len(p.Overrides)-maxOverrideHistory:]
	}
	p.UpdatedAt = rec.OccurredAt
}

// Clone returns a deep copy, so callers can hand out profiles without
// sharing mutable state.
func (p *UserProfile) Clone() *UserProfile {
	if p == nil {
		return nil
	}
	clone := &UserProfile{
		UserID:    p.UserID,
		UpdatedAt: p.UpdatedAt,
	}
	if p.DomainScores != nil {
		clone.DomainScores = make(map[string]float64, len(p.DomainScores))
		for id, score := range p.DomainScores {
			clone.DomainScores[id] = score
		}
	}
	if p.CommonOverlays != nil {
		clone.CommonOverlays = append([]string(nil), p.CommonOverlays...)
	}
	if p.PreferredDeliverables != nil {
		clone.PreferredDeliverables = make(map[string]string, len(p.PreferredDeliverables))
		for id, d := range p.PreferredDeliverables {
			clone.PreferredDeliverables[id] = d
		}
	}
	if p.StylePreferences != nil {
		clone.StylePreferences = make(map[string]string, len(p.StylePreferences))
		for id, s := range p.StylePreferences {
			clone.StylePreferences[id] = s
		}
	}
	if p.Overrides != nil {
		clone.Overrides = append([]OverrideRecord(nil), p.Overrides...)
	}
	return clone
}
