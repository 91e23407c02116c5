// Copyright (C) 2026 Lodestar AI (engineering@lodestar-ai.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package cartridge

import (
	"strings"
	"sync"
	"sync/atomic"
)

// snapshot is one immutable view of the catalog. Readers load the current
// snapshot atomically and never see a partially applied change.
type snapshot struct {
	byID map[string]Cartridge
}

var emptySnapshot = &snapshot{byID: map[string]Cartridge{}}

// Registry stores cartridge definitions and answers catalog lookups.
//
// Description:
//
//	The full catalog lives in an immutable snapshot behind an atomic
//	pointer. Lookups are lock-free; Register and Replace build a fresh
//	snapshot under a writer mutex and publish it in one pointer swap.
//	A route computed against the previous snapshot stays internally
//	consistent, it just reflects the catalog as of its start.
//
// Thread Safety: Safe for concurrent use.
type Registry struct {
	mu      sync.Mutex
	current atomic.Pointer[snapshot]
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	r := &Registry{}
	r.current.Store(emptySnapshot)
	return r
}

// NewRegistryWith returns a registry pre-populated with the given cartridges.
// Later duplicates of an id replace earlier ones, mirroring Register.
func NewRegistryWith(cartridges []Cartridge) *Registry {
	r := NewRegistry()
	r.Replace(cartridges)
	return r
}

// Register inserts or replaces a cartridge by id.
//
// The cartridge is assumed validated and compiled; Register never fails.
// Existing routes in flight keep the snapshot they started with.
func (r *Registry) Register(c Cartridge) {
	r.mu.Lock()
	defer r.mu.Unlock()

	old := r.current.Load()
	next := &snapshot{byID: make(map[string]Cartridge, len(old.byID)+1)}
	for id, existing := range old.byID {
		next.byID[id] = existing
	}
	next.byID[c.ID] = c
	r.current.Store(next)
}

// Replace swaps the entire catalog for the given cartridges in one publish.
// Used by the reload task so readers never observe a half-applied reload.
func (r *Registry) Replace(cartridges []Cartridge) {
	next := &snapshot{byID: make(map[string]Cartridge, len(cartridges))}
	for _, c := range cartridges {
		next.byID[c.ID] = c
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.current.Store(next)
}

// Get returns the cartridge with the given id.
func (r *Registry) Get(id string) (Cartridge, bool) {
	c, ok := r.current.Load().byID[id]
	return c, ok
}

// List returns every registered cartridge, ordered by priority then id.
func (r *Registry) List() []Cartridge {
	snap := r.current.Load()
	out := make([]Cartridge, 0, len(snap.byID))
	for _, c := range snap.byID {
		out = append(out, c)
	}
	SortByPriority(out)
	return out
}

// Len returns the number of registered cartridges.
func (r *Registry) Len() int {
	return len(r.current.Load().byID)
}

// FindByKeywords returns cartridges whose activation keywords overlap the
// given keywords. Matching is case-insensitive and substring in either
// direction, so "spectroscopy" finds a cartridge keyed on "spectro" and
// vice versa. Results are ordered by priority then id.
func (r *Registry) FindByKeywords(keywords []string) []Cartridge {
	snap := r.current.Load()
	if len(keywords) == 0 || len(snap.byID) == 0 {
		return nil
	}

	lowered := make([]string, 0, len(keywords))
	for _, kw := range keywords {
		kw = strings.ToLower(strings.TrimSpace(kw))
		if kw != "" {
			lowered = append(lowered, kw)
		}
	}

	var out []Cartridge
	for _, c := range snap.byID {
		if keywordOverlap(lowered, c.Activation.Keywords) {
			out = append(out, c)
		}
	}
	SortByPriority(out)
	return out
}

// keywordOverlap reports whether any query keyword matches any activator
// keyword, substring in either direction.
func keywordOverlap(query []string, activators []string) bool {
	for _, a := range activators {
		a = strings.ToLower(a)
		for _, q := range query {
			if strings.Contains(q, a) || strings.Contains(a, q) {
				return true
			}
		}
	}
	return false
}

// MandatorySafetyOverlays returns the safety cartridge ids that must always
// accompany the given primary domain. Unknown domains return nil.
func (r *Registry) MandatorySafetyOverlays(primaryID string) []string {
	ids, ok := mandatorySafety[primaryID]
	if !ok {
		return nil
	}
	out := make([]string, len(ids))
	copy(out, ids)
	return out
}
