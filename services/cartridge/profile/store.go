// Copyright (C) 2026 Lodestar AI (engineering@lodestar-ai.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package profile

import (
	"context"
	"errors"
	"sync"
	"time"
)

// ==== SENTINEL ERRORS ====

// ErrProfileNotFound indicates no profile exists for the requested user.
var ErrProfileNotFound = errors.New("user profile not found")

// Store persists user profiles.
//
// Description:
//
//	Implementations must treat profiles as value objects: Get returns a
//	copy the caller may mutate freely, and Put persists a snapshot of the
//	argument. RecordOverride is an atomic read-modify-write so concurrent
//	overrides never lose history.
//
// Thread Safety:
//
//	Implementations must be safe for concurrent use.
type Store interface {
	// Get returns the profile for userID, or ErrProfileNotFound.
	Get(ctx context.Context, userID string) (*UserProfile, error)

	// Put persists the profile, replacing any existing one.
	Put(ctx context.Context, profile *UserProfile) error

	// RecordOverride applies one manual correction to the user's profile,
	// creating the profile if absent, and returns the updated state.
	RecordOverride(ctx context.Context, userID string, rec OverrideRecord) (*UserProfile, error)

	// Close releases store resources.
	Close() error
}

// MemoryStore is an in-process Store for tests and single-shot runs.
type MemoryStore struct {
	mu       sync.RWMutex
	profiles map[string]*UserProfile
}

var _ Store = (*MemoryStore)(nil)

// NewMemoryStore returns an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{profiles: make(map[string]*UserProfile)}
}

// Get returns a copy of the stored profile.
func (s *MemoryStore) Get(ctx context.Context, userID string) (*UserProfile, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.profiles[userID]
	if !ok {
		return nil, ErrProfileNotFound
	}
	return p.Clone(), nil
}

// Put stores a snapshot of the profile.
func (s *MemoryStore) Put(ctx context.Context, profile *UserProfile) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if profile == nil || profile.UserID == "" {
		return errors.New("profile with user id is required")
	}
	clone := profile.Clone()
	clone.Normalize()
	if clone.UpdatedAt.IsZero() {
		clone.UpdatedAt = time.Now().UTC()
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.profiles[profile.UserID] = clone
	return nil
}

// RecordOverride applies the override under the write lock.
func (s *MemoryStore) RecordOverride(ctx context.Context, userID string, rec OverrideRecord) (*UserProfile, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if userID == "" {
		return nil, errors.New("user id is required")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.profiles[userID]
	if !ok {
		p = NewUserProfile(userID)
		s.profiles[userID] = p
	}
	p.ApplyOverride(rec)
	return p.Clone(), nil
}

// Close is a no-op for the in-memory store.
func (s *MemoryStore) Close() error {
	return nil
}
