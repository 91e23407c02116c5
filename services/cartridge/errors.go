// Copyright (C) 2026 Lodestar AI (engineering@lodestar-ai.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package cartridge

import "errors"

// =============================================================================
// SENTINEL ERRORS
// =============================================================================

var (
	// ErrPrimaryNotFound indicates the routed primary cartridge is missing
	// from the registry, which means routing and catalog disagree.
	ErrPrimaryNotFound = errors.New("primary cartridge not found in registry")

	// ErrCartridgeConflict indicates two cartridges selected for one
	// composition declare each other incompatible.
	ErrCartridgeConflict = errors.New("cartridge conflict declared")

	// ErrDuplicateID indicates a catalog source defines the same cartridge
	// id twice.
	ErrDuplicateID = errors.New("duplicate cartridge id")
)

// ConflictError reports a declared conflict between two cartridges selected
// for the same composition. Both ids are always populated so operators can
// fix the offending catalog entries.
type ConflictError struct {
	// A is the cartridge carrying the conflicts_with declaration.
	A string

	// B is the cartridge named by the declaration.
	B string
}

// Error implements the error interface.
func (e *ConflictError) Error() string {
	return "cartridge conflict declared: " + e.A + " conflicts with " + e.B
}

// Unwrap allows errors.Is checks against ErrCartridgeConflict.
func (e *ConflictError) Unwrap() error {
	return ErrCartridgeConflict
}
