// Copyright (C) 2026 Lodestar AI (engineering@lodestar-ai.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package datatypes provides request and response structures for the composer
// service.
//
// This file contains the routing request shared by the /v1/route and
// /v1/compose endpoints. Composition-only types live in compose.go, catalog
// projections in catalog.go, profile types in profiles.go.
package datatypes

import (
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/lodestar-ai/lodestar/services/cartridge/features"
	"github.com/lodestar-ai/lodestar/services/cartridge/router"
)

// =============================================================================
// Input Bounds
// =============================================================================

const (
	// MaxTextBytes is the maximum size of the free-form request text.
	// Byte length, not rune count, so oversized payloads are rejected
	// before feature extraction touches them.
	MaxTextBytes = 32 * 1024 // 32KB

	// MaxFilesPerRequest is the maximum number of attached file records
	// considered for routing. Only names and metadata travel with the
	// request; content never does.
	MaxFilesPerRequest = 20

	// MaxUserIDLen bounds the user identifier used for profile lookups.
	MaxUserIDLen = 128
)

// =============================================================================
// Shared Validator Instance
// =============================================================================

// composerValidate is the validator instance for composer datatypes.
// Initialized in init() with custom validators.
var composerValidate *validator.Validate

func init() {
	composerValidate = validator.New()

	_ = composerValidate.RegisterValidation("maxbytes", validateMaxBytes)
}

// validateMaxBytes validates that a string field does not exceed MaxTextBytes.
//
// # Description
//
// Custom validator enforcing the request text bound. Checks byte length
// rather than rune count so multi-byte payloads cannot slip past the limit.
//
// # Inputs
//
//   - fl: Validator field level containing the string to validate
//
// # Outputs
//
//   - bool: true if content <= 32KB, false otherwise
func validateMaxBytes(fl validator.FieldLevel) bool {
	content := fl.Field().String()
	return len(content) <= MaxTextBytes
}

// generateUUID returns a fresh UUID v4 string for request and response ids.
func generateUUID() string {
	return uuid.New().String()
}

// =============================================================================
// Route Request Types
// =============================================================================

// FileMeta describes one attached file by name and optional metadata.
//
// The router only ever sees the name (for its extension) and the metadata
// map; file content is out of scope for routing and must not be sent.
type FileMeta struct {
	Name     string            `json:"name" validate:"required,max=512"`
	Metadata map[string]string `json:"metadata,omitempty"`
}

// RouteRequest is the request body for POST /v1/route and POST /v1/compose.
//
// # Description
//
// RouteRequest carries the free-form text and optional file descriptors to
// route to a domain cartridge. Every request includes a unique ID and
// timestamp for audit trails. The same body drives /v1/compose, which routes
// first and then composes the selected cartridges.
//
// # Fields
//
//   - RequestID: Required. Unique identifier for this request (UUID v4).
//     Used for tracing and log correlation. EnsureDefaults generates one
//     when the client omits it.
//   - Timestamp: Required. Unix timestamp in milliseconds (UTC) when the
//     request was created. EnsureDefaults fills it when omitted.
//   - Text: Optional. The free-form request text, at most 32KB. Empty text
//     is legal; routing degrades to the general fallback.
//   - Files: Optional. Up to 20 attached file records. Names contribute
//     extension signals, metadata rides along for downstream consumers.
//   - UserID: Optional. Profile key for the preference scoring component.
//     When absent, routing runs without a profile.
//
// # Validation
//
// Uses go-playground/validator:
//   - RequestID: required, must be valid UUID v4
//   - Timestamp: required, must be > 0
//   - Text: max 32768 bytes (custom maxbytes validator)
//   - Files: at most 20 elements, each element validated
//   - UserID: at most 128 characters when present
//
// # Examples
//
//	req := RouteRequest{
//	    Text:   "Plan catalyst stability analysis",
//	    UserID: "ada",
//	}
//	req.EnsureDefaults()
//	if err := req.Validate(); err != nil { ... }
//
// # Limitations
//
//   - File content is never transmitted or read; only names and metadata
//   - An unknown UserID is not an error, the profile component just stays 0
//
// # Assumptions
//
//   - Timestamp is Unix UTC in milliseconds
//   - EnsureDefaults runs before Validate
type RouteRequest struct {
	RequestID string     `json:"request_id" validate:"required,uuid4"`
	Timestamp int64      `json:"timestamp" validate:"required,gt=0"`
	Text      string     `json:"text" validate:"maxbytes"`
	Files     []FileMeta `json:"files,omitempty" validate:"max=20,dive"`
	UserID    string     `json:"user_id,omitempty" validate:"omitempty,max=128"`
}

// Validate validates the RouteRequest fields.
//
// # Description
//
// Performs validation using go-playground/validator tags and custom
// validators. Call after binding the JSON request and after EnsureDefaults.
//
// # Outputs
//
//   - error: Non-nil if validation failed, with details about which field
func (r *RouteRequest) Validate() error {
	return composerValidate.Struct(r)
}

// EnsureDefaults populates RequestID and Timestamp when the client omitted
// them, so every request has identifiers for tracing and auditing.
func (r *RouteRequest) EnsureDefaults() {
	if r.RequestID == "" {
		r.RequestID = generateUUID()
	}
	if r.Timestamp == 0 {
		r.Timestamp = time.Now().UnixMilli()
	}
}

// ToFileInputs converts the attached file records into the feature
// extractor's input form.
func (r *RouteRequest) ToFileInputs() []features.FileInput {
	if len(r.Files) == 0 {
		return nil
	}
	out := make([]features.FileInput, len(r.Files))
	for i, f := range r.Files {
		out[i] = features.FileInput{Name: f.Name, Metadata: f.Metadata}
	}
	return out
}

// =============================================================================
// Route Response Types
// =============================================================================

// RouteResponse is the response body for POST /v1/route.
//
// # Description
//
// Echoes the request ID, carries the full routing decision including the
// ranked match list, and reports processing time for latency monitoring.
//
// # Fields
//
//   - ResponseID: Unique identifier for this response (UUID v4),
//     generated server-side.
//   - RequestID: Echo of the request ID for correlation.
//   - Timestamp: Unix timestamp in milliseconds (UTC) when the response
//     was generated.
//   - Routing: The complete routing decision: primary, overlays, safety
//     overlays, deliverable, confidence, and ranked matches.
//   - ProcessingTimeMs: Server-side processing time in milliseconds.
type RouteResponse struct {
	ResponseID       string               `json:"response_id"`
	RequestID        string               `json:"request_id"`
	Timestamp        int64                `json:"timestamp"`
	Routing          router.RoutingResult `json:"routing"`
	ProcessingTimeMs int64                `json:"processing_time_ms,omitempty"`
}

// NewRouteResponse creates a RouteResponse with a generated ResponseID and
// the current timestamp.
func NewRouteResponse(requestID string, routing router.RoutingResult) *RouteResponse {
	return &RouteResponse{
		ResponseID: generateUUID(),
		RequestID:  requestID,
		Timestamp:  time.Now().UnixMilli(),
		Routing:    routing,
	}
}
