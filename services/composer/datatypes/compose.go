// Copyright (C) 2026 Lodestar AI (engineering@lodestar-ai.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package datatypes

import (
	"time"

	"github.com/lodestar-ai/lodestar/services/cartridge/compose"
	"github.com/lodestar-ai/lodestar/services/cartridge/router"
)

// ComposeResponse is the response body for POST /v1/compose.
//
// # Description
//
// Carries both halves of the pipeline: the routing decision that selected
// the cartridges and the merged result of composing them, plus a
// human-readable explanation of what was assembled and why.
//
// # Fields
//
//   - ResponseID: Unique identifier for this response (UUID v4),
//     generated server-side.
//   - RequestID: Echo of the request ID for correlation.
//   - Timestamp: Unix timestamp in milliseconds (UTC) when the response
//     was generated.
//   - Routing: The routing decision the composition was built from.
//   - Composed: The merged cartridge: safety union, effective style,
//     templates, deliverables, rubric and validator chains, and the
//     conflict audit trail.
//   - Explanation: Rendered summary of the source chain, resolved
//     conflicts, and active safety features.
//   - ProcessingTimeMs: Server-side processing time in milliseconds,
//     covering routing and composition together.
type ComposeResponse struct {
	ResponseID       string                     `json:"response_id"`
	RequestID        string                     `json:"request_id"`
	Timestamp        int64                      `json:"timestamp"`
	Routing          router.RoutingResult       `json:"routing"`
	Composed         *compose.ComposedCartridge `json:"composed"`
	Explanation      string                     `json:"explanation,omitempty"`
	ProcessingTimeMs int64                      `json:"processing_time_ms,omitempty"`
}

// NewComposeResponse creates a ComposeResponse with a generated ResponseID
// and the current timestamp.
func NewComposeResponse(requestID string, routing router.RoutingResult, composed *compose.ComposedCartridge, explanation string) *ComposeResponse {
	return &ComposeResponse{
		ResponseID:  generateUUID(),
		RequestID:   requestID,
		Timestamp:   time.Now().UnixMilli(),
		Routing:     routing,
		Composed:    composed,
		Explanation: explanation,
	}
}
