// Copyright (C) 2026 Lodestar AI (engineering@lodestar-ai.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package handlers

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/lodestar-ai/lodestar/services/cartridge/profile"
	"github.com/lodestar-ai/lodestar/services/composer/datatypes"
	"github.com/lodestar-ai/lodestar/services/composer/observability"
	"github.com/lodestar-ai/lodestar/services/composer/telemetry"
)

// HandleGetProfile returns the handler for GET /v1/profiles/:userId.
func HandleGetProfile(profiles profile.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := c.Param("userId")
		if len(userID) > datatypes.MaxUserIDLen {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid user id"})
			return
		}

		prof, err := profiles.Get(c.Request.Context(), userID)
		if err != nil {
			if errors.Is(err, profile.ErrProfileNotFound) {
				c.JSON(http.StatusNotFound, gin.H{"error": "profile not found"})
				return
			}
			slog.Error("Failed to load profile", "error", err, "userId", userID)
			if m := observability.DefaultMetrics; m != nil {
				m.RecordError(observability.EndpointProfiles, observability.ErrorCodeStorage)
			}
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load profile"})
			return
		}
		c.JSON(http.StatusOK, prof)
	}
}

// HandlePutProfile returns the handler for PUT /v1/profiles/:userId.
//
// The path parameter is authoritative: a body that names a different user id
// is rejected rather than silently rewritten.
func HandlePutProfile(profiles profile.Store, metrics *telemetry.Metrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := c.Param("userId")
		if len(userID) > datatypes.MaxUserIDLen {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid user id"})
			return
		}

		var prof profile.UserProfile
		if err := c.ShouldBindJSON(&prof); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
			return
		}
		if prof.UserID != "" && prof.UserID != userID {
			c.JSON(http.StatusBadRequest, gin.H{"error": "user id in body does not match path"})
			return
		}
		prof.UserID = userID

		if err := profiles.Put(c.Request.Context(), &prof); err != nil {
			slog.Error("Failed to store profile", "error", err, "userId", userID)
			if m := observability.DefaultMetrics; m != nil {
				m.RecordError(observability.EndpointProfiles, observability.ErrorCodeStorage)
			}
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to store profile"})
			return
		}

		if metrics != nil {
			metrics.ProfileWritesTotal.Add(c.Request.Context(), 1)
		}
		slog.Info("Stored profile", "userId", userID)
		c.JSON(http.StatusOK, gin.H{"status": "stored", "user_id": userID})
	}
}

// HandleRecordOverride returns the handler for POST /v1/profiles/:userId/overrides.
//
// Overrides are the explicit feedback channel: when a user corrects a routing
// decision, the store boosts the corrected domain and decays the one routing
// picked. The updated profile is returned so callers can show the new state.
func HandleRecordOverride(profiles profile.Store, metrics *telemetry.Metrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := c.Param("userId")
		if len(userID) > datatypes.MaxUserIDLen {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid user id"})
			return
		}

		var req datatypes.OverrideRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
			return
		}
		if err := req.Validate(); err != nil {
			slog.Error("Override request validation failed", "error", err, "userId", userID)
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request: validation failed"})
			return
		}

		updated, err := profiles.RecordOverride(c.Request.Context(), userID, req.ToRecord())
		if err != nil {
			slog.Error("Failed to record override", "error", err, "userId", userID)
			if m := observability.DefaultMetrics; m != nil {
				m.RecordError(observability.EndpointProfiles, observability.ErrorCodeStorage)
			}
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to record override"})
			return
		}

		if metrics != nil {
			metrics.ProfileWritesTotal.Add(c.Request.Context(), 1)
		}
		slog.Info("Recorded routing override",
			"userId", userID,
			"from", req.From,
			"to", req.To,
		)
		c.JSON(http.StatusOK, updated)
	}
}
