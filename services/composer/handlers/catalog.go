// Copyright (C) 2026 Lodestar AI (engineering@lodestar-ai.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package handlers

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/lodestar-ai/lodestar/services/cartridge"
	"github.com/lodestar-ai/lodestar/services/composer/datatypes"
	"github.com/lodestar-ai/lodestar/services/composer/observability"
)

// HandleListCartridges returns the handler for GET /v1/cartridges. The
// catalog is returned as summaries, ordered by priority then id.
func HandleListCartridges(registry *cartridge.Registry) gin.HandlerFunc {
	return func(c *gin.Context) {
		list := registry.List()
		summaries := make([]datatypes.CartridgeSummary, 0, len(list))
		for _, entry := range list {
			summaries = append(summaries, datatypes.NewCartridgeSummary(entry))
		}
		c.JSON(http.StatusOK, datatypes.CatalogResponse{
			Count:      len(summaries),
			Cartridges: summaries,
		})
	}
}

// HandleGetCartridge returns the handler for GET /v1/cartridges/:id. The
// full definition is returned so operators can see exactly what composition
// will merge.
func HandleGetCartridge(registry *cartridge.Registry) gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.Param("id")
		entry, ok := registry.Get(id)
		if !ok {
			if m := observability.DefaultMetrics; m != nil {
				m.RecordError(observability.EndpointCatalog, observability.ErrorCodeNotFound)
			}
			c.JSON(http.StatusNotFound, gin.H{"error": "cartridge not found"})
			return
		}
		c.JSON(http.StatusOK, entry)
	}
}

// HandleRegisterCartridge returns the handler for POST /v1/cartridges.
//
// Registration is an upsert: posting an existing id replaces that catalog
// entry in one snapshot swap. The definition is validated and its activation
// pattern compiled before routing can see it.
func HandleRegisterCartridge(registry *cartridge.Registry) gin.HandlerFunc {
	return func(c *gin.Context) {
		var def cartridge.Cartridge
		if err := c.ShouldBindJSON(&def); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
			return
		}

		if err := def.Validate(); err != nil {
			slog.Error("Rejected cartridge registration", "error", err, "id", def.ID)
			c.JSON(http.StatusBadRequest, gin.H{
				"error":   "invalid cartridge definition",
				"details": err.Error(),
			})
			return
		}
		if err := def.CompileActivation(); err != nil {
			slog.Error("Rejected cartridge registration", "error", err, "id", def.ID)
			c.JSON(http.StatusBadRequest, gin.H{
				"error":   "invalid cartridge definition",
				"details": err.Error(),
			})
			return
		}

		_, replaced := registry.Get(def.ID)
		registry.Register(def)

		slog.Info("Registered cartridge", "id", def.ID, "replaced", replaced)
		c.JSON(http.StatusCreated, datatypes.NewCartridgeSummary(def))
	}
}
