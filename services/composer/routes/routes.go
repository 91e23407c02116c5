// Copyright (C) 2026 Lodestar AI (engineering@lodestar-ai.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package routes wires the composer HTTP surface onto a gin engine.
package routes

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/lodestar-ai/lodestar/services/cartridge"
	"github.com/lodestar-ai/lodestar/services/cartridge/compose"
	"github.com/lodestar-ai/lodestar/services/cartridge/profile"
	"github.com/lodestar-ai/lodestar/services/cartridge/router"
	"github.com/lodestar-ai/lodestar/services/composer/handlers"
	"github.com/lodestar-ai/lodestar/services/composer/telemetry"
)

// SetupRoutes registers every composer endpoint. metricsHandler is the
// Prometheus scrape handler; nil skips the /metrics route, which is the case
// when the metrics exporter is disabled.
func SetupRoutes(engine *gin.Engine, registry *cartridge.Registry, domainRouter router.Router,
	composer compose.Composer, profiles profile.Store, metrics *telemetry.Metrics,
	metricsHandler http.Handler) {

	engine.GET("/health", handlers.HealthCheck)
	if metricsHandler != nil {
		engine.GET("/metrics", gin.WrapH(metricsHandler))
	}

	// API version 1 group
	v1 := engine.Group("/v1")
	{
		v1.POST("/route", handlers.HandleRoute(domainRouter, profiles, metrics))
		v1.POST("/compose", handlers.HandleCompose(domainRouter, composer, profiles, metrics))

		// Catalog administration routes
		cartridges := v1.Group("/cartridges")
		{
			cartridges.GET("", handlers.HandleListCartridges(registry))
			cartridges.GET("/:id", handlers.HandleGetCartridge(registry))
			cartridges.POST("", handlers.HandleRegisterCartridge(registry))
		}

		// Profile routes
		profilesGroup := v1.Group("/profiles")
		{
			profilesGroup.GET("/:userId", handlers.HandleGetProfile(profiles))
			profilesGroup.PUT("/:userId", handlers.HandlePutProfile(profiles, metrics))
			profilesGroup.POST("/:userId/overrides", handlers.HandleRecordOverride(profiles, metrics))
		}
	}
}
