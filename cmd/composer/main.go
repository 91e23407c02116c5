// Copyright (C) 2026 Lodestar AI (engineering@lodestar-ai.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Command composer starts the Lodestar composer HTTP server.
//
// This is the main entry point for the containerized composer service.
// It reads configuration from environment variables and starts the server.
//
// # Environment Variables
//
//   - COMPOSER_PORT: HTTP server port (default: 12310)
//   - LODESTAR_CATALOG_DIR: cartridge catalog directory (default: embedded catalog)
//   - LODESTAR_WATCH_CATALOG: hot-reload the catalog directory - true/false (default: false)
//   - LODESTAR_PROFILE_DB_PATH: profile database directory (default: in-memory)
//   - LODESTAR_LOG_LEVEL: log level - debug, info, warn, error (default: info)
//   - LODESTAR_LOG_DIR: directory for JSON log files (default: stderr only)
//   - LODESTAR_ENV: deployment environment name (default: development)
//   - OTEL_TRACES_EXPORTER: trace exporter - otlp, stdout, none (default: otlp)
//   - OTEL_METRICS_EXPORTER: metric exporter - prometheus, stdout, none (default: prometheus)
//   - OTEL_EXPORTER_OTLP_ENDPOINT: OpenTelemetry collector (default: localhost:4317)
//   - GIN_MODE: gin framework mode - debug, release, test
//
// # Usage
//
//	# Build
//	go build -o composer ./cmd/composer
//
//	# Run
//	./composer
//
//	# Or via container
//	podman-compose up composer
package main

import (
	"log"
	"log/slog"
	"os"
	"strconv"

	"github.com/mattn/go-isatty"

	"github.com/lodestar-ai/lodestar/pkg/logging"
	"github.com/lodestar-ai/lodestar/services/composer"
)

func main() {
	// Setup structured logging. Terminals get human-readable text,
	// everything else (containers, pipes) gets JSON.
	level, err := logging.ParseLevel(os.Getenv("LODESTAR_LOG_LEVEL"))
	if err != nil {
		log.Fatalf("Invalid LODESTAR_LOG_LEVEL: %v", err)
	}
	tty := isatty.IsTerminal(os.Stderr.Fd()) || isatty.IsCygwinTerminal(os.Stderr.Fd())
	logger := logging.New(logging.Config{
		Level:   level,
		LogDir:  os.Getenv("LODESTAR_LOG_DIR"),
		Service: "composer",
		JSON:    !tty,
	})
	defer logger.Close()
	slog.SetDefault(logger.Slog())

	// Build configuration from environment variables
	cfg := composer.Config{
		Port:          getEnvInt("COMPOSER_PORT", 12310),
		CatalogDir:    os.Getenv("LODESTAR_CATALOG_DIR"),
		WatchCatalog:  getEnvBool("LODESTAR_WATCH_CATALOG", false),
		ProfileDBPath: os.Getenv("LODESTAR_PROFILE_DB_PATH"),
		GinMode:       os.Getenv("GIN_MODE"),
	}

	slog.Info("Starting composer",
		"port", cfg.Port,
		"catalog_dir", cfg.CatalogDir,
		"watch_catalog", cfg.WatchCatalog,
		"profile_db_path", cfg.ProfileDBPath,
	)

	svc, err := composer.New(cfg)
	if err != nil {
		log.Fatalf("Failed to create composer: %v", err)
	}

	// Run the server (blocks until shutdown)
	if err := svc.Run(); err != nil {
		log.Fatalf("Composer error: %v", err)
	}
}

// getEnvInt returns the environment variable as int or a default.
func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

// getEnvBool returns the environment variable as bool or a default.
func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return defaultValue
}
