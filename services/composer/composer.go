// Copyright (C) 2026 Lodestar AI (engineering@lodestar-ai.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package composer provides the cartridge composition service for Lodestar.
//
// This package contains the main service type that coordinates all
// components of the composition pipeline: HTTP routing, the cartridge
// catalog registry, the domain router, the composer, the user profile
// store, and observability infrastructure.
//
// # Usage
//
// Embedded catalog, in-memory profiles (good for local development):
//
//	cfg := composer.Config{Port: 12310}
//	svc, err := composer.New(cfg)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	log.Fatal(svc.Run())
//
// Production with a catalog directory and persistent profiles:
//
//	cfg := composer.Config{
//	    Port:          12310,
//	    CatalogDir:    "/etc/lodestar/cartridges",
//	    WatchCatalog:  true,
//	    ProfileDBPath: "/var/lib/lodestar/profiles",
//	}
//	svc, err := composer.New(cfg)
package composer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
	"golang.org/x/sync/errgroup"

	"github.com/lodestar-ai/lodestar/services/cartridge"
	"github.com/lodestar-ai/lodestar/services/cartridge/compose"
	"github.com/lodestar-ai/lodestar/services/cartridge/features"
	"github.com/lodestar-ai/lodestar/services/cartridge/loader"
	"github.com/lodestar-ai/lodestar/services/cartridge/profile"
	"github.com/lodestar-ai/lodestar/services/cartridge/router"
	"github.com/lodestar-ai/lodestar/services/composer/observability"
	"github.com/lodestar-ai/lodestar/services/composer/routes"
	"github.com/lodestar-ai/lodestar/services/composer/telemetry"
)

// =============================================================================
// Interface Definition
// =============================================================================

// Service defines the contract for the composer service.
//
// # Description
//
// Service abstracts the composer lifecycle, enabling testing and
// alternative implementations. The interface follows the minimal surface
// area principle - only essential lifecycle methods are exposed.
//
// # Thread Safety
//
// Implementations must be safe for concurrent use. Run() blocks and should
// only be called once per instance.
//
// # Limitations
//
//   - Run() blocks until the server stops or a shutdown signal arrives
//
// # Assumptions
//
//   - Service is fully initialized before Run() is called
//   - Run() is called at most once per Service instance
type Service interface {
	// Run starts the HTTP server and blocks until shutdown or error.
	//
	// # Description
	//
	// Starts the Gin HTTP server on the configured port. This method
	// blocks until the server stops due to error, SIGINT, or SIGTERM.
	// On a shutdown signal the server drains in-flight requests before
	// returning.
	//
	// # Inputs
	//
	// None (configuration provided at construction time).
	//
	// # Outputs
	//
	//   - error: Non-nil if the server fails to start or encounters a fatal error
	//
	// # Examples
	//
	//   if err := svc.Run(); err != nil {
	//       log.Fatalf("server error: %v", err)
	//   }
	//
	// # Limitations
	//
	//   - Blocks until the server stops
	//   - Cleanup is automatic on return
	//
	// # Assumptions
	//
	//   - Service was successfully created via New()
	//   - Port is available and not in use
	Run() error

	// Router returns the underlying Gin engine for testing.
	//
	// # Description
	//
	// Provides access to the configured Gin router, primarily for
	// integration testing where direct HTTP calls are needed.
	//
	// # Outputs
	//
	//   - *gin.Engine: The configured router with all routes registered
	//
	// # Limitations
	//
	//   - Should not be used to modify routes after construction
	//
	// # Assumptions
	//
	//   - Caller will not modify the router
	Router() *gin.Engine
}

// =============================================================================
// Configuration
// =============================================================================

// Config holds composer service configuration options.
//
// # Description
//
// Config centralizes all configuration for the composer service.
// Values can be populated from environment variables, config files,
// or programmatically for testing.
//
// # Required Fields
//
// None - all fields have sensible defaults.
//
// # Optional Fields
//
// All fields are optional with defaults applied by New().
//
// # Examples
//
//	// Minimal config (embedded catalog, in-memory profiles)
//	cfg := Config{}
//
//	// Custom port with a catalog directory
//	cfg := Config{
//	    Port:       8080,
//	    CatalogDir: "./cartridges",
//	}
//
//	// Full configuration
//	cfg := Config{
//	    Port:          12310,
//	    CatalogDir:    "/etc/lodestar/cartridges",
//	    WatchCatalog:  true,
//	    ProfileDBPath: "/var/lib/lodestar/profiles",
//	    GinMode:       "release",
//	}
type Config struct {
	// Port is the HTTP server port. Default: 12310
	Port int

	// CatalogDir is a directory of cartridge catalog files.
	// If empty, the embedded default catalog is used.
	CatalogDir string

	// WatchCatalog enables hot reload of CatalogDir on file changes.
	// Ignored when CatalogDir is empty.
	// Default: false
	WatchCatalog bool

	// ProfileDBPath is the directory for the persistent profile database.
	// If empty, profiles are kept in memory and lost on restart.
	ProfileDBPath string

	// GinMode sets the Gin framework mode.
	// Valid values: "debug", "release", "test"
	// Default: uses GIN_MODE env var or "debug"
	GinMode string

	// Telemetry configures tracing and metrics export.
	// Zero value: telemetry.DefaultConfig()
	Telemetry telemetry.Config
}

// =============================================================================
// Implementation
// =============================================================================

// service implements Service for production use.
//
// # Description
//
// service is the main implementation that coordinates:
//   - HTTP routing via Gin
//   - Cartridge catalog registry with optional hot reload
//   - Domain routing of request text and file signals
//   - Cartridge composition with safety overlay injection
//   - User profile persistence via Badger
//   - OpenTelemetry tracing and metrics
//
// # Fields
//
//   - config: Service configuration
//   - router: Gin HTTP engine
//   - registry: Cartridge catalog registry
//   - domainRouter: Scores and selects cartridges for requests
//   - composer: Merges routed cartridges into a composed result
//   - profiles: User profile store (Badger-backed or in-memory)
//   - watcher: Catalog hot-reload watcher (may be nil)
//   - metrics: Composer metric instruments
//   - catalogGauge: Registration for the catalog size gauge (may be nil)
//   - telemetryShutdown: Function to flush and stop telemetry on exit
//
// # Thread Safety
//
// Thread-safe after construction. All fields are read-only after New() returns.
//
// # Limitations
//
//   - No hot-reload of configuration (catalog content reloads, config does not)
//
// # Assumptions
//
//   - The OTLP collector is reachable if the otlp trace exporter is configured
type service struct {
	config            Config
	router            *gin.Engine
	registry          *cartridge.Registry
	domainRouter      router.Router
	composer          compose.Composer
	profiles          profile.Store
	watcher           *loader.CatalogWatcher
	metrics           *telemetry.Metrics
	catalogGauge      metric.Registration
	telemetryShutdown func(context.Context) error
}

// =============================================================================
// Constructor
// =============================================================================

// New creates a new composer Service with the given configuration.
//
// # Description
//
// New initializes all composer components:
//  1. Applies default configuration for missing values
//  2. Initializes OpenTelemetry tracing and metrics
//  3. Initializes Prometheus HTTP metrics
//  4. Loads the cartridge catalog (directory or embedded default)
//  5. Starts the catalog watcher if hot reload is enabled
//  6. Opens the profile store (Badger on disk or in memory)
//  7. Creates the domain router and composer
//  8. Sets up HTTP routes
//
// # Inputs
//
//   - cfg: Service configuration. Zero values use defaults.
//
// # Outputs
//
//   - Service: Ready-to-run composer service
//   - error: Non-nil if initialization fails
//
// # Examples
//
//	cfg := Config{Port: 12310, CatalogDir: "./cartridges"}
//	svc, err := New(cfg)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	log.Fatal(svc.Run())
//
// # Limitations
//
//   - Catalog loading fails hard: a service with no catalog cannot route
//   - Watcher startup failure is non-fatal; hot reload is simply disabled
//
// # Assumptions
//
//   - CatalogDir, if set, exists and contains at least one valid catalog file
//   - ProfileDBPath, if set, is writable
func New(cfg Config) (Service, error) {
	s := &service{
		config: applyConfigDefaults(cfg),
	}

	// Initialize OpenTelemetry tracing and metrics
	shutdown, err := telemetry.Init(context.Background(), s.config.Telemetry)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize telemetry: %w", err)
	}
	s.telemetryShutdown = shutdown

	// Initialize Prometheus HTTP metrics
	observability.InitMetrics()
	slog.Info("Initialized Prometheus metrics for HTTP handlers")

	// Load the cartridge catalog
	if err := s.initCatalog(); err != nil {
		s.cleanup()
		return nil, fmt.Errorf("failed to load cartridge catalog: %w", err)
	}

	// Start the catalog watcher (optional)
	if s.config.WatchCatalog && s.config.CatalogDir != "" {
		if err := s.initWatcher(); err != nil {
			slog.Warn("Catalog watcher initialization failed, hot reload disabled",
				"error", err)
			// Not fatal - continue with the initial snapshot
		}
	}

	// Open the profile store
	if err := s.initProfiles(); err != nil {
		s.cleanup()
		return nil, fmt.Errorf("failed to open profile store: %w", err)
	}

	// Create composer metric instruments
	if err := s.initInstruments(); err != nil {
		s.cleanup()
		return nil, fmt.Errorf("failed to create metric instruments: %w", err)
	}

	// Create the routing and composition engine
	s.domainRouter = router.NewDomainRouter(s.registry, features.NewRegexExtractor(), nil)
	s.composer = compose.NewCartridgeComposer(s.registry, slog.Default())

	// Setup HTTP router
	s.initRouter()

	return s, nil
}

// =============================================================================
// Service Interface Methods
// =============================================================================

// Run starts the HTTP server and blocks until shutdown or error.
//
// # Description
//
// Starts the Gin HTTP server on the configured port. Blocks until the
// server stops due to error, SIGINT, or SIGTERM. On a shutdown signal
// the server is given five seconds to drain in-flight requests.
//
// # Outputs
//
//   - error: Non-nil if the server fails to start or shut down cleanly
//
// # Examples
//
//	if err := svc.Run(); err != nil {
//	    log.Fatalf("server error: %v", err)
//	}
//
// # Limitations
//
//   - Blocks until the server stops
//   - Cleanup is automatic on return
//
// # Assumptions
//
//   - Service was successfully created via New()
//   - Port is available
func (s *service) Run() error {
	defer s.cleanup()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", s.config.Port),
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	slog.Info("Starting composer server", "port", s.config.Port)

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		slog.Info("Shutting down composer server")
		return srv.Shutdown(shutdownCtx)
	})

	return g.Wait()
}

// Router returns the underlying Gin engine for testing.
//
// # Description
//
// Provides access to the configured Gin router for integration testing.
//
// # Outputs
//
//   - *gin.Engine: The configured router
//
// # Limitations
//
//   - Should not be used to modify routes after construction
//
// # Assumptions
//
//   - Caller will not modify the router
func (s *service) Router() *gin.Engine {
	return s.router
}

// =============================================================================
// Private Initialization Methods
// =============================================================================

// applyConfigDefaults fills in missing configuration values.
//
// # Description
//
// Applies sensible defaults for any zero-valued configuration fields.
//
// # Inputs
//
//   - cfg: User-provided configuration
//
// # Outputs
//
//   - Config: Configuration with defaults applied
func applyConfigDefaults(cfg Config) Config {
	if cfg.Port == 0 {
		cfg.Port = 12310
	}
	if cfg.Telemetry == (telemetry.Config{}) {
		cfg.Telemetry = telemetry.DefaultConfig()
	}
	return cfg
}

// initCatalog loads the cartridge catalog into the registry.
//
// # Description
//
// Loads cartridges from CatalogDir when configured, otherwise falls back
// to the embedded default catalog. Loading is strict: a catalog that does
// not parse fails initialization, because a composer with no cartridges
// cannot route anything.
//
// # Outputs
//
//   - error: Non-nil if the catalog cannot be loaded or validated
func (s *service) initCatalog() error {
	if s.config.CatalogDir == "" {
		registry, err := loader.NewDefaultRegistry()
		if err != nil {
			return err
		}
		s.registry = registry
		slog.Info("Loaded embedded cartridge catalog", "cartridges", registry.Len())
		return nil
	}

	registry, err := loader.NewRegistry(s.config.CatalogDir)
	if err != nil {
		return err
	}
	s.registry = registry
	slog.Info("Loaded cartridge catalog",
		"dir", s.config.CatalogDir,
		"cartridges", registry.Len())
	return nil
}

// initWatcher starts hot reload of the catalog directory.
//
// # Description
//
// Creates and starts a CatalogWatcher over CatalogDir. The watcher
// republishes the registry snapshot whenever catalog files change.
//
// # Outputs
//
//   - error: Non-nil if the watcher cannot be created or started
//
// # Assumptions
//
//   - CatalogDir is set (checked by caller)
func (s *service) initWatcher() error {
	watcher, err := loader.NewCatalogWatcher(s.config.CatalogDir, s.registry, nil)
	if err != nil {
		return err
	}
	if err := watcher.Start(context.Background()); err != nil {
		return err
	}
	s.watcher = watcher
	return nil
}

// initProfiles opens the user profile store.
//
// # Description
//
// Opens a Badger-backed profile store at ProfileDBPath. When no path is
// configured the store runs in Badger's in-memory mode, which keeps the
// same read and write paths but loses data on restart.
//
// # Outputs
//
//   - error: Non-nil if the database cannot be opened
func (s *service) initProfiles() error {
	var cfg profile.Config
	if s.config.ProfileDBPath == "" {
		cfg = profile.InMemoryConfig()
		slog.Info("Profile store running in memory, profiles will not survive restarts")
	} else {
		cfg = profile.DefaultConfig()
		cfg.Path = s.config.ProfileDBPath
		slog.Info("Profile store opened", "path", cfg.Path)
	}
	cfg.Logger = slog.Default()

	store, err := profile.OpenBadgerStore(cfg)
	if err != nil {
		return err
	}
	s.profiles = store
	return nil
}

// initInstruments creates the composer metric instruments.
//
// # Description
//
// Creates counters and histograms on the global meter, then registers
// the catalog size gauge callback against the live registry.
//
// # Outputs
//
//   - error: Non-nil if instrument creation fails
func (s *service) initInstruments() error {
	meter := otel.Meter("lodestar.composer")

	metrics, err := telemetry.NewMetrics(meter)
	if err != nil {
		return err
	}
	s.metrics = metrics

	registration, err := metrics.RegisterCatalogSize(meter, func() int64 {
		return int64(s.registry.Len())
	})
	if err != nil {
		slog.Warn("Catalog size gauge registration failed", "error", err)
		// Not fatal - the remaining instruments still record
		return nil
	}
	s.catalogGauge = registration
	return nil
}

// initRouter sets up the Gin HTTP router with all routes.
//
// # Description
//
// Creates the Gin engine, applies middleware, and registers all routes.
// The metrics endpoint is only registered when the Prometheus exporter
// is active.
//
// # Limitations
//
//   - Routes are fixed after initialization
//
// # Assumptions
//
//   - All dependencies (registry, router, composer, profiles) are initialized
func (s *service) initRouter() {
	if s.config.GinMode != "" {
		gin.SetMode(s.config.GinMode)
	}

	s.router = gin.Default()
	s.router.Use(otelgin.Middleware("composer-service"))

	routes.SetupRoutes(s.router, s.registry, s.domainRouter, s.composer,
		s.profiles, s.metrics, telemetry.MetricsHandler())
}

// cleanup releases all resources held by the service.
//
// # Description
//
// Called when Run() exits or on initialization failure.
// Stops the catalog watcher, unregisters the catalog gauge, closes the
// profile store, and flushes telemetry.
func (s *service) cleanup() {
	// Stop catalog watcher
	if s.watcher != nil {
		s.watcher.Stop()
	}

	// Unregister catalog size gauge
	if s.catalogGauge != nil {
		if err := s.catalogGauge.Unregister(); err != nil {
			slog.Warn("Catalog gauge unregister error", "error", err)
		}
	}

	// Close profile store
	if s.profiles != nil {
		if err := s.profiles.Close(); err != nil {
			slog.Warn("Profile store close error", "error", err)
		}
	}

	// Flush and stop telemetry
	if s.telemetryShutdown != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := s.telemetryShutdown(ctx); err != nil {
			slog.Error("Telemetry shutdown error", "error", err)
		}
	}
}

// =============================================================================
// Compile-time Interface Compliance
// =============================================================================

var _ Service = (*service)(nil)
