// Copyright (C) 2026 Lodestar AI (engineering@lodestar-ai.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package profile

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/dgraph-io/badger/v4"
)

// profileKeyPrefix namespaces profile records inside the database.
const profileKeyPrefix = "profile/"

// Config holds configuration for a Badger-backed profile store.
type Config struct {
	// Path is the directory for database files.
	// Required unless InMemory is true.
	Path string

	// InMemory enables in-memory mode (no disk persistence).
	// Useful for testing.
	InMemory bool

	// SyncWrites enables synchronous writes for durability.
	SyncWrites bool

	// Logger receives Badger's internal log output.
	// If nil, Badger's internal logging is disabled.
	Logger *slog.Logger

	// GCInterval is how often to run value log garbage collection.
	// Set to 0 to disable.
	GCInterval time.Duration

	// GCDiscardRatio is the minimum ratio of discardable data before GC.
	GCDiscardRatio float64
}

// DefaultConfig returns production defaults: synchronous writes and a
// five-minute GC cycle.
func DefaultConfig() Config {
	return Config{
		SyncWrites:     true,
		GCInterval:     5 * time.Minute,
		GCDiscardRatio: 0.5,
	}
}

// InMemoryConfig returns a configuration for tests: in-memory mode, async
// writes, GC disabled.
func InMemoryConfig() Config {
	return Config{
		InMemory:   true,
		SyncWrites: false,
		GCInterval: 0,
	}
}

// badgerLogger adapts slog.Logger to Badger's Logger interface.
type badgerLogger struct {
	logger *slog.Logger
}

func (l *badgerLogger) Errorf(format string, args ...interface{}) {
	l.logger.Error(fmt.Sprintf(format, args...))
}

func (l *badgerLogger) Warningf(format string, args ...interface{}) {
	l.logger.Warn(fmt.Sprintf(format, args...))
}

func (l *badgerLogger) Infof(format string, args ...interface{}) {
	l.logger.Info(fmt.Sprintf(format, args...))
}

func (l *badgerLogger) Debugf(format string, args ...interface{}) {
	l.logger.Debug(fmt.Sprintf(format, args...))
}

// BadgerStore is the persistent Store built on BadgerDB.
//
// Profiles are stored as JSON under "profile/<userID>" keys. Read-modify-
// write operations are serialized with a store-level mutex, so override
// recording never loses history to write conflicts.
type BadgerStore struct {
	db     *badger.DB
	logger *slog.Logger

	// writeMu serializes read-modify-write operations.
	writeMu sync.Mutex

	gcInterval time.Duration
	gcRatio    float64
	stopGC     chan struct{}
	gcDone     chan struct{}
	closeOnce  sync.Once
	closeErr   error
}

var _ Store = (*BadgerStore)(nil)

// OpenBadgerStore opens a profile store with the given configuration.
//
// Description:
//
//	Opens BadgerDB at the configured path, creating the directory if
//	needed, or in memory when InMemory is set. Starts the value log GC
//	loop when GCInterval is positive on a persistent store.
//
// Outputs:
//
//	*BadgerStore - The opened store. Caller must call Close when done.
//	error - Non-nil if the path is missing or the database cannot open.
func OpenBadgerStore(cfg Config) (*BadgerStore, error) {
	if !cfg.InMemory && cfg.Path == "" {
		return nil, errors.New("path is required for persistent profile store")
	}

	var opts badger.Options
	if cfg.InMemory {
		opts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		if err := os.MkdirAll(cfg.Path, 0750); err != nil {
			return nil, fmt.Errorf("create profile store directory %s: %w", cfg.Path, err)
		}
		opts = badger.DefaultOptions(cfg.Path)
	}
	opts = opts.WithSyncWrites(cfg.SyncWrites)
	opts = opts.WithNumVersionsToKeep(1)
	if cfg.Logger != nil {
		opts = opts.WithLogger(&badgerLogger{logger: cfg.Logger})
	} else {
		opts = opts.WithLogger(nil)
	}

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open profile store: %w", err)
	}

	s := &BadgerStore{
		db:         db,
		logger:     cfg.Logger,
		gcInterval: cfg.GCInterval,
		gcRatio:    cfg.GCDiscardRatio,
		stopGC:     make(chan struct{}),
		gcDone:     make(chan struct{}),
	}
	if cfg.GCInterval > 0 && !cfg.InMemory {
		go s.runGC()
	} else {
		close(s.gcDone)
	}
	return s, nil
}

// Get loads and decodes the profile for userID.
func (s *BadgerStore) Get(ctx context.Context, userID string) (*UserProfile, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var profile *UserProfile
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(profileKey(userID))
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			profile = &UserProfile{}
			return json.Unmarshal(val, profile)
		})
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, ErrProfileNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load profile %s: %w", userID, err)
	}
	return profile, nil
}

// Put stores a normalized snapshot of the profile.
func (s *BadgerStore) Put(ctx context.Context, profile *UserProfile) error {
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
	val, err := json.Marshal(clone)
	if err != nil {
		return fmt.Errorf("encode profile %s: %w", profile.UserID, err)
	}

	err = s.db.Update(func(txn *badger.Txn) error {
		return txn.Set(profileKey(profile.UserID), val)
	})
	if err != nil {
		return fmt.Errorf("store profile %s: %w", profile.UserID, err)
	}
	return nil
}

// RecordOverride folds one correction into the stored profile, creating it
// if absent.
func (s *BadgerStore) RecordOverride(ctx context.Context, userID string, rec OverrideRecord) (*UserProfile, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if userID == "" {
		return nil, errors.New("user id is required")
	}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	profile, err := s.Get(ctx, userID)
	if errors.Is(err, ErrProfileNotFound) {
		profile = NewUserProfile(userID)
	} else if err != nil {
		return nil, err
	}

	profile.ApplyOverride(rec)
	if err := s.Put(ctx, profile); err != nil {
		return nil, err
	}
	return profile, nil
}

// Close stops the GC loop and closes the database. Safe to call more than
// once.
func (s *BadgerStore) Close() error {
	s.closeOnce.Do(func() {
		close(s.stopGC)
		<-s.gcDone
		s.closeErr = s.db.Close()
	})
	return s.closeErr
}

func (s *BadgerStore) runGC() {
	defer close(s.gcDone)

	ticker := time.NewTicker(s.gcInterval)
	defer ticker.Stop()

	for {
		select {
		case <-s.stopGC:
			return
		case <-ticker.C:
			// ErrNoRewrite means nothing needed collecting.
			err := s.db.RunValueLogGC(s.gcRatio)
			if err != nil && !errors.Is(err, badger.ErrNoRewrite) {
				if s.logger != nil {
					s.logger.Warn("profile store value log GC error", slog.String("error", err.Error()))
				}
			}
		}
	}
}

func profileKey(userID string) []byte {
	return []byte(profileKeyPrefix + userID)
}
