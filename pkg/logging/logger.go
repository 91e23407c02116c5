// Copyright (C) 2026 Lodestar AI (engineering@lodestar-ai.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package logging provides structured logging for Lodestar services.
//
// The package wraps log/slog with multi-destination output. A single
// Logger fans each record out to up to three sinks:
//
//   - stderr, as text for terminals or JSON for pipelines,
//   - an optional per-service log file under a configured directory,
//   - an optional LogExporter that ships entries to an external sink.
//
// File logs are always JSON so they stay machine readable regardless
// of the stderr format. Exporter calls run asynchronously and are best
// effort. A slow or failing exporter never blocks or fails the caller.
//
// Typical service setup:
//
//	logger := logging.New(logging.Config{
//	    Level:   logging.LevelInfo,
//	    LogDir:  "~/.lodestar/logs",
//	    Service: "composer",
//	    JSON:    true,
//	})
//	defer logger.Close()
//
//	logger.Info("catalog loaded", "cartridges", 19, "dir", catalogDir)
//
// Use With to derive a request-scoped logger:
//
//	reqLogger := logger.With("request_id", reqID)
//	reqLogger.Info("routing request")
//
// The package does not redact anything. Callers must keep PII and
// secrets out of log attributes.
package logging

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"
)

// Level represents log severity, ordered Debug < Info < Warn < Error.
// Setting a minimum level on Config filters out everything below it.
type Level int

const (
	// LevelDebug is for development troubleshooting.
	LevelDebug Level = iota

	// LevelInfo is for normal operational events such as a catalog
	// reload or a served request.
	LevelInfo

	// LevelWarn is for recoverable issues, like an overlay that
	// could not be resolved and was skipped.
	LevelWarn

	// LevelError is for failed operations where the service
	// continues running.
	LevelError
)

// String returns "DEBUG", "INFO", "WARN", "ERROR", or "UNKNOWN".
func (l Level) String() string {
	switch l {
	case LevelDebug:
		return "DEBUG"
	case LevelInfo:
		return "INFO"
	case LevelWarn:
		return "WARN"
	case LevelError:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}

// toSlogLevel bridges Level to the standard library's slog.Level.
func (l Level) toSlogLevel() slog.Level {
	switch l {
	case LevelDebug:
		return slog.LevelDebug
	case LevelWarn:
		return slog.LevelWarn
	case LevelError:
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// ParseLevel converts a level name such as "debug" or "WARN" into a
// Level. Matching is case insensitive and the empty string means
// LevelInfo. Unknown names return an error so a typo in configuration
// fails loudly instead of silently logging at the wrong level.
func ParseLevel(s string) (Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return LevelDebug, nil
	case "", "info":
		return LevelInfo, nil
	case "warn", "warning":
		return LevelWarn, nil
	case "error":
		return LevelError, nil
	default:
		return LevelInfo, fmt.Errorf("unknown log level %q", s)
	}
}

// Config configures a Logger. The zero value writes Info and above to
// stderr as text.
type Config struct {
	// Level is the minimum severity a record needs to be emitted.
	// Default: LevelInfo.
	Level Level

	// LogDir enables the file sink. The directory is created if
	// missing and a leading ~ expands to the user's home directory,
	// so "~/.lodestar/logs" works as expected. The file is named
	// "{Service}_{YYYY-MM-DD}.log" and always holds JSON.
	LogDir string

	// Service names the process. It is attached to every record as
	// the "service" attribute and used in the log file name.
	// Recommended values: "composer", "router", "cli".
	Service string

	// JSON switches stderr output from human-readable text to one
	// JSON object per line. File logs are JSON regardless.
	JSON bool

	// Quiet disables the stderr sink. File and exporter sinks still
	// receive records. Useful for daemons whose stderr nobody reads.
	Quiet bool

	// Exporter, when set, receives every emitted record as a
	// LogEntry. Calls run asynchronously and failures are dropped,
	// so a broken sink cannot disrupt the service.
	Exporter LogExporter
}

// LogExporter ships log entries to an external sink such as a log
// aggregator or an object store.
//
// Implementations should buffer internally and batch uploads, because
// Export is called once per emitted record. Flush must send whatever
// is buffered before returning. It runs during graceful shutdown,
// followed by Close.
//
// Export may be called from multiple goroutines and must be safe for
// concurrent use.
type LogExporter interface {
	// Export sends one entry. The context carries a short timeout.
	Export(ctx context.Context, entry LogEntry) error

	// Flush sends all buffered entries. The context carries a
	// shutdown timeout.
	Flush(ctx context.Context) error

	// Close releases the sink's resources. Called after Flush.
	Close() error
}

// LogEntry is the normalized record handed to a LogExporter.
type LogEntry struct {
	// Timestamp when the record was generated.
	Timestamp time.Time

	// Level of the record.
	Level Level

	// Message is the primary log message.
	Message string

	// Service comes from Config.Service.
	Service string

	// Attrs holds the record's key-value attributes.
	Attrs map[string]any
}

// Logger is a leveled structured logger with multi-destination
// output.
//
// # Thread Safety
//
// Logger is safe for concurrent use. The underlying slog.Logger is
// thread safe and mutable state is mutex protected.
//
// # Resource Management
//
// Loggers derived with With share the parent's file handle and
// exporter. Close the root logger once, after the children are done:
//
//	logger := logging.New(cfg)
//	defer logger.Close()
type Logger struct {
	slog     *slog.Logger
	config   Config
	file     *os.File
	exporter LogExporter
	mu       sync.Mutex
}

// New creates a Logger from config.
//
// The file sink is best effort. When the log directory cannot be
// created or the file cannot be opened, the logger still works with
// the remaining sinks rather than failing startup over a log file.
func New(config Config) *Logger {
	opts := &slog.HandlerOptions{
		Level: config.Level.toSlogLevel(),
	}

	var handlers []slog.Handler
	if !config.Quiet {
		if config.JSON {
			handlers = append(handlers, slog.NewJSONHandler(os.Stderr, opts))
		} else {
			handlers = append(handlers, slog.NewTextHandler(os.Stderr, opts))
		}
	}

	logger := &Logger{
		config:   config,
		exporter: config.Exporter,
	}

	if config.LogDir != "" {
		logDir := expandPath(config.LogDir)
		if err := os.MkdirAll(logDir, 0750); err == nil {
			serviceName := config.Service
			if serviceName == "" {
				serviceName = "lodestar"
			}
			filename := fmt.Sprintf("%s_%s.log", serviceName, time.Now().Format("2006-01-02"))
			logPath := filepath.Join(logDir, filename)

			file, err := os.OpenFile(logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0640)
			if err == nil {
				logger.file = file
				handlers = append(handlers, slog.NewJSONHandler(file, opts))
			}
		}
	}

	var handler slog.Handler
	switch len(handlers) {
	case 0:
		handler = slog.NewTextHandler(io.Discard, opts)
	case 1:
		handler = handlers[0]
	default:
		handler = &multiHandler{handlers: handlers}
	}

	if config.Service != "" {
		handler = handler.WithAttrs([]slog.Attr{
			slog.String("service", config.Service),
		})
	}

	logger.slog = slog.New(handler)
	return logger
}

// Default returns a text logger at info level writing to stderr,
// suitable for tools that do not need file logging or export.
func Default() *Logger {
	return New(Config{
		Level:   LevelInfo,
		Service: "lodestar",
	})
}

// Debug logs at debug level. Args are alternating key/value pairs as
// in log/slog.
func (l *Logger) Debug(msg string, args ...any) {
	l.log(LevelDebug, msg, args...)
}

// Info logs at info level.
func (l *Logger) Info(msg string, args ...any) {
	l.log(LevelInfo, msg, args...)
}

// Warn logs at warn level.
func (l *Logger) Warn(msg string, args ...any) {
	l.log(LevelWarn, msg, args...)
}

// Error logs at error level.
func (l *Logger) Error(msg string, args ...any) {
	l.log(LevelError, msg, args...)
}

// With returns a logger that includes args in every record. The
// derived logger shares the parent's file handle and exporter.
func (l *Logger) With(args ...any) *Logger {
	return &Logger{
		slog:     l.slog.With(args...),
		config:   l.config,
		file:     l.file,
		exporter: l.exporter,
	}
}

// Slog returns the underlying *slog.Logger for packages that accept
// one directly, such as HTTP middleware or the catalog watcher.
func (l *Logger) Slog() *slog.Logger {
	return l.slog
}

// Close flushes the exporter, closes it, then syncs and closes the
// log file. Safe to call on a logger without either. Returns the
// first error encountered.
func (l *Logger) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	var errs []error

	if l.exporter != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := l.exporter.Flush(ctx); err != nil {
			errs = append(errs, fmt.Errorf("flush exporter: %w", err))
		}
		if err := l.exporter.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close exporter: %w", err))
		}
	}

	if l.file != nil {
		if err := l.file.Sync(); err != nil {
			errs = append(errs, fmt.Errorf("sync log file: %w", err))
		}
		if err := l.file.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close log file: %w", err))
		}
	}

	if len(errs) > 0 {
		return errs[0]
	}
	return nil
}

// log writes to slog and, for records at or above the configured
// level, hands a LogEntry to the exporter from a fresh goroutine.
// Export errors are silently dropped.
func (l *Logger) log(level Level, msg string, args ...any) {
	switch level {
	case LevelDebug:
		l.slog.Debug(msg, args...)
	case LevelInfo:
		l.slog.Info(msg, args...)
	case LevelWarn:
		l.slog.Warn(msg, args...)
	case LevelError:
		l.slog.Error(msg, args...)
	}

	if l.exporter != nil && level >= l.config.Level {
		entry := LogEntry{
			Timestamp: time.Now(),
			Level:     level,
			Message:   msg,
			Service:   l.config.Service,
			Attrs:     argsToMap(args),
		}
		go func() {
			ctx, cancel := context.WithTimeout(context.Background(), time.Second)
			defer cancel()
			_ = l.exporter.Export(ctx, entry) //nolint:errcheck
		}()
	}
}

// multiHandler fans one slog record out to several handlers. Each
// handler keeps its own Enabled gate.
type multiHandler struct {
	handlers []slog.Handler
}

// Enabled reports whether any handler accepts the level.
func (h *multiHandler) Enabled(ctx context.Context, level slog.Level) bool {
	for _, handler := range h.handlers {
		if handler.Enabled(ctx, level) {
			return true
		}
	}
	return false
}

// Handle sends the record to every enabled handler.
func (h *multiHandler) Handle(ctx context.Context, r slog.Record) error {
	for _, handler := range h.handlers {
		if handler.Enabled(ctx, r.Level) {
			if err := handler.Handle(ctx, r); err != nil {
				return err
			}
		}
	}
	return nil
}

// WithAttrs returns a new handler with the attributes applied to
// every underlying handler.
func (h *multiHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	handlers := make([]slog.Handler, len(h.handlers))
	for i, handler := range h.handlers {
		handlers[i] = handler.WithAttrs(attrs)
	}
	return &multiHandler{handlers: handlers}
}

// WithGroup returns a new handler with the group opened on every
// underlying handler.
func (h *multiHandler) WithGroup(name string) slog.Handler {
	handlers := make([]slog.Handler, len(h.handlers))
	for i, handler := range h.handlers {
		handlers[i] = handler.WithGroup(name)
	}
	return &multiHandler{handlers: handlers}
}

// expandPath expands a leading ~ to the user's home directory. Other
// paths, and paths for users whose home cannot be resolved, come back
// unchanged.
func expandPath(path string) string {
	if len(path) > 0 && path[0] == '~' {
		if home, err := os.UserHomeDir(); err == nil {
			return filepath.Join(home, path[1:])
		}
	}
	return path
}

// argsToMap converts slog-style key/value args into a map for
// LogEntry.Attrs. Non-string keys are skipped.
func argsToMap(args []any) map[string]any {
	result := make(map[string]any)
	for i := 0; i < len(args)-1; i += 2 {
		if key, ok := args[i].(string); ok {
			result[key] = args[i+1]
		}
	}
	return result
}

// NopExporter discards every entry. Useful where a LogExporter is
// required but no external sink is configured.
type NopExporter struct{}

// Export discards the entry.
func (e *NopExporter) Export(ctx context.Context, entry LogEntry) error { return nil }

// Flush is a no-op.
func (e *NopExporter) Flush(ctx context.Context) error { return nil }

// Close is a no-op.
func (e *NopExporter) Close() error { return nil }

var _ LogExporter = (*NopExporter)(nil)

// BufferedExporter collects entries in memory. It backs tests that
// want to inspect what was logged:
//
//	exporter := logging.NewBufferedExporter()
//	logger := logging.New(logging.Config{Exporter: exporter})
//	logger.Info("composed", "primary", "chemistry")
//	entries := exporter.Entries()
type BufferedExporter struct {
	mu      sync.Mutex
	entries []LogEntry
}

// NewBufferedExporter creates an empty BufferedExporter.
func NewBufferedExporter() *BufferedExporter {
	return &BufferedExporter{
		entries: make([]LogEntry, 0, 100),
	}
}

// Export appends the entry to the buffer.
func (e *BufferedExporter) Export(ctx context.Context, entry LogEntry) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.entries = append(e.entries, entry)
	return nil
}

// Flush is a no-op, the entries are already in memory.
func (e *BufferedExporter) Flush(ctx context.Context) error { return nil }

// Close is a no-op.
func (e *BufferedExporter) Close() error { return nil }

// Entries returns a copy of the collected entries.
func (e *BufferedExporter) Entries() []LogEntry {
	e.mu.Lock()
	defer e.mu.Unlock()
	result := make([]LogEntry, len(e.entries))
	copy(result, e.entries)
	return result
}

// Len reports how many entries have been collected.
func (e *BufferedExporter) Len() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.entries)
}

var _ LogExporter = (*BufferedExporter)(nil)

// WriterExporter writes entries to an io.Writer, one line each.
// Writes are serialized, so the writer may be shared.
type WriterExporter struct {
	w  io.Writer
	mu sync.Mutex
}

// NewWriterExporter wraps w. The exporter does not buffer and does
// not take ownership of the writer.
func NewWriterExporter(w io.Writer) *WriterExporter {
	return &WriterExporter{w: w}
}

// Export writes the entry to the writer.
func (e *WriterExporter) Export(ctx context.Context, entry LogEntry) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	_, err := fmt.Fprintf(e.w, "[%s] %s: %s %v\n",
		entry.Timestamp.Format(time.RFC3339),
		entry.Level,
		entry.Message,
		entry.Attrs,
	)
	return err
}

// Flush is a no-op, writes are immediate.
func (e *WriterExporter) Flush(ctx context.Context) error { return nil }

// Close is a no-op, the exporter does not own the writer.
func (e *WriterExporter) Close() error { return nil }

var _ LogExporter = (*WriterExporter)(nil)
