package cline

import (
	"context"
	"log/slog"
	"os"
)

// Logger wraps slog.Logger with cline-specific context.
// This provides structured logging with consistent field names.
type Logger struct {
	*slog.Logger
}

// NewLogger creates a new Logger with the given handler.
// If handler is nil, uses default text handler to stderr.
func NewLogger(handler slog.Handler) *Logger {
	if handler == nil {
		handler = slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
			Level: slog.LevelInfo,
		})
	}
	return &Logger{
		Logger: slog.New(handler),
	}
}

// NewJSONLogger creates a Logger that outputs JSON-formatted logs.
// level sets the minimum log level (e.g., slog.LevelDebug, slog.LevelInfo).
func NewJSONLogger(level slog.Level) *Logger {
	handler := slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	})
	return &Logger{
		Logger: slog.New(handler),
	}
}

// NewTextLogger creates a Logger that outputs human-readable text logs.
func NewTextLogger(level slog.Level) *Logger {
	handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	})
	return &Logger{
		Logger: slog.New(handler),
	}
}

// NoopLogger creates a Logger that discards all log output.
// Use this to disable logging entirely.
func NoopLogger() *Logger {
	handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.Level(1000), // Unreachable level
	})
	return &Logger{
		Logger: slog.New(handler),
	}
}

// WithEnvironment adds an environment field to the logger.
func (l *Logger) WithEnvironment(env string) *Logger {
	return &Logger{
		Logger: l.Logger.With("environment", env),
	}
}

// LogAggregate logs a single-feature aggregation.
func (l *Logger) LogAggregate(ctx context.Context, feature any, groupsObserved int, err error) {
	if err != nil {
		l.ErrorContext(ctx, "aggregate failed",
			"feature", feature,
			"error", err,
		)
	} else {
		l.DebugContext(ctx, "aggregate completed",
			"feature", feature,
			"groups_observed", groupsObserved,
		)
	}
}

// LogScreen logs a completed screen over all features.
func (l *Logger) LogScreen(ctx context.Context, features, kept, excluded int, err error) {
	if err != nil {
		l.ErrorContext(ctx, "screen failed",
			"features", features,
			"error", err,
		)
	} else {
		l.InfoContext(ctx, "screen completed",
			"features", features,
			"kept", kept,
			"excluded", excluded,
		)
	}
}

// LogExclude logs one feature routed to the excluded table.
func (l *Logger) LogExclude(ctx context.Context, feature any, reason ExclusionReason) {
	l.DebugContext(ctx, "feature excluded",
		"feature", feature,
		"reason", reason.String(),
	)
}

// LogAdjust logs a multiple-testing adjustment pass.
func (l *Logger) LogAdjust(ctx context.Context, tests int) {
	l.DebugContext(ctx, "p-values adjusted",
		"tests", tests,
	)
}

// LogSave logs an artifact save.
func (l *Logger) LogSave(ctx context.Context, name string, err error) {
	if err != nil {
		l.ErrorContext(ctx, "save failed",
			"name", name,
			"error", err,
		)
	} else {
		l.InfoContext(ctx, "artifact saved",
			"name", name,
		)
	}
}
