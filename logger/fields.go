package logger

import (
	"context"

	"go.uber.org/zap"
)

// Standard field names for consistent structured logging across emile.
// Use these constants instead of raw strings to ensure consistency.
const (
	// Components
	FieldComponent = "component"
	FieldOperation = "operation"

	// Posts and files
	FieldPath   = "path"
	FieldSlug   = "slug"
	FieldDest   = "dest"
	FieldRoot   = "root"
	FieldLang   = "lang"
	FieldTitle  = "title"
	FieldEvent  = "event"
	FieldPubID  = "publication_id"
	FieldCommit = "commit"

	// Timing
	FieldDueAt      = "due_at"
	FieldDelay      = "delay"
	FieldDurationMS = "duration_ms"

	// Social
	FieldPlatform = "platform"
	FieldInstance = "instance"
	FieldURL      = "url"

	// Errors
	FieldError     = "error"
	FieldErrorKind = "error_kind"

	// Counts
	FieldCount = "count"

	// Status
	FieldStatus = "status"

	FieldSymbol = "symbol"
)

type contextKey string

const (
	slugKey      contextKey = "logger_slug"
	componentKey contextKey = "logger_component"
)

// WithSlug adds a post slug to the context for logging
func WithSlug(ctx context.Context, slug string) context.Context {
	return context.WithValue(ctx, slugKey, slug)
}

// WithComponent adds a component name to the context for logging
func WithComponent(ctx context.Context, component string) context.Context {
	return context.WithValue(ctx, componentKey, component)
}

// FieldsFromContext extracts logging fields from context.
// Returns key-value pairs suitable for use with Infow/Errorw/etc.
func FieldsFromContext(ctx context.Context) []interface{} {
	var fields []interface{}

	if slug, ok := ctx.Value(slugKey).(string); ok && slug != "" {
		fields = append(fields, FieldSlug, slug)
	}
	if component, ok := ctx.Value(componentKey).(string); ok && component != "" {
		fields = append(fields, FieldComponent, component)
	}

	return fields
}

// LoggerFromContext returns a logger with fields extracted from context.
func LoggerFromContext(ctx context.Context) *zap.SugaredLogger {
	fields := FieldsFromContext(ctx)
	if len(fields) == 0 {
		return Logger
	}
	return Logger.With(fields...)
}

// ComponentLogger returns a named logger for a specific component.
// This is the preferred way to get a logger for dependency injection.
//
// Example:
//
//	type Scheduler struct {
//	    logger *zap.SugaredLogger
//	}
//
//	func New() *Scheduler {
//	    return &Scheduler{
//	        logger: logger.ComponentLogger("schedule"),
//	    }
//	}
func ComponentLogger(name string) *zap.SugaredLogger {
	return Logger.Named(name)
}

// ChildLogger creates a child logger with additional context.
//
// Example:
//
//	postLogger := logger.ChildLogger(baseLogger, "slug", slug)
func ChildLogger(parent *zap.SugaredLogger, keysAndValues ...interface{}) *zap.SugaredLogger {
	return parent.With(keysAndValues...)
}
