package logger

import (
	"context"

	"go.uber.org/zap"
)

// Standard field names for consistent structured logging across recipebook.
// Use these constants instead of raw strings to ensure consistency.
const (
	// Identity and context
	FieldRequestID = "request_id"
	FieldComponent = "component"
	FieldOperation = "operation"

	// Timing
	FieldDurationMS = "duration_ms"

	// Errors
	FieldError = "error"

	// Counts
	FieldCount = "count"

	// Files and paths
	FieldPath = "path"

	// Recipes and ingredients
	FieldRecipeID     = "recipe_id"
	FieldIngredientID = "ingredient_id"
	FieldVersion      = "version"
	FieldAttempt      = "attempt"
	FieldMaxAttempts  = "max_attempts"
	FieldRows         = "rows"
	FieldDeletions    = "deletions"
	FieldUpdates      = "updates"
	FieldCreations    = "creations"
	FieldIgnored      = "ignored"

	// Storage
	FieldDriver    = "driver"
	FieldMigration = "migration"
)

type contextKey string

const (
	requestIDKey contextKey = "logger_request_id"
	componentKey contextKey = "logger_component"
)

// WithRequestID adds a request ID to the context for logging
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, requestIDKey, requestID)
}

// RequestIDFromContext returns the request ID stored by WithRequestID, if any.
func RequestIDFromContext(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(requestIDKey).(string)
	return id, ok && id != ""
}

// WithComponent adds a component name to the context for logging
func WithComponent(ctx context.Context, component string) context.Context {
	return context.WithValue(ctx, componentKey, component)
}

// FieldsFromContext extracts logging fields from context.
// Returns key-value pairs suitable for use with Infow/Errorw/etc.
func FieldsFromContext(ctx context.Context) []interface{} {
	var fields []interface{}

	if requestID, ok := RequestIDFromContext(ctx); ok {
		fields = append(fields, FieldRequestID, requestID)
	}
	if component, ok := ctx.Value(componentKey).(string); ok && component != "" {
		fields = append(fields, FieldComponent, component)
	}

	return fields
}

// FromContext decorates base with the fields carried by ctx.
// A nil base falls back to the global Logger.
func FromContext(ctx context.Context, base *zap.SugaredLogger) *zap.SugaredLogger {
	if base == nil {
		base = Logger
	}
	fields := FieldsFromContext(ctx)
	if len(fields) == 0 {
		return base
	}
	return base.With(fields...)
}

// ComponentLogger returns a named logger for a specific component.
//
// Example:
//
//	svc := ingredients.NewService(gw, opts, logger.ComponentLogger("ingredients"))
func ComponentLogger(name string) *zap.SugaredLogger {
	return Logger.Named(name)
}
