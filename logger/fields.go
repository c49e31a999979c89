package logger

import (
	"context"

	"go.uber.org/zap"
)

// Standard field names for structured logging.
// Use these instead of raw strings so log queries stay stable.
const (
	// Run identity
	FieldRunID     = "run_id"
	FieldAccountID = "account_id"
	FieldOrgID     = "org_id"
	FieldProjectID = "project_id"

	// Legacy (CG) entity
	FieldEntityType = "entity_type"
	FieldEntityID   = "entity_id"
	FieldAppID      = "app_id"
	FieldName       = "name"

	// Target (NG) entity
	FieldNGType     = "ng_type"
	FieldIdentifier = "identifier"
	FieldScope      = "scope"

	// Components
	FieldComponent = "component"

	// Timing
	FieldDurationMS = "duration_ms"

	// Errors and outcomes
	FieldError      = "error"
	FieldStatusCode = "status_code"
	FieldReason     = "reason"
	FieldOutcome    = "outcome"

	// Counts
	FieldCount      = "count"
	FieldTotalCount = "total_count"
)

type contextKey string

const (
	runIDKey     contextKey = "logger_run_id"
	componentKey contextKey = "logger_component"
)

// WithRunID adds a migration run ID to the context for logging
func WithRunID(ctx context.Context, runID string) context.Context {
	return context.WithValue(ctx, runIDKey, runID)
}

// WithComponent adds a component name to the context for logging
func WithComponent(ctx context.Context, component string) context.Context {
	return context.WithValue(ctx, componentKey, component)
}

// FieldsFromContext extracts logging fields from context as key-value pairs
// suitable for Infow/Errorw.
func FieldsFromContext(ctx context.Context) []interface{} {
	var fields []interface{}

	if runID, ok := ctx.Value(runIDKey).(string); ok && runID != "" {
		fields = append(fields, FieldRunID, runID)
	}
	if component, ok := ctx.Value(componentKey).(string); ok && component != "" {
		fields = append(fields, FieldComponent, component)
	}

	return fields
}

// FromContext returns base enriched with the fields carried by ctx.
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
// This is the preferred way to get a logger for dependency injection.
//
//	planner := migrate.NewPlanner(registry, logger.ComponentLogger("migrate.planner"))
func ComponentLogger(name string) *zap.SugaredLogger {
	return Logger.Named(name)
}
