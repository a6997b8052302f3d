package logging

import (
	"context"
	"log/slog"

	"danmaku/internal/services"
)

const (
	FieldComponent = "component"
	// FieldRunID identifies one pipeline run (one MediaLoaded event).
	FieldRunID = "run_id"
	FieldStage = "stage"
	// FieldCorrelationID carries the mpv request_id of a failed command.
	FieldCorrelationID = "correlation_id"
	// FieldSessionID identifies one daemon process lifetime.
	FieldSessionID = "session_id"
	// FieldEventType names the kind of event a record describes.
	FieldEventType = "event_type"
	// FieldErrorHint suggests the next step an operator should take.
	FieldErrorHint = "error_hint"
	// FieldImpact is the standardized key for user-facing consequence of a warning.
	FieldImpact = "impact"
)

var contextFields = []struct {
	key  string
	from func(context.Context) (string, bool)
}{
	{FieldRunID, services.RunIDFromContext},
	{FieldStage, services.StageFromContext},
	{FieldCorrelationID, services.RequestIDFromContext},
}

// ContextFields extracts standardized slog attributes from ctx.
func ContextFields(ctx context.Context) []slog.Attr {
	if ctx == nil {
		return nil
	}
	var fields []slog.Attr
	for _, f := range contextFields {
		if v, ok := f.from(ctx); ok {
			fields = append(fields, slog.String(f.key, v))
		}
	}
	return fields
}

// WithContext returns logger (or a no-op logger when nil) with the fields of
// ctx attached.
func WithContext(ctx context.Context, logger *slog.Logger) *slog.Logger {
	if logger == nil {
		logger = NewNop()
	}
	if fields := ContextFields(ctx); len(fields) > 0 {
		return logger.With(attrsToArgs(fields)...)
	}
	return logger
}
