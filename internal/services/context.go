package services

import "context"

type contextKey int

const (
	runIDKey contextKey = iota
	stageKey
	requestIDKey
)

func withValue(ctx context.Context, key contextKey, value string) context.Context {
	if value == "" {
		return ctx
	}
	return context.WithValue(ctx, key, value)
}

func valueOf(ctx context.Context, key contextKey) (string, bool) {
	v, ok := ctx.Value(key).(string)
	return v, ok && v != ""
}

// WithRunID annotates ctx with the pipeline run identifier. Blank ids leave
// ctx unchanged.
func WithRunID(ctx context.Context, id string) context.Context {
	return withValue(ctx, runIDKey, id)
}

// RunIDFromContext returns the pipeline run identifier, if any.
func RunIDFromContext(ctx context.Context) (string, bool) { return valueOf(ctx, runIDKey) }

// WithStage annotates ctx with the pipeline stage name.
func WithStage(ctx context.Context, stage string) context.Context {
	return withValue(ctx, stageKey, stage)
}

func StageFromContext(ctx context.Context) (string, bool) { return valueOf(ctx, stageKey) }

// WithRequestID annotates ctx with the id of an in-flight mpv request.
func WithRequestID(ctx context.Context, id string) context.Context {
	return withValue(ctx, requestIDKey, id)
}

func RequestIDFromContext(ctx context.Context) (string, bool) { return valueOf(ctx, requestIDKey) }
