package types

import "context"

// contextKey is used for storing values in context.Context.
type contextKey string

const (
	keySessionID contextKey = "session_id"
	keyRunID     contextKey = "run_id"
	keyPattern   contextKey = "pattern"
)

// WithSessionID adds the logical session ID to context.
func WithSessionID(ctx context.Context, sessionID string) context.Context {
	return context.WithValue(ctx, keySessionID, sessionID)
}

// SessionID extracts the logical session ID from context.
func SessionID(ctx context.Context) (string, bool) {
	v, ok := ctx.Value(keySessionID).(string)
	return v, ok && v != ""
}

// WithRunID adds the stream handle ID to context.
func WithRunID(ctx context.Context, runID string) context.Context {
	return context.WithValue(ctx, keyRunID, runID)
}

// RunID extracts the stream handle ID from context.
func RunID(ctx context.Context) (string, bool) {
	v, ok := ctx.Value(keyRunID).(string)
	return v, ok && v != ""
}

// WithPattern adds the pattern name to context.
func WithPattern(ctx context.Context, pattern string) context.Context {
	return context.WithValue(ctx, keyPattern, pattern)
}

// Pattern extracts the pattern name from context.
func Pattern(ctx context.Context) (string, bool) {
	v, ok := ctx.Value(keyPattern).(string)
	return v, ok && v != ""
}
