package wrap

import (
	"context"
)

type (
	// LogCtx holds contextual information for logging.
	LogCtx struct {
		Action    string
		UserID    string
		RequestID string
		RequestRef string // delivery request id
	}

	logCtxKeyStruct struct{}
)

// LogCtxKey is the key for log context values.
var LogCtxKey = &logCtxKeyStruct{}

// WithAction adds or updates the Action in the LogCtx within the context.
func WithAction(ctx context.Context, action string) context.Context {
	lc, _ := ctx.Value(LogCtxKey).(LogCtx)
	lc.Action = action
	return context.WithValue(ctx, LogCtxKey, lc)
}

// WithUserID adds or updates the UserID in the LogCtx within the context.
func WithUserID(ctx context.Context, userID string) context.Context {
	lc, _ := ctx.Value(LogCtxKey).(LogCtx)
	lc.UserID = userID
	return context.WithValue(ctx, LogCtxKey, lc)
}

// WithRequestID adds or updates the HTTP/bus correlation id.
func WithRequestID(ctx context.Context, requestID string) context.Context {
	lc, _ := ctx.Value(LogCtxKey).(LogCtx)
	lc.RequestID = requestID
	return context.WithValue(ctx, LogCtxKey, lc)
}

// WithRequestRef tags the context with the delivery request being acted on.
func WithRequestRef(ctx context.Context, id string) context.Context {
	lc, _ := ctx.Value(LogCtxKey).(LogCtx)
	lc.RequestRef = id
	return context.WithValue(ctx, LogCtxKey, lc)
}
