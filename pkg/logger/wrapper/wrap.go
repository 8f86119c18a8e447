package wrap

import (
	"context"
	"errors"
)

// Error wraps an error with the current LogCtx from the context.
// Wrapping an already-wrapped error keeps the innermost LogCtx.
func Error(ctx context.Context, err error) error {
	if err == nil {
		return nil
	}

	var e *errorWithLogCtx
	if errors.As(err, &e) {
		return err
	}

	c, _ := ctx.Value(LogCtxKey).(LogCtx)
	return &errorWithLogCtx{
		err:    err,
		logCtx: c,
	}
}
