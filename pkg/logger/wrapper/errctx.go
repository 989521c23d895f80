package wrap

import (
	"context"
	"errors"
)

// errorWithLogCtx carries the LogCtx captured where the error happened, so
// the caller that finally logs it keeps the request and driver fields even
// after the original context is gone.
type errorWithLogCtx struct {
	err    error
	logCtx LogCtx
}

func (e *errorWithLogCtx) Error() string {
	return e.err.Error()
}

func (e *errorWithLogCtx) Unwrap() error {
	return e.err
}

// ErrorCtx restores the LogCtx attached to err onto ctx, if there is one.
func ErrorCtx(ctx context.Context, err error) context.Context {
	var e *errorWithLogCtx
	if errors.As(err, &e) && e != nil {
		return context.WithValue(ctx, LogCtxKey, e.logCtx)
	}
	return ctx
}
