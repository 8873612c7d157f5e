package middleware

import (
	"context"
	"fmt"
	"log/slog"
	"runtime/debug"

	sommos "github.com/Thijssvd/SommOS-sub001"
	"github.com/Thijssvd/SommOS-sub001/job"
)

// Recover returns middleware that recovers from panics in the handler
// chain. Panics are converted to errors (wrapping sommos.ErrHandlerPanic)
// and logged with a stack trace, so a throwing handler can never take the
// executor down.
func Recover(logger *slog.Logger) Middleware {
	return func(ctx context.Context, t *job.Task, next Handler) (out []byte, retErr error) {
		defer func() {
			if r := recover(); r != nil {
				stack := string(debug.Stack())
				logger.Error("task handler panicked",
					slog.String("job_type", t.Type),
					slog.String("task_id", t.ID.String()),
					slog.Any("panic", r),
					slog.String("stack", stack),
				)
				out = nil
				retErr = fmt.Errorf("%w: job %s: %v", sommos.ErrHandlerPanic, t.Type, r)
			}
		}()
		return next(ctx)
	}
}
