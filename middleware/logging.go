package middleware

import (
	"context"
	"log/slog"
	"time"

	"github.com/Thijssvd/SommOS-sub001/job"
)

// Logging returns middleware that logs task start and completion.
func Logging(logger *slog.Logger) Middleware {
	return func(ctx context.Context, t *job.Task, next Handler) ([]byte, error) {
		logger.Info("task started",
			slog.String("job_type", t.Type),
			slog.String("job_id", t.JobID.String()),
			slog.Int("attempt", t.Attempt),
		)

		start := time.Now()
		out, err := next(ctx)
		elapsed := time.Since(start)

		if err != nil {
			logger.Error("task failed",
				slog.String("job_type", t.Type),
				slog.String("job_id", t.JobID.String()),
				slog.Int("attempt", t.Attempt),
				slog.Duration("elapsed", elapsed),
				slog.String("error", err.Error()),
			)
		} else {
			logger.Info("task completed",
				slog.String("job_type", t.Type),
				slog.String("job_id", t.JobID.String()),
				slog.Duration("elapsed", elapsed),
			)
		}

		return out, err
	}
}
