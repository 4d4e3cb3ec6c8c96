package middleware

import (
	"context"
	"log/slog"
	"time"

	"github.com/pyxol/protostar/job"
)

// Timeout returns middleware that enforces a per-job execution deadline.
// When d is positive a context.WithTimeout wraps the handler call; the
// handler is expected to watch ctx and give up once it is done. A zero d
// makes the middleware a pass-through.
func Timeout(logger *slog.Logger, d time.Duration) Middleware {
	return func(ctx context.Context, dl *job.Delivery, next Handler) job.Outcome {
		if d <= 0 {
			return next(ctx)
		}
		logger.Debug("job timeout set",
			slog.String("handler", dl.HandlerType),
			slog.Duration("timeout", d),
		)
		ctx, cancel := context.WithTimeout(ctx, d)
		defer cancel()
		return next(ctx)
	}
}
