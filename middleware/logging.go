package middleware

import (
	"context"
	"log/slog"
	"time"

	"github.com/pyxol/protostar/job"
)

// Logging returns middleware that logs job start and completion at info
// level. A fatal outcome carries its cause; the worker reports it at error
// level when it settles the record.
func Logging(logger *slog.Logger) Middleware {
	return func(ctx context.Context, d *job.Delivery, next Handler) job.Outcome {
		logger.Info("job started", deliveryAttrs(d)...)

		start := time.Now()
		out := next(ctx)
		elapsed := time.Since(start)

		attrs := append(deliveryAttrs(d),
			slog.Duration("elapsed", elapsed),
			slog.String("outcome", out.Kind.String()),
		)
		if out.Kind == job.KindFatal && out.Cause != nil {
			attrs = append(attrs, slog.String("error", out.Cause.Error()))
		}
		logger.Info("job completed", attrs...)

		return out
	}
}
