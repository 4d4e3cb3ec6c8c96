package middleware

import (
	"context"
	"fmt"
	"log/slog"
	"runtime/debug"

	"github.com/pyxol/protostar/job"
)

// Recover returns middleware that recovers from panics in the handler chain.
// A panic becomes a fatal outcome and is logged with a stack trace.
func Recover(logger *slog.Logger) Middleware {
	return func(ctx context.Context, d *job.Delivery, next Handler) (out job.Outcome) {
		defer func() {
			if r := recover(); r != nil {
				stack := string(debug.Stack())
				logger.Error("job handler panicked",
					slog.String("handler", d.HandlerType),
					slog.String("queue", d.Queue()),
					slog.Any("panic", r),
					slog.String("stack", stack),
				)
				out = job.Fatal(fmt.Errorf("panic in handler %s: %v", d.HandlerType, r))
			}
		}()
		return next(ctx)
	}
}
