// Package middleware provides composable middleware for job execution.
//
// A [Middleware] wraps the call to a reconstructed handler. Middleware are
// composed into a chain using [Chain] and applied before each job executes.
// They are applied right-to-left: the first middleware in the slice is the
// outermost wrapper.
//
//	// logging → timeout → handler
//	chain := middleware.Chain(middleware.Logging(logger), middleware.Timeout(logger, time.Minute))
//
// # Built-in Middleware
//
//   - [Recover]: turns a handler panic into a fatal outcome; workers always install it
//   - [Logging]: logs handler type, queue, attempt, duration and outcome
//   - [Timeout]: cancels the job context after a fixed duration
//   - [Tracing]: wraps execution in an OpenTelemetry span
//   - [Metrics]: records per-job duration and outcome counters
//
// # Writing Custom Middleware
//
//	func MyMiddleware() middleware.Middleware {
//	    return func(ctx context.Context, d *job.Delivery, next middleware.Handler) job.Outcome {
//	        // pre-processing
//	        out := next(ctx)
//	        // post-processing
//	        return out
//	    }
//	}
//
// Middleware MUST call next to continue the chain unless intentionally
// short-circuiting, in which case it returns its own outcome.
package middleware
