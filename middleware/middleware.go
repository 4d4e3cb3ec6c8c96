package middleware

import (
	"context"

	"github.com/pyxol/protostar/job"
)

// Handler is the terminal function that executes job logic.
type Handler func(ctx context.Context) job.Outcome

// Middleware wraps a Handler with cross-cutting logic.
// It receives the current context, the delivery being executed, and the
// next handler to call. Middleware MUST call next to continue the chain
// (unless short-circuiting).
type Middleware func(ctx context.Context, d *job.Delivery, next Handler) job.Outcome

// Chain composes multiple middleware into a single Middleware.
// Middleware are applied right-to-left: the first middleware in the
// list is the outermost wrapper.
//
// Example: Chain(recover, logging, tracing) executes as:
//
//	recover → logging → tracing → handler
func Chain(mws ...Middleware) Middleware {
	return func(ctx context.Context, d *job.Delivery, next Handler) job.Outcome {
		// Build the chain from the end backwards.
		h := next
		for i := len(mws) - 1; i >= 0; i-- {
			mw := mws[i]
			prev := h
			h = func(ctx context.Context) job.Outcome {
				return mw(ctx, d, prev)
			}
		}
		return h(ctx)
	}
}

// deliveryAttrs returns the identifying fields of d as log attributes.
func deliveryAttrs(d *job.Delivery) []any {
	return []any{
		"handler", d.HandlerType,
		"queue", d.Queue(),
		"attempt", d.Attempt(),
		"worker_id", d.WorkerID,
	}
}
