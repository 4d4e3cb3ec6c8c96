package job

import (
	"context"
	"fmt"

	"github.com/pyxol/protostar"
)

type dispatchOptions struct {
	immediate bool
	queue     string
	delay     int
}

// DispatchOption configures Dispatch.
type DispatchOption func(*dispatchOptions)

// Immediate runs the handler synchronously instead of enqueueing it.
func Immediate() DispatchOption {
	return func(o *dispatchOptions) { o.immediate = true }
}

// OnQueue sets the queue used when the handler does not name one.
func OnQueue(name string) DispatchOption {
	return func(o *dispatchOptions) { o.queue = name }
}

// After delays the first delivery by seconds.
func After(seconds int) DispatchOption {
	return func(o *dispatchOptions) { o.delay = seconds }
}

// Dispatch sends q to its queue as a handler descriptor. With Immediate it
// calls q.Handle directly, bypassing the queue, and returns the outcome as
// an error.
func Dispatch(ctx context.Context, e Enqueuer, q Queueable, opts ...DispatchOption) error {
	var o dispatchOptions
	for _, opt := range opts {
		opt(&o)
	}

	if o.immediate {
		return q.Handle(ctx).Err()
	}

	props, err := q.Properties()
	if err != nil {
		return fmt.Errorf("capture properties of %q: %w", q.HandlerType(), err)
	}

	queue := o.queue
	if n, ok := q.(QueueNamer); ok && n.QueueName() != "" {
		queue = n.QueueName()
	}
	if queue == "" {
		return protostar.ErrMissingQueueName
	}

	recOpts := []Option{WithDelay(o.delay)}
	if l, ok := q.(AttemptLimiter); ok {
		recOpts = append(recOpts, WithMaxTries(l.MaxTries()))
	}

	rec, err := New(queue, Descriptor{Type: q.HandlerType(), Properties: props}, recOpts...)
	if err != nil {
		return err
	}

	prio := PriorityNormal
	if p, ok := q.(Prioritizer); ok && p.HighPriority() {
		prio = PriorityHigh
	}
	return e.Enqueue(ctx, rec, prio)
}
