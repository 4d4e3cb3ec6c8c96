package job

import "context"

// Handler is the unit of business logic a queued job resolves to.
type Handler interface {
	Handle(ctx context.Context) Outcome
}

// HandlerFunc adapts a function to Handler.
type HandlerFunc func(ctx context.Context) Outcome

// Handle calls f(ctx).
func (f HandlerFunc) Handle(ctx context.Context) Outcome { return f(ctx) }

// Queueable is a Handler that can be sent through a queue: it names its
// registered type and captures the properties needed to rebuild it.
type Queueable interface {
	Handler

	// HandlerType is the name the handler is registered under.
	HandlerType() string

	// Properties returns the constructor properties to capture.
	Properties() (Properties, error)
}

// The following optional interfaces let a Queueable override dispatch
// defaults.

// QueueNamer overrides the queue a Queueable is dispatched to.
type QueueNamer interface {
	QueueName() string
}

// Prioritizer marks a Queueable as high priority.
type Prioritizer interface {
	HighPriority() bool
}

// AttemptLimiter overrides the attempt ceiling of a Queueable.
type AttemptLimiter interface {
	MaxTries() int
}
