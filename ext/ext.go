package ext

import (
	"context"
	"time"

	"github.com/pyxol/protostar/job"
)

// Extension is the base interface all extensions must implement.
type Extension interface {
	// Name returns a unique human-readable name for the extension.
	Name() string
}

// ──────────────────────────────────────────────────
// Job lifecycle hooks
// ──────────────────────────────────────────────────

// JobStarted is called when a worker begins executing a job.
type JobStarted interface {
	OnJobStarted(ctx context.Context, d *job.Delivery) error
}

// JobCompleted is called after a job finishes without asking for a retry.
type JobCompleted interface {
	OnJobCompleted(ctx context.Context, d *job.Delivery, elapsed time.Duration) error
}

// JobRetrying is called after a new attempt of the job was enqueued.
type JobRetrying interface {
	OnJobRetrying(ctx context.Context, d *job.Delivery, delay time.Duration) error
}

// JobFailed is called when a job fails fatally or exceeds its attempts.
type JobFailed interface {
	OnJobFailed(ctx context.Context, d *job.Delivery, err error) error
}

// JobDropped is called when a popped payload is discarded before any
// handler ran: malformed data, unknown handler type or missing parameters.
type JobDropped interface {
	OnJobDropped(ctx context.Context, queue string, err error) error
}

// ──────────────────────────────────────────────────
// Worker hooks
// ──────────────────────────────────────────────────

// WorkerRestarting is called when a worker leaves its loop for a restart.
type WorkerRestarting interface {
	OnWorkerRestarting(ctx context.Context, workerID, queue string) error
}

// Shutdown is called during graceful shutdown.
type Shutdown interface {
	OnShutdown(ctx context.Context) error
}
