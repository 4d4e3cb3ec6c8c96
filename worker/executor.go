package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/pyxol/protostar"
	"github.com/pyxol/protostar/backoff"
	"github.com/pyxol/protostar/ext"
	"github.com/pyxol/protostar/job"
	"github.com/pyxol/protostar/middleware"
)

// Executor turns a popped record into a handler call: it resolves the
// handler named by the cargo, runs it through middleware and applies the
// retry policy to the outcome.
type Executor struct {
	registry   *job.Registry
	extensions *ext.Registry
	enqueuer   job.Enqueuer
	backoff    backoff.Strategy
	mw         middleware.Middleware
	logger     *slog.Logger
}

// NewExecutor creates an Executor with the given dependencies. Recover is
// always the outermost middleware, so a panicking handler never takes the
// worker down.
func NewExecutor(
	registry *job.Registry,
	extensions *ext.Registry,
	enqueuer job.Enqueuer,
	bo backoff.Strategy,
	logger *slog.Logger,
	mws ...middleware.Middleware,
) *Executor {
	if extensions == nil {
		extensions = ext.NewRegistry(logger)
	}
	if bo == nil {
		bo = backoff.None{}
	}
	chain := append([]middleware.Middleware{middleware.Recover(logger)}, mws...)
	return &Executor{
		registry:   registry,
		extensions: extensions,
		enqueuer:   enqueuer,
		backoff:    bo,
		mw:         middleware.Chain(chain...),
		logger:     logger,
	}
}

// Resolve rebuilds the handler a delivery's cargo names and fills in
// d.HandlerType. Cargo that names no handler, an unknown type, a missing
// parameter or a factory returning nil make the record unusable: it is
// logged, reported to JobDropped hooks and ok is false.
func (e *Executor) Resolve(ctx context.Context, d *job.Delivery) (h job.Handler, ok bool) {
	desc, err := d.Record.Descriptor()
	if err != nil {
		e.logger.Error("job cargo does not name a handler",
			slog.String("queue", d.Queue()),
			slog.Any("cargo", d.Record.Cargo),
			slog.String("error", err.Error()),
		)
		e.extensions.EmitJobDropped(ctx, d.Queue(), err)
		return nil, false
	}
	d.HandlerType = desc.Type

	h, err = e.registry.Reconstruct(desc)
	if err != nil {
		e.logger.Error("failed to reconstruct job handler",
			slog.String("handler", desc.Type),
			slog.String("queue", d.Queue()),
			slog.Int("tries", d.Record.Tries),
			slog.String("error", err.Error()),
		)
		e.extensions.EmitJobDropped(ctx, d.Queue(), err)
		return nil, false
	}
	return h, true
}

// Execute runs h through the middleware chain and settles the record:
//   - Success and Finished mark it finished and emit JobCompleted.
//   - Retry enqueues the next attempt (explicit delay, else the backoff
//     strategy) and emits JobRetrying, or JobFailed once MaxTries is spent.
//   - Fatal marks it finished and emits JobFailed.
//   - Restart marks it finished and returns protostar.ErrRestartRequested.
//
// Any other returned error comes from the store while re-enqueueing.
func (e *Executor) Execute(ctx context.Context, d *job.Delivery, h job.Handler) error {
	start := time.Now()
	e.extensions.EmitJobStarted(ctx, d)

	out := e.mw(ctx, d, h.Handle)
	elapsed := time.Since(start)

	switch out.Kind {
	case job.KindRetry:
		return e.retry(ctx, d, out)

	case job.KindFatal:
		d.Record.MarkFinished()
		e.logger.Error("job failed",
			slog.String("handler", d.HandlerType),
			slog.String("queue", d.Queue()),
			slog.String("error", out.Cause.Error()),
			slog.Any("cargo", d.Record.Cargo),
			slog.Int("tries", d.Record.Tries),
			slog.Int("max_tries", d.Record.MaxTries),
			slog.Int64("timestamp", d.Record.Timestamp),
			slog.String("worker_id", d.WorkerID),
		)
		e.extensions.EmitJobFailed(ctx, d, out.Cause)
		return nil

	case job.KindRestart:
		d.Record.MarkFinished()
		e.extensions.EmitJobCompleted(ctx, d, elapsed)
		return protostar.ErrRestartRequested

	default:
		d.Record.MarkFinished()
		e.extensions.EmitJobCompleted(ctx, d, elapsed)
		return nil
	}
}

// retry schedules the next attempt of d's record.
func (e *Executor) retry(ctx context.Context, d *job.Delivery, out job.Outcome) error {
	delay, ok := out.RetryDelay()
	if !ok {
		delay = backoff.Seconds(e.backoff, d.Attempt())
	}

	err := d.Record.Retry(ctx, e.enqueuer, delay)

	var maxErr *protostar.MaxAttemptsError
	switch {
	case errors.As(err, &maxErr):
		e.logger.Error("job exceeded max attempts",
			slog.String("handler", d.HandlerType),
			slog.String("queue", d.Queue()),
			slog.Int("tries", d.Record.Tries),
			slog.Int("max_tries", maxErr.MaxTries),
		)
		e.extensions.EmitJobFailed(ctx, d, err)
		return nil

	case err != nil:
		return fmt.Errorf("re-enqueue job %q: %w", d.HandlerType, err)
	}

	e.logger.Info("job scheduled for retry",
		slog.String("handler", d.HandlerType),
		slog.String("queue", d.Queue()),
		slog.Int("attempt", d.Record.Tries+1),
		slog.Int("max_tries", d.Record.MaxTries),
		slog.Int("delay_seconds", delay),
	)
	e.extensions.EmitJobRetrying(ctx, d, time.Duration(delay)*time.Second)
	return nil
}
