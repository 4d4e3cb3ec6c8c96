// Package worker consumes jobs from a queue: a Worker runs the
// check-restart, migrate, pop, dispatch loop against one queue, an Executor
// settles each handler outcome, and a Pool runs several workers in one
// process.
package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"slices"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/pyxol/protostar"
	"github.com/pyxol/protostar/backoff"
	"github.com/pyxol/protostar/ext"
	"github.com/pyxol/protostar/job"
	"github.com/pyxol/protostar/middleware"
)

// Broker is the queue store a Worker consumes from. *broker.Broker
// implements it.
type Broker interface {
	job.Enqueuer
	CheckRestart(ctx context.Context, queue string) error
	MigrateDueDelayed(ctx context.Context, queue string, limit int) (int, error)
	Pop(ctx context.Context, queue string, block time.Duration) (*job.Record, error)
	CachedGeneration(queue string) (int64, bool)
	SetWorkerStatus(ctx context.Context, queue, workerID string, st *protostar.WorkerStatus) error
}

// QueueManager throttles how fast a worker takes jobs from its queue.
// Reserve holds a concurrency slot for one poll and the job it returns;
// Throttle takes a rate token for a popped job. *queue.Manager implements
// it.
type QueueManager interface {
	Reserve(ctx context.Context, queue string) (release func(), err error)
	Throttle(ctx context.Context, queue string) error
}

// Option configures a Worker or a Pool.
type Option func(*settings)

type settings struct {
	queue        string
	id           string
	logger       *slog.Logger
	config       protostar.Config
	backoff      backoff.Strategy
	middleware   []middleware.Middleware
	extensions   *ext.Registry
	queueManager QueueManager
}

// WithQueue sets the queue to consume. Defaults to "default".
func WithQueue(name string) Option {
	return func(s *settings) { s.queue = name }
}

// WithID sets the worker identifier used in status keys and logs.
func WithID(id string) Option {
	return func(s *settings) { s.id = id }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *settings) { s.logger = l }
}

// WithConfig replaces the worker tuning.
func WithConfig(cfg protostar.Config) Option {
	return func(s *settings) { s.config = cfg }
}

// WithBackoff sets the delay strategy for retries that name no delay.
func WithBackoff(b backoff.Strategy) Option {
	return func(s *settings) { s.backoff = b }
}

// WithMiddleware appends middleware around every handler call.
func WithMiddleware(mws ...middleware.Middleware) Option {
	return func(s *settings) { s.middleware = append(s.middleware, mws...) }
}

// WithExtensions sets the extension registry notified of lifecycle events.
func WithExtensions(r *ext.Registry) Option {
	return func(s *settings) { s.extensions = r }
}

// WithQueueManager throttles polling through m.
func WithQueueManager(m QueueManager) Option {
	return func(s *settings) { s.queueManager = m }
}

func newSettings(opts []Option) settings {
	s := settings{
		queue:   "default",
		logger:  slog.Default(),
		config:  protostar.DefaultConfig(),
		backoff: backoff.None{},
	}
	for _, opt := range opts {
		opt(&s)
	}
	if s.extensions == nil {
		s.extensions = ext.NewRegistry(s.logger)
	}
	if s.id == "" {
		s.id = defaultID(time.Now())
	}
	return s
}

// defaultID derives "<hostname>-<unix start time>".
func defaultID(start time.Time) string {
	host, err := os.Hostname()
	if err != nil || host == "" {
		host = uuid.NewString()
	}
	return fmt.Sprintf("%s-%d", host, start.Unix())
}

// Worker pulls jobs from one queue and runs them one at a time.
type Worker struct {
	broker   Broker
	executor *Executor
	queue    string
	id       string
	config   protostar.Config
	logger   *slog.Logger
	ext      *ext.Registry
	throttle QueueManager
	state    atomic.Int32
}

// New creates a worker that consumes from b and resolves handlers through
// reg.
func New(b Broker, reg *job.Registry, opts ...Option) (*Worker, error) {
	return newWorker(b, reg, newSettings(opts))
}

func newWorker(b Broker, reg *job.Registry, s settings) (*Worker, error) {
	if b == nil {
		return nil, errors.New("protostar/worker: broker is required")
	}
	if reg == nil {
		return nil, errors.New("protostar/worker: handler registry is required")
	}
	if s.queue == "" {
		return nil, protostar.ErrMissingQueueName
	}

	mws := slices.Clone(s.middleware)
	if s.config.JobTimeout > 0 {
		mws = append(mws, middleware.Timeout(s.logger, s.config.JobTimeout))
	}

	w := &Worker{
		broker:   b,
		executor: NewExecutor(reg, s.extensions, b, s.backoff, s.logger, mws...),
		queue:    s.queue,
		id:       s.id,
		config:   s.config,
		logger:   s.logger.With(slog.String("worker_id", s.id), slog.String("queue", s.queue)),
		ext:      s.extensions,
		throttle: s.queueManager,
	}
	w.state.Store(int32(StateIdle))
	return w, nil
}

// ID returns the worker identifier.
func (w *Worker) ID() string { return w.id }

// Queue returns the queue the worker consumes.
func (w *Worker) Queue() string { return w.queue }

// State returns what the worker is doing right now.
func (w *Worker) State() State { return State(w.state.Load()) }

func (w *Worker) setState(s State) { w.state.Store(int32(s)) }

// Run processes jobs until ctx is done or a restart is requested. It
// returns nil on cancellation and protostar.ErrRestartRequested when the
// queue generation moved or a handler asked for a restart. Store errors are
// logged and retried after Config.ErrorDelay.
//
// ctx only stops polling. A job that was already popped runs and is settled
// under a context that ctx's cancellation does not reach; Config.JobTimeout
// still bounds it.
func (w *Worker) Run(ctx context.Context) error {
	w.logger.Info("worker started")

	for {
		if ctx.Err() != nil {
			return w.shutdown()
		}

		err := w.iterate(ctx)
		switch {
		case err == nil:
			continue

		case errors.Is(err, protostar.ErrRestartRequested):
			w.setState(StateRestarting)
			w.logger.Info("worker restarting")
			w.ext.EmitWorkerRestarting(context.WithoutCancel(ctx), w.id, w.queue)
			return protostar.ErrRestartRequested

		case ctx.Err() != nil && errors.Is(err, ctx.Err()):
			return w.shutdown()
		}

		w.setState(StateIdle)
		w.logger.Error("queue store error", slog.String("error", err.Error()))
		if !sleep(ctx, w.config.ErrorDelay) {
			return w.shutdown()
		}
	}
}

func (w *Worker) shutdown() error {
	w.setState(StateStopped)
	w.logger.Info("worker stopped")
	w.ext.EmitShutdown(context.Background())
	return nil
}

// iterate runs one loop step. The restart check always precedes the poll,
// and a queue slot is only waited for up to Config.BlockTimeout so a
// throttled worker keeps checking for restarts.
func (w *Worker) iterate(ctx context.Context) error {
	w.setState(StateIdle)
	w.clearStatus(ctx)

	w.setState(StateRestartCheck)
	if err := w.broker.CheckRestart(ctx, w.queue); err != nil {
		return err
	}

	w.setState(StateMigrating)
	if _, err := w.broker.MigrateDueDelayed(ctx, w.queue, w.config.MigrateBatch); err != nil {
		return err
	}

	block := w.config.BlockTimeout
	if w.throttle != nil {
		start := time.Now()
		release, ok, err := w.reserve(ctx)
		if err != nil || !ok {
			return err
		}
		defer release()
		block -= time.Since(start).Truncate(time.Second)
		if block < 0 {
			block = 0
		}
	}

	w.setState(StateWaiting)
	rec, err := w.broker.Pop(ctx, w.queue, block)
	if err != nil {
		var malformed *protostar.MalformedJobError
		if errors.As(err, &malformed) {
			w.logger.Warn("dropping malformed job",
				slog.String("payload", malformed.Raw),
				slog.String("error", err.Error()),
			)
			w.ext.EmitJobDropped(ctx, w.queue, err)
			return nil
		}
		return err
	}
	if rec == nil {
		return nil
	}

	// From here on the record exists only in this process.
	jobCtx := context.WithoutCancel(ctx)

	w.setState(StateDispatching)
	d := &job.Delivery{Record: rec, WorkerID: w.id}
	h, ok := w.executor.Resolve(jobCtx, d)
	if !ok {
		return nil
	}

	if w.throttle != nil {
		if err := w.throttle.Throttle(jobCtx, w.queue); err != nil {
			w.logger.Warn("rate limiter rejected job, running it anyway", slog.String("error", err.Error()))
		}
	}

	w.publishStatus(jobCtx, rec)
	err = w.executor.Execute(jobCtx, d, h)
	w.clearStatus(jobCtx)
	return err
}

// reserve waits up to Config.BlockTimeout for a queue slot. ok is false
// when none freed up in time.
func (w *Worker) reserve(ctx context.Context) (release func(), ok bool, err error) {
	rctx, cancel := context.WithTimeout(ctx, w.config.BlockTimeout)
	defer cancel()
	release, err = w.throttle.Reserve(rctx, w.queue)
	switch {
	case err == nil:
		return release, true, nil
	case ctx.Err() == nil && errors.Is(err, context.DeadlineExceeded):
		return nil, false, nil
	default:
		return nil, false, err
	}
}

func (w *Worker) publishStatus(ctx context.Context, rec *job.Record) {
	cargo, err := rec.CargoJSON()
	if err != nil {
		w.logger.Warn("failed to encode job status", slog.String("error", err.Error()))
		return
	}
	version, _ := w.broker.CachedGeneration(w.queue)
	st := &protostar.WorkerStatus{
		QueueName: w.queue,
		Version:   version,
		Timestamp: time.Now().Unix(),
		WorkerID:  w.id,
		Job: protostar.JobStatus{
			Cargo:     cargo,
			Tries:     rec.Tries,
			Timestamp: rec.Timestamp,
		},
	}
	if err := w.broker.SetWorkerStatus(ctx, w.queue, w.id, st); err != nil {
		w.logger.Warn("failed to publish worker status", slog.String("error", err.Error()))
	}
}

func (w *Worker) clearStatus(ctx context.Context) {
	if err := w.broker.SetWorkerStatus(ctx, w.queue, w.id, nil); err != nil && ctx.Err() == nil {
		w.logger.Warn("failed to clear worker status", slog.String("error", err.Error()))
	}
}

// sleep waits for d or until ctx is done. It reports whether the full
// duration elapsed.
func sleep(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return true
	case <-ctx.Done():
		return false
	}
}
