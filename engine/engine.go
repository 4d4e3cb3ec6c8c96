package engine

import (
	"context"
	"errors"
	"log/slog"

	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/pyxol/protostar"
	"github.com/pyxol/protostar/backoff"
	"github.com/pyxol/protostar/broker"
	"github.com/pyxol/protostar/ext"
	"github.com/pyxol/protostar/job"
	mw "github.com/pyxol/protostar/middleware"
	"github.com/pyxol/protostar/observability"
	"github.com/pyxol/protostar/queue"
	"github.com/pyxol/protostar/worker"
)

const instrumentationName = "github.com/pyxol/protostar"

// Engine holds everything an application needs to produce and consume jobs
// on one queue.
type Engine struct {
	broker       *broker.Broker
	registry     *job.Registry
	extensions   *ext.Registry
	queueManager *queue.Manager
	logger       *slog.Logger

	queue  string
	config protostar.Config
	bo     backoff.Strategy
	mws    []mw.Middleware
	reload bool

	exts           []ext.Extension
	queueConfigs   []queue.Config
	tracerProvider trace.TracerProvider
	meterProvider  metric.MeterProvider
}

// Option configures an Engine.
type Option func(*Engine)

// WithQueue sets the queue workers consume and Dispatch falls back to.
// Defaults to the broker's default queue, then "default".
func WithQueue(name string) Option {
	return func(eng *Engine) { eng.queue = name }
}

// WithConfig sets the worker tuning.
func WithConfig(cfg protostar.Config) Option {
	return func(eng *Engine) { eng.config = cfg }
}

// WithLogger sets the logger shared by the workers and middleware.
func WithLogger(l *slog.Logger) Option {
	return func(eng *Engine) { eng.logger = l }
}

// WithExtension registers an extension with the engine.
func WithExtension(e ext.Extension) Option {
	return func(eng *Engine) { eng.exts = append(eng.exts, e) }
}

// WithMiddleware adds middleware inside the default stack.
func WithMiddleware(m mw.Middleware) Option {
	return func(eng *Engine) { eng.mws = append(eng.mws, m) }
}

// WithBackoff sets the delay for retries that do not name one.
// If not set, retries without a delay are enqueued immediately.
func WithBackoff(b backoff.Strategy) Option {
	return func(eng *Engine) { eng.bo = b }
}

// WithQueueConfig registers queue-level rate limiting and concurrency
// caps.
func WithQueueConfig(configs ...queue.Config) Option {
	return func(eng *Engine) { eng.queueConfigs = append(eng.queueConfigs, configs...) }
}

// WithTracerProvider sets the OTel TracerProvider used by the tracing
// middleware. If not set, the global provider is used.
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(eng *Engine) { eng.tracerProvider = tp }
}

// WithMeterProvider sets the OTel MeterProvider used by the metrics
// middleware and the observability extension. If not set, the global
// provider is used.
func WithMeterProvider(mp metric.MeterProvider) Option {
	return func(eng *Engine) { eng.meterProvider = mp }
}

// WithReload makes Run start new workers after a restart request instead
// of returning protostar.ErrRestartRequested.
func WithReload(on bool) Option {
	return func(eng *Engine) { eng.reload = on }
}

// Build creates an Engine on b.
func Build(b *broker.Broker, opts ...Option) (*Engine, error) {
	if b == nil {
		return nil, errors.New("protostar/engine: broker is required")
	}

	eng := &Engine{
		broker:   b,
		registry: job.NewRegistry(),
		logger:   slog.Default(),
		config:   protostar.DefaultConfig(),
		bo:       backoff.None{},
	}
	for _, opt := range opts {
		opt(eng)
	}

	if eng.queue == "" {
		name, err := b.QueueName("")
		if err != nil {
			name = "default"
		}
		eng.queue = name
	}

	eng.extensions = ext.NewRegistry(eng.logger)

	var obsExt *observability.MetricsExtension
	if eng.meterProvider != nil {
		obsExt = observability.NewMetricsExtensionWithMeter(eng.meterProvider.Meter(instrumentationName + "/observability"))
	} else {
		obsExt = observability.NewMetricsExtension()
	}
	eng.extensions.Register(obsExt)
	for _, e := range eng.exts {
		eng.extensions.Register(e)
	}

	if len(eng.queueConfigs) > 0 {
		eng.queueManager = queue.NewManager(eng.queueConfigs...)
	}

	return eng, nil
}

// middleware returns the default stack: tracing → metrics → logging →
// user middleware. Recover and the job timeout are added by the worker.
func (eng *Engine) middleware() []mw.Middleware {
	var tracingMw mw.Middleware
	if eng.tracerProvider != nil {
		tracingMw = mw.TracingWithTracer(eng.tracerProvider.Tracer(instrumentationName))
	} else {
		tracingMw = mw.Tracing()
	}

	var metricsMw mw.Middleware
	if eng.meterProvider != nil {
		metricsMw = mw.MetricsWithMeter(eng.meterProvider.Meter(instrumentationName))
	} else {
		metricsMw = mw.Metrics()
	}

	all := make([]mw.Middleware, 0, 3+len(eng.mws))
	all = append(all, tracingMw, metricsMw, mw.Logging(eng.logger))
	return append(all, eng.mws...)
}

func (eng *Engine) workerOptions() []worker.Option {
	opts := []worker.Option{
		worker.WithQueue(eng.queue),
		worker.WithLogger(eng.logger),
		worker.WithConfig(eng.config),
		worker.WithBackoff(eng.bo),
		worker.WithExtensions(eng.extensions),
		worker.WithMiddleware(eng.middleware()...),
	}
	if eng.queueManager != nil {
		opts = append(opts, worker.WithQueueManager(eng.queueManager))
	}
	return opts
}

// Register registers a typed handler definition with the engine.
func Register[T any](eng *Engine, def *job.Definition[T]) {
	job.RegisterDefinition(eng.registry, def)
}

// Dispatch sends q to the engine's queue unless q names its own.
func (eng *Engine) Dispatch(ctx context.Context, q job.Queueable, opts ...job.DispatchOption) error {
	opts = append([]job.DispatchOption{job.OnQueue(eng.queue)}, opts...)
	return job.Dispatch(ctx, eng.broker, q, opts...)
}

// Enqueue places a job for the handler registered under name on the
// engine's queue.
func (eng *Engine) Enqueue(ctx context.Context, name string, props job.Properties, p job.Priority, opts ...job.Option) error {
	if props == nil {
		props = job.Properties{}
	}
	r, err := job.New(eng.queue, job.Descriptor{Type: name, Properties: props}, opts...)
	if err != nil {
		return err
	}
	return eng.broker.Enqueue(ctx, r, p)
}

// Run consumes the engine's queue with Config.Concurrency workers until
// ctx is done (nil) or a restart is requested
// (protostar.ErrRestartRequested, unless WithReload is set).
func (eng *Engine) Run(ctx context.Context) error {
	for {
		pool, err := worker.NewPool(eng.broker, eng.registry, eng.workerOptions()...)
		if err != nil {
			return err
		}

		err = pool.Run(ctx)
		if !errors.Is(err, protostar.ErrRestartRequested) || !eng.reload {
			return err
		}

		eng.broker.ForgetGeneration(eng.queue)
		eng.logger.Info("restart requested, starting new workers", slog.String("queue", eng.queue))
	}
}

// Broker returns the engine's broker.
func (eng *Engine) Broker() *broker.Broker { return eng.broker }

// Registry returns the handler registry.
func (eng *Engine) Registry() *job.Registry { return eng.registry }

// Extensions returns the extension registry.
func (eng *Engine) Extensions() *ext.Registry { return eng.extensions }

// QueueManager returns the queue manager, or nil if no queue configs
// were provided.
func (eng *Engine) QueueManager() *queue.Manager { return eng.queueManager }

// Queue returns the queue the engine consumes.
func (eng *Engine) Queue() string { return eng.queue }
