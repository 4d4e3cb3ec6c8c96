package observability

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/pyxol/protostar/ext"
	"github.com/pyxol/protostar/job"
)

// Compile-time interface checks.
var (
	_ ext.Extension        = (*MetricsExtension)(nil)
	_ ext.JobStarted       = (*MetricsExtension)(nil)
	_ ext.JobCompleted     = (*MetricsExtension)(nil)
	_ ext.JobFailed        = (*MetricsExtension)(nil)
	_ ext.JobRetrying      = (*MetricsExtension)(nil)
	_ ext.JobDropped       = (*MetricsExtension)(nil)
	_ ext.WorkerRestarting = (*MetricsExtension)(nil)
)

const meterName = "github.com/pyxol/protostar/observability"

// MetricsExtension records worker lifecycle metrics. Register it as a
// worker extension to track start, completion, failure, retry, drop and
// restart counts.
type MetricsExtension struct {
	JobStarted       metric.Int64Counter
	JobCompleted     metric.Int64Counter
	JobFailed        metric.Int64Counter
	JobRetried       metric.Int64Counter
	JobDropped       metric.Int64Counter
	WorkerRestarting metric.Int64Counter
}

// NewMetricsExtension creates a MetricsExtension on the global MeterProvider.
func NewMetricsExtension() *MetricsExtension {
	return NewMetricsExtensionWithMeter(otel.Meter(meterName))
}

// NewMetricsExtensionWithMeter creates a MetricsExtension with the provided meter.
func NewMetricsExtensionWithMeter(meter metric.Meter) *MetricsExtension {
	counter := func(name, desc string) metric.Int64Counter {
		// On error the API returns a noop counter.
		c, _ := meter.Int64Counter(name, metric.WithDescription(desc))
		return c
	}
	return &MetricsExtension{
		JobStarted:       counter("protostar.job.started", "Jobs handed to a handler"),
		JobCompleted:     counter("protostar.job.completed", "Jobs that finished without a retry"),
		JobFailed:        counter("protostar.job.failed", "Jobs that failed fatally or ran out of attempts"),
		JobRetried:       counter("protostar.job.retried", "Retry attempts enqueued"),
		JobDropped:       counter("protostar.job.dropped", "Payloads dropped before a handler ran"),
		WorkerRestarting: counter("protostar.worker.restarts", "Workers that exited for a restart"),
	}
}

// Name implements ext.Extension.
func (m *MetricsExtension) Name() string { return "observability-metrics" }

func jobAttrs(d *job.Delivery) metric.AddOption {
	return metric.WithAttributes(
		attribute.String("handler", d.HandlerType),
		attribute.String("queue", d.Queue()),
	)
}

// ── Job lifecycle hooks ─────────────────────────────

// OnJobStarted implements ext.JobStarted.
func (m *MetricsExtension) OnJobStarted(ctx context.Context, d *job.Delivery) error {
	m.JobStarted.Add(ctx, 1, jobAttrs(d))
	return nil
}

// OnJobCompleted implements ext.JobCompleted.
func (m *MetricsExtension) OnJobCompleted(ctx context.Context, d *job.Delivery, _ time.Duration) error {
	m.JobCompleted.Add(ctx, 1, jobAttrs(d))
	return nil
}

// OnJobFailed implements ext.JobFailed.
func (m *MetricsExtension) OnJobFailed(ctx context.Context, d *job.Delivery, _ error) error {
	m.JobFailed.Add(ctx, 1, jobAttrs(d))
	return nil
}

// OnJobRetrying implements ext.JobRetrying.
func (m *MetricsExtension) OnJobRetrying(ctx context.Context, d *job.Delivery, _ time.Duration) error {
	m.JobRetried.Add(ctx, 1, jobAttrs(d))
	return nil
}

// OnJobDropped implements ext.JobDropped.
func (m *MetricsExtension) OnJobDropped(ctx context.Context, queue string, _ error) error {
	m.JobDropped.Add(ctx, 1, metric.WithAttributes(attribute.String("queue", queue)))
	return nil
}

// ── Worker hooks ────────────────────────────────────

// OnWorkerRestarting implements ext.WorkerRestarting.
func (m *MetricsExtension) OnWorkerRestarting(ctx context.Context, _ string, queue string) error {
	m.WorkerRestarting.Add(ctx, 1, metric.WithAttributes(attribute.String("queue", queue)))
	return nil
}
