package middleware

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/pyxol/protostar/job"
)

// tracerName is the instrumentation scope name for protostar tracing.
const tracerName = "github.com/pyxol/protostar"

// Tracing returns middleware that wraps job execution in an OpenTelemetry span.
// If no TracerProvider is configured globally, the default noop tracer is used
// and this middleware becomes a pass-through.
//
// Span attributes: protostar.handler, protostar.queue, protostar.attempt,
// protostar.max_tries, protostar.worker_id and protostar.outcome. A fatal
// outcome sets the span status to codes.Error with the cause.
func Tracing() Middleware {
	tracer := otel.Tracer(tracerName)
	return TracingWithTracer(tracer)
}

// TracingWithTracer returns tracing middleware using the provided tracer.
func TracingWithTracer(tracer trace.Tracer) Middleware {
	return func(ctx context.Context, d *job.Delivery, next Handler) job.Outcome {
		maxTries := 0
		if d.Record != nil {
			maxTries = d.Record.MaxTries
		}
		ctx, span := tracer.Start(ctx, "protostar.job.execute",
			trace.WithAttributes(
				attribute.String("protostar.handler", d.HandlerType),
				attribute.String("protostar.queue", d.Queue()),
				attribute.Int("protostar.attempt", d.Attempt()),
				attribute.Int("protostar.max_tries", maxTries),
				attribute.String("protostar.worker_id", d.WorkerID),
			),
			trace.WithSpanKind(trace.SpanKindConsumer),
		)
		defer span.End()

		out := next(ctx)
		span.SetAttributes(attribute.String("protostar.outcome", out.Kind.String()))
		if out.Kind == job.KindFatal {
			span.RecordError(out.Cause)
			span.SetStatus(codes.Error, out.Cause.Error())
		} else {
			span.SetStatus(codes.Ok, "")
		}

		return out
	}
}
