// Package observability provides an OpenTelemetry metrics extension for
// protostar workers. The MetricsExtension implements lifecycle hooks to
// record counters for job start, completion, failure, retry and drop
// events, and for worker restarts.
//
// For per-execution tracing and metrics, see the middleware package:
// middleware.Tracing() and middleware.Metrics().
package observability
