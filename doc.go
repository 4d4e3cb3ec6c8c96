// Package protostar is a Redis-backed distributed job queue for Go.
//
// Producers enqueue job records onto named queues; worker processes pop
// them, rebuild the handler the record names, run it and act on the
// outcome. Delivery is at-least-once, delayed jobs wait in a sorted set
// until they are due, retries are bounded by a per-record attempt ceiling,
// and a per-queue generation counter lets any producer ask the whole fleet
// of workers to restart gracefully.
//
// # Packages
//
//   - job: the record model, retry policy, handler capability and registry.
//   - broker: all Redis interaction and key naming.
//   - worker: the poll loop, outcome classification and a multi-worker pool.
//   - middleware: handler wrappers (panic recovery, logging, timeouts, OTel).
//   - ext, observability: lifecycle hooks and OTel counters.
//   - queue: per-queue rate limits and concurrency caps for workers.
//   - config: file and environment configuration.
//   - engine: wires a broker, registry, middleware and pool for an application.
//
// # Quick Start
//
//	b, err := broker.Dial(ctx, conn, broker.WithLogger(logger))
//	reg := job.NewRegistry()
//	job.RegisterDefinition(reg, sendEmail)
//
//	w, err := worker.New(b, reg, worker.WithQueue("emails"))
//	err = w.Run(ctx) // returns protostar.ErrRestartRequested on restart
//
// This root package holds the shared error values, worker tuning Config and
// the WorkerStatus blob.
package protostar
