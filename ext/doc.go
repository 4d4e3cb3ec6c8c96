// Package ext defines the extension system for protostar workers.
//
// Extensions are notified of lifecycle events and can react to them,
// for example by recording metrics or writing audit logs.
// Each lifecycle hook is a separate interface so extensions opt in only
// to the events they care about.
//
// # Implementing an Extension
//
//	type MyExtension struct{}
//
//	func (e *MyExtension) Name() string { return "my-extension" }
//
//	// Opt in to specific hooks by implementing their interfaces.
//	func (e *MyExtension) OnJobCompleted(ctx context.Context, d *job.Delivery, elapsed time.Duration) error {
//	    log.Printf("%s completed in %s", d.HandlerType, elapsed)
//	    return nil
//	}
//
// # Job Lifecycle Hooks
//
//   - [JobStarted]: worker began executing the job
//   - [JobCompleted]: job finished (success or early finish)
//   - [JobRetrying]: job asked for another attempt and was re-enqueued
//   - [JobFailed]: job failed fatally or ran out of attempts
//   - [JobDropped]: a popped payload could not be turned into a handler
//
// # Worker Hooks
//
//   - [WorkerRestarting]: the worker saw a restart request and is exiting
//   - [Shutdown]: the worker loop stopped because its context ended
//
// The [Registry] fans out each event to all registered extensions that
// implement the corresponding hook interface.
package ext
