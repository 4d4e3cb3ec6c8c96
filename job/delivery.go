package job

// Delivery describes the record a worker is processing. Middleware and
// extension hooks receive it alongside the handler call.
type Delivery struct {
	Record *Record

	// HandlerType is the registered type named by the record's cargo.
	HandlerType string

	// WorkerID identifies the worker that popped the record.
	WorkerID string
}

// Queue returns the queue the record was popped from.
func (d *Delivery) Queue() string {
	if d == nil || d.Record == nil {
		return ""
	}
	return d.Record.Queue
}

// Attempt returns the 1-indexed attempt in progress.
func (d *Delivery) Attempt() int {
	if d == nil || d.Record == nil {
		return 0
	}
	return d.Record.Attempt()
}
