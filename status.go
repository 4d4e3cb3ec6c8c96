package protostar

import "encoding/json"

// WorkerStatus is the observability blob a worker publishes while it runs a
// job. It is never consulted for correctness.
type WorkerStatus struct {
	QueueName string    `json:"queue_name"`
	Version   int64     `json:"version"`
	Timestamp int64     `json:"timestamp"`
	WorkerID  string    `json:"worker_id"`
	Job       JobStatus `json:"job"`
}

// JobStatus describes the job inside a WorkerStatus.
type JobStatus struct {
	Cargo     json.RawMessage `json:"cargo"`
	Tries     int             `json:"tries"`
	Timestamp int64           `json:"timestamp"`
}
