package protostar

import "time"

// Config holds worker tuning shared by every worker in a process.
type Config struct {
	// BlockTimeout bounds the blocking pop so restart checks stay responsive.
	BlockTimeout time.Duration

	// MigrateBatch is the number of due delayed jobs moved per iteration.
	MigrateBatch int

	// StatusTTL is the expiry of the per-worker status blob.
	StatusTTL time.Duration

	// ErrorDelay is how long a worker waits after a store error before
	// polling again.
	ErrorDelay time.Duration

	// Concurrency is the number of workers a Pool runs against one queue.
	Concurrency int

	// JobTimeout caps a single handler invocation. Zero means no limit.
	JobTimeout time.Duration
}

// DefaultConfig returns a Config with the queue's standard settings.
func DefaultConfig() Config {
	return Config{
		BlockTimeout: 3 * time.Second,
		MigrateBatch: 10,
		StatusTTL:    time.Hour,
		ErrorDelay:   time.Second,
		Concurrency:  1,
	}
}
