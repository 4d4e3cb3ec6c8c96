package job

import (
	"time"

	"github.com/pyxol/protostar"
)

// DefaultMaxTries is the attempt ceiling of a record created without
// WithMaxTries.
const DefaultMaxTries = 3

// Record is the serializable unit of work held by a queue.
type Record struct {
	// Queue is the target queue. It is set at creation and never changes.
	Queue string

	// Cargo is the payload. Records built by Decode hold a json.RawMessage.
	Cargo any

	// Tries is the number of attempts already made.
	Tries int

	// MaxTries is the attempt ceiling.
	MaxTries int

	// Delay is the number of seconds after Timestamp before the record may
	// be delivered. It is consumed at enqueue time.
	Delay int

	// Timestamp is the unix time the record was created or last re-enqueued.
	Timestamp int64

	finished bool
}

// Option configures a Record created with New.
type Option func(*Record)

// WithMaxTries sets the attempt ceiling.
func WithMaxTries(n int) Option {
	return func(r *Record) { r.MaxTries = n }
}

// WithTries sets the number of attempts already made.
func WithTries(n int) Option {
	return func(r *Record) { r.Tries = n }
}

// WithDelay delays delivery by the given number of seconds.
func WithDelay(seconds int) Option {
	return func(r *Record) { r.Delay = seconds }
}

// WithTimestamp overrides the creation time.
func WithTimestamp(unix int64) Option {
	return func(r *Record) { r.Timestamp = unix }
}

// New creates a producer-side record with zero tries.
func New(queue string, cargo any, opts ...Option) (*Record, error) {
	if queue == "" {
		return nil, protostar.ErrMissingQueueName
	}
	if cargo == nil {
		return nil, protostar.ErrMissingCargo
	}

	r := &Record{
		Queue:     queue,
		Cargo:     cargo,
		MaxTries:  DefaultMaxTries,
		Timestamp: time.Now().Unix(),
	}
	for _, opt := range opts {
		opt(r)
	}

	if r.MaxTries < 1 {
		return nil, protostar.ErrInvalidMaxTries
	}
	if r.Tries < 0 {
		r.Tries = 0
	}
	if r.Delay < 0 {
		r.Delay = 0
	}
	return r, nil
}

// Attempt returns the 1-indexed number of the delivery in progress.
func (r *Record) Attempt() int { return r.Tries + 1 }

// DueAt returns the earliest time the record may be delivered.
func (r *Record) DueAt() time.Time {
	return time.Unix(r.Timestamp+int64(r.Delay), 0)
}
