package job

import (
	"context"
	"time"

	"github.com/pyxol/protostar"
)

// Priority selects where a ready record is inserted in its queue.
type Priority int

const (
	// PriorityNormal appends the record to the tail of the queue.
	PriorityNormal Priority = iota
	// PriorityHigh pushes the record to the head of the queue.
	PriorityHigh
)

// String returns "high" or "normal".
func (p Priority) String() string {
	if p == PriorityHigh {
		return "high"
	}
	return "normal"
}

// Enqueuer places records on a queue. The broker implements it.
type Enqueuer interface {
	Enqueue(ctx context.Context, r *Record, p Priority) error
}

// CanDeliver reports whether the record's delay has elapsed at now. A
// record without a delay is always deliverable, whatever the producer's
// clock said.
func (r *Record) CanDeliver(now time.Time) bool {
	return r.Delay <= 0 || now.Unix() >= r.Timestamp+int64(r.Delay)
}

// Finished reports whether the record reached a terminal state.
func (r *Record) Finished() bool { return r.finished }

// MarkFinished moves the record to its terminal state. Calling it again has
// no effect.
func (r *Record) MarkFinished() { r.finished = true }

// Retry schedules a new delivery attempt of the record, delay seconds from
// now. The retry is a fresh record on the queue; on success this instance
// is finished and cannot be retried again.
//
// Once the attempt count passes MaxTries the record is abandoned: it is
// finished and a *protostar.MaxAttemptsError is returned.
func (r *Record) Retry(ctx context.Context, e Enqueuer, delay int) error {
	if r.finished {
		return protostar.ErrAlreadyFinished
	}

	r.Tries++
	if r.Tries > r.MaxTries {
		r.finished = true
		return &protostar.MaxAttemptsError{MaxTries: r.MaxTries}
	}

	if delay < 0 {
		delay = 0
	}
	next := &Record{
		Queue:     r.Queue,
		Cargo:     r.Cargo,
		Tries:     r.Tries,
		MaxTries:  r.MaxTries,
		Delay:     delay,
		Timestamp: time.Now().Unix(),
	}
	if err := e.Enqueue(ctx, next, PriorityNormal); err != nil {
		return err
	}

	r.finished = true
	return nil
}
