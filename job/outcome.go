package job

import (
	"errors"
	"fmt"

	"github.com/pyxol/protostar"
)

// Kind tags the variant held by an Outcome.
type Kind int

const (
	// KindSuccess means the handler returned normally.
	KindSuccess Kind = iota
	// KindFinished means the handler finished the job early.
	KindFinished
	// KindRetry asks the worker to schedule another attempt.
	KindRetry
	// KindFatal carries an unexpected handler failure.
	KindFatal
	// KindRestart asks the worker to stop pulling jobs and exit its loop.
	KindRestart
)

func (k Kind) String() string {
	switch k {
	case KindSuccess:
		return "success"
	case KindFinished:
		return "finished"
	case KindRetry:
		return "retry"
	case KindFatal:
		return "fatal"
	case KindRestart:
		return "restart"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Outcome is the result of one Handle call.
type Outcome struct {
	Kind Kind

	// Cause is set for KindFatal.
	Cause error

	delay    int
	hasDelay bool
}

// Success reports a normal completion.
func Success() Outcome { return Outcome{Kind: KindSuccess} }

// Finished reports that the job is done and needs no further work.
func Finished() Outcome { return Outcome{Kind: KindFinished} }

// Retry requests another attempt. The worker picks the delay.
func Retry() Outcome { return Outcome{Kind: KindRetry} }

// RetryAfter requests another attempt no sooner than seconds from now.
func RetryAfter(seconds int) Outcome {
	if seconds < 0 {
		seconds = 0
	}
	return Outcome{Kind: KindRetry, delay: seconds, hasDelay: true}
}

// Fatal reports an unexpected failure. A nil err is replaced with a generic
// error so the outcome always carries a cause.
func Fatal(err error) Outcome {
	if err == nil {
		err = errors.New("job failed")
	}
	return Outcome{Kind: KindFatal, Cause: err}
}

// Restart asks the worker to restart after this job.
func Restart() Outcome { return Outcome{Kind: KindRestart} }

// FromError maps nil to Success and anything else to Fatal.
func FromError(err error) Outcome {
	if err == nil {
		return Success()
	}
	return Fatal(err)
}

// RetryDelay returns the delay requested with RetryAfter.
func (o Outcome) RetryDelay() (int, bool) { return o.delay, o.hasDelay }

// Err converts the outcome to an error for callers that run handlers
// outside a worker.
func (o Outcome) Err() error {
	switch o.Kind {
	case KindFatal:
		return o.Cause
	case KindRetry:
		return protostar.ErrRetryRequested
	case KindRestart:
		return protostar.ErrRestartRequested
	default:
		return nil
	}
}

func (o Outcome) String() string {
	switch {
	case o.Kind == KindFatal:
		return "fatal: " + o.Cause.Error()
	case o.Kind == KindRetry && o.hasDelay:
		return fmt.Sprintf("retry after %ds", o.delay)
	default:
		return o.Kind.String()
	}
}
