package protostar

import (
	"errors"
	"fmt"
)

var (
	// Connection errors.
	ErrConnectionFailed = errors.New("protostar: connection failed")

	// Record construction errors.
	ErrEncoding         = errors.New("protostar: failed to encode job")
	ErrMalformedJob     = errors.New("protostar: malformed job payload")
	ErrMissingCargo     = errors.New("protostar: job has no cargo")
	ErrMissingQueueName = errors.New("protostar: queue name not set")
	ErrInvalidMaxTries  = errors.New("protostar: max tries must be at least 1")

	// Handler resolution errors.
	ErrMissingHandlerType = errors.New("protostar: cargo does not name a handler")
	ErrUnknownHandler     = errors.New("protostar: no handler registered")
	ErrInvalidHandler     = errors.New("protostar: factory returned no handler")
	ErrMissingParameter   = errors.New("protostar: missing parameter")

	// Retry policy errors.
	ErrAlreadyFinished     = errors.New("protostar: job has already finished processing")
	ErrMaxAttemptsExceeded = errors.New("protostar: job exceeded max attempts")
	ErrRetryRequested      = errors.New("protostar: job requested a retry")

	// Worker control.
	ErrRestartRequested = errors.New("protostar: worker restart requested")
)

// MaxAttemptsError reports a retry that pushed a record past its attempt
// ceiling. It matches ErrMaxAttemptsExceeded with errors.Is.
type MaxAttemptsError struct {
	MaxTries int
}

func (e *MaxAttemptsError) Error() string {
	return fmt.Sprintf("protostar: job exceeded the maximum number of attempts: %d", e.MaxTries)
}

// Is reports whether target is ErrMaxAttemptsExceeded.
func (e *MaxAttemptsError) Is(target error) bool { return target == ErrMaxAttemptsExceeded }

// MissingParameterError is returned when a handler cannot be reconstructed
// because a property was not captured at dispatch time.
type MissingParameterError struct {
	Handler string
	Name    string
}

func (e *MissingParameterError) Error() string {
	if e.Handler == "" {
		return "protostar: missing parameter: " + e.Name
	}
	return fmt.Sprintf("protostar: handler %q: missing parameter: %s", e.Handler, e.Name)
}

// Unwrap returns ErrMissingParameter.
func (e *MissingParameterError) Unwrap() error { return ErrMissingParameter }

// MalformedJobError carries the raw payload that could not be decoded into a
// job record.
type MalformedJobError struct {
	Queue string
	Raw   string
	Err   error
}

func (e *MalformedJobError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("protostar: malformed job payload on queue %q", e.Queue)
	}
	return fmt.Sprintf("protostar: malformed job payload on queue %q: %v", e.Queue, e.Err)
}

// Is reports whether target is ErrMalformedJob.
func (e *MalformedJobError) Is(target error) bool { return target == ErrMalformedJob }

// Unwrap returns the decode error.
func (e *MalformedJobError) Unwrap() error { return e.Err }
