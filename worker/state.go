package worker

// State is the step of the loop a worker is in.
type State int32

const (
	// StateIdle is between iterations.
	StateIdle State = iota
	// StateRestartCheck compares the queue generation with the adopted one.
	StateRestartCheck
	// StateMigrating moves due delayed jobs to the ready list.
	StateMigrating
	// StateWaiting blocks on the ready list.
	StateWaiting
	// StateDispatching runs a popped job.
	StateDispatching
	// StateRestarting is terminal: the loop exited for a restart.
	StateRestarting
	// StateStopped is terminal: the loop exited because its context ended.
	StateStopped
)

var stateNames = [...]string{
	StateIdle:         "idle",
	StateRestartCheck: "restart_check",
	StateMigrating:    "migrating",
	StateWaiting:      "waiting",
	StateDispatching:  "dispatching",
	StateRestarting:   "restarting",
	StateStopped:      "stopped",
}

func (s State) String() string {
	if s >= 0 && int(s) < len(stateNames) {
		return stateNames[s]
	}
	return "unknown"
}
