package engine

// State identifies the engine's position in its lifecycle.
type State uint8

const (
	// StateIdle accepts a new Execute call.
	StateIdle State = iota

	// StateExecuting is the dispatch loop running.
	StateExecuting

	// StateHostCall waits for the host to complete a pending import call.
	StateHostCall

	// StateSuspended holds a yielded execution with a capturable
	// checkpoint.
	StateSuspended

	// StateCompleted holds the result of a finished call.
	StateCompleted

	// StateFailed holds the error of a failed call.
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateExecuting:
		return "executing"
	case StateHostCall:
		return "host-call"
	case StateSuspended:
		return "suspended"
	case StateCompleted:
		return "completed"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// transitions is the closed set of legal state changes. Anything not
// listed is rejected with an invalid_state error by the caller.
// Completed admits Executing directly, so a healthy instance serves
// consecutive calls without a Reset between them; Failed does not, a
// failed call must be acknowledged through Reset before reuse.
var transitions = map[State][]State{
	StateIdle:      {StateExecuting, StateIdle},
	StateExecuting: {StateHostCall, StateSuspended, StateCompleted, StateFailed},
	StateHostCall:  {StateExecuting, StateFailed},
	StateSuspended: {StateExecuting},
	StateCompleted: {StateExecuting, StateIdle},
	StateFailed:    {StateIdle},
}

// canTransition reports whether moving from one state to another is
// legal.
func canTransition(from, to State) bool {
	for _, s := range transitions[from] {
		if s == to {
			return true
		}
	}
	return false
}
