package registry

// State represents the current lifecycle state of a registered thread
type State int

const (
	// StateCreated indicates the thread was registered but is not running yet
	StateCreated State = iota
	// StateRunning indicates the thread is running normally
	StateRunning
	// StateSuspended indicates the thread is temporarily suspended
	StateSuspended
	// StateStopping indicates the thread has been signaled to stop
	StateStopping
	// StateTerminated indicates the thread finished cleanly
	StateTerminated
	// StateFailed indicates the thread encountered an error
	StateFailed
	// StateUnknown is returned for labels absent from the registry
	StateUnknown
)

// String returns a string representation of the thread state
func (s State) String() string {
	switch s {
	case StateCreated:
		return "created"
	case StateRunning:
		return "running"
	case StateSuspended:
		return "suspended"
	case StateStopping:
		return "stopping"
	case StateTerminated:
		return "terminated"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Terminal reports whether a state is absorbing: once reached, no
// further transitions are permitted and the completion event has fired.
func (s State) Terminal() bool {
	return s == StateTerminated || s == StateFailed
}

// validTransitions is the fixed lifecycle table. A transition absent
// from the table is rejected and reported, never silently applied.
var validTransitions = map[State][]State{
	StateCreated:   {StateRunning, StateFailed},
	StateRunning:   {StateSuspended, StateStopping, StateTerminated, StateFailed},
	StateSuspended: {StateRunning, StateStopping, StateFailed},
	StateStopping:  {StateTerminated, StateFailed},
	// Terminated and Failed are absorbing.
}

// ValidTransition reports whether moving from one state to another is
// permitted by the lifecycle table.
func ValidTransition(from, to State) bool {
	for _, allowed := range validTransitions[from] {
		if allowed == to {
			return true
		}
	}
	return false
}
