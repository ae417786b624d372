package client

import "fmt"

// RegState is the registration lifecycle state of a Client.
type RegState int

const (
	StateIdle RegState = iota
	StateRegistering
	StateAuthenticating
	StateRegistered
	StateRefreshing
	StateDeregistering
	StateFailed
)

func (s RegState) String() string {
	switch s {
	case StateIdle:
		return "Idle"
	case StateRegistering:
		return "Registering"
	case StateAuthenticating:
		return "Authenticating"
	case StateRegistered:
		return "Registered"
	case StateRefreshing:
		return "Refreshing"
	case StateDeregistering:
		return "Deregistering"
	case StateFailed:
		return "Failed"
	default:
		return fmt.Sprintf("Unknown(%d)", int(s))
	}
}

// validTransitions enumerates the allowed registration state changes.
// Failed is reachable from any non-terminal state on an unrecoverable
// error, but otherwise the lifecycle is a straight line with a loop
// back to Registering on refresh.
var validTransitions = map[RegState][]RegState{
	StateIdle:           {StateRegistering},
	StateRegistering:    {StateAuthenticating, StateRegistered, StateFailed, StateIdle},
	StateAuthenticating: {StateRegistered, StateFailed, StateIdle},
	StateRegistered:     {StateRefreshing, StateDeregistering, StateFailed},
	StateRefreshing:     {StateAuthenticating, StateRegistered, StateFailed, StateIdle},
	StateDeregistering:  {StateIdle, StateFailed},
	StateFailed:         {StateIdle},
}

// CanTransitionTo reports whether next is a valid transition from s.
func (s RegState) CanTransitionTo(next RegState) bool {
	for _, allowed := range validTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}
