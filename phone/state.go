package phone

import "fmt"

// CallState is the lifecycle state of a single Call, driven entirely by
// inbound/outbound SIP events (never polled).
type CallState int

const (
	StateDialing CallState = iota
	StateRinging
	StateAnswered
	StateEnded
	StateBusy
	StateCanceled
	StateError
)

func (s CallState) String() string {
	switch s {
	case StateDialing:
		return "Dialing"
	case StateRinging:
		return "Ringing"
	case StateAnswered:
		return "Answered"
	case StateEnded:
		return "Ended"
	case StateBusy:
		return "Busy"
	case StateCanceled:
		return "Canceled"
	case StateError:
		return "Error"
	default:
		return fmt.Sprintf("Unknown(%d)", int(s))
	}
}

// validTransitions mirrors the outbound/inbound event tables: a call
// can always fall into Error, and every non-terminal state can end.
var validTransitions = map[CallState][]CallState{
	StateDialing:  {StateRinging, StateAnswered, StateBusy, StateError, StateEnded},
	StateRinging:  {StateAnswered, StateCanceled, StateError, StateEnded},
	StateAnswered: {StateEnded, StateError},
	StateEnded:    {},
	StateBusy:     {},
	StateCanceled: {},
	StateError:    {},
}

// CanTransitionTo reports whether next is reachable from s.
func (s CallState) CanTransitionTo(next CallState) bool {
	for _, allowed := range validTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// IsTerminal reports whether s is one of the call's end states.
func (s CallState) IsTerminal() bool {
	switch s {
	case StateEnded, StateBusy, StateCanceled, StateError:
		return true
	default:
		return false
	}
}
