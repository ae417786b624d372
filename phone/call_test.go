package phone

import (
	"errors"
	"testing"
)

// TestCallAnswerInvalidState covers the "invalid_state" error kind:
// answer() must fail without side effects when the call is not Ringing.
func TestCallAnswerInvalidState(t *testing.T) {
	for _, s := range []CallState{StateDialing, StateAnswered, StateEnded, StateBusy} {
		c := &Call{state: s}
		if err := c.Answer("127.0.0.1"); !errors.Is(err, ErrInvalidState) {
			t.Errorf("Answer() from %s: got %v, want ErrInvalidState", s, err)
		}
	}
}

func TestCallHangupInvalidState(t *testing.T) {
	for _, s := range []CallState{StateEnded, StateBusy, StateCanceled, StateError} {
		c := &Call{state: s}
		if err := c.Hangup(); !errors.Is(err, ErrInvalidState) {
			t.Errorf("Hangup() from %s: got %v, want ErrInvalidState", s, err)
		}
	}
}

func TestCallRejectInvalidState(t *testing.T) {
	c := &Call{state: StateAnswered}
	if err := c.Reject(486, "Busy Here"); !errors.Is(err, ErrInvalidState) {
		t.Errorf("Reject() from Answered: got %v, want ErrInvalidState", err)
	}

	c = &Call{state: StateRinging}
	if err := c.Reject(486, "Busy Here"); !errors.Is(err, ErrInvalidState) {
		t.Errorf("Reject() with no pending invite: got %v, want ErrInvalidState", err)
	}
}

func TestCallStateAccessor(t *testing.T) {
	c := &Call{state: StateRinging}
	if got := c.State(); got != StateRinging {
		t.Errorf("State() = %s, want Ringing", got)
	}
	c.setState(StateAnswered)
	if got := c.State(); got != StateAnswered {
		t.Errorf("State() after setState = %s, want Answered", got)
	}
}
