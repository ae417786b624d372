package phone

import "testing"

func TestCallStateString(t *testing.T) {
	cases := map[CallState]string{
		StateDialing:  "Dialing",
		StateRinging:  "Ringing",
		StateAnswered: "Answered",
		StateEnded:    "Ended",
		StateBusy:     "Busy",
		StateCanceled: "Canceled",
		StateError:    "Error",
	}
	for state, want := range cases {
		if got := state.String(); got != want {
			t.Errorf("State(%d).String() = %q, want %q", int(state), got, want)
		}
	}
	if got := CallState(99).String(); got != "Unknown(99)" {
		t.Errorf("unknown state String() = %q", got)
	}
}

func TestCallStateCanTransitionTo(t *testing.T) {
	if !StateDialing.CanTransitionTo(StateRinging) {
		t.Error("Dialing should reach Ringing")
	}
	if !StateRinging.CanTransitionTo(StateAnswered) {
		t.Error("Ringing should reach Answered")
	}
	if !StateAnswered.CanTransitionTo(StateEnded) {
		t.Error("Answered should reach Ended")
	}
	if StateAnswered.CanTransitionTo(StateRinging) {
		t.Error("Answered must not go back to Ringing")
	}
	if StateEnded.CanTransitionTo(StateAnswered) {
		t.Error("Ended is terminal, must not leave")
	}
}

func TestCallStateIsTerminal(t *testing.T) {
	for _, s := range []CallState{StateEnded, StateBusy, StateCanceled, StateError} {
		if !s.IsTerminal() {
			t.Errorf("%s should be terminal", s)
		}
	}
	for _, s := range []CallState{StateDialing, StateRinging, StateAnswered} {
		if s.IsTerminal() {
			t.Errorf("%s should not be terminal", s)
		}
	}
}
