package ic

import "testing"

func TestStateTransitions(t *testing.T) {
	cases := []struct {
		from, to State
		want     bool
	}{
		{StateInit, StateConnecting, true},
		{StateInit, StateReady, true}, // unix-accepted fast path
		{StateInit, StateTLSHandshake, false},
		{StateConnecting, StateVersionWait, true},
		{StateConnecting, StateInit, false},
		{StateVersionWait, StateTLSHandshake, true},
		{StateVersionWait, StateReady, true},
		{StateTLSHandshake, StateReady, true},
		{StateReady, StateClosing, true},
		{StateReady, StateVersionWait, false},
		{StateClosing, StateWiped, true},
		{StateWiped, StateInit, false},
	}
	for _, tc := range cases {
		if got := tc.from.canTransitionTo(tc.to); got != tc.want {
			t.Errorf("%s -> %s: got %v, want %v", tc.from, tc.to, got, tc.want)
		}
	}
}

func TestClosingReachableFromEveryLiveState(t *testing.T) {
	for _, s := range []State{StateInit, StateConnecting, StateVersionWait, StateTLSHandshake, StateReady} {
		if !s.canTransitionTo(StateClosing) {
			t.Errorf("%s must be able to transition to CLOSING", s)
		}
	}
}

func TestStateString(t *testing.T) {
	if StateReady.String() != "READY" {
		t.Fatalf("got %q", StateReady.String())
	}
	if State(99).String() != "UNKNOWN" {
		t.Fatalf("got %q", State(99).String())
	}
}
