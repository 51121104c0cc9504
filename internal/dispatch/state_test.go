package dispatch

import "testing"

func TestConnectionStateString(t *testing.T) {
	cases := map[ConnectionState]string{
		StateClosed:             "closed",
		StatePendingOpenRfc1006: "pending_open_rfc1006",
		StateTransportOpened:    "transport_opened",
		StatePendingOpenPlc:     "pending_open_plc",
		StateOpened:             "opened",
		ConnectionState(99):     "unknown",
	}
	for state, want := range cases {
		if got := state.String(); got != want {
			t.Errorf("%d.String() = %q, want %q", state, got, want)
		}
	}
}

func TestCanTransition(t *testing.T) {
	cases := []struct {
		from, to ConnectionState
		want     bool
	}{
		{StateClosed, StatePendingOpenRfc1006, true},
		{StatePendingOpenRfc1006, StateTransportOpened, true},
		{StateTransportOpened, StatePendingOpenPlc, true},
		{StatePendingOpenPlc, StateOpened, true},
		{StateClosed, StateTransportOpened, false},
		{StateOpened, StatePendingOpenRfc1006, false},
		{StateOpened, StateClosed, true},
		{StatePendingOpenPlc, StateClosed, true},
	}
	for _, c := range cases {
		if got := canTransition(c.from, c.to); got != c.want {
			t.Errorf("canTransition(%s, %s) = %v, want %v", c.from, c.to, got, c.want)
		}
	}
}

func TestConnStateHelpers(t *testing.T) {
	c := &Conn{}
	if got := c.getState(); got != StateClosed {
		t.Fatalf("zero-value state = %s, want closed", got)
	}
	if !c.compareAndSwapState(StateClosed, StatePendingOpenRfc1006) {
		t.Fatal("expected CAS Closed->PendingOpenRfc1006 to succeed")
	}
	if c.compareAndSwapState(StateClosed, StateTransportOpened) {
		t.Fatal("expected CAS from stale Closed to fail after transition")
	}
	if !c.compareAndSwapState(StatePendingOpenRfc1006, StateClosed) {
		t.Fatal("expected CAS back to Closed to succeed unconditionally")
	}

	wantErr := ErrNotConnected
	c.setError(wantErr)
	if got := c.getError(); got != wantErr {
		t.Fatalf("getError() = %v, want %v", got, wantErr)
	}
}
