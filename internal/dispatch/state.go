package dispatch

// ConnectionState is the S7 connection lifecycle: Closed ->
// PendingOpenRfc1006 -> TransportOpened -> PendingOpenPlc -> Opened ->
// Closed. Transitions only move forward or jump back to Closed.
type ConnectionState int32

const (
	StateClosed ConnectionState = iota
	StatePendingOpenRfc1006
	StateTransportOpened
	StatePendingOpenPlc
	StateOpened
)

func (s ConnectionState) String() string {
	switch s {
	case StateClosed:
		return "closed"
	case StatePendingOpenRfc1006:
		return "pending_open_rfc1006"
	case StateTransportOpened:
		return "transport_opened"
	case StatePendingOpenPlc:
		return "pending_open_plc"
	case StateOpened:
		return "opened"
	default:
		return "unknown"
	}
}

// canTransition enforces the forward-only-or-to-Closed rule.
func canTransition(from, to ConnectionState) bool {
	if to == StateClosed {
		return true
	}
	return to == from+1
}

func (c *Conn) getState() ConnectionState {
	return ConnectionState(c.state.Load())
}

func (c *Conn) setState(s ConnectionState) {
	c.state.Store(int32(s))
}

func (c *Conn) compareAndSwapState(from, to ConnectionState) bool {
	if !canTransition(from, to) {
		return false
	}
	return c.state.CompareAndSwap(int32(from), int32(to))
}

func (c *Conn) getError() error {
	v := c.lastErr.Load()
	if v == nil {
		return nil
	}
	return v.(error)
}

func (c *Conn) setError(err error) {
	c.lastErr.Store(err)
}
