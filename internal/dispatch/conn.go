// Package dispatch implements the S7 connection state machine and the
// multiplexed request/response dispatcher built on top of it: the
// component that owns the transport, negotiates the session, and
// correlates every in-flight call by PDU reference.
package dispatch

import (
	"context"
	"fmt"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/ccLee627/dacs7/internal/s7proto"
	"github.com/ccLee627/dacs7/internal/tpkt"
)

// Logger is the minimal structured-logging surface Conn needs; it is
// satisfied structurally by the root package's Logger without dispatch
// importing it.
type Logger interface {
	Debug(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// SessionContext holds the parameters negotiated during COMM-SETUP. It is
// written once, by Open when the CommSetup AckData arrives; a CommSetup
// Job sent by the peer later does not change it. Every reader treats it as
// immutable.
type SessionContext struct {
	TimeoutMs          int
	PduSize            int
	MaxAmQCalling      int
	MaxAmQCalled       int
	ReadItemMaxLength  int
	WriteItemMaxLength int
}

// Result is the one-shot outcome of a dispatched request: either a
// decoded response header/params/data, or an error.
type Result struct {
	Header s7proto.Header
	Params []byte
	Data   []byte
	Err    error
}

type callKind int

const (
	callRead callKind = iota
	callWrite
	callBlockInfo
	callAlarm
)

// ErrNotConnected is returned when an operation is attempted while the
// connection is not in the Opened state, or the connection drops mid-call.
var ErrNotConnected = fmt.Errorf("dacs7: not connected")

// TimeoutError reports a per-call deadline expiry, carrying the
// originating PDU reference where known.
type TimeoutError struct {
	PduRef uint16
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("dacs7: timeout waiting for pdu_ref %d", e.PduRef)
}

// Conn owns one TCP connection's worth of S7 protocol state: the
// transport, the session context, the four in-flight maps (read, write,
// block-info, alarm), and the single alarm-subscription slot.
type Conn struct {
	netConn net.Conn
	sendMu  sync.Mutex

	state   atomic.Int32
	lastErr atomic.Value

	refGen RefIDGenerator
	sem    atomic.Pointer[semaphore]

	session atomic.Pointer[SessionContext]

	mapMu            sync.Mutex
	readPending      map[uint16]chan Result
	writePending     map[uint16]chan Result
	blockInfoPending map[uint16]chan Result
	alarmPending     map[uint16]chan Result

	alarmSub atomic.Pointer[AlarmSubscription]

	inbound chan frame

	closeOnce sync.Once
	done      chan struct{}

	rack     int
	slot     int
	connType tpkt.ConnectionType
	logger   Logger

	onStateChange func(ConnectionState)
}

// AlarmSubscription is the single distinguished slot that receives
// unsolicited alarm indications (pdu_ref = 0).
type AlarmSubscription struct {
	Callback func(s7proto.AlarmIndication)
}

// Option configures a Conn at construction time.
type Option func(*Conn)

// WithLogger installs a structured logger; the default is a no-op.
func WithLogger(l Logger) Option {
	return func(c *Conn) { c.logger = l }
}

// WithStateCallback installs a hook invoked on every state transition,
// used by the auto-reconnect supervisor to react to transport loss.
func WithStateCallback(cb func(ConnectionState)) Option {
	return func(c *Conn) { c.onStateChange = cb }
}

// NewConn wraps an already-dialed net.Conn. Callers obtain netConn via
// net.Dial or a net.Dialer themselves; this keeps the TCP socket
// primitive an external collaborator, as this library specifies.
func NewConn(netConn net.Conn, rack, slot int, connType tpkt.ConnectionType, opts ...Option) *Conn {
	c := &Conn{
		netConn:          netConn,
		rack:             rack,
		slot:             slot,
		connType:         connType,
		logger:           noopLogger{},
		readPending:      make(map[uint16]chan Result),
		writePending:     make(map[uint16]chan Result),
		blockInfoPending: make(map[uint16]chan Result),
		alarmPending:     make(map[uint16]chan Result),
		inbound:          make(chan frame),
		done:             make(chan struct{}),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// State returns the current connection state.
func (c *Conn) State() ConnectionState {
	return c.getState()
}

// Session returns the negotiated session context, or nil before Open
// completes.
func (c *Conn) Session() *SessionContext {
	return c.session.Load()
}

func (c *Conn) transition(to ConnectionState) {
	c.setState(to)
	if c.onStateChange != nil {
		c.onStateChange(to)
	}
}

// Open drives the connection through the COTP and COMM-SETUP handshake:
// Closed -> PendingOpenRfc1006 -> TransportOpened -> PendingOpenPlc ->
// Opened. It blocks until CommSetupAck is received or ctx is done.
func (c *Conn) Open(ctx context.Context, requestedPduSize, requestedMaxAmQ uint16) error {
	if !c.compareAndSwapState(StateClosed, StatePendingOpenRfc1006) {
		return fmt.Errorf("dacs7: open called from state %s", c.getState())
	}
	c.transition(StatePendingOpenRfc1006)

	if deadline, ok := ctx.Deadline(); ok {
		_ = c.netConn.SetDeadline(deadline)
	}

	srcTSAP := uint16(0x0100)
	dstTSAP := tpkt.RemoteTSAP(c.connType, c.rack, c.slot)
	cr := tpkt.BuildConnectRequest(0x0001, 0x0000, srcTSAP, dstTSAP, 0x0A)

	if err := tpkt.WriteRawFrame(c.netConn, cr); err != nil {
		c.abortOpen(err)
		return fmt.Errorf("dacs7: send COTP CR: %w", err)
	}

	ccBody, err := tpkt.ReadRawFrame(c.netConn)
	if err != nil {
		c.abortOpen(err)
		return fmt.Errorf("dacs7: read COTP CC: %w", err)
	}
	if _, err := tpkt.ParseConnectConfirm(ccBody); err != nil {
		c.abortOpen(err)
		return fmt.Errorf("dacs7: parse COTP CC: %w", err)
	}

	if !c.compareAndSwapState(StatePendingOpenRfc1006, StateTransportOpened) {
		err := fmt.Errorf("dacs7: unexpected state after COTP CC: %s", c.getState())
		c.abortOpen(err)
		return err
	}
	c.transition(StateTransportOpened)

	if !c.compareAndSwapState(StateTransportOpened, StatePendingOpenPlc) {
		err := fmt.Errorf("dacs7: unexpected state before comm-setup: %s", c.getState())
		c.abortOpen(err)
		return err
	}
	c.transition(StatePendingOpenPlc)

	setupRef := c.refGen.Next()
	setupParams := s7proto.CommSetupParams{MaxAmQCalling: requestedMaxAmQ, MaxAmQCalled: requestedMaxAmQ, PduLength: requestedPduSize}
	paramBuf, _ := setupParams.MarshalBinary()
	hdr := s7proto.Header{PduType: s7proto.Job, PduReference: setupRef, ParamLength: uint16(len(paramBuf))}
	hdrBuf, _ := hdr.MarshalBinary()

	if err := tpkt.WriteFrame(c.netConn, append(hdrBuf, paramBuf...)); err != nil {
		c.abortOpen(err)
		return fmt.Errorf("dacs7: send comm-setup: %w", err)
	}

	respPDU, err := tpkt.ReadFrame(c.netConn)
	if err != nil {
		c.abortOpen(err)
		return fmt.Errorf("dacs7: read comm-setup ack: %w", err)
	}
	var respHdr s7proto.Header
	if err := respHdr.UnmarshalBinary(respPDU); err != nil {
		c.abortOpen(err)
		return fmt.Errorf("dacs7: decode comm-setup ack header: %w", err)
	}
	paramStart := respHdr.Size()
	paramEnd := paramStart + int(respHdr.ParamLength)
	if paramEnd > len(respPDU) {
		err := fmt.Errorf("dacs7: comm-setup ack truncated")
		c.abortOpen(err)
		return err
	}
	var ackParams s7proto.CommSetupParams
	if err := ackParams.UnmarshalBinary(respPDU[paramStart:paramEnd]); err != nil {
		c.abortOpen(err)
		return fmt.Errorf("dacs7: decode comm-setup ack params: %w", err)
	}

	sess := &SessionContext{
		PduSize:            int(ackParams.PduLength),
		MaxAmQCalling:      int(ackParams.MaxAmQCalling),
		MaxAmQCalled:       int(ackParams.MaxAmQCalled),
		ReadItemMaxLength:  int(ackParams.PduLength) - 18,
		WriteItemMaxLength: int(ackParams.PduLength) - 28,
	}
	c.session.Store(sess)
	c.sem.Store(newSemaphore(sess.MaxAmQCalling))

	if !c.compareAndSwapState(StatePendingOpenPlc, StateOpened) {
		err := fmt.Errorf("dacs7: unexpected state after comm-setup ack: %s", c.getState())
		c.abortOpen(err)
		return err
	}
	c.transition(StateOpened)

	_ = c.netConn.SetDeadline(time.Time{})

	go c.readLoop()
	go c.dispatchLoop()

	return nil
}

func (c *Conn) abortOpen(err error) {
	c.setError(err)
	c.Close()
}

// Close tears the connection down unconditionally: every pending call is
// resolved with ErrNotConnected, the semaphore is disposed, the alarm
// subscription is cleared, and the state machine returns to Closed. Close
// is idempotent.
func (c *Conn) Close() error {
	var closeErr error
	c.closeOnce.Do(func() {
		c.transition(StateClosed)
		close(c.done)
		closeErr = c.netConn.Close()

		if sem := c.sem.Load(); sem != nil {
			sem.dispose()
		}

		c.failAllPending(ErrNotConnected)
		c.alarmSub.Store(nil)
	})
	return closeErr
}

func (c *Conn) failAllPending(err error) {
	c.mapMu.Lock()
	defer c.mapMu.Unlock()
	for _, m := range []map[uint16]chan Result{c.readPending, c.writePending, c.blockInfoPending, c.alarmPending} {
		for ref, ch := range m {
			ch <- Result{Err: err}
			delete(m, ref)
		}
	}
}
