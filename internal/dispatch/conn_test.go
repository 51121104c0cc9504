package dispatch

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/ccLee627/dacs7/internal/s7proto"
	"github.com/ccLee627/dacs7/internal/tpkt"
)

// fakePLCHandshake plays the peer side of Open: it answers the COTP CR
// with a CC, then the COMM-SETUP Job with an AckData advertising
// pduLength/maxAmQ. It returns once the handshake completes.
func fakePLCHandshake(t *testing.T, peer net.Conn, pduLength, maxAmQ uint16) {
	t.Helper()

	if _, err := tpkt.ReadRawFrame(peer); err != nil {
		t.Errorf("fake plc: read CR: %v", err)
		return
	}
	ccBody := []byte{0x06, tpkt.PDUTypeCC, 0x00, 0x00, 0x00, 0x00, 0x00}
	if err := tpkt.WriteRawFrame(peer, ccBody); err != nil {
		t.Errorf("fake plc: write CC: %v", err)
		return
	}

	setupPDU, err := tpkt.ReadFrame(peer)
	if err != nil {
		t.Errorf("fake plc: read comm-setup job: %v", err)
		return
	}
	var hdr s7proto.Header
	if err := hdr.UnmarshalBinary(setupPDU); err != nil {
		t.Errorf("fake plc: decode comm-setup job header: %v", err)
		return
	}

	ackParams := s7proto.CommSetupParams{MaxAmQCalling: maxAmQ, MaxAmQCalled: maxAmQ, PduLength: pduLength}
	paramBuf, _ := ackParams.MarshalBinary()
	ackHdr := s7proto.Header{PduType: s7proto.AckData, PduReference: hdr.PduReference, ParamLength: uint16(len(paramBuf))}
	ackHdrBuf, _ := ackHdr.MarshalBinary()
	if err := tpkt.WriteFrame(peer, append(ackHdrBuf, paramBuf...)); err != nil {
		t.Errorf("fake plc: write comm-setup ack: %v", err)
		return
	}
}

func TestOpenReachesOpenedAndNegotiatesSession(t *testing.T) {
	clientSide, serverSide := net.Pipe()
	defer clientSide.Close()
	defer serverSide.Close()

	handshakeDone := make(chan struct{})
	go func() {
		fakePLCHandshake(t, serverSide, 480, 4)
		close(handshakeDone)
	}()

	c := NewConn(clientSide, 0, 2, tpkt.Pg)
	if err := c.Open(context.Background(), 960, 10); err != nil {
		t.Fatalf("Open: %v", err)
	}
	<-handshakeDone

	if got := c.State(); got != StateOpened {
		t.Fatalf("state after Open = %s, want opened", got)
	}
	sess := c.Session()
	if sess == nil {
		t.Fatal("Session() returned nil after Open")
	}
	if sess.PduSize != 480 {
		t.Errorf("PduSize = %d, want 480", sess.PduSize)
	}
	if sess.MaxAmQCalling != 4 {
		t.Errorf("MaxAmQCalling = %d, want 4", sess.MaxAmQCalling)
	}

	sem := c.sem.Load()
	if sem == nil {
		t.Fatal("semaphore not installed after Open")
	}
	acquired := 0
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	for sem.acquire(ctx) == nil {
		acquired++
		if acquired > 10 {
			break
		}
	}
	if acquired != 4 {
		t.Errorf("semaphore had %d permits, want 4", acquired)
	}

	if err := c.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if got := c.State(); got != StateClosed {
		t.Fatalf("state after Close = %s, want closed", got)
	}

	disposedCtx, disposedCancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer disposedCancel()
	if err := sem.acquire(disposedCtx); err == nil {
		t.Fatal("expected semaphore to be disposed after Close")
	}
}

func TestCloseIsIdempotent(t *testing.T) {
	clientSide, serverSide := net.Pipe()
	defer serverSide.Close()
	c := NewConn(clientSide, 0, 2, tpkt.Pg)

	if err := c.Close(); err != nil {
		t.Fatalf("first Close: %v", err)
	}
	if err := c.Close(); err != nil {
		t.Fatalf("second Close: %v", err)
	}
}

func TestCloseResolvesAllPendingWithNotConnected(t *testing.T) {
	clientSide, serverSide := net.Pipe()
	defer serverSide.Close()
	c := NewConn(clientSide, 0, 2, tpkt.Pg)
	c.setState(StateOpened)

	ch := c.registerPending(callRead, 42)
	if err := c.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	select {
	case res := <-ch:
		if res.Err != ErrNotConnected {
			t.Errorf("pending result err = %v, want %v", res.Err, ErrNotConnected)
		}
	default:
		t.Fatal("pending call was not resolved by Close")
	}
}

// dispatcherCorrelationHarness wires a Conn to a fake peer without going
// through the handshake, for tests that only exercise the dispatch loop.
func dispatcherCorrelationHarness(t *testing.T) (*Conn, net.Conn) {
	t.Helper()
	clientSide, serverSide := net.Pipe()
	c := NewConn(clientSide, 0, 2, tpkt.Pg)
	c.setState(StateOpened)
	c.sem.Store(newSemaphore(4))
	go c.readLoop()
	go c.dispatchLoop()
	t.Cleanup(func() {
		c.Close()
		serverSide.Close()
	})
	return c, serverSide
}

func TestDispatcherCorrelatesOutOfOrderResponses(t *testing.T) {
	c, peer := dispatcherCorrelationHarness(t)

	type result struct {
		who  string
		data []byte
		err  error
	}
	results := make(chan result, 2)

	go func() {
		_, data, err := c.ReadVar(context.Background(), []byte{s7proto.FuncReadVar, 0x01}, time.Second)
		results <- result{who: "A", data: data, err: err}
	}()
	go func() {
		_, data, err := c.ReadVar(context.Background(), []byte{s7proto.FuncReadVar, 0x01}, time.Second)
		results <- result{who: "B", data: data, err: err}
	}()

	var seenRefs []uint16
	for len(seenRefs) < 2 {
		pdu, err := tpkt.ReadFrame(peer)
		if err != nil {
			t.Fatalf("peer read: %v", err)
		}
		var hdr s7proto.Header
		if err := hdr.UnmarshalBinary(pdu); err != nil {
			t.Fatalf("peer decode header: %v", err)
		}
		seenRefs = append(seenRefs, hdr.PduReference)
	}

	// Reply in reverse order: seenRefs[1] (second request sent) first.
	payloadFor := func(ref uint16, tag byte) []byte {
		item := s7proto.DataItem{ReturnCode: s7proto.ReturnCodeOK, TransportSize: 2, Length: 1, Data: []byte{tag}}
		itemBuf, _ := item.MarshalBinary(false)
		hdr := s7proto.Header{PduType: s7proto.AckData, PduReference: ref, ParamLength: 2, DataLength: uint16(len(itemBuf))}
		hdrBuf, _ := hdr.MarshalBinary()
		params := []byte{s7proto.FuncReadVar, 0x01}
		return append(append(hdrBuf, params...), itemBuf...)
	}

	if err := tpkt.WriteFrame(peer, payloadFor(seenRefs[1], 0xB2)); err != nil {
		t.Fatalf("peer write second reply: %v", err)
	}
	if err := tpkt.WriteFrame(peer, payloadFor(seenRefs[0], 0xA1)); err != nil {
		t.Fatalf("peer write first reply: %v", err)
	}

	got := map[string]byte{}
	for i := 0; i < 2; i++ {
		r := <-results
		if r.err != nil {
			t.Fatalf("%s: unexpected error: %v", r.who, r.err)
		}
		if len(r.data) == 0 {
			t.Fatalf("%s: empty data", r.who)
		}
		got[r.who] = r.data[len(r.data)-1]
	}

	if got["A"] == 0 || got["B"] == 0 {
		t.Fatalf("missing results: %v", got)
	}
	if got["A"] == got["B"] {
		t.Fatalf("A and B received the same tag byte, correlation failed: %v", got)
	}
}
