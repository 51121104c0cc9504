package dacs7

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/ccLee627/dacs7/internal/dispatch"
	"github.com/ccLee627/dacs7/internal/pack"
	"github.com/ccLee627/dacs7/internal/s7proto"
	"github.com/ccLee627/dacs7/internal/tag"
	"github.com/ccLee627/dacs7/internal/tpkt"
)

// openedTestClient wires a Client to a fake peer that has already completed
// the COTP/COMM-SETUP handshake, so readItems/writeItems can exercise the
// wire encoding directly without redriving Open.
func openedTestClient(t *testing.T, pduSize int) (*Client, net.Conn) {
	t.Helper()
	clientSide, serverSide := net.Pipe()
	t.Cleanup(func() { serverSide.Close() })

	conn := dispatch.NewConn(clientSide, 0, 2, tpkt.Pg)

	handshakeDone := make(chan struct{})
	go func() {
		fakePLCHandshakeForClientTest(t, serverSide, uint16(pduSize), 4)
		close(handshakeDone)
	}()
	if err := conn.Open(context.Background(), uint16(pduSize), 4); err != nil {
		t.Fatalf("Open: %v", err)
	}
	<-handshakeDone

	return &Client{
		cfg:     clientConfig{logger: DefaultLogger, metrics: NewInMemoryMetrics(), callTimeout: 2 * time.Second},
		connPtr: conn,
	}, serverSide
}

func fakePLCHandshakeForClientTest(t *testing.T, peer net.Conn, pduLength, maxAmQ uint16) {
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
	}
}

func TestReadTagRoundTrip(t *testing.T) {
	c, peer := openedTestClient(t, 960)

	respDone := make(chan error, 1)
	go func() {
		pdu, err := tpkt.ReadFrame(peer)
		if err != nil {
			respDone <- err
			return
		}
		var hdr s7proto.Header
		if err := hdr.UnmarshalBinary(pdu); err != nil {
			respDone <- err
			return
		}
		item := s7proto.DataItem{ReturnCode: s7proto.ReturnCodeOK, TransportSize: 2, Length: 4, Data: []byte{0xDE, 0xAD, 0xBE, 0xEF}}
		itemBuf, _ := item.MarshalBinary(false)
		ackHdr := s7proto.Header{PduType: s7proto.AckData, PduReference: hdr.PduReference, ParamLength: 2, DataLength: uint16(len(itemBuf))}
		ackHdrBuf, _ := ackHdr.MarshalBinary()
		respDone <- tpkt.WriteFrame(peer, append(append(ackHdrBuf, s7proto.FuncReadVar, 0x01), itemBuf...))
	}()

	got, err := c.ReadTag(context.Background(), "DB1.0,dw")
	if err != nil {
		t.Fatalf("ReadTag: %v", err)
	}
	if err := <-respDone; err != nil {
		t.Fatalf("fake plc response: %v", err)
	}
	want := []byte{0xDE, 0xAD, 0xBE, 0xEF}
	if len(got) != len(want) {
		t.Fatalf("got %x, want %x", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("got %x, want %x", got, want)
		}
	}
}

func TestReadTagPropagatesProtocolContentError(t *testing.T) {
	c, peer := openedTestClient(t, 960)

	go func() {
		pdu, _ := tpkt.ReadFrame(peer)
		var hdr s7proto.Header
		hdr.UnmarshalBinary(pdu)
		item := s7proto.DataItem{ReturnCode: 0x0A, TransportSize: 2, Length: 0}
		itemBuf, _ := item.MarshalBinary(false)
		ackHdr := s7proto.Header{PduType: s7proto.AckData, PduReference: hdr.PduReference, ParamLength: 2, DataLength: uint16(len(itemBuf))}
		ackHdrBuf, _ := ackHdr.MarshalBinary()
		tpkt.WriteFrame(peer, append(append(ackHdrBuf, s7proto.FuncReadVar, 0x01), itemBuf...))
	}()

	_, err := c.ReadTag(context.Background(), "DB1.0,dw")
	if err == nil {
		t.Fatal("expected a protocol content error")
	}
	classified, ok := err.(*ClassifiedError)
	if !ok {
		t.Fatalf("error is %T, want *ClassifiedError", err)
	}
	if classified.Category != CategoryProtocolContent {
		t.Errorf("category = %s, want protocol_content", classified.Category)
	}
	if classified.ReturnCode != 0x0A {
		t.Errorf("ReturnCode = 0x%02X, want 0x0A", classified.ReturnCode)
	}
}

func TestWriteTagRoundTrip(t *testing.T) {
	c, peer := openedTestClient(t, 960)

	respDone := make(chan error, 1)
	go func() {
		pdu, err := tpkt.ReadFrame(peer)
		if err != nil {
			respDone <- err
			return
		}
		var hdr s7proto.Header
		if err := hdr.UnmarshalBinary(pdu); err != nil {
			respDone <- err
			return
		}
		ack := s7proto.WriteJobAck{ReturnCodes: []byte{s7proto.ReturnCodeOK}}
		ackData, _ := ack.MarshalBinary()
		ackHdr := s7proto.Header{PduType: s7proto.AckData, PduReference: hdr.PduReference, ParamLength: 2, DataLength: uint16(len(ackData))}
		ackHdrBuf, _ := ackHdr.MarshalBinary()
		respDone <- tpkt.WriteFrame(peer, append(append(ackHdrBuf, s7proto.FuncWriteVar, 0x01), ackData...))
	}()

	if err := c.WriteTag(context.Background(), "DB1.0,dw", []byte{0x01, 0x02, 0x03, 0x04}); err != nil {
		t.Fatalf("WriteTag: %v", err)
	}
	if err := <-respDone; err != nil {
		t.Fatalf("fake plc response: %v", err)
	}
}

func TestReadNotConnectedWithoutSession(t *testing.T) {
	clientSide, serverSide := net.Pipe()
	defer serverSide.Close()
	conn := dispatch.NewConn(clientSide, 0, 2, tpkt.Pg)
	c := &Client{cfg: clientConfig{logger: DefaultLogger, metrics: DefaultMetrics}, connPtr: conn}

	_, err := c.Read(context.Background(), []string{"DB1.0,dw"})
	if err == nil {
		t.Fatal("expected not-connected error before Open")
	}
	classified, ok := err.(*ClassifiedError)
	if !ok {
		t.Fatalf("error is %T, want *ClassifiedError", err)
	}
	if classified.Category != CategoryNotConnected {
		t.Errorf("category = %s, want not_connected", classified.Category)
	}
}

func TestReadRejectsUnparseableAddress(t *testing.T) {
	c, _ := openedTestClient(t, 960)
	_, err := c.Read(context.Background(), []string{"not-a-tag"})
	if err == nil {
		t.Fatal("expected a tag parse error")
	}
	classified, ok := err.(*ClassifiedError)
	if !ok {
		t.Fatalf("error is %T, want *ClassifiedError", err)
	}
	if classified.Category != CategoryTagParse {
		t.Errorf("category = %s, want tag_parse", classified.Category)
	}
}

func TestWriteRejectsMismatchedLengths(t *testing.T) {
	c, _ := openedTestClient(t, 960)
	err := c.Write(context.Background(), []string{"DB1.0,dw", "DB1.4,dw"}, [][]byte{{0, 0, 0, 1}})
	if err == nil {
		t.Fatal("expected a validation error for mismatched address/payload counts")
	}
	classified, ok := err.(*ClassifiedError)
	if !ok {
		t.Fatalf("error is %T, want *ClassifiedError", err)
	}
	if classified.Category != CategoryValidation {
		t.Errorf("category = %s, want validation", classified.Category)
	}
}

func TestAddressItemForDataBlockDWord(t *testing.T) {
	it, err := tag.Parse("DB1.4,dw")
	if err != nil {
		t.Fatalf("tag.Parse: %v", err)
	}
	entry := pack.Entry{Item: it, DataLen: 4}
	addrItem := addressItemFor(entry)

	if addrItem.DBNumber != 1 {
		t.Errorf("DBNumber = %d, want 1", addrItem.DBNumber)
	}
	if addrItem.BitAddress != 4*8 {
		t.Errorf("BitAddress = %d, want %d", addrItem.BitAddress, 4*8)
	}
	if addrItem.Length != 1 {
		t.Errorf("Length = %d, want 1 element", addrItem.Length)
	}
}
