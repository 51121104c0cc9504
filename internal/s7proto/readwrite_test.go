package s7proto

import (
	"bytes"
	"testing"
)

func TestAddressItem_RoundTrip(t *testing.T) {
	item := AddressItem{TransportSize: 2, Length: 10, DBNumber: 1, Area: 0x84, BitAddress: 80}
	buf, err := item.MarshalBinary()
	if err != nil {
		t.Fatalf("MarshalBinary: %v", err)
	}
	if len(buf) != AddressItemSize {
		t.Fatalf("len = %d, want %d", len(buf), AddressItemSize)
	}

	var got AddressItem
	if err := got.UnmarshalBinary(buf); err != nil {
		t.Fatalf("UnmarshalBinary: %v", err)
	}
	if got != item {
		t.Fatalf("got %+v, want %+v", got, item)
	}
}

func TestReadJobRequest_RoundTrip(t *testing.T) {
	req := ReadJobRequest{Items: []AddressItem{
		{TransportSize: 2, Length: 10, DBNumber: 1, Area: 0x84, BitAddress: 0},
		{TransportSize: 2, Length: 4, DBNumber: 0, Area: 0x83, BitAddress: 80},
	}}
	buf, err := req.MarshalBinary()
	if err != nil {
		t.Fatalf("MarshalBinary: %v", err)
	}

	var got ReadJobRequest
	if err := got.UnmarshalBinary(buf); err != nil {
		t.Fatalf("UnmarshalBinary: %v", err)
	}
	if len(got.Items) != 2 || got.Items[0] != req.Items[0] || got.Items[1] != req.Items[1] {
		t.Fatalf("got %+v, want %+v", got, req)
	}
}

func TestReadJobAck_OddLengthPadding(t *testing.T) {
	ack := ReadJobAck{Items: []DataItem{
		{ReturnCode: ReturnCodeOK, TransportSize: 4, Length: 3, Data: []byte{0x01, 0x02, 0x03}},
		{ReturnCode: ReturnCodeOK, TransportSize: 4, Length: 2, Data: []byte{0x0A, 0x0B}},
	}}
	buf, err := ack.MarshalBinary()
	if err != nil {
		t.Fatalf("MarshalBinary: %v", err)
	}
	// item 0 has odd length (3) and is not last -> one pad byte follows.
	wantLen := (4 + 3 + 1) + (4 + 2)
	if len(buf) != wantLen {
		t.Fatalf("encoded len = %d, want %d", len(buf), wantLen)
	}

	var got ReadJobAck
	if err := got.UnmarshalBinary(buf, 2); err != nil {
		t.Fatalf("UnmarshalBinary: %v", err)
	}
	if !bytes.Equal(got.Items[0].Data, ack.Items[0].Data) {
		t.Fatalf("item 0 data = %x, want %x", got.Items[0].Data, ack.Items[0].Data)
	}
	if !bytes.Equal(got.Items[1].Data, ack.Items[1].Data) {
		t.Fatalf("item 1 data = %x, want %x", got.Items[1].Data, ack.Items[1].Data)
	}
}

func TestWriteJobRequest_RoundTrip(t *testing.T) {
	req := WriteJobRequest{
		Items: []AddressItem{{TransportSize: 2, Length: 2, DBNumber: 1, Area: 0x84, BitAddress: 0}},
		Data:  []DataItem{{ReturnCode: 0, TransportSize: 4, Length: 2, Data: []byte{0xAA, 0xBB}}},
	}
	params, err := req.MarshalBinaryParams()
	if err != nil {
		t.Fatalf("MarshalBinaryParams: %v", err)
	}
	data, err := req.MarshalBinaryData()
	if err != nil {
		t.Fatalf("MarshalBinaryData: %v", err)
	}

	var got WriteJobRequest
	if err := got.UnmarshalBinary(params, data); err != nil {
		t.Fatalf("UnmarshalBinary: %v", err)
	}
	if len(got.Items) != 1 || got.Items[0] != req.Items[0] {
		t.Fatalf("items mismatch: %+v", got.Items)
	}
	if !bytes.Equal(got.Data[0].Data, req.Data[0].Data) {
		t.Fatalf("data mismatch: %x vs %x", got.Data[0].Data, req.Data[0].Data)
	}
}

func TestWriteJobAck_RoundTrip(t *testing.T) {
	ack := WriteJobAck{ReturnCodes: []byte{ReturnCodeOK, 0x0A}}
	buf, err := ack.MarshalBinary()
	if err != nil {
		t.Fatalf("MarshalBinary: %v", err)
	}
	var got WriteJobAck
	if err := got.UnmarshalBinary(buf); err != nil {
		t.Fatalf("UnmarshalBinary: %v", err)
	}
	if !bytes.Equal(got.ReturnCodes, ack.ReturnCodes) {
		t.Fatalf("got %v, want %v", got.ReturnCodes, ack.ReturnCodes)
	}
}
