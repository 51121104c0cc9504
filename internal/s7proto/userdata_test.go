package s7proto

import "testing"

func TestUserDataHeader_RoundTrip(t *testing.T) {
	h := UserDataHeader{IsResponse: false, FunctionGroup: GroupBlockFunctions, SubFunction: SubFuncBlockInfo, SequenceNumber: 0, LastDataUnit: true}
	buf, err := h.MarshalBinary()
	if err != nil {
		t.Fatalf("MarshalBinary: %v", err)
	}
	if len(buf) != UserDataHeaderSize {
		t.Fatalf("len = %d, want %d", len(buf), UserDataHeaderSize)
	}

	var got UserDataHeader
	if err := got.UnmarshalBinary(buf); err != nil {
		t.Fatalf("UnmarshalBinary: %v", err)
	}
	if got != h {
		t.Fatalf("got %+v, want %+v", got, h)
	}
}

func TestUserDataHeader_Paging(t *testing.T) {
	h := UserDataHeader{IsResponse: true, FunctionGroup: GroupBlockFunctions, SubFunction: SubFuncBlockInfo, SequenceNumber: 7, LastDataUnit: false}
	buf, _ := h.MarshalBinary()
	var got UserDataHeader
	if err := got.UnmarshalBinary(buf); err != nil {
		t.Fatalf("UnmarshalBinary: %v", err)
	}
	if got.SequenceNumber != 7 || got.LastDataUnit {
		t.Fatalf("got %+v, want sequence 7, not last", got)
	}
}

func TestEncodeDecodeUserDataResponseData(t *testing.T) {
	payload := []byte{0x01, 0x02, 0x03}
	buf := EncodeUserDataResponseData(ReturnCodeOK, 0x0000, payload)

	rc, ec, got, err := DecodeUserDataResponseData(buf)
	if err != nil {
		t.Fatalf("DecodeUserDataResponseData: %v", err)
	}
	if rc != ReturnCodeOK || ec != 0 {
		t.Fatalf("rc=%x ec=%x", rc, ec)
	}
	if string(got) != string(payload) {
		t.Fatalf("payload = %x, want %x", got, payload)
	}
}
