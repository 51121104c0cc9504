package tpkt

import (
	"bytes"
	"testing"
	"testing/iotest"
)

func TestWriteReadFrame_RoundTrip(t *testing.T) {
	payload := []byte{0x32, 0x01, 0x00, 0x00, 0x00, 0x01, 0x00, 0x00, 0x00, 0x00}

	var buf bytes.Buffer
	if err := WriteFrame(&buf, payload); err != nil {
		t.Fatalf("WriteFrame: %v", err)
	}

	got, err := ReadFrame(&buf)
	if err != nil {
		t.Fatalf("ReadFrame: %v", err)
	}
	if !bytes.Equal(got, payload) {
		t.Fatalf("ReadFrame = %x, want %x", got, payload)
	}
}

// TestReadFrame_Idempotent covers invariant 6: concatenating two encoded
// frames, splitting at any byte boundary, and feeding the halves
// sequentially to the receiver produces the same two PDUs as reading them
// whole.
func TestReadFrame_Idempotent(t *testing.T) {
	pduA := []byte{0x32, 0x01, 0x00, 0x00, 0x00, 0x01, 0x00, 0x02, 0x00, 0x00, 0xAA, 0xBB}
	pduB := []byte{0x32, 0x03, 0x00, 0x00, 0x00, 0x02, 0x00, 0x00, 0x00, 0x04, 0x00, 0x00, 0xCC, 0xDD, 0xEE, 0xFF}

	var buf bytes.Buffer
	if err := WriteFrame(&buf, pduA); err != nil {
		t.Fatalf("WriteFrame A: %v", err)
	}
	if err := WriteFrame(&buf, pduB); err != nil {
		t.Fatalf("WriteFrame B: %v", err)
	}
	whole := buf.Bytes()

	// Deliver the same bytes one at a time, forcing ReadFrame's io.ReadFull
	// calls to loop across many short reads — splitting at every byte
	// boundary.
	oneByteReader := iotest.OneByteReader(bytes.NewReader(whole))

	gotA, err := ReadFrame(oneByteReader)
	if err != nil {
		t.Fatalf("ReadFrame A (split): %v", err)
	}
	if !bytes.Equal(gotA, pduA) {
		t.Fatalf("split-read A = %x, want %x", gotA, pduA)
	}

	gotB, err := ReadFrame(oneByteReader)
	if err != nil {
		t.Fatalf("ReadFrame B (split): %v", err)
	}
	if !bytes.Equal(gotB, pduB) {
		t.Fatalf("split-read B = %x, want %x", gotB, pduB)
	}
}

func TestReadFrame_RejectsBadVersion(t *testing.T) {
	frame := []byte{0x04, 0x00, 0x00, 0x07, 0x02, 0xF0, 0x80}
	_, err := ReadFrame(bytes.NewReader(frame))
	if err == nil {
		t.Fatal("expected error for unsupported TPKT version")
	}
}

func TestReadFrame_RejectsShortLength(t *testing.T) {
	frame := []byte{0x03, 0x00, 0x00, 0x06}
	_, err := ReadFrame(bytes.NewReader(frame))
	if err == nil {
		t.Fatal("expected error for total_length < 7")
	}
}
