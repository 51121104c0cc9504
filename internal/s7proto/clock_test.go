package s7proto

import (
	"testing"
	"time"
)

func TestClockResponse_RoundTrip(t *testing.T) {
	stamp := time.Date(2026, 8, 6, 9, 15, 42, 0, time.UTC)
	c := ClockResponse{Stamp: stamp}
	buf, err := c.MarshalBinary()
	if err != nil {
		t.Fatalf("MarshalBinary: %v", err)
	}
	if len(buf) != clockPayloadSize {
		t.Fatalf("len = %d, want %d", len(buf), clockPayloadSize)
	}

	var got ClockResponse
	if err := got.UnmarshalBinary(buf); err != nil {
		t.Fatalf("UnmarshalBinary: %v", err)
	}
	if !got.Stamp.Equal(stamp) {
		t.Fatalf("got %v, want %v", got.Stamp, stamp)
	}
}

func TestBCD_RoundTrip(t *testing.T) {
	for v := 0; v <= 59; v++ {
		if got := fromBCD(toBCD(v)); got != v {
			t.Fatalf("fromBCD(toBCD(%d)) = %d", v, got)
		}
	}
}
