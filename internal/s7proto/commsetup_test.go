package s7proto

import "testing"

func TestCommSetupParams_RoundTrip(t *testing.T) {
	p := CommSetupParams{MaxAmQCalling: 4, MaxAmQCalled: 4, PduLength: 480}
	buf, err := p.MarshalBinary()
	if err != nil {
		t.Fatalf("MarshalBinary: %v", err)
	}
	if len(buf) != 8 {
		t.Fatalf("len = %d, want 8", len(buf))
	}

	var got CommSetupParams
	if err := got.UnmarshalBinary(buf); err != nil {
		t.Fatalf("UnmarshalBinary: %v", err)
	}
	if got != p {
		t.Fatalf("got %+v, want %+v", got, p)
	}
}
