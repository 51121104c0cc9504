package s7proto

import (
	"encoding/binary"
	"fmt"
)

// FuncCommSetup is the S7 function code for the COMM-SETUP negotiation.
const FuncCommSetup = 0xF0

// CommSetupParams is the parameter block carried by both the Job and the
// Ack variant of COMM-SETUP: function code, a reserved byte, then the
// negotiated parallelism and PDU size.
type CommSetupParams struct {
	MaxAmQCalling uint16
	MaxAmQCalled  uint16
	PduLength     uint16
}

// MarshalBinary encodes the 8-byte COMM-SETUP parameter block.
func (p *CommSetupParams) MarshalBinary() ([]byte, error) {
	buf := make([]byte, 8)
	buf[0] = FuncCommSetup
	buf[1] = 0x00 // reserved
	binary.BigEndian.PutUint16(buf[2:4], p.MaxAmQCalling)
	binary.BigEndian.PutUint16(buf[4:6], p.MaxAmQCalled)
	binary.BigEndian.PutUint16(buf[6:8], p.PduLength)
	return buf, nil
}

// UnmarshalBinary decodes an 8-byte COMM-SETUP parameter block.
func (p *CommSetupParams) UnmarshalBinary(data []byte) error {
	if len(data) < 8 {
		return fmt.Errorf("s7proto: comm-setup params require 8 bytes, got %d", len(data))
	}
	if data[0] != FuncCommSetup {
		return fmt.Errorf("s7proto: expected comm-setup function 0x%02x, got 0x%02x", FuncCommSetup, data[0])
	}
	p.MaxAmQCalling = binary.BigEndian.Uint16(data[2:4])
	p.MaxAmQCalled = binary.BigEndian.Uint16(data[4:6])
	p.PduLength = binary.BigEndian.Uint16(data[6:8])
	return nil
}
