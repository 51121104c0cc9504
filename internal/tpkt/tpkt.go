// Package tpkt implements the TPKT and COTP framing that carries every S7
// PDU over TCP (RFC 1006, port 102).
package tpkt

import (
	"encoding/binary"
	"fmt"
)

// HeaderSize is the fixed length of a TPKT header in bytes.
const HeaderSize = 4

// Version is the only TPKT version this implementation accepts.
const Version = 0x03

// Header is the 4-byte TPKT header that precedes every COTP PDU.
type Header struct {
	Version     uint8
	Reserved    uint8
	TotalLength uint16 // covers this header plus the COTP PDU that follows
}

// MarshalBinary encodes the header into a 4-byte slice (big-endian).
func (h *Header) MarshalBinary() ([]byte, error) {
	buf := make([]byte, HeaderSize)
	buf[0] = h.Version
	buf[1] = h.Reserved
	binary.BigEndian.PutUint16(buf[2:4], h.TotalLength)
	return buf, nil
}

// UnmarshalBinary decodes a 4-byte slice into the header and validates it.
func (h *Header) UnmarshalBinary(data []byte) error {
	if len(data) < HeaderSize {
		return fmt.Errorf("tpkt: header requires %d bytes, got %d", HeaderSize, len(data))
	}
	h.Version = data[0]
	h.Reserved = data[1]
	h.TotalLength = binary.BigEndian.Uint16(data[2:4])
	return h.validate()
}

func (h *Header) validate() error {
	if h.Version != Version {
		return fmt.Errorf("tpkt: unsupported version 0x%02x", h.Version)
	}
	if h.TotalLength < 7 {
		return fmt.Errorf("tpkt: total_length %d below minimum 7", h.TotalLength)
	}
	return nil
}
