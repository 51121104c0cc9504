// Package s7proto implements the S7 PDU header and datagram codecs that
// ride inside each TPKT/COTP frame.
package s7proto

import (
	"encoding/binary"
	"fmt"
)

// ProtocolID is the fixed first byte of every S7 header.
const ProtocolID = 0x32

// PduType identifies the kind of S7 header that follows.
type PduType uint8

const (
	Job     PduType = 0x01
	Ack     PduType = 0x02
	AckData PduType = 0x03
	UserDataPdu PduType = 0x07
)

func (t PduType) String() string {
	switch t {
	case Job:
		return "Job"
	case Ack:
		return "Ack"
	case AckData:
		return "AckData"
	case UserDataPdu:
		return "UserData"
	default:
		return fmt.Sprintf("PduType(0x%02x)", uint8(t))
	}
}

func (t PduType) hasErrorBytes() bool {
	return t == Ack || t == AckData
}

// shortHeaderSize is the size of a Job/UserData header; ack variants add
// two trailing error bytes.
const shortHeaderSize = 10
const longHeaderSize = 12

// Header is the fixed-layout header that begins every S7 PDU.
type Header struct {
	PduType      PduType
	RedundancyID uint16
	PduReference uint16
	ParamLength  uint16
	DataLength   uint16
	ErrorClass   uint8 // meaningful only for Ack/AckData
	ErrorCode    uint8 // meaningful only for Ack/AckData
}

// MarshalBinary encodes the header, appending the two error bytes only for
// Ack/AckData PDU types.
func (h *Header) MarshalBinary() ([]byte, error) {
	size := shortHeaderSize
	if h.PduType.hasErrorBytes() {
		size = longHeaderSize
	}
	buf := make([]byte, size)
	buf[0] = ProtocolID
	buf[1] = uint8(h.PduType)
	binary.BigEndian.PutUint16(buf[2:4], h.RedundancyID)
	binary.BigEndian.PutUint16(buf[4:6], h.PduReference)
	binary.BigEndian.PutUint16(buf[6:8], h.ParamLength)
	binary.BigEndian.PutUint16(buf[8:10], h.DataLength)
	if h.PduType.hasErrorBytes() {
		buf[10] = h.ErrorClass
		buf[11] = h.ErrorCode
	}
	return buf, nil
}

// UnmarshalBinary decodes a header from data, validating the protocol id
// and rejecting unknown PDU types.
func (h *Header) UnmarshalBinary(data []byte) error {
	if len(data) < shortHeaderSize {
		return fmt.Errorf("s7proto: header requires at least %d bytes, got %d", shortHeaderSize, len(data))
	}
	if data[0] != ProtocolID {
		return fmt.Errorf("s7proto: bad protocol id 0x%02x, want 0x%02x", data[0], ProtocolID)
	}
	pt := PduType(data[1])
	switch pt {
	case Job, Ack, AckData, UserDataPdu:
	default:
		return fmt.Errorf("s7proto: unknown pdu_type 0x%02x", data[1])
	}
	h.PduType = pt
	h.RedundancyID = binary.BigEndian.Uint16(data[2:4])
	h.PduReference = binary.BigEndian.Uint16(data[4:6])
	h.ParamLength = binary.BigEndian.Uint16(data[6:8])
	h.DataLength = binary.BigEndian.Uint16(data[8:10])
	if pt.hasErrorBytes() {
		if len(data) < longHeaderSize {
			return fmt.Errorf("s7proto: %s header requires %d bytes, got %d", pt, longHeaderSize, len(data))
		}
		h.ErrorClass = data[10]
		h.ErrorCode = data[11]
	}
	return nil
}

// Size returns the encoded size of the header in bytes.
func (h *Header) Size() int {
	if h.PduType.hasErrorBytes() {
		return longHeaderSize
	}
	return shortHeaderSize
}
