package tpkt

import (
	"encoding/binary"
	"fmt"
)

// ConnectionType selects the role encoded into the remote TSAP during COTP
// connection setup.
type ConnectionType uint8

const (
	Pg    ConnectionType = 0x01
	Op    ConnectionType = 0x02
	Basic ConnectionType = 0x03
)

func (t ConnectionType) String() string {
	switch t {
	case Pg:
		return "Pg"
	case Op:
		return "Op"
	case Basic:
		return "Basic"
	default:
		return fmt.Sprintf("ConnectionType(0x%02x)", uint8(t))
	}
}

// COTP PDU types, carried in the second byte of every COTP header.
const (
	PDUTypeCR   = 0xE0 // connection request
	PDUTypeCC   = 0xD0 // connection confirm
	PDUTypeData = 0xF0 // data transfer
)

// COTP variable parameter codes used in CR/CC PDUs.
const (
	ParamTPDUSize  = 0xC0
	ParamSrcTSAP   = 0xC1
	ParamDstTSAP   = 0xC2
)

// DataHeaderSize is the fixed length of the COTP header on every S7 data
// PDU after the connection handshake completes.
const DataHeaderSize = 3

// DataHeader is the 3-byte COTP header used for every S7 payload once the
// transport connection is up: length=0x02, pdu_type=0xF0 (data), last
// fragment with TPDU number 0.
type DataHeader struct {
	Length        uint8
	PDUType       uint8
	EOTAndTPDUNr  uint8
}

// DefaultDataHeader is the single fixed COTP data header this
// implementation ever sends: one TPDU per S7 message, no fragmentation.
var DefaultDataHeader = DataHeader{Length: 0x02, PDUType: PDUTypeData, EOTAndTPDUNr: 0x80}

func (h *DataHeader) MarshalBinary() ([]byte, error) {
	return []byte{h.Length, h.PDUType, h.EOTAndTPDUNr}, nil
}

func (h *DataHeader) UnmarshalBinary(data []byte) error {
	if len(data) < DataHeaderSize {
		return fmt.Errorf("tpkt: cotp data header requires %d bytes, got %d", DataHeaderSize, len(data))
	}
	h.Length = data[0]
	h.PDUType = data[1]
	h.EOTAndTPDUNr = data[2]
	return nil
}

// RemoteTSAP derives the remote TSAP for a COTP connection request from
// the connection type, rack, and slot: (connection_type<<8) |
// (rack*0x20+slot).
func RemoteTSAP(connType ConnectionType, rack, slot int) uint16 {
	return uint16(connType)<<8 | uint16(rack*0x20+slot)
}

// BuildConnectRequest encodes a COTP Connection Request PDU (without the
// TPKT header) addressing the given source and destination TSAPs.
func BuildConnectRequest(srcRef, dstRef uint16, srcTSAP, dstTSAP uint16, tpduSizeCode byte) []byte {
	// Fixed part: length(1) pdu_type(1) dst_ref(2) src_ref(2) class_opts(1)
	fixed := []byte{
		0, // length patched below
		PDUTypeCR,
		byte(dstRef >> 8), byte(dstRef),
		byte(srcRef >> 8), byte(srcRef),
		0x00,
	}

	var variable []byte
	variable = append(variable, ParamSrcTSAP, 0x02, byte(srcTSAP>>8), byte(srcTSAP))
	variable = append(variable, ParamDstTSAP, 0x02, byte(dstTSAP>>8), byte(dstTSAP))
	variable = append(variable, ParamTPDUSize, 0x01, tpduSizeCode)

	pdu := append(fixed, variable...)
	pdu[0] = byte(len(pdu) - 1) // length excludes the length byte itself
	return pdu
}

// ConnectConfirm is the decoded variable-parameter set of a COTP
// Connection Confirm PDU.
type ConnectConfirm struct {
	DstRef       uint16
	SrcRef       uint16
	TPDUSizeCode byte
}

// ParseConnectConfirm decodes a COTP CC PDU (without the TPKT header).
// Unknown parameter codes are skipped, per the framing rule that optional
// parameters the implementation doesn't recognize must not abort parsing.
func ParseConnectConfirm(pdu []byte) (ConnectConfirm, error) {
	var cc ConnectConfirm
	if len(pdu) < 7 {
		return cc, fmt.Errorf("tpkt: cotp CC pdu too short: %d bytes", len(pdu))
	}
	if pdu[1] != PDUTypeCC {
		return cc, fmt.Errorf("tpkt: expected CC pdu_type 0x%02x, got 0x%02x", PDUTypeCC, pdu[1])
	}
	cc.DstRef = binary.BigEndian.Uint16(pdu[2:4])
	cc.SrcRef = binary.BigEndian.Uint16(pdu[4:6])

	i := 7
	for i+1 < len(pdu) {
		code := pdu[i]
		length := int(pdu[i+1])
		valStart := i + 2
		valEnd := valStart + length
		if valEnd > len(pdu) {
			break
		}
		switch code {
		case ParamTPDUSize:
			if length >= 1 {
				cc.TPDUSizeCode = pdu[valStart]
			}
		default:
			// unknown optional parameter: skip
		}
		i = valEnd
	}
	return cc, nil
}
