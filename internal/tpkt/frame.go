package tpkt

import (
	"fmt"
	"io"
)

// MaxFrameSize bounds a single TPKT frame; the TPKT length field is 16
// bits so no legitimate frame exceeds 65535 bytes.
const MaxFrameSize = 65535

// ReadRawFrame reads one TPKT frame from r and returns the COTP PDU it
// carries, without assuming anything about that PDU's type. Used during
// the connection handshake, where the carried PDU is a COTP CR/CC rather
// than a fixed data header. It accumulates via io.ReadFull, so callers may
// feed it from a reader that returns arbitrarily small chunks per Read
// call — frames split at any byte boundary decode identically to frames
// delivered whole.
func ReadRawFrame(r io.Reader) ([]byte, error) {
	hdrBuf := make([]byte, HeaderSize)
	if _, err := io.ReadFull(r, hdrBuf); err != nil {
		return nil, fmt.Errorf("tpkt: read header: %w", err)
	}

	var hdr Header
	if err := hdr.UnmarshalBinary(hdrBuf); err != nil {
		return nil, err
	}
	if int(hdr.TotalLength) > MaxFrameSize {
		return nil, fmt.Errorf("tpkt: total_length %d exceeds maximum %d", hdr.TotalLength, MaxFrameSize)
	}

	remaining := int(hdr.TotalLength) - HeaderSize
	body := make([]byte, remaining)
	if _, err := io.ReadFull(r, body); err != nil {
		return nil, fmt.Errorf("tpkt: read body (%d bytes): %w", remaining, err)
	}
	return body, nil
}

// WriteRawFrame wraps cotpPDU in a TPKT header only and writes it to w in
// a single Write call. Used during the connection handshake to carry a
// COTP CR PDU.
func WriteRawFrame(w io.Writer, cotpPDU []byte) error {
	totalLength := HeaderSize + len(cotpPDU)
	if totalLength > MaxFrameSize {
		return fmt.Errorf("tpkt: frame of %d bytes exceeds maximum %d", totalLength, MaxFrameSize)
	}

	hdr := Header{Version: Version, Reserved: 0, TotalLength: uint16(totalLength)}
	hdrBuf, err := hdr.MarshalBinary()
	if err != nil {
		return err
	}

	frame := make([]byte, 0, totalLength)
	frame = append(frame, hdrBuf...)
	frame = append(frame, cotpPDU...)

	if _, err := w.Write(frame); err != nil {
		return fmt.Errorf("tpkt: write frame: %w", err)
	}
	return nil
}

// ReadFrame reads one TPKT+COTP data frame from r and returns the inner
// S7 PDU bytes (the 3-byte COTP data header stripped). See ReadRawFrame
// for the split-read guarantee.
func ReadFrame(r io.Reader) ([]byte, error) {
	body, err := ReadRawFrame(r)
	if err != nil {
		return nil, err
	}
	if len(body) < DataHeaderSize {
		return nil, fmt.Errorf("tpkt: frame body too short for cotp header: %d bytes", len(body))
	}
	var cotp DataHeader
	if err := cotp.UnmarshalBinary(body[:DataHeaderSize]); err != nil {
		return nil, err
	}
	if cotp.PDUType != PDUTypeData {
		return nil, fmt.Errorf("tpkt: unexpected cotp pdu_type 0x%02x in data frame", cotp.PDUType)
	}
	return body[DataHeaderSize:], nil
}

// WriteFrame wraps s7PDU in a COTP data header and a TPKT header and
// writes the complete frame to w in a single Write call.
func WriteFrame(w io.Writer, s7PDU []byte) error {
	cotpBuf, err := DefaultDataHeader.MarshalBinary()
	if err != nil {
		return err
	}
	return WriteRawFrame(w, append(cotpBuf, s7PDU...))
}
