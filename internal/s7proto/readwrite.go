package s7proto

import (
	"encoding/binary"
	"fmt"
)

// S7 read/write function codes.
const (
	FuncReadVar  = 0x04
	FuncWriteVar = 0x05
)

// Ack return codes. 0xFF denotes success; any other value is a per-item
// failure reported structurally, not as a header-level error.
const (
	ReturnCodeOK = 0xFF
)

// AddressItem variable-specification constants.
const (
	varSpecType = 0x12 // "variable specification"
	addrSpecLen = 0x0A // length of the syntax-id..address tail, in bytes
	syntaxIDAny = 0x10 // "S7ANY" addressing syntax
)

// AddressItemSize is the fixed wire size of one AddressItem.
const AddressItemSize = 12

// AddressItem addresses a single read or write item: area, DB number (when
// applicable), transport size, element count, and a 3-byte big-endian bit
// address.
type AddressItem struct {
	TransportSize byte
	Length        uint16 // element count
	DBNumber      uint16
	Area          byte
	BitAddress    uint32 // 24-bit value: byte_offset*8 (+bit_index for Bit items)
}

// MarshalBinary encodes the 12-byte AddressItem.
func (a *AddressItem) MarshalBinary() ([]byte, error) {
	buf := make([]byte, AddressItemSize)
	buf[0] = varSpecType
	buf[1] = addrSpecLen
	buf[2] = syntaxIDAny
	buf[3] = a.TransportSize
	binary.BigEndian.PutUint16(buf[4:6], a.Length)
	binary.BigEndian.PutUint16(buf[6:8], a.DBNumber)
	buf[8] = a.Area
	buf[9] = byte(a.BitAddress >> 16)
	buf[10] = byte(a.BitAddress >> 8)
	buf[11] = byte(a.BitAddress)
	return buf, nil
}

// UnmarshalBinary decodes a 12-byte AddressItem.
func (a *AddressItem) UnmarshalBinary(data []byte) error {
	if len(data) < AddressItemSize {
		return fmt.Errorf("s7proto: address item requires %d bytes, got %d", AddressItemSize, len(data))
	}
	if data[0] != varSpecType || data[2] != syntaxIDAny {
		return fmt.Errorf("s7proto: unrecognized address item header %x", data[0:3])
	}
	a.TransportSize = data[3]
	a.Length = binary.BigEndian.Uint16(data[4:6])
	a.DBNumber = binary.BigEndian.Uint16(data[6:8])
	a.Area = data[8]
	a.BitAddress = uint32(data[9])<<16 | uint32(data[10])<<8 | uint32(data[11])
	return nil
}

// DataItem carries one item's payload, either in a read ack (ReturnCode
// meaningful, TransportSize/Length describe the payload that follows) or
// in a write job request (ReturnCode unused, set to 0).
type DataItem struct {
	ReturnCode    byte
	TransportSize byte
	Length        uint16 // payload length in bytes
	Data          []byte
}

// MarshalBinary encodes the 4-byte data-item header plus payload, padding
// with one zero byte when the payload length is odd and addPad is true
// (the caller omits the pad on the last item in a PDU).
func (d *DataItem) MarshalBinary(addPad bool) ([]byte, error) {
	buf := make([]byte, 4, 4+len(d.Data)+1)
	buf[0] = d.ReturnCode
	buf[1] = d.TransportSize
	binary.BigEndian.PutUint16(buf[2:4], d.Length)
	buf = append(buf, d.Data...)
	if addPad && len(d.Data)%2 == 1 {
		buf = append(buf, 0x00)
	}
	return buf, nil
}

// ReadJobRequest is the parameter block of a ReadJob PDU.
type ReadJobRequest struct {
	Items []AddressItem
}

func (r *ReadJobRequest) MarshalBinary() ([]byte, error) {
	buf := make([]byte, 2, 2+len(r.Items)*AddressItemSize)
	buf[0] = FuncReadVar
	buf[1] = byte(len(r.Items))
	for i := range r.Items {
		ib, err := r.Items[i].MarshalBinary()
		if err != nil {
			return nil, err
		}
		buf = append(buf, ib...)
	}
	return buf, nil
}

func (r *ReadJobRequest) UnmarshalBinary(data []byte) error {
	if len(data) < 2 {
		return fmt.Errorf("s7proto: read job params require at least 2 bytes")
	}
	if data[0] != FuncReadVar {
		return fmt.Errorf("s7proto: expected read-var function 0x%02x, got 0x%02x", FuncReadVar, data[0])
	}
	count := int(data[1])
	r.Items = make([]AddressItem, count)
	pos := 2
	for i := 0; i < count; i++ {
		if err := r.Items[i].UnmarshalBinary(data[pos:]); err != nil {
			return fmt.Errorf("s7proto: read job item %d: %w", i, err)
		}
		pos += AddressItemSize
	}
	return nil
}

// ReadJobAck is the decoded data section of a ReadJob's AckData response.
type ReadJobAck struct {
	Items []DataItem
}

// UnmarshalBinary decodes the concatenated per-item data, applying the
// odd-length padding rule to every item but the last.
func (r *ReadJobAck) UnmarshalBinary(data []byte, itemCount int) error {
	r.Items = make([]DataItem, itemCount)
	pos := 0
	for i := 0; i < itemCount; i++ {
		if pos+4 > len(data) {
			return fmt.Errorf("s7proto: read ack item %d: truncated header", i)
		}
		item := DataItem{
			ReturnCode:    data[pos],
			TransportSize: data[pos+1],
			Length:        binary.BigEndian.Uint16(data[pos+2 : pos+4]),
		}
		pos += 4
		length := int(item.Length)
		if item.ReturnCode == ReturnCodeOK {
			if pos+length > len(data) {
				return fmt.Errorf("s7proto: read ack item %d: truncated payload", i)
			}
			item.Data = make([]byte, length)
			copy(item.Data, data[pos:pos+length])
			pos += length
			if length%2 == 1 && i != itemCount-1 {
				pos++ // skip pad byte
			}
		}
		r.Items[i] = item
	}
	return nil
}

func (r *ReadJobAck) MarshalBinary() ([]byte, error) {
	var buf []byte
	for i := range r.Items {
		ib, err := r.Items[i].MarshalBinary(i != len(r.Items)-1)
		if err != nil {
			return nil, err
		}
		buf = append(buf, ib...)
	}
	return buf, nil
}

// WriteJobRequest is the parameter+data block of a WriteJob PDU.
type WriteJobRequest struct {
	Items []AddressItem
	Data  []DataItem
}

func (w *WriteJobRequest) MarshalBinaryParams() ([]byte, error) {
	buf := make([]byte, 2, 2+len(w.Items)*AddressItemSize)
	buf[0] = FuncWriteVar
	buf[1] = byte(len(w.Items))
	for i := range w.Items {
		ib, err := w.Items[i].MarshalBinary()
		if err != nil {
			return nil, err
		}
		buf = append(buf, ib...)
	}
	return buf, nil
}

func (w *WriteJobRequest) MarshalBinaryData() ([]byte, error) {
	var buf []byte
	for i := range w.Data {
		db, err := w.Data[i].MarshalBinary(i != len(w.Data)-1)
		if err != nil {
			return nil, err
		}
		buf = append(buf, db...)
	}
	return buf, nil
}

func (w *WriteJobRequest) UnmarshalBinary(params, data []byte) error {
	if len(params) < 2 {
		return fmt.Errorf("s7proto: write job params require at least 2 bytes")
	}
	if params[0] != FuncWriteVar {
		return fmt.Errorf("s7proto: expected write-var function 0x%02x, got 0x%02x", FuncWriteVar, params[0])
	}
	count := int(params[1])
	w.Items = make([]AddressItem, count)
	pos := 2
	for i := 0; i < count; i++ {
		if err := w.Items[i].UnmarshalBinary(params[pos:]); err != nil {
			return fmt.Errorf("s7proto: write job item %d: %w", i, err)
		}
		pos += AddressItemSize
	}

	w.Data = make([]DataItem, count)
	dpos := 0
	for i := 0; i < count; i++ {
		if dpos+4 > len(data) {
			return fmt.Errorf("s7proto: write job data item %d: truncated header", i)
		}
		item := DataItem{
			ReturnCode:    data[dpos],
			TransportSize: data[dpos+1],
			Length:        binary.BigEndian.Uint16(data[dpos+2 : dpos+4]),
		}
		dpos += 4
		length := int(item.Length)
		if dpos+length > len(data) {
			return fmt.Errorf("s7proto: write job data item %d: truncated payload", i)
		}
		item.Data = make([]byte, length)
		copy(item.Data, data[dpos:dpos+length])
		dpos += length
		if length%2 == 1 && i != count-1 {
			dpos++
		}
		w.Data[i] = item
	}
	return nil
}

// WriteJobAck carries one return code per item.
type WriteJobAck struct {
	ReturnCodes []byte
}

func (w *WriteJobAck) MarshalBinary() ([]byte, error) {
	return append([]byte{}, w.ReturnCodes...), nil
}

func (w *WriteJobAck) UnmarshalBinary(data []byte) error {
	w.ReturnCodes = append([]byte{}, data...)
	return nil
}
