package s7proto

import "fmt"

// WireError describes a header-level ErrorClass/ErrorCode pair carried in
// an Ack PDU.
type WireError struct {
	Class byte
	Code  byte
}

func (e WireError) Error() string {
	if msg, ok := errorClassNames[e.Class]; ok {
		return fmt.Sprintf("s7: %s (class 0x%02x, code 0x%02x)", msg, e.Class, e.Code)
	}
	return fmt.Sprintf("s7: unknown error (class 0x%02x, code 0x%02x)", e.Class, e.Code)
}

// IsOK reports whether the pair represents "no error" (class 0x00).
func (e WireError) IsOK() bool {
	return e.Class == 0x00
}

var errorClassNames = map[byte]string{
	0x00: "no error",
	0x81: "application relationship error",
	0x82: "object definition error",
	0x83: "no resources available",
	0x84: "error on service processing",
	0x85: "error on supplied parameters",
	0x87: "access error",
}

// ItemReturnCode describes a per-item status from a ReadJobAck or
// WriteJobAck data section.
type ItemReturnCode byte

const (
	ReturnOK                 ItemReturnCode = 0xFF
	ReturnHardwareFault      ItemReturnCode = 0x01
	ReturnAccessFault        ItemReturnCode = 0x03
	ReturnAddressOutOfRange  ItemReturnCode = 0x05
	ReturnDataTypeNotSupported ItemReturnCode = 0x06
	ReturnDataTypeInconsistent ItemReturnCode = 0x07
	ReturnObjectDoesNotExist ItemReturnCode = 0x0A
)

func (c ItemReturnCode) String() string {
	switch c {
	case ReturnOK:
		return "OK"
	case ReturnHardwareFault:
		return "hardware fault"
	case ReturnAccessFault:
		return "access fault"
	case ReturnAddressOutOfRange:
		return "address out of range"
	case ReturnDataTypeNotSupported:
		return "data type not supported"
	case ReturnDataTypeInconsistent:
		return "data type inconsistent"
	case ReturnObjectDoesNotExist:
		return "object does not exist"
	default:
		return fmt.Sprintf("return code 0x%02x", byte(c))
	}
}
