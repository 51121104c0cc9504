// Package tag implements S7 tag-address parsing and the logical
// read/write item model addressed by the protocol handler.
package tag

import "fmt"

// AreaKind identifies a class of PLC memory.
type AreaKind uint8

const (
	InputByte AreaKind = iota
	FlagByte
	OutputByte
	Timer
	Counter
	DataBlock
)

func (k AreaKind) String() string {
	switch k {
	case InputByte:
		return "InputByte"
	case FlagByte:
		return "FlagByte"
	case OutputByte:
		return "OutputByte"
	case Timer:
		return "Timer"
	case Counter:
		return "Counter"
	case DataBlock:
		return "DataBlock"
	default:
		return fmt.Sprintf("AreaKind(%d)", uint8(k))
	}
}

// Wire area codes, as carried in the AddressItem's Area byte.
const (
	WireAreaInput   byte = 0x81
	WireAreaOutput  byte = 0x82
	WireAreaFlag    byte = 0x83
	WireAreaDB      byte = 0x84
	WireAreaCounter byte = 0x1C
	WireAreaTimer   byte = 0x1D
)

// Area is a tagged PLC memory area. DBNumber is meaningful only when
// Kind == DataBlock.
type Area struct {
	Kind     AreaKind
	DBNumber uint16
}

// WireCode returns the one-byte area code used on the wire.
func (a Area) WireCode() byte {
	switch a.Kind {
	case InputByte:
		return WireAreaInput
	case OutputByte:
		return WireAreaOutput
	case FlagByte:
		return WireAreaFlag
	case DataBlock:
		return WireAreaDB
	case Counter:
		return WireAreaCounter
	case Timer:
		return WireAreaTimer
	default:
		return 0
	}
}

func (a Area) String() string {
	if a.Kind == DataBlock {
		return fmt.Sprintf("DB%d", a.DBNumber)
	}
	return a.Kind.String()
}
