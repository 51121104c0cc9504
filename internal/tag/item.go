package tag

import "fmt"

// Item is the unified logical read/write item produced by the parser and
// consumed by the packing planner. Offset is always in bits: for Bit items
// it is the literal bit index; for every other type it is byte_offset*8.
type Item struct {
	Area    Area
	Offset  int
	Type    VarType
	Count   int
	Data    []byte // populated for write items, nil for read items
}

// ByteOffset returns Offset/8, valid for any item (Bit items round down to
// the byte containing the addressed bit).
func (it Item) ByteOffset() int {
	return it.Offset / 8
}

// BitIndex returns the bit within ByteOffset, meaningful only when
// Type == Bit.
func (it Item) BitIndex() int {
	return it.Offset % 8
}

// WireLengthBytes returns the total payload length in bytes this item
// occupies on the wire: Count elements of ElementSizeBytes each, plus the
// two-byte length header for String items.
func (it Item) WireLengthBytes() int {
	switch it.Type {
	case Bit:
		// one bit per count entry, packed as whole bytes by the caller;
		// the wire read/write path always carries at least one byte.
		return (it.Count + 7) / 8
	case String:
		return it.Count + 2
	default:
		return it.Count * it.Type.ElementSizeBytes()
	}
}

// TransportSizeCode returns the wire transport_size byte for this item,
// honoring the Timer/Counter exception (transport size equals the area
// wire code rather than the VarType code).
func (it Item) TransportSizeCode() byte {
	switch it.Area.Kind {
	case Timer:
		return WireAreaTimer
	case Counter:
		return WireAreaCounter
	default:
		return it.Type.TransportSize()
	}
}

func (it Item) String() string {
	return fmt.Sprintf("%s@%d(%s x%d)", it.Area, it.Offset, it.Type, it.Count)
}

// Part is a possibly-partial slice of a logical Item produced when the
// planner splits an oversized item across packages.
type Part struct {
	Parent           *Item
	OffsetWithinBytes int
	LengthBytes      int
	IsPart           bool
}
