package tag

import "fmt"

// VarType identifies the element type of a read/write item.
type VarType uint8

const (
	Bit VarType = iota
	Byte
	Char
	Word
	DWord
	Int16
	Int32
	Float32
	String
)

func (v VarType) String() string {
	switch v {
	case Bit:
		return "Bit"
	case Byte:
		return "Byte"
	case Char:
		return "Char"
	case Word:
		return "Word"
	case DWord:
		return "DWord"
	case Int16:
		return "Int16"
	case Int32:
		return "Int32"
	case Float32:
		return "Float32"
	case String:
		return "String"
	default:
		return fmt.Sprintf("VarType(%d)", uint8(v))
	}
}

// ElementSizeBytes returns the per-element size in bytes. Bit has no
// meaningful per-element byte size; callers must use bit arithmetic for it.
func (v VarType) ElementSizeBytes() int {
	switch v {
	case Bit, Byte, Char, String:
		return 1
	case Word, Int16:
		return 2
	case DWord, Int32, Float32:
		return 4
	default:
		return 0
	}
}

// TransportSize returns the wire transport-size code used in AddressItem
// and DataItem headers. Timer/Counter items override this with the area's
// own wire code at the call site.
func (v VarType) TransportSize() byte {
	switch v {
	case Bit:
		return 1
	case Byte, String:
		return 2
	case Char:
		return 3
	case Word:
		return 4
	case Int16:
		return 5
	case DWord, Int32:
		return 6
	case Float32:
		return 8
	default:
		return 0
	}
}

// FromSuffix maps a tag-grammar type suffix letter to a VarType. The
// bit-suffix form ("xK") is handled by the parser, not here.
func FromSuffix(letter string) (VarType, bool) {
	switch letter {
	case "b":
		return Byte, true
	case "c":
		return Char, true
	case "w":
		return Word, true
	case "dw":
		return DWord, true
	case "i":
		return Int16, true
	case "di":
		return Int32, true
	case "r":
		return Float32, true
	case "s":
		return String, true
	default:
		return 0, false
	}
}
