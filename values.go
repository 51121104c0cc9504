package dacs7

import (
	"encoding/binary"
	"fmt"
	"math"

	"github.com/ccLee627/dacs7/internal/tag"
)

// DecodeValue converts raw bytes read from a PLC address into a Go value
// matching the address's declared VarType. The byte layout follows S7's
// big-endian wire order, not the host's native order.
func DecodeValue(varType tag.VarType, data []byte) (any, error) {
	switch varType {
	case tag.Bit:
		if len(data) < 1 {
			return nil, fmt.Errorf("dacs7: insufficient data for Bit")
		}
		return data[0]&0x01 != 0, nil

	case tag.Byte:
		if len(data) < 1 {
			return nil, fmt.Errorf("dacs7: insufficient data for Byte")
		}
		return data[0], nil

	case tag.Char:
		if len(data) < 1 {
			return nil, fmt.Errorf("dacs7: insufficient data for Char")
		}
		return rune(data[0]), nil

	case tag.Word:
		if len(data) < 2 {
			return nil, fmt.Errorf("dacs7: insufficient data for Word")
		}
		return binary.BigEndian.Uint16(data), nil

	case tag.Int16:
		if len(data) < 2 {
			return nil, fmt.Errorf("dacs7: insufficient data for Int16")
		}
		return int16(binary.BigEndian.Uint16(data)), nil

	case tag.DWord:
		if len(data) < 4 {
			return nil, fmt.Errorf("dacs7: insufficient data for DWord")
		}
		return binary.BigEndian.Uint32(data), nil

	case tag.Int32:
		if len(data) < 4 {
			return nil, fmt.Errorf("dacs7: insufficient data for Int32")
		}
		return int32(binary.BigEndian.Uint32(data)), nil

	case tag.Float32:
		if len(data) < 4 {
			return nil, fmt.Errorf("dacs7: insufficient data for Float32")
		}
		bits := binary.BigEndian.Uint32(data)
		return math.Float32frombits(bits), nil

	case tag.String:
		// S7 STRING layout: max-length byte, actual-length byte, then chars.
		if len(data) < 2 {
			return nil, fmt.Errorf("dacs7: insufficient data for String")
		}
		actualLen := int(data[1])
		if actualLen+2 > len(data) {
			actualLen = len(data) - 2
		}
		return string(data[2 : 2+actualLen]), nil

	default:
		return nil, fmt.Errorf("dacs7: unsupported var type %s", varType)
	}
}

// EncodeValue converts a Go value into the wire bytes for varType, honoring
// S7's big-endian layout. maxLen bounds the allocated buffer for String
// values (the declared element count of the target address).
func EncodeValue(varType tag.VarType, value any, maxLen int) ([]byte, error) {
	switch varType {
	case tag.Bit:
		v, ok := value.(bool)
		if !ok {
			return nil, fmt.Errorf("dacs7: Bit requires a bool, got %T", value)
		}
		if v {
			return []byte{1}, nil
		}
		return []byte{0}, nil

	case tag.Byte:
		switch v := value.(type) {
		case byte:
			return []byte{v}, nil
		case int:
			return []byte{byte(v)}, nil
		default:
			return nil, fmt.Errorf("dacs7: Byte requires a byte, got %T", value)
		}

	case tag.Char:
		switch v := value.(type) {
		case rune:
			return []byte{byte(v)}, nil
		case byte:
			return []byte{v}, nil
		default:
			return nil, fmt.Errorf("dacs7: Char requires a byte or rune, got %T", value)
		}

	case tag.Word:
		v, ok := toUint16(value)
		if !ok {
			return nil, fmt.Errorf("dacs7: Word requires an unsigned integer, got %T", value)
		}
		buf := make([]byte, 2)
		binary.BigEndian.PutUint16(buf, v)
		return buf, nil

	case tag.Int16:
		v, ok := toInt16(value)
		if !ok {
			return nil, fmt.Errorf("dacs7: Int16 requires a signed integer, got %T", value)
		}
		buf := make([]byte, 2)
		binary.BigEndian.PutUint16(buf, uint16(v))
		return buf, nil

	case tag.DWord:
		v, ok := toUint32(value)
		if !ok {
			return nil, fmt.Errorf("dacs7: DWord requires an unsigned integer, got %T", value)
		}
		buf := make([]byte, 4)
		binary.BigEndian.PutUint32(buf, v)
		return buf, nil

	case tag.Int32:
		v, ok := toInt32(value)
		if !ok {
			return nil, fmt.Errorf("dacs7: Int32 requires a signed integer, got %T", value)
		}
		buf := make([]byte, 4)
		binary.BigEndian.PutUint32(buf, uint32(v))
		return buf, nil

	case tag.Float32:
		v, ok := toFloat32(value)
		if !ok {
			return nil, fmt.Errorf("dacs7: Float32 requires a float, got %T", value)
		}
		buf := make([]byte, 4)
		binary.BigEndian.PutUint32(buf, math.Float32bits(v))
		return buf, nil

	case tag.String:
		v, ok := value.(string)
		if !ok {
			return nil, fmt.Errorf("dacs7: String requires a string, got %T", value)
		}
		if maxLen <= 0 {
			maxLen = len(v)
		}
		if len(v) > maxLen {
			v = v[:maxLen]
		}
		buf := make([]byte, maxLen+2)
		buf[0] = byte(maxLen)
		buf[1] = byte(len(v))
		copy(buf[2:], v)
		return buf, nil

	default:
		return nil, fmt.Errorf("dacs7: unsupported var type %s", varType)
	}
}

func toUint16(value any) (uint16, bool) {
	switch v := value.(type) {
	case uint16:
		return v, true
	case uint32:
		return uint16(v), true
	case uint:
		return uint16(v), true
	case int:
		return uint16(v), true
	}
	return 0, false
}

func toInt16(value any) (int16, bool) {
	switch v := value.(type) {
	case int16:
		return v, true
	case int32:
		return int16(v), true
	case int:
		return int16(v), true
	}
	return 0, false
}

func toUint32(value any) (uint32, bool) {
	switch v := value.(type) {
	case uint32:
		return v, true
	case uint:
		return uint32(v), true
	case int:
		return uint32(v), true
	}
	return 0, false
}

func toInt32(value any) (int32, bool) {
	switch v := value.(type) {
	case int32:
		return v, true
	case int:
		return int32(v), true
	case int64:
		return int32(v), true
	}
	return 0, false
}

func toFloat32(value any) (float32, bool) {
	switch v := value.(type) {
	case float32:
		return v, true
	case float64:
		return float32(v), true
	}
	return 0, false
}
