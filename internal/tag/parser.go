package tag

import (
	"fmt"
	"strconv"
	"strings"
)

// ParseState names a state of the tag-grammar state machine, used to report
// where a parse failed.
type ParseState uint8

const (
	StateArea ParseState = iota
	StateOffset
	StateType
	StateNumberOfItems
	StateTypeValidation
	StateSuccess
)

func (s ParseState) String() string {
	switch s {
	case StateArea:
		return "Area"
	case StateOffset:
		return "Offset"
	case StateType:
		return "Type"
	case StateNumberOfItems:
		return "NumberOfItems"
	case StateTypeValidation:
		return "TypeValidation"
	case StateSuccess:
		return "Success"
	default:
		return "Unknown"
	}
}

// ParseError reports a tag-grammar failure: the state the parser was in,
// the offending substring, and the original full tag text.
type ParseError struct {
	State    ParseState
	Fragment string
	FullTag  string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("tag parse failed in state %s at %q (tag %q)", e.State, e.Fragment, e.FullTag)
}

func fail(state ParseState, fragment, fullTag string) error {
	return &ParseError{State: state, Fragment: fragment, FullTag: fullTag}
}

// Parse implements the grammar:
//
//	tag    := dbArea "." offset ("," type ("," count)?)?
//	        | memArea offset bitSuffix? ("," type ("," count)?)?
//	dbArea := "DB" digit+
//	memArea:= "I" | "E" | "M" | "Q" | "A" | "T" | "C" | "Z"
//	offset := digit+
//	bitSuffix := "." digit+   // memArea only; parsed and discarded
//	type   := "b" | "c" | "w" | "dw" | "i" | "di" | "r" | "s" | "x" digit*   // bare "x" is bit 0
//	count  := digit+
//
// as the deterministic state machine Area -> Offset -> Type ->
// NumberOfItems -> TypeValidation -> Success described in the tag-address
// design.
func Parse(fullTag string) (Item, error) {
	s := fullTag
	pos := 0
	n := len(s)

	// --- Area ---
	letterStart := pos
	for pos < n && isLetter(s[pos]) {
		pos++
	}
	areaLetters := strings.ToUpper(s[letterStart:pos])
	if areaLetters == "" {
		return Item{}, fail(StateArea, s[pos:], fullTag)
	}

	var area Area
	isDataBlock := false
	switch areaLetters {
	case "I", "E":
		area = Area{Kind: InputByte}
	case "M":
		area = Area{Kind: FlagByte}
	case "Q", "A":
		area = Area{Kind: OutputByte}
	case "T":
		area = Area{Kind: Timer}
	case "C", "Z":
		area = Area{Kind: Counter}
	case "DB":
		isDataBlock = true
		digitStart := pos
		for pos < n && isDigit(s[pos]) {
			pos++
		}
		if pos == digitStart {
			return Item{}, fail(StateArea, s[digitStart:], fullTag)
		}
		dbNum, err := strconv.ParseUint(s[digitStart:pos], 10, 16)
		if err != nil {
			return Item{}, fail(StateArea, s[digitStart:pos], fullTag)
		}
		area = Area{Kind: DataBlock, DBNumber: uint16(dbNum)}
	default:
		return Item{}, fail(StateArea, areaLetters, fullTag)
	}

	// DB<n> always needs a literal "." before its byte offset (DB1.80000);
	// the plain memory areas (M10, Q0, ...) take the offset directly.
	if isDataBlock {
		if pos >= n || s[pos] != '.' {
			return Item{}, fail(StateArea, s[pos:], fullTag)
		}
		pos++ // consume '.'
	}

	// --- Offset ---
	digitStart := pos
	for pos < n && isDigit(s[pos]) {
		pos++
	}
	if pos == digitStart {
		return Item{}, fail(StateOffset, s[pos:], fullTag)
	}
	byteOffset, err := strconv.Atoi(s[digitStart:pos])
	if err != nil {
		return Item{}, fail(StateOffset, s[digitStart:pos], fullTag)
	}

	// Plain memory areas may carry a conventional ".bit" suffix after the
	// byte offset (M10.2). It is parsed and discarded here: the bit itself
	// is only ever addressed through the ",x<n>" type suffix below.
	if !isDataBlock && pos < n && s[pos] == '.' {
		pos++
		bitDigitStart := pos
		for pos < n && isDigit(s[pos]) {
			pos++
		}
		if pos == bitDigitStart {
			return Item{}, fail(StateOffset, s[pos:], fullTag)
		}
	}

	// Type and count are both optional; absence defaults to a single Byte.
	varType := Byte
	bitIndex := 0
	count := 1

	if pos < n && s[pos] == ',' {
		pos++ // consume ','

		// --- Type ---
		typeStart := pos
		for pos < n && isLetter(s[pos]) {
			pos++
		}
		typeLetters := strings.ToLower(s[typeStart:pos])
		if typeLetters == "" {
			return Item{}, fail(StateType, s[pos:], fullTag)
		}

		if typeLetters == "x" {
			kDigitStart := pos
			for pos < n && isDigit(s[pos]) {
				pos++
			}
			k := 0
			if pos > kDigitStart {
				k, err = strconv.Atoi(s[kDigitStart:pos])
				if err != nil {
					return Item{}, fail(StateType, s[kDigitStart:pos], fullTag)
				}
			}
			varType = Bit
			bitIndex = k
		} else {
			vt, ok := FromSuffix(typeLetters)
			if !ok {
				return Item{}, fail(StateType, typeLetters, fullTag)
			}
			varType = vt
		}

		// --- NumberOfItems ---
		if pos < n && s[pos] == ',' {
			pos++ // consume ','
			countStart := pos
			for pos < n && isDigit(s[pos]) {
				pos++
			}
			if pos == countStart {
				return Item{}, fail(StateNumberOfItems, s[pos:], fullTag)
			}
			c, err := strconv.Atoi(s[countStart:pos])
			if err != nil {
				return Item{}, fail(StateNumberOfItems, s[countStart:pos], fullTag)
			}
			count = c
		}
	}

	if pos != n {
		return Item{}, fail(StateType, s[pos:], fullTag)
	}

	// --- TypeValidation ---
	if count < 1 {
		return Item{}, fail(StateTypeValidation, strconv.Itoa(count), fullTag)
	}

	var offsetBits int
	if varType == Bit {
		offsetBits = byteOffset*8 + bitIndex
	} else {
		offsetBits = byteOffset * 8
	}

	// --- Success ---
	return Item{
		Area:   area,
		Offset: offsetBits,
		Type:   varType,
		Count:  count,
	}, nil
}

func isDigit(b byte) bool {
	return b >= '0' && b <= '9'
}

func isLetter(b byte) bool {
	return (b >= 'a' && b <= 'z') || (b >= 'A' && b <= 'Z')
}
