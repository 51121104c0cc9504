package s7proto

import (
	"encoding/binary"
	"fmt"
)

// UserData functions are carried by the UserDataPdu header type, used for
// block-info queries, alarm paging, and clock reads.
const (
	UserDataParamHead0 = 0x00
	UserDataParamHead1 = 0x01
	UserDataParamHead2 = 0x12
)

// UserData function groups.
const (
	GroupBlockFunctions = 0x04
	GroupTimeFunctions  = 0x07
)

// Block-function subfunctions.
const (
	SubFuncBlockInfo = 0x03
)

// Alarm subfunctions.
const (
	SubFuncPendingAlarms = 0x13
	SubFuncAlarmUpdate   = 0x16
)

// Time subfunctions.
const (
	SubFuncReadClock = 0x01
)

// request/response type nibble carried in the user-data header.
const (
	userDataTypeRequest  = 0x4
	userDataTypeResponse = 0x8
)

// UserDataHeader is the common 8-byte parameter head that precedes every
// UserData request/response, identifying the function group, subfunction,
// and paging state (sequence number, last-data-unit flag).
type UserDataHeader struct {
	IsResponse       bool
	FunctionGroup    byte
	SubFunction      byte
	SequenceNumber   byte
	LastDataUnit     bool
	ErrorCode        uint16 // response only
}

// UserDataHeaderSize is the encoded size of UserDataHeader.
const UserDataHeaderSize = 8

func (h *UserDataHeader) MarshalBinary() ([]byte, error) {
	buf := make([]byte, UserDataHeaderSize)
	buf[0] = UserDataParamHead0
	buf[1] = UserDataParamHead1
	buf[2] = UserDataParamHead2
	buf[3] = 0x04 // param length of the function+type+group+subfunc+seq tail
	typ := byte(userDataTypeRequest)
	if h.IsResponse {
		typ = userDataTypeResponse
	}
	buf[4] = typ<<4 | (h.FunctionGroup & 0x0F)
	buf[5] = h.SubFunction
	buf[6] = h.SequenceNumber
	lastByte := byte(0x00)
	if h.LastDataUnit {
		lastByte = 0x01
	}
	buf[7] = lastByte
	return buf, nil
}

func (h *UserDataHeader) UnmarshalBinary(data []byte) error {
	if len(data) < UserDataHeaderSize {
		return fmt.Errorf("s7proto: user-data header requires %d bytes, got %d", UserDataHeaderSize, len(data))
	}
	if data[0] != UserDataParamHead0 || data[1] != UserDataParamHead1 || data[2] != UserDataParamHead2 {
		return fmt.Errorf("s7proto: unrecognized user-data parameter head %x", data[0:3])
	}
	h.IsResponse = (data[4] >> 4) == userDataTypeResponse
	h.FunctionGroup = data[4] & 0x0F
	h.SubFunction = data[5]
	h.SequenceNumber = data[6]
	h.LastDataUnit = data[7] == 0x01
	return nil
}

// UserDataErrorHeaderSize is the size of the leading 4-byte block (return
// code, transport size, two-byte error code) that precedes the payload in
// every UserData response's data section.
const UserDataErrorHeaderSize = 4

// DecodeUserDataResponseData splits a UserData response's data section
// into its return code, error code, and payload.
func DecodeUserDataResponseData(data []byte) (returnCode byte, errorCode uint16, payload []byte, err error) {
	if len(data) < UserDataErrorHeaderSize {
		return 0, 0, nil, fmt.Errorf("s7proto: user-data response requires %d header bytes, got %d", UserDataErrorHeaderSize, len(data))
	}
	returnCode = data[0]
	// data[1] is a transport-size byte mirroring the read/write data item
	// header; errorCode is carried in the following two bytes.
	errorCode = binary.BigEndian.Uint16(data[2:4])
	payload = data[UserDataErrorHeaderSize:]
	return returnCode, errorCode, payload, nil
}

// EncodeUserDataResponseData is the inverse of DecodeUserDataResponseData.
func EncodeUserDataResponseData(returnCode byte, errorCode uint16, payload []byte) []byte {
	buf := make([]byte, UserDataErrorHeaderSize, UserDataErrorHeaderSize+len(payload))
	buf[0] = returnCode
	buf[1] = 0x00
	binary.BigEndian.PutUint16(buf[2:4], errorCode)
	return append(buf, payload...)
}
