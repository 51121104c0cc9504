package s7proto

import (
	"encoding/binary"
	"fmt"
)

// BlockType identifies the kind of PLC program block queried by
// PlcBlockInfo.
type BlockType byte

const (
	BlockTypeOB BlockType = 0x38
	BlockTypeDB BlockType = 0x41
	BlockTypeFC BlockType = 0x45
	BlockTypeFB BlockType = 0x4B
)

// BlockInfoRequest asks the PLC for metadata about one block, addressed as
// an ASCII block-number string per the real protocol's upload-info
// convention.
type BlockInfoRequest struct {
	BlockType   BlockType
	BlockNumber uint16
}

// MarshalBinary encodes the block-info request payload (follows the
// UserDataHeader).
func (r *BlockInfoRequest) MarshalBinary() ([]byte, error) {
	buf := make([]byte, 8)
	buf[0] = 0x01 // sub-block spec marker
	buf[1] = byte(r.BlockType)
	numStr := []byte(fmt.Sprintf("%05d", r.BlockNumber))
	copy(buf[2:7], numStr)
	buf[7] = 0x41 // 'A' suffix, matching the real protocol's block-id convention
	return buf, nil
}

func (r *BlockInfoRequest) UnmarshalBinary(data []byte) error {
	if len(data) < 8 {
		return fmt.Errorf("s7proto: block-info request requires 8 bytes, got %d", len(data))
	}
	r.BlockType = BlockType(data[1])
	var n uint16
	for _, c := range data[2:7] {
		if c < '0' || c > '9' {
			continue
		}
		n = n*10 + uint16(c-'0')
	}
	r.BlockNumber = n
	return nil
}

// BlockInfoResponse carries the subset of block metadata this
// implementation surfaces to callers.
type BlockInfoResponse struct {
	BlockType     BlockType
	BlockNumber   uint16
	LoadMemSize   uint32
	LocalDataSize uint32
	MC7CodeSize   uint32
	Author        string
}

// MarshalBinary encodes a fixed 32-byte block-info payload.
func (r *BlockInfoResponse) MarshalBinary() ([]byte, error) {
	buf := make([]byte, 32)
	buf[0] = byte(r.BlockType)
	binary.BigEndian.PutUint16(buf[1:3], r.BlockNumber)
	binary.BigEndian.PutUint32(buf[3:7], r.LoadMemSize)
	binary.BigEndian.PutUint32(buf[7:11], r.LocalDataSize)
	binary.BigEndian.PutUint32(buf[11:15], r.MC7CodeSize)
	copy(buf[15:31], r.Author)
	return buf, nil
}

func (r *BlockInfoResponse) UnmarshalBinary(data []byte) error {
	if len(data) < 32 {
		return fmt.Errorf("s7proto: block-info response requires 32 bytes, got %d", len(data))
	}
	r.BlockType = BlockType(data[0])
	r.BlockNumber = binary.BigEndian.Uint16(data[1:3])
	r.LoadMemSize = binary.BigEndian.Uint32(data[3:7])
	r.LocalDataSize = binary.BigEndian.Uint32(data[7:11])
	r.MC7CodeSize = binary.BigEndian.Uint32(data[11:15])
	end := 15
	for end < 31 && data[end] != 0 {
		end++
	}
	r.Author = string(data[15:end])
	return nil
}
