package pack

import "fmt"

// ItemResult is one decoded per-item response, in the format the
// dispatcher hands back after decoding a ReadJobAck's data items.
type ItemResult struct {
	ReturnCode byte
	Data       []byte
}

// ItemError pairs a non-OK per-item return code with the logical item
// index it belongs to.
type ItemError struct {
	ItemIndex  int
	ReturnCode byte
}

func (e *ItemError) Error() string {
	return fmt.Sprintf("pack: item %d returned code 0x%02x", e.ItemIndex, e.ReturnCode)
}

// Reassemble walks packages and their matching decoded responses in
// planned order, stitching split fragments back onto their logical item's
// backing buffer. Ordering between packages/entries and responses MUST
// match exactly; any mismatch is a fatal protocol error.
//
// It returns one buffer per logical item (indexed exactly as the caller's
// original item slice) and the first non-OK per-item return code
// observed, if any.
func Reassemble(numItems int, packages []*Package, responses [][]ItemResult) ([][]byte, *ItemError, error) {
	if len(responses) != len(packages) {
		return nil, nil, fmt.Errorf("pack: got %d response packages, want %d", len(responses), len(packages))
	}

	buffers := make([][]byte, numItems)
	var firstErr *ItemError

	for pkgIdx, pkg := range packages {
		resp := responses[pkgIdx]
		if len(resp) != len(pkg.Entries) {
			return nil, nil, fmt.Errorf("pack: package %d has %d entries but %d responses", pkgIdx, len(pkg.Entries), len(resp))
		}
		for i, entry := range pkg.Entries {
			result := resp[i]
			if result.ReturnCode != 0xFF && firstErr == nil {
				firstErr = &ItemError{ItemIndex: entry.OriginalIndex, ReturnCode: result.ReturnCode}
			}

			if entry.Part != nil {
				idx := entry.OriginalIndex
				if buffers[idx] == nil {
					buffers[idx] = make([]byte, entry.Item.WireLengthBytes())
				}
				start := entry.Part.OffsetWithinBytes
				end := start + entry.Part.LengthBytes
				if end > len(buffers[idx]) || len(result.Data) < entry.Part.LengthBytes {
					return nil, nil, fmt.Errorf("pack: part for item %d out of range [%d:%d] in %d-byte buffer", idx, start, end, len(buffers[idx]))
				}
				copy(buffers[idx][start:end], result.Data[:entry.Part.LengthBytes])
			} else {
				buffers[entry.OriginalIndex] = result.Data
			}
		}
	}

	return buffers, firstErr, nil
}
