package pack

import (
	"fmt"
	"sort"

	"github.com/ccLee627/dacs7/internal/tag"
)

// CouldNotAddPackageError reports a planner invariant breach: a single
// minimal item or fragment cannot fit into a fresh, otherwise-empty
// package, which indicates a misconfigured pdu_size.
type CouldNotAddPackageError struct {
	ItemIndex int
	DataLen   int
	PduBudget int
}

func (e *CouldNotAddPackageError) Error() string {
	return fmt.Sprintf("pack: item %d (%d bytes) cannot fit any package with pdu_size %d", e.ItemIndex, e.DataLen, e.PduBudget)
}

// PlanReads packs items into read packages using first-fit bin packing,
// splitting any item whose payload exceeds maxItemLength into contiguous
// fixed-size fragments.
//
// Items are sorted by number_of_items descending before placement, per the
// read planning algorithm: this improves first-fit packing by placing the
// items most likely to dominate a package first.
func PlanReads(items []tag.Item, pduBudget, maxItemLength int) ([]*Package, error) {
	return plan(items, pduBudget, maxItemLength, KindRead)
}

// PlanWrites packs items into write packages; see PlanReads. The caller
// passes write_item_max_length as maxItemLength.
func PlanWrites(items []tag.Item, pduBudget, maxItemLength int) ([]*Package, error) {
	return plan(items, pduBudget, maxItemLength, KindWrite)
}

type orderedItem struct {
	index int
	item  tag.Item
}

func plan(items []tag.Item, pduBudget, maxItemLength int, kind Kind) ([]*Package, error) {
	ordered := make([]orderedItem, len(items))
	for i, it := range items {
		ordered[i] = orderedItem{index: i, item: it}
	}
	sort.SliceStable(ordered, func(a, b int) bool {
		return ordered[a].item.Count > ordered[b].item.Count
	})

	var packages []*Package

	placeEntry := func(entry Entry) error {
		for _, pkg := range packages {
			if !pkg.Full && pkg.tryAdd(entry) {
				return nil
			}
		}
		pkg := newPackage(pduBudget, kind)
		if !pkg.tryAdd(entry) {
			return &CouldNotAddPackageError{ItemIndex: entry.OriginalIndex, DataLen: entry.DataLen, PduBudget: pduBudget}
		}
		packages = append(packages, pkg)
		return nil
	}

	for _, oi := range ordered {
		dataLen := oi.item.WireLengthBytes()
		if dataLen <= maxItemLength {
			if err := placeEntry(Entry{OriginalIndex: oi.index, Item: oi.item, DataLen: dataLen}); err != nil {
				return nil, err
			}
			continue
		}

		offset := 0
		for offset < dataLen {
			length := maxItemLength
			if remaining := dataLen - offset; remaining < length {
				length = remaining
			}
			part := &tag.Part{OffsetWithinBytes: offset, LengthBytes: length, IsPart: true}
			entry := Entry{OriginalIndex: oi.index, Item: oi.item, Part: part, DataLen: length}
			if err := placeEntry(entry); err != nil {
				return nil, err
			}
			offset += length
		}
	}

	for _, pkg := range packages {
		pkg.Handled = true
	}
	return packages, nil
}
