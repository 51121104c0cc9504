// Package pack implements the bin-packing planner that turns logical tag
// read/write items into PDU-sized packages, and reassembles paged
// responses back onto their logical items.
package pack

import "github.com/ccLee627/dacs7/internal/tag"

// Kind distinguishes a read package (budgeted by the AckData response)
// from a write package (budgeted by the Job request).
type Kind uint8

const (
	KindRead Kind = iota
	KindWrite
)

// Fixed per-package and per-item overheads. Derived from the session
// formulas read_item_max_length = pdu_size-18 and
// write_item_max_length = pdu_size-28: for writes this decomposes exactly
// into the Job header (10) + function + item-count bytes (2) once per
// package, plus a 12-byte AddressItem and a 4-byte DataItem header per
// item (10+2+12+4=28). For reads the response-side AckData header (12)
// plus a 4-byte DataItem header and 2 bytes of padding/rounding slack per
// item reproduces the 18-byte single-item figure.
const (
	readPackageOverhead  = 12
	readItemOverhead     = 6
	writePackageOverhead = 12
	writeItemOverhead    = 16
)

func packageOverhead(k Kind) int {
	if k == KindWrite {
		return writePackageOverhead
	}
	return readPackageOverhead
}

func itemOverhead(k Kind) int {
	if k == KindWrite {
		return writeItemOverhead
	}
	return readItemOverhead
}

// Entry is one logical item or item-fragment placed into a package, in
// the exact order it will be sent on the wire.
type Entry struct {
	OriginalIndex int // index into the caller's original item slice
	Item          tag.Item
	Part          *tag.Part // non-nil when this entry is a split fragment
	DataLen       int       // payload length this entry contributes, in bytes
}

// Package is one planned PDU's worth of entries.
type Package struct {
	PduBudget int
	Kind      Kind
	Entries   []Entry
	UsedBytes int
	Handled   bool
	Full      bool
}

func newPackage(pduBudget int, kind Kind) *Package {
	return &Package{PduBudget: pduBudget, Kind: kind}
}

func (p *Package) remainingCapacity() int {
	return p.PduBudget - packageOverhead(p.Kind) - p.UsedBytes
}

// minItemCost is the cost of the smallest possible item (zero-length
// payload); once remaining capacity drops below it, the package is full.
func (p *Package) minItemCost() int {
	return itemOverhead(p.Kind)
}

// tryAdd attempts to place entry into the package, returning false without
// mutating the package if it does not fit.
func (p *Package) tryAdd(entry Entry) bool {
	cost := entry.DataLen + itemOverhead(p.Kind)
	if cost > p.remainingCapacity() {
		return false
	}
	p.Entries = append(p.Entries, entry)
	p.UsedBytes += cost
	if p.remainingCapacity() < p.minItemCost() {
		p.Full = true
	}
	return true
}
