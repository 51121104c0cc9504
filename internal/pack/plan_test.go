package pack

import (
	"testing"

	"github.com/ccLee627/dacs7/internal/tag"
)

func byteItem(n int) tag.Item {
	return tag.Item{Area: tag.Area{Kind: tag.DataBlock, DBNumber: 1}, Type: tag.Byte, Count: n}
}

// TestPlanReads_ThreeSmallItemsOnePackage covers concrete scenario 3:
// three items of 20 bytes each with pdu_size=240 yield exactly one package
// of three items.
func TestPlanReads_ThreeSmallItemsOnePackage(t *testing.T) {
	items := []tag.Item{byteItem(20), byteItem(20), byteItem(20)}
	packages, err := PlanReads(items, 240, 222)
	if err != nil {
		t.Fatalf("PlanReads: %v", err)
	}
	if len(packages) != 1 {
		t.Fatalf("got %d packages, want 1", len(packages))
	}
	if len(packages[0].Entries) != 3 {
		t.Fatalf("got %d entries, want 3", len(packages[0].Entries))
	}
}

// TestPlanReads_OversizedItemSplits covers concrete scenario 4: one item
// of 900 bytes, pdu_size=480, read_item_max_length=462, splits into
// children of 462 and 438 bytes.
func TestPlanReads_OversizedItemSplits(t *testing.T) {
	items := []tag.Item{byteItem(900)}
	packages, err := PlanReads(items, 480, 462)
	if err != nil {
		t.Fatalf("PlanReads: %v", err)
	}

	var parts []Entry
	for _, pkg := range packages {
		parts = append(parts, pkg.Entries...)
	}
	if len(parts) != 2 {
		t.Fatalf("got %d parts, want 2", len(parts))
	}
	if parts[0].DataLen != 462 || parts[1].DataLen != 438 {
		t.Fatalf("part lengths = %d, %d; want 462, 438", parts[0].DataLen, parts[1].DataLen)
	}
	if !parts[0].Part.IsPart || !parts[1].Part.IsPart {
		t.Fatal("expected both fragments marked IsPart")
	}
	if parts[0].Part.OffsetWithinBytes != 0 || parts[1].Part.OffsetWithinBytes != 462 {
		t.Fatalf("offsets = %d, %d; want 0, 462", parts[0].Part.OffsetWithinBytes, parts[1].Part.OffsetWithinBytes)
	}
}

func TestPlanReads_CouldNotAddPackage(t *testing.T) {
	items := []tag.Item{byteItem(500)}
	// pdu_size too small for even a minimal package.
	_, err := PlanReads(items, 20, 10)
	if err == nil {
		t.Fatal("expected CouldNotAddPackageError")
	}
	if _, ok := err.(*CouldNotAddPackageError); !ok {
		t.Fatalf("error type = %T, want *CouldNotAddPackageError", err)
	}
}

// TestPlanReads_InvariantPackagesWithinBudget covers invariant 2: for
// every package emitted, header_overhead + used bytes stays within
// pdu_budget.
func TestPlanReads_InvariantPackagesWithinBudget(t *testing.T) {
	items := []tag.Item{byteItem(50), byteItem(100), byteItem(30), byteItem(900), byteItem(5)}
	pduBudget := 240
	maxItemLength := pduBudget - 18

	packages, err := PlanReads(items, pduBudget, maxItemLength)
	if err != nil {
		t.Fatalf("PlanReads: %v", err)
	}
	for i, pkg := range packages {
		encoded := packageOverhead(KindRead) + pkg.UsedBytes
		if encoded > pduBudget {
			t.Fatalf("package %d encodes to %d bytes, exceeds pdu_budget %d", i, encoded, pduBudget)
		}
	}

	// Reassembling the full byte range of each logical item, using
	// synthetic all-OK responses, must cover every declared byte exactly
	// once.
	responses := make([][]ItemResult, len(packages))
	for pi, pkg := range packages {
		resp := make([]ItemResult, len(pkg.Entries))
		for ei, entry := range pkg.Entries {
			resp[ei] = ItemResult{ReturnCode: 0xFF, Data: make([]byte, entry.DataLen)}
		}
		responses[pi] = resp
	}
	buffers, itemErr, err := Reassemble(len(items), packages, responses)
	if err != nil {
		t.Fatalf("Reassemble: %v", err)
	}
	if itemErr != nil {
		t.Fatalf("unexpected item error: %v", itemErr)
	}
	for i, it := range items {
		if len(buffers[i]) != it.WireLengthBytes() {
			t.Fatalf("item %d buffer len = %d, want %d", i, len(buffers[i]), it.WireLengthBytes())
		}
	}
}
