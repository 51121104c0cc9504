package dispatch

import (
	"sync"
	"testing"
)

func TestRefIDGeneratorNeverZero(t *testing.T) {
	var g RefIDGenerator
	seen := make(map[uint16]bool)
	for i := 0; i < 1<<17; i++ {
		ref := g.Next()
		if ref == 0 {
			t.Fatalf("Next() returned 0 at iteration %d", i)
		}
		seen[ref] = true
	}
	if len(seen) != 0xFFFF {
		t.Fatalf("saw %d distinct refs over two full wraps, want %d", len(seen), 0xFFFF)
	}
}

func TestRefIDGeneratorConcurrentUniqueness(t *testing.T) {
	var g RefIDGenerator
	const n = 5000
	results := make([]uint16, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i] = g.Next()
		}(i)
	}
	wg.Wait()

	seen := make(map[uint16]int)
	for _, r := range results {
		if r == 0 {
			t.Fatal("got a zero ref id")
		}
		seen[r]++
	}
	for ref, count := range seen {
		if count > 1 {
			t.Fatalf("ref %d issued %d times concurrently", ref, count)
		}
	}
}
