package dispatch

import "context"

// semaphore is a counting semaphore sized to the peer's MaxAmQCalling,
// the authoritative back-pressure mechanism for in-flight user requests.
// A buffered channel is the idiomatic Go counting semaphore and is what
// the rest of this codebase's reference pack reaches for (worker pools in
// the modbus client examples) rather than a dedicated semaphore package
// for a single acquire/release pair.
type semaphore struct {
	permits chan struct{}
}

func newSemaphore(n int) *semaphore {
	s := &semaphore{permits: make(chan struct{}, n)}
	for i := 0; i < n; i++ {
		s.permits <- struct{}{}
	}
	return s
}

func (s *semaphore) acquire(ctx context.Context) error {
	select {
	case <-s.permits:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *semaphore) release() {
	select {
	case s.permits <- struct{}{}:
	default:
		// permits already full; release without a matching acquire is a
		// caller bug, dropped rather than panicking.
	}
}

// dispose drains the semaphore so that any further acquire blocks until
// the connection is reopened and a fresh semaphore installed.
func (s *semaphore) dispose() {
	for {
		select {
		case <-s.permits:
		default:
			return
		}
	}
}
