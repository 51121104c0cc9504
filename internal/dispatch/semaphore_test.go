package dispatch

import (
	"context"
	"testing"
	"time"
)

func TestSemaphoreBoundsConcurrency(t *testing.T) {
	sem := newSemaphore(4)
	ctx := context.Background()

	for i := 0; i < 4; i++ {
		if err := sem.acquire(ctx); err != nil {
			t.Fatalf("acquire %d: %v", i, err)
		}
	}

	acquired := make(chan struct{})
	go func() {
		_ = sem.acquire(context.Background())
		close(acquired)
	}()

	select {
	case <-acquired:
		t.Fatal("5th acquire should have blocked with only 4 permits")
	case <-time.After(50 * time.Millisecond):
	}

	sem.release()
	select {
	case <-acquired:
	case <-time.After(time.Second):
		t.Fatal("5th acquire never unblocked after release")
	}
}

func TestSemaphoreAcquireRespectsContext(t *testing.T) {
	sem := newSemaphore(0)
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	err := sem.acquire(ctx)
	if err == nil {
		t.Fatal("expected acquire on empty semaphore to fail via context deadline")
	}
}

func TestSemaphoreDispose(t *testing.T) {
	sem := newSemaphore(3)
	sem.dispose()

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if err := sem.acquire(ctx); err == nil {
		t.Fatal("expected acquire after dispose to block until deadline")
	}
}
