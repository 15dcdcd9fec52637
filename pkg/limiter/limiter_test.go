package limiter

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func TestLimiter_BoundsConcurrency(t *testing.T) {
	const maxConcurrent = 3
	l := New(maxConcurrent)

	var active, peak int32
	proceed := make(chan struct{})
	var wg sync.WaitGroup

	for i := 0; i < 2*maxConcurrent; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			release, err := l.Acquire(context.Background())
			if err != nil {
				t.Errorf("Acquire failed: %v", err)
				return
			}
			defer release()

			n := atomic.AddInt32(&active, 1)
			for {
				current := atomic.LoadInt32(&peak)
				if n <= current || atomic.CompareAndSwapInt32(&peak, current, n) {
					break
				}
			}
			<-proceed
			atomic.AddInt32(&active, -1)
		}()
	}

	// Let the first wave of acquisitions settle, then release everyone.
	time.Sleep(50 * time.Millisecond)
	close(proceed)
	wg.Wait()

	if p := atomic.LoadInt32(&peak); p > maxConcurrent {
		t.Errorf("Expected at most %d concurrent holders, observed %d", maxConcurrent, p)
	}
	if l.InUse() != 0 {
		t.Errorf("Expected 0 slots in use after release, got %d", l.InUse())
	}
}

func TestLimiter_AcquireCancellable(t *testing.T) {
	l := New(1)

	release, err := l.Acquire(context.Background())
	if err != nil {
		t.Fatalf("First acquire failed: %v", err)
	}
	defer release()

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err = l.Acquire(ctx)
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("Expected deadline exceeded, got %v", err)
	}
	if l.Waits() == 0 {
		t.Error("Expected blocked acquisition to be counted")
	}
}

func TestLimiter_ReleaseIdempotent(t *testing.T) {
	l := New(2)

	release, err := l.Acquire(context.Background())
	if err != nil {
		t.Fatalf("Acquire failed: %v", err)
	}

	release()
	release() // Second call must be a no-op.

	if l.InUse() != 0 {
		t.Errorf("Expected 0 slots in use, got %d", l.InUse())
	}

	// Both slots must still be acquirable.
	r1, err1 := l.Acquire(context.Background())
	r2, err2 := l.Acquire(context.Background())
	if err1 != nil || err2 != nil {
		t.Fatalf("Expected both slots acquirable, got %v / %v", err1, err2)
	}
	r1()
	r2()
}

func TestLimiter_Capacity(t *testing.T) {
	if got := New(10).Capacity(); got != 10 {
		t.Errorf("Expected capacity 10, got %d", got)
	}
	// Non-positive capacity falls back to a single slot.
	if got := New(0).Capacity(); got != 1 {
		t.Errorf("Expected capacity 1 for zero input, got %d", got)
	}
}
