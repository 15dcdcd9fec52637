// Package limiter provides a counting semaphore bounding the number of
// effects executing simultaneously.
package limiter

import (
	"context"
	"fmt"
	"sync"
)

// Limiter is a counting semaphore. Acquire blocks the calling goroutine
// (yielding, not spinning) until a slot is free or the context is done.
type Limiter struct {
	slots chan struct{}
	mu    sync.Mutex
	inUse int
	waits int64
}

// New creates a limiter with the given number of slots.
func New(maxConcurrent int) *Limiter {
	if maxConcurrent <= 0 {
		maxConcurrent = 1
	}
	return &Limiter{
		slots: make(chan struct{}, maxConcurrent),
	}
}

// Acquire claims a slot and returns a release function that MUST be called
// (via defer) to return it. The release function is idempotent, so it is safe
// on every exit path including panics unwound past the deferred call.
func (l *Limiter) Acquire(ctx context.Context) (func(), error) {
	select {
	case l.slots <- struct{}{}:
	default:
		// No slot free; record the contention, then block.
		l.mu.Lock()
		l.waits++
		l.mu.Unlock()
		select {
		case l.slots <- struct{}{}:
		case <-ctx.Done():
			return nil, fmt.Errorf("concurrency slot acquisition cancelled: %w", ctx.Err())
		}
	}

	l.mu.Lock()
	l.inUse++
	l.mu.Unlock()

	var once sync.Once
	release := func() {
		once.Do(func() {
			l.mu.Lock()
			l.inUse--
			l.mu.Unlock()
			<-l.slots
		})
	}
	return release, nil
}

// InUse returns the number of slots currently held.
func (l *Limiter) InUse() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.inUse
}

// Capacity returns the total number of slots.
func (l *Limiter) Capacity() int {
	return cap(l.slots)
}

// Waits returns how many acquisitions had to block for a slot.
func (l *Limiter) Waits() int64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.waits
}
