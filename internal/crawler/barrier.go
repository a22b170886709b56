package crawler

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
)

// BarrierMisuseError is returned by Arrive once the barrier has already
// released. It means more discovery events completed than were announced.
type BarrierMisuseError struct {
	Expected int
}

func (e *BarrierMisuseError) Error() string {
	return fmt.Sprintf("barrier: arrival after release (expected %d arrivals)", e.Expected)
}

// Barrier is a one-shot countdown join. It releases when the n-th arrival
// lands and runs onRelease exactly once.
type Barrier struct {
	expected  int
	remaining atomic.Int64
	onRelease func()
	done      chan struct{}
}

// NewBarrier expects n arrivals. With n == 0 it releases before returning.
func NewBarrier(n int, onRelease func()) (*Barrier, error) {
	if n < 0 {
		return nil, errors.New("barrier: negative count")
	}
	b := &Barrier{
		expected:  n,
		onRelease: onRelease,
		done:      make(chan struct{}),
	}
	b.remaining.Store(int64(n))
	if n == 0 {
		b.release()
	}
	return b, nil
}

// Arrive records one completed discovery event.
func (b *Barrier) Arrive() error {
	left := b.remaining.Add(-1)
	switch {
	case left == 0:
		b.release()
		return nil
	case left < 0:
		return &BarrierMisuseError{Expected: b.expected}
	}
	return nil
}

// Only the arrival that crosses zero gets here.
func (b *Barrier) release() {
	close(b.done)
	if b.onRelease != nil {
		b.onRelease()
	}
}

// Done is closed once the barrier has released.
func (b *Barrier) Done() <-chan struct{} {
	return b.done
}

// Wait blocks until release or until ctx ends.
func (b *Barrier) Wait(ctx context.Context) error {
	select {
	case <-b.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (b *Barrier) Released() bool {
	select {
	case <-b.done:
		return true
	default:
		return false
	}
}

// Remaining is the number of arrivals still expected, never below zero.
func (b *Barrier) Remaining() int {
	if n := b.remaining.Load(); n > 0 {
		return int(n)
	}
	return 0
}
