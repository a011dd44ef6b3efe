// Package debounce delays a value until it stops changing.
package debounce

import (
	"sync"
	"time"
)

// DefaultDelay is used when a non-positive delay is given.
const DefaultDelay = 500 * time.Millisecond

// Value holds the latest value passed to Set and publishes it once Delay
// elapses without another Set.
type Value[T any] struct {
	delay    time.Duration
	onSettle func(T)

	mu         sync.Mutex
	timer      *time.Timer
	gen        uint64
	pending    T
	hasPending bool
	settled    T
	hasSettled bool
	stopped    bool
}

// New creates a debounced value. onSettle may be nil.
func New[T any](delay time.Duration, onSettle func(T)) *Value[T] {
	if delay <= 0 {
		delay = DefaultDelay
	}
	return &Value[T]{delay: delay, onSettle: onSettle}
}

// Delay returns the settle delay.
func (v *Value[T]) Delay() time.Duration {
	return v.delay
}

// Set records a new value and restarts the settle timer.
func (v *Value[T]) Set(val T) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.stopped {
		return
	}

	v.gen++
	v.pending = val
	v.hasPending = true
	if v.timer != nil {
		v.timer.Stop()
	}
	gen := v.gen
	v.timer = time.AfterFunc(v.delay, func() { v.fire(gen) })
}

// Settled returns the last value that survived a full delay.
func (v *Value[T]) Settled() (T, bool) {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.settled, v.hasSettled
}

// Pending reports whether a value is waiting to settle.
func (v *Value[T]) Pending() bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.hasPending
}

// Flush settles the pending value immediately. It returns false when nothing
// was pending.
func (v *Value[T]) Flush() bool {
	v.mu.Lock()
	if v.timer != nil {
		v.timer.Stop()
		v.timer = nil
	}
	val, ok := v.settleLocked()
	v.mu.Unlock()

	if ok && v.onSettle != nil {
		v.onSettle(val)
	}
	return ok
}

// Stop cancels any pending value. Later calls to Set are ignored.
func (v *Value[T]) Stop() {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.stopped = true
	v.gen++
	v.hasPending = false
	if v.timer != nil {
		v.timer.Stop()
		v.timer = nil
	}
}

func (v *Value[T]) fire(gen uint64) {
	v.mu.Lock()
	if gen != v.gen {
		v.mu.Unlock()
		return
	}
	v.timer = nil
	val, ok := v.settleLocked()
	v.mu.Unlock()

	if ok && v.onSettle != nil {
		v.onSettle(val)
	}
}

func (v *Value[T]) settleLocked() (T, bool) {
	if !v.hasPending {
		var zero T
		return zero, false
	}
	v.gen++
	v.settled = v.pending
	v.hasSettled = true
	v.hasPending = false
	var zero T
	v.pending = zero
	return v.settled, true
}
