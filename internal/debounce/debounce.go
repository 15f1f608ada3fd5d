// Package debounce delays a callback until input has been quiet for a while.
package debounce

import (
	"sync"
	"time"
)

// DefaultDelay is the quiet period used for free-text filter fields.
const DefaultDelay = 350 * time.Millisecond

// Debouncer calls fn with the latest triggered value once no new value has
// arrived for the configured delay. One Debouncer serves one field.
type Debouncer[T any] struct {
	delay time.Duration
	fn    func(T)

	mu      sync.Mutex
	timer   *time.Timer
	pending T
	armed   bool
	seq     uint64
	stopped bool
}

// New creates a Debouncer. A non-positive delay uses DefaultDelay.
func New[T any](delay time.Duration, fn func(T)) *Debouncer[T] {
	if delay <= 0 {
		delay = DefaultDelay
	}
	return &Debouncer[T]{delay: delay, fn: fn}
}

// Trigger records v and restarts the quiet period.
func (d *Debouncer[T]) Trigger(v T) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.stopped {
		return
	}
	if d.timer != nil {
		d.timer.Stop()
	}
	d.pending = v
	d.armed = true
	d.seq++
	seq := d.seq
	d.timer = time.AfterFunc(d.delay, func() { d.fire(seq) })
}

func (d *Debouncer[T]) fire(seq uint64) {
	d.mu.Lock()
	if d.stopped || !d.armed || seq != d.seq {
		d.mu.Unlock()
		return
	}
	v := d.pending
	d.armed = false
	d.timer = nil
	d.mu.Unlock()
	d.fn(v)
}

// Flush runs the pending call now, if any. It reports whether fn ran.
func (d *Debouncer[T]) Flush() bool {
	d.mu.Lock()
	if d.stopped || !d.armed {
		d.mu.Unlock()
		return false
	}
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
	v := d.pending
	d.armed = false
	d.seq++
	d.mu.Unlock()
	d.fn(v)
	return true
}

// Pending reports whether a call is waiting for the quiet period.
func (d *Debouncer[T]) Pending() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.armed
}

// Cancel drops the pending call without stopping the Debouncer.
func (d *Debouncer[T]) Cancel() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
	d.armed = false
	d.seq++
}

// Stop cancels any pending call and ignores later triggers.
func (d *Debouncer[T]) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
	d.armed = false
	d.stopped = true
}
