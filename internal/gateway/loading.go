package gateway

import "sync/atomic"

// Loading counts in-flight requests for a global busy indicator.
// The count never goes below zero.
type Loading struct {
	n atomic.Int64
}

// Start records a request start.
func (l *Loading) Start() {
	l.n.Add(1)
}

// Stop records a request end.
func (l *Loading) Stop() {
	for {
		cur := l.n.Load()
		if cur <= 0 {
			return
		}
		if l.n.CompareAndSwap(cur, cur-1) {
			return
		}
	}
}

// Count returns the number of requests in flight.
func (l *Loading) Count() int {
	return int(l.n.Load())
}

// IsLoading reports whether any request is in flight.
func (l *Loading) IsLoading() bool {
	return l.n.Load() > 0
}
