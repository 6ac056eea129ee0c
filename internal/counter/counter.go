// Package counter provides a lock-free uint32 counter for in-flight and
// event tallies that multiple goroutines touch concurrently.
package counter

import "sync/atomic"

// Counter is a concurrency-safe uint32 counter. The zero value starts at 0.
type Counter struct {
	n atomic.Uint32
}

// Inc increments the counter and returns the new value.
func (c *Counter) Inc() uint32 { return c.n.Add(1) }

// Dec decrements the counter.
func (c *Counter) Dec() { c.n.Add(^uint32(0)) }

// Load returns the current value.
func (c *Counter) Load() uint32 { return c.n.Load() }

// Store sets the counter to n, discarding whatever it held before.
func (c *Counter) Store(n uint32) { c.n.Store(n) }
