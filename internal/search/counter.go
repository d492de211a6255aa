package search

import "sync/atomic"

// DefaultCounterSeed is the value the search counter starts from.
const DefaultCounterSeed = 3000

// Counter counts searches served since process start. It is process-local
// and resets on restart.
type Counter struct {
	n atomic.Int64
}

// NewCounter creates a counter starting at seed.
func NewCounter(seed int64) *Counter {
	c := &Counter{}
	c.n.Store(seed)
	return c
}

// Increment adds one and returns the new value.
func (c *Counter) Increment() int64 {
	return c.n.Add(1)
}

// Value returns the current count.
func (c *Counter) Value() int64 {
	return c.n.Load()
}
