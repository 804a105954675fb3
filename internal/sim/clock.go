package sim

import "sync/atomic"

// Clock counts ticks. Ticks are the only notion of time inside an Env.
//
// Clock is safe for concurrent reads so observers (metrics, logs) can sample
// it while the Env is driven elsewhere.
type Clock struct {
	ticks atomic.Int64
}

// NewClock creates a clock at tick 0.
func NewClock() *Clock {
	return &Clock{}
}

// Next advances the clock and returns the new tick.
func (c *Clock) Next() int64 {
	return c.ticks.Add(1)
}

// Current returns the current tick without advancing.
func (c *Clock) Current() int64 {
	return c.ticks.Load()
}
