// Package clock drives the render-loop tick that advances every animation
// layer.
package clock

import (
	"context"
	"time"
)

// TickFunc receives the clamped frame delta in seconds.
type TickFunc func(dt float32)

// FrameClock computes per-frame delta time and feeds it to a tick function.
// Deltas are clamped so a stalled frame (dropped frame, backgrounded window)
// cannot produce a catch-up jump through every animation curve.
type FrameClock struct {
	maxDelta float32
	tick     TickFunc
	last     time.Time
}

// NewFrameClock creates a clock with the given dt clamp in seconds.
func NewFrameClock(maxDelta float32, tick TickFunc) *FrameClock {
	return &FrameClock{maxDelta: maxDelta, tick: tick}
}

// Step advances one frame using wall-clock time since the previous Step.
func (c *FrameClock) Step(now time.Time) {
	if c.last.IsZero() {
		c.last = now
		return
	}
	dt := float32(now.Sub(c.last).Seconds())
	c.last = now

	if dt <= 0 {
		return
	}
	if dt > c.maxDelta {
		dt = c.maxDelta
	}
	c.tick(dt)
}

// Run steps the clock at the given interval until the context is done.
func (c *FrameClock) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			c.Step(now)
		}
	}
}
