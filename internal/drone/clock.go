package drone

import (
	"context"
	"sync"
	"time"
)

// Clock simulates the passage of whole time units.
type Clock interface {
	// Sleep waits for units time units. It returns early with ctx's error.
	Sleep(ctx context.Context, units int) error
}

// ScaledClock maps one time unit to Unit of wall time.
type ScaledClock struct {
	Unit time.Duration
}

// Sleep implements Clock using a timer.
func (c ScaledClock) Sleep(ctx context.Context, units int) error {
	if units <= 0 || c.Unit <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(time.Duration(units) * c.Unit)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// RecordingClock returns immediately and remembers every requested delay.
// It is used by tests and by dry runs.
type RecordingClock struct {
	mu     sync.Mutex
	delays []int
}

// Sleep implements Clock.
func (c *RecordingClock) Sleep(ctx context.Context, units int) error {
	c.mu.Lock()
	c.delays = append(c.delays, units)
	c.mu.Unlock()
	return ctx.Err()
}

// Delays returns the recorded delays in call order.
func (c *RecordingClock) Delays() []int {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]int, len(c.delays))
	copy(out, c.delays)
	return out
}

// Total returns the sum of recorded delays.
func (c *RecordingClock) Total() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := 0
	for _, d := range c.delays {
		n += d
	}
	return n
}
