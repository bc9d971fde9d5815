package henrik

import (
	"context"
	"sync"
	"time"
)

// RateGate serializes outbound calls and holds the lock for a fixed pause
// after each one. A nil gate lets calls through untouched.
type RateGate struct {
	mu    sync.Mutex
	pause time.Duration
}

// NewRateGate creates a gate that pauses for d after every call.
func NewRateGate(d time.Duration) *RateGate {
	return &RateGate{pause: d}
}

// Do runs fn under the gate. The pause is cut short if ctx is canceled,
// but fn's own error wins over the context error.
func (g *RateGate) Do(ctx context.Context, fn func() error) error {
	if g == nil {
		return fn()
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return err
	}
	err := fn()
	gateCalls.Inc()

	if g.pause > 0 {
		t := time.NewTimer(g.pause)
		defer t.Stop()
		select {
		case <-t.C:
		case <-ctx.Done():
			if err == nil {
				err = ctx.Err()
			}
		}
	}
	return err
}
