package loader

// gate.go keeps background refreshes from overlapping.
//
// The gate is a one-slot semaphore. Background ticks use TryAcquire and are
// dropped, not queued, when a refresh is already running. Shutdown uses
// WaitForDrain to let an in-flight refresh finish.

import (
	"context"
	"sync"
	"time"
)

// drainPollInterval is how often WaitForDrain re-checks the gate.
const drainPollInterval = 50 * time.Millisecond

type refreshGate struct {
	slot chan struct{}

	mu     sync.RWMutex
	active int
}

func newRefreshGate() *refreshGate {
	return &refreshGate{slot: make(chan struct{}, 1)}
}

// TryAcquire takes the slot without blocking and reports whether it did.
func (g *refreshGate) TryAcquire() bool {
	select {
	case g.slot <- struct{}{}:
		g.mu.Lock()
		g.active++
		g.mu.Unlock()
		return true
	default:
		return false
	}
}

// Release frees a slot taken by TryAcquire. Call exactly once per success.
func (g *refreshGate) Release() {
	g.mu.Lock()
	g.active--
	g.mu.Unlock()
	<-g.slot
}

// Active reports whether a refresh holds the slot.
func (g *refreshGate) Active() bool {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.active > 0
}

// WaitForDrain blocks until the slot is free or ctx is done.
func (g *refreshGate) WaitForDrain(ctx context.Context) error {
	if !g.Active() {
		return nil
	}

	ticker := time.NewTicker(drainPollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if !g.Active() {
				return nil
			}
		}
	}
}
