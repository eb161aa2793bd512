package loadtest

import (
	"context"
	"sync"
	"time"
)

// Pacer spaces request starts at a fixed rate using a leaky-bucket
// schedule: each caller reserves the next drip time and sleeps until it.
// When callers fall behind schedule they start immediately, with no burst
// to catch up.
//
// A nil *Pacer never waits.
type Pacer struct {
	mu       sync.Mutex
	interval time.Duration
	nextDrip time.Time
	now      func() time.Time
}

// NewPacer returns a pacer for rate starts per second, or nil when rate is
// not positive.
func NewPacer(rate float64) *Pacer {
	if rate <= 0 {
		return nil
	}
	return &Pacer{
		interval: time.Duration(float64(time.Second) / rate),
		now:      time.Now,
	}
}

// Reserve returns the time at which the caller may start.
func (p *Pacer) Reserve() time.Time {
	p.mu.Lock()
	defer p.mu.Unlock()

	now := p.now()
	at := p.nextDrip
	if at.Before(now) {
		at = now
	}
	p.nextDrip = at.Add(p.interval)
	return at
}

// Wait blocks until the caller's reserved start time or until ctx is done.
func (p *Pacer) Wait(ctx context.Context) error {
	if p == nil {
		return nil
	}

	wait := time.Until(p.Reserve())
	if wait <= 0 {
		return nil
	}

	timer := time.NewTimer(wait)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// Interval returns the spacing between starts.
func (p *Pacer) Interval() time.Duration {
	if p == nil {
		return 0
	}
	return p.interval
}
