package adapter

import (
	"sync"
	"time"
)

// breakerState is the circuit breaker's own state machine. Deliberately
// simple relative to a full production breaker (see DESIGN.md): it tracks
// a single failure count within a rolling window rather than bucketed
// sliding-window error rates, matching spec §4.5's exact count-based
// contract (5 failures/60s -> open; 60s cooldown; one half-open probe).
type breakerState int

const (
	breakerClosed breakerState = iota
	breakerOpen
	breakerHalfOpen
)

// breaker is a per-adapter circuit breaker. Process-wide and shared
// across concurrent runs for one adapter, guarded by mu (spec §5:
// "per adapter, process-wide... updates are brief").
type breaker struct {
	mu sync.Mutex

	threshold int
	window    time.Duration
	cooldown  time.Duration

	state        breakerState
	failures     []time.Time // timestamps within the current window
	openedAt     time.Time
	probeInFlight bool
}

func newBreaker(p Policy) *breaker {
	return &breaker{
		threshold: p.BreakerThreshold,
		window:    p.BreakerWindow,
		cooldown:  p.BreakerCooldown,
		state:     breakerClosed,
	}
}

// allow reports whether a call may proceed, and if a half-open probe is
// being granted, marks it in flight so only one concurrent probe runs.
func (b *breaker) allow(now time.Time) (ok bool, isProbe bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.state {
	case breakerClosed:
		return true, false
	case breakerOpen:
		if now.Sub(b.openedAt) < b.cooldown {
			return false, false
		}
		b.state = breakerHalfOpen
		b.probeInFlight = true
		return true, true
	case breakerHalfOpen:
		if b.probeInFlight {
			return false, false
		}
		b.probeInFlight = true
		return true, true
	default:
		return true, false
	}
}

func (b *breaker) recordSuccess(now time.Time) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.failures = nil
	b.state = breakerClosed
	b.probeInFlight = false
}

func (b *breaker) recordFailure(now time.Time) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.state == breakerHalfOpen {
		b.state = breakerOpen
		b.openedAt = now
		b.probeInFlight = false
		b.failures = nil
		return
	}

	b.failures = append(b.failures, now)
	cutoff := now.Add(-b.window)
	kept := b.failures[:0]
	for _, t := range b.failures {
		if t.After(cutoff) {
			kept = append(kept, t)
		}
	}
	b.failures = kept

	if len(b.failures) >= b.threshold {
		b.state = breakerOpen
		b.openedAt = now
		b.failures = nil
	}
}
