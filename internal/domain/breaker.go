package domain

import (
	"sync"
	"time"
)

// Breaker tracks whether the upstream provider may be called.
//
// Closed: calls go through. Open: calls are skipped until cooldown has
// elapsed since the provider became unhealthy. HalfOpen: the cooldown
// elapsed and exactly one trial call is admitted; its success closes the
// breaker, its failure re-opens it with a fresh cooldown.
type Breaker struct {
	mu sync.Mutex

	cooldown  time.Duration
	threshold int
	now       Clock

	healthy        bool
	unhealthySince time.Time
	failures       int
	trialInFlight  bool
}

// NewBreaker creates a closed breaker. threshold is the number of consecutive
// failures that opens it; values below one are treated as one.
func NewBreaker(cooldown time.Duration, threshold int, now Clock) *Breaker {
	if threshold < 1 {
		threshold = 1
	}
	if now == nil {
		now = time.Now
	}

	return &Breaker{
		mu:        sync.Mutex{},
		cooldown:  cooldown,
		threshold: threshold,
		now:       now,
		healthy:   true,
	}
}

// Allow reports whether a network attempt may be made. In the half-open
// state only one caller is admitted and receives trial=true; that caller must
// settle the trial with RecordSuccess, RecordFailure or Abandon.
func (b *Breaker) Allow() (allowed bool, trial bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.stateLocked() {
	case BreakerClosed:
		return true, false
	case BreakerHalfOpen:
		if b.trialInFlight {
			return false, false
		}
		b.trialInFlight = true
		return true, true
	default:
		return false, false
	}
}

// IsOpen reports whether callers should skip the provider right now.
// It has no side effects.
func (b *Breaker) IsOpen() bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.stateLocked() {
	case BreakerClosed:
		return false
	case BreakerHalfOpen:
		return b.trialInFlight
	default:
		return true
	}
}

// RecordSuccess marks the provider healthy. It returns true if this closed
// a previously unhealthy breaker.
func (b *Breaker) RecordSuccess() bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	wasUnhealthy := !b.healthy
	b.healthy = true
	b.unhealthySince = time.Time{}
	b.failures = 0
	b.trialInFlight = false

	return wasUnhealthy
}

// RecordFailure counts a provider failure. Cancellations and local
// throttling are ignored.
// It returns true if this call opened (or re-opened) the breaker.
func (b *Breaker) RecordFailure(kind FailureKind) bool {
	if !kind.Counts() {
		return false
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if !b.healthy {
		// Any failure while unhealthy, the trial included, restarts the window.
		b.unhealthySince = b.now()
		b.trialInFlight = false
		return true
	}

	b.failures++
	if b.failures < b.threshold {
		return false
	}

	b.healthy = false
	b.unhealthySince = b.now()
	b.trialInFlight = false
	return true
}

// Abandon releases a trial permit whose call ended without a verdict.
// Health and the cooldown window are left untouched.
func (b *Breaker) Abandon() {
	b.mu.Lock()
	b.trialInFlight = false
	b.mu.Unlock()
}

// Reset forces the breaker closed, e.g. for a user-triggered retry.
func (b *Breaker) Reset() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.healthy = true
	b.unhealthySince = time.Time{}
	b.failures = 0
	b.trialInFlight = false
}

// State returns the current breaker state.
func (b *Breaker) State() BreakerState {
	b.mu.Lock()
	defer b.mu.Unlock()

	return b.stateLocked()
}

// Snapshot returns a copy of the breaker state.
func (b *Breaker) Snapshot() BreakerSnapshot {
	b.mu.Lock()
	defer b.mu.Unlock()

	return BreakerSnapshot{
		State:          b.stateLocked(),
		Healthy:        b.healthy,
		UnhealthySince: b.unhealthySince,
	}
}

func (b *Breaker) stateLocked() BreakerState {
	if b.healthy {
		return BreakerClosed
	}
	if b.now().Sub(b.unhealthySince) >= b.cooldown {
		return BreakerHalfOpen
	}
	return BreakerOpen
}
