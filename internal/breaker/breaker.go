// Package breaker implements the circuit breaker that gates materialization
// attempts: after failure_threshold consecutive failures, the breaker opens
// for recovery_timeout, refusing further attempts without even calling the
// materializer.
package breaker

import (
	"sync"
	"sync/atomic"
	"time"
)

// Breaker is a simple failure-count-and-recovery-window circuit breaker.
// Safe for concurrent use.
type Breaker struct {
	failureThreshold int
	recoveryTimeout  time.Duration

	mu            sync.Mutex
	failures      int
	lastFailureAt time.Time
	hasFailure    bool

	trips atomic.Uint64
}

// New constructs a Breaker with the given thresholds.
func New(failureThreshold int, recoveryTimeout time.Duration) *Breaker {
	return &Breaker{
		failureThreshold: failureThreshold,
		recoveryTimeout:  recoveryTimeout,
	}
}

// IsOpen reports whether the breaker is currently suppressing attempts.
func (b *Breaker) IsOpen() bool {
	return b.isOpenAt(time.Now())
}

func (b *Breaker) isOpenAt(now time.Time) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	if !b.hasFailure || b.failures < b.failureThreshold {
		return false
	}
	return now.Sub(b.lastFailureAt) < b.recoveryTimeout
}

// RecordSuccess resets the breaker to closed.
func (b *Breaker) RecordSuccess() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.failures = 0
	b.hasFailure = false
}

// RecordFailure increments the failure count and stamps the current time.
func (b *Breaker) RecordFailure() {
	b.recordFailureAt(time.Now())
}

func (b *Breaker) recordFailureAt(now time.Time) {
	b.mu.Lock()
	defer b.mu.Unlock()
	wasOpen := b.hasFailure && b.failures >= b.failureThreshold && now.Sub(b.lastFailureAt) < b.recoveryTimeout
	b.failures++
	b.lastFailureAt = now
	b.hasFailure = true
	if !wasOpen && b.failures >= b.failureThreshold {
		b.trips.Add(1)
	}
}

// Failures reports the current consecutive-failure count, for
// observability.
func (b *Breaker) Failures() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.failures
}

// Trips reports the number of times the breaker has transitioned into the
// open state over its lifetime.
func (b *Breaker) Trips() uint64 {
	return b.trips.Load()
}
