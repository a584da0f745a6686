package daraja

import (
	"sync"
	"time"
)

type BreakerState string

const (
	BreakerStateClosed   BreakerState = "CLOSED"
	BreakerStateOpen     BreakerState = "OPEN"
	BreakerStateHalfOpen BreakerState = "HALF_OPEN"
)

const (
	DefaultBreakerMaxFailures  = 5
	DefaultBreakerResetTimeout = 60 * time.Second
)

// CircuitBreaker gates outbound gateway calls. One instance is shared by all
// concurrent initiation attempts in the process; it is never persisted, so a
// restarted process starts optimistic.
//
// The failure counter only resets on a successful HALF_OPEN probe. A success
// while CLOSED deliberately leaves the counter alone so that isolated soft
// errors cannot erase a developing failure trend.
type CircuitBreaker struct {
	mu sync.Mutex

	maxFailures  int
	resetTimeout time.Duration
	now          func() time.Time

	state           BreakerState
	failures        int
	lastFailureTime time.Time
	nextAttemptTime time.Time
}

// BreakerSnapshot is a side-effect-free view of the breaker.
type BreakerSnapshot struct {
	State           BreakerState `json:"state"`
	Failures        int          `json:"failures"`
	LastFailureTime time.Time    `json:"last_failure_time"`
	NextAttemptTime time.Time    `json:"next_attempt_time"`
}

func NewCircuitBreaker(maxFailures int, resetTimeout time.Duration) *CircuitBreaker {
	if maxFailures <= 0 {
		maxFailures = DefaultBreakerMaxFailures
	}
	if resetTimeout <= 0 {
		resetTimeout = DefaultBreakerResetTimeout
	}
	return &CircuitBreaker{
		maxFailures:  maxFailures,
		resetTimeout: resetTimeout,
		now:          time.Now,
		state:        BreakerStateClosed,
	}
}

// Allow reports whether a new gateway call may proceed. When the breaker is
// OPEN and the cooldown has elapsed it self-transitions to HALF_OPEN and the
// call is let through as the single probe; further calls are rejected until
// the probe outcome is recorded.
func (b *CircuitBreaker) Allow() bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.state {
	case BreakerStateClosed:
		return true
	case BreakerStateOpen:
		if b.now().Before(b.nextAttemptTime) {
			return false
		}
		b.state = BreakerStateHalfOpen
		return true
	case BreakerStateHalfOpen:
		// probe already in flight
		return false
	}
	return false
}

func (b *CircuitBreaker) RecordSuccess() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.state == BreakerStateHalfOpen {
		b.state = BreakerStateClosed
		b.failures = 0
	}
	// success while CLOSED: counter untouched, see type comment
}

func (b *CircuitBreaker) RecordFailure() {
	b.mu.Lock()
	defer b.mu.Unlock()

	now := b.now()
	b.failures++
	b.lastFailureTime = now

	if b.state == BreakerStateHalfOpen || b.failures >= b.maxFailures {
		b.state = BreakerStateOpen
		b.nextAttemptTime = now.Add(b.resetTimeout)
	}
}

func (b *CircuitBreaker) Status() BreakerSnapshot {
	b.mu.Lock()
	defer b.mu.Unlock()

	return BreakerSnapshot{
		State:           b.state,
		Failures:        b.failures,
		LastFailureTime: b.lastFailureTime,
		NextAttemptTime: b.nextAttemptTime,
	}
}
