package daraja

import (
	"context"
	"errors"
	"fmt"
	"math"
	"math/rand"
	"time"

	"github.com/cenkalti/backoff/v4"
)

const (
	DefaultRetryMaxAttempts = 3
	DefaultRetryBaseDelay   = time.Second
)

// RetryPolicy is a bounded-retry executor for transient network calls.
// Attempt i (1-indexed) that fails waits baseDelay * 2^(i-1) * jitter before
// the next one, jitter drawn uniformly from [0.5, 1.0). It knows nothing
// about the circuit breaker; the client composes them (the breaker gates
// whether to try at all, retry governs persistence within one permitted
// attempt).
type RetryPolicy struct {
	maxAttempts int
	baseDelay   time.Duration
}

func NewRetryPolicy(maxAttempts int, baseDelay time.Duration) *RetryPolicy {
	if maxAttempts <= 0 {
		maxAttempts = DefaultRetryMaxAttempts
	}
	if baseDelay <= 0 {
		baseDelay = DefaultRetryBaseDelay
	}
	return &RetryPolicy{
		maxAttempts: maxAttempts,
		baseDelay:   baseDelay,
	}
}

// jitterBackoff implements backoff.BackOff with the exact schedule above;
// backoff/v4's built-in randomization window is symmetric around the
// interval and cannot express [0.5, 1.0).
type jitterBackoff struct {
	base    time.Duration
	attempt int
	rand    *rand.Rand
}

func (j *jitterBackoff) NextBackOff() time.Duration {
	d := float64(j.base) * math.Pow(2, float64(j.attempt))
	j.attempt++
	jitter := 0.5 + j.rand.Float64()*0.5
	return time.Duration(d * jitter)
}

func (j *jitterBackoff) Reset() { j.attempt = 0 }

// Permanent marks err as non-retryable; Execute returns it as-is without
// consuming further attempts.
func Permanent(err error) error {
	return backoff.Permanent(err)
}

// Execute runs op under the policy, returning the first successful value or
// an ErrRetryExhausted-wrapped error once attempts run out. Permanent errors
// and context cancellation pass through unwrapped.
func Execute[T any](ctx context.Context, p *RetryPolicy, op func() (T, error)) (T, error) {
	var out T
	var attempts int
	var permanent bool

	// The policy itself is shared across goroutines; each call gets its own
	// jitter source so concurrent retries never contend on one rand.Rand.
	b := backoff.WithContext(
		backoff.WithMaxRetries(&jitterBackoff{
			base: p.baseDelay,
			rand: rand.New(rand.NewSource(time.Now().UnixNano())),
		}, uint64(p.maxAttempts-1)),
		ctx,
	)

	err := backoff.Retry(func() error {
		attempts++
		v, err := op()
		if err != nil {
			var pe *backoff.PermanentError
			permanent = errors.As(err, &pe)
			return err
		}
		out = v
		return nil
	}, b)
	if err == nil {
		return out, nil
	}
	if !permanent && ctx.Err() == nil && attempts >= p.maxAttempts {
		return out, fmt.Errorf("%w after %d attempts: %v", ErrRetryExhausted, p.maxAttempts, err)
	}
	return out, err
}
