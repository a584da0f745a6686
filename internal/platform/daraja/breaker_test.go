package daraja

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func newTestBreaker(now *time.Time) *CircuitBreaker {
	b := NewCircuitBreaker(5, 60*time.Second)
	b.now = func() time.Time { return *now }
	return b
}

func TestCircuitBreaker_OpensAfterMaxFailures(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	b := newTestBreaker(&now)

	for i := 0; i < 4; i++ {
		b.RecordFailure()
		require.True(t, b.Allow(), "breaker must stay closed below the threshold")
	}
	b.RecordFailure()

	require.False(t, b.Allow())
	st := b.Status()
	require.Equal(t, BreakerStateOpen, st.State)
	require.Equal(t, 5, st.Failures)
	require.Equal(t, now.Add(60*time.Second), st.NextAttemptTime)
}

func TestCircuitBreaker_HalfOpenSingleProbe(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	b := newTestBreaker(&now)

	for i := 0; i < 5; i++ {
		b.RecordFailure()
	}
	require.False(t, b.Allow())

	now = now.Add(61 * time.Second)
	require.True(t, b.Allow(), "cooldown elapsed, probe allowed")
	require.Equal(t, BreakerStateHalfOpen, b.Status().State)
	require.False(t, b.Allow(), "only one probe may be in flight")
}

func TestCircuitBreaker_ProbeSuccessCloses(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	b := newTestBreaker(&now)

	for i := 0; i < 5; i++ {
		b.RecordFailure()
	}
	now = now.Add(61 * time.Second)
	require.True(t, b.Allow())

	b.RecordSuccess()
	st := b.Status()
	require.Equal(t, BreakerStateClosed, st.State)
	require.Equal(t, 0, st.Failures)
	require.True(t, b.Allow())
}

func TestCircuitBreaker_ProbeFailureReopens(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	b := newTestBreaker(&now)

	for i := 0; i < 5; i++ {
		b.RecordFailure()
	}
	now = now.Add(61 * time.Second)
	require.True(t, b.Allow())

	b.RecordFailure()
	st := b.Status()
	require.Equal(t, BreakerStateOpen, st.State)
	require.Equal(t, 6, st.Failures)
	require.Equal(t, now.Add(60*time.Second), st.NextAttemptTime)
	require.False(t, b.Allow())
}

func TestCircuitBreaker_SuccessWhileClosedKeepsCounter(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	b := newTestBreaker(&now)

	b.RecordFailure()
	b.RecordFailure()
	b.RecordSuccess()

	// the counter only resets on a successful HALF_OPEN probe
	require.Equal(t, 2, b.Status().Failures)
	require.Equal(t, BreakerStateClosed, b.Status().State)
}

func TestCircuitBreaker_StatusIsSideEffectFree(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	b := newTestBreaker(&now)

	for i := 0; i < 5; i++ {
		b.RecordFailure()
	}
	now = now.Add(61 * time.Second)

	before := b.Status()
	require.Equal(t, BreakerStateOpen, before.State)
	// Status must not perform the OPEN -> HALF_OPEN transition
	require.Equal(t, BreakerStateOpen, b.Status().State)
	require.True(t, b.Allow())
	require.Equal(t, BreakerStateHalfOpen, b.Status().State)
}
