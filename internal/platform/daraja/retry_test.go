package daraja

import (
	"context"
	"errors"
	"math/rand"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func fastPolicy(maxAttempts int) *RetryPolicy {
	return NewRetryPolicy(maxAttempts, time.Millisecond)
}

func TestExecute_SucceedsOnThirdAttempt(t *testing.T) {
	calls := 0
	got, err := Execute(context.Background(), fastPolicy(3), func() (string, error) {
		calls++
		if calls < 3 {
			return "", errors.New("transient")
		}
		return "ok", nil
	})
	require.NoError(t, err)
	require.Equal(t, "ok", got)
	require.Equal(t, 3, calls)
}

func TestExecute_ExhaustsAttempts(t *testing.T) {
	calls := 0
	_, err := Execute(context.Background(), fastPolicy(3), func() (int, error) {
		calls++
		return 0, errors.New("still down")
	})
	require.Error(t, err)
	require.True(t, errors.Is(err, ErrRetryExhausted))
	require.Equal(t, 3, calls)
}

func TestExecute_PermanentErrorShortCircuits(t *testing.T) {
	calls := 0
	_, err := Execute(context.Background(), fastPolicy(3), func() (int, error) {
		calls++
		return 0, Permanent(ErrGatewayRejected)
	})
	require.Error(t, err)
	require.True(t, errors.Is(err, ErrGatewayRejected))
	require.False(t, errors.Is(err, ErrRetryExhausted))
	require.Equal(t, 1, calls)
}

func TestExecute_ContextCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	calls := 0
	_, err := Execute(ctx, NewRetryPolicy(3, 50*time.Millisecond), func() (int, error) {
		calls++
		return 0, errors.New("transient")
	})
	require.Error(t, err)
	require.False(t, errors.Is(err, ErrRetryExhausted))
	require.Equal(t, 1, calls)
}

func TestExecute_ConcurrentCallsShareOnePolicy(t *testing.T) {
	p := NewRetryPolicy(3, time.Microsecond)

	var wg sync.WaitGroup
	errs := make(chan error, 8)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := Execute(context.Background(), p, func() (int, error) {
				return 0, errors.New("still down")
			})
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		require.True(t, errors.Is(err, ErrRetryExhausted))
	}
}

func TestJitterBackoff_Schedule(t *testing.T) {
	b := &jitterBackoff{base: time.Second, rand: rand.New(rand.NewSource(42))}

	for attempt := 0; attempt < 4; attempt++ {
		expected := time.Duration(float64(time.Second) * float64(int(1)<<attempt))
		d := b.NextBackOff()
		require.GreaterOrEqual(t, d, expected/2, "attempt %d", attempt)
		require.Less(t, d, expected, "attempt %d", attempt)
	}

	b.Reset()
	d := b.NextBackOff()
	require.GreaterOrEqual(t, d, 500*time.Millisecond)
	require.Less(t, d, time.Second)
}
