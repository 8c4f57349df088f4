package ratelimit

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// virtualLimiter wires a limiter to a manually advanced clock so tests are
// deterministic and instant.
func virtualLimiter(limit int, window time.Duration) (*SlidingWindow, *time.Time) {
	now := time.Unix(1000, 0)
	sw := NewSlidingWindow(limit, window)
	sw.now = func() time.Time { return now }
	sw.sleep = func(ctx context.Context, d time.Duration) error {
		now = now.Add(d)
		return nil
	}
	return sw, &now
}

func TestAcquireAdmitsUpToLimitWithoutWaiting(t *testing.T) {
	sw, clock := virtualLimiter(20, 10*time.Second)
	start := *clock

	for i := 0; i < 20; i++ {
		require.NoError(t, sw.Acquire(context.Background()))
	}

	require.Equal(t, start, *clock, "no sleep expected under the limit")
	require.Equal(t, 20, sw.Pending())
}

func TestAcquireBlocksUntilOldestStampExpires(t *testing.T) {
	sw, clock := virtualLimiter(20, 10*time.Second)
	start := *clock

	for i := 0; i < 21; i++ {
		require.NoError(t, sw.Acquire(context.Background()))
	}

	// The 21st call had to wait out the full window plus the margin.
	waited := clock.Sub(start)
	require.GreaterOrEqual(t, waited, 10*time.Second)
	require.Less(t, waited, 11*time.Second)
}

func TestWindowBoundHoldsUnderBurst(t *testing.T) {
	const (
		limit  = 20
		window = 10 * time.Second
		calls  = 5 * limit
	)
	sw, clock := virtualLimiter(limit, window)

	var admissions []time.Time
	for i := 0; i < calls; i++ {
		require.NoError(t, sw.Acquire(context.Background()))
		admissions = append(admissions, *clock)
	}

	// No window of length `window` may hold more than `limit` admissions.
	for i := range admissions {
		count := 0
		for j := i; j < len(admissions); j++ {
			if admissions[j].Sub(admissions[i]) < window {
				count++
			}
		}
		require.LessOrEqual(t, count, limit, "window starting at admission %d over budget", i)
	}
}

func TestAcquireHonorsContextCancellation(t *testing.T) {
	sw := NewSlidingWindow(1, time.Hour)
	require.NoError(t, sw.Acquire(context.Background()))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	require.ErrorIs(t, sw.Acquire(ctx), context.Canceled)
}
