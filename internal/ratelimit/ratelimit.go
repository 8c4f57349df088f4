// Package ratelimit provides a sliding-window limiter for upstream APIs that
// enforce call budgets over a rolling interval.
package ratelimit

import (
	"context"
	"sync"
	"time"
)

// SlidingWindow admits at most limit calls per window. Acquire blocks until a
// slot frees up, waking slightly after the oldest stamp leaves the window so a
// clock that rounds down cannot admit a call early.
type SlidingWindow struct {
	mu     sync.Mutex
	limit  int
	window time.Duration
	margin time.Duration
	stamps []time.Time

	// injectable for tests
	now   func() time.Time
	sleep func(ctx context.Context, d time.Duration) error
}

// NewSlidingWindow builds a limiter admitting limit calls per window. A small
// safety margin is added to every wait.
func NewSlidingWindow(limit int, window time.Duration) *SlidingWindow {
	return &SlidingWindow{
		limit:  limit,
		window: window,
		margin: 100 * time.Millisecond,
		now:    time.Now,
		sleep:  sleepCtx,
	}
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// Acquire blocks until a call slot is available or ctx is cancelled. On
// success the slot is consumed immediately.
func (s *SlidingWindow) Acquire(ctx context.Context) error {
	for {
		s.mu.Lock()
		now := s.now()
		s.evict(now)

		if len(s.stamps) < s.limit {
			s.stamps = append(s.stamps, now)
			s.mu.Unlock()
			return nil
		}

		// Window is full. The oldest stamp bounds the wait.
		wait := s.stamps[0].Add(s.window).Sub(now) + s.margin
		s.mu.Unlock()

		if err := s.sleep(ctx, wait); err != nil {
			return err
		}
	}
}

// Pending reports how many slots are currently consumed.
func (s *SlidingWindow) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.evict(s.now())
	return len(s.stamps)
}

func (s *SlidingWindow) evict(now time.Time) {
	cutoff := now.Add(-s.window)
	i := 0
	for i < len(s.stamps) && !s.stamps[i].After(cutoff) {
		i++
	}
	if i > 0 {
		s.stamps = append(s.stamps[:0], s.stamps[i:]...)
	}
}
