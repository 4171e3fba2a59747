package scheduler

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHourlyTriggerNext(t *testing.T) {
	t.Parallel()

	trigger := HourlyTrigger{Minute: 5}
	base := time.Date(2026, 2, 10, 10, 4, 0, 0, time.UTC)

	assert.Equal(t, time.Date(2026, 2, 10, 10, 5, 0, 0, time.UTC), trigger.Next(base))

	// Exactly on the fire minute rolls to the next hour.
	onMinute := time.Date(2026, 2, 10, 10, 5, 0, 0, time.UTC)
	assert.Equal(t, time.Date(2026, 2, 10, 11, 5, 0, 0, time.UTC), trigger.Next(onMinute))
}

func TestDailyTriggerNext(t *testing.T) {
	t.Parallel()

	trigger := DailyTrigger{Hour: 6, Minute: 30}

	before := time.Date(2026, 2, 10, 6, 29, 0, 0, time.UTC)
	assert.Equal(t, time.Date(2026, 2, 10, 6, 30, 0, 0, time.UTC), trigger.Next(before))

	after := time.Date(2026, 2, 10, 7, 0, 0, 0, time.UTC)
	assert.Equal(t, time.Date(2026, 2, 11, 6, 30, 0, 0, time.UTC), trigger.Next(after))
}

func TestIntervalTriggerNext(t *testing.T) {
	t.Parallel()

	trigger := IntervalTrigger{Every: 30 * time.Minute}
	base := time.Date(2026, 2, 10, 10, 0, 0, 0, time.UTC)
	assert.Equal(t, base.Add(30*time.Minute), trigger.Next(base))
}

// fakeClock advances simulated time on every sleep, so the loop runs
// through fire times without waiting.
type fakeClock struct {
	mu     sync.Mutex
	now    time.Time
	sleeps int
	skew   time.Duration
	cancel context.CancelFunc
	limit  int
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Sleep(ctx context.Context, d time.Duration) error {
	c.mu.Lock()
	c.now = c.now.Add(d + c.skew)
	c.sleeps++
	done := c.sleeps >= c.limit
	c.mu.Unlock()
	if done {
		c.cancel()
	}
	return ctx.Err()
}

func newTestScheduler(clock *fakeClock) *Scheduler {
	s := New(nil)
	s.now = clock.Now
	s.sleep = clock.Sleep
	return s
}

func TestSchedulerFiresJobs(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	clock := &fakeClock{now: time.Date(2026, 2, 10, 0, 0, 0, 0, time.UTC), cancel: cancel, limit: 50}

	fired := make(chan struct{}, 64)
	s := newTestScheduler(clock)
	s.Add("collect", IntervalTrigger{Every: time.Minute}, 0, func(context.Context) {
		fired <- struct{}{}
	})

	err := s.Run(ctx)
	require.ErrorIs(t, err, context.Canceled)

	// Run waited for in-flight jobs, so every fire is visible now.
	assert.NotEmpty(t, fired)
}

func TestSchedulerSkipsOverlappingRuns(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	clock := &fakeClock{now: time.Date(2026, 2, 10, 0, 0, 0, 0, time.UTC), cancel: cancel, limit: 100}

	var active, violations, fires int64
	s := newTestScheduler(clock)
	s.Add("slow", IntervalTrigger{Every: time.Minute}, 0, func(context.Context) {
		if atomic.AddInt64(&active, 1) > 1 {
			atomic.AddInt64(&violations, 1)
		}
		atomic.AddInt64(&fires, 1)
		time.Sleep(time.Millisecond)
		atomic.AddInt64(&active, -1)
	})

	err := s.Run(ctx)
	require.ErrorIs(t, err, context.Canceled)

	assert.Zero(t, atomic.LoadInt64(&violations), "a job must never run concurrently with itself")
	assert.Positive(t, atomic.LoadInt64(&fires))
}

func TestSchedulerSurvivesPanickingJob(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	clock := &fakeClock{now: time.Date(2026, 2, 10, 0, 0, 0, 0, time.UTC), cancel: cancel, limit: 50}

	var healthyFires int64
	s := newTestScheduler(clock)
	s.Add("broken", IntervalTrigger{Every: time.Minute}, 0, func(context.Context) {
		panic("adapter index out of range")
	})
	s.Add("healthy", IntervalTrigger{Every: time.Minute}, 0, func(context.Context) {
		atomic.AddInt64(&healthyFires, 1)
	})

	err := s.Run(ctx)
	require.ErrorIs(t, err, context.Canceled)

	// The loop outlived every panic and kept driving the other job.
	assert.Positive(t, atomic.LoadInt64(&healthyFires))
}

func TestSchedulerDropsMisfiredOccurrences(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	// Every wake-up lands five minutes past the due time, far beyond the
	// ten-second grace.
	clock := &fakeClock{
		now:    time.Date(2026, 2, 10, 0, 0, 0, 0, time.UTC),
		skew:   5 * time.Minute,
		cancel: cancel,
		limit:  10,
	}

	var fires int64
	s := newTestScheduler(clock)
	s.Add("stale", IntervalTrigger{Every: time.Minute}, 10*time.Second, func(context.Context) {
		atomic.AddInt64(&fires, 1)
	})

	err := s.Run(ctx)
	require.ErrorIs(t, err, context.Canceled)

	assert.Zero(t, atomic.LoadInt64(&fires), "occurrences past the grace window are dropped, not fired late")
}
