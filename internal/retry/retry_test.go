package retry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRetrier(cfg Config, retryable func(error) bool) (*Retrier, *[]time.Duration) {
	r := New(cfg, retryable, nil)
	waits := &[]time.Duration{}
	r.sleep = func(_ context.Context, d time.Duration) error {
		*waits = append(*waits, d)
		return nil
	}
	return r, waits
}

func TestDoSucceedsAfterTransientFailures(t *testing.T) {
	t.Parallel()

	cfg := DefaultConfig()
	r, waits := newTestRetrier(cfg, nil)

	calls := 0
	err := r.Do(context.Background(), func() error {
		calls++
		if calls <= 2 {
			return errors.New("boom")
		}
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, 3, calls)
	require.Len(t, *waits, 2)

	// Each wait is base*2^attempt plus at most one second of jitter.
	for attempt, wait := range *waits {
		floor := cfg.BaseDelay << attempt
		assert.GreaterOrEqual(t, wait, floor, "attempt %d", attempt)
		assert.Less(t, wait, floor+cfg.Jitter, "attempt %d", attempt)
	}
}

func TestDoExhaustsBudget(t *testing.T) {
	t.Parallel()

	r, waits := newTestRetrier(Config{MaxAttempts: 3, BaseDelay: time.Second, Factor: 2}, nil)

	calls := 0
	wantErr := errors.New("still broken")
	err := r.Do(context.Background(), func() error {
		calls++
		return wantErr
	})

	assert.ErrorIs(t, err, wantErr)
	assert.Equal(t, 3, calls)
	assert.Len(t, *waits, 2, "no wait after the final attempt")
}

func TestDoStopsOnNonRetryableError(t *testing.T) {
	t.Parallel()

	fatal := errors.New("session expired")
	r, waits := newTestRetrier(DefaultConfig(), func(err error) bool {
		return !errors.Is(err, fatal)
	})

	calls := 0
	err := r.Do(context.Background(), func() error {
		calls++
		return fatal
	})

	assert.ErrorIs(t, err, fatal)
	assert.Equal(t, 1, calls)
	assert.Empty(t, *waits)
}

func TestDoDelayCapped(t *testing.T) {
	t.Parallel()

	r := New(Config{MaxAttempts: 10, BaseDelay: time.Second, MaxDelay: 4 * time.Second, Factor: 2}, nil, nil)
	assert.Equal(t, 4*time.Second, r.delay(9))
}

func TestDoHonorsContextCancellation(t *testing.T) {
	t.Parallel()

	r := New(Config{MaxAttempts: 5, BaseDelay: time.Minute, Factor: 2}, nil, nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := r.Do(ctx, func() error { return errors.New("boom") })
	assert.ErrorIs(t, err, context.Canceled)
}
