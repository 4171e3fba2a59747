// Package retry provides bounded retries with exponential backoff and
// jitter for flaky external dependencies.
package retry

import (
	"context"
	"log/slog"
	"math"
	"math/rand"
	"time"
)

// Config controls the retry budget and the backoff curve.
type Config struct {
	MaxAttempts int
	BaseDelay   time.Duration
	MaxDelay    time.Duration
	Factor      float64
	// Jitter is the upper bound of the random delay added to each wait.
	// Randomizing the waits keeps sources sharing one external
	// dependency from retrying in lockstep.
	Jitter time.Duration
}

// DefaultConfig matches the collection coordinator contract: three
// attempts, waits of base^attempt seconds capped at MaxDelay, plus up
// to one second of jitter.
func DefaultConfig() Config {
	return Config{
		MaxAttempts: 3,
		BaseDelay:   time.Second,
		MaxDelay:    30 * time.Second,
		Factor:      2.0,
		Jitter:      time.Second,
	}
}

// Retrier runs operations under a Config, consulting a classifier to
// decide which failures are worth another attempt.
type Retrier struct {
	cfg       Config
	retryable func(error) bool
	logger    *slog.Logger
	sleep     func(ctx context.Context, d time.Duration) error
}

// New builds a Retrier. A nil classifier retries every failure.
func New(cfg Config, retryable func(error) bool, logger *slog.Logger) *Retrier {
	if cfg.MaxAttempts < 1 {
		cfg.MaxAttempts = 1
	}
	if cfg.Factor <= 0 {
		cfg.Factor = 2.0
	}
	return &Retrier{
		cfg:       cfg,
		retryable: retryable,
		logger:    logger,
		sleep:     sleepCtx,
	}
}

// MaxAttempts reports the attempt budget.
func (r *Retrier) MaxAttempts() int {
	return r.cfg.MaxAttempts
}

// Do invokes op until it succeeds, the classifier rejects the error,
// or the attempt budget runs out. The last error is returned as-is so
// callers can wrap it with their own terminal type.
func (r *Retrier) Do(ctx context.Context, op func() error) error {
	var lastErr error

	for attempt := 0; attempt < r.cfg.MaxAttempts; attempt++ {
		lastErr = op()
		if lastErr == nil {
			return nil
		}

		if r.retryable != nil && !r.retryable(lastErr) {
			return lastErr
		}
		if attempt == r.cfg.MaxAttempts-1 {
			break
		}

		wait := r.delay(attempt)
		r.warn("attempt failed, backing off",
			"attempt", attempt+1,
			"max_attempts", r.cfg.MaxAttempts,
			"wait", wait.String(),
			"error", lastErr)

		if err := r.sleep(ctx, wait); err != nil {
			return err
		}
	}

	return lastErr
}

// delay computes min(MaxDelay, BaseDelay*Factor^attempt) plus jitter,
// with attempt indices 0-based.
func (r *Retrier) delay(attempt int) time.Duration {
	d := float64(r.cfg.BaseDelay) * math.Pow(r.cfg.Factor, float64(attempt))
	if max := float64(r.cfg.MaxDelay); r.cfg.MaxDelay > 0 && d > max {
		d = max
	}
	if r.cfg.Jitter > 0 {
		d += rand.Float64() * float64(r.cfg.Jitter)
	}
	return time.Duration(d)
}

func (r *Retrier) warn(msg string, args ...any) {
	if r.logger != nil {
		r.logger.Warn(msg, args...)
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
