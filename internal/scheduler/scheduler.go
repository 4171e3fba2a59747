// Package scheduler runs recurring jobs on wall-clock triggers with
// overlap protection and misfire handling.
package scheduler

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"
)

// Trigger computes fire times for a recurring job.
type Trigger interface {
	// Next returns the first fire time strictly after the given instant.
	Next(after time.Time) time.Time
}

// IntervalTrigger fires on a fixed period.
type IntervalTrigger struct {
	Every time.Duration
}

func (t IntervalTrigger) Next(after time.Time) time.Time {
	return after.Add(t.Every)
}

// HourlyTrigger fires once an hour at a fixed minute.
type HourlyTrigger struct {
	Minute int
}

func (t HourlyTrigger) Next(after time.Time) time.Time {
	next := time.Date(after.Year(), after.Month(), after.Day(), after.Hour(), t.Minute, 0, 0, after.Location())
	if !next.After(after) {
		next = next.Add(time.Hour)
	}
	return next
}

// DailyTrigger fires once a day at a fixed local time.
type DailyTrigger struct {
	Hour   int
	Minute int
	Loc    *time.Location
}

func (t DailyTrigger) Next(after time.Time) time.Time {
	loc := t.Loc
	if loc == nil {
		loc = after.Location()
	}
	local := after.In(loc)
	next := time.Date(local.Year(), local.Month(), local.Day(), t.Hour, t.Minute, 0, 0, loc)
	if !next.After(local) {
		next = next.AddDate(0, 0, 1)
	}
	return next
}

type job struct {
	name    string
	trigger Trigger
	grace   time.Duration
	fn      func(ctx context.Context)
	next    time.Time
	running atomic.Bool
}

// Scheduler drives a fixed set of jobs from a single loop. Each job
// has at most one instance in flight; an occurrence that comes due
// while the previous instance still runs is skipped, and an occurrence
// older than its misfire grace when the loop reaches it is dropped
// rather than fired late.
type Scheduler struct {
	jobs   []*job
	logger *slog.Logger
	wg     sync.WaitGroup

	now   func() time.Time
	sleep func(ctx context.Context, d time.Duration) error
}

// New builds an empty scheduler.
func New(logger *slog.Logger) *Scheduler {
	return &Scheduler{
		logger: logger,
		now:    time.Now,
		sleep:  sleepCtx,
	}
}

// Add registers a job. Not safe to call after Run has started.
func (s *Scheduler) Add(name string, trigger Trigger, grace time.Duration, fn func(ctx context.Context)) {
	s.jobs = append(s.jobs, &job{name: name, trigger: trigger, grace: grace, fn: fn})
}

// Run fires jobs until ctx is cancelled, then waits for in-flight jobs
// to drain. Cancellation stops new occurrences; jobs already running
// keep their context alive and finish on their own.
func (s *Scheduler) Run(ctx context.Context) error {
	if len(s.jobs) == 0 {
		<-ctx.Done()
		return ctx.Err()
	}

	start := s.now()
	for _, j := range s.jobs {
		j.next = j.trigger.Next(start)
		s.info("job scheduled", "job", j.name, "next", j.next.Format(time.RFC3339))
	}

	for {
		j := s.earliest()
		if wait := j.next.Sub(s.now()); wait > 0 {
			if err := s.sleep(ctx, wait); err != nil {
				s.wg.Wait()
				return err
			}
		}
		if ctx.Err() != nil {
			s.wg.Wait()
			return ctx.Err()
		}

		now := s.now()
		due := j.next
		j.next = j.trigger.Next(now)

		if j.grace > 0 && now.Sub(due) > j.grace {
			s.warn("misfired occurrence dropped", "job", j.name, "due", due.Format(time.RFC3339), "late", now.Sub(due).String())
			continue
		}
		if !j.running.CompareAndSwap(false, true) {
			s.warn("previous instance still running, occurrence skipped", "job", j.name)
			continue
		}

		s.wg.Add(1)
		go func(j *job) {
			defer s.wg.Done()
			defer j.running.Store(false)
			defer func() {
				// A panicking job must never take the loop or the
				// other jobs down with it.
				if r := recover(); r != nil {
					s.warn("job panicked", "job", j.name, "panic", r)
				}
			}()
			j.fn(context.WithoutCancel(ctx))
		}(j)
	}
}

func (s *Scheduler) earliest() *job {
	best := s.jobs[0]
	for _, j := range s.jobs[1:] {
		if j.next.Before(best.next) {
			best = j
		}
	}
	return best
}

func (s *Scheduler) info(msg string, args ...any) {
	if s.logger != nil {
		s.logger.Info(msg, args...)
	}
}

func (s *Scheduler) warn(msg string, args ...any) {
	if s.logger != nil {
		s.logger.Warn(msg, args...)
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
