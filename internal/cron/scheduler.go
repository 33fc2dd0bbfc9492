// Package cron re-runs a job on a standard 5-field cron schedule.
package cron

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	cronlib "github.com/robfig/cron/v3"
)

// cronParser parses standard 5-field cron expressions (minute, hour, dom, month, dow).
var cronParser = cronlib.NewParser(
	cronlib.Minute | cronlib.Hour | cronlib.Dom | cronlib.Month | cronlib.Dow | cronlib.Descriptor,
)

// Job is invoked each time the schedule is due.
type Job func(ctx context.Context) error

// Config holds the dependencies for the scheduler.
type Config struct {
	Expr     string
	Job      Job
	Logger   *slog.Logger
	Interval time.Duration // tick interval; defaults to 1 second if zero
	Now      func() time.Time
}

// Scheduler checks the schedule at a fixed interval and fires the job once
// per due time. A job still running when the next time comes due is not
// started twice.
type Scheduler struct {
	expr     string
	schedule cronlib.Schedule
	job      Job
	logger   *slog.Logger
	interval time.Duration
	now      func() time.Time

	mu      sync.Mutex
	nextRun time.Time
	fired   int

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewScheduler validates cfg.Expr and returns a stopped Scheduler.
func NewScheduler(cfg Config) (*Scheduler, error) {
	if cfg.Job == nil {
		return nil, fmt.Errorf("cron: nil job")
	}
	sched, err := cronParser.Parse(cfg.Expr)
	if err != nil {
		return nil, fmt.Errorf("cron: parse %q: %w", cfg.Expr, err)
	}
	interval := cfg.Interval
	if interval <= 0 {
		interval = time.Second
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	return &Scheduler{
		expr:     cfg.Expr,
		schedule: sched,
		job:      cfg.Job,
		logger:   logger,
		interval: interval,
		now:      now,
		nextRun:  sched.Next(now()),
	}, nil
}

// Start begins the scheduler loop in a background goroutine.
func (s *Scheduler) Start(ctx context.Context) {
	ctx, s.cancel = context.WithCancel(ctx)
	s.wg.Add(1)
	go s.loop(ctx)
	s.logger.Info("cron scheduler started", "expr", s.expr, "next_run_at", s.NextRun())
}

// Stop cancels the loop and waits for it to exit.
func (s *Scheduler) Stop() {
	if s.cancel != nil {
		s.cancel()
	}
	s.wg.Wait()
	s.logger.Info("cron scheduler stopped")
}

// NextRun returns the next due time.
func (s *Scheduler) NextRun() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.nextRun
}

// Fired returns how many times the job has been started.
func (s *Scheduler) Fired() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.fired
}

func (s *Scheduler) loop(ctx context.Context) {
	defer s.wg.Done()

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.tick(ctx)
		}
	}
}

// tick fires the job when the schedule is due. Missed times collapse into
// one run.
func (s *Scheduler) tick(ctx context.Context) bool {
	now := s.now()
	s.mu.Lock()
	if now.Before(s.nextRun) {
		s.mu.Unlock()
		return false
	}
	s.nextRun = s.schedule.Next(now)
	s.fired++
	next := s.nextRun
	s.mu.Unlock()

	start := time.Now()
	if err := s.job(ctx); err != nil {
		s.logger.Warn("cron: job failed", "expr", s.expr, "error", err, "next_run_at", next)
		return true
	}
	s.logger.Info("cron: job fired", "expr", s.expr, "duration_ms", time.Since(start).Milliseconds(), "next_run_at", next)
	return true
}

// NextRunTime parses the cron expression and returns the next run time after the given time.
func NextRunTime(cronExpr string, after time.Time) (time.Time, error) {
	sched, err := cronParser.Parse(cronExpr)
	if err != nil {
		return time.Time{}, err
	}
	return sched.Next(after), nil
}
