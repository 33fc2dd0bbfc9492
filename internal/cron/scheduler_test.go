package cron

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

// fakeClock is a settable clock for driving tick directly.
type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.t = c.t.Add(d)
	c.mu.Unlock()
}

func TestNextRunTime(t *testing.T) {
	base := time.Date(2026, 3, 1, 10, 7, 30, 0, time.UTC)
	tests := []struct {
		expr string
		want time.Time
	}{
		{"*/15 * * * *", time.Date(2026, 3, 1, 10, 15, 0, 0, time.UTC)},
		{"0 12 * * *", time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)},
		{"@hourly", time.Date(2026, 3, 1, 11, 0, 0, 0, time.UTC)},
	}
	for _, tt := range tests {
		got, err := NextRunTime(tt.expr, base)
		if err != nil {
			t.Fatalf("%s: %v", tt.expr, err)
		}
		if !got.Equal(tt.want) {
			t.Fatalf("%s: got %v want %v", tt.expr, got, tt.want)
		}
	}
	if _, err := NextRunTime("not a schedule", base); err == nil {
		t.Fatal("expected parse error")
	}
}

func TestNewScheduler_Validation(t *testing.T) {
	if _, err := NewScheduler(Config{Expr: "* * * * *"}); err == nil {
		t.Fatal("nil job should fail")
	}
	if _, err := NewScheduler(Config{Expr: "61 * * * *", Job: func(context.Context) error { return nil }}); err == nil {
		t.Fatal("bad expression should fail")
	}
}

func TestScheduler_TickFiresWhenDue(t *testing.T) {
	clock := &fakeClock{t: time.Date(2026, 3, 1, 10, 0, 30, 0, time.UTC)}
	var runs atomic.Int32
	s, err := NewScheduler(Config{
		Expr: "* * * * *",
		Job:  func(context.Context) error { runs.Add(1); return nil },
		Now:  clock.Now,
	})
	if err != nil {
		t.Fatal(err)
	}
	if want := time.Date(2026, 3, 1, 10, 1, 0, 0, time.UTC); !s.NextRun().Equal(want) {
		t.Fatalf("next run = %v", s.NextRun())
	}

	if s.tick(context.Background()) {
		t.Fatal("should not fire before due")
	}
	clock.Advance(30 * time.Second)
	if !s.tick(context.Background()) {
		t.Fatal("should fire at due time")
	}
	if s.tick(context.Background()) {
		t.Fatal("should not fire twice for one due time")
	}

	// Missed minutes collapse into a single run.
	clock.Advance(5 * time.Minute)
	s.tick(context.Background())
	if runs.Load() != 2 || s.Fired() != 2 {
		t.Fatalf("runs = %d fired = %d", runs.Load(), s.Fired())
	}
	if want := time.Date(2026, 3, 1, 10, 7, 0, 0, time.UTC); !s.NextRun().Equal(want) {
		t.Fatalf("next run after catch-up = %v", s.NextRun())
	}
}

func TestScheduler_JobErrorKeepsSchedule(t *testing.T) {
	clock := &fakeClock{t: time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)}
	s, err := NewScheduler(Config{
		Expr: "* * * * *",
		Job:  func(context.Context) error { return errors.New("boom") },
		Now:  clock.Now,
	})
	if err != nil {
		t.Fatal(err)
	}
	clock.Advance(time.Minute)
	if !s.tick(context.Background()) {
		t.Fatal("expected fire")
	}
	if !s.NextRun().After(clock.Now()) {
		t.Fatal("next run should advance after a failed job")
	}
}

func TestScheduler_StartStop(t *testing.T) {
	clock := &fakeClock{t: time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)}
	fired := make(chan struct{}, 1)
	s, err := NewScheduler(Config{
		Expr:     "* * * * *",
		Interval: 5 * time.Millisecond,
		Now:      clock.Now,
		Job: func(context.Context) error {
			select {
			case fired <- struct{}{}:
			default:
			}
			return nil
		},
	})
	if err != nil {
		t.Fatal(err)
	}
	s.Start(context.Background())
	defer s.Stop()

	clock.Advance(time.Minute)
	select {
	case <-fired:
	case <-time.After(2 * time.Second):
		t.Fatal("job did not fire")
	}
}
