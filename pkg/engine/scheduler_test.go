package engine

import (
	"context"
	"sync/atomic"
	"testing"
	"time"
)

func TestSchedulerStartPollsImmediately(t *testing.T) {
	var polls atomic.Int64
	s := NewScheduler(func(context.Context) { polls.Add(1) })

	if err := s.Start(context.Background(), time.Hour); err != nil {
		t.Fatalf("start: %v", err)
	}
	defer s.Stop()

	waitFor(t, func() bool { return polls.Load() == 1 })
}

func TestSchedulerPeriodicPolling(t *testing.T) {
	var polls atomic.Int64
	s := NewScheduler(func(context.Context) { polls.Add(1) })

	if err := s.Start(context.Background(), 10*time.Millisecond); err != nil {
		t.Fatalf("start: %v", err)
	}
	defer s.Stop()

	waitFor(t, func() bool { return polls.Load() >= 3 })
}

func TestSchedulerStartNotIdle(t *testing.T) {
	s := NewScheduler(func(context.Context) {})
	if err := s.Start(context.Background(), time.Hour); err != nil {
		t.Fatalf("start: %v", err)
	}
	defer s.Stop()

	if err := s.Start(context.Background(), time.Hour); err != ErrNotIdle {
		t.Fatalf("expected ErrNotIdle, got %v", err)
	}
}

func TestSchedulerStopIdempotent(t *testing.T) {
	var polls atomic.Int64
	s := NewScheduler(func(context.Context) { polls.Add(1) })

	if err := s.Start(context.Background(), 5*time.Millisecond); err != nil {
		t.Fatalf("start: %v", err)
	}

	s.Stop()
	s.Stop()

	if got := s.State(); got != SchedulerStopped {
		t.Fatalf("expected stopped, got %s", got)
	}

	at := polls.Load()
	time.Sleep(50 * time.Millisecond)
	if polls.Load() != at {
		t.Fatalf("poll occurred after Stop returned: %d -> %d", at, polls.Load())
	}
}

func TestSchedulerStopWithoutStart(t *testing.T) {
	s := NewScheduler(func(context.Context) {})
	s.Stop()
	s.Stop()
	if got := s.State(); got != SchedulerStopped {
		t.Fatalf("expected stopped, got %s", got)
	}
	if err := s.Start(context.Background(), time.Second); err != ErrNotIdle {
		t.Fatalf("stopped scheduler must not restart, got %v", err)
	}
}

func TestSchedulerPollNowWhileRunning(t *testing.T) {
	var polls atomic.Int64
	s := NewScheduler(func(context.Context) { polls.Add(1) })

	if err := s.Start(context.Background(), time.Hour); err != nil {
		t.Fatalf("start: %v", err)
	}
	defer s.Stop()

	waitFor(t, func() bool { return polls.Load() == 1 })

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := s.PollNow(ctx); err != nil {
		t.Fatalf("pollNow: %v", err)
	}
	if polls.Load() != 2 {
		t.Fatalf("expected pollNow to have completed before returning, polls=%d", polls.Load())
	}
}

func TestSchedulerPollNowInlineWhenIdle(t *testing.T) {
	var polls atomic.Int64
	s := NewScheduler(func(context.Context) { polls.Add(1) })

	if err := s.PollNow(context.Background()); err != nil {
		t.Fatalf("pollNow: %v", err)
	}
	if polls.Load() != 1 {
		t.Fatalf("expected inline poll, got %d", polls.Load())
	}
}

func TestSchedulerNoOverlap(t *testing.T) {
	var active, maxActive atomic.Int64
	s := NewScheduler(func(context.Context) {
		cur := active.Add(1)
		if cur > maxActive.Load() {
			maxActive.Store(cur)
		}
		time.Sleep(20 * time.Millisecond)
		active.Add(-1)
	})

	if err := s.Start(context.Background(), time.Millisecond); err != nil {
		t.Fatalf("start: %v", err)
	}
	time.Sleep(100 * time.Millisecond)
	s.Stop()

	if maxActive.Load() > 1 {
		t.Fatalf("polls overlapped: max concurrent %d", maxActive.Load())
	}
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatalf("condition not met within deadline")
}
