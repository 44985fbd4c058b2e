package engine

import (
	"context"
	"errors"
	"sync"
	"time"
)

// SchedulerState is the scheduler's lifecycle position.
type SchedulerState string

const (
	SchedulerIdle    SchedulerState = "idle"
	SchedulerRunning SchedulerState = "running"
	SchedulerStopped SchedulerState = "stopped"
)

// ErrNotIdle is returned by Start when the scheduler already ran or is
// running; a scheduler is single-use.
var ErrNotIdle = errors.New("scheduler is not idle")

// Scheduler owns the periodic polling loop on a single dedicated worker.
// Intervals are measured from the end of one poll to the start of the next,
// so a slow poll delays the following one and polls never overlap. Repeated
// failures never stop the loop; the engine's last error is the sole failure
// signal, since the daemon may legitimately stay down for long stretches.
type Scheduler struct {
	poll func(context.Context)

	mu       sync.Mutex
	state    SchedulerState
	interval time.Duration
	stop     chan struct{}
	done     chan struct{}
	kick     chan chan struct{}
}

// NewScheduler wraps the given poll pipeline trigger.
func NewScheduler(poll func(context.Context)) *Scheduler {
	return &Scheduler{
		poll:  poll,
		state: SchedulerIdle,
		kick:  make(chan chan struct{}),
	}
}

// State reports the current lifecycle state.
func (s *Scheduler) State() SchedulerState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Start transitions Idle to Running and begins polling: once immediately,
// then on every interval tick.
func (s *Scheduler) Start(ctx context.Context, interval time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != SchedulerIdle {
		return ErrNotIdle
	}
	if interval <= 0 {
		return errors.New("poll interval must be positive")
	}

	s.state = SchedulerRunning
	s.interval = interval
	s.stop = make(chan struct{})
	s.done = make(chan struct{})
	go s.loop(ctx)
	return nil
}

func (s *Scheduler) loop(ctx context.Context) {
	defer close(s.done)

	s.poll(ctx)

	timer := time.NewTimer(s.interval)
	defer timer.Stop()

	for {
		select {
		case <-s.stop:
			return
		case <-ctx.Done():
			return
		case <-timer.C:
			s.poll(ctx)
			timer.Reset(s.interval)
		case ack := <-s.kick:
			s.poll(ctx)
			close(ack)
			// Restart the end-to-start measurement from this poll.
			if !timer.Stop() {
				select {
				case <-timer.C:
				default:
				}
			}
			timer.Reset(s.interval)
		}
	}
}

// Stop halts polling. It is idempotent, safe from any goroutine, and does
// not return until the worker has exited, so no poll starts after Stop
// returns. An in-flight poll is bounded by the executor's own timeout.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	switch s.state {
	case SchedulerRunning:
		s.state = SchedulerStopped
		close(s.stop)
		done := s.done
		s.mu.Unlock()
		<-done
		return
	case SchedulerIdle:
		s.state = SchedulerStopped
	}
	s.mu.Unlock()
}

// PollNow requests an immediate out-of-band poll and waits for it to
// complete. When the scheduler is not running the poll executes inline on
// the caller, so one-shot invocations work without a started loop.
func (s *Scheduler) PollNow(ctx context.Context) error {
	s.mu.Lock()
	running := s.state == SchedulerRunning
	stop := s.stop
	s.mu.Unlock()

	if !running {
		s.poll(ctx)
		return nil
	}

	ack := make(chan struct{})
	select {
	case s.kick <- ack:
	case <-stop:
		return errors.New("scheduler stopped")
	case <-ctx.Done():
		return ctx.Err()
	}

	select {
	case <-ack:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
