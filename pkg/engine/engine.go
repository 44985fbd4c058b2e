package engine

import (
	"context"
	"time"

	"tableflip.dev/meshctl/pkg/daemon"
	"tableflip.dev/meshctl/pkg/status"
)

// Engine wires the poll pipeline together: executor to parser to reconciler.
// It owns the one State instance and the event bus, and is the only thing
// that ever mutates them.
type Engine struct {
	client *daemon.Client
	state  *State
	bus    *Bus
	sched  *Scheduler
	cache  *Cache
	now    func() time.Time
}

// Option configures an Engine.
type Option func(*Engine)

// WithCache persists every successful poll and prefills state at startup.
func WithCache(c *Cache) Option {
	return func(e *Engine) { e.cache = c }
}

// WithClock overrides the timestamp source, for tests.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

// New builds an engine around a daemon client.
func New(client *daemon.Client, opts ...Option) *Engine {
	e := &Engine{
		client: client,
		state:  NewState(),
		bus:    NewBus(),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	e.sched = NewScheduler(e.Poll)

	if e.cache != nil {
		if snap, roster, ok := e.cache.Load(); ok {
			e.state.Restore(snap, roster)
		}
	}
	return e
}

// Poll runs one pass of the pipeline: fetch status, parse, reconcile,
// publish. A failure anywhere records the error and leaves the last known
// good state intact; the engine stays pollable indefinitely.
func (e *Engine) Poll(ctx context.Context) {
	raw, err := e.client.Status(ctx)
	if err != nil {
		e.state.Fail(err)
		return
	}

	snap, roster, err := status.Parse(raw, e.now())
	if err != nil {
		e.state.Fail(err)
		return
	}

	for _, ev := range e.state.Apply(snap, roster) {
		e.bus.Publish(ev)
	}

	if e.cache != nil {
		// Best effort; a cache write failure must not dirty the poll result.
		_ = e.cache.Save(snap, roster)
	}
}

// Snapshot returns an immutable copy of the current engine state.
func (e *Engine) Snapshot() View {
	return e.state.View()
}

// Subscribe registers for change events. The cancel function must be called.
func (e *Engine) Subscribe(ctx context.Context, buffer int) (<-chan Event, func()) {
	return e.bus.Subscribe(ctx, buffer)
}

// Start begins periodic polling at the given interval.
func (e *Engine) Start(ctx context.Context, interval time.Duration) error {
	return e.sched.Start(ctx, interval)
}

// Stop halts polling and closes the event bus. Idempotent.
func (e *Engine) Stop() {
	e.sched.Stop()
	e.bus.Close()
}

// PollNow triggers an immediate out-of-band poll and waits for completion.
func (e *Engine) PollNow(ctx context.Context) error {
	return e.sched.PollNow(ctx)
}

// Refresh polls immediately and reports the identity the daemon now claims.
// The profile store uses this after a switch so its stored identity and the
// engine's view move together.
func (e *Engine) Refresh(ctx context.Context) (string, error) {
	if err := e.PollNow(ctx); err != nil {
		return "", err
	}
	v := e.Snapshot()
	if v.LastErr != nil {
		return "", v.LastErr
	}
	return v.Status.Identity, nil
}

// Connect asks the daemon to join the mesh, then refreshes state. A command
// timeout is reported as-is; for `up` it usually means browser
// authentication is pending, which the follow-up poll surfaces as
// connecting.
func (e *Engine) Connect(ctx context.Context) error {
	err := e.client.Up(ctx)
	if pollErr := e.PollNow(ctx); err == nil {
		err = pollErr
	}
	return err
}

// Disconnect takes the daemon off the mesh, then refreshes state.
func (e *Engine) Disconnect(ctx context.Context) error {
	if err := e.client.Down(ctx); err != nil {
		return err
	}
	return e.PollNow(ctx)
}

// SetExitNode routes traffic through the given device, or restores direct
// connections when id is empty, then refreshes state.
func (e *Engine) SetExitNode(ctx context.Context, id string) error {
	if err := e.client.SetExitNode(ctx, id); err != nil {
		return err
	}
	return e.PollNow(ctx)
}
