package engine

import (
	"context"
	"sync"
)

const defaultSubscriberBuffer = 64

// Bus fans change events out to subscribers. Publishing never blocks: a
// subscriber whose buffer is full misses events and is expected to resync
// from a fresh View, so one stalled consumer cannot stall the poll worker.
type Bus struct {
	mu     sync.RWMutex
	subs   map[int]*subscriber
	nextID int
	closed bool
}

type subscriber struct {
	ch     chan Event
	ctx    context.Context
	cancel context.CancelFunc
}

// NewBus returns an empty event bus.
func NewBus() *Bus {
	return &Bus{subs: make(map[int]*subscriber)}
}

// Subscribe registers a new consumer. The channel receives events until the
// context is done or the cancel function runs; cancel must be called to
// release the subscription. A buffer of zero selects the default size.
func (b *Bus) Subscribe(ctx context.Context, buffer int) (<-chan Event, func()) {
	if buffer <= 0 {
		buffer = defaultSubscriberBuffer
	}

	subCtx, cancel := context.WithCancel(ctx)

	b.mu.Lock()
	id := b.nextID
	b.nextID++
	sub := &subscriber{
		ch:     make(chan Event, buffer),
		ctx:    subCtx,
		cancel: cancel,
	}
	if b.closed {
		b.mu.Unlock()
		cancel()
		close(sub.ch)
		return sub.ch, func() {}
	}
	b.subs[id] = sub
	b.mu.Unlock()

	var once sync.Once
	return sub.ch, func() {
		once.Do(func() { b.unsubscribe(id) })
	}
}

func (b *Bus) unsubscribe(id int) {
	b.mu.Lock()
	defer b.mu.Unlock()

	sub, ok := b.subs[id]
	if !ok {
		return
	}
	sub.cancel()
	close(sub.ch)
	delete(b.subs, id)
}

// Publish delivers an event to every live subscriber without blocking.
func (b *Bus) Publish(ev Event) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if b.closed {
		return
	}
	for _, sub := range b.subs {
		select {
		case <-sub.ctx.Done():
			continue
		default:
		}
		select {
		case sub.ch <- ev:
		default:
			// Full buffer: drop. The subscriber resyncs from View.
		}
	}
}

// Close shuts the bus down and closes all subscriber channels. Idempotent.
func (b *Bus) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return
	}
	b.closed = true
	for id, sub := range b.subs {
		sub.cancel()
		close(sub.ch)
		delete(b.subs, id)
	}
}

// SubscriberCount reports the number of live subscriptions.
func (b *Bus) SubscriberCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs)
}
