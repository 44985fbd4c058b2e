package engine

import (
	"context"
	"testing"
	"time"
)

func TestBusPublishSubscribe(t *testing.T) {
	b := NewBus()
	defer b.Close()

	events, cancel := b.Subscribe(context.Background(), 4)
	defer cancel()

	b.Publish(Event{Kind: ConnectionChanged, Seq: 1})

	select {
	case ev := <-events:
		if ev.Kind != ConnectionChanged || ev.Seq != 1 {
			t.Fatalf("unexpected event: %#v", ev)
		}
	case <-time.After(time.Second):
		t.Fatalf("event not delivered")
	}
}

func TestBusSlowSubscriberDoesNotBlock(t *testing.T) {
	b := NewBus()
	defer b.Close()

	_, cancel := b.Subscribe(context.Background(), 1)
	defer cancel()

	done := make(chan struct{})
	go func() {
		for i := 0; i < 100; i++ {
			b.Publish(Event{Kind: DeviceJoined, Seq: uint64(i)})
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatalf("publish blocked on a slow subscriber")
	}
}

func TestBusCancelRemovesSubscriber(t *testing.T) {
	b := NewBus()
	defer b.Close()

	events, cancel := b.Subscribe(context.Background(), 1)
	cancel()
	cancel() // idempotent

	if b.SubscriberCount() != 0 {
		t.Fatalf("expected no subscribers, got %d", b.SubscriberCount())
	}
	if _, ok := <-events; ok {
		t.Fatalf("expected closed channel after cancel")
	}
}

func TestBusCloseIdempotent(t *testing.T) {
	b := NewBus()
	events, cancel := b.Subscribe(context.Background(), 1)
	defer cancel()

	b.Close()
	b.Close()

	if _, ok := <-events; ok {
		t.Fatalf("expected closed channel after bus close")
	}
	b.Publish(Event{Kind: DeviceLeft}) // must not panic
}

func TestBusSubscribeAfterClose(t *testing.T) {
	b := NewBus()
	b.Close()
	events, cancel := b.Subscribe(context.Background(), 1)
	defer cancel()
	if _, ok := <-events; ok {
		t.Fatalf("expected immediately closed channel")
	}
}
