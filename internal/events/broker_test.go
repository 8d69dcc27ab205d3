package events

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"
)

func newTestBroker() *Broker {
	return NewBroker(slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func receive(t *testing.T, ch <-chan *Event) *Event {
	t.Helper()
	select {
	case e := <-ch:
		return e
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for event")
		return nil
	}
}

func TestPublishRoutesByActivity(t *testing.T) {
	b := newTestBroker()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	a1 := b.Subscribe(ctx, "a1")
	all := b.Subscribe(ctx, "")

	b.Publish(New(TypeRequestSubmitted, "a2", "u1", nil))
	b.Publish(New(TypeRequestAccepted, "a1", "u1", nil))

	if e := receive(t, a1.Ch); e.ActivityID != "a1" || e.Type != TypeRequestAccepted {
		t.Errorf("unexpected event for a1 subscriber: %+v", e)
	}
	if e := receive(t, all.Ch); e.ActivityID != "a2" {
		t.Errorf("global subscriber should see a2 first, got %+v", e)
	}
	if e := receive(t, all.Ch); e.ActivityID != "a1" {
		t.Errorf("global subscriber should see a1 second, got %+v", e)
	}

	select {
	case e := <-a1.Ch:
		t.Errorf("a1 subscriber received unrelated event %+v", e)
	default:
	}
}

func TestSubscriptionEndsWithContext(t *testing.T) {
	b := newTestBroker()
	ctx, cancel := context.WithCancel(context.Background())

	sub := b.Subscribe(ctx, "a1")
	if b.SubscriberCount() != 1 {
		t.Fatalf("SubscriberCount = %d, want 1", b.SubscriberCount())
	}

	cancel()

	select {
	case _, ok := <-sub.Ch:
		if ok {
			t.Error("expected closed channel")
		}
	case <-time.After(time.Second):
		t.Fatal("channel was not closed after cancel")
	}
	if b.SubscriberCount() != 0 {
		t.Errorf("SubscriberCount = %d, want 0", b.SubscriberCount())
	}

	// Unsubscribing twice is harmless.
	b.Unsubscribe(sub)
}

func TestPublishNeverBlocks(t *testing.T) {
	b := newTestBroker()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sub := b.Subscribe(ctx, "a1")

	done := make(chan struct{})
	go func() {
		for i := 0; i < 200; i++ {
			b.Publish(New(TypeMessagePosted, "a1", "u1", i))
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Publish blocked on a slow subscriber")
	}
	if len(sub.Ch) != cap(sub.Ch) {
		t.Errorf("buffer should be full, has %d of %d", len(sub.Ch), cap(sub.Ch))
	}

	b.Publish(nil)
}
