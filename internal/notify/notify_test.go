package notify

import (
	"context"
	"testing"
	"time"
)

type chanSink struct {
	ch chan Event
}

func (s *chanSink) Deliver(_ context.Context, event Event) {
	s.ch <- event
}

func TestDispatcher_DeliversToSink(t *testing.T) {
	sink := &chanSink{ch: make(chan Event, 1)}
	d := NewDispatcher(nil, 8, sink)
	d.Start(context.Background())
	defer d.Stop()

	d.Publish(Event{Kind: KindOrderCompleted, Payload: map[string]string{"order_id": "ord_1"}})

	select {
	case got := <-sink.ch:
		if got.Kind != KindOrderCompleted {
			t.Fatalf("kind=%s want=%s", got.Kind, KindOrderCompleted)
		}
		if got.Payload["order_id"] != "ord_1" {
			t.Fatalf("payload=%v", got.Payload)
		}
		if got.At.IsZero() {
			t.Fatalf("At not stamped")
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("event not delivered")
	}
}

func TestDispatcher_FullBufferNeverBlocks(t *testing.T) {
	// No worker started: the buffer fills and further publishes must drop
	// instead of blocking.
	d := NewDispatcher(nil, 2)
	done := make(chan struct{})
	go func() {
		for i := 0; i < 10; i++ {
			d.Publish(Event{Kind: KindCreativeApproved})
		}
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatalf("publish blocked on full buffer")
	}
}

func TestStop_DrainsBufferedEvents(t *testing.T) {
	sink := &chanSink{ch: make(chan Event, 8)}
	d := NewDispatcher(nil, 8, sink)
	d.Start(context.Background())

	kinds := []string{KindPlacementApproved, KindCreativeRejected, KindOrderCompleted}
	for _, k := range kinds {
		d.Publish(Event{Kind: k})
	}
	d.Stop()

	// Stop waits on the worker, so every buffered event is in the sink by
	// the time it returns.
	for i := range kinds {
		select {
		case <-sink.ch:
		default:
			t.Fatalf("event %d not delivered before Stop returned", i)
		}
	}
}

func TestPublish_NilDispatcherIsSafe(t *testing.T) {
	var d *Dispatcher
	d.Publish(Event{Kind: KindPlacementApproved})
}
