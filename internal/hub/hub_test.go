package hub

import (
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/repair-board/internal/config"
	"github.com/spec-kit/repair-board/internal/events"
)

func newTestHub(buffer int, sendTimeoutMillis int) *Hub {
	return NewHub(config.HubConfig{
		SubscriberBuffer:  buffer,
		SendTimeoutMillis: sendTimeoutMillis,
	}, zap.NewNop(), nil)
}

func TestPublishFanOut(t *testing.T) {
	h := newTestHub(4, 50)
	defer h.Close()

	a := h.Subscribe()
	b := h.Subscribe()

	h.Publish(events.Event{Type: events.EventCardCreated, CardID: 1})
	h.Publish(events.Event{Type: events.EventCardUpdated, CardID: 1})

	for name, sub := range map[string]*Subscriber{"a": a, "b": b} {
		first := <-sub.Events()
		second := <-sub.Events()
		if first.Type != events.EventCardCreated || second.Type != events.EventCardUpdated {
			t.Fatalf("subscriber %s got %q then %q, want created then updated", name, first.Type, second.Type)
		}
		if first.ID == "" || first.Timestamp.IsZero() {
			t.Fatalf("subscriber %s event missing id or timestamp", name)
		}
	}
}

func TestLateSubscriberMissesEarlierEvents(t *testing.T) {
	h := newTestHub(4, 50)
	defer h.Close()

	h.Publish(events.Event{Type: events.EventCardCreated, CardID: 1})
	sub := h.Subscribe()
	h.Publish(events.Event{Type: events.EventCardDeleted, CardID: 1})

	got := <-sub.Events()
	if got.Type != events.EventCardDeleted {
		t.Fatalf("late subscriber got %q, want only the later event", got.Type)
	}
	select {
	case extra := <-sub.Events():
		t.Fatalf("unexpected replayed event %+v", extra)
	default:
	}
}

func TestStuckObserverDropped(t *testing.T) {
	h := newTestHub(1, 20)
	defer h.Close()

	stuck := h.Subscribe()
	healthy := h.Subscribe()

	// fill the stuck observer's buffer, never drain it
	h.Publish(events.Event{Type: events.EventCardCreated, CardID: 1})

	first := <-healthy.Events()
	if first.Type != events.EventCardCreated {
		t.Fatalf("healthy observer got %q first", first.Type)
	}

	start := time.Now()
	h.Publish(events.Event{Type: events.EventCardUpdated, CardID: 1})
	if elapsed := time.Since(start); elapsed > 500*time.Millisecond {
		t.Fatalf("publish blocked %v on a stuck observer", elapsed)
	}

	if h.Len() != 1 {
		t.Fatalf("subscriber count = %d, want the stuck one dropped", h.Len())
	}

	// the dropped observer's stream ends after its buffered events
	<-stuck.Events()
	if _, ok := <-stuck.Events(); ok {
		t.Fatalf("stuck observer stream should be closed")
	}

	second := <-healthy.Events()
	if second.Type != events.EventCardUpdated {
		t.Fatalf("healthy observer got %q second", second.Type)
	}
}

func TestSubscriberClose(t *testing.T) {
	h := newTestHub(4, 50)
	defer h.Close()

	sub := h.Subscribe()
	sub.Close()
	sub.Close() // idempotent

	if h.Len() != 0 {
		t.Fatalf("subscriber count = %d after close", h.Len())
	}
	if _, ok := <-sub.Events(); ok {
		t.Fatalf("closed subscriber stream still open")
	}

	// publishing after the unsubscribe must not panic or deliver
	h.Publish(events.Event{Type: events.EventCardCreated, CardID: 1})
}

func TestHubClose(t *testing.T) {
	h := newTestHub(4, 50)
	sub := h.Subscribe()

	h.Close()
	h.Close() // idempotent

	if _, ok := <-sub.Events(); ok {
		t.Fatalf("subscriber stream open after hub close")
	}
	if late := h.Subscribe(); late == nil {
		t.Fatalf("subscribe after close returned nil")
	} else if _, ok := <-late.Events(); ok {
		t.Fatalf("post-close subscriber stream should be closed")
	}

	// publish after close is a no-op
	h.Publish(events.Event{Type: events.EventCardCreated, CardID: 1})
}
