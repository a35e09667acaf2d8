package hub

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/spec-kit/repair-board/internal/config"
	"github.com/spec-kit/repair-board/internal/events"
	"github.com/spec-kit/repair-board/internal/observability"
)

// Hub fans out mutation events to every connected observer. Delivery is
// at-most-once per observer with no replay buffer: an observer that
// subscribes after an event was published simply misses it. Publish
// never waits on one observer past the configured send timeout; an
// observer whose buffer stays full for that long is dropped.
type Hub struct {
	logger      *zap.Logger
	metrics     *observability.Metrics
	sendTimeout time.Duration
	buffer      int

	mu          sync.RWMutex
	subscribers map[*Subscriber]struct{}
	closed      bool
}

// Subscriber is one connected observer's event stream. The stream
// channel is closed when the subscriber is dropped, closed, or the hub
// shuts down.
type Subscriber struct {
	hub  *Hub
	ch   chan events.Event
	once sync.Once
}

// Events returns the subscriber's ordered event stream.
func (s *Subscriber) Events() <-chan events.Event {
	return s.ch
}

// Close unsubscribes the observer and closes its stream.
func (s *Subscriber) Close() {
	s.hub.unsubscribe(s)
}

// NewHub constructs an empty hub.
func NewHub(cfg config.HubConfig, logger *zap.Logger, metrics *observability.Metrics) *Hub {
	buffer := cfg.SubscriberBuffer
	if buffer <= 0 {
		buffer = 16
	}
	return &Hub{
		logger:      logger,
		metrics:     metrics,
		sendTimeout: cfg.SendTimeout(),
		buffer:      buffer,
		subscribers: make(map[*Subscriber]struct{}),
	}
}

// Subscribe registers a new observer. Subscribing to a closed hub
// returns a subscriber whose stream is already closed.
func (h *Hub) Subscribe() *Subscriber {
	sub := &Subscriber{hub: h, ch: make(chan events.Event, h.buffer)}

	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		sub.once.Do(func() { close(sub.ch) })
		return sub
	}
	h.subscribers[sub] = struct{}{}
	return sub
}

// Publish delivers the event to every current observer. Events from one
// publisher reach each observer in publish order; observers that do not
// drain their buffer within the send timeout are dropped instead of
// stalling the publisher.
func (h *Hub) Publish(event events.Event) {
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}
	if h.metrics != nil {
		h.metrics.EventsPublished.WithLabelValues(string(event.Type)).Inc()
	}

	var stuck []*Subscriber

	h.mu.RLock()
	if h.closed {
		h.mu.RUnlock()
		return
	}
	for sub := range h.subscribers {
		select {
		case sub.ch <- event:
		default:
			// buffer full: wait a bounded moment, then give up on this observer
			timer := time.NewTimer(h.sendTimeout)
			select {
			case sub.ch <- event:
				timer.Stop()
			case <-timer.C:
				stuck = append(stuck, sub)
			}
		}
	}
	h.mu.RUnlock()

	for _, sub := range stuck {
		h.unsubscribe(sub)
		if h.metrics != nil {
			h.metrics.ObserversDropped.Inc()
		}
		h.logger.Warn("dropped stuck observer",
			zap.String("event_id", event.ID),
			zap.String("event_type", string(event.Type)))
	}
}

// Len returns the number of connected observers.
func (h *Hub) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subscribers)
}

// Close drops every observer and rejects further publishes.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return
	}
	h.closed = true
	for sub := range h.subscribers {
		sub.once.Do(func() { close(sub.ch) })
	}
	h.subscribers = make(map[*Subscriber]struct{})
}

func (h *Hub) unsubscribe(sub *Subscriber) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.subscribers[sub]; !ok {
		// already removed by a concurrent drop or hub close
		return
	}
	delete(h.subscribers, sub)
	sub.once.Do(func() { close(sub.ch) })
}
