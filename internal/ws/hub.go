package ws

import (
	"context"
	"sync"
)

// Subscription is one live feed of a topic. Receive from C; call Cancel
// exactly when done — an abandoned subscription keeps receiving events and
// is never freed.
type Subscription struct {
	C     <-chan Event
	c     chan Event
	topic string
	hub   *Hub
	once  sync.Once
}

// Cancel detaches the subscription and closes its channel. Safe to call
// more than once.
func (s *Subscription) Cancel() {
	s.once.Do(func() {
		s.hub.drop(s)
		close(s.c)
	})
}

// Hub fans events out to in-process subscribers, keyed by topic. Slow
// subscribers lose events rather than block publishers; callers that need
// the full history read the store, the hub only signals liveness.
type Hub struct {
	mu   sync.RWMutex
	subs map[string]map[*Subscription]struct{}
}

func NewHub() *Hub {
	return &Hub{subs: map[string]map[*Subscription]struct{}{}}
}

// Subscribe registers a feed for topic with the given channel capacity.
func (h *Hub) Subscribe(topic string, buffer int) *Subscription {
	if buffer <= 0 {
		buffer = 64
	}
	c := make(chan Event, buffer)
	s := &Subscription{C: c, c: c, topic: topic, hub: h}

	h.mu.Lock()
	if h.subs[topic] == nil {
		h.subs[topic] = map[*Subscription]struct{}{}
	}
	h.subs[topic][s] = struct{}{}
	h.mu.Unlock()

	return s
}

// Broadcast delivers ev to every current subscriber of topic.
func (h *Hub) Broadcast(topic string, ev Event) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for s := range h.subs[topic] {
		select {
		case s.c <- ev:
		default:
			// subscriber is not draining; drop instead of blocking the bus
		}
	}
}

func (h *Hub) drop(s *Subscription) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if set, ok := h.subs[s.topic]; ok {
		delete(set, s)
		if len(set) == 0 {
			delete(h.subs, s.topic)
		}
	}
}

// LocalBus publishes straight into the hub, bypassing any external broker.
// Single-process deployments and tests use it as the event bus.
type LocalBus struct {
	Hub *Hub
}

func (b *LocalBus) Publish(ctx context.Context, topic string, ev Event) error {
	b.Hub.Broadcast(topic, ev)
	return nil
}
