// Package signal implements the in-process change-notification bus that the
// stores broadcast on. Topics are plain strings; listeners receive events
// synchronously, in subscription order, after the triggering mutation has
// fully applied.
package signal

import (
	"sort"
	"sync"
)

// Event is a single broadcast on a topic.
type Event struct {
	Topic   string
	Payload any
}

// Handler consumes events for one subscription.
type Handler func(Event)

// Bus is a topic-keyed publish/subscribe hub. The zero value is not usable;
// create one with NewBus.
type Bus struct {
	mu     sync.Mutex
	nextID int
	subs   map[string]map[int]Handler
}

// NewBus creates an empty bus.
func NewBus() *Bus {
	return &Bus{subs: make(map[string]map[int]Handler)}
}

// Subscription is the handle returned by Subscribe. Cancel detaches the
// handler; every Subscribe during attach must Cancel during detach to avoid
// leaking handlers across a component's lifecycle.
type Subscription struct {
	bus   *Bus
	topic string
	id    int
	once  sync.Once
}

// Cancel removes the subscription. Safe to call more than once.
func (s *Subscription) Cancel() {
	s.once.Do(func() {
		s.bus.mu.Lock()
		defer s.bus.mu.Unlock()
		if handlers, ok := s.bus.subs[s.topic]; ok {
			delete(handlers, s.id)
			if len(handlers) == 0 {
				delete(s.bus.subs, s.topic)
			}
		}
	})
}

// Subscribe registers fn for events published on topic.
func (b *Bus) Subscribe(topic string, fn Handler) *Subscription {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.nextID++
	id := b.nextID
	if b.subs[topic] == nil {
		b.subs[topic] = make(map[int]Handler)
	}
	b.subs[topic][id] = fn

	return &Subscription{bus: b, topic: topic, id: id}
}

// Publish delivers an event to every current subscriber of topic. Delivery
// is synchronous and in subscription order; handlers run without the bus
// lock held, so they may subscribe or cancel freely.
func (b *Bus) Publish(topic string, payload any) {
	b.mu.Lock()
	handlers := b.subs[topic]
	ids := make([]int, 0, len(handlers))
	for id := range handlers {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	ordered := make([]Handler, len(ids))
	for i, id := range ids {
		ordered[i] = handlers[id]
	}
	b.mu.Unlock()

	ev := Event{Topic: topic, Payload: payload}
	for _, fn := range ordered {
		fn(ev)
	}
}

// SubscriberCount returns the number of active subscriptions on topic.
func (b *Bus) SubscriberCount(topic string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.subs[topic])
}
