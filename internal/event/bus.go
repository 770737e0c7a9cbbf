package event

import "sync"

// Handler receives a published event. Handlers run synchronously on the
// publishing goroutine and must not block.
type Handler func(Event)

type subscriber struct {
	id      int
	handler Handler
}

// Bus is an observer registry. Every subscriber receives every event in
// emission order; Subscribe returns an unsubscribe handle.
type Bus struct {
	mu        sync.Mutex
	deliverMu sync.Mutex
	nextID    int
	subs      []subscriber
}

func NewBus() *Bus {
	return &Bus{}
}

// Subscribe registers a handler and returns a function that removes it.
// Unsubscribing twice is a no-op.
func (b *Bus) Subscribe(handler Handler) func() {
	if handler == nil {
		return func() {}
	}
	b.mu.Lock()
	id := b.nextID
	b.nextID++
	b.subs = append(b.subs, subscriber{id: id, handler: handler})
	b.mu.Unlock()
	return func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		for i, sub := range b.subs {
			if sub.id == id {
				b.subs = append(b.subs[:i], b.subs[i+1:]...)
				return
			}
		}
	}
}

// Publish delivers the event to all current subscribers in subscription
// order. Deliveries are serialized so each subscriber observes events in
// emission order even when publishers race.
func (b *Bus) Publish(evt Event) {
	b.deliverMu.Lock()
	defer b.deliverMu.Unlock()
	b.mu.Lock()
	subs := make([]subscriber, len(b.subs))
	copy(subs, b.subs)
	b.mu.Unlock()
	for _, sub := range subs {
		sub.handler(evt)
	}
}

// SubscriberCount reports how many handlers are registered.
func (b *Bus) SubscriberCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.subs)
}
