package events

import (
	"sync"
	"time"
)

// Event represents a system event
type Event struct {
	Timestamp time.Time `json:"timestamp"`
	Data      EventData `json:"data"`
	Type      EventType `json:"type"`
	Module    string    `json:"module"`
	AccountID int64     `json:"account_id,omitempty"`
}

// subscriberBuffer is how many events a slow subscriber may lag before events are dropped for it
const subscriberBuffer = 32

// Bus fans events out to subscribers. Publishing never blocks: a subscriber
// whose buffer is full misses the event.
type Bus struct {
	subs   map[uint64]*subscription
	nextID uint64
	mu     sync.RWMutex
}

type subscription struct {
	ch     chan Event
	filter func(Event) bool
}

// NewBus creates an empty bus
func NewBus() *Bus {
	return &Bus{subs: make(map[uint64]*subscription)}
}

// Subscribe registers a subscriber. filter may be nil to receive everything.
// The returned cancel func unsubscribes and closes the channel.
func (b *Bus) Subscribe(filter func(Event) bool) (<-chan Event, func()) {
	b.mu.Lock()
	defer b.mu.Unlock()

	id := b.nextID
	b.nextID++
	sub := &subscription{ch: make(chan Event, subscriberBuffer), filter: filter}
	b.subs[id] = sub

	var once sync.Once
	return sub.ch, func() {
		once.Do(func() {
			b.mu.Lock()
			delete(b.subs, id)
			b.mu.Unlock()
			close(sub.ch)
		})
	}
}

// Publish delivers e to every matching subscriber
func (b *Bus) Publish(e Event) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	for _, sub := range b.subs {
		if sub.filter != nil && !sub.filter(e) {
			continue
		}
		select {
		case sub.ch <- e:
		default:
		}
	}
}

// SubscriberCount returns the number of active subscribers
func (b *Bus) SubscriberCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs)
}
