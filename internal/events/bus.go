package events

import (
	"sync"

	"github.com/PizzaHomicide/crossplay/internal/player"
)

// subscriberBuffer is how many notifications a slow subscriber may lag behind before it starts missing them
const subscriberBuffer = 32

// Subscriber receives notifications
type Subscriber chan player.Notification

// Bus fans player notifications out to any number of in-process subscribers.  Publishing never blocks, a subscriber
// whose buffer is full misses the notification.
type Bus struct {
	mu   sync.RWMutex
	subs map[Subscriber]map[player.Event]bool
}

func NewBus() *Bus {
	return &Bus{subs: make(map[Subscriber]map[player.Event]bool)}
}

// Subscribe registers a subscriber for the given events, or for every event when none are given
func (b *Bus) Subscribe(evs ...player.Event) Subscriber {
	ch := make(Subscriber, subscriberBuffer)
	var filter map[player.Event]bool
	if len(evs) > 0 {
		filter = make(map[player.Event]bool, len(evs))
		for _, ev := range evs {
			filter[ev] = true
		}
	}
	b.mu.Lock()
	b.subs[ch] = filter
	b.mu.Unlock()
	return ch
}

// Publish delivers n to every interested subscriber.  It has the player.Handler signature so it can observe a player.
func (b *Bus) Publish(n player.Notification) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	for sub, filter := range b.subs {
		if filter != nil && !filter[n.Event] {
			continue
		}
		select {
		case sub <- n:
		default:
		}
	}
}

// Unsubscribe removes the subscriber and closes its channel
func (b *Bus) Unsubscribe(sub Subscriber) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, ok := b.subs[sub]; !ok {
		return
	}
	delete(b.subs, sub)
	close(sub)
}

// Close unsubscribes everyone
func (b *Bus) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	for sub := range b.subs {
		close(sub)
	}
	b.subs = make(map[Subscriber]map[player.Event]bool)
}
