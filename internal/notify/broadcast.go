package notify

import (
	"context"
	"sync"
)

// Broadcaster fans events out to live subscribers, typically SSE streams.
// Slow subscribers miss events rather than holding up delivery.
type Broadcaster struct {
	mu   sync.Mutex
	subs map[chan Event]string
}

// NewBroadcaster creates an empty Broadcaster.
func NewBroadcaster() *Broadcaster {
	return &Broadcaster{subs: make(map[chan Event]string)}
}

// Subscribe registers a subscriber. An empty userID receives every event;
// otherwise only that user's events are forwarded. The returned cancel
// function must be called to release the subscription.
func (b *Broadcaster) Subscribe(userID string, buffer int) (<-chan Event, func()) {
	ch := make(chan Event, buffer)
	b.mu.Lock()
	b.subs[ch] = userID
	b.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			b.mu.Lock()
			delete(b.subs, ch)
			b.mu.Unlock()
			close(ch)
		})
	}
}

// Subscribers returns the number of live subscriptions.
func (b *Broadcaster) Subscribers() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.subs)
}

func (b *Broadcaster) Deliver(_ context.Context, ev Event) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	for ch, userID := range b.subs {
		if userID != "" && userID != ev.UserID {
			continue
		}
		select {
		case ch <- ev:
		default:
		}
	}
	return nil
}
