package auth

import "sync"

const subscriberBuffer = 8

// Broker fans session events out to subscribers. Slow subscribers miss
// events rather than block publishers.
type Broker struct {
	mu     sync.Mutex
	nextID int
	subs   map[int]chan SessionEvent
}

func NewBroker() *Broker {
	return &Broker{subs: make(map[int]chan SessionEvent)}
}

// Subscribe returns the event channel and a cancel func that closes it.
func (b *Broker) Subscribe() (<-chan SessionEvent, func()) {
	b.mu.Lock()
	defer b.mu.Unlock()

	id := b.nextID
	b.nextID++
	ch := make(chan SessionEvent, subscriberBuffer)
	b.subs[id] = ch

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			b.mu.Lock()
			defer b.mu.Unlock()
			delete(b.subs, id)
			close(ch)
		})
	}
}

func (b *Broker) Publish(e SessionEvent) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, ch := range b.subs {
		select {
		case ch <- e:
		default:
		}
	}
}
