package messaging

import (
	"errors"
	"fmt"
	"sync"
	"time"
)

// SimpleBroker implements the Broker interface.
// subscribers maps subscriber ids to the channel their events go to.
type SimpleBroker struct {
	subscribers map[string]chan<- Event
	mu          sync.RWMutex
}

// NewBroker creates a new event broker
func NewBroker() *SimpleBroker {
	return &SimpleBroker{
		subscribers: make(map[string]chan<- Event),
	}
}

// Publish sends ev to every subscriber without blocking. Subscribers whose
// channel is full miss the event and are reported in the returned error.
func (b *SimpleBroker) Publish(ev Event) error {
	if ev.Timestamp.IsZero() {
		ev.Timestamp = time.Now()
	}

	b.mu.RLock()
	defer b.mu.RUnlock()

	var errs []error
	for id, ch := range b.subscribers {
		select {
		case ch <- ev:
		default:
			errs = append(errs, fmt.Errorf("subscriber %s's channel is full", id))
		}
	}
	return errors.Join(errs...)
}

// Subscribe registers ch to receive events
func (b *SimpleBroker) Subscribe(id string, ch chan<- Event) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if _, exists := b.subscribers[id]; exists {
		return fmt.Errorf("%s is already subscribed", id)
	}

	b.subscribers[id] = ch
	return nil
}

// Unsubscribe removes a subscription
func (b *SimpleBroker) Unsubscribe(id string) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if _, exists := b.subscribers[id]; !exists {
		return fmt.Errorf("%s is not subscribed", id)
	}

	delete(b.subscribers, id)
	return nil
}

func (b *SimpleBroker) Reset() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.subscribers = make(map[string]chan<- Event)
}
