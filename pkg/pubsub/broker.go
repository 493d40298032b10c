package pubsub

import (
	"context"
	"sync"
	"time"

	"github.com/edrive/ride-hailing/pkg/logger"
)

// Event is one message delivered to subscribers of a topic
type Event struct {
	Topic string      `json:"topic"`
	Type  string      `json:"type"`
	Data  interface{} `json:"data"`
	At    time.Time   `json:"at"`
}

// Broker fans events out to in-process subscribers. Publishing never blocks:
// a subscriber whose buffer is full misses the event.
type Broker struct {
	mu         sync.RWMutex
	topics     map[string]map[*Subscription]struct{}
	bufferSize int
	logger     *logger.Logger
	onDrop     func(topic string)
}

// Option configures a Broker
type Option func(*Broker)

// WithBufferSize sets the per-subscription channel capacity
func WithBufferSize(n int) Option {
	return func(b *Broker) {
		if n > 0 {
			b.bufferSize = n
		}
	}
}

// WithDropHook is called for every event dropped on a full subscriber
func WithDropHook(fn func(topic string)) Option {
	return func(b *Broker) { b.onDrop = fn }
}

// NewBroker creates a broker
func NewBroker(log *logger.Logger, opts ...Option) *Broker {
	b := &Broker{
		topics:     make(map[string]map[*Subscription]struct{}),
		bufferSize: 64,
		logger:     log,
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Subscription is a handle on one or more topics. After Unsubscribe returns
// nothing more is delivered and C is closed.
type Subscription struct {
	broker *Broker
	topics []string
	ch     chan Event
	done   chan struct{}
	closed bool
}

// C returns the delivery channel
func (s *Subscription) C() <-chan Event {
	return s.ch
}

// Done is closed once the subscription is cancelled
func (s *Subscription) Done() <-chan struct{} {
	return s.done
}

// Topics returns the subscribed topics
func (s *Subscription) Topics() []string {
	return s.topics
}

// Unsubscribe releases the subscription. Safe to call more than once.
func (s *Subscription) Unsubscribe() {
	b := s.broker
	b.mu.Lock()
	defer b.mu.Unlock()

	if s.closed {
		return
	}
	s.closed = true

	for _, topic := range s.topics {
		subs := b.topics[topic]
		delete(subs, s)
		if len(subs) == 0 {
			delete(b.topics, topic)
		}
	}

	// Discard anything still buffered so readers see no events after this point.
	for {
		select {
		case <-s.ch:
			continue
		default:
		}
		break
	}
	close(s.ch)
	close(s.done)
}

// Subscribe registers a subscription on the given topics
func (b *Broker) Subscribe(topics ...string) *Subscription {
	s := &Subscription{
		broker: b,
		topics: topics,
		ch:     make(chan Event, b.bufferSize),
		done:   make(chan struct{}),
	}

	b.mu.Lock()
	for _, topic := range topics {
		subs, ok := b.topics[topic]
		if !ok {
			subs = make(map[*Subscription]struct{})
			b.topics[topic] = subs
		}
		subs[s] = struct{}{}
	}
	b.mu.Unlock()

	return s
}

// SubscribeContext is Subscribe bound to ctx: the subscription is released
// when ctx is done.
func (b *Broker) SubscribeContext(ctx context.Context, topics ...string) *Subscription {
	s := b.Subscribe(topics...)
	go func() {
		select {
		case <-ctx.Done():
			s.Unsubscribe()
		case <-s.done:
		}
	}()
	return s
}

// Publish delivers an event to every current subscriber of topic
func (b *Broker) Publish(topic, eventType string, data interface{}) {
	ev := Event{Topic: topic, Type: eventType, Data: data, At: time.Now().UTC()}

	b.mu.RLock()
	defer b.mu.RUnlock()

	for s := range b.topics[topic] {
		select {
		case s.ch <- ev:
		default:
			if b.onDrop != nil {
				b.onDrop(topic)
			}
			if b.logger != nil {
				b.logger.Warn("Subscriber buffer full, event dropped",
					logger.String("topic", topic),
					logger.String("type", eventType),
				)
			}
		}
	}
}

// Subscribers returns the number of live subscriptions on topic
func (b *Broker) Subscribers(topic string) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.topics[topic])
}
