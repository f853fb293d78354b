package broker

import (
	"context"
	"sync"
	"sync/atomic"
	"time"
)

// MemoryBroker is an in-process broker for single node deployments.
// A subscriber whose buffer is full misses the payload, like a slow Redis
// subscriber would.
type MemoryBroker struct {
	mu      sync.RWMutex
	subs    map[string]map[*memorySubscription]struct{}
	buffer  int
	dropped atomic.Int64
}

func NewMemoryBroker(buffer int) *MemoryBroker {
	if buffer < 1 {
		buffer = 1
	}
	return &MemoryBroker{
		subs:   make(map[string]map[*memorySubscription]struct{}),
		buffer: buffer,
	}
}

func (b *MemoryBroker) Publish(ctx context.Context, topic string, payload []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	msg := Message{Topic: topic, Payload: append([]byte(nil), payload...)}

	b.mu.RLock()
	defer b.mu.RUnlock()
	for sub := range b.subs[topic] {
		select {
		case sub.ch <- msg:
		default:
			b.dropped.Add(1)
		}
	}
	return nil
}

func (b *MemoryBroker) Subscribe(ctx context.Context, topics ...string) (Subscription, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	sub := &memorySubscription{
		broker: b,
		topics: dedupe(topics),
		ch:     make(chan Message, b.buffer),
		done:   make(chan struct{}),
	}

	b.mu.Lock()
	for _, t := range sub.topics {
		if b.subs[t] == nil {
			b.subs[t] = make(map[*memorySubscription]struct{})
		}
		b.subs[t][sub] = struct{}{}
	}
	b.mu.Unlock()

	return sub, nil
}

// Subscribers returns the number of live subscriptions on topic.
func (b *MemoryBroker) Subscribers(topic string) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs[topic])
}

// Dropped returns how many payloads were discarded because a subscriber was full.
func (b *MemoryBroker) Dropped() int64 {
	return b.dropped.Load()
}

func (b *MemoryBroker) remove(sub *memorySubscription) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, t := range sub.topics {
		delete(b.subs[t], sub)
		if len(b.subs[t]) == 0 {
			delete(b.subs, t)
		}
	}
}

type memorySubscription struct {
	broker    *MemoryBroker
	topics    []string
	ch        chan Message
	done      chan struct{}
	closeOnce sync.Once
}

func (s *memorySubscription) Receive(ctx context.Context, wait time.Duration) (*Message, error) {
	timer := time.NewTimer(wait)
	defer timer.Stop()

	select {
	case msg := <-s.ch:
		return &msg, nil
	case <-s.done:
		return nil, ErrClosed
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-timer.C:
		return nil, nil
	}
}

func (s *memorySubscription) Topics() []string {
	return append([]string(nil), s.topics...)
}

func (s *memorySubscription) Close() error {
	s.closeOnce.Do(func() {
		s.broker.remove(s)
		close(s.done)
	})
	return nil
}
