// Package bus is a small in-process publish/subscribe channel with typed
// topics. It replaces ambient global broadcasts with an injectable emitter:
// components receive a *Bus and subscribe to the topics they care about.
package bus

import (
	"context"
	"sync"

	"golang.org/x/sync/errgroup"
)

// Topic names a message stream.
type Topic string

// Topics published by the generation client.
const (
	TopicGenerationComplete Topic = "generationComplete"
	TopicCreditsUpdated     Topic = "creditsUpdated"
)

// Message pairs a topic with its payload.
type Message struct {
	Topic   Topic
	Payload any
}

type subscription struct {
	ch   chan Message
	done chan struct{}
}

// Bus fans messages out to per-topic subscribers.
type Bus struct {
	mu   sync.RWMutex
	subs map[Topic][]*subscription
}

// New creates an empty bus.
func New() *Bus {
	return &Bus{subs: make(map[Topic][]*subscription)}
}

// Subscribe registers a buffered channel for the topic and returns it along
// with an unsubscribe function. Unsubscribing stops delivery immediately,
// even for a publish currently blocked on this subscriber; the channel
// itself is never closed, so late reads simply find it empty.
func (b *Bus) Subscribe(topic Topic, buffer int) (<-chan Message, func()) {
	if buffer <= 0 {
		buffer = 1
	}
	sub := &subscription{
		ch:   make(chan Message, buffer),
		done: make(chan struct{}),
	}
	b.mu.Lock()
	b.subs[topic] = append(b.subs[topic], sub)
	b.mu.Unlock()

	var once sync.Once
	unsubscribe := func() {
		once.Do(func() {
			b.mu.Lock()
			subs := b.subs[topic]
			for i, s := range subs {
				if s == sub {
					b.subs[topic] = append(subs[:i], subs[i+1:]...)
					break
				}
			}
			b.mu.Unlock()
			close(sub.done)
		})
	}
	return sub.ch, unsubscribe
}

// Publish delivers the payload to every subscriber of the topic. Delivery
// happens outside the bus lock over a snapshot of the subscriber list, so a
// slow subscriber can still unsubscribe while a publish is waiting on it.
func (b *Bus) Publish(ctx context.Context, topic Topic, payload any) error {
	b.mu.RLock()
	subs := make([]*subscription, len(b.subs[topic]))
	copy(subs, b.subs[topic])
	b.mu.RUnlock()
	if len(subs) == 0 {
		return nil
	}

	msg := Message{Topic: topic, Payload: payload}
	g, ctx := errgroup.WithContext(ctx)
	for _, sub := range subs {
		sub := sub
		g.Go(func() error {
			select {
			case sub.ch <- msg:
				return nil
			case <-sub.done:
				return nil
			case <-ctx.Done():
				return ctx.Err()
			}
		})
	}
	return g.Wait()
}
