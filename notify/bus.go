// Package notify implements the notification fan-out (C6): routing-key
// derivation from a pattern, and best-effort delivery of a completed
// call's event to subscriber transports plus a process-wide local
// emitter, detached from the caller's result.
//
// No single teacher file is a pure in-process pub/sub bus, so Bus is
// built directly from the spec's description using the same
// sync.RWMutex-map idiom the teacher uses throughout its
// infrastructure layer (FormatRegistry / DefaultFormatRegistry).
package notify

import (
	"strings"
	"sync"
)

// Subscription is a handler registered against a dotted topic
// pattern. Segments of "*" match exactly one routing-key segment;
// a trailing "#" matches zero or more remaining segments.
type Subscription struct {
	id      uint64
	topic   string
	handler func(routingKey string, message any)
}

// Bus is a process-wide publish/subscribe hub keyed by dotted routing
// keys derived from a pattern (§3). Its lifetime equals the owning
// Instance's lifetime.
type Bus struct {
	mu   sync.RWMutex
	subs map[uint64]Subscription
	seq  uint64
}

// NewBus builds an empty Bus.
func NewBus() *Bus {
	return &Bus{subs: make(map[uint64]Subscription)}
}

// Subscribe registers handler against topic, returning an id that
// Unsubscribe accepts.
func (b *Bus) Subscribe(topic string, handler func(routingKey string, message any)) uint64 {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.seq++
	b.subs[b.seq] = Subscription{id: b.seq, topic: topic, handler: handler}
	return b.seq
}

// Unsubscribe removes a subscription by id. Idempotent.
func (b *Bus) Unsubscribe(id uint64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.subs, id)
}

// Publish delivers message to every subscription whose topic matches
// routingKey. Handlers run synchronously on the caller's goroutine —
// callers that need detachment (the dispatcher's fan-out, §4.6) run
// Publish itself in its own goroutine.
func (b *Bus) Publish(routingKey string, message any) {
	b.mu.RLock()
	matched := make([]Subscription, 0, len(b.subs))
	for _, s := range b.subs {
		if topicMatches(s.topic, routingKey) {
			matched = append(matched, s)
		}
	}
	b.mu.RUnlock()

	for _, s := range matched {
		s.handler(routingKey, message)
	}
}

// topicMatches reports whether routingKey matches topic under
// AMQP-style wildcard rules: "*" matches exactly one segment, a
// trailing "#" matches zero or more remaining segments.
func topicMatches(topic, routingKey string) bool {
	topicSegs := strings.Split(topic, ".")
	keySegs := strings.Split(routingKey, ".")

	for i, t := range topicSegs {
		if t == "#" {
			return true
		}
		if i >= len(keySegs) {
			return false
		}
		if t != "*" && t != keySegs[i] {
			return false
		}
	}

	return len(topicSegs) == len(keySegs)
}
