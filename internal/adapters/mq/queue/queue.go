// Package queue defines the contract for enqueuing and consuming pipeline
// messages.
//
// One generic bounded implementation backs every topic in the service: the
// decision bus, the case snapshot topic, the feedback topic, the alert
// channel and the feedback dead-letter queue. Backpressure is signaled by a
// false return from Enqueue, never by blocking the producer.
package queue

import (
	"context"
	"sync"
	"time"

	"github.com/okian/vigil/pkg/metrics"
)

// Default queue configuration constants.
const (
	defaultCapacity = 100000
)

// Queue provides non-blocking enqueue and channel-based dequeue semantics.
type Queue[T any] interface {
	// Enqueue adds a message to the queue.
	// Returns false if the queue is full or closed and the message was not
	// enqueued.
	Enqueue(ctx context.Context, msg T) bool

	// Dequeue returns a channel that will receive messages as they become
	// available. The channel is closed when the queue is closed.
	Dequeue(ctx context.Context) <-chan T

	// Len returns the current number of queued messages.
	Len(ctx context.Context) int

	// Close gracefully shuts down the queue. After closing, no new messages
	// can be enqueued and the dequeue channel will be closed.
	Close() error

	// IsClosed returns true if the queue has been closed.
	IsClosed() bool
}

// InMemory implements Queue using a buffered channel.
type InMemory[T any] struct {
	topic    string
	messages chan T
	capacity int
	mu       sync.RWMutex
	closed   bool
}

// NewInMemory creates a new in-memory queue for the named topic.
func NewInMemory[T any](topic string, opts ...Option[T]) *InMemory[T] {
	q := &InMemory[T]{
		topic:    topic,
		capacity: defaultCapacity,
	}

	for _, opt := range opts {
		opt(q)
	}

	q.messages = make(chan T, q.capacity)

	metrics.UpdateQueueCapacity(q.topic, q.capacity)
	metrics.UpdateQueueSize(q.topic, 0)

	return q
}

// Topic returns the queue's topic name.
func (q *InMemory[T]) Topic() string {
	return q.topic
}

// Enqueue adds a message to the queue.
func (q *InMemory[T]) Enqueue(ctx context.Context, msg T) bool {
	q.mu.RLock()
	defer q.mu.RUnlock()

	if q.closed {
		metrics.RecordQueueEnqueueError(q.topic, "closed")
		return false
	}

	select {
	case q.messages <- msg:
		metrics.RecordQueueEnqueue(q.topic)
		metrics.UpdateQueueSize(q.topic, len(q.messages))
		return true
	case <-ctx.Done():
		metrics.RecordQueueEnqueueError(q.topic, "context_cancelled")
		return false
	default:
		metrics.RecordQueueEnqueueError(q.topic, "queue_full")
		return false
	}
}

// Dequeue returns a channel that will receive messages as they become
// available.
func (q *InMemory[T]) Dequeue(ctx context.Context) <-chan T {
	out := make(chan T)
	go func() {
		defer close(out)
		for msg := range q.messages {
			select {
			case out <- msg:
				metrics.RecordQueueDequeue(q.topic)
				metrics.UpdateQueueSize(q.topic, len(q.messages))
			case <-ctx.Done():
				return
			}
		}
	}()
	return out
}

// TryDequeue removes and returns one message without blocking. The second
// return is false when the queue is empty.
func (q *InMemory[T]) TryDequeue(ctx context.Context) (T, bool) {
	select {
	case msg, ok := <-q.messages:
		if ok {
			metrics.RecordQueueDequeue(q.topic)
			metrics.UpdateQueueSize(q.topic, len(q.messages))
		}
		return msg, ok
	default:
		var zero T
		return zero, false
	}
}

// Len returns the current number of queued messages.
func (q *InMemory[T]) Len(_ context.Context) int {
	size := len(q.messages)
	metrics.UpdateQueueSize(q.topic, size)
	return size
}

// Close gracefully shuts down the queue.
func (q *InMemory[T]) Close() error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return nil
	}

	close(q.messages)
	q.closed = true

	return nil
}

// IsClosed returns true if the queue has been closed.
func (q *InMemory[T]) IsClosed() bool {
	q.mu.RLock()
	defer q.mu.RUnlock()
	return q.closed
}

// Drain collects messages until the queue is empty or the deadline passes.
// Intended for consumers that poll a topic, e.g. the alert sink.
func (q *InMemory[T]) Drain(ctx context.Context, max int, wait time.Duration) []T {
	out := make([]T, 0, max)
	deadline := time.NewTimer(wait)
	defer deadline.Stop()
	for len(out) < max {
		select {
		case msg, ok := <-q.messages:
			if !ok {
				return out
			}
			metrics.RecordQueueDequeue(q.topic)
			out = append(out, msg)
		case <-deadline.C:
			return out
		case <-ctx.Done():
			return out
		}
	}
	return out
}
