// Package queue defines the contract for enqueuing and consuming pipeline
// messages.
package queue

// Option applies a configuration option to the InMemory queue.
type Option[T any] func(*InMemory[T])

// WithCapacity sets the maximum capacity of the queue.
func WithCapacity[T any](capacity int) Option[T] {
	return func(q *InMemory[T]) {
		if capacity > 0 {
			q.capacity = capacity
		}
	}
}
