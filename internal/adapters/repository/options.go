package repository

import "time"

// Default review queue configuration.
const (
	defaultSnapshotInterval = 1 * time.Second
)

// QueueOption applies a configuration option to the ReviewQueue.
type QueueOption func(*ReviewQueue)

// WithSnapshotInterval sets how often the queue publishes an immutable
// snapshot for lock-free reads.
func WithSnapshotInterval(interval time.Duration) QueueOption {
	return func(q *ReviewQueue) {
		if interval > 0 {
			q.snapshotInterval = interval
		}
	}
}
