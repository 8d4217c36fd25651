// Package dedupe defines the interface for idempotency tracking.
package dedupe

// Option applies a configuration option to the InMemoryDeduper.
type Option func(*inMemoryDeduper)

// WithMaxSize bounds the number of remembered ids. The decision engine and
// the feedback publisher each run their own bounded cache so a redelivered
// transaction or resolution is absorbed without a second side effect.
// maxSize > 0 enables LIFO eviction; maxSize <= 0 keeps every id.
func WithMaxSize(maxSize int) Option {
	return func(d *inMemoryDeduper) {
		d.maxSize = maxSize
	}
}
