package worker

// Option applies a configuration option to a worker.
type Option func(*InMemoryWorker)

// WithName sets the worker's name for logging.
func WithName(name string) Option {
	return func(w *InMemoryWorker) {
		if name != "" {
			w.name = name
		}
	}
}

// WithAutoAssign hands each freshly opened case to fn. Used for
// round-robin analyst assignment.
func WithAutoAssign(fn AssignFunc) Option {
	return func(w *InMemoryWorker) {
		w.assign = fn
	}
}
