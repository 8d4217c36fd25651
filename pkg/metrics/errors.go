package metrics

import (
	"errors"
)

// Sentinel kinds for metrics errors.
var (
	// ErrObserveFailed wraps failures to record an observation on a
	// collector, e.g. a label cardinality mismatch.
	ErrObserveFailed = errors.New("metrics observe failed")
)
