package caseflow

import "errors"

// Sentinel kinds for case lifecycle errors.
var (
	// ErrInvalidTransition marks an event that is not legal in the case's
	// current state.
	ErrInvalidTransition = errors.New("invalid case transition")

	// ErrCaseClosed marks an event applied to a resolved case.
	ErrCaseClosed = errors.New("case already resolved")

	// ErrStopped marks an event applied after the machine shut down.
	ErrStopped = errors.New("case machine stopped")
)
