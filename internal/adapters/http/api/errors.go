package api

import "errors"

// Sentinel kinds for API errors.
var (
	ErrBadRequest = errors.New("bad request")

	errInvalidTS    = errors.New("invalid ts; must be RFC3339")
	errInvalidLimit = errors.New("limit must be a positive integer")
)
