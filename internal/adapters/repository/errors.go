package repository

import "errors"

// Sentinel kinds for repository errors.
var (
	ErrCaseNotFound  = errors.New("case not found")
	ErrDuplicateCase = errors.New("open case already exists for transaction")
	ErrCaseArchived  = errors.New("case already archived")
	ErrInvalidLimit  = errors.New("invalid queue limit")
)
