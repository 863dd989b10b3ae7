package errors

import "errors"

var (
	// ErrNotFound is a generic sentinel for missing resources.
	ErrNotFound = errors.New("not found")
	// ErrInvalidArgument is a generic sentinel for invalid input.
	ErrInvalidArgument = errors.New("invalid argument")
	// ErrConflict signals an action attempted against a record that is no
	// longer in the expected state (e.g. accepting a resolved handoff).
	ErrConflict = errors.New("state conflict")
)
