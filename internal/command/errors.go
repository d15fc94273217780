package command

import "errors"

// Domain-specific errors for command registration.
// Use errors.Is() to check for these errors in calling code.
var (
	// ErrDuplicateName is returned when a command or variable name is
	// already registered.
	ErrDuplicateName = errors.New("command: name already registered")

	// ErrInvalidName is returned for empty names or names containing
	// whitespace, '=' or '?'.
	ErrInvalidName = errors.New("command: invalid name")

	// ErrNilHandler is returned when a nil command function or getter is
	// registered.
	ErrNilHandler = errors.New("command: handler cannot be nil")
)
