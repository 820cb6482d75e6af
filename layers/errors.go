package layers

import "fmt"

// ConnectionError indicates that two graphs (or a layer and its input) cannot
// be wired together: incompatible shapes, ambiguous many-to-many boundaries, or
// a merge that would create a cycle.
type ConnectionError struct {
	err error
}

// Error implements the error interface.
func (e *ConnectionError) Error() string { return e.err.Error() }

// Unwrap returns the underlying error.
func (e *ConnectionError) Unwrap() error { return e.err }

// Connectionf creates a *ConnectionError with a formatted message.
func Connectionf(format string, args ...any) error {
	return &ConnectionError{err: fmt.Errorf(format, args...)}
}

// NotFoundError indicates a layer lookup by name that resolved to zero or more
// than one layer.
type NotFoundError struct {
	err error
}

// Error implements the error interface.
func (e *NotFoundError) Error() string { return e.err.Error() }

// Unwrap returns the underlying error.
func (e *NotFoundError) Unwrap() error { return e.err }

// NotFoundf creates a *NotFoundError with a formatted message.
func NotFoundf(format string, args ...any) error {
	return &NotFoundError{err: fmt.Errorf(format, args...)}
}
