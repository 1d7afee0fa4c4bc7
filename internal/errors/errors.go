// Package errors provides application error types shared across layers.
package errors

import "fmt"

// NotFoundError is returned when a requested resource does not exist.
type NotFoundError struct {
	Resource string
	Message  string
}

// Error implements the error interface.
func (e *NotFoundError) Error() string {
	if e.Message != "" {
		return e.Message
	}

	if e.Resource != "" {
		return fmt.Sprintf("%s not found", e.Resource)
	}

	return "resource not found"
}

// Is matches any *NotFoundError regardless of resource, so callers can use
// errors.Is(err, &NotFoundError{}).
func (e *NotFoundError) Is(target error) bool {
	_, ok := target.(*NotFoundError)
	return ok
}

// NewNotFoundError creates a NotFoundError for the given resource.
func NewNotFoundError(resource, message string) *NotFoundError {
	return &NotFoundError{Resource: resource, Message: message}
}
