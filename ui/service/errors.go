package service

import "errors"

// Service package errors.
var (
	// ErrNotFound indicates a resource was not found.
	ErrNotFound = errors.New("service: not found")
)

// FormError is a failure with the exact text shown to the operator.
type FormError struct {
	Message string
	Err     error
}

// Error implements the error interface.
func (e *FormError) Error() string {
	return e.Message
}

// Unwrap returns the underlying error.
func (e *FormError) Unwrap() error {
	return e.Err
}

func formError(message string, err error) *FormError {
	return &FormError{Message: message, Err: err}
}

// Message returns the operator-facing text of err.
func Message(err error) string {
	var fe *FormError
	if errors.As(err, &fe) {
		return fe.Message
	}
	return err.Error()
}
