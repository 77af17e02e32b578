package ui

import "errors"

var (
	// ErrInvalidConfig wraps every Config validation failure.
	ErrInvalidConfig = errors.New("ui: invalid configuration")

	// ErrClientRequired is the panic value of UIHandler and APIHandler
	// when called with a nil client.
	ErrClientRequired = errors.New("ui: client is required")
)
