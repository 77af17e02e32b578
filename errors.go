package agentdesk

import (
	"errors"
	"fmt"
)

// Common errors
var (
	// ErrInvalidConfig is returned when the client configuration is invalid
	ErrInvalidConfig = errors.New("invalid configuration")

	// ErrInvalidInput is returned when a required argument is empty
	ErrInvalidInput = errors.New("invalid input")

	// ErrInvalidAgentName is returned for names outside [a-zA-Z0-9_-]{1,128}
	ErrInvalidAgentName = errors.New("invalid agent name")

	// ErrInvalidSection is returned for an unknown agent config section
	ErrInvalidSection = errors.New("invalid config section")

	// ErrAgentNotFound is returned when an agent does not exist
	ErrAgentNotFound = errors.New("agent not found")

	// ErrClientNotStarted is returned when calling methods before Start()
	ErrClientNotStarted = errors.New("client not started")

	// ErrClientAlreadyStarted is returned when Start() is called twice
	ErrClientAlreadyStarted = errors.New("client already started")
)

// OpError represents a failed Client operation.
type OpError struct {
	Op    string // Operation that failed
	Agent string // Agent name if applicable
	Err   error  // Underlying error
}

// Error implements the error interface
func (e *OpError) Error() string {
	if e.Agent != "" {
		return fmt.Sprintf("%s (agent=%s): %v", e.Op, e.Agent, e.Err)
	}
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

// Unwrap returns the underlying error
func (e *OpError) Unwrap() error {
	return e.Err
}

func opErr(op, agent string, err error) error {
	if err == nil {
		return nil
	}
	return &OpError{Op: op, Agent: agent, Err: err}
}
