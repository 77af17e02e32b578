package tasks

import (
	"fmt"
	"time"

	"github.com/youssefsiam38/agentdesk/hooks"
)

// DuplicatePolicy decides what Start does when the agent already has a live run.
type DuplicatePolicy string

const (
	// PolicyReject refuses the new run with ErrTaskAlreadyRunning.
	PolicyReject DuplicatePolicy = "reject"

	// PolicyReplace stops the existing run and registers the new one.
	PolicyReplace DuplicatePolicy = "replace"
)

// ParsePolicy parses a policy name. The empty string means PolicyReject.
func ParsePolicy(s string) (DuplicatePolicy, error) {
	switch DuplicatePolicy(s) {
	case "", PolicyReject:
		return PolicyReject, nil
	case PolicyReplace:
		return PolicyReplace, nil
	}
	return "", fmt.Errorf("tasks: unknown duplicate policy %q (want reject or replace)", s)
}

// Logger is the logging interface used by the tracker.
// It is compatible with *slog.Logger.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// Config holds tracker configuration.
type Config struct {
	// Policy handles a Start for an agent that already has a live run.
	// Defaults to PolicyReject.
	Policy DuplicatePolicy

	// Hooks receives task start and finish events. Optional.
	Hooks *hooks.Registry

	// Logger for tracker diagnostics. Optional.
	Logger Logger

	// NewID generates run IDs. Defaults to ULIDs.
	NewID func() string

	// Now defaults to time.Now.
	Now func() time.Time
}

// DefaultConfig returns a new Config with default values.
func DefaultConfig() *Config {
	return &Config{
		Policy: PolicyReject,
	}
}

func (c *Config) applyDefaults() {
	if c.Policy == "" {
		c.Policy = PolicyReject
	}
	if c.Hooks == nil {
		c.Hooks = hooks.NewRegistry()
	}
	if c.Logger == nil {
		c.Logger = noopLogger{}
	}
	if c.NewID == nil {
		c.NewID = newULID
	}
	if c.Now == nil {
		c.Now = time.Now
	}
}

type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}
