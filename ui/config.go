package ui

import (
	"fmt"
	"strings"
	"time"
)

// Defaults applied to zero-valued Config fields.
const (
	DefaultRefreshInterval = 5 * time.Second
	DefaultPageSize        = 25

	// MaxPageSize bounds the run history listing.
	MaxPageSize = 1000

	minRefreshInterval = time.Second
)

// Config configures UIHandler and APIHandler.
type Config struct {
	// BasePath is the prefix the frontend is mounted under, e.g. "/ui".
	// Links and redirects are built from it. Empty means the root.
	BasePath string

	// ReadOnly answers every form submission and JSON write with 403.
	ReadOnly bool

	// RefreshInterval is how often the task status fragment polls and the
	// SSE stream pushes. At least one second; defaults to 5 seconds.
	RefreshInterval time.Duration

	// PageSize is the number of task runs listed. Defaults to 25.
	PageSize int

	// Logger receives handler errors and recovered panics. Optional.
	Logger Logger
}

// Logger is the logging interface used by the handlers.
// It is compatible with *slog.Logger.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// DefaultConfig returns a Config with every default applied.
func DefaultConfig() *Config {
	c := &Config{}
	c.applyDefaults()
	return c
}

func (c *Config) applyDefaults() {
	c.BasePath = strings.TrimRight(c.BasePath, "/")
	if c.RefreshInterval == 0 {
		c.RefreshInterval = DefaultRefreshInterval
	}
	if c.PageSize == 0 {
		c.PageSize = DefaultPageSize
	}
}

func (c *Config) validate() error {
	if c.BasePath != "" && !strings.HasPrefix(c.BasePath, "/") {
		return fmt.Errorf("%w: BasePath %q must start with /", ErrInvalidConfig, c.BasePath)
	}
	if c.PageSize < 1 || c.PageSize > MaxPageSize {
		return fmt.Errorf("%w: PageSize must be between 1 and %d, got %d", ErrInvalidConfig, MaxPageSize, c.PageSize)
	}
	if c.RefreshInterval < minRefreshInterval {
		return fmt.Errorf("%w: RefreshInterval must be at least %v, got %v", ErrInvalidConfig, minRefreshInterval, c.RefreshInterval)
	}
	return nil
}
