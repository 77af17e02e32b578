package agentdesk

import (
	"fmt"
	"regexp"
	"time"

	"github.com/youssefsiam38/agentdesk/agentllm"
	"github.com/youssefsiam38/agentdesk/commands"
	"github.com/youssefsiam38/agentdesk/embedding"
	"github.com/youssefsiam38/agentdesk/hooks"
	"github.com/youssefsiam38/agentdesk/maintenance"
	"github.com/youssefsiam38/agentdesk/provider"
	"github.com/youssefsiam38/agentdesk/tasks"
)

// Default client values.
const (
	DefaultProvider       = "anthropic"
	DefaultChatContext    = 6
	DefaultSmartShots     = agentllm.DefaultShots
	DefaultMaxTaskRunList = 50
)

var agentNamePattern = regexp.MustCompile(`^[a-zA-Z0-9_-]{1,128}$`)

// ValidAgentName reports whether name is 1-128 characters of [a-zA-Z0-9_-].
func ValidAgentName(name string) bool {
	return agentNamePattern.MatchString(name)
}

// Logger is the logging interface used by the client.
// It is compatible with *slog.Logger.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// ClientConfig holds configuration for the Client.
type ClientConfig struct {
	// Providers is the LLM provider registry.
	// Default: provider.DefaultRegistry()
	Providers *provider.Registry

	// DefaultProvider is used for agents without a "provider" setting.
	// Default: "anthropic"
	DefaultProvider string

	// Embedders lists the embedding providers offered to agents.
	// Default: embedding.Providers()
	Embedders []string

	// Commands is the command catalog.
	// Default: commands.DefaultCatalog()
	Commands *commands.Catalog

	// DuplicatePolicy decides what StartTask does for a busy agent.
	// Default: tasks.PolicyReject
	DuplicatePolicy tasks.DuplicatePolicy

	// MaxTaskIterations bounds each objective loop. Negative means unbounded.
	// Default: 25
	MaxTaskIterations int

	// ContextResults is the number of memories used as context by Chat.
	// Default: 6
	ContextResults int

	// SmartShots is the number of candidate answers for smart chat and
	// smart instruct.
	// Default: 3
	SmartShots int

	// CleanupInterval is how often old task runs are pruned.
	// Default: 10 minutes
	CleanupInterval time.Duration

	// RunRetention is how long finished task runs are kept.
	// Default: 30 days
	RunRetention time.Duration

	// Hooks receives task and interaction events. Optional.
	Hooks *hooks.Registry

	// Logger for client diagnostics. Optional.
	Logger Logger

	// OnError is called when background operations fail
	OnError func(err error)
}

// DefaultClientConfig returns the default client configuration.
func DefaultClientConfig() *ClientConfig {
	c := &ClientConfig{}
	c.applyDefaults()
	return c
}

func (c *ClientConfig) applyDefaults() {
	if c.Providers == nil {
		c.Providers = provider.DefaultRegistry()
	}
	if c.DefaultProvider == "" {
		c.DefaultProvider = DefaultProvider
	}
	if len(c.Embedders) == 0 {
		c.Embedders = embedding.Providers()
	}
	if c.Commands == nil {
		c.Commands = commands.DefaultCatalog()
	}
	if c.DuplicatePolicy == "" {
		c.DuplicatePolicy = tasks.PolicyReject
	}
	if c.MaxTaskIterations == 0 {
		c.MaxTaskIterations = agentllm.DefaultMaxIterations
	}
	if c.ContextResults == 0 {
		c.ContextResults = DefaultChatContext
	}
	if c.SmartShots == 0 {
		c.SmartShots = DefaultSmartShots
	}
	if c.CleanupInterval == 0 {
		c.CleanupInterval = maintenance.DefaultCleanupInterval
	}
	if c.RunRetention == 0 {
		c.RunRetention = maintenance.DefaultRunRetention
	}
	if c.Hooks == nil {
		c.Hooks = hooks.NewRegistry()
	}
	if c.Logger == nil {
		c.Logger = noopLogger{}
	}
}

// Validate validates the configuration
func (c *ClientConfig) Validate() error {
	if _, err := tasks.ParsePolicy(string(c.DuplicatePolicy)); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	if c.ContextResults < 0 {
		return fmt.Errorf("%w: ContextResults must not be negative", ErrInvalidConfig)
	}
	if c.SmartShots < 1 {
		return fmt.Errorf("%w: SmartShots must be at least 1", ErrInvalidConfig)
	}
	if c.CleanupInterval < 0 || c.RunRetention < 0 {
		return fmt.Errorf("%w: cleanup durations must not be negative", ErrInvalidConfig)
	}
	if _, err := c.Providers.Options(c.DefaultProvider); err != nil {
		return fmt.Errorf("%w: default provider: %v", ErrInvalidConfig, err)
	}
	return nil
}

type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}
