package agentllm

// Logger is the logging interface used by agents.
// It is compatible with *slog.Logger.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// Config holds agent configuration.
type Config struct {
	// MaxIterations bounds the objective loop of RunTask. A negative value
	// means no limit.
	// Defaults to 25.
	MaxIterations int

	// ContextResults is the number of recent memories used as {context}
	// by SmartChat, SmartInstruct and RunTask.
	// Defaults to 5.
	ContextResults int

	// Logger for agent diagnostics. Optional.
	Logger Logger
}

// Default values.
const (
	DefaultMaxIterations  = 25
	DefaultContextResults = 5
	DefaultShots          = 3
)

// DefaultConfig returns a new Config with default values.
func DefaultConfig() *Config {
	return &Config{
		MaxIterations:  DefaultMaxIterations,
		ContextResults: DefaultContextResults,
	}
}

func (c *Config) applyDefaults() {
	if c.MaxIterations == 0 {
		c.MaxIterations = DefaultMaxIterations
	}
	if c.ContextResults == 0 {
		c.ContextResults = DefaultContextResults
	}
	if c.Logger == nil {
		c.Logger = noopLogger{}
	}
}

type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}
