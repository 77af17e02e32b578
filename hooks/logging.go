package hooks

import (
	"context"
)

// Logger is the logging interface used by LoggingHooks.
// It is compatible with *slog.Logger.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// previewLen bounds logged prompt and response previews.
const previewLen = 100

// LoggingHooks provides built-in logging hooks for observability
type LoggingHooks struct {
	logger Logger
}

// NewLoggingHooks creates logging hooks with the provided logger
func NewLoggingHooks(logger Logger) *LoggingHooks {
	return &LoggingHooks{logger: logger}
}

// Register attaches every logging hook to r.
func (h *LoggingHooks) Register(r *Registry) {
	r.OnTaskStart(h.TaskStart)
	r.OnTaskFinish(h.TaskFinish)
	r.OnInteraction(h.Interaction)
}

// TaskStart logs a started run
func (h *LoggingHooks) TaskStart(ctx context.Context, event *TaskEvent) error {
	h.logger.Info("task started",
		"run_id", event.RunID,
		"agent", event.AgentName,
		"objective", preview(event.Objective))
	return nil
}

// TaskFinish logs a finished run at a level matching its outcome
func (h *LoggingHooks) TaskFinish(ctx context.Context, event *TaskEvent) error {
	args := []any{
		"run_id", event.RunID,
		"agent", event.AgentName,
		"state", event.State,
		"iterations", event.Iterations,
		"duration", event.Duration(),
	}
	if event.Err != nil {
		h.logger.Error("task failed", append(args, "error", event.Err)...)
		return nil
	}
	h.logger.Info("task finished", args...)
	return nil
}

// Interaction logs a chat or instruct exchange
func (h *LoggingHooks) Interaction(ctx context.Context, interaction *Interaction) error {
	if interaction.Err != nil {
		h.logger.Warn("agent interaction failed",
			"agent", interaction.AgentName,
			"mode", interaction.Mode,
			"smart", interaction.Smart,
			"error", interaction.Err)
		return nil
	}
	h.logger.Debug("agent interaction",
		"agent", interaction.AgentName,
		"mode", interaction.Mode,
		"smart", interaction.Smart,
		"duration", interaction.Duration,
		"output", preview(interaction.Output))
	return nil
}

func preview(s string) string {
	r := []rune(s)
	if len(r) > previewLen {
		return string(r[:previewLen]) + "..."
	}
	return s
}
