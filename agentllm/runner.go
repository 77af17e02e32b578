package agentllm

import (
	"context"
	"fmt"

	"github.com/youssefsiam38/agentdesk/tasks"
)

// Resolver returns the Agent for an agent name.
type Resolver func(ctx context.Context, agentName string) (*Agent, error)

// Runner runs tracked tasks through the agent's objective loop.
type Runner struct {
	resolve Resolver
}

var _ tasks.Runner = (*Runner)(nil)

// NewRunner creates a tasks.Runner that resolves the agent per run.
func NewRunner(resolve Resolver) *Runner {
	return &Runner{resolve: resolve}
}

// RunTask implements tasks.Runner.
func (r *Runner) RunTask(ctx context.Context, task tasks.Task) (int, error) {
	agent, err := r.resolve(ctx, task.AgentName)
	if err != nil {
		return 0, fmt.Errorf("failed to load agent: %w", err)
	}
	return agent.runTask(ctx, task.Objective, task.Progress)
}
