// Package hooks provides lifecycle callbacks for task runs and agent
// interactions.
package hooks

import (
	"context"
	"sync"
	"time"

	"github.com/youssefsiam38/agentdesk/runstate"
)

// TaskEvent describes a task run at a lifecycle boundary.
type TaskEvent struct {
	RunID     string
	AgentName string
	Objective string
	State     runstate.State
	StartedAt time.Time

	// Set on finish only.
	FinishedAt time.Time
	Iterations int
	Err        error
}

// Duration returns the run time for finished events.
func (e *TaskEvent) Duration() time.Duration {
	if e.FinishedAt.IsZero() {
		return 0
	}
	return e.FinishedAt.Sub(e.StartedAt)
}

// Interaction describes one chat or instruct exchange.
type Interaction struct {
	AgentName string
	Mode      string
	Smart     bool
	Input     string
	Output    string
	Err       error
	Duration  time.Duration
}

// TaskStartHook is called after a run is registered, before its worker runs
type TaskStartHook func(ctx context.Context, event *TaskEvent) error

// TaskFinishHook is called once a worker has returned
type TaskFinishHook func(ctx context.Context, event *TaskEvent) error

// InteractionHook is called after a chat or instruct exchange
type InteractionHook func(ctx context.Context, interaction *Interaction) error

// Registry holds all registered hooks
type Registry struct {
	mu          sync.RWMutex
	taskStart   []TaskStartHook
	taskFinish  []TaskFinishHook
	interaction []InteractionHook
}

// NewRegistry creates a new hook registry
func NewRegistry() *Registry {
	return &Registry{
		taskStart:   []TaskStartHook{},
		taskFinish:  []TaskFinishHook{},
		interaction: []InteractionHook{},
	}
}

// OnTaskStart registers a hook to be called when a task run starts
func (r *Registry) OnTaskStart(hook TaskStartHook) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.taskStart = append(r.taskStart, hook)
}

// OnTaskFinish registers a hook to be called when a task run finishes
func (r *Registry) OnTaskFinish(hook TaskFinishHook) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.taskFinish = append(r.taskFinish, hook)
}

// OnInteraction registers a hook to be called after chat or instruct
func (r *Registry) OnInteraction(hook InteractionHook) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.interaction = append(r.interaction, hook)
}

// TriggerTaskStart calls all registered task-start hooks.
// The first hook error stops the chain and is returned.
func (r *Registry) TriggerTaskStart(ctx context.Context, event *TaskEvent) error {
	r.mu.RLock()
	hooks := make([]TaskStartHook, len(r.taskStart))
	copy(hooks, r.taskStart)
	r.mu.RUnlock()

	for _, hook := range hooks {
		if err := hook(ctx, event); err != nil {
			return err
		}
	}
	return nil
}

// TriggerTaskFinish calls all registered task-finish hooks
func (r *Registry) TriggerTaskFinish(ctx context.Context, event *TaskEvent) error {
	r.mu.RLock()
	hooks := make([]TaskFinishHook, len(r.taskFinish))
	copy(hooks, r.taskFinish)
	r.mu.RUnlock()

	for _, hook := range hooks {
		if err := hook(ctx, event); err != nil {
			return err
		}
	}
	return nil
}

// TriggerInteraction calls all registered interaction hooks
func (r *Registry) TriggerInteraction(ctx context.Context, interaction *Interaction) error {
	r.mu.RLock()
	hooks := make([]InteractionHook, len(r.interaction))
	copy(hooks, r.interaction)
	r.mu.RUnlock()

	for _, hook := range hooks {
		if err := hook(ctx, interaction); err != nil {
			return err
		}
	}
	return nil
}
