// Package tasks tracks long-running objective tasks, at most one per agent.
//
// A Tracker maps an agent name to the Handle of its live run. Start registers
// a run and launches a worker goroutine; Stop sets the run's stop signal and
// forgets it; Status reports whether a live run is registered. Cancellation
// is cooperative: the runner observes its context and returns on its own.
//
// Usage:
//
//	tracker := tasks.NewTracker(runner, nil)
//	h, err := tracker.Start(ctx, "researcher", "Summarize the latest papers")
//	...
//	_ = tracker.Stop("researcher")
//	<-h.Done()
package tasks

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"slices"
	"strings"
	"sync"

	"github.com/oklog/ulid/v2"

	"github.com/youssefsiam38/agentdesk/runstate"
)

// Tracker errors.
var (
	// ErrInvalidInput is returned when the agent name or objective is empty.
	ErrInvalidInput = errors.New("tasks: agent name and objective are required")

	// ErrTaskAlreadyRunning is returned by Start under PolicyReject.
	ErrTaskAlreadyRunning = errors.New("tasks: task already running")

	// ErrNoTaskRunning is returned by Stop when the agent has no live run.
	ErrNoTaskRunning = errors.New("tasks: no task running")

	// ErrShutdown is returned by Start after Shutdown was called.
	ErrShutdown = errors.New("tasks: tracker is shut down")

	// ErrPanic wraps a value recovered from a panicking runner.
	ErrPanic = errors.New("tasks: runner panicked")
)

// Status is the liveness of an agent's task as shown to operators.
type Status string

const (
	StatusRunning    Status = "Running"
	StatusNotRunning Status = "Not Running"
)

// Task is what a Runner receives for one run.
type Task struct {
	RunID     string
	AgentName string
	Objective string

	// Progress records the number of completed iterations. Safe to call
	// from the runner goroutine at any time.
	Progress func(iterations int)
}

// Runner executes a task until it finishes or ctx is cancelled, returning
// the number of iterations performed.
type Runner interface {
	RunTask(ctx context.Context, task Task) (int, error)
}

// RunnerFunc adapts a function to Runner.
type RunnerFunc func(ctx context.Context, task Task) (int, error)

// RunTask calls f.
func (f RunnerFunc) RunTask(ctx context.Context, task Task) (int, error) {
	return f(ctx, task)
}

// Tracker is the registry of live task runs.
type Tracker struct {
	runner Runner
	config *Config

	mu     sync.Mutex
	runs   map[string]*Handle
	closed bool
	wg     sync.WaitGroup
}

// NewTracker creates a Tracker. A nil config uses DefaultConfig.
func NewTracker(runner Runner, config *Config) *Tracker {
	if config == nil {
		config = DefaultConfig()
	}
	config.applyDefaults()

	return &Tracker{
		runner: runner,
		config: config,
		runs:   make(map[string]*Handle),
	}
}

// Policy returns the duplicate-start policy in effect.
func (t *Tracker) Policy() DuplicatePolicy {
	return t.config.Policy
}

// Start registers a new run for agentName and launches its worker. It
// returns as soon as the worker goroutine is launched.
//
// The worker context is detached from ctx: cancelling the caller's request
// does not stop the task. Only Stop, a replacing Start, or Shutdown do.
func (t *Tracker) Start(ctx context.Context, agentName, objective string) (*Handle, error) {
	if agentName == "" || objective == "" {
		return nil, ErrInvalidInput
	}

	runCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	h := &Handle{
		ID:        t.config.NewID(),
		AgentName: agentName,
		Objective: objective,
		StartedAt: t.config.Now().UTC(),
		ctx:       runCtx,
		cancel:    cancel,
		done:      make(chan struct{}),
		state:     runstate.StatePending,
	}

	var replaced *Handle
	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		cancel()
		return nil, ErrShutdown
	}
	if existing, ok := t.runs[agentName]; ok {
		if t.config.Policy != PolicyReplace {
			t.mu.Unlock()
			cancel()
			return nil, fmt.Errorf("%w for agent %q", ErrTaskAlreadyRunning, agentName)
		}
		existing.Stop()
		replaced = existing
	}
	t.runs[agentName] = h
	t.wg.Add(1)
	t.mu.Unlock()

	if replaced != nil {
		t.config.Logger.Info("task replaced",
			"agent", agentName,
			"old_run_id", replaced.ID,
			"new_run_id", h.ID)
	}

	if err := t.config.Hooks.TriggerTaskStart(runCtx, h.event()); err != nil {
		t.config.Logger.Warn("task start hook failed", "run_id", h.ID, "agent", agentName, "error", err)
	}

	go t.work(h)
	return h, nil
}

// Stop sets the stop signal of the agent's run and removes it from the
// registry. It does not wait for the worker to return.
func (t *Tracker) Stop(agentName string) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	h, ok := t.runs[agentName]
	if !ok {
		return fmt.Errorf("%w for agent %q", ErrNoTaskRunning, agentName)
	}
	h.Stop()
	delete(t.runs, agentName)
	return nil
}

// Status reports whether agentName has a live, unstopped run.
func (t *Tracker) Status(agentName string) Status {
	t.mu.Lock()
	defer t.mu.Unlock()

	if _, ok := t.runs[agentName]; ok {
		return StatusRunning
	}
	return StatusNotRunning
}

// Get returns the live run registered for agentName.
func (t *Tracker) Get(agentName string) (*Handle, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	h, ok := t.runs[agentName]
	return h, ok
}

// List returns snapshots of every live run, oldest first.
func (t *Tracker) List() []Snapshot {
	t.mu.Lock()
	handles := make([]*Handle, 0, len(t.runs))
	for _, h := range t.runs {
		handles = append(handles, h)
	}
	t.mu.Unlock()

	snapshots := make([]Snapshot, len(handles))
	for i, h := range handles {
		snapshots[i] = h.Snapshot()
	}
	slices.SortFunc(snapshots, func(a, b Snapshot) int {
		if c := a.StartedAt.Compare(b.StartedAt); c != 0 {
			return c
		}
		return strings.Compare(a.ID, b.ID)
	})
	return snapshots
}

// Shutdown rejects new runs, sets every stop signal and waits for all
// workers to return or ctx to expire.
func (t *Tracker) Shutdown(ctx context.Context) error {
	t.mu.Lock()
	t.closed = true
	for name, h := range t.runs {
		h.Stop()
		delete(t.runs, name)
	}
	t.mu.Unlock()

	done := make(chan struct{})
	go func() {
		t.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("tasks: shutdown: %w", ctx.Err())
	}
}

// Reopen lets Start accept runs again after Shutdown.
func (t *Tracker) Reopen() {
	t.mu.Lock()
	t.closed = false
	t.mu.Unlock()
}

// work runs h to completion. The registry entry is removed before Done is
// closed, so Status never reports a finished run as running.
func (t *Tracker) work(h *Handle) {
	defer t.wg.Done()
	defer close(h.done)

	var (
		iterations int
		err        error
		state      runstate.State
	)

	if h.ctx.Err() != nil {
		// stopped before the worker was scheduled
		state = runstate.StateStopped
	} else {
		h.setState(runstate.StateRunning)
		iterations, err = t.invoke(h)

		switch {
		case errors.Is(err, ErrPanic):
			state = runstate.StateFailed
		case h.Stopped():
			state = runstate.StateStopped
			err = nil
		case err != nil:
			state = runstate.StateFailed
		default:
			state = runstate.StateCompleted
		}
	}

	h.finish(state, iterations, err, t.config.Now().UTC())
	h.cancel()

	t.mu.Lock()
	if t.runs[h.AgentName] == h {
		delete(t.runs, h.AgentName)
	}
	t.mu.Unlock()

	hookCtx := context.WithoutCancel(h.ctx)
	if hookErr := t.config.Hooks.TriggerTaskFinish(hookCtx, h.event()); hookErr != nil {
		t.config.Logger.Warn("task finish hook failed", "run_id", h.ID, "agent", h.AgentName, "error", hookErr)
	}
}

// invoke calls the runner, converting a panic into ErrPanic.
func (t *Tracker) invoke(h *Handle) (iterations int, err error) {
	defer func() {
		if r := recover(); r != nil {
			t.config.Logger.Error("task runner panicked",
				"run_id", h.ID,
				"agent", h.AgentName,
				"panic", r,
				"stack", string(debug.Stack()))
			iterations = h.Iterations()
			err = fmt.Errorf("%w: %v", ErrPanic, r)
		}
	}()

	return t.runner.RunTask(h.ctx, Task{
		RunID:     h.ID,
		AgentName: h.AgentName,
		Objective: h.Objective,
		Progress:  h.setIterations,
	})
}

func newULID() string {
	return ulid.Make().String()
}
