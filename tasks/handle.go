package tasks

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/youssefsiam38/agentdesk/hooks"
	"github.com/youssefsiam38/agentdesk/runstate"
)

// Handle is one task run. Its stop signal is shared by the tracker, the
// operator's stop action and the worker.
type Handle struct {
	ID        string
	AgentName string
	Objective string
	StartedAt time.Time

	ctx     context.Context
	cancel  context.CancelFunc
	stopped atomic.Bool
	done    chan struct{}

	iterations atomic.Int64

	mu         sync.Mutex
	state      runstate.State
	err        error
	finishedAt time.Time
}

// Snapshot is a point-in-time copy of a Handle.
type Snapshot struct {
	ID         string         `json:"id"`
	AgentName  string         `json:"agent_name"`
	Objective  string         `json:"objective"`
	State      runstate.State `json:"state"`
	Iterations int            `json:"iterations"`
	StartedAt  time.Time      `json:"started_at"`
	Stopped    bool           `json:"stopped"`
}

// Stop sets the stop signal. It is idempotent and does not wait.
func (h *Handle) Stop() {
	if h.stopped.CompareAndSwap(false, true) {
		h.cancel()
	}
}

// Stopped reports whether the stop signal is set.
func (h *Handle) Stopped() bool {
	return h.stopped.Load()
}

// Done is closed once the worker has returned and the run is finished.
func (h *Handle) Done() <-chan struct{} {
	return h.done
}

// Wait blocks until the run finishes or ctx is done.
func (h *Handle) Wait(ctx context.Context) error {
	select {
	case <-h.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// State returns the current run state.
func (h *Handle) State() runstate.State {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.state
}

// Err returns the runner error of a failed run.
func (h *Handle) Err() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.err
}

// Iterations returns the iterations reported so far.
func (h *Handle) Iterations() int {
	return int(h.iterations.Load())
}

// Snapshot returns a copy of the handle's observable fields.
func (h *Handle) Snapshot() Snapshot {
	return Snapshot{
		ID:         h.ID,
		AgentName:  h.AgentName,
		Objective:  h.Objective,
		State:      h.State(),
		Iterations: h.Iterations(),
		StartedAt:  h.StartedAt,
		Stopped:    h.Stopped(),
	}
}

func (h *Handle) setIterations(n int) {
	h.iterations.Store(int64(n))
}

func (h *Handle) setState(state runstate.State) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.state.CanTransitionTo(state) {
		h.state = state
	}
}

func (h *Handle) finish(state runstate.State, iterations int, err error, at time.Time) {
	if iterations > h.Iterations() {
		h.setIterations(iterations)
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	if h.state.CanTransitionTo(state) {
		h.state = state
	}
	h.err = err
	h.finishedAt = at
}

func (h *Handle) event() *hooks.TaskEvent {
	h.mu.Lock()
	defer h.mu.Unlock()
	return &hooks.TaskEvent{
		RunID:      h.ID,
		AgentName:  h.AgentName,
		Objective:  h.Objective,
		State:      h.state,
		StartedAt:  h.StartedAt,
		FinishedAt: h.finishedAt,
		Iterations: int(h.iterations.Load()),
		Err:        h.err,
	}
}
