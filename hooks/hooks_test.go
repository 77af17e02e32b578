package hooks

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/youssefsiam38/agentdesk/runstate"
)

func TestNewRegistry(t *testing.T) {
	r := NewRegistry()
	if r == nil {
		t.Fatal("NewRegistry returned nil")
	}
}

func TestOnTaskStart(t *testing.T) {
	r := NewRegistry()
	var captured *TaskEvent

	r.OnTaskStart(func(ctx context.Context, event *TaskEvent) error {
		captured = event
		return nil
	})

	event := &TaskEvent{RunID: "run-1", AgentName: "writer", Objective: "draft", State: runstate.StatePending}
	if err := r.TriggerTaskStart(context.Background(), event); err != nil {
		t.Errorf("TriggerTaskStart returned error: %v", err)
	}
	if captured != event {
		t.Error("hook was not called with the event")
	}
}

func TestOnTaskFinish(t *testing.T) {
	r := NewRegistry()
	var state runstate.State

	r.OnTaskFinish(func(ctx context.Context, event *TaskEvent) error {
		state = event.State
		return nil
	})

	err := r.TriggerTaskFinish(context.Background(), &TaskEvent{State: runstate.StateStopped})
	if err != nil {
		t.Errorf("TriggerTaskFinish returned error: %v", err)
	}
	if state != runstate.StateStopped {
		t.Errorf("expected state 'stopped', got '%s'", state)
	}
}

func TestOnInteraction(t *testing.T) {
	r := NewRegistry()
	var mode string

	r.OnInteraction(func(ctx context.Context, interaction *Interaction) error {
		mode = interaction.Mode
		return nil
	})

	err := r.TriggerInteraction(context.Background(), &Interaction{AgentName: "writer", Mode: "chat"})
	if err != nil {
		t.Errorf("TriggerInteraction returned error: %v", err)
	}
	if mode != "chat" {
		t.Errorf("expected mode 'chat', got '%s'", mode)
	}
}

func TestMultipleHooks(t *testing.T) {
	r := NewRegistry()
	callOrder := []int{}

	for i := 1; i <= 3; i++ {
		r.OnTaskFinish(func(ctx context.Context, event *TaskEvent) error {
			callOrder = append(callOrder, i)
			return nil
		})
	}

	if err := r.TriggerTaskFinish(context.Background(), &TaskEvent{}); err != nil {
		t.Errorf("TriggerTaskFinish returned error: %v", err)
	}

	if len(callOrder) != 3 {
		t.Fatalf("expected 3 hooks to be called, got %d", len(callOrder))
	}
	for i, v := range callOrder {
		if v != i+1 {
			t.Errorf("expected call order %d at index %d, got %d", i+1, i, v)
		}
	}
}

func TestHookStopsOnError(t *testing.T) {
	r := NewRegistry()
	called := []int{}
	expectedErr := errors.New("stop here")

	r.OnTaskStart(func(ctx context.Context, event *TaskEvent) error {
		called = append(called, 1)
		return nil
	})
	r.OnTaskStart(func(ctx context.Context, event *TaskEvent) error {
		called = append(called, 2)
		return expectedErr
	})
	r.OnTaskStart(func(ctx context.Context, event *TaskEvent) error {
		called = append(called, 3)
		return nil
	})

	err := r.TriggerTaskStart(context.Background(), &TaskEvent{})
	if !errors.Is(err, expectedErr) {
		t.Errorf("expected error %v, got %v", expectedErr, err)
	}
	if len(called) != 2 {
		t.Errorf("expected 2 hooks to be called before error, got %d", len(called))
	}
}

func TestConcurrentRegistrationAndTrigger(t *testing.T) {
	r := NewRegistry()
	var wg sync.WaitGroup
	var mu sync.Mutex
	calls := 0

	for i := 0; i < 10; i++ {
		r.OnTaskFinish(func(ctx context.Context, event *TaskEvent) error {
			mu.Lock()
			calls++
			mu.Unlock()
			return nil
		})
	}

	wg.Add(100)
	for i := 0; i < 50; i++ {
		go func() {
			defer wg.Done()
			r.OnTaskFinish(func(ctx context.Context, event *TaskEvent) error { return nil })
		}()
		go func() {
			defer wg.Done()
			_ = r.TriggerTaskFinish(context.Background(), &TaskEvent{})
		}()
	}
	wg.Wait()

	if calls != 500 {
		t.Errorf("expected 500 calls of the pre-registered hooks, got %d", calls)
	}
}

func TestTaskEvent_Duration(t *testing.T) {
	start := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	e := &TaskEvent{StartedAt: start}
	if e.Duration() != 0 {
		t.Errorf("Duration() of unfinished event = %v, want 0", e.Duration())
	}
	e.FinishedAt = start.Add(90 * time.Second)
	if e.Duration() != 90*time.Second {
		t.Errorf("Duration() = %v, want 90s", e.Duration())
	}
}

type recordingLogger struct {
	mu    sync.Mutex
	lines []string
}

func (l *recordingLogger) log(level, msg string, args ...any) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.lines = append(l.lines, level+" "+msg+" "+fmt.Sprint(args...))
}

func (l *recordingLogger) Debug(msg string, args ...any) { l.log("DEBUG", msg, args...) }
func (l *recordingLogger) Info(msg string, args ...any)  { l.log("INFO", msg, args...) }
func (l *recordingLogger) Warn(msg string, args ...any)  { l.log("WARN", msg, args...) }
func (l *recordingLogger) Error(msg string, args ...any) { l.log("ERROR", msg, args...) }

func TestLoggingHooks(t *testing.T) {
	logger := &recordingLogger{}
	r := NewRegistry()
	NewLoggingHooks(logger).Register(r)

	ctx := context.Background()
	_ = r.TriggerTaskStart(ctx, &TaskEvent{RunID: "r1", AgentName: "writer", Objective: strings.Repeat("x", 300)})
	_ = r.TriggerTaskFinish(ctx, &TaskEvent{RunID: "r1", State: runstate.StateCompleted})
	_ = r.TriggerTaskFinish(ctx, &TaskEvent{RunID: "r2", State: runstate.StateFailed, Err: errors.New("provider down")})
	_ = r.TriggerInteraction(ctx, &Interaction{AgentName: "writer", Mode: "chat", Err: errors.New("timeout")})

	want := []string{"INFO task started", "INFO task finished", "ERROR task failed", "WARN agent interaction failed"}
	if len(logger.lines) != len(want) {
		t.Fatalf("got %d log lines, want %d: %v", len(logger.lines), len(want), logger.lines)
	}
	for i, prefix := range want {
		if !strings.HasPrefix(logger.lines[i], prefix) {
			t.Errorf("line %d = %q, want prefix %q", i, logger.lines[i], prefix)
		}
	}
	if strings.Contains(logger.lines[0], strings.Repeat("x", 101)) {
		t.Error("objective preview was not truncated")
	}
}
