package maintenance

import (
	"context"
	"errors"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

// cleanupMockStore implements RunStore for cleanup testing.
type cleanupMockStore struct {
	mu sync.Mutex

	interrupted int
	reason      string
	failErr     error

	pruneCount int
	pruneErr   error
	cutoffs    []time.Time
}

func (m *cleanupMockStore) FailInterruptedTaskRuns(ctx context.Context, reason string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failErr != nil {
		return 0, m.failErr
	}
	m.reason = reason
	return m.interrupted, nil
}

func (m *cleanupMockStore) DeleteTaskRunsBefore(ctx context.Context, cutoff time.Time) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.cutoffs = append(m.cutoffs, cutoff)
	if m.pruneErr != nil {
		return 0, m.pruneErr
	}
	return m.pruneCount, nil
}

func TestCleanup_StartStop(t *testing.T) {
	store := &cleanupMockStore{}
	cleanup := NewCleanup(store, &CleanupConfig{
		Interval:  50 * time.Millisecond,
		Retention: time.Hour,
	})

	ctx := context.Background()

	if err := cleanup.Start(ctx); err != nil {
		t.Fatalf("Start() error = %v", err)
	}

	if !cleanup.IsRunning() {
		t.Error("Expected cleanup to be running")
	}

	if err := cleanup.Start(ctx); err != ErrCleanupRunning {
		t.Fatalf("Start() error = %v, want %v", err, ErrCleanupRunning)
	}

	if err := cleanup.Stop(ctx); err != nil {
		t.Fatalf("Stop() error = %v", err)
	}

	if cleanup.IsRunning() {
		t.Error("Expected cleanup to not be running")
	}

	// restartable
	if err := cleanup.Start(ctx); err != nil {
		t.Fatalf("second Start() error = %v", err)
	}
	if err := cleanup.Stop(ctx); err != nil {
		t.Fatalf("second Stop() error = %v", err)
	}
}

func TestCleanup_StopNotStarted(t *testing.T) {
	cleanup := NewCleanup(&cleanupMockStore{}, nil)

	if err := cleanup.Stop(context.Background()); err != ErrCleanupStopped {
		t.Fatalf("Stop() error = %v, want %v", err, ErrCleanupStopped)
	}
}

func TestCleanup_RunOnce(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	store := &cleanupMockStore{pruneCount: 4}

	cleanup := NewCleanup(store, &CleanupConfig{
		Retention: 48 * time.Hour,
		Now:       func() time.Time { return now },
	})

	result := cleanup.RunOnce(context.Background())

	if result.RunsPruned != 4 {
		t.Errorf("RunsPruned = %d, want 4", result.RunsPruned)
	}
	if len(result.Errors) != 0 {
		t.Errorf("Errors = %v", result.Errors)
	}
	if want := now.Add(-48 * time.Hour); !store.cutoffs[0].Equal(want) {
		t.Errorf("cutoff = %v, want %v", store.cutoffs[0], want)
	}
}

func TestCleanup_RunOnce_Error(t *testing.T) {
	store := &cleanupMockStore{pruneErr: errors.New("db down")}

	result := NewCleanup(store, DefaultCleanupConfig()).RunOnce(context.Background())

	if len(result.Errors) != 1 {
		t.Fatalf("Errors = %v, want 1 error", result.Errors)
	}
	if !errors.Is(result.Errors[0], store.pruneErr) {
		t.Errorf("error = %v, want wrapped prune error", result.Errors[0])
	}
}

func TestCleanup_Callbacks(t *testing.T) {
	store := &cleanupMockStore{pruneCount: 2}

	var pruned atomic.Int32

	cleanup := NewCleanup(store, &CleanupConfig{
		Interval: 50 * time.Millisecond,
		OnPruned: func(count int) {
			pruned.Store(int32(count))
		},
	})

	ctx := context.Background()

	if err := cleanup.Start(ctx); err != nil {
		t.Fatalf("Start() error = %v", err)
	}

	// Wait for at least one cleanup cycle
	time.Sleep(100 * time.Millisecond)

	if err := cleanup.Stop(ctx); err != nil {
		t.Fatalf("Stop() error = %v", err)
	}

	if pruned.Load() != 2 {
		t.Errorf("OnPruned count = %d, want 2", pruned.Load())
	}
}

func TestCleanup_OnError(t *testing.T) {
	store := &cleanupMockStore{pruneErr: errors.New("boom")}

	var calls atomic.Int32
	cleanup := NewCleanup(store, &CleanupConfig{
		Interval: time.Hour,
		OnError: func(err error) {
			calls.Add(1)
		},
	})

	ctx := context.Background()
	if err := cleanup.Start(ctx); err != nil {
		t.Fatalf("Start() error = %v", err)
	}

	deadline := time.Now().Add(time.Second)
	for calls.Load() == 0 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	_ = cleanup.Stop(ctx)

	if calls.Load() == 0 {
		t.Error("OnError was not called")
	}
}

func TestReconcileInterrupted(t *testing.T) {
	store := &cleanupMockStore{interrupted: 3}

	n, err := ReconcileInterrupted(context.Background(), store)
	if err != nil {
		t.Fatalf("ReconcileInterrupted() error = %v", err)
	}
	if n != 3 {
		t.Errorf("count = %d, want 3", n)
	}
	if !strings.HasPrefix(store.reason, "interrupted") {
		t.Errorf("reason = %q", store.reason)
	}

	store.failErr = errors.New("db down")
	if _, err := ReconcileInterrupted(context.Background(), store); !errors.Is(err, store.failErr) {
		t.Errorf("ReconcileInterrupted() error = %v, want wrapped store error", err)
	}
}
