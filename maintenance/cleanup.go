// Package maintenance keeps task run history tidy.
//
// ReconcileInterrupted runs once at startup and fails runs a previous process
// left unfinished. Cleanup runs in the background and prunes finished runs
// older than the retention window.
package maintenance

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"
)

// Default cleanup configuration values
const (
	DefaultCleanupInterval = 10 * time.Minute
	DefaultRunRetention    = 30 * 24 * time.Hour
)

// InterruptedReason is recorded on runs failed by ReconcileInterrupted.
const InterruptedReason = "interrupted: server stopped before the task finished"

// RunStore is the part of storage.Store maintenance needs.
type RunStore interface {
	FailInterruptedTaskRuns(ctx context.Context, reason string) (int, error)
	DeleteTaskRunsBefore(ctx context.Context, cutoff time.Time) (int, error)
}

// ReconcileInterrupted marks every run still pending or running as failed.
// Call it before any task is started; live runs of this process would be
// failed too.
func ReconcileInterrupted(ctx context.Context, store RunStore) (int, error) {
	n, err := store.FailInterruptedTaskRuns(ctx, InterruptedReason)
	if err != nil {
		return 0, fmt.Errorf("failed to reconcile interrupted runs: %w", err)
	}
	return n, nil
}

// CleanupConfig holds configuration for the cleanup service.
type CleanupConfig struct {
	// Interval is how often to run cleanup operations.
	// Default: 10 minutes
	Interval time.Duration

	// Retention is how long finished runs are kept.
	// Default: 30 days
	Retention time.Duration

	// OnPruned is called when finished runs were deleted.
	OnPruned func(count int)

	// OnError is called when a cleanup operation fails.
	OnError func(err error)

	// Now defaults to time.Now.
	Now func() time.Time
}

// DefaultCleanupConfig returns the default cleanup configuration.
func DefaultCleanupConfig() *CleanupConfig {
	return &CleanupConfig{
		Interval:  DefaultCleanupInterval,
		Retention: DefaultRunRetention,
	}
}

func (c *CleanupConfig) applyDefaults() {
	if c.Interval <= 0 {
		c.Interval = DefaultCleanupInterval
	}
	if c.Retention <= 0 {
		c.Retention = DefaultRunRetention
	}
	if c.Now == nil {
		c.Now = time.Now
	}
}

// CleanupResult holds the results of a cleanup operation.
type CleanupResult struct {
	// RunsPruned is the number of finished runs deleted.
	RunsPruned int

	// Errors contains any errors that occurred during cleanup.
	Errors []error
}

// Cleanup prunes old task run history on an interval.
type Cleanup struct {
	store  RunStore
	config *CleanupConfig

	started atomic.Bool
	done    chan struct{}
	cancel  context.CancelFunc
}

// NewCleanup creates a new cleanup service.
func NewCleanup(store RunStore, config *CleanupConfig) *Cleanup {
	if config == nil {
		config = DefaultCleanupConfig()
	}
	config.applyDefaults()

	return &Cleanup{
		store:  store,
		config: config,
	}
}

// Start begins the cleanup loop.
// It returns immediately and runs cleanup operations in a goroutine.
func (c *Cleanup) Start(ctx context.Context) error {
	if !c.started.CompareAndSwap(false, true) {
		return ErrCleanupRunning
	}

	c.done = make(chan struct{})
	ctx, c.cancel = context.WithCancel(ctx)
	go c.run(ctx)

	return nil
}

// Stop stops the cleanup loop and waits for it to exit.
func (c *Cleanup) Stop(ctx context.Context) error {
	if !c.started.Load() {
		return ErrCleanupStopped
	}

	c.cancel()
	select {
	case <-c.done:
	case <-ctx.Done():
		return ctx.Err()
	}

	c.started.Store(false)
	return nil
}

// run is the main cleanup loop.
func (c *Cleanup) run(ctx context.Context) {
	defer close(c.done)

	// Run cleanup immediately on start
	c.runCleanup(ctx)

	ticker := time.NewTicker(c.config.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			c.runCleanup(ctx)
		}
	}
}

func (c *Cleanup) runCleanup(ctx context.Context) {
	result := c.RunOnce(ctx)

	if c.config.OnPruned != nil && result.RunsPruned > 0 {
		c.config.OnPruned(result.RunsPruned)
	}

	if c.config.OnError != nil {
		for _, err := range result.Errors {
			c.config.OnError(err)
		}
	}
}

// RunOnce performs cleanup operations once and returns the result.
func (c *Cleanup) RunOnce(ctx context.Context) *CleanupResult {
	result := &CleanupResult{}

	cutoff := c.config.Now().Add(-c.config.Retention)
	n, err := c.store.DeleteTaskRunsBefore(ctx, cutoff)
	if err != nil {
		result.Errors = append(result.Errors, fmt.Errorf("failed to prune task runs: %w", err))
	} else {
		result.RunsPruned = n
	}

	return result
}

// IsRunning returns true if the cleanup service is running.
func (c *Cleanup) IsRunning() bool {
	return c.started.Load()
}
