package maintenance

import "errors"

var (
	// ErrCleanupRunning is returned by Start while the pruning loop runs.
	ErrCleanupRunning = errors.New("maintenance: cleanup already running")

	// ErrCleanupStopped is returned by Stop when the loop was never started
	// or has already been stopped.
	ErrCleanupStopped = errors.New("maintenance: cleanup not running")
)
