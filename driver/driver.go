// Package driver provides database driver abstractions for agentdesk.
//
// This package defines the interfaces that database drivers must implement
// so the shared SQL store in driver/sqlstore can run on either pgx/v5 or
// database/sql. Drivers translate their native errors into ErrNoRows and
// ErrUniqueViolation so store code never imports a driver package.
package driver

import (
	"context"
	"errors"

	"github.com/youssefsiam38/agentdesk/storage"
)

// Driver errors.
var (
	// ErrNoRows is returned by Row.Scan when the query matched nothing.
	ErrNoRows = errors.New("driver: no rows in result set")

	// ErrUniqueViolation is returned when a statement violates a unique constraint.
	ErrUniqueViolation = errors.New("driver: unique constraint violation")
)

// Driver provides database operations for agentdesk.
//
// Implementations should be created using the driver-specific New() functions:
//   - github.com/youssefsiam38/agentdesk/driver/pgxv5.New(pool)
//   - github.com/youssefsiam38/agentdesk/driver/databasesql.New(db)
type Driver interface {
	// GetExecutor returns an executor for non-transactional operations.
	// The returned Executor uses the underlying connection pool.
	GetExecutor() Executor

	// Begin starts a new transaction and returns an ExecutorTx.
	Begin(ctx context.Context) (ExecutorTx, error)

	// PoolIsSet returns true if the driver has a database pool configured.
	PoolIsSet() bool

	// GetStore returns a Store implementation using this driver.
	GetStore() storage.Store
}
