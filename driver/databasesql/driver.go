// Package databasesql provides a database/sql driver implementation for agentdesk.
//
// It is intended for applications that already manage a *sql.DB opened with
// the lib/pq driver. Nested transactions are emulated with savepoints and
// batches execute sequentially.
//
// Usage:
//
//	db, _ := sql.Open("postgres", databaseURL)
//	drv := databasesql.New(db)
//	client, _ := agentdesk.NewClient(drv.GetStore(), nil)
package databasesql

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync/atomic"

	"github.com/lib/pq"
	"github.com/youssefsiam38/agentdesk/driver"
	"github.com/youssefsiam38/agentdesk/driver/sqlstore"
	"github.com/youssefsiam38/agentdesk/storage"
)

// uniqueViolation is the PostgreSQL SQLSTATE for unique_violation.
const uniqueViolation pq.ErrorCode = "23505"

// Driver implements driver.Driver using database/sql.
type Driver struct {
	db *sql.DB
}

// New creates a new database/sql driver using the provided connection.
// The caller keeps ownership of db.
func New(db *sql.DB) *Driver {
	return &Driver{db: db}
}

// GetExecutor returns an executor for non-transactional operations.
func (d *Driver) GetExecutor() driver.Executor {
	return &Executor{db: d.db}
}

// Begin starts a new transaction and returns an ExecutorTx.
func (d *Driver) Begin(ctx context.Context) (driver.ExecutorTx, error) {
	return (&Executor{db: d.db}).Begin(ctx)
}

// PoolIsSet returns true if the driver has a database configured.
func (d *Driver) PoolIsSet() bool {
	return d.db != nil
}

// GetStore returns a Store implementation using this driver.
func (d *Driver) GetStore() storage.Store {
	return sqlstore.New(d)
}

// DB returns the underlying database connection.
func (d *Driver) DB() *sql.DB {
	return d.db
}

// Executor wraps *sql.DB for non-transactional operations.
type Executor struct {
	db *sql.DB
}

// Begin starts a new transaction.
func (e *Executor) Begin(ctx context.Context) (driver.ExecutorTx, error) {
	tx, err := e.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, translateError(err)
	}
	return &ExecutorTx{tx: tx, savepoints: new(atomic.Int64)}, nil
}

// Exec executes a query that doesn't return rows.
func (e *Executor) Exec(ctx context.Context, query string, args ...any) (int64, error) {
	result, err := e.db.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, translateError(err)
	}
	return result.RowsAffected()
}

// Query executes a query that returns rows.
func (e *Executor) Query(ctx context.Context, query string, args ...any) (driver.Rows, error) {
	rows, err := e.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, translateError(err)
	}
	return &rowsWrapper{rows}, nil
}

// QueryRow executes a query that returns at most one row.
func (e *Executor) QueryRow(ctx context.Context, query string, args ...any) driver.Row {
	return &rowWrapper{e.db.QueryRowContext(ctx, query, args...)}
}

// SendBatch executes the items sequentially; database/sql has no batching.
func (e *Executor) SendBatch(ctx context.Context, items []driver.BatchItem) ([]int64, error) {
	return sendSequential(ctx, e, items)
}

// ExecutorTx wraps *sql.Tx. Nested Begin calls create savepoints.
type ExecutorTx struct {
	tx *sql.Tx

	// savepoint is empty for the outer transaction.
	savepoint  string
	savepoints *atomic.Int64
	done       bool
}

// Begin creates a savepoint inside the transaction.
func (e *ExecutorTx) Begin(ctx context.Context) (driver.ExecutorTx, error) {
	name := fmt.Sprintf("agentdesk_sp_%d", e.savepoints.Add(1))
	if _, err := e.tx.ExecContext(ctx, "SAVEPOINT "+name); err != nil {
		return nil, translateError(err)
	}
	return &ExecutorTx{tx: e.tx, savepoint: name, savepoints: e.savepoints}, nil
}

// Exec executes a query that doesn't return rows within the transaction.
func (e *ExecutorTx) Exec(ctx context.Context, query string, args ...any) (int64, error) {
	result, err := e.tx.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, translateError(err)
	}
	return result.RowsAffected()
}

// Query executes a query that returns rows within the transaction.
func (e *ExecutorTx) Query(ctx context.Context, query string, args ...any) (driver.Rows, error) {
	rows, err := e.tx.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, translateError(err)
	}
	return &rowsWrapper{rows}, nil
}

// QueryRow executes a query that returns at most one row within the transaction.
func (e *ExecutorTx) QueryRow(ctx context.Context, query string, args ...any) driver.Row {
	return &rowWrapper{e.tx.QueryRowContext(ctx, query, args...)}
}

// Commit commits the transaction, or releases the savepoint.
func (e *ExecutorTx) Commit(ctx context.Context) error {
	if e.done {
		return sql.ErrTxDone
	}
	e.done = true
	if e.savepoint != "" {
		_, err := e.tx.ExecContext(ctx, "RELEASE SAVEPOINT "+e.savepoint)
		return translateError(err)
	}
	return translateError(e.tx.Commit())
}

// Rollback rolls back the transaction, or to the savepoint.
// Rolling back after Commit is a no-op so it can be deferred.
func (e *ExecutorTx) Rollback(ctx context.Context) error {
	if e.done {
		return nil
	}
	e.done = true
	if e.savepoint != "" {
		_, err := e.tx.ExecContext(ctx, "ROLLBACK TO SAVEPOINT "+e.savepoint)
		return translateError(err)
	}
	err := e.tx.Rollback()
	if errors.Is(err, sql.ErrTxDone) {
		return nil
	}
	return err
}

// SendBatch executes the items sequentially within the transaction.
func (e *ExecutorTx) SendBatch(ctx context.Context, items []driver.BatchItem) ([]int64, error) {
	return sendSequential(ctx, e, items)
}

// Tx returns the underlying *sql.Tx.
func (e *ExecutorTx) Tx() *sql.Tx {
	return e.tx
}

func sendSequential(ctx context.Context, exec driver.Executor, items []driver.BatchItem) ([]int64, error) {
	affected := make([]int64, len(items))
	for i, item := range items {
		n, err := exec.Exec(ctx, item.Query, item.Args...)
		if err != nil {
			return nil, err
		}
		affected[i] = n
	}
	return affected, nil
}

// translateError maps database/sql and lib/pq errors onto the driver package errors.
func translateError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return driver.ErrNoRows
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
		return fmt.Errorf("%w: %s", driver.ErrUniqueViolation, pqErr.Constraint)
	}
	return err
}

type rowWrapper struct {
	row *sql.Row
}

func (r *rowWrapper) Scan(dest ...any) error {
	return translateError(r.row.Scan(dest...))
}

type rowsWrapper struct {
	rows *sql.Rows
}

func (r *rowsWrapper) Close()     { _ = r.rows.Close() }
func (r *rowsWrapper) Err() error { return translateError(r.rows.Err()) }
func (r *rowsWrapper) Next() bool { return r.rows.Next() }

func (r *rowsWrapper) Scan(dest ...any) error {
	return r.rows.Scan(dest...)
}

var (
	_ driver.Driver        = (*Driver)(nil)
	_ driver.BatchExecutor = (*Executor)(nil)
	_ driver.BatchExecutor = (*ExecutorTx)(nil)
)
