// Package pgxv5 provides a pgx/v5 driver implementation for agentdesk.
//
// This is the recommended driver, offering native batch operations and
// nested transactions via savepoints.
//
// Usage:
//
//	pool, _ := pgxpool.New(ctx, databaseURL)
//	drv := pgxv5.New(pool)
//	client, _ := agentdesk.NewClient(drv.GetStore(), nil)
package pgxv5

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/youssefsiam38/agentdesk/driver"
	"github.com/youssefsiam38/agentdesk/driver/sqlstore"
	"github.com/youssefsiam38/agentdesk/storage"
)

// uniqueViolation is the PostgreSQL SQLSTATE for unique_violation.
const uniqueViolation = "23505"

// Driver implements driver.Driver for pgx/v5.
type Driver struct {
	pool *pgxpool.Pool
}

// New creates a new pgx/v5 driver with the given connection pool.
func New(pool *pgxpool.Pool) *Driver {
	return &Driver{pool: pool}
}

// GetExecutor returns an executor for non-transactional operations.
func (d *Driver) GetExecutor() driver.Executor {
	return &Executor{pool: d.pool}
}

// Begin starts a new transaction and returns an ExecutorTx.
func (d *Driver) Begin(ctx context.Context) (driver.ExecutorTx, error) {
	tx, err := d.pool.Begin(ctx)
	if err != nil {
		return nil, translateError(err)
	}
	return &ExecutorTx{tx: tx}, nil
}

// PoolIsSet returns true if the driver has a database pool configured.
func (d *Driver) PoolIsSet() bool {
	return d.pool != nil
}

// GetStore returns a Store implementation using this driver.
func (d *Driver) GetStore() storage.Store {
	return sqlstore.New(d)
}

// Pool returns the underlying pgxpool.Pool.
func (d *Driver) Pool() *pgxpool.Pool {
	return d.pool
}

// Executor wraps pgxpool.Pool for non-transactional operations.
type Executor struct {
	pool *pgxpool.Pool
}

// Begin starts a new transaction.
func (e *Executor) Begin(ctx context.Context) (driver.ExecutorTx, error) {
	tx, err := e.pool.Begin(ctx)
	if err != nil {
		return nil, translateError(err)
	}
	return &ExecutorTx{tx: tx}, nil
}

// Exec executes a query that doesn't return rows.
func (e *Executor) Exec(ctx context.Context, sql string, args ...any) (int64, error) {
	result, err := e.pool.Exec(ctx, sql, args...)
	if err != nil {
		return 0, translateError(err)
	}
	return result.RowsAffected(), nil
}

// Query executes a query that returns rows.
func (e *Executor) Query(ctx context.Context, sql string, args ...any) (driver.Rows, error) {
	rows, err := e.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, translateError(err)
	}
	return &rowsWrapper{rows}, nil
}

// QueryRow executes a query that returns at most one row.
func (e *Executor) QueryRow(ctx context.Context, sql string, args ...any) driver.Row {
	return &rowWrapper{e.pool.QueryRow(ctx, sql, args...)}
}

// SendBatch sends multiple queries in a single round trip.
func (e *Executor) SendBatch(ctx context.Context, items []driver.BatchItem) ([]int64, error) {
	return sendBatch(ctx, e.pool, items)
}

// ExecutorTx wraps pgx.Tx for transactional operations.
type ExecutorTx struct {
	tx pgx.Tx
}

// Begin starts a nested transaction (savepoint).
func (e *ExecutorTx) Begin(ctx context.Context) (driver.ExecutorTx, error) {
	tx, err := e.tx.Begin(ctx)
	if err != nil {
		return nil, translateError(err)
	}
	return &ExecutorTx{tx: tx}, nil
}

// Exec executes a query that doesn't return rows within the transaction.
func (e *ExecutorTx) Exec(ctx context.Context, sql string, args ...any) (int64, error) {
	result, err := e.tx.Exec(ctx, sql, args...)
	if err != nil {
		return 0, translateError(err)
	}
	return result.RowsAffected(), nil
}

// Query executes a query that returns rows within the transaction.
func (e *ExecutorTx) Query(ctx context.Context, sql string, args ...any) (driver.Rows, error) {
	rows, err := e.tx.Query(ctx, sql, args...)
	if err != nil {
		return nil, translateError(err)
	}
	return &rowsWrapper{rows}, nil
}

// QueryRow executes a query that returns at most one row within the transaction.
func (e *ExecutorTx) QueryRow(ctx context.Context, sql string, args ...any) driver.Row {
	return &rowWrapper{e.tx.QueryRow(ctx, sql, args...)}
}

// Commit commits the transaction.
func (e *ExecutorTx) Commit(ctx context.Context) error {
	return translateError(e.tx.Commit(ctx))
}

// Rollback rolls back the transaction.
func (e *ExecutorTx) Rollback(ctx context.Context) error {
	err := e.tx.Rollback(ctx)
	if errors.Is(err, pgx.ErrTxClosed) {
		return nil
	}
	return err
}

// SendBatch sends multiple queries as a batch within the transaction.
func (e *ExecutorTx) SendBatch(ctx context.Context, items []driver.BatchItem) ([]int64, error) {
	return sendBatch(ctx, e.tx, items)
}

// Tx returns the underlying pgx.Tx.
func (e *ExecutorTx) Tx() pgx.Tx {
	return e.tx
}

type batchSender interface {
	SendBatch(ctx context.Context, b *pgx.Batch) pgx.BatchResults
}

func sendBatch(ctx context.Context, sender batchSender, items []driver.BatchItem) (affected []int64, err error) {
	batch := &pgx.Batch{}
	for _, item := range items {
		batch.Queue(item.Query, item.Args...)
	}

	results := sender.SendBatch(ctx, batch)
	defer func() {
		if closeErr := results.Close(); closeErr != nil && err == nil {
			err = translateError(closeErr)
		}
	}()

	affected = make([]int64, len(items))
	for i := range items {
		result, execErr := results.Exec()
		if execErr != nil {
			return nil, translateError(execErr)
		}
		affected[i] = result.RowsAffected()
	}
	return affected, nil
}

// translateError maps pgx errors onto the driver package errors.
func translateError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return driver.ErrNoRows
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
		return fmt.Errorf("%w: %s", driver.ErrUniqueViolation, pgErr.ConstraintName)
	}
	return err
}

type rowWrapper struct {
	row pgx.Row
}

func (r *rowWrapper) Scan(dest ...any) error {
	return translateError(r.row.Scan(dest...))
}

// rowsWrapper adapts pgx.Rows to driver.Rows.
type rowsWrapper struct {
	rows pgx.Rows
}

func (r *rowsWrapper) Close()     { r.rows.Close() }
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
