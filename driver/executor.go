package driver

import "context"

// Row is the result of QueryRow. Scan returns ErrNoRows for an empty result.
type Row interface {
	Scan(dest ...any) error
}

// Rows iterates a query result. Callers must Close it and check Err.
type Rows interface {
	Close()
	Err() error
	Next() bool
	Scan(dest ...any) error
}

// Executor runs SQL against a pool or inside a transaction. Begin on a
// transaction opens a savepoint.
type Executor interface {
	Begin(ctx context.Context) (ExecutorTx, error)
	Exec(ctx context.Context, sql string, args ...any) (int64, error)
	Query(ctx context.Context, sql string, args ...any) (Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) Row
}

// ExecutorTx is a transaction or savepoint. Commit on a savepoint releases
// it; Rollback rolls back to it.
type ExecutorTx interface {
	Executor
	Commit(ctx context.Context) error
	Rollback(ctx context.Context) error
}

// BatchItem is one statement of a batch.
type BatchItem struct {
	Query string
	Args  []any
}

// BatchExecutor is implemented by executors that can send several
// statements in one round trip.
type BatchExecutor interface {
	Executor
	SendBatch(ctx context.Context, items []BatchItem) ([]int64, error)
}

// ExecBatch runs items in order and returns the rows affected by each. It
// uses SendBatch when exec supports it and stops at the first error
// otherwise.
func ExecBatch(ctx context.Context, exec Executor, items []BatchItem) ([]int64, error) {
	if b, ok := exec.(BatchExecutor); ok {
		return b.SendBatch(ctx, items)
	}

	affected := make([]int64, 0, len(items))
	for _, item := range items {
		n, err := exec.Exec(ctx, item.Query, item.Args...)
		if err != nil {
			return nil, err
		}
		affected = append(affected, n)
	}
	return affected, nil
}
