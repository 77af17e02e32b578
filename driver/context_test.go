package driver

import (
	"context"
	"errors"
	"testing"
)

type fakeTx struct {
	execs   []string
	failing string
}

func (f *fakeTx) Begin(ctx context.Context) (ExecutorTx, error) { return f, nil }
func (f *fakeTx) Exec(ctx context.Context, sql string, args ...any) (int64, error) {
	if sql == f.failing {
		return 0, errors.New("boom")
	}
	f.execs = append(f.execs, sql)
	return 1, nil
}
func (f *fakeTx) Query(ctx context.Context, sql string, args ...any) (Rows, error) { return nil, nil }
func (f *fakeTx) QueryRow(ctx context.Context, sql string, args ...any) Row      { return nil }
func (f *fakeTx) Commit(ctx context.Context) error                                { return nil }
func (f *fakeTx) Rollback(ctx context.Context) error                              { return nil }

type ctxKey string

func TestWithExecutor(t *testing.T) {
	ctx := context.Background()
	if ExecutorFromContext(ctx) != nil {
		t.Fatal("ExecutorFromContext() on empty context should be nil")
	}

	tx := &fakeTx{}
	txCtx := WithExecutor(ctx, tx)
	if got := ExecutorFromContext(txCtx); got != tx {
		t.Errorf("ExecutorFromContext() = %v, want %v", got, tx)
	}
}

func TestStripExecutor(t *testing.T) {
	ctx := context.WithValue(context.Background(), ctxKey("k"), "v")
	ctx, cancel := context.WithCancel(ctx)
	txCtx := WithExecutor(ctx, &fakeTx{})

	stripped := StripExecutor(txCtx)
	if ExecutorFromContext(stripped) != nil {
		t.Error("StripExecutor() should hide the executor")
	}
	if stripped.Value(ctxKey("k")) != "v" {
		t.Error("StripExecutor() should keep other values")
	}

	cancel()
	select {
	case <-stripped.Done():
	default:
		t.Error("StripExecutor() should keep cancellation")
	}
}

func TestExecBatch_Sequential(t *testing.T) {
	tx := &fakeTx{}
	affected, err := ExecBatch(context.Background(), tx, []BatchItem{
		{Query: "a"},
		{Query: "b"},
	})
	if err != nil {
		t.Fatalf("ExecBatch() error = %v", err)
	}
	if len(affected) != 2 || affected[0] != 1 || affected[1] != 1 {
		t.Errorf("ExecBatch() affected = %v, want [1 1]", affected)
	}
	if len(tx.execs) != 2 || tx.execs[0] != "a" || tx.execs[1] != "b" {
		t.Errorf("ExecBatch() ran %v, want [a b]", tx.execs)
	}
}

func TestExecBatch_StopsOnError(t *testing.T) {
	tx := &fakeTx{failing: "b"}
	_, err := ExecBatch(context.Background(), tx, []BatchItem{
		{Query: "a"},
		{Query: "b"},
		{Query: "c"},
	})
	if err == nil {
		t.Fatal("ExecBatch() error = nil, want error")
	}
	if len(tx.execs) != 1 {
		t.Errorf("ExecBatch() ran %d items, want 1", len(tx.execs))
	}
}
