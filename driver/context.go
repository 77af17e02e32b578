package driver

import "context"

type txKey struct{}

// WithExecutor scopes store calls made with the returned context to tx.
//
//	tx, _ := drv.Begin(ctx)
//	_ = store.DeleteAgent(driver.WithExecutor(ctx, tx), "researcher")
//	_ = tx.Commit(ctx)
func WithExecutor(ctx context.Context, tx ExecutorTx) context.Context {
	return context.WithValue(ctx, txKey{}, tx)
}

// ExecutorFromContext returns the transaction set by WithExecutor, or nil.
func ExecutorFromContext(ctx context.Context) ExecutorTx {
	tx, _ := ctx.Value(txKey{}).(ExecutorTx)
	return tx
}

// StripExecutor hides the transaction of ctx and keeps everything else.
// Task runs outlive the request that started them, so their history
// writes must not join its transaction.
func StripExecutor(ctx context.Context) context.Context {
	return withoutTx{ctx}
}

type withoutTx struct {
	context.Context
}

func (c withoutTx) Value(key any) any {
	if key == (txKey{}) {
		return nil
	}
	return c.Context.Value(key)
}
