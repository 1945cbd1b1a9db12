// Package executor provides the execution contexts used by asynchronous
// stream stages.
//
// An Executor only has to run submitted tasks eventually; ordering between
// tasks is not guaranteed. Stages that need serial execution serialize
// themselves.
//
//	pool := executor.NewPool(executor.PoolConfig{Name: "consumer", Workers: 2})
//	if err := pool.Start(ctx); err != nil { ... }
//	defer pool.Stop(ctx)
//
//	out, err := flow.ObserveOn(src, pool, 16)
package executor
