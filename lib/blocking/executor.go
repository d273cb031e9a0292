package blocking

import (
	"context"
	"runtime"
	"sync"

	"golang.org/x/sync/semaphore"
)

// Executor runs blocking functions (cgo calls, file and socket I/O) on
// goroutines of their own, bounded by a fixed number of slots.
//
// Callers wait for the result but can give up early through their context.
// A job that already started is never interrupted: it always runs to
// completion, so any shared state it mutates is either fully updated or not
// touched at all.
type Executor struct {
	slots *semaphore.Weighted
	size  int64
}

// NewExecutor creates an executor that runs at most size jobs at the same time.
// A size below one is treated as one.
func NewExecutor(size int) *Executor {
	if size < 1 {
		size = 1
	}
	return &Executor{
		slots: semaphore.NewWeighted(int64(size)),
		size:  int64(size),
	}
}

var (
	defaultExecutor     *Executor
	defaultExecutorOnce sync.Once
)

// Default returns the process wide executor, sized to GOMAXPROCS.
func Default() *Executor {
	defaultExecutorOnce.Do(func() {
		defaultExecutor = NewExecutor(runtime.GOMAXPROCS(0))
	})
	return defaultExecutor
}

// Size returns the number of concurrent jobs the executor allows.
func (e *Executor) Size() int {
	return int(e.size)
}

// Run executes fn on the executor and returns its error.
//
// If ctx is done before a slot is free, fn is not run and ctx.Err() is returned.
// If ctx is done while fn is running, Run returns ctx.Err() immediately and the
// result of fn is discarded once it finishes.
func (e *Executor) Run(ctx context.Context, fn func() error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := e.slots.Acquire(ctx, 1); err != nil {
		return err
	}

	done := make(chan error, 1)
	go func() {
		defer e.slots.Release(1)
		done <- fn()
	}()

	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}
