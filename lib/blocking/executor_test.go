package blocking

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRunReturnsJobError(t *testing.T) {
	e := NewExecutor(2)

	require.NoError(t, e.Run(context.Background(), func() error { return nil }))

	boom := errors.New("boom")
	assert.ErrorIs(t, e.Run(context.Background(), func() error { return boom }), boom)
}

func TestRunBoundsConcurrency(t *testing.T) {
	e := NewExecutor(2)

	var running, maxRunning atomic.Int32
	errs := make(chan error, 8)
	for i := 0; i < 8; i++ {
		go func() {
			errs <- e.Run(context.Background(), func() error {
				n := running.Add(1)
				for {
					m := maxRunning.Load()
					if n <= m || maxRunning.CompareAndSwap(m, n) {
						break
					}
				}
				time.Sleep(5 * time.Millisecond)
				running.Add(-1)
				return nil
			})
		}()
	}
	for i := 0; i < 8; i++ {
		require.NoError(t, <-errs)
	}
	assert.LessOrEqual(t, maxRunning.Load(), int32(2))
}

func TestCancelledCallerDoesNotInterruptJob(t *testing.T) {
	e := NewExecutor(1)
	ctx, cancel := context.WithCancel(context.Background())

	started := make(chan struct{})
	release := make(chan struct{})
	var finished atomic.Bool
	errCh := make(chan error, 1)
	go func() {
		errCh <- e.Run(ctx, func() error {
			close(started)
			<-release
			finished.Store(true)
			return nil
		})
	}()

	<-started
	cancel()
	assert.ErrorIs(t, <-errCh, context.Canceled)

	close(release)
	// the slot is only given back after the job finished
	require.NoError(t, e.Run(context.Background(), func() error { return nil }))
	assert.True(t, finished.Load())
}

func TestRunWithDoneContextSkipsJob(t *testing.T) {
	e := NewExecutor(1)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	called := false
	err := e.Run(ctx, func() error { called = true; return nil })
	assert.ErrorIs(t, err, context.Canceled)
	assert.False(t, called)
}

func TestDefault(t *testing.T) {
	assert.Same(t, Default(), Default())
	assert.GreaterOrEqual(t, Default().Size(), 1)
}
