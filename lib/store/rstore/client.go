package rstore

import (
	"context"
	"errors"
	"fmt"

	"github.com/ValentinKolb/kvmux/lib/store"
	"github.com/ValentinKolb/kvmux/rpc/client"
	"github.com/lni/dragonboat/v4/logger"
	"golang.org/x/sync/semaphore"
)

var Logger = logger.GetLogger("store")

// SharedClient is a remote client shared by all remote stores of a façade.
//
// Only one request is in flight at a time: the lock is held for the whole
// round trip and waiting for it respects the caller's context.
type SharedClient struct {
	lock   *semaphore.Weighted
	client *client.KVClient
}

// NewSharedClient wraps c. The client connects on its first request.
func NewSharedClient(c *client.KVClient) *SharedClient {
	return &SharedClient{
		lock:   semaphore.NewWeighted(1),
		client: c,
	}
}

// Close closes the underlying client once no request is in flight.
func (s *SharedClient) Close() error {
	if err := s.lock.Acquire(context.Background(), 1); err != nil {
		return err
	}
	defer s.lock.Release(1)
	return s.client.Close()
}

// do runs fn with exclusive access to the client and converts its error.
func (s *SharedClient) do(ctx context.Context, op string, fn func(c *client.KVClient) error) error {
	if err := s.lock.Acquire(ctx, 1); err != nil {
		return store.NewRuntimeError(err.Error())
	}
	defer s.lock.Release(1)

	return remoteError(ctx, op, fn(s.client))
}

// remoteError converts a client error into a store error.
// Cancellation by the caller is a runtime error, every other failure means the
// remote store is unusable.
func remoteError(ctx context.Context, op string, err error) error {
	if err == nil {
		return nil
	}
	if ctxErr := ctx.Err(); ctxErr != nil && errors.Is(err, ctxErr) {
		return store.NewRuntimeError(ctxErr.Error())
	}
	Logger.Warningf("remote %s failed: %v", op, err)
	return store.NewError(store.RetCInvalidStore, fmt.Sprintf("remote %s failed: %v", op, err))
}
