package rstore

import (
	"context"

	"github.com/ValentinKolb/kvmux/lib/store"
	"github.com/ValentinKolb/kvmux/rpc/client"
)

// DefaultNamespace is the namespace used when none is configured.
const DefaultNamespace = "default"

// NewBackend creates a remote backend whose stores live in namespace ns of the
// remote service. An empty ns selects DefaultNamespace.
// The backend does not own shared; closing the backend leaves it open.
func NewBackend(shared *SharedClient, ns string) *Backend {
	if ns == "" {
		ns = DefaultNamespace
	}
	return &Backend{
		shared:    shared,
		namespace: ns,
	}
}

// Backend is a store.IBackend on the remote key-value service.
// Every store opened from it is bound to the same namespace, whatever its name.
type Backend struct {
	shared    *SharedClient
	namespace string
}

// --------------------------------------------------------------------------
// Interface Methods (docu see store/interface.go)
// --------------------------------------------------------------------------

// Open never contacts the service, so it always succeeds.
func (b *Backend) Open(_ context.Context, _ string) (store.IStoreHandle, error) {
	return &storeImpl{
		shared:    b.shared,
		namespace: b.namespace,
	}, nil
}

func (b *Backend) Close() error {
	return nil
}

// --------------------------------------------------------------------------
// Store Handle
// --------------------------------------------------------------------------

type storeImpl struct {
	shared    *SharedClient
	namespace string
}

func (s *storeImpl) Get(ctx context.Context, key string) ([]byte, error) {
	var value []byte
	var found bool
	err := s.shared.do(ctx, "get", func(c *client.KVClient) (err error) {
		value, found, err = c.Get(ctx, s.namespace, key)
		return err
	})
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, store.ErrNoSuchKey
	}
	return value, nil
}

func (s *storeImpl) Set(ctx context.Context, key string, value []byte) error {
	return s.shared.do(ctx, "set", func(c *client.KVClient) error {
		return c.Set(ctx, s.namespace, key, value)
	})
}

func (s *storeImpl) Delete(ctx context.Context, key string) error {
	return s.shared.do(ctx, "delete", func(c *client.KVClient) error {
		return c.Clear(ctx, s.namespace, key)
	})
}

func (s *storeImpl) Exists(ctx context.Context, key string) (bool, error) {
	return store.ExistsViaGet(ctx, s, key)
}

func (s *storeImpl) GetKeys(ctx context.Context) ([]string, error) {
	var keys []string
	err := s.shared.do(ctx, "list keys", func(c *client.KVClient) (err error) {
		keys, err = c.ListKeys(ctx, s.namespace)
		return err
	})
	return keys, err
}
