package sqlstore

import (
	"context"

	"github.com/ValentinKolb/kvmux/lib/blocking"
	"github.com/ValentinKolb/kvmux/lib/store"
)

// NewBackend creates a sqlite backend for location.
// The database is opened on the first call to Open, not here.
func NewBackend(location Location) *Backend {
	return NewBackendWithExecutor(location, blocking.Default())
}

// NewBackendWithExecutor is like NewBackend but runs all blocking work on exec.
func NewBackendWithExecutor(location Location, exec *blocking.Executor) *Backend {
	return &Backend{conn: NewLazyConn(location, exec)}
}

// Backend is a store.IBackend over one sqlite database.
// All stores opened from it share a single connection and one table,
// partitioned by store name.
type Backend struct {
	conn *LazyConn
}

// --------------------------------------------------------------------------
// Interface Methods (docu see store/interface.go)
// --------------------------------------------------------------------------

func (b *Backend) Open(ctx context.Context, name string) (store.IStoreHandle, error) {
	conn, err := b.conn.Get(ctx)
	if err != nil {
		return nil, err
	}
	return &storeImpl{
		name: name,
		conn: conn,
	}, nil
}

func (b *Backend) Close() error {
	return b.conn.Close()
}

// --------------------------------------------------------------------------
// Store Handle
// --------------------------------------------------------------------------

type storeImpl struct {
	name string
	conn *Conn
}

func (s *storeImpl) Get(ctx context.Context, key string) ([]byte, error) {
	return s.conn.Get(ctx, s.name, key)
}

func (s *storeImpl) Set(ctx context.Context, key string, value []byte) error {
	return s.conn.Set(ctx, s.name, key, value)
}

func (s *storeImpl) Delete(ctx context.Context, key string) error {
	return s.conn.Delete(ctx, s.name, key)
}

func (s *storeImpl) Exists(ctx context.Context, key string) (bool, error) {
	return store.ExistsViaGet(ctx, s, key)
}

func (s *storeImpl) GetKeys(ctx context.Context) ([]string, error) {
	return s.conn.Keys(ctx, s.name)
}
