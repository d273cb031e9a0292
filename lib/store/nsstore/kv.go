package nsstore

import (
	"context"
	"errors"
	"sync"

	"github.com/ValentinKolb/kvmux/lib/blocking"
	"github.com/ValentinKolb/kvmux/lib/store"
	"github.com/ValentinKolb/kvmux/lib/store/sqlstore"
	"github.com/ValentinKolb/kvmux/lib/table"
)

// Namespace identifies an open namespace of a KeyValue.
type Namespace = uint32

// KeyValue is a sqlite backed key-value store with numeric namespace ids.
// It is safe for concurrent use.
type KeyValue struct {
	conn *sqlstore.LazyConn

	mu         sync.RWMutex
	namespaces *table.Table[string]
}

// New creates a KeyValue for location. A nil executor selects blocking.Default().
func New(location sqlstore.Location, exec *blocking.Executor) *KeyValue {
	return &KeyValue{
		conn:       sqlstore.NewLazyConn(location, exec),
		namespaces: table.New[string](),
	}
}

// Open allocates an id for the namespace name. Several ids may refer to the same name.
func (kv *KeyValue) Open(name string) (Namespace, error) {
	kv.mu.Lock()
	defer kv.mu.Unlock()

	ns, err := kv.namespaces.Push(name)
	if errors.Is(err, table.ErrTableFull) {
		return 0, store.ErrNamespaceTableFull
	}
	return ns, err
}

// Close releases the id ns. Closing an unknown id does nothing.
func (kv *KeyValue) Close(ns Namespace) {
	kv.mu.Lock()
	defer kv.mu.Unlock()
	kv.namespaces.Remove(ns)
}

// Get returns the value for key in ns.
func (kv *KeyValue) Get(ctx context.Context, ns Namespace, key string) ([]byte, error) {
	name, conn, err := kv.resolve(ctx, ns)
	if err != nil {
		return nil, err
	}
	return conn.Get(ctx, name, key)
}

// Set inserts or overwrites the value for key in ns.
func (kv *KeyValue) Set(ctx context.Context, ns Namespace, key string, value []byte) error {
	name, conn, err := kv.resolve(ctx, ns)
	if err != nil {
		return err
	}
	return conn.Set(ctx, name, key, value)
}

// Delete removes key from ns.
func (kv *KeyValue) Delete(ctx context.Context, ns Namespace, key string) error {
	name, conn, err := kv.resolve(ctx, ns)
	if err != nil {
		return err
	}
	return conn.Delete(ctx, name, key)
}

// Exists reports whether key is present in ns.
func (kv *KeyValue) Exists(ctx context.Context, ns Namespace, key string) (bool, error) {
	return store.ExistsViaGet(ctx, kv.Handle(ns), key)
}

// Handle returns a store.IStoreHandle view of ns.
func (kv *KeyValue) Handle(ns Namespace) store.IStoreHandle {
	return &handle{kv: kv, ns: ns}
}

// GetKeys returns all keys of ns.
func (kv *KeyValue) GetKeys(ctx context.Context, ns Namespace) ([]string, error) {
	name, conn, err := kv.resolve(ctx, ns)
	if err != nil {
		return nil, err
	}
	return conn.Keys(ctx, name)
}

// Shutdown closes the database connection, if one was established.
// The KeyValue must not be used afterwards.
func (kv *KeyValue) Shutdown() error {
	return kv.conn.Close()
}

// Connected reports whether the database has been opened.
func (kv *KeyValue) Connected() bool {
	return kv.conn.Connected()
}

// resolve maps ns to its name and returns the (lazily established) connection.
// An unknown id is reported before any storage is touched.
func (kv *KeyValue) resolve(ctx context.Context, ns Namespace) (string, *sqlstore.Conn, error) {
	kv.mu.RLock()
	name, ok := kv.namespaces.Get(ns)
	kv.mu.RUnlock()
	if !ok {
		return "", nil, store.ErrInvalidNamespace
	}

	conn, err := kv.conn.Get(ctx)
	if err != nil {
		return "", nil, err
	}
	return name, conn, nil
}

// handle binds a KeyValue to one namespace id.
type handle struct {
	kv *KeyValue
	ns Namespace
}

func (h *handle) Get(ctx context.Context, key string) ([]byte, error) {
	return h.kv.Get(ctx, h.ns, key)
}

func (h *handle) Set(ctx context.Context, key string, value []byte) error {
	return h.kv.Set(ctx, h.ns, key, value)
}

func (h *handle) Delete(ctx context.Context, key string) error {
	return h.kv.Delete(ctx, h.ns, key)
}

func (h *handle) Exists(ctx context.Context, key string) (bool, error) {
	return h.kv.Exists(ctx, h.ns, key)
}

func (h *handle) GetKeys(ctx context.Context) ([]string, error) {
	return h.kv.GetKeys(ctx, h.ns)
}
