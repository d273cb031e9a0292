package dispatch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/ValentinKolb/kvmux/lib/store"
	"github.com/ValentinKolb/kvmux/lib/store/rstore"
	"github.com/ValentinKolb/kvmux/lib/store/sqlstore"
	"github.com/ValentinKolb/kvmux/lib/table"
	"github.com/ValentinKolb/kvmux/rpc/client"
	"github.com/ValentinKolb/kvmux/rpc/registry"
	"github.com/VictoriaMetrics/metrics"
	"github.com/lni/dragonboat/v4/logger"
)

var Logger = logger.GetLogger("dispatch")

// Handle identifies an open store of a Dispatch.
type Handle = uint32

// Dispatch routes store operations by name to the configured backends.
//
// Store names are fixed at construction. Open binds a name to a fresh handle,
// every other operation addresses the store through that handle.
//
// Dispatch is not safe for concurrent use, see NewLocked.
type Dispatch struct {
	backends map[string]store.IBackend
	shared   *rstore.SharedClient
	handles  *table.Table[store.IStoreHandle]
}

// New builds one backend per configured store name. All remote stores share a
// single lazily connecting client, so New does not touch the network.
func New(config Config) (*Dispatch, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	d := &Dispatch{
		backends: make(map[string]store.IBackend, len(config.Stores)),
		handles:  table.New[store.IStoreHandle](),
	}

	for name, sc := range config.Stores {
		switch sc.Type {
		case StoreTypeSQLite:
			d.backends[name] = sqlstore.NewBackend(sqlstore.Path(sc.Path))
		case StoreTypeMemory:
			d.backends[name] = sqlstore.NewBackend(sqlstore.InMemory())
		case StoreTypeRemote:
			if d.shared == nil {
				shared, err := newSharedClient(config.Remote)
				if err != nil {
					return nil, err
				}
				d.shared = shared
			}
			d.backends[name] = rstore.NewBackend(d.shared, sc.Namespace)
		default:
			return nil, fmt.Errorf("store %q: unknown store type %q", name, sc.Type)
		}
	}

	return d, nil
}

// NewWithBackends creates a Dispatch over already constructed backends.
// The Dispatch takes ownership of them and closes them on Shutdown.
func NewWithBackends(backends map[string]store.IBackend) *Dispatch {
	d := &Dispatch{
		backends: make(map[string]store.IBackend, len(backends)),
		handles:  table.New[store.IStoreHandle](),
	}
	for name, b := range backends {
		d.backends[name] = b
	}
	return d
}

func newSharedClient(config RemoteConfig) (*rstore.SharedClient, error) {
	transportName, serializerName := config.Transport, config.Serializer
	if transportName == "" {
		transportName = "tcp"
	}
	if serializerName == "" {
		serializerName = "binary"
	}

	t, err := registry.NewClientTransport(transportName)
	if err != nil {
		return nil, err
	}
	s, err := registry.NewSerializer(serializerName)
	if err != nil {
		return nil, err
	}

	return rstore.NewSharedClient(client.NewKVClient(config.ShardID, config.ClientConfig(), t, s)), nil
}

// --------------------------------------------------------------------------
// Store Operations
// --------------------------------------------------------------------------

// Open opens the store configured under name and returns a new handle for it.
func (d *Dispatch) Open(ctx context.Context, name string) (h Handle, err error) {
	defer observe("open", time.Now(), &err)

	backend, ok := d.backends[name]
	if !ok {
		return 0, store.NewError(store.RetCNoSuchStore, fmt.Sprintf("no store configured under %q", name))
	}

	s, err := backend.Open(ctx, name)
	if err != nil {
		Logger.Warningf("failed to open store %q: %v", name, err)
		return 0, err
	}

	h, err = d.handles.Push(s)
	if err != nil {
		closeStore(s)
		return 0, store.ErrStoreTableFull
	}
	return h, nil
}

// Get returns the value stored under key.
func (d *Dispatch) Get(ctx context.Context, h Handle, key string) (value []byte, err error) {
	defer observe("get", time.Now(), &err)

	s, err := d.lookup(h)
	if err != nil {
		return nil, err
	}
	return s.Get(ctx, key)
}

// Set stores value under key.
func (d *Dispatch) Set(ctx context.Context, h Handle, key string, value []byte) (err error) {
	defer observe("set", time.Now(), &err)

	s, err := d.lookup(h)
	if err != nil {
		return err
	}
	return s.Set(ctx, key, value)
}

// Delete removes key. Deleting an absent key succeeds.
func (d *Dispatch) Delete(ctx context.Context, h Handle, key string) (err error) {
	defer observe("delete", time.Now(), &err)

	s, err := d.lookup(h)
	if err != nil {
		return err
	}
	return s.Delete(ctx, key)
}

// Exists reports whether key is present.
func (d *Dispatch) Exists(ctx context.Context, h Handle, key string) (ok bool, err error) {
	defer observe("exists", time.Now(), &err)

	s, err := d.lookup(h)
	if err != nil {
		return false, err
	}
	return s.Exists(ctx, key)
}

// GetKeys lists the keys of the store. Stores that cannot enumerate their keys
// fail with RetCRuntime.
func (d *Dispatch) GetKeys(ctx context.Context, h Handle) (keys []string, err error) {
	defer observe("keys", time.Now(), &err)

	s, err := d.lookup(h)
	if err != nil {
		return nil, err
	}
	lister, ok := s.(store.IKeyLister)
	if !ok {
		return nil, store.NewRuntimeError("store does not support listing keys")
	}
	return lister.GetKeys(ctx)
}

// Close releases the handle. Closing a handle that is not open is a no-op.
func (d *Dispatch) Close(h Handle) {
	start := time.Now()
	if s, ok := d.handles.Remove(h); ok {
		closeStore(s)
	}
	observe("close", start, new(error))
}

// Shutdown closes every open handle, every backend and the shared remote client.
// The Dispatch must not be used afterwards.
func (d *Dispatch) Shutdown() error {
	d.handles.Range(func(_ uint32, s store.IStoreHandle) bool {
		closeStore(s)
		return true
	})
	d.handles = table.New[store.IStoreHandle]()

	var errs []error
	for name, b := range d.backends {
		if err := b.Close(); err != nil {
			errs = append(errs, fmt.Errorf("store %q: %w", name, err))
		}
	}
	if d.shared != nil {
		if err := d.shared.Close(); err != nil {
			errs = append(errs, fmt.Errorf("remote client: %w", err))
		}
	}
	return errors.Join(errs...)
}

// Stores returns the number of configured store names.
func (d *Dispatch) Stores() int {
	return len(d.backends)
}

// --------------------------------------------------------------------------
// Helper Functions
// --------------------------------------------------------------------------

func (d *Dispatch) lookup(h Handle) (store.IStoreHandle, error) {
	s, ok := d.handles.Get(h)
	if !ok {
		return nil, store.ErrInvalidStore
	}
	return s, nil
}

func closeStore(s store.IStoreHandle) {
	c, ok := s.(io.Closer)
	if !ok {
		return
	}
	if err := c.Close(); err != nil {
		Logger.Warningf("failed to close store handle: %v", err)
	}
}

// observe records the outcome and latency of one operation.
func observe(op string, start time.Time, err *error) {
	result := store.CodeOf(*err).String()
	metrics.GetOrCreateCounter(fmt.Sprintf(`kvmux_ops_total{op=%q,result=%q}`, op, result)).Inc()
	metrics.GetOrCreateHistogram(fmt.Sprintf(`kvmux_op_duration_seconds{op=%q}`, op)).UpdateDuration(start)
}
