package dispatch

import (
	"context"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/ValentinKolb/kvmux/lib/store"
	"github.com/ValentinKolb/kvmux/lib/table"
	"github.com/ValentinKolb/kvmux/rpc/common"
	"github.com/ValentinKolb/kvmux/rpc/serializer"
	"github.com/ValentinKolb/kvmux/rpc/server"
	kvhttp "github.com/ValentinKolb/kvmux/rpc/transport/http"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testShard = 100

// --------------------------------------------------------------------------
// Helper functions
// --------------------------------------------------------------------------

// startRemote serves a memory shard over http and returns its URL
func startRemote(t *testing.T) string {
	t.Helper()
	config := common.ServerConfig{
		Shards:        []common.ServerShard{{ShardID: testShard, Type: common.ShardTypeMemory}},
		TimeoutSecond: 5,
		LogLevel:      "info",
	}
	srv := server.NewRPCServer(config, kvhttp.NewHttpServerTransport(), serializer.NewJSONSerializer())
	require.NoError(t, srv.Init())

	ts := httptest.NewServer(kvhttp.NewHandler(srv.Handle, false))
	t.Cleanup(func() {
		ts.Close()
		_ = srv.Close()
	})
	return ts.URL
}

func newDispatch(t *testing.T, config Config) *Dispatch {
	t.Helper()
	d, err := New(config)
	require.NoError(t, err)
	t.Cleanup(func() { _ = d.Shutdown() })
	return d
}

func testConfig(t *testing.T) Config {
	return Config{
		Stores: map[string]StoreConfig{
			"foo":   {Type: StoreTypeMemory},
			"bar":   {Type: StoreTypeMemory},
			"users": {Type: StoreTypeSQLite, Path: filepath.Join(t.TempDir(), "users.db")},
		},
	}
}

func requireCode(t *testing.T, err error, code store.RetCode) {
	t.Helper()
	require.Error(t, err)
	assert.Equal(t, code, store.CodeOf(err), "unexpected error: %v", err)
}

// plainStore is a store that can neither list keys nor be closed
type plainStore struct {
	mu   sync.Mutex
	data map[string][]byte
}

func (s *plainStore) Get(_ context.Context, key string) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.data[key]
	if !ok {
		return nil, store.ErrNoSuchKey
	}
	return v, nil
}

func (s *plainStore) Set(_ context.Context, key string, value []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[key] = value
	return nil
}

func (s *plainStore) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.data, key)
	return nil
}

func (s *plainStore) Exists(ctx context.Context, key string) (bool, error) {
	return store.ExistsViaGet(ctx, s, key)
}

// closingStore records whether it was closed
type closingStore struct {
	plainStore
	closed bool
}

func (s *closingStore) Close() error {
	s.closed = true
	return nil
}

type fakeBackend struct {
	open   func() store.IStoreHandle
	closed bool
}

func (b *fakeBackend) Open(context.Context, string) (store.IStoreHandle, error) {
	return b.open(), nil
}

func (b *fakeBackend) Close() error {
	b.closed = true
	return nil
}

// --------------------------------------------------------------------------
// Test functions
// --------------------------------------------------------------------------

func TestScenario(t *testing.T) {
	ctx := context.Background()
	d := newDispatch(t, testConfig(t))

	s, err := d.Open(ctx, "foo")
	require.NoError(t, err)

	require.NoError(t, d.Set(ctx, s, "bar", []byte("baz")))

	value, err := d.Get(ctx, s, "bar")
	require.NoError(t, err)
	assert.Equal(t, []byte("baz"), value)

	ok, err := d.Exists(ctx, s, "bar")
	require.NoError(t, err)
	assert.True(t, ok)

	require.NoError(t, d.Delete(ctx, s, "bar"))

	ok, err = d.Exists(ctx, s, "bar")
	require.NoError(t, err)
	assert.False(t, ok)

	_, err = d.Get(ctx, s, "bar")
	requireCode(t, err, store.RetCNoSuchKey)

	d.Close(s)

	_, err = d.Exists(ctx, s, "bar")
	requireCode(t, err, store.RetCInvalidStore)
}

func TestNeverOpenedHandle(t *testing.T) {
	ctx := context.Background()
	d := newDispatch(t, testConfig(t))

	const h Handle = 42

	_, err := d.Get(ctx, h, "k")
	requireCode(t, err, store.RetCInvalidStore)
	requireCode(t, d.Set(ctx, h, "k", []byte("v")), store.RetCInvalidStore)
	requireCode(t, d.Delete(ctx, h, "k"), store.RetCInvalidStore)
	_, err = d.Exists(ctx, h, "k")
	requireCode(t, err, store.RetCInvalidStore)
	_, err = d.GetKeys(ctx, h)
	requireCode(t, err, store.RetCInvalidStore)

	// closing an unknown handle is a no-op
	d.Close(h)
	d.Close(h)
}

func TestOpenUnknownName(t *testing.T) {
	ctx := context.Background()
	d := newDispatch(t, testConfig(t))
	d.handles = table.NewWithCapacity[store.IStoreHandle](1)

	_, err := d.Open(ctx, "nope")
	requireCode(t, err, store.RetCNoSuchStore)
	assert.ErrorIs(t, err, store.ErrNoSuchStore)
	assert.Equal(t, 0, d.handles.Len())

	// the failed open did not take the only slot
	_, err = d.Open(ctx, "foo")
	require.NoError(t, err)
}

func TestOpenPropagatesBackendError(t *testing.T) {
	ctx := context.Background()
	d := newDispatch(t, Config{Stores: map[string]StoreConfig{
		"broken": {Type: StoreTypeSQLite, Path: filepath.Join(t.TempDir(), "missing", "dir", "db.sqlite")},
	}})

	_, err := d.Open(ctx, "broken")
	requireCode(t, err, store.RetCStore)
	assert.Equal(t, 0, d.handles.Len())
}

func TestStoreTableFull(t *testing.T) {
	ctx := context.Background()

	var opened []*closingStore
	backend := &fakeBackend{open: func() store.IStoreHandle {
		s := &closingStore{plainStore: plainStore{data: map[string][]byte{}}}
		opened = append(opened, s)
		return s
	}}
	d := NewWithBackends(map[string]store.IBackend{"foo": backend})
	d.handles = table.NewWithCapacity[store.IStoreHandle](2)

	h1, err := d.Open(ctx, "foo")
	require.NoError(t, err)
	_, err = d.Open(ctx, "foo")
	require.NoError(t, err)

	_, err = d.Open(ctx, "foo")
	requireCode(t, err, store.RetCStoreTableFull)
	require.Len(t, opened, 3)
	assert.True(t, opened[2].closed, "store opened for a full table must be closed again")
	assert.False(t, opened[0].closed)

	// closing frees a slot and closes the store
	d.Close(h1)
	assert.True(t, opened[0].closed)
	_, err = d.Open(ctx, "foo")
	require.NoError(t, err)

	require.NoError(t, d.Shutdown())
	assert.True(t, backend.closed)
	assert.True(t, opened[1].closed)
	assert.True(t, opened[3].closed)
}

func TestHandlesOfOneName(t *testing.T) {
	ctx := context.Background()
	d := newDispatch(t, testConfig(t))

	h1, err := d.Open(ctx, "foo")
	require.NoError(t, err)
	h2, err := d.Open(ctx, "foo")
	require.NoError(t, err)
	other, err := d.Open(ctx, "bar")
	require.NoError(t, err)
	assert.NotEqual(t, h1, h2)

	require.NoError(t, d.Set(ctx, h1, "k", []byte("v")))

	value, err := d.Get(ctx, h2, "k")
	require.NoError(t, err)
	assert.Equal(t, []byte("v"), value)

	// memory stores of different names are independent
	_, err = d.Get(ctx, other, "k")
	requireCode(t, err, store.RetCNoSuchKey)

	// closing one handle leaves the other usable
	d.Close(h1)
	_, err = d.Get(ctx, h2, "k")
	require.NoError(t, err)
}

func TestGetKeys(t *testing.T) {
	ctx := context.Background()
	d := newDispatch(t, testConfig(t))

	h, err := d.Open(ctx, "users")
	require.NoError(t, err)

	keys, err := d.GetKeys(ctx, h)
	require.NoError(t, err)
	assert.Empty(t, keys)

	require.NoError(t, d.Set(ctx, h, "bob", []byte("1")))
	require.NoError(t, d.Set(ctx, h, "alice", []byte("2")))

	keys, err = d.GetKeys(ctx, h)
	require.NoError(t, err)
	assert.Equal(t, []string{"alice", "bob"}, keys)
}

func TestGetKeysUnsupported(t *testing.T) {
	ctx := context.Background()
	d := NewWithBackends(map[string]store.IBackend{
		"plain": &fakeBackend{open: func() store.IStoreHandle { return &plainStore{data: map[string][]byte{}} }},
	})

	h, err := d.Open(ctx, "plain")
	require.NoError(t, err)

	_, err = d.GetKeys(ctx, h)
	requireCode(t, err, store.RetCRuntime)
}

func TestSQLiteStorePersists(t *testing.T) {
	ctx := context.Background()
	config := testConfig(t)

	d, err := New(config)
	require.NoError(t, err)
	h, err := d.Open(ctx, "users")
	require.NoError(t, err)
	require.NoError(t, d.Set(ctx, h, "alice", []byte("admin")))
	require.NoError(t, d.Shutdown())

	d = newDispatch(t, config)
	h, err = d.Open(ctx, "users")
	require.NoError(t, err)
	value, err := d.Get(ctx, h, "alice")
	require.NoError(t, err)
	assert.Equal(t, []byte("admin"), value)
}

func TestRemoteStores(t *testing.T) {
	ctx := context.Background()
	url := startRemote(t)

	d := newDispatch(t, Config{
		Stores: map[string]StoreConfig{
			"a":     {Type: StoreTypeRemote, Namespace: "shared"},
			"b":     {Type: StoreTypeRemote, Namespace: "shared"},
			"other": {Type: StoreTypeRemote},
			"named": {Type: StoreTypeRemote, Namespace: "default"},
		},
		Remote: RemoteConfig{
			Endpoints:  []string{url},
			Transport:  "http",
			Serializer: "json",
			ShardID:    testShard,
		},
	})

	a, err := d.Open(ctx, "a")
	require.NoError(t, err)
	b, err := d.Open(ctx, "b")
	require.NoError(t, err)
	other, err := d.Open(ctx, "other")
	require.NoError(t, err)

	require.NoError(t, d.Set(ctx, a, "k", []byte{}))

	// stores bound to the same namespace see each other's keys
	ok, err := d.Exists(ctx, b, "k")
	require.NoError(t, err)
	assert.True(t, ok)

	value, err := d.Get(ctx, b, "k")
	require.NoError(t, err)
	assert.Empty(t, value)

	_, err = d.Get(ctx, other, "k")
	requireCode(t, err, store.RetCNoSuchKey)

	keys, err := d.GetKeys(ctx, a)
	require.NoError(t, err)
	assert.Equal(t, []string{"k"}, keys)

	require.NoError(t, d.Delete(ctx, b, "k"))
	ok, err = d.Exists(ctx, a, "k")
	require.NoError(t, err)
	assert.False(t, ok)

	// a store without namespace lives in "default"
	named, err := d.Open(ctx, "named")
	require.NoError(t, err)
	require.NoError(t, d.Set(ctx, other, "d", []byte("v")))
	value, err = d.Get(ctx, named, "d")
	require.NoError(t, err)
	assert.Equal(t, []byte("v"), value)
}

func TestRemoteUnreachable(t *testing.T) {
	ctx := context.Background()
	d := newDispatch(t, Config{
		Stores: map[string]StoreConfig{"r": {Type: StoreTypeRemote}},
		Remote: RemoteConfig{
			Endpoints: []string{"127.0.0.1:1"},
			Transport: "tcp",
			ShardID:   testShard,
		},
	})

	// opening does not need the service
	h, err := d.Open(ctx, "r")
	require.NoError(t, err)

	_, err = d.Get(ctx, h, "k")
	requireCode(t, err, store.RetCInvalidStore)
}

func TestNewRejectsBadConfig(t *testing.T) {
	_, err := New(Config{Stores: map[string]StoreConfig{"x": {Type: "redis"}}})
	require.Error(t, err)

	_, err = New(Config{Stores: map[string]StoreConfig{"x": {Type: StoreTypeRemote}}})
	require.Error(t, err)

	_, err = New(Config{
		Stores: map[string]StoreConfig{"x": {Type: StoreTypeRemote}},
		Remote: RemoteConfig{Endpoints: []string{"localhost:1"}, Transport: "carrier-pigeon"},
	})
	require.Error(t, err)
}

func TestLockedConcurrent(t *testing.T) {
	ctx := context.Background()
	d, err := New(testConfig(t))
	require.NoError(t, err)
	l := NewLocked(d)
	defer func() { require.NoError(t, l.Shutdown()) }()

	var wg sync.WaitGroup
	errs := make(chan error, 8)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 20; j++ {
				h, err := l.Open(ctx, "users")
				if err != nil {
					errs <- err
					return
				}
				if err := l.Set(ctx, h, "k", []byte("v")); err != nil {
					errs <- err
					return
				}
				if _, err := l.Get(ctx, h, "k"); err != nil {
					errs <- err
					return
				}
				l.Close(h)
			}
		}()
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		require.NoError(t, err)
	}
	assert.Equal(t, 0, d.handles.Len())
}

func TestLoadConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "stores.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
stores:
  cache:
    type: Memory
  users:
    type: sqlite
    path: users.db
  shared:
    type: remote
    namespace: users
remote:
  endpoints: ["localhost:8080"]
  shard_id: 200
`), 0o644))

	config, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, StoreConfig{Type: StoreTypeMemory}, config.Stores["cache"])
	assert.Equal(t, StoreConfig{Type: StoreTypeSQLite, Path: "users.db"}, config.Stores["users"])
	assert.Equal(t, StoreConfig{Type: StoreTypeRemote, Namespace: "users"}, config.Stores["shared"])
	assert.Equal(t, []string{"localhost:8080"}, config.Remote.Endpoints)
	assert.Equal(t, uint64(200), config.Remote.ShardID)

	// unset remote settings keep their defaults
	assert.Equal(t, "tcp", config.Remote.Transport)
	assert.Equal(t, "binary", config.Remote.Serializer)
}

func TestLoadConfigErrors(t *testing.T) {
	dir := t.TempDir()

	_, err := LoadConfig(filepath.Join(dir, "missing.yaml"))
	require.Error(t, err)

	bad := filepath.Join(dir, "bad.yaml")
	require.NoError(t, os.WriteFile(bad, []byte("stores: [unclosed"), 0o644))
	_, err = LoadConfig(bad)
	require.Error(t, err)

	noPath := filepath.Join(dir, "nopath.yaml")
	require.NoError(t, os.WriteFile(noPath, []byte("stores:\n  x:\n    type: sqlite\n"), 0o644))
	_, err = LoadConfig(noPath)
	assert.ErrorContains(t, err, "need a path")
}

func TestDefaultConfig(t *testing.T) {
	config := DefaultConfig()
	require.NoError(t, config.Validate())
	assert.Equal(t, StoreConfig{Type: StoreTypeSQLite, Path: "kvmux.db"}, config.Stores["default"])
}
