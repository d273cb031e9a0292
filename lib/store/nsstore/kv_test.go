package nsstore

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/ValentinKolb/kvmux/lib/store"
	"github.com/ValentinKolb/kvmux/lib/store/sqlstore"
	"github.com/ValentinKolb/kvmux/lib/store/storetest"
	"github.com/ValentinKolb/kvmux/lib/table"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// backend adapts a KeyValue to store.IBackend so the conformance suite can run against it.
type backend struct {
	kv *KeyValue
}

func (b *backend) Open(_ context.Context, name string) (store.IStoreHandle, error) {
	ns, err := b.kv.Open(name)
	if err != nil {
		return nil, err
	}
	return b.kv.Handle(ns), nil
}

func (b *backend) Close() error {
	return b.kv.Shutdown()
}

func TestKeyValueConformance(t *testing.T) {
	storetest.RunStoreTests(t, "nsstore", func(t *testing.T) store.IBackend {
		return &backend{kv: New(sqlstore.Path(filepath.Join(t.TempDir(), "kv.db")), nil)}
	}, storetest.Options{IsolatedStores: true})
}

func TestScenario(t *testing.T) {
	ctx := context.Background()
	kv := New(sqlstore.InMemory(), nil)
	defer kv.Shutdown()

	foo, err := kv.Open("foo")
	require.NoError(t, err)

	ok, err := kv.Exists(ctx, foo, "bar")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, kv.Set(ctx, foo, "bar", []byte("baz")))

	got, err := kv.Get(ctx, foo, "bar")
	require.NoError(t, err)
	assert.Equal(t, []byte("baz"), got)

	require.NoError(t, kv.Set(ctx, foo, "bar", []byte("wow")))
	got, err = kv.Get(ctx, foo, "bar")
	require.NoError(t, err)
	assert.Equal(t, []byte("wow"), got)

	require.NoError(t, kv.Delete(ctx, foo, "bar"))
	ok, err = kv.Exists(ctx, foo, "bar")
	require.NoError(t, err)
	assert.False(t, ok)

	kv.Close(foo)
	_, err = kv.Get(ctx, foo, "bar")
	assert.ErrorIs(t, err, store.ErrInvalidNamespace)
}

func TestOpenDoesNotConnect(t *testing.T) {
	ctx := context.Background()
	// the directory does not exist, so connecting would fail
	kv := New(sqlstore.Path(filepath.Join(t.TempDir(), "missing", "kv.db")), nil)
	defer kv.Shutdown()

	ns, err := kv.Open("foo")
	require.NoError(t, err)
	assert.False(t, kv.Connected())

	_, err = kv.Get(ctx, ns, "k")
	assert.Equal(t, store.RetCStore, store.CodeOf(err))
	assert.False(t, kv.Connected())
}

func TestInvalidNamespaceBeforeConnect(t *testing.T) {
	ctx := context.Background()
	kv := New(sqlstore.InMemory(), nil)
	defer kv.Shutdown()

	_, err := kv.Get(ctx, 42, "k")
	assert.ErrorIs(t, err, store.ErrInvalidNamespace)
	assert.ErrorIs(t, kv.Set(ctx, 42, "k", []byte("v")), store.ErrInvalidNamespace)
	assert.ErrorIs(t, kv.Delete(ctx, 42, "k"), store.ErrInvalidNamespace)
	_, err = kv.Exists(ctx, 42, "k")
	assert.ErrorIs(t, err, store.ErrInvalidNamespace)
	_, err = kv.GetKeys(ctx, 42)
	assert.ErrorIs(t, err, store.ErrInvalidNamespace)

	assert.False(t, kv.Connected())
}

func TestNamespaceTableFull(t *testing.T) {
	kv := New(sqlstore.InMemory(), nil)
	defer kv.Shutdown()
	kv.namespaces = table.NewWithCapacity[string](1)

	first, err := kv.Open("foo")
	require.NoError(t, err)

	_, err = kv.Open("bar")
	assert.ErrorIs(t, err, store.ErrNamespaceTableFull)
	assert.False(t, kv.Connected())

	// a closed id frees its slot
	kv.Close(first)
	ns, err := kv.Open("bar")
	require.NoError(t, err)

	require.NoError(t, kv.Set(context.Background(), ns, "k", []byte("v")))
	got, err := kv.Get(context.Background(), ns, "k")
	require.NoError(t, err)
	assert.Equal(t, []byte("v"), got)
}

func TestCloseIsIdempotent(t *testing.T) {
	kv := New(sqlstore.InMemory(), nil)
	defer kv.Shutdown()

	ns, err := kv.Open("foo")
	require.NoError(t, err)
	kv.Close(ns)
	kv.Close(ns)
	kv.Close(12345)
}

func TestNamespacesShareNames(t *testing.T) {
	ctx := context.Background()
	kv := New(sqlstore.InMemory(), nil)
	defer kv.Shutdown()

	a, err := kv.Open("same")
	require.NoError(t, err)
	b, err := kv.Open("same")
	require.NoError(t, err)
	assert.NotEqual(t, a, b)

	require.NoError(t, kv.Set(ctx, a, "k", []byte("v")))
	got, err := kv.Get(ctx, b, "k")
	require.NoError(t, err)
	assert.Equal(t, []byte("v"), got)

	// closing one id leaves the other usable
	kv.Close(a)
	got, err = kv.Get(ctx, b, "k")
	require.NoError(t, err)
	assert.Equal(t, []byte("v"), got)
}
