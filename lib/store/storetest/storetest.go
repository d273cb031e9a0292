package storetest

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"testing"

	"github.com/ValentinKolb/kvmux/lib/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// BackendFactory creates a fresh backend for one test. The suite closes it.
type BackendFactory func(t *testing.T) store.IBackend

// Options describes behaviour that differs between backends.
type Options struct {
	// IsolatedStores is true if stores opened under different names never see
	// each other's keys.
	IsolatedStores bool
}

// RunStoreTests runs the conformance suite against the backends produced by factory.
func RunStoreTests(t *testing.T, name string, factory BackendFactory, opts Options) {
	t.Run(name, func(t *testing.T) {
		t.Run("Scenario", func(t *testing.T) {
			testScenario(t, open(t, factory, "s"))
		})

		t.Run("RoundTrip", func(t *testing.T) {
			testRoundTrip(t, open(t, factory, "s"))
		})

		t.Run("Overwrite", func(t *testing.T) {
			testOverwrite(t, open(t, factory, "s"))
		})

		t.Run("DeleteAbsent", func(t *testing.T) {
			testDeleteAbsent(t, open(t, factory, "s"))
		})

		t.Run("EmptyValueExists", func(t *testing.T) {
			testEmptyValueExists(t, open(t, factory, "s"))
		})

		t.Run("SharedHandles", func(t *testing.T) {
			testSharedHandles(t, factory)
		})

		if opts.IsolatedStores {
			t.Run("IsolatedStores", func(t *testing.T) {
				testIsolatedStores(t, factory)
			})
		}

		t.Run("GetKeys", func(t *testing.T) {
			testGetKeys(t, open(t, factory, "s"))
		})

		t.Run("Concurrent", func(t *testing.T) {
			testConcurrent(t, open(t, factory, "s"))
		})
	})
}

// --------------------------------------------------------------------------
// Helper functions
// --------------------------------------------------------------------------

// open creates a backend, registers its cleanup and opens the store name.
func open(t *testing.T, factory BackendFactory, name string) store.IStoreHandle {
	t.Helper()
	backend := factory(t)
	t.Cleanup(func() { _ = backend.Close() })

	s, err := backend.Open(context.Background(), name)
	require.NoError(t, err)
	return s
}

func requireCode(t *testing.T, err error, code store.RetCode) {
	t.Helper()
	require.Error(t, err)
	require.Equal(t, code, store.CodeOf(err), "unexpected error: %v", err)
}

// --------------------------------------------------------------------------
// Test functions
// --------------------------------------------------------------------------

func testScenario(t *testing.T, s store.IStoreHandle) {
	ctx := context.Background()

	ok, err := s.Exists(ctx, "bar")
	require.NoError(t, err)
	assert.False(t, ok)

	_, err = s.Get(ctx, "bar")
	requireCode(t, err, store.RetCNoSuchKey)

	require.NoError(t, s.Set(ctx, "bar", []byte("baz")))

	ok, err = s.Exists(ctx, "bar")
	require.NoError(t, err)
	assert.True(t, ok)

	value, err := s.Get(ctx, "bar")
	require.NoError(t, err)
	assert.Equal(t, []byte("baz"), value)

	require.NoError(t, s.Set(ctx, "bar", []byte("wow")))

	value, err = s.Get(ctx, "bar")
	require.NoError(t, err)
	assert.Equal(t, []byte("wow"), value)

	require.NoError(t, s.Delete(ctx, "bar"))

	ok, err = s.Exists(ctx, "bar")
	require.NoError(t, err)
	assert.False(t, ok)

	_, err = s.Get(ctx, "bar")
	requireCode(t, err, store.RetCNoSuchKey)
}

func testRoundTrip(t *testing.T, s store.IStoreHandle) {
	ctx := context.Background()

	binary := make([]byte, 256)
	for i := range binary {
		binary[i] = byte(i)
	}

	values := map[string][]byte{
		"empty":   {},
		"text":    []byte("hello world"),
		"binary":  binary,
		"large":   make([]byte, 1<<20),
		"unicode": []byte("grüße 世界"),
	}

	for key, value := range values {
		require.NoError(t, s.Set(ctx, key, value), key)
	}
	for key, value := range values {
		got, err := s.Get(ctx, key)
		require.NoError(t, err, key)
		assert.Equal(t, len(value), len(got), key)
		assert.Equal(t, value, got, key)
	}
}

func testOverwrite(t *testing.T, s store.IStoreHandle) {
	ctx := context.Background()

	require.NoError(t, s.Set(ctx, "k", []byte("a much longer first value")))
	require.NoError(t, s.Set(ctx, "k", []byte("v2")))

	got, err := s.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, []byte("v2"), got)
}

func testDeleteAbsent(t *testing.T, s store.IStoreHandle) {
	ctx := context.Background()

	require.NoError(t, s.Set(ctx, "present", []byte("x")))
	require.NoError(t, s.Delete(ctx, "absent"))
	require.NoError(t, s.Delete(ctx, "absent"))

	got, err := s.Get(ctx, "present")
	require.NoError(t, err)
	assert.Equal(t, []byte("x"), got)

	_, err = s.Get(ctx, "absent")
	requireCode(t, err, store.RetCNoSuchKey)
}

func testEmptyValueExists(t *testing.T, s store.IStoreHandle) {
	ctx := context.Background()

	require.NoError(t, s.Set(ctx, "empty", []byte{}))

	ok, err := s.Exists(ctx, "empty")
	require.NoError(t, err)
	assert.True(t, ok, "a key with an empty value exists")

	got, err := s.Get(ctx, "empty")
	require.NoError(t, err)
	assert.Len(t, got, 0)
}

func testSharedHandles(t *testing.T, factory BackendFactory) {
	ctx := context.Background()
	backend := factory(t)
	t.Cleanup(func() { _ = backend.Close() })

	a, err := backend.Open(ctx, "shared")
	require.NoError(t, err)
	b, err := backend.Open(ctx, "shared")
	require.NoError(t, err)

	require.NoError(t, a.Set(ctx, "k", []byte("from a")))
	got, err := b.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, []byte("from a"), got)
}

func testIsolatedStores(t *testing.T, factory BackendFactory) {
	ctx := context.Background()
	backend := factory(t)
	t.Cleanup(func() { _ = backend.Close() })

	a, err := backend.Open(ctx, "a")
	require.NoError(t, err)
	b, err := backend.Open(ctx, "b")
	require.NoError(t, err)

	require.NoError(t, a.Set(ctx, "k", []byte("a")))

	_, err = b.Get(ctx, "k")
	requireCode(t, err, store.RetCNoSuchKey)

	require.NoError(t, b.Set(ctx, "k", []byte("b")))
	require.NoError(t, a.Delete(ctx, "k"))

	got, err := b.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, []byte("b"), got)
}

func testGetKeys(t *testing.T, s store.IStoreHandle) {
	lister, ok := s.(store.IKeyLister)
	if !ok {
		t.Skip("store does not list keys")
	}
	ctx := context.Background()

	keys, err := lister.GetKeys(ctx)
	require.NoError(t, err)
	assert.Empty(t, keys)

	for _, k := range []string{"c", "a", "b"} {
		require.NoError(t, s.Set(ctx, k, []byte(k)))
	}
	require.NoError(t, s.Delete(ctx, "b"))

	keys, err = lister.GetKeys(ctx)
	require.NoError(t, err)
	sort.Strings(keys)
	assert.Equal(t, []string{"a", "c"}, keys)
}

func testConcurrent(t *testing.T, s store.IStoreHandle) {
	ctx := context.Background()
	const workers = 8
	const perWorker = 25

	var wg sync.WaitGroup
	errs := make(chan error, workers)
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for i := 0; i < perWorker; i++ {
				key := fmt.Sprintf("w%d-k%d", w, i)
				if err := s.Set(ctx, key, []byte(key)); err != nil {
					errs <- err
					return
				}
				got, err := s.Get(ctx, key)
				if err != nil {
					errs <- err
					return
				}
				if string(got) != key {
					errs <- fmt.Errorf("key %s: got %q", key, got)
					return
				}
			}
		}(w)
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		t.Error(err)
	}
}
