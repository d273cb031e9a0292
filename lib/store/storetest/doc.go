// Package storetest provides a conformance suite for store.IBackend
// implementations.
//
// Every backend in kvmux runs the same tests, which pins down the shared
// contract: upsert semantics, silent deletes, the exists-via-get rule and the
// round trip of arbitrary byte values (including the empty value).
//
// Usage:
//
//	func TestBackend(t *testing.T) {
//	    storetest.RunStoreTests(t, "sqlite", func(t *testing.T) store.IBackend {
//	        return sqlstore.NewBackend(sqlstore.InMemory())
//	    }, storetest.Options{IsolatedStores: true})
//	}
package storetest
