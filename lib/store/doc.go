// Package store defines the contract every storage backend of kvmux fulfils
// and the error type shared across the whole library.
//
// The package focuses on:
//   - A two-tier abstraction: an IBackend opens named stores, an IStoreHandle
//     performs get/set/delete/exists against one logical namespace
//   - A single error taxonomy (Error with a RetCode) used by every backend and
//     by the dispatch layer
//
// Key Components:
//
//   - IBackend: A configured storage engine. The first Open may perform
//     expensive setup such as connecting and creating the schema; later calls
//     reuse that setup.
//
//   - IStoreHandle: The live binding returned by IBackend.Open. Handles are
//     shared-nothing from the caller's point of view but may share a physical
//     connection behind the scenes.
//
//   - IKeyLister: Optional extension for handles that can enumerate keys.
//
//   - ExistsViaGet: The exists contract. Every backend answers Exists the way
//     Get would: absent key means false, any other error propagates. Callers
//     rely on get and exists reporting errors identically.
//
//   - Error System: Error carries a RetCode plus an optional message. The
//     sentinel values (ErrNoSuchKey, ErrInvalidStore, ...) match any Error with
//     the same code through errors.Is, so detail messages never get in the way
//     of error handling.
//
// Implementations:
//
//	- Embedded SQL (sqlstore): One sqlite database (file or in-memory) shared by
//	  every store opened from the backend, partitioned by store name.
//	  Available in the "github.com/ValentinKolb/kvmux/lib/store/sqlstore" package.
//
//	- Standalone SQL (nsstore): A single-backend variant with its own namespace
//	  id table and lazy connection, without the backend/handle split.
//	  Available in the "github.com/ValentinKolb/kvmux/lib/store/nsstore" package.
//
//	- Remote (rstore): Stores living in a remote key-value service reached
//	  through the rpc packages.
//	  Available in the "github.com/ValentinKolb/kvmux/lib/store/rstore" package.
package store
